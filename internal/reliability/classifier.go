package reliability

import (
	"strconv"
	"strings"
	"time"
)

// Class labels a Bot API failure by what the caller should do about it.
type Class int

const (
	ClassOther Class = iota
	ClassNotModified
	ClassNotFound
	ClassRateLimited
)

// ClassifyDescription sorts Bot API error descriptions. Telegram reports
// them as 400s with a human-readable reason, so matching is by substring.
func ClassifyDescription(desc string) Class {
	d := strings.ToLower(desc)
	switch {
	case strings.Contains(d, "message is not modified"):
		return ClassNotModified
	case strings.Contains(d, "message to edit not found"),
		strings.Contains(d, "message to delete not found"),
		strings.Contains(d, "message not found"):
		return ClassNotFound
	case strings.Contains(d, "too many requests"):
		return ClassRateLimited
	default:
		return ClassOther
	}
}

// RetryAfter extracts the server-suggested pause from a rate-limit
// description ("Too Many Requests: retry after 14").
func RetryAfter(desc string) (time.Duration, bool) {
	d := strings.ToLower(desc)
	const marker = "retry after "
	i := strings.Index(d, marker)
	if i < 0 {
		return 0, false
	}
	digits := d[i+len(marker):]
	if j := strings.IndexFunc(digits, func(r rune) bool { return r < '0' || r > '9' }); j >= 0 {
		digits = digits[:j]
	}
	secs, err := strconv.Atoi(digits)
	if err != nil || secs <= 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

// IsRetryableHTTPStatus classifies transport statuses worth retrying on the
// gateway long-poll loop. 4xx other than 429 means the request itself is wrong.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// ExponentialBackoff computes a deterministic capped backoff duration.
func ExponentialBackoff(attempt int, base, cap time.Duration) time.Duration {
	if attempt <= 0 {
		return base
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	return d
}
