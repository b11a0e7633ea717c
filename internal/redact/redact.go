package redact

import "regexp"

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`)
	cardPattern  = regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`)
)

// Mask hides common high-risk PII patterns in free text. Wizard answers are
// user-supplied and may contain contact details; anything that reaches the
// process log goes through here first so the bot keeps its stateless promise.
func Mask(input string) string {
	out := emailPattern.ReplaceAllString(input, "[email]")
	// Cards before phones, otherwise card numbers match the phone pattern.
	out = cardPattern.ReplaceAllString(out, "[card]")
	out = phonePattern.ReplaceAllString(out, "[phone]")
	return out
}

// Preview truncates masked text to at most max runes. Cutting on a rune
// boundary keeps multibyte answers valid UTF-8 after truncation.
func Preview(input string, max int) string {
	masked := Mask(input)
	if max <= 0 || len(masked) <= max {
		return masked
	}
	runes := []rune(masked)
	if len(runes) <= max {
		return masked
	}
	return string(runes[:max]) + "…"
}
