package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

// Button is one inline keyboard button. Data is the callback payload; URL
// buttons open a link instead of firing an event.
type Button struct {
	Label string `json:"label"`
	Data  string `json:"data,omitempty"`
	URL   string `json:"url,omitempty"`
}

// EventKind identifies inbound event variants.
type EventKind string

const (
	EventText   EventKind = "text"
	EventButton EventKind = "button"
)

// Update is one normalized inbound event from the chat transport.
type Update struct {
	Kind EventKind
	// TurnID tags the event for log correlation; the dispatcher fills it in.
	TurnID string
	UserID int64
	// MessageID is the inbound message for text events, or the message the
	// pressed button was attached to for button events.
	MessageID  int
	Text       string
	Data       string
	CallbackID string
}

// Sentinel outcomes the core distinguishes from generic transport failures.
var (
	// ErrNotModified: an edit produced identical content. Swallowed upstream.
	ErrNotModified = errors.New("gateway: message not modified")
	// ErrNotFound: the referenced message no longer exists.
	ErrNotFound = errors.New("gateway: message not found")
)

// Gateway is the outbound messaging surface. All calls are fallible; callers
// classify failures via ErrNotModified / ErrNotFound.
type Gateway interface {
	SendMessage(ctx context.Context, userID int64, text string, buttons [][]Button) (int, error)
	EditMessage(ctx context.Context, userID int64, messageID int, text string, buttons [][]Button) error
	DeleteMessage(ctx context.Context, userID int64, messageID int) error
	SendDocument(ctx context.Context, userID int64, path string) error
	AckButton(ctx context.Context, callbackID string) error
}

// Transport is a Gateway that also produces the inbound event stream.
type Transport interface {
	Gateway
	// Updates yields inbound events. The channel closes when Run returns.
	Updates() <-chan Update
	// Run drives the transport (long-polling, connection upkeep) until ctx
	// is done.
	Run(ctx context.Context) error
}

// Config controls transport construction.
type Config struct {
	Mode        string
	Token       string
	APIBase     string
	PollTimeout time.Duration
}

// New selects a transport by mode: telegram|webchat|mock, or auto (telegram
// when a token is configured, webchat otherwise).
func New(cfg Config) (Transport, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.Token) != "" {
			return NewTelegram(cfg.APIBase, cfg.Token, cfg.PollTimeout), nil
		}
		log.Printf("gateway: no BOT_TOKEN, falling back to webchat transport")
		return NewHub(), nil
	case "telegram":
		if strings.TrimSpace(cfg.Token) == "" {
			return nil, errors.New("telegram transport requires a bot token")
		}
		return NewTelegram(cfg.APIBase, cfg.Token, cfg.PollTimeout), nil
	case "webchat":
		return NewHub(), nil
	case "mock":
		return NewMock(), nil
	default:
		return nil, fmt.Errorf("unsupported gateway mode %q", cfg.Mode)
	}
}
