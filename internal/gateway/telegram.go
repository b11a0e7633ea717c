package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kirill3224/privacy-sentry/internal/reliability"
)

// Telegram talks to the Bot API directly over HTTP: getUpdates long-polling
// inbound, plain method calls outbound. No framework, matching the rest of
// the service's thin-collaborator style.
type Telegram struct {
	apiBase     string
	token       string
	client      *http.Client
	pollTimeout time.Duration
	updates     chan Update
	offset      int64
}

func NewTelegram(apiBase, token string, pollTimeout time.Duration) *Telegram {
	if strings.TrimSpace(apiBase) == "" {
		apiBase = "https://api.telegram.org"
	}
	if pollTimeout <= 0 {
		pollTimeout = 30 * time.Second
	}
	return &Telegram{
		apiBase:     strings.TrimRight(apiBase, "/"),
		token:       token,
		client:      &http.Client{Timeout: pollTimeout + 15*time.Second},
		pollTimeout: pollTimeout,
		updates:     make(chan Update, 64),
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

type tgMessage struct {
	MessageID int `json:"message_id"`
	Chat      struct {
		ID int64 `json:"id"`
	} `json:"chat"`
	Text string `json:"text"`
}

type tgUpdate struct {
	UpdateID      int64      `json:"update_id"`
	Message       *tgMessage `json:"message"`
	CallbackQuery *struct {
		ID      string     `json:"id"`
		Data    string     `json:"data"`
		Message *tgMessage `json:"message"`
	} `json:"callback_query"`
}

// classifyDescription maps Bot API error descriptions onto the gateway
// sentinels.
func classifyDescription(desc string) error {
	switch reliability.ClassifyDescription(desc) {
	case reliability.ClassNotModified:
		return ErrNotModified
	case reliability.ClassNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("telegram: %s", desc)
	}
}

func (t *Telegram) call(ctx context.Context, method string, payload any, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: encode %s: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: build %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: %s: %w", method, err)
	}
	defer resp.Body.Close()
	// Overloaded proxies answer before the Bot API gets to produce its JSON
	// envelope; surface those as plain transport errors.
	if resp.StatusCode != http.StatusOK && reliability.IsRetryableHTTPStatus(resp.StatusCode) {
		return fmt.Errorf("telegram: %s: transient status %d", method, resp.StatusCode)
	}
	return decodeAPIResponse(resp.Body, result)
}

func decodeAPIResponse(r io.Reader, result any) error {
	var api apiResponse
	if err := json.NewDecoder(r).Decode(&api); err != nil {
		return fmt.Errorf("telegram: decode response: %w", err)
	}
	if !api.OK {
		return classifyDescription(api.Description)
	}
	if result != nil && len(api.Result) > 0 {
		if err := json.Unmarshal(api.Result, result); err != nil {
			return fmt.Errorf("telegram: decode result: %w", err)
		}
	}
	return nil
}

func (t *Telegram) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.apiBase, t.token, method)
}

func inlineKeyboard(buttons [][]Button) any {
	if len(buttons) == 0 {
		return nil
	}
	type tgButton struct {
		Text         string `json:"text"`
		CallbackData string `json:"callback_data,omitempty"`
		URL          string `json:"url,omitempty"`
	}
	rows := make([][]tgButton, 0, len(buttons))
	for _, row := range buttons {
		out := make([]tgButton, 0, len(row))
		for _, b := range row {
			out = append(out, tgButton{Text: b.Label, CallbackData: b.Data, URL: b.URL})
		}
		rows = append(rows, out)
	}
	return map[string]any{"inline_keyboard": rows}
}

func (t *Telegram) SendMessage(ctx context.Context, userID int64, text string, buttons [][]Button) (int, error) {
	payload := map[string]any{
		"chat_id":    userID,
		"text":       text,
		"parse_mode": "HTML",
	}
	if kb := inlineKeyboard(buttons); kb != nil {
		payload["reply_markup"] = kb
	}
	var msg tgMessage
	if err := t.call(ctx, "sendMessage", payload, &msg); err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

func (t *Telegram) EditMessage(ctx context.Context, userID int64, messageID int, text string, buttons [][]Button) error {
	payload := map[string]any{
		"chat_id":    userID,
		"message_id": messageID,
		"text":       text,
		"parse_mode": "HTML",
	}
	if kb := inlineKeyboard(buttons); kb != nil {
		payload["reply_markup"] = kb
	}
	return t.call(ctx, "editMessageText", payload, nil)
}

func (t *Telegram) DeleteMessage(ctx context.Context, userID int64, messageID int) error {
	return t.call(ctx, "deleteMessage", map[string]any{
		"chat_id":    userID,
		"message_id": messageID,
	}, nil)
}

func (t *Telegram) AckButton(ctx context.Context, callbackID string) error {
	if callbackID == "" {
		return nil
	}
	return t.call(ctx, "answerCallbackQuery", map[string]any{
		"callback_query_id": callbackID,
	}, nil)
}

func (t *Telegram) SendDocument(ctx context.Context, userID int64, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("telegram: open document: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("chat_id", fmt.Sprintf("%d", userID)); err != nil {
		return fmt.Errorf("telegram: multipart: %w", err)
	}
	part, err := w.CreateFormFile("document", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("telegram: multipart: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("telegram: read document: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("telegram: multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.methodURL("sendDocument"), &buf)
	if err != nil {
		return fmt.Errorf("telegram: build sendDocument: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: sendDocument: %w", err)
	}
	defer resp.Body.Close()
	return decodeAPIResponse(resp.Body, nil)
}

func (t *Telegram) Updates() <-chan Update {
	return t.updates
}

// Run long-polls getUpdates until ctx is done, pushing normalized events.
// Transport hiccups back off exponentially and recover on their own.
func (t *Telegram) Run(ctx context.Context) error {
	defer close(t.updates)

	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch, err := t.getUpdates(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			wait := reliability.ExponentialBackoff(attempt, time.Second, 30*time.Second)
			if suggested, ok := reliability.RetryAfter(err.Error()); ok {
				wait = suggested
			}
			attempt++
			log.Printf("gateway: poll failed (attempt %d, retry in %s): %v", attempt, wait, err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}
		attempt = 0

		for _, u := range batch {
			if u.UpdateID >= t.offset {
				t.offset = u.UpdateID + 1
			}
			ev, ok := normalizeUpdate(u)
			if !ok {
				continue
			}
			select {
			case t.updates <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (t *Telegram) getUpdates(ctx context.Context) ([]tgUpdate, error) {
	payload := map[string]any{
		"offset":          t.offset,
		"timeout":         int(t.pollTimeout.Seconds()),
		"allowed_updates": []string{"message", "callback_query"},
	}
	var batch []tgUpdate
	if err := t.call(ctx, "getUpdates", payload, &batch); err != nil {
		return nil, err
	}
	return batch, nil
}

func normalizeUpdate(u tgUpdate) (Update, bool) {
	switch {
	case u.CallbackQuery != nil:
		ev := Update{
			Kind:       EventButton,
			Data:       u.CallbackQuery.Data,
			CallbackID: u.CallbackQuery.ID,
		}
		if u.CallbackQuery.Message != nil {
			ev.UserID = u.CallbackQuery.Message.Chat.ID
			ev.MessageID = u.CallbackQuery.Message.MessageID
		}
		if ev.UserID == 0 {
			return Update{}, false
		}
		return ev, true
	case u.Message != nil && u.Message.Text != "":
		return Update{
			Kind:      EventText,
			UserID:    u.Message.Chat.ID,
			MessageID: u.Message.MessageID,
			Text:      u.Message.Text,
		}, true
	default:
		return Update{}, false
	}
}

var _ Transport = (*Telegram)(nil)
