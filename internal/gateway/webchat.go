package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/gorilla/websocket"
)

// Envelope is the webchat wire format, both directions.
type Envelope struct {
	Type      string     `json:"type"`
	MessageID int        `json:"message_id,omitempty"`
	Text      string     `json:"text,omitempty"`
	Buttons   [][]Button `json:"buttons,omitempty"`
	Data      string     `json:"data,omitempty"`
	Name      string     `json:"name,omitempty"`
}

// Outbound envelope types.
const (
	TypeMessage  = "message"
	TypeEdit     = "edit"
	TypeDelete   = "delete"
	TypeDocument = "document"
)

// Inbound envelope types.
const (
	TypeClientText   = "text"
	TypeClientButton = "button"
)

type webchatConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *webchatConn) send(env Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(env)
}

// Hub is a local browser transport: one websocket per user, message ids
// assigned here. It keeps a registry of live message content so edits get
// the same not-found / not-modified classification Telegram gives.
type Hub struct {
	mu      sync.Mutex
	conns   map[int64]*webchatConn
	live    map[int64]map[int]string
	nextID  int
	updates chan Update
}

func NewHub() *Hub {
	return &Hub{
		conns:   make(map[int64]*webchatConn),
		live:    make(map[int64]map[int]string),
		updates: make(chan Update, 64),
	}
}

// Attach registers a websocket for the user and blocks reading inbound
// envelopes until the connection drops. A newer connection replaces an older
// one.
func (h *Hub) Attach(ctx context.Context, userID int64, conn *websocket.Conn) {
	wc := &webchatConn{conn: conn}
	h.mu.Lock()
	if old, ok := h.conns[userID]; ok {
		_ = old.conn.Close()
	}
	h.conns[userID] = wc
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		if h.conns[userID] == wc {
			delete(h.conns, userID)
		}
		h.mu.Unlock()
	}()

	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		ev, ok := normalizeEnvelope(userID, env)
		if !ok {
			continue
		}
		select {
		case h.updates <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func normalizeEnvelope(userID int64, env Envelope) (Update, bool) {
	switch env.Type {
	case TypeClientText:
		if env.Text == "" {
			return Update{}, false
		}
		return Update{Kind: EventText, UserID: userID, MessageID: env.MessageID, Text: env.Text}, true
	case TypeClientButton:
		if env.Data == "" {
			return Update{}, false
		}
		return Update{Kind: EventButton, UserID: userID, MessageID: env.MessageID, Data: env.Data}, true
	default:
		return Update{}, false
	}
}

func (h *Hub) connFor(userID int64) (*webchatConn, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	wc, ok := h.conns[userID]
	if !ok {
		return nil, fmt.Errorf("webchat: user %d not connected", userID)
	}
	return wc, nil
}

func contentKey(text string, buttons [][]Button) string {
	b, _ := json.Marshal(struct {
		T string     `json:"t"`
		B [][]Button `json:"b"`
	}{text, buttons})
	return string(b)
}

func (h *Hub) SendMessage(_ context.Context, userID int64, text string, buttons [][]Button) (int, error) {
	wc, err := h.connFor(userID)
	if err != nil {
		return 0, err
	}

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.live[userID] == nil {
		h.live[userID] = make(map[int]string)
	}
	h.live[userID][id] = contentKey(text, buttons)
	h.mu.Unlock()

	if err := wc.send(Envelope{Type: TypeMessage, MessageID: id, Text: text, Buttons: buttons}); err != nil {
		return 0, fmt.Errorf("webchat: send: %w", err)
	}
	return id, nil
}

func (h *Hub) EditMessage(_ context.Context, userID int64, messageID int, text string, buttons [][]Button) error {
	h.mu.Lock()
	prev, ok := h.live[userID][messageID]
	key := contentKey(text, buttons)
	if ok && prev == key {
		h.mu.Unlock()
		return ErrNotModified
	}
	if ok {
		h.live[userID][messageID] = key
	}
	h.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	wc, err := h.connFor(userID)
	if err != nil {
		return err
	}
	if err := wc.send(Envelope{Type: TypeEdit, MessageID: messageID, Text: text, Buttons: buttons}); err != nil {
		return fmt.Errorf("webchat: edit: %w", err)
	}
	return nil
}

func (h *Hub) DeleteMessage(_ context.Context, userID int64, messageID int) error {
	h.mu.Lock()
	_, ok := h.live[userID][messageID]
	if ok {
		delete(h.live[userID], messageID)
	}
	h.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	wc, err := h.connFor(userID)
	if err != nil {
		return err
	}
	if err := wc.send(Envelope{Type: TypeDelete, MessageID: messageID}); err != nil {
		return fmt.Errorf("webchat: delete: %w", err)
	}
	return nil
}

func (h *Hub) SendDocument(_ context.Context, userID int64, path string) error {
	wc, err := h.connFor(userID)
	if err != nil {
		return err
	}
	// Webchat only announces the artifact; it lives on the server's disk.
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("webchat: read document: %w", err)
	}
	return wc.send(Envelope{Type: TypeDocument, Name: filepath.Base(path), Text: string(content)})
}

func (h *Hub) AckButton(context.Context, string) error { return nil }

func (h *Hub) Updates() <-chan Update { return h.updates }

func (h *Hub) Run(ctx context.Context) error {
	<-ctx.Done()
	h.mu.Lock()
	for id, wc := range h.conns {
		_ = wc.conn.Close()
		delete(h.conns, id)
	}
	h.mu.Unlock()
	close(h.updates)
	log.Printf("gateway: webchat hub stopped")
	return ctx.Err()
}

var _ Transport = (*Hub)(nil)
