package gateway

import (
	"context"
	"fmt"
	"sync"
)

// MockMessage is one outgoing message the mock recorded.
type MockMessage struct {
	ID      int
	UserID  int64
	Text    string
	Buttons [][]Button
	Edits   int
	Deleted bool
}

// Mock is an in-memory transport for tests. It mirrors the live transports'
// edge semantics: editing a missing message yields ErrNotFound, editing to
// identical content yields ErrNotModified.
type Mock struct {
	mu      sync.Mutex
	nextID  int
	byID    map[int]*MockMessage
	order   []int
	docs    []string
	acks    []string
	updates chan Update

	// FailSend, FailEdit, FailDelete inject generic failures.
	FailSend   error
	FailEdit   error
	FailDelete error
}

func NewMock() *Mock {
	return &Mock{
		byID:    make(map[int]*MockMessage),
		updates: make(chan Update, 64),
	}
}

func (m *Mock) SendMessage(_ context.Context, userID int64, text string, buttons [][]Button) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSend != nil {
		return 0, m.FailSend
	}
	m.nextID++
	msg := &MockMessage{ID: m.nextID, UserID: userID, Text: text, Buttons: buttons}
	m.byID[msg.ID] = msg
	m.order = append(m.order, msg.ID)
	return msg.ID, nil
}

func (m *Mock) EditMessage(_ context.Context, userID int64, messageID int, text string, buttons [][]Button) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailEdit != nil {
		return m.FailEdit
	}
	msg, ok := m.byID[messageID]
	if !ok || msg.Deleted || msg.UserID != userID {
		return ErrNotFound
	}
	if msg.Text == text && buttonsEqual(msg.Buttons, buttons) {
		return ErrNotModified
	}
	msg.Text = text
	msg.Buttons = buttons
	msg.Edits++
	return nil
}

func (m *Mock) DeleteMessage(_ context.Context, userID int64, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailDelete != nil {
		return m.FailDelete
	}
	msg, ok := m.byID[messageID]
	if !ok || msg.Deleted || msg.UserID != userID {
		return ErrNotFound
	}
	msg.Deleted = true
	return nil
}

func (m *Mock) SendDocument(_ context.Context, userID int64, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, fmt.Sprintf("%d:%s", userID, path))
	return nil
}

func (m *Mock) AckButton(_ context.Context, callbackID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acks = append(m.acks, callbackID)
	return nil
}

func (m *Mock) Updates() <-chan Update { return m.updates }

func (m *Mock) Run(ctx context.Context) error {
	<-ctx.Done()
	close(m.updates)
	return ctx.Err()
}

// Push injects an inbound event, for tests.
func (m *Mock) Push(u Update) { m.updates <- u }

// Message returns a copy of the recorded message, if it exists.
func (m *Mock) Message(id int) (MockMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.byID[id]
	if !ok {
		return MockMessage{}, false
	}
	return *msg, true
}

// Live returns the non-deleted messages for a user, in send order.
func (m *Mock) Live(userID int64) []MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []MockMessage
	for _, id := range m.order {
		msg := m.byID[id]
		if msg.UserID == userID && !msg.Deleted {
			out = append(out, *msg)
		}
	}
	return out
}

// Documents returns recorded "userID:path" document sends.
func (m *Mock) Documents() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.docs...)
}

// Forget drops a message from the registry without marking it deleted,
// simulating a message that vanished out from under the bot.
func (m *Mock) Forget(messageID int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, messageID)
}

func buttonsEqual(a, b [][]Button) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}

var _ Transport = (*Mock)(nil)
