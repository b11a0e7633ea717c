package session

import (
	"log"
	"sync"
)

// Workflow identifies which guided interview a user is inside.
type Workflow string

const (
	WorkflowNone       Workflow = ""
	WorkflowPolicy     Workflow = "policy"
	WorkflowAssessment Workflow = "assessment"
	WorkflowChecklist  Workflow = "checklist"
)

// Checklist answer values stored under the <item>_status and <item>_note
// answer keys.
const (
	ChecklistDone    = "done"
	ChecklistNotDone = "not_done"
	NoteSkipped      = "*Пропущено*"
)

// ItemRecord is one entry of the assessment minimization loop: a user-declared
// data item plus the yes/no verdict and its justification.
type ItemRecord struct {
	Item          string
	Needed        bool
	Justification string
}

// Session is the per-user state bag. All session state is ephemeral; nothing
// survives a process restart. Handlers for one user run strictly sequentially,
// so a Session copy may be mutated freely and written back with Put.
type Session struct {
	UserID   int64
	Workflow Workflow
	State    string

	// Answers maps field names to user-supplied text for the active workflow.
	Answers map[string]string

	// Minimization loop state (assessment only).
	DataList  []string
	Items     []ItemRecord
	ItemIndex int

	// AnchorMessageID is the single in-place-edited message; 0 means none.
	AnchorMessageID int
}

// Active reports whether the session is inside a workflow.
func (s *Session) Active() bool {
	return s.Workflow != WorkflowNone
}

// Store holds sessions keyed by user id. It is safe for concurrent use across
// users; per-user access is serialized upstream by the dispatcher.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[int64]*Session)}
}

// Get returns a copy of the user's session, creating an idle one if absent.
func (st *Store) Get(userID int64) *Session {
	st.mu.RLock()
	s, ok := st.sessions[userID]
	if ok {
		c := clone(s)
		st.mu.RUnlock()
		return c
	}
	st.mu.RUnlock()

	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[userID]; ok {
		return clone(s)
	}
	s = &Session{UserID: userID, Answers: map[string]string{}}
	st.sessions[userID] = s
	return clone(s)
}

// Put writes the session back. The state transition lands here before any
// rendering happens, so a crash mid-render retries the render, not the input.
func (st *Store) Put(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.UserID] = clone(s)
}

// Clear resets the user to idle: workflow gone, answers dropped, anchor
// forgotten. Called on workflow start, cancel, completion and fatal error.
func (st *Store) Clear(userID int64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[userID]; !ok {
		return
	}
	log.Printf("session: clearing state for user %d", userID)
	st.sessions[userID] = &Session{UserID: userID, Answers: map[string]string{}}
}

// ActiveCount reports how many users are currently inside a workflow.
func (st *Store) ActiveCount() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	n := 0
	for _, s := range st.sessions {
		if s.Active() {
			n++
		}
	}
	return n
}

// Anchor returns the user's anchor message id, if any.
func (st *Store) Anchor(userID int64) (int, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[userID]
	if !ok || s.AnchorMessageID == 0 {
		return 0, false
	}
	return s.AnchorMessageID, true
}

// SetAnchor records the message the anchor controller edits in place.
func (st *Store) SetAnchor(userID int64, messageID int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[userID]
	if !ok {
		s = &Session{UserID: userID, Answers: map[string]string{}}
		st.sessions[userID] = s
	}
	s.AnchorMessageID = messageID
}

// ClearAnchor drops the recorded anchor without touching workflow state.
func (st *Store) ClearAnchor(userID int64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[userID]; ok {
		s.AnchorMessageID = 0
	}
}

func clone(s *Session) *Session {
	c := *s
	c.Answers = make(map[string]string, len(s.Answers))
	for k, v := range s.Answers {
		c.Answers[k] = v
	}
	c.DataList = append([]string(nil), s.DataList...)
	c.Items = append([]ItemRecord(nil), s.Items...)
	return &c
}
