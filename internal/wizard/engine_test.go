package wizard

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/kirill3224/privacy-sentry/internal/anchor"
	"github.com/kirill3224/privacy-sentry/internal/gateway"
	"github.com/kirill3224/privacy-sentry/internal/render"
	"github.com/kirill3224/privacy-sentry/internal/session"
)

// fakeScheduler records deferred tasks so tests fire them on demand.
type fakeScheduler struct {
	mu     sync.Mutex
	delays []time.Duration
	fns    []func()
}

func (f *fakeScheduler) After(d time.Duration, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delays = append(f.delays, d)
	f.fns = append(f.fns, fn)
}

func (f *fakeScheduler) fire() {
	f.mu.Lock()
	fns := f.fns
	f.fns = nil
	f.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (f *fakeScheduler) pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fns)
}

type fixture struct {
	store      *session.Store
	gw         *gateway.Mock
	rnd        *render.Mock
	sch        *fakeScheduler
	eng        *Engine
	nextTextID int
}

func newFixture() *fixture {
	store := session.NewStore()
	gw := gateway.NewMock()
	rnd := &render.Mock{}
	sch := &fakeScheduler{}
	eng := New(store, anchor.New(gw, store), gw, rnd, Options{
		Scheduler: sch,
		Now:       func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) },
	})
	return &fixture{store: store, gw: gw, rnd: rnd, sch: sch, eng: eng, nextTextID: 100000}
}

// text delivers a free-text message from the user.
func (f *fixture) text(userID int64, text string) {
	f.nextTextID++
	f.eng.HandleUpdate(context.Background(), gateway.Update{
		Kind:      gateway.EventText,
		UserID:    userID,
		MessageID: f.nextTextID,
		Text:      text,
	})
}

// press delivers a button press attached to messageID.
func (f *fixture) press(userID int64, messageID int, data string) {
	f.eng.HandleUpdate(context.Background(), gateway.Update{
		Kind:       gateway.EventButton,
		UserID:     userID,
		MessageID:  messageID,
		Data:       data,
		CallbackID: "cb",
	})
}

// lastLive returns the most recent live message for the user.
func (f *fixture) lastLive(t *testing.T, userID int64) gateway.MockMessage {
	t.Helper()
	live := f.gw.Live(userID)
	if len(live) == 0 {
		t.Fatalf("no live messages for user %d", userID)
	}
	return live[len(live)-1]
}

// startPolicy walks user through menu -> policy question 1.
func (f *fixture) startPolicy(t *testing.T, userID int64) {
	t.Helper()
	f.text(userID, "/start")
	f.press(userID, f.lastLive(t, userID).ID, cbStartPolicy)
}

func TestStartCommandShowsMenu(t *testing.T) {
	f := newFixture()
	f.text(7, "/start")

	menu := f.lastLive(t, 7)
	if !strings.Contains(menu.Text, "Privacy Sentry") {
		t.Fatalf("menu text = %q", menu.Text)
	}
	if len(menu.Buttons) == 0 {
		t.Fatalf("menu should carry the option keyboard")
	}
	if _, ok := f.store.Anchor(7); ok {
		t.Fatalf("idle menu must not be tracked as an anchor")
	}
}

func TestStartPolicyReplacesMenuWithFirstQuestion(t *testing.T) {
	f := newFixture()
	f.startPolicy(t, 7)

	s := f.store.Get(7)
	if s.Workflow != session.WorkflowPolicy || s.State != "policy/q_project_name" {
		t.Fatalf("session = %q/%q", s.Workflow, s.State)
	}

	live := f.gw.Live(7)
	if len(live) != 1 {
		t.Fatalf("want the question as the only live message, got %d", len(live))
	}
	if id, ok := f.store.Anchor(7); !ok || id != live[0].ID {
		t.Fatalf("anchor = %d (ok=%v), want %d", id, ok, live[0].ID)
	}
}

func TestLongCyrillicAnswerKeepsPromptValid(t *testing.T) {
	f := newFixture()
	f.startPolicy(t, 7)

	// the running summary truncates this answer; the cut must not split
	// a multibyte character, or the transport rejects the edit
	f.text(7, strings.Repeat("ф", 80))

	prompt := f.lastLive(t, 7)
	if !utf8.ValidString(prompt.Text) {
		t.Fatalf("prompt is not valid UTF-8: %q", prompt.Text)
	}
	if !strings.Contains(prompt.Text, "…") {
		t.Fatalf("long answer should be truncated in the summary: %q", prompt.Text)
	}
}

func TestAnswersEditTheAnchorInPlace(t *testing.T) {
	f := newFixture()
	f.startPolicy(t, 7)
	anchorID, _ := f.store.Anchor(7)

	f.text(7, "Zorya")
	f.text(7, "@zorya_dev")

	if id, _ := f.store.Anchor(7); id != anchorID {
		t.Fatalf("anchor moved from %d to %d", anchorID, id)
	}
	if live := f.gw.Live(7); len(live) != 1 {
		t.Fatalf("want a single live message, got %d", len(live))
	}
	msg, _ := f.gw.Message(anchorID)
	if msg.Edits != 2 {
		t.Fatalf("anchor edits = %d, want 2", msg.Edits)
	}
	s := f.store.Get(7)
	if s.Answers["project_name"] != "Zorya" || s.Answers["contact"] != "@zorya_dev" {
		t.Fatalf("answers = %v", s.Answers)
	}
}

func TestPolicyCompletionGeneratesDocument(t *testing.T) {
	f := newFixture()
	f.startPolicy(t, 7)

	for _, answer := range []string{"Zorya", "@zorya_dev", "email", "Postgres", "/delete"} {
		f.text(7, answer)
	}

	if len(f.rnd.Requests) != 1 {
		t.Fatalf("render requests = %d, want 1", len(f.rnd.Requests))
	}
	req := f.rnd.Requests[0]
	if req.TemplateID != "policy" || req.Fields["project_name"] != "Zorya" {
		t.Fatalf("request = %+v", req)
	}

	if docs := f.gw.Documents(); len(docs) != 1 {
		t.Fatalf("documents sent = %d, want 1", len(docs))
	}

	s := f.store.Get(7)
	if s.Active() || len(s.Answers) != 0 {
		t.Fatalf("session not cleared after generation: %+v", s)
	}
	if _, ok := f.store.Anchor(7); ok {
		t.Fatalf("anchor should be gone after generation")
	}

	// policy completion upsells the checklist
	last := f.lastLive(t, 7)
	if !strings.Contains(last.Text, "Крок 1") {
		t.Fatalf("upsell text = %q", last.Text)
	}
	found := false
	for _, row := range last.Buttons {
		for _, b := range row {
			if b.Data == cbStartChecklistUps {
				found = true
			}
		}
	}
	if !found {
		t.Fatalf("upsell keyboard missing checklist button: %v", last.Buttons)
	}
}

func TestCancelClearsEverything(t *testing.T) {
	f := newFixture()
	f.startPolicy(t, 7)
	f.text(7, "Zorya")

	f.text(7, "/cancel")

	s := f.store.Get(7)
	if s.Workflow != session.WorkflowNone || s.State != "" || len(s.Answers) != 0 {
		t.Fatalf("cancel left state behind: %+v", s)
	}
	if _, ok := f.store.Anchor(7); ok {
		t.Fatalf("cancel must drop the anchor")
	}
	if !strings.Contains(f.lastLive(t, 7).Text, "Оберіть опцію") {
		t.Fatalf("cancel should land on the menu")
	}
}

func TestExclusivityGuardBlocksSecondWorkflow(t *testing.T) {
	f := newFixture()
	f.startPolicy(t, 7)
	f.text(7, "Zorya")
	before := f.store.Get(7)

	anchorID, _ := f.store.Anchor(7)
	f.press(7, anchorID, cbStartChecklist)

	after := f.store.Get(7)
	if after.Workflow != before.Workflow || after.State != before.State {
		t.Fatalf("guard mutated the session: %q/%q -> %q/%q", before.Workflow, before.State, after.Workflow, after.State)
	}
	if after.Answers["project_name"] != "Zorya" {
		t.Fatalf("guard mutated answers: %v", after.Answers)
	}

	warning := f.lastLive(t, 7)
	if !strings.Contains(warning.Text, "активний аудит") {
		t.Fatalf("warning text = %q", warning.Text)
	}
	if f.sch.pending() != 1 {
		t.Fatalf("pending self-deletes = %d, want 1", f.sch.pending())
	}
	f.sch.fire()
	if msg, _ := f.gw.Message(warning.ID); !msg.Deleted {
		t.Fatalf("warning should self-delete when the timer fires")
	}
}

func TestWarningSelfDeleteDelay(t *testing.T) {
	f := newFixture()
	f.startPolicy(t, 7)
	anchorID, _ := f.store.Anchor(7)
	f.press(7, anchorID, cbStartAssessment)

	f.sch.mu.Lock()
	defer f.sch.mu.Unlock()
	if len(f.sch.delays) != 1 || f.sch.delays[0] != 5*time.Second {
		t.Fatalf("delays = %v, want one 5s entry", f.sch.delays)
	}
}

func TestCancelFromBlockWarning(t *testing.T) {
	f := newFixture()
	f.startPolicy(t, 7)
	anchorID, _ := f.store.Anchor(7)

	f.press(7, anchorID, cbStartChecklist)
	warning := f.lastLive(t, 7)

	f.press(7, warning.ID, cbCancelFromBlock)

	if msg, _ := f.gw.Message(warning.ID); !msg.Deleted {
		t.Fatalf("warning should be deleted by its cancel button")
	}
	s := f.store.Get(7)
	if s.Workflow != session.WorkflowNone {
		t.Fatalf("cancel-from-block left workflow %q", s.Workflow)
	}
	if !strings.Contains(f.lastLive(t, 7).Text, "Оберіть опцію") {
		t.Fatalf("cancel-from-block should land on the menu")
	}
}

func TestGuardWithoutSchedulerKeepsWarning(t *testing.T) {
	f := newFixture()
	store := f.store
	gw := f.gw
	eng := New(store, anchor.New(gw, store), gw, f.rnd, Options{})

	f.startPolicy(t, 7)
	anchorID, _ := store.Anchor(7)
	eng.HandleUpdate(context.Background(), gateway.Update{
		Kind: gateway.EventButton, UserID: 7, MessageID: anchorID, Data: cbStartChecklist, CallbackID: "cb",
	})

	warning := f.lastLive(t, 7)
	if !strings.Contains(warning.Text, "активний аудит") {
		t.Fatalf("warning text = %q", warning.Text)
	}
}

func TestRenderFailureReturnsToMenu(t *testing.T) {
	f := newFixture()
	f.rnd.Err = render.ErrRenderFailed
	f.startPolicy(t, 7)

	for _, answer := range []string{"Zorya", "@zorya_dev", "email", "Postgres", "/delete"} {
		f.text(7, answer)
	}

	if docs := f.gw.Documents(); len(docs) != 0 {
		t.Fatalf("no document should be sent on render failure, got %v", docs)
	}
	s := f.store.Get(7)
	if s.Active() || len(s.Answers) != 0 {
		t.Fatalf("session should be cleared even when rendering fails: %+v", s)
	}

	live := f.gw.Live(7)
	var sawFailure bool
	for _, msg := range live {
		if strings.Contains(msg.Text, "сталася помилка") {
			sawFailure = true
		}
	}
	if !sawFailure {
		t.Fatalf("failure notice missing, live = %v", live)
	}
	if !strings.Contains(f.lastLive(t, 7).Text, "Оберіть опцію") {
		t.Fatalf("render failure should land on the menu")
	}
}

func TestLostStateResetsToMenu(t *testing.T) {
	f := newFixture()
	s := f.store.Get(7)
	s.Workflow = session.WorkflowPolicy
	s.State = "policy/no_such_step"
	f.store.Put(s)

	f.text(7, "hello?")

	if f.store.Get(7).Active() {
		t.Fatalf("lost state should reset the session")
	}
	if !strings.Contains(f.lastLive(t, 7).Text, "Оберіть опцію") {
		t.Fatalf("lost state should land on the menu")
	}
}

func TestHelpInlineEditsHostingMessage(t *testing.T) {
	f := newFixture()
	f.text(7, "/start")
	menu := f.lastLive(t, 7)

	f.press(7, menu.ID, cbShowHelp)

	edited, _ := f.gw.Message(menu.ID)
	if !strings.Contains(edited.Text, "Що я вмію") {
		t.Fatalf("help should edit the menu message, got %q", edited.Text)
	}

	f.press(7, menu.ID, cbStartMenu)
	if msg, _ := f.gw.Message(menu.ID); !msg.Deleted {
		t.Fatalf("back-to-menu should drop the help message")
	}
	if !strings.Contains(f.lastLive(t, 7).Text, "Оберіть опцію") {
		t.Fatalf("back-to-menu should show a fresh menu")
	}
}

func TestHelpAndPrivacyCommandsSendStandalone(t *testing.T) {
	f := newFixture()
	f.text(7, "/help")
	if !strings.Contains(f.lastLive(t, 7).Text, "Що я вмію") {
		t.Fatalf("help command output = %q", f.lastLive(t, 7).Text)
	}
	f.text(7, "/privacy")
	if !strings.Contains(f.lastLive(t, 7).Text, "оперативній памʼяті") {
		t.Fatalf("privacy command output = %q", f.lastLive(t, 7).Text)
	}
}

func TestIdleTextIsIgnored(t *testing.T) {
	f := newFixture()
	f.text(7, "hello there")
	if live := f.gw.Live(7); len(live) != 0 {
		t.Fatalf("idle text should produce no replies, got %v", live)
	}
}

func TestUsersAreIndependent(t *testing.T) {
	f := newFixture()
	f.startPolicy(t, 1)
	f.text(1, "Alpha")
	f.startPolicy(t, 2)
	f.text(2, "Beta")

	if got := f.store.Get(1).Answers["project_name"]; got != "Alpha" {
		t.Fatalf("user 1 answer = %q", got)
	}
	if got := f.store.Get(2).Answers["project_name"]; got != "Beta" {
		t.Fatalf("user 2 answer = %q", got)
	}
}
