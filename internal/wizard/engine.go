package wizard

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kirill3224/privacy-sentry/internal/anchor"
	"github.com/kirill3224/privacy-sentry/internal/archive"
	"github.com/kirill3224/privacy-sentry/internal/document"
	"github.com/kirill3224/privacy-sentry/internal/gateway"
	"github.com/kirill3224/privacy-sentry/internal/observability"
	"github.com/kirill3224/privacy-sentry/internal/redact"
	"github.com/kirill3224/privacy-sentry/internal/render"
	"github.com/kirill3224/privacy-sentry/internal/sched"
	"github.com/kirill3224/privacy-sentry/internal/session"
)

// Engine routes inbound events through the step tables. Events for one user
// arrive strictly in order (the dispatcher serializes them), so handlers
// mutate the session copy freely and write it back before rendering.
type Engine struct {
	sessions *session.Store
	anchor   *anchor.Controller
	gw       gateway.Gateway
	renderer render.Renderer

	scheduler  sched.Scheduler
	archive    archive.Store
	metrics    *observability.Metrics
	warningTTL time.Duration
	now        func() time.Time
}

// Options carries the optional collaborators. A nil Scheduler disables the
// warning self-delete (logged, not an error); a nil Archive disables the
// audit trail; a nil Metrics disables instrumentation.
type Options struct {
	Scheduler  sched.Scheduler
	Archive    archive.Store
	Metrics    *observability.Metrics
	WarningTTL time.Duration
	Now        func() time.Time
}

func New(sessions *session.Store, anchorCtl *anchor.Controller, gw gateway.Gateway, renderer render.Renderer, opts Options) *Engine {
	if opts.WarningTTL <= 0 {
		opts.WarningTTL = 5 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		sessions:   sessions,
		anchor:     anchorCtl,
		gw:         gw,
		renderer:   renderer,
		scheduler:  opts.Scheduler,
		archive:    opts.Archive,
		metrics:    opts.Metrics,
		warningTTL: opts.WarningTTL,
		now:        opts.Now,
	}
}

// HandleUpdate processes one inbound event to completion.
func (e *Engine) HandleUpdate(ctx context.Context, u gateway.Update) {
	switch u.Kind {
	case gateway.EventButton:
		e.handleButton(ctx, u)
	case gateway.EventText:
		e.handleText(ctx, u)
	}
}

func (e *Engine) handleButton(ctx context.Context, u gateway.Update) {
	if u.CallbackID != "" {
		if err := e.gw.AckButton(ctx, u.CallbackID); err != nil {
			log.Printf("wizard: turn %s: ack button: %v", u.TurnID, err)
		}
	}

	switch u.Data {
	case cbStartMenu, cbStartMenuPostGen:
		e.menuReturn(ctx, u)
	case cbShowHelp:
		e.presentInline(ctx, u, textHelp)
	case cbShowPrivacy:
		e.presentInline(ctx, u, textPrivacy)
	case cbStartPolicy:
		e.startWorkflow(ctx, u, session.WorkflowPolicy)
	case cbStartAssessment:
		e.startWorkflow(ctx, u, session.WorkflowAssessment)
	case cbStartChecklist:
		e.startWorkflow(ctx, u, session.WorkflowChecklist)
	case cbStartChecklistUps:
		e.startWorkflow(ctx, u, session.WorkflowChecklist)
	case cbCancelFromBlock:
		e.deleteQuiet(ctx, u.UserID, u.MessageID)
		e.cancel(ctx, u.UserID)
	default:
		e.stepInput(ctx, u)
	}
}

func (e *Engine) handleText(ctx context.Context, u gateway.Update) {
	text := strings.TrimSpace(u.Text)
	if strings.HasPrefix(text, "/") {
		switch cmd, _, _ := strings.Cut(text, " "); cmd {
		case "/start":
			log.Printf("wizard: turn %s: user %d requested the menu", u.TurnID, u.UserID)
			e.cancelToMenu(ctx, u.UserID)
		case "/cancel":
			e.cancel(ctx, u.UserID)
		case "/help":
			e.sendQuiet(ctx, u.UserID, textHelp, nil)
		case "/privacy":
			e.sendQuiet(ctx, u.UserID, textPrivacy, nil)
		default:
			log.Printf("wizard: turn %s: unknown command %q from user %d", u.TurnID, cmd, u.UserID)
		}
		return
	}
	e.stepInput(ctx, u)
}

// stepInput feeds an in-workflow answer into the current step.
func (e *Engine) stepInput(ctx context.Context, u gateway.Update) {
	s := e.sessions.Get(u.UserID)
	if !s.Active() {
		log.Printf("wizard: turn %s: ignoring %s from idle user %d", u.TurnID, u.Kind, u.UserID)
		return
	}

	table, ok := tables[s.Workflow]
	if !ok {
		e.lostState(ctx, u, s)
		return
	}
	st, ok := table.Lookup(s.State)
	if !ok {
		e.lostState(ctx, u, s)
		return
	}

	var input string
	switch u.Kind {
	case gateway.EventText:
		if st.Accept == InputChoice {
			// a typed answer to a button question: discard it
			e.deleteQuiet(ctx, u.UserID, u.MessageID)
			return
		}
		input = u.Text
		e.deleteQuiet(ctx, u.UserID, u.MessageID)
		log.Printf("wizard: turn %s: user %d answered %q at %s",
			u.TurnID, u.UserID, redact.Preview(u.Text, 48), s.State)
	case gateway.EventButton:
		if st.Accept == InputText && !st.acceptsChoice(u.Data) {
			// a stale or doubled button from an earlier render; the
			// payload must never be stored as the typed answer
			return
		}
		input = u.Data
	}

	e.enter(ctx, s, table, st.apply(s, input))
}

// enter persists the new state, then renders its prompt. Persist-first keeps
// the session consistent if the render fails mid-way.
func (e *Engine) enter(ctx context.Context, s *session.Session, table Table, id string) {
	if id == StepGenerate {
		e.generate(ctx, s)
		return
	}

	st, ok := table.Lookup(id)
	if !ok {
		log.Printf("wizard: user %d routed to unknown step %q in %q, resetting", s.UserID, id, s.Workflow)
		e.cancel(ctx, s.UserID)
		return
	}

	s.State = id
	e.sessions.Put(s)

	p := st.Prompt(s)
	if err := e.anchor.Present(ctx, s.UserID, p.Text, p.Buttons, false); err != nil {
		e.countGatewayError("edit", "failed")
	}
}

// startWorkflow begins a fresh interview, unless the exclusivity rule blocks
// it: a user with an active workflow gets a self-deleting warning and their
// current state stays untouched.
func (e *Engine) startWorkflow(ctx context.Context, u gateway.Update, kind session.Workflow) {
	s := e.sessions.Get(u.UserID)
	if s.Active() {
		log.Printf("wizard: turn %s: user %d tried to start %q during %q", u.TurnID, u.UserID, kind, s.Workflow)
		e.countEvent(kind, "blocked")
		e.warnBusy(ctx, u.UserID)
		return
	}

	// the menu (or reminder) message hosted the start button; drop it so
	// the first question becomes the only live message
	e.deleteQuiet(ctx, u.UserID, u.MessageID)
	e.sessions.Clear(u.UserID)

	s = e.sessions.Get(u.UserID)
	s.Workflow = kind

	log.Printf("wizard: turn %s: user %d started %q", u.TurnID, u.UserID, kind)
	e.countEvent(kind, "started")

	table := tables[kind]
	e.enter(ctx, s, table, table.Entry)
	e.setActiveGauge()
}

// warnBusy shows the exclusivity warning and schedules its removal. Without
// a scheduler the warning simply stays until the user acts on it.
func (e *Engine) warnBusy(ctx context.Context, userID int64) {
	warnID, err := e.gw.SendMessage(ctx, userID, textBlockWarning, blockerKeyboard())
	if err != nil {
		log.Printf("wizard: warning for user %d failed: %v", userID, err)
		e.countGatewayError("send", "failed")
		return
	}

	if e.scheduler == nil {
		log.Printf("wizard: no scheduler, warning %d for user %d will not self-delete", warnID, userID)
		return
	}
	e.scheduler.After(e.warningTTL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.gw.DeleteMessage(ctx, userID, warnID); err != nil && !errors.Is(err, gateway.ErrNotFound) {
			log.Printf("wizard: self-delete of warning %d for user %d: %v", warnID, userID, err)
		}
	})
}

// cancel clears the session and returns the user to the menu. Safe to call
// from any state, including idle.
func (e *Engine) cancel(ctx context.Context, userID int64) {
	s := e.sessions.Get(userID)
	if s.Active() {
		log.Printf("wizard: user %d cancelled %q at %s", userID, s.Workflow, s.State)
		e.countEvent(s.Workflow, "cancelled")
	}
	e.cancelToMenu(ctx, userID)
}

func (e *Engine) cancelToMenu(ctx context.Context, userID int64) {
	e.anchor.Dismiss(ctx, userID)
	e.sessions.Clear(userID)
	e.setActiveGauge()
	e.ShowMenu(ctx, userID)
}

// menuReturn handles the "back to menu" buttons: drop the hosting message,
// reset, show a fresh menu.
func (e *Engine) menuReturn(ctx context.Context, u gateway.Update) {
	if id, ok := e.sessions.Anchor(u.UserID); ok && id == u.MessageID {
		e.anchor.Dismiss(ctx, u.UserID)
	} else {
		e.deleteQuiet(ctx, u.UserID, u.MessageID)
	}
	e.sessions.Clear(u.UserID)
	e.setActiveGauge()
	e.ShowMenu(ctx, u.UserID)
}

// ShowMenu renders the idle/menu view straight through the gateway, so any
// error or cancel path can call it without synthesizing an inbound event.
// The menu is deliberately not an anchor: an idle session tracks no message.
func (e *Engine) ShowMenu(ctx context.Context, userID int64) {
	e.sendQuiet(ctx, userID, textWelcome, mainMenuKeyboard())
}

// presentInline swaps a secondary view (help, privacy) into the message that
// hosted the pressed button.
func (e *Engine) presentInline(ctx context.Context, u gateway.Update, text string) {
	err := e.gw.EditMessage(ctx, u.UserID, u.MessageID, text, backToMenuKeyboard())
	switch {
	case err == nil, errors.Is(err, gateway.ErrNotModified):
	case errors.Is(err, gateway.ErrNotFound):
		e.sendQuiet(ctx, u.UserID, text, backToMenuKeyboard())
	default:
		log.Printf("wizard: turn %s: inline view for user %d: %v", u.TurnID, u.UserID, err)
		e.countGatewayError("edit", "failed")
	}
}

// lostState handles an event for a session whose step no longer resolves:
// equivalent to cancel, with a notice to the user.
func (e *Engine) lostState(ctx context.Context, u gateway.Update, s *session.Session) {
	log.Printf("wizard: turn %s: user %d in unrecoverable state %q/%q, resetting", u.TurnID, u.UserID, s.Workflow, s.State)
	e.sendQuiet(ctx, u.UserID, textLostState, nil)
	e.cancelToMenu(ctx, u.UserID)
}

// generate runs the workflow's terminal sequence: dismiss the anchor, show a
// progress note, snapshot the answers, clear the session, then render and
// deliver. The clear happens before rendering so a failure can never leave
// completed answers behind.
func (e *Engine) generate(ctx context.Context, s *session.Session) {
	userID := s.UserID
	workflow := s.Workflow
	snap := document.Capture(s)

	log.Printf("wizard: user %d completed %q, generating document", userID, workflow)

	e.anchor.Dismiss(ctx, userID)
	progressID, err := e.gw.SendMessage(ctx, userID, textGenerating, nil)
	if err != nil {
		log.Printf("wizard: progress note for user %d: %v", userID, err)
	}
	if progressID != 0 {
		defer e.deleteQuiet(ctx, userID, progressID)
	}

	e.sessions.Clear(userID)
	e.setActiveGauge()

	req := document.Assemble(snap, e.now())
	start := time.Now()
	path, err := e.renderer.Render(ctx, req)
	if e.metrics != nil {
		e.metrics.ObserveRenderLatency(time.Since(start))
	}
	if err != nil {
		log.Printf("wizard: render for user %d failed: %v", userID, err)
		e.countEvent(workflow, "render_failed")
		e.sendQuiet(ctx, userID, textRenderFailed, nil)
		e.ShowMenu(ctx, userID)
		return
	}

	if err := e.gw.SendDocument(ctx, userID, path); err != nil {
		log.Printf("wizard: document delivery for user %d failed: %v", userID, err)
		e.countGatewayError("send_document", "failed")
		removeQuiet(path)
		e.sendQuiet(ctx, userID, textRenderFailed, nil)
		e.ShowMenu(ctx, userID)
		return
	}
	removeQuiet(path)

	e.countEvent(workflow, "generated")
	if e.metrics != nil {
		e.metrics.DocumentsGenerated.WithLabelValues(string(workflow)).Inc()
	}
	if e.archive != nil {
		rec := archive.DocumentRecord{Workflow: string(workflow), FileName: filepath.Base(path)}
		if err := e.archive.Record(ctx, rec); err != nil {
			log.Printf("wizard: archive record for user %d: %v", userID, err)
		}
	}

	switch workflow {
	case session.WorkflowPolicy:
		e.sendQuiet(ctx, userID, textPostPolicyUpsell, policyUpsellKeyboard())
	default:
		e.sendQuiet(ctx, userID, textPostGeneration, postActionKeyboard())
	}
}

func (e *Engine) deleteQuiet(ctx context.Context, userID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if err := e.gw.DeleteMessage(ctx, userID, messageID); err != nil && !errors.Is(err, gateway.ErrNotFound) {
		log.Printf("wizard: delete message %d for user %d: %v", messageID, userID, err)
		e.countGatewayError("delete", "failed")
	}
}

func (e *Engine) sendQuiet(ctx context.Context, userID int64, text string, buttons [][]gateway.Button) {
	if _, err := e.gw.SendMessage(ctx, userID, text, buttons); err != nil {
		log.Printf("wizard: send to user %d: %v", userID, err)
		e.countGatewayError("send", "failed")
	}
}

func removeQuiet(path string) {
	if err := os.Remove(path); err != nil {
		log.Printf("wizard: remove temp file %s: %v", path, err)
	}
}

func (e *Engine) countEvent(workflow session.Workflow, event string) {
	if e.metrics != nil {
		e.metrics.WorkflowEvents.WithLabelValues(string(workflow), event).Inc()
	}
}

func (e *Engine) countGatewayError(op, class string) {
	if e.metrics != nil {
		e.metrics.GatewayErrors.WithLabelValues(op, class).Inc()
	}
}

func (e *Engine) setActiveGauge() {
	if e.metrics != nil {
		e.metrics.ActiveWorkflows.Set(float64(e.sessions.ActiveCount()))
	}
}
