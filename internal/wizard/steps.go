// Package wizard is the conversation state machine: three guided interviews
// driven by declarative step tables, an exclusivity rule that keeps one
// interview active per user, and the document-generation boundary.
package wizard

import (
	"github.com/kirill3224/privacy-sentry/internal/gateway"
	"github.com/kirill3224/privacy-sentry/internal/session"
)

// Input is the kind of event a step consumes.
type Input int

const (
	// InputText: a free-text answer. The user's raw message is deleted
	// after consumption to keep the chat clean.
	InputText Input = iota
	// InputChoice: an inline-button press, acknowledged before re-render.
	InputChoice
)

// StepGenerate is the sentinel successor that hands the session over to
// document assembly.
const StepGenerate = "generate"

// Prompt is what a step shows the user.
type Prompt struct {
	Text    string
	Buttons [][]gateway.Button
}

// Step is one interview question. Linear free-text steps declare a Field and
// a Next id; loop and branch points override both with an Advance function
// that mutates the session and names the successor. Prompt renders the
// question from the session so re-renders after a crash are reproducible.
type Step struct {
	ID     string
	Accept Input

	// Field names the answer key a plain free-text step stores into.
	Field string
	// Next is the successor for linear steps.
	Next string
	// Advance, when set, consumes the input instead of Field/Next.
	Advance func(s *session.Session, input string) string
	// Choices lists the button payloads a free-text step also accepts,
	// such as the skip button on note questions. Any other press at a
	// text step is a stale or doubled button and is ignored.
	Choices []string

	Prompt func(s *session.Session) Prompt
}

// acceptsChoice reports whether a free-text step recognizes a button
// payload.
func (st Step) acceptsChoice(data string) bool {
	for _, c := range st.Choices {
		if c == data {
			return true
		}
	}
	return false
}

// apply consumes input and returns the successor step id.
func (st Step) apply(s *session.Session, input string) string {
	if st.Advance != nil {
		return st.Advance(s, input)
	}
	s.Answers[st.Field] = input
	return st.Next
}

// Table is one workflow's full step list.
type Table struct {
	Workflow session.Workflow
	Entry    string
	steps    map[string]Step
}

func newTable(workflow session.Workflow, entry string, steps ...Step) Table {
	m := make(map[string]Step, len(steps))
	for _, st := range steps {
		m[st.ID] = st
	}
	return Table{Workflow: workflow, Entry: entry, steps: m}
}

// Lookup resolves a step id; ok is false for unknown or lost states.
func (t Table) Lookup(id string) (Step, bool) {
	st, ok := t.steps[id]
	return st, ok
}

// tables indexes the three workflow definitions by kind.
var tables = map[session.Workflow]Table{
	session.WorkflowPolicy:     policyTable,
	session.WorkflowAssessment: assessmentTable,
	session.WorkflowChecklist:  checklistTable,
}
