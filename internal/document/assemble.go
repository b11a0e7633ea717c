// Package document maps a completed workflow's answers onto the renderer's
// named-field contract. Assembly is pure: missing fields become bracketed
// placeholders, never errors.
package document

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/kirill3224/privacy-sentry/internal/render"
	"github.com/kirill3224/privacy-sentry/internal/session"
)

// Snapshot captures everything generation needs before the session is
// cleared, so a slow or failing render can never resurrect session state.
type Snapshot struct {
	Workflow session.Workflow
	Answers  map[string]string
	Items    []session.ItemRecord
}

// Capture copies the generation inputs out of a session.
func Capture(s *session.Session) Snapshot {
	answers := make(map[string]string, len(s.Answers))
	for k, v := range s.Answers {
		answers[k] = v
	}
	return Snapshot{
		Workflow: s.Workflow,
		Answers:  answers,
		Items:    append([]session.ItemRecord(nil), s.Items...),
	}
}

// Assemble builds the render request for a completed workflow.
func Assemble(snap Snapshot, now time.Time) render.Request {
	switch snap.Workflow {
	case session.WorkflowPolicy:
		return assemblePolicy(snap, now)
	case session.WorkflowAssessment:
		return assembleAssessment(snap, now)
	case session.WorkflowChecklist:
		return assembleChecklist(snap, now)
	default:
		return render.Request{TemplateID: string(snap.Workflow)}
	}
}

func field(answers map[string]string, key, placeholder string) string {
	v := strings.TrimSpace(answers[key])
	if v == "" {
		return placeholder
	}
	return html.EscapeString(v)
}

func assemblePolicy(snap Snapshot, now time.Time) render.Request {
	a := snap.Answers
	return render.Request{
		TemplateID: "policy",
		Fields: map[string]string{
			"project_name":     field(a, "project_name", "[Назва Вашого Проєкту]"),
			"contact":          field(a, "contact", "[Ваш @username або email]"),
			"data_collected":   field(a, "data_collected", "[Дані, які ви збираєте]"),
			"data_storage":     field(a, "data_storage", "[Де ви зберігаєте дані]"),
			"delete_mechanism": field(a, "delete_mechanism", "[Опишіть простий механізм]"),
			"date":             now.Format("02.01.2006"),
		},
	}
}

func assembleAssessment(snap Snapshot, now time.Time) render.Request {
	a := snap.Answers

	var rows []string
	rows = append(rows, fmt.Sprintf("| Назва проєкту: | %s |", field(a, "project_name", "[Не вказано]")))
	rows = append(rows, fmt.Sprintf("| Керівник/Розробник: | %s |", field(a, "team", "[Не вказано]")))
	rows = append(rows, fmt.Sprintf("| Мета: | %s |", field(a, "goal", "[Не вказано]")))

	if len(snap.Items) == 0 {
		rows = append(rows, "| Дані: | [Не вказано] |")
	}
	for i, item := range snap.Items {
		name := html.EscapeString(item.Item)
		var value string
		if item.Needed {
			value = fmt.Sprintf("%s (✅ **Навіщо:** %s)", name, html.EscapeString(item.Justification))
		} else {
			value = fmt.Sprintf("~~%s~~ (❌ **Відмовлено**)", name)
		}
		rows = append(rows, fmt.Sprintf("| Дані (пункт %d): | %s |", i+1, value))
	}

	rows = append(rows, fmt.Sprintf("| Строк Зберігання: | %s |", field(a, "retention_period", "[Не вказано]")))
	rows = append(rows, fmt.Sprintf("| Механізм Видалення: | %s |", field(a, "retention_mechanism", "[Не вказано]")))
	rows = append(rows, fmt.Sprintf("| Місце Зберігання: | %s |", field(a, "storage", "[Не вказано]")))
	rows = append(rows, fmt.Sprintf("| Головний Ризик: | %s |", field(a, "risk", "[Не вказано]")))
	rows = append(rows, fmt.Sprintf("| Мінімізація Ризику: | %s |", field(a, "mitigation", "[Не вказано]")))

	table := "| Питання | Відповідь |\n| :--- | :--- |\n" + strings.Join(rows, "\n")

	return render.Request{
		TemplateID: "dpia",
		Fields: map[string]string{
			"project_name": field(a, "project_name", "[Не вказано]"),
			"date":         now.Format("02.01.2006"),
			"dpia_table":   table,
		},
	}
}

func assembleChecklist(snap Snapshot, now time.Time) render.Request {
	a := snap.Answers

	var sb strings.Builder
	for ci, cat := range ChecklistCategories {
		if ci > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(fmt.Sprintf("### Категорія %d: %s\n\n", ci+1, cat.Title))
		sb.WriteString("| Пункт | Статус | Ваші Нотатки (для себе) |\n| :--- | :--- | :--- |\n")
		var rows []string
		for _, item := range cat.Items {
			rows = append(rows, fmt.Sprintf("| %s | %s | %s |",
				item.Label,
				statusText(a[item.Key+"_status"]),
				noteText(a[item.Key+"_note"]),
			))
		}
		sb.WriteString(strings.Join(rows, "\n"))
	}

	return render.Request{
		TemplateID: "checklist",
		Fields: map[string]string{
			"project_name":      field(a, "project_name", "[Назва Проєкту]"),
			"date":              now.Format("02.01.2006"),
			"checklist_content": sb.String(),
		},
	}
}

func statusText(status string) string {
	switch status {
	case session.ChecklistDone:
		return "Виконано"
	case session.ChecklistNotDone:
		return "Не виконано"
	default:
		return "Не заповнено"
	}
}

func noteText(note string) string {
	if note == "" {
		return "*Не заповнено*"
	}
	if note == session.NoteSkipped {
		return note
	}
	return strings.ReplaceAll(html.EscapeString(note), "\n", "<br>")
}
