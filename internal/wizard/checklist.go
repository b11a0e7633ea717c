package wizard

import (
	"fmt"

	"github.com/kirill3224/privacy-sentry/internal/document"
	"github.com/kirill3224/privacy-sentry/internal/session"
)

// checklistTable is built from the item catalog: a project-name question,
// then a status/note pair per item, walked category by category.
var checklistTable = buildChecklistTable()

func buildChecklistTable() Table {
	n := document.ChecklistItemCount()
	first, _, _ := document.ChecklistItemAt(0)

	steps := []Step{{
		ID:     "checklist/q_project_name",
		Accept: InputText,
		Field:  "project_name",
		Next:   "checklist/" + first.Key + "_status",
		Prompt: func(s *session.Session) Prompt {
			return Prompt{Text: "✅ <b>Чек-ліст Безпеки</b>\n\nЯк називається ваш проєкт?"}
		},
	}}

	for i := 0; i < n; i++ {
		item, catIndex, _ := document.ChecklistItemAt(i)
		category := document.ChecklistCategories[catIndex]
		statusID := "checklist/" + item.Key + "_status"
		noteID := "checklist/" + item.Key + "_note"

		noteNext := StepGenerate
		if next, _, ok := document.ChecklistItemAt(i + 1); ok {
			noteNext = "checklist/" + next.Key + "_status"
		}

		statusKey := item.Key + "_status"
		noteKey := item.Key + "_note"
		position := i + 1

		steps = append(steps,
			Step{
				ID:     statusID,
				Accept: InputChoice,
				Advance: func(s *session.Session, input string) string {
					switch input {
					case cbChecklistDone:
						s.Answers[statusKey] = session.ChecklistDone
					case cbChecklistNotDone:
						s.Answers[statusKey] = session.ChecklistNotDone
					default:
						return s.State
					}
					return noteID
				},
				Prompt: func(s *session.Session) Prompt {
					text := fmt.Sprintf("✅ <b>Чек-ліст Безпеки</b>\n\n%s\n\n"+
						"<b>Питання %d/%d (Категорія %d: %s)</b>\n<b>%s</b>\n%s",
						checklistSummary(s.Answers),
						position, n, catIndex+1, category.Title,
						item.Label, item.Question)
					return Prompt{Text: text, Buttons: checklistStatusKeyboard()}
				},
			},
			Step{
				ID:      noteID,
				Accept:  InputText,
				Choices: []string{cbChecklistSkipNote},
				Advance: func(s *session.Session, input string) string {
					if input == cbChecklistSkipNote {
						s.Answers[noteKey] = session.NoteSkipped
					} else {
						s.Answers[noteKey] = input
					}
					return noteNext
				},
				Prompt: func(s *session.Session) Prompt {
					text := fmt.Sprintf("✅ <b>Чек-ліст Безпеки</b>\n\n%s\n\n"+
						"Додайте нотатку для себе щодо пункту <b>%s</b> (що саме зроблено або що треба виправити), або пропустіть.",
						checklistSummary(s.Answers), item.Label)
					return Prompt{Text: text, Buttons: skipNoteKeyboard()}
				},
			},
		)
	}

	return newTable(session.WorkflowChecklist, "checklist/q_project_name", steps...)
}
