package wizard

import (
	"fmt"
	"html"
	"strings"

	"github.com/kirill3224/privacy-sentry/internal/session"
)

// declinedJustification marks items the user agreed to stop collecting.
const declinedJustification = "Відмовлено (мінімізовано)"

var assessmentPreviewLines = []previewLine{
	{Label: "Проєкт", Key: "project_name"},
	{Label: "Команда", Key: "team"},
	{Label: "Мета", Key: "goal"},
}

func assessmentHeader(s *session.Session) string {
	return "📝 <b>Оцінка (DPIA Lite)</b>\n\n" + previewBlock(s.Answers, assessmentPreviewLines) + "\n"
}

func assessmentPrompt(question string) func(s *session.Session) Prompt {
	return func(s *session.Session) Prompt {
		return Prompt{Text: assessmentHeader(s) + question}
	}
}

// currentItem is the data item the minimization loop is visiting.
func currentItem(s *session.Session) string {
	if s.ItemIndex < 0 || s.ItemIndex >= len(s.DataList) {
		return "..."
	}
	return s.DataList[s.ItemIndex]
}

// parseDataList splits free text into trimmed, non-empty lines.
func parseDataList(input string) []string {
	var items []string
	for _, line := range strings.Split(input, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			items = append(items, line)
		}
	}
	return items
}

// acceptDataList starts the minimization loop, or re-prompts on an
// empty-after-trim list without advancing.
func acceptDataList(s *session.Session, input string) string {
	items := parseDataList(input)
	if len(items) == 0 {
		return "assessment/q_data_list_retry"
	}
	s.DataList = items
	s.ItemIndex = 0
	s.Items = nil
	return "assessment/min_status"
}

// afterLoopItem advances the loop index and picks the successor: the next
// item's yes/no question, or the retention question once the list is done.
func afterLoopItem(s *session.Session) string {
	s.ItemIndex++
	if s.ItemIndex >= len(s.DataList) {
		return "assessment/q_retention_period"
	}
	return "assessment/min_status"
}

const dataListQuestion = "Перелічіть дані, які збирає ваш проєкт, <b>кожен пункт з нового рядка</b>.\n" +
	"Наприклад:\n<code>email\nномер телефону\nмісто</code>"

var assessmentTable = newTable(session.WorkflowAssessment, "assessment/q_project_name",
	Step{
		ID:     "assessment/q_project_name",
		Accept: InputText,
		Field:  "project_name",
		Next:   "assessment/q_team",
		Prompt: assessmentPrompt("Як називається проєкт, який ми оцінюємо?"),
	},
	Step{
		ID:     "assessment/q_team",
		Accept: InputText,
		Field:  "team",
		Next:   "assessment/q_goal",
		Prompt: assessmentPrompt("Хто відповідає за проєкт? (імʼя або команда)"),
	},
	Step{
		ID:     "assessment/q_goal",
		Accept: InputText,
		Field:  "goal",
		Next:   "assessment/q_data_list",
		Prompt: assessmentPrompt("Яка головна мета збору даних? Одним реченням."),
	},
	Step{
		ID:      "assessment/q_data_list",
		Accept:  InputText,
		Advance: acceptDataList,
		Prompt:  assessmentPrompt(dataListQuestion),
	},
	Step{
		ID:      "assessment/q_data_list_retry",
		Accept:  InputText,
		Advance: acceptDataList,
		Prompt:  assessmentPrompt("⚠️ Список порожній. " + dataListQuestion),
	},
	Step{
		ID:     "assessment/min_status",
		Accept: InputChoice,
		Advance: func(s *session.Session, input string) string {
			item := currentItem(s)
			switch input {
			case cbMinimizationYes:
				s.Items = append(s.Items, session.ItemRecord{Item: item, Needed: true})
				return "assessment/min_reason"
			case cbMinimizationNo:
				s.Items = append(s.Items, session.ItemRecord{
					Item:          item,
					Needed:        false,
					Justification: declinedJustification,
				})
				return afterLoopItem(s)
			default:
				return s.State
			}
		},
		Prompt: func(s *session.Session) Prompt {
			text := assessmentHeader(s) + fmt.Sprintf(
				"<b>Мінімізація даних (%d/%d)</b>\n\n"+
					"Чи <b>справді</b> вам потрібно збирати <code>%s</code>?",
				s.ItemIndex+1, len(s.DataList), html.EscapeString(currentItem(s)))
			return Prompt{Text: text, Buttons: minimizationKeyboard()}
		},
	},
	Step{
		ID:     "assessment/min_reason",
		Accept: InputText,
		Advance: func(s *session.Session, input string) string {
			if n := len(s.Items); n > 0 {
				s.Items[n-1].Justification = input
			}
			return afterLoopItem(s)
		},
		Prompt: func(s *session.Session) Prompt {
			text := assessmentHeader(s) + fmt.Sprintf(
				"Навіщо вам <code>%s</code>? Опишіть одним реченням.",
				html.EscapeString(currentItem(s)))
			return Prompt{Text: text}
		},
	},
	Step{
		ID:     "assessment/q_retention_period",
		Accept: InputText,
		Field:  "retention_period",
		Next:   "assessment/q_retention_mechanism",
		Prompt: assessmentPrompt("Мінімізацію завершено. Як довго ви зберігаєте дані? (наприклад: 1 рік, до завершення курсу)"),
	},
	Step{
		ID:     "assessment/q_retention_mechanism",
		Accept: InputText,
		Field:  "retention_mechanism",
		Next:   "assessment/q_storage",
		Prompt: assessmentPrompt("Як саме дані видаляються після цього строку?"),
	},
	Step{
		ID:     "assessment/q_storage",
		Accept: InputText,
		Field:  "storage",
		Next:   "assessment/q_risk",
		Prompt: assessmentPrompt("Де фізично зберігаються дані? (сервіс, країна)"),
	},
	Step{
		ID:     "assessment/q_risk",
		Accept: InputText,
		Field:  "risk",
		Next:   "assessment/q_mitigation",
		Prompt: assessmentPrompt("Що найгірше може статися, якщо ці дані витечуть?"),
	},
	Step{
		ID:     "assessment/q_mitigation",
		Accept: InputText,
		Field:  "mitigation",
		Next:   StepGenerate,
		Prompt: assessmentPrompt("Що ви вже робите, щоб цього не сталося?"),
	},
)
