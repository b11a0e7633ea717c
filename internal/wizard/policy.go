package wizard

import (
	"github.com/kirill3224/privacy-sentry/internal/session"
)

var policyPreviewLines = []previewLine{
	{Label: "Назва", Key: "project_name"},
	{Label: "Контакт", Key: "contact"},
	{Label: "Дані", Key: "data_collected"},
	{Label: "Зберігання", Key: "data_storage"},
	{Label: "Видалення", Key: "delete_mechanism"},
}

func policyPrompt(question string) func(s *session.Session) Prompt {
	return func(s *session.Session) Prompt {
		text := "📄 <b>Політика Конфіденційності</b>\n\n" +
			previewBlock(s.Answers, policyPreviewLines) +
			"\n" + question
		return Prompt{Text: text}
	}
}

// policyTable is a straight line of five free-text questions; the last one
// hands over to generation.
var policyTable = newTable(session.WorkflowPolicy, "policy/q_project_name",
	Step{
		ID:     "policy/q_project_name",
		Accept: InputText,
		Field:  "project_name",
		Next:   "policy/q_contact",
		Prompt: policyPrompt("Як називається ваш проєкт?"),
	},
	Step{
		ID:     "policy/q_contact",
		Accept: InputText,
		Field:  "contact",
		Next:   "policy/q_data_collected",
		Prompt: policyPrompt("Як користувач може з вами звʼязатися? (@username або email)"),
	},
	Step{
		ID:     "policy/q_data_collected",
		Accept: InputText,
		Field:  "data_collected",
		Next:   "policy/q_data_storage",
		Prompt: policyPrompt("Які дані ви збираєте? (наприклад: email, telegram id)"),
	},
	Step{
		ID:     "policy/q_data_storage",
		Accept: InputText,
		Field:  "data_storage",
		Next:   "policy/q_delete_mechanism",
		Prompt: policyPrompt("Де ви зберігаєте ці дані? (наприклад: Google Sheets, Postgres на Hetzner)"),
	},
	Step{
		ID:     "policy/q_delete_mechanism",
		Accept: InputText,
		Field:  "delete_mechanism",
		Next:   StepGenerate,
		Prompt: policyPrompt("Як користувач може видалити свої дані? (наприклад: команда /delete, лист на пошту)"),
	},
)
