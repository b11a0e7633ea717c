package wizard

import (
	"fmt"
	"html"
	"strings"

	"github.com/kirill3224/privacy-sentry/internal/document"
	"github.com/kirill3224/privacy-sentry/internal/gateway"
	"github.com/kirill3224/privacy-sentry/internal/redact"
	"github.com/kirill3224/privacy-sentry/internal/session"
)

// Callback payloads for inline buttons.
const (
	cbStartPolicy       = "start_policy"
	cbStartAssessment   = "start_dpia"
	cbStartChecklist    = "start_checklist"
	cbStartChecklistUps = "start_checklist_upsell"
	cbStartMenu         = "start_menu"
	cbStartMenuPostGen  = "start_menu_post_generation"
	cbShowHelp          = "show_help"
	cbShowPrivacy       = "show_privacy"
	cbCancelFromBlock   = "cancel_from_block"
	cbMinimizationYes   = "min_yes"
	cbMinimizationNo    = "min_no"
	cbChecklistDone     = "cl_yes"
	cbChecklistNotDone  = "cl_no"
	cbChecklistSkipNote = "cl_skip_note"
)

const (
	textWelcome = "Привіт! Я бот <b>Privacy Sentry</b>.\n\n" +
		"Я допоможу вам згенерувати артефакти приватності для вашого проєкту, " +
		"дотримуючись принципу stateless: я нічого про вас не зберігаю.\n\n" +
		"Оберіть опцію:"

	textHelp = "<b>Що я вмію:</b>\n\n" +
		"📄 <b>Політика Конфіденційності</b> — 5 коротких питань, на виході готовий документ.\n" +
		"📝 <b>Оцінка (DPIA Lite)</b> — аудит даних вашого проєкту з циклом мінімізації.\n" +
		"✅ <b>Чек-ліст Безпеки</b> — 9 пунктів у 3 категоріях.\n\n" +
		"Команди: /start — меню, /cancel — скасувати поточний аудит, " +
		"/privacy — як я поводжуся з вашими даними."

	textPrivacy = "<b>Як я поводжуся з вашими даними:</b>\n\n" +
		"Усі відповіді живуть лише в оперативній памʼяті на час одного аудиту. " +
		"Після генерації документа або скасування вони видаляються. " +
		"Я не веду історію розмов і не зберігаю ваші відповіді."

	textGenerating = "Дякую! Генерую ваш документ..."

	textRenderFailed = "Під час генерації документа сталася помилка. " +
		"Ваші відповіді не збережено. Спробуйте ще раз."

	textBlockWarning = "⚠️ У вас вже є активний аудит.\n\n" +
		"Завершіть його або скасуйте, перш ніж починати новий."

	textLostState = "Я втратив контекст розмови. Повертаю вас у головне меню."

	textPostGeneration = "Готово! Ваш документ вище. 👆"

	textPostPolicyUpsell = "Вітаю! Ви завершили <b>Крок 1</b> — у вас є Політика Конфіденційності.\n\n" +
		"<b>Етичне нагадування:</b> документ працює лише тоді, коли ви справді робите те, " +
		"що в ньому написано. Пройдіть Чек-ліст Безпеки, щоб перевірити себе."
)

func mainMenuKeyboard() [][]gateway.Button {
	return [][]gateway.Button{
		{{Label: "📄 Згенерувати Політику", Data: cbStartPolicy}},
		{{Label: "📝 Пройти Оцінку (DPIA)", Data: cbStartAssessment}},
		{{Label: "✅ Пройти Чек-ліст", Data: cbStartChecklist}},
		{
			{Label: "❓ Допомога", Data: cbShowHelp},
			{Label: "🔒 Наша Політика", Data: cbShowPrivacy},
		},
	}
}

func backToMenuKeyboard() [][]gateway.Button {
	return [][]gateway.Button{
		{{Label: "⬅️ Назад в меню", Data: cbStartMenu}},
	}
}

func postActionKeyboard() [][]gateway.Button {
	return [][]gateway.Button{
		{{Label: "⬅️ Повернутись до головного меню", Data: cbStartMenuPostGen}},
	}
}

func policyUpsellKeyboard() [][]gateway.Button {
	return [][]gateway.Button{
		{{Label: "✅ Пройти Чек-ліст (Крок 2)", Data: cbStartChecklistUps}},
		{{Label: "⬅️ Повернутись до головного меню", Data: cbStartMenuPostGen}},
	}
}

func blockerKeyboard() [][]gateway.Button {
	return [][]gateway.Button{
		{{Label: "❌ Скасувати поточний аудит", Data: cbCancelFromBlock}},
	}
}

func minimizationKeyboard() [][]gateway.Button {
	return [][]gateway.Button{
		{
			{Label: "✅ Так", Data: cbMinimizationYes},
			{Label: "❌ Ні", Data: cbMinimizationNo},
		},
	}
}

func checklistStatusKeyboard() [][]gateway.Button {
	return [][]gateway.Button{
		{
			{Label: "✅ Виконано", Data: cbChecklistDone},
			{Label: "❌ Не виконано", Data: cbChecklistNotDone},
		},
	}
}

func skipNoteKeyboard() [][]gateway.Button {
	return [][]gateway.Button{
		{{Label: "➡️ Пропустити нотатку", Data: cbChecklistSkipNote}},
	}
}

// previewMax bounds how much of an answer the running summary shows.
const previewMax = 60

// previewField renders one collected answer, or an ellipsis while unset.
func previewField(answers map[string]string, key string) string {
	v := answers[key]
	if strings.TrimSpace(v) == "" {
		return "..."
	}
	return "<code>" + html.EscapeString(redact.Preview(v, previewMax)) + "</code>"
}

type previewLine struct {
	Label string
	Key   string
}

// previewBlock lists the answered fields in question order, marking answered
// ones with a check.
func previewBlock(answers map[string]string, lines []previewLine) string {
	var sb strings.Builder
	for _, line := range lines {
		mark := "▫️"
		if strings.TrimSpace(answers[line.Key]) != "" {
			mark = "✅"
		}
		fmt.Fprintf(&sb, "%s <b>%s:</b> %s\n", mark, line.Label, previewField(answers, line.Key))
	}
	return sb.String()
}

// checklistSummary builds the running history of checklist answers: each
// category header appears once, only after one of its items has a status.
func checklistSummary(answers map[string]string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "✅ <b>Назва Проєкту:</b> %s\n", previewField(answers, "project_name"))

	for ci, cat := range document.ChecklistCategories {
		headerWritten := false
		for _, item := range cat.Items {
			status := answers[item.Key+"_status"]
			if status == "" {
				continue
			}
			if !headerWritten {
				fmt.Fprintf(&sb, "\n<b>Категорія %d (%s):</b>\n", ci+1, cat.Title)
				headerWritten = true
			}
			fmt.Fprintf(&sb, "<b>%s:</b> %s\n", item.Label, checklistStatusLabel(status))
			if note := answers[item.Key+"_note"]; note != "" {
				fmt.Fprintf(&sb, "Нотатка: %s\n", checklistNoteLabel(note))
			}
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func checklistStatusLabel(status string) string {
	switch status {
	case session.ChecklistDone:
		return "✅ <b>Виконано</b>"
	case session.ChecklistNotDone:
		return "❌ <b>Не виконано</b>"
	default:
		return ""
	}
}

func checklistNoteLabel(note string) string {
	if note == session.NoteSkipped {
		return "<i>Пропущено</i>"
	}
	return "<code>" + html.EscapeString(redact.Preview(note, previewMax)) + "</code>"
}
