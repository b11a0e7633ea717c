package document

// ChecklistItem is one yes/no security question plus an optional free-text
// note. Key is the answer-map prefix ("<key>_status", "<key>_note").
type ChecklistItem struct {
	Key      string
	Label    string
	Question string
}

// ChecklistCategory groups checklist items for the final document's
// per-category tables.
type ChecklistCategory struct {
	Title string
	Items []ChecklistItem
}

// ChecklistCategories is the fixed interview plan: three categories of three
// items each, walked in order.
var ChecklistCategories = []ChecklistCategory{
	{
		Title: "Контроль Доступу",
		Items: []ChecklistItem{
			{
				Key:      "c1_s1",
				Label:    "Двофакторна автентифікація (2FA)",
				Question: "Чи увімкнена 2FA на *всіх* критичних акаунтах (хостинг, домен, пошта, Telegram)?",
			},
			{
				Key:      "c1_s2",
				Label:    "Унікальні паролі",
				Question: "Чи використовуєте ви менеджер паролів та унікальні паролі для всіх сервісів проєкту?",
			},
			{
				Key:      "c1_s3",
				Label:    "Доступ третіх осіб",
				Question: "Чи обмежений доступ до бази даних та адмінки лише тими людьми, кому він реально потрібен?",
			},
		},
	},
	{
		Title: "Права Користувачів",
		Items: []ChecklistItem{
			{
				Key:      "c2_s1",
				Label:    "Механізм видалення даних",
				Question: "Чи може користувач видалити свої дані (напр. командою /delete або листом вам)?",
			},
			{
				Key:      "c2_s2",
				Label:    "Доступна політика",
				Question: "Чи є у вашому проєкті посилання на політику конфіденційності, яке легко знайти?",
			},
			{
				Key:      "c2_s3",
				Label:    "Канал для запитів",
				Question: "Чи є у користувача працюючий спосіб звʼязатися з вами щодо його даних?",
			},
		},
	},
	{
		Title: "Технічна Гігієна",
		Items: []ChecklistItem{
			{
				Key:      "c3_s1",
				Label:    "Шифрування (HTTPS)",
				Question: "Чи весь трафік вашого проєкту йде через HTTPS (жодних http:// форм чи API)?",
			},
			{
				Key:      "c3_s2",
				Label:    "Резервні копії",
				Question: "Чи робляться регулярні бекапи даних і чи перевіряли ви, що з них можна відновитись?",
			},
			{
				Key:      "c3_s3",
				Label:    "Мінімум логів",
				Question: "Чи впевнені ви, що в логи не пишуться паролі, токени чи персональні дані користувачів?",
			},
		},
	},
}

// ChecklistItemCount is the total number of interview items.
func ChecklistItemCount() int {
	n := 0
	for _, c := range ChecklistCategories {
		n += len(c.Items)
	}
	return n
}

// ChecklistItemAt returns the item and its category index for a flat
// position, walking categories in order. ok is false past the end.
func ChecklistItemAt(index int) (item ChecklistItem, category int, ok bool) {
	for ci, c := range ChecklistCategories {
		if index < len(c.Items) {
			return c.Items[index], ci, true
		}
		index -= len(c.Items)
	}
	return ChecklistItem{}, 0, false
}
