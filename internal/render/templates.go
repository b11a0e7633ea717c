package render

// Document templates, filled with {field} placeholders. Field values arrive
// pre-escaped for the target markup.
var documentTemplates = map[string]string{
	"policy":    policyTemplate,
	"dpia":      dpiaTemplate,
	"checklist": checklistTemplate,
}

const policyTemplate = `# Політика Конфіденційності

## Проєкт: {project_name}

_Версія від {date}_

---

## 1. Хто ми

Цей документ описує, як проєкт **{project_name}** збирає, зберігає та
видаляє персональні дані користувачів.

Контакт для запитів щодо даних: {contact}

## 2. Які дані ми збираємо

{data_collected}

Ми збираємо лише ті дані, що необхідні для роботи проєкту, і не передаємо
їх третім сторонам.

## 3. Де та як зберігаються дані

{data_storage}

## 4. Як видалити свої дані

{delete_mechanism}

Запит на видалення можна також надіслати на контакт, вказаний у розділі 1.

---

_Документ згенеровано ботом Privacy Sentry. Бот не зберігає ваших
відповідей після генерації._
`

const dpiaTemplate = `# Оцінка Впливу на Захист Даних (DPIA Lite)

## Проєкт: {project_name}

_Версія від {date}_

---

{dpia_table}

---

_Цей документ — полегшена оцінка впливу для студентських проєктів. Для
продуктових систем зверніться до повної процедури DPIA._

_Документ згенеровано ботом Privacy Sentry._
`

const checklistTemplate = `# Чек-ліст Безпеки та Приватності

## Проєкт: {project_name}

_Версія від {date}_

---

{checklist_content}

---

_9/9 питань пройдено. Документ згенеровано ботом Privacy Sentry._
`
