package telegram

// Menu buttons double as the idle-state commands.
const (
	btnAddPill = "💊 Добавить таблетку"
	btnAddNote = "📝 Добавить заметку о состоянии"
	btnReport  = "📊 Получить отчет PDF"
)

const (
	cmdStart  = "start"
	cmdCancel = "cancel"
	cmdReport = "report"
)

const (
	msgGreeting     = "Привет! Я бот для учета приема лекарств.\n\nВыберите действие:"
	msgUseMenu      = "Пожалуйста, используйте кнопки меню."
	msgAskPillName  = "Введите название таблетки:"
	msgAskDose      = "Введите дозировку (например: 1 таблетка, 5мг, 2 капсулы):"
	msgAskNote      = "Введите заметку о вашем состоянии:"
	msgPillSaved    = "✅ Записано: %s (%s)\nВремя: %s"
	msgNoteSaved    = "✅ Заметка сохранена\nВремя: %s"
	msgSaveFailed   = "❌ Ошибка при сохранении. Попробуйте еще раз."
	msgCancelled    = "Операция отменена."
	msgTooLong      = "Слишком длинный текст, максимум %d символов. Попробуйте еще раз:"
	msgGenerating   = "📊 Генерирую отчет..."
	msgNoRecords    = "📭 У вас пока нет записей для отчета."
	msgReportFailed = "❌ Ошибка при генерации отчета. Попробуйте позже."
	msgReportReady  = "📊 Ваш отчет готов!"
	msgRateLimited  = "⏳ Слишком много запросов отчета. Попробуйте через минуту."
)

const (
	maxFieldLen = 200
	maxNoteLen  = 2000

	confirmTimeLayout = "02.01.2006 15:04"
)
