package telegram

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pills-bot/internal/metrics"
	"pills-bot/internal/ratelimit"
	"pills-bot/internal/records"
	"pills-bot/internal/report"
	"pills-bot/internal/session"
)

// RecordWriter persists the records collected in dialogues.
type RecordWriter interface {
	AddDose(ctx context.Context, ev records.DoseEvent) error
	AddNote(ctx context.Context, n records.HealthNote) error
}

// ReportGenerator builds a user's PDF report.
type ReportGenerator interface {
	Generate(ctx context.Context, userID int64) (*report.Report, error)
}

// Deps are the collaborators of the bot, constructed by the caller.
type Deps struct {
	Store     RecordWriter
	Reports   ReportGenerator
	Sessions  *session.Manager
	Limiter   *ratelimit.Limiter
	Metrics   metrics.Recorder
	Location  *time.Location
	ParseMode string
}

type Bot struct {
	api       *tgbotapi.BotAPI
	s         sender
	store     RecordWriter
	reports   ReportGenerator
	sessions  *session.Manager
	limiter   *ratelimit.Limiter
	metrics   metrics.Recorder
	loc       *time.Location
	parseMode string
	now       func() time.Time

	// reports in flight; Start waits for them on shutdown
	wg sync.WaitGroup
}

func New(botToken string, debug bool, deps Deps) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	api.Debug = debug
	log.Printf("🤖 Authorized on account @%s", api.Self.UserName)

	b := newBot(botAPISender{api: api}, deps)
	b.api = api
	return b, nil
}

func newBot(s sender, deps Deps) *Bot {
	b := &Bot{
		s:         s,
		store:     deps.Store,
		reports:   deps.Reports,
		sessions:  deps.Sessions,
		limiter:   deps.Limiter,
		metrics:   deps.Metrics,
		loc:       deps.Location,
		parseMode: deps.ParseMode,
		now:       time.Now,
	}
	if b.sessions == nil {
		b.sessions = session.NewManager()
	}
	if b.limiter == nil {
		b.limiter = ratelimit.New(0, 1)
	}
	if b.metrics == nil {
		b.metrics = metrics.Nop{}
	}
	if b.loc == nil {
		b.loc = time.Local
	}
	return b
}

// Start polls updates until ctx is cancelled, then waits for in-flight messages
// and reports. Each user's messages are handled in order; users run in parallel.
func (b *Bot) Start(ctx context.Context) {
	b.registerCommands()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	// Updates already taken off the queue are finished even after shutdown starts.
	work := context.WithoutCancel(ctx)
	d := newDispatcher(func(msg *tgbotapi.Message) { b.handleIncomingMessage(work, msg) })
	for update := range updates {
		if update.Message != nil {
			d.dispatch(update.Message)
		}
	}

	log.Println("⏳ Waiting for in-flight messages and reports...")
	d.wait()
	b.wg.Wait()
	log.Println("🛑 Bot stopped")
}

func (b *Bot) registerCommands() {
	cfg := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: cmdStart, Description: "Показать меню"},
		tgbotapi.BotCommand{Command: cmdReport, Description: "Получить отчет PDF"},
		tgbotapi.BotCommand{Command: cmdCancel, Description: "Отменить текущую операцию"},
	)
	if _, err := b.api.Request(cfg); err != nil {
		log.Printf("⚠️ Failed to register bot commands: %v", err)
	}
}

func (b *Bot) menuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnAddPill)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnAddNote)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnReport)),
	)
	kb.ResizeKeyboard = true
	return kb
}

// sendMessage sends plain text and keeps the current keyboard.
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, b.escape(text))
	msg.ParseMode = b.parseModeValue()
	if _, err := b.s.Send(msg); err != nil {
		log.Printf("failed to send message: %v", err)
	}
}

// sendWithMenu sends text and shows the main menu keyboard.
func (b *Bot) sendWithMenu(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, b.escape(text))
	msg.ParseMode = b.parseModeValue()
	msg.ReplyMarkup = b.menuKeyboard()
	if _, err := b.s.Send(msg); err != nil {
		log.Printf("failed to send message: %v", err)
	}
}

func (b *Bot) parseModeValue() string {
	switch strings.ToLower(strings.TrimSpace(b.parseMode)) {
	case "html":
		return tgbotapi.ModeHTML
	case "markdown":
		return tgbotapi.ModeMarkdown
	case "markdownv2":
		return tgbotapi.ModeMarkdownV2
	default:
		return ""
	}
}

// escape makes text literal under the configured parse mode. Replies carry no
// markup of their own, so the whole text is escaped, user input included.
func (b *Bot) escape(text string) string {
	mode := b.parseModeValue()
	if mode == "" {
		return text
	}
	return tgbotapi.EscapeText(mode, text)
}

func (b *Bot) formatTime(t time.Time) string {
	return t.In(b.loc).Format(confirmTimeLayout)
}
