package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"pills-bot/internal/records"
	"pills-bot/internal/report"
	"pills-bot/internal/session"
)

// handleIncomingMessage routes one message: commands first, then the user's
// dialogue state. While a dialogue is active every text is the next field.
func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	userID := msg.From.ID
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	sess := b.sessions.Get(userID)
	switch sess.State {
	case session.AwaitingPillName:
		b.handlePillName(chatID, userID, msg.Text)
	case session.AwaitingPillDose:
		b.handlePillDose(ctx, chatID, userID, sess, msg.Text)
	case session.AwaitingNote:
		b.handleNote(ctx, chatID, userID, msg.Text)
	default:
		b.handleMenu(ctx, chatID, userID, msg.Text)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	switch msg.Command() {
	case cmdStart:
		b.sessions.Reset(userID)
		b.sendWithMenu(chatID, msgGreeting)
	case cmdCancel:
		if b.sessions.Get(userID).Active() {
			log.Printf("Dialogue cancelled by %d", userID)
		}
		b.sessions.Reset(userID)
		b.sendWithMenu(chatID, msgCancelled)
	case cmdReport:
		b.sessions.Reset(userID)
		b.requestReport(ctx, chatID, userID)
	default:
		if sess := b.sessions.Get(userID); sess.Active() {
			b.sendMessage(chatID, promptFor(sess.State))
			return
		}
		b.sendWithMenu(chatID, msgUseMenu)
	}
}

func (b *Bot) handleMenu(ctx context.Context, chatID, userID int64, text string) {
	switch strings.TrimSpace(text) {
	case btnAddPill:
		b.sessions.Set(userID, session.Session{State: session.AwaitingPillName})
		b.sendMessage(chatID, msgAskPillName)
	case btnAddNote:
		b.sessions.Set(userID, session.Session{State: session.AwaitingNote})
		b.sendMessage(chatID, msgAskNote)
	case btnReport:
		b.requestReport(ctx, chatID, userID)
	default:
		b.sendWithMenu(chatID, msgUseMenu)
	}
}

func (b *Bot) handlePillName(chatID, userID int64, text string) {
	name, ok := b.readField(chatID, session.AwaitingPillName, text, maxFieldLen)
	if !ok {
		return
	}
	b.sessions.Set(userID, session.Session{State: session.AwaitingPillDose, PillName: name})
	b.sendMessage(chatID, msgAskDose)
}

func (b *Bot) handlePillDose(ctx context.Context, chatID, userID int64, sess session.Session, text string) {
	dose, ok := b.readField(chatID, session.AwaitingPillDose, text, maxFieldLen)
	if !ok {
		return
	}
	// The dialogue ends here whatever the store says; a failed save is retried from the menu.
	b.sessions.Reset(userID)

	ev := records.DoseEvent{UserID: userID, PillName: sess.PillName, Dose: dose, TakenAt: b.now()}
	if err := b.store.AddDose(ctx, ev); err != nil {
		log.Printf("❌ Failed to save pill for %d: %v", userID, err)
		b.metrics.RecordStoreFailure("add_pill")
		b.sendWithMenu(chatID, msgSaveFailed)
		return
	}
	b.metrics.RecordSaved(string(records.KindPill))
	b.sendWithMenu(chatID, fmt.Sprintf(msgPillSaved,
		ev.PillName, ev.Dose, b.formatTime(ev.TakenAt)))
}

func (b *Bot) handleNote(ctx context.Context, chatID, userID int64, text string) {
	note, ok := b.readField(chatID, session.AwaitingNote, text, maxNoteLen)
	if !ok {
		return
	}
	b.sessions.Reset(userID)

	n := records.HealthNote{UserID: userID, Note: note, CreatedAt: b.now()}
	if err := b.store.AddNote(ctx, n); err != nil {
		log.Printf("❌ Failed to save health note for %d: %v", userID, err)
		b.metrics.RecordStoreFailure("add_note")
		b.sendWithMenu(chatID, msgSaveFailed)
		return
	}
	b.metrics.RecordSaved(string(records.KindNote))
	b.sendWithMenu(chatID, fmt.Sprintf(msgNoteSaved, b.formatTime(n.CreatedAt)))
}

// readField validates a dialogue reply and re-prompts for the same field when it is unusable.
func (b *Bot) readField(chatID int64, state session.State, text string, maxLen int) (string, bool) {
	value := strings.TrimSpace(text)
	if value == "" {
		b.sendMessage(chatID, promptFor(state))
		return "", false
	}
	if utf8.RuneCountInString(value) > maxLen {
		b.sendMessage(chatID, fmt.Sprintf(msgTooLong, maxLen))
		return "", false
	}
	return value, true
}

func promptFor(state session.State) string {
	switch state {
	case session.AwaitingPillName:
		return msgAskPillName
	case session.AwaitingPillDose:
		return msgAskDose
	case session.AwaitingNote:
		return msgAskNote
	default:
		return msgUseMenu
	}
}

// requestReport checks the per-user limit and generates the report in the
// background so a slow render does not hold up other users' updates.
// reportTimeout bounds one report, including the drain after shutdown.
const reportTimeout = 2 * time.Minute

func (b *Bot) requestReport(ctx context.Context, chatID, userID int64) {
	if !b.limiter.Allow(userID) {
		b.metrics.RecordRateLimited()
		b.sendWithMenu(chatID, msgRateLimited)
		return
	}
	b.sendMessage(chatID, msgGenerating)

	// Shutdown must not abort a report the user is already waiting for.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportTimeout)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer cancel()
		b.sendReport(rctx, chatID, userID)
	}()
}

func (b *Bot) sendReport(ctx context.Context, chatID, userID int64) {
	reqID := uuid.NewString()
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Report panic [user=%d req=%s]: %v", userID, reqID, r)
			b.sendWithMenu(chatID, msgReportFailed)
		}
	}()

	rep, err := b.reports.Generate(ctx, userID)
	if errors.Is(err, report.ErrNoRecords) {
		b.sendWithMenu(chatID, msgNoRecords)
		return
	}
	if err != nil {
		log.Printf("❌ Error generating report [user=%d req=%s]: %v", userID, reqID, err)
		b.sendWithMenu(chatID, msgReportFailed)
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: rep.Filename, Bytes: rep.Data})
	doc.Caption = b.escape(msgReportReady)
	doc.ParseMode = b.parseModeValue()
	doc.ReplyMarkup = b.menuKeyboard()
	if _, err := b.s.Send(doc); err != nil {
		log.Printf("❌ Failed to send report [user=%d req=%s]: %v", userID, reqID, err)
		b.sendWithMenu(chatID, msgReportFailed)
		return
	}
	log.Printf("📊 Report sent [user=%d req=%s sections=%d bytes=%d took=%s]",
		userID, reqID, rep.Sections, len(rep.Data), time.Since(started).Round(time.Millisecond))
}
