package telegram

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestDispatcher_SlowUserDoesNotBlockOthers(t *testing.T) {
	release := make(chan struct{})
	handled := make(chan string, 4)
	d := newDispatcher(func(m *tgbotapi.Message) {
		if m.Text == "slow" {
			<-release
		}
		handled <- m.Text
	})

	d.dispatch(text(1, "slow"))
	d.dispatch(text(1, "after slow"))
	d.dispatch(text(2, "fast"))

	select {
	case got := <-handled:
		if got != "fast" {
			t.Fatalf("first handled message should be user 2's, got %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("user 2 was blocked by user 1")
	}

	close(release)
	d.wait()
	close(handled)
	var rest []string
	for s := range handled {
		rest = append(rest, s)
	}
	if len(rest) != 2 || rest[0] != "slow" || rest[1] != "after slow" {
		t.Fatalf("user 1 messages out of order: %q", rest)
	}
}

func TestDispatcher_KeepsPerUserOrder(t *testing.T) {
	var mu sync.Mutex
	got := map[int64][]string{}
	d := newDispatcher(func(m *tgbotapi.Message) {
		mu.Lock()
		defer mu.Unlock()
		got[m.From.ID] = append(got[m.From.ID], m.Text)
	})

	for i := 0; i < 50; i++ {
		for user := int64(1); user <= 3; user++ {
			d.dispatch(text(user, fmt.Sprint(i)))
		}
	}
	d.wait()

	for user := int64(1); user <= 3; user++ {
		if len(got[user]) != 50 {
			t.Fatalf("user %d: want 50 messages, got %d", user, len(got[user]))
		}
		for i, s := range got[user] {
			if s != fmt.Sprint(i) {
				t.Fatalf("user %d: message %d is %q", user, i, s)
			}
		}
	}
	if len(d.queues) != 0 {
		t.Fatalf("idle queues should be released: %d left", len(d.queues))
	}
}

func TestDispatcher_PillFlowThroughBot(t *testing.T) {
	st := &fakeStore{}
	b, fs := newTestBot(st, nil)
	ctx := context.Background()
	d := newDispatcher(func(m *tgbotapi.Message) { b.handleIncomingMessage(ctx, m) })

	d.dispatch(text(1, btnAddPill))
	d.dispatch(text(2, btnAddNote))
	d.dispatch(text(1, "Aspirin"))
	d.dispatch(text(2, "Fine"))
	d.dispatch(text(1, "1 tablet"))
	d.dispatch(&tgbotapi.Message{Text: "no sender"})
	d.wait()

	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.pills) != 1 || st.pills[0].PillName != "Aspirin" || st.pills[0].Dose != "1 tablet" {
		t.Fatalf("unexpected pills: %+v", st.pills)
	}
	if len(st.notes) != 1 || st.notes[0].UserID != 2 {
		t.Fatalf("unexpected notes: %+v", st.notes)
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if len(fs.sent) != 5 {
		t.Fatalf("want 5 replies, got %d: %q", len(fs.sent), fs.sent)
	}
}
