package telegram

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// dispatcher runs messages of one user in arrival order while different users
// are handled concurrently. A user's goroutine exits once their queue is empty.
type dispatcher struct {
	handle func(*tgbotapi.Message)

	mu     sync.Mutex
	queues map[int64][]*tgbotapi.Message
	wg     sync.WaitGroup
}

func newDispatcher(handle func(*tgbotapi.Message)) *dispatcher {
	return &dispatcher{handle: handle, queues: make(map[int64][]*tgbotapi.Message)}
}

func (d *dispatcher) dispatch(msg *tgbotapi.Message) {
	if msg.From == nil {
		d.handle(msg)
		return
	}
	key := msg.From.ID

	d.mu.Lock()
	q, busy := d.queues[key]
	d.queues[key] = append(q, msg)
	d.mu.Unlock()
	if busy {
		return
	}

	d.wg.Add(1)
	go d.drain(key)
}

func (d *dispatcher) drain(key int64) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		q := d.queues[key]
		if len(q) == 0 {
			delete(d.queues, key)
			d.mu.Unlock()
			return
		}
		msg := q[0]
		d.queues[key] = q[1:]
		d.mu.Unlock()

		d.handle(msg)
	}
}

// wait blocks until every queued message has been handled.
func (d *dispatcher) wait() { d.wg.Wait() }
