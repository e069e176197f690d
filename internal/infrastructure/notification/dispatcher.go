package notification

import (
	"sync"
	"time"

	"github.com/nyxscore/connectone-sub003/pkg/logger"
)

// Event kinds published by the escrow and chat cores.
const (
	KindStatusChanged = "transaction_status_changed"
	KindNewMessage    = "new_message"
	KindThreadUpdated = "thread_updated"
)

// Notification is the decision "notify recipient X of event Y". Transport
// is whatever subscribers make of it.
type Notification struct {
	RecipientUID string                 `json:"recipient_uid"`
	Kind         string                 `json:"kind"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// Dispatcher fans notifications out to subscribers. Notify never blocks
// the caller and never returns an error: a full subscriber is retried a
// bounded number of times, then the notification is dropped with a log
// line. Delivery is explicitly decoupled from ledger and state machine
// correctness.
type Dispatcher struct {
	mu          sync.RWMutex
	subscribers map[int]chan Notification
	nextID      int
	maxRetries  int
	retryDelay  time.Duration
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		subscribers: make(map[int]chan Notification),
		maxRetries:  3,
		retryDelay:  50 * time.Millisecond,
	}
}

// Subscribe registers a buffered channel receiving every notification.
// The returned cancel func unregisters and closes it.
func (d *Dispatcher) Subscribe() (<-chan Notification, func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextID
	d.nextID++
	ch := make(chan Notification, 64)
	d.subscribers[id] = ch

	cancel := func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if sub, ok := d.subscribers[id]; ok {
			delete(d.subscribers, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Notify publishes fire-and-forget. Slow subscribers are retried in the
// background so the triggering write path never waits.
func (d *Dispatcher) Notify(recipientUID, kind string, payload map[string]interface{}) {
	n := Notification{
		RecipientUID: recipientUID,
		Kind:         kind,
		Payload:      payload,
		CreatedAt:    time.Now(),
	}

	d.mu.RLock()
	ids := make([]int, 0, len(d.subscribers))
	for id := range d.subscribers {
		ids = append(ids, id)
	}
	d.mu.RUnlock()

	for _, id := range ids {
		delivered, gone := d.trySend(id, n)
		if delivered || gone {
			continue
		}
		go d.deliverWithRetry(id, n)
	}
}

// trySend performs the non-blocking send while holding the registry lock.
// cancel closes a channel only under the write lock, so a channel found in
// the registry here cannot be closed mid-send.
func (d *Dispatcher) trySend(id int, n Notification) (delivered, gone bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ch, ok := d.subscribers[id]
	if !ok {
		return false, true
	}
	select {
	case ch <- n:
		return true, false
	default:
		return false, false
	}
}

func (d *Dispatcher) deliverWithRetry(id int, n Notification) {
	for attempt := 0; attempt < d.maxRetries; attempt++ {
		time.Sleep(d.retryDelay)
		delivered, gone := d.trySend(id, n)
		if delivered {
			return
		}
		if gone {
			logger.Debug("Notification dropped, subscriber gone: kind=%s recipient=%s", n.Kind, n.RecipientUID)
			return
		}
	}
	logger.Warn("Notification dropped after %d retries: kind=%s recipient=%s", d.maxRetries, n.Kind, n.RecipientUID)
}
