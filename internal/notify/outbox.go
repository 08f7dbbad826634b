// Package notify queues pool notifications after commit and delivers them to
// storage sinks.
package notify

import (
	"sync"

	"optionAMM/internal/model"
)

// Outbox is a FIFO of notifications waiting for delivery.
type Outbox struct {
	mu      sync.Mutex
	pending []model.Notification
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

// Emit appends n to the queue.
func (o *Outbox) Emit(n model.Notification) {
	o.mu.Lock()
	o.pending = append(o.pending, n)
	o.mu.Unlock()
}

// Drain removes and returns up to max queued notifications, oldest first.
// max <= 0 drains everything.
func (o *Outbox) Drain(max int) []model.Notification {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.pending) == 0 {
		return nil
	}
	n := len(o.pending)
	if max > 0 && max < n {
		n = max
	}
	out := make([]model.Notification, n)
	copy(out, o.pending[:n])
	o.pending = append(o.pending[:0], o.pending[n:]...)
	return out
}

// Requeue puts batch back at the head of the queue.
func (o *Outbox) Requeue(batch []model.Notification) {
	if len(batch) == 0 {
		return
	}
	o.mu.Lock()
	o.pending = append(append([]model.Notification(nil), batch...), o.pending...)
	o.mu.Unlock()
}

// Len returns the number of queued notifications.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}
