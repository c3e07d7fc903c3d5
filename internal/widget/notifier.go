package widget

import (
	"sync"
	"time"

	"bookingwidget/internal/models"
)

// Kind is the notification style.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

const (
	SuccessTTL = models.SuccessNotificationTTL * time.Millisecond
	ErrorTTL   = models.ErrorNotificationTTL * time.Millisecond
)

// Notification is the message currently shown to the customer.
type Notification struct {
	ID      uint64
	Kind    Kind
	Message string
}

type stopper interface {
	Stop() bool
}

// Notifier holds at most one notification. A newer one replaces the older,
// and only the timer of the current notification can dismiss it.
type Notifier struct {
	mu       sync.Mutex
	current  *Notification
	seq      uint64
	timer    stopper
	onChange func(n *Notification)

	afterFunc func(d time.Duration, f func()) stopper
}

// NewNotifier returns a notifier. onChange, if set, is called with the new
// notification or nil after every change, outside the lock.
func NewNotifier(onChange func(n *Notification)) *Notifier {
	return &Notifier{
		onChange: onChange,
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
	}
}

func (n *Notifier) Success(message string) Notification {
	return n.show(KindSuccess, message, SuccessTTL)
}

func (n *Notifier) Error(message string) Notification {
	return n.show(KindError, message, ErrorTTL)
}

// Current returns the visible notification.
func (n *Notifier) Current() (Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return Notification{}, false
	}
	return *n.current, true
}

// Dismiss closes the visible notification, if any.
func (n *Notifier) Dismiss() {
	n.mu.Lock()
	if n.current == nil {
		n.mu.Unlock()
		return
	}
	n.clearLocked()
	n.mu.Unlock()
	n.notify(nil)
}

func (n *Notifier) show(kind Kind, message string, ttl time.Duration) Notification {
	n.mu.Lock()
	if n.timer != nil {
		n.timer.Stop()
	}
	n.seq++
	id := n.seq
	note := Notification{ID: id, Kind: kind, Message: message}
	n.current = &note
	n.timer = n.afterFunc(ttl, func() { n.expire(id) })
	n.mu.Unlock()

	n.notify(&note)
	return note
}

func (n *Notifier) expire(id uint64) {
	n.mu.Lock()
	if n.current == nil || n.current.ID != id {
		n.mu.Unlock()
		return
	}
	n.clearLocked()
	n.mu.Unlock()
	n.notify(nil)
}

func (n *Notifier) clearLocked() {
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.current = nil
}

func (n *Notifier) notify(note *Notification) {
	if n.onChange == nil {
		return
	}
	if note != nil {
		cp := *note
		note = &cp
	}
	n.onChange(note)
}
