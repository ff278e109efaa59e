// Package notify dispatches user-visible notifications. Classification of a
// failure happens elsewhere; this package only delivers the resulting message.
package notify

import (
	"time"

	"github.com/google/uuid"
)

// Level is the urgency of a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notification is a non-blocking message for the end user.
type Notification struct {
	ID        string
	Level     Level
	Kind      string // failure kind or event category, e.g. "timeout", "session"
	Operation string // logical operation that produced it, e.g. "alerts.recent"
	Message   string
	At        time.Time
}

// New builds a Notification with a fresh ID and the current time.
func New(level Level, kind, operation, message string) Notification {
	return Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Kind:      kind,
		Operation: operation,
		Message:   message,
		At:        time.Now(),
	}
}

// Notifier delivers notifications. Implementations must not block the caller
// for long; wrap slow ones in Async.
type Notifier interface {
	Notify(n Notification)
}

// Func adapts a function to the Notifier interface.
type Func func(Notification)

func (f Func) Notify(n Notification) { f(n) }

// Nop discards every notification.
type Nop struct{}

func (Nop) Notify(Notification) {}
