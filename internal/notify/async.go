package notify

import (
	"log/slog"
	"sync"
	"time"
)

const (
	defaultBufferSize   = 64
	defaultDrainTimeout = 2 * time.Second
)

// AsyncOption configures an Async notifier.
type AsyncOption func(*Async)

// WithBufferSize sets the channel capacity. Default: 64.
func WithBufferSize(n int) AsyncOption {
	return func(a *Async) { a.bufSize = n }
}

// Async decouples notification producers from a slow notifier. Notify never
// blocks: when the buffer is full the notification is dropped and logged.
type Async struct {
	inner     Notifier
	ch        chan Notification
	done      chan struct{}
	bufSize   int
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// NewAsync wraps inner and starts the drain goroutine.
func NewAsync(inner Notifier, opts ...AsyncOption) *Async {
	a := &Async{inner: inner, bufSize: defaultBufferSize}
	for _, opt := range opts {
		opt(a)
	}
	a.ch = make(chan Notification, a.bufSize)
	a.done = make(chan struct{})
	go a.drain()
	return a
}

// Notify enqueues n, dropping it if the buffer is full or the notifier is closed.
func (a *Async) Notify(n Notification) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}
	select {
	case a.ch <- n:
	default:
		slog.Warn("notification buffer full, dropping", "kind", n.Kind, "operation", n.Operation)
	}
}

// Close stops accepting notifications and waits (bounded) for the backlog to drain.
func (a *Async) Close() error {
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		close(a.ch)
		a.mu.Unlock()
		select {
		case <-a.done:
		case <-time.After(defaultDrainTimeout):
			slog.Warn("notification drain timed out")
		}
	})
	return nil
}

func (a *Async) drain() {
	defer close(a.done)
	for n := range a.ch {
		a.inner.Notify(n)
	}
}
