package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/crimson-sun/watchtower/internal/model"
	"github.com/crimson-sun/watchtower/internal/sink"
)

const defaultDrainTimeout = 5 * time.Second

// Option configures an Async wrapper.
type Option func(*Async)

// WithOnError sets the callback invoked when the inner sink's Publish fails.
// Default: logs a warning via slog.
func WithOnError(f func(error)) Option {
	return func(a *Async) { a.errFunc = f }
}

// Async decouples the scheduler from slow sinks. It holds at most one pending
// snapshot: each snapshot replaces the previous one rather than merging with
// it, so a snapshot still waiting when the next arrives is superseded and
// never delivered. A background goroutine hands the pending snapshot to the
// wrapped sink. Publish never blocks.
type Async struct {
	inner   sink.Sink
	errFunc func(error)

	mu         sync.Mutex
	pending    *model.Snapshot
	superseded uint64
	closed     bool

	wake      chan struct{}
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New wraps a sink. The delivery goroutine starts immediately.
func New(inner sink.Sink, opts ...Option) *Async {
	a := &Async{
		inner:   inner,
		errFunc: func(err error) { slog.Warn("async sink publish error", "error", err) },
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	go a.run()
	return a
}

// Publish makes snap the pending snapshot, replacing any older one that the
// inner sink has not picked up yet. Publishing after Close is a no-op.
func (a *Async) Publish(_ context.Context, snap model.Snapshot) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	if a.pending != nil {
		a.superseded++
		slog.Debug("snapshot superseded before delivery",
			"sequence", a.pending.Sequence,
			"by", snap.Sequence,
		)
	}
	a.pending = &snap
	a.mu.Unlock()

	select {
	case a.wake <- struct{}{}:
	default:
	}
	return nil
}

// Superseded reports how many snapshots were replaced before delivery.
func (a *Async) Superseded() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.superseded
}

// Close delivers the last pending snapshot, waits for delivery to finish
// (with a timeout), then closes the inner sink.
func (a *Async) Close() error {
	var err error
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		a.mu.Unlock()
		close(a.stop)
		select {
		case <-a.done:
		case <-time.After(defaultDrainTimeout):
			slog.Warn("async sink drain timed out")
		}
		err = a.inner.Close()
	})
	return err
}

func (a *Async) run() {
	defer close(a.done)
	for {
		select {
		case <-a.wake:
			a.deliver()
		case <-a.stop:
			a.deliver()
			return
		}
	}
}

func (a *Async) deliver() {
	a.mu.Lock()
	snap := a.pending
	a.pending = nil
	a.mu.Unlock()
	if snap == nil {
		return
	}
	if err := a.inner.Publish(context.Background(), *snap); err != nil {
		a.errFunc(err)
	}
}
