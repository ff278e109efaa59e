package aggregate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/crimson-sun/watchtower/internal/model"
)

// DefaultInterval is the time between polling cycles.
const DefaultInterval = 30 * time.Second

var tracer = otel.Tracer("github.com/crimson-sun/watchtower/internal/aggregate")

// Publisher receives each new snapshot.
type Publisher interface {
	Publish(ctx context.Context, snap model.Snapshot) error
}

// PublisherFunc adapts a function into a Publisher.
type PublisherFunc func(ctx context.Context, snap model.Snapshot) error

func (f PublisherFunc) Publish(ctx context.Context, snap model.Snapshot) error { return f(ctx, snap) }

// Scheduler fans out to its sources once per interval.
type Scheduler struct {
	sources   []Source
	publisher Publisher
	interval  time.Duration
	now       func() time.Time
	metrics   *Metrics
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval sets the polling period.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithPublisher sets where snapshots are delivered.
func WithPublisher(p Publisher) Option {
	return func(s *Scheduler) { s.publisher = p }
}

// WithMetrics sets the collectors the scheduler records into.
func WithMetrics(m *Metrics) Option {
	return func(s *Scheduler) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithClock overrides the time source for result and snapshot timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New creates a Scheduler over sources.
func New(sources []Source, opts ...Option) *Scheduler {
	s := &Scheduler{
		sources:  sources,
		interval: DefaultInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	return s
}

// fetch reads every source concurrently. Each task reports through its own
// Result slot and returns nil, so one failure never cancels the others.
func (s *Scheduler) fetch(ctx context.Context) []Result {
	results := make([]Result, len(s.sources))
	var g errgroup.Group
	for i, src := range s.sources {
		g.Go(func() error {
			payload, err := src.Fetch(ctx)
			results[i] = Result{Source: src.Name(), Payload: payload, Err: err, At: s.now()}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Scheduler) record(results []Result, snap model.Snapshot) {
	s.metrics.Cycles.Inc()
	for _, res := range results {
		if res.Err != nil {
			s.metrics.SourceFailures.WithLabelValues(res.Source).Inc()
			slog.Warn("source read failed", "source", res.Source, "error", res.Err)
		}
	}
	s.metrics.ThreatLevel.Set(snap.ThreatLevel)
	s.metrics.ActiveThreats.Set(float64(snap.ActiveThreatCount))
}

// Cycle runs one fan-out against prev and returns the updated records and
// the snapshot numbered seq. Nothing is published.
func (s *Scheduler) Cycle(ctx context.Context, prev Records, seq uint64) (Records, model.Snapshot) {
	ctx, span := tracer.Start(ctx, "watchtower.aggregate.cycle",
		trace.WithAttributes(attribute.Int64("watchtower.sequence", int64(seq))))
	defer span.End()

	results := s.fetch(ctx)
	next := Reduce(prev, results)
	snap := Build(seq, next, s.now())
	s.record(results, snap)
	return next, snap
}

// Start runs a cycle immediately and then once per interval until the
// returned Handle is stopped or ctx is done.
func (s *Scheduler) Start(ctx context.Context) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		s:      s,
		cancel: cancel,
		done:   make(chan struct{}),
		recs:   Records{},
	}
	go h.run(ctx)
	return h
}

// Handle controls one running scheduler loop.
type Handle struct {
	s      *Scheduler
	cancel context.CancelFunc
	done   chan struct{}

	// mu orders Stop against applying and publishing a cycle's results.
	mu      sync.Mutex
	stopped bool
	recs    Records
	seq     uint64
	latest  model.Snapshot
	hasSnap bool
}

// Stop ends the loop. Results of reads still in flight are discarded and
// nothing is published after Stop returns. Safe to call more than once.
func (h *Handle) Stop() {
	h.mu.Lock()
	h.stopped = true
	h.mu.Unlock()
	h.cancel()
}

// Done is closed when the loop has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Latest returns the most recently published snapshot. ok is false before
// the first cycle completes.
func (h *Handle) Latest() (snap model.Snapshot, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.hasSnap {
		return model.Snapshot{}, false
	}
	return h.latest.Clone(), true
}

func (h *Handle) run(ctx context.Context) {
	defer close(h.done)

	ticker := time.NewTicker(h.s.interval)
	defer ticker.Stop()

	h.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.cycle(ctx)
		}
	}
}

func (h *Handle) cycle(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "watchtower.aggregate.cycle")
	defer span.End()

	results := h.s.fetch(ctx)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped || ctx.Err() != nil {
		span.SetAttributes(attribute.Bool("watchtower.discarded", true))
		slog.Debug("discarding cycle results after stop")
		return
	}

	h.recs = Reduce(h.recs, results)
	h.seq++
	snap := Build(h.seq, h.recs, h.s.now())
	h.s.record(results, snap)
	span.SetAttributes(attribute.Int64("watchtower.sequence", int64(h.seq)))

	h.latest = snap
	h.hasSnap = true
	if h.s.publisher == nil {
		return
	}
	if err := h.s.publisher.Publish(ctx, snap.Clone()); err != nil {
		slog.Warn("publishing snapshot failed", "sequence", snap.Sequence, "error", err)
	}
}
