package aggregate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/watchtower/internal/model"
)

func alertsWith(levels ...string) []model.Alert {
	out := make([]model.Alert, len(levels))
	for i, l := range levels {
		out[i] = model.Alert{ID: int64(i + 1), UserID: "u1", ThreatLevel: l}
	}
	return out
}

func TestDeriveThreat(t *testing.T) {
	th := DeriveThreat(alertsWith("critical", "critical", "high", "high", "high", "medium", "low"))
	assert.Equal(t, 2, th.Critical)
	assert.Equal(t, 3, th.High)
	assert.Equal(t, 5, th.Active)
	assert.InDelta(t, 0.09, th.Level, 1e-9)
}

func TestDeriveThreatCaseInsensitiveAndCapped(t *testing.T) {
	levels := make([]string, 0, 40)
	for i := 0; i < 40; i++ {
		levels = append(levels, "CRITICAL")
	}
	th := DeriveThreat(alertsWith(levels...))
	assert.Equal(t, 40, th.Critical)
	assert.InDelta(t, 0.9, th.Level, 1e-9)

	assert.Equal(t, Threat{}, DeriveThreat(nil))
	assert.Zero(t, DeriveThreat(alertsWith("unknown", "")).Active)
}

func TestReduceKeepsLastGoodPayload(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(30 * time.Second)
	boom := errors.New("incidents: server_error (HTTP 503)")

	first := Reduce(nil, []Result{
		{Source: SourceAlerts, Payload: alertsWith("high"), At: t0},
		{Source: SourceIncidents, Payload: []model.Incident{{ID: 1}}, At: t0},
	})
	second := Reduce(first, []Result{
		{Source: SourceAlerts, Payload: alertsWith("critical", "high"), At: t1},
		{Source: SourceIncidents, Err: boom, At: t1},
	})

	assert.Len(t, second[SourceAlerts].Payload, 2)
	assert.Equal(t, []model.Incident{{ID: 1}}, second[SourceIncidents].Payload)
	assert.Equal(t, boom, second[SourceIncidents].LastError)
	assert.Equal(t, t0, second[SourceIncidents].UpdatedAt)
	assert.Equal(t, 1, second[SourceIncidents].ConsecutiveFailures)
	assert.True(t, second[SourceIncidents].Stale())
	assert.False(t, second[SourceAlerts].Stale())

	// prev is untouched.
	assert.Len(t, first[SourceAlerts].Payload, 1)
	assert.Nil(t, first[SourceIncidents].LastError)
}

func TestReduceResetsFailureCount(t *testing.T) {
	t0 := time.Now()
	recs := Reduce(nil, []Result{{Source: SourceHealth, Err: errors.New("down"), At: t0}})
	recs = Reduce(recs, []Result{{Source: SourceHealth, Err: errors.New("down"), At: t0.Add(time.Second)}})
	assert.Equal(t, 2, recs[SourceHealth].ConsecutiveFailures)
	assert.False(t, recs[SourceHealth].HasPayload())

	recs = Reduce(recs, []Result{{Source: SourceHealth, Payload: model.Health{Status: "healthy"}, At: t0.Add(2 * time.Second)}})
	assert.Zero(t, recs[SourceHealth].ConsecutiveFailures)
	assert.False(t, recs[SourceHealth].Stale())
}

func TestBuildDerivesMetricsAndCopies(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	alerts := alertsWith("critical", "critical", "high", "high", "high")
	recs := Records{
		SourceAlerts: {Payload: alerts, UpdatedAt: at},
		SourceHealth: {Payload: model.Health{Status: "healthy", Components: map[string]string{"db": "ok"}}, UpdatedAt: at},
		SourceIncidents: {
			LastError:   errors.New("boom"),
			LastErrorAt: at,
		},
	}

	snap := Build(7, recs, at)
	assert.Equal(t, uint64(7), snap.Sequence)
	assert.Equal(t, 5, snap.ActiveThreatCount)
	assert.Equal(t, 2, snap.CriticalCount)
	assert.Equal(t, 3, snap.HighCount)
	assert.InDelta(t, 0.09, snap.ThreatLevel, 1e-9)
	assert.NotNil(t, snap.Incidents)
	assert.Empty(t, snap.Incidents)
	require.NotNil(t, snap.Health)
	assert.True(t, snap.Sources[SourceIncidents].Stale)
	assert.Equal(t, "boom", snap.Sources[SourceIncidents].LastError)

	snap.Alerts[0].ThreatLevel = "low"
	snap.Health.Components["db"] = "down"
	assert.Equal(t, "critical", alerts[0].ThreatLevel)
	assert.Equal(t, "ok", recs[SourceHealth].Payload.(model.Health).Components["db"])
}

// switchable is a source whose next outcome the test controls.
type switchable struct {
	name string
	mu   sync.Mutex
	val  any
	err  error
}

func (s *switchable) Name() string { return s.name }

func (s *switchable) Fetch(context.Context) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.val, s.err
}

func (s *switchable) set(val any, err error) {
	s.mu.Lock()
	s.val, s.err = val, err
	s.mu.Unlock()
}

func TestCycleIsolatesFailingSource(t *testing.T) {
	alerts := &switchable{name: SourceAlerts, val: alertsWith("high")}
	incidents := &switchable{name: SourceIncidents, val: []model.Incident{{ID: 1, Status: "open"}}}
	health := &switchable{name: SourceHealth, val: model.Health{Status: "healthy"}}

	reg := prometheus.NewRegistry()
	s := New([]Source{alerts, incidents, health}, WithMetrics(NewMetrics(reg)))

	recs, first := s.Cycle(context.Background(), nil, 1)
	assert.Len(t, first.Incidents, 1)

	alerts.set(alertsWith("critical", "high"), nil)
	health.set(model.Health{Status: "degraded"}, nil)
	incidents.set(nil, errors.New("incidents.list: server_error (HTTP 500)"))

	_, second := s.Cycle(context.Background(), recs, 2)
	assert.Len(t, second.Alerts, 2, "fresh alerts")
	assert.Equal(t, "degraded", second.Health.Status, "fresh health")
	require.Len(t, second.Incidents, 1, "previous incidents retained")
	assert.Equal(t, int64(1), second.Incidents[0].ID)
	assert.True(t, second.Sources[SourceIncidents].Stale)
	assert.Contains(t, second.Sources[SourceIncidents].LastError, "HTTP 500")
	assert.False(t, second.Sources[SourceAlerts].Stale)
	assert.Equal(t, 2, second.ActiveThreatCount)

	families, err := reg.Gather()
	require.NoError(t, err)
	found := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				found[mf.GetName()] += c.GetValue()
			}
		}
	}
	assert.Equal(t, float64(2), found["watchtower_cycles_total"])
	assert.Equal(t, float64(1), found["watchtower_source_failures_total"])
}

func TestCycleRunsSourcesConcurrently(t *testing.T) {
	var inFlight, peak atomic.Int32
	release := make(chan struct{})
	slow := func(name string) Source {
		return NewSource(name, func(ctx context.Context) (any, error) {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			<-release
			inFlight.Add(-1)
			return nil, nil
		})
	}
	s := New([]Source{slow("a"), slow("b"), slow("c")})

	done := make(chan struct{})
	go func() {
		s.Cycle(context.Background(), nil, 1)
		close(done)
	}()
	require.Eventually(t, func() bool { return inFlight.Load() == 3 }, time.Second, time.Millisecond)
	close(release)
	<-done
	assert.Equal(t, int32(3), peak.Load())
}

type recordingPublisher struct {
	mu    sync.Mutex
	snaps []model.Snapshot
}

func (p *recordingPublisher) Publish(_ context.Context, s model.Snapshot) error {
	p.mu.Lock()
	p.snaps = append(p.snaps, s)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) all() []model.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.Snapshot(nil), p.snaps...)
}

func TestStartPublishesImmediatelyAndPeriodically(t *testing.T) {
	pub := &recordingPublisher{}
	s := New([]Source{&switchable{name: SourceAlerts, val: alertsWith("critical")}},
		WithInterval(10*time.Millisecond), WithPublisher(pub))

	h := s.Start(context.Background())
	require.Eventually(t, func() bool { return len(pub.all()) >= 3 }, 2*time.Second, 5*time.Millisecond)
	h.Stop()
	<-h.Done()

	snaps := pub.all()
	for i := 1; i < len(snaps); i++ {
		assert.Greater(t, snaps[i].Sequence, snaps[i-1].Sequence)
	}
	latest, ok := h.Latest()
	require.True(t, ok)
	assert.Equal(t, snaps[len(snaps)-1].Sequence, latest.Sequence)
	assert.Equal(t, 1, latest.CriticalCount)
}

func TestFirstCycleRunsBeforeInterval(t *testing.T) {
	pub := &recordingPublisher{}
	s := New([]Source{&switchable{name: SourceHealth, val: model.Health{Status: "healthy"}}},
		WithInterval(time.Hour), WithPublisher(pub))

	h := s.Start(context.Background())
	defer h.Stop()
	require.Eventually(t, func() bool { return len(pub.all()) == 1 }, time.Second, time.Millisecond)
}

func TestStopDiscardsInFlightResults(t *testing.T) {
	pub := &recordingPublisher{}
	started := make(chan struct{})
	release := make(chan struct{})
	// Ignores ctx so the result arrives after Stop regardless of cancellation.
	blocking := NewSource(SourceAlerts, func(context.Context) (any, error) {
		close(started)
		<-release
		return alertsWith("critical"), nil
	})

	h := New([]Source{blocking}, WithInterval(time.Hour), WithPublisher(pub)).Start(context.Background())
	<-started
	h.Stop()
	h.Stop()
	close(release)

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not exit")
	}
	assert.Empty(t, pub.all())
	_, ok := h.Latest()
	assert.False(t, ok)
}

func TestParentCancelStopsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New(nil, WithInterval(5*time.Millisecond)).Start(ctx)
	cancel()
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not exit")
	}
}

func TestPublishedSnapshotsAreIndependent(t *testing.T) {
	pub := &recordingPublisher{}
	src := &switchable{name: SourceAlerts, val: alertsWith("critical")}
	h := New([]Source{src}, WithInterval(5*time.Millisecond), WithPublisher(pub)).Start(context.Background())
	require.Eventually(t, func() bool { return len(pub.all()) >= 1 }, time.Second, time.Millisecond)

	first := pub.all()[0]
	first.Alerts[0].ThreatLevel = "low"

	require.Eventually(t, func() bool { return len(pub.all()) >= 2 }, time.Second, time.Millisecond)
	h.Stop()
	<-h.Done()
	assert.Equal(t, "critical", pub.all()[1].Alerts[0].ThreatLevel)
}

type stubReader struct{}

func (stubReader) Health(context.Context) (model.Health, error) {
	return model.Health{Status: "healthy"}, nil
}

func (stubReader) RecentAlerts(_ context.Context, limit int) ([]model.Alert, error) {
	return alertsWith("high"), nil
}

func (stubReader) Incidents(_ context.Context, status string) ([]model.Incident, error) {
	return []model.Incident{{ID: 1, Status: status}}, nil
}

func TestDashboardSources(t *testing.T) {
	s := New(DashboardSources(stubReader{}, 20, "open"))
	_, snap := s.Cycle(context.Background(), nil, 1)
	assert.Len(t, snap.Alerts, 1)
	require.Len(t, snap.Incidents, 1)
	assert.Equal(t, "open", snap.Incidents[0].Status)
	assert.Equal(t, "healthy", snap.Health.Status)
	assert.Len(t, snap.Sources, 3)
}
