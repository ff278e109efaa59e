package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the pipeline's Prometheus collectors.
type Metrics struct {
	// Requests counts attempts by operation and outcome (success, canceled,
	// or a failure kind).
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	Retries  *prometheus.CounterVec
	// Teardowns counts sessions destroyed by a 401.
	Teardowns prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "watchtower",
			Name:      "requests_total",
			Help:      "Remote call attempts by operation and outcome",
		}, []string{"operation", "outcome"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "watchtower",
			Name:      "request_duration_seconds",
			Help:      "Remote call attempt latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
		Retries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "watchtower",
			Name:      "retries_total",
			Help:      "Retried attempts of idempotent reads",
		}, []string{"operation"}),
		Teardowns: f.NewCounter(prometheus.CounterOpts{
			Namespace: "watchtower",
			Name:      "session_teardowns_total",
			Help:      "Sessions destroyed after the remote rejected the token",
		}),
	}
}
