package aggregate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the scheduler's Prometheus collectors.
type Metrics struct {
	Cycles         prometheus.Counter
	SourceFailures *prometheus.CounterVec
	ThreatLevel    prometheus.Gauge
	ActiveThreats  prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Cycles: f.NewCounter(prometheus.CounterOpts{
			Namespace: "watchtower",
			Name:      "cycles_total",
			Help:      "Completed aggregation cycles",
		}),
		SourceFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "watchtower",
			Name:      "source_failures_total",
			Help:      "Failed source reads by source",
		}, []string{"source"}),
		ThreatLevel: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "watchtower",
			Name:      "threat_level",
			Help:      "Derived threat level of the latest snapshot",
		}),
		ActiveThreats: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "watchtower",
			Name:      "active_threats",
			Help:      "Critical plus high alerts in the latest snapshot",
		}),
	}
}
