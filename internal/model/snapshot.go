package model

import "time"

// Snapshot is one fully merged dashboard view, published once per poll cycle.
// A published Snapshot is never mutated; the next cycle replaces it.
type Snapshot struct {
	Sequence          uint64                  `json:"sequence" yaml:"sequence"`
	Alerts            []Alert                 `json:"alerts" yaml:"alerts"`
	Incidents         []Incident              `json:"incidents" yaml:"incidents"`
	Health            *Health                 `json:"health,omitempty" yaml:"health,omitempty"`
	ThreatLevel       float64                 `json:"derived_threat_level" yaml:"derived_threat_level"`
	ActiveThreatCount int                     `json:"active_threat_count" yaml:"active_threat_count"`
	CriticalCount     int                     `json:"critical_count" yaml:"critical_count"`
	HighCount         int                     `json:"high_count" yaml:"high_count"`
	Sources           map[string]SourceStatus `json:"sources" yaml:"sources"`
	GeneratedAt       time.Time               `json:"generated_at" yaml:"generated_at"`
}

// SourceStatus reports the freshness of one aggregated source within a snapshot.
type SourceStatus struct {
	UpdatedAt   time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	LastError   string    `json:"last_error,omitempty" yaml:"last_error,omitempty"`
	LastErrorAt time.Time `json:"last_error_at,omitempty" yaml:"last_error_at,omitempty"`
	Stale       bool      `json:"stale" yaml:"stale"`

	// ConsecutiveFailures resets to zero on the next successful read.
	ConsecutiveFailures int `json:"consecutive_failures,omitempty" yaml:"consecutive_failures,omitempty"`
}
