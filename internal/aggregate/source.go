// Package aggregate polls several independent remote sources on a timer and
// merges what they return into one dashboard snapshot. A failing source never
// blanks out the others: it keeps its last good payload and records the error.
package aggregate

import (
	"context"

	"github.com/crimson-sun/watchtower/internal/model"
)

// Names of the built-in sources.
const (
	SourceAlerts    = "alerts"
	SourceIncidents = "incidents"
	SourceHealth    = "health"
)

// Source is one independently failing read.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (any, error)
}

type funcSource struct {
	name string
	fn   func(ctx context.Context) (any, error)
}

func (s funcSource) Name() string { return s.name }
func (s funcSource) Fetch(ctx context.Context) (any, error) { return s.fn(ctx) }

// NewSource adapts a function into a Source.
func NewSource(name string, fn func(ctx context.Context) (any, error)) Source {
	return funcSource{name: name, fn: fn}
}

// Reader is the part of the remote API the dashboard polls.
type Reader interface {
	Health(ctx context.Context) (model.Health, error)
	RecentAlerts(ctx context.Context, limit int) ([]model.Alert, error)
	Incidents(ctx context.Context, status string) ([]model.Incident, error)
}

// DashboardSources returns the alerts, incidents and health sources backed by r.
func DashboardSources(r Reader, alertLimit int, incidentStatus string) []Source {
	return []Source{
		NewSource(SourceAlerts, func(ctx context.Context) (any, error) {
			return r.RecentAlerts(ctx, alertLimit)
		}),
		NewSource(SourceIncidents, func(ctx context.Context) (any, error) {
			return r.Incidents(ctx, incidentStatus)
		}),
		NewSource(SourceHealth, func(ctx context.Context) (any, error) {
			return r.Health(ctx)
		}),
	}
}
