package aggregate

import (
	"time"

	"github.com/crimson-sun/watchtower/internal/model"
)

// Build renders records into an immutable snapshot. Payloads are deep-copied
// so later cycles cannot reach into a published snapshot.
func Build(seq uint64, recs Records, at time.Time) model.Snapshot {
	alerts, _ := recs[SourceAlerts].Payload.([]model.Alert)
	incidents, _ := recs[SourceIncidents].Payload.([]model.Incident)

	snap := model.Snapshot{
		Sequence:    seq,
		Alerts:      model.CloneAlerts(alerts),
		Incidents:   model.CloneIncidents(incidents),
		Sources:     make(map[string]model.SourceStatus, len(recs)),
		GeneratedAt: at,
	}
	if h, ok := recs[SourceHealth].Payload.(model.Health); ok {
		h = h.Clone()
		snap.Health = &h
	}

	threat := DeriveThreat(snap.Alerts)
	snap.ThreatLevel = threat.Level
	snap.ActiveThreatCount = threat.Active
	snap.CriticalCount = threat.Critical
	snap.HighCount = threat.High

	for name, rec := range recs {
		st := model.SourceStatus{
			UpdatedAt:           rec.UpdatedAt,
			LastErrorAt:         rec.LastErrorAt,
			Stale:               rec.Stale(),
			ConsecutiveFailures: rec.ConsecutiveFailures,
		}
		if rec.LastError != nil {
			st.LastError = rec.LastError.Error()
		}
		snap.Sources[name] = st
	}
	return snap
}
