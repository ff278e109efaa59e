package model

import "maps"

// Clone returns a copy that shares no mutable memory with a.
func (a Alert) Clone() Alert {
	if a.AcknowledgedAt != nil {
		t := *a.AcknowledgedAt
		a.AcknowledgedAt = &t
	}
	if a.IncidentID != nil {
		id := *a.IncidentID
		a.IncidentID = &id
	}
	return a
}

// Clone returns a copy that shares no mutable memory with i.
func (i Incident) Clone() Incident {
	if i.EndTime != nil {
		t := *i.EndTime
		i.EndTime = &t
	}
	if i.AlertIDs != nil {
		i.AlertIDs = append([]int64(nil), i.AlertIDs...)
	}
	return i
}

// Clone returns a copy that shares no mutable memory with h.
func (h Health) Clone() Health {
	h.Components = maps.Clone(h.Components)
	return h
}

// CloneAlerts deep-copies alerts. The result is never nil.
func CloneAlerts(alerts []Alert) []Alert {
	out := make([]Alert, len(alerts))
	for i, a := range alerts {
		out[i] = a.Clone()
	}
	return out
}

// CloneIncidents deep-copies incidents. The result is never nil.
func CloneIncidents(incidents []Incident) []Incident {
	out := make([]Incident, len(incidents))
	for i, inc := range incidents {
		out[i] = inc.Clone()
	}
	return out
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	s.Alerts = CloneAlerts(s.Alerts)
	s.Incidents = CloneIncidents(s.Incidents)
	if s.Health != nil {
		h := s.Health.Clone()
		s.Health = &h
	}
	s.Sources = maps.Clone(s.Sources)
	return s
}
