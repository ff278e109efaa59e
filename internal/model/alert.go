package model

import "time"

// Alert is a detection raised by the remote service for a monitored user.
type Alert struct {
	ID             int64      `json:"id" yaml:"id"`
	Timestamp      time.Time  `json:"timestamp" yaml:"timestamp"`
	UserID         string     `json:"user_id" yaml:"user_id"`
	ThreatScore    float64    `json:"threat_score" yaml:"threat_score"`
	ThreatLevel    string     `json:"threat_level" yaml:"threat_level"`
	MitreTactic    string     `json:"mitre_tactic,omitempty" yaml:"mitre_tactic,omitempty"`
	MitreTechnique string     `json:"mitre_technique,omitempty" yaml:"mitre_technique,omitempty"`
	Description    string     `json:"description,omitempty" yaml:"description,omitempty"`
	Acknowledged   bool       `json:"is_acknowledged,omitempty" yaml:"is_acknowledged,omitempty"`
	AcknowledgedBy string     `json:"acknowledged_by,omitempty" yaml:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty" yaml:"acknowledged_at,omitempty"`
	IncidentID     *int64     `json:"incident_id,omitempty" yaml:"incident_id,omitempty"`
}

// Severity returns the normalized threat level.
func (a Alert) Severity() Severity {
	return ParseSeverity(a.ThreatLevel)
}
