package model

import "time"

// Incident groups correlated alerts for one user into an attack chain.
type Incident struct {
	ID              int64      `json:"id" yaml:"id"`
	IncidentNumber  string     `json:"incident_number" yaml:"incident_number"`
	UserID          string     `json:"user_id" yaml:"user_id"`
	StartTime       time.Time  `json:"start_time" yaml:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty" yaml:"end_time,omitempty"`
	Severity        string     `json:"severity" yaml:"severity"`
	Status          string     `json:"status" yaml:"status"`
	Narrative       string     `json:"narrative,omitempty" yaml:"narrative,omitempty"`
	AssignedTo      string     `json:"assigned_to,omitempty" yaml:"assigned_to,omitempty"`
	ResolutionNotes string     `json:"resolution_notes,omitempty" yaml:"resolution_notes,omitempty"`
	FalsePositive   bool       `json:"false_positive,omitempty" yaml:"false_positive,omitempty"`
	AlertIDs        []int64    `json:"alert_ids,omitempty" yaml:"alert_ids,omitempty"`
}

// Incident statuses used by the remote service.
const (
	IncidentOpen          = "open"
	IncidentInvestigating = "investigating"
	IncidentResolved      = "resolved"
	IncidentClosed        = "closed"
)

// IncidentPatch is the body of PATCH /incidents/{id}. Nil fields are left unchanged.
type IncidentPatch struct {
	Status          *string `json:"status,omitempty"`
	AssignedTo      *string `json:"assigned_to,omitempty"`
	ResolutionNotes *string `json:"resolution_notes,omitempty"`
	FalsePositive   *bool   `json:"false_positive,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p IncidentPatch) Empty() bool {
	return p.Status == nil && p.AssignedTo == nil && p.ResolutionNotes == nil && p.FalsePositive == nil
}
