package model

import "time"

// User is an analyst account on the remote service.
type User struct {
	ID       int64  `json:"id,omitempty"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
}

// Timeline is a monitored user's recent activity.
type Timeline struct {
	UserID      string          `json:"user_id"`
	TotalEvents int             `json:"total_events"`
	TotalAlerts int             `json:"total_alerts"`
	Events      []TimelineEvent `json:"events"`
	Alerts      []TimelineAlert `json:"alerts"`
}

// TimelineEvent is one raw event in a user timeline.
type TimelineEvent struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	SrcIP     string    `json:"src_ip,omitempty"`
	Success   bool      `json:"success"`
}

// TimelineAlert is one alert summary in a user timeline.
type TimelineAlert struct {
	Timestamp   time.Time `json:"timestamp"`
	ThreatScore float64   `json:"threat_score"`
	ThreatLevel string    `json:"threat_level"`
	Description string    `json:"description,omitempty"`
}
