package model

import "time"

// EventInput is a raw security event submitted for ingestion or scoring.
type EventInput struct {
	Timestamp        time.Time `json:"timestamp"`
	UserID           string    `json:"user_id"`
	SrcIP            string    `json:"src_ip"`
	DstIP            string    `json:"dst_ip,omitempty"`
	EventType        string    `json:"event_type"`
	FileName         string    `json:"file_name,omitempty"`
	BytesTransferred int64     `json:"bytes_transferred,omitempty"`
	Process          string    `json:"process,omitempty"`
	Device           string    `json:"device,omitempty"`
	Success          *bool     `json:"success,omitempty"`
	GeoCountry       string    `json:"geo_country,omitempty"`
}

// IngestReceipt acknowledges a stored event.
type IngestReceipt struct {
	EventID int64  `json:"event_id"`
	Status  string `json:"status"`
}

// Prediction is the remote ensemble's verdict for one event.
type Prediction struct {
	ThreatScore    float64 `json:"threat_score"`
	ThreatLevel    string  `json:"threat_level"`
	IsMalicious    bool    `json:"is_malicious"`
	MitreTactic    string  `json:"mitre_tactic,omitempty"`
	MitreTechnique string  `json:"mitre_technique,omitempty"`
}
