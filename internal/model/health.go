package model

// Health is the remote service's self-reported status.
type Health struct {
	Status     string            `json:"status" yaml:"status"`
	Version    string            `json:"version,omitempty" yaml:"version,omitempty"`
	Message    string            `json:"message,omitempty" yaml:"message,omitempty"`
	Components map[string]string `json:"components,omitempty" yaml:"components,omitempty"`
}
