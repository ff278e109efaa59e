// Package sink defines destinations for dashboard snapshots and the helpers
// shared by every implementation.
package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/crimson-sun/watchtower/internal/model"
)

// Sink receives published snapshots.
type Sink interface {
	Publish(ctx context.Context, snap model.Snapshot) error
	Close() error
}

// Verbosity controls how much of a snapshot a sink writes.
type Verbosity int

const (
	Minimal  Verbosity = iota // metrics and source status only
	Standard                  // long free text truncated
	Full                      // everything
)

func (v Verbosity) String() string {
	switch v {
	case Minimal:
		return "minimal"
	case Standard:
		return "standard"
	case Full:
		return "full"
	default:
		return fmt.Sprintf("Verbosity(%d)", int(v))
	}
}

// ParseVerbosity maps a config string to a Verbosity.
func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimal":
		return Minimal, nil
	case "standard", "":
		return Standard, nil
	case "full":
		return Full, nil
	default:
		return Standard, fmt.Errorf("sink: unknown verbosity %q", s)
	}
}

// Format is a text encoding for snapshot output.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat maps a config string to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatJSON, nil
	default:
		return FormatJSON, fmt.Errorf("sink: unknown format %q", s)
	}
}
