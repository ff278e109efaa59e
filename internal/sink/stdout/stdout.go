package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/crimson-sun/watchtower/internal/model"
	"github.com/crimson-sun/watchtower/internal/sink"
)

func init() {
	sink.Register("stdout", func(cfg sink.Config) (sink.Sink, error) {
		w := cfg.Writer
		if w == nil {
			w = os.Stdout
		}
		return New(w, cfg.Format, cfg.Verbosity, cfg.Pretty), nil
	})
}

type encoder interface {
	Encode(v any) error
}

// Sink writes each snapshot to a writer as one JSON object per line (or
// indented when pretty) or as a YAML document.
type Sink struct {
	mu        sync.Mutex
	enc       encoder
	yaml      *yaml.Encoder
	verbosity sink.Verbosity
}

// New creates a stdout sink writing to w.
func New(w io.Writer, format sink.Format, verbosity sink.Verbosity, pretty bool) *Sink {
	s := &Sink{verbosity: verbosity}
	if format == sink.FormatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		s.enc, s.yaml = enc, enc
		return s
	}
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	s.enc = enc
	return s
}

func (s *Sink) Publish(_ context.Context, snap model.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(sink.FormatSnapshot(snap, s.verbosity)); err != nil {
		return fmt.Errorf("stdout sink: %w", err)
	}
	return nil
}

// Close terminates the YAML stream. It does not close the writer.
func (s *Sink) Close() error {
	if s.yaml != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.yaml.Close()
	}
	return nil
}
