package multi

import (
	"context"
	"errors"

	"github.com/crimson-sun/watchtower/internal/model"
	"github.com/crimson-sun/watchtower/internal/sink"
)

// Multi fans out snapshots to multiple sinks.
// Each Publish call delivers the snapshot to every wrapped sink sequentially.
// If one sink fails, the remaining sinks still receive the snapshot.
type Multi struct {
	sinks []sink.Sink
}

// New creates a Multi that fans out to the given sinks.
func New(sinks ...sink.Sink) *Multi {
	return &Multi{sinks: sinks}
}

// Publish delivers the snapshot to every wrapped sink. Errors are collected
// but do not prevent delivery to subsequent sinks.
func (m *Multi) Publish(ctx context.Context, snap model.Snapshot) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Publish(ctx, snap); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close calls Close on every wrapped sink, collecting errors.
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
