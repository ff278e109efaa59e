package aggregate

import (
	"maps"
	"time"
)

// Result is the tagged outcome of one source read in one cycle.
type Result struct {
	Source  string
	Payload any
	Err     error
	At      time.Time
}

// Record is the accumulated state of one source across cycles.
type Record struct {
	Payload             any
	UpdatedAt           time.Time
	LastError           error
	LastErrorAt         time.Time
	ConsecutiveFailures int
}

// HasPayload reports whether the source has ever succeeded.
func (r Record) HasPayload() bool { return !r.UpdatedAt.IsZero() }

// Stale reports whether the most recent read of the source failed or it has
// never succeeded.
func (r Record) Stale() bool {
	return !r.HasPayload() || r.LastErrorAt.After(r.UpdatedAt)
}

// Records maps a source name to its record.
type Records map[string]Record

// Reduce applies one cycle's results to prev and returns the new records.
// prev is not modified. A successful result replaces the source's payload; a
// failed one keeps the previous payload and records the error. Sources
// without a result in this cycle are carried over unchanged.
func Reduce(prev Records, results []Result) Records {
	next := make(Records, len(prev)+len(results))
	maps.Copy(next, prev)
	for _, res := range results {
		rec := next[res.Source]
		if res.Err != nil {
			rec.LastError = res.Err
			rec.LastErrorAt = res.At
			rec.ConsecutiveFailures++
		} else {
			rec.Payload = res.Payload
			rec.UpdatedAt = res.At
			rec.ConsecutiveFailures = 0
		}
		next[res.Source] = rec
	}
	return next
}
