// Package transport is the single path every remote call takes. It attaches
// the session token, sends the request, classifies the outcome, tears the
// session down when the remote rejects its token, retries idempotent reads
// and reports terminal failures to the user.
package transport

import (
	"errors"
	"fmt"
)

// Kind categorizes a failed call.
type Kind int

const (
	KindNetwork Kind = iota + 1
	KindTimeout
	KindAuthRequired
	KindClientError
	KindServerError
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindAuthRequired:
		return "auth_required"
	case KindClientError:
		return "client_error"
	case KindServerError:
		return "server_error"
	default:
		return "unknown"
	}
}

// Retryable reports whether a failure of this kind may succeed on a later attempt.
func (k Kind) Retryable() bool {
	return k == KindNetwork || k == KindTimeout || k == KindServerError
}

// Failure is the classified outcome of a call that did not succeed.
type Failure struct {
	Kind   Kind
	Status int    // HTTP status; 0 when no response arrived
	Detail string // most specific human-readable message available
	Body   string // first 512 bytes of the response body

	Operation string
	Method    string
	Path      string

	Err error // underlying transport error, if any
}

func (f *Failure) Error() string {
	where := f.Operation
	if where == "" {
		where = f.Method + " " + f.Path
	}
	if f.Status != 0 {
		return fmt.Sprintf("%s: %s (HTTP %d): %s", where, f.Kind, f.Status, f.Detail)
	}
	return fmt.Sprintf("%s: %s: %s", where, f.Kind, f.Detail)
}

func (f *Failure) Unwrap() error { return f.Err }

// IsKind reports whether err is a *Failure of kind k.
func IsKind(err error, k Kind) bool {
	var f *Failure
	return errors.As(err, &f) && f.Kind == k
}

// AsFailure returns the *Failure in err's chain, if any.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
