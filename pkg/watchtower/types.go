package watchtower

import (
	"github.com/crimson-sun/watchtower/internal/aggregate"
	"github.com/crimson-sun/watchtower/internal/model"
	"github.com/crimson-sun/watchtower/internal/notify"
	"github.com/crimson-sun/watchtower/internal/session"
	"github.com/crimson-sun/watchtower/internal/transport"
)

// Remote resources.
type (
	Alert         = model.Alert
	Incident      = model.Incident
	IncidentPatch = model.IncidentPatch
	Health        = model.Health
	User          = model.User
	Timeline      = model.Timeline
	EventInput    = model.EventInput
	IngestReceipt = model.IngestReceipt
	Prediction    = model.Prediction
)

// Snapshot is one consistent view of the dashboard.
type Snapshot = model.Snapshot

// Session is the analyst's current login.
type Session = session.Session

// SessionEnd describes a session destroyed by the remote rejecting its token.
type SessionEnd = session.TeardownEvent

// Notification is a user-facing message about a failed call.
type Notification = notify.Notification

// Failure is the error returned by every remote call that did not succeed.
// Use errors.As or IsKind to inspect it.
type Failure = transport.Failure

// Kind classifies a Failure.
type Kind = transport.Kind

const (
	KindNetwork      = transport.KindNetwork
	KindTimeout      = transport.KindTimeout
	KindAuthRequired = transport.KindAuthRequired
	KindClientError  = transport.KindClientError
	KindServerError  = transport.KindServerError
)

// IsKind reports whether err is a Failure of kind k.
func IsKind(err error, k Kind) bool { return transport.IsKind(err, k) }

// Watch is a running dashboard poller. Stop it to cancel in-flight reads;
// no snapshot is published after Stop returns.
type Watch = aggregate.Handle
