// Package session owns the client's authentication state: the bearer token,
// the identity it belongs to, and the minimal record persisted between runs.
//
// The Store is the only writer. The request pipeline reads the token on every
// call and reports authorization failures back through Teardown; it never
// mutates the session directly.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultRole is assigned when neither the login response nor the token names a role.
const DefaultRole = "analyst"

// ErrNotAuthenticated is returned by operations that need a session when none exists.
var ErrNotAuthenticated = errors.New("session: not authenticated")

// Identity is who the token belongs to.
type Identity struct {
	Handle string `json:"handle"`
	Role   string `json:"role"`
}

// Session is a point-in-time copy of the authentication state.
type Session struct {
	Token     string    `json:"token,omitempty"`
	Identity  *Identity `json:"identity,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Authenticated reports whether both a token and an identity are present.
func (s Session) Authenticated() bool {
	return s.Token != "" && s.Identity != nil
}

// Expired reports whether the token carries an expiry that has passed.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Grant is what the remote service returns for a successful credential exchange.
type Grant struct {
	AccessToken string
	TokenType   string
	User        *GrantUser // nil when the remote omits it
}

// GrantUser is the optional identity block of a login response.
type GrantUser struct {
	Username string
	Role     string
}

// Authenticator exchanges credentials for a Grant. It must use the
// unauthenticated request path so that a rejected login does not tear down
// the current session.
type Authenticator interface {
	Authenticate(ctx context.Context, handle, secret string) (Grant, error)
}

// AuthError reports a failed login. The prior session is left untouched.
type AuthError struct {
	Handle string
	Err    error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("session: login as %q failed: %v", e.Handle, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// TeardownEvent is delivered to subscribers when a session is destroyed
// because the remote rejected its token. Subscribers typically send the user
// back to the login surface.
type TeardownEvent struct {
	Handle string
	Reason string
	At     time.Time
}

var (
	errNoAuthenticator = errors.New("no authenticator configured")
	errEmptyToken      = errors.New("remote returned an empty access token")
)
