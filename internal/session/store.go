package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Store holds the single authoritative session. It is safe for concurrent
// use: the request pipeline reads the token while login, logout and teardown
// replace it.
type Store struct {
	auth      Authenticator
	persister Persister
	now       func() time.Time

	mu        sync.RWMutex
	cur       Session
	listeners []func(TeardownEvent)
}

// Option configures a Store.
type Option func(*Store)

// WithPersister sets where the session record is kept between runs.
// Without it the session lives only in memory.
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persister = p }
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a Store and restores any persisted session. A missing,
// unreadable or expired record leaves the store unauthenticated.
func NewStore(auth Authenticator, opts ...Option) *Store {
	s := &Store{
		auth: auth,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.restore()
	return s
}

func (s *Store) restore() {
	if s.persister == nil {
		return
	}
	rec, ok, err := s.persister.Load()
	if err != nil {
		slog.Warn("discarding unreadable session record", "error", err)
		_ = s.persister.Clear()
		return
	}
	if !ok {
		return
	}
	if !rec.Authenticated() {
		_ = s.persister.Clear()
		return
	}
	if rec.ExpiresAt.IsZero() {
		_, _, rec.ExpiresAt = inspectToken(rec.Token)
	}
	if rec.Expired(s.now()) {
		slog.Info("persisted session expired", "handle", rec.Identity.Handle, "expired_at", rec.ExpiresAt)
		_ = s.persister.Clear()
		return
	}
	s.cur = rec
}

// SetAuthenticator replaces the credential exchanger. It exists so the store
// and the API client can be constructed in either order.
func (s *Store) SetAuthenticator(auth Authenticator) {
	s.mu.Lock()
	s.auth = auth
	s.mu.Unlock()
}

// Current returns a copy of the session.
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.clone()
}

// Token returns the bearer token, or "" when unauthenticated.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Token
}

// Authenticated reports whether a token and identity are both held.
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Authenticated()
}

// Login exchanges credentials for a token. On failure the previous session is
// kept and an *AuthError is returned.
func (s *Store) Login(ctx context.Context, handle, secret string) (Session, error) {
	s.mu.RLock()
	auth := s.auth
	s.mu.RUnlock()
	if auth == nil {
		return Session{}, &AuthError{Handle: handle, Err: errNoAuthenticator}
	}

	grant, err := auth.Authenticate(ctx, handle, secret)
	if err != nil {
		return Session{}, &AuthError{Handle: handle, Err: err}
	}
	if grant.AccessToken == "" {
		return Session{}, &AuthError{Handle: handle, Err: errEmptyToken}
	}

	subject, claimRole, expiresAt := inspectToken(grant.AccessToken)
	id := &Identity{Handle: handle, Role: claimRole}
	if subject != "" && handle == "" {
		id.Handle = subject
	}
	if grant.User != nil {
		if grant.User.Username != "" {
			id.Handle = grant.User.Username
		}
		if grant.User.Role != "" {
			id.Role = grant.User.Role
		}
	}
	if id.Role == "" {
		id.Role = DefaultRole
	}

	next := Session{Token: grant.AccessToken, Identity: id, ExpiresAt: expiresAt}

	s.mu.Lock()
	s.cur = next
	s.persist(next)
	s.mu.Unlock()

	slog.Info("logged in", "handle", id.Handle, "role", id.Role)
	return next.clone(), nil
}

// Logout clears the session. Calling it while anonymous is a no-op.
func (s *Store) Logout() {
	s.mu.Lock()
	had := s.cur.Authenticated()
	s.cur = Session{}
	s.persist(Session{})
	s.mu.Unlock()
	if had {
		slog.Info("logged out")
	}
}

// Teardown destroys the session after the remote rejected rejectedToken.
// It only acts while rejectedToken is still the current token, so a late
// rejection of an old token cannot end a newer session. Subscribers are
// notified once per actual transition to anonymous. It reports whether the
// session was torn down.
func (s *Store) Teardown(rejectedToken, reason string) bool {
	s.mu.Lock()
	if rejectedToken == "" || s.cur.Token != rejectedToken {
		s.mu.Unlock()
		return false
	}
	ev := TeardownEvent{Reason: reason, At: s.now()}
	if s.cur.Identity != nil {
		ev.Handle = s.cur.Identity.Handle
	}
	s.cur = Session{}
	s.persist(Session{})
	listeners := make([]func(TeardownEvent), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	slog.Warn("session torn down", "handle", ev.Handle, "reason", ev.Reason)
	for _, fn := range listeners {
		fn(ev)
	}
	return true
}

// OnTeardown registers fn to run after each teardown. Listeners run
// synchronously on the goroutine that observed the rejection and must not block.
func (s *Store) OnTeardown(fn func(TeardownEvent)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// persist must be called with mu held.
func (s *Store) persist(rec Session) {
	if s.persister == nil {
		return
	}
	var err error
	if rec.Authenticated() {
		err = s.persister.Save(rec)
	} else {
		err = s.persister.Clear()
	}
	if err != nil {
		slog.Warn("session record not persisted", "error", err)
	}
}

func (s Session) clone() Session {
	if s.Identity != nil {
		id := *s.Identity
		s.Identity = &id
	}
	return s
}
