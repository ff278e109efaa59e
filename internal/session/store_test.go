package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	grant Grant
	err   error
	calls int
}

func (f *fakeAuth) Authenticate(_ context.Context, handle, secret string) (Grant, error) {
	f.calls++
	return f.grant, f.err
}

func signToken(t *testing.T, sub, role string, exp time.Time) string {
	t.Helper()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Role: role,
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestLoginStoresTokenAndIdentity(t *testing.T) {
	auth := &fakeAuth{grant: Grant{
		AccessToken: "opaque-token",
		TokenType:   "bearer",
		User:        &GrantUser{Username: "alice", Role: "admin"},
	}}
	s := NewStore(auth)

	got, err := s.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)
	assert.True(t, got.Authenticated())
	assert.Equal(t, "opaque-token", s.Token())
	assert.Equal(t, "alice", s.Current().Identity.Handle)
	assert.Equal(t, "admin", s.Current().Identity.Role)
}

func TestLoginBuildsIdentityWhenUserOmitted(t *testing.T) {
	auth := &fakeAuth{grant: Grant{AccessToken: "opaque-token"}}
	s := NewStore(auth)

	got, err := s.Login(context.Background(), "bob", "pw")
	require.NoError(t, err)
	require.NotNil(t, got.Identity)
	assert.Equal(t, "bob", got.Identity.Handle)
	assert.Equal(t, DefaultRole, got.Identity.Role)
}

func TestLoginTakesRoleAndExpiryFromJWT(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	auth := &fakeAuth{grant: Grant{AccessToken: signToken(t, "carol", "lead", exp)}}
	s := NewStore(auth)

	got, err := s.Login(context.Background(), "carol", "pw")
	require.NoError(t, err)
	assert.Equal(t, "lead", got.Identity.Role)
	assert.True(t, got.ExpiresAt.Equal(exp), "expires %v, want %v", got.ExpiresAt, exp)
}

func TestLoginFailureKeepsPriorSession(t *testing.T) {
	auth := &fakeAuth{grant: Grant{AccessToken: "first"}}
	s := NewStore(auth)
	_, err := s.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)

	auth.err = errors.New("Incorrect username or password")
	_, err = s.Login(context.Background(), "mallory", "nope")

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "mallory", authErr.Handle)
	assert.Equal(t, "first", s.Token())
	assert.Equal(t, "alice", s.Current().Identity.Handle)
}

func TestLoginRejectsEmptyToken(t *testing.T) {
	s := NewStore(&fakeAuth{grant: Grant{}})
	_, err := s.Login(context.Background(), "alice", "pw")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.False(t, s.Authenticated())
}

func TestLogoutIsIdempotent(t *testing.T) {
	s := NewStore(&fakeAuth{grant: Grant{AccessToken: "tok"}})
	_, err := s.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)

	s.Logout()
	s.Logout()
	assert.False(t, s.Authenticated())
	assert.Empty(t, s.Token())
}

func TestTeardownClearsAndSignalsOnce(t *testing.T) {
	s := NewStore(&fakeAuth{grant: Grant{AccessToken: "tok"}})
	_, err := s.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)

	var events []TeardownEvent
	s.OnTeardown(func(ev TeardownEvent) { events = append(events, ev) })

	assert.True(t, s.Teardown("tok", "401 from alerts.recent"))
	assert.False(t, s.Authenticated())
	assert.Empty(t, s.Token())

	// A second 401 for the same token finds nothing to tear down.
	assert.False(t, s.Teardown("tok", "401 from incidents.list"))

	require.Len(t, events, 1)
	assert.Equal(t, "alice", events[0].Handle)
	assert.Equal(t, "401 from alerts.recent", events[0].Reason)
}

func TestTeardownIgnoresStaleToken(t *testing.T) {
	auth := &fakeAuth{grant: Grant{AccessToken: "old"}}
	s := NewStore(auth)
	_, err := s.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)

	auth.grant = Grant{AccessToken: "new"}
	_, err = s.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)

	assert.False(t, s.Teardown("old", "late 401"))
	assert.Equal(t, "new", s.Token())
	assert.True(t, s.Authenticated())
}

func TestConcurrentTeardownSignalsOnce(t *testing.T) {
	s := NewStore(&fakeAuth{grant: Grant{AccessToken: "tok"}})
	_, err := s.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)

	var mu sync.Mutex
	count := 0
	s.OnTeardown(func(TeardownEvent) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Teardown("tok", "401")
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, count)
}

func TestFilePersisterRestoresSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	exp := time.Now().Add(time.Hour)
	auth := &fakeAuth{grant: Grant{AccessToken: signToken(t, "alice", "analyst", exp)}}

	first := NewStore(auth, WithPersister(FilePersister{Path: path}))
	_, err := first.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second := NewStore(nil, WithPersister(FilePersister{Path: path}))
	assert.True(t, second.Authenticated())
	assert.Equal(t, first.Token(), second.Token())
	assert.Equal(t, "alice", second.Current().Identity.Handle)
}

func TestExpiredRecordTreatedAsAbsent(t *testing.T) {
	p := &MemoryPersister{}
	require.NoError(t, p.Save(Session{
		Token:    signToken(t, "alice", "analyst", time.Now().Add(-time.Minute)),
		Identity: &Identity{Handle: "alice", Role: "analyst"},
	}))

	s := NewStore(nil, WithPersister(p))
	assert.False(t, s.Authenticated())
	_, ok, err := p.Load()
	require.NoError(t, err)
	assert.False(t, ok, "expired record should be cleared")
}

func TestCorruptRecordTreatedAsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s := NewStore(nil, WithPersister(FilePersister{Path: path}))
	assert.False(t, s.Authenticated())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestTeardownClearsPersistedRecord(t *testing.T) {
	p := &MemoryPersister{}
	s := NewStore(&fakeAuth{grant: Grant{AccessToken: "tok"}}, WithPersister(p))
	_, err := s.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)

	_, ok, _ := p.Load()
	require.True(t, ok)

	s.Teardown("tok", "401")
	_, ok, _ = p.Load()
	assert.False(t, ok)
}

func TestCurrentReturnsCopy(t *testing.T) {
	s := NewStore(&fakeAuth{grant: Grant{AccessToken: "tok"}})
	_, err := s.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)

	cur := s.Current()
	cur.Identity.Handle = "changed"
	assert.Equal(t, "alice", s.Current().Identity.Handle)
}
