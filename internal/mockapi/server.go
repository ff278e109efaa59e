// Package mockapi is an in-memory stand-in for the threat detection service.
// It speaks the same HTTP surface as the real backend under /api, issues
// HS256 bearer tokens, and lets tests inject failures and latency per route.
package mockapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crimson-sun/watchtower/internal/model"
)

const (
	// DefaultTokenTTL matches the remote service's default access token lifetime.
	DefaultTokenTTL = 30 * time.Minute
	// Version is reported by /health.
	Version = "1.0.0"

	apiPrefix = "/api"
)

// Account is an analyst login known to the server.
type Account struct {
	ID       int64
	Username string
	Password string
	Email    string
	Role     string
}

// DefaultAccounts mirrors the backend's bootstrap users.
func DefaultAccounts() []Account {
	return []Account{
		{ID: 1, Username: "admin", Password: "admin123", Email: "admin@threatdetection.local", Role: "admin"},
		{ID: 2, Username: "analyst", Password: "analyst123", Email: "analyst@threatdetection.local", Role: "analyst"},
	}
}

type fault struct {
	status    int
	remaining int
}

type storedEvent struct {
	id int64
	model.EventInput
}

// Server is a fake remote. All state lives in memory and is guarded by mu.
type Server struct {
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
	seedSize int
	engine   *gin.Engine

	mu          sync.Mutex
	accounts    []Account
	alerts      []model.Alert
	incidents   []model.Incident
	events      []storedEvent
	nextAlert   int64
	nextEvent   int64
	faults      map[string]*fault
	delay       time.Duration
	hits        map[string]int
	modelsReady bool

	srvMu sync.Mutex
	srv   *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithSecret sets the HMAC key used to sign access tokens.
func WithSecret(secret string) Option {
	return func(s *Server) { s.secret = []byte(secret) }
}

// WithTokenTTL sets the lifetime of issued tokens.
func WithTokenTTL(d time.Duration) Option {
	return func(s *Server) { s.ttl = d }
}

// WithClock replaces time.Now for token expiry and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithAccounts replaces the default analyst logins.
func WithAccounts(accounts ...Account) Option {
	return func(s *Server) { s.accounts = append([]Account(nil), accounts...) }
}

// WithSeed sets how many synthetic alerts are generated at startup.
// Zero starts with no alerts or incidents.
func WithSeed(n int) Option {
	return func(s *Server) { s.seedSize = n }
}

// New builds a Server with seeded data. It does not listen until
// ListenAndServe is called; Handler can be mounted directly instead.
func New(opts ...Option) *Server {
	s := &Server{
		secret:      []byte("watchtower-mock-secret"),
		ttl:         DefaultTokenTTL,
		now:         time.Now,
		seedSize:    40,
		accounts:    DefaultAccounts(),
		faults:      make(map[string]*fault),
		hits:        make(map[string]int),
		modelsReady: true,
	}
	for _, o := range opts {
		o(s)
	}
	s.seed(s.seedSize)
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler serving the API under /api.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.inject())

	api := r.Group(apiPrefix)
	{
		api.POST("/auth/login", s.login)
		api.GET("/health", s.health)

		authed := api.Group("", s.requireAuth())
		{
			authed.GET("/alerts/recent", s.recentAlerts)
			authed.PUT("/alerts/:id/acknowledge", s.acknowledgeAlert)
			authed.GET("/incidents", s.listIncidents)
			authed.PATCH("/incidents/:id", s.updateIncident)
			authed.POST("/events/ingest", s.ingest)
			authed.POST("/predict", s.predict)
			authed.GET("/users", s.listUsers)
			authed.GET("/users/me", s.me)
			authed.GET("/users/:id", s.getUser)
			authed.GET("/users/:id/timeline", s.timeline)
		}
	}
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
	})
	return r
}

// FailNext makes the next n requests to route answer with status. The route is
// the registered pattern relative to /api, e.g. "/incidents" or "/alerts/:id/acknowledge".
// Injected failures fire before authentication.
func (s *Server) FailNext(route string, status, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 {
		delete(s.faults, route)
		return
	}
	s.faults[route] = &fault{status: status, remaining: n}
}

// SetDelay adds latency to every request. Zero disables it.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
}

// SetModelsLoaded toggles whether /predict can score events.
func (s *Server) SetModelsLoaded(ok bool) {
	s.mu.Lock()
	s.modelsReady = ok
	s.mu.Unlock()
}

// Hits reports how many requests reached route, including injected failures.
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// inject applies latency and queued failures ahead of the real handler.
func (s *Server) inject() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := strings.TrimPrefix(c.FullPath(), apiPrefix)

		s.mu.Lock()
		s.hits[route]++
		delay := s.delay
		var status int
		if f, ok := s.faults[route]; ok {
			status = f.status
			if f.remaining--; f.remaining <= 0 {
				delete(s.faults, route)
			}
		}
		s.mu.Unlock()

		if delay > 0 {
			t := time.NewTimer(delay)
			select {
			case <-t.C:
			case <-c.Request.Context().Done():
				t.Stop()
				c.Abort()
				return
			}
		}
		if status != 0 {
			c.AbortWithStatusJSON(status, gin.H{"detail": "injected failure: " + http.StatusText(status)})
			return
		}
		c.Next()
	}
}

// ListenAndServe serves on addr until Close is called or ctx is done.
// The bound address is sent on ready when it is non-nil, which lets callers
// pass ":0".
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready chan<- string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}
	s.srvMu.Lock()
	s.srv = srv
	s.srvMu.Unlock()

	if ready != nil {
		ready <- ln.Addr().String()
	}
	slog.Info("mock api listening", "addr", ln.Addr().String())

	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close shuts the listener down, waiting briefly for in-flight requests.
func (s *Server) Close() error {
	s.srvMu.Lock()
	srv := s.srv
	s.srvMu.Unlock()
	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}
