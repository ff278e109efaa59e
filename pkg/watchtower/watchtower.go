package watchtower

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/crimson-sun/watchtower/internal/aggregate"
	"github.com/crimson-sun/watchtower/internal/api"
	"github.com/crimson-sun/watchtower/internal/config"
	"github.com/crimson-sun/watchtower/internal/model"
	"github.com/crimson-sun/watchtower/internal/notify"
	"github.com/crimson-sun/watchtower/internal/session"
	"github.com/crimson-sun/watchtower/internal/sink"
	"github.com/crimson-sun/watchtower/internal/sink/async"
	"github.com/crimson-sun/watchtower/internal/sink/multi"
	"github.com/crimson-sun/watchtower/internal/transport"

	// Registered sinks.
	_ "github.com/crimson-sun/watchtower/internal/sink/file"
	_ "github.com/crimson-sun/watchtower/internal/sink/stdout"
	_ "github.com/crimson-sun/watchtower/internal/sink/webhook"
)

// Client talks to the threat detection service on behalf of one analyst.
// Safe for concurrent use.
type Client struct {
	cfg      *config.Config
	store    *session.Store
	api      *api.Client
	aMetrics *aggregate.Metrics
	notifier *notify.Async
	publish  []func(context.Context, Snapshot) error

	mu    sync.Mutex
	sinks []sink.Sink
}

// New builds a Client from the environment, an optional config file and
// opts. A session persisted by an earlier run is restored if still valid.
func New(opts ...Option) (*Client, error) {
	o := options{overrides: map[string]any{}}
	for _, opt := range opts {
		opt(&o)
	}
	cfg, err := o.load()
	if err != nil {
		return nil, fmt.Errorf("watchtower: %w", err)
	}

	// Only the stderr display is deduplicated. Callbacks and the log see
	// every terminal failure.
	var chain []notify.Notifier
	if !o.quiet {
		chain = append(chain, notify.NewDedup(notify.NewTerminal(os.Stderr), cfg.NotifyDedupWindow))
	}
	for _, fn := range o.notify {
		chain = append(chain, notify.Func(fn))
	}
	chain = append(chain, notify.Log{})
	notifier := notify.NewAsync(notify.NewMulti(chain...))

	var persister session.Persister = &session.MemoryPersister{}
	if !o.memory && cfg.SessionFile != "" {
		persister = &session.FilePersister{Path: cfg.SessionFile}
	}
	store := session.NewStore(nil, session.WithPersister(persister))

	topts := []transport.Option{
		transport.WithTimeout(cfg.RequestTimeout),
		transport.WithPolicy(transport.Policy{MaxRetries: cfg.RetryMax, BaseDelay: cfg.RetryBaseDelay}),
		transport.WithNotifier(notifier),
		transport.WithMetrics(transport.NewMetrics(o.registry)),
	}
	if cfg.RateLimit > 0 {
		topts = append(topts, transport.WithRateLimit(cfg.RateLimit, cfg.RateBurst))
	}
	if o.httpClient != nil {
		topts = append(topts, transport.WithHTTPClient(o.httpClient))
	}
	ac := api.New(transport.New(cfg.APIURL, store, topts...))
	store.SetAuthenticator(ac)

	return &Client{
		cfg:      cfg,
		store:    store,
		api:      ac,
		aMetrics: aggregate.NewMetrics(o.registry),
		notifier: notifier,
		publish:  o.publish,
	}, nil
}

// Config returns the effective configuration.
func (c *Client) Config() config.Config { return *c.cfg }

// Login exchanges credentials for a session. A failed login leaves the
// current session untouched.
func (c *Client) Login(ctx context.Context, username, password string) (Session, error) {
	return c.store.Login(ctx, username, password)
}

// Logout forgets the session locally and on disk.
func (c *Client) Logout() { c.store.Logout() }

// Session returns a copy of the current session.
func (c *Client) Session() Session { return c.store.Current() }

// Authenticated reports whether a session is held.
func (c *Client) Authenticated() bool { return c.store.Authenticated() }

// OnSessionEnd registers fn to run when the service rejects the session token.
func (c *Client) OnSessionEnd(fn func(SessionEnd)) { c.store.OnTeardown(fn) }

func (c *Client) Health(ctx context.Context) (Health, error) { return c.api.Health(ctx) }

// RecentAlerts returns up to limit alerts, newest first. A non-positive limit
// uses the service default of 50.
func (c *Client) RecentAlerts(ctx context.Context, limit int) ([]Alert, error) {
	return c.api.RecentAlerts(ctx, limit)
}

func (c *Client) AcknowledgeAlert(ctx context.Context, id int64) (Alert, error) {
	return c.api.AcknowledgeAlert(ctx, id)
}

// Incidents lists incidents, optionally filtered by status.
func (c *Client) Incidents(ctx context.Context, status string) ([]Incident, error) {
	return c.api.Incidents(ctx, status)
}

func (c *Client) UpdateIncident(ctx context.Context, id int64, patch IncidentPatch) (Incident, error) {
	return c.api.UpdateIncident(ctx, id, patch)
}

func (c *Client) Timeline(ctx context.Context, userID string, hours int) (Timeline, error) {
	return c.api.Timeline(ctx, userID, hours)
}

func (c *Client) Users(ctx context.Context) ([]User, error) { return c.api.Users(ctx) }

func (c *Client) User(ctx context.Context, id string) (User, error) { return c.api.User(ctx, id) }

// Me returns the account behind the current session.
func (c *Client) Me(ctx context.Context) (User, error) { return c.api.Me(ctx) }

// Ingest stores a raw event without scoring it.
func (c *Client) Ingest(ctx context.Context, ev EventInput) (IngestReceipt, error) {
	return c.api.Ingest(ctx, ev)
}

// Predict scores an event. Malicious verdicts also raise an alert remotely.
func (c *Client) Predict(ctx context.Context, ev EventInput) (Prediction, error) {
	return c.api.Predict(ctx, ev)
}

func (c *Client) scheduler(opts ...aggregate.Option) *aggregate.Scheduler {
	sources := aggregate.DashboardSources(c.api, c.cfg.AlertLimit, c.cfg.IncidentStatus)
	opts = append([]aggregate.Option{
		aggregate.WithInterval(c.cfg.PollInterval),
		aggregate.WithMetrics(c.aMetrics),
	}, opts...)
	return aggregate.New(sources, opts...)
}

// Snapshot polls every dashboard source once. Failed sources are reported in
// the snapshot's source status rather than as an error.
func (c *Client) Snapshot(ctx context.Context) Snapshot {
	_, snap := c.scheduler().Cycle(ctx, nil, 1)
	return snap
}

// Watch starts polling the dashboard and publishing to the configured sinks
// and snapshot handlers. Sinks are flushed and closed by Close.
func (c *Client) Watch(ctx context.Context) (*Watch, error) {
	pub, err := c.openSinks()
	if err != nil {
		return nil, err
	}
	return c.scheduler(aggregate.WithPublisher(pub)).Start(ctx), nil
}

func (c *Client) openSinks() (aggregate.Publisher, error) {
	verbosity, _ := sink.ParseVerbosity(c.cfg.Verbosity)
	format, _ := sink.ParseFormat(c.cfg.OutputFormat)
	sinks, err := sink.Open(c.cfg.SinkNames(), sink.Config{
		Verbosity: verbosity,
		Format:    format,
		Pretty:    c.cfg.OutputPretty,
		Path:      c.cfg.FilePath,
		MaxSize:   c.cfg.FileMaxSize,
		URL:       c.cfg.WebhookURL,
		Timeout:   c.cfg.RequestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("watchtower: %w", err)
	}
	for _, fn := range c.publish {
		sinks = append(sinks, handlerSink(fn))
	}
	out := async.New(multi.New(sinks...), async.WithOnError(func(err error) {
		c.notifier.Notify(notify.New(notify.LevelWarn, "sink", "publish", err.Error()))
	}))

	c.mu.Lock()
	c.sinks = append(c.sinks, out)
	c.mu.Unlock()
	return out, nil
}

type handlerSink func(context.Context, model.Snapshot) error

func (h handlerSink) Publish(ctx context.Context, s model.Snapshot) error { return h(ctx, s) }
func (handlerSink) Close() error { return nil }

// Close flushes and closes sinks opened by Watch and drains pending
// notifications. Stop every Watch first.
func (c *Client) Close() error {
	c.mu.Lock()
	sinks := c.sinks
	c.sinks = nil
	c.mu.Unlock()

	var errs []error
	for _, s := range sinks {
		errs = append(errs, s.Close())
	}
	errs = append(errs, c.notifier.Close())
	return errors.Join(errs...)
}
