package watchtower

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/crimson-sun/watchtower/internal/config"
)

type options struct {
	cfg        *config.Config
	configFile string
	overrides  map[string]any
	memory     bool
	httpClient *http.Client
	registry   prometheus.Registerer
	notify     []func(Notification)
	quiet      bool
	publish    []func(context.Context, Snapshot) error
}

// Option configures a Client.
type Option func(*options)

// WithConfig uses an already loaded configuration instead of reading the
// environment. Other options still override individual fields.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithConfigFile reads settings from a YAML file on top of the defaults.
func WithConfigFile(path string) Option {
	return func(o *options) { o.configFile = path }
}

// WithAPIURL sets the service's API root, e.g. http://localhost:8000/api.
func WithAPIURL(u string) Option {
	return func(o *options) { o.overrides["API_URL"] = u }
}

// WithSessionFile sets where the session record is kept between runs.
func WithSessionFile(path string) Option {
	return func(o *options) { o.overrides["SESSION_FILE"] = path }
}

// WithMemorySession keeps the session in memory only.
func WithMemorySession() Option {
	return func(o *options) { o.memory = true }
}

// WithTimeout bounds each HTTP attempt. Default: 10s.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.overrides["REQUEST_TIMEOUT"] = d }
}

// WithRetry sets the retry budget for polled reads. Default: 2 retries
// starting at 300ms.
func WithRetry(maxRetries int, baseDelay time.Duration) Option {
	return func(o *options) {
		o.overrides["RETRY_MAX"] = maxRetries
		o.overrides["RETRY_BASE_DELAY"] = baseDelay
	}
}

// WithPollInterval sets the dashboard refresh period. Default: 30s.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) { o.overrides["POLL_INTERVAL"] = d }
}

// WithHTTPClient replaces the HTTP client used for remote calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithRegistry registers the client's Prometheus collectors with reg.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(o *options) { o.registry = reg }
}

// WithNotifications delivers user-facing failure messages to fn. It may be
// given more than once.
func WithNotifications(fn func(Notification)) Option {
	return func(o *options) { o.notify = append(o.notify, fn) }
}

// WithoutTerminal stops notifications from being printed to stderr.
func WithoutTerminal() Option {
	return func(o *options) { o.quiet = true }
}

// WithSnapshotHandler receives every snapshot a Watch publishes, in addition
// to the configured sinks.
func WithSnapshotHandler(fn func(context.Context, Snapshot) error) Option {
	return func(o *options) { o.publish = append(o.publish, fn) }
}

func (o *options) load() (*config.Config, error) {
	if o.cfg != nil {
		if len(o.overrides) == 0 {
			return o.cfg, nil
		}
		cp := *o.cfg
		applyOverrides(&cp, o.overrides)
		if err := cp.Validate(); err != nil {
			return nil, err
		}
		return &cp, nil
	}
	opts := []config.Option{}
	if o.configFile != "" {
		opts = append(opts, config.WithFile(o.configFile))
	}
	for k, v := range o.overrides {
		opts = append(opts, config.WithOverride(k, v))
	}
	return config.Load(opts...)
}

func applyOverrides(c *config.Config, m map[string]any) {
	for k, v := range m {
		switch k {
		case "API_URL":
			c.APIURL = v.(string)
		case "SESSION_FILE":
			c.SessionFile = v.(string)
		case "REQUEST_TIMEOUT":
			c.RequestTimeout = v.(time.Duration)
		case "RETRY_MAX":
			c.RetryMax = v.(int)
		case "RETRY_BASE_DELAY":
			c.RetryBaseDelay = v.(time.Duration)
		case "POLL_INTERVAL":
			c.PollInterval = v.(time.Duration)
		}
	}
}
