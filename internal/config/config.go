// Package config loads and validates watchtower settings using Viper.
//
// Sources, lowest precedence first: built-in defaults, an optional YAML
// config file, an optional .env file, WATCHTOWER_* environment variables and
// explicit overrides (command-line flags).
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/crimson-sun/watchtower/internal/logging"
	"github.com/crimson-sun/watchtower/internal/sink"
)

// EnvPrefix is prepended to every key when read from the environment.
const EnvPrefix = "WATCHTOWER"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config holds all watchtower configuration.
type Config struct {
	// APIURL is the remote service's API root, e.g. http://localhost:8000/api.
	APIURL string `mapstructure:"API_URL"`
	// RequestTimeout bounds each HTTP attempt.
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	// RetryMax is the number of extra attempts for idempotent reads.
	RetryMax int `mapstructure:"RETRY_MAX"`
	// RetryBaseDelay is the wait after the first failed attempt; it doubles each retry.
	RetryBaseDelay time.Duration `mapstructure:"RETRY_BASE_DELAY"`
	// RateLimit caps outgoing requests per second; 0 disables.
	RateLimit float64 `mapstructure:"RATE_LIMIT"`
	RateBurst int     `mapstructure:"RATE_BURST"`

	PollInterval   time.Duration `mapstructure:"POLL_INTERVAL"`
	AlertLimit     int           `mapstructure:"ALERT_LIMIT"`
	IncidentStatus string        `mapstructure:"INCIDENT_STATUS"`

	// SessionFile stores the session record between runs; empty keeps it in memory only.
	SessionFile string `mapstructure:"SESSION_FILE"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	// Sinks is a comma-separated list of snapshot sinks (stdout, file, webhook).
	Sinks        string `mapstructure:"SINKS"`
	OutputFormat string `mapstructure:"OUTPUT_FORMAT"`
	OutputPretty bool   `mapstructure:"OUTPUT_PRETTY"`
	Verbosity    string `mapstructure:"VERBOSITY"`
	FilePath     string `mapstructure:"FILE_PATH"`
	FileMaxSize  int64  `mapstructure:"FILE_MAX_SIZE"`
	WebhookURL   string `mapstructure:"WEBHOOK_URL"`

	// NotifyDedupWindow collapses identical notifications on the terminal;
	// 0 disables. Logs and callbacks are never deduplicated.
	NotifyDedupWindow time.Duration `mapstructure:"NOTIFY_DEDUP_WINDOW"`
	// MetricsAddr serves /metrics while watching; empty disables.
	MetricsAddr string `mapstructure:"METRICS_ADDR"`

	MockAddr   string `mapstructure:"MOCK_ADDR"`
	MockSecret string `mapstructure:"MOCK_SECRET"`
}

var defaults = map[string]any{
	"API_URL":             "http://localhost:8000/api",
	"REQUEST_TIMEOUT":     "10s",
	"RETRY_MAX":           2,
	"RETRY_BASE_DELAY":    "300ms",
	"RATE_LIMIT":          0.0,
	"RATE_BURST":          5,
	"POLL_INTERVAL":       "30s",
	"ALERT_LIMIT":         20,
	"INCIDENT_STATUS":     "open",
	"SESSION_FILE":        defaultSessionFile(),
	"LOG_LEVEL":           "info",
	"SINKS":               "stdout",
	"OUTPUT_FORMAT":       "json",
	"OUTPUT_PRETTY":       false,
	"VERBOSITY":           "standard",
	"FILE_PATH":           "",
	"FILE_MAX_SIZE":       int64(0),
	"WEBHOOK_URL":         "",
	"NOTIFY_DEDUP_WINDOW": "1m",
	"METRICS_ADDR":        "",
	"MOCK_ADDR":           "127.0.0.1:8000",
	"MOCK_SECRET":         "watchtower-dev-secret",
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "watchtower", "session.json")
}

type loadOptions struct {
	file      string
	envFile   string
	overrides map[string]any
}

// Option configures Load.
type Option func(*loadOptions)

// WithFile reads a YAML config file. A missing file is an error.
func WithFile(path string) Option {
	return func(o *loadOptions) { o.file = path }
}

// WithEnvFile reads KEY=value pairs from path. Keys may carry the
// WATCHTOWER_ prefix or not. A missing file is ignored. Default: ".env".
func WithEnvFile(path string) Option {
	return func(o *loadOptions) { o.envFile = path }
}

// WithOverride sets key (e.g. "API_URL") above every other source.
func WithOverride(key string, value any) Option {
	return func(o *loadOptions) { o.overrides[key] = value }
}

// Load builds a Config from all sources and validates it.
func Load(opts ...Option) (*Config, error) {
	o := loadOptions{envFile: ".env", overrides: map[string]any{}}
	for _, opt := range opts {
		opt(&o)
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if o.file != "" {
		v.SetConfigFile(o.file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", o.file, err)
		}
	}

	if o.envFile != "" {
		if err := mergeEnvFile(v, o.envFile); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	for k, val := range o.overrides {
		v.Set(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeEnvFile layers a .env file between the YAML file and the process environment.
func mergeEnvFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	ev := viper.New()
	ev.SetConfigFile(path)
	ev.SetConfigType("env")
	if err := ev.ReadInConfig(); err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	m := make(map[string]any)
	prefix := strings.ToLower(EnvPrefix) + "_"
	for _, k := range ev.AllKeys() {
		m[strings.TrimPrefix(k, prefix)] = ev.Get(k)
	}
	return v.MergeConfigMap(m)
}

var knownSinks = map[string]bool{"stdout": true, "file": true, "webhook": true}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if u, err := url.Parse(c.APIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		bad("API_URL must be an http(s) URL, got %q", c.APIURL)
	}
	if c.RequestTimeout <= 0 {
		bad("REQUEST_TIMEOUT must be positive")
	}
	if c.RetryMax < 0 {
		bad("RETRY_MAX must not be negative")
	}
	if c.RetryBaseDelay < 0 {
		bad("RETRY_BASE_DELAY must not be negative")
	}
	if c.RateLimit < 0 {
		bad("RATE_LIMIT must not be negative")
	}
	if c.PollInterval <= 0 {
		bad("POLL_INTERVAL must be positive")
	}
	if c.AlertLimit <= 0 {
		bad("ALERT_LIMIT must be positive")
	}
	if !logging.ValidLevel(c.LogLevel) {
		bad("LOG_LEVEL %q is not one of debug, info, warn, error", c.LogLevel)
	}
	if _, err := sink.ParseVerbosity(c.Verbosity); err != nil {
		bad("VERBOSITY %q is not one of minimal, standard, full", c.Verbosity)
	}
	if _, err := sink.ParseFormat(c.OutputFormat); err != nil {
		bad("OUTPUT_FORMAT %q is not one of json, yaml", c.OutputFormat)
	}
	for _, name := range c.SinkNames() {
		if !knownSinks[name] {
			bad("SINKS: unknown sink %q", name)
		}
	}
	if c.hasSink("file") && c.FilePath == "" {
		bad("FILE_PATH is required with the file sink")
	}
	if c.hasSink("webhook") {
		if u, err := url.Parse(c.WebhookURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			bad("WEBHOOK_URL must be an http(s) URL with the webhook sink")
		}
	}
	if c.FileMaxSize < 0 {
		bad("FILE_MAX_SIZE must not be negative")
	}
	if c.NotifyDedupWindow < 0 {
		bad("NOTIFY_DEDUP_WINDOW must not be negative")
	}
	return errors.Join(errs...)
}

// SinkNames returns the configured sinks, trimmed and without empties.
func (c *Config) SinkNames() []string {
	parts := strings.Split(c.Sinks, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.ToLower(strings.TrimSpace(p)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) hasSink(name string) bool {
	for _, s := range c.SinkNames() {
		if s == name {
			return true
		}
	}
	return false
}
