package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every WATCHTOWER_ variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, EnvPrefix+"_") {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(WithEnvFile(""))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000/api", cfg.APIURL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2, cfg.RetryMax)
	assert.Equal(t, 300*time.Millisecond, cfg.RetryBaseDelay)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, 20, cfg.AlertLimit)
	assert.Equal(t, "open", cfg.IncidentStatus)
	assert.Equal(t, []string{"stdout"}, cfg.SinkNames())
	assert.Equal(t, "standard", cfg.Verbosity)
	assert.Equal(t, time.Minute, cfg.NotifyDedupWindow)
	assert.Zero(t, cfg.RateLimit)
}

func TestLoad_EnvVarOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("WATCHTOWER_API_URL", "https://soc.example.com/api")
	t.Setenv("WATCHTOWER_POLL_INTERVAL", "45s")
	t.Setenv("WATCHTOWER_ALERT_LIMIT", "100")
	t.Setenv("WATCHTOWER_OUTPUT_PRETTY", "true")
	t.Setenv("WATCHTOWER_FILE_MAX_SIZE", "1048576")

	cfg, err := Load(WithEnvFile(""))
	require.NoError(t, err)
	assert.Equal(t, "https://soc.example.com/api", cfg.APIURL)
	assert.Equal(t, 45*time.Second, cfg.PollInterval)
	assert.Equal(t, 100, cfg.AlertLimit)
	assert.True(t, cfg.OutputPretty)
	assert.Equal(t, int64(1048576), cfg.FileMaxSize)
}

func TestLoad_Precedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "watchtower.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(strings.Join([]string{
		"api_url: http://from-yaml:8000/api",
		"alert_limit: 5",
		"incident_status: investigating",
		"verbosity: full",
	}, "\n")), 0o644))

	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte(strings.Join([]string{
		"WATCHTOWER_ALERT_LIMIT=7",
		"INCIDENT_STATUS=resolved",
	}, "\n")), 0o644))

	t.Setenv("WATCHTOWER_INCIDENT_STATUS", "closed")

	cfg, err := Load(WithFile(yamlPath), WithEnvFile(envPath), WithOverride("VERBOSITY", "minimal"))
	require.NoError(t, err)
	assert.Equal(t, "http://from-yaml:8000/api", cfg.APIURL, "yaml over default")
	assert.Equal(t, 7, cfg.AlertLimit, ".env over yaml")
	assert.Equal(t, "closed", cfg.IncidentStatus, "environment over .env")
	assert.Equal(t, "minimal", cfg.Verbosity, "override over everything")
}

func TestLoad_MissingConfigFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(WithFile(filepath.Join(t.TempDir(), "nope.yaml")), WithEnvFile(""))
	assert.Error(t, err)
}

func TestLoad_MissingEnvFileIgnored(t *testing.T) {
	clearEnv(t)
	_, err := Load(WithEnvFile(filepath.Join(t.TempDir(), ".env")))
	assert.NoError(t, err)
}

func validConfig() Config {
	return Config{
		APIURL:         "http://localhost:8000/api",
		RequestTimeout: 10 * time.Second,
		RetryMax:       2,
		RetryBaseDelay: 300 * time.Millisecond,
		PollInterval:   30 * time.Second,
		AlertLimit:     20,
		LogLevel:       "info",
		Sinks:          "stdout",
		OutputFormat:   "json",
		Verbosity:      "standard",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"ftp url", func(c *Config) { c.APIURL = "ftp://x/api" }, "API_URL"},
		{"no host", func(c *Config) { c.APIURL = "http:///api" }, "API_URL"},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }, "REQUEST_TIMEOUT"},
		{"negative retries", func(c *Config) { c.RetryMax = -1 }, "RETRY_MAX"},
		{"zero poll", func(c *Config) { c.PollInterval = 0 }, "POLL_INTERVAL"},
		{"zero limit", func(c *Config) { c.AlertLimit = 0 }, "ALERT_LIMIT"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "LOG_LEVEL"},
		{"bad verbosity", func(c *Config) { c.Verbosity = "chatty" }, "VERBOSITY"},
		{"bad format", func(c *Config) { c.OutputFormat = "xml" }, "OUTPUT_FORMAT"},
		{"unknown sink", func(c *Config) { c.Sinks = "stdout,kafka" }, "kafka"},
		{"file without path", func(c *Config) { c.Sinks = "file" }, "FILE_PATH"},
		{"webhook without url", func(c *Config) { c.Sinks = "webhook" }, "WEBHOOK_URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.AlertLimit = 0
	cfg.PollInterval = -time.Second
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ALERT_LIMIT")
	assert.Contains(t, err.Error(), "POLL_INTERVAL")
}

func TestSinkNames(t *testing.T) {
	cfg := Config{Sinks: " stdout, ,FILE ,webhook"}
	assert.Equal(t, []string{"stdout", "file", "webhook"}, cfg.SinkNames())
}
