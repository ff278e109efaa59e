package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/crimson-sun/watchtower/internal/model"
	"github.com/crimson-sun/watchtower/internal/sink"
	"github.com/crimson-sun/watchtower/internal/transport"
)

const defaultTimeout = 10 * time.Second

func init() {
	sink.Register("webhook", func(cfg sink.Config) (sink.Sink, error) {
		if cfg.URL == "" {
			return nil, errors.New("webhook sink: url is required")
		}
		opts := []Option{WithHeaders(cfg.Headers), WithVerbosity(cfg.Verbosity)}
		if cfg.Timeout > 0 {
			opts = append(opts, WithTimeout(cfg.Timeout))
		}
		if cfg.Client != nil {
			opts = append(opts, WithHTTPClient(cfg.Client))
		}
		return New(cfg.URL, opts...), nil
	})
}

// Option configures a webhook Sink.
type Option func(*Sink)

// WithHeaders sets custom HTTP headers sent with every POST.
func WithHeaders(h map[string]string) Option {
	return func(s *Sink) { s.headers = h }
}

// WithTimeout sets the per-attempt deadline. Default: 10s.
func WithTimeout(d time.Duration) Option {
	return func(s *Sink) { s.timeout = d }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Sink) { s.client = c }
}

// WithPolicy sets the retry policy. Default: transport.DefaultPolicy.
func WithPolicy(p transport.Policy) Option {
	return func(s *Sink) { s.policy = p }
}

// WithVerbosity sets how much of each snapshot is sent. Default: Standard.
func WithVerbosity(v sink.Verbosity) Option {
	return func(s *Sink) { s.verbosity = v }
}

// Sink POSTs each snapshot as a JSON object. Network failures, timeouts and
// 5xx responses are retried with backoff; 4xx responses are not.
type Sink struct {
	client    *http.Client
	url       string
	headers   map[string]string
	timeout   time.Duration
	policy    transport.Policy
	verbosity sink.Verbosity
}

// New creates a webhook sink targeting url.
func New(url string, opts ...Option) *Sink {
	s := &Sink{
		client:    &http.Client{},
		url:       url,
		timeout:   defaultTimeout,
		policy:    transport.DefaultPolicy,
		verbosity: sink.Standard,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sink) Publish(ctx context.Context, snap model.Snapshot) error {
	body, err := json.Marshal(sink.FormatSnapshot(snap, s.verbosity))
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}
	_, err = transport.Retry(ctx, s.policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.post(ctx, body)
	})
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	return nil
}

func (s *Sink) post(ctx context.Context, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	status := 0
	var respBody []byte
	resp, err := s.client.Do(req)
	if err == nil {
		status = resp.StatusCode
		respBody, _ = io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
	}
	if f := transport.Classify(status, respBody, err); f != nil {
		f.Operation = "webhook"
		f.Method = http.MethodPost
		f.Path = s.url
		return f
	}
	return nil
}

func (s *Sink) Close() error {
	return nil
}
