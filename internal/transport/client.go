package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/crimson-sun/watchtower/internal/notify"
)

const (
	// DefaultTimeout bounds each attempt.
	DefaultTimeout = 10 * time.Second
	// maxBodyBytes caps how much of a response body is read.
	maxBodyBytes = 8 << 20
)

var tracer = otel.Tracer("github.com/crimson-sun/watchtower/internal/transport")

// TokenSource is the pipeline's view of the session: it reads the current
// token and reports rejections. Teardown reports whether a session was
// actually destroyed.
type TokenSource interface {
	Token() string
	Teardown(rejectedToken, reason string) bool
}

// Response is a successful (2xx) reply.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode unmarshals the JSON body into dest.
func (r *Response) Decode(dest any) error {
	if len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, dest)
}

// Client sends Requests against a base URL.
type Client struct {
	baseURL  string
	http     *http.Client
	tokens   TokenSource
	notifier notify.Notifier
	limiter  *rate.Limiter
	policy   Policy
	timeout  time.Duration
	metrics  *Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-attempt deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithPolicy sets the retry policy used by Do for idempotent requests.
func WithPolicy(p Policy) Option {
	return func(c *Client) { c.policy = p }
}

// WithRateLimit limits outgoing attempts to r per second with the given burst.
// A non-positive r disables limiting.
func WithRateLimit(r float64, burst int) Option {
	return func(c *Client) {
		if r <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(r), burst)
	}
}

// WithNotifier sets where terminal failures are reported.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Client) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithMetrics sets the collectors the client records into.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// New creates a Client. tokens may be nil for a client that never
// authenticates.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:  baseURL,
		http:     &http.Client{},
		tokens:   tokens,
		notifier: notify.Nop{},
		policy:   DefaultPolicy,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = NewMetrics(nil)
	}
	return c
}

// BaseURL returns the API root the client was created with.
func (c *Client) BaseURL() string { return c.baseURL }

// Send performs req exactly once. Failures are classified, a 401 on an
// authenticated request tears the session down, and the failure is
// reported to the notifier before it is returned.
func (c *Client) Send(ctx context.Context, req Request) (*Response, error) {
	resp, err := c.attempt(ctx, req)
	return resp, c.finish(ctx, req, err)
}

// Do is Send with retries for idempotent requests. Requests not marked
// Idempotent are sent once.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if !req.Idempotent {
		return c.Send(ctx, req)
	}
	p := c.policy
	onRetry := p.OnRetry
	p.OnRetry = func(attempt int, delay time.Duration, err error) {
		c.metrics.Retries.WithLabelValues(req.operation()).Inc()
		slog.Debug("retrying request",
			"operation", req.operation(),
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)
		if onRetry != nil {
			onRetry(attempt, delay, err)
		}
	}
	resp, err := Retry(ctx, p, func(ctx context.Context) (*Response, error) {
		return c.attempt(ctx, req)
	})
	return resp, c.finish(ctx, req, err)
}

// DoJSON runs req through Do and decodes the response into a T.
func DoJSON[T any](ctx context.Context, c *Client, req Request) (T, error) {
	var out T
	resp, err := c.Do(ctx, req)
	if err != nil {
		return out, err
	}
	if err := resp.Decode(&out); err != nil {
		return out, fmt.Errorf("transport: decode %s: %w", req.operation(), err)
	}
	return out, nil
}

// finish reports a terminal failure. Caller cancellation is returned as-is
// and never reported.
func (c *Client) finish(ctx context.Context, req Request, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return err
	}
	f, ok := AsFailure(err)
	if !ok {
		return err
	}
	level := notify.LevelError
	if f.Kind == KindAuthRequired || f.Kind == KindClientError {
		level = notify.LevelWarn
	}
	c.notifier.Notify(notify.New(level, f.Kind.String(), req.operation(), f.Detail))
	return err
}

func (c *Client) attempt(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	op := req.operation()

	token := ""
	if c.tokens != nil {
		token = c.tokens.Token()
	}
	if req.RequiresAuth && token == "" {
		c.metrics.Requests.WithLabelValues(op, KindAuthRequired.String()).Inc()
		return nil, &Failure{
			Kind:      KindAuthRequired,
			Detail:    "Not logged in. Please log in first.",
			Operation: op,
			Method:    req.Method,
			Path:      req.Path,
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("transport: rate limit %s: %w", op, err)
		}
	}

	actx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	actx, span := tracer.Start(actx, "watchtower.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("watchtower.operation", op),
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.Path),
			attribute.Bool("watchtower.authenticated", token != ""),
		),
	)
	defer span.End()

	hreq, err := req.build(actx, c.baseURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if token != "" {
		hreq.Header.Set("Authorization", "Bearer "+token)
	}
	reqID := uuid.NewString()
	hreq.Header.Set("X-Request-ID", reqID)

	start := time.Now()
	status := 0
	var body []byte
	resp, err := c.http.Do(hreq)
	if err == nil {
		status = resp.StatusCode
		body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		resp.Body.Close()
	}
	elapsed := time.Since(start)
	c.metrics.Duration.WithLabelValues(op).Observe(elapsed.Seconds())

	if err != nil && ctx.Err() != nil {
		c.metrics.Requests.WithLabelValues(op, "canceled").Inc()
		span.SetStatus(codes.Error, "canceled")
		return nil, ctx.Err()
	}

	f := Classify(status, body, err)
	if f == nil {
		c.metrics.Requests.WithLabelValues(op, "success").Inc()
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		return &Response{Status: status, Header: resp.Header, Body: body}, nil
	}

	f.Operation, f.Method, f.Path = op, req.Method, req.Path
	c.metrics.Requests.WithLabelValues(op, f.Kind.String()).Inc()
	span.SetAttributes(
		attribute.Int("http.response.status_code", status),
		attribute.String("watchtower.failure", f.Kind.String()),
	)
	span.SetStatus(codes.Error, f.Detail)
	slog.Debug("request failed",
		"operation", op,
		"request_id", reqID,
		"kind", f.Kind.String(),
		"status", status,
		"elapsed", elapsed,
		"error", f.Detail,
	)

	if f.Kind == KindAuthRequired && token != "" && !req.NoTeardown && c.tokens != nil {
		if c.tokens.Teardown(token, fmt.Sprintf("%s rejected the session token", op)) {
			c.metrics.Teardowns.Inc()
		}
	}
	return nil, f
}
