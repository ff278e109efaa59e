package transport

import (
	"context"
	"time"
)

// Policy controls Retry.
type Policy struct {
	MaxRetries int           // extra attempts after the first
	BaseDelay  time.Duration // wait after attempt n is BaseDelay * 2^n

	// Sleep waits for d or until ctx is done. Defaults to a timer-based wait.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called before each wait.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultPolicy retries twice, after 300ms and 600ms.
var DefaultPolicy = Policy{MaxRetries: 2, BaseDelay: 300 * time.Millisecond}

// Delay returns the wait after failed attempt n (0-based).
func (p Policy) Delay(attempt int) time.Duration {
	return p.BaseDelay << attempt
}

// Retry calls fn until it succeeds, returns a non-retryable error, or
// MaxRetries extra attempts have been made. Only *Failure values of a
// retryable Kind are retried. The last error is returned unchanged.
func Retry[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	for attempt := 0; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		f, ok := AsFailure(err)
		if !ok || !f.Kind.Retryable() || attempt >= p.MaxRetries {
			return v, err
		}
		d := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, d, err)
		}
		if serr := sleep(ctx, d); serr != nil {
			var zero T
			return zero, serr
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
