package resilience

import (
	"context"
	"fmt"
	"time"
)

// WithTimeout runs fn with a derived context that is cancelled after the
// given timeout. If the function does not complete in time,
// context.DeadlineExceeded is returned.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- fn(timeoutCtx)
	}()
	select {
	case err := <-done:
		return err
	case <-timeoutCtx.Done():
		if ctx.Err() != nil {
			return fmt.Errorf("%s: parent context cancelled: %w", name, ctx.Err())
		}
		return fmt.Errorf("%s: %w (limit: %v)", name, context.DeadlineExceeded, timeout)
	}
}

// Policy bundles the guards applied to one remote call: each attempt gets
// Timeout, runs through Breaker when set, and failed attempts are retried per
// Retry.
type Policy struct {
	Name    string
	Retry   RetryConfig
	Timeout time.Duration
	Breaker *CircuitBreaker
}

func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempt := func() error {
		return WithTimeout(ctx, p.Timeout, p.Name, fn)
	}
	return Retry(ctx, p.Name, p.Retry, func() error {
		if p.Breaker == nil {
			return attempt()
		}
		return p.Breaker.Execute(attempt)
	})
}
