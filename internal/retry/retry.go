// Package retry provides the exponential-backoff policy shared by provider
// clients, the report generator and the job queue.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Defaults for DefaultPolicy.
const (
	DefaultMaxRetries   = 3
	DefaultInitialDelay = time.Second
	DefaultMaxDelay     = 30 * time.Second
	DefaultMultiplier   = 2.0
)

// Policy describes how a failing call is retried. The zero value performs a
// single attempt.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt, so a call
	// runs at most MaxRetries+1 times.
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64

	// ShouldRetry reports whether err is worth another attempt. Nil retries
	// every error.
	ShouldRetry func(err error) bool

	// OnRetry is called before each delay with the upcoming retry number
	// (1-based), the delay and the error that triggered it.
	OnRetry func(retry int, delay time.Duration, err error)

	// Sleep waits between attempts. Nil uses a timer bound to ctx.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy returns 3 retries starting at 1s, doubling, capped at 30s.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:   DefaultMaxRetries,
		InitialDelay: DefaultInitialDelay,
		MaxDelay:     DefaultMaxDelay,
		Multiplier:   DefaultMultiplier,
	}
}

// Delay returns the wait before retry k (k >= 1):
// min(InitialDelay * Multiplier^(k-1), MaxDelay).
func (p Policy) Delay(k int) time.Duration {
	if k < 1 {
		return 0
	}
	multiplier := p.Multiplier
	if multiplier <= 0 {
		multiplier = 1
	}

	delay := float64(p.InitialDelay) * math.Pow(multiplier, float64(k-1))
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	if delay > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(delay)
}

// Attempts is the maximum number of calls the policy allows.
func (p Policy) Attempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

// Do calls fn until it succeeds, the policy is exhausted, ShouldRetry
// rejects the error, or ctx ends. On exhaustion the last error is returned
// unchanged.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	_, err := DoValue(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoValue is Do for functions that return a value.
func DoValue[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	attempts := p.Attempts()
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == attempts || ctx.Err() != nil {
			break
		}
		if p.ShouldRetry != nil && !p.ShouldRetry(err) {
			break
		}

		delay := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}
		if err := p.sleep(ctx, delay); err != nil {
			return zero, fmt.Errorf("retry aborted: %w (last error: %v)", err, lastErr)
		}
	}

	return zero, lastErr
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NoWait is a Sleep that returns immediately unless ctx is done.
func NoWait(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
