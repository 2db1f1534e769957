// Package ratelimit implements the per-provider token bucket that gates
// outbound API requests, with an optional rolling daily cap.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DailyWindow is the length of the rolling daily quota window.
const DailyWindow = 24 * time.Hour

// ErrRateLimitExceeded is returned when the daily cap has been reached.
// Callers must not retry against it within the same window.
var ErrRateLimitExceeded = errors.New("daily rate limit exceeded")

// Config describes a provider's request allowance.
type Config struct {
	RequestsPerMinute int `toml:"requests_per_minute"`
	RequestsPerDay    int `toml:"requests_per_day"` // 0 disables the daily cap
}

// Validate checks the config invariants.
func (c Config) Validate() error {
	if c.RequestsPerMinute <= 0 {
		return fmt.Errorf("requests_per_minute must be positive, got %d", c.RequestsPerMinute)
	}
	if c.RequestsPerDay < 0 {
		return fmt.Errorf("requests_per_day must not be negative, got %d", c.RequestsPerDay)
	}
	return nil
}

// Snapshot is a point-in-time view of a limiter's counters.
type Snapshot struct {
	Tokens           float64
	MaxTokens        float64
	DailyCount       int
	DailyLimit       int
	DailyWindowStart time.Time
}

// Limiter is a token bucket refilled continuously at RequestsPerMinute/60000
// tokens per millisecond, holding at most RequestsPerMinute tokens.
//
// Acquire holds a single-slot lock across refill, decision, wait and
// decrement, so concurrent callers are admitted one at a time and the token
// count never leaves [0, maxTokens].
type Limiter struct {
	lock chan struct{}

	tokens      float64
	maxTokens   float64
	refillPerMs float64
	lastRefill  time.Time

	dailyLimit       int
	dailyCount       int
	dailyWindowStart time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source and the wait function. Used by tests
// to drive the bucket without real sleeps.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
		if sleep != nil {
			l.sleep = sleep
		}
	}
}

// New creates a limiter with a full bucket. A non-positive RequestsPerMinute
// is treated as 1 so the limiter is always usable; call Config.Validate to
// reject such configs up front.
func New(cfg Config, opts ...Option) *Limiter {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 1
	}

	l := &Limiter{
		lock:        make(chan struct{}, 1),
		maxTokens:   float64(rpm),
		refillPerMs: float64(rpm) / 60000,
		dailyLimit:  cfg.RequestsPerDay,
		now:         time.Now,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(l)
	}

	now := l.now()
	l.tokens = l.maxTokens
	l.lastRefill = now
	l.dailyWindowStart = now
	return l
}

// Acquire blocks until a request may be issued. It fails immediately with
// ErrRateLimitExceeded when the daily cap is reached, and with ctx.Err() if
// the context ends while waiting. A failed Acquire consumes nothing.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case l.lock <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-l.lock }()

	now := l.now()

	if l.dailyLimit > 0 {
		if now.Sub(l.dailyWindowStart) > DailyWindow {
			l.dailyCount = 0
			l.dailyWindowStart = now
		}
		if l.dailyCount >= l.dailyLimit {
			return fmt.Errorf("%w: %d of %d requests used, window resets at %s",
				ErrRateLimitExceeded, l.dailyCount, l.dailyLimit,
				l.dailyWindowStart.Add(DailyWindow).Format(time.RFC3339))
		}
	}

	l.refill(now)

	if l.tokens < 1 {
		waitMs := (1 - l.tokens) / l.refillPerMs
		if err := l.sleep(ctx, time.Duration(waitMs*float64(time.Millisecond))); err != nil {
			return err
		}
		l.tokens = 1
		l.lastRefill = l.now()
	}

	l.tokens--
	l.dailyCount++
	return nil
}

// Snapshot returns the current counters with tokens refilled up to now.
func (l *Limiter) Snapshot() Snapshot {
	l.lock <- struct{}{}
	defer func() { <-l.lock }()

	l.refill(l.now())
	return Snapshot{
		Tokens:           l.tokens,
		MaxTokens:        l.maxTokens,
		DailyCount:       l.dailyCount,
		DailyLimit:       l.dailyLimit,
		DailyWindowStart: l.dailyWindowStart,
	}
}

func (l *Limiter) refill(now time.Time) {
	elapsed := now.Sub(l.lastRefill)
	if elapsed > 0 {
		l.tokens += float64(elapsed) / float64(time.Millisecond) * l.refillPerMs
		if l.tokens > l.maxTokens {
			l.tokens = l.maxTokens
		}
	}
	l.lastRefill = now
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
