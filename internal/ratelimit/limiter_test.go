package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when the limiter sleeps or the test moves it.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 6, 9, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

func newTestLimiter(cfg Config, clock *fakeClock) *Limiter {
	return New(cfg, WithClock(clock.Now, clock.Sleep))
}

func TestLimiter_BurstUpToMaxTokensWithoutWaiting(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(Config{RequestsPerMinute: 5}, clock)

	for i := 0; i < 5; i++ {
		require.NoError(t, l.Acquire(context.Background()))
	}

	assert.Empty(t, clock.Sleeps())
	assert.InDelta(t, 0, l.Snapshot().Tokens, 1e-9)
}

func TestLimiter_WaitsForRefillWhenEmpty(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(Config{RequestsPerMinute: 10}, clock)

	for i := 0; i < 10; i++ {
		require.NoError(t, l.Acquire(context.Background()))
	}
	require.NoError(t, l.Acquire(context.Background()))

	sleeps := clock.Sleeps()
	require.Len(t, sleeps, 1)
	// 10 rpm refills one token every 6 seconds.
	assert.InDelta(t, float64(6*time.Second), float64(sleeps[0]), float64(time.Millisecond))
}

func TestLimiter_PartialRefillShortensWait(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(Config{RequestsPerMinute: 60}, clock)

	for i := 0; i < 60; i++ {
		require.NoError(t, l.Acquire(context.Background()))
	}

	// Half a token accrues in 500ms at 60 rpm, leaving 500ms to wait.
	clock.Advance(500 * time.Millisecond)
	require.NoError(t, l.Acquire(context.Background()))

	sleeps := clock.Sleeps()
	require.Len(t, sleeps, 1)
	assert.InDelta(t, float64(500*time.Millisecond), float64(sleeps[0]), float64(time.Millisecond))
}

func TestLimiter_TokensStayWithinBounds(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(Config{RequestsPerMinute: 3}, clock)

	steps := []time.Duration{0, 0, 0, 0, 10 * time.Second, time.Hour, 0, 0, 0, 0, 0, 5 * time.Second}
	for _, step := range steps {
		clock.Advance(step)
		require.NoError(t, l.Acquire(context.Background()))

		snap := l.Snapshot()
		assert.GreaterOrEqual(t, snap.Tokens, 0.0)
		assert.LessOrEqual(t, snap.Tokens, snap.MaxTokens)
	}

	// A long idle period never overfills the bucket.
	clock.Advance(24 * time.Hour)
	assert.Equal(t, 3.0, l.Snapshot().Tokens)
}

func TestLimiter_DailyCapFailsFast(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(Config{RequestsPerMinute: 100, RequestsPerDay: 3}, clock)

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Acquire(context.Background()))
	}

	err := l.Acquire(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRateLimitExceeded))
	assert.Empty(t, clock.Sleeps(), "daily cap must not wait")
	assert.Equal(t, 3, l.Snapshot().DailyCount)
}

func TestLimiter_DailyWindowResetsAfter24Hours(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(Config{RequestsPerMinute: 100, RequestsPerDay: 2}, clock)
	start := clock.Now()

	require.NoError(t, l.Acquire(context.Background()))
	require.NoError(t, l.Acquire(context.Background()))
	require.ErrorIs(t, l.Acquire(context.Background()), ErrRateLimitExceeded)

	// Exactly 24h is still inside the window.
	clock.Advance(DailyWindow)
	require.ErrorIs(t, l.Acquire(context.Background()), ErrRateLimitExceeded)

	clock.Advance(time.Millisecond)
	require.NoError(t, l.Acquire(context.Background()))

	snap := l.Snapshot()
	assert.Equal(t, 1, snap.DailyCount)
	assert.Equal(t, start.Add(DailyWindow+time.Millisecond), snap.DailyWindowStart)
}

func TestLimiter_ConcurrentCallersAreSerialized(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(Config{RequestsPerMinute: 10}, clock)

	const callers = 25
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- l.Acquire(context.Background())
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	// The first 10 ride the full bucket; every later caller waits one refill.
	sleeps := clock.Sleeps()
	assert.Len(t, sleeps, callers-10)
	for _, d := range sleeps {
		assert.InDelta(t, float64(6*time.Second), float64(d), float64(time.Millisecond))
	}

	snap := l.Snapshot()
	assert.GreaterOrEqual(t, snap.Tokens, 0.0)
	assert.Equal(t, callers, snap.DailyCount)
}

func TestLimiter_CancelledContextConsumesNothing(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(Config{RequestsPerMinute: 1}, clock)
	require.NoError(t, l.Acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Acquire(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, l.Snapshot().DailyCount)
}

func TestLimiter_RealClockWaitsForToken(t *testing.T) {
	// 120 rpm is one token per 500ms.
	l := New(Config{RequestsPerMinute: 120})
	for i := 0; i < 120; i++ {
		require.NoError(t, l.Acquire(context.Background()))
	}

	start := time.Now()
	require.NoError(t, l.Acquire(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 250*time.Millisecond)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "minute only", cfg: Config{RequestsPerMinute: 5}},
		{name: "with daily cap", cfg: AlphaVantage},
		{name: "zero rpm", cfg: Config{RequestsPerMinute: 0}, wantErr: true},
		{name: "negative daily", cfg: Config{RequestsPerMinute: 5, RequestsPerDay: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
