package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSleep captures requested delays without waiting.
type recordingSleep struct {
	delays []time.Duration
}

func (r *recordingSleep) Sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func TestPolicy_DelaySequence(t *testing.T) {
	p := Policy{InitialDelay: time.Second, MaxDelay: 30 * time.Second, Multiplier: 2}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: 1000 * time.Millisecond},
		{attempt: 2, want: 2000 * time.Millisecond},
		{attempt: 3, want: 4000 * time.Millisecond},
		{attempt: 4, want: 8000 * time.Millisecond},
		{attempt: 5, want: 16000 * time.Millisecond},
		{attempt: 6, want: 30000 * time.Millisecond},
		{attempt: 20, want: 30000 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			assert.Equal(t, tt.want, p.Delay(tt.attempt))
		})
	}
}

func TestPolicy_DelayIsMonotonic(t *testing.T) {
	p := DefaultPolicy()
	prev := time.Duration(0)
	for k := 1; k <= 40; k++ {
		d := p.Delay(k)
		assert.GreaterOrEqual(t, d, prev)
		assert.LessOrEqual(t, d, p.MaxDelay)
		prev = d
	}
}

func TestDoValue_ReturnsFirstSuccess(t *testing.T) {
	rec := &recordingSleep{}
	p := DefaultPolicy()
	p.Sleep = rec.Sleep

	calls := 0
	result, err := DoValue(context.Background(), p, func(ctx context.Context) (string, error) {
		calls++
		if calls <= 2 {
			return "", fmt.Errorf("transient failure %d", calls)
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.delays)
}

func TestDo_ExhaustionReturnsLastError(t *testing.T) {
	rec := &recordingSleep{}
	p := DefaultPolicy()
	p.Sleep = rec.Sleep

	calls := 0
	err := Do(context.Background(), p, func(ctx context.Context) error {
		calls++
		return fmt.Errorf("failure #%d", calls)
	})

	require.Error(t, err)
	assert.Equal(t, "failure #4", err.Error())
	assert.Equal(t, 4, calls, "maxRetries+1 attempts")
	assert.Len(t, rec.delays, 3, "no delay after the final attempt")
}

func TestDo_ShouldRetryStopsImmediately(t *testing.T) {
	permanent := errors.New("permanent")
	rec := &recordingSleep{}
	p := DefaultPolicy()
	p.Sleep = rec.Sleep
	p.ShouldRetry = func(err error) bool { return !errors.Is(err, permanent) }

	calls := 0
	err := Do(context.Background(), p, func(ctx context.Context) error {
		calls++
		return permanent
	})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.delays)
}

func TestDo_OnRetryReceivesAttemptAndDelay(t *testing.T) {
	p := DefaultPolicy()
	p.MaxRetries = 2
	p.Sleep = NoWait

	var seen []int
	var delays []time.Duration
	p.OnRetry = func(retry int, delay time.Duration, err error) {
		seen = append(seen, retry)
		delays = append(delays, delay)
	}

	_ = Do(context.Background(), p, func(ctx context.Context) error {
		return errors.New("boom")
	})

	assert.Equal(t, []int{1, 2}, seen)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
}

func TestDo_ContextCancelledDuringDelay(t *testing.T) {
	p := DefaultPolicy()
	p.InitialDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, p, func(ctx context.Context) error {
			calls++
			return errors.New("unavailable")
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Contains(t, err.Error(), "unavailable")
	case <-time.After(2 * time.Second):
		t.Fatal("retry loop did not observe cancellation")
	}
	assert.Equal(t, 1, calls)
}

func TestPolicy_ZeroValueRunsOnce(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{}, func(ctx context.Context) error {
		calls++
		return errors.New("nope")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
