package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/thesis/internal/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s := NewService(arbor.NewNoOpLogger())
	t.Cleanup(s.Stop)
	return s
}

func TestRegisterJob_RejectsBadSchedules(t *testing.T) {
	s := newTestService(t)
	noop := func(ctx context.Context) error { return nil }

	tests := []struct {
		name     string
		schedule string
	}{
		{name: "not cron", schedule: "weekly"},
		{name: "every minute", schedule: "* * * * *"},
		{name: "too frequent", schedule: "*/2 * * * *"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, s.RegisterJob(tt.name, tt.schedule, "", noop))
		})
	}

	require.NoError(t, s.RegisterJob("ok", "0 22 * * 0", "weekly", noop))
	assert.Error(t, s.RegisterJob("ok", "0 22 * * 0", "duplicate", noop))
}

func TestRunJob_RecordsStatus(t *testing.T) {
	s := newTestService(t)
	fail := true
	require.NoError(t, s.RegisterJob("job", "*/15 * * * *", "test job", func(ctx context.Context) error {
		if fail {
			return errors.New("boom")
		}
		return nil
	}))

	err := s.RunJob("job")
	require.EqualError(t, err, "boom")

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "job", jobs[0].Name)
	assert.Equal(t, "test job", jobs[0].Description)
	assert.Equal(t, "boom", jobs[0].LastError)
	assert.NotNil(t, jobs[0].LastRun)
	assert.False(t, jobs[0].IsRunning)

	fail = false
	require.NoError(t, s.RunJob("job"))
	assert.Empty(t, s.Jobs()[0].LastError)

	assert.Error(t, s.RunJob("missing"))
}

func TestRunJob_RecoversPanic(t *testing.T) {
	s := newTestService(t)
	require.NoError(t, s.RegisterJob("panics", "0 * * * *", "", func(ctx context.Context) error {
		panic("bad")
	}))

	err := s.RunJob("panics")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic: bad")
	assert.False(t, s.Jobs()[0].IsRunning)
}

func TestTriggerJob_RunsInBackground(t *testing.T) {
	s := newTestService(t)
	var calls atomic.Int32
	require.NoError(t, s.RegisterJob("bg", "0 * * * *", "", func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}))

	require.NoError(t, s.TriggerJob("bg"))
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Error(t, s.TriggerJob("missing"))
}

func TestStartAndStop_ReportsNextRun(t *testing.T) {
	s := NewService(arbor.NewNoOpLogger())
	require.NoError(t, s.RegisterJob("weekly", "0 22 * * 0", "", func(ctx context.Context) error { return nil }))

	s.Start()
	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	require.NotNil(t, jobs[0].NextRun)
	assert.Equal(t, time.Sunday, jobs[0].NextRun.Weekday())
	assert.Equal(t, 22, jobs[0].NextRun.Hour())

	s.Stop()
	s.Stop()
}

func TestStop_CancelsRunningJob(t *testing.T) {
	s := NewService(arbor.NewNoOpLogger())
	started := make(chan struct{})
	require.NoError(t, s.RegisterJob("long", "0 * * * *", "", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}))
	s.Start()

	require.NoError(t, s.TriggerJob("long"))
	<-started

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not wait for the cancelled job")
	}
	assert.Equal(t, context.Canceled.Error(), s.Jobs()[0].LastError)
}

type fakeEnqueuer struct {
	existing map[string]bool
	failing  map[string]bool
	got      []string
	triggers []models.TriggerType
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, ticker string, trigger models.TriggerType, data json.RawMessage) (*models.ReportJob, bool, error) {
	f.got = append(f.got, ticker)
	f.triggers = append(f.triggers, trigger)
	if f.failing[ticker] {
		return nil, false, errors.New("storage down")
	}
	return &models.ReportJob{Ticker: ticker, TriggerType: trigger}, !f.existing[ticker], nil
}

func staticUniverse(tickers ...string) UniverseFunc {
	return func(ctx context.Context) ([]string, error) { return tickers, nil }
}

func TestWeeklyRefresh_EnqueuesUniverse(t *testing.T) {
	enqueuer := &fakeEnqueuer{existing: map[string]bool{"MSFT": true}, failing: map[string]bool{"BAD": true}}
	handler := WeeklyRefresh(enqueuer, staticUniverse("AAPL", "MSFT", "BAD"), arbor.NewNoOpLogger())

	require.NoError(t, handler(context.Background()))
	assert.Equal(t, []string{"AAPL", "MSFT", "BAD"}, enqueuer.got)
	for _, trigger := range enqueuer.triggers {
		assert.Equal(t, models.TriggerWeeklyRefresh, trigger)
	}
}

func TestWeeklyRefresh_Errors(t *testing.T) {
	t.Run("universe", func(t *testing.T) {
		handler := WeeklyRefresh(&fakeEnqueuer{}, func(ctx context.Context) ([]string, error) {
			return nil, errors.New("no list")
		}, arbor.NewNoOpLogger())
		assert.ErrorContains(t, handler(context.Background()), "no list")
	})

	t.Run("all failed", func(t *testing.T) {
		enqueuer := &fakeEnqueuer{failing: map[string]bool{"AAPL": true}}
		handler := WeeklyRefresh(enqueuer, staticUniverse("AAPL"), arbor.NewNoOpLogger())
		assert.Error(t, handler(context.Background()))
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		enqueuer := &fakeEnqueuer{}
		handler := WeeklyRefresh(enqueuer, staticUniverse("AAPL"), arbor.NewNoOpLogger())
		assert.ErrorIs(t, handler(ctx), context.Canceled)
		assert.Empty(t, enqueuer.got)
	})
}

type syncerFunc func(ctx context.Context, tickers []string) (*models.QuoteSyncResult, error)

func (f syncerFunc) Sync(ctx context.Context, tickers []string) (*models.QuoteSyncResult, error) {
	return f(ctx, tickers)
}

func TestQuoteSync(t *testing.T) {
	tests := []struct {
		name    string
		result  *models.QuoteSyncResult
		err     error
		wantErr bool
	}{
		{name: "synced", result: &models.QuoteSyncResult{Synced: 2}},
		{name: "partial", result: &models.QuoteSyncResult{Synced: 1, Failed: 1}},
		{name: "all failed", result: &models.QuoteSyncResult{Failed: 2}, wantErr: true},
		{name: "error", err: errors.New("provider down"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			handler := QuoteSync(syncerFunc(func(ctx context.Context, tickers []string) (*models.QuoteSyncResult, error) {
				got = tickers
				return tt.result, tt.err
			}), staticUniverse("AAPL", "MSFT"), nil, arbor.NewNoOpLogger())

			err := handler(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, []string{"AAPL", "MSFT"}, got)
		})
	}
}

type fixedClock bool

func (c fixedClock) IsOpen(t time.Time) bool { return bool(c) }

func TestQuoteSync_SkipsWhenMarketClosed(t *testing.T) {
	calls := 0
	syncer := syncerFunc(func(ctx context.Context, tickers []string) (*models.QuoteSyncResult, error) {
		calls++
		return &models.QuoteSyncResult{Synced: len(tickers)}, nil
	})

	require.NoError(t, QuoteSync(syncer, staticUniverse("AAPL"), fixedClock(false), arbor.NewNoOpLogger())(context.Background()))
	assert.Equal(t, 0, calls)

	require.NoError(t, QuoteSync(syncer, staticUniverse("AAPL"), fixedClock(true), arbor.NewNoOpLogger())(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestNYSE(t *testing.T) {
	clock := NYSE()
	require.NotNil(t, clock)

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	assert.True(t, clock.IsOpen(time.Date(2025, 3, 5, 11, 0, 0, 0, ny)))   // Wednesday
	assert.False(t, clock.IsOpen(time.Date(2025, 3, 8, 11, 0, 0, 0, ny)))  // Saturday
	assert.False(t, clock.IsOpen(time.Date(2025, 12, 25, 11, 0, 0, 0, ny))) // Christmas
}
