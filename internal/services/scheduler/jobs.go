package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/thesis/internal/models"
)

// Job names.
const (
	JobWeeklyRefresh = "weekly_refresh"
	JobQuoteSync     = "quote_sync"
)

// Enqueuer queues report jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, ticker string, trigger models.TriggerType, data json.RawMessage) (*models.ReportJob, bool, error)
}

// QuoteSyncer refreshes stored quotes.
type QuoteSyncer interface {
	Sync(ctx context.Context, tickers []string) (*models.QuoteSyncResult, error)
}

// UniverseFunc returns the tickers the scheduled jobs cover.
type UniverseFunc func(ctx context.Context) ([]string, error)

// WeeklyRefresh enqueues a weekly_refresh report job for every ticker in
// the universe. Tickers that already have a queued job are left alone.
func WeeklyRefresh(enqueuer Enqueuer, universe UniverseFunc, logger arbor.ILogger) Handler {
	return func(ctx context.Context) error {
		tickers, err := universe(ctx)
		if err != nil {
			return fmt.Errorf("failed to load universe: %w", err)
		}

		enqueued, skipped, failed := 0, 0, 0
		for _, ticker := range tickers {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			_, created, err := enqueuer.Enqueue(ctx, ticker, models.TriggerWeeklyRefresh, nil)
			switch {
			case err != nil:
				failed++
				logger.Warn().Str("ticker", ticker).Err(err).Msg("Failed to enqueue weekly refresh")
			case created:
				enqueued++
			default:
				skipped++
			}
		}

		logger.Info().
			Int("enqueued", enqueued).
			Int("already_queued", skipped).
			Int("failed", failed).
			Msg("Weekly refresh scheduled")

		if failed > 0 && enqueued == 0 && skipped == 0 {
			return fmt.Errorf("weekly refresh enqueued nothing: %d failures", failed)
		}
		return nil
	}
}

// QuoteSync refreshes quotes for the universe. When clock is set, runs that
// fall outside trading hours are skipped.
func QuoteSync(syncer QuoteSyncer, universe UniverseFunc, clock MarketClock, logger arbor.ILogger) Handler {
	return func(ctx context.Context) error {
		if clock != nil && !clock.IsOpen(time.Now()) {
			logger.Debug().Msg("Market closed, skipping quote sync")
			return nil
		}

		tickers, err := universe(ctx)
		if err != nil {
			return fmt.Errorf("failed to load universe: %w", err)
		}

		result, err := syncer.Sync(ctx, tickers)
		if err != nil {
			return err
		}
		if result.Synced == 0 && result.Failed > 0 {
			return fmt.Errorf("quote sync failed for all %d tickers", result.Failed)
		}
		return nil
	}
}
