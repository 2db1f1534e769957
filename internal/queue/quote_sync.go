package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/thesis/internal/common"
	"github.com/ternarybob/thesis/internal/interfaces"
	"github.com/ternarybob/thesis/internal/models"
)

// QuoteSource fetches quotes for many tickers. Tickers it could not price
// are absent from the result.
type QuoteSource interface {
	GetQuotes(ctx context.Context, tickers []string) map[string]*models.Quote
}

// QuoteSyncer refreshes stored quotes in rate-limited batches.
type QuoteSyncer struct {
	source    QuoteSource
	quotes    interfaces.QuoteStorage
	batchSize int
	limiter   *rate.Limiter
	logger    arbor.ILogger
}

// NewQuoteSyncer creates a syncer that starts at most batchesPerMinute
// batches of batchSize tickers per minute.
func NewQuoteSyncer(source QuoteSource, quotes interfaces.QuoteStorage, batchSize, batchesPerMinute int, logger arbor.ILogger) *QuoteSyncer {
	if batchSize <= 0 {
		batchSize = 50
	}
	limit := rate.Inf
	if batchesPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(batchesPerMinute))
	}
	return &QuoteSyncer{
		source:    source,
		quotes:    quotes,
		batchSize: batchSize,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger,
	}
}

// Sync fetches and stores quotes for tickers. Per-ticker failures are
// counted in the result; only cancellation aborts the run.
func (s *QuoteSyncer) Sync(ctx context.Context, tickers []string) (*models.QuoteSyncResult, error) {
	result := &models.QuoteSyncResult{BatchID: common.NewBatchID()}
	tickers = common.Unique(tickers)

	s.logger.Info().
		Str("batch_id", result.BatchID).
		Int("tickers", len(tickers)).
		Msg("Syncing quotes")

	for _, batch := range common.Chunk(tickers, s.batchSize) {
		if err := s.limiter.Wait(ctx); err != nil {
			return result, err
		}
		s.syncBatch(ctx, batch, result)
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
	}

	s.logger.Info().
		Str("batch_id", result.BatchID).
		Int("synced", result.Synced).
		Int("failed", result.Failed).
		Msg("Quote sync complete")
	return result, nil
}

func (s *QuoteSyncer) syncBatch(ctx context.Context, batch []string, result *models.QuoteSyncResult) {
	fetched := s.source.GetQuotes(ctx, batch)

	for _, ticker := range batch {
		quote, ok := fetched[common.NormalizeTicker(ticker)]
		if !ok || quote == nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: no quote returned", ticker))
			continue
		}
		if err := s.quotes.SaveQuote(ctx, quote); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", ticker, err))
			continue
		}
		result.Synced++
	}
}
