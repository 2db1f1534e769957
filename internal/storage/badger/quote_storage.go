package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/thesis/internal/interfaces"
	"github.com/ternarybob/thesis/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// QuoteStorage implements interfaces.QuoteStorage for Badger. Quotes are
// keyed by ticker, so each save replaces the previous snapshot.
type QuoteStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewQuoteStorage creates a new QuoteStorage instance
func NewQuoteStorage(db *BadgerDB, logger arbor.ILogger) interfaces.QuoteStorage {
	return &QuoteStorage{
		db:     db,
		logger: logger,
	}
}

func (s *QuoteStorage) SaveQuote(ctx context.Context, quote *models.Quote) error {
	if quote.Ticker == "" {
		return fmt.Errorf("quote ticker is required")
	}
	if err := s.db.Store().Upsert(quote.Ticker, quote); err != nil {
		return fmt.Errorf("failed to save quote %s: %w", quote.Ticker, err)
	}
	return nil
}

func (s *QuoteStorage) SaveQuotes(ctx context.Context, quotes []*models.Quote) error {
	for _, q := range quotes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.SaveQuote(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *QuoteStorage) GetQuote(ctx context.Context, ticker string) (*models.Quote, error) {
	var quote models.Quote
	if err := s.db.Store().Get(ticker, &quote); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("quote for %s: %w", ticker, interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	return &quote, nil
}

func (s *QuoteStorage) ListQuotes(ctx context.Context) ([]*models.Quote, error) {
	var quotes []models.Quote
	if err := s.db.Store().Find(&quotes, nil); err != nil {
		return nil, fmt.Errorf("failed to list quotes: %w", err)
	}

	result := make([]*models.Quote, len(quotes))
	for i := range quotes {
		result[i] = &quotes[i]
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Ticker < result[j].Ticker
	})
	return result, nil
}
