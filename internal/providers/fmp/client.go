// Package fmp fetches quotes, profiles and fundamentals from Financial
// Modeling Prep.
package fmp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/thesis/internal/common"
	"github.com/ternarybob/thesis/internal/models"
	"github.com/ternarybob/thesis/internal/providers"
	"github.com/ternarybob/thesis/internal/ratelimit"
)

const (
	// DefaultBaseURL is the base URL for the FMP v3 API.
	DefaultBaseURL = "https://financialmodelingprep.com/api/v3"

	// Name identifies the provider in logs and errors.
	Name = "fmp"

	// BatchSize is the number of symbols per batch quote request.
	BatchSize = 50
)

// Client is an FMP API client.
type Client struct {
	*providers.Client
	apiKey string
	now    func() time.Time
}

// NewClient creates a client limited to ratelimit.FMP by default.
func NewClient(apiKey string, opts ...providers.Option) *Client {
	return &Client{
		Client: providers.NewClient(Name, DefaultBaseURL, ratelimit.FMP, opts...),
		apiKey: apiKey,
		now:    time.Now,
	}
}

// GetQuote retrieves the real-time quote for ticker.
func (c *Client) GetQuote(ctx context.Context, ticker string) (*models.Quote, error) {
	items, err := fetchList[quote](ctx, c, "/quote/"+ticker, nil)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("quote for %s: %w", ticker, providers.ErrNotFound)
	}
	return items[0].normalize(), nil
}

// GetProfile retrieves the company profile for ticker.
func (c *Client) GetProfile(ctx context.Context, ticker string) (*models.Profile, error) {
	items, err := fetchList[profile](ctx, c, "/profile/"+ticker, nil)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("profile for %s: %w", ticker, providers.ErrNotFound)
	}
	return items[0].normalize(), nil
}

// GetFundamentals fetches trailing ratios, key metrics and the latest
// growth figures concurrently and merges them. Each request passes through
// the client's limiter. Any request failing fails the call.
func (c *Client) GetFundamentals(ctx context.Context, ticker string) (*models.Fundamentals, error) {
	var (
		ratios  []ratiosTTM
		metrics []keyMetricsTTM
		growth  []financialGrowth
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ratios, err = fetchList[ratiosTTM](gctx, c, "/ratios-ttm/"+ticker, nil)
		return err
	})
	g.Go(func() (err error) {
		metrics, err = fetchList[keyMetricsTTM](gctx, c, "/key-metrics-ttm/"+ticker, nil)
		return err
	})
	g.Go(func() (err error) {
		growth, err = fetchList[financialGrowth](gctx, c, "/financial-growth/"+ticker, url.Values{"limit": {"1"}})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(ratios) == 0 && len(metrics) == 0 && len(growth) == 0 {
		return nil, fmt.Errorf("fundamentals for %s: %w", ticker, providers.ErrNotFound)
	}

	return mergeFundamentals(ticker, first(ratios), first(metrics), first(growth), c.now().UTC().Format("2006-01-02")), nil
}

// GetQuotes fetches quotes in batches of BatchSize symbols, keyed by the
// normalized requested ticker. A failed batch, a malformed item or a symbol
// that was not requested is logged and skipped.
func (c *Client) GetQuotes(ctx context.Context, tickers []string) map[string]*models.Quote {
	results := make(map[string]*models.Quote, len(tickers))

	tickers = common.NormalizeTickers(tickers)
	requested := make(map[string]bool, len(tickers))
	for _, ticker := range tickers {
		requested[ticker] = true
	}

	for start := 0; start < len(tickers); start += BatchSize {
		if ctx.Err() != nil {
			break
		}
		end := start + BatchSize
		if end > len(tickers) {
			end = len(tickers)
		}
		batch := tickers[start:end]

		body, err := c.Get(ctx, "/quote/"+strings.Join(batch, ","), c.params(nil))
		if err != nil {
			c.Logger.Warn().
				Int("batch_start", start).
				Int("batch_size", len(batch)).
				Err(err).
				Msg("Failed to fetch batch quotes")
			continue
		}

		var raw []json.RawMessage
		if err := json.Unmarshal(body, &raw); err != nil {
			c.Logger.Warn().
				Int("batch_start", start).
				Err(err).
				Msg("Batch quote response is not a list")
			continue
		}

		for _, item := range raw {
			var q quote
			if err := providers.Decode(Name, "/quote", item, &q); err != nil {
				c.Logger.Warn().
					Err(err).
					Msg("Skipping malformed quote in batch")
				continue
			}
			symbol := common.NormalizeTicker(*q.Symbol)
			if !requested[symbol] {
				c.Logger.Warn().
					Str("symbol", *q.Symbol).
					Msg("Skipping unrequested quote in batch")
				continue
			}
			results[symbol] = q.normalize()
		}
	}

	return results
}

// GetSP500Constituents returns the current S&P 500 symbols.
func (c *Client) GetSP500Constituents(ctx context.Context) ([]string, error) {
	items, err := fetchList[constituent](ctx, c, "/sp500_constituent", nil)
	if err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(items))
	for _, item := range items {
		symbols = append(symbols, *item.Symbol)
	}
	return symbols, nil
}

func (c *Client) params(extra url.Values) url.Values {
	params := url.Values{}
	for k, v := range extra {
		params[k] = v
	}
	params.Set("apikey", c.apiKey)
	return params
}

// fetchList GETs path and strictly decodes a JSON array of T, validating
// every element.
func fetchList[T any](ctx context.Context, c *Client, path string, extra url.Values) ([]T, error) {
	body, err := c.Get(ctx, path, c.params(extra))
	if err != nil {
		return nil, err
	}

	endpoint := endpointName(path)
	var items []T
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, &providers.SchemaValidationError{Provider: Name, Endpoint: endpoint, Err: err}
	}
	for i := range items {
		if err := providers.ValidateStruct(Name, endpoint, &items[i]); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// endpointName drops the symbol segment so errors group by endpoint.
func endpointName(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if i := strings.Index(trimmed, "/"); i >= 0 {
		trimmed = trimmed[:i]
	}
	return "/" + trimmed
}

func first[T any](items []T) *T {
	if len(items) == 0 {
		return nil
	}
	return &items[0]
}
