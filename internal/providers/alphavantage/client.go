// Package alphavantage fetches quotes and company overviews from Alpha Vantage.
package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/thesis/internal/common"
	"github.com/ternarybob/thesis/internal/models"
	"github.com/ternarybob/thesis/internal/providers"
	"github.com/ternarybob/thesis/internal/ratelimit"
)

const (
	// DefaultBaseURL is the base URL for the Alpha Vantage API.
	DefaultBaseURL = "https://www.alphavantage.co"

	// Name identifies the provider in logs and errors.
	Name = "alphavantage"

	queryPath = "/query"
)

// Client is an Alpha Vantage API client.
type Client struct {
	*providers.Client
	apiKey string
}

// NewClient creates a client limited to ratelimit.AlphaVantage by default.
func NewClient(apiKey string, opts ...providers.Option) *Client {
	return &Client{
		Client: providers.NewClient(Name, DefaultBaseURL, ratelimit.AlphaVantage, opts...),
		apiKey: apiKey,
	}
}

// GetQuote retrieves the latest GLOBAL_QUOTE for ticker.
func (c *Client) GetQuote(ctx context.Context, ticker string) (*models.Quote, error) {
	body, err := c.query(ctx, "GLOBAL_QUOTE", ticker)
	if err != nil {
		return nil, err
	}

	var resp globalQuoteResponse
	if err := c.decode("GLOBAL_QUOTE", body, &resp); err != nil {
		return nil, err
	}
	// Unknown symbols come back as an empty "Global Quote" object.
	if isEmptyObject(resp.Quote) {
		return nil, fmt.Errorf("quote for %s: %w", ticker, providers.ErrNotFound)
	}

	var quote globalQuote
	if err := providers.Decode(Name, "GLOBAL_QUOTE", resp.Quote, &quote); err != nil {
		return nil, err
	}

	return quote.normalize()
}

// GetOverview retrieves company information and fundamentals for ticker.
func (c *Client) GetOverview(ctx context.Context, ticker string) (*models.Overview, error) {
	body, err := c.query(ctx, "OVERVIEW", ticker)
	if err != nil {
		return nil, err
	}

	if isEmptyObject(body) {
		return nil, fmt.Errorf("overview for %s: %w", ticker, providers.ErrNotFound)
	}

	var resp overviewResponse
	if err := c.decode("OVERVIEW", body, &resp); err != nil {
		return nil, err
	}

	return resp.normalize(), nil
}

// GetQuotes fetches quotes one ticker at a time, keyed by the normalized
// requested ticker. Tickers that fail are logged and left out of the result.
func (c *Client) GetQuotes(ctx context.Context, tickers []string) map[string]*models.Quote {
	results := make(map[string]*models.Quote, len(tickers))

	tickers = common.NormalizeTickers(tickers)
	for i, ticker := range tickers {
		if ctx.Err() != nil {
			c.Logger.Warn().
				Int("remaining", len(tickers)-i).
				Msg("Quote batch cancelled")
			break
		}

		quote, err := c.GetQuote(ctx, ticker)
		if err != nil {
			c.Logger.Warn().
				Str("ticker", ticker).
				Err(err).
				Msg("Failed to fetch quote")
			continue
		}
		results[ticker] = quote
	}

	return results
}

func (c *Client) query(ctx context.Context, function, ticker string) ([]byte, error) {
	params := url.Values{}
	params.Set("function", function)
	params.Set("symbol", ticker)
	params.Set("apikey", c.apiKey)

	return c.Get(ctx, queryPath, params)
}

// decode surfaces Alpha Vantage's in-band error payloads, which arrive with
// HTTP 200, before the strict decode.
func (c *Client) decode(function string, body []byte, out interface{}) error {
	var apiErr errorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if msg := apiErr.message(); msg != "" {
			return &providers.SchemaValidationError{
				Provider: Name,
				Endpoint: function,
				Err:      fmt.Errorf("provider error: %s", msg),
			}
		}
	}
	return providers.Decode(Name, function, body, out)
}

func isEmptyObject(body []byte) bool {
	var m map[string]json.RawMessage
	return json.Unmarshal(body, &m) == nil && len(m) == 0
}

func (q *globalQuote) normalize() (*models.Quote, error) {
	price := providers.ParseNullableFloat(*q.Price)
	if price == nil {
		return nil, &providers.SchemaValidationError{
			Provider: Name,
			Endpoint: "GLOBAL_QUOTE",
			Err:      fmt.Errorf("non-numeric price %q", *q.Price),
		}
	}

	return &models.Quote{
		Ticker:           *q.Symbol,
		Source:           Name,
		Price:            *price,
		Open:             providers.ParseNullableFloat(*q.Open),
		DayHigh:          providers.ParseNullableFloat(*q.High),
		DayLow:           providers.ParseNullableFloat(*q.Low),
		Volume:           providers.ParseNullableInt(*q.Volume),
		PreviousClose:    providers.ParseNullableFloat(*q.PreviousClose),
		Change:           providers.ParseNullableFloat(*q.Change),
		ChangePercent:    providers.ParseNullableFloat(strings.TrimSuffix(*q.ChangePercent, "%")),
		LatestTradingDay: *q.LatestTradingDay,
		Timestamp:        time.Now().UTC(),
	}, nil
}

func (o *overviewResponse) normalize() *models.Overview {
	return &models.Overview{
		Ticker:             *o.Symbol,
		Name:               *o.Name,
		Description:        *o.Description,
		Exchange:           *o.Exchange,
		Sector:             *o.Sector,
		Industry:           *o.Industry,
		MarketCap:          providers.ParseNullableFloat(*o.MarketCapitalization),
		PE:                 providers.ParseNullableFloat(*o.PERatio),
		PEG:                providers.ParseNullableFloat(*o.PEGRatio),
		BookValue:          providers.ParseNullableFloat(*o.BookValue),
		DividendPerShare:   providers.ParseNullableFloat(*o.DividendPerShare),
		DividendYield:      providers.ParseNullableFloat(*o.DividendYield),
		EPS:                providers.ParseNullableFloat(*o.EPS),
		ProfitMargin:       providers.ParseNullableFloat(*o.ProfitMargin),
		OperatingMargin:    providers.ParseNullableFloat(*o.OperatingMarginTTM),
		ROA:                providers.ParseNullableFloat(*o.ReturnOnAssetsTTM),
		ROE:                providers.ParseNullableFloat(*o.ReturnOnEquityTTM),
		Revenue:            providers.ParseNullableFloat(*o.RevenueTTM),
		GrossProfit:        providers.ParseNullableFloat(*o.GrossProfitTTM),
		EPSGrowthYoY:       providers.ParseNullableFloat(*o.QuarterlyEarningsGrowthYOY),
		RevenueGrowthYoY:   providers.ParseNullableFloat(*o.QuarterlyRevenueGrowthYOY),
		AnalystTargetPrice: providers.ParseNullableFloat(*o.AnalystTargetPrice),
		TrailingPE:         providers.ParseNullableFloat(*o.TrailingPE),
		ForwardPE:          providers.ParseNullableFloat(*o.ForwardPE),
		PS:                 providers.ParseNullableFloat(*o.PriceToSalesRatioTTM),
		PB:                 providers.ParseNullableFloat(*o.PriceToBookRatio),
		EVToRevenue:        providers.ParseNullableFloat(*o.EVToRevenue),
		EVToEBITDA:         providers.ParseNullableFloat(*o.EVToEBITDA),
		Beta:               providers.ParseNullableFloat(*o.Beta),
		Week52High:         providers.ParseNullableFloat(*o.Week52High),
		Week52Low:          providers.ParseNullableFloat(*o.Week52Low),
		SMA50:              providers.ParseNullableFloat(*o.MovingAverage50),
		SMA200:             providers.ParseNullableFloat(*o.MovingAverage200),
		SharesOutstanding:  providers.ParseNullableFloat(*o.SharesOutstanding),
		DividendDate:       optionalDate(o.DividendDate),
		ExDividendDate:     optionalDate(o.ExDividendDate),
	}
}

func optionalDate(s *string) string {
	if s == nil {
		return ""
	}
	switch v := strings.TrimSpace(*s); v {
	case "None", "-", "0000-00-00":
		return ""
	default:
		return v
	}
}
