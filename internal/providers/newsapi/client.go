// Package newsapi searches news articles through NewsAPI.
package newsapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/ternarybob/thesis/internal/models"
	"github.com/ternarybob/thesis/internal/providers"
	"github.com/ternarybob/thesis/internal/ratelimit"
)

const (
	// DefaultBaseURL is the base URL for the NewsAPI v2 API.
	DefaultBaseURL = "https://newsapi.org/v2"

	// Name identifies the provider in logs and errors.
	Name = "newsapi"

	DefaultPageSize = 20
	MaxPageSize     = 100
	StockPageSize   = 10
)

// Sort orders accepted by Search.
const (
	SortRelevancy   = "relevancy"
	SortPopularity  = "popularity"
	SortPublishedAt = "publishedAt"
)

// SearchOptions configures an /everything query.
type SearchOptions struct {
	Query    string    `validate:"required"`
	From     time.Time // zero means unbounded
	To       time.Time
	SortBy   string `validate:"omitempty,oneof=relevancy popularity publishedAt"`
	PageSize int    // 0 means DefaultPageSize; capped at MaxPageSize
	Page     int    // 0 means 1
}

// Client is a NewsAPI client. The API key travels in the X-Api-Key header.
type Client struct {
	*providers.Client
}

// NewClient creates a client limited to ratelimit.NewsAPI by default.
func NewClient(apiKey string, opts ...providers.Option) *Client {
	opts = append([]providers.Option{providers.WithHeader("X-Api-Key", apiKey)}, opts...)
	return &Client{
		Client: providers.NewClient(Name, DefaultBaseURL, ratelimit.NewsAPI, opts...),
	}
}

// Search queries /everything. English articles only.
func (c *Client) Search(ctx context.Context, opts SearchOptions) ([]models.NewsArticle, error) {
	if err := providers.Validator().Struct(opts); err != nil {
		return nil, fmt.Errorf("invalid search options: %w", err)
	}

	sortBy := opts.SortBy
	if sortBy == "" {
		sortBy = SortPublishedAt
	}

	params := url.Values{}
	params.Set("q", opts.Query)
	params.Set("sortBy", sortBy)
	params.Set("pageSize", strconv.Itoa(pageSize(opts.PageSize)))
	params.Set("page", strconv.Itoa(page(opts.Page)))
	params.Set("language", "en")
	if !opts.From.IsZero() {
		params.Set("from", opts.From.UTC().Format("2006-01-02"))
	}
	if !opts.To.IsZero() {
		params.Set("to", opts.To.UTC().Format("2006-01-02"))
	}

	return c.fetch(ctx, "/everything", params)
}

// GetStockNews searches recent articles mentioning ticker. Non-zero fields
// of opts override the defaults.
func (c *Client) GetStockNews(ctx context.Context, ticker string, opts SearchOptions) ([]models.NewsArticle, error) {
	if opts.Query == "" {
		opts.Query = fmt.Sprintf(`"%s" OR "%s stock"`, ticker, ticker)
	}
	if opts.SortBy == "" {
		opts.SortBy = SortPublishedAt
	}
	if opts.PageSize == 0 {
		opts.PageSize = StockPageSize
	}
	return c.Search(ctx, opts)
}

// GetTopHeadlines returns US business headlines.
func (c *Client) GetTopHeadlines(ctx context.Context, size, pageNum int) ([]models.NewsArticle, error) {
	params := url.Values{}
	params.Set("category", "business")
	params.Set("country", "us")
	params.Set("pageSize", strconv.Itoa(pageSize(size)))
	params.Set("page", strconv.Itoa(page(pageNum)))

	return c.fetch(ctx, "/top-headlines", params)
}

func (c *Client) fetch(ctx context.Context, path string, params url.Values) ([]models.NewsArticle, error) {
	body, err := c.Get(ctx, path, params)
	if err != nil {
		return nil, err
	}

	var resp newsResponse
	if err := providers.Decode(Name, path, body, &resp); err != nil {
		return nil, err
	}

	articles := make([]models.NewsArticle, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		article, err := a.normalize()
		if err != nil {
			return nil, &providers.SchemaValidationError{Provider: Name, Endpoint: path, Err: err}
		}
		articles = append(articles, article)
	}
	return articles, nil
}

func pageSize(n int) int {
	switch {
	case n <= 0:
		return DefaultPageSize
	case n > MaxPageSize:
		return MaxPageSize
	default:
		return n
	}
}

func page(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}
