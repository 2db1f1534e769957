package newsapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/thesis/internal/models"
	"github.com/ternarybob/thesis/internal/providers"
	"github.com/ternarybob/thesis/internal/ratelimit"
	"github.com/ternarybob/thesis/internal/retry"
)

const articlesBody = `{
  "status": "ok",
  "totalResults": 2,
  "articles": [
    {
      "source": {"id": "reuters", "name": "Reuters"},
      "author": "Jane Doe",
      "title": "Apple shares rally after record quarter",
      "description": "Apple beat estimates.",
      "url": "https://example.com/a",
      "urlToImage": null,
      "publishedAt": "2025-01-10T14:22:31Z",
      "content": null
    },
    {
      "source": {"id": null, "name": "Blog"},
      "author": null,
      "title": "What next for AAPL",
      "description": null,
      "url": "https://example.com/b",
      "urlToImage": "https://example.com/b.png",
      "publishedAt": "2025-01-09T08:00:00Z",
      "content": "Body"
    }
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	policy := retry.DefaultPolicy()
	policy.Sleep = retry.NoWait

	return NewClient("news-key",
		providers.WithBaseURL(server.URL),
		providers.WithRateLimit(ratelimit.Config{RequestsPerMinute: 1000}),
		providers.WithRetryPolicy(policy),
	)
}

func TestSearch_DefaultsAndHeader(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/everything", r.URL.Path)
		assert.Equal(t, "news-key", r.Header.Get("X-Api-Key"))

		q := r.URL.Query()
		assert.Equal(t, "apple", q.Get("q"))
		assert.Equal(t, "publishedAt", q.Get("sortBy"))
		assert.Equal(t, "20", q.Get("pageSize"))
		assert.Equal(t, "1", q.Get("page"))
		assert.Equal(t, "en", q.Get("language"))
		assert.Equal(t, "2025-01-01", q.Get("from"))
		assert.Empty(t, q.Get("to"))
		w.Write([]byte(articlesBody))
	})

	articles, err := client.Search(context.Background(), SearchOptions{
		Query: "apple",
		From:  time.Date(2025, 1, 1, 15, 0, 0, 0, time.UTC),
	})

	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "Reuters", articles[0].Source)
	assert.Equal(t, "Jane Doe", articles[0].Author)
	assert.Equal(t, time.Date(2025, 1, 10, 14, 22, 31, 0, time.UTC), articles[0].PublishedAt)
	assert.Empty(t, articles[1].Author)
	assert.Equal(t, "https://example.com/b.png", articles[1].ImageURL)
}

func TestSearch_PageSizeCapped(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("pageSize"))
		w.Write([]byte(articlesBody))
	})

	_, err := client.Search(context.Background(), SearchOptions{Query: "x", PageSize: 500})
	require.NoError(t, err)
}

func TestSearch_RejectsInvalidOptions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.Search(context.Background(), SearchOptions{Query: "x", SortBy: "newest"})
	assert.Error(t, err)

	_, err = client.Search(context.Background(), SearchOptions{})
	assert.Error(t, err)
}

func TestGetStockNews_QueryAndPageSize(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, `"AAPL" OR "AAPL stock"`, q.Get("q"))
		assert.Equal(t, "10", q.Get("pageSize"))
		w.Write([]byte(articlesBody))
	})

	articles, err := client.GetStockNews(context.Background(), "AAPL", SearchOptions{})
	require.NoError(t, err)
	assert.Len(t, articles, 2)
}

func TestGetTopHeadlines(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/top-headlines", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "business", q.Get("category"))
		assert.Equal(t, "us", q.Get("country"))
		assert.Equal(t, "5", q.Get("pageSize"))
		assert.Equal(t, "2", q.Get("page"))
		w.Write([]byte(articlesBody))
	})

	_, err := client.GetTopHeadlines(context.Background(), 5, 2)
	require.NoError(t, err)
}

func TestSearch_MalformedPayloadIsSchemaError(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing articles", body: `{"status":"ok","totalResults":0}`},
		{name: "article without url", body: `{"status":"ok","totalResults":1,"articles":[{"source":{"name":"x"},"title":"t","publishedAt":"2025-01-01T00:00:00Z"}]}`},
		{name: "bad date", body: `{"status":"ok","totalResults":1,"articles":[{"source":{"name":"x"},"title":"t","url":"u","publishedAt":"yesterday"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})

			_, err := client.Search(context.Background(), SearchOptions{Query: "x"})

			var schemaErr *providers.SchemaValidationError
			assert.ErrorAs(t, err, &schemaErr)
		})
	}
}

func TestAnalyzeSentiment(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantScore float64
		wantLabel string
	}{
		{name: "no keywords", text: "The company held its annual meeting.", wantScore: 0, wantLabel: models.SentimentNeutral},
		{name: "positive", text: "Shares SURGE to a record after earnings beat", wantScore: 1, wantLabel: models.SentimentPositive},
		{name: "negative", text: "Stock plunges on weak guidance and layoffs", wantScore: -1, wantLabel: models.SentimentNegative},
		// gain, high vs risk: (2-1)/3
		{name: "mixed positive", text: "Gains continue at a high despite risk", wantScore: 1.0 / 3.0, wantLabel: models.SentimentPositive},
		// strong vs concern: 0
		{name: "balanced", text: "Strong demand but margin concern", wantScore: 0, wantLabel: models.SentimentNeutral},
		// Substring matching: "slowdown" contains "low".
		{name: "substring", text: "Slowdown expected", wantScore: -1, wantLabel: models.SentimentNegative},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnalyzeSentiment(tt.text)
			assert.InDelta(t, tt.wantScore, got.Score, 1e-9)
			assert.Equal(t, tt.wantLabel, got.Label)
			assert.GreaterOrEqual(t, got.Score, -1.0)
			assert.LessOrEqual(t, got.Score, 1.0)
		})
	}
}
