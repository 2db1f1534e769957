// Package httpclient is the rate-limited JSON transport shared by every
// outbound provider client.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/thesis/internal/ratelimit"
)

// DefaultTimeout bounds a single request, not including time spent waiting
// on the limiter.
const DefaultTimeout = 30 * time.Second

// Client issues GET/POST requests against a single base URL.
type Client struct {
	baseURL    string
	headers    map[string]string
	timeout    time.Duration
	limiter    *ratelimit.Limiter
	httpClient *http.Client
	logger     arbor.ILogger
}

// Option configures the Client.
type Option func(*Client)

// WithHeader adds a header sent on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithLimiter gates every request through limiter.
func WithLimiter(limiter *ratelimit.Limiter) Option {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for baseURL. A trailing slash on baseURL is ignored.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		headers:    map[string]string{"Content-Type": "application/json"},
		timeout:    DefaultTimeout,
		httpClient: &http.Client{},
		logger:     arbor.NewNoOpLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Limiter returns the limiter gating this client, or nil.
func (c *Client) Limiter() *ratelimit.Limiter {
	return c.limiter
}

// Get issues a GET to baseURL+path with params as the query string and
// returns the raw response body.
func (c *Client) Get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	return c.do(ctx, http.MethodGet, reqURL, nil)
}

// GetJSON is Get followed by a JSON decode into result.
func (c *Client) GetJSON(ctx context.Context, path string, params url.Values, result interface{}) error {
	body, err := c.Get(ctx, path, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Post issues a POST to baseURL+path with body JSON-encoded.
func (c *Client) Post(ctx context.Context, path string, body interface{}) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}
	return c.do(ctx, http.MethodPost, c.baseURL+path, payload)
}

func (c *Client) do(ctx context.Context, method, reqURL string, payload []byte) ([]byte, error) {
	// Wait for rate limiter before the request timeout starts
	if c.limiter != nil {
		if err := c.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(callCtx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			c.logger.Warn().
				Str("method", method).
				Str("url", redact(reqURL)).
				Dur("timeout", c.timeout).
				Msg("Request timed out")
			return nil, &TimeoutError{Method: method, URL: redact(reqURL), Timeout: c.timeout}
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{Method: method, URL: redact(reqURL), Timeout: c.timeout}
		}
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("url", redact(reqURL)).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("HTTP request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{
			Method:     method,
			URL:        redact(reqURL),
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Body:       string(body),
		}
	}

	return body, nil
}

// redact strips credential query parameters from URLs before they reach
// logs and error messages.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.RawQuery == "" {
		return rawURL
	}
	q := u.Query()
	for _, key := range []string{"apikey", "apiKey", "api_key", "api_token", "token"} {
		if q.Has(key) {
			q.Set(key, "REDACTED")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
