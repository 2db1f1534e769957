package providers

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/thesis/internal/httpclient"
	"github.com/ternarybob/thesis/internal/ratelimit"
	"github.com/ternarybob/thesis/internal/retry"
)

// Options configures a provider client.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	RateLimit  ratelimit.Config
	Limiter    *ratelimit.Limiter
	Retry      *retry.Policy
	Headers    map[string]string
	Logger     arbor.ILogger
}

// Option configures a provider client.
type Option func(*Options)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) Option {
	return func(o *Options) {
		o.BaseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *Options) {
		o.HTTPClient = httpClient
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.Timeout = timeout
	}
}

// WithRateLimit replaces the provider's default allowance.
func WithRateLimit(cfg ratelimit.Config) Option {
	return func(o *Options) {
		o.RateLimit = cfg
	}
}

// WithLimiter uses an existing limiter instead of creating one.
func WithLimiter(limiter *ratelimit.Limiter) Option {
	return func(o *Options) {
		o.Limiter = limiter
	}
}

// WithRetryPolicy replaces the default backoff. ShouldRetry is always
// IsTransient.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(o *Options) {
		o.Retry = &policy
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// Client bundles the transport and retry policy a provider client needs.
type Client struct {
	Name   string
	HTTP   *httpclient.Client
	Retry  retry.Policy
	Logger arbor.ILogger
}

// NewClient applies opts over the provider defaults and builds the
// rate-limited transport. Every Client owns its own limiter unless
// WithLimiter supplies one.
func NewClient(name, defaultBaseURL string, defaultLimit ratelimit.Config, opts ...Option) *Client {
	o := &Options{
		BaseURL:   defaultBaseURL,
		Timeout:   httpclient.DefaultTimeout,
		RateLimit: defaultLimit,
		Headers:   map[string]string{},
		Logger:    arbor.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}

	limiter := o.Limiter
	if limiter == nil {
		limiter = ratelimit.New(o.RateLimit)
	}

	httpOpts := []httpclient.Option{
		httpclient.WithTimeout(o.Timeout),
		httpclient.WithLimiter(limiter),
		httpclient.WithHTTPClient(o.HTTPClient),
		httpclient.WithLogger(o.Logger),
	}
	for k, v := range o.Headers {
		httpOpts = append(httpOpts, httpclient.WithHeader(k, v))
	}

	base := retry.DefaultPolicy()
	if o.Retry != nil {
		base = *o.Retry
	}

	return &Client{
		Name:   name,
		HTTP:   httpclient.New(o.BaseURL, httpOpts...),
		Retry:  RetryPolicy(base, name, o.Logger),
		Logger: o.Logger,
	}
}

// WithHeader adds a header sent on every request.
func WithHeader(key, value string) Option {
	return func(o *Options) {
		o.Headers[key] = value
	}
}

// Get fetches path with transient retries.
func (c *Client) Get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	return Get(ctx, c.HTTP, c.Retry, path, params)
}
