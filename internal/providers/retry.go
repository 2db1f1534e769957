package providers

import (
	"context"
	"errors"
	"net"
	"net/url"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/thesis/internal/httpclient"
	"github.com/ternarybob/thesis/internal/ratelimit"
	"github.com/ternarybob/thesis/internal/retry"
)

// IsTransient reports whether err may succeed on a later attempt: the
// client's own timeout, HTTP 429/5xx and network failures. Daily-cap,
// schema, not-found and caller cancellation errors are final.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var schemaErr *SchemaValidationError
	switch {
	case errors.Is(err, ratelimit.ErrRateLimitExceeded),
		errors.Is(err, ErrNotFound),
		errors.As(err, &schemaErr):
		return false
	case errors.Is(err, httpclient.ErrTimeout):
		return true
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}

	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Retryable()
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// RetryPolicy returns base with transient-only retries and retry logging for
// the named provider.
func RetryPolicy(base retry.Policy, provider string, logger arbor.ILogger) retry.Policy {
	p := base
	p.ShouldRetry = IsTransient
	if logger != nil {
		p.OnRetry = func(attempt int, delay time.Duration, err error) {
			logger.Warn().
				Str("provider", provider).
				Int("retry", attempt).
				Dur("delay", delay).
				Err(err).
				Msg("Provider request failed, retrying")
		}
	}
	return p
}

// Get issues a GET through client, retrying transient failures under
// policy. Each attempt acquires the client's limiter again.
func Get(ctx context.Context, client *httpclient.Client, policy retry.Policy, path string, params url.Values) ([]byte, error) {
	return retry.DoValue(ctx, policy, func(ctx context.Context) ([]byte, error) {
		return client.Get(ctx, path, params)
	})
}
