package httpclient

import (
	"errors"
	"fmt"
	"time"
)

// ErrTimeout matches any *TimeoutError via errors.Is.
var ErrTimeout = errors.New("request timed out")

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	Method     string
	URL        string
	Status     int
	StatusText string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s %s", e.Status, e.StatusText, e.Method, e.URL)
}

// Retryable reports whether the status is worth retrying (429 or 5xx).
func (e *HTTPError) Retryable() bool {
	return e.Status == 429 || e.Status >= 500
}

// TimeoutError is returned when the client's own per-call timeout fires.
// Caller cancellation is reported as the context error instead.
type TimeoutError struct {
	Method  string
	URL     string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timed out after %s: %s %s", e.Timeout, e.Method, e.URL)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}
