package report

import (
	"errors"
	"fmt"
)

// ErrResearchNotConfigured is returned by ResearchStock when the generator
// has no research provider.
var ErrResearchNotConfigured = errors.New("research provider not configured")

// GenerationError is returned when no attempt produced a valid report.
// Err is the last attempt's error.
type GenerationError struct {
	Ticker   string
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("report generation for %s failed after %d attempt(s): %v", e.Ticker, e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
