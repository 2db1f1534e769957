// Package providers holds the pieces shared by the market-data and news
// clients: strict payload decoding, sentinel normalization and the error
// classification that drives retries.
package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrNotFound is returned when a provider answers successfully with an
// empty result set.
var ErrNotFound = errors.New("no data found")

// SchemaValidationError means the provider answered but the payload did not
// have the expected shape. It usually signals a provider contract change.
type SchemaValidationError struct {
	Provider string
	Endpoint string
	Err      error
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("%s %s: unexpected response schema: %v", e.Provider, e.Endpoint, e.Err)
}

func (e *SchemaValidationError) Unwrap() error {
	return e.Err
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared struct validator.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Decode unmarshals body into out and validates the result's struct tags.
// Type mismatches and failed tags are reported as *SchemaValidationError.
// Fields the target does not declare are ignored.
func Decode(provider, endpoint string, body []byte, out interface{}) error {
	if err := json.Unmarshal(body, out); err != nil {
		return &SchemaValidationError{Provider: provider, Endpoint: endpoint, Err: err}
	}
	return ValidateStruct(provider, endpoint, out)
}

// ValidateStruct runs the validator over v, which must be a struct or a
// pointer to one.
func ValidateStruct(provider, endpoint string, v interface{}) error {
	if err := Validator().Struct(v); err != nil {
		return &SchemaValidationError{Provider: provider, Endpoint: endpoint, Err: err}
	}
	return nil
}

// ParseNullableFloat converts a provider numeric string to a number. The
// sentinels "None", "-", "N/A" and "" (and anything unparseable or
// non-finite) become nil.
func ParseNullableFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	switch s {
	case "", "None", "-", "N/A":
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ParseNullableInt is ParseNullableFloat for integer fields. Values with a
// fractional part are truncated.
func ParseNullableInt(s string) *int64 {
	f := ParseNullableFloat(s)
	if f == nil {
		return nil
	}
	if *f > math.MaxInt64 || *f < math.MinInt64 {
		return nil
	}
	v := int64(*f)
	return &v
}

// FiniteOrNil drops NaN and infinities from an already-decoded number.
func FiniteOrNil(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}

// Coalesce returns the first non-nil value.
func Coalesce(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
