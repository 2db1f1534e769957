package providers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/thesis/internal/httpclient"
	"github.com/ternarybob/thesis/internal/ratelimit"
	"github.com/ternarybob/thesis/internal/retry"
)

func TestParseNullableFloat(t *testing.T) {
	tests := []struct {
		in   string
		want *float64
	}{
		{in: "28.5", want: ptr(28.5)},
		{in: " 0.0123 ", want: ptr(0.0123)},
		{in: "-4.2", want: ptr(-4.2)},
		{in: "0", want: ptr(0)},
		{in: "None"},
		{in: "-"},
		{in: ""},
		{in: "N/A"},
		{in: "NaN"},
		{in: "Infinity"},
		{in: "abc"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.in), func(t *testing.T) {
			got := ParseNullableFloat(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
			assert.False(t, math.IsNaN(*got))
		})
	}
}

func TestParseNullableInt(t *testing.T) {
	v := ParseNullableInt("48213950")
	require.NotNil(t, v)
	assert.Equal(t, int64(48213950), *v)

	assert.Nil(t, ParseNullableInt("None"))
	assert.Nil(t, ParseNullableInt("-"))
}

type sample struct {
	Symbol *string  `json:"symbol" validate:"required"`
	Price  *float64 `json:"price" validate:"required"`
	PE     *float64 `json:"pe"`
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "valid", body: `{"symbol":"AAPL","price":189.5,"pe":null}`},
		{name: "unknown fields ignored", body: `{"symbol":"AAPL","price":189.5,"extra":{"a":1}}`},
		{name: "missing required", body: `{"symbol":"AAPL"}`, wantErr: true},
		{name: "null required", body: `{"symbol":"AAPL","price":null}`, wantErr: true},
		{name: "wrong type", body: `{"symbol":"AAPL","price":"189.5"}`, wantErr: true},
		{name: "not json", body: `<html>oops</html>`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out sample
			err := Decode("fmp", "/quote", []byte(tt.body), &out)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, "AAPL", *out.Symbol)
				return
			}

			var schemaErr *SchemaValidationError
			require.ErrorAs(t, err, &schemaErr)
			assert.Equal(t, "fmp", schemaErr.Provider)
			assert.Equal(t, "/quote", schemaErr.Endpoint)

			var httpErr *httpclient.HTTPError
			assert.False(t, errors.As(err, &httpErr))
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "timeout", err: &httpclient.TimeoutError{}, want: true},
		{name: "429", err: &httpclient.HTTPError{Status: 429}, want: true},
		{name: "503 wrapped", err: fmt.Errorf("quote: %w", &httpclient.HTTPError{Status: 503}), want: true},
		{name: "404", err: &httpclient.HTTPError{Status: 404}, want: false},
		{name: "daily cap", err: fmt.Errorf("%w: used", ratelimit.ErrRateLimitExceeded), want: false},
		{name: "schema", err: &SchemaValidationError{Err: errors.New("bad")}, want: false},
		{name: "not found", err: ErrNotFound, want: false},
		{name: "cancelled", err: context.Canceled, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestRetryPolicy_StopsOnSchemaError(t *testing.T) {
	p := RetryPolicy(retry.DefaultPolicy(), "fmp", nil)
	p.Sleep = retry.NoWait

	calls := 0
	err := retry.Do(context.Background(), p, func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return &httpclient.HTTPError{Status: 502}
		}
		return &SchemaValidationError{Provider: "fmp", Err: errors.New("shape")}
	})

	var schemaErr *SchemaValidationError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, 2, calls)
}

func TestCoalesce(t *testing.T) {
	assert.Nil(t, Coalesce(nil, nil))
	assert.Equal(t, 2.0, *Coalesce(nil, ptr(2), ptr(3)))
}

func ptr(v float64) *float64 { return &v }
