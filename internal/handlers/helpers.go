package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/ternarybob/thesis/internal/common"
)

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// TickerFromPath extracts and normalizes the ticker segment that follows
// prefix, e.g. "/api/reports/aapl/versions" with prefix "/api/reports/"
// yields "AAPL". ok is false when the segment is not a valid ticker.
func TickerFromPath(path, prefix string) (ticker string, ok bool) {
	rest := strings.TrimPrefix(path, prefix)
	if rest == path {
		return "", false
	}
	segment, _, _ := strings.Cut(rest, "/")
	ticker = common.NormalizeTicker(segment)
	return ticker, common.IsValidTicker(ticker)
}

// GetLimitParam reads the limit query parameter, falling back to def when it
// is missing or out of range. The result never exceeds maxLimit.
func GetLimitParam(r *http.Request, def, maxLimit int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return def
	}
	return min(limit, maxLimit)
}
