package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/thesis/internal/interfaces"
)

const quotesPrefix = "/api/quotes/"

// QuoteHandler serves the most recent synced quotes.
type QuoteHandler struct {
	quotes interfaces.QuoteStorage
	logger arbor.ILogger
}

// NewQuoteHandler creates a QuoteHandler
func NewQuoteHandler(quotes interfaces.QuoteStorage, logger arbor.ILogger) *QuoteHandler {
	return &QuoteHandler{
		quotes: quotes,
		logger: logger,
	}
}

// ListQuotesHandler handles GET /api/quotes
func (h *QuoteHandler) ListQuotesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	quotes, err := h.quotes.ListQuotes(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list quotes")
		WriteError(w, http.StatusInternalServerError, "Failed to list quotes")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"quotes": quotes,
		"count":  len(quotes),
	})
}

// GetQuoteHandler handles GET /api/quotes/{ticker}
func (h *QuoteHandler) GetQuoteHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ticker, ok := TickerFromPath(r.URL.Path, quotesPrefix)
	if !ok {
		WriteError(w, http.StatusBadRequest, "Invalid ticker")
		return
	}

	quote, err := h.quotes.GetQuote(r.Context(), ticker)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, fmt.Sprintf("No quote for %s", ticker))
			return
		}
		h.logger.Error().Str("ticker", ticker).Err(err).Msg("Failed to load quote")
		WriteError(w, http.StatusInternalServerError, "Failed to load quote")
		return
	}

	WriteJSON(w, http.StatusOK, quote)
}
