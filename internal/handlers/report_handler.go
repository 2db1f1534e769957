package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/thesis/internal/interfaces"
	"github.com/ternarybob/thesis/internal/models"
	"github.com/ternarybob/thesis/internal/services/render"
)

const reportsPrefix = "/api/reports/"

// ReportRenderer converts a report to a document format.
type ReportRenderer interface {
	Render(report *models.StockReport, format render.Format) ([]byte, error)
}

// JobEnqueuer queues report generation.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, ticker string, trigger models.TriggerType, data json.RawMessage) (*models.ReportJob, bool, error)
}

// ReportHandler serves stored reports and accepts generation requests.
type ReportHandler struct {
	reports  interfaces.ReportStorage
	renderer ReportRenderer
	enqueuer JobEnqueuer
	logger   arbor.ILogger
}

// NewReportHandler creates a ReportHandler
func NewReportHandler(reports interfaces.ReportStorage, renderer ReportRenderer, enqueuer JobEnqueuer, logger arbor.ILogger) *ReportHandler {
	return &ReportHandler{
		reports:  reports,
		renderer: renderer,
		enqueuer: enqueuer,
		logger:   logger,
	}
}

// ListReportsHandler handles GET /api/reports, returning the latest report
// of every ticker.
func (h *ReportHandler) ListReportsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	reports, err := h.reports.ListLatestReports(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list reports")
		WriteError(w, http.StatusInternalServerError, "Failed to list reports")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"reports": reports,
		"count":   len(reports),
	})
}

// GetReportHandler handles GET /api/reports/{ticker}. The optional version
// parameter selects an older version and format selects json, markdown, html
// or pdf.
func (h *ReportHandler) GetReportHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ticker, ok := TickerFromPath(r.URL.Path, reportsPrefix)
	if !ok {
		WriteError(w, http.StatusBadRequest, "Invalid ticker")
		return
	}

	format, err := render.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.findReport(r, ticker)
	if err != nil {
		h.writeLookupError(w, ticker, err)
		return
	}

	if format == render.FormatJSON {
		WriteJSON(w, http.StatusOK, report)
		return
	}

	body, err := h.renderer.Render(report, format)
	if err != nil {
		h.logger.Error().
			Str("ticker", ticker).
			Str("format", string(format)).
			Err(err).
			Msg("Failed to render report")
		WriteError(w, http.StatusInternalServerError, "Failed to render report")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	if format == render.FormatPDF {
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-v%d.pdf"`, report.Ticker, report.Version))
	}
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// ListVersionsHandler handles GET /api/reports/{ticker}/versions
func (h *ReportHandler) ListVersionsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ticker, ok := TickerFromPath(r.URL.Path, reportsPrefix)
	if !ok {
		WriteError(w, http.StatusBadRequest, "Invalid ticker")
		return
	}

	versions, err := h.reports.ListReportVersions(r.Context(), ticker)
	if err != nil {
		h.logger.Error().Str("ticker", ticker).Err(err).Msg("Failed to list report versions")
		WriteError(w, http.StatusInternalServerError, "Failed to list report versions")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ticker":   ticker,
		"versions": versions,
		"count":    len(versions),
	})
}

// GenerateHandler handles POST /api/reports/{ticker}/generate by queueing a
// manual generation job. A ticker that already has a queued job gets that
// job back.
func (h *ReportHandler) GenerateHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	ticker, ok := TickerFromPath(r.URL.Path, reportsPrefix)
	if !ok {
		WriteError(w, http.StatusBadRequest, "Invalid ticker")
		return
	}

	job, created, err := h.enqueuer.Enqueue(r.Context(), ticker, models.TriggerManual, nil)
	if err != nil {
		h.logger.Error().Str("ticker", ticker).Err(err).Msg("Failed to enqueue report job")
		WriteError(w, http.StatusInternalServerError, "Failed to enqueue report job")
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":  "queued",
		"created": created,
		"job":     job,
	})
}

type reviewRequest struct {
	Reviewed *bool `json:"reviewed"`
}

// ReviewHandler handles POST /api/reports/{ticker}/review, setting the human
// review flag on the latest report.
func (h *ReportHandler) ReviewHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	ticker, ok := TickerFromPath(r.URL.Path, reportsPrefix)
	if !ok {
		WriteError(w, http.StatusBadRequest, "Invalid ticker")
		return
	}

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Reviewed == nil {
		WriteError(w, http.StatusBadRequest, "Body must be {\"reviewed\": true|false}")
		return
	}

	report, err := h.reports.GetLatestReport(r.Context(), ticker)
	if err != nil {
		h.writeLookupError(w, ticker, err)
		return
	}

	if err := h.reports.MarkReviewed(r.Context(), report.ID, *req.Reviewed); err != nil {
		h.logger.Error().Str("report_id", report.ID).Err(err).Msg("Failed to mark report reviewed")
		WriteError(w, http.StatusInternalServerError, "Failed to update report")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"report_id": report.ID,
		"version":   report.Version,
		"reviewed":  *req.Reviewed,
	})
}

func (h *ReportHandler) findReport(r *http.Request, ticker string) (*models.StockReport, error) {
	raw := r.URL.Query().Get("version")
	if raw == "" {
		return h.reports.GetLatestReport(r.Context(), ticker)
	}

	version, err := strconv.Atoi(raw)
	if err != nil || version < 1 {
		return nil, errInvalidVersion
	}

	versions, err := h.reports.ListReportVersions(r.Context(), ticker)
	if err != nil {
		return nil, err
	}
	for _, report := range versions {
		if report.Version == version {
			return report, nil
		}
	}
	return nil, fmt.Errorf("report %s v%d: %w", ticker, version, interfaces.ErrNotFound)
}

var errInvalidVersion = errors.New("version must be a positive integer")

func (h *ReportHandler) writeLookupError(w http.ResponseWriter, ticker string, err error) {
	switch {
	case errors.Is(err, interfaces.ErrNotFound):
		WriteError(w, http.StatusNotFound, fmt.Sprintf("No report for %s", ticker))
	case errors.Is(err, errInvalidVersion):
		WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Str("ticker", ticker).Err(err).Msg("Failed to load report")
		WriteError(w, http.StatusInternalServerError, "Failed to load report")
	}
}
