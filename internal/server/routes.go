package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// API routes - Reports
	mux.HandleFunc("/api/reports", s.app.ReportHandler.ListReportsHandler) // GET - latest report per ticker
	mux.HandleFunc("/api/reports/", s.handleReportRoutes)                  // /{ticker}, /{ticker}/versions, /{ticker}/generate, /{ticker}/review

	// API routes - Quotes
	mux.HandleFunc("/api/quotes", s.app.QuoteHandler.ListQuotesHandler)
	mux.HandleFunc("/api/quotes/", s.app.QuoteHandler.GetQuoteHandler)

	// API routes - Jobs
	mux.HandleFunc("/api/jobs", s.app.JobHandler.ListJobsHandler)
	mux.HandleFunc("/api/scheduler/jobs", s.app.JobHandler.ListScheduledHandler)
	mux.HandleFunc("/api/scheduler/jobs/", s.handleSchedulerRoutes) // POST /{name}/trigger

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleReportRoutes routes /api/reports/{ticker}[/action]
func (s *Server) handleReportRoutes(w http.ResponseWriter, r *http.Request) {
	handled := RouteByPathSuffix(w, r, "/api/reports/", []PathSuffixRouter{
		{Suffix: "/versions", Handler: s.app.ReportHandler.ListVersionsHandler},
		{Suffix: "/generate", Handler: s.app.ReportHandler.GenerateHandler},
		{Suffix: "/review", Handler: s.app.ReportHandler.ReviewHandler},
	})
	if handled {
		return
	}

	s.app.ReportHandler.GetReportHandler(w, r)
}

// handleSchedulerRoutes routes /api/scheduler/jobs/{name}/trigger
func (s *Server) handleSchedulerRoutes(w http.ResponseWriter, r *http.Request) {
	handled := RouteByPathSuffix(w, r, "/api/scheduler/jobs/", []PathSuffixRouter{
		{Suffix: "/trigger", Handler: s.app.JobHandler.TriggerScheduledHandler},
	})
	if !handled {
		s.app.APIHandler.NotFoundHandler(w, r)
	}
}
