package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/thesis/internal/models"
	"github.com/ternarybob/thesis/internal/services/scheduler"
)

const (
	defaultJobLimit = 50
	maxJobLimit     = 500
)

// JobLister lists report generation jobs.
type JobLister interface {
	Jobs(ctx context.Context, status models.JobStatus, limit int) ([]*models.ReportJob, error)
}

// ScheduledJobs exposes the cron jobs.
type ScheduledJobs interface {
	Jobs() []scheduler.JobInfo
	TriggerJob(name string) error
}

// JobHandler serves the report queue and the scheduled jobs.
type JobHandler struct {
	queue     JobLister
	scheduler ScheduledJobs
	logger    arbor.ILogger
}

// NewJobHandler creates a JobHandler. sched may be nil when scheduling is
// disabled.
func NewJobHandler(queue JobLister, sched ScheduledJobs, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		queue:     queue,
		scheduler: sched,
		logger:    logger,
	}
}

// ListJobsHandler handles GET /api/jobs?status=&limit=
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	status := models.JobStatus(strings.ToLower(r.URL.Query().Get("status")))
	if status != "" && !status.Valid() {
		WriteError(w, http.StatusBadRequest, "status must be pending, processing, completed or failed")
		return
	}

	jobs, err := h.queue.Jobs(r.Context(), status, GetLimitParam(r, defaultJobLimit, maxJobLimit))
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list jobs")
		WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// ListScheduledHandler handles GET /api/scheduler/jobs
func (h *JobHandler) ListScheduledHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	jobs := []scheduler.JobInfo{}
	if h.scheduler != nil {
		jobs = h.scheduler.Jobs()
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"enabled": h.scheduler != nil,
		"jobs":    jobs,
	})
}

// TriggerScheduledHandler handles POST /api/scheduler/jobs/{name}/trigger
func (h *JobHandler) TriggerScheduledHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if h.scheduler == nil {
		WriteError(w, http.StatusServiceUnavailable, "Scheduler is disabled")
		return
	}

	name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/scheduler/jobs/"), "/trigger")
	if err := h.scheduler.TriggerJob(name); err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	h.logger.Info().Str("job_name", name).Msg("Scheduled job triggered via API")
	WriteJSON(w, http.StatusAccepted, map[string]string{
		"status": "started",
		"job":    name,
	})
}
