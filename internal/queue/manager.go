// Package queue runs the durable report generation queue and the quote
// sync batches.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/thesis/internal/common"
	"github.com/ternarybob/thesis/internal/interfaces"
	"github.com/ternarybob/thesis/internal/models"
	"github.com/ternarybob/thesis/internal/providers"
)

// Processor handles one claimed job and returns the ID of the report it
// produced.
type Processor interface {
	Process(ctx context.Context, job *models.ReportJob) (reportID string, err error)
}

// Manager polls the job store and hands due jobs to a Processor.
type Manager struct {
	jobs      interfaces.JobStorage
	processor Processor
	config    Config
	limiter   *rate.Limiter
	logger    arbor.ILogger
	now       func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewManager creates a queue manager. Job starts are limited to
// config.JobsPerMinute, spread evenly across the minute.
func NewManager(jobs interfaces.JobStorage, processor Processor, config Config, logger arbor.ILogger) *Manager {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.PollInterval <= 0 {
		config.PollInterval = NewDefaultConfig().PollInterval
	}

	limit := rate.Inf
	if config.JobsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(config.JobsPerMinute))
	}

	return &Manager{
		jobs:      jobs,
		processor: processor,
		config:    config,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger,
		now:       time.Now,
	}
}

// Enqueue adds a job for ticker unless one is already pending or processing,
// in which case the existing job is returned with created = false.
func (m *Manager) Enqueue(ctx context.Context, ticker string, trigger models.TriggerType, data json.RawMessage) (*models.ReportJob, bool, error) {
	ticker = common.NormalizeTicker(ticker)
	if !common.IsValidTicker(ticker) {
		return nil, false, fmt.Errorf("invalid ticker: %q", ticker)
	}
	if !trigger.Valid() {
		return nil, false, fmt.Errorf("invalid trigger type: %q", trigger)
	}

	job, created, err := m.jobs.EnqueueJob(ctx, &models.ReportJob{
		Ticker:       ticker,
		TriggerType:  trigger,
		TriggerData:  data,
		Priority:     trigger.Priority(),
		MaxAttempts:  m.config.MaxAttempts,
		ScheduledFor: m.now(),
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		m.logger.Info().
			Str("job_id", job.ID).
			Str("ticker", ticker).
			Str("trigger", string(trigger)).
			Int("priority", job.Priority).
			Msg("Report job enqueued")
	}
	return job, created, nil
}

// Start recovers jobs orphaned in processing and launches the workers.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("queue manager already running")
	}

	reset, err := m.jobs.ResetProcessingJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to reset processing jobs: %w", err)
	}
	if reset > 0 {
		m.logger.Warn().Int("count", reset).Msg("Recovered jobs left in processing")
	}

	workerCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	m.logger.Info().
		Int("concurrency", m.config.Concurrency).
		Int("jobs_per_minute", m.config.JobsPerMinute).
		Dur("poll_interval", m.config.PollInterval).
		Msg("Starting queue workers")

	for i := 0; i < m.config.Concurrency; i++ {
		workerID := i
		m.wg.Add(1)
		common.SafeGo(m.logger, fmt.Sprintf("queue-worker-%d", workerID), func() {
			defer m.wg.Done()
			m.worker(workerCtx, workerID)
		})
	}
	return nil
}

// Stop cancels the workers and waits for in-flight jobs to return.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.cancel()
	m.mu.Unlock()

	m.wg.Wait()
	m.logger.Info().Msg("Queue workers stopped")
}

func (m *Manager) worker(ctx context.Context, workerID int) {
	// Stagger workers across the poll interval
	stagger := m.config.PollInterval / time.Duration(m.config.Concurrency) * time.Duration(workerID)
	if stagger > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(stagger):
		}
	}

	ticker := time.NewTicker(m.config.PollInterval)
	defer ticker.Stop()

	for {
		// Drain everything that is due before sleeping again
		for {
			processed, err := m.ProcessNext(ctx)
			if err != nil && ctx.Err() == nil {
				m.logger.Warn().Err(err).Int("worker_id", workerID).Msg("Error processing job")
			}
			if !processed || ctx.Err() != nil {
				break
			}
		}

		select {
		case <-ctx.Done():
			m.logger.Debug().Int("worker_id", workerID).Msg("Worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// ProcessNext claims and runs the most urgent due job. It reports false when
// no job was due.
func (m *Manager) ProcessNext(ctx context.Context) (bool, error) {
	job, err := m.jobs.ClaimNextJob(ctx, m.now())
	if errors.Is(err, interfaces.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to claim job: %w", err)
	}

	if err := m.limiter.Wait(ctx); err != nil {
		return true, m.release(job)
	}

	start := time.Now()
	m.logger.Info().
		Str("job_id", job.ID).
		Str("ticker", job.Ticker).
		Int("attempt", job.Attempts).
		Int("max_attempts", job.MaxAttempts).
		Msg("Processing report job")

	reportID, procErr := m.processor.Process(ctx, job)
	if procErr != nil && ctx.Err() != nil {
		// Shutdown interrupted the job; it does not count as an attempt.
		return true, m.release(job)
	}

	now := m.now()
	job.UpdatedAt = now
	switch {
	case procErr == nil:
		job.Status = models.JobStatusCompleted
		job.ReportID = reportID
		job.LastError = ""
		job.CompletedAt = &now
		m.logger.Info().
			Str("job_id", job.ID).
			Str("ticker", job.Ticker).
			Str("report_id", reportID).
			Dur("duration", time.Since(start)).
			Msg("Report job completed")

	case job.Attempts < job.MaxAttempts && retryableJobError(procErr):
		delay := m.config.Backoff.Delay(job.Attempts)
		job.Status = models.JobStatusPending
		job.LastError = procErr.Error()
		job.ScheduledFor = now.Add(delay)
		m.logger.Warn().
			Str("job_id", job.ID).
			Str("ticker", job.Ticker).
			Int("attempt", job.Attempts).
			Dur("retry_in", delay).
			Err(procErr).
			Msg("Report job failed, rescheduled")

	default:
		job.Status = models.JobStatusFailed
		job.LastError = procErr.Error()
		job.CompletedAt = &now
		m.logger.Error().
			Str("job_id", job.ID).
			Str("ticker", job.Ticker).
			Int("attempts", job.Attempts).
			Err(procErr).
			Msg("Report job failed")
	}

	if err := m.jobs.UpdateJob(context.WithoutCancel(ctx), job); err != nil {
		return true, fmt.Errorf("failed to update job %s: %w", job.ID, err)
	}
	return true, procErr
}

// release returns an interrupted job to pending without spending an attempt.
func (m *Manager) release(job *models.ReportJob) error {
	job.Status = models.JobStatusPending
	job.Attempts = max(0, job.Attempts-1)
	job.StartedAt = nil
	job.UpdatedAt = m.now()
	return m.jobs.UpdateJob(context.Background(), job)
}

// retryableJobError rejects failures a later attempt cannot fix.
func retryableJobError(err error) bool {
	return !errors.Is(err, providers.ErrNotFound) && !errors.Is(err, ErrInvalidInput)
}

// Jobs lists jobs, newest first. An empty status lists every job.
func (m *Manager) Jobs(ctx context.Context, status models.JobStatus, limit int) ([]*models.ReportJob, error) {
	return m.jobs.ListJobs(ctx, status, limit)
}
