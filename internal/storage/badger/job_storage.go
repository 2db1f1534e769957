package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/thesis/internal/common"
	"github.com/ternarybob/thesis/internal/interfaces"
	"github.com/ternarybob/thesis/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// JobStorage implements interfaces.JobStorage for Badger. A single mutex
// makes enqueue and claim atomic within the process.
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	mu     sync.Mutex
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

func (s *JobStorage) EnqueueJob(ctx context.Context, job *models.ReportJob) (*models.ReportJob, bool, error) {
	if job.Ticker == "" {
		return nil, false, fmt.Errorf("job ticker is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var active []models.ReportJob
	if err := s.db.Store().Find(&active, badgerhold.Where("Ticker").Eq(job.Ticker)); err != nil {
		return nil, false, fmt.Errorf("failed to check existing jobs: %w", err)
	}
	for i := range active {
		if !active[i].Status.IsTerminal() {
			return &active[i], false, nil
		}
	}

	now := time.Now()
	stored := *job
	if stored.ID == "" {
		stored.ID = common.NewJobID()
	}
	if stored.Status == "" {
		stored.Status = models.JobStatusPending
	}
	if stored.MaxAttempts <= 0 {
		stored.MaxAttempts = models.DefaultJobMaxAttempts
	}
	if stored.Priority == 0 {
		stored.Priority = stored.TriggerType.Priority()
	}
	if stored.ScheduledFor.IsZero() {
		stored.ScheduledFor = now
	}
	stored.CreatedAt = now
	stored.UpdatedAt = now

	if err := s.db.Store().Insert(stored.ID, &stored); err != nil {
		return nil, false, fmt.Errorf("failed to enqueue job: %w", err)
	}
	return &stored, true, nil
}

func (s *JobStorage) ClaimNextJob(ctx context.Context, now time.Time) (*models.ReportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []models.ReportJob
	if err := s.db.Store().Find(&pending, badgerhold.Where("Status").Eq(models.JobStatusPending)); err != nil {
		return nil, fmt.Errorf("failed to find pending jobs: %w", err)
	}

	var next *models.ReportJob
	for i := range pending {
		j := &pending[i]
		if j.ScheduledFor.After(now) {
			continue
		}
		if next == nil || j.Priority < next.Priority ||
			(j.Priority == next.Priority && j.ScheduledFor.Before(next.ScheduledFor)) {
			next = j
		}
	}
	if next == nil {
		return nil, interfaces.ErrNotFound
	}

	next.Status = models.JobStatusProcessing
	next.Attempts++
	started := now
	next.StartedAt = &started
	next.UpdatedAt = now

	if err := s.db.Store().Update(next.ID, next); err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}
	return next, nil
}

func (s *JobStorage) GetJob(ctx context.Context, id string) (*models.ReportJob, error) {
	var job models.ReportJob
	if err := s.db.Store().Get(id, &job); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("job %s: %w", id, interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func (s *JobStorage) UpdateJob(ctx context.Context, job *models.ReportJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job.UpdatedAt = time.Now()
	if err := s.db.Store().Update(job.ID, job); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("job %s: %w", job.ID, interfaces.ErrNotFound)
		}
		return fmt.Errorf("failed to update job: %w", err)
	}
	return nil
}

// ListJobs returns jobs newest first. An empty status lists all jobs; a
// non-positive limit means no limit.
func (s *JobStorage) ListJobs(ctx context.Context, status models.JobStatus, limit int) ([]*models.ReportJob, error) {
	var query *badgerhold.Query
	if status != "" {
		query = badgerhold.Where("Status").Eq(status)
	}

	var jobs []models.ReportJob
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}

	result := make([]*models.ReportJob, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

func (s *JobStorage) ResetProcessingJobs(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var processing []models.ReportJob
	if err := s.db.Store().Find(&processing, badgerhold.Where("Status").Eq(models.JobStatusProcessing)); err != nil {
		return 0, fmt.Errorf("failed to find processing jobs: %w", err)
	}

	now := time.Now()
	for i := range processing {
		j := &processing[i]
		j.Status = models.JobStatusPending
		j.StartedAt = nil
		j.UpdatedAt = now
		if err := s.db.Store().Update(j.ID, j); err != nil {
			return i, fmt.Errorf("failed to reset job %s: %w", j.ID, err)
		}
	}

	if len(processing) > 0 {
		s.logger.Warn().Int("count", len(processing)).Msg("Reset orphaned processing jobs to pending")
	}
	return len(processing), nil
}
