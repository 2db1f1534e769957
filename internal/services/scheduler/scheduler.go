// Package scheduler runs the periodic report refresh and quote sync jobs on
// cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/thesis/internal/common"
)

// Handler runs one scheduled job.
type Handler func(ctx context.Context) error

// JobInfo describes a registered job.
type JobInfo struct {
	Name        string     `json:"name"`
	Schedule    string     `json:"schedule"`
	Description string     `json:"description"`
	IsRunning   bool       `json:"is_running"`
	LastRun     *time.Time `json:"last_run,omitempty"`
	NextRun     *time.Time `json:"next_run,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

type jobEntry struct {
	name        string
	schedule    string
	description string
	handler     Handler
	cronID      cron.EntryID
	lastRun     *time.Time
	isRunning   bool
	lastError   string
}

// Service owns the cron runner and the registered jobs.
type Service struct {
	cron   *cron.Cron
	logger arbor.ILogger

	ctx    context.Context
	cancel context.CancelFunc

	jobMu   sync.Mutex // protects jobs
	jobs    map[string]*jobEntry
	running bool
	wg      sync.WaitGroup
}

// NewService creates a scheduler. Jobs run with a context that is cancelled
// by Stop.
func NewService(logger arbor.ILogger) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		cron:   cron.New(),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]*jobEntry),
	}
}

// RegisterJob adds a job. The schedule must be a five-field cron expression
// no more frequent than every five minutes.
func (s *Service) RegisterJob(name, schedule, description string, handler Handler) error {
	if err := common.ValidateJobSchedule(schedule); err != nil {
		return fmt.Errorf("invalid schedule for %s: %w", name, err)
	}

	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}

	cronID, err := s.cron.AddFunc(schedule, func() {
		s.executeJob(name)
	})
	if err != nil {
		return fmt.Errorf("failed to add job to cron: %w", err)
	}

	s.jobs[name] = &jobEntry{
		name:        name,
		schedule:    schedule,
		description: description,
		handler:     handler,
		cronID:      cronID,
	}

	s.logger.Info().
		Str("job_name", name).
		Str("schedule", schedule).
		Msg("Job registered")
	return nil
}

// Start starts the cron runner.
func (s *Service) Start() {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.cron.Start()
	s.logger.Info().Int("jobs", len(s.jobs)).Msg("Scheduler started")
}

// Stop stops the cron runner, cancels running jobs and waits for them.
func (s *Service) Stop() {
	s.jobMu.Lock()
	wasRunning := s.running
	s.running = false
	s.jobMu.Unlock()

	s.cancel()
	if wasRunning {
		<-s.cron.Stop().Done()
	}
	s.wg.Wait()
	s.logger.Info().Msg("Scheduler stopped")
}

// TriggerJob runs a job now in the background.
func (s *Service) TriggerJob(name string) error {
	s.jobMu.Lock()
	_, exists := s.jobs[name]
	s.jobMu.Unlock()
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}

	common.SafeGo(s.logger, "scheduler-"+name, func() {
		s.executeJob(name)
	})
	return nil
}

// RunJob runs a job synchronously and returns its error.
func (s *Service) RunJob(name string) error {
	s.jobMu.Lock()
	_, exists := s.jobs[name]
	s.jobMu.Unlock()
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}
	return s.executeJob(name)
}

// Jobs returns every registered job sorted by name.
func (s *Service) Jobs() []JobInfo {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for _, entry := range s.jobs {
		info := JobInfo{
			Name:        entry.name,
			Schedule:    entry.schedule,
			Description: entry.description,
			IsRunning:   entry.isRunning,
			LastRun:     entry.lastRun,
			LastError:   entry.lastError,
		}
		if next := s.cron.Entry(entry.cronID).Next; !next.IsZero() {
			info.NextRun = &next
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// executeJob runs a job unless it is already running.
func (s *Service) executeJob(name string) (err error) {
	s.jobMu.Lock()
	entry, exists := s.jobs[name]
	if !exists || entry.isRunning {
		s.jobMu.Unlock()
		if exists {
			s.logger.Warn().Str("job_name", name).Msg("Job still running, skipping this run")
		}
		return nil
	}
	entry.isRunning = true
	handler := entry.handler
	s.wg.Add(1)
	s.jobMu.Unlock()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}

		finished := time.Now()
		s.jobMu.Lock()
		entry.isRunning = false
		entry.lastRun = &finished
		entry.lastError = ""
		if err != nil {
			entry.lastError = err.Error()
		}
		s.jobMu.Unlock()
		s.wg.Done()

		if err != nil {
			s.logger.Error().
				Str("job_name", name).
				Err(err).
				Dur("duration", time.Since(start)).
				Msg("Job execution failed")
			return
		}
		s.logger.Info().
			Str("job_name", name).
			Dur("duration", time.Since(start)).
			Msg("Job execution completed")
	}()

	s.logger.Info().Str("job_name", name).Msg("Job execution started")
	return handler(s.ctx)
}
