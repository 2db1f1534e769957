package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/thesis/internal/models"
)

// ErrNotFound is returned by storage lookups that match nothing.
var ErrNotFound = errors.New("not found")

// ReportStorage persists versioned stock reports.
type ReportStorage interface {
	// SaveReport stores report as the next version for its ticker and
	// returns the stored record. When the content is identical to the latest
	// version, nothing is written and the latest version is returned with
	// created = false.
	SaveReport(ctx context.Context, report *models.StockReport) (stored *models.StockReport, created bool, err error)
	GetReport(ctx context.Context, id string) (*models.StockReport, error)
	GetLatestReport(ctx context.Context, ticker string) (*models.StockReport, error)
	ListReportVersions(ctx context.Context, ticker string) ([]*models.StockReport, error) // newest first
	ListLatestReports(ctx context.Context) ([]*models.StockReport, error)
	MarkReviewed(ctx context.Context, id string, reviewed bool) error
}

// QuoteStorage keeps the most recent quote per ticker.
type QuoteStorage interface {
	SaveQuote(ctx context.Context, quote *models.Quote) error
	SaveQuotes(ctx context.Context, quotes []*models.Quote) error
	GetQuote(ctx context.Context, ticker string) (*models.Quote, error)
	ListQuotes(ctx context.Context) ([]*models.Quote, error)
}

// JobStorage is the durable report generation queue.
type JobStorage interface {
	// EnqueueJob inserts job unless the ticker already has a pending or
	// processing job, in which case that job is returned with created = false.
	EnqueueJob(ctx context.Context, job *models.ReportJob) (stored *models.ReportJob, created bool, err error)

	// ClaimNextJob atomically moves the most urgent due pending job to
	// processing. It returns ErrNotFound when nothing is due.
	ClaimNextJob(ctx context.Context, now time.Time) (*models.ReportJob, error)

	GetJob(ctx context.Context, id string) (*models.ReportJob, error)
	UpdateJob(ctx context.Context, job *models.ReportJob) error
	ListJobs(ctx context.Context, status models.JobStatus, limit int) ([]*models.ReportJob, error)

	// ResetProcessingJobs returns jobs orphaned in processing (for example by
	// a crash) to pending.
	ResetProcessingJobs(ctx context.Context) (int, error)
}

// StorageManager bundles the stores backed by one database.
type StorageManager interface {
	ReportStorage() ReportStorage
	QuoteStorage() QuoteStorage
	JobStorage() JobStorage
	Close() error
}
