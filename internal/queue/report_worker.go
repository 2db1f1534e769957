package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/thesis/internal/interfaces"
	"github.com/ternarybob/thesis/internal/models"
	"github.com/ternarybob/thesis/internal/providers/newsapi"
	"github.com/ternarybob/thesis/internal/services/report"
)

// ErrInvalidInput marks jobs whose provider data cannot form a report input.
// Such jobs fail without retry.
var ErrInvalidInput = errors.New("invalid report input")

// MarketData supplies the company records a report is built from.
type MarketData interface {
	GetProfile(ctx context.Context, ticker string) (*models.Profile, error)
	GetQuote(ctx context.Context, ticker string) (*models.Quote, error)
	GetFundamentals(ctx context.Context, ticker string) (*models.Fundamentals, error)
}

// NewsSource supplies recent headlines for a ticker.
type NewsSource interface {
	GetStockNews(ctx context.Context, ticker string, opts newsapi.SearchOptions) ([]models.NewsArticle, error)
}

// OverviewSource supplies a company overview used to fill missing metrics.
type OverviewSource interface {
	GetOverview(ctx context.Context, ticker string) (*models.Overview, error)
}

// Generator produces a scored report.
type Generator interface {
	Generate(ctx context.Context, input *models.StockReportInput) (*report.Result, error)
}

// ReportWorker fetches provider data, generates a report and stores it.
type ReportWorker struct {
	market    MarketData
	news      NewsSource
	overview  OverviewSource
	generator Generator
	reports   interfaces.ReportStorage
	reportTTL time.Duration
	newsDays  int
	logger    arbor.ILogger
	now       func() time.Time
}

// ReportWorkerOption configures a ReportWorker.
type ReportWorkerOption func(*ReportWorker)

// WithNews enables headline lookup.
func WithNews(news NewsSource) ReportWorkerOption {
	return func(w *ReportWorker) {
		w.news = news
	}
}

// WithOverview enables overview enrichment.
func WithOverview(overview OverviewSource) ReportWorkerOption {
	return func(w *ReportWorker) {
		w.overview = overview
	}
}

// WithReportTTL sets how long a stored report stays fresh.
func WithReportTTL(ttl time.Duration) ReportWorkerOption {
	return func(w *ReportWorker) {
		w.reportTTL = ttl
	}
}

// NewReportWorker creates a worker.
func NewReportWorker(market MarketData, generator Generator, reports interfaces.ReportStorage, logger arbor.ILogger, opts ...ReportWorkerOption) *ReportWorker {
	w := &ReportWorker{
		market:    market,
		generator: generator,
		reports:   reports,
		reportTTL: 7 * 24 * time.Hour,
		newsDays:  30,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Process implements Processor.
func (w *ReportWorker) Process(ctx context.Context, job *models.ReportJob) (string, error) {
	stored, err := w.GenerateAndStore(ctx, job.Ticker, job.TriggerType, job)
	if err != nil {
		return "", err
	}
	return stored.ID, nil
}

// BuildInput gathers provider data for ticker concurrently. Profile and
// quote are required; fundamentals, overview and news are best effort.
func (w *ReportWorker) BuildInput(ctx context.Context, ticker string) (*models.StockReportInput, error) {
	w.logger.Debug().Str("ticker", ticker).Msg("Fetching market data")

	var (
		profile      *models.Profile
		quote        *models.Quote
		fundamentals *models.Fundamentals
		news         []models.NewsArticle
		overview     *models.Overview
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if profile, err = w.market.GetProfile(gctx, ticker); err != nil {
			return fmt.Errorf("failed to fetch profile for %s: %w", ticker, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if quote, err = w.market.GetQuote(gctx, ticker); err != nil {
			return fmt.Errorf("failed to fetch quote for %s: %w", ticker, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		fundamentals, err = w.market.GetFundamentals(gctx, ticker)
		return w.optional(gctx, ticker, "Fundamentals", err)
	})
	if w.news != nil {
		g.Go(func() error {
			var err error
			news, err = w.news.GetStockNews(gctx, ticker, newsapi.SearchOptions{
				From: w.now().AddDate(0, 0, -w.newsDays),
			})
			return w.optional(gctx, ticker, "News", err)
		})
	}
	if w.overview != nil {
		g.Go(func() error {
			var err error
			overview, err = w.overview.GetOverview(gctx, ticker)
			return w.optional(gctx, ticker, "Overview", err)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	input, err := report.BuildInput(profile, quote, fundamentals, news)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if overview != nil {
		report.ApplyOverview(input, overview)
	}

	return input, nil
}

// optional swallows a best-effort fetch error unless ctx is done. Results of
// a failed fetch are ignored by the caller's nil checks.
func (w *ReportWorker) optional(ctx context.Context, ticker, source string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	w.logger.Warn().Str("ticker", ticker).Err(err).Msg(source + " unavailable, continuing without")
	return nil
}

// GenerateAndStore builds the input, generates a report and saves it as the
// ticker's next version. job may be nil for one-off generation.
func (w *ReportWorker) GenerateAndStore(ctx context.Context, ticker string, trigger models.TriggerType, job *models.ReportJob) (*models.StockReport, error) {
	input, err := w.BuildInput(ctx, ticker)
	if err != nil {
		return nil, err
	}

	result, err := w.generator.Generate(ctx, input)
	if err != nil {
		return nil, err
	}

	generatedAt := w.now().UTC()
	stockReport := &models.StockReport{
		Ticker:           input.Ticker,
		Content:          *result.Report,
		Quality:          result.Quality,
		ModelUsed:        result.Model,
		PromptVersion:    result.PromptVersion,
		Research:         result.Research,
		GenerationTimeMs: result.GenerationTime.Milliseconds(),
		Attempts:         result.Attempts,
		TriggerType:      trigger,
		GeneratedAt:      generatedAt,
	}
	if job != nil {
		stockReport.TriggerData = job.TriggerData
	}
	if w.reportTTL > 0 {
		expires := generatedAt.Add(w.reportTTL)
		stockReport.ExpiresAt = &expires
	}

	stored, created, err := w.reports.SaveReport(ctx, stockReport)
	if err != nil {
		return nil, fmt.Errorf("failed to save report for %s: %w", ticker, err)
	}

	w.logger.Info().
		Str("ticker", ticker).
		Str("report_id", stored.ID).
		Int("version", stored.Version).
		Bool("created", created).
		Int("quality", stored.Quality.Overall).
		Msg("Report stored")
	return stored, nil
}
