// Package app wires configuration, storage, providers and services into a
// runnable application.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/thesis/internal/common"
	"github.com/ternarybob/thesis/internal/handlers"
	"github.com/ternarybob/thesis/internal/interfaces"
	"github.com/ternarybob/thesis/internal/models"
	"github.com/ternarybob/thesis/internal/providers"
	"github.com/ternarybob/thesis/internal/providers/alphavantage"
	"github.com/ternarybob/thesis/internal/providers/fmp"
	"github.com/ternarybob/thesis/internal/providers/newsapi"
	"github.com/ternarybob/thesis/internal/queue"
	"github.com/ternarybob/thesis/internal/ratelimit"
	"github.com/ternarybob/thesis/internal/services/llm"
	"github.com/ternarybob/thesis/internal/services/render"
	"github.com/ternarybob/thesis/internal/services/report"
	"github.com/ternarybob/thesis/internal/services/scheduler"
	"github.com/ternarybob/thesis/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	ctx            context.Context
	cancelCtx      context.CancelFunc
	StorageManager interfaces.StorageManager

	// Market data providers. AlphaVantage and NewsAPI are optional.
	FMP          *fmp.Client
	AlphaVantage *alphavantage.Client
	NewsAPI      *newsapi.Client

	// Report generation
	LLMProvider      llm.Provider
	ResearchProvider llm.Provider
	Generator        *report.Generator
	Renderer         *render.Service

	// Queue and scheduling
	ReportWorker     *queue.ReportWorker
	QueueManager     *queue.Manager
	QuoteSyncer      *queue.QuoteSyncer
	SchedulerService *scheduler.Service // nil when scheduling is disabled

	// HTTP handlers
	APIHandler    *handlers.APIHandler
	ReportHandler *handlers.ReportHandler
	QuoteHandler  *handlers.QuoteHandler
	JobHandler    *handlers.JobHandler
}

// New initializes the application with all dependencies. Background workers
// are not started until Start.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config:    cfg,
		Logger:    logger,
		ctx:       ctx,
		cancelCtx: cancel,
	}

	if err := app.initDatabase(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initProviders(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	if err := app.initServices(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	logger.Info().
		Str("llm_provider", string(cfg.LLM.Provider)).
		Bool("research", app.Generator.HasResearch()).
		Bool("news", app.NewsAPI != nil).
		Bool("overview", app.AlphaVantage != nil).
		Bool("scheduler", app.SchedulerService != nil).
		Msg("Application initialized")

	return app, nil
}

func (a *App) initDatabase() error {
	storageManager, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")
	return nil
}

// initProviders creates the market-data clients. FMP is required; the
// others are skipped when no API key is available.
func (a *App) initProviders() error {
	pc := a.Config.Providers

	fmpKey, err := common.ResolveAPIKey("fmp_api_key", pc.FMP.APIKey)
	if err != nil {
		return err
	}
	a.FMP = fmp.NewClient(fmpKey, a.providerOptions(pc.FMP)...)

	if key, err := common.ResolveAPIKey("alphavantage_api_key", pc.AlphaVantage.APIKey); err == nil {
		a.AlphaVantage = alphavantage.NewClient(key, a.providerOptions(pc.AlphaVantage)...)
	} else {
		a.Logger.Warn().Msg("Alpha Vantage API key not found, overview enrichment disabled")
	}

	if key, err := common.ResolveAPIKey("newsapi_api_key", pc.NewsAPI.APIKey); err == nil {
		a.NewsAPI = newsapi.NewClient(key, a.providerOptions(pc.NewsAPI)...)
	} else {
		a.Logger.Warn().Msg("NewsAPI key not found, reports will be generated without headlines")
	}

	return nil
}

// providerOptions maps a provider's config section to client options. Zero
// limits keep the provider's free-tier defaults.
func (a *App) providerOptions(pc common.ProviderConfig) []providers.Option {
	opts := []providers.Option{
		providers.WithLogger(a.Logger),
		providers.WithTimeout(common.ParseDuration(pc.Timeout, 30*time.Second)),
	}
	if pc.BaseURL != "" {
		opts = append(opts, providers.WithBaseURL(pc.BaseURL))
	}
	if pc.RequestsPerMinute > 0 {
		opts = append(opts, providers.WithRateLimit(ratelimit.Config{
			RequestsPerMinute: pc.RequestsPerMinute,
			RequestsPerDay:    pc.RequestsPerDay,
		}))
	}
	return opts
}

func (a *App) initServices() error {
	var err error

	a.LLMProvider, err = llm.NewProvider(a.ctx, &a.Config.LLM, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM provider: %w", err)
	}
	a.ResearchProvider = llm.NewResearchProvider(&a.Config.Research, a.Logger)

	a.Generator = report.NewGenerator(a.LLMProvider, a.ResearchProvider, report.ConfigFromCommon(a.Config), a.Logger)
	a.Renderer = render.NewService(a.Logger)

	workerOpts := []queue.ReportWorkerOption{
		queue.WithReportTTL(common.ParseDuration(a.Config.Queue.ReportTTL, 7*24*time.Hour)),
	}
	if a.NewsAPI != nil {
		workerOpts = append(workerOpts, queue.WithNews(a.NewsAPI))
	}
	if a.AlphaVantage != nil {
		workerOpts = append(workerOpts, queue.WithOverview(a.AlphaVantage))
	}
	a.ReportWorker = queue.NewReportWorker(a.FMP, a.Generator, a.StorageManager.ReportStorage(), a.Logger, workerOpts...)

	a.QueueManager = queue.NewManager(
		a.StorageManager.JobStorage(),
		a.ReportWorker,
		queue.ConfigFromCommon(a.Config.Queue),
		a.Logger,
	)

	a.QuoteSyncer = queue.NewQuoteSyncer(
		a.FMP,
		a.StorageManager.QuoteStorage(),
		a.Config.Scheduler.QuoteBatchSize,
		a.Config.Scheduler.QuoteBatchesPerMinute,
		a.Logger,
	)

	if a.Config.Scheduler.Enabled {
		if err := a.initScheduler(); err != nil {
			return err
		}
	}

	return nil
}

func (a *App) initScheduler() error {
	a.SchedulerService = scheduler.NewService(a.Logger)

	if err := a.SchedulerService.RegisterJob(
		scheduler.JobWeeklyRefresh,
		a.Config.Scheduler.WeeklyRefresh,
		"Queue a report refresh for every ticker in the universe",
		scheduler.WeeklyRefresh(a.QueueManager, a.Universe, a.Logger),
	); err != nil {
		return fmt.Errorf("failed to register weekly refresh: %w", err)
	}

	if a.Config.Scheduler.QuoteSync != "" {
		if err := a.SchedulerService.RegisterJob(
			scheduler.JobQuoteSync,
			a.Config.Scheduler.QuoteSync,
			"Refresh stored quotes for the universe",
			scheduler.QuoteSync(a.QuoteSyncer, a.Universe, scheduler.NYSE(), a.Logger),
		); err != nil {
			return fmt.Errorf("failed to register quote sync: %w", err)
		}
	}

	return nil
}

func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.Logger)
	a.ReportHandler = handlers.NewReportHandler(a.StorageManager.ReportStorage(), a.Renderer, a.QueueManager, a.Logger)
	a.QuoteHandler = handlers.NewQuoteHandler(a.StorageManager.QuoteStorage(), a.Logger)

	if a.SchedulerService != nil {
		a.JobHandler = handlers.NewJobHandler(a.QueueManager, a.SchedulerService, a.Logger)
	} else {
		a.JobHandler = handlers.NewJobHandler(a.QueueManager, nil, a.Logger)
	}
}

// Universe returns the tickers covered by scheduled jobs.
func (a *App) Universe(ctx context.Context) ([]string, error) {
	return common.LoadUniverse(ctx, a.Config.Universe, a.FMP)
}

// Start launches the queue workers and the scheduler.
func (a *App) Start() error {
	if err := a.QueueManager.Start(a.ctx); err != nil {
		return fmt.Errorf("failed to start queue: %w", err)
	}
	if a.SchedulerService != nil {
		a.SchedulerService.Start()
	}
	return nil
}

// GenerateReport generates and stores a report for ticker immediately,
// bypassing the queue.
func (a *App) GenerateReport(ctx context.Context, ticker string) (*models.StockReport, error) {
	ticker = common.NormalizeTicker(ticker)
	if !common.IsValidTicker(ticker) {
		return nil, fmt.Errorf("invalid ticker: %q", ticker)
	}
	return a.ReportWorker.GenerateAndStore(ctx, ticker, models.TriggerManual, nil)
}

// SyncQuotes refreshes quotes for the whole universe immediately.
func (a *App) SyncQuotes(ctx context.Context) (*models.QuoteSyncResult, error) {
	tickers, err := a.Universe(ctx)
	if err != nil {
		return nil, err
	}
	return a.QuoteSyncer.Sync(ctx, tickers)
}

// Close stops background work and releases resources.
func (a *App) Close() error {
	if a.cancelCtx != nil {
		a.cancelCtx()
	}

	if a.SchedulerService != nil {
		a.SchedulerService.Stop()
	}

	if a.QueueManager != nil {
		a.QueueManager.Stop()
	}

	for name, provider := range map[string]llm.Provider{"llm": a.LLMProvider, "research": a.ResearchProvider} {
		if provider == nil {
			continue
		}
		if err := provider.Close(); err != nil {
			a.Logger.Warn().Str("provider", name).Err(err).Msg("Failed to close LLM provider")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
