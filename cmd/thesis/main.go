package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/thesis/internal/app"
	"github.com/ternarybob/thesis/internal/common"
	"github.com/ternarybob/thesis/internal/server"
	"github.com/ternarybob/thesis/internal/services/render"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths
	serverPort   = flag.Int("port", 0, "Server port (overrides config)")
	serverHost   = flag.String("host", "", "Server host (overrides config)")
	generate     = flag.String("generate", "", "Generate a report for TICKER, print it as markdown and exit")
	syncQuotes   = flag.Bool("sync", false, "Sync quotes for the universe once and exit")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	common.LoadVersionFromFile()
	if *showVersion || *showVersionV {
		fmt.Printf("Thesis version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	if len(configFiles) == 0 {
		if _, err := os.Stat("thesis.toml"); err == nil {
			configFiles = append(configFiles, "thesis.toml")
		} else if _, err := os.Stat("deployments/local/thesis.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/thesis.toml")
		}
	}

	// Startup order: config (defaults -> files -> .env -> env), CLI
	// overrides, logger, banner.
	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	if *serverPort != 0 {
		config.Server.Port = *serverPort
	}
	if *serverHost != "" {
		config.Server.Host = *serverHost
	}

	// One-shot commands run without the scheduler.
	oneShot := *generate != "" || *syncQuotes
	if oneShot {
		config.Scheduler.Enabled = false
	}

	logger := common.InitLogger(config)
	if !oneShot {
		common.PrintBanner(common.Version)
	}

	logger.Info().
		Strs("config_files", configFiles).
		Str("llm_provider", string(config.LLM.Provider)).
		Str("universe", config.Universe.Source).
		Msg("Application configuration loaded")

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// os.Exit skips deferred calls, so one-shot commands close explicitly.
	exit := func(code int) {
		stop()
		application.Close()
		os.Exit(code)
	}

	switch {
	case *generate != "":
		exit(runGenerate(ctx, application, *generate))
	case *syncQuotes:
		exit(runSync(ctx, application))
	}

	runServer(ctx, application, logger)
}

func runGenerate(ctx context.Context, application *app.App, ticker string) int {
	report, err := application.GenerateReport(ctx, ticker)
	if err != nil {
		application.Logger.Error().Str("ticker", ticker).Err(err).Msg("Report generation failed")
		return 1
	}

	fmt.Println(render.Markdown(report))
	return 0
}

func runSync(ctx context.Context, application *app.App) int {
	result, err := application.SyncQuotes(ctx)
	if err != nil {
		application.Logger.Error().Err(err).Msg("Quote sync failed")
		return 1
	}

	application.Logger.Info().
		Int("synced", result.Synced).
		Int("failed", result.Failed).
		Msg("Quote sync finished")
	for _, e := range result.Errors {
		fmt.Fprintln(os.Stderr, e)
	}
	if result.Synced == 0 && result.Failed > 0 {
		return 1
	}
	return 0
}

func runServer(ctx context.Context, application *app.App, logger arbor.ILogger) {
	if err := application.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start background workers")
		return
	}

	srv := server.New(application)
	logger.Info().
		Str("url", "http://"+srv.Addr()).
		Msg("Server ready - Press Ctrl+C to stop")

	if err := srv.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("Server failed")
		return
	}
	logger.Info().Msg("Server stopped")
}
