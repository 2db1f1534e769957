// Package report generates, validates and scores AI stock reports.
package report

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/thesis/internal/common"
	"github.com/ternarybob/thesis/internal/interfaces"
	"github.com/ternarybob/thesis/internal/models"
	"github.com/ternarybob/thesis/internal/providers"
	"github.com/ternarybob/thesis/internal/ratelimit"
	"github.com/ternarybob/thesis/internal/retry"
	"github.com/ternarybob/thesis/internal/services/llm"
)

// State is a step of a single generation run.
type State string

const (
	StateIdle        State = "idle"
	StateResearching State = "researching"
	StateGenerating  State = "generating"
	StateValidating  State = "validating"
	StateScoring     State = "scoring"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Observer is notified of every state transition.
type Observer func(ticker string, from, to State)

// researchExcerptLength is how much research text is appended to the news.
const researchExcerptLength = 500

// Config tunes the generator.
type Config struct {
	Model       string // empty uses the provider default
	Temperature float64
	MaxTokens   int
	MaxAttempts int

	ResearchModel       string
	ResearchTemperature float64
	ResearchMaxTokens   int
}

// DefaultConfig returns gpt-4o style settings: temperature 0.7, 4000 tokens,
// three attempts, and sonar-pro research at temperature 0.3.
func DefaultConfig() Config {
	return Config{
		Temperature:         0.7,
		MaxTokens:           4000,
		MaxAttempts:         3,
		ResearchModel:       llm.DefaultPerplexityModel,
		ResearchTemperature: 0.3,
		ResearchMaxTokens:   2000,
	}
}

// ConfigFromCommon maps the application config onto a generator Config.
func ConfigFromCommon(cfg *common.Config) Config {
	c := DefaultConfig()
	if cfg.LLM.Temperature > 0 {
		c.Temperature = cfg.LLM.Temperature
	}
	if cfg.LLM.MaxTokens > 0 {
		c.MaxTokens = cfg.LLM.MaxTokens
	}
	if cfg.LLM.MaxAttempts > 0 {
		c.MaxAttempts = cfg.LLM.MaxAttempts
	}
	switch cfg.LLM.Provider {
	case common.LLMProviderClaude:
		c.Model = cfg.LLM.Claude.Model
	case common.LLMProviderGemini:
		c.Model = cfg.LLM.Gemini.Model
	default:
		c.Model = cfg.LLM.OpenAI.Model
	}
	if cfg.Research.Model != "" {
		c.ResearchModel = cfg.Research.Model
	}
	if cfg.Research.Temperature > 0 {
		c.ResearchTemperature = cfg.Research.Temperature
	}
	if cfg.Research.MaxTokens > 0 {
		c.ResearchMaxTokens = cfg.Research.MaxTokens
	}
	return c
}

// Result is a scored report with its generation metadata.
type Result struct {
	Report         *models.GeneratedReport
	Quality        models.QualityScore
	Research       string
	GenerationTime time.Duration
	Attempts       int
	Model          string
	PromptVersion  string
}

// Generator turns a StockReportInput into a validated GeneratedReport.
// It is safe for concurrent use; run state is per call.
type Generator struct {
	provider llm.Provider
	research llm.Provider
	config   Config
	backoff  retry.Policy
	observer Observer
	logger   arbor.ILogger
}

// Option configures a Generator.
type Option func(*Generator)

// WithObserver registers a state transition observer.
func WithObserver(observer Observer) Option {
	return func(g *Generator) {
		g.observer = observer
	}
}

// WithBackoff replaces the delay schedule between attempts. MaxRetries and
// ShouldRetry are always derived from Config.MaxAttempts.
func WithBackoff(policy retry.Policy) Option {
	return func(g *Generator) {
		g.backoff = policy
	}
}

// NewGenerator creates a generator. research may be nil.
func NewGenerator(provider llm.Provider, research llm.Provider, config Config, logger arbor.ILogger, opts ...Option) *Generator {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}

	g := &Generator{
		provider: provider,
		research: research,
		config:   config,
		backoff:  retry.DefaultPolicy(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// HasResearch reports whether a research provider is configured.
func (g *Generator) HasResearch() bool {
	return g.research != nil
}

// GenerateReport generates and validates a report for input, retrying
// failed attempts with exponential backoff.
func (g *Generator) GenerateReport(ctx context.Context, input *models.StockReportInput) (*models.GeneratedReport, error) {
	r := g.newRun(input.Ticker)
	report, _, _, err := r.generate(ctx, input)
	if err != nil {
		r.transition(StateFailed)
		return nil, err
	}
	r.transition(StateDone)
	return report, nil
}

// ResearchStock asks the research provider for recent developments.
func (g *Generator) ResearchStock(ctx context.Context, ticker, companyName string) (string, error) {
	if g.research == nil {
		return "", ErrResearchNotConfigured
	}

	resp, err := g.research.GenerateContent(ctx, &llm.ContentRequest{
		Messages: []interfaces.Message{
			{Role: interfaces.RoleSystem, Content: ResearchSystemPrompt},
			{Role: interfaces.RoleUser, Content: BuildResearchPrompt(ticker, companyName)},
		},
		Model:       g.config.ResearchModel,
		Temperature: g.config.ResearchTemperature,
		MaxTokens:   g.config.ResearchMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("research for %s failed: %w", ticker, err)
	}
	return resp.Text, nil
}

// Generate runs the full pipeline: optional research, generation,
// validation and quality scoring. input is never modified.
func (g *Generator) Generate(ctx context.Context, input *models.StockReportInput) (*Result, error) {
	start := time.Now()
	r := g.newRun(input.Ticker)

	var research string
	if g.research != nil {
		r.transition(StateResearching)

		text, err := g.ResearchStock(ctx, input.Ticker, input.CompanyName)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				r.transition(StateFailed)
				return nil, ctx.Err()
			}
			g.logger.Warn().
				Str("ticker", input.Ticker).
				Err(err).
				Msg("Research failed, continuing without")
		case text != "":
			research = text
			input = withResearch(input, text)
		}
	}

	report, attempts, model, err := r.generate(ctx, input)
	if err != nil {
		r.transition(StateFailed)
		return nil, err
	}

	r.transition(StateScoring)
	quality := ScoreReportQuality(report)

	result := &Result{
		Report:         report,
		Quality:        quality,
		Research:       research,
		GenerationTime: time.Since(start),
		Attempts:       attempts,
		Model:          model,
		PromptVersion:  PromptVersion,
	}
	r.transition(StateDone)

	g.logger.Info().
		Str("ticker", input.Ticker).
		Int("attempts", attempts).
		Int("quality", quality.Overall).
		Int("issues", len(quality.Issues)).
		Dur("duration", result.GenerationTime).
		Msg("Report generated")

	return result, nil
}

// withResearch returns a copy of input with a research excerpt appended to
// its news.
func withResearch(input *models.StockReportInput, research string) *models.StockReportInput {
	excerpt := research
	if utf8.RuneCountInString(excerpt) > researchExcerptLength {
		excerpt = string([]rune(excerpt)[:researchExcerptLength])
	}

	enriched := *input
	enriched.RecentNews = append(slices.Clone(input.RecentNews), fmt.Sprintf("[AI Research Summary]: %s...", excerpt))
	return &enriched
}

// shouldRetryGeneration rejects an exhausted daily quota, which no later
// attempt can fix. A provider's own request timeout is retried; caller
// cancellation ends the loop in retry.DoValue.
func shouldRetryGeneration(err error) bool {
	return !errors.Is(err, ratelimit.ErrRateLimitExceeded)
}

type run struct {
	g      *Generator
	ticker string
	state  State
}

func (g *Generator) newRun(ticker string) *run {
	return &run{g: g, ticker: ticker, state: StateIdle}
}

func (r *run) transition(to State) {
	from := r.state
	r.state = to

	r.g.logger.Debug().
		Str("ticker", r.ticker).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("Report generation state changed")

	if r.g.observer != nil {
		r.g.observer(r.ticker, from, to)
	}
}

// generate runs the attempt loop and returns the report, the number of
// attempts made and the model that produced it.
func (r *run) generate(ctx context.Context, input *models.StockReportInput) (*models.GeneratedReport, int, string, error) {
	g := r.g

	if err := providers.Validator().Struct(input); err != nil {
		return nil, 0, "", fmt.Errorf("invalid report input: %w", err)
	}

	request := &llm.ContentRequest{
		Messages: []interfaces.Message{
			{Role: interfaces.RoleSystem, Content: SystemPrompt},
			{Role: interfaces.RoleUser, Content: BuildStockReportPrompt(input)},
		},
		Model:       g.config.Model,
		Temperature: g.config.Temperature,
		MaxTokens:   g.config.MaxTokens,
		JSONMode:    true,
	}

	policy := g.backoff
	policy.MaxRetries = g.config.MaxAttempts - 1
	policy.ShouldRetry = shouldRetryGeneration
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		g.logger.Warn().
			Str("ticker", input.Ticker).
			Int("attempt", attempt).
			Int("max_attempts", g.config.MaxAttempts).
			Dur("delay", delay).
			Err(err).
			Msg("Report generation attempt failed")
	}

	attempts := 0
	model := g.provider.DefaultModel()
	if g.config.Model != "" {
		model = g.config.Model
	}

	report, err := retry.DoValue(ctx, policy, func(ctx context.Context) (*models.GeneratedReport, error) {
		attempts++
		r.transition(StateGenerating)

		resp, err := g.provider.GenerateContent(ctx, request)
		if err != nil {
			return nil, err
		}
		if resp.Model != "" {
			model = resp.Model
		}

		r.transition(StateValidating)
		return ParseReport(resp.Text)
	})
	if err != nil {
		g.logger.Error().
			Str("ticker", input.Ticker).
			Int("attempts", attempts).
			Err(err).
			Msg("Report generation failed")
		return nil, attempts, model, &GenerationError{Ticker: input.Ticker, Attempts: attempts, Err: err}
	}

	return report, attempts, model, nil
}
