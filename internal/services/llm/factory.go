package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/thesis/internal/common"
)

// NewProvider creates the report-generation provider selected by
// cfg.Provider, resolving its API key from the environment or config.
func NewProvider(ctx context.Context, cfg *common.LLMConfig, logger arbor.ILogger) (Provider, error) {
	timeout := common.ParseDuration(cfg.Timeout, 2*time.Minute)

	logger.Info().
		Str("provider", string(cfg.Provider)).
		Msg("Initializing LLM provider")

	switch cfg.Provider {
	case common.LLMProviderOpenAI, "":
		apiKey, err := common.ResolveAPIKey("openai_api_key", cfg.OpenAI.APIKey)
		if err != nil {
			return nil, err
		}
		return NewOpenAIProvider(apiKey, cfg.OpenAI.Model,
			WithChatBaseURL(cfg.OpenAI.BaseURL),
			WithChatTimeout(timeout),
			WithChatLogger(logger),
		), nil

	case common.LLMProviderClaude:
		apiKey, err := common.ResolveAPIKey("anthropic_api_key", cfg.Claude.APIKey)
		if err != nil {
			return nil, err
		}
		opts := []option.RequestOption{option.WithRequestTimeout(timeout)}
		if cfg.Claude.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.Claude.BaseURL))
		}
		return NewClaudeProvider(apiKey, cfg.Claude.Model, logger, opts...), nil

	case common.LLMProviderGemini:
		apiKey, err := common.ResolveAPIKey("gemini_api_key", cfg.Gemini.APIKey)
		if err != nil {
			return nil, err
		}
		provider, err := NewGeminiProvider(ctx, apiKey, cfg.Gemini.Model, logger, WithGeminiTimeout(timeout))
		if err != nil {
			return nil, err
		}
		return provider, nil

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// NewResearchProvider creates the research provider, or returns nil when
// research is disabled or no API key is available.
func NewResearchProvider(cfg *common.ResearchConfig, logger arbor.ILogger) Provider {
	if !cfg.Enabled {
		return nil
	}

	apiKey, err := common.ResolveAPIKey("perplexity_api_key", cfg.APIKey)
	if err != nil {
		logger.Warn().Err(err).Msg("Research enabled but no API key found, skipping research")
		return nil
	}

	return NewPerplexityProvider(apiKey, cfg.Model,
		WithChatBaseURL(cfg.BaseURL),
		WithChatLogger(logger),
	)
}
