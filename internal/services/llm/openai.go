package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/thesis/internal/httpclient"
	"github.com/ternarybob/thesis/internal/interfaces"
	"github.com/ternarybob/thesis/internal/ratelimit"
)

const (
	DefaultOpenAIBaseURL     = "https://api.openai.com/v1"
	DefaultOpenAIModel       = "gpt-4o"
	DefaultPerplexityBaseURL = "https://api.perplexity.ai"
	DefaultPerplexityModel   = "sonar-pro"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// ChatCompletionsProvider talks to any OpenAI-compatible /chat/completions
// endpoint. The same type serves OpenAI and Perplexity.
type ChatCompletionsProvider struct {
	providerType   ProviderType
	model          string
	client         *httpclient.Client
	supportsFormat bool
	logger         arbor.ILogger
}

// ChatOption configures a ChatCompletionsProvider.
type ChatOption func(*chatOptions)

type chatOptions struct {
	baseURL string
	timeout time.Duration
	limiter *ratelimit.Limiter
	logger  arbor.ILogger
}

// WithChatBaseURL overrides the API base URL.
func WithChatBaseURL(baseURL string) ChatOption {
	return func(o *chatOptions) {
		if baseURL != "" {
			o.baseURL = baseURL
		}
	}
}

// WithChatTimeout sets the per-request timeout.
func WithChatTimeout(timeout time.Duration) ChatOption {
	return func(o *chatOptions) {
		o.timeout = timeout
	}
}

// WithChatLimiter replaces the default limiter.
func WithChatLimiter(limiter *ratelimit.Limiter) ChatOption {
	return func(o *chatOptions) {
		o.limiter = limiter
	}
}

// WithChatLogger sets a logger.
func WithChatLogger(logger arbor.ILogger) ChatOption {
	return func(o *chatOptions) {
		o.logger = logger
	}
}

// NewOpenAIProvider creates an OpenAI provider limited to ratelimit.OpenAI.
// JSON mode maps to response_format json_object.
func NewOpenAIProvider(apiKey, model string, opts ...ChatOption) *ChatCompletionsProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return newChatProvider(ProviderOpenAI, apiKey, model, DefaultOpenAIBaseURL, ratelimit.OpenAI, true, opts)
}

// NewPerplexityProvider creates a Perplexity provider limited to
// ratelimit.Perplexity. Perplexity has no JSON mode, so JSONMode is ignored.
func NewPerplexityProvider(apiKey, model string, opts ...ChatOption) *ChatCompletionsProvider {
	if model == "" {
		model = DefaultPerplexityModel
	}
	return newChatProvider(ProviderPerplexity, apiKey, model, DefaultPerplexityBaseURL, ratelimit.Perplexity, false, opts)
}

func newChatProvider(pt ProviderType, apiKey, model, baseURL string, limit ratelimit.Config, supportsFormat bool, opts []ChatOption) *ChatCompletionsProvider {
	o := &chatOptions{
		baseURL: baseURL,
		timeout: 2 * time.Minute,
		logger:  arbor.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.limiter == nil {
		o.limiter = ratelimit.New(limit)
	}

	client := httpclient.New(o.baseURL,
		httpclient.WithHeader("Authorization", "Bearer "+apiKey),
		httpclient.WithTimeout(o.timeout),
		httpclient.WithLimiter(o.limiter),
		httpclient.WithLogger(o.logger),
	)

	return &ChatCompletionsProvider{
		providerType:   pt,
		model:          model,
		client:         client,
		supportsFormat: supportsFormat,
		logger:         o.logger,
	}
}

func (p *ChatCompletionsProvider) GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error) {
	conversation, systemText, err := splitSystem(request)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}

	model := request.Model
	if model == "" {
		model = p.model
	}

	body := chatCompletionRequest{
		Model:       model,
		Temperature: request.Temperature,
		MaxTokens:   request.MaxTokens,
		Messages:    make([]chatMessage, 0, len(conversation)+1),
	}
	if systemText != "" {
		body.Messages = append(body.Messages, chatMessage{Role: interfaces.RoleSystem, Content: systemText})
	}
	for _, msg := range conversation {
		role := msg.Role
		if role != interfaces.RoleAssistant {
			role = interfaces.RoleUser
		}
		body.Messages = append(body.Messages, chatMessage{Role: role, Content: msg.Content})
	}
	if request.JSONMode && p.supportsFormat {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	start := time.Now()
	data, err := p.client.Post(ctx, "/chat/completions", body)
	if err != nil {
		return nil, err
	}

	var resp chatCompletionResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", p.providerType, err)
	}

	var text string
	if len(resp.Choices) > 0 {
		text = strings.TrimSpace(resp.Choices[0].Message.Content)
	}

	p.logger.Debug().
		Str("provider", string(p.providerType)).
		Str("model", model).
		Int("response_length", len(text)).
		Dur("duration", time.Since(start)).
		Msg("Chat completion finished")

	if resp.Model != "" {
		model = resp.Model
	}
	return &ContentResponse{
		Text:     text,
		Provider: p.providerType,
		Model:    model,
	}, nil
}

func (p *ChatCompletionsProvider) GetProviderType() ProviderType {
	return p.providerType
}

func (p *ChatCompletionsProvider) DefaultModel() string {
	return p.model
}

func (p *ChatCompletionsProvider) Close() error {
	return nil
}
