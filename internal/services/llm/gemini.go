package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/ternarybob/thesis/internal/httpclient"
	"github.com/ternarybob/thesis/internal/interfaces"
	"github.com/ternarybob/thesis/internal/ratelimit"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiProvider generates content with the Google Gemini API.
type GeminiProvider struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	limiter *ratelimit.Limiter
	logger  arbor.ILogger
}

// GeminiOption configures a GeminiProvider.
type GeminiOption func(*geminiOptions)

type geminiOptions struct {
	baseURL string
	timeout time.Duration
}

// WithGeminiBaseURL overrides the API endpoint.
func WithGeminiBaseURL(baseURL string) GeminiOption {
	return func(o *geminiOptions) {
		o.baseURL = baseURL
	}
}

// WithGeminiTimeout bounds each generate call. The limiter wait is not
// counted.
func WithGeminiTimeout(timeout time.Duration) GeminiOption {
	return func(o *geminiOptions) {
		o.timeout = timeout
	}
}

// NewGeminiProvider creates a Gemini provider.
func NewGeminiProvider(ctx context.Context, apiKey, model string, logger arbor.ILogger, opts ...GeminiOption) (*GeminiProvider, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}

	var o geminiOptions
	for _, opt := range opts {
		opt(&o)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: o.baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client:  client,
		model:   model,
		timeout: o.timeout,
		limiter: ratelimit.New(ratelimit.Config{RequestsPerMinute: 15}),
		logger:  logger,
	}, nil
}

// convertMessagesToGemini maps the conversation to Gemini contents.
// Assistant turns become model turns; everything else is a user turn.
func convertMessagesToGemini(messages []interfaces.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		role := genai.RoleUser
		if msg.Role == interfaces.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
		})
	}
	return contents
}

// buildGeminiConfig translates request options. JSON mode sets the
// application/json response MIME type.
func buildGeminiConfig(request *ContentRequest, systemText string) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(request.Temperature)),
	}
	if request.MaxTokens > 0 {
		config.MaxOutputTokens = int32(request.MaxTokens)
	}
	if systemText != "" {
		config.SystemInstruction = genai.NewContentFromText(systemText, genai.RoleUser)
	}
	if request.JSONMode {
		config.ResponseMIMEType = "application/json"
	}
	return config
}

func (p *GeminiProvider) GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error) {
	conversation, systemText, err := splitSystem(request)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}

	model := request.Model
	if model == "" {
		model = p.model
	}

	if err := p.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	callCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	resp, err := p.client.Models.GenerateContent(callCtx, model, convertMessagesToGemini(conversation), buildGeminiConfig(request, systemText))
	if err != nil {
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			p.logger.Warn().
				Str("model", model).
				Dur("timeout", p.timeout).
				Msg("Gemini request timed out")
			return nil, &httpclient.TimeoutError{Method: "POST", URL: "gemini/" + model, Timeout: p.timeout}
		}
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}

	var text string
	if resp != nil && len(resp.Candidates) > 0 {
		text = strings.TrimSpace(resp.Text())
	}

	p.logger.Debug().
		Str("model", model).
		Int("response_length", len(text)).
		Msg("Gemini completion finished")

	return &ContentResponse{
		Text:     text,
		Provider: ProviderGemini,
		Model:    model,
	}, nil
}

func (p *GeminiProvider) GetProviderType() ProviderType {
	return ProviderGemini
}

func (p *GeminiProvider) DefaultModel() string {
	return p.model
}

func (p *GeminiProvider) Close() error {
	p.client = nil
	return nil
}
