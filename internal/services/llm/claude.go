package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/thesis/internal/interfaces"
	"github.com/ternarybob/thesis/internal/ratelimit"
)

const DefaultClaudeModel = "claude-sonnet-4-20250514"

// jsonInstruction is appended to the system prompt when a provider has no
// native JSON output mode.
const jsonInstruction = "Respond with a single valid JSON object and nothing else."

// ClaudeProvider generates content with the Anthropic Messages API.
type ClaudeProvider struct {
	client  anthropic.Client
	model   string
	limiter *ratelimit.Limiter
	logger  arbor.ILogger
}

// NewClaudeProvider creates a Claude provider. SDK retries are disabled;
// callers own the retry policy.
func NewClaudeProvider(apiKey, model string, logger arbor.ILogger, opts ...option.RequestOption) *ClaudeProvider {
	if model == "" {
		model = DefaultClaudeModel
	}
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}

	clientOpts := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)

	return &ClaudeProvider{
		client:  anthropic.NewClient(clientOpts...),
		model:   model,
		limiter: ratelimit.New(ratelimit.Config{RequestsPerMinute: 50}),
		logger:  logger,
	}
}

// convertMessagesToClaude maps the conversation to Claude message params.
// Unknown roles are sent as user turns.
func convertMessagesToClaude(messages []interfaces.Message) []anthropic.MessageParam {
	claudeMessages := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == interfaces.RoleAssistant {
			claudeMessages = append(claudeMessages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
			continue
		}
		claudeMessages = append(claudeMessages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
	}
	return claudeMessages
}

func (p *ClaudeProvider) GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error) {
	conversation, systemText, err := splitSystem(request)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}
	if request.JSONMode {
		systemText = strings.TrimSpace(systemText + "\n\n" + jsonInstruction)
	}

	model := request.Model
	if model == "" {
		model = p.model
	}
	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(maxTokens),
		Messages:    convertMessagesToClaude(conversation),
		Temperature: anthropic.Float(request.Temperature),
	}
	if systemText != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemText}}
	}

	if err := p.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("claude API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	p.logger.Debug().
		Str("model", model).
		Int("response_length", text.Len()).
		Msg("Claude completion finished")

	return &ContentResponse{
		Text:     strings.TrimSpace(text.String()),
		Provider: ProviderClaude,
		Model:    string(resp.Model),
	}, nil
}

func (p *ClaudeProvider) GetProviderType() ProviderType {
	return ProviderClaude
}

func (p *ClaudeProvider) DefaultModel() string {
	return p.model
}

func (p *ClaudeProvider) Close() error {
	return nil
}
