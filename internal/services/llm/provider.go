// Package llm adapts chat-completion backends (OpenAI-compatible HTTP APIs,
// Anthropic Claude and Google Gemini) to a single Provider interface.
package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/thesis/internal/interfaces"
)

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderOpenAI     ProviderType = "openai"
	ProviderPerplexity ProviderType = "perplexity"
	ProviderClaude     ProviderType = "claude"
	ProviderGemini     ProviderType = "gemini"
)

// ContentRequest represents a provider-agnostic content generation request
type ContentRequest struct {
	Messages          []interfaces.Message
	Model             string // empty uses the provider default
	Temperature       float64
	MaxTokens         int
	SystemInstruction string // overrides any system message in Messages
	JSONMode          bool   // ask for a single JSON object as output
}

// ContentResponse represents a provider-agnostic content generation response
type ContentResponse struct {
	Text     string
	Provider ProviderType
	Model    string
}

// Provider defines the interface for AI content generation
type Provider interface {
	GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error)
	GetProviderType() ProviderType
	DefaultModel() string
	Close() error
}

// splitSystem separates the system prompt from the conversation. The
// request's SystemInstruction wins over a system message.
func splitSystem(request *ContentRequest) ([]interfaces.Message, string, error) {
	if len(request.Messages) == 0 {
		return nil, "", fmt.Errorf("messages cannot be empty")
	}

	hasUserMessage := false
	conversation := make([]interfaces.Message, 0, len(request.Messages))
	var systemText string
	for _, msg := range request.Messages {
		switch msg.Role {
		case interfaces.RoleSystem:
			if systemText == "" {
				systemText = msg.Content
			}
			continue
		case interfaces.RoleUser:
			hasUserMessage = true
		}
		conversation = append(conversation, msg)
	}
	if !hasUserMessage {
		return nil, "", fmt.Errorf("at least one message must have role 'user'")
	}

	if request.SystemInstruction != "" {
		systemText = request.SystemInstruction
	}
	return conversation, systemText, nil
}
