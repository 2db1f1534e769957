package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/ternarybob/thesis/internal/common"
	"github.com/ternarybob/thesis/internal/httpclient"
	"github.com/ternarybob/thesis/internal/interfaces"
)

func userRequest(jsonMode bool) *ContentRequest {
	return &ContentRequest{
		Messages: []interfaces.Message{
			{Role: interfaces.RoleSystem, Content: "be terse"},
			{Role: interfaces.RoleUser, Content: "hello"},
		},
		Temperature: 0.7,
		MaxTokens:   4000,
		JSONMode:    jsonMode,
	}
}

func TestOpenAIProvider_RequestShape(t *testing.T) {
	var got chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"model":"gpt-4o-2024-08-06","choices":[{"message":{"role":"assistant","content":"  {\"ok\":true}  "},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider("sk-test", "", WithChatBaseURL(server.URL+"/v1"))

	resp, err := provider.GenerateContent(context.Background(), userRequest(true))
	require.NoError(t, err)

	assert.Equal(t, `{"ok":true}`, resp.Text)
	assert.Equal(t, ProviderOpenAI, resp.Provider)
	assert.Equal(t, "gpt-4o-2024-08-06", resp.Model)

	assert.Equal(t, "gpt-4o", got.Model)
	assert.Equal(t, 0.7, got.Temperature)
	assert.Equal(t, 4000, got.MaxTokens)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, chatMessage{Role: "system", Content: "be terse"}, got.Messages[0])
	assert.Equal(t, chatMessage{Role: "user", Content: "hello"}, got.Messages[1])
}

func TestPerplexityProvider_NoResponseFormat(t *testing.T) {
	var raw map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"research"}}]}`))
	}))
	defer server.Close()

	provider := NewPerplexityProvider("pplx", "", WithChatBaseURL(server.URL))

	resp, err := provider.GenerateContent(context.Background(), userRequest(true))
	require.NoError(t, err)

	assert.Equal(t, "research", resp.Text)
	assert.Equal(t, "sonar-pro", resp.Model)
	assert.Equal(t, "sonar-pro", raw["model"])
	assert.NotContains(t, raw, "response_format")
}

func TestChatProvider_EmptyChoicesYieldEmptyText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	resp, err := NewOpenAIProvider("k", "", WithChatBaseURL(server.URL)).GenerateContent(context.Background(), userRequest(false))
	require.NoError(t, err)
	assert.Empty(t, resp.Text)
}

func TestChatProvider_HTTPErrorPassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := NewOpenAIProvider("k", "", WithChatBaseURL(server.URL)).GenerateContent(context.Background(), userRequest(false))

	var httpErr *httpclient.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusTooManyRequests, httpErr.Status)
}

func TestSplitSystem(t *testing.T) {
	conv, system, err := splitSystem(&ContentRequest{
		Messages: []interfaces.Message{
			{Role: "system", Content: "first"},
			{Role: "system", Content: "second"},
			{Role: "user", Content: "q"},
			{Role: "assistant", Content: "a"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "first", system)
	assert.Len(t, conv, 2)

	_, system, err = splitSystem(&ContentRequest{
		Messages:          []interfaces.Message{{Role: "user", Content: "q"}},
		SystemInstruction: "override",
	})
	require.NoError(t, err)
	assert.Equal(t, "override", system)

	_, _, err = splitSystem(&ContentRequest{})
	assert.Error(t, err)

	_, _, err = splitSystem(&ContentRequest{Messages: []interfaces.Message{{Role: "assistant", Content: "a"}}})
	assert.Error(t, err)
}

func TestConvertMessagesToClaude(t *testing.T) {
	params := convertMessagesToClaude([]interfaces.Message{
		{Role: "user", Content: "q"},
		{Role: "assistant", Content: "a"},
		{Role: "tool", Content: "x"},
	})
	require.Len(t, params, 3)
	assert.Equal(t, "user", string(params[0].Role))
	assert.Equal(t, "assistant", string(params[1].Role))
	assert.Equal(t, "user", string(params[2].Role))
}

func TestGeminiConversion(t *testing.T) {
	contents := convertMessagesToGemini([]interfaces.Message{
		{Role: "user", Content: "q"},
		{Role: "assistant", Content: "a"},
	})
	require.Len(t, contents, 2)
	assert.Equal(t, genai.RoleUser, contents[0].Role)
	assert.Equal(t, genai.RoleModel, contents[1].Role)
	assert.Equal(t, "a", contents[1].Parts[0].Text)

	config := buildGeminiConfig(userRequest(true), "sys")
	assert.Equal(t, "application/json", config.ResponseMIMEType)
	assert.Equal(t, int32(4000), config.MaxOutputTokens)
	require.NotNil(t, config.Temperature)
	assert.InDelta(t, 0.7, float64(*config.Temperature), 1e-6)
	require.NotNil(t, config.SystemInstruction)
}

func TestGeminiProvider_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	provider, err := NewGeminiProvider(context.Background(), "k", "", arbor.NewNoOpLogger(),
		WithGeminiBaseURL(server.URL+"/"),
		WithGeminiTimeout(50*time.Millisecond),
	)
	require.NoError(t, err)

	_, err = provider.GenerateContent(context.Background(), userRequest(false))

	assert.ErrorIs(t, err, httpclient.ErrTimeout)
	var timeoutErr *httpclient.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, 50*time.Millisecond, timeoutErr.Timeout)
}

func TestNewResearchProvider(t *testing.T) {
	logger := arbor.NewNoOpLogger()
	t.Setenv("THESIS_PERPLEXITY_API_KEY", "")
	t.Setenv("PERPLEXITY_API_KEY", "")

	assert.Nil(t, NewResearchProvider(&common.ResearchConfig{Enabled: false, APIKey: "k"}, logger))
	assert.Nil(t, NewResearchProvider(&common.ResearchConfig{Enabled: true}, logger))

	provider := NewResearchProvider(&common.ResearchConfig{Enabled: true, APIKey: "k", Model: "sonar"}, logger)
	require.NotNil(t, provider)
	assert.Equal(t, ProviderPerplexity, provider.GetProviderType())
	assert.Equal(t, "sonar", provider.DefaultModel())
}

func TestNewProvider_Selection(t *testing.T) {
	logger := arbor.NewNoOpLogger()
	t.Setenv("THESIS_OPENAI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("THESIS_CLAUDE_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	cfg := common.NewDefaultConfig().LLM

	_, err := NewProvider(context.Background(), &cfg, logger)
	assert.Error(t, err, "missing key")

	cfg.OpenAI.APIKey = "sk"
	provider, err := NewProvider(context.Background(), &cfg, logger)
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, provider.GetProviderType())
	assert.Equal(t, "gpt-4o", provider.DefaultModel())

	cfg.Provider = common.LLMProviderClaude
	cfg.Claude.APIKey = "ant"
	provider, err = NewProvider(context.Background(), &cfg, logger)
	require.NoError(t, err)
	assert.Equal(t, ProviderClaude, provider.GetProviderType())

	cfg.Provider = "mystery"
	_, err = NewProvider(context.Background(), &cfg, logger)
	assert.Error(t, err)
}
