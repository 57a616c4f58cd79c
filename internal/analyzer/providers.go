package analyzer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/dshills/gocontext-review/internal/prompt"
)

// Provider configuration
const (
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderLocal  = "local"

	// Default models
	DefaultGroqModel   = "llama3-70b-8192"
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultGeminiModel = "gemini-2.0-flash"

	// Default endpoints for OpenAI-compatible providers
	DefaultGroqBaseURL   = "https://api.groq.com/openai/v1"
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"

	// DefaultHTTPTimeout bounds a single HTTP exchange
	DefaultHTTPTimeout = 60 * time.Second

	// DefaultMaxTokens caps the length of one analysis
	DefaultMaxTokens = 2048
)

// ChatProvider implements Analyzer against an OpenAI-compatible chat
// completions API. Groq and OpenAI both use it.
type ChatProvider struct {
	name      string
	model     string
	maxTokens int
	client    *openai.Client
	http      *http.Client
}

// ChatOptions configures a ChatProvider
type ChatOptions struct {
	Name       string // Provider name reported in diagnostics
	APIKey     string
	Model      string
	BaseURL    string
	MaxTokens  int
	HTTPClient *http.Client
}

// NewChatProvider creates an OpenAI-compatible chat analyzer
func NewChatProvider(opts ChatOptions) (*ChatProvider, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: %s api key not set", ErrNoProviderEnabled, opts.Name)
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("%w: %s model not set", ErrNoProviderEnabled, opts.Name)
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}

	config := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		config.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	config.HTTPClient = opts.HTTPClient

	return &ChatProvider{
		name:      opts.Name,
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		client:    openai.NewClientWithConfig(config),
		http:      opts.HTTPClient,
	}, nil
}

func (c *ChatProvider) Analyze(ctx context.Context, p prompt.Prompt) (Response, error) {
	if err := ValidatePrompt(p); err != nil {
		return Response{}, err
	}

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.System},
			{Role: openai.ChatMessageRoleUser, Content: p.User},
		},
	}
	// Reasoning models take MaxCompletionTokens instead of MaxTokens
	if isReasoningModel(c.model) {
		req.MaxCompletionTokens = c.maxTokens
	} else {
		req.MaxTokens = c.maxTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if statusCode(err) == http.StatusTooManyRequests {
			return Response{}, providerError(c.name, errors.Join(ErrQuotaExceeded, err))
		}
		return Response{}, providerError(c.name, err)
	}

	if len(resp.Choices) == 0 {
		return Response{}, providerError(c.name, ErrEmptyResponse)
	}

	return Text(resp.Choices[0].Message.Content), nil
}

func isReasoningModel(model string) bool {
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

func (c *ChatProvider) Provider() string {
	return c.name
}

func (c *ChatProvider) Model() string {
	return c.model
}

func (c *ChatProvider) Close() error {
	c.http.CloseIdleConnections()
	return nil
}
