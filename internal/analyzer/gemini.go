package analyzer

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/dshills/gocontext-review/internal/prompt"
)

// GeminiProvider implements Analyzer using the Google GenAI SDK
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a Gemini analyzer
func NewGeminiProvider(ctx context.Context, apiKey, model string, httpClient *http.Client) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini api key not set", ErrNoProviderEnabled)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiProvider{client: client, model: model}, nil
}

func (g *GeminiProvider) Analyze(ctx context.Context, p prompt.Prompt) (Response, error) {
	if err := ValidatePrompt(p); err != nil {
		return Response{}, err
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(p.System, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(p.User), config)
	if err != nil {
		return Response{}, providerError(ProviderGemini, err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return Response{}, providerError(ProviderGemini, ErrEmptyResponse)
	}

	// The response exposes its text through Text(); FromValue extracts it
	return FromValue(resp), nil
}

func (g *GeminiProvider) Provider() string {
	return ProviderGemini
}

func (g *GeminiProvider) Model() string {
	return g.model
}

func (g *GeminiProvider) Close() error {
	return nil
}
