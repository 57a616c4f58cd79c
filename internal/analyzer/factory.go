package analyzer

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Config holds analyzer configuration. It is filled by the config layer;
// this package never reads the environment.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	HTTPTimeout time.Duration
	MaxTokens   int
	Retry       RetryConfig
}

// New creates an analyzer with explicit configuration, wrapped with retry
func New(ctx context.Context, cfg Config) (Analyzer, error) {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	httpClient := &http.Client{Timeout: timeout}

	retry := cfg.Retry
	if retry.MaxRetries == 0 {
		retry = DefaultRetryConfig()
	}

	var (
		a   Analyzer
		err error
	)

	provider := strings.ToLower(cfg.Provider)
	switch provider {
	case ProviderGroq, "":
		a, err = NewChatProvider(ChatOptions{
			Name:       ProviderGroq,
			APIKey:     cfg.APIKey,
			Model:      withDefault(cfg.Model, DefaultGroqModel),
			BaseURL:    withDefault(cfg.BaseURL, DefaultGroqBaseURL),
			MaxTokens:  cfg.MaxTokens,
			HTTPClient: httpClient,
		})
	case ProviderOpenAI:
		a, err = NewChatProvider(ChatOptions{
			Name:       ProviderOpenAI,
			APIKey:     cfg.APIKey,
			Model:      withDefault(cfg.Model, DefaultOpenAIModel),
			BaseURL:    withDefault(cfg.BaseURL, DefaultOpenAIBaseURL),
			MaxTokens:  cfg.MaxTokens,
			HTTPClient: httpClient,
		})
	case ProviderGemini:
		a, err = NewGeminiProvider(ctx, cfg.APIKey, cfg.Model, httpClient)
	case ProviderLocal:
		// Offline: no retry needed
		return NewLocalProvider(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return WithRetry(a, retry), nil
}

// RequiresAPIKey reports whether a provider needs a credential
func RequiresAPIKey(provider string) bool {
	return strings.ToLower(provider) != ProviderLocal
}

// KnownProvider reports whether New accepts the provider name
func KnownProvider(provider string) bool {
	switch strings.ToLower(provider) {
	case ProviderGroq, ProviderOpenAI, ProviderGemini, ProviderLocal:
		return true
	default:
		return false
	}
}

func withDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
