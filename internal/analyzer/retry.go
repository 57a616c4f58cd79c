package analyzer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"github.com/dshills/gocontext-review/internal/prompt"
)

// Retry configuration
const (
	MaxRetries        = 3
	InitialBackoffMs  = 500
	MaxBackoffMs      = 10000
	BackoffMultiplier = 2.0
)

// RetryConfig configures exponential backoff retry behavior
type RetryConfig struct {
	MaxRetries int           // Maximum number of attempts
	BaseDelay  time.Duration // Initial delay between retries
	MaxDelay   time.Duration // Maximum delay between retries
	Multiplier float64       // Exponential backoff multiplier
}

// DefaultRetryConfig returns sensible defaults for API retry
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: MaxRetries,
		BaseDelay:  time.Duration(InitialBackoffMs) * time.Millisecond,
		MaxDelay:   time.Duration(MaxBackoffMs) * time.Millisecond,
		Multiplier: BackoffMultiplier,
	}
}

// retryWithBackoff executes a function with exponential backoff retry logic.
// It stops early on context cancellation and on errors that Retryable rejects.
func retryWithBackoff[T any](ctx context.Context, config RetryConfig, fn func() (T, error)) (T, int, error) {
	var lastErr error
	var zero T
	backoff := config.BaseDelay

	attempts := 0
	for attempt := 0; attempt < config.MaxRetries; attempt++ {
		attempts++
		result, err := fn()
		if err == nil {
			return result, attempts, nil
		}

		lastErr = err

		// Don't retry on context cancellation
		if ctx.Err() != nil {
			return zero, attempts, ctx.Err()
		}

		if !Retryable(err) {
			return zero, attempts, err
		}

		// Apply exponential backoff before next retry
		if attempt < config.MaxRetries-1 {
			select {
			case <-ctx.Done():
				return zero, attempts, ctx.Err()
			case <-time.After(backoff):
				backoff = time.Duration(float64(backoff) * config.Multiplier)
				if backoff > config.MaxDelay {
					backoff = config.MaxDelay
				}
			}
		}
	}

	return zero, attempts, lastErr
}

// Retryable reports whether an error is worth another attempt. Client errors
// (bad request, auth, not found) are final; rate limits and server errors are not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrEmptyPrompt) {
		return false
	}

	switch code := statusCode(err); {
	case code == 0:
		return true
	case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout:
		return true
	case code >= 400 && code < 500:
		return false
	default:
		return true
	}
}

// statusCode extracts the HTTP status from an OpenAI-compatible or Gemini
// error, 0 if unknown
func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	// genai returns APIError by value
	var geminiErr genai.APIError
	if errors.As(err, &geminiErr) {
		return geminiErr.Code
	}
	var geminiPtr *genai.APIError
	if errors.As(err, &geminiPtr) && geminiPtr != nil {
		return geminiPtr.Code
	}
	return 0
}

// retrying decorates an Analyzer with bounded exponential backoff
type retrying struct {
	Analyzer
	config RetryConfig
}

// WithRetry wraps a with retry. A MaxRetries of 1 or less disables retrying.
func WithRetry(a Analyzer, config RetryConfig) Analyzer {
	if config.MaxRetries <= 1 {
		return a
	}
	if config.Multiplier < 1 {
		config.Multiplier = 1
	}
	if config.MaxDelay < config.BaseDelay {
		config.MaxDelay = config.BaseDelay
	}
	return &retrying{Analyzer: a, config: config}
}

func (r *retrying) Analyze(ctx context.Context, p prompt.Prompt) (Response, error) {
	resp, attempts, err := retryWithBackoff(ctx, r.config, func() (Response, error) {
		return r.Analyzer.Analyze(ctx, p)
	})
	if err != nil {
		if attempts > 1 {
			return Response{}, fmt.Errorf("after %d attempts: %w", attempts, err)
		}
		return Response{}, err
	}
	return resp, nil
}
