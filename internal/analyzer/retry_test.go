package analyzer

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/dshills/gocontext-review/internal/prompt"
)

func fastRetry(n int) RetryConfig {
	return RetryConfig{
		MaxRetries: n,
		BaseDelay:  time.Millisecond,
		MaxDelay:   2 * time.Millisecond,
		Multiplier: 2,
	}
}

func failingTimes(n int32, calls *int32, err error) Func {
	return Func(func(ctx context.Context, p prompt.Prompt) (any, error) {
		c := atomic.AddInt32(calls, 1)
		if c <= n {
			return nil, err
		}
		return "recovered", nil
	})
}

func TestWithRetry_SucceedsAfterFailures(t *testing.T) {
	var calls int32
	a := WithRetry(failingTimes(2, &calls, errors.New("flaky")), fastRetry(3))

	resp, err := a.Analyze(context.Background(), prompt.Prompt{User: "x"})

	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.String())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestWithRetry_GivesUp(t *testing.T) {
	var calls int32
	a := WithRetry(failingTimes(10, &calls, errors.New("still down")), fastRetry(3))

	_, err := a.Analyze(context.Background(), prompt.Prompt{User: "x"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Contains(t, err.Error(), "still down")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestWithRetry_StopsOnClientError(t *testing.T) {
	var calls int32
	authErr := &openai.APIError{HTTPStatusCode: http.StatusUnauthorized, Message: "bad key"}
	a := WithRetry(failingTimes(10, &calls, authErr), fastRetry(5))

	_, err := a.Analyze(context.Background(), prompt.Prompt{User: "x"})

	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestWithRetry_StopsOnGeminiClientError(t *testing.T) {
	var calls int32
	keyErr := providerError(ProviderGemini, genai.APIError{Code: http.StatusForbidden, Message: "API key not valid"})
	a := WithRetry(failingTimes(10, &calls, keyErr), fastRetry(5))

	_, err := a.Analyze(context.Background(), prompt.Prompt{User: "x"})

	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestWithRetry_HonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32
	a := WithRetry(Func(func(ctx context.Context, p prompt.Prompt) (any, error) {
		atomic.AddInt32(&calls, 1)
		cancel()
		return nil, errors.New("transient")
	}), fastRetry(5))

	_, err := a.Analyze(ctx, prompt.Prompt{User: "x"})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestWithRetry_Disabled(t *testing.T) {
	inner := NewLocalProvider()
	assert.Same(t, inner, WithRetry(inner, RetryConfig{MaxRetries: 1}))
	assert.Same(t, inner, WithRetry(inner, RetryConfig{}))
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "generic", err: errors.New("connection reset"), want: true},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "empty prompt", err: ErrEmptyPrompt, want: false},
		{name: "rate limited", err: &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests}, want: true},
		{name: "server error", err: &openai.APIError{HTTPStatusCode: http.StatusBadGateway}, want: true},
		{name: "bad request", err: &openai.APIError{HTTPStatusCode: http.StatusBadRequest}, want: false},
		{name: "request error 503", err: &openai.RequestError{HTTPStatusCode: http.StatusServiceUnavailable, Err: errors.New("x")}, want: true},
		{name: "wrapped not found", err: providerError("groq", &openai.APIError{HTTPStatusCode: http.StatusNotFound}), want: false},
		{name: "gemini bad request", err: providerError(ProviderGemini, genai.APIError{Code: http.StatusBadRequest}), want: false},
		{name: "gemini forbidden", err: providerError(ProviderGemini, genai.APIError{Code: http.StatusForbidden, Status: "PERMISSION_DENIED"}), want: false},
		{name: "gemini rate limited", err: providerError(ProviderGemini, genai.APIError{Code: http.StatusTooManyRequests}), want: true},
		{name: "gemini unavailable", err: providerError(ProviderGemini, &genai.APIError{Code: http.StatusServiceUnavailable}), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Retryable(tt.err))
		})
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	assert.Equal(t, MaxRetries, cfg.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.BaseDelay)
	assert.Equal(t, 10*time.Second, cfg.MaxDelay)
}
