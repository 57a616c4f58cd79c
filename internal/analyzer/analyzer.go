package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/gocontext-review/internal/prompt"
)

// Common errors
var (
	ErrProviderFailed      = errors.New("analysis provider failed")
	ErrEmptyResponse       = errors.New("provider returned no content")
	ErrQuotaExceeded       = errors.New("provider quota exceeded")
	ErrNoProviderEnabled   = errors.New("no analysis provider configured")
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrEmptyPrompt         = errors.New("prompt cannot be empty")
)

// Analyzer turns a prompt into free-form textual feedback
type Analyzer interface {
	// Analyze sends one prompt to the provider
	Analyze(ctx context.Context, p prompt.Prompt) (Response, error)

	// Provider returns the provider name
	Provider() string

	// Model returns the model name
	Model() string

	// Close releases any resources held by the analyzer
	Close() error
}

// ValidatePrompt validates a prompt before it is sent
func ValidatePrompt(p prompt.Prompt) error {
	if strings.TrimSpace(p.User) == "" {
		return ErrEmptyPrompt
	}
	return nil
}

// Func adapts a plain function to Analyzer. The returned value is classified
// with FromValue, so a function may return a string, a value with a Text
// method, or anything else.
type Func func(ctx context.Context, p prompt.Prompt) (any, error)

// Analyze calls f
func (f Func) Analyze(ctx context.Context, p prompt.Prompt) (Response, error) {
	v, err := f(ctx, p)
	if err != nil {
		return Response{}, err
	}
	return FromValue(v), nil
}

func (f Func) Provider() string {
	return "func"
}

func (f Func) Model() string {
	return "func"
}

func (f Func) Close() error {
	return nil
}

// providerError wraps a transport or service failure
func providerError(provider string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrProviderFailed, provider, err)
}
