package analyzer

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dshills/gocontext-review/internal/prompt"
)

// LocalProvider is an offline analyzer for dry runs. Its output is a
// deterministic summary of the prompt, so runs are reproducible.
type LocalProvider struct {
	model string
}

// NewLocalProvider creates a local analyzer
func NewLocalProvider() *LocalProvider {
	return &LocalProvider{model: "local-summary"}
}

func (l *LocalProvider) Analyze(ctx context.Context, p prompt.Prompt) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	if err := ValidatePrompt(p); err != nil {
		return Response{}, err
	}

	lines := strings.Count(p.User, "\n") + 1
	chars := utf8.RuneCountInString(p.User)
	return Text(fmt.Sprintf("local analysis: %d lines, %d chars, ~%d tokens", lines, chars, len(p.User)/4)), nil
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return l.model
}

func (l *LocalProvider) Close() error {
	return nil
}
