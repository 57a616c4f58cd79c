// Package prompt builds the two-role request sent to the analysis provider.
package prompt

import (
	"fmt"
	"strings"
	"text/template"
	"unicode/utf8"
)

const (
	// DefaultSystem is the fixed instruction role
	DefaultSystem = "You are an expert software development assistant. You help analyze code and suggest improvements."

	// DefaultUserTemplate is the per-call role. Only .FileName and .Content are available.
	DefaultUserTemplate = "Analyze the following code fragment from {{.FileName}} and suggest improvements:\n\n{{.Content}}"
)

// Prompt is a fully formed request payload
type Prompt struct {
	System string
	User   string
}

// Length returns the prompt size in characters across both roles
func (p Prompt) Length() int {
	return utf8.RuneCountInString(p.System) + utf8.RuneCountInString(p.User)
}

// Builder renders prompts from a fixed system text and a pre-parsed user template.
// Values are written as data, so template syntax inside file content is never executed.
type Builder struct {
	system string
	user   *template.Template
}

type fields struct {
	FileName string
	Content  string
}

// New creates a Builder. Empty arguments fall back to the defaults.
func New(system, userTemplate string) (*Builder, error) {
	if strings.TrimSpace(system) == "" {
		system = DefaultSystem
	}
	if strings.TrimSpace(userTemplate) == "" {
		userTemplate = DefaultUserTemplate
	}

	tmpl, err := template.New("user").Option("missingkey=error").Parse(userTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse user template: %w", err)
	}

	// Reject templates that reference anything but the two known fields
	if err := tmpl.Execute(&strings.Builder{}, fields{}); err != nil {
		return nil, fmt.Errorf("invalid user template: %w", err)
	}

	return &Builder{system: system, user: tmpl}, nil
}

// Default returns a Builder with the built-in wording
func Default() *Builder {
	b, err := New(DefaultSystem, DefaultUserTemplate)
	if err != nil {
		panic(err) // built-in template is known to parse
	}
	return b
}

// Build renders the prompt for one segment. It never fails.
func (b *Builder) Build(identifier, content string) Prompt {
	var user strings.Builder
	if err := b.user.Execute(&user, fields{FileName: identifier, Content: content}); err != nil {
		// Unreachable for a template validated in New; keep the call total anyway
		user.Reset()
		user.WriteString(identifier)
		user.WriteString("\n\n")
		user.WriteString(content)
	}

	return Prompt{System: b.system, User: user.String()}
}
