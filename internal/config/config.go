// Package config loads gocontext-review settings from defaults, a YAML file
// and the environment. Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/gocontext-review/internal/analyzer"
	"github.com/dshills/gocontext-review/internal/chunker"
	"github.com/dshills/gocontext-review/internal/loader"
	"github.com/dshills/gocontext-review/internal/prompt"
	"github.com/dshills/gocontext-review/internal/sink"
)

// ErrInvalidConfig is returned by Validate
var ErrInvalidConfig = errors.New("invalid configuration")

// Environment variables
const (
	EnvProvider = "GOCONTEXT_REVIEW_PROVIDER"
	EnvModel    = "GOCONTEXT_REVIEW_MODEL"
	EnvDBPath   = "GOCONTEXT_REVIEW_DB_PATH"
	EnvGroqKey  = "GROQ_API_KEY"
	EnvOpenAI   = "OPENAI_API_KEY"
	EnvGemini   = "GEMINI_API_KEY"
)

// Config holds all settings of a run
type Config struct {
	// Input
	Root          string   `yaml:"root"`
	Extensions    []string `yaml:"extensions,omitempty"` // Empty loads every file
	IncludeHidden bool     `yaml:"include_hidden"`

	// Segmentation
	MaxSize       int    `yaml:"max_size"`
	Overlap       int    `yaml:"overlap"`
	Policy        string `yaml:"policy"`
	LanguageAware bool   `yaml:"language_aware"`

	// Analysis
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	CallTimeout string `yaml:"call_timeout"`
	MaxRetries  int    `yaml:"max_retries"`
	MaxTokens   int    `yaml:"max_tokens"`
	Workers     int    `yaml:"workers"`

	// Prompt overrides; empty keeps the built-in prompt
	SystemPrompt string `yaml:"system_prompt"`
	UserTemplate string `yaml:"user_template"`

	// Output
	Output     string `yaml:"output"`
	LedgerPath string `yaml:"ledger_path"`
	Verbose    bool   `yaml:"verbose"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Root:        ".",
		MaxSize:     chunker.DefaultMaxSize,
		Overlap:     chunker.DefaultOverlap,
		Policy:      chunker.TextPolicy.Name,
		Provider:    analyzer.ProviderGroq,
		CallTimeout: "60s",
		MaxRetries:  analyzer.MaxRetries,
		MaxTokens:   analyzer.DefaultMaxTokens,
		Workers:     1,
		Output:      sink.DefaultDestination,
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path, or a path that does not exist, yields defaults plus
// environment.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Defaults
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() {
	if p := os.Getenv(EnvProvider); p != "" {
		c.Provider = p
	}
	if m := os.Getenv(EnvModel); m != "" {
		c.Model = m
	}
	if path := os.Getenv(EnvDBPath); path != "" {
		c.LedgerPath = path
	}

	c.ResolveAPIKey()
}

// ResolveAPIKey fills an empty APIKey from the environment variable of the
// selected provider. Call it again after changing Provider.
func (c *Config) ResolveAPIKey() {
	if c.APIKey != "" {
		return
	}
	if env := APIKeyEnv(c.Provider); env != "" {
		c.APIKey = os.Getenv(env)
	}
}

// APIKeyEnv returns the environment variable holding the provider's key
func APIKeyEnv(provider string) string {
	switch strings.ToLower(provider) {
	case analyzer.ProviderGroq, "":
		return EnvGroqKey
	case analyzer.ProviderOpenAI:
		return EnvOpenAI
	case analyzer.ProviderGemini:
		return EnvGemini
	default:
		return ""
	}
}

// GetCallTimeout returns the per-call timeout as a duration
func (c *Config) GetCallTimeout() time.Duration {
	d, err := time.ParseDuration(c.CallTimeout)
	if err != nil {
		return analyzer.DefaultHTTPTimeout
	}
	return d
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Root) == "" {
		errs = append(errs, errors.New("root is required"))
	}
	if c.MaxSize <= 0 {
		errs = append(errs, fmt.Errorf("max_size must be positive, got %d", c.MaxSize))
	}
	if c.Overlap < 0 {
		errs = append(errs, fmt.Errorf("overlap must not be negative, got %d", c.Overlap))
	}
	if c.MaxSize > 0 && c.Overlap >= c.MaxSize {
		errs = append(errs, fmt.Errorf("overlap (%d) must be less than max_size (%d)", c.Overlap, c.MaxSize))
	}
	if _, ok := chunker.PolicyByName(c.Policy); !ok {
		errs = append(errs, fmt.Errorf("unknown policy %q", c.Policy))
	}

	if !analyzer.KnownProvider(c.Provider) {
		errs = append(errs, fmt.Errorf("unknown provider %q", c.Provider))
	} else if analyzer.RequiresAPIKey(c.Provider) && c.APIKey == "" {
		errs = append(errs, fmt.Errorf("API key not configured for %s (set %s or api_key)", c.Provider, APIKeyEnv(c.Provider)))
	}

	if c.CallTimeout != "" {
		if d, err := time.ParseDuration(c.CallTimeout); err != nil {
			errs = append(errs, fmt.Errorf("call_timeout: %w", err))
		} else if d < 0 {
			errs = append(errs, fmt.Errorf("call_timeout must not be negative, got %s", d))
		}
	}
	if c.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("max_retries must be at least 1, got %d", c.MaxRetries))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if strings.TrimSpace(c.Output) == "" {
		errs = append(errs, errors.New("output is required"))
	}
	if _, err := prompt.New(c.SystemPrompt, c.UserTemplate); err != nil {
		errs = append(errs, fmt.Errorf("user_template: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// AnalyzerConfig converts the settings for analyzer.New
func (c *Config) AnalyzerConfig() analyzer.Config {
	retry := analyzer.DefaultRetryConfig()
	retry.MaxRetries = c.MaxRetries

	return analyzer.Config{
		Provider:    strings.ToLower(c.Provider),
		APIKey:      c.APIKey,
		Model:       c.Model,
		BaseURL:     c.BaseURL,
		HTTPTimeout: c.GetCallTimeout(),
		MaxTokens:   c.MaxTokens,
		Retry:       retry,
	}
}

// ChunkerOptions converts the settings for chunker.New
func (c *Config) ChunkerOptions() chunker.Options {
	policy, _ := chunker.PolicyByName(c.Policy)
	return chunker.Options{
		MaxSize:       c.MaxSize,
		Overlap:       c.Overlap,
		Policy:        policy,
		LanguageAware: c.LanguageAware,
	}
}

// LoaderOptions converts the settings for loader.New
func (c *Config) LoaderOptions() loader.Options {
	return loader.Options{
		Extensions:    c.Extensions,
		IncludeHidden: c.IncludeHidden,
	}
}

// PromptBuilder builds the prompt builder; empty overrides keep the built-in wording
func (c *Config) PromptBuilder() (*prompt.Builder, error) {
	b, err := prompt.New(c.SystemPrompt, c.UserTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return b, nil
}
