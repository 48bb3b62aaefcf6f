package llm

import (
	"context"
	"fmt"
	"strings"
)

const (
	ProviderVertex = "vertex"
	ProviderOpenAI = "openai"

	DefaultRegion      = "us-central1"
	DefaultTemperature = 0.1
	DefaultMaxTokens   = 1024
)

// Completer sends a single-turn prompt to a language model and returns the
// raw text it produced.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Provider() string
	Model() string
}

type Config struct {
	Provider        string
	ProjectID       string
	Region          string
	CredentialsFile string
	APIKey          string
	BaseURL         string
	Model           string
	Temperature     float64
	MaxTokens       int
}

// New builds the completer for cfg.Provider. Missing credentials or
// identifiers fail here, before any prompt is sent.
func New(ctx context.Context, cfg Config) (Completer, error) {
	cfg = withDefaults(cfg)
	switch cfg.Provider {
	case ProviderVertex:
		return NewVertex(ctx, cfg)
	case ProviderOpenAI:
		return NewOpenAI(cfg)
	default:
		return nil, &ConfigError{Provider: cfg.Provider, Field: "provider", Reason: fmt.Sprintf("unsupported provider %q (want %q or %q)", cfg.Provider, ProviderVertex, ProviderOpenAI)}
	}
}

func withDefaults(cfg Config) Config {
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	cfg.ProjectID = strings.TrimSpace(cfg.ProjectID)
	cfg.Region = strings.TrimSpace(cfg.Region)
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	return cfg
}
