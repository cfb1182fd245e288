// Package llm implements clients for language-model providers and the
// expense extraction step built on top of them.
package llm

import (
	"fmt"
	"time"

	"github.com/expensesync/expensesync/internal/provider"
)

// Config holds configuration for an LLM client.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	RateLimit   int
	Timeout     time.Duration
}

// NewClient creates an LLM client for the named provider from the registry.
// The API key is read from the provider's configured environment variable
// unless cfg.APIKey is already set.
func NewClient(cfg Config) (Client, error) {
	pcfg, err := provider.Lookup(cfg.Provider)
	if err != nil {
		return nil, err
	}

	if cfg.APIKey == "" {
		key, keyErr := provider.APIKey(pcfg)
		if keyErr != nil {
			return nil, fmt.Errorf("provider %s: %w", cfg.Provider, keyErr)
		}
		cfg.APIKey = key
	}
	if cfg.Model == "" {
		cfg.Model = pcfg.ModelName
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = pcfg.BaseURL
	}

	switch pcfg.Kind {
	case provider.KindAnthropic:
		return newAnthropicClient(cfg)
	case provider.KindOpenAI:
		return newOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider kind: %s", pcfg.Kind)
	}
}
