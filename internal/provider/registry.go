// Package provider holds the static registry of language-model providers.
// Adding a provider here is all that is needed to make it selectable for
// any role; no other code changes.
package provider

import (
	"fmt"
	"os"
	"sort"
)

// Kind identifies the wire protocol a provider speaks.
type Kind string

// Provider protocol kinds.
const (
	// KindOpenAI covers every provider exposing an OpenAI-compatible
	// chat-completions endpoint, which is most of them.
	KindOpenAI Kind = "openai"
	// KindAnthropic is the native Anthropic messages API.
	KindAnthropic Kind = "anthropic"
)

// Config describes how to reach a single provider.
type Config struct {
	ModelName    string
	BaseURL      string
	APIKeyEnvVar string
	Kind         Kind
}

// registry maps provider names to connection parameters.
var registry = map[string]Config{
	"openai": {
		ModelName:    "gpt-4o-mini",
		BaseURL:      "https://api.openai.com/v1",
		APIKeyEnvVar: "OPENAI_API_KEY",
		Kind:         KindOpenAI,
	},
	"openai-gpt4": {
		ModelName:    "gpt-4o",
		BaseURL:      "https://api.openai.com/v1",
		APIKeyEnvVar: "OPENAI_API_KEY",
		Kind:         KindOpenAI,
	},
	"gemini": {
		ModelName:    "gemini-2.5-flash",
		BaseURL:      "https://generativelanguage.googleapis.com/v1beta/openai",
		APIKeyEnvVar: "GOOGLE_API_KEY",
		Kind:         KindOpenAI,
	},
	"deepseek": {
		ModelName:    "deepseek-chat",
		BaseURL:      "https://api.deepseek.com/v1",
		APIKeyEnvVar: "DEEPSEEK_API_KEY",
		Kind:         KindOpenAI,
	},
	"groq": {
		ModelName:    "llama-3.3-70b-versatile",
		BaseURL:      "https://api.groq.com/openai/v1",
		APIKeyEnvVar: "GROQ_API_KEY",
		Kind:         KindOpenAI,
	},
	"groq-fast": {
		ModelName:    "llama-3.1-8b-instant",
		BaseURL:      "https://api.groq.com/openai/v1",
		APIKeyEnvVar: "GROQ_API_KEY",
		Kind:         KindOpenAI,
	},
	"anthropic": {
		ModelName:    "claude-3-5-haiku-latest",
		BaseURL:      "https://api.anthropic.com",
		APIKeyEnvVar: "ANTHROPIC_API_KEY",
		Kind:         KindAnthropic,
	},
}

// Lookup returns the configuration for a provider name.
func Lookup(name string) (Config, error) {
	cfg, ok := registry[name]
	if !ok {
		return Config{}, fmt.Errorf("unknown LLM provider: %s", name)
	}
	return cfg, nil
}

// Names returns all registered provider names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Configured reports whether the provider's API key is set in the
// environment.
func Configured(name string) bool {
	cfg, ok := registry[name]
	if !ok {
		return false
	}
	return os.Getenv(cfg.APIKeyEnvVar) != ""
}

// APIKey returns the provider's API key from the environment, or an error
// if it is missing.
func APIKey(cfg Config) (string, error) {
	key := os.Getenv(cfg.APIKeyEnvVar)
	if key == "" {
		return "", fmt.Errorf("API key not set (env var: %s)", cfg.APIKeyEnvVar)
	}
	return key, nil
}
