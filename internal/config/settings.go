package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/expensesync/expensesync/internal/engine"
	"github.com/expensesync/expensesync/internal/llm"
	"github.com/expensesync/expensesync/internal/mcp"
	"github.com/expensesync/expensesync/internal/server"
)

// SetDefaults registers the service defaults with Viper. Called once from
// command initialization before any Load function.
func SetDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 120*time.Second)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)

	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.temperature", 0.0)
	viper.SetDefault("llm.max_tokens", 1024)
	viper.SetDefault("llm.rate_limit", 60)
	viper.SetDefault("llm.timeout", 30*time.Second)

	viper.SetDefault("engine.max_attempts", 3)

	viper.SetDefault("recorder.kind", "mcp")

	viper.SetDefault("mcp.server_url", "http://localhost:8080/sse")
	viper.SetDefault("mcp.call_timeout", 30*time.Second)
}

// LoadLLMConfig loads the language-model client configuration.
func LoadLLMConfig() llm.Config {
	return llm.Config{
		Provider:    viper.GetString("llm.provider"),
		APIKey:      viper.GetString("llm.api_key"),
		Model:       viper.GetString("llm.model"),
		BaseURL:     viper.GetString("llm.base_url"),
		Temperature: viper.GetFloat64("llm.temperature"),
		MaxTokens:   viper.GetInt("llm.max_tokens"),
		RateLimit:   viper.GetInt("llm.rate_limit"),
		Timeout:     viper.GetDuration("llm.timeout"),
	}
}

// LoadMCPConfig loads the MCP client configuration.
func LoadMCPConfig() mcp.Config {
	return mcp.Config{
		ServerURL:   viper.GetString("mcp.server_url"),
		CallTimeout: viper.GetDuration("mcp.call_timeout"),
	}
}

// LoadEngineConfig loads the processing engine configuration.
func LoadEngineConfig() engine.Config {
	return engine.Config{
		MaxAttempts: viper.GetInt("engine.max_attempts"),
	}
}

// RecorderKind returns which persistence backend to use: "mcp", "sheets",
// or "none".
func RecorderKind() string {
	return viper.GetString("recorder.kind")
}

// LoadServerConfig loads the HTTP server configuration.
func LoadServerConfig() server.Config {
	return server.Config{
		Host:            viper.GetString("server.host"),
		Port:            viper.GetInt("server.port"),
		ReadTimeout:     viper.GetDuration("server.read_timeout"),
		WriteTimeout:    viper.GetDuration("server.write_timeout"),
		ShutdownTimeout: viper.GetDuration("server.shutdown_timeout"),
	}
}
