package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name       string
		provider   string
		wantModel  string
		wantEnvVar string
		wantKind   Kind
		wantErr    bool
	}{
		{name: "openai", provider: "openai", wantModel: "gpt-4o-mini", wantEnvVar: "OPENAI_API_KEY", wantKind: KindOpenAI},
		{name: "groq shares key env with groq-fast", provider: "groq-fast", wantModel: "llama-3.1-8b-instant", wantEnvVar: "GROQ_API_KEY", wantKind: KindOpenAI},
		{name: "anthropic uses native protocol", provider: "anthropic", wantModel: "claude-3-5-haiku-latest", wantEnvVar: "ANTHROPIC_API_KEY", wantKind: KindAnthropic},
		{name: "unknown provider", provider: "llamafile", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Lookup(tt.provider)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, cfg.ModelName)
			assert.Equal(t, tt.wantEnvVar, cfg.APIKeyEnvVar)
			assert.Equal(t, tt.wantKind, cfg.Kind)
			assert.NotEmpty(t, cfg.BaseURL)
		})
	}
}

func TestNames(t *testing.T) {
	names := Names()

	assert.IsIncreasing(t, names)
	assert.Contains(t, names, "openai")
	assert.Contains(t, names, "gemini")
	assert.Contains(t, names, "deepseek")
	assert.Contains(t, names, "groq")
}

func TestConfigured(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "sk-test")

	assert.True(t, Configured("deepseek"))
	assert.False(t, Configured("unknown-provider"))
}

func TestAPIKey(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk-test")

	cfg, err := Lookup("groq")
	require.NoError(t, err)

	key, err := APIKey(cfg)
	require.NoError(t, err)
	assert.Equal(t, "gsk-test", key)

	missing := Config{APIKeyEnvVar: "EXPENSESYNC_TEST_UNSET_KEY"}
	_, err = APIKey(missing)
	require.Error(t, err)
}
