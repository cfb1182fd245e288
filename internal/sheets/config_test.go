package sheets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func oauthConfig() Config {
	cfg := DefaultConfig()
	cfg.ClientID = "client-id"
	cfg.ClientSecret = "client-secret"
	cfg.RefreshToken = "refresh-token"
	cfg.SpreadsheetID = "sheet-id"
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		mutate  func(*Config)
		name    string
		wantErr string
	}{
		{
			name:   "valid oauth config",
			mutate: func(*Config) {},
		},
		{
			name: "valid service account config",
			mutate: func(c *Config) {
				c.ClientID = ""
				c.ClientSecret = ""
				c.RefreshToken = ""
				c.ServiceAccountPath = "/etc/expensesync/sa.json"
			},
		},
		{
			name: "no auth method",
			mutate: func(c *Config) {
				c.ClientID = ""
				c.ClientSecret = ""
				c.RefreshToken = ""
			},
			wantErr: "no authentication method",
		},
		{
			name: "both auth methods",
			mutate: func(c *Config) {
				c.ServiceAccountPath = "/etc/expensesync/sa.json"
			},
			wantErr: "multiple authentication methods",
		},
		{
			name:    "missing spreadsheet id",
			mutate:  func(c *Config) { c.SpreadsheetID = "" },
			wantErr: "spreadsheet ID is required",
		},
		{
			name:    "empty sheet name",
			mutate:  func(c *Config) { c.SheetName = "" },
			wantErr: "sheet name is required",
		},
		{
			name:    "negative retry attempts",
			mutate:  func(c *Config) { c.RetryAttempts = -1 },
			wantErr: "retry attempts cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := oauthConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GOOGLE_SHEETS_CLIENT_ID", "env-client")
	t.Setenv("GOOGLE_SHEETS_CLIENT_SECRET", "env-secret")
	t.Setenv("GOOGLE_SHEETS_REFRESH_TOKEN", "env-token")
	t.Setenv("GOOGLE_SHEETS_SPREADSHEET_ID", "env-sheet")
	t.Setenv("GOOGLE_SHEETS_SHEET_NAME", "Ledger")
	t.Setenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH", "")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "env-client", cfg.ClientID)
	assert.Equal(t, "env-sheet", cfg.SpreadsheetID)
	assert.Equal(t, "Ledger", cfg.SheetName)
}

func TestLoadFromEnv_MissingAuth(t *testing.T) {
	t.Setenv("GOOGLE_SHEETS_CLIENT_ID", "")
	t.Setenv("GOOGLE_SHEETS_CLIENT_SECRET", "")
	t.Setenv("GOOGLE_SHEETS_REFRESH_TOKEN", "")
	t.Setenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH", "")
	t.Setenv("GOOGLE_SHEETS_SPREADSHEET_ID", "env-sheet")

	cfg := DefaultConfig()
	require.Error(t, cfg.LoadFromEnv())
}

func TestExpenseRow(t *testing.T) {
	recordedAt := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

	row := expenseRow(testExpense(), recordedAt)

	require.Len(t, row, 7)
	assert.Equal(t, "2024-12-06", row[0])
	assert.Equal(t, "Amazon", row[1])
	assert.InDelta(t, 29.99, row[2].(float64), 0.001)
	assert.Equal(t, "EUR", row[3])
	assert.Equal(t, "tecnologia", row[4])
	assert.Equal(t, "2025-01-15T10:30:00Z", row[6])
}
