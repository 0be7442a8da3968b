package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aptomizer/core/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_USER", "aptomizer")
	t.Setenv("DB_NAME", "aptomizer")
	t.Setenv("ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PRICE_FETCH_TIMEOUT", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	require.NoError(t, LoadConfig())

	assert.Equal(t, 5432, DBPort)
	assert.Equal(t, "disable", DBSSLMode)
	assert.Equal(t, 3001, WebPort)
	assert.Equal(t, DefaultAptosNodeURL, AptosNodeURL)
	assert.Equal(t, DefaultJoulePositionsViewFunc, JoulePositionsViewFunction)
	assert.Equal(t, DefaultPriceFetchConcurrency, PriceFetchConcurrency)
	assert.Equal(t, 8*time.Second, PriceFetchTimeout)
	assert.Empty(t, AnthropicAPIKey)
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("WEB_PORT", "8080")
	t.Setenv("PRICE_FETCH_CONCURRENCY", "0")
	t.Setenv("TOKEN_LIST_TTL", "1m")

	require.NoError(t, LoadConfig())

	assert.Equal(t, 8080, WebPort)
	assert.Equal(t, 1, PriceFetchConcurrency, "concurrency is clamped to at least one")
	assert.Equal(t, time.Minute, TokenListTTL)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing encryption key",
			env:     map[string]string{"ENCRYPTION_KEY": ""},
			wantErr: "environment variable ENCRYPTION_KEY is required but not set",
		},
		{
			name:    "short encryption key",
			env:     map[string]string{"ENCRYPTION_KEY": "too-short"},
			wantErr: ErrEncryptionKeyTooShort.Error(),
		},
		{
			name:    "invalid port",
			env:     map[string]string{"DB_PORT": "five"},
			wantErr: "environment variable DB_PORT must be a valid int, got: five",
		},
		{
			name:    "invalid duration",
			env:     map[string]string{"PRICE_FETCH_TIMEOUT": "soon"},
			wantErr: "environment variable PRICE_FETCH_TIMEOUT must be a valid duration, got: soon",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			err := LoadConfig()
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestDefaultProtocolTable(t *testing.T) {
	table := MustDefaultProtocolTable()

	assert.Len(t, table.LiquidStaking, 3)
	assert.Len(t, table.Lending, 3)
	assert.Len(t, table.Liquidity, 3)
	assert.Len(t, table.Farming, 3)

	assert.Equal(t, types.ProtocolOption{
		Name: "Thala Labs", APY: 15.5, Protocol: "thalaLP", Risk: types.RiskMediumHigh,
		MinAmount: 5, Pairs: []string{"APT-USDC", "APT-tAPT"},
	}, table.Liquidity[1])
}

func TestLoadProtocolTableFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "protocols.yaml")
	content := "farming:\n  - { name: Custom, apy: 12, protocol: customFarm, risk: High, minAmount: 1 }\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	table, err := LoadProtocolTable(path)
	require.NoError(t, err)
	require.Len(t, table.Farming, 1)
	assert.Equal(t, "customFarm", table.Farming[0].Protocol)
	assert.Empty(t, table.LiquidStaking)
}

func TestParseProtocolTableRejectsInvalidOptions(t *testing.T) {
	_, err := ParseProtocolTable([]byte("{}"))
	assert.ErrorIs(t, err, ErrEmptyProtocolTable)

	_, err = ParseProtocolTable([]byte("lending:\n  - { name: X, apy: -1, protocol: x, risk: Extreme }\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative apy")
	assert.Contains(t, err.Error(), `unknown risk "Extreme"`)

	_, err = LoadProtocolTable(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
