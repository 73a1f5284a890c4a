package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, LLMProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, "5m", cfg.Pipeline.RunBudget)
	assert.Equal(t, 3, cfg.Pipeline.MaxRetries)
	assert.False(t, cfg.Market.Enabled)
	assert.Equal(t, "NSE", cfg.Market.Exchange)
	assert.Equal(t, 10, cfg.Market.RateLimit)
	assert.False(t, cfg.Scheduler.Enabled)
}

func TestLLMProviderString(t *testing.T) {
	assert.Equal(t, "gemini", LLMProviderGemini.String())
	assert.Equal(t, "claude", LLMProviderClaude.String())
	assert.Equal(t, "mock", LLMProviderMock.String())
}

func TestLoadFromFiles_LaterFilesOverride(t *testing.T) {
	base := writeConfigFile(t, "base.toml", `
[server]
port = 9000

[logging]
level = "debug"
`)
	local := writeConfigFile(t, "local.toml", `
[server]
port = 9100
`)

	cfg, err := LoadFromFiles(base, local)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port, "later file wins")
	assert.Equal(t, "debug", cfg.Logging.Level, "earlier file settings survive")
	assert.Equal(t, "localhost", cfg.Server.Host, "untouched settings keep defaults")
}

func TestLoadFromFiles_MissingFileIsAnError(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadFromFiles_MalformedFileIsAnError(t *testing.T) {
	bad := writeConfigFile(t, "bad.toml", `server = "not a table`)
	_, err := LoadFromFiles(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadFromFiles_EnvOverridesFiles(t *testing.T) {
	file := writeConfigFile(t, "augur.toml", `
[server]
port = 9000
`)
	t.Setenv("AUGUR_SERVER_PORT", "9999")
	t.Setenv("AUGUR_LOG_OUTPUT", "stdout, file")

	cfg, err := LoadFromFiles(file)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, []string{"stdout", "file"}, cfg.Logging.Output)
}

func TestLoadFromFiles_MarketAndRefreshes(t *testing.T) {
	file := writeConfigFile(t, "augur.toml", `
[market]
enabled = true
api_key = "demo"
exchange = "BSE"

[scheduler]
enabled = true

[[scheduler.refreshes]]
ticker = "TCS"
quarters = 4
sources = ["https://example.com/q1.pdf"]
include_market = true
schedule = "0 0 6 * * 1"
`)

	cfg, err := LoadFromFiles(file)
	require.NoError(t, err)

	assert.True(t, cfg.Market.Enabled)
	assert.Equal(t, "BSE", cfg.Market.Exchange)
	assert.Equal(t, 10, cfg.Market.RateLimit, "unset rate limit keeps its default")

	require.Len(t, cfg.Scheduler.Refreshes, 1)
	entry := cfg.Scheduler.Refreshes[0]
	assert.Equal(t, "TCS", entry.Ticker)
	assert.True(t, entry.IncludeMarket)
	assert.NoError(t, ValidateSchedule(entry.Schedule))
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := NewDefaultConfig()

	ApplyFlagOverrides(cfg, 0, "")
	assert.Equal(t, 8080, cfg.Server.Port, "zero port leaves config untouched")

	ApplyFlagOverrides(cfg, 7070, "0.0.0.0")
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestResolveAPIKey(t *testing.T) {
	t.Run("environment wins over config", func(t *testing.T) {
		t.Setenv("AUGUR_EODHD_API_KEY", "from-env")
		key, err := ResolveAPIKey("eodhd_api_key", "from-config")
		require.NoError(t, err)
		assert.Equal(t, "from-env", key)
	})

	t.Run("falls back to config value", func(t *testing.T) {
		t.Setenv("AUGUR_EODHD_API_KEY", "")
		t.Setenv("EODHD_API_KEY", "")
		key, err := ResolveAPIKey("eodhd_api_key", "from-config")
		require.NoError(t, err)
		assert.Equal(t, "from-config", key)
	})

	t.Run("errors when nothing is set", func(t *testing.T) {
		t.Setenv("AUGUR_EODHD_API_KEY", "")
		t.Setenv("EODHD_API_KEY", "")
		_, err := ResolveAPIKey("eodhd_api_key", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "eodhd_api_key")
	})
}

func TestParseDurationOr(t *testing.T) {
	fallback := 42 * time.Second

	assert.Equal(t, fallback, ParseDurationOr("", fallback))
	assert.Equal(t, fallback, ParseDurationOr("bogus", fallback))
	assert.Equal(t, 90*time.Second, ParseDurationOr("90s", fallback))
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("0 0 3 * * *"))
	assert.NoError(t, ValidateSchedule("*/30 * * * * *"))
	assert.Error(t, ValidateSchedule(""))
	assert.Error(t, ValidateSchedule("not-cron"))
}

func TestIsProduction(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.False(t, cfg.IsProduction())

	cfg.Environment = "production"
	assert.True(t, cfg.IsProduction())

	cfg.Environment = " PROD "
	assert.True(t, cfg.IsProduction())
}
