package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"PORT", "DB_PATH", "TICKERS_FILE", "TELEGRAM_BOT_TOKEN", "WEBHOOK_PUBLIC_URL",
	"OPENAI_API_KEY", "OPENAI_MODEL", "MARKET_SUFFIX", "BENCHMARK_SYMBOL", "BENCHMARK_LABEL",
	"CURRENCY_SYMBOL", "DEFAULT_START", "FETCH_TIMEOUT", "CHART_CACHE_TTL", "LOG_LEVEL", "LOG_FORMAT",
}

// clearEnv blanks every key for the test; blank values fall back to defaults.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "9095", cfg.Port)
	assert.Equal(t, ".SA", cfg.MarketSuffix)
	assert.Equal(t, "^BVSP", cfg.BenchmarkSymbol)
	assert.Equal(t, time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), cfg.DefaultStart)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 60*time.Second, cfg.ChartCacheTTL)
	assert.False(t, cfg.BotEnabled())
}

func TestOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("BENCHMARK_SYMBOL", "^GSPC")
	t.Setenv("BENCHMARK_LABEL", "S&P 500")
	t.Setenv("DEFAULT_START", "2020-03-16")
	t.Setenv("FETCH_TIMEOUT", "5s")
	t.Setenv("CHART_CACHE_TTL", "120")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("WEBHOOK_PUBLIC_URL", "https://example.com/telegram/webhook")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "^GSPC", cfg.BenchmarkSymbol)
	assert.Equal(t, "S&P 500", cfg.BenchmarkLabel)
	assert.Equal(t, time.Date(2020, 3, 16, 0, 0, 0, 0, time.UTC), cfg.DefaultStart)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 2*time.Minute, cfg.ChartCacheTTL)
	assert.True(t, cfg.BotEnabled())
}

func TestInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"token without webhook", map[string]string{"TELEGRAM_BOT_TOKEN": "123:abc"}},
		{"bad start", map[string]string{"DEFAULT_START": "02/01/2023"}},
		{"bad timeout", map[string]string{"FETCH_TIMEOUT": "soon"}},
		{"zero timeout", map[string]string{"FETCH_TIMEOUT": "0s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
