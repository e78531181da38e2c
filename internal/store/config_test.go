package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigDefaults(t *testing.T) {
	t.Setenv("TRADER_LOG_DIR", "")
	cfg, err := ParseConfig([]byte("mode: DRY_RUN\n"))
	require.NoError(t, err)

	assert.Equal(t, 60*time.Second, cfg.PollInterval())
	assert.Equal(t, []string{"BTC-USDT", "ETH-USDT"}, cfg.Universe)
	assert.Equal(t, 100.0, cfg.Risk.MaxPositionSize)
	assert.Equal(t, 10, cfg.Risk.MaxTradesPerDay)
	assert.Equal(t, 2.0, cfg.Risk.StopLossPct)
	assert.Equal(t, 4.0, cfg.Risk.TakeProfitPct)
	assert.Equal(t, 0.02, cfg.Risk.RiskPerTrade)
	assert.Equal(t, 0.000001, cfg.Execution.LotSize)
	assert.Equal(t, 10*time.Second, cfg.OrderTimeout())
	assert.Equal(t, time.Hour, cfg.PerformanceInterval())
	assert.Equal(t, "majority", cfg.Strategy)
	assert.Equal(t, "logs", cfg.Reporting.LogDir)
	assert.Equal(t, 0.5, cfg.Paper.StepPct)
}

func TestLogDirFromEnv(t *testing.T) {
	t.Setenv("TRADER_LOG_DIR", "/var/log/bot")
	cfg, err := ParseConfig([]byte("reporting:\n  log_dir: ignored\n"))
	require.NoError(t, err)
	assert.Equal(t, "/var/log/bot", cfg.Reporting.LogDir)
}

func TestParseConfigOverrides(t *testing.T) {
	raw := `
mode: LIVE
poll_seconds: 5
universe: [SOL-USDT]
risk:
  max_position_size: 250
  max_daily_loss: 20
  max_trades_per_day: 3
  stop_loss_pct: 1.5
  take_profit_pct: 3
filters:
  max_volatility: 0.05
  min_trade_interval_seconds: 300
paper:
  failure_rate: 0.1
  base_prices:
    SOL-USDT: 150
`
	cfg, err := ParseConfig([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, "LIVE", cfg.Mode)
	assert.Equal(t, 5*time.Second, cfg.PollInterval())
	assert.Equal(t, []string{"SOL-USDT"}, cfg.Universe)
	assert.Equal(t, 250.0, cfg.Risk.MaxPositionSize)
	assert.Equal(t, 3, cfg.Risk.MaxTradesPerDay)
	assert.Equal(t, 5*time.Minute, cfg.MinTradeInterval())
	assert.Equal(t, 150.0, cfg.Paper.BasePrices["SOL-USDT"])
}

func TestParseConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"bad mode", "mode: PAPER\n"},
		{"stop loss over 100", "risk:\n  stop_loss_pct: 150\n"},
		{"risk per trade above one", "risk:\n  risk_per_trade: 2\n"},
		{"failure rate", "paper:\n  failure_rate: 1.5\n"},
		{"redis without addr", "events:\n  redis_enabled: true\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: DRY_RUN\nuniverse: [BTC-USDT]\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC-USDT"}, cfg.Universe)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
