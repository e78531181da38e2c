package store

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Mode           string   `yaml:"mode"`
	PollSeconds    int      `yaml:"poll_seconds"`
	Universe       []string `yaml:"universe"`
	AccountBalance float64  `yaml:"account_balance"`
	Strategy       string   `yaml:"strategy"`
	Risk           struct {
		MaxPositionSize float64 `yaml:"max_position_size"`
		MaxDailyLoss    float64 `yaml:"max_daily_loss"`
		MaxTradesPerDay int     `yaml:"max_trades_per_day"`
		StopLossPct     float64 `yaml:"stop_loss_pct"`
		TakeProfitPct   float64 `yaml:"take_profit_pct"`
		RiskPerTrade    float64 `yaml:"risk_per_trade"`
	} `yaml:"risk"`
	Execution struct {
		LotSize                float64 `yaml:"lot_size"`
		OrderTimeoutSeconds    int     `yaml:"order_timeout_seconds"`
		SnapshotTimeoutSeconds int     `yaml:"snapshot_timeout_seconds"`
		MaxConcurrency         int     `yaml:"max_concurrency"`
	} `yaml:"execution"`
	Filters struct {
		MaxVolatility           float64 `yaml:"max_volatility"`
		MinVolume               float64 `yaml:"min_volume"`
		MaxSpread               float64 `yaml:"max_spread"`
		MinTradeIntervalSeconds int     `yaml:"min_trade_interval_seconds"`
	} `yaml:"filters"`
	Reporting struct {
		PerformanceIntervalSeconds int    `yaml:"performance_interval_seconds"`
		EODEnabled                 bool   `yaml:"eod_enabled"`
		LogRetentionDays           int    `yaml:"log_retention_days"`
		LogDir                     string `yaml:"log_dir"`
	} `yaml:"reporting"`
	Notifications struct {
		TelegramEnabled bool `yaml:"telegram_enabled"`
	} `yaml:"notifications"`
	Metrics struct {
		Enabled    bool   `yaml:"enabled"`
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"metrics"`
	Events struct {
		RedisEnabled bool   `yaml:"redis_enabled"`
		RedisAddr    string `yaml:"redis_addr"`
		RedisDB      int    `yaml:"redis_db"`
		RedisChannel string `yaml:"redis_channel"`
	} `yaml:"events"`
	Paper struct {
		Seed        int64              `yaml:"seed"`
		BasePrices  map[string]float64 `yaml:"base_prices"`
		FailureRate float64            `yaml:"failure_rate"`
		StepPct     float64            `yaml:"step_pct"`
	} `yaml:"paper"`
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if len(c.Universe) == 0 {
		return errors.New("universe cannot be empty")
	}
	if c.PollSeconds <= 0 {
		return fmt.Errorf("poll_seconds must be positive, got %d", c.PollSeconds)
	}
	if c.Risk.MaxPositionSize <= 0 {
		return fmt.Errorf("risk.max_position_size must be positive, got %.2f", c.Risk.MaxPositionSize)
	}
	if c.Risk.MaxDailyLoss <= 0 {
		return fmt.Errorf("risk.max_daily_loss must be positive, got %.2f", c.Risk.MaxDailyLoss)
	}
	if c.Risk.MaxTradesPerDay <= 0 {
		return fmt.Errorf("risk.max_trades_per_day must be positive, got %d", c.Risk.MaxTradesPerDay)
	}
	if c.Risk.StopLossPct <= 0 || c.Risk.StopLossPct >= 100 {
		return fmt.Errorf("risk.stop_loss_pct must be between 0-100, got %.2f", c.Risk.StopLossPct)
	}
	if c.Risk.TakeProfitPct <= 0 {
		return fmt.Errorf("risk.take_profit_pct must be positive, got %.2f", c.Risk.TakeProfitPct)
	}
	if c.Risk.RiskPerTrade <= 0 || c.Risk.RiskPerTrade > 1 {
		return fmt.Errorf("risk.risk_per_trade must be a fraction in (0,1], got %.4f", c.Risk.RiskPerTrade)
	}
	if c.Execution.LotSize <= 0 {
		return fmt.Errorf("execution.lot_size must be positive, got %v", c.Execution.LotSize)
	}
	if c.Paper.FailureRate < 0 || c.Paper.FailureRate > 1 {
		return fmt.Errorf("paper.failure_rate must be between 0-1, got %.2f", c.Paper.FailureRate)
	}
	if c.Events.RedisEnabled && c.Events.RedisAddr == "" {
		return errors.New("events.redis_addr is required when redis_enabled is set")
	}
	return nil
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollSeconds) * time.Second
}

func (c *Config) OrderTimeout() time.Duration {
	return time.Duration(c.Execution.OrderTimeoutSeconds) * time.Second
}

func (c *Config) SnapshotTimeout() time.Duration {
	return time.Duration(c.Execution.SnapshotTimeoutSeconds) * time.Second
}

func (c *Config) MinTradeInterval() time.Duration {
	return time.Duration(c.Filters.MinTradeIntervalSeconds) * time.Second
}

func (c *Config) PerformanceInterval() time.Duration {
	return time.Duration(c.Reporting.PerformanceIntervalSeconds) * time.Second
}

// ApplyDefaults fills zero values with the stock limits.
func (c *Config) ApplyDefaults() {
	if c.Mode == "" {
		c.Mode = "DRY_RUN"
	}
	if c.PollSeconds == 0 {
		c.PollSeconds = 60
	}
	if len(c.Universe) == 0 {
		c.Universe = []string{"BTC-USDT", "ETH-USDT"}
	}
	if c.AccountBalance == 0 {
		c.AccountBalance = 1000
	}
	if c.Strategy == "" {
		c.Strategy = "majority"
	}
	if c.Risk.MaxPositionSize == 0 {
		c.Risk.MaxPositionSize = 100
	}
	if c.Risk.MaxDailyLoss == 0 {
		c.Risk.MaxDailyLoss = 50
	}
	if c.Risk.MaxTradesPerDay == 0 {
		c.Risk.MaxTradesPerDay = 10
	}
	if c.Risk.StopLossPct == 0 {
		c.Risk.StopLossPct = 2
	}
	if c.Risk.TakeProfitPct == 0 {
		c.Risk.TakeProfitPct = 4
	}
	if c.Risk.RiskPerTrade == 0 {
		c.Risk.RiskPerTrade = 0.02
	}
	if c.Execution.LotSize == 0 {
		c.Execution.LotSize = 0.000001
	}
	if c.Execution.OrderTimeoutSeconds == 0 {
		c.Execution.OrderTimeoutSeconds = 10
	}
	if c.Execution.SnapshotTimeoutSeconds == 0 {
		c.Execution.SnapshotTimeoutSeconds = 10
	}
	if c.Reporting.PerformanceIntervalSeconds == 0 {
		c.Reporting.PerformanceIntervalSeconds = 3600
	}
	if c.Paper.StepPct == 0 {
		c.Paper.StepPct = 0.5
	}
	if c.Reporting.LogDir == "" {
		c.Reporting.LogDir = "logs"
	}
	if v := os.Getenv("TRADER_LOG_DIR"); v != "" {
		c.Reporting.LogDir = v
	}
	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = ":9100"
	}
	if c.Events.RedisChannel == "" {
		c.Events.RedisChannel = "spot-trading-bot:events"
	}
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(b)
}

func ParseConfig(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	c.ApplyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}
