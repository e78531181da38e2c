package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"spot-trading-bot/internal/interfaces"
	"spot-trading-bot/internal/store"
	"spot-trading-bot/internal/types"
)

type Option func(*engine)

func WithObserver(o interfaces.Observer) Option {
	return func(e *engine) {
		if o != nil {
			e.observer = o
		}
	}
}

func WithNotifier(n interfaces.Notifier) Option {
	return func(e *engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

// WithEOD runs s for the finished day at every UTC rollover.
func WithEOD(s interfaces.EodSummarizer) Option {
	return func(e *engine) { e.eod = s }
}

func WithClock(now func() time.Time) Option {
	return func(e *engine) { e.now = now }
}

func New(cfg *store.Config, md interfaces.MarketData, exec interfaces.Executor, strat interfaces.Strategy, opts ...Option) interfaces.Engine {
	return newEngine(SettingsFromConfig(cfg), md, exec, strat, opts...)
}

func NewWithSettings(s Settings, md interfaces.MarketData, exec interfaces.Executor, strat interfaces.Strategy, opts ...Option) interfaces.Engine {
	return newEngine(s, md, exec, strat, opts...)
}

func SettingsFromConfig(cfg *store.Config) Settings {
	return Settings{
		Symbols:        append([]string(nil), cfg.Universe...),
		AccountBalance: decimal.NewFromFloat(cfg.AccountBalance),
		RiskPerTrade:   decimal.NewFromFloat(cfg.Risk.RiskPerTrade),
		Limits: RiskLimits{
			MaxPositionSize: decimal.NewFromFloat(cfg.Risk.MaxPositionSize),
			MaxDailyLoss:    decimal.NewFromFloat(cfg.Risk.MaxDailyLoss),
			MaxTradesPerDay: cfg.Risk.MaxTradesPerDay,
			StopLossPct:     decimal.NewFromFloat(cfg.Risk.StopLossPct),
			TakeProfitPct:   decimal.NewFromFloat(cfg.Risk.TakeProfitPct),
		},
		LotSize:             decimal.NewFromFloat(cfg.Execution.LotSize),
		OrderTimeout:        cfg.OrderTimeout(),
		SnapshotTimeout:     cfg.SnapshotTimeout(),
		MaxConcurrency:      cfg.Execution.MaxConcurrency,
		MaxVolatility:       decimal.NewFromFloat(cfg.Filters.MaxVolatility),
		MinVolume:           decimal.NewFromFloat(cfg.Filters.MinVolume),
		MaxSpread:           decimal.NewFromFloat(cfg.Filters.MaxSpread),
		MinTradeInterval:    cfg.MinTradeInterval(),
		PerformanceInterval: cfg.PerformanceInterval(),
	}
}

type nopObserver struct{}

func (nopObserver) OnMarketUpdate(context.Context, types.MarketUpdate)        {}
func (nopObserver) OnPositionUpdate(context.Context, string, *types.Position) {}
func (nopObserver) OnTrade(context.Context, types.TradeRecord)                {}
func (nopObserver) OnPerformance(context.Context, types.PerformanceMetrics)   {}

type nopNotifier struct{}

func (nopNotifier) NotifyInfo(context.Context, string, string) {}
func (nopNotifier) NotifyError(context.Context, string, error) {}
