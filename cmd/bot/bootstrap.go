package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"spot-trading-bot/internal/engine"
	"spot-trading-bot/internal/engine/engineobs"
	"spot-trading-bot/internal/eod"
	"spot-trading-bot/internal/eod/eodobs"
	"spot-trading-bot/internal/events"
	"spot-trading-bot/internal/exchange/exchangeobs"
	"spot-trading-bot/internal/exchange/paper"
	"spot-trading-bot/internal/interfaces"
	"spot-trading-bot/internal/logger"
	"spot-trading-bot/internal/metrics"
	"spot-trading-bot/internal/notify"
	"spot-trading-bot/internal/store"
	"spot-trading-bot/internal/strategy"
	"spot-trading-bot/internal/strategy/strategyobs"
	"spot-trading-bot/internal/trace"
	"spot-trading-bot/internal/tradelog"
)

const defaultConfigPath = "config.yaml"

// app holds everything main needs to run and tear down.
type app struct {
	cfg      *store.Config
	engine   interfaces.Engine
	notifier *notify.Manager
	metrics  *metrics.Collector
	journal  *tradelog.Journal
	redis    *events.RedisPublisher
}

func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

func loadConfig(ctx context.Context) (*store.Config, error) {
	path := os.Getenv("TRADER_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

func compressOldLogs(ctx context.Context, j *tradelog.Journal, retentionDays int) {
	if err := j.CompressOlder(retentionDays); err != nil {
		logger.Warn(ctx, "Failed to compress old journals", "error", err)
	}
}

// initializeExchange returns the market data and execution adapters for cfg.Mode.
func initializeExchange(ctx context.Context, cfg *store.Config) (interfaces.MarketData, interfaces.Executor, error) {
	if cfg.Mode != "DRY_RUN" {
		return nil, nil, errors.New("live exchange connectivity not available; set mode: DRY_RUN")
	}
	logger.Warn(ctx, "Running in DRY_RUN mode - market data and orders are simulated")

	x := paper.New(paper.Params{
		Seed:        cfg.Paper.Seed,
		BasePrices:  cfg.Paper.BasePrices,
		FailureRate: cfg.Paper.FailureRate,
		StepPct:     cfg.Paper.StepPct,
	})
	return exchangeobs.WrapMarket(x), exchangeobs.WrapExecutor(x), nil
}

func initializeStrategy(ctx context.Context, cfg *store.Config) interfaces.Strategy {
	s := strategy.ByName(cfg.Strategy)
	if _, ok := s.(strategy.Noop); ok {
		logger.Warn(ctx, "Noop strategy configured - engine will only manage exits")
	}
	return strategyobs.Wrap(s)
}

func initializeNotifier(ctx context.Context, cfg *store.Config) *notify.Manager {
	channels := []notify.Channel{notify.LogChannel{}}
	if cfg.Notifications.TelegramEnabled {
		tg := notify.NewTelegram(notify.TelegramConfigFromEnv(true))
		if tg.Enabled() {
			channels = append(channels, tg)
		} else {
			logger.Warn(ctx, "Telegram enabled but TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID is missing")
		}
	}
	return notify.NewManager(channels...)
}

// initializeEvents builds the in-process bus and, when configured, attaches
// the Redis publisher to it.
func initializeEvents(ctx context.Context, cfg *store.Config) (*events.Bus, *events.RedisPublisher) {
	bus := events.NewBus()
	if !cfg.Events.RedisEnabled {
		return bus, nil
	}
	pub := events.NewRedisPublisher(events.RedisConfig{
		Addr:    cfg.Events.RedisAddr,
		DB:      cfg.Events.RedisDB,
		Channel: cfg.Events.RedisChannel,
	})
	if err := pub.Ping(ctx); err != nil {
		logger.Warn(ctx, "Redis not reachable, events will be retried per publish", "addr", cfg.Events.RedisAddr, "error", err)
	}
	bus.SubscribeAll(pub.Handle)
	logger.Info(ctx, "Publishing events to Redis", "addr", cfg.Events.RedisAddr, "channel", cfg.Events.RedisChannel)
	return bus, pub
}

func initializeEngine(ctx context.Context, cfg *store.Config) (*app, error) {
	md, exec, err := initializeExchange(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		notifier: initializeNotifier(ctx, cfg),
		journal:  tradelog.New(cfg.Reporting.LogDir),
	}
	compressOldLogs(ctx, a.journal, cfg.Reporting.LogRetentionDays)

	bus, pub := initializeEvents(ctx, cfg)
	a.redis = pub

	observers := events.Fanout{a.journal, a.notifier, bus}
	if cfg.Metrics.Enabled {
		a.metrics = metrics.New()
		observers = append(observers, a.metrics)
	}

	opts := []engine.Option{
		engine.WithObserver(observers),
		engine.WithNotifier(a.notifier),
	}
	if cfg.Reporting.EODEnabled {
		opts = append(opts, engine.WithEOD(eodobs.Wrap(eod.New(cfg.Reporting.LogDir))))
	}

	eng := engine.New(cfg, md, exec, initializeStrategy(ctx, cfg), opts...)
	a.engine = engineobs.Wrap(eng)
	return a, nil
}

// close releases the outbound integrations after the engine has stopped.
func (a *app) close(ctx context.Context) {
	if err := a.notifier.Close(ctx); err != nil {
		logger.Warn(ctx, "Notifier did not drain", "error", err)
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logger.Warn(ctx, "Failed to close Redis client", "error", err)
		}
	}
}
