package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"spot-trading-bot/internal/engine"
	"spot-trading-bot/internal/interfaces"
	"spot-trading-bot/internal/logger"
	"spot-trading-bot/internal/metrics"
	"spot-trading-bot/internal/trace"
	"spot-trading-bot/internal/types"
)

const recentOrdersOnExit = 10

func main() {
	os.Exit(start())
}

func start() int {
	if err := initializeSystem(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = trace.Shutdown(ctx)
		_ = logger.Shutdown(ctx)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return run(ctx)
}

// timedEngine feeds cycle durations to the metrics collector.
type timedEngine struct {
	interfaces.Engine
	m *metrics.Collector
}

func (t timedEngine) RunCycle(ctx context.Context) []*types.StepResult {
	began := time.Now()
	results := t.Engine.RunCycle(ctx)
	t.m.ObserveCycle(results, time.Since(began))
	return results
}

func run(ctx context.Context) int {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return 1
	}
	a, err := initializeEngine(ctx, cfg)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to initialize engine", err)
		return 1
	}

	eng := a.engine
	if a.metrics != nil {
		eng = timedEngine{Engine: a.engine, m: a.metrics}
		go func() {
			if err := a.metrics.Serve(ctx, cfg.Metrics.ListenAddr); err != nil {
				logger.ErrorWithErr(ctx, "Metrics server failed", err, "addr", cfg.Metrics.ListenAddr)
			}
		}()
	}

	logger.Info(ctx, "Bot started",
		"mode", cfg.Mode,
		"strategy", cfg.Strategy,
		"symbols", cfg.Universe,
		"poll_seconds", cfg.PollSeconds,
	)
	a.notifier.NotifyInfo(ctx, "Trading bot started",
		fmt.Sprintf("Mode: %s\nPairs: %s", cfg.Mode, strings.Join(cfg.Universe, ", ")))

	engine.Run(ctx, eng, cfg.PollInterval(), func(results []*types.StepResult) {
		executed := 0
		for _, r := range results {
			if r != nil && r.Result != nil && r.Result.Kind == types.TradeExecuted {
				executed++
			}
		}
		logger.Debug(ctx, "Cycle complete", "symbols", len(results), "executed", executed)
	})

	logger.Info(ctx, "Shutting down...")
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	a.engine.Shutdown(stopCtx)

	for _, o := range a.engine.RecentOrders(recentOrdersOnExit) {
		logger.Info(stopCtx, "Recent order",
			"symbol", o.Req.Symbol,
			"side", string(o.Req.Side),
			"size", o.Req.Size.String(),
			"tag", o.Req.Tag,
			"order_id", o.Resp.OrderID,
			"at", o.At.UTC().Format(time.RFC3339),
		)
	}

	st := a.engine.Status()
	a.notifier.NotifyInfo(stopCtx, "Trading bot stopped",
		fmt.Sprintf("Uptime: %s\nTrades today: %d\nPnL today: %s",
			st.Uptime.Round(time.Second), st.TradesToday, st.PnLToday.StringFixed(2)))
	a.close(stopCtx)
	return 0
}
