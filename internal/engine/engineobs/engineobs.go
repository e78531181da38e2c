package engineobs

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"spot-trading-bot/internal/interfaces"
	"spot-trading-bot/internal/logger"
	"spot-trading-bot/internal/trace"
	"spot-trading-bot/internal/types"
)

type observableEngine struct {
	engine interfaces.Engine
}

var _ interfaces.Engine = (*observableEngine)(nil)

func Wrap(eng interfaces.Engine) interfaces.Engine {
	return &observableEngine{
		engine: eng,
	}
}

func (oe *observableEngine) Step(ctx context.Context, symbol string) (*types.StepResult, error) {
	ctx, span := trace.StartSpan(ctx, "engine.Step")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol))

	start := time.Now()
	result, err := oe.engine.Step(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Trading step failed", err,
			"symbol", symbol,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Trading step completed",
		"symbol", symbol,
		"decision", string(result.Decision),
		"reason", result.Reason,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (oe *observableEngine) RunCycle(ctx context.Context) []*types.StepResult {
	ctx, span := trace.StartSpan(ctx, "engine.RunCycle")
	defer span.End()

	start := time.Now()
	logger.InfoSkip(ctx, 1, "Starting trading cycle")

	results := oe.engine.RunCycle(ctx)

	executed := 0
	for _, r := range results {
		if r.Result != nil && r.Result.Kind == types.TradeExecuted {
			executed++
		}
	}
	span.SetAttributes(
		attribute.Int("symbols_processed", len(results)),
		attribute.Int("trades_executed", executed),
	)
	logger.InfoSkip(ctx, 1, "Trading cycle completed",
		"symbols_processed", len(results),
		"trades_executed", executed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return results
}

func (oe *observableEngine) Status() types.Status {
	return oe.engine.Status()
}

func (oe *observableEngine) Positions() map[string]types.Position {
	return oe.engine.Positions()
}

func (oe *observableEngine) Performance() types.PerformanceMetrics {
	return oe.engine.Performance()
}

func (oe *observableEngine) TradeHistory(limit int) []types.TradeRecord {
	return oe.engine.TradeHistory(limit)
}

func (oe *observableEngine) RecentOrders(limit int) []types.SubmittedOrder {
	return oe.engine.RecentOrders(limit)
}

func (oe *observableEngine) Shutdown(ctx context.Context) {
	ctx, span := trace.StartSpan(ctx, "engine.Shutdown")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Shutting down engine")
	oe.engine.Shutdown(ctx)
}
