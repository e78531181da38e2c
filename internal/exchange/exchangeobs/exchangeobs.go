package exchangeobs

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"spot-trading-bot/internal/interfaces"
	"spot-trading-bot/internal/logger"
	"spot-trading-bot/internal/trace"
	"spot-trading-bot/internal/types"
)

type observableMarket struct {
	market interfaces.MarketData
}

var _ interfaces.MarketData = (*observableMarket)(nil)

// WrapMarket wraps a market data adapter with logging and tracing
func WrapMarket(md interfaces.MarketData) interfaces.MarketData {
	return &observableMarket{
		market: md,
	}
}

func (om *observableMarket) FetchSnapshot(ctx context.Context, symbol string) (types.Snapshot, error) {
	ctx, span := trace.StartSpan(ctx, "market.FetchSnapshot")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol))

	start := time.Now()
	snap, err := om.market.FetchSnapshot(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch snapshot", err,
			"symbol", symbol,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return types.Snapshot{}, err
	}

	logger.DebugSkip(ctx, 1, "Snapshot fetched",
		"symbol", symbol,
		"price", snap.Price.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return snap, nil
}

type observableExecutor struct {
	exec interfaces.Executor
}

var _ interfaces.Executor = (*observableExecutor)(nil)

// WrapExecutor wraps an execution adapter with logging and tracing
func WrapExecutor(exec interfaces.Executor) interfaces.Executor {
	return &observableExecutor{
		exec: exec,
	}
}

func (oe *observableExecutor) SubmitMarketOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	ctx, span := trace.StartSpan(ctx, "exec.SubmitMarketOrder")
	defer span.End()
	span.SetAttributes(
		attribute.String("symbol", req.Symbol),
		attribute.String("side", string(req.Side)),
		attribute.String("size", req.Size.String()),
	)

	logger.InfoSkip(ctx, 1, "Placing order",
		"symbol", req.Symbol,
		"side", string(req.Side),
		"size", req.Size.String(),
		"tag", req.Tag,
	)

	resp, err := oe.exec.SubmitMarketOrder(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to place order", err,
			"symbol", req.Symbol,
			"side", string(req.Side),
			"size", req.Size.String(),
		)
		return types.OrderResp{}, err
	}

	span.SetAttributes(attribute.String("order_id", resp.OrderID))
	logger.InfoSkip(ctx, 1, "Order placed",
		"symbol", req.Symbol,
		"order_id", resp.OrderID,
		"status", resp.Status,
	)
	return resp, nil
}
