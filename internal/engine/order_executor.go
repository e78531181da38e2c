package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"spot-trading-bot/internal/interfaces"
	"spot-trading-bot/internal/logger"
	"spot-trading-bot/internal/types"
)

const (
	reasonSizeTooSmall  = "size too small"
	reasonOrderInFlight = "order in flight"
	maxTrackedOrders    = 100
	defaultOrderTimeout = 10 * time.Second
)

// orderExecutor sequences one trade end to end. The risk state and the
// position ledger share mu; exchange calls are made with mu released, so a
// trade reserves its slot first and commits or releases it afterwards.
type orderExecutor struct {
	mu        sync.Mutex
	risk      *riskManager
	positions *positionManager
	inflight  map[string]struct{}
	orders    []types.SubmittedOrder

	perf         *performanceTracker
	exec         interfaces.Executor
	lotSize      decimal.Decimal
	orderTimeout time.Duration
	now          func() time.Time
}

func newOrderExecutor(exec interfaces.Executor, risk *riskManager, perf *performanceTracker, lotSize decimal.Decimal, orderTimeout time.Duration) *orderExecutor {
	if orderTimeout <= 0 {
		orderTimeout = defaultOrderTimeout
	}
	return &orderExecutor{
		risk:         risk,
		positions:    newPositionManager(),
		inflight:     make(map[string]struct{}),
		perf:         perf,
		exec:         exec,
		lotSize:      lotSize,
		orderTimeout: orderTimeout,
		now:          time.Now,
	}
}

func skipped(reason string) types.TradeResult {
	return types.TradeResult{Kind: types.TradeSkipped, Reason: reason}
}

func failed(err error) types.TradeResult {
	return types.TradeResult{Kind: types.TradeFailed, Reason: err.Error(), Err: err}
}

// executeBuy opens a position for symbol if the risk gate allows it.
func (oe *orderExecutor) executeBuy(ctx context.Context, symbol string, size, price decimal.Decimal, tag string) types.TradeResult {
	oe.mu.Lock()
	if _, busy := oe.inflight[symbol]; busy {
		oe.mu.Unlock()
		return skipped(reasonOrderInFlight)
	}
	if oe.positions.has(symbol) {
		oe.mu.Unlock()
		return skipped(reasonAlreadyOpen)
	}
	check := oe.risk.checkTradeAllowed(ctx, symbol, types.SideBuy, size, price)
	if !check.allowed {
		oe.mu.Unlock()
		return types.TradeResult{
			Kind:   types.TradeSkipped,
			Reason: check.reason,
			Err:    fmt.Errorf("%w: %s", types.ErrRiskRejected, check.reason),
		}
	}
	qty := quantize(size, oe.lotSize)
	if !qty.IsPositive() {
		oe.mu.Unlock()
		return skipped(reasonSizeTooSmall)
	}
	oe.risk.reserve()
	oe.inflight[symbol] = struct{}{}
	oe.mu.Unlock()

	req := types.OrderReq{Symbol: symbol, Side: types.SideBuy, Size: qty, Tag: tag}
	resp, err := oe.submit(ctx, req)

	oe.mu.Lock()
	oe.risk.release()
	delete(oe.inflight, symbol)
	if err != nil {
		oe.mu.Unlock()
		logger.ErrorWithErr(ctx, "Failed to place BUY order", err,
			"symbol", symbol,
			"size", qty.String(),
			"price", price.String(),
		)
		return failed(err)
	}

	at := oe.now()
	pos, reason := oe.positions.open(symbol, qty, price, check.stopLoss, check.takeProfit, resp.OrderID, at)
	if reason != "" {
		// unreachable while inflight guards the symbol
		oe.mu.Unlock()
		return failed(fmt.Errorf("%w: ledger rejected fill for %s: %s", types.ErrInternal, symbol, reason))
	}
	oe.risk.updatePosition(symbol, types.SideBuy, qty, price)
	oe.trackOrder(req, resp, at)
	oe.mu.Unlock()

	rec := types.TradeRecord{
		Timestamp: at,
		Kind:      types.TradeOpen,
		Symbol:    symbol,
		Price:     price,
		Size:      qty,
		OrderID:   resp.OrderID,
		Reason:    tag,
	}
	oe.perf.appendOpen(rec)

	logger.Trade(ctx, symbol, string(types.SideBuy), qty, price, resp.OrderID,
		"stop_loss", pos.StopLoss.String(),
		"take_profit", pos.TakeProfit.String(),
		"tag", tag,
	)
	return types.TradeResult{Kind: types.TradeExecuted, Record: &rec}
}

// executeSell closes the open position for symbol at price.
func (oe *orderExecutor) executeSell(ctx context.Context, symbol string, price decimal.Decimal, tag string) types.TradeResult {
	oe.mu.Lock()
	if _, busy := oe.inflight[symbol]; busy {
		oe.mu.Unlock()
		return skipped(reasonOrderInFlight)
	}
	pos, ok := oe.positions.get(symbol)
	if !ok {
		oe.mu.Unlock()
		return skipped(reasonNoPosition)
	}
	qty := quantize(pos.Size, oe.lotSize)
	if !qty.IsPositive() {
		oe.mu.Unlock()
		return skipped(reasonSizeTooSmall)
	}
	oe.inflight[symbol] = struct{}{}
	oe.mu.Unlock()

	req := types.OrderReq{Symbol: symbol, Side: types.SideSell, Size: qty, Tag: tag}
	resp, err := oe.submit(ctx, req)

	oe.mu.Lock()
	delete(oe.inflight, symbol)
	if err != nil {
		oe.mu.Unlock()
		logger.ErrorWithErr(ctx, "Failed to place SELL order", err,
			"symbol", symbol,
			"size", qty.String(),
			"price", price.String(),
		)
		return failed(err)
	}

	pnl := price.Sub(pos.EntryPrice).Mul(qty)
	if pnl.IsNegative() {
		oe.risk.updateDailyLoss(pnl.Abs())
	}
	oe.risk.updatePosition(symbol, types.SideSell, qty, price)
	oe.positions.close(symbol)
	at := oe.now()
	oe.trackOrder(req, resp, at)
	oe.mu.Unlock()

	rec := types.TradeRecord{
		Timestamp: at,
		Kind:      types.TradeClose,
		Symbol:    symbol,
		Price:     price,
		Size:      qty,
		PnL:       &pnl,
		OrderID:   resp.OrderID,
		Reason:    tag,
	}
	oe.perf.record(rec)

	logger.Trade(ctx, symbol, string(types.SideSell), qty, price, resp.OrderID,
		"entry_price", pos.EntryPrice.String(),
		"pnl", pnl.String(),
		"tag", tag,
	)
	return types.TradeResult{Kind: types.TradeExecuted, Record: &rec}
}

// submit calls the adapter with its own deadline. The parent's cancellation
// is dropped so a stop request never interrupts an issued order.
func (oe *orderExecutor) submit(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	op := logger.StartOperation(ctx, "exec.submit",
		"symbol", req.Symbol,
		"side", string(req.Side),
		"size", req.Size,
	)
	subCtx, cancel := context.WithTimeout(context.WithoutCancel(op.Context()), oe.orderTimeout)
	defer cancel()

	resp, err := oe.exec.SubmitMarketOrder(subCtx, req)
	if err == nil && subCtx.Err() != nil {
		err = subCtx.Err()
	}
	if err != nil {
		op.EndWithError(err)
		return types.OrderResp{}, fmt.Errorf("%w: %s %s: %w", types.ErrExecutionFailed, req.Side, req.Symbol, err)
	}
	op.End("order_id", resp.OrderID)
	return resp, nil
}

func (oe *orderExecutor) trackOrder(req types.OrderReq, resp types.OrderResp, at time.Time) {
	oe.orders = append(oe.orders, types.SubmittedOrder{Req: req, Resp: resp, At: at})
	if len(oe.orders) > maxTrackedOrders {
		oe.orders = oe.orders[len(oe.orders)-maxTrackedOrders:]
	}
}

// recentOrders returns up to limit of the latest orders, oldest first. A
// non-positive limit returns all of them.
func (oe *orderExecutor) recentOrders(limit int) []types.SubmittedOrder {
	oe.mu.Lock()
	defer oe.mu.Unlock()
	orders := oe.orders
	if limit > 0 && len(orders) > limit {
		orders = orders[len(orders)-limit:]
	}
	out := make([]types.SubmittedOrder, len(orders))
	copy(out, orders)
	return out
}

// positionSize is the recommended, lot-quantized size for a new entry.
func (oe *orderExecutor) positionSize(balance, price, riskPerTrade decimal.Decimal) decimal.Decimal {
	oe.mu.Lock()
	defer oe.mu.Unlock()
	return quantize(oe.risk.calculatePositionSize(balance, price, riskPerTrade), oe.lotSize)
}

func (oe *orderExecutor) checkExit(ctx context.Context, symbol string, price decimal.Decimal) exitSignal {
	oe.mu.Lock()
	defer oe.mu.Unlock()
	return oe.risk.checkExitSignal(ctx, symbol, price)
}

func (oe *orderExecutor) resetDaily() {
	oe.mu.Lock()
	defer oe.mu.Unlock()
	oe.risk.resetDailyMetrics()
}

func (oe *orderExecutor) position(symbol string) (types.Position, bool) {
	oe.mu.Lock()
	defer oe.mu.Unlock()
	return oe.positions.get(symbol)
}

func (oe *orderExecutor) snapshot() map[string]types.Position {
	oe.mu.Lock()
	defer oe.mu.Unlock()
	return oe.positions.snapshot()
}

func (oe *orderExecutor) openSymbols() []string {
	oe.mu.Lock()
	defer oe.mu.Unlock()
	out := make([]string, 0, oe.positions.count())
	for sym := range oe.positions.positions {
		out = append(out, sym)
	}
	return out
}

func (oe *orderExecutor) riskState() (trades int, loss decimal.Decimal) {
	oe.mu.Lock()
	defer oe.mu.Unlock()
	return oe.risk.dailyTradeCount, oe.risk.dailyLoss
}
