package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"spot-trading-bot/internal/logger"
	"spot-trading-bot/internal/types"
)

const (
	reasonMaxTrades        = "max trades"
	reasonMaxDailyLoss     = "max daily loss"
	reasonPositionTooLarge = "position too large"
)

var defaultRiskPerTrade = decimal.RequireFromString("0.02")

// RiskLimits are the static limits of the shared risk state.
type RiskLimits struct {
	MaxPositionSize decimal.Decimal // notional cap per trade, quote currency
	MaxDailyLoss    decimal.Decimal
	MaxTradesPerDay int
	StopLossPct     decimal.Decimal
	TakeProfitPct   decimal.Decimal
}

// riskRecord mirrors the position for stop/take evaluation.
type riskRecord struct {
	side       types.Side
	size       decimal.Decimal
	entryPrice decimal.Decimal
	stopLoss   decimal.Decimal
	takeProfit decimal.Decimal
	updatedAt  time.Time
}

type tradeCheck struct {
	allowed    bool
	reason     string
	stopLoss   decimal.Decimal
	takeProfit decimal.Decimal
}

// riskManager holds the daily counters and limits. It is not safe for
// concurrent use; orderExecutor serializes access.
type riskManager struct {
	limits          RiskLimits
	stops           *stopManager
	dailyTradeCount int
	dailyLoss       decimal.Decimal
	// trades submitted but not yet reconciled; they count against the
	// daily limit so concurrent symbols cannot overshoot it.
	reserved int
	records  map[string]riskRecord
	now      func() time.Time
}

func newRiskManager(limits RiskLimits) *riskManager {
	return &riskManager{
		limits:  limits,
		stops:   newStopManager(limits.StopLossPct, limits.TakeProfitPct),
		records: make(map[string]riskRecord),
		now:     time.Now,
	}
}

// checkTradeAllowed applies the limits in fixed order; the first failing
// check wins.
func (rm *riskManager) checkTradeAllowed(ctx context.Context, symbol string, side types.Side, size, price decimal.Decimal) tradeCheck {
	if rm.dailyTradeCount+rm.reserved >= rm.limits.MaxTradesPerDay {
		logger.Risk(ctx, symbol, "MAX_TRADES_REACHED",
			"side", string(side),
			"trades_today", rm.dailyTradeCount,
			"pending", rm.reserved,
			"max_trades", rm.limits.MaxTradesPerDay,
		)
		return tradeCheck{reason: reasonMaxTrades}
	}

	if rm.dailyLoss.GreaterThanOrEqual(rm.limits.MaxDailyLoss) {
		logger.Risk(ctx, symbol, "MAX_DAILY_LOSS_REACHED",
			"side", string(side),
			"daily_loss", rm.dailyLoss.String(),
			"max_daily_loss", rm.limits.MaxDailyLoss.String(),
		)
		return tradeCheck{reason: reasonMaxDailyLoss}
	}

	notional := size.Mul(price)
	if notional.GreaterThan(rm.limits.MaxPositionSize) {
		logger.Risk(ctx, symbol, "POSITION_TOO_LARGE",
			"side", string(side),
			"size", size.String(),
			"price", price.String(),
			"notional", notional.String(),
			"max_position_size", rm.limits.MaxPositionSize.String(),
		)
		return tradeCheck{reason: reasonPositionTooLarge}
	}

	stopLoss, takeProfit := rm.stops.levels(price)
	return tradeCheck{allowed: true, stopLoss: stopLoss, takeProfit: takeProfit}
}

// calculatePositionSize sizes a trade so that hitting the stop loses
// balance*riskPerTrade, capped by the notional limit. A zero riskPerTrade
// means the default 2%.
func (rm *riskManager) calculatePositionSize(balance, price, riskPerTrade decimal.Decimal) decimal.Decimal {
	if !price.IsPositive() || !balance.IsPositive() || !rm.limits.StopLossPct.IsPositive() {
		return decimal.Zero
	}
	if riskPerTrade.IsZero() {
		riskPerTrade = defaultRiskPerTrade
	}
	if riskPerTrade.IsNegative() {
		return decimal.Zero
	}

	riskAmount := balance.Mul(riskPerTrade)
	stopDistance := price.Mul(pct(rm.limits.StopLossPct))
	size := riskAmount.Div(stopDistance)
	maxSize := rm.limits.MaxPositionSize.Div(price)
	return decimal.Min(size, maxSize)
}

// updatePosition must only be called after a confirmed fill.
func (rm *riskManager) updatePosition(symbol string, side types.Side, size, entryPrice decimal.Decimal) {
	switch side {
	case types.SideBuy:
		stopLoss, takeProfit := rm.stops.levels(entryPrice)
		rm.records[symbol] = riskRecord{
			side:       side,
			size:       size,
			entryPrice: entryPrice,
			stopLoss:   stopLoss,
			takeProfit: takeProfit,
			updatedAt:  rm.now(),
		}
	case types.SideSell:
		delete(rm.records, symbol)
	}
	rm.dailyTradeCount++
}

// updateDailyLoss adds a realized loss. Negative amounts are ignored so
// daily_loss never decreases within a day.
func (rm *riskManager) updateDailyLoss(amount decimal.Decimal) {
	if amount.IsNegative() {
		return
	}
	rm.dailyLoss = rm.dailyLoss.Add(amount)
}

func (rm *riskManager) resetDailyMetrics() {
	rm.dailyTradeCount = 0
	rm.dailyLoss = decimal.Zero
}

func (rm *riskManager) reserve() { rm.reserved++ }

func (rm *riskManager) release() {
	if rm.reserved > 0 {
		rm.reserved--
	}
}

func (rm *riskManager) record(symbol string) (riskRecord, bool) {
	rec, ok := rm.records[symbol]
	return rec, ok
}

// checkExitSignal evaluates the mirrored record for symbol against price.
func (rm *riskManager) checkExitSignal(ctx context.Context, symbol string, price decimal.Decimal) exitSignal {
	rec, ok := rm.records[symbol]
	if !ok {
		return exitNone
	}
	return rm.stops.check(ctx, symbol, price, rec)
}
