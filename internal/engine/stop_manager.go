package engine

import (
	"context"

	"github.com/shopspring/decimal"

	"spot-trading-bot/internal/logger"
)

type exitSignal string

const (
	exitNone       exitSignal = ""
	exitStopLoss   exitSignal = "stop_loss"
	exitTakeProfit exitSignal = "take_profit"
)

// stopManager derives stop-loss/take-profit levels for long entries and
// decides when a price crosses them.
type stopManager struct {
	stopLossPct   decimal.Decimal
	takeProfitPct decimal.Decimal
}

func newStopManager(stopLossPct, takeProfitPct decimal.Decimal) *stopManager {
	return &stopManager{
		stopLossPct:   stopLossPct,
		takeProfitPct: takeProfitPct,
	}
}

// levels returns price*(1-sl%) and price*(1+tp%).
func (sm *stopManager) levels(price decimal.Decimal) (stopLoss, takeProfit decimal.Decimal) {
	stopLoss = price.Mul(one.Sub(pct(sm.stopLossPct)))
	takeProfit = price.Mul(one.Add(pct(sm.takeProfitPct)))
	return stopLoss, takeProfit
}

// check compares price against a mirrored risk record. Stop-loss wins when
// both levels are crossed, which only happens with a degenerate record.
func (sm *stopManager) check(ctx context.Context, symbol string, price decimal.Decimal, rec riskRecord) exitSignal {
	if !rec.size.IsPositive() {
		return exitNone
	}

	switch {
	case price.LessThanOrEqual(rec.stopLoss):
		logger.Warn(ctx, "Stop loss triggered",
			"symbol", symbol,
			"event", "STOP_LOSS_TRIGGERED",
			"current_price", price.String(),
			"stop_price", rec.stopLoss.String(),
			"entry_price", rec.entryPrice.String(),
			"unrealized_pnl", price.Sub(rec.entryPrice).Mul(rec.size).String(),
		)
		return exitStopLoss
	case price.GreaterThanOrEqual(rec.takeProfit):
		logger.Info(ctx, "Take profit triggered",
			"symbol", symbol,
			"event", "TAKE_PROFIT_TRIGGERED",
			"current_price", price.String(),
			"take_profit", rec.takeProfit.String(),
			"entry_price", rec.entryPrice.String(),
			"unrealized_pnl", price.Sub(rec.entryPrice).Mul(rec.size).String(),
		)
		return exitTakeProfit
	}
	return exitNone
}
