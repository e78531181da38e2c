package engine

import (
	"context"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spot-trading-bot/internal/types"
)

func TestCheckTradeAllowedOrder(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		trades    int
		loss      string
		size      string
		price     string
		wantAllow bool
		reason    string
	}{
		{"trade limit wins over every other check", 10, "500", "1", "50000", false, reasonMaxTrades},
		{"daily loss checked before size", 3, "100", "1", "50000", false, reasonMaxDailyLoss},
		{"notional above cap", 0, "0", "0.03", "50000", false, reasonPositionTooLarge},
		{"notional exactly at cap", 0, "0", "0.02", "50000", true, ""},
		{"small trade", 9, "99.99", "0.001", "50000", true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rm := newRiskManager(testLimits())
			rm.dailyTradeCount = tt.trades
			rm.dailyLoss = d(tt.loss)

			got := rm.checkTradeAllowed(ctx, "BTC-USDT", types.SideBuy, d(tt.size), d(tt.price))
			assert.Equal(t, tt.wantAllow, got.allowed)
			assert.Equal(t, tt.reason, got.reason)
		})
	}
}

func TestCheckTradeAllowedLevels(t *testing.T) {
	rm := newRiskManager(testLimits())

	got := rm.checkTradeAllowed(context.Background(), "BTC-USDT", types.SideBuy, d("0.01"), d("50000"))
	require.True(t, got.allowed)
	assert.True(t, d("49000").Equal(got.stopLoss), "stop loss %s", got.stopLoss)
	assert.True(t, d("52000").Equal(got.takeProfit), "take profit %s", got.takeProfit)
}

func TestCheckTradeAllowedCountsReservations(t *testing.T) {
	rm := newRiskManager(testLimits())
	rm.dailyTradeCount = 8
	rm.reserve()
	rm.reserve()

	got := rm.checkTradeAllowed(context.Background(), "ETH-USDT", types.SideBuy, d("0.1"), d("3000"))
	assert.False(t, got.allowed)
	assert.Equal(t, reasonMaxTrades, got.reason)

	rm.release()
	got = rm.checkTradeAllowed(context.Background(), "ETH-USDT", types.SideBuy, d("0.1"), d("3000"))
	assert.True(t, got.allowed)
}

func TestCheckTradeAllowedNeverExceedsLimits(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ctx := context.Background()

	for i := 0; i < 2000; i++ {
		limits := RiskLimits{
			MaxPositionSize: decimal.NewFromInt(int64(rng.Intn(5000) + 1)),
			MaxDailyLoss:    decimal.NewFromInt(int64(rng.Intn(500) + 1)),
			MaxTradesPerDay: rng.Intn(20) + 1,
			StopLossPct:     decimal.NewFromFloat(float64(rng.Intn(10) + 1)),
			TakeProfitPct:   decimal.NewFromFloat(float64(rng.Intn(20) + 1)),
		}
		rm := newRiskManager(limits)
		rm.dailyTradeCount = rng.Intn(25)
		rm.dailyLoss = decimal.NewFromInt(int64(rng.Intn(600)))
		size := decimal.NewFromFloat(rng.Float64() * 2).Round(6)
		price := decimal.NewFromFloat(rng.Float64()*60000 + 0.01).Round(2)

		got := rm.checkTradeAllowed(ctx, "SYM", types.SideBuy, size, price)
		if !got.allowed {
			continue
		}
		require.Less(t, rm.dailyTradeCount, limits.MaxTradesPerDay, "iteration %d", i)
		require.True(t, rm.dailyLoss.LessThan(limits.MaxDailyLoss), "iteration %d", i)
		require.True(t, size.Mul(price).LessThanOrEqual(limits.MaxPositionSize), "iteration %d", i)
		require.True(t, got.stopLoss.LessThan(price), "iteration %d", i)
		require.True(t, got.takeProfit.GreaterThan(price), "iteration %d", i)
	}
}

func TestCalculatePositionSize(t *testing.T) {
	rm := newRiskManager(testLimits())

	size := rm.calculatePositionSize(d("10000"), d("50000"), d("0.02"))
	assert.True(t, d("0.02").Equal(size), "got %s", size)

	// zero risk means the 2% default
	assert.True(t, d("0.02").Equal(rm.calculatePositionSize(d("10000"), d("50000"), decimal.Zero)))

	// risk-bound rather than cap-bound: 100*0.02/(10*0.02) = 10, cap 1000/10 = 100
	assert.True(t, d("10").Equal(rm.calculatePositionSize(d("100"), d("10"), d("0.02"))))

	assert.True(t, rm.calculatePositionSize(d("10000"), decimal.Zero, d("0.02")).IsZero())
	assert.True(t, rm.calculatePositionSize(d("10000"), d("-5"), d("0.02")).IsZero())
	assert.True(t, rm.calculatePositionSize(decimal.Zero, d("50000"), d("0.02")).IsZero())
}

func TestUpdatePositionMirrorsRecord(t *testing.T) {
	rm := newRiskManager(testLimits())

	rm.updatePosition("BTC-USDT", types.SideBuy, d("0.01"), d("50000"))
	rec, ok := rm.record("BTC-USDT")
	require.True(t, ok)
	assert.True(t, d("49000").Equal(rec.stopLoss))
	assert.True(t, d("52000").Equal(rec.takeProfit))
	assert.Equal(t, 1, rm.dailyTradeCount)

	rm.updatePosition("BTC-USDT", types.SideSell, d("0.01"), d("51000"))
	_, ok = rm.record("BTC-USDT")
	assert.False(t, ok)
	assert.Equal(t, 2, rm.dailyTradeCount)
}

func TestUpdateDailyLossIgnoresNegative(t *testing.T) {
	rm := newRiskManager(testLimits())
	rm.updateDailyLoss(d("12.5"))
	rm.updateDailyLoss(d("-3"))
	assert.True(t, d("12.5").Equal(rm.dailyLoss))
}

func TestResetDailyMetrics(t *testing.T) {
	rm := newRiskManager(testLimits())
	rm.dailyTradeCount = 7
	rm.dailyLoss = d("42.1")
	rm.updatePosition("BTC-USDT", types.SideBuy, d("0.01"), d("50000"))

	rm.resetDailyMetrics()
	assert.Zero(t, rm.dailyTradeCount)
	assert.True(t, rm.dailyLoss.IsZero())

	rm.resetDailyMetrics()
	assert.Zero(t, rm.dailyTradeCount)
	assert.True(t, rm.dailyLoss.IsZero())

	// open positions survive the rollover
	_, ok := rm.record("BTC-USDT")
	assert.True(t, ok)
}

func TestCheckExitSignal(t *testing.T) {
	ctx := context.Background()
	rm := newRiskManager(testLimits())
	assert.Equal(t, exitNone, rm.checkExitSignal(ctx, "BTC-USDT", d("1")))

	rm.updatePosition("BTC-USDT", types.SideBuy, d("0.01"), d("50000"))
	assert.Equal(t, exitNone, rm.checkExitSignal(ctx, "BTC-USDT", d("50500")))
	assert.Equal(t, exitStopLoss, rm.checkExitSignal(ctx, "BTC-USDT", d("49000")))
	assert.Equal(t, exitStopLoss, rm.checkExitSignal(ctx, "BTC-USDT", d("40000")))
	assert.Equal(t, exitTakeProfit, rm.checkExitSignal(ctx, "BTC-USDT", d("52000")))
}

func TestQuantize(t *testing.T) {
	assert.True(t, d("0.0123").Equal(quantize(d("0.0123456789"), d("0.0001"))))
	assert.True(t, d("0.01").Equal(quantize(d("0.01"), d("0.000001"))))
	assert.True(t, quantize(d("0.0000009"), d("0.000001")).IsZero())
	assert.True(t, quantize(d("-1"), d("0.1")).IsZero())
	assert.True(t, d("1.23456789").Equal(quantize(d("1.23456789"), decimal.Zero)))
}
