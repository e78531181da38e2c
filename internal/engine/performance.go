package engine

import (
	"sync"

	"github.com/shopspring/decimal"

	"spot-trading-bot/internal/types"
)

// performanceTracker owns the trade history and the running metrics.
// Every update is O(1); nothing is recomputed from history.
type performanceTracker struct {
	mu      sync.Mutex
	metrics types.PerformanceMetrics
	daily   types.DailyStats
	history []types.TradeRecord
}

func newPerformanceTracker(day string) *performanceTracker {
	return &performanceTracker{daily: types.DailyStats{Date: day}}
}

// appendOpen stores an OPEN record. It does not touch the metrics.
func (pt *performanceTracker) appendOpen(rec types.TradeRecord) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.history = append(pt.history, rec)
	pt.daily.Trades++
}

// record folds a CLOSE record into the metrics. Records without pnl are
// ignored.
func (pt *performanceTracker) record(rec types.TradeRecord) bool {
	if rec.PnL == nil {
		return false
	}
	pnl := *rec.PnL

	pt.mu.Lock()
	defer pt.mu.Unlock()

	pt.history = append(pt.history, rec)

	m := &pt.metrics
	m.TotalTrades++
	m.TotalPnL = m.TotalPnL.Add(pnl)

	// average_win/average_loss divide the running total_pnl, not the
	// per-side sum.
	if pnl.IsPositive() {
		m.WinningTrades++
		m.LargestWin = decimal.Max(m.LargestWin, pnl)
		m.AverageWin = m.TotalPnL.Div(decimal.NewFromInt(int64(m.WinningTrades)))
		pt.daily.Wins++
	} else {
		m.LosingTrades++
		m.LargestLoss = decimal.Min(m.LargestLoss, pnl)
		m.AverageLoss = m.TotalPnL.Abs().Div(decimal.NewFromInt(int64(m.LosingTrades)))
		pt.daily.Losses++
	}

	m.WinRate = decimal.NewFromInt(int64(m.WinningTrades)).
		Div(decimal.NewFromInt(int64(m.TotalTrades))).
		Mul(hundred)

	if !m.AverageLoss.IsZero() {
		m.RiskRewardRatio = m.AverageWin.Div(m.AverageLoss).Abs()
	}

	pt.daily.Trades++
	pt.daily.PnL = pt.daily.PnL.Add(pnl)
	return true
}

func (pt *performanceTracker) snapshot() types.PerformanceMetrics {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	m := pt.metrics
	m.Daily = pt.daily
	return m
}

// recent returns up to limit of the newest records, oldest first.
func (pt *performanceTracker) recent(limit int) []types.TradeRecord {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	start := 0
	if limit > 0 && len(pt.history) > limit {
		start = len(pt.history) - limit
	}
	out := make([]types.TradeRecord, len(pt.history)-start)
	copy(out, pt.history[start:])
	return out
}

func (pt *performanceTracker) totalPnL() decimal.Decimal {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.metrics.TotalPnL
}

// resetDaily starts a fresh daily bucket and returns the finished one.
func (pt *performanceTracker) resetDaily(day string) types.DailyStats {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	prev := pt.daily
	pt.daily = types.DailyStats{Date: day}
	return prev
}
