package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"spot-trading-bot/internal/interfaces"
	"spot-trading-bot/internal/logger"
	"spot-trading-bot/internal/types"
)

const (
	reasonVolatility    = "volatility too high"
	reasonVolume        = "volume too low"
	reasonSpread        = "spread too wide"
	reasonTradeInterval = "min trade interval"
	reasonHold          = "hold"
)

// Settings is the engine's view of the configuration.
type Settings struct {
	Symbols             []string
	AccountBalance      decimal.Decimal
	RiskPerTrade        decimal.Decimal
	Limits              RiskLimits
	LotSize             decimal.Decimal
	OrderTimeout        time.Duration
	SnapshotTimeout     time.Duration
	MaxConcurrency      int
	MaxVolatility       decimal.Decimal // zero disables the filter
	MinVolume           decimal.Decimal
	MaxSpread           decimal.Decimal
	MinTradeInterval    time.Duration
	PerformanceInterval time.Duration
}

type engine struct {
	cfg      Settings
	market   interfaces.MarketData
	strategy interfaces.Strategy
	orders   *orderExecutor
	perf     *performanceTracker
	observer interfaces.Observer
	notifier interfaces.Notifier
	eod      interfaces.EodSummarizer
	now      func() time.Time

	limMu    sync.Mutex
	limiters map[string]*rate.Limiter

	mu        sync.Mutex
	dayStart  time.Time
	lastPerf  time.Time
	startedAt time.Time
	stopped   bool
}

func newEngine(cfg Settings, md interfaces.MarketData, exec interfaces.Executor, strat interfaces.Strategy, opts ...Option) *engine {
	e := &engine{
		cfg:      cfg,
		market:   md,
		strategy: strat,
		observer: nopObserver{},
		notifier: nopNotifier{},
		now:      time.Now,
		limiters: make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(e)
	}

	now := e.now()
	e.dayStart = midnightUTC(now)
	e.lastPerf = now

	e.perf = newPerformanceTracker(e.dayStart.Format(time.DateOnly))
	risk := newRiskManager(cfg.Limits)
	risk.now = e.now
	e.orders = newOrderExecutor(exec, risk, e.perf, cfg.LotSize, cfg.OrderTimeout)
	e.orders.now = e.now
	return e
}

// Step processes one symbol: snapshot, signal, eligibility, trade, then the
// stop/take exit check.
func (e *engine) Step(ctx context.Context, symbol string) (*types.StepResult, error) {
	logger.Debug(ctx, "Starting trading step", "symbol", symbol)

	snap, err := e.fetch(ctx, symbol)
	if err != nil {
		return nil, err
	}
	price := snap.Price

	decision := e.strategy.Evaluate(ctx, snap.Analysis)
	logger.Decision(ctx, symbol, string(decision), e.strategy.Explain(snap.Analysis),
		"price", price.String(),
		"volatility", snap.Volatility.String(),
	)
	e.observer.OnMarketUpdate(ctx, types.MarketUpdate{
		Symbol:     symbol,
		Price:      price,
		Signal:     decision,
		Indicators: snap.Analysis.Signals(),
	})

	res := &types.StepResult{
		Symbol:   symbol,
		Decision: decision,
		Price:    price,
		Time:     e.now(),
		Reason:   reasonHold,
	}

	if decision != types.DecisionHold {
		if reason := e.eligibility(symbol, snap); reason != "" {
			logger.Debug(ctx, "Trade conditions not met", "symbol", symbol, "decision", string(decision), "reason", reason)
			tr := skipped(reason)
			res.Result, res.Reason = &tr, reason
		} else {
			tr := e.trade(ctx, symbol, decision, price)
			res.Result, res.Reason = &tr, tradeReason(tr, string(decision))
		}
	}

	// One order per symbol per cycle: a submitted signal order, filled or
	// failed, leaves the exit check to the next cycle.
	submitted := res.Result != nil && res.Result.Kind != types.TradeSkipped
	if !submitted {
		if exit := e.orders.checkExit(ctx, symbol, price); exit != exitNone {
			tr := e.orders.executeSell(ctx, symbol, price, string(exit))
			e.afterTrade(ctx, symbol, tr)
			if tr.Kind != types.TradeSkipped || res.Result == nil {
				res.Result, res.Reason = &tr, tradeReason(tr, string(exit))
			}
		}
	}

	logger.Debug(ctx, "Trading step completed", "symbol", symbol, "decision", string(decision), "reason", res.Reason)
	return res, nil
}

func (e *engine) fetch(ctx context.Context, symbol string) (types.Snapshot, error) {
	if e.cfg.SnapshotTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.SnapshotTimeout)
		defer cancel()
	}
	snap, err := e.market.FetchSnapshot(ctx, symbol)
	if err != nil {
		return types.Snapshot{}, fmt.Errorf("%w: %s: %w", types.ErrDataUnavailable, symbol, err)
	}
	if !snap.Price.IsPositive() {
		return types.Snapshot{}, fmt.Errorf("%w: %s: non-positive price %s", types.ErrDataUnavailable, symbol, snap.Price)
	}
	return snap, nil
}

func (e *engine) trade(ctx context.Context, symbol string, decision types.Decision, price decimal.Decimal) types.TradeResult {
	var tr types.TradeResult
	switch decision {
	case types.DecisionBuy:
		balance := e.cfg.AccountBalance.Add(e.perf.totalPnL())
		size := e.orders.positionSize(balance, price, e.cfg.RiskPerTrade)
		tr = e.orders.executeBuy(ctx, symbol, size, price, "signal")
	case types.DecisionSell:
		tr = e.orders.executeSell(ctx, symbol, price, "signal")
	default:
		return skipped(reasonHold)
	}
	e.afterTrade(ctx, symbol, tr)
	return tr
}

// afterTrade emits events for an executed trade and raises failures.
func (e *engine) afterTrade(ctx context.Context, symbol string, tr types.TradeResult) {
	switch tr.Kind {
	case types.TradeExecuted:
		e.allow(symbol)
		e.observer.OnTrade(ctx, *tr.Record)
		if pos, ok := e.orders.position(symbol); ok {
			e.observer.OnPositionUpdate(ctx, symbol, &pos)
		} else {
			e.observer.OnPositionUpdate(ctx, symbol, nil)
		}
	case types.TradeFailed:
		logger.Warn(ctx, "Trade failed, state unchanged", "symbol", symbol, "error", tr.Err)
		e.notifier.NotifyError(ctx, "Trade failed: "+symbol, tr.Err)
	case types.TradeSkipped:
		logger.Debug(ctx, "Trade skipped", "symbol", symbol, "reason", tr.Reason)
	}
}

func tradeReason(tr types.TradeResult, action string) string {
	if tr.Kind == types.TradeExecuted {
		return action
	}
	return tr.Reason
}

// eligibility returns the first failed trade condition, or "".
func (e *engine) eligibility(symbol string, snap types.Snapshot) string {
	if e.cfg.MaxVolatility.IsPositive() && snap.Volatility.GreaterThan(e.cfg.MaxVolatility) {
		return reasonVolatility
	}
	if e.cfg.MinVolume.IsPositive() && snap.Volume24h.LessThan(e.cfg.MinVolume) {
		return reasonVolume
	}
	if e.cfg.MaxSpread.IsPositive() && snap.Spread.GreaterThan(e.cfg.MaxSpread) {
		return reasonSpread
	}
	if lim := e.limiter(symbol); lim != nil && lim.TokensAt(e.now()) < 1 {
		return reasonTradeInterval
	}
	return ""
}

func (e *engine) limiter(symbol string) *rate.Limiter {
	if e.cfg.MinTradeInterval <= 0 {
		return nil
	}
	e.limMu.Lock()
	defer e.limMu.Unlock()
	lim := e.limiters[symbol]
	if lim == nil {
		lim = rate.NewLimiter(rate.Every(e.cfg.MinTradeInterval), 1)
		e.limiters[symbol] = lim
	}
	return lim
}

// allow consumes the symbol's trade token after an executed trade.
func (e *engine) allow(symbol string) {
	if lim := e.limiter(symbol); lim != nil {
		lim.AllowN(e.now(), 1)
	}
}

// RunCycle runs Step for every symbol concurrently and waits for all of
// them. A failing or panicking symbol never affects the others.
func (e *engine) RunCycle(ctx context.Context) []*types.StepResult {
	e.markStarted()
	e.maybeResetDaily(ctx)

	// the cycle finishes even if ctx is cancelled mid-way
	cycleCtx := context.WithoutCancel(ctx)

	results := make([]*types.StepResult, len(e.cfg.Symbols))
	var g errgroup.Group
	if e.cfg.MaxConcurrency > 0 {
		g.SetLimit(e.cfg.MaxConcurrency)
	}
	for i, symbol := range e.cfg.Symbols {
		g.Go(func() error {
			results[i] = e.safeStep(cycleCtx, symbol)
			return nil
		})
	}
	_ = g.Wait()

	e.maybeReportPerformance(cycleCtx)

	out := results[:0]
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (e *engine) safeStep(ctx context.Context, symbol string) (res *types.StepResult) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: panic processing %s: %v", types.ErrInternal, symbol, r)
			logger.ErrorWithErr(ctx, "Symbol processing panicked", err, "symbol", symbol, "stack", string(debug.Stack()))
			e.notifier.NotifyError(ctx, "Internal error: "+symbol, err)
			res = nil
		}
	}()

	res, err := e.Step(ctx, symbol)
	if err != nil {
		if errors.Is(err, types.ErrDataUnavailable) {
			logger.Warn(ctx, "Skipping symbol, market data unavailable", "symbol", symbol, "error", err)
		} else {
			logger.ErrorWithErr(ctx, "Symbol processing failed", err, "symbol", symbol)
			e.notifier.NotifyError(ctx, "Error processing "+symbol, err)
		}
		return nil
	}
	return res
}

func (e *engine) markStarted() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.startedAt.IsZero() {
		e.startedAt = e.now()
	}
	e.stopped = false
}

// maybeResetDaily resets the daily counters once per UTC day.
func (e *engine) maybeResetDaily(ctx context.Context) bool {
	now := e.now()
	day := midnightUTC(now)

	e.mu.Lock()
	if !day.After(e.dayStart) {
		e.mu.Unlock()
		return false
	}
	prevDay := e.dayStart
	e.dayStart = day
	e.mu.Unlock()

	e.orders.resetDaily()
	finished := e.perf.resetDaily(day.Format(time.DateOnly))

	logger.Info(ctx, "Daily metrics reset",
		"previous_day", prevDay.Format(time.DateOnly),
		"trades", finished.Trades,
		"pnl", finished.PnL.String(),
		"wins", finished.Wins,
		"losses", finished.Losses,
	)
	e.notifier.NotifyInfo(ctx, "Daily metrics reset",
		fmt.Sprintf("%s closed with %d trades, pnl %s", finished.Date, finished.Trades, finished.PnL.StringFixed(2)))

	if e.eod != nil {
		if _, err := e.eod.SummarizeDay(prevDay); err != nil {
			logger.Warn(ctx, "EOD summary failed", "day", prevDay.Format(time.DateOnly), "error", err)
		}
	}
	return true
}

func (e *engine) maybeReportPerformance(ctx context.Context) {
	if e.cfg.PerformanceInterval <= 0 {
		return
	}
	now := e.now()
	e.mu.Lock()
	due := now.Sub(e.lastPerf) >= e.cfg.PerformanceInterval
	if due {
		e.lastPerf = now
	}
	e.mu.Unlock()
	if due {
		e.observer.OnPerformance(ctx, e.perf.snapshot())
	}
}

// Shutdown marks the engine stopped and emits a final performance snapshot.
func (e *engine) Shutdown(ctx context.Context) {
	e.mu.Lock()
	e.stopped = true
	e.mu.Unlock()
	e.observer.OnPerformance(ctx, e.perf.snapshot())
}

func (e *engine) Status() types.Status {
	e.mu.Lock()
	started, stopped := e.startedAt, e.stopped
	e.mu.Unlock()

	trades, _ := e.orders.riskState()
	open := e.orders.openSymbols()
	sort.Strings(open)

	st := types.Status{
		Running:       !started.IsZero() && !stopped,
		TradesToday:   trades,
		PnLToday:      e.perf.snapshot().Daily.PnL,
		ActivePairs:   append([]string(nil), e.cfg.Symbols...),
		OpenPositions: len(open),
	}
	if !started.IsZero() {
		st.Uptime = e.now().Sub(started)
	}
	return st
}

func (e *engine) Positions() map[string]types.Position {
	return e.orders.snapshot()
}

func (e *engine) Performance() types.PerformanceMetrics {
	return e.perf.snapshot()
}

func (e *engine) RecentOrders(limit int) []types.SubmittedOrder {
	return e.orders.recentOrders(limit)
}

// TradeHistory returns up to limit of the latest trade records.
func (e *engine) TradeHistory(limit int) []types.TradeRecord {
	return e.perf.recent(limit)
}
