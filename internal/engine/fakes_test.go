package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"spot-trading-bot/internal/types"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testLimits() RiskLimits {
	return RiskLimits{
		MaxPositionSize: d("1000"),
		MaxDailyLoss:    d("100"),
		MaxTradesPerDay: 10,
		StopLossPct:     d("2"),
		TakeProfitPct:   d("4"),
	}
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(dur time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(dur)
}

// fakeExecutor fills every order unless failWith is set.
type fakeExecutor struct {
	mu       sync.Mutex
	failWith error
	delay    time.Duration
	blockCtx bool
	calls    []types.OrderReq
	seq      atomic.Int64
}

func (f *fakeExecutor) SubmitMarketOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	failWith, delay, block := f.failWith, f.delay, f.blockCtx
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return types.OrderResp{}, ctx.Err()
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	if failWith != nil {
		return types.OrderResp{}, failWith
	}
	return types.OrderResp{OrderID: fmt.Sprintf("T-%d", f.seq.Add(1)), Status: "FILLED"}, nil
}

func (f *fakeExecutor) setFail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWith = err
}

func (f *fakeExecutor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeMarket serves fixed snapshots. A symbol mapped to errPanic panics.
type fakeMarket struct {
	mu    sync.Mutex
	snaps map[string]types.Snapshot
	errs  map[string]error
}

var errPanic = errors.New("panic please")

func newFakeMarket() *fakeMarket {
	return &fakeMarket{snaps: map[string]types.Snapshot{}, errs: map[string]error{}}
}

func (m *fakeMarket) set(symbol, price string, sig types.Signal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[symbol] = types.Snapshot{
		Symbol:     symbol,
		Price:      d(price),
		Volume24h:  d("1000000"),
		Spread:     d("0.01"),
		Volatility: d("0.01"),
		Analysis:   types.AnalysisResult{Price: d(price), RSI: types.SignalPtr(sig)},
	}
}

func (m *fakeMarket) update(symbol string, fn func(*types.Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.snaps[symbol]
	fn(&s)
	m.snaps[symbol] = s
}

func (m *fakeMarket) fail(symbol string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[symbol] = err
}

func (m *fakeMarket) FetchSnapshot(ctx context.Context, symbol string) (types.Snapshot, error) {
	m.mu.Lock()
	err, snap := m.errs[symbol], m.snaps[symbol]
	m.mu.Unlock()
	if errors.Is(err, errPanic) {
		panic("exchange client exploded")
	}
	if err != nil {
		return types.Snapshot{}, err
	}
	return snap, nil
}

// rsiStrategy turns the RSI sub-signal straight into a decision.
type rsiStrategy struct{}

func (rsiStrategy) Evaluate(_ context.Context, a types.AnalysisResult) types.Decision {
	if a.RSI == nil {
		return types.DecisionHold
	}
	switch *a.RSI {
	case types.SignalBuy:
		return types.DecisionBuy
	case types.SignalSell:
		return types.DecisionSell
	}
	return types.DecisionHold
}

func (rsiStrategy) Explain(types.AnalysisResult) string { return "rsi only" }

type recordingObserver struct {
	mu          sync.Mutex
	markets     []types.MarketUpdate
	trades      []types.TradeRecord
	positions   map[string]*types.Position
	performance []types.PerformanceMetrics
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{positions: map[string]*types.Position{}}
}

func (o *recordingObserver) OnMarketUpdate(_ context.Context, u types.MarketUpdate) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.markets = append(o.markets, u)
}

func (o *recordingObserver) OnPositionUpdate(_ context.Context, symbol string, p *types.Position) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.positions[symbol] = p
}

func (o *recordingObserver) OnTrade(_ context.Context, r types.TradeRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.trades = append(o.trades, r)
}

func (o *recordingObserver) OnPerformance(_ context.Context, m types.PerformanceMetrics) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.performance = append(o.performance, m)
}

type recordingNotifier struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (n *recordingNotifier) NotifyInfo(_ context.Context, title, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.infos = append(n.infos, title)
}

func (n *recordingNotifier) NotifyError(_ context.Context, title string, _ error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, title)
}

type fakeEOD struct {
	mu   sync.Mutex
	days []time.Time
}

func (f *fakeEOD) SummarizeDay(t time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.days = append(f.days, t)
	return "", nil
}

func (f *fakeEOD) SummarizeToday() (string, error) { return "", nil }
