// Package paper is a simulated spot exchange for DRY_RUN mode. Prices follow
// a seeded random walk per symbol; orders fill at the last simulated price.
package paper

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"spot-trading-bot/internal/interfaces"
	"spot-trading-bot/internal/logger"
	"spot-trading-bot/internal/ta"
	"spot-trading-bot/internal/types"
)

const (
	defaultBasePrice = 100.0
	historyBars      = 60
	volumeBars       = 24
	atrPeriod        = 14
	// half-spread as a fraction of price
	halfSpread       = 0.0002
)

var ErrRejected = errors.New("simulated rejection")

type Params struct {
	Seed        int64
	BasePrices  map[string]float64
	FailureRate float64       // probability in [0,1] that an order is rejected
	StepPct     float64       // std dev of one bar's return, in percent
	Latency     time.Duration // simulated order round trip
}

type bars struct {
	highs, lows, closes, volumes []float64
}

// Exchange implements both interfaces.MarketData and interfaces.Executor.
type Exchange struct {
	p Params

	mu     sync.Mutex
	rng    *rand.Rand
	series map[string]*bars
	now    func() time.Time
}

var (
	_ interfaces.MarketData = (*Exchange)(nil)
	_ interfaces.Executor   = (*Exchange)(nil)
)

func New(p Params) *Exchange {
	seed := p.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if p.StepPct <= 0 {
		p.StepPct = 0.5
	}
	return &Exchange{
		p:      p,
		rng:    rand.New(rand.NewSource(seed)),
		series: make(map[string]*bars),
		now:    time.Now,
	}
}

// FetchSnapshot advances the symbol by one bar and returns the resulting
// snapshot with classified indicators.
func (x *Exchange) FetchSnapshot(ctx context.Context, symbol string) (types.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return types.Snapshot{}, fmt.Errorf("%w: %w", types.ErrDataUnavailable, err)
	}

	x.mu.Lock()
	b := x.seriesFor(symbol)
	x.step(b)
	closes := append([]float64(nil), b.closes...)
	last := b.closes[len(b.closes)-1]
	atr := ta.ATR(b.highs, b.lows, b.closes, atrPeriod)
	vol := 0.0
	for _, v := range b.volumes[len(b.volumes)-volumeBars:] {
		vol += v * last
	}
	x.mu.Unlock()

	snap := types.Snapshot{
		Symbol:     symbol,
		Price:      decimal.NewFromFloat(last).Round(8),
		Volume24h:  decimal.NewFromFloat(vol).Round(2),
		Spread:     decimal.NewFromFloat(2 * halfSpread),
		Volatility: decimal.NewFromFloat(atr / last).Round(6),
		Analysis:   ta.Analyze(closes),
		Time:       x.now().UTC(),
	}
	snap.Analysis.Price = snap.Price

	logger.Debug(ctx, "Simulated snapshot",
		"symbol", symbol,
		"price", snap.Price.String(),
		"volatility", snap.Volatility.String(),
	)
	return snap, nil
}

// SubmitMarketOrder fills at the last simulated price unless the simulated
// failure rate rejects it.
func (x *Exchange) SubmitMarketOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	logger.Debug(ctx, "Placing order", "symbol", req.Symbol, "side", string(req.Side), "size", req.Size.String(), "tag", req.Tag)

	if x.p.Latency > 0 {
		select {
		case <-ctx.Done():
			return types.OrderResp{}, ctx.Err()
		case <-time.After(x.p.Latency):
		}
	}
	if !req.Size.IsPositive() {
		return types.OrderResp{}, fmt.Errorf("invalid order size %s", req.Size)
	}

	x.mu.Lock()
	reject := x.p.FailureRate > 0 && x.rng.Float64() < x.p.FailureRate
	b := x.seriesFor(req.Symbol)
	fill := b.closes[len(b.closes)-1]
	x.mu.Unlock()

	if reject {
		return types.OrderResp{}, fmt.Errorf("%w: %s %s", ErrRejected, req.Side, req.Symbol)
	}

	resp := types.OrderResp{
		OrderID: "SIM-" + uuid.NewString(),
		Status:  "SIMULATED",
		Message: fmt.Sprintf("filled %s @ %s", req.Size, decimal.NewFromFloat(fill).Round(8)),
	}
	logger.Info(ctx, "Simulated order placed",
		"symbol", req.Symbol,
		"side", string(req.Side),
		"size", req.Size.String(),
		"order_id", resp.OrderID,
	)
	return resp, nil
}

// seriesFor returns the series for symbol, seeding history on first use.
// Callers hold x.mu.
func (x *Exchange) seriesFor(symbol string) *bars {
	if b, ok := x.series[symbol]; ok {
		return b
	}
	base := x.p.BasePrices[symbol]
	if base <= 0 {
		base = defaultBasePrice
	}
	b := &bars{}
	b.closes = append(b.closes, base)
	b.highs = append(b.highs, base)
	b.lows = append(b.lows, base)
	b.volumes = append(b.volumes, x.volume())
	for i := 1; i < historyBars; i++ {
		x.step(b)
	}
	x.series[symbol] = b
	return b
}

func (x *Exchange) step(b *bars) {
	prev := b.closes[len(b.closes)-1]
	ret := x.rng.NormFloat64() * x.p.StepPct / 100
	c := math.Max(prev*(1+ret), prev*0.5)
	wick := math.Abs(x.rng.NormFloat64()) * x.p.StepPct / 200 * c
	h := math.Max(prev, c) + wick
	l := math.Max(math.Min(prev, c)-wick, c*0.01)

	b.closes = append(b.closes, c)
	b.highs = append(b.highs, h)
	b.lows = append(b.lows, l)
	b.volumes = append(b.volumes, x.volume())
	if len(b.closes) > historyBars {
		n := len(b.closes) - historyBars
		b.closes, b.highs, b.lows, b.volumes = b.closes[n:], b.highs[n:], b.lows[n:], b.volumes[n:]
	}
}

func (x *Exchange) volume() float64 {
	return 50 + x.rng.Float64()*950
}
