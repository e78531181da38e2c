package events

import (
	"context"
	"fmt"

	"spot-trading-bot/internal/interfaces"
	"spot-trading-bot/internal/logger"
	"spot-trading-bot/internal/types"
)

// Fanout forwards every callback to each observer in order. A panicking
// observer is logged and skipped.
type Fanout []interfaces.Observer

var _ interfaces.Observer = Fanout(nil)

func (f Fanout) each(ctx context.Context, name string, fn func(interfaces.Observer)) {
	for _, o := range f {
		if o == nil {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error(ctx, "Observer panicked", "callback", name, "observer", fmt.Sprintf("%T", o), "panic", fmt.Sprint(r))
				}
			}()
			fn(o)
		}()
	}
}

func (f Fanout) OnMarketUpdate(ctx context.Context, u types.MarketUpdate) {
	f.each(ctx, "OnMarketUpdate", func(o interfaces.Observer) { o.OnMarketUpdate(ctx, u) })
}

func (f Fanout) OnPositionUpdate(ctx context.Context, symbol string, pos *types.Position) {
	f.each(ctx, "OnPositionUpdate", func(o interfaces.Observer) { o.OnPositionUpdate(ctx, symbol, pos) })
}

func (f Fanout) OnTrade(ctx context.Context, rec types.TradeRecord) {
	f.each(ctx, "OnTrade", func(o interfaces.Observer) { o.OnTrade(ctx, rec) })
}

func (f Fanout) OnPerformance(ctx context.Context, m types.PerformanceMetrics) {
	f.each(ctx, "OnPerformance", func(o interfaces.Observer) { o.OnPerformance(ctx, m) })
}
