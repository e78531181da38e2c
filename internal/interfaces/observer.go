package interfaces

import (
	"context"

	"spot-trading-bot/internal/types"
)

// Observer receives engine events. Implementations must not block for long;
// they are called from the cycle goroutines.
type Observer interface {
	OnMarketUpdate(ctx context.Context, update types.MarketUpdate)
	// pos is nil when the symbol went flat.
	OnPositionUpdate(ctx context.Context, symbol string, pos *types.Position)
	OnTrade(ctx context.Context, rec types.TradeRecord)
	OnPerformance(ctx context.Context, m types.PerformanceMetrics)
}

type Notifier interface {
	NotifyInfo(ctx context.Context, title, message string)
	NotifyError(ctx context.Context, title string, err error)
}
