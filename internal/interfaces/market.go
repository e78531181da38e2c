package interfaces

import (
	"context"

	"spot-trading-bot/internal/types"
)

// MarketData returns the latest snapshot for a symbol. Implementations wrap
// ErrDataUnavailable when the exchange has nothing usable.
type MarketData interface {
	FetchSnapshot(ctx context.Context, symbol string) (types.Snapshot, error)
}
