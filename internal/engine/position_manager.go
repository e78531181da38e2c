package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"spot-trading-bot/internal/types"
)

const (
	reasonAlreadyOpen = "already open"
	reasonNoPosition  = "no position"
)

// positionManager is the ledger of open positions, at most one per symbol.
// Each symbol moves FLAT -> OPEN -> FLAT; anything else is a no-op.
type positionManager struct {
	positions map[string]*types.Position
}

func newPositionManager() *positionManager {
	return &positionManager{
		positions: make(map[string]*types.Position),
	}
}

// get returns a copy of the open position for symbol.
func (pm *positionManager) get(symbol string) (types.Position, bool) {
	p := pm.positions[symbol]
	if p == nil {
		return types.Position{}, false
	}
	return *p, true
}

func (pm *positionManager) has(symbol string) bool {
	return pm.positions[symbol] != nil
}

// open records a filled buy. It reports reasonAlreadyOpen and leaves the
// ledger untouched if the symbol is already OPEN.
func (pm *positionManager) open(symbol string, size, entryPrice, stopLoss, takeProfit decimal.Decimal, orderID string, at time.Time) (types.Position, string) {
	if pm.has(symbol) {
		return types.Position{}, reasonAlreadyOpen
	}
	p := &types.Position{
		Symbol:     symbol,
		Size:       size,
		EntryPrice: entryPrice,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		OrderID:    orderID,
		OpenedAt:   at,
	}
	pm.positions[symbol] = p
	return *p, ""
}

// close removes and returns the position, or reports reasonNoPosition.
func (pm *positionManager) close(symbol string) (types.Position, string) {
	p := pm.positions[symbol]
	if p == nil {
		return types.Position{}, reasonNoPosition
	}
	delete(pm.positions, symbol)
	return *p, ""
}

// snapshot copies the ledger; callers never see the live map.
func (pm *positionManager) snapshot() map[string]types.Position {
	out := make(map[string]types.Position, len(pm.positions))
	for sym, p := range pm.positions {
		out[sym] = *p
	}
	return out
}

func (pm *positionManager) count() int {
	return len(pm.positions)
}
