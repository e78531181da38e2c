package interfaces

import (
	"context"

	"spot-trading-bot/internal/types"
)

type Engine interface {
	Step(ctx context.Context, symbol string) (*types.StepResult, error)
	RunCycle(ctx context.Context) []*types.StepResult
	Status() types.Status
	Positions() map[string]types.Position
	Performance() types.PerformanceMetrics
	TradeHistory(limit int) []types.TradeRecord
	// RecentOrders lists the latest filled adapter orders for diagnostics.
	RecentOrders(limit int) []types.SubmittedOrder
	Shutdown(ctx context.Context)
}
