package strategy

import (
	"context"

	"spot-trading-bot/internal/interfaces"
	"spot-trading-bot/internal/logger"
	"spot-trading-bot/internal/types"
)

// Noop is a fallback strategy that always decides HOLD. It lets the bot run
// in observe-only mode.
type Noop struct{}

func NewNoop() Noop {
	return Noop{}
}

func (Noop) Evaluate(ctx context.Context, _ types.AnalysisResult) types.Decision {
	logger.Debug(ctx, "Noop strategy called - always returns HOLD")
	return types.DecisionHold
}

func (Noop) Explain(types.AnalysisResult) string { return "noop_strategy" }

// ByName resolves a configured strategy name. Unknown names fall back to the
// majority vote.
func ByName(name string) interfaces.Strategy {
	switch name {
	case "noop", "hold":
		return Noop{}
	default:
		return Majority{}
	}
}
