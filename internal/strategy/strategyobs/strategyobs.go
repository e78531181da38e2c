package strategyobs

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"spot-trading-bot/internal/interfaces"
	"spot-trading-bot/internal/logger"
	"spot-trading-bot/internal/trace"
	"spot-trading-bot/internal/types"
)

// observableStrategy wraps a Strategy with logging and tracing
type observableStrategy struct {
	strategy interfaces.Strategy
}

var _ interfaces.Strategy = (*observableStrategy)(nil)

func Wrap(s interfaces.Strategy) interfaces.Strategy {
	return &observableStrategy{
		strategy: s,
	}
}

func (so *observableStrategy) Evaluate(ctx context.Context, a types.AnalysisResult) types.Decision {
	ctx, span := trace.StartSpan(ctx, "strategy.Evaluate")
	defer span.End()

	decision := so.strategy.Evaluate(ctx, a)
	span.SetAttributes(
		attribute.String("decision", string(decision)),
		attribute.String("price", a.Price.String()),
	)

	// DebugSkip(1) reports the engine as the caller, not this wrapper
	logger.DebugSkip(ctx, 1, "Strategy evaluated",
		"price", a.Price.String(),
		"decision", string(decision),
	)
	return decision
}

func (so *observableStrategy) Explain(a types.AnalysisResult) string {
	return so.strategy.Explain(a)
}
