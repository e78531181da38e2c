package interfaces

import (
	"context"

	"spot-trading-bot/internal/types"
)

type Strategy interface {
	Evaluate(ctx context.Context, analysis types.AnalysisResult) types.Decision
	Explain(analysis types.AnalysisResult) string
}
