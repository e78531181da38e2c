package engine

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"spot-trading-bot/internal/interfaces"
	"spot-trading-bot/internal/logger"
	"spot-trading-bot/internal/types"
)

// Run drives eng.RunCycle every interval until ctx is cancelled. The first
// cycle starts immediately. A cycle in progress always completes; a
// panicking cycle is logged and the loop waits for the next tick.
func Run(ctx context.Context, eng interfaces.Engine, interval time.Duration, onCycle func([]*types.StepResult)) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		results, err := runCycleSafe(ctx, eng)
		if err != nil {
			logger.ErrorWithErr(ctx, "Trading cycle failed, retrying next interval", err)
		} else if onCycle != nil {
			onCycle(results)
		}

		select {
		case <-ctx.Done():
			logger.Info(ctx, "Scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}

func runCycleSafe(ctx context.Context, eng interfaces.Engine) (results []*types.StepResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: cycle panic: %v\n%s", types.ErrInternal, r, debug.Stack())
		}
	}()
	return eng.RunCycle(ctx), nil
}
