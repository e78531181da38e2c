package eodobs

import (
	"context"
	"time"

	"spot-trading-bot/internal/interfaces"
	"spot-trading-bot/internal/logger"
	"spot-trading-bot/internal/trace"
)

type observableSummarizer struct {
	inner interfaces.EodSummarizer
}

var _ interfaces.EodSummarizer = (*observableSummarizer)(nil)

// Wrap traces and logs every summary run.
func Wrap(s interfaces.EodSummarizer) interfaces.EodSummarizer {
	return &observableSummarizer{inner: s}
}

func (o *observableSummarizer) SummarizeDay(t time.Time) (string, error) {
	ctx, span := trace.StartSpan(context.Background(), "eod.SummarizeDay")
	defer span.End()
	return o.report(ctx, t.UTC().Format(time.DateOnly), func() (string, error) {
		return o.inner.SummarizeDay(t)
	})
}

func (o *observableSummarizer) SummarizeToday() (string, error) {
	ctx, span := trace.StartSpan(context.Background(), "eod.SummarizeToday")
	defer span.End()
	return o.report(ctx, "today", o.inner.SummarizeToday)
}

func (o *observableSummarizer) report(ctx context.Context, date string, run func() (string, error)) (string, error) {
	start := time.Now()
	path, err := run()
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 2, "EOD summary failed", err, "date", date)
		return "", err
	}
	if path == "" {
		logger.InfoSkip(ctx, 2, "No trades for EOD summary", "date", date)
		return "", nil
	}
	logger.InfoSkip(ctx, 2, "EOD summary written",
		"date", date,
		"csv_path", path,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return path, nil
}
