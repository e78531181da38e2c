// Package tradelog keeps the append-only JSONL journals: executed trades and
// per-cycle decisions, one file per UTC day.
package tradelog

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"spot-trading-bot/internal/interfaces"
	"spot-trading-bot/internal/logger"
	"spot-trading-bot/internal/types"
)

const (
	tradesDir    = "trades"
	decisionsDir = "decisions"
	ext          = ".jsonl"
)

// DecisionEntry is one line of the decisions journal.
type DecisionEntry struct {
	Time       time.Time               `json:"time"`
	Symbol     string                  `json:"symbol"`
	Decision   types.Decision          `json:"decision"`
	Price      string                  `json:"price"`
	Indicators map[string]types.Signal `json:"indicators,omitempty"`
}

// Journal writes trade and decision records under dir.
type Journal struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

var _ interfaces.Observer = (*Journal)(nil)

func New(dir string) *Journal {
	if dir == "" {
		dir = "logs"
	}
	return &Journal{dir: dir, now: time.Now}
}

// TradeFile is the journal path holding the trades of day (UTC).
func TradeFile(dir string, day time.Time) string {
	return filepath.Join(dir, tradesDir, day.UTC().Format(time.DateOnly)+ext)
}

func decisionFile(dir string, day time.Time) string {
	return filepath.Join(dir, decisionsDir, day.UTC().Format(time.DateOnly)+ext)
}

func (j *Journal) Append(rec types.TradeRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = j.now()
	}
	rec.Timestamp = rec.Timestamp.UTC()
	return j.appendLine(TradeFile(j.dir, rec.Timestamp), rec)
}

func (j *Journal) AppendDecision(e DecisionEntry) error {
	if e.Time.IsZero() {
		e.Time = j.now()
	}
	e.Time = e.Time.UTC()
	return j.appendLine(decisionFile(j.dir, e.Time), e)
}

func (j *Journal) appendLine(path string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintln(f, string(b))
	return err
}

func (j *Journal) OnTrade(ctx context.Context, rec types.TradeRecord) {
	if err := j.Append(rec); err != nil {
		logger.Warn(ctx, "Failed to journal trade", "symbol", rec.Symbol, "order_id", rec.OrderID, "error", err)
	}
}

func (j *Journal) OnMarketUpdate(ctx context.Context, u types.MarketUpdate) {
	err := j.AppendDecision(DecisionEntry{
		Symbol:     u.Symbol,
		Decision:   u.Signal,
		Price:      u.Price.String(),
		Indicators: u.Indicators,
	})
	if err != nil {
		logger.Warn(ctx, "Failed to journal decision", "symbol", u.Symbol, "error", err)
	}
}

func (j *Journal) OnPositionUpdate(context.Context, string, *types.Position) {}

func (j *Journal) OnPerformance(context.Context, types.PerformanceMetrics) {}

// CompressOlder gzips journal files last modified more than retentionDays ago.
func (j *Journal) CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := j.now().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(j.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, ext) {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		return gzipFile(p)
	})
}

// gzipFile moves p into p.gz. When the archive already exists the content is
// appended as a new gzip member, which readers see as one continuous stream.
func gzipFile(p string) error {
	gz := p + ".gz"
	info, statErr := os.Stat(gz)
	appending := statErr == nil

	in, err := os.Open(p)
	if err != nil {
		return err
	}
	defer in.Close()

	var before int64
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appending {
		before = info.Size()
		flags = os.O_WRONLY | os.O_APPEND
	}
	out, err := os.OpenFile(gz, flags, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	_, copyErr := io.Copy(gw, in)
	closeErr := gw.Close()
	if err := out.Close(); err != nil && closeErr == nil {
		closeErr = err
	}
	if copyErr != nil || closeErr != nil {
		if appending {
			_ = os.Truncate(gz, before)
		} else {
			_ = os.Remove(gz)
		}
		if copyErr != nil {
			return copyErr
		}
		return closeErr
	}
	return os.Remove(p)
}
