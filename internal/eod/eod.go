// Package eod turns a day of the trade journal into a per-symbol CSV summary.
package eod

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"spot-trading-bot/internal/interfaces"
	"spot-trading-bot/internal/tradelog"
	"spot-trading-bot/internal/types"
)

var header = []string{
	"symbol", "buys", "buy_size", "buy_avg", "sells", "sell_size", "sell_avg",
	"realized_pnl", "wins", "losses", "gross_buy_value", "gross_sell_value",
}

type Summarizer struct {
	dir string
	now func() time.Time
}

var _ interfaces.EodSummarizer = (*Summarizer)(nil)

// New reads journals and writes summaries under dir.
func New(dir string) *Summarizer {
	if dir == "" {
		dir = "logs"
	}
	return &Summarizer{dir: dir, now: time.Now}
}

func (s *Summarizer) SummarizeToday() (string, error) {
	return s.SummarizeDay(s.now())
}

// SummarizeDay aggregates the journal of t's UTC day. It returns an empty
// path and no error when the day has no trades.
func (s *Summarizer) SummarizeDay(t time.Time) (string, error) {
	rows, err := s.aggregate(tradelog.TradeFile(s.dir, t))
	if err != nil || len(rows) == 0 {
		return "", err
	}
	out := CSVPath(s.dir, t)
	if err := writeCSV(out, rows); err != nil {
		return "", err
	}
	return out, nil
}

func (s *Summarizer) aggregate(path string) ([]*aggRow, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	aggs := map[string]*aggRow{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec types.TradeRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil || rec.Symbol == "" {
			continue
		}
		row := aggs[rec.Symbol]
		if row == nil {
			row = &aggRow{Symbol: rec.Symbol}
			aggs[rec.Symbol] = row
		}
		value := rec.Size.Mul(rec.Price)
		switch rec.Kind {
		case types.TradeOpen:
			row.Buys++
			row.BuySize = row.BuySize.Add(rec.Size)
			row.BuyValue = row.BuyValue.Add(value)
		case types.TradeClose:
			row.Sells++
			row.SellSize = row.SellSize.Add(rec.Size)
			row.SellValue = row.SellValue.Add(value)
			if rec.PnL != nil {
				row.RealizedPnL = row.RealizedPnL.Add(*rec.PnL)
				if rec.PnL.IsPositive() {
					row.Wins++
				} else {
					row.Losses++
				}
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	rows := make([]*aggRow, 0, len(aggs))
	for _, r := range aggs {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Symbol < rows[j].Symbol })
	return rows, nil
}

func writeCSV(path string, rows []*aggRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.Write(header); err != nil {
		return err
	}
	total := aggRow{Symbol: "TOTAL"}
	for _, r := range rows {
		if err := w.Write([]string{
			r.Symbol,
			strconv.Itoa(r.Buys), r.BuySize.String(), r.avgBuy().StringFixed(4),
			strconv.Itoa(r.Sells), r.SellSize.String(), r.avgSell().StringFixed(4),
			r.RealizedPnL.StringFixed(2),
			strconv.Itoa(r.Wins), strconv.Itoa(r.Losses),
			r.BuyValue.StringFixed(2), r.SellValue.StringFixed(2),
		}); err != nil {
			return err
		}
		total.Buys += r.Buys
		total.Sells += r.Sells
		total.Wins += r.Wins
		total.Losses += r.Losses
		total.RealizedPnL = total.RealizedPnL.Add(r.RealizedPnL)
		total.BuyValue = total.BuyValue.Add(r.BuyValue)
		total.SellValue = total.SellValue.Add(r.SellValue)
	}
	if err := w.Write([]string{
		total.Symbol,
		strconv.Itoa(total.Buys), "", "",
		strconv.Itoa(total.Sells), "", "",
		total.RealizedPnL.StringFixed(2),
		strconv.Itoa(total.Wins), strconv.Itoa(total.Losses),
		total.BuyValue.StringFixed(2), total.SellValue.StringFixed(2),
	}); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
