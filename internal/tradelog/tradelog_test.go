package tradelog

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spot-trading-bot/internal/types"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	require.NoError(t, sc.Err())
	return out
}

func TestAppendWritesOneFilePerUTCDay(t *testing.T) {
	dir := t.TempDir()
	j := New(dir)
	pnl := decimal.RequireFromString("10")

	// 23:30 in UTC-5 is already the next UTC day
	ny := time.FixedZone("EST", -5*3600)
	require.NoError(t, j.Append(types.TradeRecord{
		Timestamp: time.Date(2024, 3, 1, 23, 30, 0, 0, ny),
		Kind:      types.TradeOpen,
		Symbol:    "BTC-USDT",
		Price:     decimal.NewFromInt(50000),
		Size:      decimal.RequireFromString("0.01"),
		OrderID:   "SIM-1",
	}))
	require.NoError(t, j.Append(types.TradeRecord{
		Timestamp: time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC),
		Kind:      types.TradeClose,
		Symbol:    "BTC-USDT",
		Price:     decimal.NewFromInt(51000),
		Size:      decimal.RequireFromString("0.01"),
		PnL:       &pnl,
		OrderID:   "SIM-2",
	}))

	lines := readLines(t, TradeFile(dir, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)))
	require.Len(t, lines, 2)

	var rec types.TradeRecord
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	assert.Equal(t, types.TradeClose, rec.Kind)
	require.NotNil(t, rec.PnL)
	assert.True(t, pnl.Equal(*rec.PnL))
	assert.NoFileExists(t, TradeFile(dir, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func TestObserverWritesDecisions(t *testing.T) {
	dir := t.TempDir()
	j := New(dir)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return now }

	j.OnMarketUpdate(context.Background(), types.MarketUpdate{
		Symbol:     "ETH-USDT",
		Price:      decimal.NewFromInt(3000),
		Signal:     types.DecisionHold,
		Indicators: map[string]types.Signal{"rsi": types.SignalHold},
	})
	j.OnTrade(context.Background(), types.TradeRecord{Kind: types.TradeOpen, Symbol: "ETH-USDT"})

	lines := readLines(t, decisionFile(dir, now))
	require.Len(t, lines, 1)
	var e DecisionEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &e))
	assert.Equal(t, "3000", e.Price)
	assert.Equal(t, types.SignalHold, e.Indicators["rsi"])

	assert.FileExists(t, TradeFile(dir, now))
}

func TestCompressOlder(t *testing.T) {
	dir := t.TempDir()
	j := New(dir)

	old := filepath.Join(dir, tradesDir, "2024-01-01.jsonl")
	fresh := filepath.Join(dir, tradesDir, "2024-03-01.jsonl")
	require.NoError(t, os.MkdirAll(filepath.Dir(old), 0o755))
	require.NoError(t, os.WriteFile(old, []byte("{\"symbol\":\"BTC-USDT\"}\n"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte("{}\n"), 0o644))
	past := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(old, past, past))

	require.NoError(t, j.CompressOlder(7))

	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)

	f, err := os.Open(old + ".gz")
	require.NoError(t, err)
	defer f.Close()
	gr, err := gzip.NewReader(f)
	require.NoError(t, err)
	var rec map[string]string
	require.NoError(t, json.NewDecoder(gr).Decode(&rec))
	assert.Equal(t, "BTC-USDT", rec["symbol"])

	assert.NoError(t, j.CompressOlder(0))
}

func TestCompressOlderAppendsToExistingArchive(t *testing.T) {
	dir := t.TempDir()
	j := New(dir)

	old := filepath.Join(dir, tradesDir, "2024-01-01.jsonl")
	require.NoError(t, os.MkdirAll(filepath.Dir(old), 0o755))

	// an earlier pass archived the first line; the day file was written again afterwards
	f, err := os.Create(old + ".gz")
	require.NoError(t, err)
	gw := gzip.NewWriter(f)
	_, err = gw.Write([]byte("{\"order_id\":\"SIM-1\"}\n"))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	require.NoError(t, f.Close())

	require.NoError(t, os.WriteFile(old, []byte("{\"order_id\":\"SIM-2\"}\n"), 0o644))
	past := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(old, past, past))

	require.NoError(t, j.CompressOlder(7))
	assert.NoFileExists(t, old)

	in, err := os.Open(old + ".gz")
	require.NoError(t, err)
	defer in.Close()
	gr, err := gzip.NewReader(in)
	require.NoError(t, err)

	var ids []string
	dec := json.NewDecoder(gr)
	for dec.More() {
		var rec map[string]string
		require.NoError(t, dec.Decode(&rec))
		ids = append(ids, rec["order_id"])
	}
	assert.Equal(t, []string{"SIM-1", "SIM-2"}, ids)
}
