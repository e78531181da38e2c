package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spot-trading-bot/internal/types"
)

type memChannel struct {
	mu       sync.Mutex
	enabled  bool
	failWith error
	msgs     []Message
}

func (c *memChannel) Name() string  { return "mem" }
func (c *memChannel) Enabled() bool { return c.enabled }

func (c *memChannel) Send(_ context.Context, msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return c.failWith
}

func closeManager(t *testing.T, m *Manager) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.Close(ctx))
}

func TestManagerDeliversToEnabledChannels(t *testing.T) {
	on := &memChannel{enabled: true}
	off := &memChannel{enabled: false}
	m := NewManager(on, off, nil)
	ctx := context.Background()

	m.NotifyInfo(ctx, "Bot started", "2 pairs")
	m.NotifyError(ctx, "Trade failed: BTC-USDT", errors.New("rejected"))
	closeManager(t, m)

	require.Len(t, on.msgs, 2)
	assert.Equal(t, LevelInfo, on.msgs[0].Level)
	assert.Equal(t, "2 pairs", on.msgs[0].Text)
	assert.False(t, on.msgs[0].Time.IsZero())
	assert.Equal(t, LevelError, on.msgs[1].Level)
	assert.Equal(t, "rejected", on.msgs[1].Text)
	assert.Empty(t, off.msgs)
}

func TestManagerSurvivesChannelErrors(t *testing.T) {
	bad := &memChannel{enabled: true, failWith: errors.New("down")}
	good := &memChannel{enabled: true}
	m := NewManager(bad, good)

	m.NotifyInfo(context.Background(), "a", "b")
	closeManager(t, m)
	assert.Len(t, good.msgs, 1)

	// sending after close is a no-op
	m.NotifyInfo(context.Background(), "late", "")
	assert.Len(t, good.msgs, 1)
}

func TestOnTradeMessages(t *testing.T) {
	ch := &memChannel{enabled: true}
	m := NewManager(ch)
	ctx := context.Background()
	loss := decimal.RequireFromString("-12.5")

	m.OnTrade(ctx, types.TradeRecord{Kind: types.TradeOpen, Symbol: "BTC-USDT", Price: decimal.NewFromInt(50000), Size: decimal.RequireFromString("0.01"), OrderID: "SIM-1"})
	m.OnTrade(ctx, types.TradeRecord{Kind: types.TradeClose, Symbol: "BTC-USDT", Price: decimal.NewFromInt(48750), Size: decimal.RequireFromString("0.01"), PnL: &loss, Reason: "stop_loss"})
	m.OnPerformance(ctx, types.PerformanceMetrics{TotalTrades: 1, TotalPnL: loss})
	m.OnMarketUpdate(ctx, types.MarketUpdate{Symbol: "BTC-USDT"})
	closeManager(t, m)

	require.Len(t, ch.msgs, 3)
	assert.Equal(t, "Trade opened: BTC-USDT", ch.msgs[0].Title)
	assert.Equal(t, "Trade closed at a loss: BTC-USDT", ch.msgs[1].Title)
	assert.Contains(t, ch.msgs[1].Text, "PnL: -12.50")
	assert.Contains(t, ch.msgs[1].Text, "Reason: stop_loss")
	assert.Equal(t, LevelPerformance, ch.msgs[2].Level)
	assert.Contains(t, ch.msgs[2].Text, "Total PnL: -12.50")
}

func TestTelegramSend(t *testing.T) {
	var (
		mu    sync.Mutex
		got   sendMessage
		path  string
		agent string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		path = r.URL.Path
		agent = r.Header.Get("User-Agent")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegram(TelegramConfig{BotToken: "123:abc", ChatID: "42", Enabled: true, BaseURL: srv.URL})
	require.True(t, tg.Enabled())

	err := tg.Send(context.Background(), Message{Level: LevelInfo, Title: "Bot started", Text: "hello"})
	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/bot123:abc/sendMessage", path)
	assert.Equal(t, "spot-trading-bot", agent)
	assert.Equal(t, "42", got.ChatID)
	assert.Equal(t, "Markdown", got.ParseMode)
	assert.Contains(t, got.Text, "*Bot started*")
	assert.Contains(t, got.Text, "hello")
}

func TestTelegramNotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	tg := NewTelegram(TelegramConfig{BotToken: "t", ChatID: "c", Enabled: true, BaseURL: srv.URL})
	err := tg.Send(context.Background(), Message{Title: "x"})
	assert.EqualError(t, err, "telegram: chat not found")
}

func TestTelegramDisabledWithoutCredentials(t *testing.T) {
	assert.False(t, NewTelegram(TelegramConfig{Enabled: true}).Enabled())
	assert.False(t, NewTelegram(TelegramConfig{BotToken: "t", ChatID: "c"}).Enabled())
}
