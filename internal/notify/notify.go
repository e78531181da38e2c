// Package notify delivers operator alerts (start/stop, trades, errors,
// performance) to the configured channels.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"spot-trading-bot/internal/interfaces"
	"spot-trading-bot/internal/logger"
	"spot-trading-bot/internal/types"
)

type Level string

const (
	LevelInfo        Level = "info"
	LevelError       Level = "error"
	LevelTrade       Level = "trade"
	LevelPerformance Level = "performance"
)

type Message struct {
	Level Level
	Title string
	Text  string
	Time  time.Time
}

// Channel is one delivery target.
type Channel interface {
	Name() string
	Enabled() bool
	Send(ctx context.Context, msg Message) error
}

const defaultQueueSize = 64

// Manager queues messages and delivers them from a single goroutine so
// engine callers never wait on the network.
type Manager struct {
	channels []Channel
	now      func() time.Time

	mu     sync.RWMutex
	closed bool
	queue  chan Message
	done   chan struct{}
}

var (
	_ interfaces.Notifier = (*Manager)(nil)
	_ interfaces.Observer = (*Manager)(nil)
)

func NewManager(channels ...Channel) *Manager {
	m := &Manager{
		queue: make(chan Message, defaultQueueSize),
		done:  make(chan struct{}),
		now:   time.Now,
	}
	for _, c := range channels {
		if c != nil && c.Enabled() {
			m.channels = append(m.channels, c)
		}
	}
	go m.run()
	return m
}

func (m *Manager) run() {
	defer close(m.done)
	for msg := range m.queue {
		if err := m.deliver(context.Background(), msg); err != nil {
			logger.Warn(context.Background(), "Notification delivery failed", "title", msg.Title, "error", err)
		}
	}
}

func (m *Manager) deliver(ctx context.Context, msg Message) error {
	var errs []error
	for _, c := range m.channels {
		if err := c.Send(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Send enqueues msg. It never blocks; a full queue drops the message.
func (m *Manager) Send(ctx context.Context, msg Message) {
	if msg.Time.IsZero() {
		msg.Time = m.now()
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		logger.Debug(ctx, "Notification after close dropped", "title", msg.Title)
		return
	}
	select {
	case m.queue <- msg:
	default:
		logger.Warn(ctx, "Notification queue full, dropping message", "title", msg.Title)
	}
}

// Close flushes queued messages, waiting at most until ctx is done.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.queue)
	}
	m.mu.Unlock()

	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) NotifyInfo(ctx context.Context, title, message string) {
	m.Send(ctx, Message{Level: LevelInfo, Title: title, Text: message})
}

func (m *Manager) NotifyError(ctx context.Context, title string, err error) {
	text := "unknown error"
	if err != nil {
		text = err.Error()
	}
	m.Send(ctx, Message{Level: LevelError, Title: title, Text: text})
}

func (m *Manager) OnMarketUpdate(context.Context, types.MarketUpdate) {}

func (m *Manager) OnPositionUpdate(context.Context, string, *types.Position) {}

func (m *Manager) OnTrade(ctx context.Context, rec types.TradeRecord) {
	m.Send(ctx, Message{Level: LevelTrade, Title: tradeTitle(rec), Text: tradeText(rec), Time: rec.Timestamp})
}

func (m *Manager) OnPerformance(ctx context.Context, p types.PerformanceMetrics) {
	m.Send(ctx, Message{
		Level: LevelPerformance,
		Title: "Performance update",
		Text: fmt.Sprintf("Trades: %d\nWin rate: %s%%\nTotal PnL: %s\nDaily PnL: %s",
			p.TotalTrades, p.WinRate.StringFixed(2), p.TotalPnL.StringFixed(2), p.Daily.PnL.StringFixed(2)),
	})
}

func tradeTitle(rec types.TradeRecord) string {
	if rec.Kind == types.TradeOpen {
		return "Trade opened: " + rec.Symbol
	}
	if rec.PnL != nil && rec.PnL.IsNegative() {
		return "Trade closed at a loss: " + rec.Symbol
	}
	return "Trade closed: " + rec.Symbol
}

func tradeText(rec types.TradeRecord) string {
	text := fmt.Sprintf("Price: %s\nSize: %s\nOrder: %s", rec.Price, rec.Size, rec.OrderID)
	if rec.PnL != nil {
		text += "\nPnL: " + rec.PnL.StringFixed(2)
	}
	if rec.Reason != "" {
		text += "\nReason: " + rec.Reason
	}
	return text
}
