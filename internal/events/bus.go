// Package events turns engine callbacks into typed events and fans them out
// to in-process subscribers and external sinks.
package events

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"spot-trading-bot/internal/interfaces"
	"spot-trading-bot/internal/logger"
	"spot-trading-bot/internal/types"
)

type EventType string

const (
	EventPriceUpdate    EventType = "PRICE_UPDATE"
	EventPositionUpdate EventType = "POSITION_UPDATE"
	EventTradeOpened    EventType = "TRADE_OPENED"
	EventTradeClosed    EventType = "TRADE_CLOSED"
	EventPerformance    EventType = "PERFORMANCE"
)

type Event struct {
	Type      EventType `json:"type"`
	Symbol    string    `json:"symbol,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

type Subscriber func(context.Context, Event)

// Bus is an Observer that republishes every callback as an Event.
type Bus struct {
	mu      sync.RWMutex
	allSubs []Subscriber
	now     func() time.Time
}

var _ interfaces.Observer = (*Bus)(nil)

func NewBus() *Bus {
	return &Bus{now: time.Now}
}

func (b *Bus) SubscribeAll(s Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allSubs = append(b.allSubs, s)
}

// Publish calls the subscribers synchronously, in registration order.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = b.now()
	}
	b.mu.RLock()
	subs := append([]Subscriber(nil), b.allSubs...)
	b.mu.RUnlock()

	for _, s := range subs {
		deliver(ctx, s, ev)
	}
}

func deliver(ctx context.Context, s Subscriber, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "Event subscriber panicked", "type", string(ev.Type), "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
	}()
	s(ctx, ev)
}

func (b *Bus) OnMarketUpdate(ctx context.Context, u types.MarketUpdate) {
	b.Publish(ctx, Event{Type: EventPriceUpdate, Symbol: u.Symbol, Data: u})
}

// PositionEvent is the payload of POSITION_UPDATE; Position is nil once flat.
type PositionEvent struct {
	Symbol   string          `json:"symbol"`
	Position *types.Position `json:"position"`
}

func (b *Bus) OnPositionUpdate(ctx context.Context, symbol string, pos *types.Position) {
	b.Publish(ctx, Event{Type: EventPositionUpdate, Symbol: symbol, Data: PositionEvent{Symbol: symbol, Position: pos}})
}

func (b *Bus) OnTrade(ctx context.Context, rec types.TradeRecord) {
	t := EventTradeOpened
	if rec.Kind == types.TradeClose {
		t = EventTradeClosed
	}
	b.Publish(ctx, Event{Type: t, Symbol: rec.Symbol, Timestamp: rec.Timestamp, Data: rec})
}

func (b *Bus) OnPerformance(ctx context.Context, m types.PerformanceMetrics) {
	b.Publish(ctx, Event{Type: EventPerformance, Data: m})
}
