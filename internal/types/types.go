package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type Signal string

const (
	SignalBuy     Signal = "BUY"
	SignalSell    Signal = "SELL"
	SignalHold    Signal = "HOLD"
	SignalUnknown Signal = "UNKNOWN"
)

// Decision is the reduced outcome of an AnalysisResult. It is never stored.
type Decision string

const (
	DecisionBuy  Decision = "BUY"
	DecisionSell Decision = "SELL"
	DecisionHold Decision = "HOLD"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// AnalysisResult carries the indicator sub-signals for one symbol. A nil
// sub-signal means the indicator was not computed.
type AnalysisResult struct {
	Price     decimal.Decimal `json:"price"`
	RSI       *Signal         `json:"rsi,omitempty"`
	MACD      *Signal         `json:"macd,omitempty"`
	Bollinger *Signal         `json:"bollinger,omitempty"`
	EMACross  *Signal         `json:"ema_cross,omitempty"`
}

// Signals returns the present sub-signals keyed by indicator name.
func (a AnalysisResult) Signals() map[string]Signal {
	out := make(map[string]Signal, 4)
	for name, s := range map[string]*Signal{
		"rsi":       a.RSI,
		"macd":      a.MACD,
		"bollinger": a.Bollinger,
		"ema_cross": a.EMACross,
	} {
		if s != nil {
			out[name] = *s
		}
	}
	return out
}

// SignalPtr is a helper for building AnalysisResult literals.
func SignalPtr(s Signal) *Signal { return &s }

type Snapshot struct {
	Symbol     string          `json:"symbol"`
	Price      decimal.Decimal `json:"price"`
	Volume24h  decimal.Decimal `json:"volume_24h"`
	Spread     decimal.Decimal `json:"spread"`
	Volatility decimal.Decimal `json:"volatility"`
	Analysis   AnalysisResult  `json:"analysis"`
	Time       time.Time       `json:"time"`
}

type Position struct {
	Symbol     string          `json:"symbol"`
	Size       decimal.Decimal `json:"size"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	StopLoss   decimal.Decimal `json:"stop_loss"`
	TakeProfit decimal.Decimal `json:"take_profit"`
	OrderID    string          `json:"order_id"`
	OpenedAt   time.Time       `json:"opened_at"`
}

type TradeKind string

const (
	TradeOpen  TradeKind = "OPEN"
	TradeClose TradeKind = "CLOSE"
)

// TradeRecord is immutable once emitted. PnL is set only on CLOSE records.
type TradeRecord struct {
	Timestamp time.Time        `json:"timestamp"`
	Kind      TradeKind        `json:"kind"`
	Symbol    string           `json:"symbol"`
	Price     decimal.Decimal  `json:"price"`
	Size      decimal.Decimal  `json:"size"`
	PnL       *decimal.Decimal `json:"pnl,omitempty"`
	OrderID   string           `json:"order_id"`
	Reason    string           `json:"reason,omitempty"`
}

type PerformanceMetrics struct {
	TotalTrades     int             `json:"total_trades"`
	WinningTrades   int             `json:"winning_trades"`
	LosingTrades    int             `json:"losing_trades"`
	TotalPnL        decimal.Decimal `json:"total_pnl"`
	LargestWin      decimal.Decimal `json:"largest_win"`
	LargestLoss     decimal.Decimal `json:"largest_loss"`
	AverageWin      decimal.Decimal `json:"average_win"`
	AverageLoss     decimal.Decimal `json:"average_loss"`
	WinRate         decimal.Decimal `json:"win_rate"`
	RiskRewardRatio decimal.Decimal `json:"risk_reward_ratio"`
	Daily           DailyStats      `json:"daily"`
}

type DailyStats struct {
	Date   string          `json:"date"`
	Trades int             `json:"trades"`
	PnL    decimal.Decimal `json:"pnl"`
	Wins   int             `json:"wins"`
	Losses int             `json:"losses"`
}

type ResultKind string

const (
	TradeExecuted ResultKind = "EXECUTED"
	TradeSkipped  ResultKind = "SKIPPED"
	TradeFailed   ResultKind = "FAILED"
)

type TradeResult struct {
	Kind   ResultKind   `json:"kind"`
	Reason string       `json:"reason,omitempty"`
	Err    error        `json:"-"`
	Record *TradeRecord `json:"record,omitempty"`
}

// StepResult summarises what happened to one symbol in one cycle.
type StepResult struct {
	Symbol   string          `json:"symbol"`
	Decision Decision        `json:"decision"`
	Price    decimal.Decimal `json:"price"`
	Time     time.Time       `json:"time"`
	Result   *TradeResult    `json:"result,omitempty"`
	Reason   string          `json:"reason"`
}

type OrderReq struct {
	Symbol string
	Side   Side
	Size   decimal.Decimal
	Tag    string
}

// SubmittedOrder is a filled adapter call kept for diagnostics.
type SubmittedOrder struct {
	Req  OrderReq  `json:"request"`
	Resp OrderResp `json:"response"`
	At   time.Time `json:"at"`
}

type OrderResp struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// MarketUpdate is the per-cycle market event emitted to observers.
type MarketUpdate struct {
	Symbol     string            `json:"symbol"`
	Price      decimal.Decimal   `json:"price"`
	Signal     Decision          `json:"signal"`
	Indicators map[string]Signal `json:"indicators"`
}

type Status struct {
	Running       bool            `json:"running"`
	Uptime        time.Duration   `json:"uptime"`
	TradesToday   int             `json:"trades_today"`
	PnLToday      decimal.Decimal `json:"pnl_today"`
	ActivePairs   []string        `json:"active_pairs"`
	OpenPositions int             `json:"open_positions"`
}
