package strategy

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"spot-trading-bot/internal/interfaces"
	"spot-trading-bot/internal/logger"
	"spot-trading-bot/internal/types"
)

// Majority turns the sub-signals of an AnalysisResult into a decision by
// strict majority vote. Absent and UNKNOWN sub-signals do not vote.
type Majority struct{}

var _ interfaces.Strategy = Majority{}

func NewMajority() Majority {
	return Majority{}
}

func (Majority) Evaluate(ctx context.Context, a types.AnalysisResult) types.Decision {
	t := tally(a)
	d := t.decision()
	logger.Debug(ctx, "Signal vote",
		"buy", t.buy,
		"sell", t.sell,
		"hold", t.hold,
		"decision", string(d),
	)
	return d
}

// Explain renders the vote, e.g. "BUY 3/4 [bollinger=HOLD ema_cross=BUY macd=BUY rsi=BUY]".
func (Majority) Explain(a types.AnalysisResult) string {
	t := tally(a)
	if t.total() == 0 {
		return "no signals"
	}
	d := t.decision()
	votes := 0
	switch d {
	case types.DecisionBuy:
		votes = t.buy
	case types.DecisionSell:
		votes = t.sell
	default:
		votes = t.hold
	}

	names := make([]string, 0, len(t.signals))
	for name := range t.signals {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + string(t.signals[name])
	}
	return fmt.Sprintf("%s %d/%d [%s]", d, votes, t.total(), strings.Join(parts, " "))
}

type votes struct {
	buy, sell, hold int
	signals         map[string]types.Signal
}

func tally(a types.AnalysisResult) votes {
	v := votes{signals: a.Signals()}
	for name, s := range v.signals {
		switch s {
		case types.SignalBuy:
			v.buy++
		case types.SignalSell:
			v.sell++
		case types.SignalHold:
			v.hold++
		default:
			delete(v.signals, name)
		}
	}
	return v
}

func (v votes) total() int { return v.buy + v.sell + v.hold }

func (v votes) decision() types.Decision {
	n := v.total()
	switch {
	case n == 0:
		return types.DecisionHold
	case 2*v.buy > n:
		return types.DecisionBuy
	case 2*v.sell > n:
		return types.DecisionSell
	}
	return types.DecisionHold
}
