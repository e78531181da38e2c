package ta

import (
	"math"

	"github.com/shopspring/decimal"

	"spot-trading-bot/internal/types"
)

// Classification thresholds and periods.
const (
	RSIPeriod     = 14
	RSIOversold   = 30.0
	RSIOverbought = 70.0
	MACDFast      = 12
	MACDSlow      = 26
	MACDSignal    = 9
	BBPeriod      = 20
	BBWidth       = 2.0
	EMAFast       = 20
	EMASlow       = 50
)

func SMA(closes []float64, n int) float64 {
	if len(closes) < n || n <= 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(closes) - n; i < len(closes); i++ {
		sum += closes[i]
	}
	return sum / float64(n)
}

// EMA is the exponential moving average seeded with the first close
// (alpha = 2/(n+1), no bias adjustment).
func EMA(closes []float64, n int) float64 {
	series := emaSeries(closes, n)
	if len(series) == 0 {
		return math.NaN()
	}
	return series[len(series)-1]
}

func emaSeries(closes []float64, n int) []float64 {
	if len(closes) == 0 || n <= 0 {
		return nil
	}
	alpha := 2.0 / float64(n+1)
	out := make([]float64, len(closes))
	out[0] = closes[0]
	for i := 1; i < len(closes); i++ {
		out[i] = alpha*closes[i] + (1-alpha)*out[i-1]
	}
	return out
}

// MACD returns the last MACD line and signal line values.
func MACD(closes []float64, fast, slow, signal int) (macd, sig float64) {
	if len(closes) < slow || fast <= 0 || slow <= fast || signal <= 0 {
		return math.NaN(), math.NaN()
	}
	f := emaSeries(closes, fast)
	s := emaSeries(closes, slow)
	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = f[i] - s[i]
	}
	return line[len(line)-1], EMA(line, signal)
}

func RSI(closes []float64, period int) float64 {
	if len(closes) < period+1 || period <= 0 {
		return math.NaN()
	}
	gain, loss := 0.0, 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	if loss == 0 {
		return 100.0
	}
	rs := (gain / float64(period)) / (loss / float64(period))
	return 100.0 - (100.0 / (1.0 + rs))
}

func StdDev(vals []float64, n int) float64 {
	if len(vals) < n || n <= 0 {
		return math.NaN()
	}
	m := SMA(vals, n)
	s := 0.0
	for i := len(vals) - n; i < len(vals); i++ {
		d := vals[i] - m
		s += d * d
	}
	return math.Sqrt(s / float64(n))
}

func Bollinger(closes []float64, n int, k float64) (mid, up, low float64) {
	mid = SMA(closes, n)
	sd := StdDev(closes, n)
	up = mid + k*sd
	low = mid - k*sd
	return
}

// ATR is the simple average true range over period bars.
func ATR(highs, lows, closes []float64, period int) float64 {
	if len(highs) != len(lows) || len(lows) != len(closes) {
		return math.NaN()
	}
	if period <= 0 || len(closes) < period+1 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		tr1 := highs[i] - lows[i]
		tr2 := math.Abs(highs[i] - closes[i-1])
		tr3 := math.Abs(lows[i] - closes[i-1])
		sum += math.Max(tr1, math.Max(tr2, tr3))
	}
	return sum / float64(period)
}

func ClassifyRSI(rsi float64) types.Signal {
	switch {
	case math.IsNaN(rsi):
		return types.SignalUnknown
	case rsi <= RSIOversold:
		return types.SignalBuy
	case rsi >= RSIOverbought:
		return types.SignalSell
	}
	return types.SignalHold
}

func ClassifyMACD(macd, signal float64) types.Signal {
	return compare(macd, signal)
}

// ClassifyBollinger is BUY at or below the lower band, SELL at or above the
// upper band.
func ClassifyBollinger(price, lower, upper float64) types.Signal {
	switch {
	case math.IsNaN(price) || math.IsNaN(lower) || math.IsNaN(upper):
		return types.SignalUnknown
	case price <= lower:
		return types.SignalBuy
	case price >= upper:
		return types.SignalSell
	}
	return types.SignalHold
}

func ClassifyEMACross(fast, slow float64) types.Signal {
	return compare(fast, slow)
}

func compare(a, b float64) types.Signal {
	switch {
	case math.IsNaN(a) || math.IsNaN(b):
		return types.SignalUnknown
	case a > b:
		return types.SignalBuy
	case a < b:
		return types.SignalSell
	}
	return types.SignalHold
}

// Analyze classifies a close series. Indicators without enough history are
// left out of the result.
func Analyze(closes []float64) types.AnalysisResult {
	var res types.AnalysisResult
	if len(closes) == 0 {
		return res
	}
	last := closes[len(closes)-1]
	res.Price = decimal.NewFromFloat(last)

	res.RSI = present(ClassifyRSI(RSI(closes, RSIPeriod)))
	res.MACD = present(ClassifyMACD(MACD(closes, MACDFast, MACDSlow, MACDSignal)))
	_, up, low := Bollinger(closes, BBPeriod, BBWidth)
	res.Bollinger = present(ClassifyBollinger(last, low, up))
	if len(closes) >= EMASlow {
		res.EMACross = present(ClassifyEMACross(EMA(closes, EMAFast), EMA(closes, EMASlow)))
	}
	return res
}

func present(s types.Signal) *types.Signal {
	if s == types.SignalUnknown {
		return nil
	}
	return types.SignalPtr(s)
}
