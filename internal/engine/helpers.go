package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// quantize rounds size down to a multiple of step. A non-positive step
// leaves size unchanged.
func quantize(size, step decimal.Decimal) decimal.Decimal {
	if !step.IsPositive() {
		return size
	}
	if !size.IsPositive() {
		return decimal.Zero
	}
	return size.Div(step).Floor().Mul(step)
}

func midnightUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func pct(v decimal.Decimal) decimal.Decimal {
	return v.Div(hundred)
}
