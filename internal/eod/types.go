package eod

import "github.com/shopspring/decimal"

// aggRow accumulates one symbol's journal records for the day.
type aggRow struct {
	Symbol      string
	Buys        int
	BuySize     decimal.Decimal
	BuyValue    decimal.Decimal
	Sells       int
	SellSize    decimal.Decimal
	SellValue   decimal.Decimal
	RealizedPnL decimal.Decimal
	Wins        int
	Losses      int
}

func (r *aggRow) avgBuy() decimal.Decimal {
	if r.BuySize.IsZero() {
		return decimal.Zero
	}
	return r.BuyValue.Div(r.BuySize)
}

func (r *aggRow) avgSell() decimal.Decimal {
	if r.SellSize.IsZero() {
		return decimal.Zero
	}
	return r.SellValue.Div(r.SellSize)
}
