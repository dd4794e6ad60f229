package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// Summary condenses a candle window and its 24h ticker for display.
type Summary struct {
	Symbol   string
	Interval string

	CurrentPrice      decimal.Decimal
	IntradayChange    decimal.Decimal     // last close - first open
	IntradayChangePct decimal.NullDecimal // NULL when the first open is zero

	Ticker SymbolTicker

	Candles int
	From    time.Time // open time of the first candle
	To      time.Time // open time of the last candle
}

// Summarize builds a Summary. A zero price falls back to the last close.
func Summarize(symbol, interval string, candles []Candle, ticker SymbolTicker, price decimal.Decimal) Summary {
	s := Summary{
		Symbol:       symbol,
		Interval:     interval,
		CurrentPrice: price,
		Ticker:       ticker,
		Candles:      len(candles),
	}
	if len(candles) == 0 {
		return s
	}

	first := candles[0]
	last := candles[len(candles)-1]
	if s.CurrentPrice.IsZero() {
		s.CurrentPrice = last.Close
	}
	s.IntradayChange = last.Close.Sub(first.Open)
	s.IntradayChangePct = percentOf(s.IntradayChange, first.Open)
	s.From = first.OpenTime
	s.To = last.OpenTime
	return s
}
