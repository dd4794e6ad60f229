package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// KlineRow is one kline from the exchange, kept positional and verbatim.
// Numbers are carried as their JSON literal text so no precision is lost
// before parsing.
//
// Layout: open time, open, high, low, close, volume, close time,
// quote volume, trade count, taker buy base, taker buy quote, unused.
type KlineRow []string

// RawTicker is the flat key/value object returned by the 24h ticker endpoint.
// Null values are dropped at the boundary, so a null key reads as missing.
type RawTicker map[string]string

// Candle is a single OHLCV bar with derived analytics.
type Candle struct {
	OpenTime  time.Time // Open time in the configured location
	CloseTime time.Time // Close time, zero when the row omits it
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal

	BaseVolume  decimal.Decimal // Volume in the base asset
	QuoteVolume decimal.Decimal // Volume in the quote asset, zero when the row omits it
	Trades      int64           // Number of trades, zero when the row omits it

	PriceChange    decimal.Decimal     // Close - Open
	PriceChangePct decimal.NullDecimal // PriceChange / Open * 100, NULL when Open is zero
	HighLowRange   decimal.Decimal     // High - Low
	RangePct       decimal.NullDecimal // HighLowRange / Open * 100, NULL when Open is zero
}

// SymbolTicker is a 24-hour rolling window snapshot for one symbol.
type SymbolTicker struct {
	Symbol            string
	LastPrice         decimal.Decimal
	PriceChange24h    decimal.Decimal
	PriceChangePct24h decimal.Decimal
	High24h           decimal.Decimal
	Low24h            decimal.Decimal
	Volume24h         decimal.Decimal
	QuoteVolume24h    decimal.Decimal
	Trades24h         int64 // zero when the exchange omits "count"
}
