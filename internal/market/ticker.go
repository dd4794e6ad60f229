package market

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// MapTicker24h converts the raw 24h ticker object into a SymbolTicker.
// Every documented key except "count" is required.
func MapTicker24h(raw RawTicker) (SymbolTicker, error) {
	symbol := strings.TrimSpace(raw["symbol"])
	if symbol == "" {
		return SymbolTicker{}, &MalformedTickerError{Key: "symbol", Reason: "missing"}
	}

	t := SymbolTicker{Symbol: symbol}
	fields := []struct {
		key string
		dst *decimal.Decimal
	}{
		{"lastPrice", &t.LastPrice},
		{"priceChange", &t.PriceChange24h},
		{"priceChangePercent", &t.PriceChangePct24h},
		{"highPrice", &t.High24h},
		{"lowPrice", &t.Low24h},
		{"volume", &t.Volume24h},
		{"quoteVolume", &t.QuoteVolume24h},
	}
	for _, f := range fields {
		v, ok := raw[f.key]
		if !ok {
			return SymbolTicker{}, &MalformedTickerError{Symbol: symbol, Key: f.key, Reason: "missing"}
		}
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return SymbolTicker{}, &MalformedTickerError{Symbol: symbol, Key: f.key, Reason: "not a decimal: " + strconv.Quote(v)}
		}
		*f.dst = d
	}

	if v, ok := raw["count"]; ok {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return SymbolTicker{}, &MalformedTickerError{Symbol: symbol, Key: "count", Reason: "not an integer: " + strconv.Quote(v)}
		}
		t.Trades24h = n
	}
	return t, nil
}
