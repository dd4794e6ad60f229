package market

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Positions in a Binance kline row.
const (
	posOpenTime = iota
	posOpen
	posHigh
	posLow
	posClose
	posVolume
	posCloseTime
	posQuoteVolume
	posTrades
)

// MinKlineFields is the number of leading positions a row must carry.
const MinKlineFields = posVolume + 1

var klineFieldNames = [...]string{
	posOpenTime:    "open_time",
	posOpen:        "open",
	posHigh:        "high",
	posLow:         "low",
	posClose:       "close",
	posVolume:      "volume",
	posCloseTime:   "close_time",
	posQuoteVolume: "quote_volume",
	posTrades:      "trades",
}

var hundred = decimal.NewFromInt(100)

// MapCandles converts raw kline rows into candles with derived fields.
// Times are rendered in loc; a nil loc means UTC. Row order is kept as is.
// A single malformed row fails the whole call.
func MapCandles(rows []KlineRow, symbol, interval string, loc *time.Location) ([]Candle, error) {
	if len(rows) == 0 {
		return nil, &EmptyResultError{Symbol: symbol, Interval: interval}
	}
	if loc == nil {
		loc = time.UTC
	}

	out := make([]Candle, 0, len(rows))
	for i, row := range rows {
		c, err := mapCandle(row, loc)
		if err != nil {
			err.Symbol = symbol
			err.Interval = interval
			err.Index = i
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func mapCandle(row KlineRow, loc *time.Location) (Candle, *MalformedRowError) {
	if len(row) < MinKlineFields {
		return Candle{}, &MalformedRowError{
			Reason: "expected at least " + strconv.Itoa(MinKlineFields) + " fields, got " + strconv.Itoa(len(row)),
		}
	}

	var c Candle
	openMs, err := parseInt(row, posOpenTime)
	if err != nil {
		return Candle{}, err
	}
	c.OpenTime = time.UnixMilli(openMs).In(loc)

	prices := []struct {
		pos int
		dst *decimal.Decimal
	}{
		{posOpen, &c.Open},
		{posHigh, &c.High},
		{posLow, &c.Low},
		{posClose, &c.Close},
		{posVolume, &c.BaseVolume},
	}
	for _, p := range prices {
		v, err := parseDecimal(row, p.pos)
		if err != nil {
			return Candle{}, err
		}
		*p.dst = v
	}

	// Optional trailing positions.
	if len(row) > posCloseTime {
		closeMs, err := parseInt(row, posCloseTime)
		if err != nil {
			return Candle{}, err
		}
		c.CloseTime = time.UnixMilli(closeMs).In(loc)
	}
	if len(row) > posQuoteVolume {
		qv, err := parseDecimal(row, posQuoteVolume)
		if err != nil {
			return Candle{}, err
		}
		c.QuoteVolume = qv
	}
	if len(row) > posTrades {
		n, err := parseInt(row, posTrades)
		if err != nil {
			return Candle{}, err
		}
		c.Trades = n
	}

	derive(&c)
	return c, nil
}

// derive fills the computed analytics of c from its OHLC values.
func derive(c *Candle) {
	c.PriceChange = c.Close.Sub(c.Open)
	c.HighLowRange = c.High.Sub(c.Low)
	c.PriceChangePct = percentOf(c.PriceChange, c.Open)
	c.RangePct = percentOf(c.HighLowRange, c.Open)
}

func percentOf(v, base decimal.Decimal) decimal.NullDecimal {
	if base.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(v.Mul(hundred).Div(base))
}

func parseInt(row KlineRow, pos int) (int64, *MalformedRowError) {
	raw := strings.TrimSpace(row[pos])
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &MalformedRowError{Field: klineFieldNames[pos], Reason: "not an integer: " + strconv.Quote(raw)}
	}
	return n, nil
}

func parseDecimal(row KlineRow, pos int) (decimal.Decimal, *MalformedRowError) {
	raw := strings.TrimSpace(row[pos])
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &MalformedRowError{Field: klineFieldNames[pos], Reason: "not a decimal: " + strconv.Quote(raw)}
	}
	return d, nil
}
