package market

import (
	"bytes"
	"strconv"

	"github.com/shopspring/decimal"
)

// TradingViewBar is the flat bar consumed by TradingView datafeeds.
// The field set and order are fixed by that consumer.
type TradingViewBar struct {
	Time   int64           `json:"time"` // open time, epoch milliseconds
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`
}

// MarshalJSON writes prices as bare JSON numbers using the exact decimal text.
func (b TradingViewBar) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"time":`)
	buf.WriteString(strconv.FormatInt(b.Time, 10))
	writeNumberField(&buf, "open", b.Open)
	writeNumberField(&buf, "high", b.High)
	writeNumberField(&buf, "low", b.Low)
	writeNumberField(&buf, "close", b.Close)
	writeNumberField(&buf, "volume", b.Volume)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeNumberField(buf *bytes.Buffer, name string, v decimal.Decimal) {
	buf.WriteString(`,"`)
	buf.WriteString(name)
	buf.WriteString(`":`)
	buf.WriteString(v.String())
}

// ToTradingView projects candles onto TradingView bars, one per candle.
func ToTradingView(candles []Candle) []TradingViewBar {
	out := make([]TradingViewBar, 0, len(candles))
	for _, c := range candles {
		out = append(out, TradingViewBar{
			Time:   c.OpenTime.UnixMilli(),
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: c.BaseVolume,
		})
	}
	return out
}
