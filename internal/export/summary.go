package export

import (
	"strconv"
	"strings"

	"klinefetch/internal/market"

	"github.com/dustin/go-humanize"
)

const summaryKeyWidth = 25

// RenderSummary formats s as a dotted key/value block, one entry per line.
func RenderSummary(s market.Summary) string {
	t := s.Ticker
	entries := [][2]string{
		{"Symbol", s.Symbol},
		{"Interval", s.Interval},
		{"Current Price", "$" + s.CurrentPrice.StringFixed(8)},
		{"Intraday Change", "$" + s.IntradayChange.StringFixed(8) + " (" + formatPct(s.IntradayChangePct) + ")"},
		{"24h Change", "$" + t.PriceChange24h.StringFixed(8) + " (" + t.PriceChangePct24h.StringFixed(2) + "%)"},
		{"24h High", "$" + t.High24h.StringFixed(8)},
		{"24h Low", "$" + t.Low24h.StringFixed(8)},
		{"24h Volume", formatVolume(t.Volume24h)},
		{"24h Quote Volume", "$" + formatVolume(t.QuoteVolume24h)},
		{"24h Trades", humanize.Comma(t.Trades24h)},
		{"Candles", strconv.Itoa(s.Candles)},
		{"Time Range", formatTime(s.From) + " to " + formatTime(s.To)},
	}

	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e[0])
		if n := summaryKeyWidth - len(e[0]); n > 0 {
			b.WriteString(strings.Repeat(".", n))
		}
		b.WriteByte(' ')
		b.WriteString(e[1])
		b.WriteByte('\n')
	}
	return b.String()
}
