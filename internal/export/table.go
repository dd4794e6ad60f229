package export

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"klinefetch/internal/market"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// TableTimeLayout is used for time columns in the text table.
const TableTimeLayout = "2006-01-02 15:04:05"

// DefaultColumns is the column set shown when none is requested.
var DefaultColumns = []string{"open_time", "open", "high", "low", "close", "base_volume", "price_change_pct"}

type align int

const (
	alignLeft align = iota
	alignRight
)

type column struct {
	header string
	align  align
	value  func(c market.Candle) string
}

var columns = map[string]column{
	"open_time":        {"open_time", alignLeft, func(c market.Candle) string { return formatTime(c.OpenTime) }},
	"close_time":       {"close_time", alignLeft, func(c market.Candle) string { return formatTime(c.CloseTime) }},
	"open":             {"open", alignRight, func(c market.Candle) string { return c.Open.StringFixed(8) }},
	"high":             {"high", alignRight, func(c market.Candle) string { return c.High.StringFixed(8) }},
	"low":              {"low", alignRight, func(c market.Candle) string { return c.Low.StringFixed(8) }},
	"close":            {"close", alignRight, func(c market.Candle) string { return c.Close.StringFixed(8) }},
	"base_volume":      {"volume", alignRight, func(c market.Candle) string { return formatVolume(c.BaseVolume) }},
	"quote_volume":     {"quote_volume", alignRight, func(c market.Candle) string { return formatVolume(c.QuoteVolume) }},
	"price_change":     {"price_change", alignRight, func(c market.Candle) string { return c.PriceChange.StringFixed(8) }},
	"price_change_pct": {"price_change_pct", alignRight, func(c market.Candle) string { return formatPct(c.PriceChangePct) }},
	"high_low_range":   {"high_low_range", alignRight, func(c market.Candle) string { return c.HighLowRange.StringFixed(8) }},
	"range_pct":        {"range_pct", alignRight, func(c market.Candle) string { return formatPct(c.RangePct) }},
	"trades":           {"trades", alignRight, func(c market.Candle) string { return humanize.Comma(c.Trades) }},
}

var columnAliases = map[string]string{
	"timestamp": "open_time",
	"volume":    "base_volume",
}

// ColumnNames lists every accepted column name, aliases included.
func ColumnNames() []string {
	names := make([]string, 0, len(columns)+len(columnAliases))
	for name := range columns {
		names = append(names, name)
	}
	for alias := range columnAliases {
		names = append(names, alias)
	}
	slices.Sort(names)
	return names
}

// UnknownColumnError is returned when a requested table column does not
// exist.
type UnknownColumnError struct {
	Name string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("unknown column %q (known: %s)", e.Name, strings.Join(ColumnNames(), ", "))
}

// TableOptions controls RenderTable. Rows > 0 keeps only the last Rows
// candles.
type TableOptions struct {
	Rows int
}

// RenderTable formats candles as a grid table with the given columns.
// An empty column list selects DefaultColumns.
func RenderTable(candles []market.Candle, names []string, opts TableOptions) (string, error) {
	if len(names) == 0 {
		names = DefaultColumns
	}
	cols, err := resolveColumns(names)
	if err != nil {
		return "", err
	}

	if opts.Rows > 0 && len(candles) > opts.Rows {
		candles = candles[len(candles)-opts.Rows:]
	}

	cells := make([][]string, len(candles))
	widths := make([]int, len(cols))
	for i, col := range cols {
		widths[i] = utf8.RuneCountInString(col.header)
	}
	for r, c := range candles {
		row := make([]string, len(cols))
		for i, col := range cols {
			row[i] = col.value(c)
			if n := utf8.RuneCountInString(row[i]); n > widths[i] {
				widths[i] = n
			}
		}
		cells[r] = row
	}

	var b strings.Builder
	writeRule(&b, widths, '-')
	b.WriteByte('|')
	for i, col := range cols {
		writeCell(&b, col.header, widths[i], alignLeft)
	}
	b.WriteByte('\n')
	writeRule(&b, widths, '=')
	for _, row := range cells {
		b.WriteByte('|')
		for i, col := range cols {
			writeCell(&b, row[i], widths[i], col.align)
		}
		b.WriteByte('\n')
		writeRule(&b, widths, '-')
	}
	return b.String(), nil
}

func resolveColumns(names []string) ([]column, error) {
	out := make([]column, 0, len(names))
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if alias, ok := columnAliases[key]; ok {
			key = alias
		}
		col, ok := columns[key]
		if !ok {
			return nil, &UnknownColumnError{Name: name}
		}
		out = append(out, col)
	}
	return out, nil
}

func writeRule(b *strings.Builder, widths []int, fill byte) {
	b.WriteByte('+')
	for _, w := range widths {
		b.WriteString(strings.Repeat(string(fill), w+2))
		b.WriteByte('+')
	}
	b.WriteByte('\n')
}

func writeCell(b *strings.Builder, s string, width int, a align) {
	pad := strings.Repeat(" ", width-utf8.RuneCountInString(s))
	b.WriteByte(' ')
	if a == alignRight {
		b.WriteString(pad)
		b.WriteString(s)
	} else {
		b.WriteString(s)
		b.WriteString(pad)
	}
	b.WriteString(" |")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(TableTimeLayout)
}

func formatVolume(d decimal.Decimal) string {
	return humanize.FormatFloat("#,###.##", d.InexactFloat64())
}

func formatPct(d decimal.NullDecimal) string {
	if !d.Valid {
		return "n/a"
	}
	return d.Decimal.StringFixed(2) + "%"
}

