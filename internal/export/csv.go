package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"klinefetch/internal/market"

	"github.com/shopspring/decimal"
)

// CSVTimeLayout is RFC 3339 with millisecond precision.
const CSVTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// CSVHeader is the fixed column order of the CSV export.
var CSVHeader = []string{
	"open_time", "open", "high", "low", "close",
	"base_volume", "quote_volume",
	"price_change", "price_change_pct", "high_low_range", "range_pct",
}

// WriteCSV writes one row per candle. open_time is rendered in loc (nil
// keeps each candle's own location); NULL percentages are empty cells.
func WriteCSV(w io.Writer, candles []market.Candle, loc *time.Location) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, c := range candles {
		openTime := c.OpenTime
		if loc != nil {
			openTime = openTime.In(loc)
		}
		record := []string{
			openTime.Format(CSVTimeLayout),
			c.Open.String(),
			c.High.String(),
			c.Low.String(),
			c.Close.String(),
			c.BaseVolume.String(),
			c.QuoteVolume.String(),
			c.PriceChange.String(),
			nullString(c.PriceChangePct),
			c.HighLowRange.String(),
			nullString(c.RangePct),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a file produced by WriteCSV. Columns not present in the
// export (close time, trades) stay zero.
func ReadCSV(r io.Reader) ([]market.Candle, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(CSVHeader)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("read csv: missing header")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if !slices.Equal(header, CSVHeader) {
		return nil, fmt.Errorf("read csv: unexpected header %q", strings.Join(header, ","))
	}

	var candles []market.Candle
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		c, err := parseCSVRecord(record)
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func parseCSVRecord(record []string) (market.Candle, error) {
	var c market.Candle
	openTime, err := time.Parse(CSVTimeLayout, record[0])
	if err != nil {
		return c, fmt.Errorf("open_time: %w", err)
	}
	c.OpenTime = openTime

	decimals := []*decimal.Decimal{
		&c.Open, &c.High, &c.Low, &c.Close,
		&c.BaseVolume, &c.QuoteVolume, &c.PriceChange,
	}
	for i, dst := range decimals {
		d, err := decimal.NewFromString(record[i+1])
		if err != nil {
			return c, fmt.Errorf("%s: %w", CSVHeader[i+1], err)
		}
		*dst = d
	}

	if c.PriceChangePct, err = parseNull(record[8]); err != nil {
		return c, fmt.Errorf("price_change_pct: %w", err)
	}
	if c.HighLowRange, err = decimal.NewFromString(record[9]); err != nil {
		return c, fmt.Errorf("high_low_range: %w", err)
	}
	if c.RangePct, err = parseNull(record[10]); err != nil {
		return c, fmt.Errorf("range_pct: %w", err)
	}
	return c, nil
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

func parseNull(s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}
