package export

import (
	"encoding/json"
	"fmt"
	"io"

	"klinefetch/internal/market"
)

// WriteTradingViewJSON writes bars as an indented JSON array.
func WriteTradingViewJSON(w io.Writer, bars []market.TradingViewBar) error {
	if bars == nil {
		bars = []market.TradingViewBar{}
	}
	data, err := json.MarshalIndent(bars, "", "  ")
	if err != nil {
		return fmt.Errorf("encode tradingview bars: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write tradingview bars: %w", err)
	}
	return nil
}

// ReadTradingViewJSON decodes a file produced by WriteTradingViewJSON.
func ReadTradingViewJSON(r io.Reader) ([]market.TradingViewBar, error) {
	var bars []market.TradingViewBar
	if err := json.NewDecoder(r).Decode(&bars); err != nil {
		return nil, fmt.Errorf("decode tradingview bars: %w", err)
	}
	return bars, nil
}
