package web

import (
	"klinefetch/internal/export"
	"klinefetch/internal/fetcher"
	"klinefetch/internal/market"

	"github.com/shopspring/decimal"
)

type fetchRequest struct {
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
	Limit    int    `json:"limit"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type symbolsResponse struct {
	Success bool     `json:"success"`
	Symbols []string `json:"symbols"`
}

type summaryDTO struct {
	CurrentPrice      float64  `json:"current_price"`
	IntradayChange    float64  `json:"intraday_change"`
	IntradayChangePct *float64 `json:"intraday_change_pct"`
	PriceChange24h    float64  `json:"price_change_24h"`
	PriceChangePct24h float64  `json:"price_change_pct_24h"`
	High24h           float64  `json:"high_24h"`
	Low24h            float64  `json:"low_24h"`
	Volume24h         float64  `json:"volume_24h"`
	QuoteVolume24h    float64  `json:"quote_volume_24h"`
	Trades24h         int64    `json:"trades_24h"`
	Candles           int      `json:"candles"`
	TimeRange         string   `json:"time_range"`
}

type ohlcRow struct {
	Timestamp      string   `json:"timestamp"`
	Open           float64  `json:"open"`
	High           float64  `json:"high"`
	Low            float64  `json:"low"`
	Close          float64  `json:"close"`
	Volume         float64  `json:"volume"`
	PriceChangePct *float64 `json:"price_change_pct"`
}

type fetchResponse struct {
	Success         bool                    `json:"success"`
	Symbol          string                  `json:"symbol"`
	Interval        string                  `json:"interval"`
	Summary         summaryDTO              `json:"summary"`
	OHLCData        []ohlcRow               `json:"ohlc_data"`
	TradingViewData []market.TradingViewBar `json:"tradingview_data"`
}

const timeRangeLayout = "2006-01-02 15:04"

func newFetchResponse(snap *fetcher.Snapshot) fetchResponse {
	s := snap.Summary
	t := snap.Ticker

	rows := make([]ohlcRow, 0, len(snap.Candles))
	for _, c := range snap.Candles {
		rows = append(rows, ohlcRow{
			Timestamp:      c.OpenTime.Format(export.TableTimeLayout),
			Open:           round(c.Open, 8),
			High:           round(c.High, 8),
			Low:            round(c.Low, 8),
			Close:          round(c.Close, 8),
			Volume:         round(c.BaseVolume, 2),
			PriceChangePct: roundNull(c.PriceChangePct, 2),
		})
	}

	return fetchResponse{
		Success:  true,
		Symbol:   s.Symbol,
		Interval: s.Interval,
		Summary: summaryDTO{
			CurrentPrice:      round(s.CurrentPrice, 8),
			IntradayChange:    round(s.IntradayChange, 8),
			IntradayChangePct: roundNull(s.IntradayChangePct, 2),
			PriceChange24h:    round(t.PriceChange24h, 8),
			PriceChangePct24h: round(t.PriceChangePct24h, 2),
			High24h:           round(t.High24h, 8),
			Low24h:            round(t.Low24h, 8),
			Volume24h:         round(t.Volume24h, 2),
			QuoteVolume24h:    round(t.QuoteVolume24h, 2),
			Trades24h:         t.Trades24h,
			Candles:           s.Candles,
			TimeRange:         s.From.Format(timeRangeLayout) + " to " + s.To.Format(timeRangeLayout),
		},
		OHLCData:        rows,
		TradingViewData: market.ToTradingView(snap.Candles),
	}
}

func round(d decimal.Decimal, places int32) float64 {
	return d.Round(places).InexactFloat64()
}

func roundNull(d decimal.NullDecimal, places int32) *float64 {
	if !d.Valid {
		return nil
	}
	v := round(d.Decimal, places)
	return &v
}
