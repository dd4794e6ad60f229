package export

import (
	"fmt"
	"io"
	"math"
	"strings"

	"klinefetch/internal/market"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	talib "github.com/markcheno/go-talib"
)

const (
	colorBull   = "#34d399"
	colorBear   = "#f87171"
	chartWidth  = "1200px"
	klineHeight = "520px"
	barHeight   = "220px"

	chartAxisLayout = "01-02 15:04"
)

var emaColors = []string{"#3b82f6", "#fbbf24", "#f472b6", "#22d3ee"}

// ChartOptions controls WriteChart.
type ChartOptions struct {
	// EMAPeriods adds one EMA overlay per period. Periods not shorter than
	// the candle count are skipped.
	EMAPeriods []int
}

// WriteChart renders an HTML page with a candlestick chart, EMA overlays
// and a volume bar chart.
func WriteChart(w io.Writer, symbol, interval string, candles []market.Candle, opt ChartOptions) error {
	if len(candles) == 0 {
		return fmt.Errorf("no candles to chart for %s", symbol)
	}

	xAxis := make([]string, len(candles))
	for i, c := range candles {
		xAxis[i] = c.OpenTime.Format(chartAxisLayout)
	}

	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:  types.ThemeWesteros,
			Width:  chartWidth,
			Height: klineHeight,
		}),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("%s %s", strings.ToUpper(symbol), interval)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)
	kline.SetSeriesOptions(
		charts.WithItemStyleOpts(opts.ItemStyle{
			Color:        colorBull,
			Color0:       colorBear,
			BorderColor:  colorBull,
			BorderColor0: colorBear,
		}),
	)
	kline.SetXAxis(xAxis)
	kline.AddSeries("Price", klineSeries(candles))

	if line := emaLines(xAxis, candles, opt.EMAPeriods); line != nil {
		kline.Overlap(line)
	}

	page := components.NewPage()
	page.AddCharts(kline, volumeChart(xAxis, candles))
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

func klineSeries(candles []market.Candle) []opts.KlineData {
	data := make([]opts.KlineData, 0, len(candles))
	for _, c := range candles {
		data = append(data, opts.KlineData{Value: [4]float64{
			c.Open.InexactFloat64(),
			c.Close.InexactFloat64(),
			c.Low.InexactFloat64(),
			c.High.InexactFloat64(),
		}})
	}
	return data
}

func emaLines(xAxis []string, candles []market.Candle, periods []int) *charts.Line {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close.InexactFloat64()
	}

	var line *charts.Line
	for i, period := range periods {
		if period < 2 || period >= len(closes) {
			continue
		}
		if line == nil {
			line = charts.NewLine()
			line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
			line.SetXAxis(xAxis)
		}
		line.AddSeries(
			fmt.Sprintf("EMA %d", period),
			emaLineData(talib.Ema(closes, period), period),
			charts.WithLineStyleOpts(opts.LineStyle{Color: emaColors[i%len(emaColors)], Width: 2}),
		)
	}
	return line
}

// emaLineData blanks the warm-up window talib leaves as zeros.
func emaLineData(series []float64, period int) []opts.LineData {
	data := make([]opts.LineData, len(series))
	for i, v := range series {
		if i < period-1 || math.IsNaN(v) {
			data[i] = opts.LineData{Value: nil}
			continue
		}
		data[i] = opts.LineData{Value: v}
	}
	return data
}

func volumeChart(xAxis []string, candles []market.Candle) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:  types.ThemeWesteros,
			Width:  chartWidth,
			Height: barHeight,
		}),
		charts.WithTitleOpts(opts.Title{Title: "Volume"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Show: opts.Bool(false)}}),
	)
	vols := make([]opts.BarData, len(candles))
	for i, c := range candles {
		color := colorBear
		if c.Close.GreaterThanOrEqual(c.Open) {
			color = colorBull
		}
		vols[i] = opts.BarData{
			Value: c.BaseVolume.InexactFloat64(),
			ItemStyle: &opts.ItemStyle{
				Color:   color,
				Opacity: opts.Float(0.6),
			},
		}
	}
	bar.SetXAxis(xAxis)
	bar.AddSeries("Volume", vols)
	return bar
}
