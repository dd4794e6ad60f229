// Package cli implements the klinefetch command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"klinefetch/config"
	"klinefetch/internal/export"
	"klinefetch/internal/fetcher"
	"klinefetch/internal/market"
	"klinefetch/logger"
	"klinefetch/pkg/binance"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

const usageHeader = `Fetch intraday OHLC data for crypto tokens from Binance.

Usage:
  klinefetch [flags] SYMBOL
  klinefetch --list-symbols [--quote USDT]

Examples:
  klinefetch BTCUSDT -i 5m -l 50
  klinefetch ETHUSDT -i 1h -l 100 -e output.json --csv output.csv
  klinefetch BTCUSDT --columns open_time,close,volume --tz Asia/Tokyo

Flags:
`

type options struct {
	configPath  string
	exportJSON  string
	exportCSV   string
	exportChart string
	listSymbols bool
	quote       string
	symbolLimit int
}

func newFlagSet(stderr io.Writer, opts *options) *pflag.FlagSet {
	fs := pflag.NewFlagSet("klinefetch", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SortFlags = false

	fs.StringP("interval", "i", "5m", "candle interval: "+intervalList())
	fs.IntP("limit", "l", 50, "number of candles to fetch (max 1000)")
	fs.IntP("rows", "r", 20, "number of rows to display")
	fs.StringVarP(&opts.exportJSON, "export", "e", "", "export candles to a JSON file (TradingView format)")
	fs.StringVar(&opts.exportCSV, "csv", "", "export candles to a CSV file")
	fs.StringVar(&opts.exportChart, "chart", "", "render an HTML candlestick chart to this file")
	fs.StringSlice("columns", nil, "table columns (default "+strings.Join(export.DefaultColumns, ",")+")")
	fs.IntSlice("ema", nil, "EMA periods overlaid on the chart")
	fs.String("tz", "UTC", `display timezone, e.g. "Asia/Tokyo" or "Local"`)
	fs.BoolVar(&opts.listSymbols, "list-symbols", false, "list available trading pairs")
	fs.StringVar(&opts.quote, "quote", "USDT", "quote asset for --list-symbols")
	fs.IntVar(&opts.symbolLimit, "symbols", 50, "number of pairs shown by --list-symbols")
	fs.StringVar(&opts.configPath, "config", "", "path to a config file")
	fs.String("base-url", "", "Binance REST base URL")
	fs.Duration("timeout", 0, "REST request timeout")
	fs.String("proxy", "", "HTTP proxy for REST requests")
	fs.String("log-level", "warn", "log level")
	fs.String("log-file", "", "also write JSON logs to this file")

	fs.Usage = func() {
		fmt.Fprint(stderr, usageHeader)
		fs.PrintDefaults()
	}
	return fs
}

// Run executes the command and returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var opts options
	fs := newFlagSet(stderr, &opts)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return ExitOK
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		fs.Usage()
		return ExitUsage
	}

	cfg, err := config.Load(opts.configPath, fs)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitUsage
	}
	if _, err := export.RenderTable(nil, cfg.Display.Columns, export.TableOptions{}); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitUsage
	}

	// stdout carries the report
	cfg.Log.Output = "stderr"
	if !fs.Changed("log-level") && cfg.Log.Level == "info" {
		cfg.Log.Level = "warn"
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitUsage
	}
	defer func() { _ = log.Sync() }()

	client, err := binance.NewRESTClient(cfg.Binance.REST.Client())
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitUsage
	}
	loc, err := cfg.Display.Location()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitUsage
	}
	svc := fetcher.NewService(client, loc, log)

	if opts.listSymbols {
		if err := listSymbols(ctx, svc, stdout, opts); err != nil {
			log.Debug("list symbols failed", zap.Error(err))
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return ExitError
		}
		return ExitOK
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return ExitUsage
	}

	if err := report(ctx, svc, cfg, opts, fs.Arg(0), stdout); err != nil {
		log.Debug("fetch failed", zap.Error(err))
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitError
	}
	return ExitOK
}

func listSymbols(ctx context.Context, svc *fetcher.Service, stdout io.Writer, opts options) error {
	quote := strings.ToUpper(opts.quote)
	symbols, err := svc.Symbols(ctx, quote, opts.symbolLimit)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "\nTop %d %s trading pairs:\n\n", len(symbols), quote)
	for i, s := range symbols {
		fmt.Fprintf(stdout, "%d. %s\n", i+1, s)
	}
	return nil
}

func report(ctx context.Context, svc *fetcher.Service, cfg *config.Config, opts options, symbol string, stdout io.Writer) error {
	rule := strings.Repeat("=", 80)
	interval := cfg.Display.Interval.String()
	limit := binance.ClampLimit(cfg.Display.Limit)
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	fmt.Fprintf(stdout, "\n%s\nFetching intraday data for %s\nInterval: %s | Limit: %d candles\n%s\n",
		rule, symbol, interval, limit, rule)

	snap, err := svc.Snapshot(ctx, symbol, interval, limit)
	if err != nil {
		return err
	}

	table, err := export.RenderTable(snap.Candles, cfg.Display.Columns, export.TableOptions{Rows: cfg.Display.Rows})
	if err != nil {
		return err
	}

	section := strings.Repeat("-", 80)
	fmt.Fprintf(stdout, "\nSUMMARY\n%s\n%s", section, export.RenderSummary(snap.Summary))
	shown := len(snap.Candles)
	if cfg.Display.Rows > 0 && cfg.Display.Rows < shown {
		shown = cfg.Display.Rows
	}
	fmt.Fprintf(stdout, "\nOHLC DATA (Last %d candles)\n%s\n%s", shown, section, table)

	if opts.exportJSON != "" {
		err := writeFile(opts.exportJSON, func(w io.Writer) error {
			return export.WriteTradingViewJSON(w, market.ToTradingView(snap.Candles))
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "\nData exported to %s (TradingView format)\n", opts.exportJSON)
	}
	if opts.exportCSV != "" {
		err := writeFile(opts.exportCSV, func(w io.Writer) error {
			return export.WriteCSV(w, snap.Candles, svc.Location())
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Data exported to %s (CSV format)\n", opts.exportCSV)
	}
	if opts.exportChart != "" {
		err := writeFile(opts.exportChart, func(w io.Writer) error {
			return export.WriteChart(w, symbol, interval, snap.Candles, export.ChartOptions{EMAPeriods: cfg.Display.EMAPeriods})
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Chart written to %s\n", opts.exportChart)
	}

	fmt.Fprintf(stdout, "\n%s\n\n", rule)
	return nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func intervalList() string {
	names := make([]string, len(binance.Intervals))
	for i, iv := range binance.Intervals {
		names[i] = iv.String()
	}
	return strings.Join(names, ", ")
}
