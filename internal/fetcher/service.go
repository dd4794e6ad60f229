package fetcher

import (
	"context"
	"fmt"
	"time"

	"klinefetch/internal/market"
	"klinefetch/pkg/binance"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MarketClient is the exchange surface the service depends on.
// *binance.RESTClient satisfies it.
type MarketClient interface {
	FetchKlines(ctx context.Context, symbol, interval string, limit int) ([]market.KlineRow, error)
	FetchTicker24h(ctx context.Context, symbol string) (market.RawTicker, error)
	CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	ListSymbols(ctx context.Context, quote string, limit int) ([]string, error)
}

// Service fetches raw market data and maps it into the domain types.
type Service struct {
	client MarketClient
	loc    *time.Location
	logger *zap.Logger
}

// NewService builds a Service. Candle times are expressed in loc; nil
// means UTC.
func NewService(client MarketClient, loc *time.Location, logger *zap.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: client, loc: loc, logger: logger}
}

// Location returns the display location applied to candle times.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Snapshot is everything the CLI and web front end show for one request.
type Snapshot struct {
	Candles []market.Candle
	Ticker  market.SymbolTicker
	Price   decimal.Decimal
	Summary market.Summary
}

// Candles fetches and maps the most recent klines.
func (s *Service) Candles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	start := time.Now()
	symbol, err := binance.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	rows, err := s.client.FetchKlines(ctx, symbol, interval, limit)
	if err != nil {
		s.logger.Warn("failed to fetch klines",
			zap.String("symbol", symbol), zap.String("interval", interval), zap.Error(err))
		return nil, err
	}

	candles, err := market.MapCandles(rows, symbol, interval, s.loc)
	if err != nil {
		s.logger.Warn("failed to map klines",
			zap.String("symbol", symbol), zap.String("interval", interval), zap.Error(err))
		return nil, err
	}

	s.logger.Debug("fetched klines",
		zap.String("symbol", symbol),
		zap.String("interval", interval),
		zap.Int("count", len(candles)),
		zap.Duration("took", time.Since(start)),
	)
	return candles, nil
}

// Ticker24h fetches and maps the rolling 24h statistics.
func (s *Service) Ticker24h(ctx context.Context, symbol string) (market.SymbolTicker, error) {
	start := time.Now()
	symbol, err := binance.NormalizeSymbol(symbol)
	if err != nil {
		return market.SymbolTicker{}, err
	}
	raw, err := s.client.FetchTicker24h(ctx, symbol)
	if err != nil {
		s.logger.Warn("failed to fetch 24h ticker", zap.String("symbol", symbol), zap.Error(err))
		return market.SymbolTicker{}, err
	}

	ticker, err := market.MapTicker24h(raw)
	if err != nil {
		s.logger.Warn("failed to map 24h ticker", zap.String("symbol", symbol), zap.Error(err))
		return market.SymbolTicker{}, err
	}

	s.logger.Debug("fetched 24h ticker", zap.String("symbol", symbol), zap.Duration("took", time.Since(start)))
	return ticker, nil
}

// Snapshot fetches candles, the 24h ticker and the current price
// concurrently. The first failure cancels the other requests and is
// returned as is.
func (s *Service) Snapshot(ctx context.Context, symbol, interval string, limit int) (*Snapshot, error) {
	start := time.Now()
	symbol, err := binance.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	var (
		candles []market.Candle
		ticker  market.SymbolTicker
		price   decimal.Decimal
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		candles, err = s.Candles(gctx, symbol, interval, limit)
		return err
	})
	g.Go(func() error {
		var err error
		ticker, err = s.Ticker24h(gctx, symbol)
		return err
	})
	g.Go(func() error {
		var err error
		price, err = s.client.CurrentPrice(gctx, symbol)
		if err != nil {
			s.logger.Warn("failed to fetch current price", zap.String("symbol", symbol), zap.Error(err))
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := market.Summarize(symbol, interval, candles, ticker, price)
	s.logger.Info("snapshot ready",
		zap.String("symbol", symbol),
		zap.String("interval", interval),
		zap.Int("count", len(candles)),
		zap.Duration("took", time.Since(start)),
	)

	return &Snapshot{
		Candles: candles,
		Ticker:  ticker,
		Price:   price,
		Summary: summary,
	}, nil
}

// Symbols lists trading symbols quoted in quote.
func (s *Service) Symbols(ctx context.Context, quote string, limit int) ([]string, error) {
	symbols, err := s.client.ListSymbols(ctx, quote, limit)
	if err != nil {
		s.logger.Warn("failed to list symbols", zap.String("quote", quote), zap.Error(err))
		return nil, fmt.Errorf("list %s symbols: %w", quote, err)
	}
	s.logger.Debug("listed symbols", zap.String("quote", quote), zap.Int("count", len(symbols)))
	return symbols, nil
}
