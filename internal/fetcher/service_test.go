package fetcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"klinefetch/internal/market"
	"klinefetch/pkg/binance"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClient struct {
	mu      sync.Mutex
	symbols []string

	rows      []market.KlineRow
	ticker    market.RawTicker
	price     decimal.Decimal
	klinesErr error
	tickerErr error
	priceErr  error
	listErr   error

	blockPrice bool
}

func (f *fakeClient) record(symbol string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.symbols = append(f.symbols, symbol)
}

func (f *fakeClient) FetchKlines(ctx context.Context, symbol, interval string, limit int) ([]market.KlineRow, error) {
	f.record(symbol)
	return f.rows, f.klinesErr
}

func (f *fakeClient) FetchTicker24h(ctx context.Context, symbol string) (market.RawTicker, error) {
	f.record(symbol)
	return f.ticker, f.tickerErr
}

func (f *fakeClient) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	f.record(symbol)
	if f.blockPrice {
		<-ctx.Done()
		return decimal.Zero, &binance.NetworkError{Op: "price", Symbol: symbol, Err: ctx.Err()}
	}
	return f.price, f.priceErr
}

func (f *fakeClient) ListSymbols(ctx context.Context, quote string, limit int) ([]string, error) {
	return []string{"BTCUSDT", "ETHUSDT"}, f.listErr
}

func newFake() *fakeClient {
	return &fakeClient{
		rows: []market.KlineRow{
			{"1700000000000", "100", "110", "90", "105", "50"},
			{"1700000300000", "105", "120", "100", "118", "70"},
		},
		ticker: market.RawTicker{
			"symbol": "BTCUSDT", "lastPrice": "118", "priceChange": "3", "priceChangePercent": "2.6",
			"highPrice": "120", "lowPrice": "88", "volume": "1000", "quoteVolume": "110000", "count": "10",
		},
		price: decimal.RequireFromString("118.5"),
	}
}

// go test -v --run TestService_Snapshot
func TestService_Snapshot(t *testing.T) {
	fake := newFake()
	loc := time.FixedZone("UTC+9", 9*60*60)
	svc := NewService(fake, loc, zap.NewNop())

	snap, err := svc.Snapshot(context.Background(), " btcusdt", "5m", 2)
	require.NoError(t, err)

	require.Len(t, snap.Candles, 2)
	assert.Equal(t, loc, snap.Candles[0].OpenTime.Location())
	assert.Equal(t, "BTCUSDT", snap.Ticker.Symbol)
	assert.Equal(t, "118.5", snap.Price.String())

	assert.Equal(t, "BTCUSDT", snap.Summary.Symbol)
	assert.Equal(t, "118.5", snap.Summary.CurrentPrice.String())
	assert.Equal(t, "18", snap.Summary.IntradayChange.String())
	assert.Equal(t, 2, snap.Summary.Candles)

	for _, s := range fake.symbols {
		assert.Equal(t, "BTCUSDT", s)
	}
}

// go test -v --run TestService_SnapshotFirstErrorWins
func TestService_SnapshotFirstErrorWins(t *testing.T) {
	fake := newFake()
	fake.blockPrice = true
	fake.klinesErr = &binance.ExchangeError{Op: "klines", Symbol: "NOPE", Status: 400, Code: -1121, Message: "Invalid symbol."}
	svc := NewService(fake, nil, nil)

	done := make(chan struct{})
	var err error
	go func() {
		_, err = svc.Snapshot(context.Background(), "NOPE", "5m", 2)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("snapshot did not cancel the blocked request")
	}

	var exErr *binance.ExchangeError
	require.True(t, errors.As(err, &exErr), "got %v", err)
	assert.Equal(t, int64(-1121), exErr.Code)
}

// go test -v --run TestService_Candles_MapperErrors
func TestService_Candles_MapperErrors(t *testing.T) {
	fake := newFake()
	fake.rows = nil
	svc := NewService(fake, nil, nil)

	_, err := svc.Candles(context.Background(), "BTCUSDT", "1h", 10)
	var empty *market.EmptyResultError
	require.True(t, errors.As(err, &empty))
	assert.Equal(t, "BTCUSDT", empty.Symbol)

	fake.rows = []market.KlineRow{{"1700000000000", "1"}}
	_, err = svc.Candles(context.Background(), "BTCUSDT", "1h", 10)
	var malformed *market.MalformedRowError
	assert.True(t, errors.As(err, &malformed))
}

// go test -v --run TestService_Ticker24h_Malformed
func TestService_Ticker24h_Malformed(t *testing.T) {
	fake := newFake()
	delete(fake.ticker, "lastPrice")
	svc := NewService(fake, nil, nil)

	_, err := svc.Ticker24h(context.Background(), "BTCUSDT")
	var malformed *market.MalformedTickerError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "lastPrice", malformed.Key)
}

// go test -v --run TestService_SymbolRequired
func TestService_SymbolRequired(t *testing.T) {
	fake := newFake()
	svc := NewService(fake, nil, nil)

	_, err := svc.Snapshot(context.Background(), "  ", "5m", 10)
	assert.ErrorIs(t, err, binance.ErrSymbolRequired)
	assert.Empty(t, fake.symbols)
}

// go test -v --run TestService_Symbols
func TestService_Symbols(t *testing.T) {
	fake := newFake()
	svc := NewService(fake, nil, nil)

	symbols, err := svc.Symbols(context.Background(), "USDT", 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, symbols)

	fake.listErr = errors.New("boom")
	_, err = svc.Symbols(context.Background(), "USDT", 50)
	assert.ErrorIs(t, err, fake.listErr)
}
