package binance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"klinefetch/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const klinesBody = `[
  [1700000000000,"37000.01","37100.55","36950.10","37080.42","12.5",1700000299999,"463005.1",42,"6.1","225858.3","0"],
  [1700000300000,"37080.42","37090.00","37000.00","37010.00","8.25",1700000599999,"305398.2",31,"4.0","148000.0","0"]
]`

const tickerBody = `{"symbol":"BTCUSDT","priceChange":"-94.99999800","priceChangePercent":"-95.960",
"lastPrice":"4.00000200","highPrice":"100.00000000","lowPrice":"0.10000000","volume":"8913.30000000",
"quoteVolume":"15.30000000","count":76,"firstId":28385,"lastId":28460,"bidPrice":null}`

const exchangeInfoBody = `{"timezone":"UTC","serverTime":1700000000000,"symbols":[
  {"symbol":"ETHUSDT","status":"TRADING","baseAsset":"ETH","quoteAsset":"USDT"},
  {"symbol":"BTCUSDT","status":"TRADING","baseAsset":"BTC","quoteAsset":"USDT"},
  {"symbol":"LUNAUSDT","status":"BREAK","baseAsset":"LUNA","quoteAsset":"USDT"},
  {"symbol":"ETHBTC","status":"TRADING","baseAsset":"ETH","quoteAsset":"BTC"}
]}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *RESTClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewRESTClient(Config{BaseURL: srv.URL, Timeout: 2 * time.Second})
	require.NoError(t, err)
	return c
}

// go test -v --run TestFetchKlines
func TestFetchKlines(t *testing.T) {
	var gotQuery map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		q := r.URL.Query()
		gotQuery = map[string]string{"symbol": q.Get("symbol"), "interval": q.Get("interval"), "limit": q.Get("limit")}
		_, _ = w.Write([]byte(klinesBody))
	})

	rows, err := c.FetchKlines(context.Background(), " btcusdt ", "5M", 2)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"symbol": "BTCUSDT", "interval": "5m", "limit": "2"}, gotQuery)

	require.Len(t, rows, 2)
	assert.Equal(t, market.KlineRow{
		"1700000000000", "37000.01", "37100.55", "36950.10", "37080.42", "12.5",
		"1700000299999", "463005.1", "42", "6.1", "225858.3", "0",
	}, rows[0])

	candles, err := market.MapCandles(rows, "BTCUSDT", "5m", nil)
	require.NoError(t, err)
	assert.Equal(t, "80.41", candles[0].PriceChange.String())
}

// go test -v --run TestFetchKlines_Validation
func TestFetchKlines_Validation(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := c.FetchKlines(context.Background(), "BTCUSDT", "7m", 10)
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = c.FetchKlines(context.Background(), "   ", "1m", 10)
	assert.ErrorIs(t, err, ErrSymbolRequired)

	assert.False(t, called, "invalid input must not reach the exchange")
}

// go test -v --run TestFetchKlines_LimitClamped
func TestFetchKlines_LimitClamped(t *testing.T) {
	var limits []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		limits = append(limits, r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`[]`))
	})

	for _, limit := range []int{0, -3, 5000, 1000, 1} {
		rows, err := c.FetchKlines(context.Background(), "BTCUSDT", "1m", limit)
		require.NoError(t, err)
		assert.Empty(t, rows)
	}
	assert.Equal(t, []string{"500", "500", "1000", "1000", "1"}, limits)
}

// go test -v --run TestFetchKlines_ExchangeError
func TestFetchKlines_ExchangeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	})

	_, err := c.FetchKlines(context.Background(), "NOPE", "1h", 10)
	var exErr *ExchangeError
	require.True(t, errors.As(err, &exErr), "got %v", err)
	assert.Equal(t, http.StatusBadRequest, exErr.Status)
	assert.Equal(t, int64(-1121), exErr.Code)
	assert.Equal(t, "Invalid symbol.", exErr.Message)
	assert.Equal(t, "NOPE", exErr.Symbol)
}

// go test -v --run TestFetchKlines_NonJSONError
func TestFetchKlines_NonJSONError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream overloaded", http.StatusServiceUnavailable)
	})

	_, err := c.FetchKlines(context.Background(), "BTCUSDT", "1h", 10)
	var exErr *ExchangeError
	require.True(t, errors.As(err, &exErr))
	assert.Equal(t, http.StatusServiceUnavailable, exErr.Status)
	assert.Equal(t, int64(0), exErr.Code)
	assert.Equal(t, "upstream overloaded", exErr.Message)
}

// go test -v --run TestFetchKlines_MalformedEnvelope
func TestFetchKlines_MalformedEnvelope(t *testing.T) {
	tests := []struct {
		name string
		body string
		want any
	}{
		{"object instead of array", `{"rows":[]}`, &ExchangeError{}},
		{"not json", `<html>`, &ExchangeError{}},
		{"row not an array", `[[1700000000000,"1","1","1","1","1"],{"x":1}]`, &market.MalformedRowError{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.FetchKlines(context.Background(), "BTCUSDT", "1h", 10)
			require.Error(t, err)
			switch tt.want.(type) {
			case *ExchangeError:
				var exErr *ExchangeError
				assert.True(t, errors.As(err, &exErr), "got %v", err)
			case *market.MalformedRowError:
				var rowErr *market.MalformedRowError
				require.True(t, errors.As(err, &rowErr), "got %v", err)
				assert.Equal(t, 1, rowErr.Index)
			}
		})
	}
}

// go test -v --run TestFetchKlines_NetworkError
func TestFetchKlines_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	c, err := NewRESTClient(Config{BaseURL: baseURL, Timeout: time.Second})
	require.NoError(t, err)

	_, err = c.FetchKlines(context.Background(), "BTCUSDT", "1m", 10)
	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr), "got %v", err)
	assert.Equal(t, "klines", netErr.Op)
}

// go test -v --run TestFetchKlines_Timeout
func TestFetchKlines_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c, err := NewRESTClient(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = c.FetchKlines(context.Background(), "BTCUSDT", "1m", 10)
	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr), "got %v", err)
	assert.True(t, netErr.Timeout())
}

// go test -v --run TestFetchTicker24h
func TestFetchTicker24h(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/24hr", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		_, _ = w.Write([]byte(tickerBody))
	})

	raw, err := c.FetchTicker24h(context.Background(), "btcusdt")
	require.NoError(t, err)
	assert.Equal(t, "4.00000200", raw["lastPrice"])
	assert.Equal(t, "76", raw["count"])
	assert.NotContains(t, raw, "bidPrice")

	ticker, err := market.MapTicker24h(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(76), ticker.Trades24h)
}

// go test -v --run TestFetchTicker24h_NotObject
func TestFetchTicker24h_NotObject(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[1,2,3]`))
	})

	_, err := c.FetchTicker24h(context.Background(), "BTCUSDT")
	var exErr *ExchangeError
	assert.True(t, errors.As(err, &exErr))
}

// go test -v --run TestCurrentPrice
func TestCurrentPrice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/price", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		_, _ = w.Write([]byte(`{"symbol":"BTCUSDT","price":"37080.42000000"}`))
	})

	price, err := c.CurrentPrice(context.Background(), "btcusdt")
	require.NoError(t, err)
	assert.Equal(t, "37080.42", price.String())
}

// go test -v --run TestCurrentPrice_APIError
func TestCurrentPrice_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	})

	_, err := c.CurrentPrice(context.Background(), "NOPE")
	var exErr *ExchangeError
	require.True(t, errors.As(err, &exErr), "got %v", err)
	assert.Equal(t, int64(-1121), exErr.Code)
	assert.Equal(t, "price", exErr.Op)
}

// go test -v --run TestListSymbols
func TestListSymbols(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/exchangeInfo", r.URL.Path)
		_, _ = w.Write([]byte(exchangeInfoBody))
	})

	symbols, err := c.ListSymbols(context.Background(), "usdt", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, symbols)

	symbols, err = c.ListSymbols(context.Background(), "USDT", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT"}, symbols)

	symbols, err = c.ListSymbols(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT", "ETHBTC", "ETHUSDT"}, symbols)
}

// go test -v --run TestParseInterval
func TestParseInterval(t *testing.T) {
	for _, iv := range Intervals {
		got, err := ParseInterval(iv.String())
		require.NoError(t, err)
		assert.Equal(t, iv, got)
		assert.Positive(t, got.Duration())
	}

	got, err := ParseInterval("1H")
	require.NoError(t, err)
	assert.Equal(t, Interval1Hour, got)

	got, err = ParseInterval("1m")
	require.NoError(t, err)
	assert.Equal(t, Interval1Min, got, "lowercase m is minutes")

	for _, bad := range []string{"", "2m", "1y", "60"} {
		_, err := ParseInterval(bad)
		assert.ErrorIs(t, err, ErrInvalidInterval, bad)
	}
}

// go test -v --run TestConfigDefaults
func TestConfigDefaults(t *testing.T) {
	cfg := Config{BaseURL: " https://example.test/ "}
	final := cfg.withDefaults()
	assert.Equal(t, "https://example.test", final.BaseURL)
	assert.Equal(t, DefaultTimeout, final.Timeout)

	empty := Config{}
	assert.Equal(t, DefaultBaseURL, empty.withDefaults().BaseURL)

	_, err := NewRESTClient(Config{ProxyURL: "://bad"})
	assert.Error(t, err)
}
