package binance

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"klinefetch/internal/market"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

const (
	DefaultLimit = 500
	MaxLimit     = 1000

	klinesPath   = "/api/v3/klines"
	ticker24Path = "/api/v3/ticker/24hr"
)

// RESTClient talks to the public Binance spot REST API. Klines and the 24h
// ticker are fetched raw so the mapper sees the exchange's exact text;
// prices and exchange info go through go-binance.
type RESTClient struct {
	baseURL    string
	httpClient *http.Client
	sdk        *gobinance.Client
}

func NewRESTClient(cfg Config) (*RESTClient, error) {
	final := cfg.withDefaults()
	httpClient := &http.Client{Timeout: final.Timeout}
	if final.ProxyURL != "" {
		proxyURL, err := url.Parse(final.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REST proxy url: %w", err)
		}
		baseTransport, ok := http.DefaultTransport.(*http.Transport)
		if !ok || baseTransport == nil {
			return nil, fmt.Errorf("http DefaultTransport is not *http.Transport")
		}
		transport := baseTransport.Clone()
		transport.Proxy = http.ProxyURL(proxyURL)
		httpClient.Transport = transport
	}

	sdk := gobinance.NewClient("", "")
	sdk.BaseURL = final.BaseURL
	sdk.HTTPClient = httpClient

	return &RESTClient{
		baseURL:    final.BaseURL,
		httpClient: httpClient,
		sdk:        sdk,
	}, nil
}

func (c *RESTClient) HTTPClient() *http.Client {
	return c.httpClient
}

// NormalizeSymbol trims and uppercases a trading pair.
func NormalizeSymbol(symbol string) (string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return "", ErrSymbolRequired
	}
	return symbol, nil
}

// ClampLimit maps a requested kline count into 1..MaxLimit; zero or
// negative selects DefaultLimit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// FetchKlines returns the most recent klines for symbol, oldest first, as
// positional text rows.
func (c *RESTClient) FetchKlines(ctx context.Context, symbol, interval string, limit int) ([]market.KlineRow, error) {
	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	iv, err := ParseInterval(interval)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("interval", iv.String())
	query.Set("limit", strconv.Itoa(ClampLimit(limit)))

	body, err := c.get(ctx, "klines", symbol, klinesPath, query)
	if err != nil {
		return nil, err
	}

	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return nil, &ExchangeError{Op: "klines", Symbol: symbol, Status: http.StatusOK, Message: "response is not a JSON array"}
	}

	var (
		rows   []market.KlineRow
		rowErr error
	)
	index := 0
	root.ForEach(func(_, row gjson.Result) bool {
		if !row.IsArray() {
			rowErr = &market.MalformedRowError{
				Symbol:   symbol,
				Interval: iv.String(),
				Index:    index,
				Reason:   "row is not a JSON array",
			}
			return false
		}
		fields := row.Array()
		kr := make(market.KlineRow, 0, len(fields))
		for _, f := range fields {
			kr = append(kr, fieldText(f))
		}
		rows = append(rows, kr)
		index++
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}
	return rows, nil
}

// FetchTicker24h returns the rolling 24h statistics object for symbol.
// Null values are dropped.
func (c *RESTClient) FetchTicker24h(ctx context.Context, symbol string) (market.RawTicker, error) {
	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("symbol", symbol)

	body, err := c.get(ctx, "ticker24h", symbol, ticker24Path, query)
	if err != nil {
		return nil, err
	}

	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, &ExchangeError{Op: "ticker24h", Symbol: symbol, Status: http.StatusOK, Message: "response is not a JSON object"}
	}

	raw := market.RawTicker{}
	root.ForEach(func(key, value gjson.Result) bool {
		if value.Type == gjson.Null {
			return true
		}
		raw[key.String()] = fieldText(value)
		return true
	})
	return raw, nil
}

// CurrentPrice returns the latest traded price for symbol.
func (c *RESTClient) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return decimal.Zero, err
	}

	prices, err := c.sdk.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return decimal.Zero, classify("price", symbol, err)
	}
	for _, p := range prices {
		if p == nil || p.Symbol != symbol {
			continue
		}
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return decimal.Zero, &ExchangeError{Op: "price", Symbol: symbol, Message: "unparseable price " + strconv.Quote(p.Price)}
		}
		return price, nil
	}
	return decimal.Zero, &ExchangeError{Op: "price", Symbol: symbol, Message: "symbol missing from price response"}
}

// ListSymbols returns trading symbols quoted in quote, sorted by name. A
// limit of zero or less returns all of them.
func (c *RESTClient) ListSymbols(ctx context.Context, quote string, limit int) ([]string, error) {
	quote = strings.ToUpper(strings.TrimSpace(quote))

	info, err := c.sdk.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, classify("exchangeInfo", "", err)
	}

	var symbols []string
	for _, s := range info.Symbols {
		if s.Status != "TRADING" {
			continue
		}
		if quote != "" && s.QuoteAsset != quote {
			continue
		}
		symbols = append(symbols, s.Symbol)
	}
	slices.Sort(symbols)
	if limit > 0 && len(symbols) > limit {
		symbols = symbols[:limit]
	}
	return symbols, nil
}

func (c *RESTClient) get(ctx context.Context, op, symbol, path string, query url.Values) ([]byte, error) {
	endpoint := c.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Symbol: symbol, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: op, Symbol: symbol, Err: fmt.Errorf("reading body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, exchangeErrorFromBody(op, symbol, resp.StatusCode, body)
	}
	if !gjson.ValidBytes(body) {
		return nil, &ExchangeError{Op: op, Symbol: symbol, Status: resp.StatusCode, Message: "response is not valid JSON"}
	}
	return body, nil
}

func exchangeErrorFromBody(op, symbol string, status int, body []byte) *ExchangeError {
	e := &ExchangeError{Op: op, Symbol: symbol, Status: status}
	if gjson.ValidBytes(body) {
		envelope := gjson.ParseBytes(body)
		if code := envelope.Get("code"); code.Exists() {
			e.Code = code.Int()
		}
		e.Message = envelope.Get("msg").String()
	}
	if e.Message == "" {
		e.Message = strings.TrimSpace(string(body))
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

// fieldText keeps numbers in their exact wire form.
func fieldText(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.Null:
		return ""
	default:
		return v.Raw
	}
}
