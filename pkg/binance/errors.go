package binance

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/adshao/go-binance/v2/common"
)

var (
	ErrInvalidInterval = errors.New("invalid kline interval")
	ErrSymbolRequired  = errors.New("symbol is required")
)

// NetworkError reports a transport failure: refused connection, DNS,
// timeout or a cancelled context.
type NetworkError struct {
	Op     string
	Symbol string
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Symbol == "" {
		return fmt.Sprintf("binance %s: network error: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("binance %s %s: network error: %v", e.Op, e.Symbol, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a deadline.
func (e *NetworkError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(e.Err, &t) && t.Timeout()
}

// ExchangeError is a non-success answer from the exchange, or a body that
// does not have the documented shape. Code and Message carry Binance's
// {"code","msg"} envelope when it could be decoded.
type ExchangeError struct {
	Op      string
	Symbol  string
	Status  int
	Code    int64
	Message string
}

func (e *ExchangeError) Error() string {
	target := e.Op
	if e.Symbol != "" {
		target += " " + e.Symbol
	}
	switch {
	case e.Code != 0:
		return fmt.Sprintf("binance %s: status %d: code %d: %s", target, e.Status, e.Code, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("binance %s: status %d: %s", target, e.Status, e.Message)
	default:
		return fmt.Sprintf("binance %s: %s", target, e.Message)
	}
}

// classify maps errors coming out of go-binance onto the local taxonomy.
func classify(op, symbol string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return &ExchangeError{Op: op, Symbol: symbol, Code: apiErr.Code, Message: apiErr.Message}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &NetworkError{Op: op, Symbol: symbol, Err: err}
	}
	return &ExchangeError{Op: op, Symbol: symbol, Message: err.Error()}
}
