package market

import "fmt"

// MalformedRowError reports a kline row that does not match the documented
// positional layout. Index is the zero-based row position, or -1 when the
// row could not be located.
type MalformedRowError struct {
	Symbol   string
	Interval string
	Index    int
	Field    string
	Reason   string
}

func (e *MalformedRowError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("malformed kline row %d for %s %s: %s", e.Index, e.Symbol, e.Interval, e.Reason)
	}
	return fmt.Sprintf("malformed kline row %d for %s %s: field %q: %s", e.Index, e.Symbol, e.Interval, e.Field, e.Reason)
}

// MalformedTickerError reports a 24h ticker object with a missing or
// unparseable key.
type MalformedTickerError struct {
	Symbol string
	Key    string
	Reason string
}

func (e *MalformedTickerError) Error() string {
	symbol := e.Symbol
	if symbol == "" {
		symbol = "<unknown>"
	}
	return fmt.Sprintf("malformed 24h ticker for %s: key %q: %s", symbol, e.Key, e.Reason)
}

// EmptyResultError means the exchange answered with no klines.
type EmptyResultError struct {
	Symbol   string
	Interval string
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("no klines returned for %s %s", e.Symbol, e.Interval)
}
