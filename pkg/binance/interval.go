package binance

import (
	"fmt"
	"strings"
	"time"
)

// Interval is a Binance kline interval as sent on the wire.
type Interval string

const (
	Interval1Min   Interval = "1m"
	Interval3Min   Interval = "3m"
	Interval5Min   Interval = "5m"
	Interval15Min  Interval = "15m"
	Interval30Min  Interval = "30m"
	Interval1Hour  Interval = "1h"
	Interval2Hour  Interval = "2h"
	Interval4Hour  Interval = "4h"
	Interval6Hour  Interval = "6h"
	Interval8Hour  Interval = "8h"
	Interval12Hour Interval = "12h"
	Interval1Day   Interval = "1d"
	Interval3Day   Interval = "3d"
	Interval1Week  Interval = "1w"
	Interval1Month Interval = "1M"
)

// validIntervals maps each interval to its nominal bar length.
var validIntervals = map[Interval]time.Duration{
	Interval1Min:   time.Minute,
	Interval3Min:   3 * time.Minute,
	Interval5Min:   5 * time.Minute,
	Interval15Min:  15 * time.Minute,
	Interval30Min:  30 * time.Minute,
	Interval1Hour:  time.Hour,
	Interval2Hour:  2 * time.Hour,
	Interval4Hour:  4 * time.Hour,
	Interval6Hour:  6 * time.Hour,
	Interval8Hour:  8 * time.Hour,
	Interval12Hour: 12 * time.Hour,
	Interval1Day:   24 * time.Hour,
	Interval3Day:   3 * 24 * time.Hour,
	Interval1Week:  7 * 24 * time.Hour,
	Interval1Month: 30 * 24 * time.Hour, // nominal; calendar months vary
}

// Intervals lists the supported intervals, shortest first.
var Intervals = []Interval{
	Interval1Min, Interval3Min, Interval5Min, Interval15Min, Interval30Min,
	Interval1Hour, Interval2Hour, Interval4Hour, Interval6Hour, Interval8Hour, Interval12Hour,
	Interval1Day, Interval3Day, Interval1Week, Interval1Month,
}

func (i Interval) IsValid() bool {
	_, ok := validIntervals[i]
	return ok
}

// Duration returns the nominal bar length, or zero for an unknown interval.
func (i Interval) Duration() time.Duration {
	return validIntervals[i]
}

func (i Interval) String() string {
	return string(i)
}

// ParseInterval accepts an interval string. "1M" (month) is case sensitive;
// every other interval is matched case-insensitively.
func ParseInterval(s string) (Interval, error) {
	s = strings.TrimSpace(s)
	if s == string(Interval1Month) {
		return Interval1Month, nil
	}
	interval := Interval(strings.ToLower(s))
	if !interval.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidInterval, s)
	}
	return interval, nil
}
