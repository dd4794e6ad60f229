// Package symbolcatalog keeps the exchange's list of trading symbols for one
// quote asset in memory, refreshed once a day at UTC midnight.
package symbolcatalog

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Loader fetches every trading symbol quoted in quote.
type Loader func(ctx context.Context, quote string) ([]string, error)

type Catalog struct {
	quote   string
	load    Loader
	timeout time.Duration
	logger  *zap.Logger

	mu       sync.RWMutex
	symbols  []string
	loadedAt time.Time
}

func New(quote string, load Loader, timeout time.Duration, logger *zap.Logger) *Catalog {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{
		quote:   strings.ToUpper(strings.TrimSpace(quote)),
		load:    load,
		timeout: timeout,
		logger:  logger,
	}
}

// Quote returns the quote asset the catalog tracks.
func (c *Catalog) Quote() string {
	return c.quote
}

// Refresh replaces the catalog contents. On error the previous list is kept.
func (c *Catalog) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	symbols, err := c.load(ctx, c.quote)
	if err != nil {
		c.logger.Error("failed to load symbols", zap.String("quote", c.quote), zap.Error(err))
		return err
	}

	c.mu.Lock()
	c.symbols = symbols
	c.loadedAt = time.Now()
	c.mu.Unlock()

	c.logger.Info("loaded symbols", zap.String("quote", c.quote), zap.Int("count", len(symbols)))
	return nil
}

// Symbols returns up to limit symbols (all when limit <= 0) if quote is the
// tracked asset and a load has succeeded.
func (c *Catalog) Symbols(quote string, limit int) ([]string, bool) {
	if !strings.EqualFold(quote, c.quote) {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.loadedAt.IsZero() {
		return nil, false
	}
	n := len(c.symbols)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]string, n)
	copy(out, c.symbols[:n])
	return out, true
}

// LoadedAt reports when the last successful refresh finished.
func (c *Catalog) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

// Start refreshes immediately, then at the next UTC midnight and every 24
// hours after that, until ctx is done.
func (c *Catalog) Start(ctx context.Context) {
	go func() {
		// Run immediately once at startup
		_ = c.Refresh(ctx)

		// Wait until next UTC midnight
		timer := time.NewTimer(time.Until(nextMidnight(time.Now())))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		// Then run once every 24 hours
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for {
			_ = c.Refresh(ctx)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

func nextMidnight(now time.Time) time.Time {
	return now.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
}
