package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"klinefetch/internal/export"
	"klinefetch/internal/fetcher"
	"klinefetch/internal/market"
	"klinefetch/pkg/binance"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const attachmentTimeLayout = "20060102_150405"

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// GET /api/symbols?quote=USDT&limit=50
func (s *Server) handleSymbols(c *gin.Context) {
	quote := strings.ToUpper(c.DefaultQuery("quote", "USDT"))
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 0 {
		s.fail(c, http.StatusBadRequest, fmt.Errorf("invalid limit %q", c.Query("limit")))
		return
	}

	if s.cfg.Catalog != nil {
		if symbols, ok := s.cfg.Catalog.Symbols(quote, limit); ok {
			c.JSON(http.StatusOK, symbolsResponse{Success: true, Symbols: symbols})
			return
		}
	}

	symbols, err := s.cfg.Service.Symbols(c.Request.Context(), quote, limit)
	if err != nil {
		s.fail(c, statusFor(err), err)
		return
	}
	if symbols == nil {
		symbols = []string{}
	}
	c.JSON(http.StatusOK, symbolsResponse{Success: true, Symbols: symbols})
}

func (s *Server) handleFetch(c *gin.Context) {
	snap, ok := s.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newFetchResponse(snap))
}

func (s *Server) handleExportJSON(c *gin.Context) {
	snap, ok := s.snapshot(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteTradingViewJSON(&buf, market.ToTradingView(snap.Candles)); err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	s.attach(c, fmt.Sprintf("tradingview_%s_%s.json", snap.Summary.Symbol, time.Now().Format(attachmentTimeLayout)),
		"application/json", buf.Bytes())
}

func (s *Server) handleExportCSV(c *gin.Context) {
	snap, ok := s.snapshot(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, snap.Candles, s.cfg.Service.Location()); err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	s.attach(c, fmt.Sprintf("ohlc_%s_%s.csv", snap.Summary.Symbol, time.Now().Format(attachmentTimeLayout)),
		"text/csv", buf.Bytes())
}

// snapshot binds the fetch request and runs it. On failure the response
// has already been written.
func (s *Server) snapshot(c *gin.Context) (*fetcher.Snapshot, bool) {
	var req fetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return nil, false
	}
	if strings.TrimSpace(req.Symbol) == "" {
		s.fail(c, http.StatusBadRequest, binance.ErrSymbolRequired)
		return nil, false
	}
	if req.Interval == "" {
		req.Interval = s.cfg.DefaultInterval
	}
	interval, err := binance.ParseInterval(req.Interval)
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return nil, false
	}
	if req.Limit <= 0 {
		req.Limit = s.cfg.DefaultLimit
	}

	snap, err := s.cfg.Service.Snapshot(c.Request.Context(), req.Symbol, interval.String(), req.Limit)
	if err != nil {
		s.fail(c, statusFor(err), err)
		return nil, false
	}
	return snap, true
}

func (s *Server) attach(c *gin.Context, filename, contentType string, body []byte) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, contentType, body)
}

func (s *Server) fail(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request error", zap.String("path", c.Request.URL.Path), zap.Int("status", status), zap.Error(err))
	}
	c.JSON(status, errorResponse{Success: false, Error: err.Error()})
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var (
		netErr    *binance.NetworkError
		exErr     *binance.ExchangeError
		emptyErr  *market.EmptyResultError
		rowErr    *market.MalformedRowError
		tickerErr *market.MalformedTickerError
	)
	switch {
	case errors.Is(err, binance.ErrSymbolRequired), errors.Is(err, binance.ErrInvalidInterval):
		return http.StatusBadRequest
	case errors.As(err, &emptyErr):
		return http.StatusNotFound
	case errors.As(err, &netErr):
		return http.StatusGatewayTimeout
	case errors.As(err, &exErr), errors.As(err, &rowErr), errors.As(err, &tickerErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
