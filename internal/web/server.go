package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"klinefetch/internal/fetcher"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MarketService is what the handlers need from the fetcher.
type MarketService interface {
	Snapshot(ctx context.Context, symbol, interval string, limit int) (*fetcher.Snapshot, error)
	Symbols(ctx context.Context, quote string, limit int) ([]string, error)
	Location() *time.Location
}

// SymbolCatalog serves a preloaded symbol list. ok is false when it cannot
// answer for quote.
type SymbolCatalog interface {
	Symbols(quote string, limit int) (symbols []string, ok bool)
}

// Config describes the HTTP server and its dependencies.
type Config struct {
	Addr           string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration

	DefaultInterval string
	DefaultLimit    int

	Service MarketService
	Catalog SymbolCatalog // optional
	Logger  *zap.Logger
}

// Server serves the JSON API over gin.
type Server struct {
	cfg    Config
	router *gin.Engine
	logger *zap.Logger
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.Service == nil {
		return nil, errors.New("web: service is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.DefaultInterval == "" {
		cfg.DefaultInterval = "5m"
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 50
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(cfg.AllowedOrigins))
	router.Use(requestID())
	router.Use(accessLog(cfg.Logger))

	s := &Server{cfg: cfg, router: router, logger: cfg.Logger}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	api.GET("/symbols", s.handleSymbols)
	api.POST("/fetch", s.handleFetch)
	api.POST("/export/json", s.handleExportJSON)
	api.POST("/export/csv", s.handleExportCSV)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		return cors.Default()
	}
	cfg := cors.DefaultConfig()
	cfg.AllowOrigins = origins
	cfg.ExposeHeaders = []string{"Content-Disposition", requestIDHeader}
	return cors.New(cfg)
}
