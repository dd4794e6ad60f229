package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"klinefetch/config"
	"klinefetch/internal/fetcher"
	"klinefetch/internal/symbolcatalog"
	"klinefetch/internal/web"
	"klinefetch/logger"
	"klinefetch/pkg/binance"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	flags := pflag.NewFlagSet("klinefetch-server", pflag.ExitOnError)
	configPath := flags.String("config", "", "path to a config file")
	flags.String("addr", ":8080", "listen address")
	flags.String("base-url", "", "Binance REST base URL")
	flags.String("log-level", "info", "log level")
	_ = flags.Parse(os.Args[1:])

	// viper config
	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(2)
	}

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	if cfg.Log.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	client, err := binance.NewRESTClient(cfg.Binance.REST.Client())
	if err != nil {
		log.Fatal("failed to create binance client", zap.Error(err))
	}
	loc, err := cfg.Display.Location()
	if err != nil {
		log.Fatal("invalid display timezone", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := fetcher.NewService(client, loc, log)

	// symbol list refreshed at startup and every UTC midnight
	catalog := symbolcatalog.New(cfg.Server.CatalogQuote, func(ctx context.Context, quote string) ([]string, error) {
		return svc.Symbols(ctx, quote, 0)
	}, cfg.Binance.REST.Timeout, log)
	catalog.Start(ctx)

	srv, err := web.NewServer(web.Config{
		Addr:            cfg.Server.Addr,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		DefaultInterval: cfg.Display.Interval.String(),
		DefaultLimit:    cfg.Display.Limit,
		Service:         svc,
		Catalog:         catalog,
		Logger:          log,
	})
	if err != nil {
		log.Fatal("failed to create http server", zap.Error(err))
	}

	if err := srv.Run(ctx); err != nil {
		log.Fatal("http server failed", zap.Error(err))
	}
}
