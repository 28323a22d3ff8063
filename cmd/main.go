// Command tradesignals generates BUY/SELL/HOLD signals for crypto and forex instruments
// from technical indicators, optionally asking a reasoning service first.
//
// Usage:
//
//	tradesignals -config config.yaml            print one batch and exit
//	tradesignals -config config.yaml -watch     print a batch every batch.watch_interval
//	tradesignals -config config.yaml -serve     serve the HTTP API and stream signals
//	tradesignals -setup                         run the configuration wizard
//
// Secrets are read from the environment or the -env file:
//
//	REASONING_API_KEY, FOREX_API_KEY
//	BINANCE_API_KEY, BINANCE_API_SECRET, BYBIT_API_KEY, BYBIT_API_SECRET
//	HYPERLIQUID_PRIVATE_KEY
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/tradesignals/config"
	"github.com/vadiminshakov/tradesignals/internal"
	"github.com/vadiminshakov/tradesignals/internal/services/aggregator"
	"github.com/vadiminshakov/tradesignals/internal/setup"
	"github.com/vadiminshakov/tradesignals/internal/web"
)

func main() {
	flags, err := config.ParseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}

	if flags.Setup {
		if err := setup.RunTUI(setup.DefaultPath); err != nil {
			log.Fatal(err)
		}
		if flags.ConfigPath == "" {
			flags.ConfigPath = setup.DefaultPath
		}
	}

	conf, err := config.Load(flags.ConfigPath, flags.EnvFile)
	if err != nil {
		log.Fatal(err)
	}
	if flags.Addr != "" {
		conf.Server.Addr = flags.Addr
	}

	logger, err := newLogger(conf.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flags, conf, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("tradesignals stopped", zap.Error(err))
	}
}

func run(ctx context.Context, flags config.Flags, conf config.Config, logger *zap.Logger) error {
	app, err := internal.NewApp(conf, logger)
	if err != nil {
		return errors.Wrap(err, "failed to build signal engine")
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("failed to close storage", zap.Error(err))
		}
	}()

	printBatch := func(b aggregator.Batch) { fmt.Println(renderBatch(b)) }

	switch {
	case flags.Serve:
		return serve(ctx, app, flags, conf, logger)
	case flags.Watch:
		return app.Bot.Watch(ctx, conf.WatchInterval, flags.Market, printBatch)
	default:
		batch, err := app.Bot.Batch(ctx, flags.Market)
		if err != nil {
			return err
		}
		printBatch(batch)
		return nil
	}
}

// serve runs the HTTP API next to the watch loop that feeds its streams.
func serve(ctx context.Context, app *internal.App, flags config.Flags, conf config.Config, logger *zap.Logger) error {
	server, err := web.NewServer(conf.Server.Addr, app.Bot, app.Insights, app.Journal, app.Registry, logger.Named("web"))
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if conf.Server.Domain != "" {
			return server.StartWithAutoTLS(gctx, []string{conf.Server.Domain}, conf.Server.CertCacheDir)
		}
		return server.Start(gctx)
	})
	g.Go(func() error {
		return app.Bot.Watch(gctx, conf.WatchInterval, flags.Market, nil)
	})
	return g.Wait()
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", level)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
