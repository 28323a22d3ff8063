package internal

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/tradesignals/config"
	"github.com/vadiminshakov/tradesignals/internal/domain"
	"github.com/vadiminshakov/tradesignals/internal/services/aggregator"
	"github.com/vadiminshakov/tradesignals/internal/services/insights"
	"github.com/vadiminshakov/tradesignals/internal/services/market/collector"
	"github.com/vadiminshakov/tradesignals/internal/services/pricer"
	"github.com/vadiminshakov/tradesignals/internal/storage/pricecache"
	"github.com/vadiminshakov/tradesignals/internal/storage/signals"
)

// App holds the wired signal engine.
type App struct {
	Bot      *SignalBot
	Insights *insights.Service
	Journal  *signals.Journal
	Registry *prometheus.Registry

	priceCache *pricecache.Store
}

// NewApp builds every component from the configuration.
func NewApp(conf config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	app := &App{Registry: prometheus.NewRegistry()}
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	metrics, err := aggregator.NewMetrics(app.Registry)
	if err != nil {
		return nil, err
	}
	agg, reasoner, err := newStrategyFactory(logger).createAggregator(conf, metrics)
	if err != nil {
		return nil, err
	}

	coinGecko := collector.NewCoinGeckoProvider(collector.CoinGeckoConfig{})
	forex := collector.NewForexProvider(collector.ForexConfig{APIKey: conf.Credentials.ForexAPIKey})

	cryptoSource, forexSource, err := app.seriesProviders(conf, coinGecko, forex, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	currentPricer, err := newPricer(conf)
	if err != nil {
		app.Close()
		return nil, err
	}

	cryptoCollector, err := collector.NewCollector(cryptoSource, logger.Named("crypto"),
		collector.WithMinPoints(conf.MinPoints),
		collector.WithLimit(conf.Limit),
	)
	if err != nil {
		app.Close()
		return nil, errors.Wrap(err, "failed to create crypto collector")
	}
	forexCollector, err := collector.NewCollector(forexSource, logger.Named("forex"),
		collector.WithMinPoints(conf.MinPoints),
		collector.WithLimit(conf.ForexDays),
	)
	if err != nil {
		app.Close()
		return nil, errors.Wrap(err, "failed to create forex collector")
	}

	app.Journal = signals.New(conf.JournalSize)

	var top topCoins
	if conf.CryptoSource == "coingecko" {
		top = coinGecko
	}
	universe := NewUniverse(conf.Instruments, top, conf.CryptoTop, conf.ForexPairs, logger)

	app.Bot, err = NewSignalBot(agg, map[domain.MarketKind]SeriesCollector{
		domain.MarketCrypto: cryptoCollector,
		domain.MarketForex:  forexCollector,
	}, currentPricer, universe, app.Journal, conf.Concurrency, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Insights, err = insights.NewService(coinGecko, forex, conf.ForexPairs, reasoner, logger.Named("insights"))
	if err != nil {
		app.Close()
		return nil, err
	}

	return app, nil
}

// seriesProviders picks the crypto and forex history sources. Replay serves both from the
// price cache; record wraps live sources so they fill it.
func (a *App) seriesProviders(conf config.Config, coinGecko *collector.CoinGeckoProvider, forex *collector.ForexProvider,
	logger *zap.Logger) (crypto, fx collector.SeriesProvider, err error) {
	if conf.CryptoSource == "replay" || conf.Record {
		if a.priceCache, err = pricecache.Open(conf.CacheDir); err != nil {
			return nil, nil, err
		}
	}

	switch conf.CryptoSource {
	case "replay":
		replay := collector.NewReplayProvider(a.priceCache)
		return replay, replay, nil
	case "coingecko":
		crypto = coinGecko
	default:
		client, err := newExchangeClient(conf.CryptoSource, conf)
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to create market data client")
		}
		sp, err := newServiceProvider(client)
		if err != nil {
			return nil, nil, err
		}
		crypto = sp.SeriesProvider(conf.Interval)
	}
	fx = forex

	if conf.Record {
		crypto = collector.NewWALCache(crypto, a.priceCache, logger)
		fx = collector.NewWALCache(fx, a.priceCache, logger)
	}
	return crypto, fx, nil
}

// newPricer returns nil when no current-price source is configured.
func newPricer(conf config.Config) (pricer.Pricer, error) {
	if conf.PriceSource == "" || conf.PriceSource == "none" {
		return nil, nil
	}
	client, err := newExchangeClient(conf.PriceSource, conf)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create price client")
	}
	sp, err := newServiceProvider(client)
	if err != nil {
		return nil, err
	}
	return sp.Pricer(), nil
}

// Close releases the price cache.
func (a *App) Close() error {
	if a.priceCache == nil {
		return nil
	}
	return a.priceCache.Close()
}
