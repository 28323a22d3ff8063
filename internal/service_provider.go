package internal

import (
	"fmt"

	binance "github.com/adshao/go-binance/v2"
	bybit "github.com/hirokisan/bybit/v2"

	"github.com/vadiminshakov/tradesignals/config"
	"github.com/vadiminshakov/tradesignals/internal/clients"
	"github.com/vadiminshakov/tradesignals/internal/services/market/collector"
	"github.com/vadiminshakov/tradesignals/internal/services/pricer"
)

// serviceProvider creates the exchange-specific market data services.
type serviceProvider interface {
	Pricer() pricer.Pricer
	SeriesProvider(interval string) collector.SeriesProvider
}

// newExchangeClient creates the API client of an exchange platform.
func newExchangeClient(platform string, conf config.Config) (any, error) {
	creds := conf.Credentials
	switch platform {
	case "binance":
		return clients.NewBinanceClient(creds.BinanceKey, creds.BinanceSecret), nil
	case "bybit":
		return clients.NewBybitClient(creds.BybitKey, creds.BybitSecret), nil
	case "hyperliquid":
		return clients.NewHyperliquidClient(creds.HyperliquidKey, conf.HyperliquidURL)
	default:
		return nil, fmt.Errorf("unsupported platform: %s", platform)
	}
}

// newServiceProvider dispatches on the client type. It is the single place that knows
// which concrete services belong to which exchange.
func newServiceProvider(client any) (serviceProvider, error) {
	switch c := client.(type) {
	case *binance.Client:
		return &binanceProvider{client: c}, nil
	case *bybit.Client:
		return &bybitProvider{client: c}, nil
	case *clients.HyperliquidClient:
		return &hyperliquidProvider{client: c}, nil
	default:
		return nil, fmt.Errorf("unsupported client type: %T", client)
	}
}

type binanceProvider struct {
	client *binance.Client
}

func (p *binanceProvider) Pricer() pricer.Pricer {
	return pricer.NewBinancePricer(p.client)
}
func (p *binanceProvider) SeriesProvider(interval string) collector.SeriesProvider {
	return collector.NewBinanceProvider(p.client, interval)
}

type bybitProvider struct {
	client *bybit.Client
}

func (p *bybitProvider) Pricer() pricer.Pricer {
	return pricer.NewBybitPricer(p.client)
}
func (p *bybitProvider) SeriesProvider(interval string) collector.SeriesProvider {
	return collector.NewBybitProvider(p.client, interval)
}

type hyperliquidProvider struct {
	client *clients.HyperliquidClient
}

func (p *hyperliquidProvider) Pricer() pricer.Pricer {
	return pricer.NewHyperliquidPricer(p.client.Info())
}
func (p *hyperliquidProvider) SeriesProvider(interval string) collector.SeriesProvider {
	return collector.NewHyperliquidProvider(p.client.Info(), interval)
}
