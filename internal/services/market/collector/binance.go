package collector

import (
	"context"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/tradesignals/internal/domain"
)

// BinanceProvider reads spot klines from Binance.
type BinanceProvider struct {
	client   *binance.Client
	interval string
}

// NewBinanceProvider creates a Binance provider for the given kline interval, e.g. "1h".
func NewBinanceProvider(client *binance.Client, interval string) *BinanceProvider {
	return &BinanceProvider{client: client, interval: interval}
}

// Series fetches closes of the last limit klines.
func (p *BinanceProvider) Series(ctx context.Context, inst domain.Instrument, limit int) (domain.PriceSeries, error) {
	pair, err := inst.Pair()
	if err != nil {
		return domain.PriceSeries{}, err
	}

	klines, err := p.client.NewKlinesService().
		Symbol(pair.Symbol()).
		Interval(p.interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return domain.PriceSeries{}, errors.Wrapf(err, "failed to fetch klines from Binance for %s", pair.String())
	}

	points := make([]domain.PricePoint, len(klines))
	for i, k := range klines {
		closePrice, err := strconv.ParseFloat(k.Close, 64)
		if err != nil {
			return domain.PriceSeries{}, errors.Wrapf(err, "failed to parse close price at index %d", i)
		}
		points[i] = domain.PricePoint{
			Time:  time.UnixMilli(k.CloseTime).UTC(),
			Price: closePrice,
		}
	}

	return domain.PriceSeries{Symbol: inst.Symbol, Points: points}, nil
}
