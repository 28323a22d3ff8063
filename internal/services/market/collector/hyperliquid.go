package collector

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	hyperliquid "github.com/sonirico/go-hyperliquid"
	"github.com/vadiminshakov/tradesignals/internal/domain"
)

// HyperliquidProvider reads perp candles from Hyperliquid. Coins are USD quoted, so only
// the base of the instrument is used.
type HyperliquidProvider struct {
	info     *hyperliquid.Info
	interval string
}

// NewHyperliquidProvider creates a Hyperliquid provider for the given interval.
func NewHyperliquidProvider(info *hyperliquid.Info, interval string) *HyperliquidProvider {
	return &HyperliquidProvider{info: info, interval: interval}
}

func parseIntervalToDuration(interval string) (time.Duration, error) {
	if len(interval) < 2 {
		return 0, fmt.Errorf("invalid interval: %q", interval)
	}
	n, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid interval number: %s", interval)
	}
	switch interval[len(interval)-1] {
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unsupported interval unit: %c", interval[len(interval)-1])
	}
}

// Series fetches the last limit closes.
func (p *HyperliquidProvider) Series(ctx context.Context, inst domain.Instrument, limit int) (domain.PriceSeries, error) {
	if p.info == nil {
		return domain.PriceSeries{}, errors.New("hyperliquid info is nil")
	}
	if limit <= 0 {
		return domain.PriceSeries{}, errors.New("limit must be > 0")
	}
	pair, err := inst.Pair()
	if err != nil {
		return domain.PriceSeries{}, err
	}
	dur, err := parseIntervalToDuration(p.interval)
	if err != nil {
		return domain.PriceSeries{}, err
	}

	endMs := time.Now().UnixMilli()
	// two extra candles of slack for window rounding
	startMs := endMs - (int64(limit)+2)*dur.Milliseconds()
	coin := strings.ToUpper(pair.From)

	candles, err := p.info.CandlesSnapshot(ctx, coin, p.interval, startMs, endMs)
	if err != nil {
		return domain.PriceSeries{}, errors.Wrapf(err, "failed to fetch candles from Hyperliquid for %s", coin)
	}
	if len(candles) == 0 {
		return domain.PriceSeries{}, errors.Wrapf(domain.ErrNoPriceData, "no candles from hyperliquid for %s %s", coin, p.interval)
	}
	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}

	points := make([]domain.PricePoint, len(candles))
	for i, c := range candles {
		closePrice, err := strconv.ParseFloat(c.Close, 64)
		if err != nil {
			return domain.PriceSeries{}, errors.Wrapf(err, "parse close at %d", i)
		}
		points[i] = domain.PricePoint{Time: time.UnixMilli(c.TimeClose).UTC(), Price: closePrice}
	}

	return domain.PriceSeries{Symbol: inst.Symbol, Points: points}, nil
}
