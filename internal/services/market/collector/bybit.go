package collector

import (
	"context"
	"fmt"
	"strconv"
	"time"

	bybit "github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/tradesignals/internal/domain"
)

const bybitMaxPerRequest = 200

// BybitProvider reads V5 spot klines from Bybit.
type BybitProvider struct {
	client   *bybit.Client
	interval string
}

// NewBybitProvider creates a Bybit provider for the given interval, e.g. "1h".
func NewBybitProvider(client *bybit.Client, interval string) *BybitProvider {
	return &BybitProvider{client: client, interval: interval}
}

// Series fetches the last limit closes. Bybit returns newest first, so pages are
// reversed before they are returned.
func (p *BybitProvider) Series(ctx context.Context, inst domain.Instrument, limit int) (domain.PriceSeries, error) {
	if limit <= 0 {
		return domain.PriceSeries{}, errors.New("limit must be > 0")
	}
	pair, err := inst.Pair()
	if err != nil {
		return domain.PriceSeries{}, err
	}
	bybitInterval, err := convertIntervalToBybit(p.interval)
	if err != nil {
		return domain.PriceSeries{}, errors.Wrapf(err, "invalid interval: %s", p.interval)
	}

	var (
		items []bybit.V5GetKlineItem
		end   *int64
	)
	for remaining := limit; remaining > 0; {
		if err := ctx.Err(); err != nil {
			return domain.PriceSeries{}, err
		}

		batchSize := min(remaining, bybitMaxPerRequest)
		result, err := p.client.V5().Market().GetKline(bybit.V5GetKlineParam{
			Category: bybit.CategoryV5Spot,
			Symbol:   bybit.SymbolV5(pair.Symbol()),
			Interval: bybit.Interval(bybitInterval),
			Limit:    &batchSize,
			End:      end,
		})
		if err != nil {
			return domain.PriceSeries{}, errors.Wrapf(err, "failed to fetch klines from Bybit for %s", pair.String())
		}
		if result == nil {
			return domain.PriceSeries{}, errors.Errorf("empty result from Bybit API for %s", pair.String())
		}

		page := result.Result.List
		if len(page) == 0 {
			break
		}
		items = append(items, page...)
		if len(page) < batchSize {
			break
		}
		remaining -= len(page)

		if end, err = pageEnd(page[len(page)-1].StartTime); err != nil {
			return domain.PriceSeries{}, err
		}
	}

	if len(items) == 0 {
		return domain.PriceSeries{}, errors.Wrapf(domain.ErrNoPriceData, "no kline data returned from Bybit for %s", pair.String())
	}

	points := make([]domain.PricePoint, len(items))
	for i, k := range items {
		openTime, err := parseTimestamp(k.StartTime)
		if err != nil {
			return domain.PriceSeries{}, errors.Wrapf(err, "failed to parse start time at index %d", i)
		}
		closePrice, err := strconv.ParseFloat(k.Close, 64)
		if err != nil {
			return domain.PriceSeries{}, errors.Wrapf(err, "failed to parse close price at index %d", i)
		}
		points[len(items)-1-i] = domain.PricePoint{Time: openTime, Price: closePrice}
	}

	return domain.PriceSeries{Symbol: inst.Symbol, Points: points}, nil
}

// convertIntervalToBybit converts "1m", "4h", "1d" style intervals to Bybit's "1", "240", "D".
func convertIntervalToBybit(interval string) (string, error) {
	if len(interval) < 2 {
		return "", fmt.Errorf("invalid interval format: %s", interval)
	}

	unit := interval[len(interval)-1]
	n, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil || n <= 0 {
		return "", fmt.Errorf("invalid interval number: %s", interval)
	}

	switch unit {
	case 'm':
		return strconv.Itoa(n), nil
	case 'h':
		return strconv.Itoa(n * 60), nil
	case 'd':
		return "D", nil
	case 'w':
		return "W", nil
	default:
		return "", fmt.Errorf("unsupported interval unit: %c", unit)
	}
}

// pageEnd returns the End of the next page: one millisecond before the oldest kline seen.
func pageEnd(oldestStart string) (*int64, error) {
	oldest, err := parseTimestamp(oldestStart)
	if err != nil {
		return nil, err
	}
	next := oldest.UnixMilli() - 1
	return &next, nil
}

// parseTimestamp converts Bybit millisecond timestamps.
func parseTimestamp(ts string) (time.Time, error) {
	if ts == "" {
		return time.Time{}, errors.New("empty timestamp")
	}

	msec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "failed to parse timestamp: %s", ts)
	}

	return time.UnixMilli(msec).UTC(), nil
}
