package collector

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/tradesignals/internal/domain"
	"github.com/vadiminshakov/tradesignals/internal/storage/pricecache"
	"go.uber.org/zap"
)

// WALCache records every series fetched by the wrapped provider.
// A failed write is logged and does not fail the fetch.
type WALCache struct {
	next   SeriesProvider
	store  *pricecache.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewWALCache wraps next with recording into store.
func NewWALCache(next SeriesProvider, store *pricecache.Store, logger *zap.Logger) *WALCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WALCache{next: next, store: store, logger: logger, now: time.Now}
}

func (c *WALCache) Series(ctx context.Context, inst domain.Instrument, limit int) (domain.PriceSeries, error) {
	series, err := c.next.Series(ctx, inst, limit)
	if err != nil {
		return domain.PriceSeries{}, err
	}
	if series.Symbol == "" {
		series.Symbol = inst.Symbol
	}

	if _, err := c.store.Append(inst.Market, series, c.now()); err != nil {
		c.logger.Warn("failed to record series", zap.String("symbol", inst.Symbol), zap.Error(err))
	}
	return series, nil
}

// ReplayProvider serves the latest recorded series of each symbol.
type ReplayProvider struct {
	store *pricecache.Store
}

// NewReplayProvider creates a provider over a recorded price cache.
func NewReplayProvider(store *pricecache.Store) *ReplayProvider {
	return &ReplayProvider{store: store}
}

func (p *ReplayProvider) Series(_ context.Context, inst domain.Instrument, limit int) (domain.PriceSeries, error) {
	rec, err := p.store.Latest(inst.Symbol)
	if err != nil {
		return domain.PriceSeries{}, errors.Wrapf(domain.ErrNoPriceData, "replay %s: %v", inst.Symbol, err)
	}
	if rec.Market != "" && inst.Market != "" && rec.Market != inst.Market {
		return domain.PriceSeries{}, errors.Wrapf(domain.ErrNoPriceData, "replay %s: recorded for %s market", inst.Symbol, rec.Market)
	}

	series := rec.Series()
	if limit > 0 {
		series = series.Tail(limit)
	}
	return series, nil
}
