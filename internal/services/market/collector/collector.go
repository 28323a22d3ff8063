// Package collector fetches price series for instruments from exchanges and public
// market-data APIs.
package collector

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/tradesignals/internal/domain"
	"go.uber.org/zap"
)

const (
	defaultMinPoints    = 50
	defaultLimit        = 100
	defaultFetchTimeout = 30 * time.Second
)

// SeriesProvider returns up to limit most recent prices for an instrument, oldest first.
type SeriesProvider interface {
	Series(ctx context.Context, inst domain.Instrument, limit int) (domain.PriceSeries, error)
}

// Collector fetches and validates series from a provider.
type Collector struct {
	provider  SeriesProvider
	logger    *zap.Logger
	minPoints int
	limit     int
	timeout   time.Duration
}

// Option configures the Collector.
type Option func(*Collector)

// WithMinPoints sets the number of points required for a series to be usable.
func WithMinPoints(n int) Option {
	return func(c *Collector) { c.minPoints = n }
}

// WithLimit sets how many points are requested from the provider.
func WithLimit(n int) Option {
	return func(c *Collector) { c.limit = n }
}

// WithFetchTimeout bounds a single provider call.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Collector) { c.timeout = d }
}

// NewCollector creates a new collector.
func NewCollector(provider SeriesProvider, logger *zap.Logger, opts ...Option) (*Collector, error) {
	if provider == nil {
		return nil, errors.New("series provider is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Collector{
		provider:  provider,
		logger:    logger,
		minPoints: defaultMinPoints,
		limit:     defaultLimit,
		timeout:   defaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.minPoints < 1 {
		return nil, errors.Errorf("min points must be positive, got %d", c.minPoints)
	}
	if c.limit < c.minPoints {
		return nil, errors.Errorf("limit %d is below min points %d", c.limit, c.minPoints)
	}
	return c, nil
}

// Collect fetches the series for inst and checks it is long enough to score.
func (c *Collector) Collect(ctx context.Context, inst domain.Instrument) (domain.PriceSeries, error) {
	inst.Symbol = domain.NormalizeSymbol(inst.Symbol)
	if err := inst.Validate(); err != nil {
		return domain.PriceSeries{}, err
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	series, err := c.provider.Series(ctxWithTimeout, inst, c.limit)
	if err != nil {
		return domain.PriceSeries{}, errors.Wrapf(err, "failed to fetch series for %s", inst.Symbol)
	}
	series.Symbol = inst.Symbol

	if err := series.Validate(); err != nil {
		return domain.PriceSeries{}, err
	}
	if series.Len() < c.minPoints {
		return domain.PriceSeries{}, errors.Wrapf(domain.ErrInsufficientData,
			"%s has %d points, need at least %d", inst.Symbol, series.Len(), c.minPoints)
	}

	c.logger.Debug("series collected",
		zap.String("symbol", inst.Symbol),
		zap.Int("points", series.Len()),
	)
	return series, nil
}
