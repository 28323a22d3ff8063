// Package pricer provides the optional current-price override for signals.
package pricer

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/tradesignals/internal/domain"
	"go.uber.org/zap"
)

// Pricer returns the latest traded price of a pair.
type Pricer interface {
	GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error)
}

// Current asks p for the price of inst. It returns nil when p is nil or fails, in which
// case callers use the last close of the series.
func Current(ctx context.Context, p Pricer, inst domain.Instrument, logger *zap.Logger) *decimal.Decimal {
	if p == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	pair, err := inst.Pair()
	if err != nil {
		logger.Debug("no pair for current price", zap.String("symbol", inst.Symbol), zap.Error(err))
		return nil
	}

	price, err := p.GetPrice(ctx, pair)
	if err != nil {
		logger.Warn("current price unavailable, using last close",
			zap.String("pair", pair.String()),
			zap.Error(err),
		)
		return nil
	}
	if !price.IsPositive() {
		logger.Warn("ignoring non-positive current price", zap.String("pair", pair.String()), zap.String("price", price.String()))
		return nil
	}
	return &price
}
