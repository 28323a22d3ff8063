// Package risk derives take-profit and stop-loss levels from a signal direction.
package risk

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/tradesignals/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Calculator applies fixed percentage offsets to the current price. The offsets do not
// adapt to volatility.
type Calculator struct {
	TakeProfitPercent decimal.Decimal
	StopLossPercent   decimal.Decimal
}

// NewCalculator returns a calculator with the default 5% target and 2% stop.
func NewCalculator() Calculator {
	return Calculator{
		TakeProfitPercent: decimal.NewFromInt(5),
		StopLossPercent:   decimal.NewFromInt(2),
	}
}

// Validate checks that both offsets are usable.
func (c Calculator) Validate() error {
	if !c.TakeProfitPercent.IsPositive() {
		return errors.Errorf("take profit percent must be positive, got %s", c.TakeProfitPercent)
	}
	if !c.StopLossPercent.IsPositive() || c.StopLossPercent.GreaterThanOrEqual(hundred) {
		return errors.Errorf("stop loss percent must be in (0,100), got %s", c.StopLossPercent)
	}
	if c.TakeProfitPercent.GreaterThanOrEqual(hundred) {
		return errors.Errorf("take profit percent must be below 100, got %s", c.TakeProfitPercent)
	}
	return nil
}

// Levels returns take-profit and stop-loss for the given direction and price.
// BUY targets above and stops below the price, SELL the opposite, HOLD returns the price twice.
func (c Calculator) Levels(t domain.SignalType, price decimal.Decimal) (takeProfit, stopLoss decimal.Decimal, err error) {
	if !price.IsPositive() {
		return decimal.Zero, decimal.Zero, errors.Wrapf(domain.ErrInvalidPrice, "price must be positive, got %s", price)
	}
	if err := c.Validate(); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	up := func(pct decimal.Decimal) decimal.Decimal {
		return price.Mul(hundred.Add(pct)).Div(hundred)
	}
	down := func(pct decimal.Decimal) decimal.Decimal {
		return price.Mul(hundred.Sub(pct)).Div(hundred)
	}

	switch t {
	case domain.SignalBuy:
		return up(c.TakeProfitPercent), down(c.StopLossPercent), nil
	case domain.SignalSell:
		return down(c.TakeProfitPercent), up(c.StopLossPercent), nil
	case domain.SignalHold:
		return price, price, nil
	default:
		return decimal.Zero, decimal.Zero, errors.Errorf("unknown signal type %q", t)
	}
}
