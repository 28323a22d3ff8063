package domain

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

// PricePoint is one observation of a price series.
type PricePoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// PriceSeries is an ordered sequence of prices, index 0 is the oldest.
type PriceSeries struct {
	Symbol string       `json:"symbol"`
	Points []PricePoint `json:"points"`
}

// NewPriceSeries builds an untimed series from raw prices.
func NewPriceSeries(symbol string, prices []float64) PriceSeries {
	points := make([]PricePoint, len(prices))
	for i, p := range prices {
		points[i] = PricePoint{Price: p}
	}
	return PriceSeries{Symbol: symbol, Points: points}
}

// Validate checks that the series is non-empty, strictly positive and chronological.
// Points without a timestamp are accepted as already ordered.
func (s PriceSeries) Validate() error {
	if len(s.Points) == 0 {
		return errors.Wrapf(ErrNoPriceData, "series %q", s.Symbol)
	}

	var prev time.Time
	for i, p := range s.Points {
		if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) || p.Price <= 0 {
			return errors.Wrapf(ErrInvalidPrice, "series %q point %d: %v", s.Symbol, i, p.Price)
		}
		if p.Time.IsZero() {
			continue
		}
		if !prev.IsZero() && !p.Time.After(prev) {
			return errors.Wrapf(ErrNonChronological, "series %q point %d at %s is not after %s",
				s.Symbol, i, p.Time.Format(time.RFC3339), prev.Format(time.RFC3339))
		}
		prev = p.Time
	}

	return nil
}

// Closes returns the prices in order.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Price
	}
	return out
}

// Len returns the number of points.
func (s PriceSeries) Len() int {
	return len(s.Points)
}

// Last returns the newest point. ok is false for an empty series.
func (s PriceSeries) Last() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Tail returns a series holding at most the n newest points.
func (s PriceSeries) Tail(n int) PriceSeries {
	if n < 0 {
		n = 0
	}
	if n >= len(s.Points) {
		return s
	}
	return PriceSeries{Symbol: s.Symbol, Points: s.Points[len(s.Points)-n:]}
}

// ChangePercent returns the relative change between the oldest and newest point.
func (s PriceSeries) ChangePercent() float64 {
	if len(s.Points) < 2 || s.Points[0].Price == 0 {
		return 0
	}
	first := s.Points[0].Price
	return (s.Points[len(s.Points)-1].Price - first) / first * 100
}
