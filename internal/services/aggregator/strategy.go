// Package aggregator turns indicator readings into a directional trading signal.
//
// A primary Strategy (usually the reasoning service) is tried first and the
// deterministic rule-based scorer is always available as fallback, so a caller that
// supplies valid price data always receives a fully populated Signal.
package aggregator

import (
	"context"

	"github.com/vadiminshakov/tradesignals/internal/domain"
	"github.com/vadiminshakov/tradesignals/internal/services/market/indicators"
)

// Input is what a strategy decides from.
type Input struct {
	Instrument domain.Instrument
	Snapshot   indicators.Snapshot
	// Closes is the full close series the snapshot was computed from.
	Closes []float64
}

// Decision is a strategy outcome before risk levels are attached.
type Decision struct {
	Type       domain.SignalType
	Confidence float64
	Indicator  string
	// Score is the composite rule score, zero for non rule-based decisions.
	Score     float64
	Reasoning string
}

// Strategy decides a signal direction and confidence.
type Strategy interface {
	Decide(ctx context.Context, in Input) (Decision, error)
	// Name is used in logs and metric labels.
	Name() string
}
