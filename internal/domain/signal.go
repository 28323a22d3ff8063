package domain

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Indicator labels attached to signals.
const (
	IndicatorReasoning = "AI LLM Analysis"
	IndicatorFallback  = "Fallback Composite"
	IndicatorRules     = "Technical Composite"
)

// Signal is the engine output for one instrument. It is never mutated after construction.
type Signal struct {
	Symbol     string          `json:"symbol"`
	Market     MarketKind      `json:"market"`
	Type       SignalType      `json:"type"`
	Indicator  string          `json:"indicator"`
	Confidence float64         `json:"confidence"`
	Price      decimal.Decimal `json:"price"`
	TakeProfit decimal.Decimal `json:"takeProfit"`
	StopLoss   decimal.Decimal `json:"stopLoss"`
	// Score is the rule-based composite score; zero when another method decided.
	Score       float64   `json:"score"`
	Reasoning   string    `json:"reasoning,omitempty"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// Validate checks the confidence range and that risk levels agree with the direction.
func (s Signal) Validate() error {
	if err := ValidateSymbol(s.Symbol); err != nil {
		return err
	}
	if !s.Type.Valid() {
		return errors.Errorf("invalid signal type %q", s.Type)
	}
	if s.Confidence < 0 || s.Confidence > 100 {
		return errors.Errorf("confidence %.2f is out of [0,100]", s.Confidence)
	}
	if !s.Price.IsPositive() {
		return errors.Errorf("price must be positive, got %s", s.Price)
	}

	switch s.Type {
	case SignalHold:
		if !s.TakeProfit.Equal(s.Price) || !s.StopLoss.Equal(s.Price) {
			return errors.New("take profit and stop loss must equal price for HOLD")
		}
	case SignalBuy:
		if !s.TakeProfit.GreaterThan(s.Price) || !s.StopLoss.LessThan(s.Price) {
			return errors.New("BUY requires take profit above and stop loss below price")
		}
	case SignalSell:
		if !s.TakeProfit.LessThan(s.Price) || !s.StopLoss.GreaterThan(s.Price) {
			return errors.New("SELL requires take profit below and stop loss above price")
		}
	}

	return nil
}
