package aggregator

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/tradesignals/internal/domain"
	"github.com/vadiminshakov/tradesignals/internal/services/market/indicators"
	"github.com/vadiminshakov/tradesignals/internal/services/risk"
	"go.uber.org/zap"
)

// Request asks for a signal on one instrument.
type Request struct {
	Instrument domain.Instrument
	Series     domain.PriceSeries
	// CurrentPrice overrides the last close for risk levels when set.
	CurrentPrice *decimal.Decimal
}

// Aggregator produces signals. It is safe for concurrent use.
type Aggregator struct {
	primary Strategy
	rules   *RuleBased
	risk    risk.Calculator
	params  indicators.Params
	metrics *Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures the Aggregator.
type Option func(*Aggregator)

// WithStrategy sets the primary strategy tried before the rules. Nil means rules only.
func WithStrategy(s Strategy) Option {
	return func(a *Aggregator) { a.primary = s }
}

// WithRules replaces the rule-based scorer used directly and as fallback.
func WithRules(r *RuleBased) Option {
	return func(a *Aggregator) { a.rules = r }
}

// WithRiskCalculator replaces the default 5%/2% calculator.
func WithRiskCalculator(c risk.Calculator) Option {
	return func(a *Aggregator) { a.risk = c }
}

// WithParams sets indicator windows.
func WithParams(p indicators.Params) Option {
	return func(a *Aggregator) { a.params = p }
}

// WithMetrics enables prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// WithClock sets the time source for GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// New creates an Aggregator. Without options it scores with the weighted rules only.
func New(logger *zap.Logger, opts ...Option) (*Aggregator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Aggregator{
		rules:  NewRuleBased(),
		risk:   risk.NewCalculator(),
		params: indicators.DefaultParams(),
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.rules == nil {
		return nil, errors.New("rule-based strategy is required")
	}
	if err := a.risk.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid risk settings")
	}
	return a, nil
}

// Generate runs the decision pipeline for one instrument: validate input, compute
// indicators, try the primary strategy, fall back to rules, attach risk levels.
// Errors are returned only for invalid input; strategy failures are recovered.
func (a *Aggregator) Generate(ctx context.Context, req Request) (domain.Signal, error) {
	inst := req.Instrument
	inst.Symbol = domain.NormalizeSymbol(inst.Symbol)
	if err := inst.Validate(); err != nil {
		return domain.Signal{}, err
	}
	if err := req.Series.Validate(); err != nil {
		return domain.Signal{}, err
	}

	closes := req.Series.Closes()
	in := Input{
		Instrument: inst,
		Snapshot:   indicators.Compute(closes, a.params),
		Closes:     closes,
	}

	price := decimal.NewFromFloat(in.Snapshot.Price)
	if req.CurrentPrice != nil {
		if !req.CurrentPrice.IsPositive() {
			return domain.Signal{}, errors.Wrapf(domain.ErrInvalidPrice, "current price %s", req.CurrentPrice)
		}
		price = *req.CurrentPrice
	}

	decision := a.decide(ctx, in)

	tp, sl, err := a.risk.Levels(decision.Type, price)
	if err != nil {
		return domain.Signal{}, errors.Wrapf(err, "risk levels for %s", inst.Symbol)
	}

	sig := domain.Signal{
		Symbol:      inst.Symbol,
		Market:      inst.Market,
		Type:        decision.Type,
		Indicator:   decision.Indicator,
		Confidence:  decision.Confidence,
		Price:       price,
		TakeProfit:  tp,
		StopLoss:    sl,
		Score:       decision.Score,
		Reasoning:   decision.Reasoning,
		GeneratedAt: a.now().UTC(),
	}
	if err := sig.Validate(); err != nil {
		return domain.Signal{}, errors.Wrapf(err, "generated signal for %s is inconsistent", inst.Symbol)
	}

	a.metrics.observeSignal(sig)
	return sig, nil
}

func (a *Aggregator) decide(ctx context.Context, in Input) Decision {
	if a.primary == nil {
		d, _ := a.rules.Decide(ctx, in)
		d.Indicator = domain.IndicatorRules
		return d
	}

	start := time.Now()
	d, err := a.primary.Decide(ctx, in)
	if err == nil {
		err = validateDecision(d)
	}
	a.metrics.observeReasoning(start, err)
	if err == nil {
		if d.Indicator == "" {
			d.Indicator = domain.IndicatorReasoning
		}
		return d
	}

	a.logger.Warn("primary strategy failed, falling back to rules",
		zap.String("symbol", in.Instrument.Symbol),
		zap.String("strategy", a.primary.Name()),
		zap.Error(err),
	)

	fb, _ := a.rules.Decide(ctx, in)
	fb.Indicator = domain.IndicatorFallback
	return fb
}

func validateDecision(d Decision) error {
	if !d.Type.Valid() {
		return errors.Wrapf(domain.ErrInvalidVerdict, "strategy returned signal %q", d.Type)
	}
	if math.IsNaN(d.Confidence) || d.Confidence < 0 || d.Confidence > 100 {
		return errors.Wrapf(domain.ErrInvalidVerdict, "strategy returned confidence %v", d.Confidence)
	}
	return nil
}
