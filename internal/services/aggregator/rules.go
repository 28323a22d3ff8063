package aggregator

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/tradesignals/internal/domain"
	"github.com/vadiminshakov/tradesignals/internal/services/market/indicators"
)

// ScoringPolicy selects how indicator votes are combined.
type ScoringPolicy string

const (
	// PolicyWeighted sums signed weights into one score with ±threshold cut-offs.
	PolicyWeighted ScoringPolicy = "weighted"
	// PolicySplit accumulates separate buy and sell scores and needs a clear margin.
	PolicySplit ScoringPolicy = "split"
)

// ParseScoringPolicy parses "weighted" or "split". Empty means weighted.
func ParseScoringPolicy(s string) (ScoringPolicy, error) {
	switch ScoringPolicy(s) {
	case "", PolicyWeighted:
		return PolicyWeighted, nil
	case PolicySplit:
		return PolicySplit, nil
	default:
		return "", errors.Errorf("unknown scoring policy %q", s)
	}
}

const (
	rsiOversold        = 30.0
	rsiOverbought      = 70.0
	rsiMidline         = 50.0
	stochOversold      = 20.0
	stochOverbought    = 80.0
	defaultThreshold   = 4.0
	splitMargin        = 1.0
	splitHoldConf      = 70.0
	maxDirectionalConf = 95.0
	minHoldConf        = 50.0
)

// Weights are the votes of each indicator.
type Weights struct {
	RSIExtreme float64
	RSIMild    float64
	SMA        float64
	EMA        float64
	MACD       float64
	Bollinger  float64
	Stochastic float64
}

// DefaultWeights returns the weighted-policy votes.
func DefaultWeights() Weights {
	return Weights{
		RSIExtreme: 2,
		RSIMild:    1,
		SMA:        1.5,
		EMA:        1,
		MACD:       1.5,
		Bollinger:  2,
		Stochastic: 1.5,
	}
}

// DefaultSplitWeights returns the split-policy votes. RSI only votes at the extremes
// and SMA does not vote at all.
func DefaultSplitWeights() Weights {
	return Weights{
		RSIExtreme: 2,
		EMA:        1.5,
		MACD:       1.5,
		Bollinger:  1,
		Stochastic: 1,
	}
}

// RuleBased is the deterministic scorer. It never fails and holds no state.
type RuleBased struct {
	policy    ScoringPolicy
	weights   Weights
	threshold float64
}

// RuleOption configures RuleBased.
type RuleOption func(*RuleBased)

// WithPolicy selects the scoring policy and its default weights.
func WithPolicy(p ScoringPolicy) RuleOption {
	return func(r *RuleBased) {
		r.policy = p
		if p == PolicySplit {
			r.weights = DefaultSplitWeights()
		} else {
			r.weights = DefaultWeights()
		}
	}
}

// WithWeights overrides the votes.
func WithWeights(w Weights) RuleOption {
	return func(r *RuleBased) { r.weights = w }
}

// WithThreshold overrides the ±4 BUY/SELL cut-off of the weighted policy.
func WithThreshold(t float64) RuleOption {
	return func(r *RuleBased) { r.threshold = t }
}

// NewRuleBased creates the scorer with the weighted policy by default.
func NewRuleBased(opts ...RuleOption) *RuleBased {
	r := &RuleBased{
		policy:    PolicyWeighted,
		weights:   DefaultWeights(),
		threshold: defaultThreshold,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RuleBased) Name() string { return "rules-" + string(r.policy) }

// Decide scores the snapshot. The error is always nil.
func (r *RuleBased) Decide(_ context.Context, in Input) (Decision, error) {
	if r.policy == PolicySplit {
		return r.decideSplit(in.Snapshot), nil
	}
	return r.decideWeighted(in.Snapshot), nil
}

// Score returns the weighted composite score. Unknown readings do not vote.
func (r *RuleBased) Score(s indicators.Snapshot) float64 {
	w := r.weights
	var score float64

	if s.RSI.OK {
		switch rsi := s.RSI.Value; {
		case rsi < rsiOversold:
			score += w.RSIExtreme
		case rsi > rsiOverbought:
			score -= w.RSIExtreme
		case rsi < rsiMidline:
			score += w.RSIMild
		case rsi > rsiMidline:
			score -= w.RSIMild
		}
	}

	score += crossoverVote(s.SMAFast, s.SMASlow, w.SMA)
	score += crossoverVote(s.EMAFast, s.EMASlow, w.EMA)

	if s.MACDHistogram.OK {
		score += signedVote(s.MACDHistogram.Value, w.MACD)
	}

	if s.BollingerUp.OK && s.BollingerLow.OK {
		switch {
		case s.Price < s.BollingerLow.Value:
			score += w.Bollinger
		case s.Price > s.BollingerUp.Value:
			score -= w.Bollinger
		}
	}

	if s.StochK.OK && s.StochD.OK {
		switch k, d := s.StochK.Value, s.StochD.Value; {
		case k < stochOversold && d < stochOversold:
			score += w.Stochastic
		case k > stochOverbought && d > stochOverbought:
			score -= w.Stochastic
		}
	}

	return score
}

func (r *RuleBased) decideWeighted(s indicators.Snapshot) Decision {
	score := r.Score(s)
	d := Decision{Score: score, Indicator: domain.IndicatorRules}

	switch {
	case score >= r.threshold:
		d.Type = domain.SignalBuy
		d.Confidence = math.Min(maxDirectionalConf, 70+math.Abs(score)*5)
	case score <= -r.threshold:
		d.Type = domain.SignalSell
		d.Confidence = math.Min(maxDirectionalConf, 70+math.Abs(score)*5)
	default:
		d.Type = domain.SignalHold
		d.Confidence = clamp(60+score*5, minHoldConf, maxDirectionalConf)
	}
	return d
}

func (r *RuleBased) decideSplit(s indicators.Snapshot) Decision {
	w := r.weights
	var buy, sell float64

	if s.RSI.OK {
		if s.RSI.Value < rsiOversold {
			buy += w.RSIExtreme
		} else if s.RSI.Value > rsiOverbought {
			sell += w.RSIExtreme
		}
	}

	if v := crossoverVote(s.EMAFast, s.EMASlow, 1); v > 0 {
		buy += w.EMA
	} else if v < 0 {
		sell += w.EMA
	}

	if s.MACDHistogram.OK {
		if s.MACDHistogram.Value > 0 {
			buy += w.MACD
		} else if s.MACDHistogram.Value < 0 {
			sell += w.MACD
		}
	}

	if s.BollingerUp.OK && s.BollingerLow.OK {
		if s.Price < s.BollingerLow.Value {
			buy += w.Bollinger
		} else if s.Price > s.BollingerUp.Value {
			sell += w.Bollinger
		}
	}

	if s.StochK.OK {
		if s.StochK.Value < stochOversold {
			buy += w.Stochastic
		} else if s.StochK.Value > stochOverbought {
			sell += w.Stochastic
		}
	}

	d := Decision{Type: domain.SignalHold, Confidence: splitHoldConf, Score: buy - sell, Indicator: domain.IndicatorRules}
	switch {
	case buy > sell+splitMargin:
		d.Type = domain.SignalBuy
		d.Confidence = math.Round(math.Min(maxDirectionalConf, 70+(buy-sell)*10))
	case sell > buy+splitMargin:
		d.Type = domain.SignalSell
		d.Confidence = math.Round(math.Min(maxDirectionalConf, 70+(sell-buy)*10))
	}
	return d
}

// crossoverVote is +weight when fast is above slow, -weight below and 0 when equal or unknown.
func crossoverVote(fast, slow indicators.Reading, weight float64) float64 {
	if !fast.OK || !slow.OK {
		return 0
	}
	return signedVote(fast.Value-slow.Value, weight)
}

func signedVote(v, weight float64) float64 {
	switch {
	case v > 0:
		return weight
	case v < 0:
		return -weight
	default:
		return 0
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
