package internal

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/tradesignals/config"
	"github.com/vadiminshakov/tradesignals/internal/clients"
	"github.com/vadiminshakov/tradesignals/internal/services/aggregator"
	"github.com/vadiminshakov/tradesignals/internal/services/market/indicators"
	"github.com/vadiminshakov/tradesignals/internal/services/risk"
)

const reasoningRetryDelay = time.Second

// strategyFactory creates the decision strategies of the aggregator.
type strategyFactory struct {
	logger *zap.Logger
}

func newStrategyFactory(logger *zap.Logger) *strategyFactory {
	return &strategyFactory{logger: logger}
}

// createAggregator builds the rule-based scorer, the optional reasoning strategy and the
// risk calculator. The returned reasoner is nil when reasoning is disabled.
func (f *strategyFactory) createAggregator(conf config.Config, metrics *aggregator.Metrics) (*aggregator.Aggregator, clients.Reasoner, error) {
	rules, err := f.createRules(conf)
	if err != nil {
		return nil, nil, err
	}

	opts := []aggregator.Option{
		aggregator.WithRules(rules),
		aggregator.WithRiskCalculator(risk.Calculator{
			TakeProfitPercent: conf.TakeProfitPercent,
			StopLossPercent:   conf.StopLossPercent,
		}),
		aggregator.WithMetrics(metrics),
		aggregator.WithParams(indicatorParams(conf)),
	}

	reasoner, err := f.createReasoner(conf.Reasoning)
	if err != nil {
		return nil, nil, err
	}
	if reasoner != nil {
		strategy, err := f.createReasoningStrategy(conf.Reasoning, reasoner)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, aggregator.WithStrategy(strategy))
	}

	agg, err := aggregator.New(f.logger, opts...)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to create aggregator")
	}
	return agg, reasoner, nil
}

func (f *strategyFactory) createRules(conf config.Config) (*aggregator.RuleBased, error) {
	policy, err := aggregator.ParseScoringPolicy(conf.Policy)
	if err != nil {
		return nil, err
	}
	return aggregator.NewRuleBased(
		aggregator.WithPolicy(policy),
		aggregator.WithThreshold(conf.Threshold.InexactFloat64()),
	), nil
}

// indicatorParams picks the windows of the scoring policy, with configured EMA overrides.
func indicatorParams(conf config.Config) indicators.Params {
	params := indicators.DefaultParams()
	if conf.Policy == string(aggregator.PolicySplit) {
		params = indicators.SplitParams()
	}
	if conf.EMAFast > 0 && conf.EMASlow > 0 {
		params.EMAFast = conf.EMAFast
		params.EMASlow = conf.EMASlow
	}
	return params
}

// createReasoner returns nil when no provider is configured.
func (f *strategyFactory) createReasoner(conf config.ReasoningConfig) (clients.Reasoner, error) {
	retries := clients.WithRetries(conf.MaxRetries, reasoningRetryDelay)
	switch conf.Provider {
	case "", "none":
		return nil, nil
	case "openai":
		return clients.NewOpenAICompatibleClient(conf.APIURL, conf.APIKey, conf.Model, retries), nil
	case "a0":
		return clients.NewA0Client(conf.APIURL, conf.APIKey, retries), nil
	default:
		return nil, fmt.Errorf("unsupported reasoning provider: %s", conf.Provider)
	}
}

func (f *strategyFactory) createReasoningStrategy(conf config.ReasoningConfig, reasoner clients.Reasoner) (aggregator.Strategy, error) {
	confidence := aggregator.FullRange()
	if conf.ConfidenceRange == "production" {
		confidence = aggregator.ProductionRange()
	}

	strategy, err := aggregator.NewReasoning(reasoner, f.logger,
		aggregator.WithTimeout(conf.Timeout),
		aggregator.WithTemperature(conf.Temperature),
		aggregator.WithConfidenceRange(confidence),
		aggregator.WithModelLabel(conf.Model),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create reasoning strategy")
	}
	return strategy, nil
}
