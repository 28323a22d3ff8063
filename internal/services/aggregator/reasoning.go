package aggregator

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/tradesignals/internal/clients"
	"github.com/vadiminshakov/tradesignals/internal/domain"
	"github.com/vadiminshakov/tradesignals/internal/services/promptbuilder"
	refind "github.com/vadiminshakov/tradesignals/pkg/indicators"
	"go.uber.org/zap"
)

const (
	defaultReasoningTimeout     = 20 * time.Second
	defaultReasoningTemperature = 0.3
)

// ConfidenceRange bounds the confidence reported by the reasoning service.
type ConfidenceRange struct {
	Min float64
	Max float64
}

// FullRange leaves confidence as reported.
func FullRange() ConfidenceRange { return ConfidenceRange{Min: 0, Max: 100} }

// ProductionRange forces directional certainty into [80,99].
func ProductionRange() ConfidenceRange { return ConfidenceRange{Min: 80, Max: 99} }

// Validate checks 0 <= Min <= Max <= 100.
func (r ConfidenceRange) Validate() error {
	if r.Min < 0 || r.Max > 100 || r.Min > r.Max {
		return errors.Errorf("invalid confidence range [%v,%v]", r.Min, r.Max)
	}
	return nil
}

func (r ConfidenceRange) apply(v float64) float64 {
	return clamp(v, r.Min, r.Max)
}

// Reasoning delegates the decision to an external reasoning service.
// Any failure is returned to the caller, which is expected to fall back.
type Reasoning struct {
	client        clients.Reasoner
	promptBuilder *promptbuilder.PromptBuilder
	logger        *zap.Logger
	timeout       time.Duration
	temperature   float64
	confidence    ConfidenceRange
	model         string
}

// ReasoningOption configures Reasoning.
type ReasoningOption func(*Reasoning)

// WithTimeout bounds a single reasoning call.
func WithTimeout(d time.Duration) ReasoningOption {
	return func(r *Reasoning) { r.timeout = d }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) ReasoningOption {
	return func(r *Reasoning) { r.temperature = t }
}

// WithConfidenceRange clamps reported confidence.
func WithConfidenceRange(cr ConfidenceRange) ReasoningOption {
	return func(r *Reasoning) { r.confidence = cr }
}

// WithModelLabel sets the model name used in logs.
func WithModelLabel(model string) ReasoningOption {
	return func(r *Reasoning) { r.model = domain.NormalizeModelName(model) }
}

// NewReasoning creates the reasoning-service strategy.
func NewReasoning(client clients.Reasoner, logger *zap.Logger, opts ...ReasoningOption) (*Reasoning, error) {
	if client == nil {
		return nil, errors.New("reasoning client is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Reasoning{
		client:        client,
		promptBuilder: promptbuilder.NewPromptBuilder(logger),
		logger:        logger,
		timeout:       defaultReasoningTimeout,
		temperature:   defaultReasoningTemperature,
		confidence:    FullRange(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.confidence.Validate(); err != nil {
		return nil, err
	}
	if r.timeout <= 0 {
		return nil, errors.Errorf("reasoning timeout must be positive, got %s", r.timeout)
	}
	return r, nil
}

func (r *Reasoning) Name() string { return "reasoning" }

// Decide builds the brief, asks the service and parses its verdict. Structured data wins;
// the SIGNAL/CONFIDENCE text pattern is tried when it is absent or invalid.
func (r *Reasoning) Decide(ctx context.Context, in Input) (Decision, error) {
	var ref *refind.Reference
	if rv, err := refind.Calculate(in.Closes); err == nil {
		ref = &rv
	}

	var change float64
	if len(in.Closes) > 1 && in.Closes[0] != 0 {
		change = (in.Closes[len(in.Closes)-1] - in.Closes[0]) / in.Closes[0] * 100
	}

	req := clients.ReasoningRequest{
		SystemPrompt: promptbuilder.SignalSystemPrompt(in.Instrument.Market),
		UserPrompt: r.promptBuilder.BuildSignalBrief(promptbuilder.BriefInput{
			Instrument:    in.Instrument,
			Snapshot:      in.Snapshot,
			Reference:     ref,
			ChangePercent: change,
		}),
		Temperature: r.temperature,
		Schema:      clients.VerdictSchema(),
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.client.Reason(callCtx, req)
	if err != nil {
		// only our own deadline counts as a timeout, not a cancelled caller
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return Decision{}, errors.Wrap(ErrReasoningTimeout, err.Error())
		}
		return Decision{}, errors.Wrap(err, "reasoning call failed")
	}

	verdict, err := parseVerdict(resp)
	if err != nil {
		return Decision{}, err
	}

	r.logger.Debug("reasoning verdict",
		zap.String("symbol", in.Instrument.Symbol),
		zap.String("model", r.model),
		zap.String("signal", verdict.Signal.String()),
		zap.Float64("confidence", verdict.Confidence),
	)

	return Decision{
		Type:       verdict.Signal,
		Confidence: math.Round(r.confidence.apply(verdict.Confidence)*100) / 100,
		Indicator:  domain.IndicatorReasoning,
		Reasoning:  verdict.Reasoning,
	}, nil
}

func parseVerdict(resp clients.ReasoningResponse) (*domain.Verdict, error) {
	var structuredErr error
	if len(resp.Structured) > 0 {
		v, err := domain.NewVerdict(resp.Structured)
		if err == nil {
			return v, nil
		}
		structuredErr = err
	}

	if resp.Completion != "" {
		// some models answer the schema inside the completion text
		if v, err := domain.NewVerdict([]byte(resp.Completion)); err == nil {
			return v, nil
		}
		v, err := domain.ParseVerdictText(resp.Completion)
		if err == nil {
			return v, nil
		}
		if structuredErr == nil {
			structuredErr = err
		}
	}

	if structuredErr == nil {
		structuredErr = errors.Wrap(domain.ErrInvalidVerdict, "empty response")
	}
	return nil, structuredErr
}
