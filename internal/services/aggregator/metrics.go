package aggregator

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vadiminshakov/tradesignals/internal/domain"
)

// Metrics instruments signal generation. A nil *Metrics is valid and records nothing.
type Metrics struct {
	signals           *prometheus.CounterVec
	reasoningFailures *prometheus.CounterVec
	reasoningDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradesignals",
			Name:      "signals_generated_total",
			Help:      "Signals generated, by direction and producing method.",
		}, []string{"type", "method"}),
		reasoningFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradesignals",
			Name:      "reasoning_failures_total",
			Help:      "Reasoning service calls that fell back to rule-based scoring.",
		}, []string{"reason"}),
		reasoningDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tradesignals",
			Name:      "reasoning_duration_seconds",
			Help:      "Latency of reasoning service decisions.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}),
	}

	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.signals, m.reasoningFailures, m.reasoningDuration} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "failed to register aggregator metrics")
		}
	}
	return m, nil
}

func (m *Metrics) observeSignal(s domain.Signal) {
	if m == nil {
		return
	}
	m.signals.WithLabelValues(string(s.Type), s.Indicator).Inc()
}

func (m *Metrics) observeReasoning(start time.Time, err error) {
	if m == nil {
		return
	}
	m.reasoningDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		m.reasoningFailures.WithLabelValues(failureReason(err)).Inc()
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrReasoningTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrInvalidVerdict):
		return "invalid_verdict"
	default:
		return "call_failed"
	}
}
