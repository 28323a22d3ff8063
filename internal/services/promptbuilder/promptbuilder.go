// Package promptbuilder turns indicator readings into compact natural-language briefs
// for the reasoning service.
package promptbuilder

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vadiminshakov/tradesignals/internal/domain"
	"github.com/vadiminshakov/tradesignals/internal/services/market/indicators"
	refind "github.com/vadiminshakov/tradesignals/pkg/indicators"
	"go.uber.org/zap"
)

const answerFormat = "Provide signal in format: SIGNAL: BUY/SELL/HOLD, CONFIDENCE: XX%"

// PromptBuilder constructs prompts for the LLM
type PromptBuilder struct {
	logger *zap.Logger
}

// NewPromptBuilder creates a new PromptBuilder instance
func NewPromptBuilder(logger *zap.Logger) *PromptBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromptBuilder{logger: logger}
}

// BriefInput is everything a signal brief is built from.
type BriefInput struct {
	Instrument domain.Instrument
	Snapshot   indicators.Snapshot
	// Reference is optional; nil when the series was too short for smoothed readings.
	Reference *refind.Reference
	// ChangePercent is the change over the whole series.
	ChangePercent float64
}

// BuildSignalBrief formats the readings into the user prompt.
func (pb *PromptBuilder) BuildSignalBrief(in BriefInput) string {
	var sb strings.Builder
	s := in.Snapshot

	name := in.Instrument.Symbol
	if in.Instrument.Name != "" {
		name = fmt.Sprintf("%s (%s)", in.Instrument.Name, in.Instrument.Symbol)
	}
	sb.WriteString(fmt.Sprintf("Analyze %s, %s market, %d price points.\n\n", name, in.Instrument.Market, s.Points))
	sb.WriteString("Indicators:\n")

	if s.RSI.OK {
		sb.WriteString(fmt.Sprintf("- RSI(%d): %.2f (%s)\n", s.Params.RSIPeriod, s.RSI.Value, RSIZone(s.RSI.Value)))
	} else {
		sb.WriteString("- RSI: not enough data\n")
	}
	sb.WriteString(fmt.Sprintf("- SMA %d/%d Crossover: %s\n", s.Params.SMAFast, s.Params.SMASlow, Crossover(s.SMAFast, s.SMASlow)))
	sb.WriteString(fmt.Sprintf("- EMA %d/%d Crossover: %s\n", s.Params.EMAFast, s.Params.EMASlow, Crossover(s.EMAFast, s.EMASlow)))

	if s.MACDHistogram.OK {
		sb.WriteString(fmt.Sprintf("- MACD: %s (line %.5f, signal %.5f, histogram %.5f)\n",
			sign(s.MACDHistogram.Value), s.MACD.Value, s.MACDSignal.Value, s.MACDHistogram.Value))
	} else {
		sb.WriteString("- MACD: not enough data\n")
	}

	sb.WriteString(fmt.Sprintf("- Bollinger Bands: Price is %s\n", BollingerPosition(s)))
	if s.StochK.OK && s.StochD.OK {
		sb.WriteString(fmt.Sprintf("- Stochastic: %s (%.2f/%.2f)\n", StochasticZone(s.StochK.Value, s.StochD.Value), s.StochK.Value, s.StochD.Value))
	} else {
		sb.WriteString("- Stochastic: not enough data\n")
	}

	sb.WriteString(fmt.Sprintf("- Current Price: %s\n", formatPrice(s.Price)))
	sb.WriteString(fmt.Sprintf("- Change over period: %.2f%%\n", in.ChangePercent))

	if r := in.Reference; r != nil {
		sb.WriteString("\nSmoothed reference readings:\n")
		sb.WriteString(fmt.Sprintf("- EMA20/EMA50: %s / %s\n", formatPrice(r.EMA20), formatPrice(r.EMA50)))
		sb.WriteString(fmt.Sprintf("- Wilder RSI14: %.2f\n", r.RSI14))
		sb.WriteString(fmt.Sprintf("- MACD(12,26,9): %.5f vs signal %.5f\n", r.MACD, r.MACDSignal))
		sb.WriteString(fmt.Sprintf("- ATR14: %s\n", formatPrice(r.ATR14)))
	}

	sb.WriteString("\n")
	sb.WriteString(answerFormat)

	brief := sb.String()
	pb.logger.Debug("signal brief built",
		zap.String("symbol", in.Instrument.Symbol),
		zap.Int("chars", len(brief)),
	)
	return brief
}

// BuildInsightsPrompt formats the top quotes of both markets for a summary request.
func (pb *PromptBuilder) BuildInsightsPrompt(crypto, forex []domain.Quote) string {
	var sb strings.Builder

	sb.WriteString("Top cryptocurrencies (price, 24h change):\n")
	if len(crypto) == 0 {
		sb.WriteString("- unavailable\n")
	}
	for _, q := range crypto {
		sb.WriteString(fmt.Sprintf("- %s: %s (%+.2f%%)\n", q.Symbol, formatPrice(q.Price), q.ChangePercent))
	}

	sb.WriteString("\nForex rates:\n")
	if len(forex) == 0 {
		sb.WriteString("- unavailable\n")
	}
	for _, q := range forex {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", q.Symbol, formatPrice(q.Price)))
	}

	sb.WriteString("\nWrite the market briefing.")
	return sb.String()
}

// RSIZone names the RSI region.
func RSIZone(rsi float64) string {
	switch {
	case rsi < 30:
		return "oversold"
	case rsi > 70:
		return "overbought"
	default:
		return "neutral"
	}
}

// Crossover describes fast against slow.
func Crossover(fast, slow indicators.Reading) string {
	switch {
	case !fast.OK || !slow.OK:
		return "unknown"
	case fast.Value > slow.Value:
		return "bullish"
	case fast.Value < slow.Value:
		return "bearish"
	default:
		return "flat"
	}
}

// BollingerPosition describes where the price sits against the bands.
func BollingerPosition(s indicators.Snapshot) string {
	switch {
	case !s.BollingerUp.OK || !s.BollingerLow.OK:
		return "unknown (not enough data)"
	case s.Price > s.BollingerUp.Value:
		return "above upper"
	case s.Price < s.BollingerLow.Value:
		return "below lower"
	default:
		return "within bands"
	}
}

// StochasticZone requires both lines in the zone.
func StochasticZone(k, d float64) string {
	switch {
	case k < 20 && d < 20:
		return "oversold"
	case k > 80 && d > 80:
		return "overbought"
	default:
		return "neutral"
	}
}

func sign(v float64) string {
	switch {
	case v > 0:
		return "bullish"
	case v < 0:
		return "bearish"
	default:
		return "flat"
	}
}

// formatPrice keeps enough precision for forex and low priced coins.
func formatPrice(p float64) string {
	switch {
	case p >= 1000:
		return fmt.Sprintf("%.2f", p)
	case p >= 1:
		return fmt.Sprintf("%.4f", p)
	default:
		return fmt.Sprintf("%.8f", p)
	}
}

// TopMovers returns up to n quotes with the largest absolute change, strongest first.
func TopMovers(quotes []domain.Quote, n int) []domain.Quote {
	out := append([]domain.Quote(nil), quotes...)
	sort.SliceStable(out, func(i, j int) bool {
		return abs(out[i].ChangePercent) > abs(out[j].ChangePercent)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
