// Package insights writes a short market briefing from the top crypto quotes and forex
// rates. When the reasoning service is unavailable a plain statistical summary is used.
package insights

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/tradesignals/internal/clients"
	"github.com/vadiminshakov/tradesignals/internal/domain"
	"github.com/vadiminshakov/tradesignals/internal/services/promptbuilder"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultTopN        = 10
	defaultTimeout     = 20 * time.Second
	defaultTemperature = 0.5
	forexInPrompt      = 10

	SourceReasoning = "reasoning"
	SourceFallback  = "fallback"
)

// CryptoSource lists the top coins by market cap.
type CryptoSource interface {
	Markets(ctx context.Context, n int) ([]domain.Quote, error)
}

// ForexSource quotes live rates for currency pairs.
type ForexSource interface {
	Quotes(ctx context.Context, pairs []string) ([]domain.Quote, error)
}

// Insight is one market briefing.
type Insight struct {
	Summary     string         `json:"summary"`
	Source      string         `json:"source"`
	Advancing   int            `json:"advancing"`
	Declining   int            `json:"declining"`
	Crypto      []domain.Quote `json:"crypto"`
	Forex       []domain.Quote `json:"forex"`
	GeneratedAt time.Time      `json:"generatedAt"`
}

// Service produces insights.
type Service struct {
	crypto     CryptoSource
	forex      ForexSource
	forexPairs []string
	reasoner   clients.Reasoner
	pb         *promptbuilder.PromptBuilder
	logger     *zap.Logger
	topN       int
	timeout    time.Duration
	now        func() time.Time
}

// NewService creates the insights service. reasoner may be nil.
func NewService(crypto CryptoSource, forex ForexSource, forexPairs []string, reasoner clients.Reasoner, logger *zap.Logger) (*Service, error) {
	if crypto == nil && forex == nil {
		return nil, errors.New("insights need at least one quote source")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		crypto:     crypto,
		forex:      forex,
		forexPairs: forexPairs,
		reasoner:   reasoner,
		pb:         promptbuilder.NewPromptBuilder(logger),
		logger:     logger,
		topN:       defaultTopN,
		timeout:    defaultTimeout,
		now:        time.Now,
	}, nil
}

// Generate fetches quotes and asks for a briefing. It fails only when no quotes at all
// could be fetched.
func (s *Service) Generate(ctx context.Context) (Insight, error) {
	var cryptoQuotes, forexQuotes []domain.Quote
	var cryptoErr, forexErr error

	g, gctx := errgroup.WithContext(ctx)
	if s.crypto != nil {
		g.Go(func() error {
			cryptoQuotes, cryptoErr = s.crypto.Markets(gctx, s.topN)
			return nil
		})
	}
	if s.forex != nil {
		g.Go(func() error {
			forexQuotes, forexErr = s.forex.Quotes(gctx, s.forexPairs)
			return nil
		})
	}
	_ = g.Wait()

	if cryptoErr != nil {
		s.logger.Warn("crypto quotes unavailable for insights", zap.Error(cryptoErr))
	}
	if forexErr != nil {
		s.logger.Warn("forex quotes unavailable for insights", zap.Error(forexErr))
	}
	if len(cryptoQuotes) == 0 && len(forexQuotes) == 0 {
		if cause := multierr.Combine(cryptoErr, forexErr); cause != nil {
			return Insight{}, errors.Wrapf(domain.ErrNoPriceData, "no quotes for insights (%v)", cause)
		}
		return Insight{}, errors.Wrap(domain.ErrNoPriceData, "no quotes for insights")
	}

	adv, dec := breadth(cryptoQuotes)
	insight := Insight{
		Advancing:   adv,
		Declining:   dec,
		Crypto:      cryptoQuotes,
		Forex:       forexQuotes,
		GeneratedAt: s.now().UTC(),
	}

	if summary, err := s.reason(ctx, cryptoQuotes, forexQuotes); err == nil {
		insight.Summary = summary
		insight.Source = SourceReasoning
		return insight, nil
	} else if s.reasoner != nil {
		s.logger.Warn("reasoning insights failed, using fallback summary", zap.Error(err))
	}

	insight.Summary = FallbackSummary(cryptoQuotes, forexQuotes)
	insight.Source = SourceFallback
	return insight, nil
}

func (s *Service) reason(ctx context.Context, crypto, forex []domain.Quote) (string, error) {
	if s.reasoner == nil {
		return "", errors.New("no reasoning service")
	}

	if len(forex) > forexInPrompt {
		forex = forex[:forexInPrompt]
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.reasoner.Reason(callCtx, clients.ReasoningRequest{
		SystemPrompt: promptbuilder.InsightsSystemPrompt(),
		UserPrompt:   s.pb.BuildInsightsPrompt(crypto, forex),
		Temperature:  defaultTemperature,
	})
	if err != nil {
		return "", err
	}
	summary := strings.TrimSpace(resp.Completion)
	if summary == "" {
		return "", errors.New("empty insights completion")
	}
	return summary, nil
}

func breadth(quotes []domain.Quote) (advancing, declining int) {
	for _, q := range quotes {
		switch {
		case q.ChangePercent > 0:
			advancing++
		case q.ChangePercent < 0:
			declining++
		}
	}
	return advancing, declining
}

// FallbackSummary describes market breadth and the extreme movers.
func FallbackSummary(crypto, forex []domain.Quote) string {
	var sb strings.Builder

	if len(crypto) > 0 {
		adv, dec := breadth(crypto)
		sb.WriteString(fmt.Sprintf("Crypto: %d of %d top coins advancing, %d declining.", adv, len(crypto), dec))

		sorted := append([]domain.Quote(nil), crypto...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ChangePercent > sorted[j].ChangePercent })
		best, worst := sorted[0], sorted[len(sorted)-1]
		if best.ChangePercent > 0 {
			sb.WriteString(fmt.Sprintf(" Top gainer %s %+.2f%%.", best.Symbol, best.ChangePercent))
		}
		if worst.ChangePercent < 0 {
			sb.WriteString(fmt.Sprintf(" Top loser %s %+.2f%%.", worst.Symbol, worst.ChangePercent))
		}

		switch {
		case adv > dec:
			sb.WriteString(" Sentiment leans positive.")
		case dec > adv:
			sb.WriteString(" Sentiment leans negative.")
		default:
			sb.WriteString(" Sentiment is mixed.")
		}
	} else {
		sb.WriteString("Crypto quotes are unavailable.")
	}

	if len(forex) > 0 {
		sb.WriteString(fmt.Sprintf(" Forex: %d rates quoted", len(forex)))
		for i, q := range forex {
			if i == 3 {
				break
			}
			sb.WriteString(fmt.Sprintf(", %s %.4f", q.Symbol, q.Price))
		}
		sb.WriteString(".")
	} else {
		sb.WriteString(" Forex rates are unavailable.")
	}

	return sb.String()
}
