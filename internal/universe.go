package internal

import (
	"context"

	"github.com/vadiminshakov/tradesignals/internal/domain"
	"github.com/vadiminshakov/tradesignals/internal/services/market/collector"
	"go.uber.org/zap"
)

// defaultCrypto is scored when neither instruments nor a top-coins source are configured.
var defaultCrypto = []string{"BTC", "ETH", "SOL", "BNB", "XRP", "ADA", "DOGE", "AVAX", "DOT", "LINK"}

type topCoins interface {
	Instruments(ctx context.Context, n int) ([]domain.Instrument, error)
}

// Universe decides which instruments a batch covers.
type Universe struct {
	configured []domain.Instrument
	top        topCoins
	topN       int
	forexPairs []string
	logger     *zap.Logger
}

// NewUniverse builds a universe. top may be nil; forexPairs defaults to the majors and crosses.
func NewUniverse(configured []domain.Instrument, top topCoins, topN int, forexPairs []string, logger *zap.Logger) *Universe {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(forexPairs) == 0 {
		forexPairs = collector.DefaultForexPairs
	}
	return &Universe{
		configured: configured,
		top:        top,
		topN:       topN,
		forexPairs: forexPairs,
		logger:     logger,
	}
}

// Instruments lists the instruments of market. An empty market means both.
func (u *Universe) Instruments(ctx context.Context, market domain.MarketKind) ([]domain.Instrument, error) {
	switch market {
	case domain.MarketCrypto:
		return u.crypto(ctx), nil
	case domain.MarketForex:
		return u.forex(), nil
	case "":
		return append(u.crypto(ctx), u.forex()...), nil
	default:
		_, err := domain.ParseMarketKind(string(market))
		return nil, err
	}
}

func (u *Universe) crypto(ctx context.Context) []domain.Instrument {
	if out := u.filter(domain.MarketCrypto); len(out) > 0 {
		return out
	}

	if u.top != nil && u.topN > 0 {
		top, err := u.top.Instruments(ctx, u.topN)
		if err == nil && len(top) > 0 {
			return top
		}
		u.logger.Warn("top coins unavailable, using default list", zap.Error(err))
	}

	out := make([]domain.Instrument, 0, len(defaultCrypto))
	for _, s := range defaultCrypto {
		out = append(out, domain.Instrument{Symbol: s, Market: domain.MarketCrypto})
	}
	return out
}

func (u *Universe) forex() []domain.Instrument {
	if out := u.filter(domain.MarketForex); len(out) > 0 {
		return out
	}

	out := make([]domain.Instrument, 0, len(u.forexPairs))
	for _, p := range u.forexPairs {
		out = append(out, domain.Instrument{Symbol: p, Market: domain.MarketForex})
	}
	return out
}

func (u *Universe) filter(market domain.MarketKind) []domain.Instrument {
	var out []domain.Instrument
	for _, inst := range u.configured {
		if inst.Market == market {
			out = append(out, inst)
		}
	}
	return out
}
