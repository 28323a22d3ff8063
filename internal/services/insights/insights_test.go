package insights

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/tradesignals/internal/clients"
	"github.com/vadiminshakov/tradesignals/internal/domain"
)

type cryptoFunc func(ctx context.Context, n int) ([]domain.Quote, error)

func (f cryptoFunc) Markets(ctx context.Context, n int) ([]domain.Quote, error) { return f(ctx, n) }

type forexFunc func(ctx context.Context, pairs []string) ([]domain.Quote, error)

func (f forexFunc) Quotes(ctx context.Context, pairs []string) ([]domain.Quote, error) {
	return f(ctx, pairs)
}

type reasonerFunc func(ctx context.Context, req clients.ReasoningRequest) (clients.ReasoningResponse, error)

func (f reasonerFunc) Reason(ctx context.Context, req clients.ReasoningRequest) (clients.ReasoningResponse, error) {
	return f(ctx, req)
}

var (
	cryptoQuotes = []domain.Quote{
		{Symbol: "BTC", Market: domain.MarketCrypto, Price: 65000, ChangePercent: 2.5},
		{Symbol: "ETH", Market: domain.MarketCrypto, Price: 3200, ChangePercent: -1.75},
		{Symbol: "SOL", Market: domain.MarketCrypto, Price: 150, ChangePercent: 4},
		{Symbol: "XRP", Market: domain.MarketCrypto, Price: 0.5, ChangePercent: 0},
	}
	forexQuotes = []domain.Quote{
		{Symbol: "EURUSD", Market: domain.MarketForex, Price: 1.085},
		{Symbol: "USDJPY", Market: domain.MarketForex, Price: 151.2},
	}
	staticCrypto = cryptoFunc(func(_ context.Context, n int) ([]domain.Quote, error) {
		return cryptoQuotes, nil
	})
	staticForex = forexFunc(func(context.Context, []string) ([]domain.Quote, error) {
		return forexQuotes, nil
	})
)

func TestService_Reasoning(t *testing.T) {
	var prompt clients.ReasoningRequest
	r := reasonerFunc(func(_ context.Context, req clients.ReasoningRequest) (clients.ReasoningResponse, error) {
		prompt = req
		return clients.ReasoningResponse{Completion: "  Markets are calm.  "}, nil
	})

	svc, err := NewService(staticCrypto, staticForex, []string{"EURUSD"}, r, nil)
	require.NoError(t, err)

	got, err := svc.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Markets are calm.", got.Summary)
	assert.Equal(t, SourceReasoning, got.Source)
	assert.Equal(t, 2, got.Advancing)
	assert.Equal(t, 1, got.Declining)
	assert.Contains(t, prompt.UserPrompt, "BTC")
	assert.Contains(t, prompt.UserPrompt, "EURUSD")
	assert.Empty(t, prompt.Schema)
}

func TestService_Fallback(t *testing.T) {
	failing := reasonerFunc(func(context.Context, clients.ReasoningRequest) (clients.ReasoningResponse, error) {
		return clients.ReasoningResponse{}, errors.New("unavailable")
	})
	empty := reasonerFunc(func(context.Context, clients.ReasoningRequest) (clients.ReasoningResponse, error) {
		return clients.ReasoningResponse{Completion: "   "}, nil
	})

	for name, r := range map[string]clients.Reasoner{"nil": nil, "failing": failing, "empty": empty} {
		t.Run(name, func(t *testing.T) {
			svc, err := NewService(staticCrypto, staticForex, nil, r, nil)
			require.NoError(t, err)

			got, err := svc.Generate(context.Background())
			require.NoError(t, err)
			assert.Equal(t, SourceFallback, got.Source)
			assert.Equal(t, FallbackSummary(cryptoQuotes, forexQuotes), got.Summary)
		})
	}
}

func TestService_PartialSources(t *testing.T) {
	broken := forexFunc(func(context.Context, []string) ([]domain.Quote, error) {
		return nil, errors.New("rates down")
	})
	svc, err := NewService(staticCrypto, broken, nil, nil, nil)
	require.NoError(t, err)

	got, err := svc.Generate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got.Forex)
	assert.Contains(t, got.Summary, "Forex rates are unavailable.")

	brokenCrypto := cryptoFunc(func(context.Context, int) ([]domain.Quote, error) {
		return nil, errors.New("down")
	})
	svc, err = NewService(brokenCrypto, broken, nil, nil, nil)
	require.NoError(t, err)
	_, err = svc.Generate(context.Background())
	assert.True(t, errors.Is(err, domain.ErrNoPriceData))
	assert.Contains(t, err.Error(), "rates down")

	_, err = NewService(nil, nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestFallbackSummary(t *testing.T) {
	got := FallbackSummary(cryptoQuotes, forexQuotes)
	assert.Equal(t,
		"Crypto: 2 of 4 top coins advancing, 1 declining. Top gainer SOL +4.00%. Top loser ETH -1.75%."+
			" Sentiment leans positive. Forex: 2 rates quoted, EURUSD 1.0850, USDJPY 151.2000.",
		got)

	assert.Equal(t, "Crypto quotes are unavailable. Forex rates are unavailable.", FallbackSummary(nil, nil))
}

func TestService_Clock(t *testing.T) {
	svc, err := NewService(staticCrypto, nil, nil, nil, nil)
	require.NoError(t, err)
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	svc.now = func() time.Time { return at }

	got, err := svc.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, at, got.GeneratedAt)
}
