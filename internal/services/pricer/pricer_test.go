package pricer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/tradesignals/internal/domain"
)

type pricerFunc func(ctx context.Context, pair domain.Pair) (decimal.Decimal, error)

func (f pricerFunc) GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	return f(ctx, pair)
}

func TestCurrent(t *testing.T) {
	btc := domain.Instrument{Symbol: "BTC", Market: domain.MarketCrypto}

	tests := []struct {
		name   string
		p      Pricer
		inst   domain.Instrument
		want   string
		wantOK bool
	}{
		{name: "no pricer", p: nil, inst: btc},
		{
			name: "price",
			p: pricerFunc(func(_ context.Context, pair domain.Pair) (decimal.Decimal, error) {
				assert.Equal(t, domain.Pair{From: "BTC", To: "USDT"}, pair)
				return decimal.RequireFromString("65000.1"), nil
			}),
			inst:   btc,
			want:   "65000.1",
			wantOK: true,
		},
		{
			name: "failure falls back",
			p: pricerFunc(func(context.Context, domain.Pair) (decimal.Decimal, error) {
				return decimal.Zero, errors.New("down")
			}),
			inst: btc,
		},
		{
			name: "zero price ignored",
			p: pricerFunc(func(context.Context, domain.Pair) (decimal.Decimal, error) {
				return decimal.Zero, nil
			}),
			inst: btc,
		},
		{
			name: "forex without pair",
			p: pricerFunc(func(context.Context, domain.Pair) (decimal.Decimal, error) {
				t.Fatal("must not be called")
				return decimal.Zero, nil
			}),
			inst: domain.Instrument{Symbol: "EURUSD", Market: domain.MarketForex},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Current(context.Background(), tt.p, tt.inst, nil)
			if !tt.wantOK {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestBinancePricer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/price", r.URL.Path)
		assert.Equal(t, "SOLUSDT", r.URL.Query().Get("symbol"))
		_, _ = w.Write([]byte(`{"symbol":"SOLUSDT","price":"151.23000000"}`))
	}))
	defer srv.Close()

	client := binance.NewClient("", "")
	client.BaseURL = srv.URL

	price, err := NewBinancePricer(client).GetPrice(context.Background(), domain.Pair{From: "SOL", To: "USDT"})
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("151.23")))
}

func TestHyperliquidPricer_NilInfo(t *testing.T) {
	_, err := NewHyperliquidPricer(nil).GetPrice(context.Background(), domain.Pair{From: "BTC", To: "USD"})
	assert.Error(t, err)
}
