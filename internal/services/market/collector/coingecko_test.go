package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/tradesignals/internal/domain"
)

const marketsBody = `[
  {"id":"bitcoin","symbol":"btc","name":"Bitcoin","current_price":64000.5,
   "price_change_percentage_24h":-1.25,"sparkline_in_7d":{"price":[63000,63500,64000.5]}},
  {"id":"broken","symbol":"brk","name":"Broken","current_price":0},
  {"id":"ethereum","symbol":"eth","name":"Ethereum","current_price":3100,
   "price_change_percentage_24h":null,"sparkline_in_7d":{"price":[]}},
  {"id":"solana","symbol":"sol","name":"Solana","current_price":150,
   "price_change_percentage_24h":4.5,"sparkline_in_7d":{"price":[140,145,148,150]}}
]`

func newCoinGeckoServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/coins/markets", r.URL.Path)
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currency"))
		assert.Equal(t, "true", r.URL.Query().Get("sparkline"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(marketsBody))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCoinGeckoProvider_Series(t *testing.T) {
	var hits atomic.Int32
	srv := newCoinGeckoServer(t, &hits)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	p := NewCoinGeckoProvider(CoinGeckoConfig{BaseURL: srv.URL, Now: func() time.Time { return now }})

	series, err := p.Series(context.Background(), domain.Instrument{Symbol: "SOL", Market: domain.MarketCrypto}, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{145, 148, 150}, series.Closes())
	assert.Equal(t, now, series.Points[2].Time)
	assert.Equal(t, now.Add(-2*time.Hour), series.Points[0].Time)
	require.NoError(t, series.Validate())

	// pairs resolve to their base
	_, err = p.Series(context.Background(), domain.Instrument{Symbol: "BTC_USDT", Market: domain.MarketCrypto}, 0)
	require.NoError(t, err)

	_, err = p.Series(context.Background(), domain.Instrument{Symbol: "ETH", Market: domain.MarketCrypto}, 10)
	assert.True(t, errors.Is(err, domain.ErrNoPriceData))

	_, err = p.Series(context.Background(), domain.Instrument{Symbol: "DOGE", Market: domain.MarketCrypto}, 10)
	assert.True(t, errors.Is(err, domain.ErrInvalidSymbol))

	assert.EqualValues(t, 1, hits.Load(), "markets page is cached")
}

func TestCoinGeckoProvider_Markets(t *testing.T) {
	var hits atomic.Int32
	srv := newCoinGeckoServer(t, &hits)
	p := NewCoinGeckoProvider(CoinGeckoConfig{BaseURL: srv.URL})

	quotes, err := p.Markets(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, domain.Quote{Symbol: "BTC", Name: "Bitcoin", Market: domain.MarketCrypto, Price: 64000.5, ChangePercent: -1.25}, quotes[0])
	assert.Equal(t, "ETH", quotes[1].Symbol)
	assert.Zero(t, quotes[1].ChangePercent)

	insts, err := p.Instruments(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, insts, 3)
}

func TestCoinGeckoProvider_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewCoinGeckoProvider(CoinGeckoConfig{BaseURL: srv.URL})
	_, err := p.Markets(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestCoinGeckoProvider_NullSparklinePoints(t *testing.T) {
	prices := make([]string, 60)
	for i := range prices {
		prices[i] = fmt.Sprintf("%d", 100+i)
	}
	prices[30] = "null"
	body := `[{"id":"bitcoin","symbol":"btc","name":"Bitcoin","current_price":159,` +
		`"sparkline_in_7d":{"price":[` + strings.Join(prices, ",") + `]}}]`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	p := NewCoinGeckoProvider(CoinGeckoConfig{BaseURL: srv.URL, Now: func() time.Time { return now }})

	c, err := NewCollector(p, nil, WithMinPoints(50), WithLimit(100))
	require.NoError(t, err)

	series, err := c.Collect(context.Background(), domain.Instrument{Symbol: "BTC", Market: domain.MarketCrypto})
	require.NoError(t, err)
	require.Equal(t, 59, series.Len())
	assert.NotContains(t, series.Closes(), 0.0)
	assert.Equal(t, 129.0, series.Points[29].Price)
	assert.Equal(t, 131.0, series.Points[30].Price)
	// the gap keeps its hour
	assert.Equal(t, 2*time.Hour, series.Points[30].Time.Sub(series.Points[29].Time))
	assert.Equal(t, now, series.Points[58].Time)
}
