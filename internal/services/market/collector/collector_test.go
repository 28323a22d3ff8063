package collector

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/tradesignals/internal/domain"
)

type providerFunc func(ctx context.Context, inst domain.Instrument, limit int) (domain.PriceSeries, error)

func (f providerFunc) Series(ctx context.Context, inst domain.Instrument, limit int) (domain.PriceSeries, error) {
	return f(ctx, inst, limit)
}

func linear(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + float64(i)
	}
	return out
}

func TestCollector_Collect(t *testing.T) {
	var gotLimit int
	var gotSymbol string
	provider := providerFunc(func(_ context.Context, inst domain.Instrument, limit int) (domain.PriceSeries, error) {
		gotLimit, gotSymbol = limit, inst.Symbol
		return domain.NewPriceSeries("", linear(60)), nil
	})

	c, err := NewCollector(provider, nil, WithLimit(80))
	require.NoError(t, err)

	series, err := c.Collect(context.Background(), domain.Instrument{Symbol: " eth ", Market: domain.MarketCrypto})
	require.NoError(t, err)
	assert.Equal(t, 80, gotLimit)
	assert.Equal(t, "ETH", gotSymbol)
	assert.Equal(t, "ETH", series.Symbol)
	assert.Equal(t, 60, series.Len())
}

func TestCollector_Errors(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		inst    domain.Instrument
		series  domain.PriceSeries
		fetch   error
		wantErr error
	}{
		{
			name:    "too short",
			inst:    domain.Instrument{Symbol: "BTC", Market: domain.MarketCrypto},
			series:  domain.NewPriceSeries("BTC", linear(49)),
			wantErr: domain.ErrInsufficientData,
		},
		{
			name:    "empty",
			inst:    domain.Instrument{Symbol: "BTC", Market: domain.MarketCrypto},
			series:  domain.PriceSeries{},
			wantErr: domain.ErrNoPriceData,
		},
		{
			name: "out of order",
			inst: domain.Instrument{Symbol: "EURUSD", Market: domain.MarketForex},
			series: domain.PriceSeries{Points: []domain.PricePoint{
				{Time: base, Price: 1}, {Time: base, Price: 1.1},
			}},
			wantErr: domain.ErrNonChronological,
		},
		{
			name:    "provider failure",
			inst:    domain.Instrument{Symbol: "BTC", Market: domain.MarketCrypto},
			fetch:   domain.ErrNoPriceData,
			wantErr: domain.ErrNoPriceData,
		},
		{
			name:    "bad symbol",
			inst:    domain.Instrument{Symbol: "B T C", Market: domain.MarketCrypto},
			wantErr: domain.ErrInvalidSymbol,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := providerFunc(func(context.Context, domain.Instrument, int) (domain.PriceSeries, error) {
				return tt.series, tt.fetch
			})
			c, err := NewCollector(provider, nil)
			require.NoError(t, err)

			_, err = c.Collect(context.Background(), tt.inst)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), err.Error())
		})
	}
}

func TestCollector_Timeout(t *testing.T) {
	provider := providerFunc(func(ctx context.Context, _ domain.Instrument, _ int) (domain.PriceSeries, error) {
		<-ctx.Done()
		return domain.PriceSeries{}, ctx.Err()
	})
	c, err := NewCollector(provider, nil, WithFetchTimeout(10*time.Millisecond))
	require.NoError(t, err)

	_, err = c.Collect(context.Background(), domain.Instrument{Symbol: "BTC", Market: domain.MarketCrypto})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestNewCollector_Validation(t *testing.T) {
	_, err := NewCollector(nil, nil)
	assert.Error(t, err)

	p := providerFunc(func(context.Context, domain.Instrument, int) (domain.PriceSeries, error) {
		return domain.PriceSeries{}, nil
	})
	_, err = NewCollector(p, nil, WithMinPoints(0))
	assert.Error(t, err)
	_, err = NewCollector(p, nil, WithMinPoints(60), WithLimit(50))
	assert.Error(t, err)
}

func TestParseIntervalToDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "1m", want: time.Minute},
		{in: "15m", want: 15 * time.Minute},
		{in: "4h", want: 4 * time.Hour},
		{in: "1d", want: 24 * time.Hour},
		{in: "", wantErr: true},
		{in: "h", wantErr: true},
		{in: "0h", wantErr: true},
		{in: "1w", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseIntervalToDuration(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
