package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSymbol(t *testing.T) {
	valid := []string{"BTC", "ETHUSDT", "EUR/USD", "BTC_USDT", "BTC-USD", "1INCH"}
	for _, s := range valid {
		assert.NoError(t, ValidateSymbol(s), s)
	}

	invalid := []string{"", "btc", "EUR/", "/USD", "BTC USDT", "A/B/C", "VERYLONGSYMBOLNAMEXXXX"}
	for _, s := range invalid {
		assert.ErrorIs(t, ValidateSymbol(s), ErrInvalidSymbol, s)
	}
}

func TestInstrument_Pair(t *testing.T) {
	tests := []struct {
		name    string
		in      Instrument
		want    Pair
		wantErr bool
	}{
		{name: "forex slash", in: Instrument{Symbol: "EUR/USD", Market: MarketForex}, want: Pair{From: "EUR", To: "USD"}},
		{name: "crypto underscore", in: Instrument{Symbol: "ETH_BTC", Market: MarketCrypto}, want: Pair{From: "ETH", To: "BTC"}},
		{name: "crypto bare ticker", in: Instrument{Symbol: "BTC", Market: MarketCrypto}, want: Pair{From: "BTC", To: "USDT"}},
		{name: "forex bare ticker", in: Instrument{Symbol: "EURUSD", Market: MarketForex}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Pair()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPairFormats(t *testing.T) {
	p, err := ParsePair("eur/usd")
	require.NoError(t, err)
	assert.Equal(t, "EUR_USD", p.String())
	assert.Equal(t, "EURUSD", p.Symbol())
	assert.Equal(t, "EUR/USD", p.Slash())
}
