package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSignal_Validate(t *testing.T) {
	price := decimal.NewFromInt(100)
	base := Signal{Symbol: "BTC", Market: MarketCrypto, Price: price, Confidence: 80}

	tests := []struct {
		name    string
		mutate  func(s *Signal)
		wantErr bool
	}{
		{name: "hold at price", mutate: func(s *Signal) {
			s.Type, s.TakeProfit, s.StopLoss = SignalHold, price, price
		}},
		{name: "buy", mutate: func(s *Signal) {
			s.Type, s.TakeProfit, s.StopLoss = SignalBuy, decimal.NewFromInt(105), decimal.NewFromInt(98)
		}},
		{name: "sell", mutate: func(s *Signal) {
			s.Type, s.TakeProfit, s.StopLoss = SignalSell, decimal.NewFromInt(95), decimal.NewFromInt(102)
		}},
		{name: "buy with inverted levels", mutate: func(s *Signal) {
			s.Type, s.TakeProfit, s.StopLoss = SignalBuy, decimal.NewFromInt(95), decimal.NewFromInt(102)
		}, wantErr: true},
		{name: "hold with levels", mutate: func(s *Signal) {
			s.Type, s.TakeProfit, s.StopLoss = SignalHold, decimal.NewFromInt(105), price
		}, wantErr: true},
		{name: "confidence over 100", mutate: func(s *Signal) {
			s.Type, s.TakeProfit, s.StopLoss, s.Confidence = SignalHold, price, price, 101
		}, wantErr: true},
		{name: "unknown type", mutate: func(s *Signal) {
			s.Type, s.TakeProfit, s.StopLoss = "LONG", price, price
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base
			tt.mutate(&s)
			if tt.wantErr {
				assert.Error(t, s.Validate())
			} else {
				assert.NoError(t, s.Validate())
			}
		})
	}
}
