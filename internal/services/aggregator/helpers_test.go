package aggregator

import (
	"context"
	"sync/atomic"

	"github.com/vadiminshakov/tradesignals/internal/clients"
	"github.com/vadiminshakov/tradesignals/internal/domain"
)

// sellSeries rallies for 30 steps then drops for 5: mid RSI with bearish crossovers and MACD.
func sellSeries() []float64 {
	prices := make([]float64, 0, 35)
	for i := 0; i < 30; i++ {
		prices = append(prices, 100+float64(i)*2)
	}
	for k := 1; k <= 5; k++ {
		prices = append(prices, 158-float64(k)*3)
	}
	return prices
}

// buySeries mirrors sellSeries.
func buySeries() []float64 {
	prices := make([]float64, 0, 35)
	for i := 0; i < 30; i++ {
		prices = append(prices, 200-float64(i)*2)
	}
	for k := 1; k <= 5; k++ {
		prices = append(prices, 142+float64(k)*3)
	}
	return prices
}

func decreasingSeries(n int) []float64 {
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = float64(100 - i)
	}
	return prices
}

func request(symbol string, market domain.MarketKind, prices []float64) Request {
	return Request{
		Instrument: domain.Instrument{Symbol: symbol, Market: market},
		Series:     domain.NewPriceSeries(symbol, prices),
	}
}

type fakeReasoner struct {
	calls atomic.Int32
	fn    func(ctx context.Context, req clients.ReasoningRequest) (clients.ReasoningResponse, error)
}

func (f *fakeReasoner) Reason(ctx context.Context, req clients.ReasoningRequest) (clients.ReasoningResponse, error) {
	f.calls.Add(1)
	return f.fn(ctx, req)
}
