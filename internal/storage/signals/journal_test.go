package signals

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/tradesignals/internal/domain"
)

func buySignal(symbol string) domain.Signal {
	return domain.Signal{
		Symbol:      symbol,
		Market:      domain.MarketCrypto,
		Type:        domain.SignalBuy,
		Indicator:   domain.IndicatorRules,
		Confidence:  90,
		Price:       decimal.NewFromInt(100),
		TakeProfit:  decimal.NewFromInt(105),
		StopLoss:    decimal.NewFromInt(98),
		Score:       5,
		GeneratedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func symbolsOf(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Signal.Symbol
	}
	return out
}

func TestJournal_SaveAndRead(t *testing.T) {
	j := New(10)

	idx, err := j.Save("batch-1", buySignal("BTC"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), idx)

	_, err = j.Save("batch-1", buySignal("ETH"))
	require.NoError(t, err)

	records, err := j.SignalsAfter(0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, uint64(1), records[0].Index)
	assert.Equal(t, "batch-1", records[0].BatchID)
	assert.Equal(t, []string{"BTC", "ETH"}, symbolsOf(records))

	records, err = j.SignalsAfter(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"ETH"}, symbolsOf(records))

	records, err = j.SignalsAfter(2)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, uint64(2), j.CurrentIndex())
}

func TestJournal_DropsOldest(t *testing.T) {
	j := New(3)
	for _, s := range []string{"A", "B", "C", "D", "E"} {
		_, err := j.Save("", buySignal(s))
		require.NoError(t, err)
	}

	records, err := j.SignalsAfter(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "D", "E"}, symbolsOf(records))
	assert.Equal(t, uint64(3), records[0].Index)

	records, err = j.SignalsAfter(4)
	require.NoError(t, err)
	assert.Equal(t, []string{"E"}, symbolsOf(records))
	assert.Equal(t, uint64(5), j.CurrentIndex())
}

func TestJournal_RejectsInvalidSignal(t *testing.T) {
	j := New(0)

	bad := buySignal("BTC")
	bad.StopLoss = decimal.NewFromInt(101)

	_, err := j.Save("", bad)
	assert.Error(t, err)
	assert.Zero(t, j.CurrentIndex())
}

func TestJournal_Concurrent(t *testing.T) {
	j := New(1000)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := 0; k < 50; k++ {
				_, err := j.Save("", buySignal("BTC"))
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	records, err := j.SignalsAfter(0)
	require.NoError(t, err)
	require.Len(t, records, 400)
	for i, r := range records {
		assert.Equal(t, uint64(i+1), r.Index)
	}
}

func TestJournal_Nil(t *testing.T) {
	var j *Journal
	_, err := j.Save("", buySignal("BTC"))
	assert.Error(t, err)
	_, err = j.SignalsAfter(0)
	assert.Error(t, err)
	assert.Zero(t, j.CurrentIndex())
}
