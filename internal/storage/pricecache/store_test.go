package pricecache

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/tradesignals/internal/domain"
)

func TestStore_AppendLatest(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)

	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	series := domain.PriceSeries{Symbol: "btc", Points: []domain.PricePoint{
		{Time: at, Price: 100},
		{Time: at.Add(time.Hour), Price: 101.5},
	}}

	idx, err := store.Append(domain.MarketCrypto, series, at)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), idx)

	_, err = store.Append(domain.MarketForex, domain.NewPriceSeries("EURUSD", []float64{1.1, 1.2}), at)
	require.NoError(t, err)

	newer := domain.NewPriceSeries("BTC", []float64{200})
	_, err = store.Append(domain.MarketCrypto, newer, at.Add(time.Minute))
	require.NoError(t, err)

	rec, err := store.Latest("BTC")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), rec.Index)
	assert.Equal(t, domain.MarketCrypto, rec.Market)
	assert.Equal(t, []float64{200}, rec.Series().Closes())

	_, err = store.Latest("ETH")
	assert.True(t, errors.Is(err, ErrNotFound))

	records, err := store.RecordsAfter(1)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "EURUSD", records[0].Symbol)
	assert.Equal(t, "BTC", records[1].Symbol)

	require.NoError(t, store.Close())

	// reopen and read back what was persisted
	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, uint64(3), reopened.CurrentIndex())
	first, err := reopened.RecordsAfter(0)
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Equal(t, at.Add(time.Hour), first[0].Points[1].Time)
	assert.Equal(t, 101.5, first[0].Points[1].Price)
}

func TestStore_RejectsBadSymbol(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Append(domain.MarketCrypto, domain.NewPriceSeries("", []float64{1}), time.Now())
	assert.True(t, errors.Is(err, domain.ErrInvalidSymbol))
}

func TestStore_Nil(t *testing.T) {
	var s *Store
	_, err := s.Latest("BTC")
	assert.Error(t, err)
	assert.Zero(t, s.CurrentIndex())
}

func TestStore_SkipsForeignEntries(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err = store.Append(domain.MarketCrypto, domain.NewPriceSeries("BTC", []float64{100}), at)
	require.NoError(t, err)
	require.NoError(t, store.wal.Write(store.wal.CurrentIndex()+1, "other_BTC", []byte(`{"symbol":"BTC"}`)))

	rec, err := store.Latest("BTC")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rec.Index)

	records, err := store.RecordsAfter(0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "BTC", records[0].Symbol)

	records, err = store.RecordsAfter(1)
	require.NoError(t, err)
	assert.Empty(t, records)
}
