// Package pricecache keeps fetched price series in a write-ahead log so that runs can be
// replayed without network access.
package pricecache

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
	"github.com/vadiminshakov/tradesignals/internal/domain"
)

const (
	defaultDir       = "./wal/prices"
	segmentThreshold = 50
	maxSegments      = 10
	keyPrefix        = "series_"
)

// ErrNotFound is returned when no series was recorded for a symbol.
var ErrNotFound = errors.New("no cached series")

// Record is one fetched series.
type Record struct {
	Index     uint64              `json:"-"`
	Symbol    string              `json:"symbol"`
	Market    domain.MarketKind   `json:"market"`
	FetchedAt time.Time           `json:"fetchedAt"`
	Points    []domain.PricePoint `json:"points"`
}

// Series converts the record back to a price series.
func (r Record) Series() domain.PriceSeries {
	points := make([]domain.PricePoint, len(r.Points))
	copy(points, r.Points)
	return domain.PriceSeries{Symbol: r.Symbol, Points: points}
}

// Store is an append-only gowal log of price series.
type Store struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// Open opens or creates the log under dir.
func Open(dir string) (*Store, error) {
	if dir == "" {
		dir = defaultDir
	}

	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              dir,
		Prefix:           "prices_",
		SegmentThreshold: segmentThreshold,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init price cache WAL")
	}

	return &Store{wal: wal}, nil
}

func key(symbol string) string {
	return keyPrefix + domain.NormalizeSymbol(symbol)
}

// Append writes a series and returns its index.
func (s *Store) Append(market domain.MarketKind, series domain.PriceSeries, fetchedAt time.Time) (uint64, error) {
	if s == nil || s.wal == nil {
		return 0, errors.New("price cache is not initialized")
	}
	if err := domain.ValidateSymbol(domain.NormalizeSymbol(series.Symbol)); err != nil {
		return 0, err
	}

	payload, err := json.Marshal(Record{
		Symbol:    domain.NormalizeSymbol(series.Symbol),
		Market:    market,
		FetchedAt: fetchedAt.UTC(),
		Points:    series.Points,
	})
	if err != nil {
		return 0, errors.Wrap(err, "marshal price series")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.wal.CurrentIndex() + 1
	if err := s.wal.Write(idx, key(series.Symbol), payload); err != nil {
		return 0, errors.Wrapf(err, "write series %s", series.Symbol)
	}
	return idx, nil
}

// Latest returns the most recent record for symbol.
func (s *Store) Latest(symbol string) (Record, error) {
	if s == nil || s.wal == nil {
		return Record{}, errors.New("price cache is not initialized")
	}

	want := key(symbol)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for idx := s.wal.CurrentIndex(); idx > 0; idx-- {
		k, payload, err := s.wal.Get(idx)
		if err != nil {
			return Record{}, errors.Wrapf(err, "read price cache entry %d", idx)
		}
		if k != want {
			continue
		}
		return decode(idx, payload)
	}
	return Record{}, errors.Wrapf(ErrNotFound, "symbol %s", domain.NormalizeSymbol(symbol))
}

// RecordsAfter returns every record written after index, oldest first.
func (s *Store) RecordsAfter(index uint64) ([]Record, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("price cache is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]Record, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		k, payload, err := s.wal.Get(idx)
		if err != nil {
			return nil, errors.Wrapf(err, "read price cache entry %d", idx)
		}
		// missing indexes come back with an empty key
		if k == "" || !strings.HasPrefix(k, keyPrefix) {
			continue
		}
		rec, err := decode(idx, payload)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// CurrentIndex returns the latest index written.
func (s *Store) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *Store) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("price cache is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}

func decode(idx uint64, payload []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return Record{}, errors.Wrapf(err, "decode price series at %d", idx)
	}
	rec.Index = idx
	return rec, nil
}
