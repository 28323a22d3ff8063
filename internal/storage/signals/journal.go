// Package signals keeps the most recent signals in memory, indexed so that streams can
// resume where a client stopped. Nothing is written to disk.
package signals

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/tradesignals/internal/domain"
)

// DefaultCapacity is how many signals are retained when none is configured.
const DefaultCapacity = 500

// Record is a journaled signal. Indexes start at 1 and never repeat.
type Record struct {
	Index   uint64        `json:"index"`
	BatchID string        `json:"batchId,omitempty"`
	Signal  domain.Signal `json:"signal"`
}

// Journal is a bounded ring of records. Older records are dropped once it is full.
type Journal struct {
	mu      sync.RWMutex
	records []Record
	start   int
	size    int
	current uint64
}

// New creates a journal holding up to capacity records.
func New(capacity int) *Journal {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Journal{records: make([]Record, capacity)}
}

// Save appends a signal and returns its index.
func (j *Journal) Save(batchID string, sig domain.Signal) (uint64, error) {
	if j == nil || len(j.records) == 0 {
		return 0, errors.New("signal journal is not initialized")
	}
	if err := sig.Validate(); err != nil {
		return 0, errors.Wrap(err, "refusing to journal invalid signal")
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	j.current++
	rec := Record{Index: j.current, BatchID: batchID, Signal: sig}

	if j.size < len(j.records) {
		j.records[(j.start+j.size)%len(j.records)] = rec
		j.size++
	} else {
		j.records[j.start] = rec
		j.start = (j.start + 1) % len(j.records)
	}
	return rec.Index, nil
}

// SignalsAfter returns the retained signals written after index, oldest first.
func (j *Journal) SignalsAfter(index uint64) ([]Record, error) {
	if j == nil || len(j.records) == 0 {
		return nil, errors.New("signal journal is not initialized")
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.current <= index {
		return nil, nil
	}

	var out []Record
	for i := 0; i < j.size; i++ {
		rec := j.records[(j.start+i)%len(j.records)]
		if rec.Index > index {
			out = append(out, rec)
		}
	}
	return out, nil
}

// CurrentIndex returns the latest index written.
func (j *Journal) CurrentIndex() uint64 {
	if j == nil {
		return 0
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	return j.current
}
