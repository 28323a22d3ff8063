package aggregator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vadiminshakov/tradesignals/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

// Result is the outcome for one request of a batch.
type Result struct {
	Symbol string        `json:"symbol"`
	Signal *domain.Signal `json:"signal,omitempty"`
	Err    error         `json:"-"`
}

// Batch is the outcome of GenerateBatch. Results keep the request order.
type Batch struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Results    []Result  `json:"results"`
}

// Signals returns the successful signals in request order.
func (b Batch) Signals() []domain.Signal {
	out := make([]domain.Signal, 0, len(b.Results))
	for _, r := range b.Results {
		if r.Signal != nil {
			out = append(out, *r.Signal)
		}
	}
	return out
}

// GenerateBatch generates signals for every request with at most concurrency running at
// once. A failing request never cancels its siblings.
func (a *Aggregator) GenerateBatch(ctx context.Context, reqs []Request, concurrency int) Batch {
	return RunBatch(ctx, a.logger, len(reqs), concurrency, func(ctx context.Context, i int) (string, domain.Signal, error) {
		sig, err := a.Generate(ctx, reqs[i])
		return reqs[i].Instrument.Symbol, sig, err
	})
}

// RunBatch fans n jobs out over a bounded worker pool and collects their signals.
func RunBatch(ctx context.Context, logger *zap.Logger, n, concurrency int,
	job func(ctx context.Context, i int) (string, domain.Signal, error)) Batch {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	batch := Batch{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Results:   make([]Result, n),
	}
	log := logger.With(zap.String("batch_id", batch.ID))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			symbol, sig, err := job(gctx, i)
			res := Result{Symbol: symbol, Err: err}
			if err != nil {
				log.Warn("signal generation failed", zap.String("symbol", symbol), zap.Error(err))
			} else {
				res.Signal = &sig
			}
			// each goroutine owns its slot
			batch.Results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	batch.FinishedAt = time.Now().UTC()
	log.Info("batch finished",
		zap.Int("requests", n),
		zap.Int("signals", len(batch.Signals())),
		zap.Duration("took", batch.FinishedAt.Sub(batch.StartedAt)),
	)
	return batch
}
