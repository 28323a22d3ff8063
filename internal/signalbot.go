package internal

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/tradesignals/internal/domain"
	"github.com/vadiminshakov/tradesignals/internal/services/aggregator"
	"github.com/vadiminshakov/tradesignals/internal/services/pricer"
)

// ErrNoInstruments is returned when a batch would cover nothing.
var ErrNoInstruments = errors.New("no instruments to score")

// SeriesCollector fetches a validated price series for an instrument.
type SeriesCollector interface {
	Collect(ctx context.Context, inst domain.Instrument) (domain.PriceSeries, error)
}

type signalJournal interface {
	Save(batchID string, sig domain.Signal) (uint64, error)
}

// SignalBot collects prices, generates signals and journals them.
type SignalBot struct {
	aggregator  *aggregator.Aggregator
	collectors  map[domain.MarketKind]SeriesCollector
	pricer      pricer.Pricer
	universe    *Universe
	journal     signalJournal
	concurrency int
	logger      *zap.Logger
}

// NewSignalBot wires a bot. pricer and journal are optional.
func NewSignalBot(
	agg *aggregator.Aggregator,
	collectors map[domain.MarketKind]SeriesCollector,
	currentPricer pricer.Pricer,
	universe *Universe,
	journal signalJournal,
	concurrency int,
	logger *zap.Logger,
) (*SignalBot, error) {
	if agg == nil {
		return nil, errors.New("aggregator is required")
	}
	if universe == nil {
		return nil, errors.New("universe is required")
	}
	if len(collectors) == 0 {
		return nil, errors.New("at least one collector is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SignalBot{
		aggregator:  agg,
		collectors:  collectors,
		pricer:      currentPricer,
		universe:    universe,
		journal:     journal,
		concurrency: concurrency,
		logger:      logger,
	}, nil
}

// Batch scores every instrument of market. An empty market scores both.
func (b *SignalBot) Batch(ctx context.Context, market domain.MarketKind) (aggregator.Batch, error) {
	instruments, err := b.universe.Instruments(ctx, market)
	if err != nil {
		return aggregator.Batch{}, err
	}
	if len(instruments) == 0 {
		return aggregator.Batch{}, ErrNoInstruments
	}

	batch := aggregator.RunBatch(ctx, b.logger, len(instruments), b.concurrency,
		func(ctx context.Context, i int) (string, domain.Signal, error) {
			sig, err := b.generate(ctx, instruments[i])
			return instruments[i].Symbol, sig, err
		})

	for _, sig := range batch.Signals() {
		b.record(batch.ID, sig)
	}
	return batch, nil
}

// Signal scores a single instrument.
func (b *SignalBot) Signal(ctx context.Context, symbol string, market domain.MarketKind) (domain.Signal, error) {
	inst := domain.Instrument{Symbol: domain.NormalizeSymbol(symbol), Market: market}
	if err := inst.Validate(); err != nil {
		return domain.Signal{}, err
	}

	sig, err := b.generate(ctx, inst)
	if err != nil {
		return domain.Signal{}, err
	}
	b.record("", sig)
	return sig, nil
}

func (b *SignalBot) generate(ctx context.Context, inst domain.Instrument) (domain.Signal, error) {
	c, ok := b.collectors[inst.Market]
	if !ok {
		return domain.Signal{}, errors.Errorf("no market data source for %s", inst.Market)
	}

	series, err := c.Collect(ctx, inst)
	if err != nil {
		return domain.Signal{}, err
	}

	var current *decimal.Decimal
	if inst.Market == domain.MarketCrypto {
		current = pricer.Current(ctx, b.pricer, inst, b.logger)
	}

	return b.aggregator.Generate(ctx, aggregator.Request{
		Instrument:   inst,
		Series:       series,
		CurrentPrice: current,
	})
}

func (b *SignalBot) record(batchID string, sig domain.Signal) {
	if b.journal == nil {
		return
	}
	if _, err := b.journal.Save(batchID, sig); err != nil {
		b.logger.Error("failed to journal signal", zap.String("symbol", sig.Symbol), zap.Error(err))
	}
}

// Watch runs a batch immediately and then every interval until ctx is done.
func (b *SignalBot) Watch(ctx context.Context, interval time.Duration, market domain.MarketKind, onBatch func(aggregator.Batch)) error {
	if interval <= 0 {
		return errors.New("watch interval must be positive")
	}

	run := func() {
		batch, err := b.Batch(ctx, market)
		if err != nil {
			b.logger.Error("batch failed", zap.Error(err))
			return
		}
		if onBatch != nil {
			onBatch(batch)
		}
	}

	b.logger.Info("starting signal loop", zap.String("market", market.String()), zap.Duration("interval", interval))
	run()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("context done, stopping signal loop")
			return ctx.Err()
		case <-ticker.C:
			run()
		}
	}
}
