// Package indicators provides smoothed reference indicators (EMA, MACD, Wilder RSI, ATR)
// computed with github.com/cinar/indicator. They complement the classic readings in the
// reasoning brief and are never used for rule scoring.
package indicators

import (
	"fmt"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/cinar/indicator/v2/volatility"
)

const minPointsForReference = 50

// Reference holds the latest smoothed readings of a close series.
type Reference struct {
	EMA20      float64
	EMA50      float64
	RSI14      float64
	MACD       float64
	MACDSignal float64
	// ATR14 is computed from closes only, so high and low equal the close.
	ATR14 float64
}

// CalculateEMA calculates the Exponential Moving Average for the given period.
func CalculateEMA(closes []float64, period int) ([]float64, error) {
	if len(closes) < period {
		return nil, fmt.Errorf("not enough data points: need %d, got %d", period, len(closes))
	}

	ema := trend.NewEmaWithPeriod[float64](period)
	return helper.ChanToSlice(ema.Compute(helper.SliceToChan(closes))), nil
}

// CalculateMACD calculates the MACD line and its signal line.
func CalculateMACD(closes []float64) (macdLine, signalLine []float64, err error) {
	if len(closes) < 35 {
		return nil, nil, fmt.Errorf("not enough data points for MACD: need at least 35, got %d", len(closes))
	}

	macd := trend.NewMacd[float64]()
	macdChan, signalChan := macd.Compute(helper.SliceToChan(closes))

	// both channels must be drained concurrently or Compute blocks
	done := make(chan struct{})
	go func() {
		defer close(done)
		signalLine = helper.ChanToSlice(signalChan)
	}()
	macdLine = helper.ChanToSlice(macdChan)
	<-done

	return macdLine, signalLine, nil
}

// CalculateRSI calculates the Wilder-smoothed Relative Strength Index.
func CalculateRSI(closes []float64, period int) ([]float64, error) {
	if len(closes) < period+1 {
		return nil, fmt.Errorf("not enough data points for RSI: need %d, got %d", period+1, len(closes))
	}

	rsi := momentum.NewRsiWithPeriod[float64](period)
	return helper.ChanToSlice(rsi.Compute(helper.SliceToChan(closes))), nil
}

// CalculateATR calculates the Average True Range of a close-only series.
func CalculateATR(closes []float64, period int) ([]float64, error) {
	if len(closes) < period+1 {
		return nil, fmt.Errorf("not enough data points for ATR: need %d, got %d", period+1, len(closes))
	}

	atr := volatility.NewAtrWithPeriod[float64](period)
	out := atr.Compute(
		helper.SliceToChan(closes),
		helper.SliceToChan(closes),
		helper.SliceToChan(closes),
	)
	return helper.ChanToSlice(out), nil
}

// Calculate returns the latest reference readings. The series must hold at least 50 closes.
func Calculate(closes []float64) (Reference, error) {
	if len(closes) < minPointsForReference {
		return Reference{}, fmt.Errorf("not enough data points: need at least %d, got %d", minPointsForReference, len(closes))
	}

	ema20, err := CalculateEMA(closes, 20)
	if err != nil {
		return Reference{}, fmt.Errorf("failed to calculate EMA20: %w", err)
	}
	ema50, err := CalculateEMA(closes, 50)
	if err != nil {
		return Reference{}, fmt.Errorf("failed to calculate EMA50: %w", err)
	}
	macd, signal, err := CalculateMACD(closes)
	if err != nil {
		return Reference{}, fmt.Errorf("failed to calculate MACD: %w", err)
	}
	rsi14, err := CalculateRSI(closes, 14)
	if err != nil {
		return Reference{}, fmt.Errorf("failed to calculate RSI14: %w", err)
	}
	atr14, err := CalculateATR(closes, 14)
	if err != nil {
		return Reference{}, fmt.Errorf("failed to calculate ATR14: %w", err)
	}

	var ref Reference
	for _, v := range []struct {
		dst *float64
		src []float64
	}{
		{&ref.EMA20, ema20},
		{&ref.EMA50, ema50},
		{&ref.MACD, macd},
		{&ref.MACDSignal, signal},
		{&ref.RSI14, rsi14},
		{&ref.ATR14, atr14},
	} {
		if len(v.src) == 0 {
			return Reference{}, fmt.Errorf("indicator produced no values for %d closes", len(closes))
		}
		*v.dst = v.src[len(v.src)-1]
	}

	return ref, nil
}
