// Package indicators provides the classic technical indicators used for signal scoring.
// Every function is pure: it reads the price slice, never modifies it and keeps no state
// between calls. When a series is shorter than an indicator's window the result is an
// empty slice, not an error; callers check the length before indexing.
package indicators

import "math"

const (
	macdFastPeriod   = 12
	macdSlowPeriod   = 26
	macdSignalPeriod = 9
)

// MACDResult holds index-aligned MACD line, signal line and histogram.
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// BollingerResult holds index-aligned Bollinger bands.
type BollingerResult struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// StochasticResult holds %K and %D. %D is shorter than %K by dPeriod-1 values.
type StochasticResult struct {
	K []float64
	D []float64
}

// SMA returns the simple moving average. Result length is len(prices)-period+1.
func SMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return []float64{}
	}

	out := make([]float64, 0, len(prices)-period+1)
	var sum float64
	for i, p := range prices {
		sum += p
		if i >= period {
			sum -= prices[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return out
}

// EMA returns the exponential moving average seeded with prices[0]. The result has the
// same length as the input. The seed biases early values toward the first observed price;
// this is a known approximation kept for compatibility with published readings.
func EMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) == 0 {
		return []float64{}
	}

	k := 2 / float64(period+1)
	out := make([]float64, len(prices))
	out[0] = prices[0]
	for i := 1; i < len(prices); i++ {
		out[i] = (prices[i]-out[i-1])*k + out[i-1]
	}
	return out
}

// RSI returns the relative strength index using simple averages of gains and losses over
// the trailing window. A window without losses reads exactly 100. Result length is
// len(prices)-period.
func RSI(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) <= period {
		return []float64{}
	}

	gains := make([]float64, len(prices)-1)
	losses := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		switch {
		case change > 0:
			gains[i-1] = change
		case change < 0:
			losses[i-1] = -change
		}
	}

	out := make([]float64, 0, len(gains)-period+1)
	for i := period - 1; i < len(gains); i++ {
		var gainSum, lossSum float64
		for j := i - period + 1; j <= i; j++ {
			gainSum += gains[j]
			lossSum += losses[j]
		}
		avgGain := gainSum / float64(period)
		avgLoss := lossSum / float64(period)

		if avgLoss == 0 {
			out = append(out, 100)
			continue
		}
		out = append(out, 100-100/(1+avgGain/avgLoss))
	}
	return out
}

// MACD returns the 12/26 MACD line with its 9-period signal and histogram.
//
// Both EMAs are full length and indexed the same way, so the line is taken at matching
// indexes starting from the first index where the slow EMA covers a whole window:
// macd[j] = ema12[25+j] - ema26[25+j]. Fewer than 26 prices yield empty slices.
func MACD(prices []float64) MACDResult {
	if len(prices) < macdSlowPeriod {
		return MACDResult{MACD: []float64{}, Signal: []float64{}, Histogram: []float64{}}
	}

	fast := EMA(prices, macdFastPeriod)
	slow := EMA(prices, macdSlowPeriod)

	line := make([]float64, 0, len(prices)-macdSlowPeriod+1)
	for i := macdSlowPeriod - 1; i < len(prices); i++ {
		line = append(line, fast[i]-slow[i])
	}

	signal := EMA(line, macdSignalPeriod)
	hist := make([]float64, len(line))
	for i := range line {
		hist[i] = line[i] - signal[i]
	}

	return MACDResult{MACD: line, Signal: signal, Histogram: hist}
}

// Bollinger returns bands of stdDev population standard deviations around the period SMA.
func Bollinger(prices []float64, period int, stdDev float64) BollingerResult {
	middle := SMA(prices, period)
	if len(middle) == 0 {
		return BollingerResult{Upper: []float64{}, Middle: []float64{}, Lower: []float64{}}
	}

	upper := make([]float64, len(middle))
	lower := make([]float64, len(middle))
	for j, mean := range middle {
		window := prices[j : j+period]
		var variance float64
		for _, p := range window {
			variance += (p - mean) * (p - mean)
		}
		sd := math.Sqrt(variance / float64(period))
		upper[j] = mean + stdDev*sd
		lower[j] = mean - stdDev*sd
	}

	return BollingerResult{Upper: upper, Middle: middle, Lower: lower}
}

// Stochastic returns %K over kPeriod and %D as the dPeriod SMA of %K. Only closing prices
// are available, so the highest high and lowest low are the window's max and min close.
// A flat window has no range and reads 50.
func Stochastic(prices []float64, kPeriod, dPeriod int) StochasticResult {
	if kPeriod <= 0 || len(prices) < kPeriod {
		return StochasticResult{K: []float64{}, D: []float64{}}
	}

	k := make([]float64, 0, len(prices)-kPeriod+1)
	for i := kPeriod - 1; i < len(prices); i++ {
		lowest, highest := prices[i], prices[i]
		for _, p := range prices[i-kPeriod+1 : i+1] {
			lowest = math.Min(lowest, p)
			highest = math.Max(highest, p)
		}
		if highest == lowest {
			k = append(k, 50)
			continue
		}
		k = append(k, (prices[i]-lowest)/(highest-lowest)*100)
	}

	return StochasticResult{K: k, D: SMA(k, dPeriod)}
}
