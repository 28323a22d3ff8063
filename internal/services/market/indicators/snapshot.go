package indicators

// Params configures the windows used by Compute.
type Params struct {
	RSIPeriod       int
	SMAFast         int
	SMASlow         int
	EMAFast         int
	EMASlow         int
	BollingerPeriod int
	BollingerStdDev float64
	StochK          int
	StochD          int
}

// DefaultParams returns the standard indicator windows.
func DefaultParams() Params {
	return Params{
		RSIPeriod:       14,
		SMAFast:         5,
		SMASlow:         10,
		EMAFast:         5,
		EMASlow:         10,
		BollingerPeriod: 20,
		BollingerStdDev: 2,
		StochK:          14,
		StochD:          3,
	}
}

// SplitParams returns the windows of the split scoring policy, which reads an EMA 10/20
// crossover.
func SplitParams() Params {
	p := DefaultParams()
	p.EMAFast = 10
	p.EMASlow = 20
	return p
}

// Reading is the latest value of an indicator. OK is false when the series was too short
// for the indicator to produce any value.
type Reading struct {
	Value float64
	OK    bool
}

func last(values []float64) Reading {
	if len(values) == 0 {
		return Reading{}
	}
	return Reading{Value: values[len(values)-1], OK: true}
}

// Snapshot holds the latest reading of every indicator for one series.
type Snapshot struct {
	Price float64
	// Points is the number of prices the snapshot was computed from.
	Points int

	RSI           Reading
	SMAFast       Reading
	SMASlow       Reading
	EMAFast       Reading
	EMASlow       Reading
	MACD          Reading
	MACDSignal    Reading
	MACDHistogram Reading
	BollingerUp   Reading
	BollingerMid  Reading
	BollingerLow  Reading
	StochK        Reading
	StochD        Reading

	Params Params
}

// Compute calculates every indicator over prices and keeps the latest readings.
// An empty slice yields a snapshot with no readings.
func Compute(prices []float64, p Params) Snapshot {
	s := Snapshot{Points: len(prices), Params: p}
	if len(prices) == 0 {
		return s
	}
	s.Price = prices[len(prices)-1]

	s.RSI = last(RSI(prices, p.RSIPeriod))
	s.SMAFast = last(SMA(prices, p.SMAFast))
	s.SMASlow = last(SMA(prices, p.SMASlow))

	// EMA is defined from the first price, but a crossover reading is only meaningful
	// once the slow window is covered.
	if len(prices) >= p.EMASlow {
		s.EMAFast = last(EMA(prices, p.EMAFast))
		s.EMASlow = last(EMA(prices, p.EMASlow))
	}

	macd := MACD(prices)
	s.MACD = last(macd.MACD)
	s.MACDSignal = last(macd.Signal)
	s.MACDHistogram = last(macd.Histogram)

	bb := Bollinger(prices, p.BollingerPeriod, p.BollingerStdDev)
	s.BollingerUp = last(bb.Upper)
	s.BollingerMid = last(bb.Middle)
	s.BollingerLow = last(bb.Lower)

	stoch := Stochastic(prices, p.StochK, p.StochD)
	s.StochK = last(stoch.K)
	s.StochD = last(stoch.D)

	return s
}
