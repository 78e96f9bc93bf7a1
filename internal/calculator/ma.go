package calculator

import (
	"math"

	"github.com/markcheno/go-talib"
)

// RollingMean computes a simple moving average over period bars.
// Leading NaN values in the input are skipped; outputs before the first full
// window are NaN. A window of identical values yields that value exactly, so
// deviations from a flat window are exactly zero.
func RollingMean(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 {
		return out
	}
	start := firstValid(values)
	if start < 0 || len(values)-start < period {
		return out
	}
	sma := talib.Sma(values[start:], period)
	run := 0
	for i := start; i < len(values); i++ {
		if i > start && values[i] == values[i-1] {
			run++
		} else {
			run = 1
		}
		if i-start < period-1 {
			continue
		}
		if run >= period {
			// the running sum in Sma leaves residue on non-representable prices
			out[i] = values[i]
		} else {
			out[i] = sma[i-start]
		}
	}
	return out
}

// EMA computes the recursive exponential moving average with alpha = 2/(span+1),
// seeded with the first value and no bias adjustment.
func EMA(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = out[i-1] + alpha*(values[i]-out[i-1])
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func firstValid(values []float64) int {
	for i, v := range values {
		if !math.IsNaN(v) {
			return i
		}
	}
	return -1
}
