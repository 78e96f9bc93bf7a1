package calculator

import (
	"math"

	"ChannelScout/internal/model"
)

// CCIPeriod is the CCI lookback.
const CCIPeriod = 20

// CalculateCCI computes the Commodity Channel Index per bar. The mean
// deviation is the rolling mean of |tp - sma(tp)|, so values start at bar
// 2*period-2. A flat typical price yields NaN.
func CalculateCCI(bars []model.OHLCV, period int) []float64 {
	n := len(bars)
	tp := make([]float64, n)
	for i, b := range bars {
		tp[i] = (b.High + b.Low + b.Close) / 3.0
	}

	sma := RollingMean(tp, period)
	dev := nanSlice(n)
	for i := range tp {
		if !math.IsNaN(sma[i]) {
			dev[i] = math.Abs(tp[i] - sma[i])
		}
	}
	mad := RollingMean(dev, period)

	cci := nanSlice(n)
	for i := range tp {
		cci[i] = (tp[i] - sma[i]) / (0.015 * mad[i])
	}
	return cci
}
