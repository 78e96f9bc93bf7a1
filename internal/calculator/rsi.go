package calculator

// RSIPeriod is the RSI lookback.
const RSIPeriod = 14

// CalculateRSI computes RSI per bar using simple rolling means of gains and
// losses. The first bar counts as a zero change, so values start at bar
// period-1. A window with no gains and no losses yields NaN.
func CalculateRSI(closes []float64, period int) []float64 {
	n := len(closes)
	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	avgGain := RollingMean(gains, period)
	avgLoss := RollingMean(losses, period)

	rsi := nanSlice(n)
	for i := 0; i < n; i++ {
		g, l := avgGain[i], avgLoss[i]
		// running-sum residue can dip just below zero
		if g < 0 {
			g = 0
		}
		if l < 0 {
			l = 0
		}
		rs := g / l
		rsi[i] = 100.0 - 100.0/(1.0+rs)
	}
	return rsi
}
