package calculator

const (
	MACDFast   = 12
	MACDSlow   = 26
	MACDSignal = 9
)

// CalculateMACD returns the MACD line (fast EMA - slow EMA) and its signal EMA.
// Both are defined from the first bar.
func CalculateMACD(closes []float64, fast, slow, signal int) (macd, sig []float64) {
	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)
	macd = make([]float64, len(closes))
	for i := range closes {
		macd[i] = emaFast[i] - emaSlow[i]
	}
	return macd, EMA(macd, signal)
}
