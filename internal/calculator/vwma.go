package calculator

const (
	VolumeMAPeriod = 20
	VWMAPeriod     = 100
)

// CalculateVolumeMA returns the simple rolling mean of volume.
func CalculateVolumeMA(volumes []float64, period int) []float64 {
	return RollingMean(volumes, period)
}

// CalculateVWMA returns sum(close*volume)/sum(volume) over period bars.
// A window with zero volume yields NaN.
func CalculateVWMA(closes, volumes []float64, period int) []float64 {
	pv := make([]float64, len(closes))
	for i := range closes {
		pv[i] = closes[i] * volumes[i]
	}
	// ratio of means equals ratio of sums
	num := RollingMean(pv, period)
	den := RollingMean(volumes, period)
	out := nanSlice(len(closes))
	for i := range out {
		out[i] = num[i] / den[i]
	}
	return out
}
