package model

import "math"

// IndicatorFrame is a Series plus per-bar derived indicators.
// Derived values are NaN inside each indicator's warm-up window.
type IndicatorFrame struct {
	Series     *Series
	RSI        []float64
	CCI        []float64
	MACD       []float64
	MACDSignal []float64
	VolumeMA   []float64
	VWMA       []float64
}

// Snapshot is the derived state of a single bar.
type Snapshot struct {
	Close      float64
	Volume     float64
	RSI        float64
	CCI        float64
	MACD       float64
	MACDSignal float64
	VolumeMA   float64
	VWMA       float64
}

// Len returns the number of bars in the frame.
func (f *IndicatorFrame) Len() int {
	if f == nil || f.Series == nil {
		return 0
	}
	return f.Series.Len()
}

// At returns the snapshot for bar i. Out-of-range indexes yield an all-NaN snapshot.
func (f *IndicatorFrame) At(i int) Snapshot {
	if i < 0 || i >= f.Len() {
		nan := math.NaN()
		return Snapshot{nan, nan, nan, nan, nan, nan, nan, nan}
	}
	bar := f.Series.Bars[i]
	return Snapshot{
		Close:      bar.Close,
		Volume:     bar.Volume,
		RSI:        f.RSI[i],
		CCI:        f.CCI[i],
		MACD:       f.MACD[i],
		MACDSignal: f.MACDSignal[i],
		VolumeMA:   f.VolumeMA[i],
		VWMA:       f.VWMA[i],
	}
}

// Last returns the most recent bar's snapshot.
func (f *IndicatorFrame) Last() Snapshot { return f.At(f.Len() - 1) }

// Prev returns the snapshot one bar before the most recent.
func (f *IndicatorFrame) Prev() Snapshot { return f.At(f.Len() - 2) }

// ChannelFit is a least-squares trend line over a whole Series with a
// residual-deviation channel around it.
type ChannelFit struct {
	Slope            float64
	Intercept        float64
	StdDev           float64
	LowerChannelLast float64
	GapPercent       float64
	IsBottom         bool
}

// Available reports whether v is a usable indicator value.
func Available(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
