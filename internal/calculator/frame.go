package calculator

import "ChannelScout/internal/model"

// Compute derives every per-bar indicator for a series. It does not validate
// input; NaN results mark indicators that are unavailable for a bar.
func Compute(series *model.Series) *model.IndicatorFrame {
	closes := series.Closes()
	volumes := series.Volumes()

	macd, signal := CalculateMACD(closes, MACDFast, MACDSlow, MACDSignal)

	return &model.IndicatorFrame{
		Series:     series,
		RSI:        CalculateRSI(closes, RSIPeriod),
		CCI:        CalculateCCI(series.Bars, CCIPeriod),
		MACD:       macd,
		MACDSignal: signal,
		VolumeMA:   CalculateVolumeMA(volumes, VolumeMAPeriod),
		VWMA:       CalculateVWMA(closes, volumes, VWMAPeriod),
	}
}
