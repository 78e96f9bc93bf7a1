package calculator

import (
	"math"

	"github.com/markcheno/go-talib"

	"ChannelScout/internal/model"
)

// ChannelWidth is the number of residual standard deviations below the trend
// line that defines the lower channel.
const ChannelWidth = 2.0

// Band is the inclusive gap-percent range around the lower channel that counts
// as a channel bottom.
type Band struct {
	Low  float64
	High float64
}

// DefaultBand allows a 2% undershoot and a 3% overshoot of the lower channel.
var DefaultBand = Band{Low: -2.0, High: 3.0}

// Contains reports whether gap lies in [Low, High].
func (b Band) Contains(gap float64) bool {
	return gap >= b.Low && gap <= b.High
}

// FitChannel fits close ~ slope*index + intercept by ordinary least squares
// over the whole series and measures the last close against the lower channel.
func FitChannel(bars []model.OHLCV, band Band) model.ChannelFit {
	n := len(bars)
	nan := math.NaN()
	if n < 2 {
		return model.ChannelFit{Slope: nan, Intercept: nan, StdDev: nan, LowerChannelLast: nan, GapPercent: nan}
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, b := range bars {
		x := float64(i)
		sumX += x
		sumY += b.Close
		sumXY += x * b.Close
		sumXX += x * x
	}
	fn := float64(n)
	slope := (fn*sumXY - sumX*sumY) / (fn*sumXX - sumX*sumX)
	intercept := (sumY - slope*sumX) / fn

	residuals := make([]float64, n)
	for i, b := range bars {
		residuals[i] = b.Close - (slope*float64(i) + intercept)
	}
	std := talib.StdDev(residuals, n, 1.0)[n-1]

	lower := slope*float64(n-1) + intercept - ChannelWidth*std
	last := bars[n-1].Close
	gap := (last - lower) / lower * 100

	return model.ChannelFit{
		Slope:            slope,
		Intercept:        intercept,
		StdDev:           std,
		LowerChannelLast: lower,
		GapPercent:       gap,
		IsBottom:         model.Available(gap) && band.Contains(gap),
	}
}
