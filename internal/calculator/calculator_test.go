package calculator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChannelScout/internal/model"
)

func makeBars(closes []float64, volume float64) []model.OHLCV {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = model.OHLCV{
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: volume,
		}
	}
	return bars
}

func wavyCloses(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + 8*math.Sin(float64(i)/4) + 3*math.Cos(float64(i)/1.7) + 0.05*float64(i)
	}
	return closes
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestRollingMean(t *testing.T) {
	got := RollingMean([]float64{1, 2, 3, 4, 5}, 3)
	require.Len(t, got, 5)
	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))
	assert.InDelta(t, 2.0, got[2], 1e-12)
	assert.InDelta(t, 3.0, got[3], 1e-12)
	assert.InDelta(t, 4.0, got[4], 1e-12)
}

func TestRollingMean_SkipsLeadingNaN(t *testing.T) {
	nan := math.NaN()
	got := RollingMean([]float64{nan, nan, 2, 4, 6}, 2)
	assert.True(t, math.IsNaN(got[2]))
	assert.InDelta(t, 3.0, got[3], 1e-12)
	assert.InDelta(t, 5.0, got[4], 1e-12)
}

func TestRollingMean_ShortInput(t *testing.T) {
	got := RollingMean([]float64{1, 2}, 3)
	for _, v := range got {
		assert.True(t, math.IsNaN(v))
	}
}

func TestEMA_SeededWithFirstValue(t *testing.T) {
	got := EMA([]float64{10, 20, 20}, 3) // alpha = 0.5
	assert.Equal(t, 10.0, got[0])
	assert.InDelta(t, 15.0, got[1], 1e-12)
	assert.InDelta(t, 17.5, got[2], 1e-12)
	assert.Empty(t, EMA(nil, 3))
}

func TestCalculateRSI_WarmupAndBounds(t *testing.T) {
	rsi := CalculateRSI(wavyCloses(150), RSIPeriod)
	for i := 0; i < RSIPeriod-1; i++ {
		assert.True(t, math.IsNaN(rsi[i]), "bar %d should be warm-up", i)
	}
	for i := RSIPeriod - 1; i < len(rsi); i++ {
		require.True(t, model.Available(rsi[i]), "bar %d should be defined", i)
		assert.GreaterOrEqual(t, rsi[i], 0.0)
		assert.LessOrEqual(t, rsi[i], 100.0)
	}
}

func TestCalculateRSI_ConstantIsIndeterminate(t *testing.T) {
	rsi := CalculateRSI(constant(120, 100), RSIPeriod)
	assert.True(t, math.IsNaN(rsi[len(rsi)-1]))
}

func TestCalculateRSI_OnlyGains(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	rsi := CalculateRSI(closes, RSIPeriod)
	assert.InDelta(t, 100.0, rsi[len(rsi)-1], 1e-9)
}

func TestCalculateCCI_ConstantIsIndeterminate(t *testing.T) {
	for _, price := range []float64{100, 0.1, 0.3, 1.1, 2.7, 123.456} {
		cci := CalculateCCI(makeBars(constant(120, price), 1000), CCIPeriod)
		assert.True(t, math.IsNaN(cci[len(cci)-1]), "price %v gave cci %v", price, cci[len(cci)-1])
	}
}

func TestCalculateCCI_FlatTailIsIndeterminate(t *testing.T) {
	closes := append(wavyCloses(70), constant(50, 0.37)...)
	cci := CalculateCCI(makeBars(closes, 1000), CCIPeriod)
	assert.True(t, math.IsNaN(cci[len(cci)-1]))
	assert.True(t, model.Available(cci[69]))
}

func TestRollingMean_ConstantWindowIsExact(t *testing.T) {
	got := RollingMean(append([]float64{5, 9}, constant(30, 0.1)...), 20)
	assert.Equal(t, 0.1, got[len(got)-1])
	for i := 21; i < len(got); i++ {
		assert.Equal(t, 0.1, got[i], "bar %d", i)
	}
	assert.NotEqual(t, 0.1, got[20])
}

func TestCalculateCCI_Warmup(t *testing.T) {
	cci := CalculateCCI(makeBars(wavyCloses(120), 1000), CCIPeriod)
	assert.True(t, math.IsNaN(cci[2*CCIPeriod-3]))
	assert.True(t, model.Available(cci[2*CCIPeriod-2]))
}

func TestCalculateMACD_Constant(t *testing.T) {
	macd, sig := CalculateMACD(constant(50, 42), MACDFast, MACDSlow, MACDSignal)
	assert.InDelta(t, 0.0, macd[49], 1e-12)
	assert.InDelta(t, 0.0, sig[49], 1e-12)
}

func TestCalculateMACD_RisesAfterJump(t *testing.T) {
	closes := append(constant(60, 100), 150)
	macd, sig := CalculateMACD(closes, MACDFast, MACDSlow, MACDSignal)
	last := len(closes) - 1
	assert.InDelta(t, 0.0, macd[last-1]-sig[last-1], 1e-9)
	assert.Greater(t, macd[last]-sig[last], 1.0)
}

func TestCalculateVWMA(t *testing.T) {
	got := CalculateVWMA([]float64{10, 20}, []float64{1, 3}, 2)
	assert.InDelta(t, 17.5, got[1], 1e-12)

	short := CalculateVWMA(constant(99, 10), constant(99, 5), VWMAPeriod)
	assert.True(t, math.IsNaN(short[98]))

	flat := CalculateVWMA(constant(120, 100), constant(120, 1000), VWMAPeriod)
	assert.InDelta(t, 100.0, flat[119], 1e-9)
}

func TestCalculateVWMA_ZeroVolume(t *testing.T) {
	got := CalculateVWMA(constant(100, 10), constant(100, 0), VWMAPeriod)
	assert.True(t, math.IsNaN(got[99]))
}

func TestBand_InclusiveBoundaries(t *testing.T) {
	tests := []struct {
		gap  float64
		want bool
	}{
		{-2.0, true},
		{3.0, true},
		{0, true},
		{-2.0001, false},
		{3.0001, false},
		{math.NaN(), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DefaultBand.Contains(tt.gap), "gap %v", tt.gap)
	}
}

func TestFitChannel_PerfectLine(t *testing.T) {
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 10 + 2*float64(i)
	}
	fit := FitChannel(makeBars(closes, 1), DefaultBand)
	assert.InDelta(t, 2.0, fit.Slope, 1e-9)
	assert.InDelta(t, 10.0, fit.Intercept, 1e-9)
	assert.InDelta(t, 0.0, fit.StdDev, 1e-9)
	assert.InDelta(t, 248.0, fit.LowerChannelLast, 1e-6)
	assert.InDelta(t, 0.0, fit.GapPercent, 1e-6)
	assert.True(t, fit.IsBottom)
}

func TestFitChannel_SpikeAboveChannel(t *testing.T) {
	closes := append(constant(119, 100), 150)
	fit := FitChannel(makeBars(closes, 1), DefaultBand)
	assert.Greater(t, fit.GapPercent, DefaultBand.High)
	assert.False(t, fit.IsBottom)
}

func TestFitChannel_TooShort(t *testing.T) {
	fit := FitChannel(makeBars([]float64{1}, 1), DefaultBand)
	assert.False(t, fit.IsBottom)
	assert.True(t, math.IsNaN(fit.GapPercent))
}

func TestCompute_LastBarDefined(t *testing.T) {
	series := &model.Series{Bars: makeBars(wavyCloses(120), 1000)}
	for i := range series.Bars {
		series.Bars[i].Volume = 1000 + float64(i%7)*50
	}
	frame := Compute(series)
	require.Equal(t, 120, frame.Len())

	last := frame.Last()
	for name, v := range map[string]float64{
		"rsi": last.RSI, "cci": last.CCI, "macd": last.MACD, "signal": last.MACDSignal,
		"volume_ma": last.VolumeMA, "vwma": last.VWMA,
	} {
		assert.True(t, model.Available(v), "%s should be defined on the last bar", name)
	}
	assert.True(t, math.IsNaN(frame.VWMA[98]))
}
