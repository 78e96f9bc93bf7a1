package collector

import (
	"context"
	"fmt"
	"time"

	"ChannelScout/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Instruments []model.Instrument
	Volumes     map[string]float64
	// Candles is keyed by CandleKey(symbol, timeframe).
	Candles     map[string][]model.OHLCV
	CandleErrs  map[string]error
	UniverseErr error
	Calls       int
}

// CandleKey builds the MockFetcher.Candles key.
func CandleKey(symbol, timeframe string) string { return symbol + "|" + timeframe }

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) ListInstruments(_ context.Context, _, _ string) ([]model.Instrument, error) {
	m.Calls++
	if m.UniverseErr != nil {
		return nil, m.UniverseErr
	}
	return m.Instruments, nil
}

func (m *MockFetcher) GetVolumes(_ context.Context, symbols []string) (map[string]float64, error) {
	m.Calls++
	out := make(map[string]float64, len(symbols))
	for _, s := range symbols {
		out[s] = m.Volumes[s]
	}
	return out, nil
}

func (m *MockFetcher) GetCandles(_ context.Context, symbol, timeframe string, limit int) ([]model.OHLCV, error) {
	m.Calls++
	key := CandleKey(symbol, timeframe)
	if err := m.CandleErrs[key]; err != nil {
		return nil, err
	}
	bars, ok := m.Candles[key]
	if !ok {
		return nil, fmt.Errorf("no candles for %s", key)
	}
	if len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return bars, nil
}

// GenerateBars builds count hourly bars from a close-price function with constant volume.
func GenerateBars(count int, volume float64, closeAt func(i int) float64) []model.OHLCV {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		c := closeAt(i)
		bars[i] = model.OHLCV{
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: volume,
		}
	}
	return bars
}
