package model

import "time"

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Instrument is one tradable contract in the scan universe.
// ID is the base coin used in reports and memory; Symbol is the exchange ticker.
type Instrument struct {
	ID          string
	Symbol      string
	Quote       string
	QuoteVolume float64
}

// Series holds time-ascending bars for one (instrument, timeframe) pair.
type Series struct {
	Instrument Instrument
	Timeframe  string
	Bars       []OHLCV
	FetchedAt  time.Time
}

// Len returns the number of bars.
func (s *Series) Len() int { return len(s.Bars) }

// Closes extracts close prices in order.
func (s *Series) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// Volumes extracts volumes in order.
func (s *Series) Volumes() []float64 {
	vols := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		vols[i] = b.Volume
	}
	return vols
}
