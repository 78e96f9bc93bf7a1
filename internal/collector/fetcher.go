package collector

import (
	"context"

	"ChannelScout/internal/model"
)

// Fetcher is a market data provider for linear perpetual contracts.
type Fetcher interface {
	// ListInstruments returns tradable contracts quoted in quote with the given contract type.
	ListInstruments(ctx context.Context, quote, contractType string) ([]model.Instrument, error)
	// GetVolumes returns 24h quote volume per exchange symbol.
	GetVolumes(ctx context.Context, symbols []string) (map[string]float64, error)
	// GetCandles returns up to limit time-ascending bars.
	GetCandles(ctx context.Context, symbol, timeframe string, limit int) ([]model.OHLCV, error)
	Name() string
}
