package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/samber/lo"

	"ChannelScout/internal/model"
)

// BinanceFetcher implements Fetcher using Binance USDT-M futures.
type BinanceFetcher struct {
	cli *futures.Client
}

// NewBinanceFetcher creates a futures client. Market data endpoints need no
// keys; baseURL overrides the production endpoint when set.
func NewBinanceFetcher(apiKey, apiSecret, baseURL, proxyURL string, timeout time.Duration) *BinanceFetcher {
	cli := futures.NewClient(apiKey, apiSecret)
	if baseURL != "" {
		cli.BaseURL = strings.TrimRight(baseURL, "/")
	}
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	cli.HTTPClient = &http.Client{Timeout: timeout, Transport: transport}
	return &BinanceFetcher{cli: cli}
}

func (f *BinanceFetcher) Name() string { return "binance" }

func (f *BinanceFetcher) ListInstruments(ctx context.Context, quote, contractType string) ([]model.Instrument, error) {
	info, err := f.cli.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("exchange info: %w", err)
	}
	symbols := lo.Filter(info.Symbols, func(s futures.Symbol, _ int) bool {
		return strings.EqualFold(s.QuoteAsset, quote) &&
			strings.EqualFold(string(s.ContractType), contractType) &&
			s.Status == "TRADING"
	})
	return lo.Map(symbols, func(s futures.Symbol, _ int) model.Instrument {
		return model.Instrument{ID: s.BaseAsset, Symbol: s.Symbol, Quote: s.QuoteAsset}
	}), nil
}

func (f *BinanceFetcher) GetVolumes(ctx context.Context, symbols []string) (map[string]float64, error) {
	stats, err := f.cli.NewListPriceChangeStatsService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("24h stats: %w", err)
	}
	wanted := lo.SliceToMap(symbols, func(s string) (string, struct{}) { return s, struct{}{} })

	out := make(map[string]float64, len(symbols))
	for _, st := range stats {
		if _, ok := wanted[st.Symbol]; !ok {
			continue
		}
		vol, err := parseNumber(st.QuoteVolume)
		if err != nil {
			vol = 0
		}
		out[st.Symbol] = vol
	}
	return out, nil
}

func (f *BinanceFetcher) GetCandles(ctx context.Context, symbol, timeframe string, limit int) ([]model.OHLCV, error) {
	klines, err := f.cli.NewKlinesService().
		Symbol(symbol).
		Interval(timeframe).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch klines %s %s: %w", symbol, timeframe, err)
	}
	return convertKlines(klines)
}

func convertKlines(klines []*futures.Kline) ([]model.OHLCV, error) {
	bars := make([]model.OHLCV, len(klines))
	for i, k := range klines {
		vals := make([]float64, 5)
		for j, s := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
			v, err := parseNumber(s)
			if err != nil {
				return nil, fmt.Errorf("kline %d: %w", k.OpenTime, err)
			}
			vals[j] = v
		}
		bars[i] = model.OHLCV{
			Time:   time.UnixMilli(k.OpenTime),
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: vals[4],
		}
	}
	return bars, nil
}
