package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"ChannelScout/internal/model"
)

const bitgetDefaultBaseURL = "https://api.bitget.com"

// bitgetGranularity maps scanner timeframes to Bitget candle granularities.
var bitgetGranularity = map[string]string{
	"1m": "1m", "5m": "5m", "15m": "15m", "30m": "30m",
	"1h": "1H", "4h": "4H", "6h": "6H", "12h": "12H",
	"1d": "1D", "1w": "1W",
}

// BitgetFetcher implements Fetcher using the Bitget v2 mix (futures) REST API.
type BitgetFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewBitgetFetcher creates a new fetcher with optional proxy support.
func NewBitgetFetcher(baseURL, proxyURL string, timeout time.Duration) *BitgetFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if baseURL == "" {
		baseURL = bitgetDefaultBaseURL
	}
	return &BitgetFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

func (f *BitgetFetcher) Name() string { return "bitget" }

func productType(quote string) string {
	return strings.ToUpper(quote) + "-FUTURES"
}

func (f *BitgetFetcher) ListInstruments(ctx context.Context, quote, contractType string) ([]model.Instrument, error) {
	q := url.Values{"productType": {productType(quote)}}
	data, err := f.get(ctx, "/api/v2/mix/market/contracts", q)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}

	var out []model.Instrument
	data.ForEach(func(_, c gjson.Result) bool {
		if !strings.EqualFold(c.Get("quoteCoin").String(), quote) ||
			!strings.EqualFold(c.Get("symbolType").String(), contractType) ||
			c.Get("symbolStatus").String() != "normal" {
			return true
		}
		out = append(out, model.Instrument{
			ID:     c.Get("baseCoin").String(),
			Symbol: c.Get("symbol").String(),
			Quote:  c.Get("quoteCoin").String(),
		})
		return true
	})
	return out, nil
}

// GetVolumes reads all tickers of the product line in one call and keeps the requested symbols.
func (f *BitgetFetcher) GetVolumes(ctx context.Context, symbols []string) (map[string]float64, error) {
	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}
	wanted := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		wanted[s] = true
	}

	q := url.Values{"productType": {productTypeOf(symbols[0])}}
	data, err := f.get(ctx, "/api/v2/mix/market/tickers", q)
	if err != nil {
		return nil, fmt.Errorf("list tickers: %w", err)
	}

	out := make(map[string]float64, len(symbols))
	data.ForEach(func(_, t gjson.Result) bool {
		sym := t.Get("symbol").String()
		if !wanted[sym] {
			return true
		}
		// missing volume ranks as zero
		vol, err := parseNumber(t.Get("quoteVolume").String())
		if err != nil {
			vol = 0
		}
		out[sym] = vol
		return true
	})
	return out, nil
}

func (f *BitgetFetcher) GetCandles(ctx context.Context, symbol, timeframe string, limit int) ([]model.OHLCV, error) {
	gran, ok := bitgetGranularity[timeframe]
	if !ok {
		return nil, fmt.Errorf("unsupported timeframe %q", timeframe)
	}
	q := url.Values{
		"symbol":      {symbol},
		"productType": {productTypeOf(symbol)},
		"granularity": {gran},
		"limit":       {strconv.Itoa(limit)},
	}
	data, err := f.get(ctx, "/api/v2/mix/market/candles", q)
	if err != nil {
		return nil, fmt.Errorf("fetch candles %s %s: %w", symbol, timeframe, err)
	}

	rows := data.Array()
	bars := make([]model.OHLCV, 0, len(rows))
	for _, row := range rows {
		cols := row.Array()
		if len(cols) < 6 {
			return nil, fmt.Errorf("candle row has %d columns", len(cols))
		}
		vals := make([]float64, 5)
		for i := range vals {
			v, err := parseNumber(cols[i+1].String())
			if err != nil {
				return nil, fmt.Errorf("candle column %d: %w", i+1, err)
			}
			vals[i] = v
		}
		bars = append(bars, model.OHLCV{
			Time:   time.UnixMilli(cols[0].Int()),
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: vals[4],
		})
	}
	// Ensure chronological order
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// get performs a GET and returns the "data" member of the {code, msg, data} envelope.
func (f *BitgetFetcher) get(ctx context.Context, path string, q url.Values) (gjson.Result, error) {
	endpoint := f.BaseURL + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return gjson.Result{}, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return gjson.Result{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, fmt.Errorf("status %d, body: %s", resp.StatusCode, string(body))
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("invalid json response")
	}
	if code := gjson.GetBytes(body, "code").String(); code != "00000" {
		return gjson.Result{}, fmt.Errorf("bitget error %s: %s", code, gjson.GetBytes(body, "msg").String())
	}
	return gjson.GetBytes(body, "data"), nil
}

// productTypeOf derives the product line from a symbol such as BTCUSDT.
func productTypeOf(symbol string) string {
	for _, quote := range []string{"USDT", "USDC"} {
		if strings.HasSuffix(symbol, quote) {
			return productType(quote)
		}
	}
	return "COIN-FUTURES"
}

func parseNumber(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}
