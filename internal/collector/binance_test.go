package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBinanceServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/fapi/v1/exchangeInfo", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbols":[
			{"symbol":"BTCUSDT","status":"TRADING","contractType":"PERPETUAL","baseAsset":"BTC","quoteAsset":"USDT"},
			{"symbol":"ETHUSDT","status":"TRADING","contractType":"PERPETUAL","baseAsset":"ETH","quoteAsset":"USDT"},
			{"symbol":"BTCUSDT_250627","status":"TRADING","contractType":"CURRENT_QUARTER","baseAsset":"BTC","quoteAsset":"USDT"},
			{"symbol":"OLDUSDT","status":"SETTLING","contractType":"PERPETUAL","baseAsset":"OLD","quoteAsset":"USDT"},
			{"symbol":"BTCUSDC","status":"TRADING","contractType":"PERPETUAL","baseAsset":"BTC","quoteAsset":"USDC"}
		]}`))
	})
	mux.HandleFunc("/fapi/v1/ticker/24hr", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"symbol":"BTCUSDT","quoteVolume":"9876543.21"},
			{"symbol":"ETHUSDT","quoteVolume":"1234.5"},
			{"symbol":"DOGEUSDT","quoteVolume":"1"}
		]`))
	})
	mux.HandleFunc("/fapi/v1/klines", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "BTCUSDT", q.Get("symbol"))
		assert.Equal(t, "4h", q.Get("interval"))
		assert.Equal(t, "120", q.Get("limit"))
		w.Write([]byte(`[
			[1700000000000,"100","102","99","101","10",1700014399999,"1010",5,"4","404","0"],
			[1700014400000,"101","103","100","102","20",1700028799999,"2040",8,"9","918","0"]
		]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestBinanceFetcher(t *testing.T) {
	srv := newBinanceServer(t)
	f := NewBinanceFetcher("", "", srv.URL, "", 5*time.Second)
	ctx := context.Background()

	instruments, err := f.ListInstruments(ctx, "USDT", "perpetual")
	require.NoError(t, err)
	require.Len(t, instruments, 2)
	assert.Equal(t, "BTC", instruments[0].ID)
	assert.Equal(t, "BTCUSDT", instruments[0].Symbol)

	vols, err := f.GetVolumes(ctx, []string{"BTCUSDT", "ETHUSDT"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"BTCUSDT": 9876543.21, "ETHUSDT": 1234.5}, vols)

	bars, err := f.GetCandles(ctx, "BTCUSDT", "4h", 120)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, time.UnixMilli(1700000000000), bars[0].Time)
	assert.Equal(t, 102.0, bars[1].Close)
	assert.Equal(t, 20.0, bars[1].Volume)
}
