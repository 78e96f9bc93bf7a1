package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/time/rate"

	"ChannelScout/internal/model"
)

// ErrInsufficientHistory means the provider returned fewer bars than analysis needs.
var ErrInsufficientHistory = errors.New("insufficient history")

// Options configures universe selection and candle retrieval.
type Options struct {
	QuoteCurrency  string
	ContractType   string
	UniverseSize   int
	CandleLimit    int
	MinBars        int
	RequestDelay   time.Duration
	RequestTimeout time.Duration
}

// Collector selects the scan universe and fetches candle series, one
// provider call at a time with a minimum spacing between calls.
type Collector struct {
	Fetcher Fetcher
	opts    Options
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, opts Options, log zerolog.Logger) *Collector {
	limit := rate.Inf
	if opts.RequestDelay > 0 {
		limit = rate.Every(opts.RequestDelay)
	}
	return &Collector{
		Fetcher: fetcher,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		log:     log.With().Str("component", "collector").Str("source", fetcher.Name()).Logger(),
	}
}

// LoadUniverse lists contracts, ranks them by quote volume descending and
// keeps the top UniverseSize.
func (c *Collector) LoadUniverse(ctx context.Context) ([]model.Instrument, error) {
	var instruments []model.Instrument
	err := c.call(ctx, func(ctx context.Context) error {
		var err error
		instruments, err = c.Fetcher.ListInstruments(ctx, c.opts.QuoteCurrency, c.opts.ContractType)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list instruments: %w", err)
	}
	if len(instruments) == 0 {
		return nil, fmt.Errorf("no %s %s instruments listed", c.opts.QuoteCurrency, c.opts.ContractType)
	}

	symbols := lo.Map(instruments, func(in model.Instrument, _ int) string { return in.Symbol })
	var volumes map[string]float64
	err = c.call(ctx, func(ctx context.Context) error {
		var err error
		volumes, err = c.Fetcher.GetVolumes(ctx, symbols)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get volumes: %w", err)
	}

	ranked := lo.Map(instruments, func(in model.Instrument, _ int) model.Instrument {
		in.QuoteVolume = volumes[in.Symbol]
		return in
	})
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].QuoteVolume > ranked[j].QuoteVolume })
	if c.opts.UniverseSize > 0 && len(ranked) > c.opts.UniverseSize {
		ranked = ranked[:c.opts.UniverseSize]
	}

	c.log.Info().Int("listed", len(instruments)).Int("selected", len(ranked)).Msg("universe loaded")
	return ranked, nil
}

// FetchSeries fetches the recent candle window for one pair. Fewer than
// MinBars bars yields ErrInsufficientHistory.
func (c *Collector) FetchSeries(ctx context.Context, inst model.Instrument, timeframe string) (*model.Series, error) {
	var bars []model.OHLCV
	err := c.call(ctx, func(ctx context.Context) error {
		var err error
		bars, err = c.Fetcher.GetCandles(ctx, inst.Symbol, timeframe, c.opts.CandleLimit)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(bars) < c.opts.MinBars {
		return nil, fmt.Errorf("%s %s: %d bars: %w", inst.ID, timeframe, len(bars), ErrInsufficientHistory)
	}
	return &model.Series{
		Instrument: inst,
		Timeframe:  timeframe,
		Bars:       bars,
		FetchedAt:  time.Now(),
	}, nil
}

// call waits for the throttle, then runs fn under the per-call timeout.
func (c *Collector) call(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if c.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.RequestTimeout)
		defer cancel()
	}
	return fn(ctx)
}
