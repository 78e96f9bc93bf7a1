package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ChannelScout/internal/calculator"
	"ChannelScout/internal/collector"
	"ChannelScout/internal/memory"
	"ChannelScout/internal/metrics"
	"ChannelScout/internal/model"
	"ChannelScout/internal/notifier"
	"ChannelScout/internal/recorder"
	"ChannelScout/internal/strategy"
)

var (
	// ErrUniverseLoad wraps any failure to build the instrument universe. It is
	// the only error that aborts a run before scanning.
	ErrUniverseLoad = errors.New("universe load failed")
	// ErrRunInProgress is returned when Run is called while another run is active.
	ErrRunInProgress = errors.New("scan already running")
)

// State is a step of the run state machine.
type State string

const (
	StateInit           State = "INIT"
	StateUniverseLoaded State = "UNIVERSE_LOADED"
	StateScanning       State = "SCANNING"
	StateReporting      State = "REPORTING"
	StatePersisted      State = "PERSISTED"
	StateDone           State = "DONE"
	StateFailed         State = "FAILED"
)

// Sink delivers rendered report messages.
type Sink interface {
	Send(ctx context.Context, text string) error
	Name() string
}

// Options is the scan policy.
type Options struct {
	Timeframes    []string
	Strategy      strategy.Policy
	Band          calculator.Band
	Report        notifier.ReportOptions
	MaxMessageLen int
}

// RunSummary describes one run. It is returned by Run and kept as Last.
type RunSummary struct {
	RunID      string
	State      State
	StartedAt  time.Time
	FinishedAt time.Time
	Universe   int
	Scanned    int
	Skipped    int
	Report     *model.Report
	Notified   bool
	Err        error
}

// Status converts the summary for the chat status reply.
func (s *RunSummary) Status() *notifier.RunStatus {
	if s == nil {
		return nil
	}
	st := &notifier.RunStatus{
		RunID:     s.RunID,
		State:     string(s.State),
		StartedAt: s.StartedAt,
		Duration:  s.FinishedAt.Sub(s.StartedAt),
		Universe:  s.Universe,
		Scanned:   s.Scanned,
		Skipped:   s.Skipped,
		Notified:  s.Notified,
		Report:    s.Report,
	}
	if s.Err != nil {
		st.Err = s.Err.Error()
	}
	return st
}

// Scanner runs the universe x timeframe scan and drives memory rollover.
type Scanner struct {
	collector *collector.Collector
	store     memory.Store
	sink      Sink
	rec       recorder.Recorder
	metrics   *metrics.Recorder
	opts      Options
	log       zerolog.Logger
	now       func() time.Time

	running sync.Mutex

	lastMu sync.RWMutex
	last   *RunSummary
}

// New creates a Scanner. rec and met may be nil.
func New(col *collector.Collector, store memory.Store, sink Sink, rec recorder.Recorder,
	met *metrics.Recorder, opts Options, log zerolog.Logger) *Scanner {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if met == nil {
		met = metrics.Nop()
	}
	if opts.MaxMessageLen <= 0 {
		opts.MaxMessageLen = 4000
	}
	if opts.Report.Timeframes == nil {
		opts.Report.Timeframes = opts.Timeframes
	}
	return &Scanner{
		collector: col,
		store:     store,
		sink:      sink,
		rec:       rec,
		metrics:   met,
		opts:      opts,
		log:       log.With().Str("component", "scanner").Logger(),
		now:       time.Now,
	}
}

// Last returns the most recent finished run, or nil.
func (s *Scanner) Last() *RunSummary {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	return s.last
}

// Memory reads the persisted memory as the next run will see it.
func (s *Scanner) Memory(ctx context.Context) (memory.Snapshot, error) {
	return s.store.Load(ctx)
}

// Timeframes returns the configured timeframes in report order.
func (s *Scanner) Timeframes() []string { return s.opts.Timeframes }

// Run performs one full scan. Only a universe failure, a cancelled context
// or a panic fails the run; in those cases memory is left untouched and
// nothing is sent. Runs never overlap.
func (s *Scanner) Run(ctx context.Context) (*RunSummary, error) {
	if !s.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.running.Unlock()

	sum := &RunSummary{
		RunID:     uuid.NewString(),
		State:     StateInit,
		StartedAt: s.now(),
	}
	log := s.log.With().Str("run_id", sum.RunID).Logger()
	log.Info().Strs("timeframes", s.opts.Timeframes).Msg("scan started")
	defer s.finish(ctx, sum, log)

	universe, err := s.collector.LoadUniverse(ctx)
	if err != nil {
		sum.Err = fmt.Errorf("%w: %w", ErrUniverseLoad, err)
		sum.State = StateFailed
		return sum, sum.Err
	}
	sum.Universe = len(universe)
	sum.State = StateUniverseLoaded

	mem := memory.Load(ctx, s.store, log)
	log.Debug().Int("entries", mem.Previous().Count()).Msg("previous memory loaded")

	if err := s.scanAndReport(ctx, sum, universe, mem, log); err != nil {
		sum.Err = err
		sum.State = StateFailed
		return sum, err
	}

	if err := mem.Persist(ctx, s.store); err != nil {
		sum.Err = fmt.Errorf("persist memory: %w", err)
		sum.State = StateFailed
		return sum, sum.Err
	}
	sum.State = StatePersisted
	log.Debug().Int("entries", mem.Next().Count()).Str("store", s.store.Name()).Msg("memory persisted")

	sum.State = StateDone
	return sum, nil
}

// scanAndReport covers SCANNING and REPORTING. A panic in either is turned
// into an error so the caller can fail the run without persisting.
func (s *Scanner) scanAndReport(ctx context.Context, sum *RunSummary, universe []model.Instrument,
	mem *memory.Memory, log zerolog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during %s: %v", sum.State, r)
		}
	}()

	sum.State = StateScanning
	matches, err := s.scan(ctx, sum, universe, mem, log)
	if err != nil {
		return err
	}

	sum.State = StateReporting
	sum.Report = &model.Report{
		RunID:     sum.RunID,
		CreatedAt: s.now(),
		Matches:   matches,
	}
	if len(matches) == 0 {
		log.Info().Msg("no setups found, nothing to send")
		return nil
	}
	sum.Notified = s.notify(ctx, sum.Report, log)
	if err := s.rec.RecordMatches(ctx, sum.RunID, matches); err != nil {
		log.Warn().Err(err).Msg("record matches")
	}
	return nil
}

func (s *Scanner) scan(ctx context.Context, sum *RunSummary, universe []model.Instrument,
	mem *memory.Memory, log zerolog.Logger) ([]model.Match, error) {
	var matches []model.Match
	for _, inst := range universe {
		for _, tf := range s.opts.Timeframes {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			series, err := s.collector.FetchSeries(ctx, inst, tf)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				sum.Skipped++
				if errors.Is(err, collector.ErrInsufficientHistory) {
					s.metrics.RecordPair(metrics.PairInsufficient)
					log.Debug().Err(err).Str("instrument", inst.ID).Str("timeframe", tf).Msg("pair skipped")
				} else {
					s.metrics.RecordPair(metrics.PairFetchError)
					log.Warn().Err(err).Str("instrument", inst.ID).Str("timeframe", tf).Msg("pair skipped")
				}
				continue
			}

			frame := calculator.Compute(series)
			fit := calculator.FitChannel(series.Bars, s.opts.Band)
			ev := strategy.EvaluateFrame(frame, fit, s.opts.Strategy)

			for _, m := range ev.Matches(inst.ID, tf) {
				m.IsDuplicate = mem.IsDuplicate(tf, m.Category, m.InstrumentID)
				mem.Record(tf, m.Category, m.InstrumentID)
				s.metrics.RecordMatch(tf, string(m.Category), m.IsDuplicate)
				log.Debug().Str("instrument", m.InstrumentID).Str("timeframe", tf).
					Str("category", string(m.Category)).Float64("value", m.Value).
					Bool("duplicate", m.IsDuplicate).Msg("setup matched")
				matches = append(matches, m)
			}
			sum.Scanned++
			s.metrics.RecordPair(metrics.PairScanned)
		}
	}
	return matches, nil
}

// notify sends the rendered report. Delivery failures are logged and counted
// but never fail the run. It reports whether every chunk was delivered.
func (s *Scanner) notify(ctx context.Context, report *model.Report, log zerolog.Logger) bool {
	text := notifier.FormatReport(report, s.opts.Report)
	chunks := notifier.SplitMessage(text, s.opts.MaxMessageLen)
	ok := true
	for i, chunk := range chunks {
		if err := s.sink.Send(ctx, chunk); err != nil {
			ok = false
			s.metrics.RecordNotification(false)
			log.Warn().Err(err).Str("sink", s.sink.Name()).Int("chunk", i+1).Int("chunks", len(chunks)).Msg("notification failed")
			continue
		}
		s.metrics.RecordNotification(true)
	}
	return ok
}

func (s *Scanner) finish(ctx context.Context, sum *RunSummary, log zerolog.Logger) {
	sum.FinishedAt = s.now()
	elapsed := sum.FinishedAt.Sub(sum.StartedAt)
	s.metrics.RecordRun(string(sum.State), elapsed.Seconds())

	matchCount := 0
	if sum.Report != nil {
		matchCount = len(sum.Report.Matches)
	}
	rec := &recorder.RunRecord{
		RunID:        sum.RunID,
		StartedAt:    sum.StartedAt,
		FinishedAt:   sum.FinishedAt,
		State:        string(sum.State),
		Universe:     sum.Universe,
		PairsScanned: sum.Scanned,
		PairsSkipped: sum.Skipped,
		Matches:      matchCount,
		Notified:     sum.Notified,
	}
	if sum.Err != nil {
		rec.Error = sum.Err.Error()
	}
	// history is written even when ctx was cancelled
	if err := s.rec.RecordRun(context.WithoutCancel(ctx), rec); err != nil {
		log.Warn().Err(err).Msg("record run")
	}

	s.lastMu.Lock()
	s.last = sum
	s.lastMu.Unlock()

	event := log.Info()
	if sum.State == StateFailed {
		event = log.Error().Err(sum.Err)
	}
	event.Str("state", string(sum.State)).
		Int("universe", sum.Universe).
		Int("scanned", sum.Scanned).
		Int("skipped", sum.Skipped).
		Int("matches", matchCount).
		Bool("notified", sum.Notified).
		Dur("elapsed", elapsed).
		Msg("scan finished")
}
