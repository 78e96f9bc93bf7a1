package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pair outcomes.
const (
	PairScanned      = "scanned"
	PairInsufficient = "insufficient_history"
	PairFetchError   = "fetch_error"
)

// Recorder counts scanner activity in Prometheus.
type Recorder struct {
	runs          *prometheus.CounterVec
	pairs         *prometheus.CounterVec
	matches       *prometheus.CounterVec
	notifications *prometheus.CounterVec
	duration      prometheus.Histogram
}

// New registers the scanner metrics on reg. Pass prometheus.DefaultRegisterer
// to expose them on the default /metrics handler.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		runs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "channelscout_runs_total",
				Help: "Scan runs by final state",
			},
			[]string{"state"},
		),
		pairs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "channelscout_pairs_total",
				Help: "Instrument/timeframe pairs processed by outcome",
			},
			[]string{"result"},
		),
		matches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "channelscout_matches_total",
				Help: "Setup matches found",
			},
			[]string{"timeframe", "category", "duplicate"},
		),
		notifications: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "channelscout_notifications_total",
				Help: "Report messages delivered or dropped",
			},
			[]string{"result"},
		),
		duration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "channelscout_run_duration_seconds",
				Help:    "Wall time of a full scan run",
				Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
			},
		),
	}
}

// Nop returns a Recorder backed by a throwaway registry.
func Nop() *Recorder { return New(prometheus.NewRegistry()) }

func (r *Recorder) RecordRun(state string, seconds float64) {
	r.runs.WithLabelValues(state).Inc()
	r.duration.Observe(seconds)
}

func (r *Recorder) RecordPair(result string) {
	r.pairs.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordMatch(timeframe, category string, duplicate bool) {
	dup := "false"
	if duplicate {
		dup = "true"
	}
	r.matches.WithLabelValues(timeframe, category, dup).Inc()
}

func (r *Recorder) RecordNotification(ok bool) {
	result := "sent"
	if !ok {
		result = "failed"
	}
	r.notifications.WithLabelValues(result).Inc()
}
