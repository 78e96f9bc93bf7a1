package recorder

import (
	"context"
	"time"

	"ChannelScout/internal/model"
)

// RunRecord summarizes one scan run.
type RunRecord struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   time.Time
	State        string // DONE or FAILED
	Universe     int
	PairsScanned int
	PairsSkipped int
	Matches      int
	Notified     bool
	Error        string
}

// Recorder persists run and alert history for later analysis.
type Recorder interface {
	RecordRun(ctx context.Context, run *RunRecord) error
	RecordMatches(ctx context.Context, runID string, matches []model.Match) error
	Close() error
}
