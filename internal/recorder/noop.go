package recorder

import (
	"context"

	"ChannelScout/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(context.Context, *RunRecord) error                { return nil }
func (n *NoopRecorder) RecordMatches(context.Context, string, []model.Match) error { return nil }
func (n *NoopRecorder) Close() error                                               { return nil }
