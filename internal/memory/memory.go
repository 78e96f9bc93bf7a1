package memory

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"ChannelScout/internal/model"
)

// Memory holds the two generations used during one run: previous (read-only,
// loaded at start) and current (built from this run's matches).
type Memory struct {
	mu       sync.Mutex
	previous Snapshot
	current  Snapshot
	found    bool
}

// New starts a run on top of previous.
func New(previous Snapshot) *Memory {
	if previous == nil {
		previous = Snapshot{}
	}
	return &Memory{previous: previous, current: Snapshot{}}
}

// Load reads the previous generation from store. Read or decode failures are
// logged and treated as empty memory.
func Load(ctx context.Context, store Store, log zerolog.Logger) *Memory {
	prev, err := store.Load(ctx)
	if err != nil {
		log.Warn().Err(err).Str("store", store.Name()).Msg("memory unreadable, starting empty")
		prev = Snapshot{}
	}
	return New(prev)
}

// IsDuplicate reports whether id was alerted under (timeframe, category) by the previous run.
func (m *Memory) IsDuplicate(timeframe string, category model.Category, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.previous.Contains(timeframe, category, id)
}

// Record adds a match to the current generation.
func (m *Memory) Record(timeframe string, category model.Category, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.Add(timeframe, category, id)
	m.found = true
}

// Found reports whether anything was recorded this run.
func (m *Memory) Found() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.found
}

// Previous returns the generation loaded at start.
func (m *Memory) Previous() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.previous
}

// Next is what gets persisted: the current generation if anything was found,
// otherwise an empty snapshot so a quiet run resets memory.
func (m *Memory) Next() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.found {
		return Snapshot{}
	}
	return m.current
}

// Persist overwrites store with Next.
func (m *Memory) Persist(ctx context.Context, store Store) error {
	return store.Save(ctx, m.Next())
}
