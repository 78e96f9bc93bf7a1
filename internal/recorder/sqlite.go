package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"ChannelScout/internal/model"
)

// SQLiteRecorder persists run and alert history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log.With().Str("component", "recorder").Logger()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scan_runs (
			run_id        TEXT PRIMARY KEY,
			started_at    INTEGER NOT NULL,
			finished_at   INTEGER NOT NULL,
			state         TEXT NOT NULL,
			universe      INTEGER,
			pairs_scanned INTEGER,
			pairs_skipped INTEGER,
			matches       INTEGER,
			notified      INTEGER,
			error         TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON scan_runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS scan_matches (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id        TEXT NOT NULL,
			instrument_id TEXT NOT NULL,
			timeframe     TEXT NOT NULL,
			category      TEXT NOT NULL,
			value         REAL,
			reasons       TEXT,
			is_duplicate  INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_run ON scan_matches(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_instrument ON scan_matches(instrument_id, timeframe)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(ctx context.Context, run *RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO scan_runs
		(run_id, started_at, finished_at, state, universe, pairs_scanned, pairs_skipped, matches, notified, error)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		run.RunID, run.StartedAt.Unix(), run.FinishedAt.Unix(), run.State,
		run.Universe, run.PairsScanned, run.PairsSkipped, run.Matches,
		boolInt(run.Notified), run.Error,
	)
	return err
}

// RecordMatches stores all matches of a run in one transaction.
func (r *SQLiteRecorder) RecordMatches(ctx context.Context, runID string, matches []model.Match) error {
	if len(matches) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO scan_matches
		(run_id, instrument_id, timeframe, category, value, reasons, is_duplicate)
		VALUES (?,?,?,?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, m := range matches {
		if _, err := stmt.ExecContext(ctx, runID, m.InstrumentID, m.Timeframe, string(m.Category),
			m.Value, strings.Join(m.Reasons, "; "), boolInt(m.IsDuplicate)); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert match %s %s: %w", m.InstrumentID, m.Timeframe, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
