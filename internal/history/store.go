// Package history keeps a PostgreSQL record of every scan the service runs.
// Only run metadata is stored; match locations are never persisted.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/textmatcher/internal/scanner"
	apperrors "github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/resilience"
)

const schema = `
CREATE TABLE IF NOT EXISTS scan_runs (
    id            BIGSERIAL PRIMARY KEY,
    source        TEXT        NOT NULL,
    terms         TEXT[]      NOT NULL,
    lines         INTEGER     NOT NULL DEFAULT 0,
    batches       INTEGER     NOT NULL DEFAULT 0,
    total_matches INTEGER     NOT NULL DEFAULT 0,
    status        TEXT        NOT NULL,
    error_kind    TEXT        NOT NULL DEFAULT '',
    duration_ms   BIGINT      NOT NULL,
    started_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS scan_runs_started_at_idx ON scan_runs (started_at DESC);`

const maxRecent = 500

// Run is one row of scan_runs.
type Run struct {
	ID           int64     `json:"id"`
	Source       string    `json:"source"`
	Terms        []string  `json:"terms"`
	Lines        int       `json:"lines"`
	Batches      int       `json:"batches"`
	TotalMatches int       `json:"total_matches"`
	Status       string    `json:"status"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	DurationMs   int64     `json:"duration_ms"`
	StartedAt    time.Time `json:"started_at"`
}

// NewRun describes a scan of source that started at startedAt and returned
// res or err.
func NewRun(source string, terms []string, res *scanner.Result, err error, startedAt time.Time) Run {
	run := Run{
		Source:     source,
		Terms:      terms,
		Status:     "ok",
		DurationMs: time.Since(startedAt).Milliseconds(),
		StartedAt:  startedAt.UTC(),
	}
	if err != nil {
		run.Status = "failed"
		run.ErrorKind = apperrors.Kind(err)
		return run
	}
	run.Terms = res.Terms
	run.Lines = res.Stats.Lines
	run.Batches = res.Stats.Batches
	run.TotalMatches = res.Stats.Matches
	return run
}

// Store persists scan runs in PostgreSQL.
type Store struct {
	db     *postgres.Client
	retry  resilience.RetryConfig
	logger *slog.Logger
}

// NewStore creates a Store on db.
func NewStore(db *postgres.Client) *Store {
	return &Store{
		db: db,
		retry: resilience.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     time.Second,
		},
		logger: slog.Default().With("component", "scan-history"),
	}
}

// EnsureSchema creates the scan_runs table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating scan_runs schema: %w", err)
	}
	return nil
}

// Record inserts run, retrying transient failures, and returns its id.
func (s *Store) Record(ctx context.Context, run Run) (int64, error) {
	var id int64
	err := resilience.Retry(ctx, "history.record", s.retry, func(ctx context.Context) error {
		return s.db.DB.QueryRowContext(ctx,
			`INSERT INTO scan_runs
			     (source, terms, lines, batches, total_matches, status, error_kind, duration_ms, started_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 RETURNING id`,
			run.Source, pq.Array(run.Terms), run.Lines, run.Batches, run.TotalMatches,
			run.Status, run.ErrorKind, run.DurationMs, run.StartedAt,
		).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("recording scan run for %s: %w", run.Source, err)
	}
	s.logger.Debug("scan run recorded", "id", id, "source", run.Source, "status", run.Status)
	return id, nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	limit = ClampLimit(limit)
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT id, source, terms, lines, batches, total_matches, status, error_kind, duration_ms, started_at
		 FROM scan_runs ORDER BY started_at DESC, id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing scan runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0, limit)
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Source, pq.Array(&r.Terms), &r.Lines, &r.Batches,
			&r.TotalMatches, &r.Status, &r.ErrorKind, &r.DurationMs, &r.StartedAt); err != nil {
			return nil, fmt.Errorf("scanning scan_runs row: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ClampLimit bounds a requested page size to [1, 500], defaulting to 20.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 20
	case limit > maxRecent:
		return maxRecent
	default:
		return limit
	}
}
