// Package resultstore persists session summaries so experiment runs
// can be listed and compared later. It never feeds back into decisions.
package resultstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/velvetrope/doorman/game"
)

// ErrNoRuns is returned by Best when no qualifying run exists.
var ErrNoRuns = errors.New("no qualifying runs")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	scenario    INTEGER NOT NULL,
	strategy    TEXT NOT NULL,
	status      TEXT NOT NULL,
	admitted    INTEGER NOT NULL,
	rejected    INTEGER NOT NULL,
	satisfied   INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	quotas      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_scenario_idx ON runs (scenario, satisfied, rejected);
`

// Store is a sqlite-backed archive of session results.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed initializes) the store at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening result store: %w", err)
	}

	// Single writer; sqlite locks the file per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing result store: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save records one finished session.
func (s *Store) Save(ctx context.Context, id string, sum *game.Summary, duration time.Duration) error {
	quotas, err := json.Marshal(sum.Quotas)
	if err != nil {
		return fmt.Errorf("encoding quota results: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, scenario, strategy, status, admitted, rejected, satisfied, duration_ms, quotas)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, sum.Scenario, sum.Strategy, sum.Status,
		sum.Admitted, sum.Rejected, sum.AllSatisfied,
		duration.Milliseconds(), string(quotas),
	)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", id, err)
	}
	return nil
}

// Run is one archived session result.
type Run struct {
	ID        string
	CreatedAt time.Time
	Scenario  int
	Strategy  string
	Status    string
	Admitted  int
	Rejected  int
	Satisfied bool
	Duration  time.Duration
	Quotas    []game.QuotaResult
}

func scanRun(rows *sql.Rows) (Run, error) {
	var (
		r          Run
		durationMs int64
		quotas     string
	)
	err := rows.Scan(&r.ID, &r.CreatedAt, &r.Scenario, &r.Strategy, &r.Status,
		&r.Admitted, &r.Rejected, &r.Satisfied, &durationMs, &quotas)
	if err != nil {
		return Run{}, err
	}
	r.Duration = time.Duration(durationMs) * time.Millisecond
	if err := json.Unmarshal([]byte(quotas), &r.Quotas); err != nil {
		return Run{}, fmt.Errorf("decoding quota results for %s: %w", r.ID, err)
	}
	return r, nil
}

const runColumns = `id, created_at, scenario, strategy, status, admitted, rejected, satisfied, duration_ms, quotas`

// List returns the archived runs for a scenario, newest first.
func (s *Store) List(ctx context.Context, scenario int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE scenario = ? ORDER BY created_at DESC, id DESC`,
		scenario)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Best returns the completed, quota-satisfying run with the fewest
// rejections for a scenario.
func (s *Store) Best(ctx context.Context, scenario int) (*Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs
		 WHERE scenario = ? AND satisfied = 1 AND status = 'completed'
		 ORDER BY rejected ASC LIMIT 1`,
		scenario)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNoRuns
	}

	r, err := scanRun(rows)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
