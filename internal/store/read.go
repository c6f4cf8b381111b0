package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/utest/internal/trace"
)

const runColumns = `id, suite, seq, started_at, passed, failed, exit_code, trace_hash`

// ReadRun returns the run with the given ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// LatestRun returns the most recent run of suite, or of any suite when
// suite is empty.
// Returns sql.ErrNoRows if there is none.
func (s *Store) LatestRun(ctx context.Context, suite string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE ? = '' OR suite = ?
		ORDER BY seq DESC
		LIMIT 1
	`, suite, suite)
	return scanRun(row)
}

// ListRuns returns the runs of suite, or all runs when suite is empty,
// ordered by seq ASC, id COLLATE BINARY ASC.
//
// Returns an empty slice (not nil) if there are no runs.
func (s *Store) ListRuns(ctx context.Context, suite string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE ? = '' OR suite = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, suite, suite)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadEvents returns the trace of a run in seq order.
//
// Returns an empty slice (not nil) if the run has no events.
func (s *Store) ReadEvents(ctx context.Context, runID string) ([]trace.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT data
		FROM events
		WHERE run_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []trace.Event{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var e trace.Event
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// ReadCaseResults returns the case results of a run in teardown order.
//
// Returns an empty slice (not nil) if the run has no case results.
func (s *Store) ReadCaseResults(ctx context.Context, runID string) ([]CaseResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, idx, description, passed, failed, reason
		FROM case_results
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query case results: %w", err)
	}
	defer rows.Close()

	results := []CaseResult{}
	for rows.Next() {
		var cr CaseResult
		if err := rows.Scan(&cr.RunID, &cr.Index, &cr.Description, &cr.Passed, &cr.Failed, &cr.Reason); err != nil {
			return nil, fmt.Errorf("scan case result: %w", err)
		}
		results = append(results, cr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate case results: %w", err)
	}
	return results, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run       Run
		startedAt string
	)
	err := row.Scan(&run.ID, &run.Suite, &run.Seq, &startedAt, &run.Passed, &run.Failed, &run.ExitCode, &run.TraceHash)
	if err == sql.ErrNoRows {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse started_at %q: %w", startedAt, err)
	}
	return run, nil
}
