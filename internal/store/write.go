package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/utest/internal/trace"
)

// Run is a stored suite run.
type Run struct {
	ID        string
	Suite     string
	Seq       int64
	StartedAt time.Time
	Passed    int
	Failed    int
	ExitCode  int
	TraceHash string
}

// CaseResult is one case teardown of a run. A case repeated with its
// setup and teardown has one result per iteration.
type CaseResult struct {
	RunID       string
	Index       int
	Description string
	Passed      int
	Failed      int
	Reason      string
}

// RunRecord is the outcome of a run as handed to WriteRun.
type RunRecord struct {
	Suite    string
	Passed   int
	Failed   int
	ExitCode int
	Events   []trace.Event
}

// CaseResultsFromTrace extracts one CaseResult per case_teardown event.
// RunID is left empty.
func CaseResultsFromTrace(events []trace.Event) []CaseResult {
	results := []CaseResult{}
	for _, e := range events {
		if e.Kind != trace.KindCaseTeardown {
			continue
		}
		results = append(results, CaseResult{
			Index:       len(results),
			Description: e.Case,
			Passed:      e.Passed,
			Failed:      e.Failed,
			Reason:      e.Reason,
		})
	}
	return results
}

// WriteRun stores rec as a new run with its case results and events, in
// one transaction. The run gets a fresh ID and the next logical seq.
func (s *Store) WriteRun(ctx context.Context, rec RunRecord) (Run, error) {
	hash, err := trace.TraceHash(rec.Events)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}

	run := Run{
		ID:        s.ids.Generate(),
		Suite:     rec.Suite,
		StartedAt: s.clock.Now().UTC(),
		Passed:    rec.Passed,
		Failed:    rec.Failed,
		ExitCode:  rec.ExitCode,
		TraceHash: hash,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&run.Seq); err != nil {
		return Run{}, fmt.Errorf("write run: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, suite, seq, started_at, passed, failed, exit_code, trace_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Suite,
		run.Seq,
		run.StartedAt.Format(time.RFC3339Nano),
		run.Passed,
		run.Failed,
		run.ExitCode,
		run.TraceHash,
	)
	if err != nil {
		return Run{}, fmt.Errorf("write run: insert run: %w", err)
	}

	for _, cr := range CaseResultsFromTrace(rec.Events) {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO case_results
			(run_id, idx, description, passed, failed, reason)
			VALUES (?, ?, ?, ?, ?, ?)
		`, run.ID, cr.Index, cr.Description, cr.Passed, cr.Failed, cr.Reason)
		if err != nil {
			return Run{}, fmt.Errorf("write run: insert case result %d: %w", cr.Index, err)
		}
	}

	for _, e := range rec.Events {
		id, err := trace.EventID(e)
		if err != nil {
			return Run{}, fmt.Errorf("write run: %w", err)
		}
		data, err := json.Marshal(e)
		if err != nil {
			return Run{}, fmt.Errorf("write run: marshal event %d: %w", e.Seq, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO events
			(id, run_id, seq, kind, data)
			VALUES (?, ?, ?, ?, ?)
		`, id, run.ID, e.Seq, string(e.Kind), string(data))
		if err != nil {
			return Run{}, fmt.Errorf("write run: insert event %d: %w", e.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("write run: commit: %w", err)
	}
	return run, nil
}
