package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/utest/internal/store"
	"github.com/roach88/utest/internal/suite"
	"github.com/roach88/utest/internal/trace"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string // optional - compare against the latest recorded run
	Runs     int
}

// ReplayResult holds the replay result of one suite.
type ReplayResult struct {
	Suite         string   `json:"suite"`
	Runs          int      `json:"runs"`
	Hashes        []string `json:"hashes"`
	RecordedRun   string   `json:"recorded_run,omitempty"`
	RecordedHash  string   `json:"recorded_hash,omitempty"`
	Deterministic bool     `json:"deterministic"`
	MatchesLedger bool     `json:"matches_ledger"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <suite-file>",
		Short: "Re-run a suite and verify its trace is deterministic",
		Long: `Run a suite several times on the virtual-time scheduler and verify
every run produces the same trace hash.

With --db, the hash is also compared against the latest run of the same
suite recorded in the run ledger. A ledger without a run of the suite
is not an error.

Exit codes:
  0 - All runs are identical (and match the ledger, when given)
  1 - Determinism verification failed (differences detected)
  2 - Command error (invalid suite, database error, etc.)

Examples:
  utest replay ./suites/timeout.cue
  utest replay ./suites/timeout.cue --runs 5
  utest replay ./suites/timeout.cue --db ./runs.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "compare against the latest run in this database")
	cmd.Flags().IntVar(&opts.Runs, "runs", 2, "number of runs to compare")

	return cmd
}

func runReplay(opts *ReplayOptions, path string, cmd *cobra.Command) error {
	if opts.Runs < 1 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--runs must be at least 1, got %d", opts.Runs))
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := suite.Load(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load suite", err)
	}
	if s.Scheduler == suite.SchedulerRealtime {
		return NewExitError(ExitCommandError, fmt.Sprintf("suite %s runs in real time; replay needs the virtual scheduler", s.Name))
	}

	result := ReplayResult{
		Suite:         s.Name,
		Runs:          opts.Runs,
		Hashes:        make([]string, 0, opts.Runs),
		Deterministic: true,
		MatchesLedger: true,
	}

	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	for i := 0; i < opts.Runs; i++ {
		res, err := suite.Run(ctx, s, suite.WithLogger(logger))
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("run %d failed", i+1), err)
		}
		hash, err := trace.TraceHash(res.Events)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to hash trace", err)
		}
		if i > 0 && hash != result.Hashes[0] {
			result.Deterministic = false
		}
		result.Hashes = append(result.Hashes, hash)
	}

	if opts.Database != "" {
		run, err := latestRecorded(ctx, opts.Database, s.Name)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read run ledger", err)
		}
		if run.ID != "" {
			result.RecordedRun = run.ID
			result.RecordedHash = run.TraceHash
			result.MatchesLedger = run.TraceHash == result.Hashes[0]
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}
	return outputReplayText(cmd, result, opts.Verbose)
}

// latestRecorded returns the latest run of suiteName, or a zero Run when
// there is none.
func latestRecorded(ctx context.Context, dbPath, suiteName string) (store.Run, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return store.Run{}, err
	}
	defer st.Close()

	run, err := st.LatestRun(ctx, suiteName)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Run{}, nil
	}
	return run, err
}

func (r ReplayResult) ok() bool {
	return r.Deterministic && r.MatchesLedger
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.ok() {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_DETERMINISM",
			Message: "determinism verification failed",
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.ok() {
		// Determinism failure = exit code 1
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay Summary: %s, %d run(s)\n", result.Suite, result.Runs)
	fmt.Fprintln(w)

	if verbose {
		for i, h := range result.Hashes {
			fmt.Fprintf(w, "  run %d: %s\n", i+1, h)
		}
	} else {
		fmt.Fprintf(w, "  trace hash: %s\n", result.Hashes[0])
	}
	if !result.Deterministic {
		fmt.Fprintln(w, "  Warning: runs produced different traces!")
	}
	if result.RecordedRun != "" {
		fmt.Fprintf(w, "  recorded run %s: %s\n", result.RecordedRun, result.RecordedHash)
		if !result.MatchesLedger {
			fmt.Fprintln(w, "  Warning: trace differs from the recorded run!")
		}
	}
	fmt.Fprintln(w)

	if result.ok() {
		PassMark(w, "Suite verified deterministic")
		return nil
	}

	FailMark(w, "Determinism verification failed")
	// Determinism failure = exit code 1
	return NewExitError(ExitFailure, "determinism verification failed")
}
