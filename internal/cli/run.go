package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/utest/internal/greentea"
	"github.com/roach88/utest/internal/store"
	"github.com/roach88/utest/internal/suite"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Handlers string
	Realtime bool

	// Tokens allows overriding the greentea sync token generator (for testing).
	// If nil, defaults to greentea.UUIDGenerator.
	Tokens greentea.TokenGenerator

	// IDs allows overriding the run ID generator (for testing).
	// If nil, defaults to store.UUIDv7Generator.
	IDs store.IDGenerator
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	Suite    string            `json:"suite"`
	Passed   int               `json:"passed"`
	Failed   int               `json:"failed"`
	ExitCode int               `json:"exit_code"`
	RunID    string            `json:"run_id,omitempty"`
	Output   string            `json:"output,omitempty"`
	Greentea *greentea.Summary `json:"greentea,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <suite-file>",
		Short: "Run one suite",
		Long: `Run a single suite file through the harness.

The handler output (verbose text or greentea records) is streamed to stdout.
With --db, the run, its case results and its trace are recorded in a SQLite
run ledger (created if it doesn't exist).

Exit codes:
  0 - All cases passed
  1 - One or more cases failed, or the suite aborted
  2 - Command error (invalid suite, database error, etc.)

Examples:
  utest run ./suites/async_validate.yaml
  utest run ./suites/timeout.cue --db ./runs.db
  utest run ./suites/basic.yaml --handlers greentea --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuite(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite database")
	cmd.Flags().StringVar(&opts.Handlers, "handlers", "", "override the handler table (verbose|selftest|greentea|greentea_abort)")
	cmd.Flags().BoolVar(&opts.Realtime, "realtime", false, "run on the wall-clock scheduler instead of virtual time")

	return cmd
}

func runSuite(opts *RunOptions, path string, cmd *cobra.Command) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	s, err := suite.Load(path)
	if err != nil {
		_ = formatter.Error(errorCode(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load suite", err)
	}
	if opts.Handlers != "" {
		s.Handlers = opts.Handlers
		if err := suite.Validate(s); err != nil {
			_ = formatter.Error(suite.ErrCodeInvalid, err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid --handlers", err)
		}
	}

	// Setup signal handling so Ctrl-C stops a realtime run
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens := opts.Tokens
	if tokens == nil {
		tokens = greentea.UUIDGenerator{}
	}
	runOpts := []suite.Option{
		suite.WithLogger(logger),
		suite.WithTokens(tokens),
	}
	if opts.Realtime {
		runOpts = append(runOpts, suite.WithRealTime())
	}
	if opts.Format != "json" {
		runOpts = append(runOpts, suite.WithOutput(cmd.OutOrStdout()))
	}

	logger.Info("running suite", "path", path, "handlers", s.Handlers)
	res, err := suite.Run(ctx, s, runOpts...)
	if err != nil {
		_ = formatter.Error(ErrCodeRunFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "suite run failed", err)
	}

	result := RunResult{
		Suite:    res.Name,
		Passed:   res.Passed,
		Failed:   res.Failed,
		ExitCode: res.ExitCode,
		Greentea: res.Greentea,
	}
	if opts.Format == "json" {
		result.Output = res.Output
	}

	if opts.Database != "" {
		run, err := recordRun(ctx, opts, res)
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		result.RunID = run.ID
		logger.Info("run recorded", "db", opts.Database, "run", run.ID, "seq", run.Seq)
	}

	if opts.Format == "json" {
		return outputRunJSON(cmd.OutOrStdout(), result)
	}
	return outputRunText(cmd.OutOrStdout(), result)
}

// recordRun writes res to the run ledger at opts.Database.
func recordRun(ctx context.Context, opts *RunOptions, res *suite.Result) (store.Run, error) {
	var storeOpts []store.Option
	if opts.IDs != nil {
		storeOpts = append(storeOpts, store.WithIDGenerator(opts.IDs))
	}
	st, err := store.Open(opts.Database, storeOpts...)
	if err != nil {
		return store.Run{}, err
	}
	defer st.Close()

	return st.WriteRun(ctx, store.RunRecord{
		Suite:    res.Name,
		Passed:   res.Passed,
		Failed:   res.Failed,
		ExitCode: res.ExitCode,
		Events:   res.Events,
	})
}

// runExitError maps a suite exit code to the process exit status.
func runExitError(result RunResult) error {
	if result.ExitCode == 0 {
		return nil
	}
	return NewExitError(ExitFailure, fmt.Sprintf("suite %s exited with code %d (%d failed)", result.Suite, result.ExitCode, result.Failed))
}

// outputRunJSON outputs the run result as JSON.
func outputRunJSON(w io.Writer, result RunResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}
	if result.ExitCode != 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_SUITE_FAILED",
			Message: fmt.Sprintf("exit code %d", result.ExitCode),
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}
	return runExitError(result)
}

// outputRunText outputs the run summary as text, after the streamed
// handler output.
func outputRunText(w io.Writer, result RunResult) error {
	fmt.Fprintln(w)
	if result.ExitCode == 0 {
		PassMark(w, "%s: %d passed, %d failed", result.Suite, result.Passed, result.Failed)
	} else {
		FailMark(w, "%s: %d passed, %d failed (exit code %d)", result.Suite, result.Passed, result.Failed, result.ExitCode)
	}
	if result.RunID != "" {
		fmt.Fprintf(w, "  recorded as run %s\n", result.RunID)
	}
	return runExitError(result)
}
