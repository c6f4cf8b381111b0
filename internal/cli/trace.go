package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/utest/internal/store"
	"github.com/roach88/utest/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Suite string // optional - filter runs to one suite
	Kind  string // optional - filter events to one kind
}

// RunSummary is one row of the run listing.
type RunSummary struct {
	ID        string `json:"id"`
	Suite     string `json:"suite"`
	Seq       int64  `json:"seq"`
	StartedAt string `json:"started_at"`
	Passed    int    `json:"passed"`
	Failed    int    `json:"failed"`
	ExitCode  int    `json:"exit_code"`
}

// CaseSummary is one case result of a run.
type CaseSummary struct {
	Index       int    `json:"index"`
	Description string `json:"description"`
	Passed      int    `json:"passed"`
	Failed      int    `json:"failed"`
	Reason      string `json:"reason"`
}

// TraceResult holds the complete trace output of one run.
type TraceResult struct {
	Run      RunSummary    `json:"run"`
	Cases    []CaseSummary `json:"cases"`
	Events   []trace.Event `json:"events"`
	Verified bool          `json:"verified"` // stored trace hash matches the events
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <db> [run-id|latest]",
		Short: "List recorded runs or show the trace of one",
		Long: `Query the run ledger written by "utest run --db".

Without a run ID, lists the recorded runs in order. With a run ID (or
"latest"), shows the run's case results and its event trace, and checks
the trace against the hash stored with the run.

Examples:
  utest trace ./runs.db
  utest trace ./runs.db --suite timeout
  utest trace ./runs.db latest --kind case_teardown
  utest trace ./runs.db 0190a5c4-... --format json`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 2 {
				runID = args[1]
			}
			return runTrace(opts, args[0], runID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Suite, "suite", "", "only runs of this suite")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only events of this kind")

	return cmd
}

func runTrace(opts *TraceOptions, dbPath, runID string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Kind != "" {
		if _, err := trace.ParseKind(opts.Kind); err != nil {
			return WrapExitError(ExitCommandError, "invalid --kind", err)
		}
	}

	// store.Open creates missing databases; a trace query never should
	if _, err := os.Stat(dbPath); err != nil {
		return WrapExitError(ExitCommandError, "database not found", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if runID == "" {
		return listRuns(ctx, st, opts, cmd)
	}
	return showRun(ctx, st, opts, runID, cmd)
}

func listRuns(ctx context.Context, st *store.Store, opts *TraceOptions, cmd *cobra.Command) error {
	runs, err := st.ListRuns(ctx, opts.Suite)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	summaries := make([]RunSummary, 0, len(runs))
	for _, run := range runs {
		summaries = append(summaries, toRunSummary(run))
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd.OutOrStdout(), summaries)
	}

	w := cmd.OutOrStdout()
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, r := range summaries {
		line := fmt.Sprintf("#%d %s %s  %d passed, %d failed, exit %d  (%s)", r.Seq, r.ID, r.Suite, r.Passed, r.Failed, r.ExitCode, r.StartedAt)
		if r.ExitCode == 0 {
			PassMark(w, "%s", line)
		} else {
			FailMark(w, "%s", line)
		}
	}
	return nil
}

func showRun(ctx context.Context, st *store.Store, opts *TraceOptions, runID string, cmd *cobra.Command) error {
	var (
		run store.Run
		err error
	)
	if runID == "latest" {
		run, err = st.LatestRun(ctx, opts.Suite)
	} else {
		run, err = st.ReadRun(ctx, runID)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", runID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	events, err := st.ReadEvents(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}
	results, err := st.ReadCaseResults(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read case results", err)
	}

	hash, err := trace.TraceHash(events)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to hash trace", err)
	}

	result := TraceResult{
		Run:      toRunSummary(run),
		Cases:    make([]CaseSummary, 0, len(results)),
		Events:   filterEvents(events, trace.Kind(opts.Kind)),
		Verified: hash == run.TraceHash,
	}
	for _, cr := range results {
		result.Cases = append(result.Cases, CaseSummary{
			Index:       cr.Index,
			Description: cr.Description,
			Passed:      cr.Passed,
			Failed:      cr.Failed,
			Reason:      cr.Reason,
		})
	}

	if opts.Format == "json" {
		if err := outputTraceJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
	} else {
		outputTraceText(cmd.OutOrStdout(), result)
	}

	if !result.Verified {
		return NewExitError(ExitFailure, fmt.Sprintf("run %s: stored trace does not match its hash", run.ID))
	}
	return nil
}

func toRunSummary(run store.Run) RunSummary {
	return RunSummary{
		ID:        run.ID,
		Suite:     run.Suite,
		Seq:       run.Seq,
		StartedAt: run.StartedAt.Format(time.RFC3339),
		Passed:    run.Passed,
		Failed:    run.Failed,
		ExitCode:  run.ExitCode,
	}
}

// filterEvents keeps the events of kind, or all events when kind is empty.
// Returns an empty slice (not nil) when nothing matches.
func filterEvents(events []trace.Event, kind trace.Kind) []trace.Event {
	out := []trace.Event{}
	for _, e := range events {
		if kind == "" || e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// outputTraceJSON outputs a trace payload as JSON.
func outputTraceJSON(w io.Writer, data any) error {
	response := CLIResponse{
		Status: "ok",
		Data:   data,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputTraceText outputs the trace of one run as text.
func outputTraceText(w io.Writer, result TraceResult) {
	r := result.Run
	fmt.Fprintf(w, "Run #%d %s\n", r.Seq, r.ID)
	fmt.Fprintf(w, "Suite: %s\n", r.Suite)
	fmt.Fprintf(w, "Started: %s\n", r.StartedAt)
	fmt.Fprintf(w, "Result: %d passed, %d failed, exit code %d\n", r.Passed, r.Failed, r.ExitCode)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Cases ===")
	if len(result.Cases) == 0 {
		fmt.Fprintln(w, "  (no cases)")
	}
	for _, c := range result.Cases {
		if c.Failed == 0 {
			PassMark(w, "[%d] %s (%d passed)", c.Index, c.Description, c.Passed)
		} else {
			FailMark(w, "[%d] %s (%d passed, %d failed, %s)", c.Index, c.Description, c.Passed, c.Failed, c.Reason)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Events ===")
	if len(result.Events) == 0 {
		fmt.Fprintln(w, "  (no events)")
	}
	for _, e := range result.Events {
		fmt.Fprintf(w, "  %4d %-14s %s\n", e.Seq, e.Kind, eventDetails(e))
	}
	fmt.Fprintln(w)

	if result.Verified {
		PassMark(w, "Trace hash verified")
	} else {
		FailMark(w, "Trace hash mismatch")
	}
}

// eventDetails renders the non-empty fields of e as key=value pairs.
func eventDetails(e trace.Event) string {
	var parts []string
	add := func(key, value string) {
		if value != "" {
			parts = append(parts, key+"="+quoteIfSpaced(value))
		}
	}
	addInt := func(key string, value int) {
		if value != 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", key, value))
		}
	}

	add("case", e.Case)
	addInt("index", e.Index)
	addInt("passed", e.Passed)
	addInt("failed", e.Failed)
	add("reason", e.Reason)
	add("location", e.Location)
	add("status", e.Status)
	add("control", e.Control)
	if e.Kind == trace.KindExit {
		parts = append(parts, fmt.Sprintf("code=%d", e.Code))
	}
	return strings.Join(parts, " ")
}

func quoteIfSpaced(s string) string {
	if strings.ContainsRune(s, ' ') {
		return fmt.Sprintf("%q", s)
	}
	return s
}
