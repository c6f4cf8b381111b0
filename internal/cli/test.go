package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/utest/internal/suite"
	"github.com/roach88/utest/internal/trace"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // suite filter (glob pattern)
}

// SuiteResult holds the result of a single suite.
type SuiteResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Suites []SuiteResult `json:"suites"`
	Passed int           `json:"passed"`
	Failed int           `json:"failed"`
	Total  int           `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <dir|file>",
		Short: "Run suites and check their expectations",
		Long: `Run every suite file and check it.

A suite passes when its run completes, its expect block and assertions
hold, and its trace matches golden/<name>.golden next to the suite file
(when that file exists). A suite is expected to fail cases on purpose;
only the checks decide the outcome.

Exit codes:
  0 - All suites passed
  1 - One or more suites failed
  2 - Command error (invalid paths, etc.)

Examples:
  utest test ./suites
  utest test ./suites --filter "timeout*"
  utest test ./suites --update
  utest test ./suites --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter suites by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, path string, cmd *cobra.Command) error {
	files, err := FindSuiteFiles(path, opts.Filter)
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == ErrCodeNoFiles {
		if opts.Format == "json" {
			return outputTestJSON(cmd, TestResult{Suites: []SuiteResult{}})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No suites found.")
		return nil
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find suites", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	result := TestResult{
		Suites: make([]SuiteResult, 0, len(files)),
		Total:  len(files),
	}
	for _, file := range files {
		sr := runSuiteCheck(ctx, file, opts, suite.WithLogger(logger))
		if opts.Format != "json" {
			outputSuiteText(cmd, sr, opts.Update, opts.Verbose)
		}
		result.Suites = append(result.Suites, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(cmd, result)
	}
	return outputTestText(cmd, result)
}

// runSuiteCheck loads, runs and checks one suite file.
func runSuiteCheck(ctx context.Context, file string, opts *TestOptions, runOpts ...suite.Option) SuiteResult {
	sr := SuiteResult{Name: filepath.Base(file), File: file}

	s, err := suite.Load(file)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("load: %v", err)}
		return sr
	}
	sr.Name = s.Name

	res, err := suite.Run(ctx, s, runOpts...)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("run: %v", err)}
		return sr
	}

	if err := suite.Check(s, res); err != nil {
		sr.Errors = append(sr.Errors, splitJoined(err)...)
	}

	goldenPath := goldenFilePath(file)
	if _, statErr := os.Stat(goldenPath); opts.Update || statErr == nil {
		if err := trace.CompareGolden(goldenPath, res.Events, opts.Update); err != nil {
			if errors.Is(err, trace.ErrGoldenMismatch) {
				sr.Errors = append(sr.Errors, "trace does not match golden file (run with --update to regenerate)")
			} else {
				sr.Errors = append(sr.Errors, fmt.Sprintf("golden: %v", err))
			}
		}
	}

	sr.Pass = len(sr.Errors) == 0
	return sr
}

// splitJoined unpacks an errors.Join result into its messages.
func splitJoined(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var msgs []string
		for _, e := range joined.Unwrap() {
			msgs = append(msgs, e.Error())
		}
		return msgs
	}
	return []string{err.Error()}
}

// outputSuiteText prints one suite outcome as it completes. Assertion
// errors carry the full trace; it is only printed in verbose mode.
func outputSuiteText(cmd *cobra.Command, sr SuiteResult, updated, verbose bool) {
	w := cmd.OutOrStdout()
	if !sr.Pass {
		FailMark(w, "%s", sr.Name)
		for _, e := range sr.Errors {
			if !verbose {
				e, _, _ = strings.Cut(e, "\n")
			}
			fmt.Fprintf(w, "  %s\n", e)
		}
		return
	}
	if updated {
		PassMark(w, "%s (golden updated)", sr.Name)
		return
	}
	PassMark(w, "%s", sr.Name)
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	status := "ok"
	if result.Failed > 0 {
		status = "error"
	}

	response := CLIResponse{
		Status: status,
		Data:   result,
	}

	if result.Failed > 0 {
		response.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d suite(s) failed", result.Failed),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d suite(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test summary as text.
func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d suite(s) failed", result.Failed))
	}

	PassMark(w, "All suites passed")
	return nil
}
