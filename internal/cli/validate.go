package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/utest/internal/suite"
)

// ValidationError is one suite file that failed to load.
type ValidationError struct {
	File    string `json:"file"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Suites int               `json:"suites"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <dir|file>",
		Short: "Validate suite files without running them",
		Long: `Validate YAML and CUE suite files without running them.

Each file is parsed, checked against the suite schema and validated
(status values, controls, failure reasons, assertions). All files are
checked; every failure is reported.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	files, err := FindSuiteFiles(path, "")
	if err != nil {
		return outputValidateError(formatter, err)
	}
	formatter.VerboseLog("Found %d suite file(s) in %s", len(files), path)

	validationErrors := ValidateSuiteFiles(files, formatter)
	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, len(files), validationErrors)
	}
	return outputValidateSuccess(formatter, len(files))
}

// ValidateSuiteFiles loads every file and returns one ValidationError per
// file that fails. A nil formatter is allowed.
func ValidateSuiteFiles(files []string, formatter *OutputFormatter) []ValidationError {
	var errs []ValidationError
	for _, file := range files {
		if formatter != nil {
			formatter.VerboseLog("Validating suite: %s", file)
		}
		if _, err := suite.Load(file); err != nil {
			errs = append(errs, toValidationError(file, err))
		}
	}
	return errs
}

func toValidationError(file string, err error) ValidationError {
	ve := ValidationError{
		File:    file,
		Code:    errorCode(err),
		Message: err.Error(),
		Line:    errorLine(err),
	}
	var loadErr *suite.LoadError
	if errors.As(err, &loadErr) {
		ve.Message = loadErr.Message
	}
	return ve
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, n int) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Suites: n})
	}

	PassMark(formatter.Writer, "All %d suite(s) valid", n)
	return nil
}

// outputValidateError outputs a command-level error.
func outputValidateError(formatter *OutputFormatter, err error) error {
	_ = formatter.Error(errorCode(err), err.Error(), nil)
	// Command-level errors are exit code 2
	return WrapExitError(ExitCommandError, "validate", err)
}

// outputValidationErrors outputs per-file validation errors.
func outputValidationErrors(formatter *OutputFormatter, n int, errs []ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:  false,
				Suites: n,
				Errors: errs,
			},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	FailMark(formatter.Writer, "Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s:%d\n", err.File, err.Line)
		} else {
			fmt.Fprintln(formatter.Writer, err.File)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
