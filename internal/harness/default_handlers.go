package harness

import (
	"fmt"
	"io"
)

// VerboseTestSetup prints the number of cases about to run.
func VerboseTestSetup(w io.Writer) TestSetupHandler {
	return func(numberOfCases int) Status {
		fmt.Fprintf(w, ">>> Running %d test cases...\n", numberOfCases)
		return StatusContinue
	}
}

// VerboseTestTeardown prints the suite totals.
func VerboseTestTeardown(w io.Writer) TestTeardownHandler {
	return func(passed, failed int, failure Failure) {
		fmt.Fprintf(w, "\n>>> Test cases: %d passed, %d failed", passed, failed)
		if failure.Reason == ReasonNone {
			fmt.Fprintln(w)
		} else {
			fmt.Fprintf(w, " with reason '%s'\n", failure.Reason)
		}
		if failed > 0 {
			fmt.Fprintln(w, ">>> TESTS FAILED!")
		}
	}
}

// VerboseTestFailure prints every failure that is not ignored.
func VerboseTestFailure(w io.Writer) TestFailureHandler {
	return func(failure Failure) {
		if failure.Ignored() {
			return
		}
		fmt.Fprintf(w, ">>> failure with reason '%s' during '%s'\n", failure.Reason, failure.Location)
	}
}

// VerboseCaseSetup prints the case about to run (1-based).
func VerboseCaseSetup(w io.Writer) CaseSetupHandler {
	return func(source *Case, indexOfCase int) Status {
		fmt.Fprintf(w, "\n>>> Running case #%d: '%s'...\n", indexOfCase+1, source.Description)
		return StatusContinue
	}
}

// VerboseCaseTeardown prints the case result.
func VerboseCaseTeardown(w io.Writer) CaseTeardownHandler {
	return func(source *Case, passed, failed int, failure Failure) Status {
		fmt.Fprintf(w, ">>> '%s': %d passed, %d failed", source.Description, passed, failed)
		if failure.Reason == ReasonNone {
			fmt.Fprintln(w)
		} else {
			fmt.Fprintf(w, " with reason '%s'\n", failure.Reason)
		}
		return StatusContinue
	}
}

// VerboseCaseFailure continues after ordinary failures, ignores failures
// flagged ReasonIgnore and aborts on suite setup or teardown failures.
func VerboseCaseFailure() CaseFailureHandler {
	return func(_ *Case, failure Failure) Status {
		if failure.Reason&(ReasonTestSetup|ReasonTestTeardown) != 0 {
			return StatusAbort
		}
		if failure.Ignored() {
			return StatusIgnore
		}
		return StatusContinue
	}
}

// AbortingCaseFailure aborts the run on every failure that is not ignored.
func AbortingCaseFailure() CaseFailureHandler {
	verbose := VerboseCaseFailure()
	return func(source *Case, failure Failure) Status {
		if verbose(source, failure) == StatusIgnore {
			return StatusIgnore
		}
		return StatusAbort
	}
}

// VerboseContinueHandlers prints progress to w and keeps running after
// case failures.
func VerboseContinueHandlers(w io.Writer) Handlers {
	return Handlers{
		TestSetup:    Use(VerboseTestSetup(w)),
		TestTeardown: Use(VerboseTestTeardown(w)),
		TestFailure:  Use(VerboseTestFailure(w)),
		CaseSetup:    Use(VerboseCaseSetup(w)),
		CaseTeardown: Use(VerboseCaseTeardown(w)),
		CaseFailure:  Use(VerboseCaseFailure()),
	}
}

// SelftestHandlers prints progress to w and aborts on the first failure
// that is not ignored. Used to test the harness itself.
func SelftestHandlers(w io.Writer) Handlers {
	h := VerboseContinueHandlers(w)
	h.CaseFailure = Use(AbortingCaseFailure())
	return h
}
