package harness_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/utest/internal/harness"
	"github.com/roach88/utest/internal/scheduler"
)

// fixture runs specifications on a virtual scheduler and records every
// handler call as a line of text.
type fixture struct {
	t      *testing.T
	h      *harness.Harness
	v      *scheduler.Virtual
	events []string
	exits  []int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{t: t}
	f.v = scheduler.NewVirtual(scheduler.WithStepLimit(1000))
	f.h = harness.New(
		harness.WithScheduler(f.v),
		harness.WithExit(func(code int) {
			f.exits = append(f.exits, code)
			f.v.Stop()
		}),
	)
	return f
}

func (f *fixture) record(format string, args ...any) {
	f.events = append(f.events, fmt.Sprintf(format, args...))
}

// handlers returns a table that records each call and otherwise behaves
// like the verbose continue table.
func (f *fixture) handlers() harness.Handlers {
	return harness.Handlers{
		TestSetup: harness.Use[harness.TestSetupHandler](func(n int) harness.Status {
			f.record("test_setup %d", n)
			return harness.StatusContinue
		}),
		TestTeardown: harness.Use[harness.TestTeardownHandler](func(passed, failed int, failure harness.Failure) {
			f.record("test_teardown %d %d %s", passed, failed, failure.Reason)
		}),
		TestFailure: harness.Use[harness.TestFailureHandler](func(failure harness.Failure) {
			f.record("test_failure %s", failure)
		}),
		CaseSetup: harness.Use[harness.CaseSetupHandler](func(c *harness.Case, index int) harness.Status {
			f.record("case_setup %d %s", index, c.Description)
			return harness.StatusContinue
		}),
		CaseTeardown: harness.Use[harness.CaseTeardownHandler](func(c *harness.Case, passed, failed int, failure harness.Failure) harness.Status {
			f.record("case_teardown %s %d %d %s", c.Description, passed, failed, failure.Reason)
			return harness.StatusContinue
		}),
		CaseFailure: harness.Use[harness.CaseFailureHandler](func(c *harness.Case, failure harness.Failure) harness.Status {
			f.record("case_failure %s: %s", c.Description, failure)
			return harness.VerboseCaseFailure()(c, failure)
		}),
	}
}

// spec builds a specification over cases using the recording table.
func (f *fixture) spec(cases []harness.Case, opts ...harness.SpecOption) *harness.Specification {
	opts = append([]harness.SpecOption{harness.WithDefaults(f.handlers())}, opts...)
	return harness.NewSpecification(cases, opts...)
}

// run executes spec and returns the exit code. The run must end exactly once.
func (f *fixture) run(spec *harness.Specification) int {
	f.t.Helper()
	require.NoError(f.t, f.h.Run(spec))
	require.Len(f.t, f.exits, 1, "exit hook must be called exactly once")
	require.False(f.t, f.h.IsBusy(), "harness must be idle after exit")
	return f.exits[0]
}

func countOf(lines []string, want string) int {
	n := 0
	for _, l := range lines {
		if l == want {
			n++
		}
	}
	return n
}
