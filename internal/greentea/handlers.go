package greentea

import (
	"io"
	"time"

	"github.com/roach88/utest/internal/harness"
)

// CaseSource looks up cases of the running specification by index.
// *harness.Harness implements it.
type CaseSource interface {
	Case(index int) (*harness.Case, bool)
}

type config struct {
	timeout  time.Duration
	hostTest string
	cases    CaseSource
	tokens   TokenGenerator
}

// Option configures the greentea handler tables.
type Option func(*config)

// WithTimeout sets the __timeout announced to the host, rounded up to
// whole seconds. Zero (the default) sends no preamble.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithHostTest sets the __host_test_name. Defaults to DefaultHostTest.
func WithHostTest(name string) Option {
	return func(c *config) { c.hostTest = name }
}

// WithCaseNames makes test setup announce every case name.
func WithCaseNames(src CaseSource) Option {
	return func(c *config) { c.cases = src }
}

// WithSync makes test setup start with a __sync handshake record.
func WithSync(gen TokenGenerator) Option {
	return func(c *config) { c.tokens = gen }
}

// AbortHandlers reports to r and w and aborts the run on the first failure
// that is not ignored.
func AbortHandlers(r Reporter, w io.Writer, opts ...Option) harness.Handlers {
	h := handlers(r, w, opts)
	h.CaseFailure = harness.Use(harness.AbortingCaseFailure())
	return h
}

// ContinueHandlers reports to r and w and keeps running after case
// failures.
func ContinueHandlers(r Reporter, w io.Writer, opts ...Option) harness.Handlers {
	h := handlers(r, w, opts)
	h.CaseFailure = harness.Use(harness.VerboseCaseFailure())
	return h
}

func handlers(r Reporter, w io.Writer, opts []Option) harness.Handlers {
	cfg := config{hostTest: DefaultHostTest}
	for _, opt := range opts {
		opt(&cfg)
	}

	verboseSetup := harness.VerboseTestSetup(w)
	verboseTeardown := harness.VerboseTestTeardown(w)
	verboseCaseSetup := harness.VerboseCaseSetup(w)
	verboseCaseTeardown := harness.VerboseCaseTeardown(w)

	testSetup := func(numberOfCases int) harness.Status {
		if cfg.tokens != nil {
			r.SendKV(KeySync, cfg.tokens.Generate())
		}
		if cfg.timeout > 0 {
			r.SendKV(KeyTimeout, seconds(cfg.timeout))
			r.SendKV(KeyHostTestName, cfg.hostTest)
		}
		r.SendKV(KeyTestcaseCount, numberOfCases)
		if cfg.cases != nil {
			for i := 0; i < numberOfCases; i++ {
				if c, ok := cfg.cases.Case(i); ok {
					r.SendKV(KeyTestcaseName, c.Description)
				}
			}
		}
		return verboseSetup(numberOfCases)
	}

	testTeardown := func(passed, failed int, failure harness.Failure) {
		verboseTeardown(passed, failed, failure)
		r.SendKV(KeyTestcaseSummary, passed, failed)
		result, code := ResultSuccess, 0
		if failed > 0 || failure.Reason != harness.ReasonNone {
			result, code = ResultFailure, 1
		}
		r.SendKV(KeyEnd, result)
		r.SendKV(KeyExit, code)
	}

	caseSetup := func(source *harness.Case, indexOfCase int) harness.Status {
		r.SendKV(KeyTestcaseStart, source.Description)
		return verboseCaseSetup(source, indexOfCase)
	}

	caseTeardown := func(source *harness.Case, passed, failed int, failure harness.Failure) harness.Status {
		r.SendKV(KeyTestcaseFinish, source.Description, passed, failed)
		return verboseCaseTeardown(source, passed, failed, failure)
	}

	return harness.Handlers{
		TestSetup:    harness.Use[harness.TestSetupHandler](testSetup),
		TestTeardown: harness.Use[harness.TestTeardownHandler](testTeardown),
		TestFailure:  harness.Use(harness.VerboseTestFailure(w)),
		CaseSetup:    harness.Use[harness.CaseSetupHandler](caseSetup),
		CaseTeardown: harness.Use[harness.CaseTeardownHandler](caseTeardown),
	}
}

func seconds(d time.Duration) int {
	s := int(d / time.Second)
	if d%time.Second != 0 {
		s++
	}
	return s
}
