package suite

import (
	"errors"
	"fmt"

	"github.com/roach88/utest/internal/trace"
)

// Check verifies the suite's expect block and assertions against res.
// All failures are reported, joined.
func Check(s *Suite, res *Result) error {
	var errs []error

	if e := s.Expect; e != nil {
		for _, f := range []struct {
			name   string
			want   *int
			actual int
		}{
			{"passed", e.Passed, res.Passed},
			{"failed", e.Failed, res.Failed},
			{"exit_code", e.ExitCode, res.ExitCode},
		} {
			if f.want != nil && *f.want != f.actual {
				errs = append(errs, &trace.AssertionError{
					Type:     "expect." + f.name,
					Expected: fmt.Sprintf("%d", *f.want),
					Actual:   fmt.Sprintf("%d", f.actual),
					Trace:    res.Events,
				})
			}
		}
	}

	for i, a := range s.Assertions {
		if err := checkAssertion(a, res.Events); err != nil {
			errs = append(errs, fmt.Errorf("assertions[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func checkAssertion(a Assertion, events []trace.Event) error {
	m := trace.Match{Kind: trace.Kind(a.Kind), Case: a.Case, Reason: a.Reason}
	switch a.Type {
	case AssertTraceContains:
		return trace.Contains(events, m)
	case AssertTraceCount:
		n := 0
		if a.Count != nil {
			n = *a.Count
		}
		return trace.Count(events, m, n)
	case AssertTraceOrder:
		var ms []trace.Match
		if len(a.Events) > 0 {
			for _, e := range a.Events {
				ms = append(ms, trace.Match{Kind: trace.Kind(e.Kind), Case: e.Case, Reason: e.Reason})
			}
		} else {
			for _, k := range a.Kinds {
				ms = append(ms, trace.Match{Kind: trace.Kind(k), Case: a.Case})
			}
		}
		return trace.Order(events, ms...)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}
