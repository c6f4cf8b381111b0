package suite

import (
	"fmt"

	"github.com/roach88/utest/internal/trace"
)

// Validate checks the fields the schema cannot: names, status and control
// values, failure reasons and assertion shapes.
func Validate(s *Suite) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	switch s.Handlers {
	case "", HandlersVerbose, HandlersSelftest, HandlersGreentea, HandlersGreenteaAbort:
	default:
		return fmt.Errorf("unknown handler table %q", s.Handlers)
	}

	switch s.Scheduler {
	case "", SchedulerVirtual, SchedulerRealtime:
	default:
		return fmt.Errorf("unknown scheduler %q", s.Scheduler)
	}

	if s.TimeoutMs < 0 {
		return fmt.Errorf("timeout_ms must be non-negative")
	}

	if st, err := parseStatus(s.Setup); err != nil {
		return fmt.Errorf("setup: %w", err)
	} else if st.useDefault || st.ignore {
		return fmt.Errorf("setup: %q is only valid for case handlers", s.Setup)
	}

	for i := range s.Cases {
		if err := validateCase(&s.Cases[i]); err != nil {
			return fmt.Errorf("cases[%d]: %w", i, err)
		}
	}

	if e := s.Expect; e != nil {
		for name, v := range map[string]*int{"passed": e.Passed, "failed": e.Failed, "exit_code": e.ExitCode} {
			if v != nil && *v < 0 {
				return fmt.Errorf("expect.%s must be non-negative", name)
			}
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateCase(c *CaseDef) error {
	if c.Description == "" {
		return fmt.Errorf("description is required")
	}

	kind := c.kind()
	switch kind {
	case KindPlain, KindControl, KindRepeat:
	case KindEmpty:
		if len(c.Calls) > 0 {
			return fmt.Errorf("empty case cannot have calls")
		}
	default:
		return fmt.Errorf("unknown kind %q", c.Kind)
	}

	for name, v := range map[string]string{"setup": c.Setup, "teardown": c.Teardown, "failure": c.Failure} {
		if _, err := parseStatus(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	for i, call := range c.Calls {
		if call.Return != nil {
			if kind == KindPlain {
				return fmt.Errorf("calls[%d]: plain case cannot return a control", i)
			}
			if _, err := call.Return.control(); err != nil {
				return fmt.Errorf("calls[%d].return: %w", i, err)
			}
		}
		if call.Fail != "" {
			if _, err := parseReason(call.Fail); err != nil {
				return fmt.Errorf("calls[%d].fail: %w", i, err)
			}
		}
		if v := call.Validate; v != nil {
			if v.AfterMs < 0 {
				return fmt.Errorf("calls[%d].validate: after_ms must be non-negative", i)
			}
			if v.Inline && v.AfterMs > 0 {
				return fmt.Errorf("calls[%d].validate: inline cannot be delayed", i)
			}
			if _, err := parseNamedControl(v.Control); err != nil {
				return fmt.Errorf("calls[%d].validate: %w", i, err)
			}
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Kind == "" && a.Case == "" && a.Reason == "" {
			return fmt.Errorf("assertions[%d]: kind, case or reason is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Kinds) == 0 && len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: kinds or events list is required for trace_order", index)
		}
		for _, k := range a.Kinds {
			if _, err := trace.ParseKind(k); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		}
		for _, m := range a.Events {
			if m.Kind == "" {
				continue
			}
			if _, err := trace.ParseKind(m.Kind); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		}
	case AssertTraceCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for trace_count", index)
		}
		if *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.Kind != "" {
		if _, err := trace.ParseKind(a.Kind); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	}
	return nil
}
