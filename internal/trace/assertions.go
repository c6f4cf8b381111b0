package trace

import (
	"fmt"
	"strings"
)

// Match selects events. Empty fields match anything.
type Match struct {
	Kind   Kind
	Case   string
	Reason string
}

// Matches reports whether e satisfies m.
func (m Match) Matches(e Event) bool {
	if m.Kind != "" && e.Kind != m.Kind {
		return false
	}
	if m.Case != "" && e.Case != m.Case {
		return false
	}
	if m.Reason != "" && !strings.Contains(e.Reason, m.Reason) {
		return false
	}
	return true
}

func (m Match) String() string {
	var parts []string
	if m.Kind != "" {
		parts = append(parts, string(m.Kind))
	}
	if m.Case != "" {
		parts = append(parts, fmt.Sprintf("case=%q", m.Case))
	}
	if m.Reason != "" {
		parts = append(parts, fmt.Sprintf("reason~%q", m.Reason))
	}
	if len(parts) == 0 {
		return "any event"
	}
	return strings.Join(parts, " ")
}

// AssertionError is returned when a trace assertion fails. It carries the
// full trace for context.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []Event
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s", ev.Seq, ev.Kind)
		if ev.Case != "" {
			fmt.Fprintf(&buf, " %q", ev.Case)
		}
		if ev.Reason != "" && ev.Reason != "None" {
			fmt.Fprintf(&buf, " (%s)", ev.Reason)
		}
		buf.WriteByte('\n')
	}
	return buf.String()
}

// Contains checks that at least one event matches m.
func Contains(events []Event, m Match) error {
	for _, e := range events {
		if m.Matches(e) {
			return nil
		}
	}
	return &AssertionError{
		Type:     "trace_contains",
		Expected: m.String(),
		Actual:   "not found in trace",
		Trace:    events,
	}
}

// Order checks that events matching each of ms appear in that order.
// Other events may appear in between; each match is searched for after
// the previous one.
func Order(events []Event, ms ...Match) error {
	pos := 0
	for i, m := range ms {
		found := -1
		for j := pos; j < len(events); j++ {
			if m.Matches(events[j]) {
				found = j
				break
			}
		}
		if found < 0 {
			actual := fmt.Sprintf("no %s after position %d", m, pos)
			if i == 0 {
				actual = fmt.Sprintf("missing %s", m)
			}
			return &AssertionError{
				Type:     "trace_order",
				Expected: fmt.Sprintf("events in order: %s", joinMatches(ms)),
				Actual:   actual,
				Trace:    events,
			}
		}
		pos = found + 1
	}
	return nil
}

// Count checks that exactly n events match m.
func Count(events []Event, m Match, n int) error {
	count := 0
	for _, e := range events {
		if m.Matches(e) {
			count++
		}
	}
	if count != n {
		return &AssertionError{
			Type:     "trace_count",
			Expected: fmt.Sprintf("%d occurrences of %s", n, m),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    events,
		}
	}
	return nil
}

func joinMatches(ms []Match) string {
	parts := make([]string, len(ms))
	for i, m := range ms {
		parts[i] = m.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
