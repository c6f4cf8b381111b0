package harness

import (
	"fmt"
	"strings"
	"time"
)

// Repeat is the set of repeat flags a case requests for its next iteration.
type Repeat uint8

const (
	RepeatUndeclared    Repeat = 0
	RepeatNone          Repeat = 1 << 0
	RepeatOnTimeout     Repeat = 1 << 1
	RepeatOnValidate    Repeat = 1 << 2
	RepeatCaseOnly      Repeat = 1 << 3
	RepeatSetupTeardown Repeat = 1 << 4

	RepeatMask              = RepeatOnTimeout | RepeatOnValidate
	RepeatAllOnTimeout      = RepeatSetupTeardown | RepeatOnTimeout
	RepeatAllOnValidate     = RepeatSetupTeardown | RepeatOnValidate
	RepeatAll               = RepeatAllOnValidate
	RepeatHandlerOnTimeout  = RepeatCaseOnly | RepeatOnTimeout
	RepeatHandlerOnValidate = RepeatCaseOnly | RepeatOnValidate
	RepeatHandler           = RepeatHandlerOnValidate
)

var repeatNames = []struct {
	bit  Repeat
	name string
}{
	{RepeatNone, "none"},
	{RepeatOnTimeout, "on_timeout"},
	{RepeatOnValidate, "on_validate"},
	{RepeatCaseOnly, "case_only"},
	{RepeatSetupTeardown, "setup_teardown"},
}

// Has reports whether every bit of flag is set in r.
func (r Repeat) Has(flag Repeat) bool {
	return flag != 0 && r&flag == flag
}

// Any reports whether at least one bit of flags is set in r.
func (r Repeat) Any(flags Repeat) bool {
	return r&flags != 0
}

func (r Repeat) String() string {
	if r == RepeatUndeclared {
		return "undeclared"
	}
	var parts []string
	for _, rn := range repeatNames {
		if r&rn.bit != 0 {
			parts = append(parts, rn.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseRepeat maps a flag name (as produced by String) to its bit.
func ParseRepeat(name string) (Repeat, error) {
	switch name {
	case "undeclared":
		return RepeatUndeclared, nil
	case "all":
		return RepeatAll, nil
	case "handler":
		return RepeatHandler, nil
	}
	for _, rn := range repeatNames {
		if rn.name == name {
			return rn.bit, nil
		}
	}
	return 0, fmt.Errorf("unknown repeat flag %q", name)
}

type timeoutKind uint8

const (
	timeoutUndeclared timeoutKind = iota
	timeoutMillis
	timeoutForever
	timeoutNone
)

// Timeout is how long the harness waits for a case to validate itself.
// The zero value is TimeoutUndeclared.
type Timeout struct {
	kind timeoutKind
	ms   uint32
}

var (
	// TimeoutUndeclared expresses no opinion; combining with it keeps the other value.
	TimeoutUndeclared = Timeout{kind: timeoutUndeclared}
	// TimeoutForever waits for a validation with no deadline.
	TimeoutForever = Timeout{kind: timeoutForever}
	// TimeoutNone does not wait at all.
	TimeoutNone = Timeout{kind: timeoutNone}
)

// Millis returns a concrete timeout of ms milliseconds.
func Millis(ms uint32) Timeout {
	return Timeout{kind: timeoutMillis, ms: ms}
}

// IsUndeclared reports whether t is TimeoutUndeclared.
func (t Timeout) IsUndeclared() bool { return t.kind == timeoutUndeclared }

// IsForever reports whether t is TimeoutForever.
func (t Timeout) IsForever() bool { return t.kind == timeoutForever }

// IsNone reports whether t is TimeoutNone.
func (t Timeout) IsNone() bool { return t.kind == timeoutNone }

// IsConcrete reports whether t carries a millisecond value.
func (t Timeout) IsConcrete() bool { return t.kind == timeoutMillis }

// Millis returns the concrete value in milliseconds, or 0 for sentinels.
func (t Timeout) Millis() uint32 {
	if t.kind != timeoutMillis {
		return 0
	}
	return t.ms
}

// Duration converts a concrete timeout to a time.Duration.
func (t Timeout) Duration() time.Duration {
	return time.Duration(t.Millis()) * time.Millisecond
}

// rank orders timeouts for "lower timeout wins":
// concrete < forever < undeclared < none.
func (t Timeout) rank() uint64 {
	switch t.kind {
	case timeoutMillis:
		return uint64(t.ms)
	case timeoutForever:
		return 1 << 32
	case timeoutUndeclared:
		return 1<<32 + 1
	default:
		return 1<<32 + 2
	}
}

func (t Timeout) String() string {
	switch t.kind {
	case timeoutUndeclared:
		return "undeclared"
	case timeoutForever:
		return "forever"
	case timeoutNone:
		return "none"
	}
	return fmt.Sprintf("%dms", t.ms)
}

// Control describes the repeat policy and timeout of a case iteration.
// The zero value is fully undeclared.
type Control struct {
	Repeat  Repeat
	Timeout Timeout
}

// NewControl returns a control with repeat and timeout undeclared.
func NewControl() Control {
	return Control{}
}

// ControlRepeat returns a control that only declares a repeat policy.
func ControlRepeat(r Repeat) Control {
	return Control{Repeat: r}
}

// ControlTimeout returns a control that only declares a concrete timeout.
func ControlTimeout(ms uint32) Control {
	return Control{Timeout: Millis(ms)}
}

// ControlRepeatTimeout returns a control declaring both fields.
func ControlRepeatTimeout(r Repeat, ms uint32) Control {
	return Control{Repeat: r, Timeout: Millis(ms)}
}

var (
	// CaseNext finishes the case without waiting.
	CaseNext = Control{Repeat: RepeatNone, Timeout: TimeoutNone}
	// CaseNoRepeat forbids any repeat of the case.
	CaseNoRepeat = Control{Repeat: RepeatNone}
	// CaseRepeatAll repeats the case including its setup and teardown.
	CaseRepeatAll = Control{Repeat: RepeatAll}
	// CaseRepeatHandler repeats only the case handler.
	CaseRepeatHandler = Control{Repeat: RepeatHandler}
	// CaseNoTimeout finishes the handler without waiting.
	CaseNoTimeout = Control{Timeout: TimeoutNone}
	// CaseAwait waits forever for a ValidateCallback.
	CaseAwait = Control{Timeout: TimeoutForever}
)

// CaseTimeout waits up to ms milliseconds for a ValidateCallback.
func CaseTimeout(ms uint32) Control {
	return ControlTimeout(ms)
}

// CaseRepeatAllOnTimeout repeats setup, handler and teardown when ms elapses.
func CaseRepeatAllOnTimeout(ms uint32) Control {
	return ControlRepeatTimeout(RepeatAllOnTimeout, ms)
}

// CaseRepeatHandlerOnTimeout repeats only the handler when ms elapses.
func CaseRepeatHandlerOnTimeout(ms uint32) Control {
	return ControlRepeatTimeout(RepeatHandlerOnTimeout, ms)
}

// Combine arbitrates c (already accumulated) with rhs (newly supplied).
//
// Repeat flags are merged. A TimeoutNone on the right wins outright;
// otherwise the lower of the two timeouts is kept, except that a
// TimeoutNone on the left is sticky. RepeatNone overrides every other
// flag, RepeatSetupTeardown overrides RepeatCaseOnly, and RepeatOnTimeout
// is dropped when there is no timeout to repeat on.
func (c Control) Combine(rhs Control) Control {
	result := Control{
		Repeat:  c.Repeat | rhs.Repeat,
		Timeout: c.Timeout,
	}
	if rhs.Timeout.IsNone() {
		result.Timeout = rhs.Timeout
	}
	if !result.Timeout.IsNone() && result.Timeout.rank() > rhs.Timeout.rank() {
		result.Timeout = rhs.Timeout
	}

	if result.Repeat&RepeatNone != 0 {
		result.Repeat = RepeatNone
		return result
	}
	if result.Repeat&RepeatSetupTeardown != 0 {
		result.Repeat &^= RepeatCaseOnly
	}
	if result.Timeout.IsNone() && result.Repeat&RepeatOnTimeout != 0 {
		result.Repeat &^= RepeatOnTimeout
	}
	return result
}

// Repeating reports whether the control asks for the same case to run again.
func (c Control) Repeating() bool {
	return c.Repeat.Any(RepeatMask)
}

func (c Control) String() string {
	return fmt.Sprintf("repeat=%s timeout=%s", c.Repeat, c.Timeout)
}
