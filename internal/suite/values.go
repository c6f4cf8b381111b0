package suite

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/utest/internal/harness"
)

// statusOverride is a parsed status field. useDefault and ignore select
// the handler reference; otherwise status is returned after the table
// handler ran.
type statusOverride struct {
	set        bool
	useDefault bool
	ignore     bool
	status     harness.Status
}

func parseStatus(s string) (statusOverride, error) {
	switch s {
	case "":
		return statusOverride{}, nil
	case "default":
		return statusOverride{set: true, useDefault: true}, nil
	case "ignore_handler":
		return statusOverride{set: true, ignore: true}, nil
	case "continue":
		return statusOverride{set: true, status: harness.StatusContinue}, nil
	case "ignore":
		return statusOverride{set: true, status: harness.StatusIgnore}, nil
	case "abort":
		return statusOverride{set: true, status: harness.StatusAbort}, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return statusOverride{}, fmt.Errorf("unknown status %q", s)
	}
	return statusOverride{set: true, status: harness.Status(n)}, nil
}

func parseTimeout(s string) (harness.Timeout, error) {
	switch s {
	case "", "undeclared":
		return harness.TimeoutUndeclared, nil
	case "forever":
		return harness.TimeoutForever, nil
	case "none":
		return harness.TimeoutNone, nil
	}
	ms, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return harness.Timeout{}, fmt.Errorf("invalid timeout %q", s)
	}
	return harness.Millis(uint32(ms)), nil
}

func (d *ControlDef) control() (harness.Control, error) {
	var ctrl harness.Control
	if d == nil {
		return ctrl, nil
	}
	for _, name := range d.Repeat {
		r, err := harness.ParseRepeat(name)
		if err != nil {
			return ctrl, err
		}
		ctrl.Repeat |= r
	}
	t, err := parseTimeout(d.Timeout)
	if err != nil {
		return ctrl, err
	}
	ctrl.Timeout = t
	return ctrl, nil
}

var namedControls = map[string]harness.Control{
	"":               harness.NewControl(),
	"next":           harness.CaseNext,
	"no_repeat":      harness.CaseNoRepeat,
	"repeat_all":     harness.CaseRepeatAll,
	"repeat_handler": harness.CaseRepeatHandler,
}

func parseNamedControl(s string) (harness.Control, error) {
	ctrl, ok := namedControls[s]
	if !ok {
		return harness.Control{}, fmt.Errorf("unknown control %q", s)
	}
	return ctrl, nil
}

var reasonBits = map[string]harness.Reason{
	"unknown":       harness.ReasonUnknown,
	"cases":         harness.ReasonCases,
	"empty_case":    harness.ReasonEmptyCase,
	"timeout":       harness.ReasonTimeout,
	"assertion":     harness.ReasonAssertion,
	"test_setup":    harness.ReasonTestSetup,
	"test_teardown": harness.ReasonTestTeardown,
	"case_setup":    harness.ReasonCaseSetup,
	"case_handler":  harness.ReasonCaseHandler,
	"case_teardown": harness.ReasonCaseTeardown,
	"case_index":    harness.ReasonCaseIndex,
	"scheduler":     harness.ReasonScheduler,
	"ignore":        harness.ReasonIgnore,
}

// parseReason accepts names joined by "|", e.g. "ignore|assertion".
func parseReason(s string) (harness.Reason, error) {
	var r harness.Reason
	for _, part := range strings.Split(s, "|") {
		bit, ok := reasonBits[strings.TrimSpace(part)]
		if !ok {
			return 0, fmt.Errorf("unknown failure reason %q", part)
		}
		r |= bit
	}
	return r, nil
}
