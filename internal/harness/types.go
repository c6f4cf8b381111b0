package harness

import (
	"strconv"
	"strings"
)

// Reason is a bitset describing why a failure was raised.
type Reason uint32

const (
	ReasonNone         Reason = 0
	ReasonUnknown      Reason = 1 << 0
	ReasonCases        Reason = 1 << 1
	ReasonEmptyCase    Reason = 1 << 2
	ReasonTimeout      Reason = 1 << 3
	ReasonAssertion    Reason = 1 << 4
	ReasonTestSetup    Reason = 1 << 5
	ReasonTestTeardown Reason = 1 << 6
	ReasonCaseSetup    Reason = 1 << 7
	ReasonCaseHandler  Reason = 1 << 8
	ReasonCaseTeardown Reason = 1 << 9
	ReasonCaseIndex    Reason = 1 << 10
	ReasonScheduler    Reason = 1 << 11

	// ReasonIgnore marks a failure that the case-failure handler should not
	// count against the case.
	ReasonIgnore Reason = 0x8000
)

var reasonNames = []struct {
	bit  Reason
	name string
}{
	{ReasonUnknown, "Unknown"},
	{ReasonCases, "Test Cases Failed"},
	{ReasonEmptyCase, "Empty Test Case"},
	{ReasonTimeout, "Timed Out"},
	{ReasonAssertion, "Assertion Failed"},
	{ReasonTestSetup, "Test Setup Failed"},
	{ReasonTestTeardown, "Test Teardown Failed"},
	{ReasonCaseSetup, "Case Setup Failed"},
	{ReasonCaseHandler, "Case Handler Failed"},
	{ReasonCaseTeardown, "Case Teardown Failed"},
	{ReasonCaseIndex, "Case Index Invalid"},
	{ReasonScheduler, "Scheduler Error"},
}

// Has reports whether every bit of flag is set in r.
func (r Reason) Has(flag Reason) bool {
	return flag != 0 && r&flag == flag
}

// String renders the reason the way the verbose handlers print it,
// e.g. "Ignored: Timed Out" or "Case Setup Failed | Assertion Failed".
func (r Reason) String() string {
	if r == ReasonNone {
		return "None"
	}

	var parts []string
	for _, rn := range reasonNames {
		if r&rn.bit != 0 {
			parts = append(parts, rn.name)
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "Unknown")
	}

	s := strings.Join(parts, " | ")
	if r&ReasonIgnore != 0 {
		return "Ignored: " + s
	}
	return s
}

// Location identifies which part of the run raised a failure.
type Location int

const (
	LocationNone Location = iota
	LocationTestSetup
	LocationTestTeardown
	LocationCaseSetup
	LocationCaseHandler
	LocationCaseTeardown
	LocationUnknown
)

func (l Location) String() string {
	switch l {
	case LocationNone:
		return "No Location"
	case LocationTestSetup:
		return "Test Setup Handler"
	case LocationTestTeardown:
		return "Test Teardown Handler"
	case LocationCaseSetup:
		return "Case Setup Handler"
	case LocationCaseHandler:
		return "Case Handler"
	case LocationCaseTeardown:
		return "Case Teardown Handler"
	default:
		return "Unknown Location"
	}
}

// Failure pairs a reason with the location it was raised from.
type Failure struct {
	Reason   Reason
	Location Location
}

// NewFailure creates a failure for reason at location.
func NewFailure(reason Reason, location Location) Failure {
	return Failure{Reason: reason, Location: location}
}

// Ignored reports whether the failure carries the ignore modifier.
func (f Failure) Ignored() bool {
	return f.Reason&ReasonIgnore != 0
}

// Ignore returns a copy of f with the ignore modifier set.
func (f Failure) Ignore() Failure {
	f.Reason |= ReasonIgnore
	return f
}

func (f Failure) String() string {
	if f.Reason == ReasonNone {
		return "None"
	}
	return f.Reason.String() + " during " + f.Location.String()
}

// Status is returned by setup, teardown and failure handlers. Non-negative
// values returned by test setup and case teardown double as a case index.
type Status int

const (
	StatusContinue Status = 0
	StatusIgnore   Status = -1
	StatusAbort    Status = -2
)

func (s Status) String() string {
	switch s {
	case StatusContinue:
		return "continue"
	case StatusIgnore:
		return "ignore"
	case StatusAbort:
		return "abort"
	}
	if s > 0 {
		return "index " + strconv.Itoa(int(s))
	}
	return "invalid"
}
