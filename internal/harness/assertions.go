package harness

import (
	"fmt"

	"github.com/stretchr/testify/assert"
)

// Fail raises an assertion failure for the current case. It is a no-op
// outside a run.
func (h *Harness) Fail(msg string, args ...any) {
	if !h.IsBusy() {
		return
	}
	h.logger.Warn("assertion failed", "message", fmt.Sprintf(msg, args...))
	h.RaiseFailure(ReasonAssertion)
}

// Assert raises an assertion failure when cond is false and reports cond.
func (h *Harness) Assert(cond bool, msg string, args ...any) bool {
	if !cond {
		h.Fail(msg, args...)
	}
	return cond
}

// AssertEqual raises an assertion failure unless expected and actual are
// equal, using the same equality as testify's assert.Equal.
func (h *Harness) AssertEqual(expected, actual any) bool {
	if assert.ObjectsAreEqual(expected, actual) {
		return true
	}
	h.Fail("not equal: expected %#v, actual %#v", expected, actual)
	return false
}

// AssertNoError raises an assertion failure when err is not nil.
func (h *Harness) AssertNoError(err error) bool {
	if err == nil {
		return true
	}
	h.Fail("unexpected error: %v", err)
	return false
}

// Case returns the case at index of the current run.
func (h *Harness) Case(index int) (*Case, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.active || index < 0 || index >= len(h.cases) {
		return nil, false
	}
	return &h.cases[index], true
}
