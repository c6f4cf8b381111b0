package harness

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// step names a unit of work the harness posts to its scheduler. Every
// transition of the state machine is a post of one of these, so the call
// stack never grows with the number of cases or repeats.
type step uint8

const (
	stepRunNextCase step = iota + 1
	stepScheduleNextCase
	stepHandleTimeout
)

func (s step) String() string {
	switch s {
	case stepRunNextCase:
		return "run_next_case"
	case stepScheduleNextCase:
		return "schedule_next_case"
	case stepHandleTimeout:
		return "handle_timeout"
	}
	return "unknown"
}

// Harness drives a Specification through its cases on an injected Scheduler.
//
// Thread-safety model:
//   - Steps run on the scheduler's run loop, one at a time.
//   - ValidateCallback and RaiseFailure may be called from any goroutine.
//   - mu guards the run state and is never held while a user handler or a
//     case body runs, so handlers may call back into the harness.
type Harness struct {
	mu sync.Mutex

	scheduler Scheduler // set by SetScheduler / WithScheduler
	sched     Scheduler // captured for the duration of a run
	exit      func(code int)
	logger    *slog.Logger

	active   bool
	spec     *Specification
	cases    []Case
	index    int // -1 during test setup
	redirect int // next case index requested by a case teardown, -1 if none
	handlers resolved
	location Location

	casePassed   int
	caseFailed   int
	failedBefore int
	passedTotal  int
	failedTotal  int

	control         Control
	repeatCount     int
	validationCount int
	timeoutHandle   Handle
	timeoutOccurred bool
}

// Option configures a Harness.
type Option func(*Harness)

// WithScheduler sets the scheduler. Incomplete schedulers are ignored here
// and reported by Run.
func WithScheduler(s Scheduler) Option {
	return func(h *Harness) { h.scheduler = s }
}

// WithExit replaces the process exit called when a run ends. The default is
// os.Exit; the hook is always called with the number of failed cases (at
// least 1 when the run was aborted).
func WithExit(exit func(code int)) Option {
	return func(h *Harness) { h.exit = exit }
}

// WithLogger sets the structured logger for state transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) { h.logger = logger }
}

// New creates an idle harness.
func New(opts ...Option) *Harness {
	h := &Harness{
		exit:     os.Exit,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		index:    -1,
		redirect: -1,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetScheduler replaces the scheduler. It fails when s is nil or does not
// provide all four operations. It must not be called during a run.
func (h *Harness) SetScheduler(s Scheduler) error {
	if !schedulerComplete(s) {
		return ErrSchedulerIncomplete
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scheduler = s
	return nil
}

// IsBusy reports whether a case of a run is current.
func (h *Harness) IsBusy() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.busyLocked()
}

func (h *Harness) busyLocked() bool {
	return h.active && h.cases != nil && h.index >= 0 && h.index < len(h.cases)
}

// Run executes spec. It initialises the scheduler, runs the test setup
// handler and then blocks in the scheduler's Run until the scheduler
// returns. The run itself ends through the exit hook.
func (h *Harness) Run(spec *Specification) error {
	if spec == nil {
		return ErrNilSpecification
	}
	h.mu.Lock()
	if h.active {
		h.mu.Unlock()
		return ErrBusy
	}
	if !schedulerComplete(h.scheduler) {
		h.mu.Unlock()
		return ErrSchedulerIncomplete
	}
	sched := h.scheduler
	h.mu.Unlock()

	if err := sched.Init(); err != nil {
		return fmt.Errorf("harness: init scheduler: %w", err)
	}

	h.mu.Lock()
	h.sched = sched
	h.active = true
	h.spec = spec
	h.cases = spec.Cases
	if h.cases == nil {
		h.cases = []Case{}
	}
	h.index = -1
	h.redirect = -1
	h.handlers = resolved{}
	h.handlers.testSetup, _ = Resolve(spec.Setup, spec.Defaults.TestSetup)
	h.handlers.testTeardown, _ = Resolve(spec.Teardown, spec.Defaults.TestTeardown)
	h.handlers.testFailure, _ = Resolve(spec.Failure, spec.Defaults.TestFailure)
	h.location = LocationTestSetup
	h.passedTotal, h.failedTotal = 0, 0
	h.resetCaseLocked()
	setup := h.handlers.testSetup
	total := len(h.cases)
	h.mu.Unlock()

	h.logger.Info("harness starting", "cases", total)

	status := StatusContinue
	if setup != nil {
		status = setup(total)
	}

	switch {
	case status < StatusContinue:
		h.abortSuite(NewFailure(ReasonTestSetup, LocationTestSetup), false)
		return nil
	case int(status) > total:
		h.abortSuite(NewFailure(ReasonCaseIndex, LocationTestSetup), false)
		return nil
	}

	h.mu.Lock()
	h.index = int(status)
	posted := h.post(stepRunNextCase, 0)
	h.mu.Unlock()

	if posted == 0 {
		h.abortSuite(NewFailure(ReasonScheduler, LocationUnknown), false)
		return nil
	}

	if err := sched.Run(); err != nil {
		h.logger.Error("scheduler failed", "error", err)
		h.abortSuite(NewFailure(ReasonScheduler, LocationUnknown), false)
	}
	return nil
}

// resetCaseLocked clears the per-case state before a case starts.
func (h *Harness) resetCaseLocked() {
	h.casePassed, h.caseFailed, h.failedBefore = 0, 0, 0
	h.control = ControlRepeat(RepeatSetupTeardown)
	h.repeatCount = 0
	h.validationCount = 0
	h.timeoutOccurred = false
	h.timeoutHandle = 0
}

// post schedules s on the run's scheduler. Callers hold mu.
func (h *Harness) post(s step, delay time.Duration) Handle {
	return h.sched.Post(func() { h.dispatch(s) }, delay)
}

func (h *Harness) dispatch(s step) {
	h.logger.Debug("harness step", "step", s)
	switch s {
	case stepRunNextCase:
		h.runNextCase()
	case stepScheduleNextCase:
		h.scheduleNextCase()
	case stepHandleTimeout:
		h.handleTimeout()
	}
}

func (h *Harness) runNextCase() {
	h.mu.Lock()
	if !h.active {
		h.mu.Unlock()
		return
	}
	if h.index >= len(h.cases) {
		h.mu.Unlock()
		h.finish()
		return
	}

	index := h.index
	c := &h.cases[index]
	defaults := h.spec.Defaults
	h.handlers.caseSetup, _ = Resolve(c.Setup, defaults.CaseSetup)
	h.handlers.caseTeardown, _ = Resolve(c.Teardown, defaults.CaseTeardown)
	h.handlers.caseFailure, _ = Resolve(c.Failure, defaults.CaseFailure)

	h.failedBefore = h.caseFailed
	h.validationCount = 0
	h.timeoutOccurred = false

	if c.IsEmpty() {
		h.location = LocationUnknown
		h.mu.Unlock()
		h.RaiseFailure(ReasonEmptyCase)
		h.scheduleNextCase()
		return
	}

	runSetup := h.control.Repeat&RepeatSetupTeardown != 0
	if runSetup {
		h.control = Control{}
		h.location = LocationCaseSetup
	}
	setup := h.handlers.caseSetup
	h.mu.Unlock()

	if runSetup {
		status := StatusContinue
		if setup != nil {
			status = setup(c, index)
		}
		if status != StatusContinue {
			h.RaiseFailure(ReasonCaseSetup)
			h.scheduleNextCase()
			return
		}
	}

	h.mu.Lock()
	if !h.active {
		h.mu.Unlock()
		return
	}
	h.failedBefore = h.caseFailed
	h.location = LocationCaseHandler
	call := h.repeatCount
	h.mu.Unlock()

	var ctrl Control
	switch {
	case c.Handler != nil:
		c.Handler()
		ctrl = CaseNext
	case c.ControlHandler != nil:
		ctrl = c.ControlHandler()
	default:
		ctrl = c.RepeatCountHandler(call)
	}

	h.mu.Lock()
	if !h.active {
		h.mu.Unlock()
		return
	}
	h.repeatCount++
	h.control = h.control.Combine(ctrl)
	if h.validationCount > 0 {
		h.control.Repeat &^= RepeatOnTimeout
	}

	awaiting := h.validationCount == 0 &&
		(h.control.Timeout.IsConcrete() || h.control.Timeout.IsForever())
	switch {
	case !awaiting:
		h.post(stepScheduleNextCase, 0)
		h.mu.Unlock()
		return
	case h.control.Timeout.IsForever():
		h.mu.Unlock()
		h.logger.Debug("case awaiting validation", "case", c.Description)
		return
	}

	timeout := h.control.Timeout
	h.timeoutHandle = h.post(stepHandleTimeout, timeout.Duration())
	scheduled := h.timeoutHandle != 0
	h.mu.Unlock()

	if !scheduled {
		h.RaiseFailure(ReasonScheduler)
		h.scheduleNextCase()
		return
	}
	h.logger.Debug("case awaiting validation", "case", c.Description, "timeout", timeout)
}

func (h *Harness) scheduleNextCase() {
	h.mu.Lock()
	if !h.busyLocked() {
		h.mu.Unlock()
		return
	}
	c := &h.cases[h.index]
	if !h.timeoutOccurred && h.failedBefore == h.caseFailed {
		h.casePassed++
	}

	runTeardown := h.control.Repeat&RepeatSetupTeardown != 0 || !h.control.Repeating()
	teardown := h.handlers.caseTeardown
	passed, failed := h.casePassed, h.caseFailed
	if runTeardown {
		h.location = LocationCaseTeardown
	}
	h.mu.Unlock()

	if runTeardown && teardown != nil {
		failure := NewFailure(ReasonNone, LocationNone)
		if failed > 0 {
			failure = NewFailure(ReasonCases, LocationUnknown)
		}
		h.applyTeardownStatus(teardown(c, passed, failed, failure))
	}

	h.mu.Lock()
	if !h.active {
		h.mu.Unlock()
		return
	}

	if !h.control.Repeating() {
		if h.caseFailed > 0 {
			h.failedTotal++
		} else {
			h.passedTotal++
		}
		h.logger.Info("case finished",
			"case", c.Description,
			"passed", h.casePassed,
			"failed", h.caseFailed,
		)

		next := h.index + 1
		if h.redirect >= 0 {
			next = h.redirect
		}
		h.index = next
		h.redirect = -1
		h.resetCaseLocked()
	}

	posted := h.post(stepRunNextCase, 0)
	index := h.index
	h.mu.Unlock()

	if posted == 0 {
		h.logger.Error("failed to post next case", "index", index)
		h.abortSuite(NewFailure(ReasonScheduler, LocationUnknown), false)
	}
}

// applyTeardownStatus interprets a case teardown's return value: negative
// is a teardown failure, larger than the case count is an invalid index, a
// positive value selects the next case.
func (h *Harness) applyTeardownStatus(status Status) {
	h.mu.Lock()
	total := len(h.cases)
	h.mu.Unlock()

	switch {
	case status < StatusContinue:
		h.RaiseFailure(ReasonCaseTeardown)
	case int(status) > total:
		h.RaiseFailure(ReasonCaseIndex)
	case status > StatusContinue:
		h.mu.Lock()
		h.redirect = int(status)
		h.mu.Unlock()
	}
}

func (h *Harness) handleTimeout() {
	h.mu.Lock()
	if !h.active || h.timeoutHandle == 0 {
		h.mu.Unlock()
		return
	}
	h.timeoutHandle = 0
	h.timeoutOccurred = true
	reason := ReasonTimeout
	if h.control.Repeat&RepeatOnTimeout != 0 {
		reason |= ReasonIgnore
	}
	h.mu.Unlock()

	h.RaiseFailure(reason)

	h.mu.Lock()
	if h.active {
		h.post(stepScheduleNextCase, 0)
	}
	h.mu.Unlock()
}

// ValidateCallback completes a case that is waiting for an asynchronous
// result. ctrl is arbitrated into the case's control. Calls while nothing is
// waiting only count as a validation.
func (h *Harness) ValidateCallback(ctrl Control) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.active {
		return
	}

	h.validationCount++
	if h.timeoutHandle == 0 && !h.control.Timeout.IsForever() {
		return
	}

	if h.timeoutHandle != 0 {
		if err := h.sched.Cancel(h.timeoutHandle); err != nil {
			h.logger.Warn("failed to cancel timeout", "error", err)
		}
		h.timeoutHandle = 0
	}
	merged := h.control.Combine(ctrl)
	h.control.Repeat = merged.Repeat &^ RepeatOnTimeout
	h.control.Timeout = TimeoutUndeclared
	h.post(stepScheduleNextCase, 0)
}

// RaiseFailure reports a failure for the current case. During the test setup
// handler only the test failure handler sees it; the setup's return status
// decides whether the run goes on. It does nothing when no run is active, so
// assertions may be used without a harness.
func (h *Harness) RaiseFailure(reason Reason) {
	h.mu.Lock()
	if h.active && h.index < 0 {
		failure := NewFailure(reason, h.location)
		testFailure := h.handlers.testFailure
		h.mu.Unlock()

		h.logger.Warn("failure raised", "failure", failure)
		if testFailure != nil {
			testFailure(failure)
		}
		return
	}
	if !h.busyLocked() {
		h.mu.Unlock()
		return
	}
	c := &h.cases[h.index]
	location := h.location
	failure := NewFailure(reason, location)
	testFailure := h.handlers.testFailure
	caseFailure := h.handlers.caseFailure
	h.mu.Unlock()

	h.logger.Warn("failure raised", "case", c.Description, "failure", failure)

	if testFailure != nil {
		testFailure(failure)
	}
	status := StatusAbort
	if caseFailure != nil {
		status = caseFailure(c, failure)
	}

	h.mu.Lock()
	if !h.active {
		h.mu.Unlock()
		return
	}
	if status != StatusIgnore {
		h.caseFailed++
	}
	if status == StatusAbort && h.timeoutHandle != 0 {
		if err := h.sched.Cancel(h.timeoutHandle); err != nil {
			h.logger.Warn("failed to cancel timeout", "error", err)
		}
		h.timeoutHandle = 0
	}

	teardown := h.handlers.caseTeardown
	runTeardown := (status == StatusAbort || reason&ReasonCaseSetup != 0) &&
		teardown != nil && h.location != LocationCaseTeardown
	passed, failed := h.casePassed, h.caseFailed
	if runTeardown {
		// Cleared first so a failing teardown cannot run twice.
		h.handlers.caseTeardown = nil
		h.location = LocationCaseTeardown
	}
	h.mu.Unlock()

	if runTeardown {
		h.applyTeardownStatus(teardown(c, passed, failed, failure))
		h.mu.Lock()
		if h.active {
			h.location = location
		}
		h.mu.Unlock()
	}

	if status != StatusAbort {
		return
	}

	h.mu.Lock()
	if !h.active {
		h.mu.Unlock()
		return
	}
	h.failedTotal++
	h.mu.Unlock()
	h.abortSuite(failure, true)
}

// abortSuite ends the run on an unrecoverable failure: test teardown with
// the current totals, then exit. reported is true when the test failure
// handler has already seen failure.
func (h *Harness) abortSuite(failure Failure, reported bool) {
	h.mu.Lock()
	if !h.active {
		h.mu.Unlock()
		return
	}
	testFailure := h.handlers.testFailure
	teardown := h.handlers.testTeardown
	h.location = LocationTestTeardown
	passed, failed := h.passedTotal, h.failedTotal
	h.mu.Unlock()

	h.logger.Error("harness aborting", "failure", failure, "passed", passed, "failed", failed)

	if !reported && testFailure != nil {
		testFailure(failure)
	}
	if teardown != nil {
		teardown(passed, failed, failure)
	}

	code := failed
	if code == 0 {
		code = 1
	}
	h.end(code)
}

// finish runs the test teardown after the last case.
func (h *Harness) finish() {
	h.mu.Lock()
	h.location = LocationTestTeardown
	teardown := h.handlers.testTeardown
	passed, failed := h.passedTotal, h.failedTotal
	h.mu.Unlock()

	h.logger.Info("harness finished", "passed", passed, "failed", failed)

	if teardown != nil {
		failure := NewFailure(ReasonNone, LocationNone)
		if failed > 0 {
			failure = NewFailure(ReasonCases, LocationUnknown)
		}
		teardown(passed, failed, failure)
	}
	h.end(failed)
}

// end clears the run and calls the exit hook.
func (h *Harness) end(code int) {
	h.mu.Lock()
	if h.timeoutHandle != 0 {
		_ = h.sched.Cancel(h.timeoutHandle)
		h.timeoutHandle = 0
	}
	h.active = false
	h.spec = nil
	h.cases = nil
	h.index = -1
	h.handlers = resolved{}
	exit := h.exit
	h.mu.Unlock()

	exit(code)
}
