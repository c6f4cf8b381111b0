package trace

import (
	"sync"
	"sync/atomic"

	"github.com/roach88/utest/internal/harness"
)

// Clock supplies event sequence numbers.
type Clock interface {
	Next() int64
}

type seqClock struct{ seq atomic.Int64 }

func (c *seqClock) Next() int64 { return c.seq.Add(1) }

// Recorder collects events from wrapped handlers. It is safe for
// concurrent use.
type Recorder struct {
	mu     sync.Mutex
	clock  Clock
	events []Event
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithClock sets the sequence source. The default counts from 1.
func WithClock(c Clock) RecorderOption {
	return func(r *Recorder) { r.clock = c }
}

// NewRecorder creates an empty recorder.
func NewRecorder(opts ...RecorderOption) *Recorder {
	r := &Recorder{clock: &seqClock{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends e, stamping its sequence number.
func (r *Recorder) Record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.Seq = r.clock.Next()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Reset drops all events. The clock is not rewound.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Exit records the exit code of a run.
func (r *Recorder) Exit(code int) {
	r.Record(Event{Kind: KindExit, Code: code})
}

// Validate records a validation delivered to the case named c.
func (r *Recorder) Validate(c string, ctrl harness.Control) {
	r.Record(Event{Kind: KindValidate, Case: c, Control: ctrl.String()})
}

// Wrap returns a copy of h whose concrete handlers also record their
// calls. Default and ignore references are kept as they are.
func (r *Recorder) Wrap(h harness.Handlers) harness.Handlers {
	h.TestSetup = r.wrapTestSetup(h.TestSetup)
	h.TestTeardown = r.wrapTestTeardown(h.TestTeardown)
	h.TestFailure = r.wrapTestFailure(h.TestFailure)
	h.CaseSetup = r.wrapCaseSetup(h.CaseSetup)
	h.CaseTeardown = r.wrapCaseTeardown(h.CaseTeardown)
	h.CaseFailure = r.wrapCaseFailure(h.CaseFailure)
	return h
}

// WrapSpecification wraps, in place, the suite handlers, the defaults table
// and the per-case overrides of spec.
func (r *Recorder) WrapSpecification(spec *harness.Specification) {
	spec.Setup = r.wrapTestSetup(spec.Setup)
	spec.Teardown = r.wrapTestTeardown(spec.Teardown)
	spec.Failure = r.wrapTestFailure(spec.Failure)
	spec.Defaults = r.Wrap(spec.Defaults)
	for i := range spec.Cases {
		c := &spec.Cases[i]
		c.Setup = r.wrapCaseSetup(c.Setup)
		c.Teardown = r.wrapCaseTeardown(c.Teardown)
		c.Failure = r.wrapCaseFailure(c.Failure)
	}
}

func (r *Recorder) wrapTestSetup(ref harness.HandlerRef[harness.TestSetupHandler]) harness.HandlerRef[harness.TestSetupHandler] {
	fn, ok := ref.Func()
	if !ok {
		return ref
	}
	return harness.Use[harness.TestSetupHandler](func(n int) harness.Status {
		status := fn(n)
		r.Record(Event{Kind: KindTestSetup, Index: n, Status: status.String()})
		return status
	})
}

func (r *Recorder) wrapTestTeardown(ref harness.HandlerRef[harness.TestTeardownHandler]) harness.HandlerRef[harness.TestTeardownHandler] {
	fn, ok := ref.Func()
	if !ok {
		return ref
	}
	return harness.Use[harness.TestTeardownHandler](func(passed, failed int, failure harness.Failure) {
		r.Record(Event{Kind: KindTestTeardown, Passed: passed, Failed: failed, Reason: failure.Reason.String()})
		fn(passed, failed, failure)
	})
}

func (r *Recorder) wrapTestFailure(ref harness.HandlerRef[harness.TestFailureHandler]) harness.HandlerRef[harness.TestFailureHandler] {
	fn, ok := ref.Func()
	if !ok {
		return ref
	}
	return harness.Use[harness.TestFailureHandler](func(failure harness.Failure) {
		r.Record(Event{Kind: KindTestFailure, Reason: failure.Reason.String(), Location: failure.Location.String()})
		fn(failure)
	})
}

func (r *Recorder) wrapCaseSetup(ref harness.HandlerRef[harness.CaseSetupHandler]) harness.HandlerRef[harness.CaseSetupHandler] {
	fn, ok := ref.Func()
	if !ok {
		return ref
	}
	return harness.Use[harness.CaseSetupHandler](func(source *harness.Case, index int) harness.Status {
		status := fn(source, index)
		r.Record(Event{Kind: KindCaseSetup, Case: source.Description, Index: index, Status: status.String()})
		return status
	})
}

func (r *Recorder) wrapCaseTeardown(ref harness.HandlerRef[harness.CaseTeardownHandler]) harness.HandlerRef[harness.CaseTeardownHandler] {
	fn, ok := ref.Func()
	if !ok {
		return ref
	}
	return harness.Use[harness.CaseTeardownHandler](func(source *harness.Case, passed, failed int, failure harness.Failure) harness.Status {
		status := fn(source, passed, failed, failure)
		r.Record(Event{
			Kind:   KindCaseTeardown,
			Case:   source.Description,
			Passed: passed,
			Failed: failed,
			Reason: failure.Reason.String(),
			Status: status.String(),
		})
		return status
	})
}

func (r *Recorder) wrapCaseFailure(ref harness.HandlerRef[harness.CaseFailureHandler]) harness.HandlerRef[harness.CaseFailureHandler] {
	fn, ok := ref.Func()
	if !ok {
		return ref
	}
	return harness.Use[harness.CaseFailureHandler](func(source *harness.Case, failure harness.Failure) harness.Status {
		status := fn(source, failure)
		r.Record(Event{
			Kind:     KindCaseFailure,
			Case:     source.Description,
			Reason:   failure.Reason.String(),
			Location: failure.Location.String(),
			Status:   status.String(),
		})
		return status
	})
}
