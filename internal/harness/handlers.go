package harness

// Handler kinds. Setup and teardown statuses follow the Status convention:
// negative values are failures, non-negative values are case indices.
type (
	// TestSetupHandler runs once before any case, with the total case count.
	TestSetupHandler func(numberOfCases int) Status
	// TestTeardownHandler runs once after the last case or on abort.
	TestTeardownHandler func(passed, failed int, failure Failure)
	// TestFailureHandler is told about every failure raised during the run.
	TestFailureHandler func(failure Failure)
	// CaseSetupHandler runs before a case (and before each full repeat).
	CaseSetupHandler func(source *Case, indexOfCase int) Status
	// CaseTeardownHandler runs after a case (and after each full repeat).
	CaseTeardownHandler func(source *Case, passed, failed int, failure Failure) Status
	// CaseFailureHandler decides whether a failure continues, is ignored or aborts.
	CaseFailureHandler func(source *Case, failure Failure) Status
)

type hint uint8

const (
	hintDefault hint = iota
	hintIgnore
	hintConcrete
)

// HandlerRef refers to a handler of kind F: a concrete function, a request to
// use the enclosing table's handler, or an explicit request to call nothing.
// The zero value means "use default".
type HandlerRef[F any] struct {
	hint hint
	fn   F
}

// Use refers to the concrete handler fn.
func Use[F any](fn F) HandlerRef[F] {
	return HandlerRef[F]{hint: hintConcrete, fn: fn}
}

// UseDefault defers to the enclosing table.
func UseDefault[F any]() HandlerRef[F] {
	return HandlerRef[F]{hint: hintDefault}
}

// Ignore disables the handler slot.
func Ignore[F any]() HandlerRef[F] {
	return HandlerRef[F]{hint: hintIgnore}
}

// IsDefault reports whether the ref defers to the enclosing table.
func (r HandlerRef[F]) IsDefault() bool { return r.hint == hintDefault }

// IsIgnore reports whether the ref explicitly disables the slot.
func (r HandlerRef[F]) IsIgnore() bool { return r.hint == hintIgnore }

// IsConcrete reports whether the ref holds a function.
func (r HandlerRef[F]) IsConcrete() bool { return r.hint == hintConcrete }

// Func returns the concrete function, if any.
func (r HandlerRef[F]) Func() (F, bool) {
	if r.hint != hintConcrete {
		var zero F
		return zero, false
	}
	return r.fn, true
}

// Resolve returns the handler to call for requested, consulting fallback when
// requested is "use default". ok is false when nothing should be called.
func Resolve[F any](requested, fallback HandlerRef[F]) (fn F, ok bool) {
	switch requested.hint {
	case hintConcrete:
		return requested.fn, true
	case hintDefault:
		return fallback.Func()
	default:
		var zero F
		return zero, false
	}
}

// Handlers is a table with one handler reference per kind.
type Handlers struct {
	TestSetup    HandlerRef[TestSetupHandler]
	TestTeardown HandlerRef[TestTeardownHandler]
	TestFailure  HandlerRef[TestFailureHandler]
	CaseSetup    HandlerRef[CaseSetupHandler]
	CaseTeardown HandlerRef[CaseTeardownHandler]
	CaseFailure  HandlerRef[CaseFailureHandler]
}

// resolved is the set of concrete handlers in effect for the current
// suite and case. A nil entry means "call nothing".
type resolved struct {
	testSetup    TestSetupHandler
	testTeardown TestTeardownHandler
	testFailure  TestFailureHandler
	caseSetup    CaseSetupHandler
	caseTeardown CaseTeardownHandler
	caseFailure  CaseFailureHandler
}
