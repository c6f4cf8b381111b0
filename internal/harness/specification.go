package harness

import "os"

// Specification is an ordered set of cases plus suite-level handlers.
// Cases must not be modified while a run is in progress.
type Specification struct {
	Cases []Case

	Setup    HandlerRef[TestSetupHandler]
	Teardown HandlerRef[TestTeardownHandler]
	Failure  HandlerRef[TestFailureHandler]

	// Defaults resolves every "use default" reference of the suite and
	// of its cases.
	Defaults Handlers
}

// SpecOption configures a Specification.
type SpecOption func(*Specification)

// WithTestSetup overrides the suite setup handler.
func WithTestSetup(ref HandlerRef[TestSetupHandler]) SpecOption {
	return func(s *Specification) { s.Setup = ref }
}

// WithTestTeardown overrides the suite teardown handler.
func WithTestTeardown(ref HandlerRef[TestTeardownHandler]) SpecOption {
	return func(s *Specification) { s.Teardown = ref }
}

// WithTestFailure overrides the suite failure handler.
func WithTestFailure(ref HandlerRef[TestFailureHandler]) SpecOption {
	return func(s *Specification) { s.Failure = ref }
}

// WithDefaults replaces the default handler table.
func WithDefaults(defaults Handlers) SpecOption {
	return func(s *Specification) { s.Defaults = defaults }
}

// NewSpecification creates a specification over cases. The defaults table is
// VerboseContinueHandlers writing to stdout unless WithDefaults is given.
//
// The cases slice is copied so later changes by the caller cannot alter the
// length of a running specification.
func NewSpecification(cases []Case, opts ...SpecOption) *Specification {
	s := &Specification{
		Cases:    append([]Case(nil), cases...),
		Defaults: VerboseContinueHandlers(os.Stdout),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Len returns the number of cases.
func (s *Specification) Len() int {
	return len(s.Cases)
}
