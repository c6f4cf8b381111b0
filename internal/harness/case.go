package harness

// Case describes one test. Exactly one of Handler, ControlHandler and
// RepeatCountHandler should be set; if several are, the first non-nil one in
// that order is used. A case with none of them is empty and always fails.
//
// Setup, Teardown and Failure default to the specification's handler table.
type Case struct {
	Description string

	Handler            func()
	ControlHandler     func() Control
	RepeatCountHandler func(call int) Control

	Setup    HandlerRef[CaseSetupHandler]
	Teardown HandlerRef[CaseTeardownHandler]
	Failure  HandlerRef[CaseFailureHandler]
}

// CaseOption configures the per-case handler overrides.
type CaseOption func(*Case)

// WithCaseSetup overrides the case setup handler.
func WithCaseSetup(ref HandlerRef[CaseSetupHandler]) CaseOption {
	return func(c *Case) { c.Setup = ref }
}

// WithCaseTeardown overrides the case teardown handler.
func WithCaseTeardown(ref HandlerRef[CaseTeardownHandler]) CaseOption {
	return func(c *Case) { c.Teardown = ref }
}

// WithCaseFailure overrides the case failure handler.
func WithCaseFailure(ref HandlerRef[CaseFailureHandler]) CaseOption {
	return func(c *Case) { c.Failure = ref }
}

// NewCase creates a case whose handler neither repeats nor waits.
func NewCase(description string, handler func(), opts ...CaseOption) Case {
	return newCase(Case{Description: description, Handler: handler}, opts)
}

// NewControlCase creates a case whose handler returns a Control.
func NewControlCase(description string, handler func() Control, opts ...CaseOption) Case {
	return newCase(Case{Description: description, ControlHandler: handler}, opts)
}

// NewRepeatCase creates a case whose handler is told how many times it has
// already been called for this case.
func NewRepeatCase(description string, handler func(call int) Control, opts ...CaseOption) Case {
	return newCase(Case{Description: description, RepeatCountHandler: handler}, opts)
}

// NewEmptyCase creates a case without a handler. Running it raises
// ReasonEmptyCase.
func NewEmptyCase(description string, opts ...CaseOption) Case {
	return newCase(Case{Description: description}, opts)
}

func newCase(c Case, opts []CaseOption) Case {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// IsEmpty reports whether the case has no handler.
func (c *Case) IsEmpty() bool {
	return c.Handler == nil && c.ControlHandler == nil && c.RepeatCountHandler == nil
}
