package suite

// Suite is a scripted test suite. Case handlers do not run device code:
// each invocation follows the next Call of its case, so every harness path
// (repeats, timeouts, validations, failures) can be driven from a file.
type Suite struct {
	// Name uniquely identifies this suite.
	Name string `yaml:"name" json:"name"`

	// Description explains what this suite exercises.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Handlers selects the default handler table:
	// verbose (default), selftest, greentea or greentea_abort.
	Handlers string `yaml:"handlers,omitempty" json:"handlers,omitempty"`

	// Scheduler selects virtual (default) or realtime.
	Scheduler string `yaml:"scheduler,omitempty" json:"scheduler,omitempty"`

	// TimeoutMs is the __timeout announced by the greentea tables.
	TimeoutMs int `yaml:"timeout_ms,omitempty" json:"timeout_ms,omitempty"`

	// Setup overrides the status returned by test setup: a status name
	// or the index of the first case to run.
	Setup string `yaml:"setup,omitempty" json:"setup,omitempty"`

	Cases []CaseDef `yaml:"cases,omitempty" json:"cases,omitempty"`

	// Expect checks the run totals. Nil skips the check.
	Expect *Expect `yaml:"expect,omitempty" json:"expect,omitempty"`

	// Assertions validate the recorded trace.
	// Supported types: trace_contains, trace_order, trace_count.
	Assertions []Assertion `yaml:"assertions,omitempty" json:"assertions,omitempty"`
}

// CaseDef describes one scripted case.
type CaseDef struct {
	Description string `yaml:"description" json:"description"`

	// Kind is plain, control, repeat or empty. It defaults to control when
	// Calls is set and to plain otherwise.
	Kind string `yaml:"kind,omitempty" json:"kind,omitempty"`

	// Calls scripts successive handler invocations. Invocations past the
	// end of the list do nothing and return an undeclared control.
	Calls []Call `yaml:"calls,omitempty" json:"calls,omitempty"`

	// Setup, Teardown and Failure override the status of the case
	// handlers: continue, ignore, abort or a case index run after the
	// table handler; default keeps the table handler as is and
	// ignore_handler disables the slot.
	Setup    string `yaml:"setup,omitempty" json:"setup,omitempty"`
	Teardown string `yaml:"teardown,omitempty" json:"teardown,omitempty"`
	Failure  string `yaml:"failure,omitempty" json:"failure,omitempty"`
}

// Call is what a single handler invocation does, in order: raise Fail,
// deliver or schedule Validate, then return Return.
type Call struct {
	Return   *ControlDef  `yaml:"return,omitempty" json:"return,omitempty"`
	Fail     string       `yaml:"fail,omitempty" json:"fail,omitempty"`
	Validate *ValidateDef `yaml:"validate,omitempty" json:"validate,omitempty"`
}

// ControlDef is the file form of harness.Control.
type ControlDef struct {
	// Repeat lists repeat flags, e.g. [all] or [handler, on_timeout].
	Repeat []string `yaml:"repeat,omitempty" json:"repeat,omitempty"`

	// Timeout is a millisecond count, forever, none or undeclared.
	Timeout string `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// ValidateDef schedules a ValidateCallback.
type ValidateDef struct {
	// AfterMs delays the callback on the scheduler.
	AfterMs int `yaml:"after_ms,omitempty" json:"after_ms,omitempty"`

	// Inline delivers the callback from inside the handler.
	Inline bool `yaml:"inline,omitempty" json:"inline,omitempty"`

	// Control is next, no_repeat, repeat_all, repeat_handler or empty
	// for an undeclared control.
	Control string `yaml:"control,omitempty" json:"control,omitempty"`
}

// Expect holds the expected run totals.
type Expect struct {
	Passed   *int `yaml:"passed,omitempty" json:"passed,omitempty"`
	Failed   *int `yaml:"failed,omitempty" json:"failed,omitempty"`
	ExitCode *int `yaml:"exit_code,omitempty" json:"exit_code,omitempty"`
}

// Assertion validates the trace.
type Assertion struct {
	// Type is trace_contains, trace_order or trace_count.
	Type string `yaml:"type" json:"type"`

	// Kind, Case and Reason select events for trace_contains and
	// trace_count. Reason is a substring match.
	Kind   string `yaml:"kind,omitempty" json:"kind,omitempty"`
	Case   string `yaml:"case,omitempty" json:"case,omitempty"`
	Reason string `yaml:"reason,omitempty" json:"reason,omitempty"`

	// Kinds is the expected order for trace_order. Events, when set, is
	// used instead and may also pin cases and reasons.
	Kinds  []string   `yaml:"kinds,omitempty" json:"kinds,omitempty"`
	Events []MatchDef `yaml:"events,omitempty" json:"events,omitempty"`

	// Count is the expected number of matches for trace_count.
	Count *int `yaml:"count,omitempty" json:"count,omitempty"`
}

// MatchDef is one step of a trace_order assertion.
type MatchDef struct {
	Kind   string `yaml:"kind,omitempty" json:"kind,omitempty"`
	Case   string `yaml:"case,omitempty" json:"case,omitempty"`
	Reason string `yaml:"reason,omitempty" json:"reason,omitempty"`
}

// Handler table names.
const (
	HandlersVerbose       = "verbose"
	HandlersSelftest      = "selftest"
	HandlersGreentea      = "greentea"
	HandlersGreenteaAbort = "greentea_abort"
)

// Scheduler names.
const (
	SchedulerVirtual  = "virtual"
	SchedulerRealtime = "realtime"
)

// Case kinds.
const (
	KindPlain   = "plain"
	KindControl = "control"
	KindRepeat  = "repeat"
	KindEmpty   = "empty"
)

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
)

// kind returns the effective case kind.
func (c *CaseDef) kind() string {
	if c.Kind != "" {
		return c.Kind
	}
	if len(c.Calls) > 0 {
		return KindControl
	}
	return KindPlain
}

// call returns the scripted call for invocation n, or an empty call.
func (c *CaseDef) call(n int) Call {
	if n < 0 || n >= len(c.Calls) {
		return Call{}
	}
	return c.Calls[n]
}
