// Package harness runs asynchronous test cases on a cooperative scheduler.
//
// A Specification is an ordered list of Cases plus suite-level handlers.
// Each Case has a handler that may finish immediately, ask to be repeated,
// or ask the harness to wait for an asynchronous ValidateCallback, with or
// without a timeout. The harness never blocks inside a case: every
// transition is posted to the injected Scheduler.
//
// # Control
//
// A handler returns a Control: a set of Repeat flags and a Timeout. Controls
// from successive sources are arbitrated with Control.Combine:
//
//   - repeat flags are merged, RepeatNone wins over everything
//   - the lower timeout wins: concrete < TimeoutForever < TimeoutUndeclared < TimeoutNone
//   - TimeoutNone on the right always wins
//
// # Handlers
//
// Setup, teardown and failure handlers are referenced through HandlerRef,
// which is either a concrete function, "use default" (the zero value) or
// "ignore". Defaults are resolved against Specification.Defaults, typically
// VerboseContinueHandlers or one of the greentea tables.
//
// # Usage
//
//	h := harness.New(
//	    harness.WithScheduler(scheduler.NewLoop()),
//	    harness.WithExit(os.Exit),
//	)
//	spec := harness.NewSpecification([]harness.Case{
//	    harness.NewCase("adds", func() { h.AssertEqual(4, 2+2) }),
//	    harness.NewControlCase("waits", func() harness.Control {
//	        go func() { h.ValidateCallback(harness.CaseNext) }()
//	        return harness.CaseTimeout(100)
//	    }),
//	})
//	if err := h.Run(spec); err != nil {
//	    log.Fatal(err)
//	}
package harness
