package suite

import (
	"time"

	"github.com/roach88/utest/internal/harness"
	"github.com/roach88/utest/internal/trace"
)

// builder turns a Suite into a harness.Specification whose handlers play
// back the scripted calls.
type builder struct {
	suite    *Suite
	h        *harness.Harness
	sched    harness.Scheduler
	rec      *trace.Recorder
	defaults harness.Handlers
}

// specification builds the specification over the unwrapped defaults.
// The caller wraps it with the recorder afterwards.
func (b *builder) specification() (*harness.Specification, error) {
	cases := make([]harness.Case, 0, len(b.suite.Cases))
	for i := range b.suite.Cases {
		c, err := b.buildCase(&b.suite.Cases[i])
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}

	spec := harness.NewSpecification(cases, harness.WithDefaults(b.defaults))

	o, err := parseStatus(b.suite.Setup)
	if err != nil {
		return nil, err
	}
	if o.set {
		fallback, _ := b.defaults.TestSetup.Func()
		spec.Setup = harness.Use[harness.TestSetupHandler](func(n int) harness.Status {
			if fallback != nil {
				fallback(n)
			}
			return o.status
		})
	}
	return spec, nil
}

func (b *builder) buildCase(def *CaseDef) (harness.Case, error) {
	var opts []harness.CaseOption
	for _, f := range []struct {
		value string
		apply func(statusOverride) harness.CaseOption
	}{
		{def.Setup, b.caseSetup},
		{def.Teardown, b.caseTeardown},
		{def.Failure, b.caseFailure},
	} {
		o, err := parseStatus(f.value)
		if err != nil {
			return harness.Case{}, err
		}
		if o.set && !o.useDefault {
			opts = append(opts, f.apply(o))
		}
	}

	// Invocations of plain and control handlers are counted here; repeat
	// handlers are told their count by the harness.
	calls := 0
	next := func() Call {
		c := def.call(calls)
		calls++
		return c
	}

	switch def.kind() {
	case KindEmpty:
		return harness.NewEmptyCase(def.Description, opts...), nil
	case KindPlain:
		return harness.NewCase(def.Description, func() {
			b.perform(def.Description, next())
		}, opts...), nil
	case KindRepeat:
		return harness.NewRepeatCase(def.Description, func(n int) harness.Control {
			call := def.call(n)
			b.perform(def.Description, call)
			ctrl, _ := call.Return.control()
			return ctrl
		}, opts...), nil
	default:
		return harness.NewControlCase(def.Description, func() harness.Control {
			call := next()
			b.perform(def.Description, call)
			ctrl, _ := call.Return.control()
			return ctrl
		}, opts...), nil
	}
}

// perform raises the scripted failure and delivers or schedules the
// scripted validation.
func (b *builder) perform(description string, call Call) {
	if call.Fail != "" {
		reason, _ := parseReason(call.Fail)
		b.h.RaiseFailure(reason)
	}

	v := call.Validate
	if v == nil {
		return
	}
	ctrl, _ := parseNamedControl(v.Control)
	deliver := func() {
		b.rec.Validate(description, ctrl)
		b.h.ValidateCallback(ctrl)
	}
	if v.Inline {
		deliver()
		return
	}
	if b.sched.Post(deliver, time.Duration(v.AfterMs)*time.Millisecond) == 0 {
		b.h.RaiseFailure(harness.ReasonScheduler)
	}
}

func (b *builder) caseSetup(o statusOverride) harness.CaseOption {
	if o.ignore {
		return harness.WithCaseSetup(harness.Ignore[harness.CaseSetupHandler]())
	}
	fallback, _ := b.defaults.CaseSetup.Func()
	return harness.WithCaseSetup(harness.Use[harness.CaseSetupHandler](func(c *harness.Case, index int) harness.Status {
		if fallback != nil {
			fallback(c, index)
		}
		return o.status
	}))
}

func (b *builder) caseTeardown(o statusOverride) harness.CaseOption {
	if o.ignore {
		return harness.WithCaseTeardown(harness.Ignore[harness.CaseTeardownHandler]())
	}
	fallback, _ := b.defaults.CaseTeardown.Func()
	return harness.WithCaseTeardown(harness.Use[harness.CaseTeardownHandler](func(c *harness.Case, passed, failed int, failure harness.Failure) harness.Status {
		if fallback != nil {
			fallback(c, passed, failed, failure)
		}
		return o.status
	}))
}

func (b *builder) caseFailure(o statusOverride) harness.CaseOption {
	if o.ignore {
		return harness.WithCaseFailure(harness.Ignore[harness.CaseFailureHandler]())
	}
	return harness.WithCaseFailure(harness.Use[harness.CaseFailureHandler](func(*harness.Case, harness.Failure) harness.Status {
		return o.status
	}))
}
