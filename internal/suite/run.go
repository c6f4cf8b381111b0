package suite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/utest/internal/greentea"
	"github.com/roach88/utest/internal/harness"
	"github.com/roach88/utest/internal/scheduler"
	"github.com/roach88/utest/internal/trace"
)

// ErrNoExit is returned when the scheduler returned without the harness
// calling its exit hook, e.g. because the context was cancelled.
var ErrNoExit = errors.New("suite: run ended without exit")

// DefaultStepLimit bounds the number of tasks a virtual run may execute.
const DefaultStepLimit = 10000

// Result is the outcome of one suite run.
type Result struct {
	Name     string
	Passed   int
	Failed   int
	ExitCode int

	// Events is the recorded trace, ending with the exit event.
	Events []trace.Event

	// Output holds everything the handler tables printed, verbose text and
	// greentea records alike.
	Output string

	// Greentea is set for the greentea handler tables.
	Greentea *greentea.Summary
}

type runConfig struct {
	output    io.Writer
	logger    *slog.Logger
	stepLimit int
	tokens    greentea.TokenGenerator
	clock     trace.Clock
	realtime  bool
}

// Option configures Run.
type Option func(*runConfig)

// WithOutput copies the handler output to w as it is produced.
func WithOutput(w io.Writer) Option {
	return func(c *runConfig) { c.output = w }
}

// WithLogger sets the logger passed to the harness and the scheduler.
func WithLogger(logger *slog.Logger) Option {
	return func(c *runConfig) { c.logger = logger }
}

// WithStepLimit overrides DefaultStepLimit.
func WithStepLimit(n int) Option {
	return func(c *runConfig) { c.stepLimit = n }
}

// WithTokens makes the greentea tables start with a __sync handshake.
func WithTokens(gen greentea.TokenGenerator) Option {
	return func(c *runConfig) { c.tokens = gen }
}

// WithClock sets the trace sequence source.
func WithClock(clock trace.Clock) Option {
	return func(c *runConfig) { c.clock = clock }
}

// WithRealTime runs on the wall-clock loop regardless of the suite's
// scheduler field.
func WithRealTime() Option {
	return func(c *runConfig) { c.realtime = true }
}

// Run executes s and returns the recorded result. It does not check
// expectations; see Check.
func Run(ctx context.Context, s *Suite, opts ...Option) (*Result, error) {
	cfg := runConfig{
		output:    io.Discard,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		stepLimit: DefaultStepLimit,
		realtime:  s.Scheduler == SchedulerRealtime,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	out := io.MultiWriter(&buf, cfg.output)

	var recOpts []trace.RecorderOption
	if cfg.clock != nil {
		recOpts = append(recOpts, trace.WithClock(cfg.clock))
	}
	rec := trace.NewRecorder(recOpts...)

	var (
		sched harness.Scheduler
		stop  func()
	)
	if cfg.realtime {
		loop := scheduler.NewLoop(scheduler.WithLogger(cfg.logger))
		stop = loop.Stop
		sched = harness.SchedulerFuncs{
			InitFunc:   loop.Init,
			PostFunc:   loop.Post,
			CancelFunc: loop.Cancel,
			RunFunc:    func() error { return loop.RunContext(ctx) },
		}
	} else {
		v := scheduler.NewVirtual(scheduler.WithLogger(cfg.logger), scheduler.WithStepLimit(cfg.stepLimit))
		stop = v.Stop
		sched = v
		defer context.AfterFunc(ctx, v.Stop)()
	}

	exitCode, exited := 0, false
	h := harness.New(
		harness.WithScheduler(sched),
		harness.WithLogger(cfg.logger),
		harness.WithExit(func(code int) {
			rec.Exit(code)
			exitCode, exited = code, true
			stop()
		}),
	)

	client := greentea.NewClient(out)
	b := &builder{
		suite:    s,
		h:        h,
		sched:    sched,
		rec:      rec,
		defaults: defaultTable(s, h, client, out, cfg),
	}
	spec, err := b.specification()
	if err != nil {
		return nil, fmt.Errorf("suite %s: %w", s.Name, err)
	}
	rec.WrapSpecification(spec)

	cfg.logger.Info("running suite", "suite", s.Name, "cases", spec.Len(), "realtime", cfg.realtime)
	if err := h.Run(spec); err != nil {
		return nil, fmt.Errorf("suite %s: %w", s.Name, err)
	}
	if !exited {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("suite %s: %w", s.Name, err)
		}
		return nil, fmt.Errorf("suite %s: %w", s.Name, ErrNoExit)
	}
	if err := client.Err(); err != nil {
		return nil, fmt.Errorf("suite %s: %w", s.Name, err)
	}

	res := &Result{
		Name:     s.Name,
		ExitCode: exitCode,
		Events:   rec.Events(),
		Output:   buf.String(),
	}
	for _, e := range res.Events {
		if e.Kind == trace.KindTestTeardown {
			res.Passed, res.Failed = e.Passed, e.Failed
		}
	}

	if s.Handlers == HandlersGreentea || s.Handlers == HandlersGreenteaAbort {
		records, err := greentea.Parse(bytes.NewReader(buf.Bytes()))
		if err != nil {
			return nil, fmt.Errorf("suite %s: %w", s.Name, err)
		}
		summary, err := greentea.Summarize(records)
		if err != nil {
			return nil, fmt.Errorf("suite %s: %w", s.Name, err)
		}
		res.Greentea = &summary
	}

	cfg.logger.Info("suite finished", "suite", s.Name, "passed", res.Passed, "failed", res.Failed, "exit", res.ExitCode)
	return res, nil
}

func defaultTable(s *Suite, h *harness.Harness, client *greentea.Client, w io.Writer, cfg runConfig) harness.Handlers {
	gopts := []greentea.Option{
		greentea.WithCaseNames(h),
		greentea.WithTimeout(time.Duration(s.TimeoutMs) * time.Millisecond),
	}
	if cfg.tokens != nil {
		gopts = append(gopts, greentea.WithSync(cfg.tokens))
	}

	switch s.Handlers {
	case HandlersSelftest:
		return harness.SelftestHandlers(w)
	case HandlersGreentea:
		return greentea.ContinueHandlers(client, w, gopts...)
	case HandlersGreenteaAbort:
		return greentea.AbortHandlers(client, w, gopts...)
	default:
		return harness.VerboseContinueHandlers(w)
	}
}
