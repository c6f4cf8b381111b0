package trace_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/utest/internal/harness"
	"github.com/roach88/utest/internal/scheduler"
	"github.com/roach88/utest/internal/testutil"
	"github.com/roach88/utest/internal/trace"
)

// record runs cases with the verbose table wrapped by a recorder.
func record(t *testing.T, cases ...harness.Case) []trace.Event {
	t.Helper()
	rec := trace.NewRecorder(trace.WithClock(testutil.NewDeterministicClock()))
	v := scheduler.NewVirtual(scheduler.WithStepLimit(1000))
	h := harness.New(harness.WithScheduler(v), harness.WithExit(func(code int) {
		rec.Exit(code)
		v.Stop()
	}))

	spec := harness.NewSpecification(cases, harness.WithDefaults(harness.VerboseContinueHandlers(io.Discard)))
	rec.WrapSpecification(spec)
	require.NoError(t, h.Run(spec))
	return rec.Events()
}

func twoCases() []harness.Case {
	return []harness.Case{
		harness.NewCase("adds", func() {}),
		harness.NewControlCase("hangs", func() harness.Control { return harness.CaseTimeout(10) }),
	}
}

func TestRecorder_Golden(t *testing.T) {
	events := record(t, twoCases()...)
	require.NoError(t, trace.AssertGolden(t, "two_cases", events))
}

func TestRecorder_SequenceAndKinds(t *testing.T) {
	events := record(t, twoCases()...)

	require.Len(t, events, 9)
	for i, e := range events {
		assert.Equal(t, int64(i+1), e.Seq)
	}
	assert.Equal(t, trace.KindTestSetup, events[0].Kind)
	assert.Equal(t, trace.KindExit, events[8].Kind)
	assert.Equal(t, 1, events[8].Code)
}

func TestRecorder_CaseOverridesAreWrapped(t *testing.T) {
	events := record(t,
		harness.NewCase("custom", func() {},
			harness.WithCaseSetup(harness.Use[harness.CaseSetupHandler](func(*harness.Case, int) harness.Status {
				return harness.StatusContinue
			})),
			harness.WithCaseTeardown(harness.Ignore[harness.CaseTeardownHandler]()),
		),
	)

	assert.NoError(t, trace.Count(events, trace.Match{Kind: trace.KindCaseSetup, Case: "custom"}, 1))
	assert.NoError(t, trace.Count(events, trace.Match{Kind: trace.KindCaseTeardown}, 0))
}

func TestRecorder_WrapKeepsSentinels(t *testing.T) {
	rec := trace.NewRecorder()
	h := rec.Wrap(harness.Handlers{
		TestSetup:   harness.Ignore[harness.TestSetupHandler](),
		CaseFailure: harness.Use(harness.VerboseCaseFailure()),
	})

	assert.True(t, h.TestSetup.IsIgnore())
	assert.True(t, h.TestTeardown.IsDefault())
	assert.True(t, h.CaseFailure.IsConcrete())

	fn, ok := h.CaseFailure.Func()
	require.True(t, ok)
	c := harness.NewCase("c", func() {})
	status := fn(&c, harness.NewFailure(harness.ReasonAssertion, harness.LocationCaseHandler))
	assert.Equal(t, harness.StatusContinue, status)

	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "Assertion Failed", events[0].Reason)
	assert.Equal(t, "continue", events[0].Status)
}

func TestRecorder_ValidateAndReset(t *testing.T) {
	rec := trace.NewRecorder()
	rec.Validate("async", harness.CaseNext)
	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "repeat=none timeout=none", events[0].Control)

	rec.Reset()
	assert.Empty(t, rec.Events())
	rec.Exit(0)
	assert.Equal(t, int64(2), rec.Events()[0].Seq, "clock keeps counting after reset")
}

func TestCompareGolden(t *testing.T) {
	events := record(t, twoCases()...)
	path := filepath.Join(t.TempDir(), "golden", "run.golden")

	require.NoError(t, trace.CompareGolden(path, events, false), "first use writes the file")
	require.NoError(t, trace.CompareGolden(path, events, false))

	err := trace.CompareGolden(path, events[:3], false)
	assert.ErrorIs(t, err, trace.ErrGoldenMismatch)

	require.NoError(t, trace.CompareGolden(path, events[:3], true))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	snap, err := trace.Snapshot(events[:3])
	require.NoError(t, err)
	assert.Equal(t, snap, data)
}
