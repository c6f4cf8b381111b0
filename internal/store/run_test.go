package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/utest/internal/testutil"
	"github.com/roach88/utest/internal/trace"
)

func sampleEvents() []trace.Event {
	return []trace.Event{
		{Seq: 1, Kind: trace.KindTestSetup, Index: 2, Status: "continue"},
		{Seq: 2, Kind: trace.KindCaseSetup, Case: "adds", Status: "continue"},
		{Seq: 3, Kind: trace.KindCaseTeardown, Case: "adds", Passed: 1, Reason: "None", Status: "continue"},
		{Seq: 4, Kind: trace.KindCaseSetup, Case: "hangs", Index: 1, Status: "continue"},
		{Seq: 5, Kind: trace.KindCaseFailure, Case: "hangs", Reason: "Timed Out", Location: "Case Handler", Status: "continue"},
		{Seq: 6, Kind: trace.KindCaseTeardown, Case: "hangs", Failed: 1, Reason: "Test Cases Failed", Status: "continue"},
		{Seq: 7, Kind: trace.KindTestTeardown, Passed: 1, Failed: 1, Reason: "Test Cases Failed"},
		{Seq: 8, Kind: trace.KindExit, Code: 1},
	}
}

func deterministicStore(t *testing.T) *Store {
	t.Helper()
	return createTestStore(t,
		WithIDGenerator(testutil.NewSequenceGenerator("run")),
		WithClock(testutil.NewDeterministicClock()),
	)
}

func TestWriteRun_RoundTrip(t *testing.T) {
	s := deterministicStore(t)
	ctx := context.Background()
	events := sampleEvents()

	run, err := s.WriteRun(ctx, RunRecord{Suite: "two_cases", Passed: 1, Failed: 1, ExitCode: 1, Events: events})
	require.NoError(t, err)

	assert.Equal(t, "run-0001", run.ID)
	assert.Equal(t, int64(1), run.Seq)
	assert.Equal(t, testutil.Epoch, run.StartedAt)

	hash, err := trace.TraceHash(events)
	require.NoError(t, err)
	assert.Equal(t, hash, run.TraceHash)

	got, err := s.ReadRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run, got)

	stored, err := s.ReadEvents(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, events, stored)
}

func TestWriteRun_CaseResults(t *testing.T) {
	s := deterministicStore(t)
	ctx := context.Background()

	run, err := s.WriteRun(ctx, RunRecord{Suite: "two_cases", Passed: 1, Failed: 1, ExitCode: 1, Events: sampleEvents()})
	require.NoError(t, err)

	results, err := s.ReadCaseResults(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, []CaseResult{
		{RunID: run.ID, Index: 0, Description: "adds", Passed: 1, Reason: "None"},
		{RunID: run.ID, Index: 1, Description: "hangs", Failed: 1, Reason: "Test Cases Failed"},
	}, results)
}

func TestWriteRun_SeqIsLogical(t *testing.T) {
	s := deterministicStore(t)
	ctx := context.Background()

	for _, suite := range []string{"a", "b", "a"} {
		_, err := s.WriteRun(ctx, RunRecord{Suite: suite, Events: sampleEvents()})
		require.NoError(t, err)
	}

	all, err := s.ListRuns(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, run := range all {
		assert.Equal(t, int64(i+1), run.Seq)
	}

	onlyA, err := s.ListRuns(ctx, "a")
	require.NoError(t, err)
	require.Len(t, onlyA, 2)
	assert.Equal(t, "run-0001", onlyA[0].ID)
	assert.Equal(t, "run-0003", onlyA[1].ID)

	latest, err := s.LatestRun(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "run-0003", latest.ID)

	latest, err = s.LatestRun(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), latest.Seq)
}

func TestWriteRun_DuplicateIDFails(t *testing.T) {
	s := createTestStore(t, WithIDGenerator(fixedID("same")))
	ctx := context.Background()

	_, err := s.WriteRun(ctx, RunRecord{Suite: "a", Events: sampleEvents()})
	require.NoError(t, err)

	_, err = s.WriteRun(ctx, RunRecord{Suite: "a", Events: sampleEvents()})
	require.Error(t, err)

	// The failed transaction must leave nothing behind.
	runs, err := s.ListRuns(ctx, "")
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(context.Background(), "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows), "got %v", err)

	_, err = s.LatestRun(context.Background(), "")
	assert.True(t, errors.Is(err, sql.ErrNoRows), "got %v", err)
}

func TestReads_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	runs, err := s.ListRuns(ctx, "")
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)

	events, err := s.ReadEvents(ctx, "missing")
	require.NoError(t, err)
	assert.NotNil(t, events)

	results, err := s.ReadCaseResults(ctx, "missing")
	require.NoError(t, err)
	assert.NotNil(t, results)
}

func TestCaseResultsFromTrace(t *testing.T) {
	results := CaseResultsFromTrace(sampleEvents())
	require.Len(t, results, 2)
	assert.Equal(t, "adds", results[0].Description)
	assert.Equal(t, 1, results[1].Index)

	assert.Empty(t, CaseResultsFromTrace(nil))
}

func TestUUIDv7Generator(t *testing.T) {
	gen := UUIDv7Generator{}

	id := gen.Generate()
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.Len(t, id, 36)
	assert.NotEqual(t, id, gen.Generate())
}

func TestOpen_DefaultClockIsUTC(t *testing.T) {
	s := createTestStore(t)

	run, err := s.WriteRun(context.Background(), RunRecord{Suite: "a", Events: sampleEvents()})
	require.NoError(t, err)
	assert.Equal(t, time.UTC, run.StartedAt.Location())
	assert.WithinDuration(t, time.Now(), run.StartedAt, time.Minute)
}

type fixedID string

func (f fixedID) Generate() string { return string(f) }
