package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestCommandAllPass(t *testing.T) {
	dir := t.TempDir()
	writeSuite(t, dir, "async.yaml", passingSuite)
	writeSuite(t, dir, "timeout.cue", failingSuite) // fails a case on purpose

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ async_validate")
	assert.Contains(t, out, "✓ timeout")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
	assert.Contains(t, out, "✓ All suites passed")
}

func TestTestCommandReportsFailures(t *testing.T) {
	dir := t.TempDir()
	writeSuite(t, dir, "async.yaml", passingSuite)
	writeSuite(t, dir, "wrong.yaml", wrongExpectSuite)
	writeSuite(t, dir, "bad.yaml", invalidSuite)

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "2 suite(s) failed")

	assert.Contains(t, out, "✗ wrong_expect")
	assert.Contains(t, out, "Assertion failed: expect.passed")
	assert.NotContains(t, out, "Full trace:")
	assert.Contains(t, out, "✗ bad.yaml")
	assert.Contains(t, out, "load: ")
	assert.Contains(t, out, "Test Summary: 1 passed, 2 failed, 3 total")
}

func TestTestCommandVerboseShowsTrace(t *testing.T) {
	dir := t.TempDir()
	writeSuite(t, dir, "wrong.yaml", wrongExpectSuite)

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text", Verbose: true}), dir)
	require.Error(t, err)
	assert.Contains(t, out, "Full trace:")
}

func TestTestCommandGolden(t *testing.T) {
	dir := t.TempDir()
	writeSuite(t, dir, "async.yaml", passingSuite)
	goldenPath := filepath.Join(dir, "golden", "async.golden")

	// Without a golden file, only the expectations are checked
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.NoFileExists(t, goldenPath)

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), "--update", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ async_validate (golden updated)")
	require.FileExists(t, goldenPath)

	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"kind":"validate"`)

	_, err = execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(goldenPath, []byte("{}\n"), 0644))
	out, err = execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommandFilter(t *testing.T) {
	dir := t.TempDir()
	writeSuite(t, dir, "async.yaml", passingSuite)
	writeSuite(t, dir, "wrong.yaml", wrongExpectSuite)

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), "--filter", "as*", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.NotContains(t, out, "wrong_expect")
}

func TestTestCommandJSON(t *testing.T) {
	dir := t.TempDir()
	writeSuite(t, dir, "async.yaml", passingSuite)
	writeSuite(t, dir, "wrong.yaml", wrongExpectSuite)

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)

	resp, result := decodeResponse[TestResult](t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Suites, 2)
	assert.Equal(t, "async_validate", result.Suites[0].Name)
	assert.True(t, result.Suites[0].Pass)
	assert.Equal(t, "wrong_expect", result.Suites[1].Name)
	assert.False(t, result.Suites[1].Pass)
	assert.NotEmpty(t, result.Suites[1].Errors)
}

func TestTestCommandNoSuites(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No suites found.")

	out, err = execute(t, NewTestCommand(&RootOptions{Format: "json"}), t.TempDir())
	require.NoError(t, err)
	_, result := decodeResponse[TestResult](t, out)
	assert.Equal(t, 0, result.Total)
}

func TestTestCommandMissingDirectory(t *testing.T) {
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), "/nonexistent/suites")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "path not found")
}

func TestSplitJoined(t *testing.T) {
	joined := errors.Join(errors.New("a"), errors.New("b"))
	assert.Equal(t, []string{"a", "b"}, splitJoined(joined))
	assert.Equal(t, []string{"single"}, splitJoined(errors.New("single")))
}
