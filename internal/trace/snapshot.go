package trace

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// GoldenDir is where golden traces live, relative to the test's package.
const GoldenDir = "testdata/golden"

// Snapshot renders events as canonical JSON, one event per line.
func Snapshot(events []Event) ([]byte, error) {
	var buf bytes.Buffer
	for i, e := range events {
		line, err := e.Canonical()
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// AssertGolden compares the snapshot of events against
// testdata/golden/<name>.golden. Run the test with -update to regenerate.
func AssertGolden(t *testing.T, name string, events []Event) error {
	t.Helper()

	data, err := Snapshot(events)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}

// ErrGoldenMismatch is returned by CompareGolden when the snapshot differs.
var ErrGoldenMismatch = errors.New("trace differs from golden file")

// CompareGolden compares the snapshot of events with the file at path,
// outside of a test binary. With update set, the file is (re)written instead.
// A missing golden file is written on first use.
func CompareGolden(path string, events []Event, update bool) error {
	data, err := Snapshot(events)
	if err != nil {
		return err
	}

	want, err := os.ReadFile(path)
	switch {
	case update || errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create golden dir: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write golden file: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("read golden file: %w", err)
	}

	if !bytes.Equal(want, data) {
		return fmt.Errorf("%w: %s", ErrGoldenMismatch, path)
	}
	return nil
}
