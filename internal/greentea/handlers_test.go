package greentea_test

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/utest/internal/greentea"
	"github.com/roach88/utest/internal/harness"
	"github.com/roach88/utest/internal/scheduler"
	"github.com/roach88/utest/internal/testutil"
)

type tableFunc func(greentea.Reporter, io.Writer, ...greentea.Option) harness.Handlers

func runGreentea(t *testing.T, table tableFunc, cases ...harness.Case) (string, int) {
	t.Helper()
	var records bytes.Buffer
	client := greentea.NewClient(&records)

	v := scheduler.NewVirtual(scheduler.WithStepLimit(1000))
	code := -1
	h := harness.New(harness.WithScheduler(v), harness.WithExit(func(c int) {
		code = c
		v.Stop()
	}))
	defaults := table(client, io.Discard,
		greentea.WithTimeout(1500*time.Millisecond),
		greentea.WithCaseNames(h),
		greentea.WithSync(testutil.NewSequenceGenerator("sync")),
	)
	require.NoError(t, h.Run(harness.NewSpecification(cases, harness.WithDefaults(defaults))))
	require.NoError(t, client.Err())
	return records.String(), code
}

func TestContinueHandlers_Records(t *testing.T) {
	out, code := runGreentea(t, greentea.ContinueHandlers,
		harness.NewCase("adds", func() {}),
		harness.NewControlCase("hangs", func() harness.Control { return harness.CaseTimeout(10) }),
	)

	assert.Equal(t, 1, code)
	assert.Equal(t, ""+
		"{{__sync;sync-0001}}\n"+
		"{{__timeout;2}}\n"+
		"{{__host_test_name;default_auto}}\n"+
		"{{__testcase_count;2}}\n"+
		"{{__testcase_name;adds}}\n"+
		"{{__testcase_name;hangs}}\n"+
		"{{__testcase_start;adds}}\n"+
		"{{__testcase_finish;adds;1;0}}\n"+
		"{{__testcase_start;hangs}}\n"+
		"{{__testcase_finish;hangs;0;1}}\n"+
		"{{__testcase_summary;1;1}}\n"+
		"{{end;failure}}\n"+
		"{{__exit;1}}\n",
		out)
}

func TestAbortHandlers_StopAtFirstFailure(t *testing.T) {
	out, code := runGreentea(t, greentea.AbortHandlers,
		harness.NewControlCase("hangs", func() harness.Control { return harness.CaseTimeout(10) }),
		harness.NewCase("skipped", func() { t.Fatal("ran after abort") }),
	)

	assert.Equal(t, 1, code)
	assert.NotContains(t, out, "{{__testcase_start;skipped}}")
	assert.Contains(t, out, "{{__testcase_finish;hangs;0;1}}\n{{__testcase_summary;0;1}}\n{{end;failure}}\n")
}

func TestContinueHandlers_Success(t *testing.T) {
	out, code := runGreentea(t, greentea.ContinueHandlers,
		harness.NewCase("adds", func() {}),
	)

	assert.Equal(t, 0, code)
	assert.Contains(t, out, "{{__testcase_summary;1;0}}\n{{end;success}}\n{{__exit;0}}\n")

	records, err := greentea.Parse(bytes.NewBufferString(out))
	require.NoError(t, err)
	s, err := greentea.Summarize(records)
	require.NoError(t, err)
	assert.True(t, s.Success)
	assert.Equal(t, []string{"adds"}, s.Names)
}
