package suite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/utest/internal/harness"
)

func writeSuite(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_YAML(t *testing.T) {
	s, err := Load("testdata/async_validate.yaml")
	require.NoError(t, err)

	assert.Equal(t, "async_validate", s.Name)
	assert.Equal(t, HandlersVerbose, s.Handlers)
	assert.Equal(t, "continue", s.Setup)
	require.Len(t, s.Cases, 1)
	assert.Equal(t, KindControl, s.Cases[0].kind())
	require.Len(t, s.Cases[0].Calls, 1)
	call := s.Cases[0].Calls[0]
	require.NotNil(t, call.Return)
	assert.Equal(t, "forever", call.Return.Timeout)
	require.NotNil(t, call.Validate)
	assert.Equal(t, 10, call.Validate.AfterMs)
	require.NotNil(t, s.Expect)
	require.NotNil(t, s.Expect.Passed)
	assert.Equal(t, 1, *s.Expect.Passed)
	assert.Len(t, s.Assertions, 2)
}

func TestLoad_CUE(t *testing.T) {
	s, err := Load("testdata/timeout.cue")
	require.NoError(t, err)

	assert.Equal(t, "timeout", s.Name)
	require.Len(t, s.Cases, 2)
	assert.Equal(t, "10", s.Cases[0].Calls[0].Return.Timeout)
	assert.Equal(t, KindPlain, s.Cases[1].kind())
	require.Len(t, s.Assertions, 3)
	assert.Equal(t, "hangs", s.Assertions[0].Case)
	require.NotNil(t, s.Assertions[1].Count)
	assert.Equal(t, 2, *s.Assertions[1].Count)
	assert.Len(t, s.Assertions[2].Events, 2)
}

func TestLoad_NumericScalarsBecomeStrings(t *testing.T) {
	path := writeSuite(t, "numeric.yaml", `
name: numeric
setup: 1
cases:
  - description: skipped
  - description: waits
    calls:
      - return: {timeout: 250}
`)
	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "1", s.Setup)
	assert.Equal(t, "250", s.Cases[1].Calls[0].Return.Timeout)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/suite.yaml")
	require.Error(t, err)
	assert.True(t, IsLoadError(err, ErrCodeRead))
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	path := writeSuite(t, "suite.json", `{}`)
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, IsLoadError(err, ErrCodeExtension))
	assert.Contains(t, err.Error(), ".json")
}

func TestLoad_YAMLErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    string
		message string
	}{
		{
			name:    "unknown field",
			content: "name: x\ncase:\n  - description: a\n",
			code:    ErrCodeYAML,
			message: "field case not found",
		},
		{
			name:    "empty file",
			content: "",
			code:    ErrCodeYAML,
			message: "empty suite file",
		},
		{
			name:    "missing name",
			content: "cases:\n  - description: a\n",
			code:    ErrCodeSchema,
		},
		{
			name:    "unknown handler table",
			content: "name: x\nhandlers: bogus\n",
			code:    ErrCodeSchema,
		},
		{
			name:    "bad timeout",
			content: "name: x\ncases:\n  - description: a\n    calls:\n      - return: {timeout: soon}\n",
			code:    ErrCodeSchema,
		},
		{
			name:    "plain case returning a control",
			content: "name: x\ncases:\n  - description: a\n    kind: plain\n    calls:\n      - return: {timeout: none}\n",
			code:    ErrCodeInvalid,
			message: "plain case cannot return a control",
		},
		{
			name:    "unknown failure reason",
			content: "name: x\ncases:\n  - description: a\n    calls:\n      - fail: exploded\n",
			code:    ErrCodeInvalid,
			message: `unknown failure reason "exploded"`,
		},
		{
			name:    "unknown repeat flag",
			content: "name: x\ncases:\n  - description: a\n    calls:\n      - return: {repeat: [sometimes]}\n",
			code:    ErrCodeInvalid,
			message: `unknown repeat flag "sometimes"`,
		},
		{
			name:    "empty case with calls",
			content: "name: x\ncases:\n  - description: a\n    kind: empty\n    calls:\n      - fail: assertion\n",
			code:    ErrCodeInvalid,
			message: "empty case cannot have calls",
		},
		{
			name:    "trace_count without count",
			content: "name: x\nassertions:\n  - {type: trace_count, kind: exit}\n",
			code:    ErrCodeInvalid,
			message: "count is required",
		},
		{
			name:    "unknown event kind",
			content: "name: x\nassertions:\n  - {type: trace_order, kinds: [case_start]}\n",
			code:    ErrCodeInvalid,
			message: `unknown event kind "case_start"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tt.content), "suite.yaml")
			require.Error(t, err)
			assert.True(t, IsLoadError(err, tt.code), "got %v", err)
			if tt.message != "" {
				assert.Contains(t, err.Error(), tt.message)
			}
		})
	}
}

func TestParseCUE_Errors(t *testing.T) {
	_, err := ParseCUE([]byte(`name: "x"
cases: [{description: "a", colour: "red"}]
`), "suite.cue")
	require.Error(t, err)
	assert.True(t, IsLoadError(err, ErrCodeSchema), "got %v", err)

	_, err = ParseCUE([]byte(`name: "x`), "broken.cue")
	require.Error(t, err)
	assert.True(t, IsLoadError(err, ErrCodeCUE), "got %v", err)
	assert.Contains(t, err.Error(), "broken.cue")
}

func TestLoadError_Format(t *testing.T) {
	err := &LoadError{Code: ErrCodeInvalid, Path: "a.yaml", Message: "bad"}
	assert.Equal(t, "a.yaml: E015: bad", err.Error())

	err = &LoadError{Code: ErrCodeRead, Message: "gone"}
	assert.Equal(t, "E010: gone", err.Error())
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want statusOverride
	}{
		{"", statusOverride{}},
		{"default", statusOverride{set: true, useDefault: true}},
		{"ignore_handler", statusOverride{set: true, ignore: true}},
		{"continue", statusOverride{set: true, status: harness.StatusContinue}},
		{"ignore", statusOverride{set: true, status: harness.StatusIgnore}},
		{"abort", statusOverride{set: true, status: harness.StatusAbort}},
		{"3", statusOverride{set: true, status: harness.Status(3)}},
	}
	for _, tt := range tests {
		got, err := parseStatus(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := parseStatus("-1")
	assert.Error(t, err)
	_, err = parseStatus("later")
	assert.Error(t, err)
}

func TestControlDef(t *testing.T) {
	var nilDef *ControlDef
	ctrl, err := nilDef.control()
	require.NoError(t, err)
	assert.Equal(t, harness.NewControl(), ctrl)

	ctrl, err = (&ControlDef{Repeat: []string{"case_only", "on_timeout"}, Timeout: "20"}).control()
	require.NoError(t, err)
	assert.Equal(t, harness.CaseRepeatHandlerOnTimeout(20), ctrl)

	ctrl, err = (&ControlDef{Repeat: []string{"none"}, Timeout: "none"}).control()
	require.NoError(t, err)
	assert.Equal(t, harness.CaseNext, ctrl)

	_, err = (&ControlDef{Timeout: "-5"}).control()
	assert.Error(t, err)
}

func TestParseReason(t *testing.T) {
	r, err := parseReason("ignore|timeout")
	require.NoError(t, err)
	assert.Equal(t, harness.ReasonIgnore|harness.ReasonTimeout, r)

	r, err = parseReason("assertion")
	require.NoError(t, err)
	assert.Equal(t, harness.ReasonAssertion, r)

	_, err = parseReason("")
	assert.Error(t, err)
}
