package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_Primitives(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"plain", `"plain"`},
		{42, `42`},
		{int64(-7), `-7`},
		{true, `true`},
		{[]any{"a", 1, false}, `["a",1,false]`},
		{map[string]any{}, `{}`},
	}
	for _, tt := range tests {
		got, err := MarshalCanonical(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(got))
	}
}

func TestMarshalCanonical_KeyOrder(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{
		"seq":  int64(1),
		"case": "x",
		"kind": "case_setup",
		"a":    map[string]any{"z": 1, "b": 2},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"b":2,"z":1},"case":"x","kind":"case_setup","seq":1}`, string(got))
}

func TestMarshalCanonical_UTF16KeyOrder(t *testing.T) {
	// U+1F600 encodes as surrogates 0xD83D 0xDE00, which sort before U+FB01
	// in UTF-16 although the code point is larger.
	got, err := MarshalCanonical(map[string]any{"\uFB01": 1, "\U0001F600": 2})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"\uFB01\":1}", string(got))
}

func TestMarshalCanonical_StringEscaping(t *testing.T) {
	got, err := MarshalCanonical("<a & \"b\">\\\n\t\x01 ")
	require.NoError(t, err)
	assert.Equal(t, "\"<a & \\\"b\\\">\\\\\\n\\t\\u0001 \"", string(got))
}

func TestMarshalCanonical_NFC(t *testing.T) {
	got, err := MarshalCanonical("e\u0301")
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(got))
}

func TestMarshalCanonical_Rejects(t *testing.T) {
	_, err := MarshalCanonical(nil)
	assert.Error(t, err)

	_, err = MarshalCanonical(1.5)
	assert.Error(t, err)

	_, err = MarshalCanonical(map[string]any{"x": []any{nil}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `object["x"]`)

	_, err = MarshalCanonical(struct{}{})
	assert.Error(t, err)
}
