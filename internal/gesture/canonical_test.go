package gesture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"empty string", "", `""`},
		{"int", 42, "42"},
		{"negative int64", int64(-100), "-100"},
		{"bool", true, "true"},
		{"empty array", []any{}, "[]"},
		{"empty object", map[string]any{}, "{}"},
		{"point", Pt(3, -4), `{"x":3,"y":-4}`},
		{"no html escaping", "<a&b>", `"<a&b>"`},
		{"control character", "a\x01b", `"a\u0001b"`},
		{"newline", "a\nb", `"a\nb"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	result, err := MarshalCanonical(map[string]any{
		"zebra": 1,
		"alpha": 2,
		"beta":  3,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":3,"zebra":1}`, string(result))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	// "e" + combining acute accent composes to U+00E9.
	result, err := MarshalCanonical("e\u0301")
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(result))
}

func TestMarshalCanonicalRejects(t *testing.T) {
	_, err := MarshalCanonical(nil)
	assert.Error(t, err)

	_, err = MarshalCanonical(1.5)
	assert.Error(t, err)

	_, err = MarshalCanonical(map[string]any{"f": 0.1})
	assert.Error(t, err)

	_, err = MarshalCanonical(struct{}{})
	assert.Error(t, err)
}

func TestMarshalCanonicalRequest(t *testing.T) {
	req := NewTap(Pt(5, 5), 90*time.Millisecond, 0)
	result, err := MarshalCanonical(req)
	require.NoError(t, err)
	assert.Equal(t,
		`{"kind":"tap","strokes":[{"delay_ms":0,"duration_ms":90,"path":[{"x":5,"y":5},{"x":4,"y":5}]}]}`,
		string(result))
}

func TestFingerprint(t *testing.T) {
	a, err := Fingerprint(NewTap(Pt(5, 5), 90*time.Millisecond, 0))
	require.NoError(t, err)
	b, err := Fingerprint(NewTap(Pt(5, 5), 90*time.Millisecond, 0))
	require.NoError(t, err)
	c, err := Fingerprint(NewTap(Pt(6, 5), 90*time.Millisecond, 0))
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.Equal(t, a, b, "identical requests share a fingerprint")
	assert.NotEqual(t, a, c)
}
