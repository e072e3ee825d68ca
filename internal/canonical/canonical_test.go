package canonical

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qexpr"
	"github.com/roach88/qexpr/internal/testutil"
)

func TestMarshalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"empty string", "", `""`},
		{"int", 42, "42"},
		{"int64", int64(-100), "-100"},
		{"uint32", uint32(4294967295), "4294967295"},
		{"json number", json.Number("7"), "7"},
		{"bool true", true, "true"},
		{"bool false", false, "false"},
		{"empty array", []any{}, "[]"},
		{"empty object", map[string]any{}, "{}"},
		{"array", []any{"a", int64(1), true}, `["a",1,true]`},
		{"simple object", map[string]any{"a": int64(1)}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Marshal(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalSortedKeys(t *testing.T) {
	obj := map[string]any{
		"zebra": int64(1),
		"alpha": int64(2),
		"beta":  map[string]any{"y": int64(1), "x": int64(2)},
	}

	result, err := Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":{"x":2,"y":1},"zebra":1}`, string(result))
}

func TestMarshalUTF16Ordering(t *testing.T) {
	// U+E000 vs U+10000 - UTF-16 order differs from UTF-8
	obj := map[string]any{
		"\ue000":     int64(1),
		"\U00010000": int64(2),
	}

	result, err := Marshal(obj)
	require.NoError(t, err)

	// UTF-16: 0xD800 (surrogate of U+10000) < 0xE000
	assert.Equal(t, "{\"\U00010000\":2,\"\ue000\":1}", string(result))
}

func TestMarshalNoHTMLEscaping(t *testing.T) {
	result, err := Marshal("<a&b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a&b>"`, string(result))
}

func TestMarshalLineSeparators(t *testing.T) {
	result, err := Marshal("a\u2028b\u2029c")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(result))

	// A literal backslash followed by the text u2028 stays escaped
	result, err = Marshal(`x\u2028`)
	require.NoError(t, err)
	assert.Equal(t, `"x\\u2028"`, string(result))
}

func TestMarshalControlCharacters(t *testing.T) {
	result, err := Marshal("tab\there\nquote\"")
	require.NoError(t, err)
	assert.Equal(t, `"tab\there\nquote\""`, string(result))
}

func TestMarshalNFC(t *testing.T) {
	composed := "caf\u00e9"
	decomposed := "cafe\u0301"

	a, err := Marshal(composed)
	require.NoError(t, err)
	b, err := Marshal(decomposed)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestMarshalRejects(t *testing.T) {
	tests := []struct {
		name  string
		input any
		msg   string
	}{
		{"null", nil, "null is forbidden"},
		{"float", 1.5, "floats are forbidden"},
		{"float number", json.Number("1.5"), "floats are forbidden"},
		{"nested null", map[string]any{"a": []any{nil}}, "null is forbidden"},
		{"unsupported", struct{}{}, "unsupported type"},
		{"invalid utf8", "a\xffb", "not valid UTF-8"},
		{"invalid utf8 key", map[string]any{"\xfe": int64(1)}, "not valid UTF-8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Marshal(tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func fieldAndNear() qexpr.Expr {
	return qexpr.NewField("title", qexpr.NewAnd(
		qexpr.NewTerm("rust"),
		qexpr.NewNear(qexpr.Terms("memory", "safety"), 4, false),
	))
}

func TestMarshalExpr_Golden(t *testing.T) {
	data, err := MarshalExpr(fieldAndNear())
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "field_and_near", data)
}

func TestMarshalExpr_MatchesDecoder(t *testing.T) {
	data, err := MarshalExpr(fieldAndNear())
	require.NoError(t, err)

	back, err := qexpr.Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, qexpr.Equal(fieldAndNear(), back))
}

func TestMarshalExpr_RandomTreesStable(t *testing.T) {
	r := testutil.NewRand(99)
	for i := 0; i < 300; i++ {
		expr := testutil.RandomValidExpr(r, 1+i%6)

		data, err := MarshalExpr(expr)
		require.NoError(t, err, "%s", expr)

		back, err := qexpr.Unmarshal(data)
		require.NoError(t, err, "%s", data)
		require.True(t, qexpr.Equal(expr, back), "%s != %s", expr, back)

		again, err := MarshalExpr(back)
		require.NoError(t, err)
		assert.Equal(t, string(data), string(again))
		assert.Equal(t, MustExprID(expr), MustExprID(back))
	}
}
