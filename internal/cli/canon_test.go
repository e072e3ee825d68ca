package cli

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qexpr"
	"github.com/roach88/qexpr/internal/canonical"
)

func TestFmt_Golden(t *testing.T) {
	stdout, _, err := execute(t, "fmt", validQueries)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "fmt_valid", []byte(stdout))
}

func TestFmt_SameTreeAcrossFormats(t *testing.T) {
	jsonPath := writeQueries(t, "q.json", `{"q": {"Field": ["title", {"Or": [{"Term": "a"}, {"Term": "b"}]}]}}`)
	cuePath := writeQueries(t, "q.cue", `q: Field: ["title", {Or: [{Term: "a"}, {Term: "b"}]}]`)

	fromJSON, _, err := execute(t, "fmt", jsonPath)
	require.NoError(t, err)
	fromCUE, _, err := execute(t, "fmt", cuePath)
	require.NoError(t, err)

	assert.Equal(t, fromJSON, fromCUE)
}

func TestFmt_DoesNotValidate(t *testing.T) {
	stdout, _, err := execute(t, "fmt", invalidQueries)
	require.NoError(t, err)
	assert.Contains(t, stdout, "empty\t{\"Or\":[]}")
}

func TestFmt_JSON(t *testing.T) {
	stdout, _, err := execute(t, "--format", "json", "fmt", validQueries)
	require.NoError(t, err)

	var out []FormattedQuery
	resp := decodeResponse(t, stdout, &out)
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, out, 2)
	assert.Equal(t, "memory-safety", out[0].Name)

	expr, err := qexpr.Unmarshal(out[0].Expr)
	require.NoError(t, err)
	assert.True(t, qexpr.Equal(qexpr.NewNear(qexpr.Terms("memory", "safety"), 4, false), expr))
}

func TestFmt_NoHTMLEscaping(t *testing.T) {
	path := writeQueries(t, "html.json", `{"q": {"Term": "<a&b>"}}`)

	stdout, _, err := execute(t, "--format", "json", "fmt", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, `<a&b>`)
}

func TestID(t *testing.T) {
	stdout, _, err := execute(t, "--format", "json", "id", validQueries)
	require.NoError(t, err)

	var out []IdentifiedQuery
	decodeResponse(t, stdout, &out)
	require.Len(t, out, 2)

	want := canonical.MustExprID(qexpr.NewNear(qexpr.Terms("memory", "safety"), 4, false))
	assert.Equal(t, IdentifiedQuery{Name: "memory-safety", ExprID: want}, out[0])
}

func TestID_Text(t *testing.T) {
	stdout, _, err := execute(t, "id", validQueries)
	require.NoError(t, err)

	want := canonical.MustExprID(qexpr.NewNear(qexpr.Terms("memory", "safety"), 4, false))
	assert.Contains(t, stdout, want+"  memory-safety\n")
}

func TestFormattedQuery_JSONShape(t *testing.T) {
	data, err := json.Marshal(FormattedQuery{Name: "q", Expr: json.RawMessage(`{"Term":"a"}`)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"q","expr":{"Term":"a"}}`, string(data))
}
