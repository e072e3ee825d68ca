package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qexpr"
	"github.com/roach88/qexpr/internal/canonical"
)

func testDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "catalog.db")
}

func TestSave(t *testing.T) {
	db := testDB(t)

	stdout, _, err := execute(t, "--format", "json", "save", "--db", db, validQueries)
	require.NoError(t, err)

	var result SaveResult
	resp := decodeResponse(t, stdout, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, result.Saved)
	assert.Equal(t, 0, result.Unchanged)
	require.Len(t, result.Revisions, 2)
	assert.Equal(t, "memory-safety", result.Revisions[0].Name)
	assert.Equal(t, int64(1), result.Revisions[0].Seq)
	require.NotNil(t, result.Revisions[0].Created)
	assert.True(t, *result.Revisions[0].Created)
}

func TestSave_SecondRunUnchanged(t *testing.T) {
	db := testDB(t)

	_, _, err := execute(t, "save", "--db", db, validQueries)
	require.NoError(t, err)

	stdout, _, err := execute(t, "save", "--db", db, validQueries)
	require.NoError(t, err)
	assert.Contains(t, stdout, "unchanged memory-safety@1")
	assert.Contains(t, stdout, "0 saved, 2 unchanged")
}

func TestSave_InvalidWritesNothing(t *testing.T) {
	db := testDB(t)

	stdout, _, err := execute(t, "save", "--db", db, invalidQueries)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ Validation failed")

	stdout, _, err = execute(t, "list", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "No queries stored")
}

func TestShow(t *testing.T) {
	db := testDB(t)
	_, _, err := execute(t, "save", "--db", db, validQueries)
	require.NoError(t, err)

	stdout, _, err := execute(t, "--format", "json", "show", "--db", db, "memory-safety")
	require.NoError(t, err)

	var rev RevisionOutput
	decodeResponse(t, stdout, &rev)

	want := qexpr.NewNear(qexpr.Terms("memory", "safety"), 4, false)
	assert.Equal(t, "memory-safety", rev.Name)
	assert.Equal(t, int64(1), rev.Seq)
	assert.Equal(t, canonical.MustExprID(want), rev.ExprID)
	assert.Nil(t, rev.Created)

	expr, err := qexpr.Unmarshal(rev.Expr)
	require.NoError(t, err)
	assert.True(t, qexpr.Equal(want, expr))
}

func TestShow_Text(t *testing.T) {
	db := testDB(t)
	_, _, err := execute(t, "save", "--db", db, validQueries)
	require.NoError(t, err)

	stdout, _, err := execute(t, "--verbose", "show", "--db", db, "recent-rust")
	require.NoError(t, err)
	assert.Contains(t, stdout, "name:     recent-rust")
	assert.Contains(t, stdout, "seq:      1")
	assert.Contains(t, stdout, `debug:    AND(title:"rust", NOT(PHRASE("release" "notes")))`)
}

func TestShow_NotFound(t *testing.T) {
	stdout, _, err := execute(t, "show", "--db", testDB(t), "missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E005]: query not found: missing")
}

func TestHistoryAndShowSeq(t *testing.T) {
	db := testDB(t)
	v1 := writeQueries(t, "v1.json", `{"q": {"Term": "rust"}}`)
	v2 := writeQueries(t, "v2.json", `{"q": {"And": [{"Term": "rust"}, {"Term": "async"}]}}`)

	_, _, err := execute(t, "save", "--db", db, v1)
	require.NoError(t, err)
	_, _, err = execute(t, "save", "--db", db, v2)
	require.NoError(t, err)

	stdout, _, err := execute(t, "--format", "json", "history", "--db", db, "q")
	require.NoError(t, err)

	var revs []RevisionOutput
	decodeResponse(t, stdout, &revs)
	require.Len(t, revs, 2)
	assert.Equal(t, int64(1), revs[0].Seq)
	assert.Equal(t, int64(2), revs[1].Seq)
	assert.Equal(t, canonical.MustExprID(qexpr.NewTerm("rust")), revs[0].ExprID)

	stdout, _, err = execute(t, "show", "--db", db, "--seq", "1", "q")
	require.NoError(t, err)
	assert.Contains(t, stdout, `expr:     {"Term":"rust"}`)
}

func TestHistory_Unknown(t *testing.T) {
	stdout, _, err := execute(t, "history", "--db", testDB(t), "nope")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No revisions found for query: nope")
}

func TestList(t *testing.T) {
	db := testDB(t)
	_, _, err := execute(t, "save", "--db", db, validQueries)
	require.NoError(t, err)

	stdout, _, err := execute(t, "--format", "json", "list", "--db", db)
	require.NoError(t, err)

	var heads []RevisionOutput
	decodeResponse(t, stdout, &heads)
	require.Len(t, heads, 2)
	assert.Equal(t, "memory-safety", heads[0].Name)
	assert.Equal(t, "recent-rust", heads[1].Name)
}

func TestList_Filter(t *testing.T) {
	db := testDB(t)
	_, _, err := execute(t, "save", "--db", db, validQueries)
	require.NoError(t, err)

	stdout, _, err := execute(t, "--format", "json", "list", "--db", db, "--term", "rust", "--field", "title")
	require.NoError(t, err)

	var heads []RevisionOutput
	decodeResponse(t, stdout, &heads)
	require.Len(t, heads, 1)
	assert.Equal(t, "recent-rust", heads[0].Name)

	stdout, _, err = execute(t, "list", "--db", db, "--term", "memory", "--term", "safety")
	require.NoError(t, err)
	assert.Contains(t, stdout, "memory-safety@1")
	assert.NotContains(t, stdout, "recent-rust")

	stdout, _, err = execute(t, "list", "--db", db, "--term", "zig")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No queries match")
}

func TestList_BlankFilterKey(t *testing.T) {
	stdout, _, err := execute(t, "list", "--db", testDB(t), "--field", " ")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "must not be blank")
}

func TestDelete(t *testing.T) {
	db := testDB(t)
	_, _, err := execute(t, "save", "--db", db, validQueries)
	require.NoError(t, err)

	stdout, _, err := execute(t, "delete", "--db", db, "--prune", "recent-rust")
	require.NoError(t, err)
	assert.Contains(t, stdout, "deleted recent-rust (pruned 1 unused expressions)")

	_, _, err = execute(t, "show", "--db", db, "recent-rust")
	require.Error(t, err)

	_, _, err = execute(t, "delete", "--db", db, "recent-rust")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCatalog_DBFromConfig(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "from-config.db")
	cfg := writeQueries(t, "qexpr.toml", "db = '"+db+"'\n")

	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", cfg, "save", validQueries})
	require.NoError(t, cmd.Execute())

	stdout, _, err := execute(t, "list", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "memory-safety@1")
}
