package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qexpr"
	"github.com/roach88/qexpr/internal/canonical"
	"github.com/roach88/qexpr/internal/testutil"
)

func TestGet_ReturnsHead(t *testing.T) {
	s := createTestStore(t, WithIDGenerator(NewFixedGenerator("rev-1", "rev-2")))
	ctx := context.Background()

	_, err := s.Put(ctx, "q", rustQuery())
	require.NoError(t, err)
	_, err = s.Put(ctx, "q", goQuery())
	require.NoError(t, err)

	rev, err := s.Get(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, "rev-2", rev.ID)
	assert.Equal(t, int64(2), rev.Seq)
	assert.False(t, rev.Created)
	assert.True(t, qexpr.Equal(goQuery(), rev.Expr), "got %s", rev.Expr)
}

func TestGet_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetAt(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "q", rustQuery())
	require.NoError(t, err)
	_, err = s.Put(ctx, "q", goQuery())
	require.NoError(t, err)

	rev, err := s.GetAt(ctx, "q", 1)
	require.NoError(t, err)
	assert.True(t, qexpr.Equal(rustQuery(), rev.Expr))

	_, err = s.GetAt(ctx, "q", 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHistory(t *testing.T) {
	s := createTestStore(t, WithIDGenerator(NewFixedGenerator("r1", "r2", "r3")))
	ctx := context.Background()

	for _, e := range []qexpr.Expr{rustQuery(), goQuery(), rustQuery()} {
		_, err := s.Put(ctx, "q", e)
		require.NoError(t, err)
	}

	history, err := s.History(ctx, "q")
	require.NoError(t, err)
	require.Len(t, history, 3)

	for i, rev := range history {
		assert.Equal(t, int64(i+1), rev.Seq)
		assert.Equal(t, "q", rev.Name)
	}
	assert.Equal(t, []string{"r1", "r2", "r3"}, []string{history[0].ID, history[1].ID, history[2].ID})
	assert.Equal(t, history[0].ExprID, history[2].ExprID)
}

func TestHistory_Empty(t *testing.T) {
	s := createTestStore(t)

	history, err := s.History(context.Background(), "missing")
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestList(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "zeta", goQuery())
	require.NoError(t, err)
	_, err = s.Put(ctx, "alpha", goQuery())
	require.NoError(t, err)
	_, err = s.Put(ctx, "alpha", rustQuery())
	require.NoError(t, err)
	_, err = s.Put(ctx, "Beta", rustQuery())
	require.NoError(t, err)

	heads, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, heads, 3)

	// Binary collation: uppercase sorts first
	assert.Equal(t, "Beta", heads[0].Name)
	assert.Equal(t, "alpha", heads[1].Name)
	assert.Equal(t, int64(2), heads[1].Seq)
	assert.True(t, qexpr.Equal(rustQuery(), heads[1].Expr))
	assert.Equal(t, "zeta", heads[2].Name)
}

func TestList_Empty(t *testing.T) {
	s := createTestStore(t)

	heads, err := s.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, heads)
	assert.Empty(t, heads)
}

func TestExpression(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rev, err := s.Put(ctx, "q", rustQuery())
	require.NoError(t, err)

	expr, err := s.Expression(ctx, rev.ExprID)
	require.NoError(t, err)
	assert.True(t, qexpr.Equal(rustQuery(), expr))

	_, err = s.Expression(ctx, canonical.MustExprID(qexpr.NewTerm("never saved")))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNames(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "b", goQuery())
	require.NoError(t, err)
	_, err = s.Put(ctx, "a", goQuery())
	require.NoError(t, err)
	_, err = s.Put(ctx, "c", goQuery())
	require.NoError(t, err)
	// c moves on; its old revision no longer counts
	_, err = s.Put(ctx, "c", rustQuery())
	require.NoError(t, err)

	names, err := s.Names(ctx, canonical.MustExprID(goQuery()))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestStoredBodyIsCanonical(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rev, err := s.Put(ctx, "q", rustQuery())
	require.NoError(t, err)

	rows, err := s.Query(ctx, "SELECT body FROM expressions WHERE id = ?", rev.ExprID)
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())

	var body string
	require.NoError(t, rows.Scan(&body))

	want, err := canonical.MarshalExpr(rustQuery())
	require.NoError(t, err)
	assert.Equal(t, string(want), body)
}

func TestPutGet_RandomTreesRoundTrip(t *testing.T) {
	ids := testutil.NewSequentialIDs("rev")
	s := createTestStore(t, WithIDGenerator(ids))
	ctx := context.Background()
	r := testutil.NewRand(2024)

	for i := 0; i < 100; i++ {
		expr := testutil.RandomValidExpr(r, 1+i%5)
		name := fmt.Sprintf("q%03d", i)

		rev, err := s.Put(ctx, name, expr)
		require.NoError(t, err, "%s: %s", name, expr)

		got, err := s.Get(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, rev.ID, got.ID)
		assert.True(t, qexpr.Equal(expr, got.Expr), "%s: put %s, got %s", name, expr, got.Expr)
	}
	assert.Equal(t, int64(100), ids.Count())
}
