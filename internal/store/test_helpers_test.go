package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/qexpr"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// countRows returns the number of rows in a table.
func countRows(t *testing.T, s *Store, table string) int {
	t.Helper()
	rows, err := s.Query(context.Background(), "SELECT COUNT(*) FROM "+table)
	if err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	defer rows.Close()

	var n int
	if !rows.Next() {
		t.Fatalf("count %s: no rows", table)
	}
	if err := rows.Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func rustQuery() qexpr.Expr {
	return qexpr.NewAnd(
		qexpr.NewField("title", qexpr.NewTerm("rust")),
		qexpr.NewNot(qexpr.NewPhrase(qexpr.Terms("release", "notes")...)),
	)
}

func goQuery() qexpr.Expr {
	return qexpr.NewOr(qexpr.NewTerm("go"), qexpr.NewTerm("golang"))
}
