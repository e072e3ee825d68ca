package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/qexpr"
)

// ErrNotFound is returned when a name or expression ID has no rows.
var ErrNotFound = errors.New("not found")

const revisionColumns = `r.id, r.name, r.expr_id, r.seq, e.body`

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRevision(row scanner) (Revision, error) {
	var rev Revision
	var body string
	if err := row.Scan(&rev.ID, &rev.Name, &rev.ExprID, &rev.Seq, &body); err != nil {
		return Revision{}, err
	}

	expr, err := qexpr.Unmarshal([]byte(body))
	if err != nil {
		return Revision{}, fmt.Errorf("decode expression %s: %w", rev.ExprID, err)
	}
	rev.Expr = expr
	return rev, nil
}

// Get returns the newest revision of name.
// Returns ErrNotFound (wrapped) if name has never been saved.
func (s *Store) Get(ctx context.Context, name string) (Revision, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+revisionColumns+`
		FROM revisions r
		JOIN expressions e ON e.id = r.expr_id
		WHERE r.name = ?
		ORDER BY r.seq DESC
		LIMIT 1
	`, name)

	rev, err := scanRevision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Revision{}, fmt.Errorf("get %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return Revision{}, fmt.Errorf("get %q: %w", name, err)
	}
	return rev, nil
}

// GetAt returns revision seq of name.
func (s *Store) GetAt(ctx context.Context, name string, seq int64) (Revision, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+revisionColumns+`
		FROM revisions r
		JOIN expressions e ON e.id = r.expr_id
		WHERE r.name = ? AND r.seq = ?
	`, name, seq)

	rev, err := scanRevision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Revision{}, fmt.Errorf("get %q@%d: %w", name, seq, ErrNotFound)
	}
	if err != nil {
		return Revision{}, fmt.Errorf("get %q@%d: %w", name, seq, err)
	}
	return rev, nil
}

// History returns every revision of name, oldest first.
//
// Returns an empty slice (not nil) if name has never been saved.
func (s *Store) History(ctx context.Context, name string) ([]Revision, error) {
	return s.queryRevisions(ctx, "history", `
		SELECT `+revisionColumns+`
		FROM revisions r
		JOIN expressions e ON e.id = r.expr_id
		WHERE r.name = ?
		ORDER BY r.seq ASC, r.id COLLATE BINARY ASC
	`, name)
}

// List returns the newest revision of every name, ordered by name.
//
// Returns an empty slice (not nil) for an empty catalog.
func (s *Store) List(ctx context.Context) ([]Revision, error) {
	return s.queryRevisions(ctx, "list", `
		SELECT `+revisionColumns+`
		FROM revisions r
		JOIN expressions e ON e.id = r.expr_id
		WHERE r.seq = (SELECT MAX(seq) FROM revisions WHERE name = r.name)
		ORDER BY r.name COLLATE BINARY ASC
	`)
}

// Expression returns the stored expression with the given content ID.
func (s *Store) Expression(ctx context.Context, exprID string) (qexpr.Expr, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM expressions WHERE id = ?`, exprID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("expression %s: %w", exprID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("expression %s: %w", exprID, err)
	}

	expr, err := qexpr.Unmarshal([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("expression %s: %w", exprID, err)
	}
	return expr, nil
}

// Names returns every name that has an expression with the given content ID
// at head, ordered by name.
func (s *Store) Names(ctx context.Context, exprID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.name
		FROM revisions r
		WHERE r.expr_id = ?
		  AND r.seq = (SELECT MAX(seq) FROM revisions WHERE name = r.name)
		ORDER BY r.name COLLATE BINARY ASC
	`, exprID)
	if err != nil {
		return nil, fmt.Errorf("names: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("names: scan: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("names: iterate: %w", err)
	}
	return names, nil
}

func (s *Store) queryRevisions(ctx context.Context, op, query string, args ...any) ([]Revision, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	revisions := []Revision{}
	for rows.Next() {
		rev, err := scanRevision(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		revisions = append(revisions, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}
	return revisions, nil
}
