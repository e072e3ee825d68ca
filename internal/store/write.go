package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/qexpr"
	"github.com/roach88/qexpr/internal/canonical"
)

// ErrBlankName is returned when a query name is empty or whitespace.
var ErrBlankName = errors.New("query name must not be blank")

// Revision is one saved version of a named query.
type Revision struct {
	ID     string     // UUIDv7
	Name   string     // query name
	ExprID string     // canonical.ExprID of Expr
	Seq    int64      // 1-based, per name
	Expr   qexpr.Expr // decoded body

	// Created is false when Put found the same expression already at head.
	Created bool
}

// Put saves expr as the newest revision of name.
//
// The expression must be well-formed; the qexpr.ValidateError is returned
// wrapped, so errors.Is(err, qexpr.BlankTerm) works. Saving a tree equal to
// the current head returns the head with Created=false and writes nothing.
func (s *Store) Put(ctx context.Context, name string, expr qexpr.Expr) (Revision, error) {
	if strings.TrimSpace(name) == "" {
		return Revision{}, fmt.Errorf("put: %w", ErrBlankName)
	}
	if err := qexpr.Validate(expr); err != nil {
		return Revision{}, fmt.Errorf("put %q: %w", name, err)
	}

	body, err := canonical.MarshalExpr(expr)
	if err != nil {
		return Revision{}, fmt.Errorf("put %q: %w", name, err)
	}
	exprID, err := canonical.ExprID(expr)
	if err != nil {
		return Revision{}, fmt.Errorf("put %q: %w", name, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Revision{}, fmt.Errorf("put %q: begin: %w", name, err)
	}
	defer tx.Rollback()

	var head Revision
	err = tx.QueryRowContext(ctx, `
		SELECT id, expr_id, seq
		FROM revisions
		WHERE name = ?
		ORDER BY seq DESC
		LIMIT 1
	`, name).Scan(&head.ID, &head.ExprID, &head.Seq)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// first revision
	case err != nil:
		return Revision{}, fmt.Errorf("put %q: read head: %w", name, err)
	case head.ExprID == exprID:
		head.Name = name
		head.Expr = qexpr.Normalize(expr)
		s.logger.Debug("put unchanged", "name", name, "seq", head.Seq, "expr_id", exprID)
		return head, nil
	}

	// Bodies are content-addressed: an existing row already holds this body.
	res, err := tx.ExecContext(ctx, `
		INSERT INTO expressions (id, body)
		VALUES (?, ?)
		ON CONFLICT(id) DO NOTHING
	`, exprID, string(body))
	if err != nil {
		return Revision{}, fmt.Errorf("put %q: write expression: %w", name, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return Revision{}, fmt.Errorf("put %q: write expression: %w", name, err)
	} else if n > 0 {
		if err := writeSearchKeys(ctx, tx, exprID, expr); err != nil {
			return Revision{}, fmt.Errorf("put %q: %w", name, err)
		}
	}

	rev := Revision{
		ID:      s.ids.Generate(),
		Name:    name,
		ExprID:  exprID,
		Seq:     head.Seq + 1,
		Expr:    qexpr.Normalize(expr),
		Created: true,
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO revisions (id, name, expr_id, seq)
		VALUES (?, ?, ?, ?)
	`, rev.ID, rev.Name, rev.ExprID, rev.Seq); err != nil {
		return Revision{}, fmt.Errorf("put %q: write revision: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return Revision{}, fmt.Errorf("put %q: commit: %w", name, err)
	}

	s.logger.Info("revision saved", "name", name, "seq", rev.Seq, "expr_id", exprID, "revision_id", rev.ID)
	return rev, nil
}

// Delete removes every revision of name.
// Expression bodies are kept; other names may still point at them.
// Returns ErrNotFound if name has no revisions.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM revisions WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %q: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("delete %q: %w", name, ErrNotFound)
	}

	s.logger.Info("query deleted", "name", name, "revisions", n)
	return nil
}

// Prune removes expression bodies no revision points at and returns how
// many were removed.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM expressions
		WHERE id NOT IN (SELECT expr_id FROM revisions)
	`)
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	if n > 0 {
		s.logger.Info("orphaned expressions pruned", "count", n)
	}
	return n, nil
}
