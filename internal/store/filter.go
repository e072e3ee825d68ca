package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/qexpr"
)

// ErrBlankFilterKey is returned when a Filter term or field is blank.
var ErrBlankFilterKey = errors.New("filter key must not be blank")

// Filter selects stored queries by what their newest revision mentions.
//
// A head matches when its expression contains every listed term (in a
// Term, Phrase or Near leaf) and scopes to every listed field. An empty
// Filter matches every head. Keys compare after NFC normalization, the
// same way expression identity does.
type Filter struct {
	Terms  []qexpr.Term
	Fields []qexpr.FieldName
}

// IsEmpty reports whether the filter has no keys.
func (f Filter) IsEmpty() bool {
	return len(f.Terms) == 0 && len(f.Fields) == 0
}

// Find returns the newest revision of every name matching f, ordered by name.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) Find(ctx context.Context, f Filter) ([]Revision, error) {
	query, params, err := compileFilter(f)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	return s.queryRevisions(ctx, "find", query, params...)
}

// compileFilter builds the parameterized heads query for f.
//
// Every key becomes one EXISTS predicate bound through a placeholder; no
// key text is ever interpolated. The result is always ordered by name so
// repeated calls return identical slices.
func compileFilter(f Filter) (string, []any, error) {
	predicates := []string{
		"r.seq = (SELECT MAX(seq) FROM revisions WHERE name = r.name)",
	}
	var params []any

	for _, t := range f.Terms {
		if t.IsBlank() {
			return "", nil, fmt.Errorf("term %q: %w", t, ErrBlankFilterKey)
		}
		predicates = append(predicates,
			"EXISTS (SELECT 1 FROM expression_terms t WHERE t.expr_id = r.expr_id AND t.term = ?)")
		params = append(params, norm.NFC.String(string(t)))
	}
	for _, fn := range f.Fields {
		if fn.IsBlank() {
			return "", nil, fmt.Errorf("field %q: %w", fn, ErrBlankFilterKey)
		}
		predicates = append(predicates,
			"EXISTS (SELECT 1 FROM expression_fields f WHERE f.expr_id = r.expr_id AND f.field = ?)")
		params = append(params, norm.NFC.String(string(fn)))
	}

	query := fmt.Sprintf("SELECT %s FROM revisions r JOIN expressions e ON e.id = r.expr_id WHERE %s ORDER BY %s",
		revisionColumns,
		strings.Join(predicates, " AND "),
		"r.name COLLATE BINARY ASC")
	return query, params, nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// writeSearchKeys records the terms and fields of expr under exprID.
// Existing keys are left alone, so it is safe to call more than once.
func writeSearchKeys(ctx context.Context, tx execer, exprID string, expr qexpr.Expr) error {
	for _, t := range qexpr.CollectTerms(expr) {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO expression_terms (expr_id, term)
			VALUES (?, ?)
			ON CONFLICT DO NOTHING
		`, exprID, norm.NFC.String(string(t))); err != nil {
			return fmt.Errorf("index term %q: %w", t, err)
		}
	}
	for _, f := range qexpr.CollectFields(expr) {
		if f.IsBlank() {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO expression_fields (expr_id, field)
			VALUES (?, ?)
			ON CONFLICT DO NOTHING
		`, exprID, norm.NFC.String(string(f))); err != nil {
			return fmt.Errorf("index field %q: %w", f, err)
		}
	}
	return nil
}
