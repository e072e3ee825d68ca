package qexpr

import (
	"cmp"
	"strings"
)

// Term is a single normalized token.
//
// The caller owns the tokenization and normalization policy; Term stores
// whatever text it is given. Term is comparable and ordered by its text, so
// it can key maps and be sorted deterministically.
type Term string

// NewTerm creates a term. It never fails.
func NewTerm(s string) Term {
	return Term(s)
}

// Terms builds a term slice from strings.
func Terms(ss ...string) []Term {
	ts := make([]Term, len(ss))
	for i, s := range ss {
		ts[i] = Term(s)
	}
	return ts
}

// IsBlank reports whether the term is empty or whitespace.
func (t Term) IsBlank() bool {
	return strings.TrimSpace(string(t)) == ""
}

// Compare orders terms by their underlying text.
func (t Term) Compare(other Term) int {
	return cmp.Compare(t, other)
}

// FieldName identifies an index field.
// Same contract as Term, different meaning.
type FieldName string

// NewFieldName creates a field name. It never fails.
func NewFieldName(s string) FieldName {
	return FieldName(s)
}

// IsBlank reports whether the field name is empty or whitespace.
func (f FieldName) IsBlank() bool {
	return strings.TrimSpace(string(f)) == ""
}

// Compare orders field names by their underlying text.
func (f FieldName) Compare(other FieldName) int {
	return cmp.Compare(f, other)
}

// Phrase is an ordered sequence of terms meant to occur adjacently.
// Exact adjacency semantics belong to the evaluator.
type Phrase struct {
	Terms []Term
}

// NewPhrase creates a phrase holding exactly the given terms.
func NewPhrase(terms ...Term) Phrase {
	return Phrase{Terms: terms}
}

// IsBlank reports whether the phrase has no terms or only blank terms.
func (p Phrase) IsBlank() bool {
	return allBlank(p.Terms)
}

// Near is a proximity constraint over terms.
//
// Interpretation: there exists an assignment of positions, one per term
// occurrence, such that max(pos) - min(pos) <= Window. When Ordered is true
// the positions must also follow the order of Terms.
//
// Near only carries the constraint. Nothing here evaluates it.
type Near struct {
	Terms   []Term // participants, at least 2 to be usable
	Window  uint32 // window size in tokens, 0 is unusable
	Ordered bool   // enforce term order
}

// NewNear creates a proximity constraint holding exactly what is passed.
func NewNear(terms []Term, window uint32, ordered bool) Near {
	return Near{Terms: terms, Window: window, Ordered: ordered}
}

// IsBlank reports whether the constraint is structurally unusable: fewer
// than two terms, only blank terms, or a zero window.
func (n Near) IsBlank() bool {
	return len(n.Terms) < 2 || allBlank(n.Terms) || n.Window == 0
}

// allBlank is true for an empty slice.
func allBlank(ts []Term) bool {
	for _, t := range ts {
		if !t.IsBlank() {
			return false
		}
	}
	return true
}
