// Package testutil holds fixtures shared by the qexpr package tests.
package testutil

import (
	"math/rand/v2"

	"github.com/roach88/qexpr"
)

// Vocabulary is the term pool RandomValidExpr draws from. Every entry is
// non-blank and already in NFC, so generated trees survive canonical
// encoding unchanged.
var Vocabulary = []string{
	"rust", "go", "memory", "safety", "release", "notes",
	"garbage", "collector", "caf\u00e9", "\u6f22\u5b57",
}

// Fields is the field-name pool RandomValidExpr draws from.
var Fields = []qexpr.FieldName{"title", "body", "author", "tags"}

// NewRand returns a deterministic source for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// RandomValidExpr builds a tree that passes qexpr.Validate with at most
// depth levels. Depth below 1 is treated as 1. The same r state always
// produces the same tree.
func RandomValidExpr(r *rand.Rand, depth int) qexpr.Expr {
	if depth <= 1 {
		return randomLeaf(r)
	}

	switch r.IntN(6) {
	case 0:
		return qexpr.NewAnd(randomChildren(r, depth-1)...)
	case 1:
		return qexpr.NewOr(randomChildren(r, depth-1)...)
	case 2:
		return qexpr.NewNot(RandomValidExpr(r, depth-1))
	case 3:
		return qexpr.NewField(Fields[r.IntN(len(Fields))], RandomValidExpr(r, depth-1))
	default:
		return randomLeaf(r)
	}
}

func randomChildren(r *rand.Rand, depth int) []qexpr.Expr {
	children := make([]qexpr.Expr, 1+r.IntN(3))
	for i := range children {
		children[i] = RandomValidExpr(r, depth)
	}
	return children
}

func randomLeaf(r *rand.Rand) qexpr.Expr {
	switch r.IntN(3) {
	case 0:
		return qexpr.NewTerm(randomWord(r))
	case 1:
		return qexpr.NewPhrase(randomTerms(r, 1+r.IntN(3))...)
	default:
		return qexpr.NewNear(randomTerms(r, 2+r.IntN(3)), uint32(1+r.IntN(10)), r.IntN(2) == 0)
	}
}

func randomTerms(r *rand.Rand, n int) []qexpr.Term {
	ts := make([]qexpr.Term, n)
	for i := range ts {
		ts[i] = qexpr.NewTerm(randomWord(r))
	}
	return ts
}

func randomWord(r *rand.Rand) string {
	return Vocabulary[r.IntN(len(Vocabulary))]
}
