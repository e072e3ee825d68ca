// Package qexpr provides a typed query algebra for retrieval systems.
//
// The algebra is the shared meaning of a query: terms, phrases, proximity
// constraints, boolean combinators and field scoping. It sits between
// parsers and index backends and commits to neither:
//
//	[surface syntax] → [parser] → [qexpr.Expr] → [planner] → [index backend]
//
// This package is NOT a parser and never executes a query. Tokenization and
// normalization happen before a Term is built; lowering into an executable
// plan happens after validation, in the consuming system.
//
// EXPRESSION TREE:
//
// Expr is a sealed interface using the marker method pattern. Only the
// variants defined here implement it:
//
//	Term      single token
//	Phrase    ordered, adjacent tokens (needs positional index)
//	Near      tokens within a window (needs positions or a verifier)
//	And       all children match
//	Or        any child matches
//	Not       excludes the child's matches
//	Field     scopes the child to a named field
//
// Trees are strict: every node owns its children, nothing is shared and no
// cycle can be built. Values are never mutated after construction, so a
// tree may be read from many goroutines without coordination.
//
// CAN EXIST vs WELL-FORMED:
//
// Constructors never fail. A blank Term or an empty And can be built and
// inspected; Validate is the single source of truth for well-formedness:
//
//	expr := qexpr.NewField("title", qexpr.NewAnd(
//	    qexpr.NewTerm("rust"),
//	    qexpr.NewNear(qexpr.Terms("memory", "safety"), 4, false),
//	))
//	if err := qexpr.Validate(expr); err != nil {
//	    // err is a qexpr.ValidateError, e.g. qexpr.BlankTerm
//	}
//
// Validation is structural only. Whether a field exists or an index supports
// phrases is the planner's business.
//
// ENCODING:
//
// Marshal/Unmarshal (JSON) and MarshalYAML/UnmarshalYAML use an externally
// tagged layout, one key per node naming its variant:
//
//	{"Field": ["title", {"And": [{"Term": "rust"}, {"Phrase": {"terms": ["a", "b"]}}]}]}
//
// Encoding is opt-in and lossless; decoding does not validate.
package qexpr
