package qexpr

import (
	"slices"
)

// Walk visits e and its descendants in pre-order, left to right.
// If fn returns false the children of that node are skipped.
// Nil slots are visited as nil.
func Walk(e Expr, fn func(Expr) bool) {
	stack := []Expr{e}
	for len(stack) > 0 {
		top := len(stack) - 1
		node := Normalize(stack[top])
		stack = stack[:top]

		if !fn(node) {
			continue
		}
		stack = pushReversed(stack, children(node))
	}
}

// children returns the direct children of a normalized node.
func children(e Expr) []Expr {
	switch x := e.(type) {
	case And:
		return x.Children
	case Or:
		return x.Children
	case Not:
		return []Expr{x.Child}
	case Field:
		return []Expr{x.Child}
	default:
		return nil
	}
}

// CollectTerms returns the distinct non-blank terms of every Term, Phrase
// and Near leaf, sorted.
func CollectTerms(e Expr) []Term {
	seen := map[Term]struct{}{}
	Walk(e, func(n Expr) bool {
		switch x := n.(type) {
		case Term:
			seen[x] = struct{}{}
		case Phrase:
			for _, t := range x.Terms {
				seen[t] = struct{}{}
			}
		case Near:
			for _, t := range x.Terms {
				seen[t] = struct{}{}
			}
		}
		return true
	})

	out := make([]Term, 0, len(seen))
	for t := range seen {
		if !t.IsBlank() {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, Term.Compare)
	return out
}

// CollectFields returns the distinct field names used by Field nodes, sorted.
func CollectFields(e Expr) []FieldName {
	seen := map[FieldName]struct{}{}
	Walk(e, func(n Expr) bool {
		if f, ok := n.(Field); ok {
			seen[f.Name] = struct{}{}
		}
		return true
	})

	out := make([]FieldName, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	slices.SortFunc(out, FieldName.Compare)
	return out
}

// Depth returns the number of nodes on the longest root-to-leaf path.
// A leaf has depth 1 and nil has depth 0.
func Depth(e Expr) int {
	type frame struct {
		node  Expr
		depth int
	}

	maxDepth := 0
	stack := []frame{{node: e, depth: 1}}
	for len(stack) > 0 {
		top := len(stack) - 1
		f := stack[top]
		stack = stack[:top]

		node := Normalize(f.node)
		if node == nil {
			continue
		}
		if f.depth > maxDepth {
			maxDepth = f.depth
		}
		for _, c := range children(node) {
			stack = append(stack, frame{node: c, depth: f.depth + 1})
		}
	}
	return maxDepth
}

// Equal reports whether a and b are structurally identical.
// Pointer and value forms of the same node compare equal.
func Equal(a, b Expr) bool {
	type pair struct{ a, b Expr }

	stack := []pair{{a, b}}
	for len(stack) > 0 {
		top := len(stack) - 1
		p := stack[top]
		stack = stack[:top]

		x, y := Normalize(p.a), Normalize(p.b)
		switch xv := x.(type) {
		case nil:
			if y != nil {
				return false
			}
		case Term:
			yv, ok := y.(Term)
			if !ok || xv != yv {
				return false
			}
		case Phrase:
			yv, ok := y.(Phrase)
			if !ok || !slices.Equal(xv.Terms, yv.Terms) {
				return false
			}
		case Near:
			yv, ok := y.(Near)
			if !ok || xv.Window != yv.Window || xv.Ordered != yv.Ordered || !slices.Equal(xv.Terms, yv.Terms) {
				return false
			}
		case And:
			yv, ok := y.(And)
			if !ok || len(xv.Children) != len(yv.Children) {
				return false
			}
			for i := range xv.Children {
				stack = append(stack, pair{xv.Children[i], yv.Children[i]})
			}
		case Or:
			yv, ok := y.(Or)
			if !ok || len(xv.Children) != len(yv.Children) {
				return false
			}
			for i := range xv.Children {
				stack = append(stack, pair{xv.Children[i], yv.Children[i]})
			}
		case Not:
			yv, ok := y.(Not)
			if !ok {
				return false
			}
			stack = append(stack, pair{xv.Child, yv.Child})
		case Field:
			yv, ok := y.(Field)
			if !ok || xv.Name != yv.Name {
				return false
			}
			stack = append(stack, pair{xv.Child, yv.Child})
		}
	}
	return true
}
