package qexpr

// Validate checks a query expression for structural well-formedness.
//
// It returns nil or the first ValidateError found. Traversal is depth-first
// and left-to-right; the first violation wins and the rest of the tree is
// not visited:
//   - Term: BlankTerm if blank
//   - Phrase: BlankPhrase if blank (blank terms inside a usable phrase are
//     not reported)
//   - Near: BlankNear if blank
//   - And, Or: EmptyJunction if there are no children, else each child
//   - Not: the child's result
//   - Field: BlankFieldName if the name is blank, checked before the child
//   - nil: NilExpr
//
// Validate does not check semantics such as "does this field exist".
//
// The walk keeps its own stack, so arbitrarily deep trees cannot exhaust
// the goroutine stack. Validate is a pure function with no side effects.
func Validate(e Expr) error {
	stack := []Expr{e}
	for len(stack) > 0 {
		top := len(stack) - 1
		node := stack[top]
		stack = stack[:top]

		switch x := Normalize(node).(type) {
		case nil:
			return NilExpr
		case Term:
			if x.IsBlank() {
				return BlankTerm
			}
		case Phrase:
			if x.IsBlank() {
				return BlankPhrase
			}
		case Near:
			if x.IsBlank() {
				return BlankNear
			}
		case And:
			if len(x.Children) == 0 {
				return EmptyJunction
			}
			stack = pushReversed(stack, x.Children)
		case Or:
			if len(x.Children) == 0 {
				return EmptyJunction
			}
			stack = pushReversed(stack, x.Children)
		case Not:
			stack = append(stack, x.Child)
		case Field:
			if x.Name.IsBlank() {
				return BlankFieldName
			}
			stack = append(stack, x.Child)
		}
	}
	return nil
}

// IsValid reports whether Validate(e) succeeds.
func IsValid(e Expr) bool {
	return Validate(e) == nil
}

// pushReversed pushes children so the leftmost one is popped first.
func pushReversed(stack, children []Expr) []Expr {
	for i := len(children) - 1; i >= 0; i-- {
		stack = append(stack, children[i])
	}
	return stack
}
