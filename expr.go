package qexpr

// Expr is a query expression.
//
// This is a sealed interface - only types in this package implement it.
// The variant set is closed, so consumers switch over it exhaustively:
//
//	switch e := qexpr.Normalize(expr).(type) {
//	case qexpr.Term:
//	case qexpr.Phrase:
//	case qexpr.Near:
//	case qexpr.And:
//	case qexpr.Or:
//	case qexpr.Not:
//	case qexpr.Field:
//	}
//
// Both value and pointer forms satisfy Expr. Normalize folds pointers into
// values so a switch only needs the value cases.
type Expr interface {
	exprNode() // Marker method - seals interface to this package
	String() string
}

func (Term) exprNode()   {}
func (Phrase) exprNode() {}
func (Near) exprNode()   {}
func (And) exprNode()    {}
func (Or) exprNode()     {}
func (Not) exprNode()    {}
func (Field) exprNode()  {}

// And is a conjunction: all children must match.
type And struct {
	Children []Expr
}

// NewAnd creates a conjunction. An empty And can be built but does not
// validate.
func NewAnd(children ...Expr) And {
	return And{Children: children}
}

// Or is a disjunction: at least one child must match.
type Or struct {
	Children []Expr
}

// NewOr creates a disjunction. An empty Or can be built but does not
// validate.
func NewOr(children ...Expr) Or {
	return Or{Children: children}
}

// Not excludes the matches of its child.
//
// No placement rule is imposed. Whether a bare top-level Not is meaningful
// is decided by the consuming planner.
type Not struct {
	Child Expr
}

// NewNot creates a negation.
func NewNot(child Expr) Not {
	return Not{Child: child}
}

// Field scopes evaluation of its child to a named index field.
type Field struct {
	Name  FieldName
	Child Expr
}

// NewField creates a field scope.
func NewField(name FieldName, child Expr) Field {
	return Field{Name: name, Child: child}
}

// Normalize returns the value form of e. Pointer variants are dereferenced;
// nil and nil pointers become nil.
func Normalize(e Expr) Expr {
	switch x := e.(type) {
	case *Term:
		if x == nil {
			return nil
		}
		return *x
	case *Phrase:
		if x == nil {
			return nil
		}
		return *x
	case *Near:
		if x == nil {
			return nil
		}
		return *x
	case *And:
		if x == nil {
			return nil
		}
		return *x
	case *Or:
		if x == nil {
			return nil
		}
		return *x
	case *Not:
		if x == nil {
			return nil
		}
		return *x
	case *Field:
		if x == nil {
			return nil
		}
		return *x
	default:
		return e
	}
}
