package qexpr

import "fmt"

// ValidateError names the structural rule a tree violates.
//
// It carries no location. The contract is "a violation exists", not "where".
// Callers that need a path must walk the tree themselves.
type ValidateError int

const (
	// BlankTerm: a Term node holds a blank term.
	BlankTerm ValidateError = iota + 1

	// BlankPhrase: a Phrase node has no usable terms.
	BlankPhrase

	// BlankNear: a Near node has fewer than 2 terms, only blank terms, or
	// a zero window.
	BlankNear

	// EmptyJunction: an And or Or node has no children.
	EmptyJunction

	// BlankFieldName: a Field node has a blank field name.
	BlankFieldName

	// NilExpr: a node slot holds nil (an untyped nil or a nil pointer
	// variant).
	NilExpr
)

var validateErrorCodes = map[ValidateError]string{
	BlankTerm:      "blank_term",
	BlankPhrase:    "blank_phrase",
	BlankNear:      "blank_near",
	EmptyJunction:  "empty_junction",
	BlankFieldName: "blank_field_name",
	NilExpr:        "nil_expr",
}

var validateErrorMessages = map[ValidateError]string{
	BlankTerm:      "term is blank",
	BlankPhrase:    "phrase has no usable terms",
	BlankNear:      "near needs at least 2 usable terms and a nonzero window",
	EmptyJunction:  "and/or has no children",
	BlankFieldName: "field name is blank",
	NilExpr:        "expression is nil",
}

// Code returns the stable snake_case identifier of the rule.
func (e ValidateError) Code() string {
	if c, ok := validateErrorCodes[e]; ok {
		return c
	}
	return fmt.Sprintf("validate_error_%d", int(e))
}

// Error implements the error interface.
func (e ValidateError) Error() string {
	if m, ok := validateErrorMessages[e]; ok {
		return m
	}
	return fmt.Sprintf("unknown validate error %d", int(e))
}

// String returns the code.
func (e ValidateError) String() string {
	return e.Code()
}

// ParseValidateError maps a code back to its ValidateError.
func ParseValidateError(code string) (ValidateError, bool) {
	for k, v := range validateErrorCodes {
		if v == code {
			return k, true
		}
	}
	return 0, false
}
