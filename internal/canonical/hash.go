package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/roach88/qexpr"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for a future algorithm change.
const (
	DomainExpr = "qexpr/expr/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// MarshalExpr returns the canonical JSON of an expression.
// Trees with nil slots cannot be encoded.
func MarshalExpr(e qexpr.Expr) ([]byte, error) {
	v, err := qexpr.ToValue(e)
	if err != nil {
		return nil, err
	}
	return Marshal(v)
}

// ExprID computes the content-addressed ID of an expression.
// The ID is stable across processes and encodings: the same tree always
// hashes to the same hex string.
//
// ExprID does not validate. Callers that only want to identify
// well-formed queries validate first.
func ExprID(e qexpr.Expr) (string, error) {
	data, err := MarshalExpr(e)
	if err != nil {
		return "", fmt.Errorf("ExprID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainExpr, data), nil
}

// MustExprID is like ExprID but panics on error.
// Use only in tests or when the tree is known to have no nil slots.
func MustExprID(e qexpr.Expr) string {
	id, err := ExprID(e)
	if err != nil {
		panic(err)
	}
	return id
}
