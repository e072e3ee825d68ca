package qexpr

import (
	"strconv"
	"strings"
)

// The String methods render a debug view of a tree. The output is not a
// query syntax and nothing parses it back.

func (t Term) String() string {
	return strconv.Quote(string(t))
}

func (p Phrase) String() string {
	var b strings.Builder
	b.WriteString("PHRASE(")
	writeTerms(&b, p.Terms)
	b.WriteByte(')')
	return b.String()
}

func (n Near) String() string {
	var b strings.Builder
	if n.Ordered {
		b.WriteString("ONEAR/")
	} else {
		b.WriteString("NEAR/")
	}
	b.WriteString(strconv.FormatUint(uint64(n.Window), 10))
	b.WriteByte('(')
	writeTerms(&b, n.Terms)
	b.WriteByte(')')
	return b.String()
}

func (a And) String() string {
	return junctionString("AND", a.Children)
}

func (o Or) String() string {
	return junctionString("OR", o.Children)
}

func (n Not) String() string {
	return "NOT(" + exprString(n.Child) + ")"
}

func (f Field) String() string {
	return string(f.Name) + ":" + exprString(f.Child)
}

func junctionString(op string, children []Expr) string {
	var b strings.Builder
	b.WriteString(op)
	b.WriteByte('(')
	for i, c := range children {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(exprString(c))
	}
	b.WriteByte(')')
	return b.String()
}

func writeTerms(b *strings.Builder, ts []Term) {
	for i, t := range ts {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(t.String())
	}
}

// exprString renders a child slot, which may hold nil.
func exprString(e Expr) string {
	n := Normalize(e)
	if n == nil {
		return "<nil>"
	}
	return n.String()
}
