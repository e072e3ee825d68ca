package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/qexpr/internal/canonical"
)

// FormattedQuery is one entry of fmt output.
type FormattedQuery struct {
	Name string          `json:"name"`
	Expr json.RawMessage `json:"expr"`
}

// IdentifiedQuery is one entry of id output.
type IdentifiedQuery struct {
	Name   string `json:"name"`
	ExprID string `json:"expr_id"`
}

type formattedList []FormattedQuery

func (l formattedList) String() string {
	lines := make([]string, len(l))
	for i, q := range l {
		lines[i] = q.Name + "\t" + string(q.Expr)
	}
	return strings.Join(lines, "\n")
}

type identifiedList []IdentifiedQuery

func (l identifiedList) String() string {
	lines := make([]string, len(l))
	for i, q := range l {
		lines[i] = q.ExprID + "  " + q.Name
	}
	return strings.Join(lines, "\n")
}

// NewFmtCommand creates the fmt command.
func NewFmtCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fmt <path>...",
		Short: "Print the canonical JSON of every query",
		Long: `Print each query's canonical JSON encoding, one per line.

Canonical JSON sorts object keys, NFC-normalizes strings and drops all
insignificant whitespace, so equal trees print byte-identical output
whichever file format they came from. Queries are not validated.

Examples:
  qexpr fmt queries.yaml
  qexpr fmt --format json queries/`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			qs, err := rootOpts.loadQueries(formatter, args)
			if err != nil {
				return err
			}

			out := make(formattedList, 0, len(qs.Entries))
			for _, entry := range qs.Entries {
				body, err := canonical.MarshalExpr(entry.Expr)
				if err != nil {
					return formatter.Fail(ExitCommandError, ErrCodeEncodeFailed, fmt.Sprintf("query %q", entry.Name), err)
				}
				out = append(out, FormattedQuery{Name: entry.Name, Expr: body})
			}
			return formatter.Success(out)
		},
	}
}

// NewIDCommand creates the id command.
func NewIDCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "id <path>...",
		Short: "Print the content ID of every query",
		Long: `Print each query's content-addressed ID: the SHA-256 of its canonical
JSON under the qexpr/expr/v1 domain.

Two queries share an ID exactly when they are the same tree, up to
Unicode NFC normalization of their text.

Examples:
  qexpr id queries.json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			qs, err := rootOpts.loadQueries(formatter, args)
			if err != nil {
				return err
			}

			out := make(identifiedList, 0, len(qs.Entries))
			for _, entry := range qs.Entries {
				id, err := canonical.ExprID(entry.Expr)
				if err != nil {
					return formatter.Fail(ExitCommandError, ErrCodeEncodeFailed, fmt.Sprintf("query %q", entry.Name), err)
				}
				out = append(out, IdentifiedQuery{Name: entry.Name, ExprID: id})
			}
			return formatter.Success(out)
		},
	}
}
