package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/qexpr"
	"github.com/roach88/qexpr/internal/loader"
)

// CodeMaxDepth reports a query deeper than the configured limit.
const CodeMaxDepth = "max_depth"

// Violation is the first rule a query breaks.
type Violation struct {
	Query   string `json:"query"`
	File    string `json:"file"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool        `json:"valid"`
	Checked    int         `json:"checked"`
	Violations []Violation `json:"violations,omitempty"`
}

func (r ValidationResult) String() string {
	if r.Valid {
		return fmt.Sprintf("✓ All %d queries valid", r.Checked)
	}

	var b strings.Builder
	b.WriteString("✗ Validation failed\n")
	for _, v := range r.Violations {
		fmt.Fprintf(&b, "\n%s (%s)\n  %s: %s\n", v.Query, v.File, v.Code, v.Message)
	}
	fmt.Fprintf(&b, "\n%d of %d queries invalid", len(r.Violations), r.Checked)
	return b.String()
}

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	MaxDepth int
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <path>...",
		Short: "Check that every query is well-formed",
		Long: `Load query-set files (JSON, YAML or CUE) and check every query.

Each query reports the first rule it breaks, in depth-first order:
blank terms, blank phrases, degenerate proximity constraints, empty
AND/OR, and blank field names. Directories are searched recursively.

Exit codes: 0 all valid, 1 some query invalid, 2 files could not be loaded.

Examples:
  qexpr validate queries/
  qexpr validate --max-depth 32 recent.yaml
  qexpr validate --format json queries.cue`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.MaxDepth, "max-depth", -1, "reject queries deeper than this (0 = unlimited, default from config)")

	return cmd
}

func runValidate(opts *ValidateOptions, paths []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	maxDepth := opts.MaxDepth
	if maxDepth < 0 {
		maxDepth = opts.Config.Validate.MaxDepth
	}

	qs, err := opts.loadQueries(formatter, paths)
	if err != nil {
		return err
	}

	result := ValidateQuerySet(qs, maxDepth)
	for _, v := range result.Violations {
		opts.logger().Debug("invalid query", "query", v.Query, "code", v.Code)
	}

	if result.Valid {
		return formatter.Success(result)
	}

	first := result.Violations[0]
	if err := formatter.Failure(first.Code, first.Message, result); err != nil {
		return err
	}
	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed: %d of %d queries invalid", len(result.Violations), result.Checked))
}

// ValidateQuerySet checks every entry and returns one violation per invalid
// query, in name order. maxDepth 0 means unlimited.
func ValidateQuerySet(qs *loader.QuerySet, maxDepth int) ValidationResult {
	result := ValidationResult{Checked: len(qs.Entries)}

	for _, entry := range qs.Entries {
		if v, bad := checkEntry(entry, maxDepth); bad {
			result.Violations = append(result.Violations, v)
		}
	}

	result.Valid = len(result.Violations) == 0
	return result
}

func checkEntry(entry loader.Entry, maxDepth int) (Violation, bool) {
	v := Violation{Query: entry.Name, File: entry.File}

	if err := qexpr.Validate(entry.Expr); err != nil {
		var ve qexpr.ValidateError
		if errors.As(err, &ve) {
			v.Code = ve.Code()
		} else {
			v.Code = loader.ErrCodeGeneric
		}
		v.Message = err.Error()
		return v, true
	}

	if maxDepth > 0 {
		if depth := qexpr.Depth(entry.Expr); depth > maxDepth {
			v.Code = CodeMaxDepth
			v.Message = fmt.Sprintf("depth %d exceeds limit %d", depth, maxDepth)
			return v, true
		}
	}

	return Violation{}, false
}
