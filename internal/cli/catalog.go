package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/qexpr"
	"github.com/roach88/qexpr/internal/loader"
	"github.com/roach88/qexpr/internal/store"
)

// CatalogOptions holds flags shared by the catalog commands.
type CatalogOptions struct {
	*RootOptions
	Database string
}

func addDBFlag(cmd *cobra.Command, opts *CatalogOptions) {
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite catalog (default from config)")
}

type revisionList []RevisionOutput

func (l revisionList) String() string {
	lines := make([]string, len(l))
	for i, r := range l {
		lines[i] = fmt.Sprintf("%s@%d  %s  %s", r.Name, r.Seq, r.ExprID[:12], r.Expr)
	}
	return strings.Join(lines, "\n")
}

// SaveResult summarizes a save run.
type SaveResult struct {
	Saved     int          `json:"saved"`
	Unchanged int          `json:"unchanged"`
	Revisions revisionList `json:"revisions"`
}

func (r SaveResult) String() string {
	var b strings.Builder
	for _, rev := range r.Revisions {
		state := "unchanged"
		if rev.Created != nil && *rev.Created {
			state = "saved"
		}
		fmt.Fprintf(&b, "%-9s %s@%d  %s\n", state, rev.Name, rev.Seq, rev.ExprID[:12])
	}
	fmt.Fprintf(&b, "%d saved, %d unchanged", r.Saved, r.Unchanged)
	return b.String()
}

// NewSaveCommand creates the save command.
func NewSaveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatalogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "save <path>...",
		Short: "Save every query into the catalog",
		Long: `Validate every query, then record each as the newest revision of its
name in the catalog.

Nothing is written if any query is invalid. A query equal to the stored
head is left unchanged.

Examples:
  qexpr save --db queries.db queries/`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(cmd.Context(), opts, args, cmd)
		},
	}
	addDBFlag(cmd, opts)

	return cmd
}

func runSave(ctx context.Context, opts *CatalogOptions, paths []string, cmd *cobra.Command) error {
	ctx = contextOrBackground(ctx)
	formatter := opts.formatter(cmd)

	qs, err := opts.loadQueries(formatter, paths)
	if err != nil {
		return err
	}

	check := ValidateQuerySet(qs, opts.Config.Validate.MaxDepth)
	if !check.Valid {
		first := check.Violations[0]
		if err := formatter.Failure(first.Code, first.Message, check); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("save aborted: %d of %d queries invalid", len(check.Violations), check.Checked))
	}

	st, err := opts.openStore(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	result := SaveResult{Revisions: revisionList{}}
	for _, entry := range qs.Entries {
		rev, err := st.Put(ctx, entry.Name, entry.Expr)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, fmt.Sprintf("failed to save %q", entry.Name), err)
		}

		ro, err := revisionOutput(rev)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeEncodeFailed, fmt.Sprintf("query %q", entry.Name), err)
		}
		created := rev.Created
		ro.Created = &created
		result.Revisions = append(result.Revisions, ro)

		if created {
			result.Saved++
		} else {
			result.Unchanged++
		}
	}

	return formatter.Success(result)
}

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	CatalogOptions
	Seq int64
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{CatalogOptions: CatalogOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show the newest revision of a query",
		Long: `Show a stored query: its revision, content ID and canonical JSON.

Examples:
  qexpr show --db queries.db recent-rust
  qexpr show --db queries.db --seq 1 recent-rust`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOrBackground(cmd.Context())
			formatter := opts.formatter(cmd)

			st, err := opts.openStore(formatter, opts.Database)
			if err != nil {
				return err
			}
			defer st.Close()

			var rev store.Revision
			if opts.Seq > 0 {
				rev, err = st.GetAt(ctx, args[0], opts.Seq)
			} else {
				rev, err = st.Get(ctx, args[0])
			}
			if errors.Is(err, store.ErrNotFound) {
				return formatter.Fail(ExitCommandError, loader.ErrCodeNotFound, fmt.Sprintf("query not found: %s", args[0]), nil)
			}
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, "failed to read query", err)
			}

			ro, err := revisionOutput(rev)
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeEncodeFailed, "failed to encode query", err)
			}
			if formatter.Format == "json" {
				return formatter.Success(ro)
			}

			w := formatter.Writer
			fmt.Fprintf(w, "name:     %s\n", ro.Name)
			fmt.Fprintf(w, "seq:      %d\n", ro.Seq)
			fmt.Fprintf(w, "revision: %s\n", ro.RevisionID)
			fmt.Fprintf(w, "expr_id:  %s\n", ro.ExprID)
			fmt.Fprintf(w, "expr:     %s\n", ro.Expr)
			if formatter.Verbose {
				fmt.Fprintf(w, "debug:    %s\n", rev.Expr)
			}
			return nil
		},
	}
	addDBFlag(cmd, &opts.CatalogOptions)
	cmd.Flags().Int64Var(&opts.Seq, "seq", 0, "show this revision instead of the newest")

	return cmd
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatalogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history <name>",
		Short: "List every revision of a query, oldest first",
		Long: `List every stored revision of a query, oldest first.

Examples:
  qexpr history --db queries.db recent-rust`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOrBackground(cmd.Context())
			formatter := opts.formatter(cmd)

			st, err := opts.openStore(formatter, opts.Database)
			if err != nil {
				return err
			}
			defer st.Close()

			revs, err := st.History(ctx, args[0])
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, "failed to read history", err)
			}
			if len(revs) == 0 && formatter.Format != "json" {
				fmt.Fprintf(formatter.Writer, "No revisions found for query: %s\n", args[0])
				return nil
			}

			out, err := revisionOutputs(revs)
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeEncodeFailed, "failed to encode history", err)
			}
			return formatter.Success(revisionList(out))
		},
	}
	addDBFlag(cmd, opts)

	return cmd
}

// ListOptions holds flags for the list command.
type ListOptions struct {
	CatalogOptions
	Terms  []string
	Fields []string
}

// filter builds the store filter from the --term and --field flags.
func (o *ListOptions) filter() store.Filter {
	f := store.Filter{}
	for _, t := range o.Terms {
		f.Terms = append(f.Terms, qexpr.NewTerm(t))
	}
	for _, name := range o.Fields {
		f.Fields = append(f.Fields, qexpr.NewFieldName(name))
	}
	return f
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{CatalogOptions: CatalogOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the newest revision of every stored query",
		Long: `List every stored query at its newest revision, ordered by name.

--term and --field narrow the list to queries whose newest revision
mentions every given term and scopes to every given field.

Examples:
  qexpr list --db queries.db
  qexpr list --db queries.db --term rust --field title
  qexpr list --db queries.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOrBackground(cmd.Context())
			formatter := opts.formatter(cmd)

			st, err := opts.openStore(formatter, opts.Database)
			if err != nil {
				return err
			}
			defer st.Close()

			filter := opts.filter()
			heads, err := st.Find(ctx, filter)
			if errors.Is(err, store.ErrBlankFilterKey) {
				return formatter.Fail(ExitCommandError, loader.ErrCodeGeneric, "--term and --field values must not be blank", nil)
			}
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, "failed to list queries", err)
			}
			if len(heads) == 0 && formatter.Format != "json" {
				if filter.IsEmpty() {
					fmt.Fprintln(formatter.Writer, "No queries stored")
				} else {
					fmt.Fprintln(formatter.Writer, "No queries match")
				}
				return nil
			}

			out, err := revisionOutputs(heads)
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeEncodeFailed, "failed to encode queries", err)
			}
			return formatter.Success(revisionList(out))
		},
	}
	addDBFlag(cmd, &opts.CatalogOptions)
	cmd.Flags().StringArrayVar(&opts.Terms, "term", nil, "only queries containing this term (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Fields, "field", nil, "only queries scoped to this field (repeatable)")

	return cmd
}

// DeleteOptions holds flags for the delete command.
type DeleteOptions struct {
	CatalogOptions
	Prune bool
}

// DeleteResult reports what delete removed.
type DeleteResult struct {
	Name   string `json:"name"`
	Pruned int64  `json:"pruned"`
}

func (r DeleteResult) String() string {
	if r.Pruned > 0 {
		return fmt.Sprintf("deleted %s (pruned %d unused expressions)", r.Name, r.Pruned)
	}
	return fmt.Sprintf("deleted %s", r.Name)
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeleteOptions{CatalogOptions: CatalogOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove every revision of a query",
		Long: `Remove every revision of a query from the catalog.

Expression bodies stay in the catalog unless --prune is given, since other
names may share them.

Examples:
  qexpr delete --db queries.db recent-rust
  qexpr delete --db queries.db --prune recent-rust`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOrBackground(cmd.Context())
			formatter := opts.formatter(cmd)

			st, err := opts.openStore(formatter, opts.Database)
			if err != nil {
				return err
			}
			defer st.Close()

			err = st.Delete(ctx, args[0])
			if errors.Is(err, store.ErrNotFound) {
				return formatter.Fail(ExitCommandError, loader.ErrCodeNotFound, fmt.Sprintf("query not found: %s", args[0]), nil)
			}
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, "failed to delete query", err)
			}

			result := DeleteResult{Name: args[0]}
			if opts.Prune {
				result.Pruned, err = st.Prune(ctx)
				if err != nil {
					return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, "failed to prune expressions", err)
				}
			}
			return formatter.Success(result)
		},
	}
	addDBFlag(cmd, &opts.CatalogOptions)
	cmd.Flags().BoolVar(&opts.Prune, "prune", false, "also remove expression bodies no query uses")

	return cmd
}

// contextOrBackground returns ctx, or context.Background when a command is
// executed without one.
func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
