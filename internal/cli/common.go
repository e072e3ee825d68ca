package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/qexpr/internal/canonical"
	"github.com/roach88/qexpr/internal/loader"
	"github.com/roach88/qexpr/internal/store"
)

// Error codes used by commands in addition to the loader's E001-E010.
const (
	ErrCodeWriteFailed  = "E007" // File write error
	ErrCodeStoreFailed  = "E011" // Catalog database error
	ErrCodeEncodeFailed = "E012" // Expression could not be encoded
)

// loadQueries loads query-set files, reporting loader errors through the
// formatter as command errors (exit code 2).
func (o *RootOptions) loadQueries(f *OutputFormatter, paths []string) (*loader.QuerySet, error) {
	qs, err := loader.Load(paths...)
	if err != nil {
		var le *loader.LoadError
		if errors.As(err, &le) {
			return nil, f.Fail(ExitCommandError, le.Code, locate(le), nil)
		}
		return nil, f.Fail(ExitCommandError, loader.ErrCodeGeneric, err.Error(), nil)
	}

	f.VerboseLog("Loaded %d queries from %d file(s)", len(qs.Entries), len(qs.Files))
	o.logger().Debug("query set loaded", "files", len(qs.Files), "queries", len(qs.Entries))
	return qs, nil
}

// locate prefixes a loader message with its file position, if known.
func locate(le *loader.LoadError) string {
	if le.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", le.Pos.Filename(), le.Pos.Line(), le.Pos.Column(), le.Message)
	}
	if le.File != "" {
		return fmt.Sprintf("%s: %s", le.File, le.Message)
	}
	return le.Message
}

// openStore opens the catalog named by the --db flag, falling back to the
// configured path.
func (o *RootOptions) openStore(f *OutputFormatter, db string) (*store.Store, error) {
	if db == "" {
		db = o.Config.DB
	}
	if db == "" {
		return nil, f.Fail(ExitCommandError, loader.ErrCodeGeneric, "no catalog database: pass --db or set db in the config file", nil)
	}

	st, err := store.Open(db, store.WithLogger(o.logger()))
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeStoreFailed, "failed to open database", err)
	}
	f.VerboseLog("Opened catalog %s", db)
	return st, nil
}

// RevisionOutput is the JSON form of a stored revision.
type RevisionOutput struct {
	Name       string          `json:"name"`
	Seq        int64           `json:"seq"`
	RevisionID string          `json:"revision_id"`
	ExprID     string          `json:"expr_id"`
	Expr       json.RawMessage `json:"expr"`
	Created    *bool           `json:"created,omitempty"`
}

func revisionOutput(rev store.Revision) (RevisionOutput, error) {
	body, err := canonical.MarshalExpr(rev.Expr)
	if err != nil {
		return RevisionOutput{}, err
	}
	return RevisionOutput{
		Name:       rev.Name,
		Seq:        rev.Seq,
		RevisionID: rev.ID,
		ExprID:     rev.ExprID,
		Expr:       body,
	}, nil
}

func revisionOutputs(revs []store.Revision) ([]RevisionOutput, error) {
	out := make([]RevisionOutput, 0, len(revs))
	for _, rev := range revs {
		ro, err := revisionOutput(rev)
		if err != nil {
			return nil, err
		}
		out = append(out, ro)
	}
	return out, nil
}
