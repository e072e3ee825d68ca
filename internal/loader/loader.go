// Package loader reads query-set files: mappings from a query name to an
// encoded expression.
//
// Three formats are accepted, chosen by file extension:
//
//	.json        {"recent-rust": {"And": [{"Term": "rust"}, ...]}}
//	.yaml .yml   recent-rust: {And: [{Term: rust}, ...]}
//	.cue         recent-rust: And: [{Term: "rust"}, ...]
//
// All three are decoded into the generic value tree understood by
// qexpr.FromValue. Loading never validates well-formedness: callers decide
// what to do with blank or empty nodes.
package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/qexpr"
)

// Error code constants, shared with the CLI's JSON output.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No query-set files found
	ErrCodeParseFailed = "E004" // File could not be parsed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeUnsupported = "E008" // Unsupported file extension
	ErrCodeDuplicate   = "E009" // Query name defined twice
	ErrCodeDecode      = "E010" // Entry is not a valid expression encoding
)

// LoadError represents an error that occurred while loading a query set.
type LoadError struct {
	Code    string
	Message string
	File    string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %s", e.File, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Entry is one named query from a query-set file.
type Entry struct {
	Name string
	Expr qexpr.Expr
	File string
}

// QuerySet is the result of loading one or more files.
// Entries are sorted by name.
type QuerySet struct {
	Entries []Entry
	Files   []string
}

// Lookup returns the entry with the given name.
func (qs *QuerySet) Lookup(name string) (Entry, bool) {
	i, found := slices.BinarySearchFunc(qs.Entries, name, func(e Entry, n string) int {
		return strings.Compare(e.Name, n)
	})
	if !found {
		return Entry{}, false
	}
	return qs.Entries[i], true
}

// Supported reports whether a path has a query-set file extension.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml", ".cue":
		return true
	}
	return false
}

// Load loads every path, which may be a file or a directory, into one set.
// Names must be unique across all files.
func Load(paths ...string) (*QuerySet, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("path not found: %s", p)}
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		found, err := FindFiles(p)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
		}
		if len(found) == 0 {
			return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no query-set files found in %s", p)}
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: "no query-set files given"}
	}
	return loadFiles(files)
}

// LoadFile loads a single query-set file.
func LoadFile(path string) (*QuerySet, error) {
	return Load(path)
}

// LoadDir loads every supported file under dir.
func LoadDir(dir string) (*QuerySet, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("directory not found: %s", dir)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}
	return Load(dir)
}

// FindFiles walks the directory and returns all supported file paths in
// lexical order.
func FindFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && Supported(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func loadFiles(files []string) (*QuerySet, error) {
	qs := &QuerySet{Files: files}
	seen := make(map[string]string)

	for _, file := range files {
		entries, err := loadOne(file)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if prev, dup := seen[e.Name]; dup {
				return nil, &LoadError{
					Code:    ErrCodeDuplicate,
					Message: fmt.Sprintf("query %q already defined in %s", e.Name, prev),
					File:    file,
				}
			}
			seen[e.Name] = file
			qs.Entries = append(qs.Entries, e)
		}
	}

	slices.SortFunc(qs.Entries, func(a, b Entry) int {
		return strings.Compare(a.Name, b.Name)
	})
	return qs, nil
}

func loadOne(file string) ([]Entry, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading file: %v", err), File: file}
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(file)) {
	case ".json":
		raw, err = parseJSON(data)
	case ".yaml", ".yml":
		raw, err = parseYAML(data)
	case ".cue":
		raw, err = parseCUE(file, data)
	default:
		return nil, &LoadError{Code: ErrCodeUnsupported, Message: fmt.Sprintf("unsupported file type %q", filepath.Ext(file)), File: file}
	}
	if err != nil {
		if le, ok := err.(*LoadError); ok {
			le.File = file
			return nil, le
		}
		return nil, &LoadError{Code: ErrCodeParseFailed, Message: err.Error(), File: file}
	}

	entries := make([]Entry, 0, len(raw))
	for name, body := range raw {
		if strings.TrimSpace(name) == "" {
			return nil, &LoadError{Code: ErrCodeDecode, Message: "query name must not be blank", File: file}
		}
		expr, err := qexpr.FromValue(body)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeDecode, Message: fmt.Sprintf("query %q: %v", name, err), File: file}
		}
		entries = append(entries, Entry{Name: name, Expr: expr, File: file})
	}
	return entries, nil
}

// parseJSON walks the top-level object token by token so a name defined
// twice is reported instead of silently keeping the last value.
func parseJSON(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("parsing JSON: query set must be an object")
	}

	raw := make(map[string]any)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("parsing JSON: unexpected token %v", tok)
		}
		if _, dup := raw[name]; dup {
			return nil, &LoadError{Code: ErrCodeDuplicate, Message: fmt.Sprintf("query %q defined twice", name)}
		}

		var body any
		if err := dec.Decode(&body); err != nil {
			return nil, fmt.Errorf("parsing JSON: query %q: %w", name, err)
		}
		raw[name] = body
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing JSON: trailing data after query set")
	}
	return raw, nil
}

func parseYAML(data []byte) (map[string]any, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

func parseCUE(file string, data []byte) (map[string]any, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(file))
	if err := value.Err(); err != nil {
		return nil, cueLoadError(ErrCodeParseFailed, "compiling CUE", err)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, cueLoadError(ErrCodeParseFailed, "query set is not concrete", err)
	}
	if value.Kind() != cue.StructKind {
		return nil, &LoadError{Code: ErrCodeParseFailed, Message: "query set must be a struct", Pos: value.Pos()}
	}

	var raw map[string]any
	if err := value.Decode(&raw); err != nil {
		return nil, cueLoadError(ErrCodeParseFailed, "decoding CUE", err)
	}
	return raw, nil
}

// cueLoadError keeps the first CUE position so the CLI can print
// file:line:col.
func cueLoadError(code, context string, err error) *LoadError {
	le := &LoadError{Code: code, Message: fmt.Sprintf("%s: %v", context, err)}
	if positions := cueerrors.Positions(err); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}
