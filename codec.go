package qexpr

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Variant tags used by the structured encoding.
const (
	TagTerm   = "Term"
	TagPhrase = "Phrase"
	TagNear   = "Near"
	TagAnd    = "And"
	TagOr     = "Or"
	TagNot    = "Not"
	TagField  = "Field"
)

// ErrNilNode is returned when encoding a tree with a nil slot.
var ErrNilNode = errors.New("nil expression cannot be encoded")

// ErrInvalidUTF8 is returned when encoding a term or field name that is not
// valid UTF-8. JSON cannot carry such text without altering it.
var ErrInvalidUTF8 = errors.New("text is not valid UTF-8")

// DecodeError reports a malformed encoded tree.
// Path points at the offending node, e.g. "/And/1/Field/1".
type DecodeError struct {
	Path    string
	Message string
}

func (e *DecodeError) Error() string {
	path := e.Path
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("decode %s: %s", path, e.Message)
}

// ToValue converts a tree into a generic value built from map[string]any,
// []any, string, int64 and bool. Every encoding in this module goes
// through it.
//
// ToValue does not validate. Blank and empty nodes encode as they are.
func ToValue(e Expr) (any, error) {
	return toValue(e, "")
}

func toValue(e Expr, path string) (any, error) {
	switch x := Normalize(e).(type) {
	case nil:
		return nil, fmt.Errorf("at %s: %w", displayPath(path), ErrNilNode)
	case Term:
		if err := checkText(string(x), path+"/"+TagTerm); err != nil {
			return nil, err
		}
		return map[string]any{TagTerm: string(x)}, nil
	case Phrase:
		terms, err := termsValue(x.Terms, path+"/"+TagPhrase+"/terms")
		if err != nil {
			return nil, err
		}
		return map[string]any{TagPhrase: map[string]any{
			"terms": terms,
		}}, nil
	case Near:
		terms, err := termsValue(x.Terms, path+"/"+TagNear+"/terms")
		if err != nil {
			return nil, err
		}
		return map[string]any{TagNear: map[string]any{
			"terms":   terms,
			"window":  int64(x.Window),
			"ordered": x.Ordered,
		}}, nil
	case And:
		kids, err := childrenValue(x.Children, path+"/"+TagAnd)
		if err != nil {
			return nil, err
		}
		return map[string]any{TagAnd: kids}, nil
	case Or:
		kids, err := childrenValue(x.Children, path+"/"+TagOr)
		if err != nil {
			return nil, err
		}
		return map[string]any{TagOr: kids}, nil
	case Not:
		child, err := toValue(x.Child, path+"/"+TagNot)
		if err != nil {
			return nil, err
		}
		return map[string]any{TagNot: child}, nil
	case Field:
		if err := checkText(string(x.Name), path+"/"+TagField+"/0"); err != nil {
			return nil, err
		}
		child, err := toValue(x.Child, path+"/"+TagField+"/1")
		if err != nil {
			return nil, err
		}
		return map[string]any{TagField: []any{string(x.Name), child}}, nil
	default:
		return nil, fmt.Errorf("at %s: unsupported expression type %T", displayPath(path), e)
	}
}

func termsValue(ts []Term, path string) ([]any, error) {
	out := make([]any, len(ts))
	for i, t := range ts {
		if err := checkText(string(t), path+"/"+strconv.Itoa(i)); err != nil {
			return nil, err
		}
		out[i] = string(t)
	}
	return out, nil
}

func checkText(s, path string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("at %s: %q: %w", path, s, ErrInvalidUTF8)
	}
	return nil
}

func childrenValue(cs []Expr, path string) ([]any, error) {
	out := make([]any, len(cs))
	for i, c := range cs {
		v, err := toValue(c, path+"/"+strconv.Itoa(i))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func displayPath(path string) string {
	if path == "" {
		return "/"
	}
	return path
}

// FromValue rebuilds a tree from a generic value, as produced by ToValue or
// by decoding JSON, YAML or CUE into an empty interface.
//
// FromValue checks shape only. A decoded tree may still fail Validate.
func FromValue(v any) (Expr, error) {
	return fromValue(v, "")
}

func fromValue(v any, path string) (Expr, error) {
	obj, ok := asObject(v)
	if !ok {
		return nil, &DecodeError{Path: path, Message: fmt.Sprintf("expected an object with one variant key, got %s", kindOf(v))}
	}
	if len(obj) != 1 {
		return nil, &DecodeError{Path: path, Message: fmt.Sprintf("expected exactly one variant key, got %d", len(obj))}
	}

	var tag string
	var body any
	for k, b := range obj {
		tag, body = k, b
	}
	here := path + "/" + tag

	switch tag {
	case TagTerm:
		s, ok := body.(string)
		if !ok {
			return nil, &DecodeError{Path: here, Message: fmt.Sprintf("term must be a string, got %s", kindOf(body))}
		}
		return Term(s), nil

	case TagPhrase:
		fields, err := expectFields(body, here, []string{"terms"}, nil)
		if err != nil {
			return nil, err
		}
		terms, err := termsFrom(fields["terms"], here+"/terms")
		if err != nil {
			return nil, err
		}
		return Phrase{Terms: terms}, nil

	case TagNear:
		fields, err := expectFields(body, here, []string{"terms", "window"}, []string{"ordered"})
		if err != nil {
			return nil, err
		}
		terms, err := termsFrom(fields["terms"], here+"/terms")
		if err != nil {
			return nil, err
		}
		window, err := windowFrom(fields["window"], here+"/window")
		if err != nil {
			return nil, err
		}
		ordered := false
		if raw, ok := fields["ordered"]; ok {
			b, isBool := raw.(bool)
			if !isBool {
				return nil, &DecodeError{Path: here + "/ordered", Message: fmt.Sprintf("ordered must be a bool, got %s", kindOf(raw))}
			}
			ordered = b
		}
		return Near{Terms: terms, Window: window, Ordered: ordered}, nil

	case TagAnd, TagOr:
		list, ok := body.([]any)
		if !ok {
			return nil, &DecodeError{Path: here, Message: fmt.Sprintf("%s must be a list, got %s", tag, kindOf(body))}
		}
		kids := make([]Expr, len(list))
		for i, item := range list {
			child, err := fromValue(item, here+"/"+strconv.Itoa(i))
			if err != nil {
				return nil, err
			}
			kids[i] = child
		}
		if tag == TagAnd {
			return And{Children: kids}, nil
		}
		return Or{Children: kids}, nil

	case TagNot:
		child, err := fromValue(body, here)
		if err != nil {
			return nil, err
		}
		return Not{Child: child}, nil

	case TagField:
		list, ok := body.([]any)
		if !ok || len(list) != 2 {
			return nil, &DecodeError{Path: here, Message: "field must be a [name, expr] pair"}
		}
		name, ok := list[0].(string)
		if !ok {
			return nil, &DecodeError{Path: here + "/0", Message: fmt.Sprintf("field name must be a string, got %s", kindOf(list[0]))}
		}
		child, err := fromValue(list[1], here+"/1")
		if err != nil {
			return nil, err
		}
		return Field{Name: FieldName(name), Child: child}, nil

	default:
		return nil, &DecodeError{Path: path, Message: fmt.Sprintf("unknown variant %q", tag)}
	}
}

// asObject accepts the map shapes produced by encoding/json, yaml.v3 and CUE.
func asObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	default:
		return nil, false
	}
}

// expectFields checks an object body against required and optional keys.
func expectFields(body any, path string, required, optional []string) (map[string]any, error) {
	obj, ok := asObject(body)
	if !ok {
		return nil, &DecodeError{Path: path, Message: fmt.Sprintf("expected an object, got %s", kindOf(body))}
	}
	allowed := map[string]bool{}
	for _, k := range required {
		allowed[k] = true
		if _, ok := obj[k]; !ok {
			return nil, &DecodeError{Path: path, Message: fmt.Sprintf("missing %q", k)}
		}
	}
	for _, k := range optional {
		allowed[k] = true
	}

	var unknown []string
	for k := range obj {
		if !allowed[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &DecodeError{Path: path, Message: fmt.Sprintf("unknown keys: %s", strings.Join(unknown, ", "))}
	}
	return obj, nil
}

func termsFrom(v any, path string) ([]Term, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, &DecodeError{Path: path, Message: fmt.Sprintf("terms must be a list, got %s", kindOf(v))}
	}
	out := make([]Term, len(list))
	for i, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, &DecodeError{Path: path + "/" + strconv.Itoa(i), Message: fmt.Sprintf("term must be a string, got %s", kindOf(item))}
		}
		out[i] = Term(s)
	}
	return out, nil
}

// windowFrom accepts any integer representation within uint32 range.
func windowFrom(v any, path string) (uint32, error) {
	var n int64
	switch x := v.(type) {
	case int:
		n = int64(x)
	case int64:
		n = x
	case int32:
		n = int64(x)
	case uint32:
		return x, nil
	case uint64:
		if x > math.MaxUint32 {
			return 0, &DecodeError{Path: path, Message: fmt.Sprintf("window %d out of range", x)}
		}
		return uint32(x), nil
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return 0, &DecodeError{Path: path, Message: fmt.Sprintf("window must be an integer, got %s", x)}
		}
		n = i
	case *big.Int:
		if !x.IsInt64() {
			return 0, &DecodeError{Path: path, Message: fmt.Sprintf("window %s out of range", x)}
		}
		n = x.Int64()
	case float64:
		if x != math.Trunc(x) {
			return 0, &DecodeError{Path: path, Message: fmt.Sprintf("window must be an integer, got %v", x)}
		}
		if x < 0 || x > math.MaxUint32 {
			return 0, &DecodeError{Path: path, Message: fmt.Sprintf("window %v out of range", x)}
		}
		return uint32(x), nil
	default:
		return 0, &DecodeError{Path: path, Message: fmt.Sprintf("window must be an integer, got %s", kindOf(v))}
	}
	if n < 0 || n > math.MaxUint32 {
		return 0, &DecodeError{Path: path, Message: fmt.Sprintf("window %d out of range", n)}
	}
	return uint32(n), nil
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case []any:
		return "list"
	case map[string]any, map[any]any:
		return "object"
	case json.Number, int, int32, int64, uint32, uint64, float64, *big.Int:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Marshal encodes a tree as compact JSON.
func Marshal(e Expr) ([]byte, error) {
	v, err := ToValue(e)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Unmarshal decodes a tree from JSON. Trailing data is an error.
func Unmarshal(data []byte) (Expr, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &DecodeError{Message: "trailing data after expression"}
	}
	return FromValue(raw)
}

// MarshalYAML encodes a tree as a YAML document.
func MarshalYAML(e Expr) ([]byte, error) {
	v, err := ToValue(e)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(v)
}

// UnmarshalYAML decodes a tree from a YAML document.
func UnmarshalYAML(data []byte) (Expr, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return FromValue(raw)
}

// Document wraps an Expr so it can sit inside structs decoded by
// encoding/json or yaml.v3.
type Document struct {
	Expr Expr
}

// MarshalJSON implements json.Marshaler.
func (d Document) MarshalJSON() ([]byte, error) {
	return Marshal(d.Expr)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Document) UnmarshalJSON(data []byte) error {
	e, err := Unmarshal(data)
	if err != nil {
		return err
	}
	d.Expr = e
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Document) MarshalYAML() (any, error) {
	return ToValue(d.Expr)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Document) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	e, err := FromValue(raw)
	if err != nil {
		return err
	}
	d.Expr = e
	return nil
}
