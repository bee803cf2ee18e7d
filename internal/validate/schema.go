package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/tbourn/agritrade-gateway/internal/apperr"
)

// RecordField is the FieldErrors key for record-level failures such as a
// non-object input.
const RecordField = "_record"

// Field binds a chain of rules to one snake_case key.
type Field struct {
	Name     string
	Required bool
	Rules    []Rule
}

// Required declares a field that must be present and non-null.
func Required(name string, rules ...Rule) Field {
	return Field{Name: name, Required: true, Rules: rules}
}

// Optional declares a field that may be absent or null; absent optional
// fields are omitted from the normalized record.
func Optional(name string, rules ...Rule) Field {
	return Field{Name: name, Rules: rules}
}

// Refinement is a cross-field rule. Check runs against the normalized record
// only after every field rule passed; a returned error is reported under
// Field.
type Refinement struct {
	Name  string
	Field string
	Check func(rec Record) error
}

// Schema is an immutable record definition.
type Schema struct {
	name        string
	fields      []Field
	refinements []Refinement
	index       map[string]struct{}
}

// NewSchema checks the definition and returns a Schema. Definition mistakes
// (empty or duplicate names, rule-less fields, refinements that target an
// unknown field) are programming errors and are reported here, not at
// validation time.
func NewSchema(name string, fields []Field, refinements ...Refinement) (*Schema, error) {
	if name == "" {
		return nil, errors.New("schema name is empty")
	}
	idx := make(map[string]struct{}, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("schema %s: field %d has no name", name, i)
		}
		if f.Name == RecordField {
			return nil, fmt.Errorf("schema %s: field name %q is reserved", name, RecordField)
		}
		if _, dup := idx[f.Name]; dup {
			return nil, fmt.Errorf("schema %s: duplicate field %q", name, f.Name)
		}
		if len(f.Rules) == 0 {
			return nil, fmt.Errorf("schema %s: field %q has no rules", name, f.Name)
		}
		idx[f.Name] = struct{}{}
	}
	for _, r := range refinements {
		if r.Check == nil {
			return nil, fmt.Errorf("schema %s: refinement %q has no check", name, r.Name)
		}
		if _, ok := idx[r.Field]; !ok && r.Field != RecordField {
			return nil, fmt.Errorf("schema %s: refinement %q targets unknown field %q", name, r.Name, r.Field)
		}
	}
	return &Schema{
		name:        name,
		fields:      append([]Field(nil), fields...),
		refinements: append([]Refinement(nil), refinements...),
		index:       idx,
	}, nil
}

// MustSchema is NewSchema that panics on a malformed definition.
func MustSchema(name string, fields []Field, refinements ...Refinement) *Schema {
	s, err := NewSchema(name, fields, refinements...)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the schema name.
func (s *Schema) Name() string { return s.name }

// FieldErrors maps a field name to its messages, in rule order.
type FieldErrors map[string][]string

// Add appends msg under field.
func (fe FieldErrors) Add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

// Fields returns the failing field names in sorted order.
func (fe FieldErrors) Fields() []string {
	out := make([]string, 0, len(fe))
	for k := range fe {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Result is the tagged outcome of Validate: exactly one of Record or Errors
// is set.
type Result struct {
	Record Record      `json:"record,omitempty"`
	Errors FieldErrors `json:"errors,omitempty"`
}

// Valid reports whether validation succeeded.
func (r Result) Valid() bool { return len(r.Errors) == 0 && r.Record != nil }

// Err returns nil for a valid result, otherwise a validation *apperr.Error
// carrying the field messages.
func (r Result) Err() error {
	if r.Valid() {
		return nil
	}
	return &apperr.Error{
		Kind:    apperr.KindValidation,
		Message: "validation failed",
		Fields:  r.Errors,
	}
}

func invalid(fe FieldErrors) Result { return Result{Errors: fe} }

// Validate runs schema against raw and returns the outcome.
func Validate(s *Schema, raw any) Result { return s.Validate(raw) }

// Validate runs the schema against raw input.
//
// Accepted inputs are map[string]any, Record, and JSON documents given as
// json.RawMessage or []byte. Anything that is not a JSON object fails with a
// single RecordField message before any field rule runs.
func (s *Schema) Validate(raw any) Result {
	obj, ok := asObject(raw)
	if !ok {
		return invalid(FieldErrors{RecordField: {"expected an object"}})
	}

	errs := FieldErrors{}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, known := s.index[k]; !known {
			errs.Add(k, "unknown field")
		}
	}

	rec := make(Record, len(s.fields))
	for _, f := range s.fields {
		v, present := obj[f.Name]
		if !present || v == nil {
			if f.Required {
				errs.Add(f.Name, "required")
			}
			continue
		}
		cur, failed := v, false
		for _, r := range f.Rules {
			out, err := r.Apply(cur)
			if err != nil {
				errs.Add(f.Name, err.Error())
				failed = true
				if r.Kind == KindType {
					break
				}
				continue
			}
			cur = out
		}
		if !failed {
			rec[f.Name] = cur
		}
	}
	if len(errs) > 0 {
		return invalid(errs)
	}

	for _, ref := range s.refinements {
		if err := ref.Check(rec); err != nil {
			errs.Add(ref.Field, err.Error())
		}
	}
	if len(errs) > 0 {
		return invalid(errs)
	}
	return Result{Record: rec}
}

// asObject extracts a read-only view of raw as a JSON object.
func asObject(raw any) (map[string]any, bool) {
	switch x := raw.(type) {
	case map[string]any:
		return x, x != nil
	case Record:
		return x, x != nil
	case json.RawMessage:
		return decodeObject(x)
	case []byte:
		return decodeObject(x)
	}
	return nil, false
}

func decodeObject(b []byte) (map[string]any, bool) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil || m == nil {
		return nil, false
	}
	if dec.More() {
		return nil, false
	}
	return m, true
}
