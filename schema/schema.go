// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

// Package schema validates ast values against JSON Schema documents.
//
// A Schema is compiled from a JSON document by Parse or FromValue. The
// keywords the validator understands are decoded into typed fields; any other
// keywords are kept in Schema.Extra and otherwise ignored.
//
// Validation walks the value in a fixed order, so that the same value and
// schema always produce the same errors in the same order. Errors are
// reported as *ValidationError values whose Path locates the offending value
// using the notation of package jpath, e.g., $.items[2].name.
package schema

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/creachadair/jsonish"
	"github.com/creachadair/jsonish/ast"
	"github.com/creachadair/jsonish/jpath"
	"github.com/creachadair/mds/mapset"
)

// A Schema is a compiled JSON Schema.
type Schema struct {
	// Bool is non-nil for a boolean schema: true accepts every value, and
	// false accepts none. The other fields of a boolean schema are empty.
	Bool *bool

	Type     []string // allowed type names; empty means any
	Required []string // in declared order

	Properties           []*Property // in declared order
	AdditionalProperties *Schema
	PropertyNames        *Schema
	DependentRequired    []*Dependency // in declared order
	MinProperties        *int
	MaxProperties        *int

	Items       *Schema
	MinItems    *int
	MaxItems    *int
	Contains    *Schema
	MinContains *int
	MaxContains *int

	MinLength *int
	MaxLength *int
	Pattern   string
	Format    string

	Minimum          *float64
	Maximum          *float64
	ExclusiveMinimum *float64
	ExclusiveMaximum *float64
	MultipleOf       *float64

	Enum    []ast.Value // nil if absent
	Const   ast.Value   // nil if absent
	Default ast.Value   // nil if absent

	If, Then, Else *Schema

	AllOf []*Schema
	AnyOf []*Schema
	OneOf []*Schema

	// Extra holds the keywords the validator does not interpret, in the
	// order they appeared.
	Extra ast.Object

	pattern *regexp.Regexp
	src     ast.Value
}

// A Property is a named member of the properties keyword.
type Property struct {
	Name   string
	Schema *Schema
}

// A Dependency is a member of the dependentRequired keyword: if Key is
// present, each of Requires must be present as well.
type Dependency struct {
	Key      string
	Requires []string
}

// Property returns the declared schema for the named property, or nil.
func (s *Schema) Property(name string) *Schema {
	if s == nil {
		return nil
	}
	for _, p := range s.Properties {
		if p.Name == name {
			return p.Schema
		}
	}
	return nil
}

// Source returns the document s was compiled from, or nil if s was
// constructed directly.
func (s *Schema) Source() ast.Value { return s.src }

// AllowsType reports whether s permits values of the named type. A schema
// with no type keyword permits every type.
func (s *Schema) AllowsType(name string) bool {
	if s == nil || len(s.Type) == 0 {
		return true
	}
	for _, t := range s.Type {
		if t == name || (t == "number" && name == "integer") {
			return true
		}
	}
	return false
}

func (s *Schema) regexp() (*regexp.Regexp, error) {
	if s.pattern != nil {
		return s.pattern, nil
	}
	return regexp.Compile(s.Pattern)
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (s *Schema) UnmarshalJSON(data []byte) error {
	p, err := Parse(string(data))
	if err != nil {
		return err
	}
	*s = *p
	return nil
}

// MarshalJSON implements the json.Marshaler interface for schemas that were
// compiled from a document.
func (s *Schema) MarshalJSON() ([]byte, error) {
	if s.src == nil {
		return nil, fmt.Errorf("schema has no source document")
	}
	return []byte(s.src.JSON()), nil
}

// The grammar for schema documents: standard JSON, in which a repeated
// keyword is an error.
var schemaConfig = jsonish.Config{DuplicateKeys: jsonish.ErrorOnDuplicate}

// Parse compiles a schema from its JSON text. The text must be a single
// standard JSON value; to read a schema written with comments or trailing
// commas, convert it first with hujson.Standardize.
func Parse(text string) (*Schema, error) {
	doc, err := ast.ParseCandidate(jsonish.Candidate{Text: strings.TrimSpace(text)}, schemaConfig)
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return FromValue(doc.Value)
}

// MustParse is as Parse, but panics on error.
func MustParse(text string) *Schema {
	s, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return s
}

// FromValue compiles a schema from a parsed document, which must be an
// object or a Boolean.
func FromValue(v ast.Value) (*Schema, error) { return compile(v, jpath.Root) }

var typeNames = mapset.New("null", "boolean", "integer", "number", "string", "array", "object")

func compile(v ast.Value, at string) (*Schema, error) {
	switch t := v.(type) {
	case ast.Bool:
		b := bool(t)
		return &Schema{Bool: &b, src: v}, nil
	case ast.Object:
		s := &Schema{src: v}
		for _, m := range t {
			if err := s.compileKeyword(m, jpath.Key(at, m.Key)); err != nil {
				return nil, err
			}
		}
		return s, nil
	}
	return nil, fmt.Errorf("schema at %s: got %v, want object or boolean", at, v.Kind())
}

func (s *Schema) compileKeyword(m *ast.Member, at string) error {
	var err error
	v := m.Value
	switch m.Key {
	case "type":
		s.Type, err = getStrings(v, at, true)
		for _, name := range s.Type {
			if !typeNames.Has(name) {
				return fmt.Errorf("schema at %s: unknown type %q", at, name)
			}
		}
	case "required":
		s.Required, err = getStrings(v, at, false)
	case "properties":
		obj, ok := v.(ast.Object)
		if !ok {
			return fmt.Errorf("schema at %s: got %v, want object", at, v.Kind())
		}
		for _, p := range obj {
			ps, err := compile(p.Value, jpath.Key(at, p.Key))
			if err != nil {
				return err
			}
			s.Properties = append(s.Properties, &Property{Name: p.Key, Schema: ps})
		}
	case "dependentRequired":
		obj, ok := v.(ast.Object)
		if !ok {
			return fmt.Errorf("schema at %s: got %v, want object", at, v.Kind())
		}
		for _, d := range obj {
			req, err := getStrings(d.Value, jpath.Key(at, d.Key), false)
			if err != nil {
				return err
			}
			s.DependentRequired = append(s.DependentRequired, &Dependency{Key: d.Key, Requires: req})
		}
	case "additionalProperties":
		s.AdditionalProperties, err = compile(v, at)
	case "propertyNames":
		s.PropertyNames, err = compile(v, at)
	case "items":
		if _, ok := v.(ast.Array); ok {
			// The tuple form of items is not interpreted.
			s.Extra = append(s.Extra, m)
			return nil
		}
		s.Items, err = compile(v, at)
	case "contains":
		s.Contains, err = compile(v, at)
	case "if":
		s.If, err = compile(v, at)
	case "then":
		s.Then, err = compile(v, at)
	case "else":
		s.Else, err = compile(v, at)
	case "allOf":
		s.AllOf, err = getSchemas(v, at)
	case "anyOf":
		s.AnyOf, err = getSchemas(v, at)
	case "oneOf":
		s.OneOf, err = getSchemas(v, at)
	case "minProperties":
		s.MinProperties, err = getCount(v, at)
	case "maxProperties":
		s.MaxProperties, err = getCount(v, at)
	case "minItems":
		s.MinItems, err = getCount(v, at)
	case "maxItems":
		s.MaxItems, err = getCount(v, at)
	case "minContains":
		s.MinContains, err = getCount(v, at)
	case "maxContains":
		s.MaxContains, err = getCount(v, at)
	case "minLength":
		s.MinLength, err = getCount(v, at)
	case "maxLength":
		s.MaxLength, err = getCount(v, at)
	case "minimum":
		s.Minimum, err = getNumber(v, at)
	case "maximum":
		s.Maximum, err = getNumber(v, at)
	case "exclusiveMinimum":
		s.ExclusiveMinimum, err = getNumber(v, at)
	case "exclusiveMaximum":
		s.ExclusiveMaximum, err = getNumber(v, at)
	case "multipleOf":
		s.MultipleOf, err = getNumber(v, at)
		if err == nil && *s.MultipleOf <= 0 {
			return fmt.Errorf("schema at %s: multipleOf must be positive", at)
		}
	case "pattern":
		str, ok := v.(ast.String)
		if !ok {
			return fmt.Errorf("schema at %s: got %v, want string", at, v.Kind())
		}
		s.Pattern = string(str)
		s.pattern, err = regexp.Compile(s.Pattern)
		if err != nil {
			return fmt.Errorf("schema at %s: invalid pattern: %w", at, err)
		}
	case "format":
		str, ok := v.(ast.String)
		if !ok {
			return fmt.Errorf("schema at %s: got %v, want string", at, v.Kind())
		}
		s.Format = string(str)
	case "enum":
		arr, ok := v.(ast.Array)
		if !ok {
			return fmt.Errorf("schema at %s: got %v, want array", at, v.Kind())
		}
		s.Enum = append([]ast.Value{}, arr...)
	case "const":
		s.Const = v
	case "default":
		s.Default = v
	default:
		s.Extra = append(s.Extra, m)
	}
	return err
}

func getStrings(v ast.Value, at string, single bool) ([]string, error) {
	if str, ok := v.(ast.String); ok && single {
		return []string{string(str)}, nil
	}
	arr, ok := v.(ast.Array)
	if !ok {
		return nil, fmt.Errorf("schema at %s: got %v, want array of strings", at, v.Kind())
	}
	out := make([]string, len(arr))
	for i, e := range arr {
		str, ok := e.(ast.String)
		if !ok {
			return nil, fmt.Errorf("schema at %s: got %v, want string", jpath.Index(at, i), e.Kind())
		}
		out[i] = string(str)
	}
	return out, nil
}

func getSchemas(v ast.Value, at string) ([]*Schema, error) {
	arr, ok := v.(ast.Array)
	if !ok {
		return nil, fmt.Errorf("schema at %s: got %v, want array of schemas", at, v.Kind())
	}
	out := make([]*Schema, len(arr))
	for i, e := range arr {
		s, err := compile(e, jpath.Index(at, i))
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func getNumber(v ast.Value, at string) (*float64, error) {
	f, ok := ast.Number(v)
	if !ok {
		return nil, fmt.Errorf("schema at %s: got %v, want number", at, v.Kind())
	}
	return &f, nil
}

func getCount(v ast.Value, at string) (*int, error) {
	f, ok := ast.Number(v)
	if !ok || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return nil, fmt.Errorf("schema at %s: got %s, want a non-negative integer", at, v.JSON())
	}
	n := int(f)
	return &n, nil
}

// String returns a brief description of s, for diagnostics.
func (s *Schema) String() string {
	if s == nil {
		return "<nil>"
	} else if s.Bool != nil {
		return fmt.Sprint(*s.Bool)
	} else if s.src != nil {
		return s.src.JSON()
	}
	return "{type: " + strings.Join(s.Type, "|") + "}"
}
