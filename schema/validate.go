// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

package schema

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/creachadair/jsonish/ast"
	"github.com/creachadair/jsonish/jpath"
	"github.com/creachadair/mds/mapset"
)

// A Validator checks values against schemas. A zero Validator is ready for
// use and checks the default formats.
type Validator struct {
	// Formats checks the format keyword. If nil, DefaultFormats is used.
	Formats *Formats
}

// ValidateAll reports every way in which v fails to satisfy s, in traversal
// order. The paths of the errors begin with base, or with "$" if base is empty.
//
// Traversal visits composition keywords (allOf, anyOf, oneOf) first, then
// const, enum, type, the keywords specific to the kind of v, and finally
// if/then/else. The members of an object are visited in the order of the
// schema's properties, followed by the remaining members in the order they
// occur in v. Array elements are visited in index order.
func (vd *Validator) ValidateAll(v ast.Value, s *Schema, base string) []*ValidationError {
	c := &checker{formats: vd.formats()}
	c.check(v, s, cmp.Or(base, jpath.Root), KindType)
	return c.errs
}

// Validate reports the first error ValidateAll would report for v, or nil if
// v satisfies s. A non-nil error has concrete type *ValidationError.
func (vd *Validator) Validate(v ast.Value, s *Schema, base string) error {
	c := &checker{formats: vd.formats(), stop: true}
	c.check(v, s, cmp.Or(base, jpath.Root), KindType)
	if len(c.errs) != 0 {
		return c.errs[0]
	}
	return nil
}

// Passes reports whether v satisfies s.
func (vd *Validator) Passes(v ast.Value, s *Schema) bool {
	c := &checker{formats: vd.formats(), stop: true}
	return c.passes(v, s, jpath.Root)
}

// ValidateWithDefaults fills missing properties of a copy of v with their
// schema defaults, then validates the copy. It returns the copy along with
// the errors.
func (vd *Validator) ValidateWithDefaults(v ast.Value, s *Schema, base string) (ast.Value, []*ValidationError) {
	filled := ApplyDefaults(v, s)
	return filled, vd.ValidateAll(filled, s, base)
}

func (vd *Validator) formats() *Formats {
	if vd == nil || vd.Formats == nil {
		return defaultFormats
	}
	return vd.Formats
}

var std Validator

// ValidateAll reports every way in which v fails to satisfy s, using the
// default formats. See Validator.ValidateAll.
func ValidateAll(v ast.Value, s *Schema, base string) []*ValidationError {
	return std.ValidateAll(v, s, base)
}

// Validate reports the first way in which v fails to satisfy s, or nil,
// using the default formats. See Validator.Validate.
func Validate(v ast.Value, s *Schema, base string) error { return std.Validate(v, s, base) }

// ValidateWithDefaults is as Validator.ValidateWithDefaults using the default
// formats.
func ValidateWithDefaults(v ast.Value, s *Schema, base string) (ast.Value, []*ValidationError) {
	return std.ValidateWithDefaults(v, s, base)
}

// A checker accumulates validation errors for a single walk.
type checker struct {
	formats *Formats
	stop    bool // stop at the first error
	errs    []*ValidationError
}

func (c *checker) done() bool { return c.stop && len(c.errs) != 0 }

func (c *checker) report(s *Schema, path string, kind ErrorKind, keyword, msg string, args ...any) {
	if c.done() {
		return
	}
	c.errs = append(c.errs, &ValidationError{
		Path:    path,
		Kind:    kind,
		Keyword: keyword,
		Message: fmt.Sprintf(msg, args...),
		schema:  s,
	})
}

// passes reports whether v satisfies s, without recording errors.
func (c *checker) passes(v ast.Value, s *Schema, path string) bool {
	sub := &checker{formats: c.formats, stop: true}
	sub.check(v, s, path, KindType)
	return len(sub.errs) == 0
}

// check validates v against s. If s is the false schema, the error has the
// given kind.
func (c *checker) check(v ast.Value, s *Schema, path string, kind ErrorKind) {
	if s == nil || c.done() {
		return
	}
	if s.Bool != nil {
		if !*s.Bool {
			c.report(s, path, kind, "", "no value is allowed here")
		}
		return
	}

	c.checkComposition(v, s, path)
	if s.Const != nil && !ast.Equal(v, s.Const) {
		c.report(s, path, KindConst, "const", "value %s does not match const %s", brief(v), brief(s.Const))
	}
	if s.Enum != nil && !slices.ContainsFunc(s.Enum, func(e ast.Value) bool { return ast.Equal(v, e) }) {
		c.report(s, path, KindEnum, "enum", "value %s is not one of %s", brief(v), brief(ast.Array(s.Enum)))
	}
	if len(s.Type) != 0 && !slices.ContainsFunc(s.Type, func(t string) bool { return hasType(v, t) }) {
		c.report(s, path, KindType, "type", "expected %s, got %s", strings.Join(s.Type, " or "), typeOf(v))
	}

	switch t := v.(type) {
	case ast.Int, ast.Float:
		n, _ := ast.Number(v)
		c.checkNumber(n, s, path)
	case ast.String:
		c.checkString(string(t), s, path)
	case ast.Array:
		c.checkArray(t, s, path)
	case ast.Object:
		c.checkObject(t, s, path)
	}

	if s.If != nil {
		if c.passes(v, s.If, path) {
			c.check(v, s.Then, path, KindConditional)
		} else {
			c.check(v, s.Else, path, KindConditional)
		}
	}
}

func (c *checker) checkComposition(v ast.Value, s *Schema, path string) {
	for _, sub := range s.AllOf {
		c.check(v, sub, path, KindComposition)
	}
	if len(s.AnyOf) != 0 && !slices.ContainsFunc(s.AnyOf, func(sub *Schema) bool {
		return c.passes(v, sub, path)
	}) {
		c.report(s, path, KindComposition, "anyOf", "value does not match any schema in anyOf")
	}
	if len(s.OneOf) != 0 {
		var n int
		for _, sub := range s.OneOf {
			if c.passes(v, sub, path) {
				n++
			}
		}
		if n != 1 {
			c.report(s, path, KindComposition, "oneOf", "value matches %d schemas in oneOf, want exactly 1", n)
		}
	}
}

// The tolerances for comparing floating-point quotients and fractions.
const (
	multipleTolerance = 1e-9
	integerTolerance  = 1e-12
)

func (c *checker) checkNumber(n float64, s *Schema, path string) {
	if s.Minimum != nil && n < *s.Minimum {
		c.report(s, path, KindRange, "minimum", "%s is less than minimum %s", fnum(n), fnum(*s.Minimum))
	}
	if s.Maximum != nil && n > *s.Maximum {
		c.report(s, path, KindRange, "maximum", "%s is greater than maximum %s", fnum(n), fnum(*s.Maximum))
	}
	if s.ExclusiveMinimum != nil && n <= *s.ExclusiveMinimum {
		c.report(s, path, KindRange, "exclusiveMinimum", "%s is not greater than %s", fnum(n), fnum(*s.ExclusiveMinimum))
	}
	if s.ExclusiveMaximum != nil && n >= *s.ExclusiveMaximum {
		c.report(s, path, KindRange, "exclusiveMaximum", "%s is not less than %s", fnum(n), fnum(*s.ExclusiveMaximum))
	}
	if s.MultipleOf != nil && !IsMultiple(n, *s.MultipleOf) {
		c.report(s, path, KindRange, "multipleOf", "%s is not a multiple of %s", fnum(n), fnum(*s.MultipleOf))
	}
}

// IsMultiple reports whether n is a multiple of m, allowing for the rounding
// error of binary floating point. For example, 0.3 is a multiple of 0.1.
func IsMultiple(n, m float64) bool {
	if m <= 0 {
		return true
	}
	q := n / m
	return !math.IsInf(q, 0) && !math.IsNaN(q) && math.Abs(q-math.Round(q)) <= multipleTolerance
}

// IsWhole reports whether f is finite and has no fractional part.
func IsWhole(f float64) bool {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return false
	}
	_, frac := math.Modf(f)
	return math.Abs(frac) <= integerTolerance
}

func (c *checker) checkString(str string, s *Schema, path string) {
	n := ast.String(str).Len()
	if s.MinLength != nil && n < *s.MinLength {
		c.report(s, path, KindLength, "minLength", "string length %d is less than minLength %d", n, *s.MinLength)
	}
	if s.MaxLength != nil && n > *s.MaxLength {
		c.report(s, path, KindLength, "maxLength", "string length %d is greater than maxLength %d", n, *s.MaxLength)
	}
	if s.Pattern != "" {
		re, err := s.regexp()
		if err != nil {
			c.report(s, path, KindPattern, "pattern", "invalid pattern %q: %v", s.Pattern, err)
		} else if !re.MatchString(str) {
			c.report(s, path, KindPattern, "pattern", "string does not match pattern %q", s.Pattern)
		}
	}
	if s.Format != "" {
		if ok, known := c.checkFormat(s.Format, str); known && !ok {
			c.report(s, path, KindFormat, "format", "string does not match format %q", s.Format)
		}
	}
}

func (c *checker) checkFormat(name, str string) (ok, known bool) {
	fn, known := c.formats.Lookup(name)
	if !known {
		return false, false
	}
	return fn(str), true
}

func (c *checker) checkArray(arr ast.Array, s *Schema, path string) {
	if s.MinItems != nil && len(arr) < *s.MinItems {
		c.report(s, path, KindLength, "minItems", "array has %d items, fewer than minItems %d", len(arr), *s.MinItems)
	}
	if s.MaxItems != nil && len(arr) > *s.MaxItems {
		c.report(s, path, KindLength, "maxItems", "array has %d items, more than maxItems %d", len(arr), *s.MaxItems)
	}
	if s.Items != nil {
		for i, elt := range arr {
			c.check(elt, s.Items, jpath.Index(path, i), KindType)
		}
	}
	if s.Contains != nil {
		var n int
		for i, elt := range arr {
			if c.passes(elt, s.Contains, jpath.Index(path, i)) {
				n++
			}
		}
		lo := 1
		if s.MinContains != nil {
			lo = *s.MinContains
		}
		if n < lo {
			c.report(s, path, KindContains, "minContains", "array has %d items matching contains, want at least %d", n, lo)
		}
		if s.MaxContains != nil && n > *s.MaxContains {
			c.report(s, path, KindContains, "maxContains", "array has %d items matching contains, want at most %d", n, *s.MaxContains)
		}
	}
}

func (c *checker) checkObject(obj ast.Object, s *Schema, path string) {
	if s.MinProperties != nil && len(obj) < *s.MinProperties {
		c.report(s, path, KindLength, "minProperties", "object has %d properties, fewer than minProperties %d", len(obj), *s.MinProperties)
	}
	if s.MaxProperties != nil && len(obj) > *s.MaxProperties {
		c.report(s, path, KindLength, "maxProperties", "object has %d properties, more than maxProperties %d", len(obj), *s.MaxProperties)
	}

	present := mapset.New(obj.Keys()...)
	for _, key := range s.Required {
		if !present.Has(key) {
			c.report(s, jpath.Key(path, key), KindRequired, "required", "missing required property %q", key)
		}
	}
	for _, dep := range s.DependentRequired {
		if !present.Has(dep.Key) {
			continue
		}
		for _, key := range dep.Requires {
			if !present.Has(key) {
				c.report(s, jpath.Key(path, key), KindDependentRequired, "dependentRequired",
					"property %q is required when %q is present", key, dep.Key)
			}
		}
	}
	if s.PropertyNames != nil {
		for _, m := range obj {
			if !c.passes(ast.String(m.Key), s.PropertyNames, path) {
				c.report(s, jpath.Key(path, m.Key), KindPropertyNames, "propertyNames",
					"property name %q does not satisfy propertyNames", m.Key)
			}
		}
	}

	declared := mapset.New[string]()
	for _, p := range s.Properties {
		declared.Add(p.Name)
		if v, ok := obj.Get(p.Name); ok {
			c.check(v, p.Schema, jpath.Key(path, p.Name), KindAdditionalProperties)
		}
	}
	for _, m := range obj {
		if declared.Has(m.Key) || s.AdditionalProperties == nil {
			continue
		}
		ap := s.AdditionalProperties
		if ap.Bool != nil && !*ap.Bool {
			c.report(s, jpath.Key(path, m.Key), KindAdditionalProperties, "additionalProperties",
				"property %q is not allowed", m.Key)
		} else {
			c.check(m.Value, ap, jpath.Key(path, m.Key), KindAdditionalProperties)
		}
	}
}

// hasType reports whether v has the named schema type.
func hasType(v ast.Value, name string) bool {
	switch name {
	case "integer":
		switch t := v.(type) {
		case ast.Int:
			return true
		case ast.Float:
			return IsWhole(float64(t))
		}
		return false
	case "number":
		_, ok := ast.Number(v)
		return ok
	}
	return v.Kind().String() == name
}

// typeOf returns the schema type name of v.
func typeOf(v ast.Value) string { return v.Kind().String() }

// brief renders v for an error message, eliding the middle of long values.
func brief(v ast.Value) string {
	const maxLen = 64
	r := []rune(v.JSON())
	if len(r) <= maxLen {
		return string(r)
	}
	return string(r[:maxLen/2]) + "..." + string(r[len(r)-maxLen/2+3:])
}

func fnum(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }
