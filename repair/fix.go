// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

package repair

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/creachadair/jsonish/ast"
	"github.com/creachadair/jsonish/jpath"
	"github.com/creachadair/jsonish/schema"
	"github.com/google/uuid"
	"github.com/iancoleman/strcase"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// A fix is a proposed change to the value at the path of an error.
type fix struct {
	desc   string
	value  ast.Value // the replacement value, if !remove
	remove bool      // remove the value from its parent object
	hint   bool      // record the suggestion, but do not apply it
}

func (f *fix) apply(root ast.Value, path string) (ast.Value, error) {
	if f.remove {
		return ast.Delete(root, path)
	}
	return ast.Set(root, path, f.value)
}

// propose returns a fix for e in root, or nil if the configuration does not
// enable any fix for it.
func (r *repairer) propose(root ast.Value, e *schema.ValidationError) *fix {
	s := e.Schema()
	if s == nil {
		return nil
	}
	v, ok := ast.Lookup(root, e.Path)
	if e.Kind == schema.KindRequired {
		return r.fixMissing(e.Path, s)
	} else if !ok {
		return nil
	}

	switch e.Kind {
	case schema.KindAdditionalProperties:
		if r.cfg.RemoveExtraProperties && e.Keyword == "additionalProperties" {
			return &fix{desc: fmt.Sprintf("remove property %q", lastKey(e.Path)), remove: true}
		}

	case schema.KindType:
		if r.cfg.CoerceTypes {
			if nv, ok := coerce(v, s); ok {
				nv = r.normalize(nv, s)
				return &fix{desc: fmt.Sprintf("convert %s %s to %s %s", v.Kind(), brief(v), nv.Kind(), brief(nv)), value: nv}
			}
		}
		if _, isNull := v.(ast.Null); isNull && r.cfg.UseDefaults && s.Default != nil {
			return &fix{desc: "use the default value " + brief(s.Default), value: ast.Clone(s.Default)}
		}

	case schema.KindRange:
		if r.cfg.ClampNumbers {
			if nv, ok := clamp(v, s); ok {
				return &fix{desc: fmt.Sprintf("clamp %s to %s", brief(v), brief(nv)), value: nv}
			}
		}

	case schema.KindLength:
		switch e.Keyword {
		case "maxLength":
			if r.cfg.TruncateStrings {
				if nv, ok := truncateString(v, s); ok {
					return &fix{desc: fmt.Sprintf("truncate to %d characters", *s.MaxLength), value: nv}
				}
			}
		case "maxItems":
			if r.cfg.TruncateArrays {
				if nv, ok := truncateArray(v, s); ok {
					return &fix{desc: fmt.Sprintf("truncate to %d items", *s.MaxItems), value: nv}
				}
			}
		}

	case schema.KindEnum:
		if r.cfg.FixEnums {
			return fixEnum(v, s.Enum)
		}
	case schema.KindConst:
		if r.cfg.FixEnums {
			return fixEnum(v, []ast.Value{s.Const})
		}

	case schema.KindFormat, schema.KindPattern:
		if r.cfg.FixFormats {
			return fixFormat(v, s, e.Kind)
		}
	}
	return nil
}

// normalize applies the enabled node-local repairs to a value just converted
// to the type required by s, so that a coerced value is not rejected for a
// bound that the configuration would also repair.
func (r *repairer) normalize(v ast.Value, s *schema.Schema) ast.Value {
	if r.cfg.ClampNumbers {
		if nv, ok := clamp(v, s); ok {
			v = nv
		}
	}
	if r.cfg.TruncateStrings {
		if nv, ok := truncateString(v, s); ok {
			v = nv
		}
	}
	if r.cfg.TruncateArrays {
		if nv, ok := truncateArray(v, s); ok {
			v = nv
		}
	}
	return v
}

// fixMissing proposes the default value for a missing required property.
func (r *repairer) fixMissing(path string, parent *schema.Schema) *fix {
	if !r.cfg.UseDefaults {
		return nil
	}
	ps := parent.Property(lastKey(path))
	if ps == nil || ps.Default == nil {
		return nil
	}
	d := schema.ApplyDefaults(ast.Clone(ps.Default), ps)
	return &fix{desc: "use the default value " + brief(d), value: d}
}

// coerce converts v to the first type allowed by s that it can represent.
func coerce(v ast.Value, s *schema.Schema) (ast.Value, bool) {
	for _, typ := range s.Type {
		if nv, ok := convert(v, typ); ok {
			return nv, true
		}
	}
	return nil, false
}

func convert(v ast.Value, typ string) (ast.Value, bool) {
	switch typ {
	case "integer", "number":
		wantInt := typ == "integer"
		switch t := v.(type) {
		case ast.String:
			return parseNumber(strings.TrimSpace(string(t)), wantInt)
		case ast.Float:
			if wantInt && schema.IsWhole(float64(t)) && math.Abs(float64(t)) < 1<<63 {
				return ast.Int(math.Round(float64(t))), true
			}
		}

	case "string":
		switch v.(type) {
		case ast.Int, ast.Float, ast.Bool:
			return ast.String(v.JSON()), true
		}

	case "boolean":
		switch t := v.(type) {
		case ast.String:
			switch strings.ToLower(strings.TrimSpace(string(t))) {
			case "true", "yes", "1":
				return ast.Bool(true), true
			case "false", "no", "0":
				return ast.Bool(false), true
			}
		case ast.Int:
			if t == 0 || t == 1 {
				return ast.Bool(t == 1), true
			}
		}

	case "null":
		if t, ok := v.(ast.String); ok {
			switch strings.ToLower(strings.TrimSpace(string(t))) {
			case "null", "none":
				return ast.Null{}, true
			}
		}

	case "array":
		if _, ok := v.(ast.Array); !ok {
			return ast.Array{v}, true
		}
	}
	return nil, false
}

func parseNumber(s string, wantInt bool) (ast.Value, bool) {
	if z, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ast.Int(z), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, false
	}
	if schema.IsWhole(f) && math.Abs(f) < 1<<63 {
		return ast.Int(math.Round(f)), true
	} else if wantInt {
		return nil, false
	}
	return ast.Float(f), true
}

// clamp moves a number into the range allowed by s, and reports whether it
// changed. Only the integer type is preserved for integer inputs.
func clamp(v ast.Value, s *schema.Schema) (ast.Value, bool) {
	n, ok := ast.Number(v)
	if !ok {
		return nil, false
	}
	intOnly := len(s.Type) != 0 && !s.AllowsType("number")
	x := n
	if m := s.MultipleOf; m != nil && !schema.IsMultiple(x, *m) {
		x = math.Round(x / *m) * *m
	}
	if s.Minimum != nil && x < *s.Minimum {
		x = *s.Minimum
	}
	if s.Maximum != nil && x > *s.Maximum {
		x = *s.Maximum
	}
	if lo := s.ExclusiveMinimum; lo != nil && x <= *lo {
		if intOnly {
			x = math.Floor(*lo) + 1
		} else {
			x = math.Nextafter(*lo, math.Inf(1))
		}
	}
	if hi := s.ExclusiveMaximum; hi != nil && x >= *hi {
		if intOnly {
			x = math.Ceil(*hi) - 1
		} else {
			x = math.Nextafter(*hi, math.Inf(-1))
		}
	}
	if x == n {
		return nil, false
	}
	if _, isInt := v.(ast.Int); (isInt || intOnly) && schema.IsWhole(x) {
		return ast.Int(math.Round(x)), true
	}
	return ast.Float(x), true
}

func truncateString(v ast.Value, s *schema.Schema) (ast.Value, bool) {
	str, ok := v.(ast.String)
	if !ok || s.MaxLength == nil || str.Len() <= *s.MaxLength {
		return nil, false
	}
	return ast.String([]rune(str)[:*s.MaxLength]), true
}

func truncateArray(v ast.Value, s *schema.Schema) (ast.Value, bool) {
	arr, ok := v.(ast.Array)
	if !ok || s.MaxItems == nil || len(arr) <= *s.MaxItems {
		return nil, false
	}
	return slices.Clone(arr[:*s.MaxItems]), true
}

// enumKey normalizes the spelling of an enum string, so that "In Progress",
// "in-progress", and "inProgress" compare equal.
func enumKey(s string) string { return strcase.ToSnake(strings.TrimSpace(s)) }

// fixEnum proposes the member of options that v spells differently. If there
// is no unique such member, it proposes the closest string option as a hint.
func fixEnum(v ast.Value, options []ast.Value) *fix {
	str, ok := v.(ast.String)
	if !ok {
		return nil
	}
	key, text := enumKey(string(str)), strings.TrimSpace(string(str))
	var match []ast.Value
	var names []string
	for _, opt := range options {
		if so, ok := opt.(ast.String); ok {
			names = append(names, string(so))
			if enumKey(string(so)) == key {
				match = append(match, opt)
			}
		} else if opt.JSON() == text {
			match = append(match, opt) // e.g., "2" for 2
		}
	}
	if len(match) == 1 {
		return &fix{desc: fmt.Sprintf("replace %s with %s", brief(v), brief(match[0])), value: match[0]}
	}

	ranks := fuzzy.RankFindFold(text, names)
	if len(ranks) == 0 {
		return nil
	}
	sort.Sort(ranks)
	best := ast.String(ranks[0].Target)
	return &fix{desc: fmt.Sprintf("did you mean %s?", brief(best)), value: best, hint: true}
}

// fixFormat proposes a normalized spelling of a string that does not match
// its declared format or pattern.
func fixFormat(v ast.Value, s *schema.Schema, kind schema.ErrorKind) *fix {
	str, ok := v.(ast.String)
	if !ok {
		return nil
	}
	t := strings.TrimSpace(string(str))
	if kind == schema.KindFormat {
		switch strings.ToLower(s.Format) {
		case "uuid":
			if u, err := uuid.Parse(t); err == nil {
				t = u.String()
			}
		case "date-time":
			if len(t) > len("2006-01-02 15:04") && t[4] == '-' && t[7] == '-' {
				t = strings.ToUpper(t[:10] + "T" + t[11:])
			}
		case "hostname":
			t = strings.ToLower(t)
		}
	}
	if t == string(str) {
		return nil
	}
	return &fix{desc: fmt.Sprintf("normalize %s to %s", brief(v), brief(ast.String(t))), value: ast.String(t)}
}

func lastKey(path string) string {
	e, err := jpath.Parse(path)
	if err != nil || len(e) == 0 {
		return ""
	}
	return e[len(e)-1].Key
}

func brief(v ast.Value) string {
	const maxLen = 40
	s := v.JSON()
	if r := []rune(s); len(r) > maxLen {
		return string(r[:maxLen-3]) + "..."
	}
	return s
}
