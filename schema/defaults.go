// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

package schema

import (
	"slices"

	"github.com/creachadair/jsonish/ast"
)

// ApplyDefaults returns a copy of v in which each object property that is
// missing but has a default in s is set to a copy of that default. Defaults
// are applied recursively to declared properties and to array elements under
// items. The input is not modified.
func ApplyDefaults(v ast.Value, s *Schema) ast.Value {
	if s == nil || s.Bool != nil {
		return v
	}
	switch t := v.(type) {
	case ast.Object:
		out := slices.Clone(t)
		for _, p := range s.Properties {
			i := slices.IndexFunc(out, func(m *ast.Member) bool { return m.Key == p.Name })
			if i >= 0 {
				out[i] = ast.Field(p.Name, ApplyDefaults(out[i].Value, p.Schema))
			} else if d := p.Schema.defaultValue(); d != nil {
				out = append(out, ast.Field(p.Name, ApplyDefaults(ast.Clone(d), p.Schema)))
			}
		}
		return out

	case ast.Array:
		if s.Items == nil {
			return v
		}
		out := make(ast.Array, len(t))
		for i, elt := range t {
			out[i] = ApplyDefaults(elt, s.Items)
		}
		return out
	}
	return v
}

func (s *Schema) defaultValue() ast.Value {
	if s == nil {
		return nil
	}
	return s.Default
}
