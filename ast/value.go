// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

package ast

import (
	"fmt"
	"slices"
	"sort"

	"github.com/creachadair/jsonish/jpath"
)

// Clone returns a deep copy of v.
func Clone(v Value) Value {
	switch t := v.(type) {
	case Array:
		out := make(Array, len(t))
		for i, e := range t {
			out[i] = Clone(e)
		}
		return out
	case Object:
		out := make(Object, len(t))
		for i, m := range t {
			out[i] = Field(m.Key, Clone(m.Value))
		}
		return out
	}
	return v
}

// Equal reports whether a and b are equal JSON values. Numbers compare by
// value, so Int(2) equals Float(2.0). Objects compare without regard to the
// order of their members.
func Equal(a, b Value) bool {
	if x, ok := Number(a); ok {
		if y, ok := Number(b); ok {
			ai, aInt := a.(Int)
			bi, bInt := b.(Int)
			if aInt && bInt {
				return ai == bi
			}
			return x == y
		}
		return false
	}
	switch t := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		u, ok := b.(Bool)
		return ok && t == u
	case String:
		u, ok := b.(String)
		return ok && t == u
	case Array:
		u, ok := b.(Array)
		return ok && slices.EqualFunc(t, u, Equal)
	case Object:
		u, ok := b.(Object)
		if !ok || len(t) != len(u) {
			return false
		}
		for _, m := range t {
			w, ok := u.Get(m.Key)
			if !ok || !Equal(m.Value, w) {
				return false
			}
		}
		return true
	}
	return false
}

// Lookup returns the value at the given path within v, and reports whether
// it exists.
func Lookup(v Value, path string) (Value, bool) {
	e, err := jpath.Parse(path)
	if err != nil {
		return nil, false
	}
	for _, step := range e {
		switch step.Op {
		case jpath.KeyStep:
			obj, ok := v.(Object)
			if !ok {
				return nil, false
			}
			if v, ok = obj.Get(step.Key); !ok {
				return nil, false
			}
		case jpath.IndexStep:
			arr, ok := v.(Array)
			if !ok || step.Index >= len(arr) {
				return nil, false
			}
			v = arr[step.Index]
		}
	}
	return v, true
}

// Set returns a copy of root in which the value at path is replaced by x.
// Object members missing along the path are added at the end of their
// objects, and an index equal to the length of an array appends to it.
// Values not on the path are shared with root.
func Set(root Value, path string, x Value) (Value, error) {
	e, err := jpath.Parse(path)
	if err != nil {
		return nil, err
	}
	return set(root, e, x, jpath.Root)
}

func set(v Value, steps jpath.Expr, x Value, at string) (Value, error) {
	if len(steps) == 0 {
		return x, nil
	}
	step := steps[0]
	switch step.Op {
	case jpath.KeyStep:
		obj, ok := v.(Object)
		if !ok && v != nil {
			return nil, fmt.Errorf("at %s: %s is not an object", at, v.Kind())
		}
		next := jpath.Key(at, step.Key)
		out := slices.Clone(obj)
		if i := out.index(step.Key); i >= 0 {
			nv, err := set(out[i].Value, steps[1:], x, next)
			if err != nil {
				return nil, err
			}
			out[i] = Field(step.Key, nv)
		} else {
			nv, err := set(nil, steps[1:], x, next)
			if err != nil {
				return nil, err
			}
			out = append(out, Field(step.Key, nv))
		}
		return out, nil

	case jpath.IndexStep:
		arr, ok := v.(Array)
		if !ok && v != nil {
			return nil, fmt.Errorf("at %s: %s is not an array", at, v.Kind())
		} else if step.Index > len(arr) {
			return nil, fmt.Errorf("at %s: index %d out of range (length %d)", at, step.Index, len(arr))
		}
		next := jpath.Index(at, step.Index)
		out := slices.Clone(arr)
		if step.Index == len(out) {
			nv, err := set(nil, steps[1:], x, next)
			if err != nil {
				return nil, err
			}
			return append(out, nv), nil
		}
		nv, err := set(out[step.Index], steps[1:], x, next)
		if err != nil {
			return nil, err
		}
		out[step.Index] = nv
		return out, nil
	}
	return nil, fmt.Errorf("at %s: invalid path step", at)
}

// Delete returns a copy of root with the value at path removed. It is an
// error if path is the root or does not exist.
func Delete(root Value, path string) (Value, error) {
	e, err := jpath.Parse(path)
	if err != nil {
		return nil, err
	} else if len(e) == 0 {
		return nil, fmt.Errorf("cannot delete the root")
	}
	parent, last := e[:len(e)-1], e[len(e)-1]
	pv, ok := Lookup(root, parent.String())
	if !ok {
		return nil, fmt.Errorf("path %q not found", path)
	}
	var nv Value
	switch t := pv.(type) {
	case Object:
		i := t.index(last.Key)
		if last.Op != jpath.KeyStep || i < 0 {
			return nil, fmt.Errorf("path %q not found", path)
		}
		nv = slices.Delete(slices.Clone(t), i, i+1)
	case Array:
		if last.Op != jpath.IndexStep || last.Index >= len(t) {
			return nil, fmt.Errorf("path %q not found", path)
		}
		nv = slices.Delete(slices.Clone(t), last.Index, last.Index+1)
	default:
		return nil, fmt.Errorf("path %q not found", path)
	}
	return set(root, parent, nv, jpath.Root)
}

// ToValue converts a Go value into a Value. It accepts nil, Value, bool,
// string, the built-in integer and floating-point types, []any, and
// map[string]any. Map keys are sorted. ToValue panics for other types.
func ToValue(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null{}
	case Value:
		return t
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case int:
		return Int(t)
	case int32:
		return Int(t)
	case int64:
		return Int(t)
	case uint32:
		return Int(t)
	case float32:
		return Float(t)
	case float64:
		return Float(t)
	case []any:
		out := make(Array, len(t))
		for i, e := range t {
			out[i] = ToValue(e)
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(Object, len(keys))
		for i, k := range keys {
			out[i] = Field(k, ToValue(t[k]))
		}
		return out
	}
	panic(fmt.Sprintf("unsupported type %T", v))
}
