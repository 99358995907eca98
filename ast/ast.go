// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

// Package ast defines a tree of JSON values, and a lenient parser that
// constructs trees from the JSON-like text produced by language models.
//
// A Value is one of Null, Bool, Int, Float, String, Array, or Object.
// Integers and floating-point numbers are distinguished by their spelling in
// the source: 15 is an Int, 15.0 and 1.5e1 are Floats. An Object preserves the
// order in which its keys were first seen.
//
// Values are treated as immutable once constructed. The helpers in this
// package that modify a value, such as Set and Delete, return a new value
// that shares unmodified structure with the original.
package ast

import (
	"math"
	"strconv"
	"strings"

	"github.com/creachadair/jsonish"
)

// A Value is an arbitrary JSON value.
type Value interface {
	// JSON returns the compact JSON encoding of the value.
	JSON() string

	// Kind reports the kind of the value.
	Kind() Kind

	isValue()
}

// Kind enumerates the kinds of JSON values.
type Kind byte

const (
	NullKind Kind = iota
	BoolKind
	IntKind
	FloatKind
	StringKind
	ArrayKind
	ObjectKind
)

var kindStr = [...]string{
	NullKind:   "null",
	BoolKind:   "boolean",
	IntKind:    "integer",
	FloatKind:  "number",
	StringKind: "string",
	ArrayKind:  "array",
	ObjectKind: "object",
}

// String returns the JSON Schema type name for k.
func (k Kind) String() string {
	if int(k) < len(kindStr) {
		return kindStr[k]
	}
	return "invalid"
}

// Null is the JSON null constant.
type Null struct{}

func (Null) JSON() string                 { return "null" }
func (Null) Kind() Kind                   { return NullKind }
func (Null) MarshalJSON() ([]byte, error) { return []byte("null"), nil }
func (Null) isValue()                     {}

// A Bool is a Boolean constant, true or false.
type Bool bool

func (b Bool) JSON() string                 { return strconv.FormatBool(bool(b)) }
func (Bool) Kind() Kind                     { return BoolKind }
func (b Bool) MarshalJSON() ([]byte, error) { return []byte(b.JSON()), nil }
func (Bool) isValue()                       {}

// An Int is an integer value that fits in 64 bits.
type Int int64

func (z Int) JSON() string                 { return strconv.FormatInt(int64(z), 10) }
func (Int) Kind() Kind                     { return IntKind }
func (z Int) MarshalJSON() ([]byte, error) { return []byte(z.JSON()), nil }
func (Int) isValue()                       {}

// A Float is a floating-point value.
type Float float64

// JSON renders f so that it reads back as a Float: the result always has a
// fraction or an exponent. JSON has no spelling for NaN or infinities; these
// are rendered as null.
func (f Float) JSON() string {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "null"
	}
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func (Float) Kind() Kind                     { return FloatKind }
func (f Float) MarshalJSON() ([]byte, error) { return []byte(f.JSON()), nil }
func (Float) isValue()                       {}

// A String is a string value.
type String string

func (s String) JSON() string                 { return jsonish.Quote(string(s)) }
func (String) Kind() Kind                     { return StringKind }
func (s String) MarshalJSON() ([]byte, error) { return []byte(s.JSON()), nil }
func (String) isValue()                       {}

// Len returns the length of s in runes.
func (s String) Len() int { return len([]rune(s)) }

// An Array is a sequence of values.
type Array []Value

func (a Array) JSON() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range a {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(v.JSON())
	}
	sb.WriteByte(']')
	return sb.String()
}

func (Array) Kind() Kind                     { return ArrayKind }
func (a Array) MarshalJSON() ([]byte, error) { return []byte(a.JSON()), nil }
func (Array) isValue()                       {}

// Len returns the number of elements in a.
func (a Array) Len() int { return len(a) }

// An Object is a collection of key-value members, in the order their keys
// were first seen. Keys are unique.
type Object []*Member

func (o Object) JSON() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(jsonish.Quote(m.Key))
		sb.WriteByte(':')
		sb.WriteString(m.Value.JSON())
	}
	sb.WriteByte('}')
	return sb.String()
}

func (Object) Kind() Kind                     { return ObjectKind }
func (o Object) MarshalJSON() ([]byte, error) { return []byte(o.JSON()), nil }
func (Object) isValue()                       {}

// Len returns the number of members in o.
func (o Object) Len() int { return len(o) }

// Find returns the member of o with the given key, or nil.
func (o Object) Find(key string) *Member {
	if i := o.index(key); i >= 0 {
		return o[i]
	}
	return nil
}

// Get returns the value of the member of o with the given key, and reports
// whether it was found.
func (o Object) Get(key string) (Value, bool) {
	if m := o.Find(key); m != nil {
		return m.Value, true
	}
	return nil, false
}

// Keys returns the keys of o in order.
func (o Object) Keys() []string {
	keys := make([]string, len(o))
	for i, m := range o {
		keys[i] = m.Key
	}
	return keys
}

func (o Object) index(key string) int {
	for i, m := range o {
		if m.Key == key {
			return i
		}
	}
	return -1
}

// A Member is a single key-value pair belonging to an Object.
type Member struct {
	Key   string
	Value Value
}

// Field constructs an object member with the given key and value.
func Field(key string, value Value) *Member { return &Member{Key: key, Value: value} }

// Number reports the numeric value of v, and whether v is an Int or a Float.
func Number(v Value) (float64, bool) {
	switch t := v.(type) {
	case Int:
		return float64(t), true
	case Float:
		return float64(t), true
	}
	return 0, false
}
