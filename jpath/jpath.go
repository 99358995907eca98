// Package jpath builds and parses the location paths used to report where a
// value or an error occurs inside a JSON document.
package jpath

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

/*
Grammar:

  expr = root steps
  root = "$"
 steps = step [steps]
  step = "." name
  step = "[" INDEX "]"
  step = "[" QTEXT "]"
  name = { runes other than "." and "[" }
 INDEX = RE `\d+`
 QTEXT = a JSON string literal, or a single-quoted string

A key that is empty, or that contains whitespace, quotes, dots, or brackets,
is written in bracket form as a JSON string: $["a.b"].
*/

// Root is the path of a top-level value.
const Root = "$"

// Key returns the path of member key of the object at base. If base == "",
// Key returns only the step for key.
func Key(base, key string) string {
	if needsQuote(key) {
		return base + "[" + quoteKey(key) + "]"
	}
	return base + "." + key
}

// Index returns the path of element i of the array at base. If base == "",
// Index returns only the step for i.
func Index(base string, i int) string { return base + "[" + strconv.Itoa(i) + "]" }

// Rebase replaces the root marker of path with base. For example,
// Rebase("$[2]", "$.name") returns "$[2].name". If path does not begin with
// the root marker, it is returned unchanged.
func Rebase(base, path string) string {
	rest, ok := strings.CutPrefix(path, Root)
	if !ok {
		return path
	}
	return base + rest
}

func quoteKey(key string) string {
	var buf strings.Builder
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.Encode(key) // cannot fail for a string
	return strings.TrimSuffix(buf.String(), "\n")
}

func needsQuote(key string) bool {
	if key == "" {
		return true
	}
	return strings.ContainsFunc(key, func(r rune) bool {
		return r == '.' || r == '[' || r == ']' || r == '"' || r == '\'' || unicode.IsSpace(r)
	})
}

// An Expr is a parsed path expression.
type Expr []Step

// Parse parses s as a path expression.
func Parse(s string) (Expr, error) {
	t, ok := strings.CutPrefix(s, Root)
	if !ok {
		return nil, errors.New("missing root marker")
	}
	var steps Expr
	for t != "" {
		step, rest, err := parseStep(t)
		if err != nil {
			return nil, fmt.Errorf("at %q: %w", t, err)
		}
		steps = append(steps, step)
		t = rest
	}
	return steps, nil
}

// MustParse is as Parse, but panics on error.
func MustParse(s string) Expr {
	e, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return e
}

func (e Expr) String() string {
	var buf strings.Builder
	buf.WriteString(Root)
	for _, s := range e {
		buf.WriteString(s.String())
	}
	return buf.String()
}

// Pointer renders e as an RFC 6901 JSON Pointer.
func (e Expr) Pointer() string {
	var buf strings.Builder
	for _, s := range e {
		buf.WriteByte('/')
		if s.Op == IndexStep {
			buf.WriteString(strconv.Itoa(s.Index))
		} else {
			buf.WriteString(pointerEscaper.Replace(s.Key))
		}
	}
	return buf.String()
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// Pointer converts a path to an RFC 6901 JSON Pointer.
func Pointer(path string) (string, error) {
	e, err := Parse(path)
	if err != nil {
		return "", err
	}
	return e.Pointer(), nil
}

func parseStep(s string) (_ Step, rest string, _ error) {
	if t, ok := strings.CutPrefix(s, "."); ok {
		end := strings.IndexAny(t, ".[")
		if end < 0 {
			end = len(t)
		}
		if end == 0 {
			return Step{}, s, errors.New("empty name")
		}
		return Step{Op: KeyStep, Key: t[:end]}, t[end:], nil
	}
	t, ok := strings.CutPrefix(s, "[")
	if !ok {
		return Step{}, s, errors.New("invalid path step")
	}
	switch {
	case strings.HasPrefix(t, `"`):
		var key string
		dec := json.NewDecoder(strings.NewReader(t))
		if err := dec.Decode(&key); err != nil {
			return Step{}, s, fmt.Errorf("invalid quoted name: %w", err)
		}
		t = t[dec.InputOffset():]
		return closeStep(Step{Op: KeyStep, Key: key, Quoted: true}, t)

	case strings.HasPrefix(t, "'"):
		end := strings.Index(t[1:], "'")
		if end < 0 {
			return Step{}, s, errors.New("unterminated quoted name")
		}
		return closeStep(Step{Op: KeyStep, Key: t[1 : end+1], Quoted: true}, t[end+2:])

	default:
		end := strings.IndexFunc(t, func(r rune) bool { return r < '0' || r > '9' })
		if end <= 0 {
			return Step{}, s, errors.New("invalid index")
		}
		v, err := strconv.Atoi(t[:end])
		if err != nil {
			return Step{}, s, err
		}
		return closeStep(Step{Op: IndexStep, Index: v}, t[end:])
	}
}

func closeStep(step Step, s string) (Step, string, error) {
	rest, ok := strings.CutPrefix(s, "]")
	if !ok {
		return Step{}, s, errors.New("missing close bracket")
	}
	return step, rest, nil
}

// An Op is a path operator.
type Op byte

const (
	Invalid   Op = iota // invalid operator
	KeyStep             // object member lookup
	IndexStep           // array index lookup
)

func (o Op) String() string {
	switch o {
	case KeyStep:
		return "key"
	case IndexStep:
		return "index"
	}
	return "invalid"
}

// A Step is a single step of a path expression.
type Step struct {
	Op     Op
	Key    string // for KeyStep
	Index  int    // for IndexStep
	Quoted bool   // KeyStep was written in bracket form
}

func (s Step) String() string {
	if s.Op == IndexStep {
		return Index("", s.Index)
	}
	if s.Quoted {
		return "[" + quoteKey(s.Key) + "]"
	}
	return Key("", s.Key)
}
