// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package ast

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/creachadair/jsonish"
)

// A Document is the result of a successful lenient parse.
type Document struct {
	Value    Value
	Metadata jsonish.Metadata

	// Source is the text that was parsed, after extraction.
	Source string

	// Locations maps the path of each value in the tree to its location in
	// the input. It is nil for values that were not read from JSON syntax.
	Locations map[string]jsonish.Location
}

// Parse extracts and parses a single value from text under the relaxations
// selected by cfg. On failure the error has concrete type
// *jsonish.ParseError.
func Parse(text string, cfg jsonish.Config) (Value, jsonish.Metadata, error) {
	doc, err := ParseDocument(text, cfg)
	if err != nil {
		return nil, jsonish.Metadata{}, err
	}
	return doc.Value, doc.Metadata, nil
}

// ParseDocument is as Parse, but reports the complete Document, with source
// locations relative to text.
func ParseDocument(text string, cfg jsonish.Config) (*Document, error) {
	c, err := jsonish.ExtractCandidate(text)
	if errors.Is(err, jsonish.ErrIncomplete) {
		return nil, unclosedError(text[c.Start:], cfg)
	} else if err != nil {
		return parseFallback(text, cfg)
	}
	doc, err := ParseCandidate(c, cfg)
	if err != nil {
		return nil, err
	}
	off := c.Start + strings.Index(text[c.Start:c.End], c.Text)
	base := lineColAt(text, off)
	for p, loc := range doc.Locations {
		doc.Locations[p] = loc.Shift(base, off)
	}
	return doc, nil
}

// ParseAll parses every candidate value in text, in order. If a candidate
// fails to parse, ParseAll returns the documents before it along with the
// error.
func ParseAll(text string, cfg jsonish.Config) ([]*Document, error) {
	cs := jsonish.ExtractCandidates(text)
	if len(cs) == 0 {
		doc, err := ParseDocument(text, cfg)
		if err != nil {
			return nil, err
		}
		return []*Document{doc}, nil
	}
	var docs []*Document
	for _, c := range cs {
		doc, err := ParseCandidate(c, cfg)
		if err != nil {
			return docs, err
		}
		docs = append(docs, doc)
	}
	rest := text[cs[len(cs)-1].End:]
	if c, err := jsonish.NextCandidate(rest, true); errors.Is(err, jsonish.ErrIncomplete) {
		return docs, unclosedError(rest[c.Start:], cfg)
	}
	return docs, nil
}

// unclosedError reports the syntax error in text, which begins with a value
// that never closes.
func unclosedError(text string, cfg jsonish.Config) error {
	if _, err := parseText(text, cfg); err != nil {
		return err
	}
	return jsonish.Errorf("$", jsonish.ErrIncomplete, "unclosed JSON value")
}

// ParseCandidate parses a single extracted candidate. Locations in the
// result are relative to c.Text.
func ParseCandidate(c jsonish.Candidate, cfg jsonish.Config) (*Document, error) {
	doc, err := parseText(c.Text, cfg)
	if err != nil {
		return nil, err
	}
	doc.Metadata.ExtractedFromFence = c.FromFence
	return doc, nil
}

// parseFallback handles text in which no candidate region was found. The
// text may be a key=value block, a bare primitive, or a structure whose
// brackets do not match.
func parseFallback(text string, cfg jsonish.Config) (*Document, error) {
	trimmed := strings.TrimSpace(text)
	if cfg.ConvertKVObject {
		if obj, ok := parseKV(trimmed); ok {
			doc := &Document{Value: obj, Source: trimmed}
			doc.Metadata.ConvertedKVObject = true
			doc.Metadata.DuplicateKeyPolicy = cfg.DuplicateKeys
			return doc, nil
		}
	}
	if i := strings.IndexAny(trimmed, "{["); i >= 0 {
		// Report the error from the malformed structure.
		return parseText(trimmed[i:], cfg)
	} else if startsValue(trimmed) {
		return parseText(trimmed, cfg)
	}
	return nil, jsonish.Errorf("$", jsonish.ErrNotFound, "no JSON value found")
}

// startsValue reports whether s plausibly begins with a JSON primitive.
func startsValue(s string) bool {
	if s == "" {
		return false
	}
	if strings.ContainsAny(s[:1], `"'-0123456789`) || strings.HasPrefix(s, "“") || strings.HasPrefix(s, "‘") {
		return true
	}
	for _, w := range []string{"true", "false", "null", "True", "False", "None"} {
		if strings.HasPrefix(s, w) {
			return true
		}
	}
	return false
}

func parseText(text string, cfg jsonish.Config) (*Document, error) {
	st := cfg.NewStream(text)
	h := &parseHandler{
		policy: cfg.DuplicateKeys,
		locs:   make(map[string]jsonish.Location),
	}
	if err := st.ParseSingle(h); err != nil {
		return nil, err
	}
	doc := &Document{Value: h.result, Source: text, Locations: h.locs}
	doc.Metadata.Record(st.Relaxed())
	doc.Metadata.DuplicateKeyCount = h.dups
	doc.Metadata.DuplicateKeyPolicy = cfg.DuplicateKeys
	return doc, nil
}

// lineColAt returns the line and column of offset off in text.
func lineColAt(text string, off int) jsonish.LineCol {
	prefix := text[:off]
	line := strings.Count(prefix, "\n") + 1
	col := off - (strings.LastIndexByte(prefix, '\n') + 1)
	return jsonish.LineCol{Line: line, Column: col}
}

// A frame is an array or object under construction.
type frame struct {
	isObj bool
	arr   Array
	obj   Object
	begin jsonish.Location

	keys  map[string]int // object key → index in obj
	key   string         // key of the current member
	dupOf int            // index of the earlier member with key, or -1
}

// A parseHandler implements the jsonish.Handler interface to construct
// trees of values.
type parseHandler struct {
	stk    []*frame
	policy jsonish.DuplicateKeyPolicy
	dups   int
	result Value
	locs   map[string]jsonish.Location
}

func (h *parseHandler) top() *frame { return h.stk[len(h.stk)-1] }

func (h *parseHandler) pop() *frame {
	last := h.top()
	h.stk = h.stk[:len(h.stk)-1]
	return last
}

func (h *parseHandler) push(f *frame) { h.stk = append(h.stk, f) }

// reduceValue adds a complete value to the enclosing container, or records it
// as the result if it is the top-level value.
func (h *parseHandler) reduceValue(v Value, path string, loc jsonish.Location) {
	if _, seen := h.locs[path]; !seen || h.policy == jsonish.LastWins {
		h.locs[path] = loc
	}
	if len(h.stk) == 0 {
		h.result = v
		return
	}
	f := h.top()
	switch {
	case !f.isObj:
		f.arr = append(f.arr, v)
	case f.dupOf < 0:
		f.keys[f.key] = len(f.obj)
		f.obj = append(f.obj, Field(f.key, v))
	case h.policy == jsonish.LastWins:
		// Replace the value, but keep the position of the first key.
		f.obj[f.dupOf] = Field(f.key, v)
	}
	// Under FirstWins, a duplicate value is discarded.
}

func (h *parseHandler) BeginObject(loc jsonish.Anchor) error {
	h.push(&frame{isObj: true, obj: Object{}, keys: make(map[string]int), begin: loc.Location()})
	return nil
}

func (h *parseHandler) EndObject(loc jsonish.Anchor) error {
	f := h.pop()
	h.reduceValue(f.obj, loc.Path(), span(f.begin, loc.Location()))
	return nil
}

func (h *parseHandler) BeginArray(loc jsonish.Anchor) error {
	h.push(&frame{arr: Array{}, begin: loc.Location()})
	return nil
}

func (h *parseHandler) EndArray(loc jsonish.Anchor) error {
	f := h.pop()
	h.reduceValue(f.arr, loc.Path(), span(f.begin, loc.Location()))
	return nil
}

func (h *parseHandler) BeginMember(loc jsonish.Anchor) error {
	key, err := jsonish.Unquote(string(loc.Text()))
	if err != nil {
		return h.errorf(loc, err, "invalid key: %v", err)
	}
	f := h.top()
	f.key = string(key)
	f.dupOf = -1
	if i, ok := f.keys[f.key]; ok {
		h.dups++
		if h.policy == jsonish.ErrorOnDuplicate {
			return h.errorf(loc, nil, "duplicate key %q", f.key)
		}
		f.dupOf = i
	}
	return nil
}

func (h *parseHandler) EndMember(loc jsonish.Anchor) error { return nil }

func (h *parseHandler) Value(loc jsonish.Anchor) error {
	text := string(loc.Text())
	var v Value
	switch loc.Token() {
	case jsonish.String:
		s, err := jsonish.Unquote(text)
		if err != nil {
			return h.errorf(loc, err, "invalid string: %v", err)
		}
		v = String(s)
	case jsonish.Integer:
		z, err := strconv.ParseInt(text, 10, 64)
		if err == nil {
			v = Int(z)
			break
		} else if !errors.Is(err, strconv.ErrRange) {
			return h.errorf(loc, err, "invalid integer: %v", err)
		}
		// Integers too large for 64 bits are kept as floating-point.
		fallthrough
	case jsonish.Number:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil || math.IsInf(f, 0) {
			return h.errorf(loc, err, "number %s out of range", text)
		}
		v = Float(f)
	case jsonish.True, jsonish.False:
		v = Bool(loc.Token() == jsonish.True)
	case jsonish.Null:
		v = Null{}
	default:
		return h.errorf(loc, nil, "unknown value %v", loc.Token())
	}
	h.reduceValue(v, loc.Path(), loc.Location())
	return nil
}

func (h *parseHandler) EndOfInput(loc jsonish.Anchor) {}

func (h *parseHandler) errorf(loc jsonish.Anchor, err error, msg string, args ...any) error {
	perr := jsonish.Errorf(loc.Path(), err, msg, args...)
	perr.Location = loc.Location().First
	return perr
}

func span(first, last jsonish.Location) jsonish.Location {
	return jsonish.Location{
		Span:  jsonish.Span{Pos: first.Pos, End: last.End},
		First: first.First,
		Last:  last.Last,
	}
}

// String returns the compact JSON encoding of the document value.
func (d *Document) String() string { return d.Value.JSON() }
