// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

// Package repair corrects values that nearly satisfy a schema.
//
// ValidateWithRepair validates a value, and for each error attempts one local
// fix selected by the Config. A fix is kept only if re-validation shows that
// it removes the error without introducing any other; otherwise the error is
// reported as unfixable. The input value is never modified.
package repair

import (
	"errors"

	"github.com/creachadair/jsonish"
	"github.com/creachadair/jsonish/ast"
	"github.com/creachadair/jsonish/jpath"
	"github.com/creachadair/jsonish/schema"
	"github.com/creachadair/mds/mapset"
)

// A Suggestion records one attempted repair.
type Suggestion struct {
	Path       string           `json:"path"`
	ErrorKind  schema.ErrorKind `json:"error_kind"`
	Message    string           `json:"message"`         // the message of the original error
	Suggestion string           `json:"suggestion"`      // what the repair does
	Original   ast.Value        `json:"original_value"`  // nil if the value was missing
	Value      ast.Value        `json:"suggested_value"` // nil if the value is removed
	Applied    bool             `json:"applied"`
}

// A Result reports the outcome of a repair.
type Result struct {
	// Valid reports whether the input satisfied the schema as given.
	Valid bool `json:"valid"`

	// FullyRepaired reports whether Value satisfies the schema.
	FullyRepaired bool `json:"fully_repaired"`

	// Value is the input with the applied repairs. It is nil only if the
	// input could not be parsed.
	Value ast.Value `json:"repaired_value"`

	Suggestions []*Suggestion              `json:"suggestions"`
	Unfixable   []*schema.ValidationError `json:"unfixable_errors"`

	// ParseError is set by ParseAndRepair if the text could not be parsed.
	// In that case no validation was done.
	ParseError *jsonish.ParseError `json:"parse_error,omitempty"`

	// Metadata is set by ParseAndRepair to describe the parse.
	Metadata *jsonish.Metadata `json:"metadata,omitempty"`
}

// Err returns nil if r.Value satisfies the schema, or else an error
// describing the first reason it does not.
func (r *Result) Err() error {
	if r.ParseError != nil {
		return r.ParseError
	} else if len(r.Unfixable) != 0 {
		return r.Unfixable[0]
	}
	return nil
}

// ValidateWithRepair validates v against s and applies the repairs enabled
// by cfg to a copy of v. Errors are visited in validation order.
func ValidateWithRepair(v ast.Value, s *schema.Schema, cfg Config) *Result {
	r := &repairer{cfg: cfg, vd: &schema.Validator{Formats: cfg.Formats}}
	return r.run(v, s)
}

// ParseAndRepair parses a value from text under parseCfg, then validates and
// repairs it as ValidateWithRepair. If parsing fails, the result has Valid
// false and reports the failure in ParseError.
func ParseAndRepair(text string, s *schema.Schema, cfg Config, parseCfg jsonish.Config) *Result {
	v, md, err := ast.Parse(text, parseCfg)
	if err != nil {
		var perr *jsonish.ParseError
		if !errors.As(err, &perr) {
			perr = jsonish.Errorf(jpath.Root, err, "%v", err)
		}
		return &Result{ParseError: perr}
	}
	res := ValidateWithRepair(v, s, cfg)
	res.Metadata = &md
	return res
}

type repairer struct {
	cfg Config
	vd  *schema.Validator
}

// errKey identifies a validation error for comparison across validations
// of different values.
func errKey(e *schema.ValidationError) string {
	return e.Path + "\x00" + string(e.Kind) + "\x00" + e.Keyword
}

func errKeys(errs []*schema.ValidationError) mapset.Set[string] {
	keys := mapset.New[string]()
	for _, e := range errs {
		keys.Add(errKey(e))
	}
	return keys
}

func (r *repairer) run(v ast.Value, s *schema.Schema) *Result {
	errs := r.vd.ValidateAll(v, s, jpath.Root)
	res := &Result{Valid: len(errs) == 0, Value: v}
	if res.Valid {
		res.FullyRepaired = true
		return res
	}

	cur, curKeys := v, errKeys(errs)
	for _, e := range errs {
		if !curKeys.Has(errKey(e)) {
			continue // resolved by an earlier repair
		}
		if r.cfg.MaxSuggestions > 0 && len(res.Suggestions) >= r.cfg.MaxSuggestions {
			res.Unfixable = append(res.Unfixable, e)
			continue
		}
		f := r.propose(cur, e)
		if f == nil {
			res.Unfixable = append(res.Unfixable, e)
			continue
		}
		sug := &Suggestion{
			Path:       e.Path,
			ErrorKind:  e.Kind,
			Message:    e.Message,
			Suggestion: f.desc,
			Value:      f.value,
		}
		sug.Original, _ = ast.Lookup(cur, e.Path)
		res.Suggestions = append(res.Suggestions, sug)

		if f.hint {
			res.Unfixable = append(res.Unfixable, e)
			continue
		}
		next, err := f.apply(cur, e.Path)
		if err != nil {
			res.Unfixable = append(res.Unfixable, e)
			continue
		}

		// Keep the repair only if it resolves e without adding any error.
		nextKeys := errKeys(r.vd.ValidateAll(next, s, jpath.Root))
		if nextKeys.Has(errKey(e)) || !isSubset(nextKeys, curKeys) {
			res.Unfixable = append(res.Unfixable, e)
			continue
		}
		sug.Applied = true
		cur, curKeys = next, nextKeys
	}
	res.Value = cur
	res.FullyRepaired = len(r.vd.ValidateAll(cur, s, jpath.Root)) == 0
	return res
}

func isSubset(a, b mapset.Set[string]) bool {
	for k := range a {
		if !b.Has(k) {
			return false
		}
	}
	return true
}
