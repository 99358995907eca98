// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

package schema

import (
	"errors"

	"github.com/creachadair/jsonish"
	"github.com/creachadair/jsonish/ast"
	"github.com/creachadair/jsonish/jpath"
)

// ParseAndValidate parses a value from text under the default lenient
// grammar and validates it against s. On failure the error is either a
// *jsonish.ParseError or a *ValidationError.
func ParseAndValidate(text string, s *Schema) (ast.Value, error) {
	doc, err := std.ParseAndValidateDoc(text, s, jsonish.DefaultConfig())
	if err != nil {
		return nil, err
	}
	return doc.Value, nil
}

// ParseAndValidateWithDefaults is as ParseAndValidate, but fills missing
// properties with their schema defaults before validating. The result
// includes the defaults.
func ParseAndValidateWithDefaults(text string, s *Schema) (ast.Value, error) {
	v, _, err := ast.Parse(text, jsonish.DefaultConfig())
	if err != nil {
		return nil, err
	}
	v = ApplyDefaults(v, s)
	if err := std.Validate(v, s, jpath.Root); err != nil {
		return nil, err
	}
	return v, nil
}

// ParseAndValidateDoc parses a document from text under cfg and validates
// its value against s.
func (vd *Validator) ParseAndValidateDoc(text string, s *Schema, cfg jsonish.Config) (*ast.Document, error) {
	doc, err := ast.ParseDocument(text, cfg)
	if err != nil {
		return nil, err
	}
	if err := vd.Validate(doc.Value, s, jpath.Root); err != nil {
		return nil, err
	}
	return doc, nil
}

// ParseAndValidateDoc parses a document from text under cfg and validates its
// value against s, using the default formats.
func ParseAndValidateDoc(text string, s *Schema, cfg jsonish.Config) (*ast.Document, error) {
	return std.ParseAndValidateDoc(text, s, cfg)
}

// ParseAndValidateAll parses every value in text under cfg and validates each
// against s. The paths of errors for the value at offset i begin with $[i].
func (vd *Validator) ParseAndValidateAll(text string, s *Schema, cfg jsonish.Config) ([]*ast.Document, error) {
	docs, err := ast.ParseAll(text, cfg)
	if err != nil {
		var perr *jsonish.ParseError
		if errors.As(err, &perr) {
			cp := *perr
			cp.Path = jpath.Rebase(jpath.Index(jpath.Root, len(docs)), perr.Path)
			return nil, &cp
		}
		return nil, err
	}
	for i, doc := range docs {
		if err := vd.Validate(doc.Value, s, jpath.Index(jpath.Root, i)); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

// ParseAndValidateAll is as Validator.ParseAndValidateAll using the default
// formats.
func ParseAndValidateAll(text string, s *Schema, cfg jsonish.Config) ([]*ast.Document, error) {
	return std.ParseAndValidateAll(text, s, cfg)
}
