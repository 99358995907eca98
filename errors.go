// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jsonish

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is reported when no candidate value exists in the input.
	ErrNotFound = errors.New("no JSON value found")

	// ErrIncomplete is reported when a candidate has begun but not ended.
	ErrIncomplete = errors.New("incomplete JSON value")
)

// ParseError is the concrete type of errors reported by the stream parser
// and the lenient parse entry points.
type ParseError struct {
	Path     string  `json:"path"`     // path of the innermost value being parsed, e.g. "$.a[1]"
	Location LineCol `json:"location"` // position of the offending token
	Message  string  `json:"message"`

	err error
}

// Kind reports the error category, which is always "parse".
func (p *ParseError) Kind() string { return "parse" }

// Error satisfies the error interface.
func (p *ParseError) Error() string {
	if p.Location.Line == 0 {
		return fmt.Sprintf("%s: %s", p.Path, p.Message)
	}
	return fmt.Sprintf("at %s: %s: %s", p.Location, p.Path, p.Message)
}

// Unwrap supports error wrapping.
func (p *ParseError) Unwrap() error { return p.err }

// Errorf constructs a *ParseError for path with no location, wrapping err if
// it is non-nil.
func Errorf(path string, err error, msg string, args ...any) *ParseError {
	return &ParseError{Path: path, Message: fmt.Sprintf(msg, args...), err: err}
}
