// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

package schema

import "fmt"

// An ErrorKind classifies a validation error. Callers may rely on the
// string values of the kinds, which are stable.
type ErrorKind string

const (
	KindType                 ErrorKind = "type"
	KindRequired             ErrorKind = "required"
	KindPattern              ErrorKind = "pattern"
	KindFormat               ErrorKind = "format"
	KindRange                ErrorKind = "range"
	KindLength               ErrorKind = "length"
	KindAdditionalProperties ErrorKind = "additionalProperties"
	KindEnum                 ErrorKind = "enum"
	KindConst                ErrorKind = "const"
	KindDependentRequired    ErrorKind = "dependentRequired"
	KindConditional          ErrorKind = "conditional"
	KindContains             ErrorKind = "contains"
	KindPropertyNames        ErrorKind = "propertyNames"
	KindComposition          ErrorKind = "composition"

	// These kinds are not produced by the validator, but by the callers that
	// report their failures in the same shape.
	KindParse ErrorKind = "parse"
	KindLimit ErrorKind = "limit"
)

// A ValidationError describes a single way in which a value fails to satisfy
// a schema.
type ValidationError struct {
	Path    string    `json:"path"`              // location of the value, e.g., $.a[1]
	Kind    ErrorKind `json:"kind"`              // classification
	Keyword string    `json:"keyword,omitempty"` // the schema keyword that failed
	Message string    `json:"message"`           // human-readable description
	Limit   *Limit    `json:"limit,omitempty"`   // for KindLimit only

	schema *Schema
	err    error
}

// A Limit describes a resource bound that was exceeded.
type Limit struct {
	Kind string `json:"kind"`
	Max  int    `json:"max"`
}

// Error satisfies the error interface.
func (e *ValidationError) Error() string { return fmt.Sprintf("%s: %s", e.Path, e.Message) }

// Unwrap supports error wrapping.
func (e *ValidationError) Unwrap() error { return e.err }

// Schema returns the schema whose keyword the value failed, or nil if the
// error did not come from a schema.
func (e *ValidationError) Schema() *Schema { return e.schema }

// Errorf constructs a ValidationError that is not attributed to a schema.
func Errorf(path string, kind ErrorKind, msg string, args ...any) *ValidationError {
	return &ValidationError{Path: path, Kind: kind, Message: fmt.Sprintf(msg, args...)}
}

// LimitErrorf constructs a ValidationError of kind limit reporting that the
// bound named by limit, whose value is max, was exceeded. The result wraps
// err, which may be nil.
func LimitErrorf(path, limit string, max int, err error, msg string, args ...any) *ValidationError {
	return &ValidationError{
		Path:    path,
		Kind:    KindLimit,
		Message: fmt.Sprintf(msg, args...),
		Limit:   &Limit{Kind: limit, Max: max},
		err:     err,
	}
}
