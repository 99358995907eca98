// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

package stream

import (
	"errors"
	"strings"

	"github.com/creachadair/jsonish"
	"github.com/creachadair/jsonish/ast"
	"github.com/creachadair/jsonish/jpath"
	"github.com/creachadair/jsonish/schema"
)

// A Parser resolves a single value from a stream of text.
//
// Before the input is finished, Poll reports success only once a complete
// candidate value (a balanced object or array, or a closed fenced block) has
// arrived; a prefix that may yet become a value is reported as not done.
// After Finish, the whole input is parsed as by ast.ParseDocument.
type Parser struct {
	session[ast.Value]
}

// NewParser constructs a Parser that checks the value against s. If s is
// nil, the value is not validated. A nil opts uses default options.
func NewParser(s *schema.Schema, opts *Options) *Parser {
	return &Parser{session: newSession[ast.Value]("parser", s, opts)}
}

// Finish marks the end of the input. It is equivalent to Close.
func (p *Parser) Finish() { p.Close() }

// Reset discards all input and any outcome, and returns p to the Idle state.
// The schema and options are retained.
func (p *Parser) Reset() { p.reset() }

// Poll reports the current outcome of the session.
func (p *Parser) Poll() Outcome[ast.Value] {
	switch p.state {
	case Terminal:
		return p.last
	case Finished:
		return p.resolve()
	}
	c, err := jsonish.NextCandidate(p.buf, false)
	if err != nil {
		return Outcome[ast.Value]{} // nothing complete yet
	}
	doc, err := ast.ParseCandidate(c, p.opts.parseConfig())
	if err != nil {
		return p.fail(err)
	}
	return p.check(doc.Value)
}

// resolve parses the complete input.
func (p *Parser) resolve() Outcome[ast.Value] {
	if strings.TrimSpace(p.buf) == "" {
		return p.fail(incompleteError())
	}
	doc, err := ast.ParseDocument(p.buf, p.opts.parseConfig())
	if err != nil {
		if _, cerr := jsonish.NextCandidate(p.buf, false); errors.Is(cerr, jsonish.ErrIncomplete) {
			return p.fail(incompleteError())
		}
		return p.fail(err)
	}
	return p.check(doc.Value)
}

func (p *Parser) check(v ast.Value) Outcome[ast.Value] {
	if p.schema != nil {
		if err := p.opts.validator().Validate(v, p.schema, jpath.Root); err != nil {
			return p.fail(err)
		}
	}
	p.opts.metrics().addItems(1)
	return p.succeed(v, 1)
}

func incompleteError() *jsonish.ParseError {
	return jsonish.Errorf(incompletePath, jsonish.ErrIncomplete, "stream finished but JSON is incomplete")
}
