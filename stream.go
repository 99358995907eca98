// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jsonish

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/creachadair/jsonish/jpath"
)

// An Anchor represents a location in source text. The methods of an Anchor
// will report the location, token type, and contents of the anchor.
type Anchor interface {
	Token() Token       // Returns the token type of the anchor
	Text() []byte       // Returns a view of the normalized text of the anchor
	Copy() []byte       // Returns a copy of the normalized text of the anchor
	Location() Location // Returns the full location of the anchor
	Path() string       // Returns the path of the enclosing value, e.g. "$.a[0]"
}

// A Handler handles events from parsing an input stream.  If a method reports
// an error, parsing stops and that error is returned to the caller.
// The parser ensures objects and arrays are correctly balanced.
//
// The Anchor argument to a Handler method is only valid for the duration of
// that method call. If the method needs to retain information about the
// location after it returns, it must copy the relevant data.
type Handler interface {
	// Begin a new object, whose open brace is at loc.
	BeginObject(loc Anchor) error

	// End the most-recently-opened object, whose close brace is at loc.
	EndObject(loc Anchor) error

	// Begin a new array, whose open bracket is at loc.
	BeginArray(loc Anchor) error

	// End the most-recently-opened array, whose close bracket is at loc.
	EndArray(loc Anchor) error

	// Begin a new object member, whose key is at loc.  The text of the key is
	// still quoted; the handler is responsible for unescaping key values if the
	// plain string is required (see jsonish.Unquote). The path of loc is the
	// path of the member value.
	BeginMember(loc Anchor) error

	// End the current object member giving the location and type of the token
	// that terminated the member (either Comma or RBrace).
	EndMember(loc Anchor) error

	// Report a data value at the given location. The type of the value can be
	// recovered from the token. String tokens are quoted.
	Value(loc Anchor) error

	// EndOfInput reports the end of the input stream.
	EndOfInput(loc Anchor)
}

// CommentHandler is an optional interface that a Handler may implement to
// handle comment tokens. If a handler implements this method and comments are
// enabled in the scanner, Comment will be called for each comment token that
// occurs in the input. If the handler does not provide this method, comments
// will be silently discarded.
type CommentHandler interface {
	// Process the line or block comment at the specified location.
	// Line comments include their leading "//" and trailing newline (if present).
	// Block comments include their leading "/*" and trailing "*/".
	Comment(loc Anchor)
}

// Stream is a stream parser that consumes input and delivers events to a
// Handler corresponding with the structure of the input.
type Stream struct {
	s       *Scanner
	tcomma  bool       // allow trailing commas in objects and arrays
	relaxed Relaxation // relaxations applied by the parser
	path    []string   // path segments of the current value
}

// NewStream constructs a new Stream that consumes input from r.
func NewStream(r io.Reader) *Stream { return &Stream{s: NewScanner(r)} }

// NewStreamWithScanner constructs a new Stream that consumes input from s.
func NewStreamWithScanner(s *Scanner) *Stream { return &Stream{s: s} }

// AllowComments configures the scanner associated with s to report (true) or
// reject (false) comment tokens.
func (s *Stream) AllowComments(ok bool) { s.s.AllowComments(ok) }

// AllowTrailingCommas configures the parser to allow (true) or reject (false)
// trailing commas in objects and arrays.
func (s *Stream) AllowTrailingCommas(ok bool) { s.tcomma = ok }

// Scanner returns the scanner underlying s.
func (s *Stream) Scanner() *Scanner { return s.s }

// Relaxed reports the relaxations applied so far by s and its scanner.
func (s *Stream) Relaxed() Relaxation { return s.relaxed | s.s.Relaxed() }

func (s *Stream) recoverParseError(errp *error) {
	if serr := recover(); serr != nil {
		switch err := serr.(type) {
		case *ParseError:
			*errp = err
		case handlerError:
			*errp = err.error
		default:
			panic(serr)
		}
	}
}

// Parse parses the input stream and delivers events to h until either an error
// occurs or the input is exhausted. In case of a syntax error, the returned
// error has type [*ParseError].
func (s *Stream) Parse(h Handler) (err error) {
	defer s.recoverParseError(&err)

	for {
		err := s.nextToken(h)
		if err == io.EOF {
			h.EndOfInput(s.anchor())
			return nil
		} else if err != nil {
			s.syntaxError(err, "%v", err)
		}

		s.parseElement(h)
	}
}

// ParseOne parses a single value from the input stream and delivers events to
// h until the value is complete or an error occurs. If no further value is
// available from the input, ParseOne returns io.EOF. In case of a syntax
// error, the returned error has type [*ParseError].
func (s *Stream) ParseOne(h Handler) (err error) {
	defer s.recoverParseError(&err)

	if err := s.nextToken(h); err == io.EOF {
		h.EndOfInput(s.anchor())
		return err
	} else if err != nil {
		s.syntaxError(err, "%v", err)
	}
	s.parseElement(h)
	return nil
}

// ParseSingle parses exactly one value from the input stream, and reports an
// error if the input is empty or if anything other than comments follows the
// value.
func (s *Stream) ParseSingle(h Handler) (err error) {
	defer s.recoverParseError(&err)

	if err := s.nextToken(h); err == io.EOF {
		s.syntaxError(err, "empty input")
	} else if err != nil {
		s.syntaxError(err, "%v", err)
	}
	s.parseElement(h)

	if err := s.nextToken(h); err == io.EOF {
		h.EndOfInput(s.anchor())
		return nil
	} else if err != nil {
		s.syntaxError(err, "%v", err)
	}
	s.syntaxError(nil, "unexpected %v after value", s.s.Token())
	return nil // unreachable
}

// parseElement consumes a single value of any type.
// Precondition: token != Invalid.
func (s *Stream) parseElement(h Handler) {
	switch tok := s.s.Token(); tok {
	case LBrace:
		s.checkError(h.BeginObject(s.anchor()))
		s.parseMembers(h)
		s.require(h, RBrace)
		s.checkError(h.EndObject(s.anchor()))
	case LSquare:
		s.checkError(h.BeginArray(s.anchor()))
		s.parseElements(h)
		s.require(h, RSquare)
		s.checkError(h.EndArray(s.anchor()))
	case Integer, Number, String, True, False, Null:
		s.checkError(h.Value(s.anchor()))
	case Name:
		s.syntaxError(nil, "unexpected unquoted name %s", s.s.Text())
	case RBrace, RSquare, Comma, Colon:
		s.syntaxError(nil, "unexpected %v", tok)
	default:
		s.syntaxError(nil, "unknown token %v", tok)
	}
}

// parseMembers consumes zero of more key:value object members.
// Precondition: token == LBrace.
// Postcondition: token == RBrace.
func (s *Stream) parseMembers(h Handler) {
	tok := s.advance(h, RBrace, String, Name)
	if tok == RBrace {
		return // end of object
	}
	for {
		// Parse a single member: "key": value
		s.pushKey()
		s.checkError(h.BeginMember(s.anchor()))
		s.advance(h, Colon)
		s.advance(h)
		s.parseElement(h)

		// Check whether we have more members (",") or are done ("}").
		tok := s.advance(h, RBrace, Comma)
		s.checkError(h.EndMember(s.anchor()))
		s.pop()
		if tok == RBrace {
			return // end of object
		} else if s.tcomma {
			// If trailing commas are allowed and the next token is a close
			// bracket, consider this a valid end of the object. Otherwise, it
			// must be a key for a subsequent element.
			next := s.advance(h, String, Name, RBrace)
			if next == RBrace {
				s.relaxed |= TrailingCommas
				return // end of object with trailing comma
			}
		} else {
			s.advance(h, String, Name) // advance to next key
		}
	}
}

// parseElements consumes zero or more comma-separated array values.
// Precondition: token == LSquare.
// Postcondition: token == RSquare.
func (s *Stream) parseElements(h Handler) {
	s.push(jpath.Index("", 0))
	tok := s.advance(h)
	for i := 0; ; {
		// A close bracket ends an empty array, or a non-empty one whose last
		// element was followed by a comma when trailing commas are allowed.
		if tok == RSquare && (i == 0 || s.tcomma) {
			if i > 0 {
				s.relaxed |= TrailingCommas
			}
			s.pop()
			return
		}
		s.parseElement(h)
		s.pop()

		if s.advance(h, RSquare, Comma) == RSquare {
			return // end of array
		}
		i++
		s.push(jpath.Index("", i))
		tok = s.advance(h)
	}
}

// pushKey pushes a path segment for the object key at the current token.
// Precondition: token is String or Name.
func (s *Stream) pushKey() {
	if s.s.Token() == Name {
		s.relaxed |= BareKeys
	}
	key, err := Unquote(string(s.s.Text()))
	if err != nil {
		s.syntaxError(err, "invalid object key: %v", err)
	}
	s.push(jpath.Key("", string(key)))
}

func (s *Stream) push(seg string) { s.path = append(s.path, seg) }
func (s *Stream) pop()            { s.path = s.path[:len(s.path)-1] }

// Path returns the path of the value currently being parsed.
func (s *Stream) Path() string { return "$" + strings.Join(s.path, "") }

func (s *Stream) nextToken(h Handler) error {
	for s.s.Next() {
		// If we see a comment token, pass it to the handler if it implements
		// CommentHandler. Either way, discard the comment and fetch the next
		// available comment for the rest of the parser.
		if tok := s.s.Token(); tok == LineComment || tok == BlockComment {
			if ch, ok := h.(CommentHandler); ok {
				ch.Comment(s.anchor())
			}
			continue // skip to the next token for the parser
		}
		return nil
	}
	return cmp.Or(s.s.Err(), io.EOF)
}

func (s *Stream) advance(h Handler, tokens ...Token) Token {
	if err := s.nextToken(h); err != nil {
		s.syntaxError(err, "%v", tokLabel(tokens, err))
	}
	tok := s.s.Token()
	if len(tokens) != 0 && !tokOneOf(tok, tokens) {
		s.syntaxError(nil, "%v", tokLabel(tokens, tok))
	}
	return tok
}

func (s *Stream) require(h Handler, token Token) {
	if tok := s.s.Token(); tok != token {
		s.syntaxError(nil, "expected %v, got %v", token, tok)
	}
}

func (s *Stream) syntaxError(err error, msg string, args ...any) {
	loc := s.s.Location().First
	if err != nil {
		// Scanner errors are reported where the scanner stopped.
		loc = s.s.Location().Last
	}
	panic(&ParseError{
		Path:     s.Path(),
		Location: loc,
		Message:  fmt.Sprintf(msg, args...),
		err:      err,
	})
}

func (s *Stream) checkError(err error) {
	if err != nil {
		panic(handlerError{err})
	}
}

type handlerError struct{ error }

func (h handlerError) Unwrap() error { return h.error }

// anchor returns an Anchor for the current token of s.
func (s *Stream) anchor() Anchor { return streamAnchor{s} }

type streamAnchor struct{ st *Stream }

func (a streamAnchor) Token() Token       { return a.st.s.Token() }
func (a streamAnchor) Text() []byte       { return a.st.s.Text() }
func (a streamAnchor) Copy() []byte       { return a.st.s.Copy() }
func (a streamAnchor) Location() Location { return a.st.s.Location() }
func (a streamAnchor) Path() string       { return a.st.Path() }

// tokLabel makes a human-readable summary string for the given token types.
func tokLabel(tokens []Token, got any) string {
	if len(tokens) == 0 {
		return fmt.Sprint(got)
	}
	var exp string
	if len(tokens) == 1 {
		exp = tokens[0].String()
	} else {
		last := len(tokens) - 1
		ss := make([]string, len(tokens)-1)
		for i, tok := range tokens[:last] {
			ss[i] = tok.String()
		}
		exp = strings.Join(ss, ", ") + " or " + tokens[last].String()
	}
	return fmt.Sprintf("expected %s, got %v", exp, got)
}

// tokOneOf reports whether cur is an element of tokens.
func tokOneOf(cur Token, tokens []Token) bool {
	return slices.Contains(tokens, cur)
}
