// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

// Package jsonish implements a lenient scanner and parser for the JSON-like
// text produced by language models.
//
// # Extraction
//
// Model output rarely consists of a bare JSON value. ExtractCandidate locates
// the most plausible value in free-form text: the body of a fenced code block
// tagged json, or else the first balanced region of braces or brackets:
//
//	c, err := jsonish.ExtractCandidate(reply)
//	if errors.Is(err, jsonish.ErrNotFound) {
//	   log.Fatal("No JSON in reply")
//	}
//
// NextCandidate is the incremental form used when text arrives in pieces.
//
// # Scanning
//
// The Scanner type implements a lexical scanner for JSON and a set of
// relaxations of it. Construct a scanner from an io.Reader and call its Next
// method to iterate over the stream:
//
//	s := jsonish.NewScanner(input)
//	s.AllowSingleQuotes(true)
//	for s.Next() {
//	   log.Printf("Next token: %v", s.Token())
//	}
//	if err := s.Err(); err != nil {
//	   log.Fatalf("Scanning failed: %v", err)
//	}
//
// Whatever the input spelling, the text of a String token is a valid JSON
// string literal. The Relaxed method reports which relaxations were applied.
//
// # Streaming
//
// The Stream type implements an event-driven stream parser. The parser works
// by calling methods on a Handler value to report the structure of the input.
// In case of error, parsing is terminated and an error of concrete type
// *jsonish.ParseError is returned, giving the path of the innermost value
// being parsed.
//
// A Config selects the relaxations to apply, and constructs a Stream:
//
//	st := jsonish.DefaultConfig().NewStream(c.Text)
//	if err := st.ParseSingle(handler); err != nil {
//	   log.Fatalf("Parse failed: %v", err)
//	}
//
// # Handlers
//
// The Handler interface accepts parser events from a Stream. The methods of
// a handler correspond to the syntax of JSON values:
//
//	JSON type  | Methods                   | Description
//	---------- | ------------------------- | ---------------------------------
//	object     | BeginObject, EndObject    | { ... }
//	array      | BeginArray, EndArray      | [ ... ]
//	member     | BeginMember, EndMember    | "key": value
//	value      | Value                     | true, false, null, number, string
//	--         | EndOfInput                | end of input
//
// Each method is passed an Anchor value that can be used to retrieve location,
// path, and type information. The Anchor passed to a handler method is only
// valid for the duration of that method call; the handler must copy any data
// it needs to retain beyond the lifetime of the call.
//
// See the ast package for a handler that builds a tree of values. The schema
// package checks values against a JSON schema, the repair package adjusts
// values that fail validation, and the stream package parses values from
// text that arrives incrementally.
package jsonish
