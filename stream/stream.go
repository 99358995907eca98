// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

// Package stream implements incremental parsing of JSON values from text
// that arrives in pieces, as from a streaming model response.
//
// A session accepts chunks of text with Append (or Write), and reports its
// progress each time Poll is called. A Parser resolves a single value; a
// Collector gathers every value in the input and reports them when the input
// is closed; a BatchCollector reports values as soon as each is complete:
//
//	p := stream.NewParser(nil, nil)
//	for chunk := range chunks {
//	   p.Append(chunk)
//	   if out := p.Poll(); out.Done {
//	      return out.Value, out.Err
//	   }
//	}
//	p.Finish()
//	out := p.Poll()
//
// Once a session reports Done, its outcome is fixed: further calls to Poll
// return the same outcome until the session is Reset. A session is not safe
// for concurrent use by multiple goroutines.
package stream

import (
	"errors"
	"log/slog"

	"github.com/creachadair/jsonish"
	"github.com/creachadair/jsonish/schema"
)

var (
	// ErrLimit is wrapped by the errors reported when a session exceeds
	// MaxBufferBytes or MaxItems.
	ErrLimit = errors.New("stream limit exceeded")

	// ErrClosed is reported by Append when the session no longer accepts
	// input.
	ErrClosed = errors.New("stream is closed")
)

// Paths reported by session errors that do not arise from a value.
const (
	bufferLimitPath = "$.stream.maxBufferBytes"
	itemLimitPath   = "$.stream.maxItems"
	incompletePath  = "$.stream.incomplete"
)

// An Outcome is the result of polling a session.
//
// While the session is in progress, Done is false. A BatchCollector may
// report OK with a Value while still in progress, when new items are ready.
// When Done is true, either OK is true and Value is the final result, or OK
// is false and Err reports the failure.
//
// A non-nil Err has concrete type *jsonish.ParseError or
// *schema.ValidationError. Limit errors are validation errors of kind
// "limit", and wrap ErrLimit.
type Outcome[T any] struct {
	Done  bool
	OK    bool
	Value T
	Err   error
}

// State is the lifecycle state of a session.
type State byte

const (
	Idle      State = iota // no input has been accepted
	Appending              // input is being accepted
	Finished               // the input is complete, but the outcome is not yet known
	Terminal               // the outcome is fixed
)

var stateStr = [...]string{
	Idle:      "idle",
	Appending: "appending",
	Finished:  "finished",
	Terminal:  "terminal",
}

func (s State) String() string {
	if int(s) < len(stateStr) {
		return stateStr[s]
	}
	return "invalid"
}

// Options control the behavior of a session. A nil *Options is ready for
// use and provides default values as described.
type Options struct {
	// If positive, the maximum number of bytes of pending input. A chunk that
	// would grow the pending input past this limit is not accepted, and the
	// session fails.
	MaxBufferBytes int

	// If positive, the maximum number of items a collector may report.
	MaxItems int

	// The relaxations applied when parsing values. If nil, the session uses
	// jsonish.DefaultConfig.
	Parse *jsonish.Config

	// The validator used to check values against the schema. If nil, a zero
	// Validator is used.
	Validator *schema.Validator

	// If set, terminal transitions are logged here at debug level.
	Logger *slog.Logger

	// If set, session activity is recorded here.
	Metrics *Metrics
}

func (o *Options) maxBufferBytes() int {
	if o == nil {
		return 0
	}
	return o.MaxBufferBytes
}

func (o *Options) maxItems() int {
	if o == nil {
		return 0
	}
	return o.MaxItems
}

func (o *Options) parseConfig() jsonish.Config {
	if o == nil || o.Parse == nil {
		return jsonish.DefaultConfig()
	}
	return *o.Parse
}

func (o *Options) validator() *schema.Validator {
	if o == nil || o.Validator == nil {
		return new(schema.Validator)
	}
	return o.Validator
}

func (o *Options) logger() *slog.Logger {
	if o == nil || o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

func (o *Options) metrics() *Metrics {
	if o == nil {
		return nil
	}
	return o.Metrics
}

// A Position is the location of the end of the input accepted by a session.
type Position struct {
	Offset int // total bytes accepted
	jsonish.LineCol
}

// session is the state shared by all the session types. The pending buffer
// holds input that has not yet been consumed as an item.
type session[T any] struct {
	opts   *Options
	schema *schema.Schema
	log    *slog.Logger

	buf   string
	pos   Position
	state State
	last  Outcome[T] // the terminal outcome, once state == Terminal
}

func newSession[T any](kind string, s *schema.Schema, opts *Options) session[T] {
	return session[T]{
		opts:   opts,
		schema: s,
		log:    opts.logger().With("session", kind),
		pos:    Position{LineCol: jsonish.LineCol{Line: 1}},
	}
}

func (s *session[T]) reset() {
	s.buf = ""
	s.pos = Position{LineCol: jsonish.LineCol{Line: 1}}
	s.state = Idle
	s.last = Outcome[T]{}
}

// accept appends chunk to the pending buffer, or reports why it cannot.
// Exceeding the buffer limit is terminal.
func (s *session[T]) accept(chunk string) error {
	if s.state == Finished || s.state == Terminal {
		return ErrClosed
	}
	if limit := s.opts.maxBufferBytes(); limit > 0 && len(s.buf)+len(chunk) > limit {
		err := schema.LimitErrorf(bufferLimitPath, "maxBufferBytes", limit, ErrLimit,
			"stream buffer exceeded maxBufferBytes (size=%d, max=%d)", len(s.buf)+len(chunk), limit)
		s.fail(err)
		return err
	}
	s.buf += chunk
	s.advance(chunk)
	s.state = Appending
	s.opts.metrics().addBytes(len(chunk))
	return nil
}

// Append adds chunk to the input of the session. If the session has been
// closed, Append reports ErrClosed. If the chunk would exceed the buffer
// limit, it is not accepted, the session fails, and Append reports the same
// error as Poll.
func (s *session[T]) Append(chunk string) error { return s.accept(chunk) }

// Write implements io.Writer by appending data to the session input.
func (s *session[T]) Write(data []byte) (int, error) {
	if err := s.accept(string(data)); err != nil {
		return 0, err
	}
	return len(data), nil
}

// Close marks the end of the input. Subsequent calls to Append report
// ErrClosed, and the next Poll resolves the outcome of the session.
func (s *session[T]) Close() {
	if s.state != Terminal {
		s.state = Finished
	}
}

// Location reports the position of the end of the accepted input.
func (s *session[T]) Location() Position { return s.pos }

// State reports the current lifecycle state of the session.
func (s *session[T]) State() State { return s.state }

func (s *session[T]) advance(chunk string) {
	s.pos.Offset += len(chunk)
	for i := 0; i < len(chunk); i++ {
		if chunk[i] == '\n' {
			s.pos.Line++
			s.pos.Column = 0
		} else {
			s.pos.Column++
		}
	}
}

func (s *session[T]) succeed(v T, n int) Outcome[T] {
	s.last = Outcome[T]{Done: true, OK: true, Value: v}
	s.state = Terminal
	s.log.Debug("stream complete", "items", n, "offset", s.pos.Offset)
	s.opts.metrics().finish("ok")
	return s.last
}

func (s *session[T]) fail(err error) Outcome[T] {
	s.last = Outcome[T]{Done: true, Err: err}
	s.state = Terminal
	s.log.Debug("stream failed", "error", err, "offset", s.pos.Offset)
	s.opts.metrics().finish(errorKind(err))
	return s.last
}

// errorKind reports the kind of a session error, for metrics.
func errorKind(err error) string {
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		return string(verr.Kind)
	}
	return string(schema.KindParse)
}
