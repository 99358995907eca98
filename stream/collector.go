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

// A Collector gathers every value in a stream of text, and reports all of
// them once the input is closed.
//
// The input is treated as a sequence of independent candidate values, for
// example one object per line. Each value is parsed and validated as soon
// as it is complete, so that a failure is reported without waiting for the
// end of the input. The path of an error reported for an item begins with
// the index of the item, as in "$[2].name".
type Collector struct {
	session[[]ast.Value]
	items []ast.Value
}

// NewCollector constructs a Collector that checks each item against s. If s
// is nil, items are not validated. A nil opts uses default options.
func NewCollector(s *schema.Schema, opts *Options) *Collector {
	return &Collector{session: newSession[[]ast.Value]("collector", s, opts)}
}

// Reset discards all input, items, and any outcome, and returns c to the
// Idle state.
func (c *Collector) Reset() {
	c.reset()
	c.items = nil
}

// Poll reports the current outcome of the session. Until the input is
// closed, Poll reports not done unless an item has failed.
func (c *Collector) Poll() Outcome[[]ast.Value] {
	if c.state == Terminal {
		return c.last
	}
	final := c.state == Finished
	for {
		v, ok, err := c.nextItem(len(c.items), final, false)
		if err != nil {
			return c.fail(err)
		} else if !ok {
			break
		}
		c.items = append(c.items, v)
		c.opts.metrics().addItems(1)
		if err := c.checkItems(len(c.items)); err != nil {
			return c.fail(err)
		}
	}
	if !final {
		return Outcome[[]ast.Value]{}
	}
	if c.unfinished() {
		return c.fail(incompleteError())
	}
	return c.succeed(c.items, len(c.items))
}

// A BatchCollector reports the values in a stream of text as each becomes
// complete. Items are parsed and validated as for a Collector, and error
// paths are indexed by the position of the item in the whole stream.
//
// Each Poll that finds new items reports them with OK true and Done false.
// Once the input is closed and every item has been reported, Poll reports
// Done with an empty list.
type BatchCollector struct {
	session[[]ast.Value]
	defaults bool
	count    int // items reported so far
}

// NewBatchCollector constructs a BatchCollector that checks each item
// against s. If s is nil, items are not validated. A nil opts uses default
// options.
func NewBatchCollector(s *schema.Schema, opts *Options) *BatchCollector {
	return &BatchCollector{session: newSession[[]ast.Value]("batch", s, opts)}
}

// NewValidatedBatchCollector constructs a BatchCollector that fills in the
// defaults declared by s for missing properties of each item before
// validating it. The reported items include the defaults.
func NewValidatedBatchCollector(s *schema.Schema, opts *Options) *BatchCollector {
	return &BatchCollector{
		session:  newSession[[]ast.Value]("validated-batch", s, opts),
		defaults: true,
	}
}

// Reset discards all input and any outcome, and returns b to the Idle state.
// Item indexes start again from zero.
func (b *BatchCollector) Reset() {
	b.reset()
	b.count = 0
}

// Poll reports the items completed since the previous Poll.
func (b *BatchCollector) Poll() Outcome[[]ast.Value] {
	if b.state == Terminal {
		return b.last
	}
	final := b.state == Finished
	var batch []ast.Value
	for {
		v, ok, err := b.nextItem(b.count, final, b.defaults)
		if err != nil {
			return b.fail(err)
		} else if !ok {
			break
		}
		batch = append(batch, v)
		b.count++
		b.opts.metrics().addItems(1)
		if err := b.checkItems(b.count); err != nil {
			return b.fail(err)
		}
	}
	if len(batch) != 0 {
		return Outcome[[]ast.Value]{OK: true, Value: batch}
	}
	if !final {
		return Outcome[[]ast.Value]{}
	}
	if b.unfinished() {
		return b.fail(incompleteError())
	}
	return b.succeed([]ast.Value{}, b.count)
}

// nextItem parses the earliest complete candidate in the pending buffer,
// removing it and any text before it. It reports false if no candidate is
// complete. The paths of errors begin with the index of the item.
func (s *session[T]) nextItem(index int, final, defaults bool) (ast.Value, bool, error) {
	c, err := jsonish.NextCandidate(s.buf, final)
	if err != nil {
		return nil, false, nil
	}
	s.buf = s.buf[c.End:]

	base := jpath.Index(jpath.Root, index)
	doc, err := ast.ParseCandidate(c, s.opts.parseConfig())
	if err != nil {
		var perr *jsonish.ParseError
		if errors.As(err, &perr) {
			cp := *perr
			cp.Path = jpath.Rebase(base, perr.Path)
			return nil, false, &cp
		}
		return nil, false, err
	}
	v := doc.Value
	if s.schema != nil {
		if defaults {
			v = schema.ApplyDefaults(v, s.schema)
		}
		if err := s.opts.validator().Validate(v, s.schema, base); err != nil {
			return nil, false, err
		}
	}
	return v, true, nil
}

// checkItems reports an error if n items exceeds the item limit.
func (s *session[T]) checkItems(n int) error {
	if limit := s.opts.maxItems(); limit > 0 && n > limit {
		return schema.LimitErrorf(itemLimitPath, "maxItems", limit, ErrLimit,
			"stream items exceeded maxItems (items=%d, max=%d)", n, limit)
	}
	return nil
}

// unfinished reports whether the pending buffer holds the start of a value
// that never closed.
func (s *session[T]) unfinished() bool {
	_, err := jsonish.NextCandidate(s.buf, false)
	return errors.Is(err, jsonish.ErrIncomplete) && strings.ContainsAny(s.buf, "{[")
}
