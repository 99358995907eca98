// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jsonish

import "fmt"

// A Span describes a contiguous span of a source input.
type Span struct {
	Pos int // the start offset, 0-based
	End int // the end offset, 0-based (noninclusive)
}

// A LineCol describes the line number and column offset of a location in
// source text.
type LineCol struct {
	Line   int `json:"line"`   // line number, 1-based
	Column int `json:"column"` // byte offset of column in line, 0-based
}

func (lc LineCol) String() string { return fmt.Sprintf("%d:%d", lc.Line, lc.Column) }

// A Location describes the complete location of a range of source text,
// including line and column offsets.
type Location struct {
	Span
	First, Last LineCol
}

func (loc Location) String() string {
	if loc.First.Line == loc.Last.Line {
		return fmt.Sprintf("%d:%d-%d", loc.First.Line, loc.First.Column, loc.Last.Column)
	}
	return fmt.Sprintf("%s-%s", loc.First, loc.Last)
}

// Shift returns a copy of loc whose offsets are moved by the position of
// base. Line numbers are rebased so that line 1 of loc lands on the line of
// base, and columns on that first line are offset by the base column.
func (loc Location) Shift(base LineCol, offset int) Location {
	shift := func(lc LineCol) LineCol {
		if lc.Line == 1 {
			return LineCol{Line: base.Line, Column: base.Column + lc.Column}
		}
		return LineCol{Line: base.Line + lc.Line - 1, Column: lc.Column}
	}
	return Location{
		Span:  Span{Pos: loc.Pos + offset, End: loc.End + offset},
		First: shift(loc.First),
		Last:  shift(loc.Last),
	}
}
