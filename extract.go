// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jsonish

import "strings"

// A Candidate is a region of free-form text that plausibly holds a single
// JSON value.
type Candidate struct {
	Text      string // the candidate text, with surrounding space removed
	Start     int    // offset of the start of the region in the input
	End       int    // offset just past the end of the region in the input
	FromFence bool   // the candidate was the body of a fenced json block
}

// ExtractCandidate locates the most plausible JSON value in text.
//
// The body of the first fenced code block whose info string begins with
// "json" is preferred. Otherwise, the result is the earliest top-level region
// delimited by balanced braces or brackets. Brackets inside string literals,
// and inside fenced blocks tagged with some other language, do not count.
// If the earliest region never closes, ExtractCandidate reports
// ErrIncomplete. If no candidate exists, it reports ErrNotFound.
func ExtractCandidate(text string) (Candidate, error) {
	for _, f := range scanFences(text) {
		if f.json && strings.TrimSpace(text[f.bodyStart:f.bodyEnd]) != "" {
			return f.candidate(text), nil
		}
	}
	return NextCandidate(text, true)
}

// ExtractCandidates returns all the non-overlapping candidates in text, in
// the order they occur. It stops at a region that never closes.
func ExtractCandidates(text string) []Candidate {
	var out []Candidate
	for pos := 0; pos < len(text); {
		c, err := NextCandidate(text[pos:], true)
		if err != nil {
			break
		}
		c.Start += pos
		c.End += pos
		out = append(out, c)
		pos = c.End
	}
	return out
}

// NextCandidate returns the earliest candidate in text, whether a fenced json
// block or a balanced region.
//
// A region that opens but never closes is reported as ErrIncomplete, and the
// text after its opening bracket is not searched, so a complete value nested
// inside a truncated one is never mistaken for the whole. In that case the
// Start and End of the result span the unclosed region. If final is false,
// text is treated as a prefix of a longer input, and a fence that has opened
// but not yet closed is also ErrIncomplete. If final is true, an unclosed
// json fence yields its body so far.
//
// Quotation marks outside a region are not treated specially: in the prose
// `use "{x}" here`, the candidate is {x}. This is deliberate, since models
// sometimes quote the whole of a JSON value.
//
// If no candidate has begun, NextCandidate reports ErrNotFound.
func NextCandidate(text string, final bool) (Candidate, error) {
	fences := scanFences(text)
	fi := 0 // index of the next fence not yet passed

	for i := 0; i < len(text); i++ {
		for fi < len(fences) && fences[fi].end <= i {
			fi++
		}
		if fi < len(fences) && i == fences[fi].start {
			switch f := fences[fi]; {
			case f.json:
				if !f.closed && !final {
					return Candidate{}, ErrIncomplete
				}
				if strings.TrimSpace(text[f.bodyStart:f.bodyEnd]) != "" {
					return f.candidate(text), nil
				}
				i = f.end - 1
				continue
			case f.tagged:
				if !f.closed && !final {
					// An unfinished fence for some other language hides
					// everything after it for now.
					return Candidate{}, ErrIncomplete
				}
				i = f.end - 1
				continue
			}
			// The contents of an untagged fence are scanned as usual.
		}

		if c := text[i]; c != '{' && c != '[' {
			continue
		}
		end, st := balance(text, i)
		switch st {
		case balanced:
			return Candidate{
				Text:  strings.TrimSpace(text[i:end]),
				Start: i,
				End:   end,
			}, nil
		case unclosed:
			return Candidate{Start: i, End: len(text)}, ErrIncomplete
		}
		// Otherwise, retry from the next bracket.
	}
	if !final && pendingFence(text) {
		return Candidate{}, ErrIncomplete
	}
	return Candidate{}, ErrNotFound
}

// pendingFence reports whether the final, unterminated line of text could be
// the opening of a fence whose info string has not yet arrived.
func pendingFence(text string) bool {
	last := text[strings.LastIndexByte(text, '\n')+1:]
	t := strings.TrimLeft(last, " \t")
	return t != "" && strings.HasPrefix("```", t[:min(len(t), 3)])
}

type balanceState int

const (
	balanced balanceState = iota
	mismatched
	unclosed
)

// balance scans text from the open bracket at start, and reports the offset
// just past its matching close bracket. Both single- and double-quoted string
// literals are skipped.
func balance(text string, start int) (int, balanceState) {
	var stk []byte
	var quote byte
	var esc bool
	for i := start; i < len(text); i++ {
		c := text[i]
		if quote != 0 {
			if esc {
				esc = false
			} else if c == '\\' {
				esc = true
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '{':
			stk = append(stk, '}')
		case '[':
			stk = append(stk, ']')
		case '}', ']':
			if stk[len(stk)-1] != c {
				return i, mismatched
			}
			stk = stk[:len(stk)-1]
			if len(stk) == 0 {
				return i + 1, balanced
			}
		}
	}
	return len(text), unclosed
}

type fence struct {
	start, end         int // the whole block, including its marker lines
	bodyStart, bodyEnd int // the body of the block
	tagged             bool // the fence has an info string
	json               bool // the info string begins with "json"
	closed             bool
}

func (f fence) candidate(text string) Candidate {
	return Candidate{
		Text:      strings.TrimSpace(text[f.bodyStart:f.bodyEnd]),
		Start:     f.start,
		End:       f.end,
		FromFence: true,
	}
}

// scanFences reports the fenced code blocks of text in order. A fence opens
// at a line beginning with three backticks after optional indentation, and
// closes at the next such line. A fence that never closes extends to the end
// of text.
func scanFences(text string) []fence {
	var out []fence
	var cur *fence
	for pos := 0; pos < len(text); {
		eol := strings.IndexByte(text[pos:], '\n')
		next := len(text)
		if eol >= 0 {
			eol += pos
			next = eol + 1
		} else {
			eol = len(text)
		}
		line := strings.TrimLeft(text[pos:eol], " \t")
		if strings.HasPrefix(line, "```") {
			if cur == nil {
				tag := strings.TrimSpace(strings.TrimLeft(line, "`"))
				cur = &fence{
					start:     pos,
					bodyStart: next,
					tagged:    tag != "",
					json:      strings.HasPrefix(strings.ToLower(tag), "json"),
				}
				if eol == len(text) {
					// The marker line has not ended; there is no body yet.
					cur.bodyStart = len(text)
				}
			} else {
				cur.bodyEnd = pos
				cur.end = next
				cur.closed = true
				out = append(out, *cur)
				cur = nil
			}
		}
		pos = next
	}
	if cur != nil {
		cur.bodyEnd = len(text)
		cur.end = len(text)
		out = append(out, *cur)
	}
	return out
}
