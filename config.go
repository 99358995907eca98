// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jsonish

import (
	"fmt"
	"strings"
)

// DuplicateKeyPolicy determines how a parser resolves an object key that
// occurs more than once.
type DuplicateKeyPolicy byte

const (
	FirstWins DuplicateKeyPolicy = iota // keep the first value seen
	LastWins                            // keep the last value, at the first key's position
	ErrorOnDuplicate                    // report a parse error
)

var policyStr = [...]string{
	FirstWins:        "firstWins",
	LastWins:         "lastWins",
	ErrorOnDuplicate: "error",
}

func (p DuplicateKeyPolicy) String() string {
	if int(p) < len(policyStr) {
		return policyStr[p]
	}
	return fmt.Sprintf("DuplicateKeyPolicy(%d)", p)
}

// MarshalText implements the encoding.TextMarshaler interface.
func (p DuplicateKeyPolicy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText implements the encoding.TextUnmarshaler interface.
// Matching is case-insensitive, and "first", "last", and "error" are
// accepted as abbreviations.
func (p *DuplicateKeyPolicy) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "firstwins", "first", "first_wins", "":
		*p = FirstWins
	case "lastwins", "last", "last_wins":
		*p = LastWins
	case "error":
		*p = ErrorOnDuplicate
	default:
		return fmt.Errorf("unknown duplicate key policy %q", text)
	}
	return nil
}

// Config selects the relaxations a lenient parse may apply. The zero value
// accepts only strict JSON, and resolves duplicate keys with FirstWins.
type Config struct {
	FixSmartQuotes        bool               `json:"fix_smart_quotes" yaml:"fix_smart_quotes"`
	StripComments         bool               `json:"strip_json_comments" yaml:"strip_json_comments"`
	ReplacePythonLiterals bool               `json:"replace_python_literals" yaml:"replace_python_literals"`
	ConvertKVObject       bool               `json:"convert_kv_object_to_json" yaml:"convert_kv_object_to_json"`
	QuoteUnquotedKeys     bool               `json:"quote_unquoted_keys" yaml:"quote_unquoted_keys"`
	DropTrailingCommas    bool               `json:"drop_trailing_commas" yaml:"drop_trailing_commas"`
	AllowSingleQuotes     bool               `json:"allow_single_quotes" yaml:"allow_single_quotes"`
	AllowControlChars     bool               `json:"allow_control_chars" yaml:"allow_control_chars"`
	DuplicateKeys         DuplicateKeyPolicy `json:"duplicate_key_policy" yaml:"duplicate_key_policy"`
}

// DefaultConfig returns a Config with every relaxation enabled and the
// FirstWins duplicate key policy.
func DefaultConfig() Config {
	return Config{
		FixSmartQuotes:        true,
		StripComments:         true,
		ReplacePythonLiterals: true,
		ConvertKVObject:       true,
		QuoteUnquotedKeys:     true,
		DropTrailingCommas:    true,
		AllowSingleQuotes:     true,
		AllowControlChars:     true,
		DuplicateKeys:         FirstWins,
	}
}

// NewStream constructs a Stream reading text, with the relaxations enabled
// by c.
func (c Config) NewStream(text string) *Stream {
	st := NewStream(strings.NewReader(text))
	st.s.AllowSmartQuotes(c.FixSmartQuotes)
	st.s.AllowComments(c.StripComments)
	st.s.AllowPythonLiterals(c.ReplacePythonLiterals)
	st.s.AllowBareKeys(c.QuoteUnquotedKeys)
	st.s.AllowSingleQuotes(c.AllowSingleQuotes)
	st.s.AllowControlChars(c.AllowControlChars)
	st.AllowTrailingCommas(c.DropTrailingCommas)
	return st
}

// Metadata records which relaxations a lenient parse applied.
type Metadata struct {
	ExtractedFromFence     bool               `json:"extractedFromFence"`
	FixedSmartQuotes       bool               `json:"fixedSmartQuotes"`
	StrippedComments       bool               `json:"strippedComments"`
	ReplacedPythonLiterals bool               `json:"replacedPythonLiterals"`
	ConvertedKVObject      bool               `json:"convertedKVObject"`
	QuotedUnquotedKeys     bool               `json:"quotedUnquotedKeys"`
	DroppedTrailingCommas  bool               `json:"droppedTrailingCommas"`
	EscapedControlChars    bool               `json:"escapedControlChars"`
	DuplicateKeyCount      int                `json:"duplicateKeyCount"`
	DuplicateKeyPolicy     DuplicateKeyPolicy `json:"duplicateKeyPolicy"`
}

// Record sets the flags of m corresponding to the relaxations in r.
func (m *Metadata) Record(r Relaxation) {
	m.FixedSmartQuotes = m.FixedSmartQuotes || r.Has(SmartQuotes)
	m.StrippedComments = m.StrippedComments || r.Has(Comments)
	m.ReplacedPythonLiterals = m.ReplacedPythonLiterals || r.Has(PythonLiterals)
	m.QuotedUnquotedKeys = m.QuotedUnquotedKeys || r.Has(BareKeys)
	m.DroppedTrailingCommas = m.DroppedTrailingCommas || r.Has(TrailingCommas)
	m.EscapedControlChars = m.EscapedControlChars || r.Has(ControlChars)
}
