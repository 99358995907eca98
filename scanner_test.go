// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jsonish_test

import (
	"strings"
	"testing"

	"github.com/creachadair/jsonish"
	"github.com/google/go-cmp/cmp"
)

func TestScanner(t *testing.T) {
	tests := []struct {
		input string
		want  []jsonish.Token
	}{
		// Empty inputs
		{"", nil},
		{"  ", nil},
		{"\n\n  \n", nil},
		{"\t  \r\n \t  \r\n", nil},

		// Constants
		{"true false null", []jsonish.Token{jsonish.True, jsonish.False, jsonish.Null}},

		// Punctuation
		{"{ [ ] } , :", []jsonish.Token{
			jsonish.LBrace, jsonish.LSquare, jsonish.RSquare, jsonish.RBrace, jsonish.Comma, jsonish.Colon,
		}},

		// Strings
		{`"" "a b c" "a\nb\tc"`, []jsonish.Token{jsonish.String, jsonish.String, jsonish.String}},
		{`"\"\\\/\b\f\n\r\t"`, []jsonish.Token{jsonish.String}},
		{`"\u0000\u01fc\uAA9c"`, []jsonish.Token{jsonish.String}},

		// Numbers
		{`0 -1 5139 2.3 5e+9 3.6E+4 -0.001E-100`, []jsonish.Token{
			jsonish.Integer, jsonish.Integer, jsonish.Integer,
			jsonish.Number, jsonish.Number, jsonish.Number, jsonish.Number,
		}},

		// Mixed types
		{`{true,"false":-15 null[]}`, []jsonish.Token{
			jsonish.LBrace, jsonish.True, jsonish.Comma, jsonish.String, jsonish.Colon,
			jsonish.Integer, jsonish.Null, jsonish.LSquare, jsonish.RSquare, jsonish.RBrace,
		}},
		{`{"a": true, "b":[null, 1, 0.5]}`, []jsonish.Token{
			jsonish.LBrace,
			jsonish.String, jsonish.Colon, jsonish.True, jsonish.Comma,
			jsonish.String, jsonish.Colon,
			jsonish.LSquare,
			jsonish.Null, jsonish.Comma, jsonish.Integer, jsonish.Comma, jsonish.Number,
			jsonish.RSquare,
			jsonish.RBrace,
		}},
		{`"a",1,true
       false["b"]
       `, []jsonish.Token{
			jsonish.String, jsonish.Comma, jsonish.Integer, jsonish.Comma, jsonish.True,
			jsonish.False, jsonish.LSquare, jsonish.String, jsonish.RSquare,
		}},
	}

	for _, test := range tests {
		var got []jsonish.Token
		s := jsonish.NewScanner(strings.NewReader(test.input))
		for s.Next() {
			got = append(got, s.Token())
		}
		if s.Err() != nil {
			t.Errorf("Next failed: %v", s.Err())
		}
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("Input: %#q\nTokens: (-want, +got)\n%s", test.input, diff)
		}
	}
}

func TestScanner_withComments(t *testing.T) {
	tests := []struct {
		input string
		want  []jsonish.Token
		coms  []string
	}{
		{"/* block comment */\n\n\n", []jsonish.Token{jsonish.BlockComment},
			[]string{"/* block comment */"}},
		{"// line 1\n\n// line 2\n", []jsonish.Token{jsonish.LineComment, jsonish.LineComment},
			[]string{"// line 1\n", "// line 2\n"}}, // N.B. includes terminating newline, if present
		{"// line at EOF", []jsonish.Token{jsonish.LineComment},
			[]string{"// line at EOF"}},
		{`{
 "x": 1, // howdy do
 "y" /* hide me */ : 2.0 }`, []jsonish.Token{
			jsonish.LBrace, jsonish.String, jsonish.Colon, jsonish.Integer, jsonish.Comma, jsonish.LineComment,
			jsonish.String, jsonish.BlockComment, jsonish.Colon, jsonish.Number, jsonish.RBrace,
		}, []string{
			"// howdy do\n", "/* hide me */",
		}},

		{`"a" // line
false /*
  this is a comment
*/ 1 null [ {} ]`, []jsonish.Token{
			jsonish.String, jsonish.LineComment, jsonish.False, jsonish.BlockComment,
			jsonish.Integer, jsonish.Null, jsonish.LSquare, jsonish.LBrace, jsonish.RBrace, jsonish.RSquare,
		}, []string{
			"// line\n", "/*\n  this is a comment\n*/",
		}},

		{"/* x */\n{\n}//foo", []jsonish.Token{
			jsonish.BlockComment, jsonish.LBrace, jsonish.RBrace, jsonish.LineComment,
		}, []string{
			"/* x */", "//foo",
		}},

		{"/**\n*/", []jsonish.Token{jsonish.BlockComment}, []string{"/**\n*/"}},

		{`/**/"foo"/***/"bar"/****/"baz"/*****/false/*x*/null`, []jsonish.Token{
			jsonish.BlockComment, jsonish.String,
			jsonish.BlockComment, jsonish.String,
			jsonish.BlockComment, jsonish.String,
			jsonish.BlockComment, jsonish.False,
			jsonish.BlockComment, jsonish.Null,
		}, []string{
			"/**/", "/***/", "/****/", "/*****/", "/*x*/",
		}},
	}

	for _, test := range tests {
		var got []jsonish.Token
		var coms []string
		s := jsonish.NewScanner(strings.NewReader(test.input))
		s.AllowComments(true)
		for s.Next() {
			got = append(got, s.Token())
			if tok := s.Token(); tok == jsonish.LineComment || tok == jsonish.BlockComment {
				coms = append(coms, string(s.Text()))
			}
		}
		if s.Err() != nil {
			t.Errorf("Next failed: %v", s.Err())
		}
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("Input: %#q\nTokens: (-want, +got)\n%s", test.input, diff)
		}
		if diff := cmp.Diff(test.coms, coms); diff != "" {
			t.Errorf("Input: %#q\nComments: (-want, +got)\n%s", test.input, diff)
		}
	}
}

func TestScanner_decodeAs(t *testing.T) {
	mustScan := func(t *testing.T, input string, want jsonish.Token) *jsonish.Scanner {
		t.Helper()
		s := jsonish.NewScanner(strings.NewReader(input))
		if !s.Next() {
			t.Fatalf("Next failed: %v", s.Err())
		} else if s.Token() != want {
			t.Fatalf("Next token: got %v, want %v", s.Token(), want)
		}
		return s
	}

	t.Run("Integer", func(t *testing.T) {
		mustScan(t, `-15`, jsonish.Integer)
	})
	t.Run("Number", func(t *testing.T) {
		mustScan(t, `3.25e-5`, jsonish.Number)
	})
	t.Run("Constants", func(t *testing.T) {
		mustScan(t, `true`, jsonish.True)
		mustScan(t, `false`, jsonish.False)
		mustScan(t, `null`, jsonish.Null)
	})
	t.Run("String", func(t *testing.T) {
		const wantText = `"a\tb\u0020c\n"` // as written, without quotes
		const wantDec = "a\tb c\n"         // with escapes undone
		s := mustScan(t, `"a\tb\u0020c\n"`, jsonish.String)
		text := s.Text()
		if got := string(text); got != wantText {
			t.Errorf("Text: got %#q, want %#q", got, wantText)
		}
		if u, err := jsonish.Unquote(string(text)); err != nil {
			t.Errorf("Unquote failed: %v", err)
		} else if got := string(u); got != wantDec {
			t.Errorf("Unquote: got %#q, want %#q", got, wantDec)
		}
	})
}

func TestQuote(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", `""`},
		{" ", `" "`},
		{"a\t\nb", `"a\t\nb"`},
		{"\x00\x01\x02", `"\u0000\u0001\u0002"`},
		{`a "b c\" d"`, `"a \"b c\\\" d\""`},
		{`\ufffd`, `"\\ufffd"`},
		{"\u2028 \u2029 \ufffd", `"\u2028 \u2029 \ufffd"`},
		{"This is the end\v", `"This is the end\u000b"`},
		{"<\x1e>", `"<\u001e>"`},
	}
	for _, test := range tests {
		got := string(jsonish.Quote(test.input))
		if got != test.want {
			t.Errorf("Input: %#q\nGot:  %#q\nWant: %#q", test.input, got, test.want)
		}
	}
}

func TestScannerLoc(t *testing.T) {
	type tokPos struct {
		Tok jsonish.Token
		Pos string
	}
	tests := []struct {
		input string
		want  []tokPos
	}{
		{"", nil},
		{"{ }", []tokPos{{jsonish.LBrace, "1:0-1"}, {jsonish.RBrace, "1:2-3"}}},
		{`"foo" // bar`, []tokPos{{jsonish.String, "1:0-5"}, {jsonish.LineComment, "1:6-12"}}},
		{"/* ok */\ntrue\n false\n", []tokPos{{jsonish.BlockComment, "1:0-8"}, {jsonish.True, "2:0-4"}, {jsonish.False, "3:1-6"}}},
		{"/* abc */", []tokPos{{jsonish.BlockComment, "1:0-9"}}},
		{"/* ok\n*/\n null", []tokPos{{jsonish.BlockComment, "1:0-2:2"}, {jsonish.Null, "3:1-5"}}},
		{"// first\n[1, /*x*/, 2\n]", []tokPos{
			{jsonish.LineComment, "1:0-2:0"}, {jsonish.LSquare, "2:0-1"}, {jsonish.Integer, "2:1-2"},
			{jsonish.Comma, "2:2-3"}, {jsonish.BlockComment, "2:4-9"}, {jsonish.Comma, "2:9-10"},
			{jsonish.Integer, "2:11-12"}, {jsonish.RSquare, "3:0-1"},
		}},
	}
	for _, tc := range tests {
		var got []tokPos
		s := jsonish.NewScanner(strings.NewReader(tc.input))
		s.AllowComments(true)
		for s.Next() {
			got = append(got, tokPos{s.Token(), s.Location().String()})
		}
		if s.Err() != nil {
			t.Errorf("Next failed: %v", s.Err())
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("Input: %#q\nTokens: (-want, +got)\n%s", tc.input, diff)
		}
	}
}

func TestUnquote(t *testing.T) {
	tests := []struct {
		input string
		want  string
		fail  bool
	}{
		{``, ``, true},                        // missing quotes
		{`"missing quote`, ``, true},          // missing quotes
		{`missing quote"`, ``, true},          // missing quotes
		{`""`, ``, false},                     // ok
		{`"ok go"`, "ok go", false},           // ok
		{`"abc\ndef"`, "abc\ndef", false},     // C escapes
		{`"\tabc\n"`, "\tabc\n", false},       // C escapes
		{`"\b\f\n\r\t"`, "\b\f\n\r\t", false}, // C escapes
		{`"a \u0026 b"`, "a & b", false},      // short Unicode escape
		{`"\u"`, ``, true},                    // incomplete Unicode escape
		{`"\u00"`, ``, true},                  // incomplete Unicode escape
		{`"\u00x9"`, "\ufffd", false},         // invalid Unicode escape
		{`"\u019 "`, "\ufffd", false},         // invalid Unicode escape
		{`"a\"b"`, `a"b`, false},              // ok
		{`"a\\b\\cd"`, `a\b\cd`, false},       // ok
	}

	for _, test := range tests {
		got, err := jsonish.Unquote(test.input)
		if err != nil {
			if !test.fail {
				t.Errorf("Unquote(%#q): got %v, want no error", test.input, err)
			} else {
				t.Logf("Unquote(%#q): got expected error: %v", test.input, err)
			}
		} else if err == nil && test.fail {
			t.Errorf("Unquote(%#q): got nil, want error", test.input)
		}
		if cmp := string(got); cmp != test.want {
			t.Errorf("Unquote(%#q): got %#q, want %#q", test.input, cmp, test.want)
		}
	}
}

func TestScanner_relaxed(t *testing.T) {
	tests := []struct {
		input string
		want  []jsonish.Token
		text  []string
		relax jsonish.Relaxation
	}{
		{`'a b'`, []jsonish.Token{jsonish.String}, []string{`"a b"`}, jsonish.SingleQuotes},
		{`'say "hi"'`, []jsonish.Token{jsonish.String}, []string{`"say \"hi\""`}, jsonish.SingleQuotes},
		{`'it\'s'`, []jsonish.Token{jsonish.String}, []string{`"it's"`}, jsonish.SingleQuotes},
		{"“curly”", []jsonish.Token{jsonish.String}, []string{`"curly"`}, jsonish.SmartQuotes},
		{"‘tick’", []jsonish.Token{jsonish.String}, []string{`"tick"`}, jsonish.SmartQuotes},
		{`"plain “quoted” text"`, []jsonish.Token{jsonish.String},
			[]string{`"plain “quoted” text"`}, 0},
		{"True False None", []jsonish.Token{jsonish.True, jsonish.False, jsonish.Null},
			[]string{"true", "false", "null"}, jsonish.PythonLiterals},
		{"{name: 1}", []jsonish.Token{
			jsonish.LBrace, jsonish.Name, jsonish.Colon, jsonish.Integer, jsonish.RBrace,
		}, []string{"{", `"name"`, ":", "1", "}"}, 0},
		{"\"a\tb\nc\"", []jsonish.Token{jsonish.String}, []string{`"a\tb\nc"`}, jsonish.ControlChars},
		{`"it\'s"`, []jsonish.Token{jsonish.String}, []string{`"it's"`}, jsonish.SingleQuotes},
		{"// note\n1", []jsonish.Token{jsonish.LineComment, jsonish.Integer},
			[]string{"// note\n", "1"}, jsonish.Comments},
	}
	for _, test := range tests {
		var got []jsonish.Token
		var text []string
		s := jsonish.NewScanner(strings.NewReader(test.input))
		s.AllowComments(true)
		s.AllowSingleQuotes(true)
		s.AllowSmartQuotes(true)
		s.AllowPythonLiterals(true)
		s.AllowBareKeys(true)
		s.AllowControlChars(true)
		for s.Next() {
			got = append(got, s.Token())
			text = append(text, string(s.Text()))
		}
		if s.Err() != nil {
			t.Errorf("Next failed: %v", s.Err())
		}
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("Input: %#q\nTokens: (-want, +got)\n%s", test.input, diff)
		}
		if diff := cmp.Diff(test.text, text); diff != "" {
			t.Errorf("Input: %#q\nText: (-want, +got)\n%s", test.input, diff)
		}
		if got := s.Relaxed(); got != test.relax {
			t.Errorf("Input: %#q\nRelaxed: got %v, want %v", test.input, got, test.relax)
		}
	}
}

func TestScanner_strict(t *testing.T) {
	for _, input := range []string{
		`'single'`, "“smart”", "True", "None", "bare", "// comment", `"open`, "01", "1.", "-",
		"\"line\nbreak\"", "\"tab\there\"", "\"nul\x00\"", `"it\'s"`,
	} {
		s := jsonish.NewScanner(strings.NewReader(input))
		for s.Next() {
		}
		if s.Err() == nil {
			t.Errorf("Input %#q: got no error, want error", input)
		}
	}
}

func TestRelaxationString(t *testing.T) {
	tests := []struct {
		r    jsonish.Relaxation
		want string
	}{
		{0, "none"},
		{jsonish.Comments, "comments"},
		{jsonish.SmartQuotes | jsonish.TrailingCommas, "smartQuotes|trailingCommas"},
		{jsonish.BareKeys | jsonish.ControlChars, "bareKeys|controlChars"},
	}
	for _, test := range tests {
		if got := test.r.String(); got != test.want {
			t.Errorf("String(%d): got %q, want %q", test.r, got, test.want)
		}
	}
}
