// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package ast_test

import (
	"errors"
	"testing"

	"github.com/creachadair/jsonish"
	"github.com/creachadair/jsonish/ast"
	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	cfg := jsonish.DefaultConfig()
	tests := []struct {
		name  string
		input string
		want  ast.Value
		md    jsonish.Metadata
	}{
		{"Strict", `{"a": 1, "b": [true, null, 2.5, "x"]}`,
			ast.Object{
				ast.Field("a", ast.Int(1)),
				ast.Field("b", ast.Array{ast.Bool(true), ast.Null{}, ast.Float(2.5), ast.String("x")}),
			},
			jsonish.Metadata{}},
		{"Fenced", "Here you go:\n```json\n{\"ok\": true}\n```\n",
			ast.Object{ast.Field("ok", ast.Bool(true))},
			jsonish.Metadata{ExtractedFromFence: true}},
		{"SingleQuotes", `{'name': 'Bob'}`,
			ast.Object{ast.Field("name", ast.String("Bob"))},
			jsonish.Metadata{}},
		{"PythonLiterals", `{"a": True, "b": None, "c": False}`,
			ast.Object{ast.Field("a", ast.Bool(true)), ast.Field("b", ast.Null{}), ast.Field("c", ast.Bool(false))},
			jsonish.Metadata{ReplacedPythonLiterals: true}},
		{"TrailingCommas", `{"a": [1, 2,],}`,
			ast.Object{ast.Field("a", ast.Array{ast.Int(1), ast.Int(2)})},
			jsonish.Metadata{DroppedTrailingCommas: true}},
		{"Comments", "{\n  // the answer\n  \"a\": 42 /* really */\n}",
			ast.Object{ast.Field("a", ast.Int(42))},
			jsonish.Metadata{StrippedComments: true}},
		{"SmartQuotes", `{“a”: “b”}`,
			ast.Object{ast.Field("a", ast.String("b"))},
			jsonish.Metadata{FixedSmartQuotes: true}},
		{"BareKeys", `{name: "x", count: 3}`,
			ast.Object{ast.Field("name", ast.String("x")), ast.Field("count", ast.Int(3))},
			jsonish.Metadata{QuotedUnquotedKeys: true}},
		{"KeyValue", "name = Alice\nage=30\n# note\nscore = 1.5\nquoted = \"a b\"\nok = true",
			ast.Object{
				ast.Field("name", ast.String("Alice")),
				ast.Field("age", ast.Int(30)),
				ast.Field("score", ast.Float(1.5)),
				ast.Field("quoted", ast.String("a b")),
				ast.Field("ok", ast.Bool(true)),
			},
			jsonish.Metadata{ConvertedKVObject: true}},
		{"KeyValueNotNumbers", "a = NaN\nb = Inf\nc = -Infinity\nd = 0x10\ne = 007\nf = 1e999",
			ast.Object{
				ast.Field("a", ast.String("NaN")),
				ast.Field("b", ast.String("Inf")),
				ast.Field("c", ast.String("-Infinity")),
				ast.Field("d", ast.String("0x10")),
				ast.Field("e", ast.String("007")),
				ast.Field("f", ast.String("1e999")),
			},
			jsonish.Metadata{ConvertedKVObject: true}},
		{"ControlChars", "{\"text\": \"two\nlines\tand a tab\"}",
			ast.Object{ast.Field("text", ast.String("two\nlines\tand a tab"))},
			jsonish.Metadata{EscapedControlChars: true}},
		{"Primitive", "  42  ", ast.Int(42), jsonish.Metadata{}},
		{"PrimitiveString", `"hello"`, ast.String("hello"), jsonish.Metadata{}},
		{"BigInteger", `[123456789012345678901234567890]`,
			ast.Array{ast.Float(123456789012345678901234567890)}, jsonish.Metadata{}},
		{"FloatVsInt", `[1, 1.0, 1e0, -0]`,
			ast.Array{ast.Int(1), ast.Float(1), ast.Float(1), ast.Int(0)}, jsonish.Metadata{}},
		{"Duplicates", `{"a": 1, "b": 2, "a": 3, "a": 4}`,
			ast.Object{ast.Field("a", ast.Int(1)), ast.Field("b", ast.Int(2))},
			jsonish.Metadata{DuplicateKeyCount: 2}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, md, err := ast.Parse(test.input, cfg)
			if err != nil {
				t.Fatalf("Parse: unexpected error: %v", err)
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("Value (-want, +got):\n%s", diff)
			}
			if diff := cmp.Diff(test.md, md); diff != "" {
				t.Errorf("Metadata (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestDuplicateKeyPolicy(t *testing.T) {
	const input = `{"a": 1, "b": {"c": 2}, "a": [3]}`
	tests := []struct {
		policy jsonish.DuplicateKeyPolicy
		want   ast.Value
	}{
		{jsonish.FirstWins, ast.Object{
			ast.Field("a", ast.Int(1)),
			ast.Field("b", ast.Object{ast.Field("c", ast.Int(2))}),
		}},
		{jsonish.LastWins, ast.Object{
			ast.Field("a", ast.Array{ast.Int(3)}),
			ast.Field("b", ast.Object{ast.Field("c", ast.Int(2))}),
		}},
	}
	for _, test := range tests {
		cfg := jsonish.DefaultConfig()
		cfg.DuplicateKeys = test.policy
		got, md, err := ast.Parse(input, cfg)
		if err != nil {
			t.Fatalf("Parse %v: %v", test.policy, err)
		}
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("Policy %v: (-want, +got):\n%s", test.policy, diff)
		}
		if md.DuplicateKeyCount != 1 || md.DuplicateKeyPolicy != test.policy {
			t.Errorf("Policy %v: metadata %+v", test.policy, md)
		}
	}

	t.Run("Error", func(t *testing.T) {
		cfg := jsonish.DefaultConfig()
		cfg.DuplicateKeys = jsonish.ErrorOnDuplicate
		_, _, err := ast.Parse(`{"x": {"k": 1, "k": 2}}`, cfg)
		var perr *jsonish.ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("Parse: got %v, want *ParseError", err)
		}
		if perr.Path != "$.x.k" || perr.Kind() != "parse" {
			t.Errorf("Error: got path %q kind %q, want $.x.k parse", perr.Path, perr.Kind())
		}
	})
}

func TestParseStrict(t *testing.T) {
	// The zero Config accepts only standard JSON.
	for _, input := range []string{
		`{'a': 1}`, `{"a": True}`, `[1,]`, `{a: 1}`, `{"a": 1 // x
}`, "a = 1", "{\"a\": \"two\nlines\"}", "[\"tab\tin\"]", `["it\'s"]`,
	} {
		if v, _, err := ast.Parse(input, jsonish.Config{}); err == nil {
			t.Errorf("Parse %#q: got %s, want error", input, v.JSON())
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input string
		path  string
	}{
		{`{"a": [1, 2, }`, "$.a[2]"},
		{`{"a": {"b": oops}}`, "$.a.b"},
		{`Here: {"a": 1`, "$.a"},
		{`[1, 2`, "$"},
		{`{"a": [1, 2], "b": `, "$.b"},
		{`[{"x":1}, `, "$[1]"},
		{`Sure: {"a": {"b": 1}, "c": [`, "$.c[0]"},
		{`no json at all`, "$"},
	}
	for _, test := range tests {
		_, _, err := ast.Parse(test.input, jsonish.DefaultConfig())
		var perr *jsonish.ParseError
		if !errors.As(err, &perr) {
			t.Errorf("Parse %#q: got %v, want *ParseError", test.input, err)
			continue
		}
		if perr.Path != test.path {
			t.Errorf("Parse %#q: error path %q, want %q (%v)", test.input, perr.Path, test.path, err)
		}
	}

	if _, _, err := ast.Parse("no json at all", jsonish.DefaultConfig()); !errors.Is(err, jsonish.ErrNotFound) {
		t.Errorf("Parse: got %v, want ErrNotFound", err)
	}
}

func TestParseAll(t *testing.T) {
	const input = "first {\"a\": 1} then [2] and {'b': True}"
	docs, err := ast.ParseAll(input, jsonish.DefaultConfig())
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}
	var got []string
	for _, d := range docs {
		got = append(got, d.String())
	}
	if diff := cmp.Diff([]string{`{"a":1}`, `[2]`, `{"b":true}`}, got); diff != "" {
		t.Errorf("ParseAll (-want, +got):\n%s", diff)
	}
	if md := docs[2].Metadata; !md.ReplacedPythonLiterals {
		t.Errorf("Metadata: %+v, want ReplacedPythonLiterals", md)
	}
}

func TestParseAll_unclosed(t *testing.T) {
	docs, err := ast.ParseAll(`[1] then {"a": [2], "b": `, jsonish.DefaultConfig())
	var perr *jsonish.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("ParseAll: got %v, want *ParseError", err)
	}
	if perr.Path != "$.b" {
		t.Errorf("Error path: got %q, want $.b", perr.Path)
	}
	if len(docs) != 1 || docs[0].String() != "[1]" {
		t.Errorf("ParseAll: got %v, want only [1]", docs)
	}
}

func TestLocations(t *testing.T) {
	const input = "Result:\n```json\n{\n  \"a\": [10, \"x\"]\n}\n```"
	doc, err := ast.ParseDocument(input, jsonish.DefaultConfig())
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	tests := []struct {
		path, want string
		text       string
	}{
		{"$", "3:0-5:1", "{\n  \"a\": [10, \"x\"]\n}"},
		{"$.a", "4:7-16", `[10, "x"]`},
		{"$.a[0]", "4:8-10", "10"},
		{"$.a[1]", "4:12-15", `"x"`},
	}
	for _, test := range tests {
		loc, ok := doc.Locations[test.path]
		if !ok {
			t.Errorf("Location %q not found", test.path)
			continue
		}
		if got := loc.String(); got != test.want {
			t.Errorf("Location %q: got %s, want %s", test.path, got, test.want)
		}
		if got := input[loc.Pos:loc.End]; got != test.text {
			t.Errorf("Location %q: text %#q, want %#q", test.path, got, test.text)
		}
	}
}
