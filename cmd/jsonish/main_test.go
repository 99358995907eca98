// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/creachadair/jsonish/ast"
	"github.com/creachadair/jsonish/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const personSchema = `{
  "type": "object",
  "required": ["name", "age"],
  "additionalProperties": false,
  "properties": {
    "name": {"type": "string"},
    "age": {"type": "integer", "minimum": 0, "maximum": 120, "default": 1}
  }
}`

// runCLI runs the program with args and input, and returns its exit status
// and outputs.
func runCLI(t *testing.T, input string, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errs bytes.Buffer
	code = run(args, strings.NewReader(input), &out, &errs)
	return code, out.String(), errs.String()
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestExtract(t *testing.T) {
	code, out, _ := runCLI(t, "Sure:\n```json\n{\"a\": 1}\n```\nDone.", "extract")
	assert.Equal(t, 0, code)
	assert.Equal(t, "{\"a\": 1}\n", out)

	code, out, _ = runCLI(t, "one [1] two {'b': 2}", "extract", "--all")
	assert.Equal(t, 0, code)
	assert.Equal(t, "[1]\n{'b': 2}\n", out)

	code, _, errs := runCLI(t, "no structure here", "extract")
	assert.Equal(t, 1, code)
	assert.Contains(t, errs, "no JSON value found")

	code, out, errs = runCLI(t, `Partial: {"a": [1, 2], "b": `, "extract")
	assert.Equal(t, 1, code)
	assert.Empty(t, out)
	assert.Contains(t, errs, "incomplete JSON value")
}

func TestParse(t *testing.T) {
	t.Run("Value", func(t *testing.T) {
		code, out, _ := runCLI(t, "Result: {'ok': True, 'n': [1, 2,],}", "parse")
		assert.Equal(t, 0, code)
		assert.JSONEq(t, `{"ok": true, "n": [1, 2]}`, out)
	})

	t.Run("Metadata", func(t *testing.T) {
		code, out, _ := runCLI(t, `{"a": 1, "a": 2}`, "parse", "--metadata")
		require.Equal(t, 0, code)
		var got struct {
			Value    map[string]int `json:"value"`
			Metadata map[string]any `json:"metadata"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, map[string]int{"a": 1}, got.Value)
		assert.Equal(t, float64(1), got.Metadata["duplicateKeyCount"])
		assert.Equal(t, "firstWins", got.Metadata["duplicateKeyPolicy"])
	})

	t.Run("All", func(t *testing.T) {
		code, out, _ := runCLI(t, "[1] and then [2]", "parse", "--all")
		assert.Equal(t, 0, code)
		assert.Equal(t, "[1]\n[2]\n", out)
	})

	t.Run("Pretty", func(t *testing.T) {
		code, out, _ := runCLI(t, `{"a": [1, 2], "b": {"c": null}}`, "--pretty", "parse")
		assert.Equal(t, 0, code)
		assert.JSONEq(t, `{"a": [1, 2], "b": {"c": null}}`, out)
		assert.Contains(t, out, "\n  \"b\": {\n")
	})

	t.Run("Error", func(t *testing.T) {
		code, _, errs := runCLI(t, `{"a": [1, 2, }`, "parse")
		assert.Equal(t, 1, code)
		assert.Contains(t, errs, "$.a[2]")

		code, out, errs := runCLI(t, `{"a": [1, 2], "b": `, "parse")
		assert.Equal(t, 1, code)
		assert.Empty(t, out)
		assert.Contains(t, errs, "$.b")
	})

	t.Run("Config", func(t *testing.T) {
		cfg := writeFile(t, "settings.yaml", "parse:\n  allow_single_quotes: false\n")
		code, _, _ := runCLI(t, `{'a': 1}`, "--config", cfg, "parse")
		assert.Equal(t, 1, code)

		code, _, _ = runCLI(t, `{'a': 1}`, "parse")
		assert.Equal(t, 0, code)

		hu := writeFile(t, "settings.hujson", `{
  // Reject single quotes.
  "parse": {"allow_single_quotes": false,},
}`)
		code, _, _ = runCLI(t, `{'a': 1}`, "--config", hu, "parse")
		assert.Equal(t, 1, code)
	})

	t.Run("InputFile", func(t *testing.T) {
		path := writeFile(t, "input.txt", "x = 1\ny = 'two'\n")
		code, out, _ := runCLI(t, "", "--input", path, "parse")
		assert.Equal(t, 0, code)
		assert.JSONEq(t, `{"x": 1, "y": "two"}`, out)
	})
}

func TestValidate(t *testing.T) {
	schemaPath := writeFile(t, "person.json", personSchema)

	code, out, _ := runCLI(t, `{"name": "Ada", "age": 36}`, "validate", "--schema", schemaPath)
	assert.Equal(t, 0, code)
	assert.JSONEq(t, `{"valid": true, "value": {"name": "Ada", "age": 36}}`, out)

	code, out, _ = runCLI(t, `{"name": "Ada", "age": 200, "x": 1}`, "validate", "-s", schemaPath)
	assert.Equal(t, 1, code)
	var report struct {
		Valid  bool
		Errors []struct{ Path, Kind string }
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.False(t, report.Valid)
	require.Len(t, report.Errors, 2)
	assert.Equal(t, "$.age", report.Errors[0].Path)
	assert.Equal(t, "range", report.Errors[0].Kind)
	assert.Equal(t, "$.x", report.Errors[1].Path)
	assert.Equal(t, "additionalProperties", report.Errors[1].Kind)

	code, out, _ = runCLI(t, `{"name": "Ada"}`, "validate", "-s", schemaPath, "--defaults")
	assert.Equal(t, 0, code)
	assert.JSONEq(t, `{"valid": true, "value": {"name": "Ada", "age": 1}}`, out)

	hu := writeFile(t, "person.hujson", `{
  // Comments and trailing commas are allowed.
  "required": ["name",],
}`)
	code, out, _ = runCLI(t, `{"age": 3}`, "validate", "-s", hu)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, `"path":"$.name"`)

	code, _, errs := runCLI(t, `{}`, "validate")
	assert.Equal(t, 2, code, "missing --schema should be a usage error")
	assert.Contains(t, errs, "--schema")
}

func TestLoadSchema(t *testing.T) {
	const text = `{
  // Names must not be empty.
  "type": "string",
  "minLength": 1,
}`
	path := writeFile(t, "name.hujson", text)
	s, err := loadSchema(path)
	require.NoError(t, err)
	assert.NoError(t, schema.Validate(ast.String("Ada"), s, ""))
	assert.Error(t, schema.Validate(ast.String(""), s, ""))

	// Without standardization the schema text is rejected.
	_, err = schema.Parse(text)
	assert.Error(t, err)

	_, err = loadSchema(writeFile(t, "bad.json", `{"type": /* open`))
	assert.ErrorContains(t, err, "bad.json")
}

func TestRepair(t *testing.T) {
	schemaPath := writeFile(t, "person.json", personSchema)

	code, out, _ := runCLI(t, `{"name": "Alice", "age": "200", "extra": true}`, "repair", "-s", schemaPath)
	assert.Equal(t, 0, code)
	var res struct {
		Valid         bool            `json:"valid"`
		FullyRepaired bool            `json:"fully_repaired"`
		Value         json.RawMessage `json:"repaired_value"`
		Suggestions   []struct {
			Path    string `json:"path"`
			Applied bool   `json:"applied"`
		} `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.False(t, res.Valid)
	assert.True(t, res.FullyRepaired)
	assert.JSONEq(t, `{"name": "Alice", "age": 120}`, string(res.Value))
	assert.Len(t, res.Suggestions, 2)

	// With coercion disabled the age cannot be repaired.
	cfg := writeFile(t, "settings.yaml", "repair:\n  coerce_types: false\n")
	code, out, _ = runCLI(t, `{"name": "Alice", "age": "200"}`, "-c", cfg, "repair", "-s", schemaPath)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, `"unfixable_errors":[{"path":"$.age"`)

	code, out, _ = runCLI(t, `{"name": `, "repair", "-s", schemaPath)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, `"parse_error":{"path":"$`)
}

func TestStream(t *testing.T) {
	t.Run("Single", func(t *testing.T) {
		code, out, _ := runCLI(t, `Here: {"a": [1, 2, 3]} and more`, "stream", "--chunk-size", "4")
		assert.Equal(t, 0, code)
		assert.Equal(t, "{\"a\":[1,2,3]}\n", out)
	})

	t.Run("Batch", func(t *testing.T) {
		code, out, _ := runCLI(t, "{\"a\": 1}\n{\"a\": 2}\n{\"a\": 3}\n", "stream", "--batch", "--chunk-size", "5")
		assert.Equal(t, 0, code)
		assert.Equal(t, "{\"a\":1}\n{\"a\":2}\n{\"a\":3}\n", out)
	})

	t.Run("Defaults", func(t *testing.T) {
		schemaPath := writeFile(t, "person.json", personSchema)
		code, out, _ := runCLI(t, "{\"name\": \"a\"}\n{\"name\": \"b\", \"age\": 7}\n", "stream", "--defaults", "-s", schemaPath)
		assert.Equal(t, 0, code)
		assert.Equal(t, "{\"name\":\"a\",\"age\":1}\n{\"name\":\"b\",\"age\":7}\n", out)
	})

	t.Run("Invalid", func(t *testing.T) {
		schemaPath := writeFile(t, "person.json", personSchema)
		code, out, errs := runCLI(t, "{\"name\": \"a\", \"age\": 1}\n{\"name\": \"b\"}\n", "stream", "--batch", "-s", schemaPath, "--chunk-size", "8")
		assert.Equal(t, 1, code)
		assert.Equal(t, "{\"name\":\"a\",\"age\":1}\n", out)
		assert.Contains(t, errs, "$[1].age")
	})

	t.Run("Limit", func(t *testing.T) {
		code, out, errs := runCLI(t, `[1, 2, 3, 4, 5]`, "stream", "--max-buffer-bytes", "8")
		assert.Equal(t, 1, code)
		assert.Empty(t, out)
		assert.Contains(t, errs, "$.stream.maxBufferBytes")
	})

	t.Run("Incomplete", func(t *testing.T) {
		code, _, errs := runCLI(t, `{"a": [1, 2`, "stream")
		assert.Equal(t, 1, code)
		assert.Contains(t, errs, "incomplete")
	})
}

func TestUsage(t *testing.T) {
	code, _, _ := runCLI(t, "", "frobnicate")
	assert.Equal(t, 2, code)

	code, out, _ := runCLI(t, "", "--help")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "repair")
}
