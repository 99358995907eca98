// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

package main

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/creachadair/jsonish"
	"github.com/creachadair/jsonish/ast"
	"github.com/creachadair/jsonish/repair"
	"github.com/creachadair/jsonish/schema"
	"github.com/creachadair/jsonish/stream"
	"github.com/tailscale/hujson"
)

// errFailed reports a failure whose details were already written.
var errFailed = errors.New("failed")

// env carries the settings shared by all the subcommands.
type env struct {
	stdin    io.Reader
	stdout   io.Writer
	path     string // input file, or "" for stdin
	pretty   bool
	settings repair.Settings
	log      *slog.Logger
}

func (e *env) open() (io.ReadCloser, error) {
	if e.path == "" {
		return io.NopCloser(e.stdin), nil
	}
	return os.Open(e.path)
}

func (e *env) input() (string, error) {
	r, err := e.open()
	if err != nil {
		return "", err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}

// loadSchema reads a schema from the file at path. The file may use HuJSON
// syntax, with comments and trailing commas.
func loadSchema(path string) (*schema.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data, err = hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	s, err := schema.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	return s, nil
}

// emit writes v to stdout as a line of JSON.
func (e *env) emit(v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if e.pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return err
	}
	_, err := e.stdout.Write(buf.Bytes())
	return err
}

type extractCmd struct {
	All bool `help:"Print every candidate, one per line."`
}

func (c *extractCmd) Run(e *env) error {
	text, err := e.input()
	if err != nil {
		return err
	}
	if c.All {
		cs := jsonish.ExtractCandidates(text)
		if len(cs) == 0 {
			_, err := jsonish.ExtractCandidate(text)
			return cmp.Or(err, jsonish.ErrNotFound)
		}
		for _, cand := range cs {
			fmt.Fprintln(e.stdout, cand.Text)
		}
		return nil
	}
	cand, err := jsonish.ExtractCandidate(text)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, cand.Text)
	return nil
}

type parseCmd struct {
	All      bool `help:"Parse every candidate in the input."`
	Metadata bool `help:"Report the relaxations applied by the parser."`
}

type parseReport struct {
	Value    ast.Value        `json:"value"`
	Metadata jsonish.Metadata `json:"metadata"`
}

func (c *parseCmd) Run(e *env) error {
	text, err := e.input()
	if err != nil {
		return err
	}
	var docs []*ast.Document
	if c.All {
		docs, err = ast.ParseAll(text, e.settings.Parse)
	} else {
		var doc *ast.Document
		doc, err = ast.ParseDocument(text, e.settings.Parse)
		if doc != nil {
			docs = append(docs, doc)
		}
	}
	for _, doc := range docs {
		var v any = doc.Value
		if c.Metadata {
			v = parseReport{Value: doc.Value, Metadata: doc.Metadata}
		}
		if err := e.emit(v); err != nil {
			return err
		}
	}
	return err
}

type validateCmd struct {
	Schema   string `help:"The JSON schema to check against." short:"s" required:"" type:"existingfile"`
	Defaults bool   `help:"Fill missing properties with their schema defaults before checking."`
}

type validateReport struct {
	Valid  bool                      `json:"valid"`
	Value  ast.Value                 `json:"value,omitempty"`
	Errors []*schema.ValidationError `json:"errors,omitempty"`
}

func (c *validateCmd) Run(e *env) error {
	s, err := loadSchema(c.Schema)
	if err != nil {
		return err
	}
	text, err := e.input()
	if err != nil {
		return err
	}
	doc, err := ast.ParseDocument(text, e.settings.Parse)
	if err != nil {
		return err
	}
	var vd schema.Validator
	v, errs := doc.Value, []*schema.ValidationError(nil)
	if c.Defaults {
		v, errs = vd.ValidateWithDefaults(v, s, "")
	} else {
		errs = vd.ValidateAll(v, s, "")
	}
	if len(errs) != 0 {
		if err := e.emit(validateReport{Errors: errs}); err != nil {
			return err
		}
		return errFailed
	}
	return e.emit(validateReport{Valid: true, Value: v})
}

type repairCmd struct {
	Schema string `help:"The JSON schema to repair toward." short:"s" required:"" type:"existingfile"`
}

func (c *repairCmd) Run(e *env) error {
	s, err := loadSchema(c.Schema)
	if err != nil {
		return err
	}
	text, err := e.input()
	if err != nil {
		return err
	}
	res := repair.ParseAndRepair(text, s, e.settings.Repair, e.settings.Parse)
	if err := e.emit(res); err != nil {
		return err
	}
	if res.Err() != nil {
		return errFailed
	}
	return nil
}

type streamCmd struct {
	Schema         string `help:"Check each value against this JSON schema." short:"s" type:"existingfile"`
	Batch          bool   `help:"Report every value as it completes, rather than only the first."`
	Defaults       bool   `help:"Fill missing properties with their schema defaults (implies --batch)."`
	ChunkSize      int    `help:"Read the input in chunks of this many bytes." default:"4096"`
	MaxBufferBytes int    `help:"Fail if more than this many bytes are pending (0 means no limit)."`
	MaxItems       int    `help:"Fail if more than this many values are reported (0 means no limit)."`
}

// A feeder is the input side of a stream session.
type feeder interface {
	Append(string) error
	Close()
}

func (c *streamCmd) Run(e *env) error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("invalid chunk size %d", c.ChunkSize)
	}
	var s *schema.Schema
	if c.Schema != "" {
		var err error
		if s, err = loadSchema(c.Schema); err != nil {
			return err
		}
	}
	r, err := e.open()
	if err != nil {
		return err
	}
	defer r.Close()

	opts := &stream.Options{
		MaxBufferBytes: c.MaxBufferBytes,
		MaxItems:       c.MaxItems,
		Parse:          &e.settings.Parse,
		Logger:         e.log,
	}
	if c.Batch || c.Defaults {
		b := stream.NewBatchCollector(s, opts)
		if c.Defaults {
			b = stream.NewValidatedBatchCollector(s, opts)
		}
		return c.feed(r, b, func() (bool, error) {
			out := b.Poll()
			for _, v := range out.Value {
				if err := e.emit(v); err != nil {
					return true, err
				}
			}
			return out.Done, out.Err
		})
	}
	p := stream.NewParser(s, opts)
	return c.feed(r, p, func() (bool, error) {
		out := p.Poll()
		if !out.Done {
			return false, nil
		} else if !out.OK {
			return true, out.Err
		}
		return true, e.emit(out.Value)
	})
}

// feed copies r to sess in chunks, calling poll after each chunk until it
// reports done or an error. At the end of the input it closes sess, and
// polls until done.
func (c *streamCmd) feed(r io.Reader, sess feeder, poll func() (bool, error)) error {
	buf := make([]byte, c.ChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			sess.Append(string(buf[:n])) // a failure is reported by poll
			if done, err := poll(); done || err != nil {
				return err
			}
		}
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
	}
	sess.Close()
	for {
		if done, err := poll(); done || err != nil {
			return err
		}
	}
}
