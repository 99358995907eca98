// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

// Program jsonish extracts, parses, validates, and repairs the JSON-like
// text produced by language models.
//
// Input is read from stdin, or from the file named by --input. Values are
// written to stdout as JSON, one per line. The exit status is 1 if the input
// could not be parsed or did not satisfy the schema.
//
// Usage:
//
//	jsonish extract [--all] < reply.txt
//	jsonish parse [--all] [--metadata] < reply.txt
//	jsonish validate --schema person.json < reply.txt
//	jsonish repair --schema person.json --config settings.yaml < reply.txt
//	jsonish stream [--batch] [--schema item.json] < items.jsonl
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/creachadair/jsonish/repair"
)

type cli struct {
	Input  string `help:"Read input from this file instead of stdin." short:"i" type:"existingfile"`
	Config string `help:"Load parse and repair settings from this YAML file." short:"c" type:"existingfile"`
	Pretty bool   `help:"Pretty-print JSON output." short:"p"`
	Debug  bool   `help:"Log diagnostics to stderr."`

	Extract  extractCmd  `cmd:"" help:"Print the JSON candidate found in the input."`
	Parse    parseCmd    `cmd:"" help:"Parse the input leniently and print the value."`
	Validate validateCmd `cmd:"" help:"Parse the input and check it against a schema."`
	Repair   repairCmd   `cmd:"" help:"Parse the input and repair it to satisfy a schema."`
	Stream   streamCmd   `cmd:"" help:"Parse values incrementally as the input arrives."`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes the command described by args, and returns the exit status.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var c cli
	exit := -1
	k, err := kong.New(&c,
		kong.Name("jsonish"),
		kong.Description("Extract, parse, validate, and repair JSON from model output."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(code int) { exit = code }),
	)
	if err != nil {
		fmt.Fprintf(stderr, "jsonish: %v\n", err)
		return 2
	}
	ctx, err := k.Parse(args)
	if exit >= 0 {
		return exit // e.g., --help
	} else if err != nil {
		fmt.Fprintf(stderr, "jsonish: %v\n", err)
		return 2
	}

	settings := repair.DefaultSettings()
	if c.Config != "" {
		settings, err = repair.LoadSettings(c.Config)
		if err != nil {
			fmt.Fprintf(stderr, "jsonish: %v\n", err)
			return 1
		}
	}
	level := slog.LevelWarn
	if c.Debug {
		level = slog.LevelDebug
	}
	e := &env{
		stdin:    stdin,
		stdout:   stdout,
		path:     c.Input,
		pretty:   c.Pretty,
		settings: settings,
		log:      slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})),
	}
	if err := ctx.Run(e); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(stderr, "jsonish: %v\n", err)
		}
		return 1
	}
	return 0
}
