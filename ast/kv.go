// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

package ast

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	kvLine   = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(.*?)\s*$`)
	kvNumber = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)
)

// parseKV interprets text as a block of key=value lines, as models sometimes
// produce in place of an object. Blank lines and lines beginning with "#" are
// skipped. Every other line must be an assignment, and at least one must be
// present. A key assigned more than once keeps its last value.
//
// Values are decoded as quoted strings, the constants true, false, and null,
// or numbers in JSON syntax; anything else, including NaN, Inf, and hex
// literals, is kept as a string.
func parseKV(text string) (Object, bool) {
	if strings.ContainsAny(text, "{[") || !strings.Contains(text, "=") {
		return nil, false
	}
	var obj Object
	for line := range strings.Lines(text) {
		t := strings.TrimSpace(line)
		if t == "" || strings.HasPrefix(t, "#") {
			continue
		}
		m := kvLine.FindStringSubmatch(strings.TrimRight(line, "\r\n"))
		if m == nil {
			return nil, false
		}
		v := kvValue(m[2])
		if i := obj.index(m[1]); i >= 0 {
			obj[i] = Field(m[1], v)
		} else {
			obj = append(obj, Field(m[1], v))
		}
	}
	return obj, len(obj) != 0
}

func kvValue(s string) Value {
	if len(s) >= 2 && (s[0] == '"' && s[len(s)-1] == '"' || s[0] == '\'' && s[len(s)-1] == '\'') {
		return String(s[1 : len(s)-1])
	}
	switch s {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	case "null":
		return Null{}
	}
	if !kvNumber.MatchString(s) {
		return String(s)
	}
	if z, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(z)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Float(f)
	}
	return String(s)
}
