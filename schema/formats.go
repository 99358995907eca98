// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

package schema

import (
	"maps"
	"net/netip"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// A FormatFunc reports whether a string satisfies a named format.
type FormatFunc func(string) bool

// Formats is a registry of format checks, keyed by format name. A Formats
// value is not modified after construction; With and Without return new
// registries. A nil *Formats is equivalent to DefaultFormats().
//
// Formats that have no entry in the registry are not checked.
type Formats struct {
	check map[string]FormatFunc
}

var defaultFormats = &Formats{check: map[string]FormatFunc{
	"email":     isEmail,
	"date-time": isDateTime,
	"date":      isDate,
	"time":      isTime,
	"uri":       isURI,
	"uuid":      IsUUID,
	"ipv4":      isIPv4,
	"ipv6":      isIPv6,
	"hostname":  isHostname,
}}

// DefaultFormats returns the standard registry, which checks the formats
// email, date-time, date, time, uri, uuid, ipv4, ipv6, and hostname.
func DefaultFormats() *Formats { return defaultFormats }

// With returns a copy of f in which name is checked by check.
func (f *Formats) With(name string, check FormatFunc) *Formats {
	m := maps.Clone(f.registry())
	m[strings.ToLower(name)] = check
	return &Formats{check: m}
}

// Without returns a copy of f in which the named formats are not checked.
func (f *Formats) Without(names ...string) *Formats {
	m := maps.Clone(f.registry())
	for _, name := range names {
		delete(m, strings.ToLower(name))
	}
	return &Formats{check: m}
}

// Lookup returns the check for the named format, if there is one. Format
// names are not case sensitive.
func (f *Formats) Lookup(name string) (FormatFunc, bool) {
	fn, ok := f.registry()[strings.ToLower(name)]
	return fn, ok
}

// Names returns the names of the formats in f, in lexicographic order.
func (f *Formats) Names() []string { return slices.Sorted(maps.Keys(f.registry())) }

func (f *Formats) registry() map[string]FormatFunc {
	if f == nil {
		return defaultFormats.check
	}
	return f.check
}

var (
	emailRE    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	dateTimeRE = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[Tt]\d{2}:\d{2}:\d{2}(\.\d+)?([Zz]|[+-]\d{2}:\d{2})$`)
	timeRE     = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}(\.\d+)?([Zz]|[+-]\d{2}:\d{2})$`)
	labelRE    = regexp.MustCompile(`^(?i)[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)
)

func isEmail(s string) bool { return emailRE.MatchString(s) }

func isDateTime(s string) bool {
	if !dateTimeRE.MatchString(s) {
		return false
	}
	_, err := time.Parse(time.RFC3339, strings.ToUpper(s))
	return err == nil
}

func isDate(s string) bool {
	_, err := time.Parse(time.DateOnly, s)
	return err == nil && len(s) == len(time.DateOnly)
}

func isTime(s string) bool {
	if !timeRE.MatchString(s) {
		return false
	}
	_, err := time.Parse(time.TimeOnly, s[:len(time.TimeOnly)])
	return err == nil
}

func isURI(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && !strings.ContainsAny(s, " \t\n")
}

// IsUUID reports whether s is a UUID in the canonical hyphenated form
// xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx.
func IsUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func isIPv4(s string) bool {
	a, err := netip.ParseAddr(s)
	return err == nil && a.Is4()
}

func isIPv6(s string) bool {
	a, err := netip.ParseAddr(s)
	return err == nil && a.Is6() && a.Zone() == ""
}

func isHostname(s string) bool {
	s = strings.TrimSuffix(s, ".")
	if s == "" || len(s) > 253 {
		return false
	}
	for _, label := range strings.Split(s, ".") {
		if !labelRE.MatchString(label) {
			return false
		}
	}
	return true
}
