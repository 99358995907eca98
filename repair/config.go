// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

package repair

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/creachadair/jsonish"
	"github.com/creachadair/jsonish/schema"
	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

// Config selects which kinds of repair ValidateWithRepair may apply. The
// zero value applies no repairs, so every error is unfixable.
type Config struct {
	// Convert a value to the declared type, e.g., "42" to 42.
	CoerceTypes bool `json:"coerce_types" yaml:"coerce_types"`

	// Fill a missing required property, or replace a null, with the default
	// declared by its schema.
	UseDefaults bool `json:"use_defaults" yaml:"use_defaults"`

	// Pull an out-of-range number to the nearest bound, or the nearest
	// multiple for multipleOf.
	ClampNumbers bool `json:"clamp_numbers" yaml:"clamp_numbers"`

	// Shorten strings and arrays to their declared maximum length.
	TruncateStrings bool `json:"truncate_strings" yaml:"truncate_strings"`
	TruncateArrays  bool `json:"truncate_arrays" yaml:"truncate_arrays"`

	// Remove properties forbidden by additionalProperties: false.
	RemoveExtraProperties bool `json:"remove_extra_properties" yaml:"remove_extra_properties"`

	// Normalize the spelling of enum and const strings, and the formatting of
	// strings with a declared format or pattern.
	FixEnums   bool `json:"fix_enums" yaml:"fix_enums"`
	FixFormats bool `json:"fix_formats" yaml:"fix_formats"`

	// If positive, at most this many suggestions are made. Errors beyond the
	// limit are reported as unfixable.
	MaxSuggestions int `json:"max_suggestions" yaml:"max_suggestions"`

	// Formats used to check the format keyword. If nil, the default formats
	// are used.
	Formats *schema.Formats `json:"-" yaml:"-"`
}

// DefaultMaxSuggestions is the suggestion limit of DefaultConfig.
const DefaultMaxSuggestions = 50

// DefaultConfig returns a Config with every repair enabled.
func DefaultConfig() Config {
	return Config{
		CoerceTypes:           true,
		UseDefaults:           true,
		ClampNumbers:          true,
		TruncateStrings:       true,
		TruncateArrays:        true,
		RemoveExtraProperties: true,
		FixEnums:              true,
		FixFormats:            true,
		MaxSuggestions:        DefaultMaxSuggestions,
	}
}

// Settings combine the grammar relaxations of the parser with the repairs of
// the validator, as used by ParseAndRepair.
type Settings struct {
	Parse  jsonish.Config `json:"parse" yaml:"parse"`
	Repair Config         `json:"repair" yaml:"repair"`
}

// DefaultSettings returns the default parse and repair configurations.
func DefaultSettings() Settings {
	return Settings{Parse: jsonish.DefaultConfig(), Repair: DefaultConfig()}
}

// ParseSettings decodes settings from YAML. Fields not mentioned in data keep
// their default values. Unknown fields are an error.
//
// For example:
//
//	parse:
//	  allow_single_quotes: false
//	  duplicate_key_policy: lastWins
//	repair:
//	  truncate_strings: false
//	  max_suggestions: 10
func ParseSettings(data []byte) (Settings, error) {
	s := DefaultSettings()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	if s.Repair.MaxSuggestions < 0 {
		return Settings{}, fmt.Errorf("invalid max_suggestions %d", s.Repair.MaxSuggestions)
	}
	return s, nil
}

// LoadSettings reads settings from the file at path. A file whose name ends
// in .json, .jsonc, or .hujson is read as JSON with comments and trailing
// commas; any other file is read as YAML.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc", ".hujson":
		// Standard JSON is also valid YAML.
		data, err = hujson.Standardize(data)
		if err != nil {
			return Settings{}, fmt.Errorf("load settings: %w", err)
		}
	}
	return ParseSettings(data)
}
