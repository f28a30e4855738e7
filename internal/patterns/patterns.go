// Package patterns owns the weighted keyword tables used for modality and
// body-part detection: the built-in defaults, file loading and validation.
package patterns

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/saeedalam/radscribe/pkg/types"
)

// ErrInvalidGroup is returned when a keyword group breaks a table invariant
var ErrInvalidGroup = errors.New("invalid keyword group")

// Format is an on-disk encoding for pattern tables
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// labelSeparators may not appear in a label; labels are handed to
// downstream consumers as plain query values.
const labelSeparators = "&=?#/;,"

// FormatFromPath infers the encoding from a file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported pattern file extension %q", filepath.Ext(path))
	}
}

// Load reads pattern tables from path. A section missing from the file
// falls back to the built-in defaults. An empty path returns the defaults.
func Load(path string) (types.PatternTables, error) {
	if path == "" {
		return Defaults(), nil
	}

	format, err := FormatFromPath(path)
	if err != nil {
		return types.PatternTables{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return types.PatternTables{}, fmt.Errorf("read pattern file: %w", err)
	}

	tables, err := Decode(data, format)
	if err != nil {
		return types.PatternTables{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return tables, nil
}

// Decode parses and validates tables in the given format
func Decode(data []byte, format Format) (types.PatternTables, error) {
	var tables types.PatternTables

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &tables); err != nil {
			return tables, err
		}
	case FormatTOML:
		if _, err := toml.Decode(string(data), &tables); err != nil {
			return tables, err
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &tables); err != nil {
			return tables, err
		}
	default:
		return tables, fmt.Errorf("unsupported pattern format %q", format)
	}

	if len(tables.Modality) == 0 {
		tables.Modality = DefaultModalities()
	}
	if len(tables.BodyPart) == 0 {
		tables.BodyPart = DefaultBodyParts()
	}

	if err := Validate(tables.Modality); err != nil {
		return tables, fmt.Errorf("modality: %w", err)
	}
	if err := Validate(tables.BodyPart); err != nil {
		return tables, fmt.Errorf("body_part: %w", err)
	}
	return tables, nil
}

// Encode writes tables in the given format
func Encode(w io.Writer, tables types.PatternTables, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(tables); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOML:
		return toml.NewEncoder(w).Encode(tables)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tables)
	default:
		return fmt.Errorf("unsupported pattern format %q", format)
	}
}

// Save writes tables to path, choosing the format from its extension
func Save(path string, tables types.PatternTables) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := Encode(&buf, tables, format); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// Validate checks every group of one table loaded from configuration.
//
// On top of ValidateGroup, labels must be plain and unique within the table
// since they are shown to users and handed off downstream.
func Validate(groups []types.KeywordGroup) error {
	if len(groups) == 0 {
		return fmt.Errorf("%w: table is empty", ErrInvalidGroup)
	}

	seen := make(map[string]bool, len(groups))
	for i, g := range groups {
		if err := ValidateLabel(g.Label); err != nil {
			return fmt.Errorf("group %d: %w", i, err)
		}
		key := strings.ToLower(g.Label)
		if seen[key] {
			return fmt.Errorf("%w: duplicate label %q", ErrInvalidGroup, g.Label)
		}
		seen[key] = true

		if err := ValidateGroup(g); err != nil {
			return err
		}
	}
	return nil
}

// ValidateGroup checks the invariants the classifier relies on: at least one
// non-blank keyword and a positive weight. The label is not inspected.
func ValidateGroup(g types.KeywordGroup) error {
	if len(g.Keywords) == 0 {
		return fmt.Errorf("%w: %q has no keywords", ErrInvalidGroup, g.Label)
	}
	for _, kw := range g.Keywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("%w: %q has a blank keyword", ErrInvalidGroup, g.Label)
		}
	}
	if !(g.Weight > 0) {
		return fmt.Errorf("%w: %q weight must be positive, got %v", ErrInvalidGroup, g.Label, g.Weight)
	}
	return nil
}

// ValidateLabel rejects labels that are empty or carry separator or
// control characters.
func ValidateLabel(label string) error {
	if strings.TrimSpace(label) == "" {
		return fmt.Errorf("%w: empty label", ErrInvalidGroup)
	}
	if strings.ContainsAny(label, labelSeparators) {
		return fmt.Errorf("%w: label %q contains a separator", ErrInvalidGroup, label)
	}
	for _, r := range label {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: label %q contains a control character", ErrInvalidGroup, label)
		}
	}
	return nil
}
