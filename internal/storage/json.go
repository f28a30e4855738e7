package storage

import (
	"bytes"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/saeedalam/radscribe/pkg/types"
)

// MacroSetVersion is written into exported macro files
const MacroSetVersion = "1"

// ErrInvalidMacroSet is returned when an import file does not match the macro set schema
var ErrInvalidMacroSet = errors.New("invalid macro set")

const macroSetSchemaURL = "macroset.schema.json"

//go:embed macroset.schema.json
var macroSetSchemaJSON []byte

var (
	macroSetSchemaOnce sync.Once
	macroSetSchema     *jsonschema.Schema
	macroSetSchemaErr  error
)

// ImportMode controls what happens to macros whose ID already exists
type ImportMode string

const (
	ImportSkipExisting ImportMode = "skip"
	ImportReplace      ImportMode = "replace"
)

// ImportResult reports what an import did
type ImportResult struct {
	Created  int `json:"created"`
	Replaced int `json:"replaced"`
	Skipped  int `json:"skipped"`
}

// ExportMacros writes macros to path as a JSON macro set
func ExportMacros(path string, macros []types.Macro) error {
	set := types.MacroSet{
		Version:    MacroSetVersion,
		ExportedAt: time.Now(),
		Macros:     macros,
	}
	return writeJSON(path, set)
}

// ReadMacroSet reads a JSON macro set from path and checks it against the
// macro set schema before decoding.
func ReadMacroSet(path string) (*types.MacroSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read macro set: %w", err)
	}
	if err := validateMacroSet(data); err != nil {
		return nil, err
	}

	var set types.MacroSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMacroSet, err)
	}
	if set.Macros == nil {
		set.Macros = []types.Macro{}
	}
	return &set, nil
}

func validateMacroSet(data []byte) error {
	schema, err := compiledMacroSetSchema()
	if err != nil {
		return err
	}

	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMacroSet, err)
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMacroSet, err)
	}
	return nil
}

func compiledMacroSetSchema() (*jsonschema.Schema, error) {
	macroSetSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(macroSetSchemaURL, bytes.NewReader(macroSetSchemaJSON)); err != nil {
			macroSetSchemaErr = fmt.Errorf("add macro set schema: %w", err)
			return
		}
		macroSetSchema, macroSetSchemaErr = compiler.Compile(macroSetSchemaURL)
	})
	return macroSetSchema, macroSetSchemaErr
}

// ImportMacros loads a macro set into the store in one transaction.
// Personal macros in the file are reassigned to owner.
func (s *MacroStore) ImportMacros(path, owner string, mode ImportMode) (*ImportResult, error) {
	set, err := ReadMacroSet(path)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	err = s.WithTransaction(func(tx *sql.Tx) error {
		for i := range set.Macros {
			m := set.Macros[i]
			if !m.IsGlobal {
				m.Owner = owner
			}

			if m.ID != "" {
				exists, err := macroExists(tx, m.ID)
				if err != nil {
					return err
				}
				if exists {
					if mode != ImportReplace {
						result.Skipped++
						continue
					}
					if err := deleteMacroTx(tx, m.ID); err != nil {
						return err
					}
					result.Replaced++
					if err := s.CreateTx(tx, &m); err != nil {
						return err
					}
					continue
				}
			}

			if err := s.CreateTx(tx, &m); err != nil {
				return fmt.Errorf("macro %d: %w", i, err)
			}
			result.Created++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func macroExists(q queryer, id string) (bool, error) {
	var n int
	if err := q.QueryRow(`SELECT COUNT(*) FROM macros WHERE id = ?`, id).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func deleteMacroTx(q queryer, id string) error {
	if _, err := q.Exec(`DELETE FROM macros WHERE id = ?`, id); err != nil {
		return err
	}
	_, err := q.Exec(`DELETE FROM context_expansions WHERE macro_id = ?`, id)
	return err
}

func writeJSON(path string, v any) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	// Trailing newline for clean git diffs
	data = append(data, '\n')

	// Atomic write: write to temp file then rename
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func generateID(prefix string) string {
	now := time.Now()
	short := uuid.New().String()[:8]
	return fmt.Sprintf("%s-%s-%s", prefix, now.Format("20060102"), short)
}
