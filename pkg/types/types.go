package types

import "time"

// =============================================================================
// DETECTION TYPES
// =============================================================================

// KeywordGroup is one weighted category in a pattern table (a modality or a
// body part). Groups are configuration, loaded once and never mutated.
type KeywordGroup struct {
	Label    string   `json:"label" yaml:"label" toml:"label"`
	Keywords []string `json:"keywords" yaml:"keywords" toml:"keywords"`
	Weight   float64  `json:"weight" yaml:"weight" toml:"weight"`
}

// DetectionResult is the winning group for a piece of text
type DetectionResult struct {
	Label           string   `json:"label"`
	Confidence      int      `json:"confidence"` // 0..99, never 100
	MatchedKeywords []string `json:"matchedKeywords"`
}

// PatternTables holds both ordered group sets the engine classifies against
type PatternTables struct {
	Modality []KeywordGroup `json:"modality" yaml:"modality" toml:"modality"`
	BodyPart []KeywordGroup `json:"body_part" yaml:"body_part" toml:"body_part"`
}

// =============================================================================
// MACRO TYPES
// =============================================================================

// Macro is a trigger word that expands into longer dictated text
type Macro struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	ReplacementText   string             `json:"replacementText"`
	IsActive          bool               `json:"isActive"`
	IsGlobal          bool               `json:"isGlobal"`
	IsSmartMacro      bool               `json:"isSmartMacro"`
	ContextExpansions []ContextExpansion `json:"contextExpansions,omitempty"`
	Owner             string             `json:"owner,omitempty"` // empty for global macros
	CreatedAt         time.Time          `json:"createdAt,omitempty"`
	UpdatedAt         time.Time          `json:"updatedAt,omitempty"`
}

// ContextExpansion is the body-part specific text of a smart macro
type ContextExpansion struct {
	BodyPart string `json:"bodyPart"`
	Text     string `json:"text"`
}

// MacroSet is the on-disk format for macro import/export
type MacroSet struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Macros     []Macro   `json:"macros"`
}
