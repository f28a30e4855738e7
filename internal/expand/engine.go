// Package expand rewrites dictated text by replacing macro triggers with
// their expansion text in a single pass over the macro list.
package expand

import (
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/saeedalam/radscribe/internal/classify"
	"github.com/saeedalam/radscribe/pkg/types"
)

// Skip reasons reported in Result.Skipped
const (
	SkipEmptyName        = "empty name"
	SkipEmptyReplacement = "empty replacement text"
	SkipBadPattern       = "pattern did not compile"
)

// Applied records one macro that matched at least once
type Applied struct {
	MacroID     string `json:"macro_id,omitempty"`
	Name        string `json:"name"`
	Occurrences int    `json:"occurrences"`
	Contextual  bool   `json:"contextual"` // a context expansion replaced the default
}

// Skipped records a macro that could not take part in the pass
type Skipped struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Result is the outcome of one expansion pass
type Result struct {
	Text       string    `json:"text"`
	Operations int       `json:"operations"` // match/replace operations performed
	Applied    []Applied `json:"applied,omitempty"`
	Skipped    []Skipped `json:"skipped,omitempty"`
}

// Engine expands macros. It keeps no macro state between calls; the logger
// only reports skipped entries.
type Engine struct {
	log *zap.Logger
}

// NewEngine creates an engine. A nil logger disables logging.
func NewEngine(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{log: log}
}

// Expand rewrites text with macros, using bodyPart ("" for none) to pick
// smart-macro expansions.
func Expand(text string, macros []types.Macro, bodyPart string) string {
	return NewEngine(nil).Run(text, macros, bodyPart).Text
}

// Run performs exactly one pass over macros in list order. The list is
// used as given; filtering to active macros is the registry's job. Each macro
// rewrites every whole-word occurrence of its trigger in the text produced
// by the macros before it; there is no re-scan, so a replacement containing
// a later macro's trigger is expanded again by that later macro.
func (e *Engine) Run(text string, macros []types.Macro, bodyPart string) Result {
	result := Result{Text: text}

	for i, m := range macros {
		if reason := malformed(m); reason != "" {
			e.skip(&result, i, m, reason)
			continue
		}

		re, err := classify.WordPattern(m.Name)
		if err != nil {
			e.skip(&result, i, m, SkipBadPattern)
			continue
		}

		replacement, contextual := e.Resolve(m, bodyPart)

		result.Operations++
		count := len(re.FindAllStringIndex(result.Text, -1))
		if count == 0 {
			continue
		}
		result.Text = re.ReplaceAllLiteralString(result.Text, replacement)
		result.Applied = append(result.Applied, Applied{
			MacroID:     m.ID,
			Name:        m.Name,
			Occurrences: count,
			Contextual:  contextual,
		})
	}

	return result
}

// Resolve picks the text a macro expands to under bodyPart. The second
// return is true when a context expansion replaced the default text.
// Duplicate body parts resolve to the first entry.
func (e *Engine) Resolve(m types.Macro, bodyPart string) (string, bool) {
	if !m.IsSmartMacro || len(m.ContextExpansions) == 0 || bodyPart == "" {
		return m.ReplacementText, false
	}

	// Casers carry state, so each call gets its own
	fold := cases.Fold()
	want := fold.String(bodyPart)
	for _, ce := range m.ContextExpansions {
		if fold.String(ce.BodyPart) == want {
			return ce.Text, true
		}
	}
	return m.ReplacementText, false
}

func (e *Engine) skip(result *Result, index int, m types.Macro, reason string) {
	result.Skipped = append(result.Skipped, Skipped{Index: index, Name: m.Name, Reason: reason})
	e.log.Debug("Skipping macro",
		zap.Int("index", index),
		zap.String("name", m.Name),
		zap.String("reason", reason))
}

func malformed(m types.Macro) string {
	switch {
	case strings.TrimSpace(m.Name) == "":
		return SkipEmptyName
	case m.ReplacementText == "":
		return SkipEmptyReplacement
	}
	return ""
}
