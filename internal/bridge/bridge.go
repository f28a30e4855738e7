// Package bridge keeps the latest detections for a text buffer and passes
// the current body part to macro expansion.
package bridge

import (
	"context"
	"sync"

	"github.com/saeedalam/radscribe/internal/classify"
	"github.com/saeedalam/radscribe/internal/expand"
	"github.com/saeedalam/radscribe/internal/registry"
	"github.com/saeedalam/radscribe/pkg/types"
)

// State is the lifecycle position of a bridge
type State int

const (
	StateEmpty State = iota
	StateClassified
)

func (s State) String() string {
	switch s {
	case StateClassified:
		return "classified"
	default:
		return "empty"
	}
}

// Snapshot is the detection state after one update
type Snapshot struct {
	BodyPart   *types.DetectionResult `json:"body_part"`
	Modality   *types.DetectionResult `json:"modality"`
	AutoDetect bool                   `json:"auto_detect"`
}

// BodyPartLabel returns the detected body part or ""
func (s Snapshot) BodyPartLabel() string {
	if s.BodyPart == nil {
		return ""
	}
	return s.BodyPart.Label
}

// ModalityLabel returns the detected modality or ""
func (s Snapshot) ModalityLabel() string {
	if s.Modality == nil {
		return ""
	}
	return s.Modality.Label
}

// Bridge recomputes detections on every text change. It stores only the
// latest result and never holds macros.
type Bridge struct {
	modality *classify.Classifier
	bodyPart *classify.Classifier

	mu         sync.RWMutex
	autoDetect bool
	state      State
	latest     Snapshot
}

// New creates a bridge. Modality classification runs only while autoDetect
// is on; body-part classification always runs, so bodyPart must not be nil.
// A nil modality classifier never detects a modality.
func New(modality, bodyPart *classify.Classifier, autoDetect bool) *Bridge {
	if bodyPart == nil {
		panic("bridge: nil body-part classifier")
	}
	return &Bridge{
		modality:   modality,
		bodyPart:   bodyPart,
		autoDetect: autoDetect,
	}
}

// SetAutoDetect toggles modality classification for later updates
func (b *Bridge) SetAutoDetect(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.autoDetect = on
}

// AutoDetect reports whether modality classification is enabled
func (b *Bridge) AutoDetect() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.autoDetect
}

// Update classifies text and replaces the stored detections
func (b *Bridge) Update(text string) Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := Snapshot{
		BodyPart:   b.bodyPart.Classify(text),
		AutoDetect: b.autoDetect,
	}
	if b.autoDetect && b.modality != nil {
		snap.Modality = b.modality.Classify(text)
	}

	b.latest = snap
	b.state = StateClassified
	return snap
}

// Latest returns the detections from the most recent update
func (b *Bridge) Latest() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.latest
}

// State reports whether any text has been classified yet
func (b *Bridge) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// BodyPartContext is the value to pass to expansion: the latest body part
// label, or "" when nothing was detected.
func (b *Bridge) BodyPartContext() string {
	return b.Latest().BodyPartLabel()
}

// Modality returns the latest modality detection, nil when none
func (b *Bridge) Modality() *types.DetectionResult {
	return b.Latest().Modality
}

// Expand reads a fresh macro snapshot from src and expands text with the
// current body-part context.
func (b *Bridge) Expand(ctx context.Context, text string, src registry.Source, engine *expand.Engine) (expand.Result, error) {
	macros, err := src.ActiveMacros(ctx)
	if err != nil {
		return expand.Result{Text: text}, err
	}
	if engine == nil {
		engine = expand.NewEngine(nil)
	}
	return engine.Run(text, macros, b.BodyPartContext()), nil
}
