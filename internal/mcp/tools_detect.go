package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/saeedalam/radscribe/internal/bridge"
	"github.com/saeedalam/radscribe/internal/classify"
	"github.com/saeedalam/radscribe/internal/expand"
	"github.com/saeedalam/radscribe/internal/report"
	"github.com/saeedalam/radscribe/pkg/types"
)

// DetectResult is the detect tool response
type DetectResult struct {
	bridge.Snapshot
	ReportURL          string               `json:"report_url,omitempty"`
	ModalityCandidates []classify.Candidate `json:"modality_candidates,omitempty"`
	BodyPartCandidates []classify.Candidate `json:"body_part_candidates,omitempty"`
}

func (s *Server) handleDetect(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		Text    string `json:"text"`
		Explain bool   `json:"explain"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}

	snap := s.bridge.Update(p.Text)
	result := DetectResult{Snapshot: snap}

	if s.reportBaseURL != "" && snap.Modality != nil {
		u, err := report.HandoffURL(s.reportBaseURL, snap.Modality)
		if err != nil {
			return nil, err
		}
		result.ReportURL = u
	}

	if p.Explain {
		result.ModalityCandidates = s.modality.Rank(p.Text)
		result.BodyPartCandidates = s.bodyPart.Rank(p.Text)
	}
	return result, nil
}

func (s *Server) handleSetAutoDetect(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	if p.Enabled == nil {
		return nil, fmt.Errorf("enabled is required")
	}

	s.bridge.SetAutoDetect(*p.Enabled)
	return map[string]interface{}{
		"auto_detect": s.bridge.AutoDetect(),
		"context":     s.bridge.BodyPartContext(),
	}, nil
}

func (s *Server) handleGetPatterns(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return s.tables, nil
}

// ExpandResult is the expand tool response
type ExpandResult struct {
	Text       string           `json:"text"`
	Context    string           `json:"context"`
	Operations int              `json:"operations"`
	Applied    []expand.Applied `json:"applied"`
	Skipped    []expand.Skipped `json:"skipped,omitempty"`
}

func (s *Server) handleExpand(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		Text    string        `json:"text"`
		Context *string       `json:"context"`
		Detect  bool          `json:"detect"`
		Macros  []types.Macro `json:"macros"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}

	src := s.source(p.Macros)

	var (
		res     expand.Result
		bodyCtx string
	)
	if p.Context != nil {
		bodyCtx = strings.TrimSpace(*p.Context)
		macros, err := src.ActiveMacros(ctx)
		if err != nil {
			return nil, fmt.Errorf("load macros: %w", err)
		}
		res = s.engine.Run(p.Text, macros, bodyCtx)
	} else {
		if p.Detect {
			s.bridge.Update(p.Text)
		}
		bodyCtx = s.bridge.BodyPartContext()
		var err error
		res, err = s.bridge.Expand(ctx, p.Text, src, s.engine)
		if err != nil {
			return nil, fmt.Errorf("load macros: %w", err)
		}
	}

	return ExpandResult{
		Text:       res.Text,
		Context:    bodyCtx,
		Operations: res.Operations,
		Applied:    res.Applied,
		Skipped:    res.Skipped,
	}, nil
}
