package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/saeedalam/radscribe/internal/search"
	"github.com/saeedalam/radscribe/internal/storage"
	"github.com/saeedalam/radscribe/pkg/types"
)

var errNoStore = errors.New("no macro store configured")

func (s *Server) handleListMacros(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		ActiveOnly bool   `json:"active_only"`
		Scope      string `json:"scope"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, errNoStore
	}

	opts := storage.ListOptions{ActiveOnly: p.ActiveOnly}
	switch strings.ToLower(p.Scope) {
	case "", "all":
		opts.Owner = s.owner
		opts.IncludeGlobal = true
	case "personal":
		opts.Owner = s.owner
	case "global":
		opts.IncludeGlobal = true
	default:
		return nil, fmt.Errorf("unknown scope %q", p.Scope)
	}

	macros, err := s.store.List(opts)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"owner":  s.owner,
		"count":  len(macros),
		"macros": macros,
	}, nil
}

func (s *Server) handleAddMacro(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		Name              string                   `json:"name"`
		ReplacementText   string                   `json:"replacement_text"`
		Global            bool                     `json:"global"`
		Smart             bool                     `json:"smart"`
		ContextExpansions []types.ContextExpansion `json:"context_expansions"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, errNoStore
	}
	if p.Smart && len(p.ContextExpansions) == 0 {
		return nil, fmt.Errorf("smart macro %q needs at least one context expansion", p.Name)
	}

	m := &types.Macro{
		Name:              strings.TrimSpace(p.Name),
		ReplacementText:   p.ReplacementText,
		IsActive:          true,
		IsGlobal:          p.Global,
		IsSmartMacro:      p.Smart,
		ContextExpansions: p.ContextExpansions,
		Owner:             s.owner,
	}
	if err := s.store.Create(m); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"status": "created",
		"macro":  m,
	}, nil
}

func (s *Server) handleDeleteMacro(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, fmt.Errorf("id is required")
	}
	if s.store == nil {
		return nil, errNoStore
	}

	if err := s.store.Delete(p.ID); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"status": "deleted",
		"id":     p.ID,
	}, nil
}

func (s *Server) handleSetMacroActive(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		ID     string `json:"id"`
		Active *bool  `json:"active"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, fmt.Errorf("id is required")
	}
	if p.Active == nil {
		return nil, fmt.Errorf("active is required")
	}
	if s.store == nil {
		return nil, errNoStore
	}

	if err := s.store.SetActive(p.ID, *p.Active); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"status": "updated",
		"id":     p.ID,
		"active": *p.Active,
	}, nil
}

func (s *Server) handleFindMacros(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.Query) == "" {
		return nil, fmt.Errorf("query is required")
	}
	if s.store == nil {
		return nil, errNoStore
	}

	macros, err := s.store.List(storage.ListOptions{Owner: s.owner, IncludeGlobal: true})
	if err != nil {
		return nil, err
	}

	matches := search.NewIndex(macros).Find(p.Query, p.Limit)
	return map[string]interface{}{
		"query":   p.Query,
		"count":   len(matches),
		"matches": matches,
	}, nil
}
