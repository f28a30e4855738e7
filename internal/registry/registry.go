// Package registry produces the active macro snapshot handed to the
// expansion engine.
package registry

import (
	"context"
	"fmt"

	"github.com/saeedalam/radscribe/pkg/types"
)

// Source supplies the active macros for one expansion call. Implementations
// must read fresh data on every call.
type Source interface {
	ActiveMacros(ctx context.Context) ([]types.Macro, error)
}

// Store is the part of the macro store a Registry reads
type Store interface {
	ListPersonal(owner string) ([]types.Macro, error)
	ListGlobal() ([]types.Macro, error)
}

// Registry merges one user's personal macros with the global set
type Registry struct {
	store Store
	owner string
}

// New creates a registry for owner over store
func New(store Store, owner string) *Registry {
	return &Registry{store: store, owner: owner}
}

// Owner returns the user whose personal macros are included
func (r *Registry) Owner() string {
	return r.owner
}

// ActiveMacros reads both sets from the store and merges them
func (r *Registry) ActiveMacros(ctx context.Context) ([]types.Macro, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	personal, err := r.store.ListPersonal(r.owner)
	if err != nil {
		return nil, fmt.Errorf("list personal macros: %w", err)
	}
	global, err := r.store.ListGlobal()
	if err != nil {
		return nil, fmt.Errorf("list global macros: %w", err)
	}
	return Merge(personal, global), nil
}

// Merge keeps active macros, personal ones first, each set in its own order.
// Macros sharing a name are all kept; the engine applies each in turn.
func Merge(personal, global []types.Macro) []types.Macro {
	merged := make([]types.Macro, 0, len(personal)+len(global))
	for _, m := range personal {
		if m.IsActive {
			merged = append(merged, m)
		}
	}
	for _, m := range global {
		if m.IsActive {
			merged = append(merged, m)
		}
	}
	return merged
}

// Static is a fixed macro list, filtered to active entries on each call
type Static []types.Macro

// ActiveMacros returns a copy of the active entries
func (s Static) ActiveMacros(ctx context.Context) ([]types.Macro, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Merge(s, nil), nil
}
