package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/saeedalam/radscribe/internal/storage"
	"github.com/saeedalam/radscribe/pkg/types"
)

type fakeStore struct {
	personal []types.Macro
	global   []types.Macro
	err      error
	calls    int
}

func (f *fakeStore) ListPersonal(owner string) ([]types.Macro, error) {
	f.calls++
	return f.personal, f.err
}

func (f *fakeStore) ListGlobal() ([]types.Macro, error) {
	return f.global, nil
}

func m(name, text string, active bool) types.Macro {
	return types.Macro{Name: name, ReplacementText: text, IsActive: active}
}

func texts(macros []types.Macro) []string {
	var out []string
	for _, mac := range macros {
		out = append(out, mac.ReplacementText)
	}
	return out
}

// ============================================================================
// Merge
// ============================================================================

func TestMergeOrderAndFilter(t *testing.T) {
	personal := []types.Macro{m("neg", "mine", true), m("old", "retired", false), m("nml", "normal", true)}
	global := []types.Macro{m("neg", "shared", true), m("gone", "disabled", false)}

	got := texts(Merge(personal, global))
	want := []string{"mine", "normal", "shared"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Position %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestMergeEmpty(t *testing.T) {
	if merged := Merge(nil, nil); len(merged) != 0 {
		t.Errorf("Expected no macros, got %d", len(merged))
	}
}

// ============================================================================
// Registry
// ============================================================================

func TestRegistryReadsFreshEachCall(t *testing.T) {
	store := &fakeStore{personal: []types.Macro{m("neg", "v1", true)}}
	reg := New(store, "dr-lee")

	first, err := reg.ActiveMacros(context.Background())
	if err != nil {
		t.Fatalf("ActiveMacros failed: %v", err)
	}
	if first[0].ReplacementText != "v1" {
		t.Errorf("Expected v1, got %q", first[0].ReplacementText)
	}

	store.personal = []types.Macro{m("neg", "v2", true)}
	second, err := reg.ActiveMacros(context.Background())
	if err != nil {
		t.Fatalf("ActiveMacros failed: %v", err)
	}
	if second[0].ReplacementText != "v2" {
		t.Errorf("Expected v2, got %q", second[0].ReplacementText)
	}
	if store.calls != 2 {
		t.Errorf("Expected 2 store reads, got %d", store.calls)
	}
	if reg.Owner() != "dr-lee" {
		t.Errorf("Expected owner dr-lee, got %q", reg.Owner())
	}
}

func TestRegistryPropagatesErrors(t *testing.T) {
	boom := errors.New("disk gone")
	reg := New(&fakeStore{err: boom}, "dr-lee")

	if _, err := reg.ActiveMacros(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Expected store error, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := reg.ActiveMacros(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestRegistryOverMacroStore(t *testing.T) {
	store, err := storage.NewMacroStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	for _, mac := range []*types.Macro{
		{Name: "neg", ReplacementText: "global", IsGlobal: true, IsActive: true},
		{Name: "neg", ReplacementText: "personal", Owner: "dr-lee", IsActive: true},
	} {
		if err := store.Create(mac); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	deleted := &types.Macro{Name: "tmp", ReplacementText: "soon gone", Owner: "dr-lee", IsActive: true}
	if err := store.Create(deleted); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	reg := New(store, "dr-lee")
	macros, err := reg.ActiveMacros(context.Background())
	if err != nil {
		t.Fatalf("ActiveMacros failed: %v", err)
	}
	if len(macros) != 3 {
		t.Fatalf("Expected 3 macros, got %d", len(macros))
	}
	if macros[0].ReplacementText != "personal" {
		t.Errorf("Expected personal first, got %q", macros[0].ReplacementText)
	}
	if macros[2].ReplacementText != "global" {
		t.Errorf("Expected global last, got %q", macros[2].ReplacementText)
	}

	if err := store.Delete(deleted.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	macros, err = reg.ActiveMacros(context.Background())
	if err != nil {
		t.Fatalf("ActiveMacros failed: %v", err)
	}
	if len(macros) != 2 {
		t.Errorf("Expected 2 macros after delete, got %d", len(macros))
	}
}

func TestStaticSource(t *testing.T) {
	src := Static{m("neg", "negative", true), m("off", "x", false)}
	macros, err := src.ActiveMacros(context.Background())
	if err != nil {
		t.Fatalf("ActiveMacros failed: %v", err)
	}
	if len(macros) != 1 || macros[0].Name != "neg" {
		t.Errorf("Expected only the active neg macro, got %v", macros)
	}
}
