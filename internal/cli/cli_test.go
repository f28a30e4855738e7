package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saeedalam/radscribe/internal/config"
	"github.com/saeedalam/radscribe/internal/patterns"
	"github.com/saeedalam/radscribe/internal/storage"
	"github.com/saeedalam/radscribe/pkg/types"
)

// ============================================================================
// Project discovery
// ============================================================================

func TestFindProjectDirWalksUp(t *testing.T) {
	root := t.TempDir()
	projectDir := filepath.Join(root, ProjectDirName)
	nested := filepath.Join(root, "reports", "2026", "october")
	require.NoError(t, os.MkdirAll(projectDir, 0755))
	require.NoError(t, os.MkdirAll(nested, 0755))

	got, err := findProjectDir(nested)
	require.NoError(t, err)
	assert.Equal(t, projectDir, got)

	got, err = findProjectDir(root)
	require.NoError(t, err)
	assert.Equal(t, projectDir, got)
}

func TestFindProjectDirIgnoresPlainFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ProjectDirName), []byte("x"), 0644))

	_, err := findProjectDir(root)
	assert.Error(t, err)
}

func TestResolvePath(t *testing.T) {
	assert.Equal(t, "", resolvePath("/p/.radscribe", ""))
	assert.Equal(t, "/abs/t.yaml", resolvePath("/p/.radscribe", "/abs/t.yaml"))
	assert.Equal(t, filepath.Join("/p/.radscribe", "patterns.yaml"), resolvePath("/p/.radscribe", "patterns.yaml"))
	assert.Equal(t, "patterns.yaml", resolvePath("", "patterns.yaml"))
}

// ============================================================================
// Input parsing
// ============================================================================

func TestReadText(t *testing.T) {
	got, err := readText([]string{"CT", "of", "the", "chest"}, strings.NewReader("ignored"))
	require.NoError(t, err)
	assert.Equal(t, "CT of the chest", got)

	got, err = readText(nil, strings.NewReader("MRI brain\n"))
	require.NoError(t, err)
	assert.Equal(t, "MRI brain", got)

	got, err = readText([]string{"-"}, strings.NewReader("line one\nline two\n"))
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", got)
}

func TestParseContexts(t *testing.T) {
	got, err := parseContexts([]string{"Chest=The lungs are clear.", " Head =No bleed. a=b"})
	require.NoError(t, err)

	want := []types.ContextExpansion{
		{BodyPart: "Chest", Text: "The lungs are clear."},
		{BodyPart: "Head", Text: "No bleed. a=b"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseContexts mismatch (-want +got):\n%s", diff)
	}

	for _, bad := range []string{"Chest", "=text", "Chest="} {
		_, err := parseContexts([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestListOptions(t *testing.T) {
	opts, err := listOptions("", "drsmith")
	require.NoError(t, err)
	assert.Equal(t, storage.ListOptions{Owner: "drsmith", IncludeGlobal: true}, opts)

	opts, err = listOptions("Personal", "drsmith")
	require.NoError(t, err)
	assert.Equal(t, storage.ListOptions{Owner: "drsmith"}, opts)

	opts, err = listOptions("global", "drsmith")
	require.NoError(t, err)
	assert.Equal(t, storage.ListOptions{IncludeGlobal: true}, opts)

	_, err = listOptions("team", "drsmith")
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ééé...", truncate("éééééééé", 6))
}

// ============================================================================
// init
// ============================================================================

func TestInitProject(t *testing.T) {
	root := t.TempDir()

	seeded, err := initProject(root, false, true)
	require.NoError(t, err)
	assert.Equal(t, len(starterMacros()), seeded)

	dir := filepath.Join(root, ProjectDirName)
	for _, f := range []string{"config.yaml", "patterns.yaml", ".gitignore", filepath.Join("cache", "macros.db")} {
		assert.FileExists(t, filepath.Join(dir, f))
	}

	// The written tables are the built-in defaults
	tables, err := patterns.Load(filepath.Join(dir, "patterns.yaml"))
	require.NoError(t, err)
	if diff := cmp.Diff(patterns.Defaults(), tables); diff != "" {
		t.Errorf("patterns.yaml mismatch (-want +got):\n%s", diff)
	}

	// The written config loads through viper
	v := viper.New()
	config.SetDefaults(v)
	v.SetConfigFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, v.ReadInConfig())
	cfg, err := config.Load(v)
	require.NoError(t, err)
	assert.Equal(t, "patterns.yaml", cfg.Patterns.File)
	assert.False(t, cfg.AutoDetect)

	// Re-running keeps existing macros and does not seed twice
	seeded, err = initProject(root, false, true)
	require.NoError(t, err)
	assert.Equal(t, 0, seeded)

	store, err := storage.NewMacroStore(dir)
	require.NoError(t, err)
	defer store.Close()

	global, err := store.ListGlobal()
	require.NoError(t, err)
	assert.Len(t, global, len(starterMacros()))
	assert.Equal(t, "nml", global[0].Name)
	assert.True(t, global[0].IsSmartMacro)
	assert.NotEmpty(t, global[0].ContextExpansions)
}

func TestInitProjectNoSeed(t *testing.T) {
	root := t.TempDir()

	seeded, err := initProject(root, false, false)
	require.NoError(t, err)
	assert.Equal(t, 0, seeded)

	store, err := storage.NewMacroStore(filepath.Join(root, ProjectDirName))
	require.NoError(t, err)
	defer store.Close()

	all, err := store.List(storage.ListOptions{Owner: "anyone", IncludeGlobal: true})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestInitProjectKeepsEditedPatterns(t *testing.T) {
	root := t.TempDir()
	_, err := initProject(root, false, false)
	require.NoError(t, err)

	path := filepath.Join(root, ProjectDirName, "patterns.yaml")
	custom := patterns.Defaults()
	custom.BodyPart = custom.BodyPart[:1]
	require.NoError(t, patterns.Save(path, custom))

	_, err = initProject(root, false, false)
	require.NoError(t, err)
	tables, err := patterns.Load(path)
	require.NoError(t, err)
	assert.Len(t, tables.BodyPart, 1)

	_, err = initProject(root, true, false)
	require.NoError(t, err)
	tables, err = patterns.Load(path)
	require.NoError(t, err)
	assert.Len(t, tables.BodyPart, len(patterns.DefaultBodyParts()))
}

// ============================================================================
// Macro references
// ============================================================================

func TestResolveMacro(t *testing.T) {
	store, err := storage.NewMacroStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	mine := &types.Macro{Name: "neg", ReplacementText: "No acute abnormality.", IsActive: true, Owner: "drsmith"}
	require.NoError(t, store.Create(mine))
	other := &types.Macro{Name: "cf", ReplacementText: "Clinical correlation.", IsActive: true, Owner: "drjones"}
	require.NoError(t, store.Create(other))

	got, err := resolveMacro(store, "drsmith", mine.ID)
	require.NoError(t, err)
	assert.Equal(t, "neg", got.Name)

	got, err = resolveMacro(store, "drsmith", "NEG")
	require.NoError(t, err)
	assert.Equal(t, mine.ID, got.ID)

	// Another user's personal macro is not visible by name
	_, err = resolveMacro(store, "drsmith", "cf")
	assert.True(t, errors.Is(err, storage.ErrMacroNotFound))

	dup := &types.Macro{Name: "neg", ReplacementText: "Shared.", IsActive: true, IsGlobal: true}
	require.NoError(t, store.Create(dup))
	_, err = resolveMacro(store, "drsmith", "neg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "matches 2 macros")
}

// ============================================================================
// Output
// ============================================================================

func TestPrintDetection(t *testing.T) {
	var buf bytes.Buffer
	printDetection(&buf, detectOutput{})
	assert.Equal(t, "Body part:  (none)\n", buf.String())

	buf.Reset()
	out := detectOutput{ReportURL: "https://ris.example.org/new?modality=CT"}
	out.AutoDetect = true
	out.Modality = &types.DetectionResult{Label: "CT", Confidence: 99, MatchedKeywords: []string{"ct", "ct scan"}}
	out.BodyPart = &types.DetectionResult{Label: "Chest", Confidence: 99, MatchedKeywords: []string{"chest"}}
	printDetection(&buf, out)

	text := buf.String()
	assert.Contains(t, text, "Modality:   CT (99%) matched: ct, ct scan")
	assert.Contains(t, text, "Body part:  Chest (99%) matched: chest")
	assert.Contains(t, text, "Report:     https://ris.example.org/new?modality=CT")
}
