package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/saeedalam/radscribe/internal/config"
	"github.com/saeedalam/radscribe/internal/patterns"
	"github.com/saeedalam/radscribe/internal/storage"
	"github.com/saeedalam/radscribe/pkg/types"
)

var initForce bool
var initNoSeed bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize radscribe in current directory",
	Long: `Initialize radscribe in the current directory.

This creates a .radscribe/ directory holding the config, the editable
pattern tables and the macro database, then seeds a few global macros.

Example:
  radscribe init
  radscribe init --no-seed   # Start with an empty macro library
  radscribe init --force     # Rewrite config and patterns, keep macros`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Rewrite config.yaml and patterns.yaml if present")
	initCmd.Flags().BoolVar(&initNoSeed, "no-seed", false, "Skip the starter global macros")
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get current directory: %w", err)
	}

	seeded, err := initProject(cwd, initForce, !initNoSeed)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "radscribe initialized successfully!")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Directory structure created:")
	fmt.Fprintln(out, "  .radscribe/")
	fmt.Fprintln(out, "  ├── config.yaml      # user, auto_detect, logging")
	fmt.Fprintln(out, "  ├── patterns.yaml    # modality and body part keyword tables")
	fmt.Fprintln(out, "  └── cache/           # SQLite macro database (not git-tracked)")
	if seeded > 0 {
		fmt.Fprintf(out, "\nSeeded %d global macros. See 'radscribe macro list'.\n", seeded)
	}
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  1. Try: radscribe expand \"CT of the chest. nml\"")
	fmt.Fprintln(out, "  2. Add your own: radscribe macro add <name> <text>")
	return nil
}

// initProject creates root/.radscribe and returns how many macros were seeded
func initProject(root string, force, seed bool) (int, error) {
	dir := filepath.Join(root, ProjectDirName)
	for _, d := range []string{dir, filepath.Join(dir, "cache")} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return 0, fmt.Errorf("create %s: %w", d, err)
		}
	}

	cfgPath := filepath.Join(dir, "config.yaml")
	if force || !exists(cfgPath) {
		cfg := config.Default()
		cfg.Patterns.File = "patterns.yaml"
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return 0, err
		}
		if err := os.WriteFile(cfgPath, data, 0644); err != nil {
			return 0, err
		}
	}

	patternsPath := filepath.Join(dir, "patterns.yaml")
	if force || !exists(patternsPath) {
		if err := patterns.Save(patternsPath, patterns.Defaults()); err != nil {
			return 0, err
		}
	}

	ignorePath := filepath.Join(dir, ".gitignore")
	if !exists(ignorePath) {
		if err := os.WriteFile(ignorePath, []byte("cache/\n"), 0644); err != nil {
			return 0, err
		}
	}

	store, err := storage.NewMacroStore(dir)
	if err != nil {
		return 0, err
	}
	defer store.Close()

	if !seed {
		return 0, nil
	}
	return seedMacros(store)
}

// seedMacros adds the starter global macros that are not present yet
func seedMacros(store *storage.MacroStore) (int, error) {
	existing, err := store.ListGlobal()
	if err != nil {
		return 0, err
	}
	have := make(map[string]bool, len(existing))
	for _, m := range existing {
		have[m.Name] = true
	}

	created := 0
	for _, m := range starterMacros() {
		if have[m.Name] {
			continue
		}
		m := m
		if err := store.Create(&m); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

func starterMacros() []types.Macro {
	return []types.Macro{
		{
			Name:            "nml",
			ReplacementText: "Normal examination.",
			IsActive:        true,
			IsGlobal:        true,
			IsSmartMacro:    true,
			ContextExpansions: []types.ContextExpansion{
				{BodyPart: "Chest", Text: "The lungs are clear. No pleural effusion or pneumothorax. The cardiomediastinal silhouette is normal."},
				{BodyPart: "Head", Text: "No acute intracranial hemorrhage, mass effect or midline shift. The ventricles are normal in size."},
				{BodyPart: "Abdomen", Text: "The liver, spleen, pancreas and kidneys are unremarkable. No free fluid."},
				{BodyPart: "Spine", Text: "Normal vertebral body heights and alignment. No spinal canal stenosis."},
			},
		},
		{
			Name:            "neg",
			ReplacementText: "No acute abnormality.",
			IsActive:        true,
			IsGlobal:        true,
		},
		{
			Name:            "cf",
			ReplacementText: "Clinical correlation recommended.",
			IsActive:        true,
			IsGlobal:        true,
		},
		{
			Name:            "fu",
			ReplacementText: "Follow-up imaging recommended.",
			IsActive:        true,
			IsGlobal:        true,
		},
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
