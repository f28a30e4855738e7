package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/saeedalam/radscribe/internal/search"
	"github.com/saeedalam/radscribe/internal/storage"
	"github.com/saeedalam/radscribe/pkg/types"
)

var (
	macroGlobal     bool
	macroSmart      bool
	macroContexts   []string
	macroName       string
	macroText       string
	macroScope      string
	macroJSON       bool
	macroActiveOnly bool
	macroReplace    bool
	macroLimit      int
)

var macroCmd = &cobra.Command{
	Use:   "macro",
	Short: "Manage personal and global macros",
	Long: `Manage the macro library.

Personal macros belong to the configured user and are applied before global
macros. Macros are referenced by id or, when unambiguous, by name.

Examples:
  radscribe macro add neg "No acute abnormality."
  radscribe macro add nml "Normal study." --smart --ctx "Chest=The lungs are clear."
  radscribe macro list --scope global
  radscribe macro disable neg
  radscribe macro export macros.json`,
}

var macroAddCmd = &cobra.Command{
	Use:   "add <name> <text>",
	Short: "Add a macro",
	Args:  cobra.ExactArgs(2),
	RunE:  runMacroAdd,
}

var macroListCmd = &cobra.Command{
	Use:   "list",
	Short: "List macros (personal first, then global)",
	Args:  cobra.NoArgs,
	RunE:  runMacroList,
}

var macroShowCmd = &cobra.Command{
	Use:   "show <id|name>",
	Short: "Show one macro with its context expansions",
	Args:  cobra.ExactArgs(1),
	RunE:  runMacroShow,
}

var macroEditCmd = &cobra.Command{
	Use:   "edit <id|name>",
	Short: "Change a macro's name, text or context expansions",
	Args:  cobra.ExactArgs(1),
	RunE:  runMacroEdit,
}

var macroRmCmd = &cobra.Command{
	Use:     "rm <id|name>",
	Aliases: []string{"delete"},
	Short:   "Delete a macro",
	Args:    cobra.ExactArgs(1),
	RunE:    runMacroRm,
}

var macroEnableCmd = &cobra.Command{
	Use:   "enable <id|name>",
	Short: "Enable a macro",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setMacroActive(cmd, args[0], true)
	},
}

var macroDisableCmd = &cobra.Command{
	Use:   "disable <id|name>",
	Short: "Disable a macro without deleting it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setMacroActive(cmd, args[0], false)
	},
}

var macroFindCmd = &cobra.Command{
	Use:   "find <query>",
	Short: "Find macros by what they expand to",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMacroFind,
}

var macroImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import macros from a JSON export",
	Args:  cobra.ExactArgs(1),
	RunE:  runMacroImport,
}

var macroExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export macros to JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runMacroExport,
}

func init() {
	macroAddCmd.Flags().BoolVar(&macroGlobal, "global", false, "Share the macro with every user")
	macroAddCmd.Flags().BoolVar(&macroSmart, "smart", false, "Pick text by body part context")
	macroAddCmd.Flags().StringArrayVar(&macroContexts, "ctx", nil, "Context expansion as \"Body Part=text\" (repeatable)")

	macroEditCmd.Flags().StringVar(&macroName, "name", "", "New trigger name")
	macroEditCmd.Flags().StringVar(&macroText, "text", "", "New default replacement text")
	macroEditCmd.Flags().BoolVar(&macroSmart, "smart", false, "Pick text by body part context")
	macroEditCmd.Flags().StringArrayVar(&macroContexts, "ctx", nil, "Replace context expansions with \"Body Part=text\" entries (repeatable)")

	macroListCmd.Flags().StringVar(&macroScope, "scope", "all", "all, personal or global")
	macroListCmd.Flags().BoolVar(&macroActiveOnly, "active", false, "Only show active macros")
	macroListCmd.Flags().BoolVar(&macroJSON, "json", false, "Print JSON")
	macroShowCmd.Flags().BoolVar(&macroJSON, "json", false, "Print JSON")

	macroFindCmd.Flags().IntVarP(&macroLimit, "limit", "n", search.DefaultLimit, "Max results")

	macroImportCmd.Flags().BoolVar(&macroReplace, "replace", false, "Overwrite macros whose id already exists")
	macroExportCmd.Flags().StringVar(&macroScope, "scope", "all", "all, personal or global")

	macroCmd.AddCommand(macroAddCmd)
	macroCmd.AddCommand(macroListCmd)
	macroCmd.AddCommand(macroShowCmd)
	macroCmd.AddCommand(macroEditCmd)
	macroCmd.AddCommand(macroRmCmd)
	macroCmd.AddCommand(macroEnableCmd)
	macroCmd.AddCommand(macroDisableCmd)
	macroCmd.AddCommand(macroFindCmd)
	macroCmd.AddCommand(macroImportCmd)
	macroCmd.AddCommand(macroExportCmd)
}

// withStore loads the environment and opens the macro store for fn
func withStore(fn func(e *env, store *storage.MacroStore) error) error {
	e, err := loadEnv(true)
	if err != nil {
		return err
	}
	defer e.log.Sync()

	store, err := e.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(e, store)
}

func runMacroAdd(cmd *cobra.Command, args []string) error {
	expansions, err := parseContexts(macroContexts)
	if err != nil {
		return err
	}
	if len(expansions) > 0 {
		macroSmart = true
	}
	if macroSmart && len(expansions) == 0 {
		return fmt.Errorf("smart macro %q needs at least one --ctx", args[0])
	}

	return withStore(func(e *env, store *storage.MacroStore) error {
		m := &types.Macro{
			Name:              strings.TrimSpace(args[0]),
			ReplacementText:   args[1],
			IsActive:          true,
			IsGlobal:          macroGlobal,
			IsSmartMacro:      macroSmart,
			ContextExpansions: expansions,
			Owner:             e.cfg.User,
		}
		if err := store.Create(m); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created macro %s (%s)\n", m.Name, m.ID)
		return nil
	})
}

func runMacroList(cmd *cobra.Command, args []string) error {
	return withStore(func(e *env, store *storage.MacroStore) error {
		opts, err := listOptions(macroScope, e.cfg.User)
		if err != nil {
			return err
		}
		opts.ActiveOnly = macroActiveOnly

		macros, err := store.List(opts)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if macroJSON {
			return writeIndentedJSON(out, macros)
		}
		if len(macros) == 0 {
			fmt.Fprintln(out, "No macros. Add one with 'radscribe macro add <name> <text>'.")
			return nil
		}

		fmt.Fprintf(out, "%-14s %-8s %-7s %-6s %s\n", "NAME", "SCOPE", "STATUS", "SMART", "TEXT")
		for _, m := range macros {
			fmt.Fprintf(out, "%-14s %-8s %-7s %-6s %s\n",
				m.Name, scopeOf(m), statusOf(m), yesNo(m.IsSmartMacro), truncate(m.ReplacementText, 60))
		}
		return nil
	})
}

func runMacroShow(cmd *cobra.Command, args []string) error {
	return withStore(func(e *env, store *storage.MacroStore) error {
		m, err := resolveMacro(store, e.cfg.User, args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if macroJSON {
			return writeIndentedJSON(out, m)
		}

		fmt.Fprintf(out, "ID:       %s\n", m.ID)
		fmt.Fprintf(out, "Name:     %s\n", m.Name)
		fmt.Fprintf(out, "Scope:    %s\n", scopeOf(*m))
		fmt.Fprintf(out, "Status:   %s\n", statusOf(*m))
		fmt.Fprintf(out, "Text:     %s\n", m.ReplacementText)
		if m.IsSmartMacro {
			fmt.Fprintln(out, "Contexts:")
			for _, ce := range m.ContextExpansions {
				fmt.Fprintf(out, "  %-16s %s\n", ce.BodyPart, ce.Text)
			}
		}
		return nil
	})
}

func runMacroEdit(cmd *cobra.Command, args []string) error {
	expansions, err := parseContexts(macroContexts)
	if err != nil {
		return err
	}

	return withStore(func(e *env, store *storage.MacroStore) error {
		m, err := resolveMacro(store, e.cfg.User, args[0])
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("name") {
			m.Name = strings.TrimSpace(macroName)
		}
		if flags.Changed("text") {
			m.ReplacementText = macroText
		}
		if flags.Changed("ctx") {
			m.ContextExpansions = expansions
			m.IsSmartMacro = len(expansions) > 0
		}
		if flags.Changed("smart") {
			m.IsSmartMacro = macroSmart
		}

		if err := store.Update(m); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated macro %s (%s)\n", m.Name, m.ID)
		return nil
	})
}

func runMacroRm(cmd *cobra.Command, args []string) error {
	return withStore(func(e *env, store *storage.MacroStore) error {
		m, err := resolveMacro(store, e.cfg.User, args[0])
		if err != nil {
			return err
		}
		if err := store.Delete(m.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted macro %s (%s)\n", m.Name, m.ID)
		return nil
	})
}

func setMacroActive(cmd *cobra.Command, ref string, active bool) error {
	return withStore(func(e *env, store *storage.MacroStore) error {
		m, err := resolveMacro(store, e.cfg.User, ref)
		if err != nil {
			return err
		}
		if err := store.SetActive(m.ID, active); err != nil {
			return err
		}
		verb := "Disabled"
		if active {
			verb = "Enabled"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s macro %s (%s)\n", verb, m.Name, m.ID)
		return nil
	})
}

func runMacroFind(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	return withStore(func(e *env, store *storage.MacroStore) error {
		macros, err := store.List(storage.ListOptions{Owner: e.cfg.User, IncludeGlobal: true})
		if err != nil {
			return err
		}

		matches := search.NewIndex(macros).Find(query, macroLimit)
		out := cmd.OutOrStdout()
		if len(matches) == 0 {
			fmt.Fprintf(out, "No macros match %q.\n", query)
			return nil
		}
		for _, m := range matches {
			fmt.Fprintf(out, "%5.2f  %-14s %-8s %s\n",
				m.Score, m.Macro.Name, scopeOf(m.Macro), truncate(m.Macro.ReplacementText, 60))
		}
		return nil
	})
}

func runMacroImport(cmd *cobra.Command, args []string) error {
	mode := storage.ImportSkipExisting
	if macroReplace {
		mode = storage.ImportReplace
	}

	return withStore(func(e *env, store *storage.MacroStore) error {
		res, err := store.ImportMacros(args[0], e.cfg.User, mode)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %s: %d created, %d replaced, %d skipped\n",
			args[0], res.Created, res.Replaced, res.Skipped)
		return nil
	})
}

func runMacroExport(cmd *cobra.Command, args []string) error {
	return withStore(func(e *env, store *storage.MacroStore) error {
		opts, err := listOptions(macroScope, e.cfg.User)
		if err != nil {
			return err
		}
		macros, err := store.List(opts)
		if err != nil {
			return err
		}
		if err := storage.ExportMacros(args[0], macros); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d macros to %s\n", len(macros), args[0])
		return nil
	})
}

// resolveMacro finds a macro by id, falling back to a unique name match
func resolveMacro(store *storage.MacroStore, owner, ref string) (*types.Macro, error) {
	m, err := store.Get(ref)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, storage.ErrMacroNotFound) {
		return nil, err
	}

	found, err := store.FindByName(owner, ref)
	if err != nil {
		return nil, err
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", storage.ErrMacroNotFound, ref)
	case 1:
		return &found[0], nil
	default:
		ids := make([]string, len(found))
		for i, f := range found {
			ids[i] = f.ID
		}
		return nil, fmt.Errorf("%q matches %d macros, use an id: %s", ref, len(found), strings.Join(ids, ", "))
	}
}

// parseContexts turns "Body Part=text" flags into context expansions
func parseContexts(values []string) ([]types.ContextExpansion, error) {
	var out []types.ContextExpansion
	for _, v := range values {
		part, text, ok := strings.Cut(v, "=")
		part = strings.TrimSpace(part)
		if !ok || part == "" || text == "" {
			return nil, fmt.Errorf("invalid --ctx %q, want \"Body Part=text\"", v)
		}
		out = append(out, types.ContextExpansion{BodyPart: part, Text: text})
	}
	return out, nil
}

func listOptions(scope, owner string) (storage.ListOptions, error) {
	switch strings.ToLower(scope) {
	case "", "all":
		return storage.ListOptions{Owner: owner, IncludeGlobal: true}, nil
	case "personal":
		return storage.ListOptions{Owner: owner}, nil
	case "global":
		return storage.ListOptions{IncludeGlobal: true}, nil
	default:
		return storage.ListOptions{}, fmt.Errorf("unknown scope %q (want all, personal or global)", scope)
	}
}

func scopeOf(m types.Macro) string {
	if m.IsGlobal {
		return "global"
	}
	return "personal"
}

func statusOf(m types.Macro) string {
	if m.IsActive {
		return "active"
	}
	return "off"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func writeIndentedJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
