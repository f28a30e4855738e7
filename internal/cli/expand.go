package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/saeedalam/radscribe/internal/bridge"
	"github.com/saeedalam/radscribe/internal/expand"
	"github.com/saeedalam/radscribe/internal/registry"
)

var expandContext string
var expandStats bool

var expandCmd = &cobra.Command{
	Use:   "expand [text|-]",
	Short: "Expand macros in report text",
	Long: `Expand the current user's active macros in report text.

The body part is detected from the text itself and selects smart macro
expansions. Use --context to force a body part instead.

Examples:
  radscribe expand "CT chest. nml"
  radscribe expand --context Head "nml"
  radscribe expand --stats < draft.txt`,
	RunE: runExpand,
}

func init() {
	expandCmd.Flags().StringVar(&expandContext, "context", "", "Body part to expand smart macros for")
	expandCmd.Flags().BoolVar(&expandStats, "stats", false, "Print applied and skipped macros to stderr")
}

func runExpand(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(true)
	if err != nil {
		return err
	}
	defer e.log.Sync()

	text, err := readText(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	store, err := e.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	src := registry.New(store, e.cfg.User)
	engine := expand.NewEngine(e.log)

	var res expand.Result
	bodyCtx := strings.TrimSpace(expandContext)
	if bodyCtx != "" {
		macros, err := src.ActiveMacros(contextOf(cmd))
		if err != nil {
			return err
		}
		res = engine.Run(text, macros, bodyCtx)
	} else {
		modality, bodyPart, err := e.classifiers()
		if err != nil {
			return err
		}
		b := bridge.New(modality, bodyPart, e.cfg.AutoDetect)
		bodyCtx = b.Update(text).BodyPartLabel()
		res, err = b.Expand(contextOf(cmd), text, src, engine)
		if err != nil {
			return err
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), res.Text)

	if expandStats {
		w := cmd.ErrOrStderr()
		ctxLabel := bodyCtx
		if ctxLabel == "" {
			ctxLabel = "(none)"
		}
		fmt.Fprintf(w, "Context: %s  Operations: %d  Applied: %d  Skipped: %d\n",
			ctxLabel, res.Operations, len(res.Applied), len(res.Skipped))
		for _, a := range res.Applied {
			kind := "default"
			if a.Contextual {
				kind = "context"
			}
			fmt.Fprintf(w, "  + %-12s x%d (%s)\n", a.Name, a.Occurrences, kind)
		}
		for _, s := range res.Skipped {
			fmt.Fprintf(w, "  - #%d %q: %s\n", s.Index, s.Name, s.Reason)
		}
	}
	return nil
}

// contextOf returns the command context, or Background when run outside Execute
func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
