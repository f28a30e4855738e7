package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saeedalam/radscribe/internal/storage"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show macro library and pattern statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	return withStore(func(e *env, store *storage.MacroStore) error {
		stats, err := store.GetStats()
		if err != nil {
			return fmt.Errorf("get stats: %w", err)
		}
		personal, err := store.ListPersonal(e.cfg.User)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "┌─────────────────────────────────────────────┐")
		fmt.Fprintln(out, "│            radscribe Statistics             │")
		fmt.Fprintln(out, "├─────────────────────────────────────────────┤")
		fmt.Fprintln(out, "│ Macros                                      │")
		fmt.Fprintf(out, "│   Total:             %-22d │\n", stats["macros"])
		fmt.Fprintf(out, "│   Active:            %-22d │\n", stats["active"])
		fmt.Fprintf(out, "│   Global:            %-22d │\n", stats["global"])
		fmt.Fprintf(out, "│   Yours (%-8.8s):  %-22d │\n", e.cfg.User, len(personal))
		fmt.Fprintf(out, "│   Smart:             %-22d │\n", stats["smart"])
		fmt.Fprintf(out, "│   Context entries:   %-22d │\n", stats["context_expansions"])
		fmt.Fprintln(out, "│                                             │")
		fmt.Fprintln(out, "│ Patterns                                    │")
		fmt.Fprintf(out, "│   Modalities:        %-22d │\n", len(e.tables.Modality))
		fmt.Fprintf(out, "│   Body parts:        %-22d │\n", len(e.tables.BodyPart))
		fmt.Fprintf(out, "│   Auto-detect:       %-22t │\n", e.cfg.AutoDetect)
		fmt.Fprintln(out, "└─────────────────────────────────────────────┘")
		return nil
	})
}
