package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saeedalam/radscribe/internal/patterns"
)

var patternsFormat string
var patternsCheck string

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Print or check the keyword pattern tables",
	Long: `Print the active modality and body part tables.

The tables come from patterns.file in config.yaml, or the built-in defaults.
Output can be redirected to start a custom table file.

Examples:
  radscribe patterns
  radscribe patterns --format toml > patterns.toml
  radscribe patterns --check my-patterns.yaml`,
	Args: cobra.NoArgs,
	RunE: runPatterns,
}

func init() {
	patternsCmd.Flags().StringVar(&patternsFormat, "format", "yaml", "yaml, toml or json")
	patternsCmd.Flags().StringVar(&patternsCheck, "check", "", "Validate a pattern file instead of printing")
}

func runPatterns(cmd *cobra.Command, args []string) error {
	if patternsCheck != "" {
		tables, err := patterns.Load(patternsCheck)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d modalities, %d body parts, OK\n",
			patternsCheck, len(tables.Modality), len(tables.BodyPart))
		return nil
	}

	e, err := loadEnv(false)
	if err != nil {
		return err
	}
	defer e.log.Sync()

	return patterns.Encode(cmd.OutOrStdout(), e.tables, patterns.Format(patternsFormat))
}
