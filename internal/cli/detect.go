package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/saeedalam/radscribe/internal/bridge"
	"github.com/saeedalam/radscribe/internal/classify"
	"github.com/saeedalam/radscribe/internal/report"
	"github.com/saeedalam/radscribe/pkg/types"
)

var detectExplain bool
var detectJSON bool
var detectReportURL string

var detectCmd = &cobra.Command{
	Use:   "detect [text|-]",
	Short: "Detect modality and body part in report text",
	Long: `Classify report text against the body part table and, when
auto-detect is on, the modality table.

Text is taken from the arguments, or from stdin when none are given or
the argument is "-". Texts shorter than 10 characters are not classified.

Examples:
  radscribe detect "CT scan of the chest with contrast"
  radscribe detect --auto-detect --explain < report.txt
  radscribe detect --auto-detect --report-url https://ris.example.org/new "MRI brain"`,
	RunE: runDetect,
}

func init() {
	detectCmd.Flags().BoolVar(&detectExplain, "explain", false, "Show every scoring candidate with matched keywords")
	detectCmd.Flags().BoolVar(&detectJSON, "json", false, "Print JSON")
	detectCmd.Flags().StringVar(&detectReportURL, "report-url", "", "Report generator URL to hand the modality to (default report.base_url)")
}

type detectOutput struct {
	bridge.Snapshot
	ReportURL          string               `json:"report_url,omitempty"`
	ModalityCandidates []classify.Candidate `json:"modality_candidates,omitempty"`
	BodyPartCandidates []classify.Candidate `json:"body_part_candidates,omitempty"`
}

func runDetect(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(false)
	if err != nil {
		return err
	}
	defer e.log.Sync()

	text, err := readText(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	modality, bodyPart, err := e.classifiers()
	if err != nil {
		return err
	}

	b := bridge.New(modality, bodyPart, e.cfg.AutoDetect)
	out := detectOutput{Snapshot: b.Update(text)}

	base := detectReportURL
	if base == "" {
		base = e.cfg.Report.BaseURL
	}
	if base != "" && out.Modality != nil {
		out.ReportURL, err = report.HandoffURL(base, out.Modality)
		if err != nil {
			return err
		}
	}

	if detectExplain {
		out.BodyPartCandidates = bodyPart.Rank(text)
		if e.cfg.AutoDetect {
			out.ModalityCandidates = modality.Rank(text)
		}
	}

	if detectJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	printDetection(cmd.OutOrStdout(), out)
	return nil
}

func printDetection(w io.Writer, out detectOutput) {
	if out.AutoDetect {
		fmt.Fprintf(w, "Modality:   %s\n", formatResult(out.Modality))
	}
	fmt.Fprintf(w, "Body part:  %s\n", formatResult(out.BodyPart))
	if out.ReportURL != "" {
		fmt.Fprintf(w, "Report:     %s\n", out.ReportURL)
	}

	printCandidates(w, "Modality candidates", out.ModalityCandidates)
	printCandidates(w, "Body part candidates", out.BodyPartCandidates)
}

func formatResult(r *types.DetectionResult) string {
	if r == nil {
		return "(none)"
	}
	return fmt.Sprintf("%s (%d%%) matched: %s", r.Label, r.Confidence, strings.Join(r.MatchedKeywords, ", "))
}

func printCandidates(w io.Writer, title string, candidates []classify.Candidate) {
	if len(candidates) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, c := range candidates {
		fmt.Fprintf(w, "  %-18s score %-6.2f share %5.1f%%  %s\n",
			c.Label, c.Score, c.Share*100, strings.Join(c.MatchedKeywords, ", "))
	}
}
