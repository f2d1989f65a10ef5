package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/silo/internal/output"
	"github.com/Aman-CERP/silo/internal/scanner"
	"github.com/Aman-CERP/silo/internal/ui"
)

func newScanCmd() *cobra.Command {
	var (
		maxSamples int
		maxSkipped int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "scan [root...]",
		Short: "Preview what an index run would pick up",
		Long: `Walk the configured roots (or the ones given) with the current
filters and report which files would be indexed and which would be
skipped, and why. Nothing is read or stored.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			state, err := openState(ctx)
			if err != nil {
				return err
			}
			defer closeState(state)

			summary, err := state.PreviewScan(ctx, args, nil, scanner.PreviewOptions{
				MaxSamples:        maxSamples,
				MaxSkippedSamples: maxSkipped,
			})
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout(), jsonOutput)
			if out.IsJSON() {
				return out.JSON(summary)
			}

			out.Statusf("📂", "Scanned %d files in %d directories", summary.ScannedFiles, summary.ScannedDirs)
			out.KeyValue("candidates", summary.Candidates)
			out.KeyValue("skipped", summary.Skipped)
			out.Newline()

			candidates := make([]string, 0, len(summary.SampleCandidates))
			for _, c := range summary.SampleCandidates {
				candidates = append(candidates, fmt.Sprintf("%s (%s)", c.Path, ui.FormatBytes(c.Size)))
			}
			out.List("Would index:", candidates)

			skipped := make([]string, 0, len(summary.SampleSkipped))
			for _, s := range summary.SampleSkipped {
				skipped = append(skipped, fmt.Sprintf("%s: %s", s.Path, s.Reason))
			}
			out.List("Would skip:", skipped)
			return nil
		},
	}

	cmd.Flags().IntVar(&maxSamples, "max-samples", 0, "Number of sample candidates to list (0 = configured value)")
	cmd.Flags().IntVar(&maxSkipped, "max-skipped", 0, "Number of sample skips to list (0 = configured value)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the summary as JSON")

	return cmd
}
