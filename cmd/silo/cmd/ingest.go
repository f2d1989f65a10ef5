package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/silo/internal/output"
)

func newIngestCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "ingest <path>",
		Short: "Index a single file",
		Long: `Apply the index filters to one file and, if it is accepted, extract,
embed and store it. A rejected file reports the reason it was skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			state, err := openState(ctx)
			if err != nil {
				return err
			}
			defer closeState(state)

			stats, err := state.IngestOne(ctx, args[0])
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout(), jsonOutput)
			if out.IsJSON() {
				return out.JSON(stats)
			}
			if stats.Stored {
				out.Successf("Stored %d chunks from %s", stats.Chunks, stats.Path)
			} else {
				out.Warningf("Nothing stored for %s", stats.Path)
			}
			out.KeyValue("kind", stats.ExtractedKind)
			out.KeyValue("characters", stats.ExtractedChars)
			out.KeyValue("truncated", stats.Truncated)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the ingest stats as JSON")

	return cmd
}
