package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/silo/internal/output"
	"github.com/Aman-CERP/silo/internal/silo"
)

type searchOptions struct {
	topK       int
	jsonOutput bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the knowledge base",
		Long: `Search the indexed documents.

Uses vector search when the embedder is available and falls back to
keyword search otherwise.

Examples:
  silo search "tide pool field notes"
  silo search quarterly budget -k 3
  silo search "reading list" --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.topK, "top-k", "k", silo.DefaultTopK, "Maximum number of results")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	state, err := openState(ctx)
	if err != nil {
		return err
	}
	defer closeState(state)

	res, err := state.Search(ctx, query, opts.topK)
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout(), opts.jsonOutput)
	if out.IsJSON() {
		return out.JSON(res)
	}

	if len(res.Hits) == 0 {
		out.Statusf("🔍", "No results for %q (%s search)", res.Query, res.Mode)
		return nil
	}
	out.Statusf("🔍", "%d results for %q (%s search)", len(res.Hits), res.Query, res.Mode)
	out.Newline()
	for i, h := range res.Hits {
		out.Hit(i+1, h.Path, h.ChunkIndex, h.Score, h.ContentPreview)
	}
	return nil
}
