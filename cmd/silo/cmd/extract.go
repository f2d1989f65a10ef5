package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/silo/internal/output"
)

func newExtractCmd() *cobra.Command {
	var (
		maxChars   int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "extract <path>",
		Short: "Show how a file is converted to text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			state, err := openState(ctx)
			if err != nil {
				return err
			}
			defer closeState(state)

			p, err := state.ExtractPreview(ctx, args[0], maxChars)
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout(), jsonOutput)
			if out.IsJSON() {
				return out.JSON(p)
			}
			out.Statusf("📄", "%s", p.Path)
			out.KeyValue("kind", p.Kind)
			out.KeyValue("characters", p.TextLen)
			out.KeyValue("truncated", p.Truncated)
			out.Code(p.Preview)
			return nil
		},
	}

	cmd.Flags().IntVar(&maxChars, "max-chars", 0, "Preview length in characters (0 = configured value)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the preview as JSON")

	return cmd
}
