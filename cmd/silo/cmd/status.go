package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/silo/internal/silo"
	"github.com/Aman-CERP/silo/internal/ui"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index health",
		Long: `Show what the index holds, which embedder is active and whether
another process is indexing right now.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			state, err := openState(ctx)
			if err != nil {
				return err
			}
			defer closeState(state)

			info := statusInfo(state.Status(ctx))
			r := ui.NewStatusRenderer(cmd.OutOrStdout(), ui.DetectNoColor() || !ui.IsTTY(cmd.OutOrStdout()))
			if jsonOutput {
				return r.RenderJSON(info)
			}
			return r.Render(info)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output status as JSON")

	return cmd
}

// statusInfo flattens a status report for the terminal renderer.
func statusInfo(st silo.Status) ui.StatusInfo {
	return ui.StatusInfo{
		ConfigPath:        st.ConfigPath,
		DataDir:           st.DataDir,
		StoreEnabled:      st.Store.Enabled,
		StoreReason:       st.Store.DisabledReason,
		Files:             st.Store.Files,
		Chunks:            st.Store.Chunks,
		GraphNodes:        st.Store.GraphNodes,
		Orphans:           st.Store.Orphans,
		DBSize:            st.DBSize,
		EmbedderProvider:  string(st.Embedder.Provider),
		EmbedderModel:     st.Embedder.Model,
		EmbedderDims:      st.Embedder.Dimensions,
		EmbedderAvailable: st.Embedder.Available,
		EmbedderDegraded:  st.EmbedderDegraded,
		IndexLockHeld:     st.IndexLockHeld,
		Indexing:          st.Indexing,
	}
}
