package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/silo/internal/embed"
	silerrors "github.com/Aman-CERP/silo/internal/errors"
	"github.com/Aman-CERP/silo/internal/output"
	"github.com/Aman-CERP/silo/internal/preflight"
)

func newDoctorCmd() *cobra.Command {
	var (
		verbose    bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that this machine can run an index",
		Long: `Run the preflight checks: the data directory is writable and has
room, the roots are readable, pdftotext is installed and the embedding
backend answers.

Only the first three can fail. A missing pdftotext or embedder is a
warning: PDFs use the built-in parsers and search falls back to keywords.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			embedder, embedErr := embed.NewFromConfig(ctx, cfg.Embeddings)
			defer func() { _ = embedder.Close() }()

			checker := preflight.New(preflight.WithEmbedder(embedder, embedErr))
			results := checker.RunAll(ctx, preflight.Target{
				DataDir: cfg.DataDir(),
				Roots:   cfg.Roots(),
			})
			summary := checker.SummaryStatus(results)

			out := output.New(cmd.OutOrStdout(), jsonOutput)
			if out.IsJSON() {
				err = out.JSON(struct {
					Status string                  `json:"status"`
					Checks []preflight.CheckResult `json:"checks"`
				}{summary, results})
				if err != nil {
					return err
				}
			} else {
				printChecks(out, results, verbose)
				out.Newline()
				out.KeyValue("status", summary)
			}

			if checker.HasCriticalFailures(results) {
				return silerrors.ConfigError("preflight checks failed", nil).
					WithSuggestion("run 'silo doctor --verbose' for details")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show details for each check")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func printChecks(out *output.Writer, results []preflight.CheckResult, verbose bool) {
	for _, r := range results {
		switch r.Status {
		case preflight.StatusPass:
			out.Successf("%s: %s", r.Name, r.Message)
		case preflight.StatusWarn:
			out.Warningf("%s: %s", r.Name, r.Message)
		default:
			out.Error(r.Name + ": " + r.Message)
		}
		if verbose && r.Details != "" {
			out.Statusf("", "%s", r.Details)
		}
	}
}
