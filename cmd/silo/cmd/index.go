package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/silo/internal/embed"
	"github.com/Aman-CERP/silo/internal/output"
	"github.com/Aman-CERP/silo/internal/profiling"
	"github.com/Aman-CERP/silo/internal/silo"
	"github.com/Aman-CERP/silo/internal/ui"
)

type indexOptions struct {
	reset       bool
	maxFiles    int
	concurrency int
	noTUI       bool
	jsonOutput  bool
	profile     profiling.Options
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index [root...]",
		Short: "Index the configured roots",
		Long: `Walk the configured roots (or the ones given), extract the text of
every accepted file, embed it and store the chunks.

A file that is ingested again replaces its previous chunks. Use
--reset to drop the index first, for example after switching embedding
models.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runIndex(ctx, cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.reset, "reset", false, "Clear the index before running")
	cmd.Flags().IntVar(&opts.maxFiles, "max-files", 0, "Stop after dispatching this many files (0 = configured limit)")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "Number of ingestion workers (0 = configured value)")
	cmd.Flags().BoolVar(&opts.noTUI, "no-tui", false, "Disable TUI mode, use plain text output")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the run summary as JSON")
	cmd.Flags().StringVar(&opts.profile.CPUPath, "cpu-profile", "", "Write a CPU profile to this file")
	cmd.Flags().StringVar(&opts.profile.HeapPath, "mem-profile", "", "Write a heap profile to this file when the run ends")
	cmd.Flags().StringVar(&opts.profile.TracePath, "trace", "", "Write an execution trace to this file")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, roots []string, opts indexOptions) error {
	if opts.profile.Enabled() {
		prof, err := profiling.Start(opts.profile)
		if err != nil {
			return err
		}
		defer func() {
			if err := prof.Stop(); err != nil {
				slog.Warn("profile_write_failed", slog.String("error", err.Error()))
			}
		}()
	}

	state, err := openState(ctx, silo.WithReset(opts.reset))
	if err != nil {
		return err
	}
	defer closeState(state)

	out := output.New(cmd.OutOrStdout(), opts.jsonOutput)
	runOpts := silo.IndexOptions{
		MaxFiles:    opts.maxFiles,
		Concurrency: opts.concurrency,
	}

	if opts.jsonOutput {
		summary, err := state.Index(ctx, roots, runOpts)
		if err != nil {
			return err
		}
		return out.JSON(summary)
	}

	shown := roots
	if len(shown) == 0 {
		shown = state.Config().Roots()
	}
	uiCfg := ui.NewConfig(cmd.OutOrStdout(),
		ui.WithForcePlain(opts.noTUI),
		ui.WithNoColor(ui.DetectNoColor()),
		ui.WithSubtitle(strings.Join(shown, ", ")))
	renderer := ui.NewRenderer(uiCfg)
	if err := renderer.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = renderer.Stop() }()

	renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageScanning, Message: "walking roots..."})

	reporter := ui.NewReporter(renderer)
	runOpts.Reporter = reporter

	start := time.Now()
	summary, err := state.Index(ctx, roots, runOpts)
	if err != nil {
		return err
	}

	info := embed.GetInfo(ctx, state.Embedder())
	stats := ui.StatsFromSummary(summary)
	stats.Duration = time.Since(start)
	stats.Embedder = ui.EmbedderInfo{
		Provider:   string(info.Provider),
		Model:      info.Model,
		Dimensions: info.Dimensions,
		Degraded:   state.EmbedderDegraded(),
	}
	stats.StoreReason = state.Store().DisabledReason()
	reporter.Complete(stats)
	return nil
}
