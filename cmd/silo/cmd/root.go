// Package cmd provides the CLI commands for silo.
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/silo/internal/config"
	"github.com/Aman-CERP/silo/internal/logging"
	"github.com/Aman-CERP/silo/internal/silo"
	"github.com/Aman-CERP/silo/pkg/version"
)

// Global flags
var (
	configPath     string
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the silo CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "silo",
		Short: "Local-first personal knowledge indexer",
		Long: `silo indexes the documents on your machine (notes, PDFs and
spreadsheets) into a local vector store and serves them to AI assistants
over the Model Context Protocol.

Nothing leaves your machine. Start with:
  silo config set-roots ~/notes
  silo index
  silo search "what did I write about tide pools"`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("silo version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "Path to the configuration file")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging (mirrored to stderr)")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newExtractCmd())
	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// startLogging installs file logging as the slog default. Debug mode
// lowers the level and mirrors records to stderr.
func startLogging(_ *cobra.Command, _ []string) error {
	cfg := logging.DefaultConfig()
	cfg.WriteToStderr = false
	if debugMode {
		cfg = logging.DebugConfig()
	}

	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Debug("debug_logging_enabled", slog.String("log_file", cfg.FilePath))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// loadConfig reads the configuration file, writing the defaults first
// when it does not exist yet.
func loadConfig() (*config.Config, error) {
	return config.LoadOrInit(config.ExpandTilde(configPath))
}

// openState loads the configuration and builds the runtime state. The
// caller must Close it.
func openState(ctx context.Context, opts ...silo.Option) (*silo.State, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newState(ctx, cfg, opts...)
}

func newState(ctx context.Context, cfg *config.Config, opts ...silo.Option) (*silo.State, error) {
	all := append([]silo.Option{silo.WithLogger(slog.Default())}, opts...)
	return silo.New(ctx, cfg, config.ExpandTilde(configPath), all...)
}

// closeState closes s, logging rather than returning a failure so the
// command's own error is not masked.
func closeState(s *silo.State) {
	if err := s.Close(); err != nil {
		slog.Warn("state_close_failed", slog.String("error", err.Error()))
	}
}
