package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/silo/internal/logging"
	"github.com/Aman-CERP/silo/internal/mcp"
	"github.com/Aman-CERP/silo/internal/silo"
)

func newServeCmd() *cobra.Command {
	var (
		transport    string
		indexOnStart bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Serve the knowledge base to an AI assistant over the Model Context
Protocol. Stdout carries JSON-RPC only; logs go to ~/.silo/logs.

Example client configuration:
  {"command": "silo", "args": ["serve"]}`,
		// Stdout belongs to the protocol, logging is set up in RunE.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, transport, indexOnStart)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "", "Transport: stdio (default from config)")
	cmd.Flags().BoolVar(&indexOnStart, "index", false, "Start a background index run when the server starts")

	return cmd
}

func runServe(ctx context.Context, transport string, indexOnStart bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	level := cfg.Server.LogLevel
	if debugMode {
		level = "debug"
	}
	cleanup, err := logging.ServerMode(level)
	if err != nil {
		return err
	}
	defer cleanup()

	state, err := newState(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeState(state)

	srv, err := mcp.NewServer(state)
	if err != nil {
		return err
	}

	if indexOnStart {
		started, err := state.StartBackgroundIndex(ctx, nil, silo.IndexOptions{})
		if err != nil {
			slog.Warn("background_index_not_started", slog.String("error", err.Error()))
		} else {
			slog.Info("background_index_requested", slog.Bool("started", started))
		}
	}

	if transport == "" {
		transport = cfg.Server.Transport
	}
	err = srv.Serve(ctx, transport)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
