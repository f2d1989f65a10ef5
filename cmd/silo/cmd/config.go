package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/silo/internal/config"
	silerrors "github.com/Aman-CERP/silo/internal/errors"
	"github.com/Aman-CERP/silo/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
		Long: `Manage the silo configuration file.

Precedence (lowest to highest):
  1. Built-in defaults
  2. Config file (~/.config/silo/config.yaml, or --config)
  3. Environment variables (SILO_*)`,
		Example: `  # Index two folders
  silo config set-roots ~/notes ~/Documents/papers

  # Check that the roots exist
  silo config validate

  # Undo the last change
  silo config backups
  silo config restore <backup>`,
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())
	cmd.AddCommand(newConfigSetRootsCmd())
	cmd.AddCommand(newConfigValidateCmd())
	cmd.AddCommand(newConfigBackupsCmd())
	cmd.AddCommand(newConfigRestoreCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout(), jsonOutput)
			if out.IsJSON() {
				return out.JSON(cfg)
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			out.Statusf("📋", "Configuration: %s", config.ExpandTilde(configPath))
			out.Newline()
			_, err = fmt.Fprint(cmd.OutOrStdout(), string(data))
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.ExpandTilde(configPath))
			return err
		},
	}
}

func newConfigSetRootsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-roots <dir>...",
		Short: "Replace the folders that are indexed",
		Long: `Replace the filesystem roots and save the configuration. The previous
file is kept as a backup. Paths starting with ~ are expanded.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			state, err := openState(ctx)
			if err != nil {
				return err
			}
			defer closeState(state)

			view, err := state.SetIndexRoots(ctx, args)
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout(), false)
			out.Successf("Saved %s", view.ConfigPath)
			out.List("Roots:", view.Config.Roots())
			return nil
		},
	}

	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that the index roots are usable",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			state, err := openState(ctx)
			if err != nil {
				return err
			}
			defer closeState(state)

			v := state.ValidateIndexConfig(ctx)

			out := output.New(cmd.OutOrStdout(), jsonOutput)
			if out.IsJSON() {
				if err := out.JSON(v); err != nil {
					return err
				}
			} else if v.OK {
				out.Success("Configuration is valid")
				out.List("Roots:", v.Roots)
			} else {
				out.Warning("Configuration has problems")
				out.List("Issues:", v.Issues)
			}

			if !v.OK {
				return silerrors.ConfigError(
					fmt.Sprintf("%d configuration issue(s): %s", len(v.Issues), strings.Join(v.Issues, "; ")), nil)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the result as JSON")

	return cmd
}

func newConfigBackupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backups",
		Short: "List saved copies of the config file, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			backups, err := config.ListBackups(config.ExpandTilde(configPath))
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout(), false)
			if len(backups) == 0 {
				out.Status("💾", "No backups")
				return nil
			}
			for _, b := range backups {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), b); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newConfigRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup>",
		Short: "Restore the config file from a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ExpandTilde(configPath)
			if err := config.Restore(path, args[0]); err != nil {
				return err
			}
			output.New(cmd.OutOrStdout(), false).Successf("Restored %s from %s", path, args[0])
			return nil
		},
	}
}
