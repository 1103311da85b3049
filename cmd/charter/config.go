package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/charter/internal/config"
	"github.com/jackzampolin/charter/internal/home"
	"github.com/jackzampolin/charter/internal/output"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
	Long: `Inspect and initialize charter configuration.

Examples:
  charter config init             # Write ~/.charter/config.yaml
  charter config show -o json     # Effective config after env overrides
  charter config get batch.overlap
  charter config keys`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return withExitCode(exitUsage, err)
		}
		path := cfgFile
		if path == "" {
			if err := h.EnsureExists(); err != nil {
				return withExitCode(exitUsage, err)
			}
			path = h.ConfigPath()
		} else if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return withExitCode(exitUsage, err)
		}

		if _, err := os.Stat(path); err == nil && !configForce {
			return withExitCode(exitUsage, fmt.Errorf("%s already exists (use --force to overwrite)", path))
		}
		if err := config.WriteDefault(path); err != nil {
			return withExitCode(exitUsage, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, mgr, err := loadConfig(newLogger())
		if err != nil {
			return err
		}
		if path := mgr.ConfigFile(); path != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "# %s\n", path)
		} else {
			fmt.Fprintln(cmd.ErrOrStderr(), "# no config file, using defaults")
		}
		return output.Print(mgr.Get())
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the effective value of one key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, mgr, err := loadConfig(newLogger())
		if err != nil {
			return err
		}
		value, err := mgr.Lookup(args[0])
		if err != nil {
			return withExitCode(exitUsage, err)
		}
		return output.Print(config.Entry{Key: args[0], Value: value})
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List every config key with its default",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return output.Print(config.DefaultEntries())
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configKeysCmd)
}
