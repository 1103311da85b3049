package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/charter/internal/config"
	"github.com/jackzampolin/charter/internal/home"
	"github.com/jackzampolin/charter/internal/output"
	"github.com/jackzampolin/charter/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "charter",
	Short: "Clause extraction for charter party PDFs",
	Long: `Charter extracts numbered clauses from charter party PDFs with a
vision-capable LLM.

Long documents are split into overlapping page windows. Each window is sent
to the model as its own PDF, retried on transient failures, and the results
are merged back into one ordered, de-duplicated clause list.

Configuration is read from ./config.yaml or ~/.charter/config.yaml and can be
overridden with CHARTER_* environment variables (e.g. CHARTER_BATCH_OVERLAP).
API keys are read from the environment or a .env file in the working
directory.`,
	Version:       version.GitRelease,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.charter/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "charter home directory (default: ~/.charter)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "terminal output format: yaml or json",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false, "enable debug logging",
	)

	// Set output format and load .env before any command runs
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		output.SetFormat(outputFormat)
		return withExitCode(exitUsage, config.LoadDotEnv(".env"))
	}

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(versionCmd)
}

// newLogger writes text logs to stderr so stdout stays parseable.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// loadConfig resolves the home directory and loads configuration from it.
func loadConfig(logger *slog.Logger) (*home.Dir, *config.Manager, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, nil, withExitCode(exitUsage, err)
	}
	mgr, err := config.NewManager(cfgFile, h.Path(), logger)
	if err != nil {
		return nil, nil, withExitCode(exitUsage, err)
	}
	return h, mgr, nil
}
