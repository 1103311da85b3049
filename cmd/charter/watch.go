package main

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/charter/internal/config"
	"github.com/jackzampolin/charter/internal/home"
	"github.com/jackzampolin/charter/internal/output"
	"github.com/jackzampolin/charter/internal/providers"
	"github.com/jackzampolin/charter/internal/watch"
)

var (
	watchSel         selection
	watchDebounce    time.Duration
	watchInitialScan bool
)

// besideDocument writes clause files next to the PDF they came from.
func besideDocument(cfg *config.Config, docPath string) destination {
	dir := filepath.Dir(docPath)
	stem := home.DocumentStem(docPath)
	dest := destination{
		clausesPath: filepath.Join(dir, stem+".clauses"+output.FormatJSON.Extension()),
		format:      output.FormatJSON,
	}
	if cfg.Output.Raw {
		dest.rawPath = filepath.Join(dir, stem+".raw_response.json")
	}
	return dest
}

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Extract clauses from every PDF dropped into a directory",
	Long: `Watch a directory and extract clauses from each PDF that appears in it,
writing <name>.clauses.json beside the document.

The config file is watched too: batch settings and providers are re-read for
every new document. A failed document is logged and the watch continues.

Examples:
  charter watch                     # Watch ~/.charter/inbox
  charter watch ./incoming --initial-scan`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logger := newLogger()
		h, mgr, err := loadConfig(logger)
		if err != nil {
			return err
		}

		dir := h.InboxPath()
		if len(args) == 1 {
			dir = args[0]
		} else if err := h.EnsureExists(); err != nil {
			return withExitCode(exitUsage, err)
		}

		regCfg, err := watchSel.registryConfig(mgr.Get())
		if err != nil {
			return withExitCode(exitUsage, err)
		}
		registry := providers.NewRegistryFromConfig(regCfg, logger)
		defer registry.Close()

		mgr.OnChange(func(cfg *config.Config) {
			regCfg, err := watchSel.registryConfig(cfg)
			if err != nil {
				logger.Warn("keeping previous providers", "error", err)
				return
			}
			registry.Reload(regCfg)
		})
		mgr.WatchConfig()

		docs, err := watch.Watch(ctx, watch.Config{
			Dir:         dir,
			Debounce:    watchDebounce,
			InitialScan: watchInitialScan,
			Logger:      logger,
		})
		if err != nil {
			return withExitCode(exitUsage, err)
		}
		logger.Info("watching for documents", "dir", dir)

		for docPath := range docs {
			cfg := mgr.Get()
			docLogger := logger.With("path", docPath)

			pipeline, err := newPipeline(registry, cfg, watchSel, docLogger)
			if err != nil {
				docLogger.Error("cannot process document", "error", err)
				continue
			}
			dest := besideDocument(cfg, docPath)
			result, err := extractDocument(ctx, pipeline, docPath, cfg.ExtractOptions(), dest)
			if err != nil {
				docLogger.Error("extraction failed", "error", err)
				continue
			}
			docLogger.Info("wrote clauses",
				"out", dest.clausesPath,
				"clauses", len(result.Clauses),
				"failed_windows", result.Report.Failed)
		}
		logger.Info("watch stopped")
		return nil
	},
}

func init() {
	f := watchCmd.Flags()
	f.DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "quiet period before a new file is processed")
	f.BoolVar(&watchInitialScan, "initial-scan", false, "also process PDFs already in the directory")
	f.StringVar(&watchSel.provider, "provider", "", "provider name from config (default: defaults.provider)")
	f.StringVar(&watchSel.model, "model", "", "override the provider's model")
	f.StringVar(&watchSel.promptFile, "prompt-file", "", "replace the built-in extraction prompt")
}
