package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/charter/internal/extract"
	"github.com/jackzampolin/charter/internal/output"
	"github.com/jackzampolin/charter/internal/providers"
)

var (
	extractSel        selection
	extractStartPage  int
	extractEndPage    int
	extractBatchSize  int
	extractOverlap    int
	extractParallel   bool
	extractMaxWorkers int
	extractMaxRetries int
	extractRetryDelay time.Duration
	extractOut        string
	extractFormat     string
	extractRaw        string
)

var extractCmd = &cobra.Command{
	Use:   "extract <pdf>",
	Short: "Extract numbered clauses from a charter party PDF",
	Long: `Extract numbered clauses from a charter party PDF.

The page span is split into overlapping windows of --batch-size pages sharing
--overlap pages. Each window is sent to the model as its own PDF. Windows that
fail after --max-retries attempts are skipped with a warning; the command only
fails when every window fails.

Flags override the batch section of the config file.

Examples:
  charter extract cp.pdf                          # Whole document, defaults
  charter extract cp.pdf --start-page 6 --end-page 39
  charter extract cp.pdf --parallel --max-workers 4
  charter extract cp.pdf --batch-size 0           # One call for the whole span
  charter extract cp.pdf --out clauses.xlsx --raw raw.json
  charter extract cp.pdf --provider gemini --model gemini-2.5-flash`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		docPath := args[0]

		logger := newLogger()
		h, mgr, err := loadConfig(logger)
		if err != nil {
			return err
		}
		cfg := mgr.Get()

		opts := cfg.ExtractOptions()
		flags := cmd.Flags()
		if flags.Changed("start-page") {
			opts.StartPage = extractStartPage
		}
		if flags.Changed("end-page") {
			opts.EndPage = extractEndPage
		}
		if flags.Changed("batch-size") {
			opts.BatchSize = extractBatchSize
		}
		if flags.Changed("overlap") {
			opts.Overlap = extractOverlap
		}
		if flags.Changed("parallel") {
			opts.Mode.Parallel = extractParallel
		}
		if flags.Changed("max-workers") {
			opts.Mode.MaxWorkers = extractMaxWorkers
		}
		if flags.Changed("max-retries") {
			opts.Retry.MaxRetries = extractMaxRetries
		}
		if flags.Changed("retry-delay") {
			opts.Retry.RetryDelay = extractRetryDelay
		}

		dest, err := defaultDestination(h, cfg, docPath)
		if err != nil {
			return withExitCode(exitUsage, err)
		}
		if extractFormat != "" {
			if dest.format, err = output.ParseFormat(extractFormat); err != nil {
				return withExitCode(exitUsage, err)
			}
			dest.clausesPath = strings.TrimSuffix(dest.clausesPath, filepath.Ext(dest.clausesPath)) + dest.format.Extension()
		}
		if extractOut != "" {
			dest.clausesPath = extractOut
			if extractFormat == "" {
				dest.format = output.FormatForPath(extractOut, dest.format)
			}
		}
		if extractRaw != "" {
			dest.rawPath = extractRaw
		}

		regCfg, err := extractSel.registryConfig(cfg)
		if err != nil {
			return withExitCode(exitUsage, err)
		}
		registry := providers.NewRegistryFromConfig(regCfg, logger)
		defer registry.Close()

		pipeline, err := newPipeline(registry, cfg, extractSel, logger)
		if err != nil {
			return withExitCode(exitUsage, err)
		}

		result, err := extractDocument(ctx, pipeline, docPath, opts, dest)
		if err != nil {
			return err
		}

		logger.Info("wrote clauses",
			"path", dest.clausesPath, "format", dest.format, "clauses", len(result.Clauses))
		if dest.rawPath != "" {
			logger.Info("wrote raw response", "path", dest.rawPath)
		}
		if err := output.Print(result.Report); err != nil {
			return fmt.Errorf("print report: %w", err)
		}
		return nil
	},
}

func init() {
	defaults := extract.DefaultOptions()
	f := extractCmd.Flags()
	f.IntVar(&extractStartPage, "start-page", defaults.StartPage, "first page to process (1-indexed)")
	f.IntVar(&extractEndPage, "end-page", 0, "last page to process (0 = last page of the document)")
	f.IntVar(&extractBatchSize, "batch-size", defaults.BatchSize, "pages per window (0 disables batching)")
	f.IntVar(&extractOverlap, "overlap", defaults.Overlap, "pages shared by consecutive windows")
	f.BoolVar(&extractParallel, "parallel", false, "process windows concurrently")
	f.IntVar(&extractMaxWorkers, "max-workers", defaults.Mode.MaxWorkers, "concurrent windows in parallel mode")
	f.IntVar(&extractMaxRetries, "max-retries", defaults.Retry.MaxRetries, "gateway attempts per window")
	f.DurationVar(&extractRetryDelay, "retry-delay", defaults.Retry.RetryDelay, "wait before the first retry, doubled each retry")
	f.StringVar(&extractSel.provider, "provider", "", "provider name from config (default: defaults.provider)")
	f.StringVar(&extractSel.model, "model", "", "override the provider's model")
	f.StringVar(&extractSel.promptFile, "prompt-file", "", "replace the built-in extraction prompt")
	f.StringVar(&extractOut, "out", "", "clause output file (default: ~/.charter/output/<name>.clauses.<format>)")
	f.StringVar(&extractFormat, "format", "", "clause file format: json, yaml or xlsx (default: output.format, or from --out)")
	f.StringVar(&extractRaw, "raw", "", "also write the merged raw response to this file")
}
