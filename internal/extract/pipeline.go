// Package extract runs the clause extraction pipeline over one document:
// range resolution, window planning, batched execution, merge and output
// transform.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackzampolin/charter/internal/batch"
	"github.com/jackzampolin/charter/internal/pages"
	"github.com/jackzampolin/charter/internal/prompts"
	"github.com/jackzampolin/charter/internal/providers"
)

// Document is a source PDF the pipeline can slice.
type Document interface {
	batch.Slicer
	Name() string
	PageCount() int
}

// Options controls one run.
type Options struct {
	StartPage int // Values below 1 mean page 1
	EndPage   int // 0 means the last page
	BatchSize int // 0 disables batching
	Overlap   int
	Mode      batch.Mode
	Retry     batch.RetryPolicy
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		StartPage: 1,
		BatchSize: 10,
		Overlap:   2,
		Mode:      batch.Mode{MaxWorkers: batch.DefaultMaxWorkers},
		Retry:     batch.DefaultRetryPolicy(),
	}
}

// Config configures a Pipeline.
type Config struct {
	Extractor providers.Extractor // Required
	Prompt    string              // Base extraction prompt
	Logger    *slog.Logger

	// PromptSource names where Prompt came from, e.g. "embedded" or an
	// override path. Reported only.
	PromptSource string
}

// Pipeline extracts clauses from documents with a fixed gateway and prompt.
type Pipeline struct {
	extractor providers.Extractor
	prompt    string
	promptRef PromptReport
	logger    *slog.Logger
}

// Result is the outcome of a run with at least one successful window.
type Result struct {
	Clauses  []Clause           `json:"clauses"`
	Merged   []providers.Clause `json:"-"`
	Outcomes []batch.Outcome    `json:"-"`
	Report   *Report            `json:"-"`
}

// New creates a pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Extractor == nil {
		return nil, errors.New("extract: extractor is required")
	}
	if cfg.Prompt == "" {
		return nil, errors.New("extract: prompt is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	source := cfg.PromptSource
	if source == "" {
		source = "inline"
	}
	return &Pipeline{
		extractor: cfg.Extractor,
		prompt:    cfg.Prompt,
		promptRef: PromptReport{Source: source, Hash: prompts.HashText(cfg.Prompt)[:12]},
		logger:    logger,
	}, nil
}

// Plan resolves the requested span against pageCount and splits it into
// windows. A batch size of 0 yields one window over the whole span.
func Plan(pageCount int, opts Options) (pages.PageRange, []pages.Window, error) {
	span, err := pages.Normalize(opts.StartPage, opts.EndPage, pageCount)
	if err != nil {
		return pages.PageRange{}, nil, err
	}
	if opts.BatchSize == 0 {
		return span, pages.Single(span), nil
	}
	windows, err := pages.Plan(span.Start, span.End, opts.BatchSize, opts.Overlap)
	if err != nil {
		return pages.PageRange{}, nil, err
	}
	return span, windows, nil
}

// Run extracts clauses from doc. Failed windows are logged and reported as
// warnings. If no window succeeds Run returns an *AllBatchesFailedError.
func (p *Pipeline) Run(ctx context.Context, doc Document, opts Options) (*Result, error) {
	started := time.Now()
	logger := p.logger.With("document", doc.Name())

	span, windows, err := Plan(doc.PageCount(), opts)
	if err != nil {
		return nil, fmt.Errorf("plan batches: %w", err)
	}
	logger.Info("planned batches",
		"pages", span.String(), "windows", len(windows),
		"batch_size", opts.BatchSize, "overlap", opts.Overlap, "mode", opts.Mode.String())

	exec, err := batch.NewExecutor(batch.Config{
		Extractor: p.extractor,
		Prompt:    p.prompt,
		Retry:     opts.Retry,
		Mode:      opts.Mode,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	outcomes := exec.Run(ctx, doc, windows)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("extraction interrupted: %w", err)
	}

	failed := batch.Failed(outcomes)
	if len(failed) == len(outcomes) {
		allErr := &AllBatchesFailedError{}
		for _, o := range failed {
			allErr.Ranges = append(allErr.Ranges, o.Window.PageRange)
			allErr.Errors = append(allErr.Errors, o.Error)
		}
		logger.Error("all batches failed", "windows", len(windows))
		return nil, allErr
	}

	var warnings []string
	for _, o := range failed {
		logger.Warn("batch failed, continuing with partial results",
			"window", o.Window.Index, "pages", o.Window.PageRange.String(), "error", o.Error)
		warnings = append(warnings, fmt.Sprintf("batch %d (pages %s) failed: %s", o.Window.Index+1, o.Window.PageRange, o.Error))
	}

	merged := batch.NewMerger(logger).Merge(outcomes, windows)
	clauses, transformWarnings := Transform(merged, logger)
	warnings = append(warnings, transformWarnings...)

	report := newReport(doc, span, p.extractor.Name(), opts, outcomes)
	report.Prompt = p.promptRef
	report.MergedClauses = len(merged)
	report.OutputClauses = len(clauses)
	report.Warnings = warnings
	report.ElapsedSeconds = time.Since(started).Seconds()

	logger.Info("extraction complete",
		"clauses", len(clauses), "succeeded", report.Succeeded, "failed", report.Failed,
		"elapsed", time.Since(started).Round(time.Millisecond))

	return &Result{
		Clauses:  clauses,
		Merged:   merged,
		Outcomes: outcomes,
		Report:   report,
	}, nil
}
