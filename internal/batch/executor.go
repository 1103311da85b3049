package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/charter/internal/pages"
	"github.com/jackzampolin/charter/internal/prompts"
	"github.com/jackzampolin/charter/internal/providers"
)

// Outcome is the final result of one window after retries are exhausted or a
// call succeeded. Clause pages are document-absolute.
type Outcome struct {
	Window    pages.Window       `json:"window"`
	Clauses   []providers.Clause `json:"clauses"`
	Succeeded bool               `json:"succeeded"`
	Error     string             `json:"error,omitempty"`

	Attempts         int           `json:"attempts"`
	PromptTokens     int           `json:"prompt_tokens,omitempty"`
	CompletionTokens int           `json:"completion_tokens,omitempty"`
	Elapsed          time.Duration `json:"elapsed"`
}

// Executor runs windows through Slicer then Extractor with bounded retries.
type Executor struct {
	extractor providers.Extractor
	prompt    string
	retry     RetryPolicy
	mode      Mode
	logger    *slog.Logger
}

// NewExecutor creates an executor from cfg.
func NewExecutor(cfg Config) (*Executor, error) {
	if cfg.Extractor == nil {
		return nil, errors.New("batch: extractor is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		extractor: cfg.Extractor,
		prompt:    cfg.Prompt,
		retry:     cfg.Retry,
		mode:      cfg.Mode,
		logger:    logger.With("provider", cfg.Extractor.Name()),
	}, nil
}

// Run executes every window and returns one outcome per window in window
// order. Window failures are recorded in the outcomes, never returned.
// Run waits for every dispatched window before returning.
func (e *Executor) Run(ctx context.Context, slicer Slicer, windows []pages.Window) []Outcome {
	outcomes := make([]Outcome, len(windows))
	if e.mode.Parallel && len(windows) > 1 {
		workers := e.mode.workers()
		e.logger.Info("running windows concurrently", "windows", len(windows), "workers", workers)

		var g errgroup.Group
		g.SetLimit(workers)
		for i, w := range windows {
			g.Go(func() error {
				outcomes[i] = e.runWindow(ctx, slicer, w)
				return nil
			})
		}
		g.Wait()
		return outcomes
	}

	e.logger.Info("running windows sequentially", "windows", len(windows))
	for i, w := range windows {
		outcomes[i] = e.runWindow(ctx, slicer, w)
	}
	return outcomes
}

func (e *Executor) runWindow(ctx context.Context, slicer Slicer, w pages.Window) Outcome {
	start := time.Now()
	logger := e.logger.With("window", w.Index, "pages", w.PageRange.String())
	out := Outcome{Window: w}

	pdf, err := slicer.Slice(ctx, w.Start, w.End)
	if err != nil {
		out.Error = fmt.Sprintf("slice pages %s: %v", w.PageRange, err)
		out.Elapsed = time.Since(start)
		logger.Warn("window failed", "error", out.Error)
		return out
	}

	prompt := prompts.WithPageContext(e.prompt, w.Start, w.End)
	maxAttempts := e.retry.attempts()
	logger.Debug("extracting window", "bytes", len(pdf))

	result, err := retry.DoWithData(
		func() (*providers.Result, error) {
			out.Attempts++
			return e.extractor.Extract(ctx, pdf, prompt)
		},
		retry.Attempts(uint(maxAttempts)),
		retry.Delay(e.retry.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(providers.IsRetryable),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			if int(n)+1 < maxAttempts {
				logger.Warn("extraction attempt failed, retrying",
					"attempt", n+1, "max_attempts", maxAttempts, "kind", providers.Classify(err), "error", err)
			}
		}),
	)
	out.Elapsed = time.Since(start)
	if err != nil {
		out.Error = err.Error()
		logger.Warn("window failed", "attempts", out.Attempts, "error", err)
		return out
	}

	out.Clauses = remapPages(result.Clauses, w.PageRange)
	out.Succeeded = true
	out.PromptTokens = result.PromptTokens
	out.CompletionTokens = result.CompletionTokens
	logger.Info("window complete",
		"clauses", len(out.Clauses), "attempts", out.Attempts, "elapsed", out.Elapsed.Round(time.Millisecond))
	return out
}

// remapPages converts window-relative page numbers to document-absolute ones.
// The sliced PDF always starts at page 1, and results are clamped into the
// window so a hallucinated page cannot escape it.
func remapPages(clauses []providers.Clause, r pages.PageRange) []providers.Clause {
	remapped := make([]providers.Clause, len(clauses))
	for i, c := range clauses {
		c.Page = r.Clamp(r.Start + c.Page - 1)
		remapped[i] = c
	}
	return remapped
}

// Succeeded returns the successful outcomes.
func Succeeded(outcomes []Outcome) []Outcome {
	var ok []Outcome
	for _, o := range outcomes {
		if o.Succeeded {
			ok = append(ok, o)
		}
	}
	return ok
}

// Failed returns the failed outcomes.
func Failed(outcomes []Outcome) []Outcome {
	var failed []Outcome
	for _, o := range outcomes {
		if !o.Succeeded {
			failed = append(failed, o)
		}
	}
	return failed
}
