package extract

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jackzampolin/charter/internal/batch"
	"github.com/jackzampolin/charter/internal/pages"
	"github.com/jackzampolin/charter/internal/pdf"
	"github.com/jackzampolin/charter/internal/prompts"
	"github.com/jackzampolin/charter/internal/providers"
	"github.com/jackzampolin/charter/internal/testutil"
)

var spanPattern = regexp.MustCompile(`pages (\d+)-(\d+) of the original`)

// promptSpan recovers the window span stated in a page-context prompt.
func promptSpan(t *testing.T, prompt string) (int, int) {
	t.Helper()
	m := spanPattern.FindStringSubmatch(prompt)
	if m == nil {
		t.Errorf("prompt does not state the page span: %q", prompt)
		return 0, 0
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	return start, end
}

// pageClauses returns a handler that reports one clause per page, numbered
// by absolute page, using excerpt-relative page numbers.
func pageClauses(t *testing.T, failStart int) func(context.Context, []byte, string) (*providers.Result, error) {
	return func(ctx context.Context, data []byte, prompt string) (*providers.Result, error) {
		start, end := promptSpan(t, prompt)
		if start == failStart {
			return nil, &providers.GatewayError{Kind: providers.KindPermanent, Provider: "mock", StatusCode: 400, Message: "bad request"}
		}

		sub, err := pdf.FromBytes("window.pdf", data)
		if err != nil {
			return nil, err
		}
		if sub.PageCount() != end-start+1 {
			t.Errorf("window %d-%d received %d pages", start, end, sub.PageCount())
		}

		var clauses []providers.Clause
		for p := start; p <= end; p++ {
			clauses = append(clauses, providers.Clause{
				Page:         p - start + 1,
				ClauseNumber: strconv.Itoa(p),
				Title:        fmt.Sprintf("Clause %d", p),
				Text:         fmt.Sprintf("  Text of clause %d.  ", p),
			})
		}
		return &providers.Result{Clauses: clauses, Provider: "mock", PromptTokens: 10, CompletionTokens: 5}, nil
	}
}

func newTestPipeline(t *testing.T, handler func(context.Context, []byte, string) (*providers.Result, error)) *Pipeline {
	t.Helper()
	mock := providers.NewMockClient()
	mock.Latency = 0
	mock.Handler = handler

	p, err := New(Config{Extractor: mock, Prompt: "Extract the clauses."})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func openTestPDF(t *testing.T, pageCount int) *pdf.Document {
	t.Helper()
	doc, err := pdf.FromBytes("charter.pdf", testutil.BuildPDF(pageCount))
	if err != nil {
		t.Fatalf("FromBytes() error = %v", err)
	}
	return doc
}

func testOptions(mode batch.Mode) Options {
	opts := DefaultOptions()
	opts.Mode = mode
	opts.Retry = batch.RetryPolicy{MaxRetries: 2, RetryDelay: time.Millisecond}
	return opts
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{Prompt: "p"}); err == nil {
		t.Error("expected error without extractor")
	}
	if _, err := New(Config{Extractor: providers.NewMockClient()}); err == nil {
		t.Error("expected error without prompt")
	}
}

func TestPlan(t *testing.T) {
	t.Run("charter party body", func(t *testing.T) {
		opts := DefaultOptions()
		opts.StartPage, opts.EndPage = 6, 39
		span, windows, err := Plan(50, opts)
		if err != nil {
			t.Fatalf("Plan() error = %v", err)
		}
		if span != (pages.PageRange{Start: 6, End: 39}) {
			t.Errorf("span = %v", span)
		}
		if len(windows) != 4 {
			t.Errorf("got %d windows, want 4", len(windows))
		}
	})

	t.Run("batching disabled", func(t *testing.T) {
		opts := DefaultOptions()
		opts.BatchSize = 0
		_, windows, err := Plan(120, opts)
		if err != nil {
			t.Fatalf("Plan() error = %v", err)
		}
		if len(windows) != 1 || windows[0].PageRange != (pages.PageRange{Start: 1, End: 120}) {
			t.Errorf("windows = %v", windows)
		}
	})

	t.Run("end page clamped", func(t *testing.T) {
		opts := DefaultOptions()
		opts.EndPage = 500
		span, _, err := Plan(12, opts)
		if err != nil {
			t.Fatalf("Plan() error = %v", err)
		}
		if span.End != 12 {
			t.Errorf("span = %v", span)
		}
	})

	t.Run("invalid overlap", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Overlap = opts.BatchSize
		if _, _, err := Plan(40, opts); !errors.Is(err, pages.ErrInvalidConfig) {
			t.Errorf("Plan() error = %v, want ErrInvalidConfig", err)
		}
	})

	t.Run("start past end", func(t *testing.T) {
		opts := DefaultOptions()
		opts.StartPage = 30
		if _, _, err := Plan(20, opts); !errors.Is(err, pages.ErrInvalidRange) {
			t.Errorf("Plan() error = %v, want ErrInvalidRange", err)
		}
	})
}

func TestPipeline_Run(t *testing.T) {
	for _, mode := range []batch.Mode{batch.Sequential, batch.Concurrent(3)} {
		t.Run(mode.String(), func(t *testing.T) {
			p := newTestPipeline(t, pageClauses(t, 0))
			doc := openTestPDF(t, 40)

			opts := testOptions(mode)
			opts.StartPage, opts.EndPage = 6, 39

			result, err := p.Run(context.Background(), doc, opts)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if len(result.Clauses) != 34 {
				t.Fatalf("got %d clauses, want 34", len(result.Clauses))
			}
			for i, c := range result.Clauses {
				want := strconv.Itoa(6 + i)
				if c.ID != want {
					t.Errorf("clause %d: id = %q, want %q", i, c.ID, want)
				}
				if c.Text != fmt.Sprintf("Text of clause %s.", want) {
					t.Errorf("clause %d: text not trimmed: %q", i, c.Text)
				}
			}

			r := result.Report
			if r.Windows != 4 || r.Succeeded != 4 || r.Failed != 0 {
				t.Errorf("report windows = %d/%d/%d", r.Windows, r.Succeeded, r.Failed)
			}
			// 4 windows of 10, 10, 10 and 10 pages.
			if r.RawClauses != 40 || r.MergedClauses != 34 {
				t.Errorf("raw = %d, merged = %d", r.RawClauses, r.MergedClauses)
			}
			if r.PromptTokens != 40 {
				t.Errorf("prompt tokens = %d, want 40", r.PromptTokens)
			}
			if len(r.Warnings) != 0 {
				t.Errorf("unexpected warnings: %v", r.Warnings)
			}
			wantPrompt := PromptReport{Source: "inline", Hash: prompts.HashText("Extract the clauses.")[:12]}
			if r.Prompt != wantPrompt {
				t.Errorf("prompt = %+v, want %+v", r.Prompt, wantPrompt)
			}
		})
	}
}

func TestPipeline_PartialFailure(t *testing.T) {
	p := newTestPipeline(t, pageClauses(t, 14))
	doc := openTestPDF(t, 39)

	opts := testOptions(batch.Sequential)
	opts.StartPage = 6

	result, err := p.Run(context.Background(), doc, opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	r := result.Report
	if r.Failed != 1 || len(r.FailedRanges) != 1 || r.FailedRanges[0] != (pages.PageRange{Start: 14, End: 23}) {
		t.Fatalf("failed ranges = %v", r.FailedRanges)
	}
	found := false
	for _, w := range r.Warnings {
		if strings.Contains(w, "14-23") {
			found = true
		}
	}
	if !found {
		t.Errorf("no warning names the failed range: %v", r.Warnings)
	}

	ids := make(map[string]bool)
	for _, c := range result.Clauses {
		ids[c.ID] = true
	}
	for p := 6; p <= 39; p++ {
		onlyFailed := p >= 16 && p <= 21
		if ids[strconv.Itoa(p)] == onlyFailed {
			t.Errorf("clause for page %d present = %v", p, ids[strconv.Itoa(p)])
		}
	}
}

func TestPipeline_AllBatchesFailed(t *testing.T) {
	mock := providers.NewMockClient()
	mock.Latency = 0
	mock.ShouldFail = true
	mock.FailKind = providers.KindTransient

	p, err := New(Config{Extractor: mock, Prompt: "Extract the clauses."})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	opts := testOptions(batch.Concurrent(2))
	result, err := p.Run(context.Background(), openTestPDF(t, 25), opts)
	if result != nil {
		t.Error("expected no result")
	}
	if !errors.Is(err, ErrAllBatchesFailed) {
		t.Fatalf("Run() error = %v, want ErrAllBatchesFailed", err)
	}

	var allErr *AllBatchesFailedError
	if !errors.As(err, &allErr) {
		t.Fatalf("expected *AllBatchesFailedError, got %T", err)
	}
	want := []pages.PageRange{{Start: 1, End: 10}, {Start: 9, End: 18}, {Start: 17, End: 25}}
	if fmt.Sprint(allErr.Ranges) != fmt.Sprint(want) {
		t.Errorf("Ranges = %v, want %v", allErr.Ranges, want)
	}
	// Each window used its full retry budget.
	if got := mock.RequestCount(); got != 6 {
		t.Errorf("gateway called %d times, want 6", got)
	}
}

func TestPipeline_Cancelled(t *testing.T) {
	p := newTestPipeline(t, pageClauses(t, 0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, openTestPDF(t, 12), testOptions(batch.Sequential))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}
