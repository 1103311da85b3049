package extract

import (
	"github.com/jackzampolin/charter/internal/batch"
	"github.com/jackzampolin/charter/internal/pages"
)

// Report summarizes a run.
type Report struct {
	Document  string          `json:"document" yaml:"document"`
	PageCount int             `json:"page_count" yaml:"page_count"`
	Pages     pages.PageRange `json:"pages" yaml:"pages"`
	Provider  string          `json:"provider" yaml:"provider"`
	Prompt    PromptReport    `json:"prompt" yaml:"prompt"`
	Mode      string          `json:"mode" yaml:"mode"`

	Windows      int               `json:"windows" yaml:"windows"`
	Succeeded    int               `json:"succeeded" yaml:"succeeded"`
	Failed       int               `json:"failed" yaml:"failed"`
	FailedRanges []pages.PageRange `json:"failed_ranges,omitempty" yaml:"failed_ranges,omitempty"`

	RawClauses    int `json:"raw_clauses" yaml:"raw_clauses"` // Before dedup
	MergedClauses int `json:"merged_clauses" yaml:"merged_clauses"`
	OutputClauses int `json:"output_clauses" yaml:"output_clauses"`

	PromptTokens     int `json:"prompt_tokens" yaml:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens" yaml:"completion_tokens"`

	Batches        []BatchReport `json:"batches" yaml:"batches"`
	Warnings       []string      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	ElapsedSeconds float64       `json:"elapsed_seconds" yaml:"elapsed_seconds"`
}

// PromptReport identifies the base prompt a run used.
type PromptReport struct {
	Source string `json:"source" yaml:"source"` // "embedded", an override path or "inline"
	Hash   string `json:"hash" yaml:"hash"`     // Leading SHA256 hex digits
}

// BatchReport summarizes one window.
type BatchReport struct {
	Index     int             `json:"index" yaml:"index"`
	Pages     pages.PageRange `json:"pages" yaml:"pages"`
	Succeeded bool            `json:"succeeded" yaml:"succeeded"`
	Attempts  int             `json:"attempts" yaml:"attempts"`
	Clauses   int             `json:"clauses" yaml:"clauses"`
	Error     string          `json:"error,omitempty" yaml:"error,omitempty"`
}

func newReport(doc Document, span pages.PageRange, provider string, opts Options, outcomes []batch.Outcome) *Report {
	mode := opts.Mode.String()
	if len(outcomes) <= 1 {
		mode = batch.Sequential.String()
	}
	r := &Report{
		Document:   doc.Name(),
		PageCount:  doc.PageCount(),
		Pages:      span,
		Provider:   provider,
		Mode:       mode,
		Windows:    len(outcomes),
		RawClauses: batch.CountClauses(outcomes),
		Batches:    make([]BatchReport, len(outcomes)),
	}
	for i, o := range outcomes {
		r.Batches[i] = BatchReport{
			Index:     o.Window.Index,
			Pages:     o.Window.PageRange,
			Succeeded: o.Succeeded,
			Attempts:  o.Attempts,
			Clauses:   len(o.Clauses),
			Error:     o.Error,
		}
		r.PromptTokens += o.PromptTokens
		r.CompletionTokens += o.CompletionTokens
		if o.Succeeded {
			r.Succeeded++
		} else {
			r.Failed++
			r.FailedRanges = append(r.FailedRanges, o.Window.PageRange)
		}
	}
	return r
}
