package main

import (
	"errors"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/charter/internal/extract"
	"github.com/jackzampolin/charter/internal/output"
	"github.com/jackzampolin/charter/internal/pages"
	"github.com/jackzampolin/charter/internal/pdf"
)

var (
	planPageCount int
	planStartPage int
	planEndPage   int
	planBatchSize int
	planOverlap   int
)

// planWindow is one planned window as printed by the plan command.
type planWindow struct {
	Index int `json:"index" yaml:"index"`
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
	Pages int `json:"pages" yaml:"pages"`
}

// planReport describes a batch plan without running it.
type planReport struct {
	Document     string          `json:"document,omitempty" yaml:"document,omitempty"`
	PageCount    int             `json:"page_count" yaml:"page_count"`
	Pages        pages.PageRange `json:"pages" yaml:"pages"`
	BatchSize    int             `json:"batch_size" yaml:"batch_size"`
	Overlap      int             `json:"overlap" yaml:"overlap"`
	Windows      []planWindow    `json:"windows" yaml:"windows"`
	OverlapPages []int           `json:"overlap_pages" yaml:"overlap_pages"`
}

func newPlanReport(document string, pageCount int, opts extract.Options) (*planReport, error) {
	span, windows, err := extract.Plan(pageCount, opts)
	if err != nil {
		return nil, err
	}
	report := &planReport{
		Document:     document,
		PageCount:    pageCount,
		Pages:        span,
		BatchSize:    opts.BatchSize,
		Overlap:      opts.Overlap,
		Windows:      make([]planWindow, len(windows)),
		OverlapPages: []int{},
	}
	for i, w := range windows {
		report.Windows[i] = planWindow{Index: w.Index, Start: w.Start, End: w.End, Pages: w.Len()}
	}
	for page := range pages.OverlapPages(windows) {
		report.OverlapPages = append(report.OverlapPages, page)
	}
	sort.Ints(report.OverlapPages)
	return report, nil
}

var planCmd = &cobra.Command{
	Use:   "plan [pdf]",
	Short: "Show the page windows an extraction would use",
	Long: `Show the page windows an extraction would use, without calling any
model. Pass a PDF to read its page count, or --page-count to plan for a
document you don't have at hand.

Examples:
  charter plan cp.pdf
  charter plan cp.pdf --start-page 6 --end-page 39
  charter plan --page-count 120 --batch-size 15 --overlap 3`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		_, mgr, err := loadConfig(logger)
		if err != nil {
			return err
		}

		opts := mgr.Get().ExtractOptions()
		flags := cmd.Flags()
		if flags.Changed("start-page") {
			opts.StartPage = planStartPage
		}
		if flags.Changed("end-page") {
			opts.EndPage = planEndPage
		}
		if flags.Changed("batch-size") {
			opts.BatchSize = planBatchSize
		}
		if flags.Changed("overlap") {
			opts.Overlap = planOverlap
		}

		var name string
		pageCount := planPageCount
		switch {
		case len(args) == 1:
			doc, err := pdf.Open(args[0])
			if err != nil {
				return withExitCode(exitUsage, err)
			}
			name, pageCount = doc.Name(), doc.PageCount()
		case pageCount < 1:
			return withExitCode(exitUsage, errors.New("pass a PDF or --page-count"))
		}

		report, err := newPlanReport(name, pageCount, opts)
		if err != nil {
			return withExitCode(exitUsage, err)
		}
		return output.Print(report)
	},
}

func init() {
	defaults := extract.DefaultOptions()
	f := planCmd.Flags()
	f.IntVar(&planPageCount, "page-count", 0, "plan for a document with this many pages instead of reading a PDF")
	f.IntVar(&planStartPage, "start-page", defaults.StartPage, "first page to process (1-indexed)")
	f.IntVar(&planEndPage, "end-page", 0, "last page to process (0 = last page of the document)")
	f.IntVar(&planBatchSize, "batch-size", defaults.BatchSize, "pages per window (0 disables batching)")
	f.IntVar(&planOverlap, "overlap", defaults.Overlap, "pages shared by consecutive windows")
}
