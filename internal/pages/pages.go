// Package pages plans overlapping page windows over a document span.
package pages

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned when batch size and overlap cannot make progress.
	ErrInvalidConfig = errors.New("invalid batch configuration")

	// ErrInvalidRange is returned when a page range is empty or starts before page 1.
	ErrInvalidRange = errors.New("invalid page range")
)

// PageRange is a 1-indexed inclusive span of document pages.
type PageRange struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// NewPageRange validates and returns a PageRange.
func NewPageRange(start, end int) (PageRange, error) {
	if start < 1 {
		return PageRange{}, fmt.Errorf("%w: start page %d is before page 1", ErrInvalidRange, start)
	}
	if start > end {
		return PageRange{}, fmt.Errorf("%w: start page (%d) > end page (%d)", ErrInvalidRange, start, end)
	}
	return PageRange{Start: start, End: end}, nil
}

// Len returns the number of pages in the range.
func (r PageRange) Len() int {
	return r.End - r.Start + 1
}

// Contains reports whether page falls inside the range.
func (r PageRange) Contains(page int) bool {
	return page >= r.Start && page <= r.End
}

// Clamp forces page into the range.
func (r PageRange) Clamp(page int) int {
	if page < r.Start {
		return r.Start
	}
	if page > r.End {
		return r.End
	}
	return page
}

func (r PageRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// Window is one planned range and its position in the plan.
type Window struct {
	Index int `json:"index" yaml:"index"`
	PageRange
}

func (w Window) String() string {
	return fmt.Sprintf("#%d (pages %s)", w.Index, w.PageRange)
}

// Normalize resolves a requested span against a document's page count.
// A start below 1 becomes 1, an end of 0 means the last page and an end
// past the last page is clamped to it.
func Normalize(start, end, pageCount int) (PageRange, error) {
	if pageCount < 1 {
		return PageRange{}, fmt.Errorf("%w: document has no pages", ErrInvalidRange)
	}
	if start < 1 {
		start = 1
	}
	if end <= 0 || end > pageCount {
		end = pageCount
	}
	return NewPageRange(start, end)
}

// Plan splits [start, end] into windows of batchSize pages where consecutive
// windows share overlap pages. The last window always ends at end.
func Plan(start, end, batchSize, overlap int) ([]Window, error) {
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap (%d) must not be negative", ErrInvalidConfig, overlap)
	}
	if batchSize <= overlap {
		return nil, fmt.Errorf("%w: batch_size (%d) must be greater than overlap (%d)", ErrInvalidConfig, batchSize, overlap)
	}
	span, err := NewPageRange(start, end)
	if err != nil {
		return nil, err
	}

	step := batchSize - overlap
	windows := make([]Window, 0, span.Len()/step+1)
	for current := span.Start; ; current += step {
		windowEnd := min(current+batchSize-1, span.End)
		windows = append(windows, Window{
			Index:     len(windows),
			PageRange: PageRange{Start: current, End: windowEnd},
		})
		if windowEnd == span.End {
			break
		}
	}
	return windows, nil
}

// Single returns a one-window plan covering the whole span.
func Single(span PageRange) []Window {
	return []Window{{Index: 0, PageRange: span}}
}

// OverlapPages returns the pages shared by adjacent windows.
func OverlapPages(windows []Window) map[int]struct{} {
	overlap := make(map[int]struct{})
	for i := 0; i+1 < len(windows); i++ {
		for page := windows[i+1].Start; page <= windows[i].End; page++ {
			overlap[page] = struct{}{}
		}
	}
	return overlap
}

// Ranges returns the page ranges of windows in plan order.
func Ranges(windows []Window) []PageRange {
	ranges := make([]PageRange, len(windows))
	for i, w := range windows {
		ranges[i] = w.PageRange
	}
	return ranges
}
