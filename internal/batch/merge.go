package batch

import (
	"fmt"
	"log/slog"
	"sort"
	"unicode/utf8"

	"github.com/jackzampolin/charter/internal/pages"
	"github.com/jackzampolin/charter/internal/providers"
)

// mergeEntry is a clause plus the window it came from.
type mergeEntry struct {
	clause providers.Clause
	window int
}

// Merger deduplicates clauses across window outcomes.
type Merger struct {
	logger *slog.Logger
}

// NewMerger creates a merger. A nil logger uses slog.Default().
func NewMerger(logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{logger: logger}
}

// Merge deduplicates and orders clauses with a default merger.
func Merge(outcomes []Outcome, windows []pages.Window) []providers.Clause {
	return NewMerger(nil).Merge(outcomes, windows)
}

// Merge collapses clauses sharing a page and clause number, then sorts them
// by page and clause number.
//
// On pages shared by adjacent windows the clause with strictly longer text
// wins and ties keep the earlier window. Elsewhere the last window wins.
// Clauses without a clause number are dropped.
func (m *Merger) Merge(outcomes []Outcome, windows []pages.Window) []providers.Clause {
	overlap := pages.OverlapPages(windows)

	var arena []mergeEntry
	index := make(map[string]int)

	for _, o := range outcomes {
		if !o.Succeeded {
			continue
		}
		for _, c := range o.Clauses {
			if c.ClauseNumber == "" {
				m.logger.Debug("skipping clause without number", "window", o.Window.Index, "page", c.Page)
				continue
			}
			key := dedupKey(c)
			i, seen := index[key]
			if !seen {
				index[key] = len(arena)
				arena = append(arena, mergeEntry{clause: c, window: o.Window.Index})
				continue
			}

			existing := arena[i]
			if _, onOverlap := overlap[c.Page]; onOverlap {
				if utf8.RuneCountInString(c.Text) > utf8.RuneCountInString(existing.clause.Text) {
					arena[i] = mergeEntry{clause: c, window: o.Window.Index}
				}
				continue
			}

			m.logger.Debug("duplicate clause outside overlap, keeping later window",
				"key", key, "previous_window", existing.window, "window", o.Window.Index)
			arena[i] = mergeEntry{clause: c, window: o.Window.Index}
		}
	}

	merged := make([]providers.Clause, len(arena))
	for i, e := range arena {
		merged[i] = e.clause
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Page != merged[j].Page {
			return merged[i].Page < merged[j].Page
		}
		return merged[i].ClauseNumber < merged[j].ClauseNumber
	})
	return merged
}

func dedupKey(c providers.Clause) string {
	return fmt.Sprintf("%d:%s", c.Page, c.ClauseNumber)
}

// CountClauses returns the number of clauses across successful outcomes
// before deduplication.
func CountClauses(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Succeeded {
			n += len(o.Clauses)
		}
	}
	return n
}
