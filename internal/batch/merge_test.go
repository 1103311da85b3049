package batch

import (
	"reflect"
	"testing"

	"github.com/jackzampolin/charter/internal/pages"
	"github.com/jackzampolin/charter/internal/providers"
)

func outcome(w pages.Window, clauses ...providers.Clause) Outcome {
	return Outcome{Window: w, Clauses: clauses, Succeeded: true}
}

func clause(page int, number, text string) providers.Clause {
	return providers.Clause{Page: page, ClauseNumber: number, Text: text}
}

func TestMerge_OverlapTieBreak(t *testing.T) {
	// Overlap pages are 14 and 15.
	windows := []pages.Window{
		{Index: 0, PageRange: pages.PageRange{Start: 6, End: 15}},
		{Index: 1, PageRange: pages.PageRange{Start: 14, End: 23}},
	}

	t.Run("longer text from later window wins", func(t *testing.T) {
		got := Merge([]Outcome{
			outcome(windows[0], clause(14, "7", "The vessel")),
			outcome(windows[1], clause(14, "7", "The vessel shall be delivered")),
		}, windows)
		if len(got) != 1 || got[0].Text != "The vessel shall be delivered" {
			t.Errorf("Merge() = %v", got)
		}
	})

	t.Run("longer text from earlier window wins", func(t *testing.T) {
		got := Merge([]Outcome{
			outcome(windows[0], clause(15, "8", "Hire payable monthly in advance")),
			outcome(windows[1], clause(15, "8", "Hire payable")),
		}, windows)
		if len(got) != 1 || got[0].Text != "Hire payable monthly in advance" {
			t.Errorf("Merge() = %v", got)
		}
	})

	t.Run("equal length keeps earlier window", func(t *testing.T) {
		got := Merge([]Outcome{
			outcome(windows[0], clause(14, "7", "abcdef")),
			outcome(windows[1], clause(14, "7", "ghijkl")),
		}, windows)
		if len(got) != 1 || got[0].Text != "abcdef" {
			t.Errorf("Merge() = %v", got)
		}
	})

	t.Run("length counts characters not bytes", func(t *testing.T) {
		got := Merge([]Outcome{
			outcome(windows[0], clause(14, "7", "café")),  // 4 runes, 5 bytes
			outcome(windows[1], clause(14, "7", "cafes")), // 5 runes
		}, windows)
		if len(got) != 1 || got[0].Text != "cafes" {
			t.Errorf("Merge() = %v", got)
		}
	})
}

func TestMerge_NonOverlapLastWriterWins(t *testing.T) {
	windows := []pages.Window{
		{Index: 0, PageRange: pages.PageRange{Start: 1, End: 10}},
		{Index: 1, PageRange: pages.PageRange{Start: 11, End: 20}},
	}
	got := Merge([]Outcome{
		outcome(windows[0], clause(5, "3", "first and much longer version")),
		outcome(windows[1], clause(5, "3", "second")),
	}, windows)
	if len(got) != 1 || got[0].Text != "second" {
		t.Errorf("Merge() = %v, want the later window's clause", got)
	}
}

func TestMerge_SkipsEmptyClauseNumber(t *testing.T) {
	windows := pages.Single(pages.PageRange{Start: 1, End: 5})
	got := Merge([]Outcome{
		outcome(windows[0], clause(1, "", "untitled preamble"), clause(2, "1", "Definitions")),
	}, windows)
	if len(got) != 1 || got[0].ClauseNumber != "1" {
		t.Errorf("Merge() = %v", got)
	}
}

func TestMerge_IgnoresFailedOutcomes(t *testing.T) {
	windows := pages.Single(pages.PageRange{Start: 1, End: 5})
	failed := outcome(windows[0], clause(1, "1", "stale"))
	failed.Succeeded = false
	if got := Merge([]Outcome{failed}, windows); len(got) != 0 {
		t.Errorf("Merge() = %v, want empty", got)
	}
}

func TestMerge_Ordering(t *testing.T) {
	windows := pages.Single(pages.PageRange{Start: 1, End: 10})
	got := Merge([]Outcome{
		outcome(windows[0],
			clause(3, "2", "b"),
			clause(1, "10", "c"),
			clause(3, "10", "d"),
			clause(1, "9", "e"),
		),
	}, windows)

	var keys []string
	for _, c := range got {
		keys = append(keys, dedupKey(c))
	}
	// Clause numbers compare as strings.
	want := []string{"1:10", "1:9", "3:10", "3:2"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("order = %v, want %v", keys, want)
	}
}

func TestMerge_Idempotent(t *testing.T) {
	windows := []pages.Window{
		{Index: 0, PageRange: pages.PageRange{Start: 1, End: 10}},
		{Index: 1, PageRange: pages.PageRange{Start: 9, End: 18}},
	}
	outcomes := []Outcome{
		outcome(windows[0], clause(2, "1", "one"), clause(9, "4", "four short"), clause(10, "5", "five")),
		outcome(windows[1], clause(9, "4", "four longer text"), clause(10, "5", "five"), clause(12, "6", "six")),
	}

	once := Merge(outcomes, windows)
	twice := Merge(outcomes, windows)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Merge() not deterministic:\n%v\n%v", once, twice)
	}

	// Feeding the merged result back in changes nothing.
	again := Merge([]Outcome{outcome(windows[0], once...)}, windows)
	if !reflect.DeepEqual(once, again) {
		t.Errorf("Merge() of merged output = %v, want %v", again, once)
	}
	if len(once) != 4 {
		t.Errorf("got %d clauses, want 4: %v", len(once), once)
	}
}

func TestCountClauses(t *testing.T) {
	windows := pages.Single(pages.PageRange{Start: 1, End: 5})
	ok := outcome(windows[0], clause(1, "1", "a"), clause(2, "2", "b"))
	failed := outcome(windows[0], clause(3, "3", "c"))
	failed.Succeeded = false
	if got := CountClauses([]Outcome{ok, failed}); got != 2 {
		t.Errorf("CountClauses() = %d, want 2", got)
	}
}
