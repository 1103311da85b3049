package extract

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackzampolin/charter/internal/providers"
)

// MinExpectedClauses is the clause count below which a run is suspicious.
// Charter parties rarely have fewer numbered clauses.
const MinExpectedClauses = 10

// Clause is one entry of the final output.
type Clause struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
	Text  string `json:"text" yaml:"text"`
}

// Transform converts merged clauses to output clauses, keeping their order.
// Empty-text clauses are dropped, a missing clause number becomes
// unknown_{index} and repeated ids get _2, _3, ... suffixes. The title
// defaults to the id. Returned warnings are also logged.
func Transform(merged []providers.Clause, logger *slog.Logger) ([]Clause, []string) {
	if logger == nil {
		logger = slog.Default()
	}

	var warnings []string
	out := make([]Clause, 0, len(merged))
	seen := make(map[string]int)
	skipped := 0

	for idx, raw := range merged {
		text := strings.TrimSpace(raw.Text)
		if text == "" {
			logger.Warn("skipping clause with empty text", "clause_number", raw.ClauseNumber, "page", raw.Page)
			warnings = append(warnings, fmt.Sprintf("clause %q on page %d skipped: empty text", raw.ClauseNumber, raw.Page))
			skipped++
			continue
		}

		id := strings.TrimSpace(raw.ClauseNumber)
		if id == "" {
			id = fmt.Sprintf("unknown_%d", idx)
			logger.Warn("clause has no clause_number", "index", idx, "id", id)
			warnings = append(warnings, fmt.Sprintf("clause at index %d has no clause number, using %s", idx, id))
		}

		if n, dup := seen[id]; dup {
			seen[id] = n + 1
			renamed := fmt.Sprintf("%s_%d", id, n+1)
			logger.Debug("duplicate clause id renamed", "id", id, "renamed", renamed)
			id = renamed
		} else {
			seen[id] = 1
		}

		title := strings.TrimSpace(raw.Title)
		if title == "" {
			title = id
		}

		out = append(out, Clause{ID: id, Title: title, Text: text})
	}

	if skipped > 0 {
		logger.Info("skipped clauses with empty text", "count", skipped)
	}
	if len(out) < MinExpectedClauses {
		logger.Warn("few clauses extracted, extraction may have failed", "count", len(out))
		warnings = append(warnings, fmt.Sprintf("only %d clauses extracted, extraction may have failed", len(out)))
	}
	return out, warnings
}
