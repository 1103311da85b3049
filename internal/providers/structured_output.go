package providers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/text/unicode/norm"

	"github.com/jackzampolin/charter/internal/prompts"
)

var (
	clauseSchemaOnce sync.Once
	clauseSchema     *jsonschema.Schema
	clauseSchemaErr  error
)

// decodeClauses turns raw model output into clauses. Any failure is a parse
// error so the caller may ask again.
func decodeClauses(provider, content string) ([]Clause, error) {
	parsed, err := parseStructuredJSON(content)
	if err != nil {
		return nil, parseError(provider, "response is not JSON", err)
	}

	// Some models answer with the bare array.
	if bytes.HasPrefix(parsed, []byte("[")) {
		parsed = append(append([]byte(`{"clauses":`), parsed...), '}')
	}

	if err := validateStructuredJSON(parsed); err != nil {
		return nil, parseError(provider, "response does not match clause schema", err)
	}

	var doc struct {
		Clauses []Clause `json:"clauses"`
	}
	if err := json.Unmarshal(parsed, &doc); err != nil {
		return nil, parseError(provider, "failed to decode clauses", err)
	}

	for i := range doc.Clauses {
		c := &doc.Clauses[i]
		c.ClauseNumber = norm.NFC.String(c.ClauseNumber)
		c.Text = norm.NFC.String(c.Text)
		c.Title = norm.NFC.String(c.Title)
	}
	if doc.Clauses == nil {
		doc.Clauses = []Clause{}
	}
	return doc.Clauses, nil
}

// parseStructuredJSON parses JSON from model output, with lightweight recovery
// for markdown code fences and surrounding text.
func parseStructuredJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty structured output")
	}

	candidates := []string{content}
	if stripped := stripCodeFences(content); stripped != "" && stripped != content {
		candidates = append(candidates, stripped)
	}
	if extracted := extractJSONCandidate(content); extracted != "" && extracted != content {
		candidates = append(candidates, extracted)
	}

	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if _, ok := seen[candidate]; ok {
			continue
		}
		seen[candidate] = struct{}{}

		var parsed any
		if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
			normalized, mErr := json.Marshal(parsed)
			if mErr != nil {
				return nil, fmt.Errorf("failed to normalize structured output: %w", mErr)
			}
			return normalized, nil
		}
	}

	return nil, fmt.Errorf("failed to parse structured JSON")
}

func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return ""
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return ""
	}

	// Drop first fence line.
	lines = lines[1:]
	// Drop trailing fence if present.
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func extractJSONCandidate(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ""
	}

	objectStart := strings.Index(trimmed, "{")
	arrayStart := strings.Index(trimmed, "[")

	start := -1
	closeChar := ""
	switch {
	case objectStart >= 0 && arrayStart >= 0:
		if objectStart < arrayStart {
			start = objectStart
			closeChar = "}"
		} else {
			start = arrayStart
			closeChar = "]"
		}
	case objectStart >= 0:
		start = objectStart
		closeChar = "}"
	case arrayStart >= 0:
		start = arrayStart
		closeChar = "]"
	default:
		return ""
	}

	end := strings.LastIndex(trimmed, closeChar)
	if end < start {
		return ""
	}
	return strings.TrimSpace(trimmed[start : end+1])
}

// validateStructuredJSON validates parsed JSON against the clause schema.
func validateStructuredJSON(parsed json.RawMessage) error {
	clauseSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("clauses.json", bytes.NewReader(prompts.ClauseSchemaJSON())); err != nil {
			clauseSchemaErr = fmt.Errorf("failed to load clause schema: %w", err)
			return
		}
		clauseSchema, clauseSchemaErr = compiler.Compile("clauses.json")
		if clauseSchemaErr != nil {
			clauseSchemaErr = fmt.Errorf("failed to compile clause schema: %w", clauseSchemaErr)
		}
	})
	if clauseSchemaErr != nil {
		return clauseSchemaErr
	}

	var doc any
	if err := json.Unmarshal(parsed, &doc); err != nil {
		return fmt.Errorf("failed to decode structured JSON for validation: %w", err)
	}
	if err := clauseSchema.Validate(doc); err != nil {
		return fmt.Errorf("structured output does not match schema: %w", err)
	}
	return nil
}
