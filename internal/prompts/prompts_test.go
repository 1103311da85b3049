package prompts

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWithPageContext(t *testing.T) {
	got := WithPageContext("BASE", 14, 23)

	if !strings.HasPrefix(got, "BASE") {
		t.Errorf("prompt does not start with base text: %q", got[:20])
	}
	for _, want := range []string{"pages 14-23", "10 pages", "page 10"} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}
}

func TestClauseExtraction(t *testing.T) {
	text := ClauseExtraction()
	for _, want := range []string{"clause_number", "struck through", `"clauses"`} {
		if !strings.Contains(text, want) {
			t.Errorf("clause prompt missing %q", want)
		}
	}
}

func TestClauseSchemaJSON(t *testing.T) {
	var schema map[string]any
	if err := json.Unmarshal(ClauseSchemaJSON(), &schema); err != nil {
		t.Fatalf("schema is not valid JSON: %v", err)
	}
	if schema["type"] != "object" {
		t.Errorf("schema type = %v, want object", schema["type"])
	}
}

func TestResolver(t *testing.T) {
	t.Run("embedded default", func(t *testing.T) {
		r := NewResolver(nil)
		p, err := r.Resolve(ClauseExtractionKey)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if p.IsOverride {
			t.Error("expected embedded prompt")
		}
		if p.Text != ClauseExtraction() {
			t.Error("resolved text differs from embedded prompt")
		}
		if p.Hash != HashText(ClauseExtraction()) {
			t.Error("hash mismatch")
		}
	})

	t.Run("override file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prompt.md")
		if err := os.WriteFile(path, []byte("Find clauses in {{.Doc}}"), 0o644); err != nil {
			t.Fatal(err)
		}

		r := NewResolver(nil)
		r.SetOverride(ClauseExtractionKey, path)
		p, err := r.Resolve(ClauseExtractionKey)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !p.IsOverride || p.Source != path {
			t.Errorf("got IsOverride=%v Source=%q", p.IsOverride, p.Source)
		}
		if p.Hash != HashText("Find clauses in {{.Doc}}") {
			t.Errorf("Hash = %s, want hash of the override text", p.Hash)
		}

		r.SetOverride(ClauseExtractionKey, "")
		p, err = r.Resolve(ClauseExtractionKey)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if p.IsOverride {
			t.Error("override still active after clearing")
		}
	})

	t.Run("empty override file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.md")
		if err := os.WriteFile(path, []byte("  \n"), 0o644); err != nil {
			t.Fatal(err)
		}
		r := NewResolver(nil)
		r.SetOverride(ClauseExtractionKey, path)
		if _, err := r.Resolve(ClauseExtractionKey); err == nil {
			t.Error("expected error for empty override")
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		if _, err := NewResolver(nil).Resolve("nope"); err == nil {
			t.Error("expected error for unknown key")
		}
	})
}
