// Package prompts provides the clause extraction prompt with an optional
// file override.
//
// Resolution order:
//  1. Override file (prompt_file in config or --prompt-file)
//  2. Embedded default (clauses.tmpl)
//
// The page-context suffix is always appended per window by WithPageContext.
package prompts

// EmbeddedPrompt represents a prompt loaded from an embedded .tmpl file.
type EmbeddedPrompt struct {
	Key         string // Hierarchical key: clauses.extract
	Text        string // The prompt text
	Description string // Human-readable description
	Hash        string // SHA256 hash of the text for change detection
}

// ResolvedPrompt is the prompt text used for a run.
type ResolvedPrompt struct {
	Key        string `json:"key" yaml:"key"`
	Text       string `json:"-" yaml:"-"`
	IsOverride bool   `json:"is_override" yaml:"is_override"` // true if read from an override file
	Source     string `json:"source" yaml:"source"`           // override path or "embedded"
	Hash       string `json:"hash" yaml:"hash"`
}
