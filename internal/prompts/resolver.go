package prompts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Resolver resolves prompts with file overrides.
// Resolution order: override file > embedded default.
type Resolver struct {
	embedded  map[string]EmbeddedPrompt
	overrides map[string]string
	mu        sync.RWMutex
	logger    *slog.Logger
}

// NewResolver creates a resolver with the built-in prompts registered.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{
		embedded:  make(map[string]EmbeddedPrompt),
		overrides: make(map[string]string),
		logger:    logger,
	}
	r.Register(EmbeddedPrompt{
		Key:         ClauseExtractionKey,
		Text:        clausePrompt,
		Description: "Clause extraction prompt for charter party PDFs",
	})
	return r
}

// Register registers an embedded prompt.
func (r *Resolver) Register(prompt EmbeddedPrompt) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prompt.Hash == "" {
		prompt.Hash = HashText(prompt.Text)
	}

	r.embedded[prompt.Key] = prompt
	r.logger.Debug("registered embedded prompt", "key", prompt.Key, "hash", prompt.Hash[:12])
}

// SetOverride makes key resolve to the contents of path. An empty path
// removes the override.
func (r *Resolver) SetOverride(key, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if path == "" {
		delete(r.overrides, key)
		return
	}
	r.overrides[key] = path
}

// Resolve returns the override for key if one is set, otherwise the embedded
// default. An unreadable or empty override file is an error rather than a
// silent fallback.
func (r *Resolver) Resolve(key string) (*ResolvedPrompt, error) {
	r.mu.RLock()
	path, hasOverride := r.overrides[key]
	embedded, hasEmbedded := r.embedded[key]
	r.mu.RUnlock()

	if hasOverride {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read prompt override for %s: %w", key, err)
		}
		text := string(data)
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("prompt override %s is empty", path)
		}
		r.logger.Info("using prompt override", "key", key, "path", path)
		return &ResolvedPrompt{
			Key:        key,
			Text:       text,
			IsOverride: true,
			Source:     path,
			Hash:       HashText(text),
		}, nil
	}

	if !hasEmbedded {
		return nil, fmt.Errorf("prompt not found: %s", key)
	}
	return &ResolvedPrompt{
		Key:       key,
		Text:      embedded.Text,
		Source:    "embedded",
		Hash:      embedded.Hash,
	}, nil
}

// HashText returns a SHA256 hash of the text for change detection.
func HashText(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
