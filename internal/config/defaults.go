package config

import (
	"errors"
	"fmt"
	"sort"
	"unicode"
)

var (
	// ErrNoDefault is returned when no default value exists for a config key.
	ErrNoDefault = errors.New("no default exists")

	// ErrUnknownKey is returned when a key is neither defaulted nor configured.
	ErrUnknownKey = errors.New("unknown config key")

	// ErrInvalidKey is returned when a config key contains invalid characters.
	ErrInvalidKey = errors.New("invalid config key")
)

// Entry is a documented configuration key and its default value.
type Entry struct {
	Key         string `json:"key" yaml:"key"`
	Value       any    `json:"value" yaml:"value"`
	Description string `json:"description" yaml:"description"`
}

// ValidateKey checks if a config key contains only allowed characters.
// Valid keys contain: letters, digits, dots, underscores, and hyphens.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	for i, r := range key {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '_' && r != '-' {
			return fmt.Errorf("%w: invalid character %q at position %d", ErrInvalidKey, r, i)
		}
	}
	// Don't allow keys starting or ending with dots
	if key[0] == '.' || key[len(key)-1] == '.' {
		return fmt.Errorf("%w: key cannot start or end with a dot", ErrInvalidKey)
	}
	return nil
}

// DefaultEntries returns every leaf key of DefaultConfig with a description.
// These seed viper's defaults, so environment overrides work for each key.
func DefaultEntries() []Entry {
	cfg := DefaultConfig()
	entries := []Entry{
		// ===================
		// Pipeline Defaults
		// ===================
		{
			Key:         "defaults.provider",
			Value:       cfg.Defaults.Provider,
			Description: "Gateway used when --provider is not given",
		},
		{
			Key:         "defaults.prompt_file",
			Value:       cfg.Defaults.PromptFile,
			Description: "Path to a prompt file replacing the built-in clause prompt",
		},

		// ===================
		// Batching
		// ===================
		{
			Key:         "batch.batch_size",
			Value:       cfg.Batch.BatchSize,
			Description: "Pages per window; 0 sends the whole range in one request",
		},
		{
			Key:         "batch.overlap",
			Value:       cfg.Batch.Overlap,
			Description: "Pages shared by consecutive windows; must be below batch_size",
		},
		{
			Key:         "batch.parallel",
			Value:       cfg.Batch.Parallel,
			Description: "Run windows concurrently",
		},
		{
			Key:         "batch.max_workers",
			Value:       cfg.Batch.MaxWorkers,
			Description: "Concurrent windows when parallel is enabled",
		},
		{
			Key:         "batch.max_retries",
			Value:       cfg.Batch.MaxRetries,
			Description: "Gateway attempts per window",
		},
		{
			Key:         "batch.retry_delay_seconds",
			Value:       cfg.Batch.RetryDelaySeconds,
			Description: "Wait before the second attempt; doubles for each further attempt",
		},

		// ===================
		// Output
		// ===================
		{
			Key:         "output.format",
			Value:       cfg.Output.Format,
			Description: "Clause file format: json, yaml or xlsx",
		},
		{
			Key:         "output.dir",
			Value:       cfg.Output.Dir,
			Description: "Directory for clause files; empty uses ~/.charter/output",
		},
		{
			Key:         "output.raw",
			Value:       cfg.Output.Raw,
			Description: "Also write the merged raw response as JSON",
		},
	}

	// ===================
	// Providers
	// ===================
	names := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := cfg.Providers[name]
		prefix := "providers." + name + "."
		entries = append(entries,
			Entry{Key: prefix + "type", Value: p.Type, Description: fmt.Sprintf("Gateway type for %s", name)},
			Entry{Key: prefix + "model", Value: p.Model, Description: fmt.Sprintf("Model used through %s", name)},
			Entry{Key: prefix + "api_key", Value: p.APIKey, Description: fmt.Sprintf("%s API key (uses environment variable)", name)},
			Entry{Key: prefix + "rate_limit", Value: p.RateLimit, Description: "Requests per minute, 0 = unlimited"},
			Entry{Key: prefix + "timeout_seconds", Value: p.TimeoutSeconds, Description: "HTTP timeout in seconds per request"},
			Entry{Key: prefix + "max_tokens", Value: p.MaxTokens, Description: "Maximum completion tokens per request"},
			Entry{Key: prefix + "temperature", Value: p.Temperature, Description: "Sampling temperature"},
			Entry{Key: prefix + "enabled", Value: p.Enabled, Description: fmt.Sprintf("Whether %s is available", name)},
		)
	}
	return entries
}

// GetDefault returns the default entry for a config key.
// Returns ErrNoDefault if no default exists for the key.
func GetDefault(key string) (*Entry, error) {
	for _, entry := range DefaultEntries() {
		if entry.Key == key {
			return &entry, nil
		}
	}
	return nil, fmt.Errorf("%w for key %q", ErrNoDefault, key)
}
