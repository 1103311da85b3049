package config

import (
	"errors"
	"testing"
)

func TestDefaultEntries(t *testing.T) {
	entries := DefaultEntries()

	if len(entries) == 0 {
		t.Fatal("DefaultEntries() returned empty slice")
	}

	requiredKeys := []string{
		"defaults.provider",
		"batch.batch_size",
		"batch.overlap",
		"batch.parallel",
		"batch.max_workers",
		"batch.max_retries",
		"batch.retry_delay_seconds",
		"output.format",
		"providers.openrouter.type",
		"providers.openrouter.api_key",
		"providers.gemini.model",
		"providers.openai.enabled",
	}

	keys := make(map[string]bool)
	for _, e := range entries {
		if keys[e.Key] {
			t.Errorf("duplicate key %s", e.Key)
		}
		keys[e.Key] = true
		if err := ValidateKey(e.Key); err != nil {
			t.Errorf("default key %s is invalid: %v", e.Key, err)
		}
		if e.Description == "" {
			t.Errorf("key %s has no description", e.Key)
		}
	}

	for _, key := range requiredKeys {
		if !keys[key] {
			t.Errorf("DefaultEntries() missing required key: %s", key)
		}
	}
}

func TestGetDefault(t *testing.T) {
	t.Run("existing_key", func(t *testing.T) {
		entry, err := GetDefault("batch.overlap")
		if err != nil {
			t.Fatalf("GetDefault() error = %v", err)
		}
		if entry.Value != 2 {
			t.Errorf("GetDefault() Value = %v, want 2", entry.Value)
		}
	})

	t.Run("non_existent_key", func(t *testing.T) {
		_, err := GetDefault("does.not.exist")
		if !errors.Is(err, ErrNoDefault) {
			t.Errorf("GetDefault() error = %v, want ErrNoDefault", err)
		}
	})
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key string
		ok  bool
	}{
		{"batch.batch_size", true},
		{"providers.open-router.model", true},
		{"", false},
		{".batch", false},
		{"batch.", false},
		{"batch size", false},
		{"batch/size", false},
	}
	for _, tt := range tests {
		err := ValidateKey(tt.key)
		if (err == nil) != tt.ok {
			t.Errorf("ValidateKey(%q) error = %v, want ok = %v", tt.key, err, tt.ok)
		}
		if err != nil && !errors.Is(err, ErrInvalidKey) {
			t.Errorf("ValidateKey(%q) error does not wrap ErrInvalidKey", tt.key)
		}
	}
}
