package config

import (
	"fmt"
	"time"

	"github.com/jackzampolin/charter/internal/batch"
	"github.com/jackzampolin/charter/internal/extract"
	"github.com/jackzampolin/charter/internal/output"
	"github.com/jackzampolin/charter/internal/providers"
)

// Config holds charter configuration.
// Stored at: ~/.charter/config.yaml or ./config.yaml
type Config struct {
	Providers map[string]ProviderCfg `mapstructure:"providers" yaml:"providers"`
	Defaults  DefaultsCfg            `mapstructure:"defaults" yaml:"defaults"`
	Batch     BatchCfg               `mapstructure:"batch" yaml:"batch"`
	Output    OutputCfg              `mapstructure:"output" yaml:"output"`
}

// ProviderCfg configures an extraction gateway.
type ProviderCfg struct {
	Type           string  `mapstructure:"type" yaml:"type"`                       // "openrouter", "openai", "gemini", "mock"
	Model          string  `mapstructure:"model" yaml:"model"`                     // Model name
	APIKey         string  `mapstructure:"api_key" yaml:"api_key"`                 // API key (supports ${ENV_VAR} syntax)
	BaseURL        string  `mapstructure:"base_url" yaml:"base_url,omitempty"`     // Optional endpoint override
	RateLimit      int     `mapstructure:"rate_limit" yaml:"rate_limit"`           // Requests per minute, 0 = unlimited
	TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"` // HTTP timeout per call
	MaxTokens      int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature    float64 `mapstructure:"temperature" yaml:"temperature"`
	Enabled        bool    `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg specifies default selections.
type DefaultsCfg struct {
	Provider   string `mapstructure:"provider" yaml:"provider"`       // Default gateway
	PromptFile string `mapstructure:"prompt_file" yaml:"prompt_file"` // Replaces the built-in prompt when set
}

// BatchCfg controls page windowing and execution.
type BatchCfg struct {
	BatchSize         int     `mapstructure:"batch_size" yaml:"batch_size"` // 0 disables batching
	Overlap           int     `mapstructure:"overlap" yaml:"overlap"`
	Parallel          bool    `mapstructure:"parallel" yaml:"parallel"`
	MaxWorkers        int     `mapstructure:"max_workers" yaml:"max_workers"`
	MaxRetries        int     `mapstructure:"max_retries" yaml:"max_retries"` // Attempts per window
	RetryDelaySeconds float64 `mapstructure:"retry_delay_seconds" yaml:"retry_delay_seconds"`
}

// OutputCfg controls where results are written.
type OutputCfg struct {
	Format string `mapstructure:"format" yaml:"format"` // json, yaml or xlsx
	Dir    string `mapstructure:"dir" yaml:"dir"`       // Empty means ~/.charter/output
	Raw    bool   `mapstructure:"raw" yaml:"raw"`       // Also write the merged raw response
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Providers: map[string]ProviderCfg{
			"openrouter": {
				Type:           providers.TypeOpenRouter,
				Model:          providers.OpenRouterDefaultModel,
				APIKey:         "${OPENROUTER_API_KEY}",
				RateLimit:      60,
				TimeoutSeconds: 300,
				MaxTokens:      providers.DefaultMaxTokens,
				Temperature:    providers.DefaultTemperature,
				Enabled:        true,
			},
			"openai": {
				Type:           providers.TypeOpenAI,
				Model:          providers.OpenAIDefaultModel,
				APIKey:         "${OPENAI_API_KEY}",
				RateLimit:      60,
				TimeoutSeconds: 300,
				MaxTokens:      providers.DefaultMaxTokens,
				Temperature:    providers.DefaultTemperature,
				Enabled:        true,
			},
			"gemini": {
				Type:           providers.TypeGemini,
				Model:          providers.GeminiDefaultModel,
				APIKey:         "${GEMINI_API_KEY}",
				RateLimit:      60,
				TimeoutSeconds: 300,
				MaxTokens:      providers.DefaultMaxTokens,
				Temperature:    providers.DefaultTemperature,
				Enabled:        true,
			},
		},
		Defaults: DefaultsCfg{
			Provider: "openrouter",
		},
		Batch: BatchCfg{
			BatchSize:         10,
			Overlap:           2,
			Parallel:          false,
			MaxWorkers:        batch.DefaultMaxWorkers,
			MaxRetries:        batch.DefaultMaxRetries,
			RetryDelaySeconds: batch.DefaultRetryDelay.Seconds(),
		},
		Output: OutputCfg{
			Format: string(output.FormatJSON),
		},
	}
}

// Validate checks the batch and output sections.
func (c *Config) Validate() error {
	b := c.Batch
	if b.BatchSize < 0 {
		return fmt.Errorf("batch.batch_size (%d) must not be negative", b.BatchSize)
	}
	if b.Overlap < 0 {
		return fmt.Errorf("batch.overlap (%d) must not be negative", b.Overlap)
	}
	if b.BatchSize > 0 && b.BatchSize <= b.Overlap {
		return fmt.Errorf("batch.batch_size (%d) must be greater than batch.overlap (%d)", b.BatchSize, b.Overlap)
	}
	if b.MaxWorkers < 1 {
		return fmt.Errorf("batch.max_workers (%d) must be at least 1", b.MaxWorkers)
	}
	if b.MaxRetries < 1 {
		return fmt.Errorf("batch.max_retries (%d) must be at least 1", b.MaxRetries)
	}
	if b.RetryDelaySeconds < 0 {
		return fmt.Errorf("batch.retry_delay_seconds (%g) must not be negative", b.RetryDelaySeconds)
	}
	if _, err := output.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}
	return nil
}

// GetProvider returns a provider config by name.
func (c *Config) GetProvider(name string) (ProviderCfg, bool) {
	cfg, ok := c.Providers[name]
	return cfg, ok
}

// EnabledProviders returns all enabled providers.
func (c *Config) EnabledProviders() map[string]ProviderCfg {
	result := make(map[string]ProviderCfg)
	for name, cfg := range c.Providers {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// ExtractOptions converts the batch section to pipeline options.
func (c *Config) ExtractOptions() extract.Options {
	opts := extract.DefaultOptions()
	opts.BatchSize = c.Batch.BatchSize
	opts.Overlap = c.Batch.Overlap
	opts.Mode = batch.Mode{Parallel: c.Batch.Parallel, MaxWorkers: c.Batch.MaxWorkers}
	opts.Retry = batch.RetryPolicy{
		MaxRetries: c.Batch.MaxRetries,
		RetryDelay: time.Duration(c.Batch.RetryDelaySeconds * float64(time.Second)),
	}
	return opts
}

// ToProviderRegistryConfig converts the config to a format suitable for providers.Registry.
// It resolves all ${ENV_VAR} references in API keys.
func (c *Config) ToProviderRegistryConfig() providers.RegistryConfig {
	cfg := providers.RegistryConfig{
		Providers: make(map[string]providers.ProviderConfig, len(c.Providers)),
		Default:   c.Defaults.Provider,
	}
	for name, p := range c.Providers {
		cfg.Providers[name] = providers.ProviderConfig{
			Type:        p.Type,
			Model:       p.Model,
			APIKey:      ResolveEnvVars(p.APIKey),
			BaseURL:     p.BaseURL,
			RateLimit:   p.RateLimit,
			Timeout:     time.Duration(p.TimeoutSeconds) * time.Second,
			MaxTokens:   p.MaxTokens,
			Temperature: p.Temperature,
			Enabled:     p.Enabled,
		}
	}
	return cfg
}
