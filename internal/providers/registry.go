package providers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// ErrUnknownProvider is returned when a name is not registered.
var ErrUnknownProvider = errors.New("unknown provider")

// Provider types understood by the registry.
const (
	TypeOpenRouter = OpenRouterName
	TypeOpenAI     = OpenAIName
	TypeGemini     = GeminiName
	TypeMock       = MockClientName
)

// Registry holds the configured gateways by name.
// It supports config-driven instantiation, hot-reload, and provides thread-safe access.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]*registryEntry
	fallback string
	logger   *slog.Logger

	// Replaced extractors may still be serving in-flight calls, so they
	// are closed with the registry rather than on reload.
	retired []Extractor
}

type registryEntry struct {
	cfg       ProviderConfig
	extractor Extractor
	limiter   *RateLimiter
}

// RegistryConfig defines the providers to instantiate from config.
// This mirrors the config.Config structure for provider setup.
type RegistryConfig struct {
	// Providers maps provider names to their config
	Providers map[string]ProviderConfig

	// Default names the provider used when none is requested.
	Default string
}

// ProviderConfig matches config.ProviderCfg with a resolved API key.
type ProviderConfig struct {
	Type        string // "openrouter", "openai", "gemini", "mock"
	Model       string
	APIKey      string // Resolved API key
	BaseURL     string
	RateLimit   int // Requests per minute, 0 = unlimited
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
	Enabled     bool
}

// ProviderInfo describes a registered provider for listings.
type ProviderInfo struct {
	Name      string `json:"name" yaml:"name"`
	Type      string `json:"type" yaml:"type"`
	Model     string `json:"model" yaml:"model"`
	RateLimit int    `json:"rate_limit" yaml:"rate_limit"`
	Default   bool   `json:"default" yaml:"default"`

	Limiter *RateLimiterStatus `json:"limiter,omitempty" yaml:"limiter,omitempty"`
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*registryEntry),
		logger:  slog.Default(),
	}
}

// NewRegistryFromConfig creates a registry with providers based on configuration.
// Only enabled providers with an API key (or of type mock) are registered.
func NewRegistryFromConfig(cfg RegistryConfig, logger *slog.Logger) *Registry {
	r := NewRegistry()
	if logger != nil {
		r.logger = logger
	}
	r.Reload(cfg)
	return r
}

// Register adds an already constructed extractor under name.
func (r *Registry) Register(name string, e Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.entries[name]; ok {
		r.retired = append(r.retired, existing.extractor)
	}
	r.entries[name] = &registryEntry{extractor: e, cfg: ProviderConfig{Type: e.Name(), Enabled: true}}
	r.logger.Info("registered provider", "name", name)
}

// Get returns a provider by name, wrapped with its rate limiter if one is
// configured.
func (r *Registry) Get(name string) (Extractor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s (registered: %v)", ErrUnknownProvider, name, r.namesLocked())
	}
	return WithRateLimit(entry.extractor, entry.limiter), nil
}

// Default returns the default provider.
func (r *Registry) Default() (Extractor, error) {
	r.mu.RLock()
	name := r.fallback
	r.mu.RUnlock()
	if name == "" {
		return nil, fmt.Errorf("%w: no default provider configured", ErrUnknownProvider)
	}
	return r.Get(name)
}

// Has checks if a provider is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// List returns registered providers sorted by name.
func (r *Registry) List() []ProviderInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]ProviderInfo, 0, len(r.entries))
	for _, name := range r.namesLocked() {
		entry := r.entries[name]
		model := entry.cfg.Model
		if m, ok := entry.extractor.(interface{ Model() string }); ok {
			model = m.Model()
		}
		info := ProviderInfo{
			Name:      name,
			Type:      entry.cfg.Type,
			Model:     model,
			RateLimit: entry.cfg.RateLimit,
			Default:   name == r.fallback,
		}
		if entry.limiter != nil {
			status := entry.limiter.Status()
			info.Limiter = &status
		}
		infos = append(infos, info)
	}
	return infos
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reload updates the registry based on new configuration.
// Providers that are no longer configured will be unregistered.
// Providers with changed settings will be re-registered.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[string]bool)
	for name, provCfg := range cfg.Providers {
		if !provCfg.Enabled {
			continue
		}
		if provCfg.APIKey == "" && provCfg.Type != TypeMock {
			r.logger.Debug("skipping provider without API key", "name", name, "type", provCfg.Type)
			continue
		}

		existing, hasExisting := r.entries[name]
		if hasExisting && existing.cfg == provCfg {
			want[name] = true
			continue
		}

		extractor, err := createExtractor(provCfg)
		if err != nil {
			r.logger.Warn("failed to create provider", "name", name, "type", provCfg.Type, "error", err)
			continue
		}
		want[name] = true
		if hasExisting {
			r.retired = append(r.retired, existing.extractor)
		}

		entry := &registryEntry{cfg: provCfg, extractor: extractor}
		if provCfg.RateLimit > 0 {
			entry.limiter = NewRateLimiter(provCfg.RateLimit)
		}
		r.entries[name] = entry

		if hasExisting {
			r.logger.Info("updated provider", "name", name, "type", provCfg.Type)
		} else {
			r.logger.Debug("registered provider", "name", name, "type", provCfg.Type, "model", provCfg.Model)
		}
	}

	// Remove providers that are no longer configured
	for name, entry := range r.entries {
		if !want[name] {
			r.retired = append(r.retired, entry.extractor)
			delete(r.entries, name)
			r.logger.Info("unregistered provider", "name", name)
		}
	}

	r.fallback = cfg.Default
}

// Close releases every provider that holds resources.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for _, entry := range r.entries {
		if err := closeExtractor(entry.extractor); err != nil {
			errs = append(errs, err)
		}
	}
	for _, e := range r.retired {
		if err := closeExtractor(e); err != nil {
			errs = append(errs, err)
		}
	}
	r.retired = nil
	return errors.Join(errs...)
}

func closeExtractor(e Extractor) error {
	if c, ok := e.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// createExtractor creates a gateway based on provider type.
func createExtractor(cfg ProviderConfig) (Extractor, error) {
	switch cfg.Type {
	case TypeOpenRouter:
		return NewOpenRouterClient(OpenRouterConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			Timeout:      cfg.Timeout,
			Temperature:  cfg.Temperature,
			MaxTokens:    cfg.MaxTokens,
		}), nil
	case TypeOpenAI:
		return NewOpenAIClient(OpenAIConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Timeout:     cfg.Timeout,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		}), nil
	case TypeGemini:
		return NewGeminiClient(GeminiConfig{
			APIKey:      cfg.APIKey,
			Endpoint:    cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		}), nil
	case TypeMock:
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unsupported provider type %q", cfg.Type)
	}
}
