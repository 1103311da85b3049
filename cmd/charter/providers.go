package main

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/charter/internal/output"
	"github.com/jackzampolin/charter/internal/providers"
)

// providerRow is one configured provider as listed by the providers command.
type providerRow struct {
	providers.ProviderInfo `yaml:",inline"`
	Enabled                bool `json:"enabled" yaml:"enabled"`
	Ready                  bool `json:"ready" yaml:"ready"` // Enabled with an API key
}

// providerRows lists every configured provider, marking which ones the
// registry could build.
func providerRows(regCfg providers.RegistryConfig, registry *providers.Registry) []providerRow {
	registered := make(map[string]providers.ProviderInfo)
	for _, info := range registry.List() {
		registered[info.Name] = info
	}

	names := make([]string, 0, len(regCfg.Providers))
	for name := range regCfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]providerRow, 0, len(names))
	for _, name := range names {
		cfg := regCfg.Providers[name]
		row := providerRow{Enabled: cfg.Enabled, Ready: registry.Has(name)}
		if info, ok := registered[name]; ok {
			row.ProviderInfo = info
		} else {
			row.ProviderInfo = providers.ProviderInfo{
				Name:      name,
				Type:      cfg.Type,
				Model:     cfg.Model,
				RateLimit: cfg.RateLimit,
				Default:   name == regCfg.Default,
			}
		}
		rows = append(rows, row)
	}
	return rows
}

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List configured providers and whether they are ready",
	Long: `List the providers from config. A provider is ready when it is enabled
and its API key resolves; an unset ${ENV_VAR} key is the usual reason one
is not. Ready providers with a rate limit show their request bucket.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		_, mgr, err := loadConfig(logger)
		if err != nil {
			return err
		}
		regCfg := mgr.Get().ToProviderRegistryConfig()
		registry := providers.NewRegistryFromConfig(regCfg, logger)
		defer registry.Close()
		return output.Print(providerRows(regCfg, registry))
	},
}
