package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/jackzampolin/charter/internal/config"
	"github.com/jackzampolin/charter/internal/extract"
	"github.com/jackzampolin/charter/internal/home"
	"github.com/jackzampolin/charter/internal/output"
	"github.com/jackzampolin/charter/internal/pages"
	"github.com/jackzampolin/charter/internal/pdf"
	"github.com/jackzampolin/charter/internal/prompts"
	"github.com/jackzampolin/charter/internal/providers"
)

// selection picks the gateway and prompt for a run. Empty fields fall back
// to config.
type selection struct {
	provider   string
	model      string
	promptFile string
}

// providerName returns the requested provider or the configured default.
func (s selection) providerName(cfg *config.Config) string {
	if s.provider != "" {
		return s.provider
	}
	return cfg.Defaults.Provider
}

// registryConfig converts cfg for the provider registry, applying a model
// override to the selected provider.
func (s selection) registryConfig(cfg *config.Config) (providers.RegistryConfig, error) {
	regCfg := cfg.ToProviderRegistryConfig()
	name := s.providerName(cfg)
	p, ok := regCfg.Providers[name]
	if !ok {
		return regCfg, fmt.Errorf("%w: %s is not configured", providers.ErrUnknownProvider, name)
	}
	if s.model != "" {
		p.Model = s.model
		regCfg.Providers[name] = p
	}
	return regCfg, nil
}

// newPipeline builds a pipeline around the selected gateway from registry.
func newPipeline(registry *providers.Registry, cfg *config.Config, sel selection, logger *slog.Logger) (*extract.Pipeline, error) {
	name := sel.providerName(cfg)
	if !registry.Has(name) {
		return nil, fmt.Errorf("%w: %s is disabled or has no API key", providers.ErrUnknownProvider, name)
	}
	var extractor providers.Extractor
	var err error
	if sel.provider == "" {
		extractor, err = registry.Default()
	} else {
		extractor, err = registry.Get(sel.provider)
	}
	if err != nil {
		return nil, err
	}

	promptFile := sel.promptFile
	if promptFile == "" {
		promptFile = cfg.Defaults.PromptFile
	}
	resolver := prompts.NewResolver(logger)
	resolver.SetOverride(prompts.ClauseExtractionKey, promptFile)
	prompt, err := resolver.Resolve(prompts.ClauseExtractionKey)
	if err != nil {
		return nil, err
	}
	logger.Debug("resolved prompt", "source", prompt.Source, "hash", prompt.Hash[:12])

	return extract.New(extract.Config{
		Extractor:    extractor,
		Prompt:       prompt.Text,
		PromptSource: prompt.Source,
		Logger:       logger,
	})
}

// destination says where a run's files go.
type destination struct {
	clausesPath string
	format      output.Format
	rawPath     string // Empty skips the raw response
}

// defaultDestination places output under the configured output directory,
// or the home output directory when none is configured.
func defaultDestination(h *home.Dir, cfg *config.Config, docPath string) (destination, error) {
	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return destination{}, err
	}
	dest := destination{
		clausesPath: h.ClausesPath(docPath, format.Extension()),
		format:      format,
	}
	if cfg.Output.Raw {
		dest.rawPath = h.RawPath(docPath)
	}
	if cfg.Output.Dir != "" {
		dest.clausesPath = filepath.Join(cfg.Output.Dir, filepath.Base(dest.clausesPath))
		if dest.rawPath != "" {
			dest.rawPath = filepath.Join(cfg.Output.Dir, filepath.Base(dest.rawPath))
		}
	}
	return dest, nil
}

// extractDocument runs the pipeline over the PDF at docPath and writes the
// results to dest. Errors carry the exit code they should produce.
func extractDocument(ctx context.Context, pipeline *extract.Pipeline, docPath string, opts extract.Options, dest destination) (*extract.Result, error) {
	doc, err := pdf.Open(docPath)
	if err != nil {
		return nil, withExitCode(exitUsage, err)
	}

	result, err := pipeline.Run(ctx, doc, opts)
	if err != nil {
		if errors.Is(err, pages.ErrInvalidRange) || errors.Is(err, pages.ErrInvalidConfig) {
			return nil, withExitCode(exitUsage, err)
		}
		return nil, withExitCode(exitExtraction, err)
	}

	if err := output.SaveClauses(dest.clausesPath, dest.format, result.Clauses); err != nil {
		return nil, withExitCode(exitUsage, fmt.Errorf("write clauses: %w", err))
	}
	if dest.rawPath != "" {
		if err := output.SaveRaw(dest.rawPath, result.Merged); err != nil {
			return nil, withExitCode(exitUsage, fmt.Errorf("write raw response: %w", err))
		}
	}
	return result, nil
}
