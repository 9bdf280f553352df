package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/fit-agent/internal/breaker"
	"github.com/jonathan/fit-agent/internal/cache"
	"github.com/jonathan/fit-agent/internal/config"
	"github.com/jonathan/fit-agent/internal/fetch"
	"github.com/jonathan/fit-agent/internal/llm"
	"github.com/jonathan/fit-agent/internal/logger"
	"github.com/jonathan/fit-agent/internal/pipeline"
	"github.com/jonathan/fit-agent/internal/profile"
	"github.com/jonathan/fit-agent/internal/search"
)

// app is the process-wide dependency graph shared by every request.
type app struct {
	cfg          *config.Config
	logger       *zap.Logger
	breakers     *breaker.Set
	orchestrator *pipeline.Orchestrator
	closers      []func() error
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildApp wires config into clients, breakers and the orchestrator.
func buildApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: log}
	a.breakers = breaker.NewSet(cfg.Breakers, nil, log)

	prof, err := profile.Load(cfg.Profile.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate profile: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		return nil, errors.New("llm.api_key is required (set GEMINI_API_KEY)")
	}
	client, err := llm.NewClient(ctx, llmConfig(cfg.LLM), cfg.LLM.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	a.closers = append(a.closers, client.Close)
	guardedLLM := llm.NewGuarded(client, a.breakers.LLM, cfg.LLM.MaxConcurrent, log)

	var provider search.Provider
	if cfg.SearchEnabled() {
		google, err := search.NewGoogleProvider(ctx, cfg.Search.APIKey, cfg.Search.EngineID, cfg.Search.RateLimit)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create search provider: %w", err)
		}
		provider = search.NewGuarded(google, a.breakers.Search)
	} else {
		log.Warn("web search is not configured; assessments will rely on the query alone")
	}

	store, err := cache.Open(ctx, cfg.Cache.URL)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	a.closers = append(a.closers, store.Close)

	var render fetch.Renderer
	if cfg.Fetch.Browser {
		render = fetch.ChromeRenderer(cfg.Fetch.BrowserTimeout, log)
	}
	httpFetcher := fetch.NewHTTPFetcher(&fetch.Options{
		Timeout:   cfg.Fetch.Timeout,
		UserAgent: cfg.Fetch.UserAgent,
	}, render, log)
	fetcher := fetch.NewCachedFetcher(store, fetch.NewGuarded(httpFetcher, a.breakers.Fetch), cfg.Cache.TTL, log)

	a.orchestrator, err = pipeline.New(pipeline.Dependencies{
		LLM:     guardedLLM,
		Search:  provider,
		Fetcher: fetcher,
		Profile: prof,
		Logger:  log,
	}, pipelineOptions(cfg))
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases clients in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("failed to close dependency", zap.Error(err))
		}
	}
	a.closers = nil
}

func newLogger(cfg *config.Config, verbose bool) (*zap.Logger, error) {
	return logger.New(cfg.Log.JSON, cfg.Log.Debug || verbose)
}

func llmConfig(c config.LLMConfig) *llm.Config {
	out := llm.DefaultConfig()
	if c.Provider != "" {
		out.Provider = llm.Provider(c.Provider)
	}
	for tier, model := range c.Models {
		if model != "" {
			out = out.WithModel(llm.ModelTier(tier), model)
		}
	}
	if c.Temperature > 0 {
		out.Temperature = c.Temperature
	}
	return out
}

func pipelineOptions(cfg *config.Config) pipeline.Options {
	p := cfg.Pipeline
	return pipeline.Options{
		RequestTimeout: p.RequestTimeout,
		Policy: pipeline.Policy{
			MaxRetries:        p.MaxRetries,
			Precedence:        pipeline.Precedence(p.Precedence),
			MinOverrideSkills: pipeline.DefaultPolicy().MinOverrideSkills,
		},
		ResultsPerQuery:   int(cfg.Search.ResultsPerQuery),
		ScorerConcurrency: p.ScorerConcurrency,
		EnrichLimit:       p.EnrichLimit,
		EnrichConcurrency: p.EnrichConcurrency,
		Calibration:       cfg.Calibration,
	}
}
