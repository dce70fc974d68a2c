// Package handlers holds the CLI subcommands and the wiring that
// assembles the domain services behind them.
package handlers

import (
	"fmt"
	"os"
	"time"

	"newswatch/internal/analysiscache"
	"newswatch/internal/analyzer"
	"newswatch/internal/collector"
	"newswatch/internal/config"
	"newswatch/internal/core"
	"newswatch/internal/ingest"
	"newswatch/internal/llm"
	"newswatch/internal/logger"
	"newswatch/internal/mediabias"
	"newswatch/internal/monitor"
	"newswatch/internal/prompts"
	"newswatch/internal/relevance"
	"newswatch/internal/scrape"
	"newswatch/internal/store"
	"newswatch/internal/tasks"
	"newswatch/internal/vectorstore"
)

var cfgFile *string

// SetConfigFile shares the root command's --config flag with the handlers.
func SetConfigFile(path *string) {
	cfgFile = path
}

// App holds every wired service for a command invocation.
type App struct {
	Config    *config.Config
	Store     *store.Store
	LLM       *llm.Client
	Cache     *analysiscache.Cache
	Analyzer  *analyzer.Analyzer
	Relevance *relevance.Calculator
	Bias      *mediabias.Registry
	Fetcher   *scrape.Fetcher
	Memory    *vectorstore.MemoryStore
	Vectors   *vectorstore.Async
	Ingest    *ingest.Service
	Monitor   *monitor.Monitor
	Tasks     *tasks.Manager
}

// BuildApp loads configuration and wires the full service graph.
func BuildApp() (*App, error) {
	configPath := ""
	if cfgFile != nil {
		configPath = *cfgFile
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	st, err := store.NewStore(cfg.App.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	client := llm.NewClient(cfg)

	registry := prompts.NewRegistry()
	// Optional operator overrides live next to the database.
	customPrompts := cfg.App.DataDir + "/prompts.json"
	if _, statErr := os.Stat(customPrompts); statErr == nil {
		if err := registry.LoadCustomTemplates(customPrompts); err != nil {
			logger.Warn("failed to load custom prompt templates", map[string]any{"path": customPrompts, "error": err.Error()})
		}
	}

	ttl := analysiscache.DefaultTTL
	if cfg.Cache.TTL != "" {
		if parsed, err := time.ParseDuration(cfg.Cache.TTL); err == nil {
			ttl = parsed
		}
	}
	cacheDir := cfg.Cache.Directory
	if cacheDir == "" {
		cacheDir = cfg.App.DataDir + "/analysis-cache"
	}
	cache, err := analysiscache.New(cacheDir, ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to open analysis cache: %w", err)
	}

	settings, err := st.GetMonitorSettings()
	if err != nil {
		return nil, err
	}

	an := analyzer.New(client, registry, cache, settings.DefaultLLMModel)
	an.SetOptions(settings.LLMTemperature, settings.LLMMaxTokens)
	rel := relevance.NewCalculator(client, registry, settings.DefaultLLMModel)
	bias := mediabias.NewRegistry(st)
	fetcher := scrape.NewFetcher(
		scrape.NewBatchClient(cfg.Scrape.BatchBaseURL, cfg.Scrape.BatchAPIKey),
		scrape.NewScraper(),
	)
	mem := vectorstore.NewMemoryStore(client)
	if err := mem.Load(cfg.Vector.Dir); err != nil {
		logger.Warn("failed to load vector snapshot", map[string]any{"dir": cfg.Vector.Dir, "error": err.Error()})
	}
	vectors := vectorstore.NewAsync(mem, 4)
	quality := ingest.NewReviewer(client, registry, settings.DefaultLLMModel)
	svc := ingest.NewService(st, bias, fetcher, an, rel, quality, vectors)

	factory := func(settings core.MonitorSettings) (collector.Provider, error) {
		return collector.New(settings.Provider, cfg.Providers, collector.SearchParams{
			SearchFields: settings.SearchFields,
			Language:     settings.Language,
			SortBy:       settings.SortBy,
		})
	}
	mon := monitor.New(st, factory)

	manager := tasks.NewManager(cfg.Tasks.MaxConcurrent)

	return &App{
		Config:    cfg,
		Store:     st,
		LLM:       client,
		Cache:     cache,
		Analyzer:  an,
		Relevance: rel,
		Bias:      bias,
		Fetcher:   fetcher,
		Memory:    mem,
		Vectors:   vectors,
		Ingest:    svc,
		Monitor:   mon,
		Tasks:     manager,
	}, nil
}

// Close releases the app's resources and snapshots the vector index.
func (a *App) Close() {
	a.Tasks.Shutdown()
	if err := a.Memory.Save(a.Config.Vector.Dir); err != nil {
		logger.Warn("failed to save vector snapshot", map[string]any{"dir": a.Config.Vector.Dir, "error": err.Error()})
	}
	_ = a.Store.Close()
}
