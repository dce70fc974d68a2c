// Package analyzer turns raw article text into a structured classification
// via the content-analysis prompt, with caching keyed on content and prompt
// bundle hashes so identical inputs cost one LLM call.
package analyzer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"newswatch/internal/analysiscache"
	"newswatch/internal/core"
	"newswatch/internal/errkind"
	"newswatch/internal/llm"
	"newswatch/internal/logger"
	"newswatch/internal/prompts"
)

// titleExcerptChars bounds the text sent for title extraction; the headline
// is in the opening of the document.
const titleExcerptChars = 2000

// Analyzer holds the LLM client, prompt registry, and analysis cache.
type Analyzer struct {
	gen      llm.Generator
	registry *prompts.Registry
	cache    *analysiscache.Cache
	model    string
	opts     llm.Options
}

// New builds an analyzer. cache may be nil to disable caching.
func New(gen llm.Generator, registry *prompts.Registry, cache *analysiscache.Cache, model string) *Analyzer {
	if model == "" {
		model = llm.DefaultModel
	}
	return &Analyzer{
		gen:      gen,
		registry: registry,
		cache:    cache,
		model:    model,
		opts:     llm.Options{Model: model},
	}
}

// SetOptions overrides temperature and token limits for subsequent calls.
func (a *Analyzer) SetOptions(temperature float64, maxTokens int) {
	a.opts.Temperature = temperature
	a.opts.MaxTokens = maxTokens
}

// ExtractTitle asks the LLM for the article headline using the opening of
// the text.
func (a *Analyzer) ExtractTitle(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: no text to extract title from", errkind.ErrValidation)
	}
	excerpt := core.TruncateAtWord(text, titleExcerptChars)
	messages, err := a.registry.FormatTitleExtraction(excerpt)
	if err != nil {
		return "", err
	}
	response, err := a.gen.Generate(ctx, messages, a.opts)
	if err != nil {
		return "", fmt.Errorf("title extraction failed: %w", err)
	}
	title := strings.Trim(strings.TrimSpace(response), `"'`)
	if title == "" {
		return "", fmt.Errorf("title extraction: %w", errkind.ErrNoContent)
	}
	return title, nil
}

// Analyze classifies an article against the topic's ontology. The cache is
// consulted first; a hit returns the stored record with the URI re-stamped.
func (a *Analyzer) Analyze(ctx context.Context, text, title, source, uri string, cfg core.AnalysisConfig) (*core.Analysis, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: no text to analyze", errkind.ErrValidation)
	}
	content := core.TruncateAtWord(text, core.MaxContentChars)

	contentHash := analysiscache.ContentHash(content)
	templateHash := a.registry.BundleHash()
	if a.cache != nil {
		if cached, ok := a.cache.Get(uri, a.model, contentHash, templateHash); ok {
			cached.URI = uri
			logger.Debug("analysis cache hit", map[string]any{"uri": uri, "model": a.model})
			return cached, nil
		}
	}

	if title == "" {
		if extracted, err := a.ExtractTitle(ctx, content); err == nil {
			title = extracted
		} else {
			title = "unknown"
		}
	}
	if source == "" {
		source = "unknown"
	}

	messages, err := a.registry.FormatContentAnalysis(prompts.ContentAnalysisParams{
		Title:               title,
		Source:              source,
		Content:             content,
		SummaryLength:       cfg.SummaryLength,
		SummaryVoice:        cfg.SummaryVoice,
		SummaryType:         cfg.SummaryType,
		Categories:          cfg.Categories,
		FutureSignals:       cfg.FutureSignals,
		SentimentOptions:    cfg.SentimentOptions,
		TimeToImpactOptions: cfg.TimeToImpactOptions,
		DriverTypes:         cfg.DriverTypes,
	})
	if err != nil {
		return nil, err
	}

	response, err := a.gen.Generate(ctx, messages, a.opts)
	if err != nil {
		return nil, fmt.Errorf("content analysis failed: %w", err)
	}

	analysis, err := parseAnalysis(response, title)
	if err != nil {
		return nil, err
	}
	analysis.URI = uri
	analysis.ModelName = a.model

	if a.cache != nil {
		if err := a.cache.Set(uri, a.model, contentHash, templateHash, *analysis); err != nil {
			logger.Warn("failed to write analysis cache", map[string]any{"uri": uri, "error": err.Error()})
		}
	}
	return analysis, nil
}

// ExtractPublicationDate asks the LLM for a YYYY-MM-DD publication date.
// Anything that does not parse falls back to today in UTC.
func (a *Analyzer) ExtractPublicationDate(ctx context.Context, text string) string {
	today := time.Now().UTC().Format("2006-01-02")
	text = strings.TrimSpace(text)
	if text == "" {
		return today
	}
	excerpt := core.TruncateAtWord(text, titleExcerptChars)
	messages, err := a.registry.FormatDateExtraction(excerpt)
	if err != nil {
		return today
	}
	response, err := a.gen.Generate(ctx, messages, a.opts)
	if err != nil {
		logger.Warn("date extraction failed, using today", map[string]any{"error": err.Error()})
		return today
	}
	candidate := strings.TrimSpace(response)
	if _, err := time.Parse("2006-01-02", candidate); err != nil {
		logger.Debug("unparseable publication date, using today", map[string]any{"response": candidate})
		return today
	}
	return candidate
}

// Model returns the model name stamped onto analyses.
func (a *Analyzer) Model() string {
	return a.model
}
