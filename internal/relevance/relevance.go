// Package relevance scores articles against the topic and keyword list that
// produced their alerts. Failures never propagate; a call that cannot score
// returns an all-zero record carrying the failure explanation.
package relevance

import (
	"context"
	"fmt"
	"strings"

	"newswatch/internal/core"
	"newswatch/internal/llm"
	"newswatch/internal/logger"
	"newswatch/internal/prompts"
)

// Calculator drives the relevance-analysis prompt.
type Calculator struct {
	gen      llm.Generator
	registry *prompts.Registry
	opts     llm.Options
}

func NewCalculator(gen llm.Generator, registry *prompts.Registry, model string) *Calculator {
	if model == "" {
		model = llm.DefaultModel
	}
	return &Calculator{
		gen:      gen,
		registry: registry,
		opts:     llm.Options{Model: model},
	}
}

// Analyze scores one article. Scores are clamped to [0,1]. Any failure in
// the LLM call or the JSON parse yields an all-zero record with the failure
// in the explanation field.
func (c *Calculator) Analyze(ctx context.Context, title, source, content, topic string, keywords []string) core.RelevanceResult {
	content = strings.TrimSpace(content)
	if content == "" {
		return fallbackResult("no content available for relevance analysis")
	}
	if title == "" {
		title = "unknown"
	}
	if source == "" {
		source = "unknown"
	}
	content = core.TruncateAtWord(content, core.MaxContentChars)

	messages, err := c.registry.FormatRelevanceAnalysis(title, source, content, topic, keywords)
	if err != nil {
		return fallbackResult(fmt.Sprintf("prompt build failed: %v", err))
	}

	response, err := c.gen.Generate(ctx, messages, c.opts)
	if err != nil {
		logger.Warn("relevance call failed", map[string]any{"title": title, "error": err.Error()})
		return fallbackResult(fmt.Sprintf("relevance call failed: %v", err))
	}

	result, err := parseRelevance(response)
	if err != nil {
		logger.Warn("relevance response unparseable", map[string]any{"title": title, "error": err.Error()})
		return fallbackResult(fmt.Sprintf("unparseable relevance response: %v", err))
	}
	return result
}

// AnalyzeBatch scores a list of articles using the summary or raw content on
// each record. Per-article failures become all-zero records; the batch call
// never fails as a whole.
func (c *Calculator) AnalyzeBatch(ctx context.Context, articles []*core.Article, topic string, keywords []string) []core.RelevanceResult {
	results := make([]core.RelevanceResult, len(articles))
	for i, article := range articles {
		content := article.Summary
		if content == "" {
			content = article.Title
		}
		results[i] = c.Analyze(ctx, article.Title, article.NewsSource, content, topic, keywords)
	}
	return results
}

func fallbackResult(explanation string) core.RelevanceResult {
	return core.RelevanceResult{OverallMatchExplanation: explanation}
}
