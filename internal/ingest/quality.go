package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"newswatch/internal/core"
	"newswatch/internal/llm"
	"newswatch/internal/logger"
	"newswatch/internal/prompts"
)

var errNoJSON = errors.New("no JSON object in review response")

// qualityFallbackScore is the conservative score when the review response
// cannot be parsed; the article goes to manual review instead of failing
// the pipeline.
const qualityFallbackScore = 0.3

// Reviewer performs the content-quality LLM check that catches cookie
// notices, paywalls, and error pages masquerading as articles.
type Reviewer struct {
	gen      llm.Generator
	registry *prompts.Registry
	opts     llm.Options
}

func NewReviewer(gen llm.Generator, registry *prompts.Registry, model string) *Reviewer {
	if model == "" {
		model = llm.DefaultModel
	}
	return &Reviewer{
		gen:      gen,
		registry: registry,
		opts:     llm.Options{Model: model},
	}
}

// Review never fails: any call or parse error degrades to the conservative
// default recommendation.
func (r *Reviewer) Review(ctx context.Context, title, content string) core.QualityReview {
	content = core.TruncateAtWord(strings.TrimSpace(content), core.MaxContentChars)
	if content == "" {
		return fallbackReview("no content to review")
	}
	if title == "" {
		title = "unknown"
	}

	messages, err := r.registry.FormatQualityReview(title, content)
	if err != nil {
		return fallbackReview(err.Error())
	}
	response, err := r.gen.Generate(ctx, messages, r.opts)
	if err != nil {
		logger.Warn("quality review call failed", map[string]any{"title": title, "error": err.Error()})
		return fallbackReview(err.Error())
	}

	review, err := parseReview(response)
	if err != nil {
		logger.Warn("quality review unparseable", map[string]any{"title": title, "error": err.Error()})
		return fallbackReview(err.Error())
	}
	return review
}

func parseReview(response string) (core.QualityReview, error) {
	raw := strings.ReplaceAll(response, "```json", "")
	raw = strings.ReplaceAll(raw, "```", "")
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return core.QualityReview{}, errNoJSON
	}

	var review core.QualityReview
	if err := json.Unmarshal([]byte(raw[start:end+1]), &review); err != nil {
		return core.QualityReview{}, err
	}
	if review.QualityScore < 0 {
		review.QualityScore = 0
	}
	if review.QualityScore > 1 {
		review.QualityScore = 1
	}
	switch review.Recommendation {
	case core.QualityApprove, core.QualityNeedsCheck, core.QualityReject:
	default:
		review.Recommendation = core.QualityNeedsCheck
	}
	return review, nil
}

func fallbackReview(reason string) core.QualityReview {
	return core.QualityReview{
		QualityScore:   qualityFallbackScore,
		Recommendation: core.QualityNeedsCheck,
		Explanation:    reason,
		ContentType:    "other",
	}
}
