package prompts

import (
	"strconv"
	"strings"

	"newswatch/internal/llm"
)

// FormatTitleExtraction builds the message list for extracting a title from
// the opening of an article.
func (r *Registry) FormatTitleExtraction(content string) ([]llm.Message, error) {
	return r.render(TitleExtraction, map[string]string{
		"content": content,
	})
}

// ContentAnalysisParams carries every slot of the content analysis template.
type ContentAnalysisParams struct {
	Title               string
	Source              string
	Content             string
	SummaryLength       int
	SummaryVoice        string
	SummaryType         string
	Categories          []string
	FutureSignals       []string
	SentimentOptions    []string
	TimeToImpactOptions []string
	DriverTypes         []string
}

// FormatContentAnalysis builds the message list for the full classification
// call.
func (r *Registry) FormatContentAnalysis(p ContentAnalysisParams) ([]llm.Message, error) {
	return r.render(ContentAnalysis, map[string]string{
		"title":          p.Title,
		"source":         p.Source,
		"content":        p.Content,
		"summary_length": strconv.Itoa(p.SummaryLength),
		"summary_voice":  p.SummaryVoice,
		"summary_type":   p.SummaryType,
		"categories":     strings.Join(p.Categories, ", "),
		"future_signals": strings.Join(p.FutureSignals, ", "),
		"sentiments":     strings.Join(p.SentimentOptions, ", "),
		"time_to_impact": strings.Join(p.TimeToImpactOptions, ", "),
		"driver_types":   strings.Join(p.DriverTypes, ", "),
	})
}

// FormatRelevanceAnalysis builds the message list for topic/keyword
// relevance scoring.
func (r *Registry) FormatRelevanceAnalysis(title, source, content, topic string, keywords []string) ([]llm.Message, error) {
	return r.render(RelevanceAnalysis, map[string]string{
		"title":    title,
		"source":   source,
		"content":  content,
		"topic":    topic,
		"keywords": strings.Join(keywords, ", "),
	})
}

// FormatDateExtraction builds the message list for publication date
// extraction.
func (r *Registry) FormatDateExtraction(content string) ([]llm.Message, error) {
	return r.render(DateExtraction, map[string]string{
		"content": content,
	})
}

// FormatQualityReview builds the message list for the content-quality review
// step of the auto-ingest pipeline.
func (r *Registry) FormatQualityReview(title, content string) ([]llm.Message, error) {
	return r.render(QualityReview, map[string]string{
		"title":   title,
		"content": content,
	})
}
