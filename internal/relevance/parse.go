package relevance

import (
	"encoding/json"
	"fmt"
	"strings"

	"newswatch/internal/core"
	"newswatch/internal/errkind"
)

// parseRelevance extracts the first JSON object from an LLM response that
// may carry surrounding prose or fenced code blocks.
func parseRelevance(response string) (core.RelevanceResult, error) {
	raw, err := extractJSONObject(response)
	if err != nil {
		return core.RelevanceResult{}, err
	}
	var result core.RelevanceResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return core.RelevanceResult{}, fmt.Errorf("%w: %v", errkind.ErrParse, err)
	}
	result.TopicAlignmentScore = clamp(result.TopicAlignmentScore)
	result.KeywordRelevanceScore = clamp(result.KeywordRelevanceScore)
	result.ConfidenceScore = clamp(result.ConfidenceScore)
	if result.ExtractedArticleTopics == nil {
		result.ExtractedArticleTopics = []string{}
	}
	if result.ExtractedArticleKeywords == nil {
		result.ExtractedArticleKeywords = []string{}
	}
	return result, nil
}

// extractJSONObject strips markdown fences and returns the first balanced
// {...} block.
func extractJSONObject(text string) (string, error) {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	start := strings.Index(text, "{")
	if start < 0 {
		return "", fmt.Errorf("%w: no JSON object in response", errkind.ErrParse)
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1], nil
				}
			}
		}
	}
	return "", fmt.Errorf("%w: unterminated JSON object in response", errkind.ErrParse)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
