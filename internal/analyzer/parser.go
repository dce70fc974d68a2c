package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"

	"newswatch/internal/core"
	"newswatch/internal/errkind"
)

// requiredKeys must all be present in a parsed response. Title alone may be
// satisfied by the extracted-title fallback.
var requiredKeys = []string{
	"title", "summary", "category", "future_signal", "future_signal_explanation",
	"sentiment", "time_to_impact", "driver_type", "tags",
}

// parseAnalysis reads the line-oriented "Key: value" block the content
// analysis prompt asks for. The parser is tolerant of markdown asterisks
// around keys, values spanning continuation lines, and tags arriving either
// as a bracketed list or a comma-separated string.
func parseAnalysis(response, fallbackTitle string) (*core.Analysis, error) {
	fields := map[string]string{}
	var lastKey string

	for _, line := range strings.Split(response, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			lastKey = ""
			continue
		}
		key, value, ok := splitKeyValue(trimmed)
		if !ok {
			// Continuation of the previous value.
			if lastKey != "" {
				fields[lastKey] = strings.TrimSpace(fields[lastKey] + " " + trimmed)
			}
			continue
		}
		fields[key] = value
		lastKey = key
	}

	if fields["title"] == "" && fallbackTitle != "" {
		fields["title"] = fallbackTitle
	}

	var missing []string
	for _, key := range requiredKeys {
		if fields[key] == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: analysis response missing %s",
			errkind.ErrParse, strings.Join(missing, ", "))
	}

	return &core.Analysis{
		Title:                   fields["title"],
		Summary:                 fields["summary"],
		Category:                fields["category"],
		FutureSignal:            fields["future_signal"],
		FutureSignalExplanation: fields["future_signal_explanation"],
		Sentiment:               fields["sentiment"],
		SentimentExplanation:    fields["sentiment_explanation"],
		TimeToImpact:            fields["time_to_impact"],
		TimeToImpactExplanation: fields["time_to_impact_explanation"],
		DriverType:              fields["driver_type"],
		DriverTypeExplanation:   fields["driver_type_explanation"],
		Tags:                    parseTags(fields["tags"]),
		PublicationDate:         fields["publication_date"],
	}, nil
}

// splitKeyValue recognizes a "Key: value" line for a known key. Keys may be
// wrapped in asterisks ("**Title:**" or "*Title*:").
func splitKeyValue(line string) (string, string, bool) {
	colon := strings.Index(line, ":")
	if colon < 0 {
		return "", "", false
	}
	rawKey := strings.Trim(strings.TrimSpace(line[:colon]), "*- ")
	key := strings.ToLower(strings.ReplaceAll(rawKey, " ", "_"))
	if !knownKey(key) {
		return "", "", false
	}
	value := strings.TrimSpace(strings.TrimLeft(line[colon+1:], "*"))
	return key, strings.TrimSpace(value), true
}

func knownKey(key string) bool {
	switch key {
	case "title", "summary", "category",
		"future_signal", "future_signal_explanation",
		"sentiment", "sentiment_explanation",
		"time_to_impact", "time_to_impact_explanation",
		"driver_type", "driver_type_explanation",
		"tags", "publication_date":
		return true
	}
	return false
}

// parseTags accepts either a JSON-style bracketed list or a plain
// comma-separated string.
func parseTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "[") {
		var list []string
		if err := json.Unmarshal([]byte(raw), &list); err == nil {
			return cleanTags(list)
		}
		raw = strings.Trim(raw, "[]")
	}
	return cleanTags(strings.Split(raw, ","))
}

func cleanTags(parts []string) []string {
	var tags []string
	for _, part := range parts {
		tag := strings.Trim(strings.TrimSpace(part), `"'`)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
