package prompts

// defaultTemplates returns the built-in prompt set. The user prompts pin the
// exact output shape the parsers in internal/analyzer and internal/relevance
// expect.
func defaultTemplates() []Template {
	return []Template{
		{
			Name:    TitleExtraction,
			Version: 1,
			SystemPrompt: "You extract the headline of a news article from its raw text. " +
				"Respond with the title only, no quotes, no commentary.",
			UserPrompt: "Extract the title of the following article text:\n\n{{content}}",
		},
		{
			Name:    ContentAnalysis,
			Version: 1,
			SystemPrompt: "You are a news analyst producing structured classifications for a horizon-scanning system. " +
				"Answer strictly as a block of 'Key: value' lines using exactly the keys requested. " +
				"Choose classification values only from the provided options.",
			UserPrompt: `Analyze this article and respond with exactly these lines:

Title: <article title>
Summary: <a {{summary_length}}-word {{summary_type}} summary in {{summary_voice}} voice>
Category: <one of: {{categories}}>
Future Signal: <one of: {{future_signals}}>
Future Signal Explanation: <one or two sentences>
Sentiment: <one of: {{sentiments}}>
Sentiment Explanation: <one or two sentences>
Time to Impact: <one of: {{time_to_impact}}>
Time to Impact Explanation: <one or two sentences>
Driver Type: <one of: {{driver_types}}>
Driver Type Explanation: <one or two sentences>
Tags: <3-6 comma-separated topical tags>
Publication Date: <YYYY-MM-DD if evident, otherwise "unknown">

Article title: {{title}}
Source: {{source}}

Article text:
{{content}}`,
		},
		{
			Name:    RelevanceAnalysis,
			Version: 1,
			SystemPrompt: "You judge how well a news article matches a monitored topic and its keywords. " +
				"Respond with a single JSON object and nothing else.",
			UserPrompt: `Score the article below against the topic "{{topic}}" and the keywords: {{keywords}}.

Return JSON with exactly these fields:
{
  "topic_alignment_score": <0.0-1.0>,
  "keyword_relevance_score": <0.0-1.0>,
  "confidence_score": <0.0-1.0>,
  "overall_match_explanation": "<one or two sentences>",
  "extracted_article_topics": ["..."],
  "extracted_article_keywords": ["..."]
}

Title: {{title}}
Source: {{source}}

Article text:
{{content}}`,
		},
		{
			Name:    DateExtraction,
			Version: 1,
			SystemPrompt: "You find the publication date of a news article in its raw text. " +
				"Respond with the date in YYYY-MM-DD format only. If no date is evident, respond with 'unknown'.",
			UserPrompt: "Find the publication date of this article:\n\n{{content}}",
		},
		{
			Name:    QualityReview,
			Version: 1,
			SystemPrompt: "You review scraped web content and decide whether it is a real news article or page noise " +
				"(cookie notices, paywalls, error pages, navigation shells). Respond with a single JSON object and nothing else.",
			UserPrompt: `Review the content below and return JSON with exactly these fields:
{
  "quality_score": <0.0-1.0>,
  "issues_detected": ["..."],
  "recommendation": "approve" | "review" | "reject",
  "explanation": "<one sentence>",
  "content_type": "article" | "cookie_notice" | "paywall" | "error_page" | "navigation" | "other"
}

Title: {{title}}

Content:
{{content}}`,
		},
	}
}
