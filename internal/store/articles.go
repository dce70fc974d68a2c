package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"newswatch/internal/core"
	"newswatch/internal/errkind"
)

// SaveArticle upserts an article by URI. Re-saving with the same URI
// overwrites every mutable column and yields exactly one row.
func (s *Store) SaveArticle(article core.Article) error {
	if strings.TrimSpace(article.URI) == "" {
		return fmt.Errorf("%w: article URI is empty", errkind.ErrValidation)
	}
	if article.SubmissionDate == "" {
		article.SubmissionDate = time.Now().UTC().Format(time.RFC3339)
	}

	query := `
	INSERT INTO articles (
		uri, title, news_source, publication_date, submission_date, summary, topic, analyzed,
		category, sentiment, sentiment_explanation, future_signal, future_signal_explanation,
		time_to_impact, time_to_impact_explanation, driver_type, driver_type_explanation, tags,
		bias, factual_reporting, mbfc_credibility_rating, bias_source, bias_country,
		press_freedom, media_type, popularity,
		topic_alignment_score, keyword_relevance_score, confidence_score,
		overall_match_explanation, extracted_article_topics, extracted_article_keywords,
		auto_ingested, ingest_status, quality_score, quality_issues
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(uri) DO UPDATE SET
		title = excluded.title,
		news_source = excluded.news_source,
		publication_date = excluded.publication_date,
		summary = excluded.summary,
		topic = excluded.topic,
		analyzed = excluded.analyzed,
		category = excluded.category,
		sentiment = excluded.sentiment,
		sentiment_explanation = excluded.sentiment_explanation,
		future_signal = excluded.future_signal,
		future_signal_explanation = excluded.future_signal_explanation,
		time_to_impact = excluded.time_to_impact,
		time_to_impact_explanation = excluded.time_to_impact_explanation,
		driver_type = excluded.driver_type,
		driver_type_explanation = excluded.driver_type_explanation,
		tags = excluded.tags,
		bias = excluded.bias,
		factual_reporting = excluded.factual_reporting,
		mbfc_credibility_rating = excluded.mbfc_credibility_rating,
		bias_source = excluded.bias_source,
		bias_country = excluded.bias_country,
		press_freedom = excluded.press_freedom,
		media_type = excluded.media_type,
		popularity = excluded.popularity,
		topic_alignment_score = excluded.topic_alignment_score,
		keyword_relevance_score = excluded.keyword_relevance_score,
		confidence_score = excluded.confidence_score,
		overall_match_explanation = excluded.overall_match_explanation,
		extracted_article_topics = excluded.extracted_article_topics,
		extracted_article_keywords = excluded.extracted_article_keywords,
		auto_ingested = excluded.auto_ingested,
		ingest_status = excluded.ingest_status,
		quality_score = excluded.quality_score,
		quality_issues = excluded.quality_issues`

	_, err := s.db.Exec(query,
		article.URI, article.Title, article.NewsSource, article.PublicationDate,
		article.SubmissionDate, article.Summary, article.Topic, article.Analyzed,
		article.Category, article.Sentiment, article.SentimentExplanation,
		article.FutureSignal, article.FutureSignalExplanation,
		article.TimeToImpact, article.TimeToImpactExplanation,
		article.DriverType, article.DriverTypeExplanation, marshalList(article.Tags),
		article.Bias, article.FactualReporting, article.MBFCCredibilityRating,
		article.BiasSource, article.BiasCountry, article.PressFreedom,
		article.MediaType, article.Popularity,
		article.TopicAlignmentScore, article.KeywordRelevanceScore, article.ConfidenceScore,
		article.OverallMatchExplanation,
		marshalList(article.ExtractedArticleTopics), marshalList(article.ExtractedArticleKeywords),
		article.AutoIngested, string(article.IngestStatus), article.QualityScore,
		marshalList(article.QualityIssues),
	)
	if err != nil {
		return fmt.Errorf("failed to save article: %w", err)
	}
	return nil
}

const articleColumns = `uri, title, news_source, publication_date, submission_date, summary, topic, analyzed,
	category, sentiment, sentiment_explanation, future_signal, future_signal_explanation,
	time_to_impact, time_to_impact_explanation, driver_type, driver_type_explanation, tags,
	bias, factual_reporting, mbfc_credibility_rating, bias_source, bias_country,
	press_freedom, media_type, popularity,
	topic_alignment_score, keyword_relevance_score, confidence_score,
	overall_match_explanation, extracted_article_topics, extracted_article_keywords,
	auto_ingested, ingest_status, quality_score, quality_issues`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (core.Article, error) {
	var a core.Article
	var tags, topics, keywords, issues, status string
	err := row.Scan(
		&a.URI, &a.Title, &a.NewsSource, &a.PublicationDate, &a.SubmissionDate,
		&a.Summary, &a.Topic, &a.Analyzed,
		&a.Category, &a.Sentiment, &a.SentimentExplanation,
		&a.FutureSignal, &a.FutureSignalExplanation,
		&a.TimeToImpact, &a.TimeToImpactExplanation,
		&a.DriverType, &a.DriverTypeExplanation, &tags,
		&a.Bias, &a.FactualReporting, &a.MBFCCredibilityRating,
		&a.BiasSource, &a.BiasCountry, &a.PressFreedom, &a.MediaType, &a.Popularity,
		&a.TopicAlignmentScore, &a.KeywordRelevanceScore, &a.ConfidenceScore,
		&a.OverallMatchExplanation, &topics, &keywords,
		&a.AutoIngested, &status, &a.QualityScore, &issues,
	)
	if err != nil {
		return core.Article{}, err
	}
	a.Tags = unmarshalList(tags)
	a.ExtractedArticleTopics = unmarshalList(topics)
	a.ExtractedArticleKeywords = unmarshalList(keywords)
	a.QualityIssues = unmarshalList(issues)
	a.IngestStatus = core.IngestStatus(status)
	return a, nil
}

// GetArticle retrieves an article by URI.
func (s *Store) GetArticle(uri string) (*core.Article, error) {
	row := s.db.QueryRow(`SELECT `+articleColumns+` FROM articles WHERE uri = ?`, uri)
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("article %s: %w", uri, errkind.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan article: %w", err)
	}
	return &a, nil
}

// ArticleExists reports whether a URI is already known.
func (s *Store) ArticleExists(uri string) (bool, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM articles WHERE uri = ?`, uri).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check article: %w", err)
	}
	return n > 0, nil
}

// ListArticlesByURIs loads the named articles, skipping unknown URIs.
func (s *Store) ListArticlesByURIs(uris []string) ([]core.Article, error) {
	var articles []core.Article
	for _, uri := range uris {
		a, err := s.GetArticle(uri)
		if errors.Is(err, errkind.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		articles = append(articles, *a)
	}
	return articles, nil
}

// SaveRawArticle persists scraped document text keyed by URI. The article
// row must already exist; a missing parent surfaces as ErrConflict so the
// caller can fall back to direct-scrape mode.
func (s *Store) SaveRawArticle(raw core.RawArticle) error {
	raw.RawMarkdown = core.TruncateAtWord(raw.RawMarkdown, core.MaxContentChars)
	_, err := s.db.Exec(`
		INSERT INTO raw_articles (uri, raw_markdown, topic) VALUES (?, ?, ?)
		ON CONFLICT(uri) DO UPDATE SET raw_markdown = excluded.raw_markdown, topic = excluded.topic`,
		raw.URI, raw.RawMarkdown, raw.Topic,
	)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY") {
			return fmt.Errorf("raw article %s has no parent row: %w", raw.URI, errkind.ErrConflict)
		}
		return fmt.Errorf("failed to save raw article: %w", err)
	}
	return nil
}

// GetRawArticle retrieves the stored document text for a URI.
func (s *Store) GetRawArticle(uri string) (*core.RawArticle, error) {
	var raw core.RawArticle
	err := s.db.QueryRow(`SELECT uri, raw_markdown, topic FROM raw_articles WHERE uri = ?`, uri).
		Scan(&raw.URI, &raw.RawMarkdown, &raw.Topic)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("raw article %s: %w", uri, errkind.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan raw article: %w", err)
	}
	return &raw, nil
}
