// Package vectorstore provides semantic search over article embeddings.
// Vector IDs are exactly article URIs; metadata is a projected scalar
// subset of the article record.
package vectorstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"newswatch/internal/core"
	"newswatch/internal/errkind"
	"newswatch/internal/logger"
)

// SearchResult is one (id, score, metadata) triple. Score is cosine
// distance, lower is closer.
type SearchResult struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

// Projection is the 2-D layout produced by Project for visualisation
// collaborators.
type Projection struct {
	Points    []ProjectedPoint `json:"points"`
	Centroids [][2]float64     `json:"centroids"`
	Sizes     []int            `json:"sizes"`
}

// ProjectedPoint carries the first two embedding dimensions and the cluster
// assignment for one vector.
type ProjectedPoint struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Cluster int     `json:"cluster"`
}

// Store is the vector store contract consumed by the ingest pipeline.
type Store interface {
	// Upsert embeds the best-available article text and writes
	// (id=uri, embedding, metadata). Fails with NoContent when the article
	// has neither raw text, summary, nor title.
	Upsert(ctx context.Context, article core.Article, rawText string) error

	// Search returns the top-k nearest entries by cosine distance,
	// optionally restricted by a metadata equality filter.
	Search(ctx context.Context, query string, topK int, filter map[string]any) ([]SearchResult, error)

	// Similar returns nearest neighbors of a stored article, excluding the
	// seed. A missing seed yields an empty slice.
	Similar(ctx context.Context, uri string, topK int) ([]SearchResult, error)

	// GetByMetadata returns vectors, metadatas, and ids matching a filter.
	GetByMetadata(filter map[string]any, limit int) ([][]float64, []map[string]any, []string, error)

	// Project runs mini-batch k-means over the supplied vectors and returns
	// 2-D coordinates, centroids, and cluster sizes.
	Project(vectors [][]float64) (Projection, error)

	Count() int
}

// bestText picks the embedding input: raw text over summary over title.
func bestText(article core.Article, rawText string) (string, error) {
	for _, candidate := range []string{rawText, article.Summary, article.Title} {
		if strings.TrimSpace(candidate) != "" {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("article %s has no embeddable text: %w", article.URI, errkind.ErrNoContent)
}

// projectMetadata flattens the article's scalar fields for filtering.
// Tags become a comma-separated string; empty fields are dropped;
// publication_date is additionally stored as epoch seconds.
func projectMetadata(article core.Article) map[string]any {
	meta := map[string]any{}
	put := func(key, value string) {
		if value != "" {
			meta[key] = value
		}
	}
	put("title", article.Title)
	put("news_source", article.NewsSource)
	put("publication_date", article.PublicationDate)
	put("topic", article.Topic)
	put("category", article.Category)
	put("sentiment", article.Sentiment)
	put("future_signal", article.FutureSignal)
	put("time_to_impact", article.TimeToImpact)
	put("driver_type", article.DriverType)
	put("bias", article.Bias)
	put("factual_reporting", article.FactualReporting)
	put("ingest_status", string(article.IngestStatus))
	if len(article.Tags) > 0 {
		meta["tags"] = strings.Join(article.Tags, ",")
	}
	if article.TopicAlignmentScore > 0 || article.KeywordRelevanceScore > 0 {
		meta["topic_alignment_score"] = article.TopicAlignmentScore
		meta["keyword_relevance_score"] = article.KeywordRelevanceScore
	}
	meta["publication_date_ts"] = publicationTimestamp(article.URI, article.PublicationDate)
	return meta
}

// publicationTimestamp parses the publication date into epoch seconds (UTC).
// Unknown formats fall back to now; the fallback is logged.
func publicationTimestamp(uri, date string) int64 {
	date = strings.TrimSpace(date)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02", "January 2, 2006", "Jan 2, 2006"} {
		if parsed, err := time.Parse(layout, date); err == nil {
			return parsed.UTC().Unix()
		}
	}
	logger.Warn("unparseable publication date, using now", map[string]any{"uri": uri, "date": date})
	return time.Now().UTC().Unix()
}
