package store

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"newswatch/internal/core"
	"newswatch/internal/errkind"
)

// encodeKeywordIDs renders a keyword id set as its canonical sorted CSV form
// so the (keyword_ids, article_uri) uniqueness constraint is stable across
// insertion order.
func encodeKeywordIDs(ids []int64) string {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func decodeKeywordIDs(raw string) []int64 {
	if raw == "" {
		return nil
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		if id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// InsertAlert records a (keyword set, article) match. Duplicate matches are
// silently suppressed; the return value reports whether a row was inserted.
// The article row must exist before the alert is written.
func (s *Store) InsertAlert(keywordIDs []int64, articleURI string) (bool, error) {
	if articleURI == "" || len(keywordIDs) == 0 {
		return false, fmt.Errorf("%w: alert requires keyword ids and article uri", errkind.ErrValidation)
	}
	res, err := s.db.Exec(`
		INSERT INTO keyword_article_matches (article_uri, keyword_ids, is_read, detected_at)
		VALUES (?, ?, 0, ?)
		ON CONFLICT(keyword_ids, article_uri) DO NOTHING`,
		articleURI, encodeKeywordIDs(keywordIDs), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY") {
			return false, fmt.Errorf("alert for unknown article %s: %w", articleURI, errkind.ErrConflict)
		}
		return false, fmt.Errorf("failed to insert alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// ListAlerts returns alerts with their nested article, newest first. Unread
// alerts only unless showRead is set. The legacy keyword_alerts table, when
// present, is folded into the result; the new keyword_article_matches shape
// is preferred.
func (s *Store) ListAlerts(showRead bool) ([]core.Alert, error) {
	query := `
		SELECT m.id, m.article_uri, m.keyword_ids, m.is_read, m.detected_at, ` + prefixedArticleColumns("a") + `
		FROM keyword_article_matches m
		JOIN articles a ON a.uri = m.article_uri`
	if !showRead {
		query += ` WHERE m.is_read = 0`
	}
	query += ` ORDER BY m.detected_at DESC`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []core.Alert
	seen := map[string]bool{}
	for rows.Next() {
		var alert core.Alert
		var keywordIDs, detectedAt string
		dest := []any{&alert.ID, &alert.ArticleURI, &keywordIDs, &alert.IsRead, &detectedAt}
		article, articleDest := articleScanDest()
		if err := rows.Scan(append(dest, articleDest...)...); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alert.KeywordIDs = decodeKeywordIDs(keywordIDs)
		if t, err := parseStoredTime(detectedAt); err == nil {
			alert.DetectedAt = t
		}
		alert.Article = article.finish()
		alerts = append(alerts, alert)
		seen[keywordIDs+"|"+alert.ArticleURI] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if s.tableExists("keyword_alerts") {
		legacy, err := s.listLegacyAlerts(showRead, seen)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, legacy...)
	}
	return alerts, nil
}

// listLegacyAlerts reads the old single-keyword alert table, skipping rows
// already represented in the new shape.
func (s *Store) listLegacyAlerts(showRead bool, seen map[string]bool) ([]core.Alert, error) {
	query := `
		SELECT l.id, l.keyword_id, l.article_uri, l.is_read, l.detected_at, ` + prefixedArticleColumns("a") + `
		FROM keyword_alerts l
		JOIN articles a ON a.uri = l.article_uri`
	if !showRead {
		query += ` WHERE l.is_read = 0`
	}

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list legacy alerts: %w", err)
	}
	defer rows.Close()

	var alerts []core.Alert
	for rows.Next() {
		var alert core.Alert
		var keywordID int64
		var detectedAt string
		dest := []any{&alert.ID, &keywordID, &alert.ArticleURI, &alert.IsRead, &detectedAt}
		article, articleDest := articleScanDest()
		if err := rows.Scan(append(dest, articleDest...)...); err != nil {
			return nil, fmt.Errorf("failed to scan legacy alert: %w", err)
		}
		alert.KeywordIDs = []int64{keywordID}
		if seen[encodeKeywordIDs(alert.KeywordIDs)+"|"+alert.ArticleURI] {
			continue
		}
		if t, err := parseStoredTime(detectedAt); err == nil {
			alert.DetectedAt = t
		}
		alert.Article = article.finish()
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

// SetAlertRead flips the read flag on an alert.
func (s *Store) SetAlertRead(id int64, read bool) error {
	res, err := s.db.Exec(`UPDATE keyword_article_matches SET is_read = ? WHERE id = ?`, read, id)
	if err != nil {
		return fmt.Errorf("failed to update alert: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("alert %d: %w", id, errkind.ErrNotFound)
	}
	return nil
}

// PendingIngest returns articles behind unread alerts that have not been
// auto-ingested yet, oldest alert first, capped at limit.
func (s *Store) PendingIngest(limit int) ([]core.Article, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT ` + prefixedArticleColumns("a") + `
		FROM articles a
		WHERE a.auto_ingested = 0 AND a.uri IN (
			SELECT article_uri FROM keyword_article_matches WHERE is_read = 0
		)
		ORDER BY (
			SELECT MIN(detected_at) FROM keyword_article_matches m
			WHERE m.article_uri = a.uri AND m.is_read = 0
		)
		LIMIT ?`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending articles: %w", err)
	}
	defer rows.Close()

	var articles []core.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// AlertTrends returns per-group daily alert counts over the trailing window.
func (s *Store) AlertTrends(days int) ([]core.TrendPoint, error) {
	if days <= 0 {
		days = 7
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)
	query := `
		SELECT g.id, g.name, substr(m.detected_at, 1, 10) AS day, COUNT(*)
		FROM keyword_article_matches m
		JOIN monitored_keywords k ON ',' || m.keyword_ids || ',' LIKE '%,' || k.id || ',%'
		JOIN keyword_groups g ON g.id = k.group_id
		WHERE m.detected_at >= ?
		GROUP BY g.id, g.name, day
		ORDER BY g.id, day`

	rows, err := s.db.Query(query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query trends: %w", err)
	}
	defer rows.Close()

	var points []core.TrendPoint
	for rows.Next() {
		var p core.TrendPoint
		if err := rows.Scan(&p.GroupID, &p.GroupName, &p.Day, &p.Count); err != nil {
			return nil, fmt.Errorf("failed to scan trend point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// prefixedArticleColumns expands the article column list with a table alias
// for join queries.
func prefixedArticleColumns(alias string) string {
	cols := strings.Split(articleColumns, ",")
	for i, col := range cols {
		cols[i] = alias + "." + strings.TrimSpace(col)
	}
	return strings.Join(cols, ", ")
}

// articleScanRow buffers the raw column values of a joined article row until
// list fields are decoded.
type articleScanRow struct {
	article                       core.Article
	tags, topics, keywords, issue string
	status                        string
}

func articleScanDest() (*articleScanRow, []any) {
	r := &articleScanRow{}
	a := &r.article
	dest := []any{
		&a.URI, &a.Title, &a.NewsSource, &a.PublicationDate, &a.SubmissionDate,
		&a.Summary, &a.Topic, &a.Analyzed,
		&a.Category, &a.Sentiment, &a.SentimentExplanation,
		&a.FutureSignal, &a.FutureSignalExplanation,
		&a.TimeToImpact, &a.TimeToImpactExplanation,
		&a.DriverType, &a.DriverTypeExplanation, &r.tags,
		&a.Bias, &a.FactualReporting, &a.MBFCCredibilityRating,
		&a.BiasSource, &a.BiasCountry, &a.PressFreedom, &a.MediaType, &a.Popularity,
		&a.TopicAlignmentScore, &a.KeywordRelevanceScore, &a.ConfidenceScore,
		&a.OverallMatchExplanation, &r.topics, &r.keywords,
		&a.AutoIngested, &r.status, &a.QualityScore, &r.issue,
	}
	return r, dest
}

func (r *articleScanRow) finish() *core.Article {
	r.article.Tags = unmarshalList(r.tags)
	r.article.ExtractedArticleTopics = unmarshalList(r.topics)
	r.article.ExtractedArticleKeywords = unmarshalList(r.keywords)
	r.article.QualityIssues = unmarshalList(r.issue)
	r.article.IngestStatus = core.IngestStatus(r.status)
	a := r.article
	return &a
}
