// Package ingest drives the auto-ingest pipeline: for each unread alert it
// enriches with bias metadata, scrapes raw content, runs analysis and
// relevance scoring, applies the approval decision, persists the merged
// record, and indexes it in the vector store.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"newswatch/internal/analyzer"
	"newswatch/internal/core"
	"newswatch/internal/logger"
	"newswatch/internal/mediabias"
	"newswatch/internal/relevance"
	"newswatch/internal/scrape"
	"newswatch/internal/store"
	"newswatch/internal/vectorstore"
)

// pendingLimit bounds how many alert articles one run picks up.
const pendingLimit = 50

// ProgressFunc receives per-article progress during a run.
type ProgressFunc func(current, total int, message string)

// Service orchestrates the pipeline.
type Service struct {
	store     *store.Store
	bias      *mediabias.Registry
	fetcher   *scrape.Fetcher
	analyzer  *analyzer.Analyzer
	relevance *relevance.Calculator
	quality   *Reviewer
	vectors   *vectorstore.Async

	running atomic.Bool
}

func NewService(
	s *store.Store,
	bias *mediabias.Registry,
	fetcher *scrape.Fetcher,
	an *analyzer.Analyzer,
	rel *relevance.Calculator,
	quality *Reviewer,
	vectors *vectorstore.Async,
) *Service {
	return &Service{
		store:     s,
		bias:      bias,
		fetcher:   fetcher,
		analyzer:  an,
		relevance: rel,
		quality:   quality,
		vectors:   vectors,
	}
}

// Running reports whether a run is in flight.
func (s *Service) Running() bool {
	return s.running.Load()
}

// Run processes pending alert articles. Disabled settings or an in-flight
// run yield a no-op result. Batches run concurrently up to
// max_concurrent_batches; articles within a batch run sequentially.
func (s *Service) Run(ctx context.Context, progress ProgressFunc) (*core.IngestResult, error) {
	settings, err := s.store.GetMonitorSettings()
	if err != nil {
		return nil, err
	}
	if !settings.AutoIngestEnabled {
		logger.Info("auto-ingest disabled, skipping run", nil)
		return &core.IngestResult{}, nil
	}
	if !s.running.CompareAndSwap(false, true) {
		logger.Info("auto-ingest already running, skipping run", nil)
		return &core.IngestResult{}, nil
	}
	defer s.running.Store(false)

	pending, err := s.store.PendingIngest(pendingLimit)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return &core.IngestResult{}, nil
	}

	keywordsByTopic, err := s.keywordsByTopic()
	if err != nil {
		return nil, err
	}

	batchSize := settings.BatchSize
	if batchSize <= 0 {
		batchSize = 5
	}
	maxBatches := settings.MaxConcurrentBatches
	if maxBatches <= 0 {
		maxBatches = 1
	}

	total := len(pending)
	var done atomic.Int64
	details := make([]core.IngestDetail, total)

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(maxBatches)

	for start := 0; start < total; start += batchSize {
		start := start
		end := start + batchSize
		if end > total {
			end = total
		}
		group.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				article := pending[i]
				details[i] = s.processArticle(gctx, article, settings, keywordsByTopic[article.Topic])

				current := int(done.Add(1))
				if progress != nil {
					progress(current, total, fmt.Sprintf("processed %s", article.URI))
				}
			}
			return nil
		})
	}
	runErr := group.Wait()

	result := summarize(details)
	logger.Info("auto-ingest run finished", map[string]any{
		"processed": result.Processed,
		"ingested":  result.Ingested,
		"errors":    result.Errors,
	})
	return result, runErr
}

// processArticle runs steps a-g of the pipeline for one article. It never
// returns an error; failures are captured in the detail record.
func (s *Service) processArticle(ctx context.Context, article core.Article, settings core.MonitorSettings, keywords []string) core.IngestDetail {
	detail := core.IngestDetail{URI: article.URI, Title: article.Title}

	// a. Bias enrichment; a miss or store error never aborts the article.
	s.bias.Enrich(&article)

	// b. Scrape; analysis falls back to the provider summary on failure.
	content := s.scrapeContent(ctx, &article)

	// c. Analyze against the topic's ontology.
	analysis, err := s.analyzer.Analyze(ctx, content, article.Title, article.NewsSource, article.URI, core.DefaultAnalysisConfig())
	if err != nil {
		detail.Status = core.IngestFailed
		detail.Error = err.Error()
		article.AutoIngested = true
		article.IngestStatus = core.IngestFailed
		if saveErr := s.store.SaveArticle(article); saveErr != nil {
			logger.Warn("failed to persist analysis failure", map[string]any{"uri": article.URI, "error": saveErr.Error()})
		}
		return detail
	}
	applyAnalysis(&article, analysis)

	// d. Relevance against the topic's keyword list.
	rel := s.relevance.Analyze(ctx, article.Title, article.NewsSource, content, article.Topic, keywords)
	applyRelevance(&article, rel)
	detail.Relevance = rel.Overall()

	// e. Decision: relevance gate first, then optional quality review.
	// A score exactly at the threshold is accepted.
	article.AutoIngested = true
	switch {
	case rel.Overall() < settings.MinRelevanceThreshold:
		article.IngestStatus = core.IngestFailed
		detail.Status = core.IngestFailed
	case settings.QualityControlEnabled:
		review := s.quality.Review(ctx, article.Title, content)
		article.QualityScore = review.QualityScore
		article.QualityIssues = review.IssuesDetected
		detail.QualityScore = review.QualityScore
		if review.Recommendation == core.QualityReject ||
			(settings.AutoSaveApprovedOnly && review.Recommendation != core.QualityApprove) {
			article.IngestStatus = core.IngestFailed
			detail.Status = core.IngestFailed
			detail.Error = "rejected by quality review"
		} else {
			article.IngestStatus = core.IngestApproved
			detail.Status = core.IngestApproved
		}
	default:
		article.IngestStatus = core.IngestApproved
		detail.Status = core.IngestApproved
	}

	// f. Persist before indexing.
	if err := s.store.SaveArticle(article); err != nil {
		detail.Error = err.Error()
		detail.Status = core.IngestFailed
		return detail
	}

	// g. Vector indexing is best-effort and must survive the batch context,
	// which is cancelled as soon as the run's errgroup returns.
	if article.IngestStatus == core.IngestApproved && s.vectors != nil {
		s.vectors.UpsertAsync(context.WithoutCancel(ctx), article, content)
	}
	return detail
}

// scrapeContent fetches and persists raw text, returning the best content
// for analysis. Scrape failures degrade to the provider summary.
func (s *Service) scrapeContent(ctx context.Context, article *core.Article) string {
	doc, err := s.fetcher.Fetch(ctx, article.URI)
	if err != nil {
		logger.Warn("scrape failed, analyzing summary", map[string]any{"uri": article.URI, "error": err.Error()})
		return article.Summary
	}

	if article.Title == "" {
		article.Title = doc.Title
	}
	if article.NewsSource == "" {
		article.NewsSource = doc.Source
	}
	if article.PublicationDate == "" && doc.PublicationDate != "" {
		article.PublicationDate = doc.PublicationDate
	}

	raw := core.RawArticle{
		URI:         article.URI,
		RawMarkdown: doc.Content,
		Topic:       article.Topic,
	}
	if err := s.store.SaveRawArticle(raw); err != nil {
		// A conflict means the article row vanished under us; keep the
		// scraped text for analysis without persisting it.
		logger.Warn("failed to persist raw content", map[string]any{"uri": article.URI, "error": err.Error()})
	}
	return doc.Content
}

// keywordsByTopic joins groups and keywords into topic → keyword strings.
func (s *Service) keywordsByTopic() (map[string][]string, error) {
	groups, err := s.store.ListKeywordGroups()
	if err != nil {
		return nil, err
	}
	byTopic := map[string][]string{}
	for _, group := range groups {
		keywords, err := s.store.ListKeywords(group.ID)
		if err != nil {
			return nil, err
		}
		for _, kw := range keywords {
			byTopic[group.Topic] = append(byTopic[group.Topic], kw.Keyword)
		}
	}
	return byTopic, nil
}

func applyAnalysis(article *core.Article, analysis *core.Analysis) {
	article.Analyzed = true
	if analysis.Title != "" {
		article.Title = analysis.Title
	}
	if analysis.Summary != "" {
		article.Summary = analysis.Summary
	}
	article.Category = analysis.Category
	article.FutureSignal = analysis.FutureSignal
	article.FutureSignalExplanation = analysis.FutureSignalExplanation
	article.Sentiment = analysis.Sentiment
	article.SentimentExplanation = analysis.SentimentExplanation
	article.TimeToImpact = analysis.TimeToImpact
	article.TimeToImpactExplanation = analysis.TimeToImpactExplanation
	article.DriverType = analysis.DriverType
	article.DriverTypeExplanation = analysis.DriverTypeExplanation
	article.Tags = analysis.Tags
	if article.PublicationDate == "" && analysis.PublicationDate != "" &&
		!strings.EqualFold(analysis.PublicationDate, "unknown") {
		article.PublicationDate = analysis.PublicationDate
	}
	if article.SubmissionDate == "" {
		article.SubmissionDate = time.Now().UTC().Format(time.RFC3339)
	}
}

func applyRelevance(article *core.Article, rel core.RelevanceResult) {
	article.TopicAlignmentScore = rel.TopicAlignmentScore
	article.KeywordRelevanceScore = rel.KeywordRelevanceScore
	article.ConfidenceScore = rel.ConfidenceScore
	article.OverallMatchExplanation = rel.OverallMatchExplanation
	article.ExtractedArticleTopics = rel.ExtractedArticleTopics
	article.ExtractedArticleKeywords = rel.ExtractedArticleKeywords
}

func summarize(details []core.IngestDetail) *core.IngestResult {
	result := &core.IngestResult{Details: details}
	for _, detail := range details {
		if detail.URI == "" {
			continue
		}
		result.Processed++
		switch {
		case detail.Status == core.IngestApproved:
			result.Ingested++
		case detail.Error == "rejected by quality review":
			result.RejectedQuality++
		case detail.Status == core.IngestFailed && detail.Error == "":
			result.RejectedRelevance++
		default:
			result.Errors++
		}
	}
	return result
}

// Pending returns the articles the next run would pick up.
func (s *Service) Pending() ([]core.Article, error) {
	return s.store.PendingIngest(pendingLimit)
}
