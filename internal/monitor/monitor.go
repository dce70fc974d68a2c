// Package monitor runs the periodic keyword check: every tick it walks the
// monitored keywords, queries the configured news provider, and records
// article alerts for the auto-ingest pipeline to consume.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"newswatch/internal/collector"
	"newswatch/internal/core"
	"newswatch/internal/errkind"
	"newswatch/internal/logger"
	"newswatch/internal/store"
)

// ProviderFactory builds the provider named in the current settings. Tests
// inject mock-backed factories.
type ProviderFactory func(settings core.MonitorSettings) (collector.Provider, error)

// Monitor is the keyword check scheduler.
type Monitor struct {
	store   *store.Store
	factory ProviderFactory
}

func New(s *store.Store, factory ProviderFactory) *Monitor {
	return &Monitor{store: s, factory: factory}
}

// CheckResult summarizes one pass over the keywords.
type CheckResult struct {
	KeywordsChecked int `json:"keywords_checked"`
	NewArticles     int `json:"new_articles"`
	NewAlerts       int `json:"new_alerts"`
}

// Run ticks at the configured interval until the context is cancelled.
// Settings are re-read on every tick so interval changes apply without a
// restart.
func (m *Monitor) Run(ctx context.Context) error {
	for {
		settings, err := m.store.GetMonitorSettings()
		if err != nil {
			return err
		}
		interval := settings.TickInterval()

		now := time.Now().UTC()
		if _, err := m.checkAll(ctx, settings, 0); err != nil {
			logger.Warn("keyword check failed", map[string]any{"error": err.Error()})
		}
		if err := m.store.RecordRun(now, now.Add(interval)); err != nil {
			logger.Warn("failed to record monitor run", map[string]any{"error": err.Error()})
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// CheckNow runs one manual pass, optionally restricted to a single keyword
// group.
func (m *Monitor) CheckNow(ctx context.Context, groupID int64) (CheckResult, error) {
	settings, err := m.store.GetMonitorSettings()
	if err != nil {
		return CheckResult{}, err
	}
	return m.checkAll(ctx, settings, groupID)
}

// checkAll walks keywords in id order. A provider or rate-limit error is
// recorded in the status row and aborts the pass; remaining keywords are
// skipped until the next tick. A pass that completes clears last_error.
func (m *Monitor) checkAll(ctx context.Context, settings core.MonitorSettings, groupID int64) (CheckResult, error) {
	var result CheckResult

	provider, err := m.factory(settings)
	if err != nil {
		_ = m.store.RecordError(err.Error())
		return result, err
	}
	limited := collector.NewLimited(provider, m.store, settings.DailyRequestLimit)

	keywords, err := m.store.ListKeywords(groupID)
	if err != nil {
		return result, err
	}

	topics := map[int64]string{}
	groups, err := m.store.ListKeywordGroups()
	if err != nil {
		return result, err
	}
	for _, group := range groups {
		topics[group.ID] = group.Topic
	}

	for _, keyword := range keywords {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		articles, err := limited.Search(ctx, keyword.Keyword, topics[keyword.GroupID], settings.PageSize, keyword.LastChecked)
		if err != nil {
			_ = m.store.RecordError(fmt.Sprintf("keyword %q: %v", keyword.Keyword, err))
			if errors.Is(err, errkind.ErrRateLimited) {
				logger.Warn("daily request limit reached, aborting pass", map[string]any{"keyword": keyword.Keyword})
			} else {
				logger.Error("provider search failed, aborting pass", err, map[string]any{"keyword": keyword.Keyword})
			}
			return result, err
		}
		result.KeywordsChecked++

		for _, found := range articles {
			newArticle, newAlert, err := m.recordMatch(keyword, topics[keyword.GroupID], found)
			if err != nil {
				logger.Warn("failed to record match", map[string]any{"url": found.URL, "error": err.Error()})
				continue
			}
			if newArticle {
				result.NewArticles++
			}
			if newAlert {
				result.NewAlerts++
			}
		}

		if err := m.store.TouchKeyword(keyword.ID, time.Now().UTC()); err != nil {
			logger.Warn("failed to touch keyword", map[string]any{"keyword_id": keyword.ID, "error": err.Error()})
		}
	}

	if err := m.store.ClearError(); err != nil {
		logger.Warn("failed to clear monitor error", map[string]any{"error": err.Error()})
	}
	return result, nil
}

// recordMatch persists the article before its alert so the alert's foreign
// key always resolves.
func (m *Monitor) recordMatch(keyword core.Keyword, topic string, found core.ProviderArticle) (newArticle, newAlert bool, err error) {
	exists, err := m.store.ArticleExists(found.URL)
	if err != nil {
		return false, false, err
	}
	if !exists {
		article := core.Article{
			URI:             found.URL,
			Title:           found.Title,
			NewsSource:      found.Source,
			PublicationDate: found.PublishedDate,
			SubmissionDate:  time.Now().UTC().Format(time.RFC3339),
			Summary:         found.Summary,
			Topic:           topic,
			IngestStatus:    core.IngestPending,
		}
		if err := m.store.SaveArticle(article); err != nil {
			return false, false, err
		}
		newArticle = true
	}

	inserted, err := m.store.InsertAlert([]int64{keyword.ID}, found.URL)
	if err != nil {
		return newArticle, false, err
	}
	return newArticle, inserted, nil
}
