package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"newswatch/internal/core"
	"newswatch/internal/errkind"
	"newswatch/internal/tasks"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.GetMonitorSettings()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var settings core.MonitorSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, fmt.Errorf("%w: unreadable settings body: %v", errkind.ErrValidation, err))
		return
	}
	if err := s.store.SaveMonitorSettings(settings); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleCheckNow runs a manual keyword pass. When the keyword count exceeds
// the deferral threshold, the pass runs as a background task instead.
func (s *Server) handleCheckNow(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Topic   string `json:"topic"`
		GroupID int64  `json:"group_id"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	keywords, err := s.store.ListKeywords(body.GroupID)
	if err != nil {
		writeError(w, err)
		return
	}

	if len(keywords) > checkNowDeferThreshold {
		groupID := body.GroupID
		total := len(keywords)
		taskID := s.tasks.Submit("keyword-check", func(ctx context.Context, report func(tasks.Progress)) (any, error) {
			report(tasks.Progress{Current: 0, Total: total, Message: "starting keyword check"})
			result, err := s.monitor.CheckNow(ctx, groupID)
			if err != nil {
				return nil, err
			}
			report(tasks.Progress{Current: total, Total: total, Message: "keyword check finished"})
			return result, nil
		})
		writeJSON(w, http.StatusAccepted, map[string]any{
			"success":        true,
			"task_id":        taskID,
			"total_keywords": len(keywords),
		})
		return
	}

	result, err := s.monitor.CheckNow(r.Context(), body.GroupID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"new_articles": result.NewArticles,
		"new_alerts":   result.NewAlerts,
	})
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	showRead, _ := strconv.ParseBool(r.URL.Query().Get("show_read"))
	alerts, err := s.store.ListAlerts(showRead)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func (s *Server) handleAlertRead(read bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, fmt.Errorf("%w: bad alert id", errkind.ErrValidation))
			return
		}
		if err := s.store.SetAlertRead(id, read); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	trends, err := s.store.AlertTrends(7)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trends": trends})
}

// handleAnalyzeRelevance re-scores a set of stored articles against a topic
// and persists the updated scores.
func (s *Server) handleAnalyzeRelevance(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ArticleURIs []string `json:"article_uris"`
		ModelName   string   `json:"model_name"`
		Topic       string   `json:"topic"`
		GroupID     int64    `json:"group_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, fmt.Errorf("%w: unreadable body: %v", errkind.ErrValidation, err))
		return
	}
	if len(body.ArticleURIs) == 0 || body.Topic == "" {
		writeError(w, fmt.Errorf("%w: article_uris and topic are required", errkind.ErrValidation))
		return
	}

	var keywords []string
	if body.GroupID > 0 {
		list, err := s.store.ListKeywords(body.GroupID)
		if err != nil {
			writeError(w, err)
			return
		}
		for _, kw := range list {
			keywords = append(keywords, kw.Keyword)
		}
	}

	articles, err := s.store.ListArticlesByURIs(body.ArticleURIs)
	if err != nil {
		writeError(w, err)
		return
	}

	analyzed, updated := 0, 0
	for i := range articles {
		article := &articles[i]
		content := article.Summary
		if raw, err := s.store.GetRawArticle(article.URI); err == nil {
			content = raw.RawMarkdown
		}
		result := s.relevance.Analyze(r.Context(), article.Title, article.NewsSource, content, body.Topic, keywords)
		analyzed++

		article.TopicAlignmentScore = result.TopicAlignmentScore
		article.KeywordRelevanceScore = result.KeywordRelevanceScore
		article.ConfidenceScore = result.ConfidenceScore
		article.OverallMatchExplanation = result.OverallMatchExplanation
		article.ExtractedArticleTopics = result.ExtractedArticleTopics
		article.ExtractedArticleKeywords = result.ExtractedArticleKeywords
		if err := s.store.SaveArticle(*article); err == nil {
			updated++
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"analyzed_count": analyzed,
		"updated_count":  updated,
	})
}

func (s *Server) handleIngestEnabled(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.GetMonitorSettings()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"enabled": settings.AutoIngestEnabled})
}

func (s *Server) handleIngestToggle(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, fmt.Errorf("%w: unreadable body: %v", errkind.ErrValidation, err))
		return
	}
	s.setIngestEnabled(w, body.Enabled)
}
