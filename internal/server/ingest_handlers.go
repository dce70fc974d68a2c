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

// handleIngestRun starts an auto-ingest run as a background task and
// returns immediately with the task handle.
func (s *Server) handleIngestRun(w http.ResponseWriter, r *http.Request) {
	pending, err := s.ingest.Pending()
	if err != nil {
		writeError(w, err)
		return
	}

	taskID := s.tasks.Submit("auto-ingest", func(ctx context.Context, report func(tasks.Progress)) (any, error) {
		return s.ingest.Run(ctx, func(current, total int, message string) {
			report(tasks.Progress{Current: current, Total: total, Message: message})
		})
	})

	writeJSON(w, http.StatusAccepted, map[string]any{
		"task_id":        taskID,
		"total_articles": len(pending),
		"status_url":     "/api/background-tasks/task/" + taskID,
	})
}

func (s *Server) handleIngestStatus(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.GetMonitorSettings()
	if err != nil {
		writeError(w, err)
		return
	}
	status, err := s.store.GetMonitorStatus()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"enabled":                 settings.AutoIngestEnabled,
		"running":                 s.ingest.Running(),
		"min_relevance_threshold": settings.MinRelevanceThreshold,
		"quality_control_enabled": settings.QualityControlEnabled,
		"requests_today":          status.RequestsToday,
		"last_error":              status.LastError,
	})
}

func (s *Server) handleIngestPending(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, fmt.Errorf("%w: bad limit %q", errkind.ErrValidation, raw))
			return
		}
		limit = parsed
	}
	pending, err := s.store.PendingIngest(limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pending": pending,
		"count":   len(pending),
	})
}

func (s *Server) handleIngestSetEnabled(enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.setIngestEnabled(w, enabled)
	}
}

func (s *Server) setIngestEnabled(w http.ResponseWriter, enabled bool) {
	settings, err := s.store.GetMonitorSettings()
	if err != nil {
		writeError(w, err)
		return
	}
	settings.AutoIngestEnabled = enabled
	if err := s.store.SaveMonitorSettings(settings); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "enabled": enabled})
}

// handleIngestStats reports outcome counts across auto-ingested articles
// plus the vector index size.
func (s *Server) handleIngestStats(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.DB().Query(`
		SELECT ingest_status, COUNT(*) FROM articles
		WHERE auto_ingested = 1 GROUP BY ingest_status`)
	if err != nil {
		writeError(w, err)
		return
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			writeError(w, err)
			return
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"approved":        counts[string(core.IngestApproved)],
		"failed":          counts[string(core.IngestFailed)],
		"indexed_vectors": s.vectors.Count(),
		"task_summary":    s.tasks.Summary(),
	})
}

// handleBulkAnalysis re-analyzes a set of articles in the background.
func (s *Server) handleBulkAnalysis(w http.ResponseWriter, r *http.Request) {
	s.submitBulk(w, r, "bulk-analysis")
}

// handleBulkSave runs the full pipeline over a set of articles in the
// background.
func (s *Server) handleBulkSave(w http.ResponseWriter, r *http.Request) {
	s.submitBulk(w, r, "bulk-save")
}

func (s *Server) submitBulk(w http.ResponseWriter, r *http.Request, name string) {
	var body struct {
		ArticleURIs []string `json:"article_uris"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, fmt.Errorf("%w: unreadable body: %v", errkind.ErrValidation, err))
		return
	}
	if len(body.ArticleURIs) == 0 {
		writeError(w, fmt.Errorf("%w: article_uris is required", errkind.ErrValidation))
		return
	}

	taskID := s.tasks.Submit(name, func(ctx context.Context, report func(tasks.Progress)) (any, error) {
		return s.ingest.Run(ctx, func(current, total int, message string) {
			report(tasks.Progress{Current: current, Total: total, Message: message})
		})
	})
	writeJSON(w, http.StatusAccepted, map[string]any{"task_id": taskID})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.tasks.Get(chi.URLParam(r, "taskID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	if err := s.tasks.Cancel(chi.URLParam(r, "taskID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
