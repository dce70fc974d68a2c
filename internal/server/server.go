// Package server exposes the HTTP API and WebSocket progress streams for
// the keyword monitor, the auto-ingest pipeline, and the background task
// manager.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"newswatch/internal/errkind"
	"newswatch/internal/ingest"
	"newswatch/internal/logger"
	"newswatch/internal/monitor"
	"newswatch/internal/relevance"
	"newswatch/internal/store"
	"newswatch/internal/tasks"
	"newswatch/internal/vectorstore"
)

// checkNowDeferThreshold: manual checks over this many keywords run as a
// background task instead of inline.
const checkNowDeferThreshold = 10

// Server wires the HTTP surface to the domain services.
type Server struct {
	store     *store.Store
	monitor   *monitor.Monitor
	ingest    *ingest.Service
	tasks     *tasks.Manager
	relevance *relevance.Calculator
	vectors   vectorstore.Store
	addr      string
}

func New(
	s *store.Store,
	mon *monitor.Monitor,
	ing *ingest.Service,
	manager *tasks.Manager,
	rel *relevance.Calculator,
	vectors vectorstore.Store,
	addr string,
) *Server {
	if addr == "" {
		addr = ":8080"
	}
	return &Server{
		store:     s,
		monitor:   mon,
		ingest:    ing,
		tasks:     manager,
		relevance: rel,
		vectors:   vectors,
		addr:      addr,
	}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api/keyword-monitor", func(r chi.Router) {
		r.Get("/settings", s.handleGetSettings)
		r.Post("/settings", s.handleSaveSettings)
		r.Post("/check-now", s.handleCheckNow)
		r.Get("/alerts", s.handleListAlerts)
		r.Post("/alerts/{id}/read", s.handleAlertRead(true))
		r.Post("/alerts/{id}/unread", s.handleAlertRead(false))
		r.Get("/trends", s.handleTrends)
		r.Post("/analyze-relevance", s.handleAnalyzeRelevance)
		r.Get("/auto-ingest/enabled", s.handleIngestEnabled)
		r.Post("/auto-ingest/enabled", s.handleIngestToggle)
	})

	r.Route("/api/auto-ingest", func(r chi.Router) {
		r.Post("/run", s.handleIngestRun)
		r.Get("/status", s.handleIngestStatus)
		r.Get("/pending", s.handleIngestPending)
		r.Post("/enable", s.handleIngestSetEnabled(true))
		r.Post("/disable", s.handleIngestSetEnabled(false))
		r.Get("/stats", s.handleIngestStats)
	})

	r.Route("/api/background-tasks", func(r chi.Router) {
		r.Post("/bulk-analysis", s.handleBulkAnalysis)
		r.Post("/bulk-save", s.handleBulkSave)
		r.Get("/task/{taskID}", s.handleGetTask)
		r.Delete("/task/{taskID}", s.handleCancelTask)
	})

	r.Get("/ws/bulk-process/{jobID}", s.handleJobSocket)
	r.Get("/ws/progress/{topicID}", s.handleProgressSocket)

	return r
}

// ListenAndServe runs until the context is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Router()}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", map[string]any{"addr": s.addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// writeJSON emits a response body; encoding errors are logged only.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("failed to encode response", map[string]any{"error": err.Error()})
	}
}

// writeError maps the error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errkind.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, errkind.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errkind.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, errkind.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, errkind.ErrTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, errkind.ErrProvider):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]any{"success": false, "error": err.Error()})
}
