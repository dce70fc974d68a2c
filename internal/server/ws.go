package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"newswatch/internal/logger"
	"newswatch/internal/tasks"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsMessage is the envelope for every frame in both directions.
type wsMessage struct {
	Type      string `json:"type"`
	JobID     string `json:"job_id,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Current   int    `json:"current,omitempty"`
	Total     int    `json:"total,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

func stamp(msg wsMessage) wsMessage {
	msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	return msg
}

// handleJobSocket streams progress for one background task. Clients may
// send ping frames and subscribe_job to switch jobs mid-connection.
func (s *Server) handleJobSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", map[string]any{"error": err.Error()})
		return
	}
	defer conn.Close()

	jobID := chi.URLParam(r, "jobID")
	s.streamJob(conn, jobID)
}

// handleProgressSocket streams progress updates for pipeline runs tied to a
// topic. It relays the same task events as the job socket but is addressed
// by topic for dashboard clients.
func (s *Server) handleProgressSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", map[string]any{"error": err.Error()})
		return
	}
	defer conn.Close()

	// Without a job binding yet, wait for a subscribe_job frame.
	s.streamJob(conn, "")
}

// streamJob pumps task progress to the client until the task ends or the
// client disconnects.
func (s *Server) streamJob(conn *websocket.Conn, jobID string) {
	// Client frames: ping and subscribe_job.
	incoming := make(chan wsMessage, 8)
	go func() {
		defer close(incoming)
		for {
			var msg wsMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			incoming <- msg
		}
	}()

	var progress <-chan tasks.Progress
	subscribe := func(id string) {
		ch, err := s.tasks.Subscribe(id)
		if err != nil {
			_ = conn.WriteJSON(stamp(wsMessage{Type: "error", JobID: id, Error: err.Error()}))
			return
		}
		jobID = id
		progress = ch
	}
	if jobID != "" {
		subscribe(jobID)
	}

	for {
		select {
		case msg, ok := <-incoming:
			if !ok {
				return
			}
			switch msg.Type {
			case "ping":
				_ = conn.WriteJSON(stamp(wsMessage{Type: "pong"}))
			case "subscribe_job":
				subscribe(msg.JobID)
			}
		case update, ok := <-progress:
			if !ok {
				s.finishJob(conn, jobID)
				progress = nil
				continue
			}
			_ = conn.WriteJSON(stamp(wsMessage{
				Type:    "progress",
				JobID:   jobID,
				Current: update.Current,
				Total:   update.Total,
				Message: update.Message,
			}))
		}
	}
}

// finishJob sends the terminal frame once the progress channel closes.
func (s *Server) finishJob(conn *websocket.Conn, jobID string) {
	task, err := s.tasks.Get(jobID)
	if err != nil {
		_ = conn.WriteJSON(stamp(wsMessage{Type: "error", JobID: jobID, Error: err.Error()}))
		return
	}
	switch task.Status {
	case tasks.StatusCompleted:
		_ = conn.WriteJSON(stamp(wsMessage{Type: "completed", JobID: jobID}))
	case tasks.StatusFailed:
		_ = conn.WriteJSON(stamp(wsMessage{Type: "error", JobID: jobID, Error: task.Error}))
	case tasks.StatusCancelled:
		_ = conn.WriteJSON(stamp(wsMessage{Type: "error", JobID: jobID, Error: "cancelled"}))
	}
}
