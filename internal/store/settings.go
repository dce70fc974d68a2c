package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"newswatch/internal/core"
	"newswatch/internal/errkind"
)

// GetMonitorSettings loads the singleton settings row.
func (s *Store) GetMonitorSettings() (core.MonitorSettings, error) {
	var raw string
	err := s.db.QueryRow(`SELECT settings FROM keyword_monitor_settings WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DefaultMonitorSettings(), nil
	}
	if err != nil {
		return core.MonitorSettings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	settings := core.DefaultMonitorSettings()
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return core.MonitorSettings{}, fmt.Errorf("failed to decode settings: %w", err)
	}
	return settings, nil
}

// SaveMonitorSettings replaces the singleton settings row.
func (s *Store) SaveMonitorSettings(settings core.MonitorSettings) error {
	if settings.MinRelevanceThreshold < 0 || settings.MinRelevanceThreshold > 1 {
		return fmt.Errorf("%w: min_relevance_threshold must be in [0,1]", errkind.ErrValidation)
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO keyword_monitor_settings (id, settings) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET settings = excluded.settings`, string(raw))
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// GetMonitorStatus loads the singleton status row.
func (s *Store) GetMonitorStatus() (core.MonitorStatus, error) {
	var status core.MonitorStatus
	var lastRun, nextRun string
	err := s.db.QueryRow(`
		SELECT COALESCE(last_run_time, ''), COALESCE(next_run_time, ''), last_error, requests_today, last_reset_date
		FROM keyword_monitor_status WHERE id = 1`).
		Scan(&lastRun, &nextRun, &status.LastError, &status.RequestsToday, &status.LastResetDate)
	if err != nil {
		return core.MonitorStatus{}, fmt.Errorf("failed to load status: %w", err)
	}
	if lastRun != "" {
		if t, err := parseStoredTime(lastRun); err == nil {
			status.LastRunTime = t
		}
	}
	if nextRun != "" {
		if t, err := parseStoredTime(nextRun); err == nil {
			status.NextRunTime = t
		}
	}
	return status, nil
}

// RecordRun stamps the last/next run times after a tick. It leaves
// last_error alone so a failed pass stays visible in status.
func (s *Store) RecordRun(lastRun, nextRun time.Time) error {
	_, err := s.db.Exec(`
		UPDATE keyword_monitor_status
		SET last_run_time = ?, next_run_time = ?
		WHERE id = 1`,
		lastRun.UTC().Format(time.RFC3339), nextRun.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// ClearError resets last_error after a successful pass.
func (s *Store) ClearError() error {
	_, err := s.db.Exec(`UPDATE keyword_monitor_status SET last_error = '' WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("failed to clear error: %w", err)
	}
	return nil
}

// RecordError writes a tick failure into the status row.
func (s *Store) RecordError(message string) error {
	_, err := s.db.Exec(`UPDATE keyword_monitor_status SET last_error = ? WHERE id = 1`, message)
	if err != nil {
		return fmt.Errorf("failed to record error: %w", err)
	}
	return nil
}

// ConsumeRequest atomically increments the shared daily request counter.
// The limit check and the increment run as single-row UPDATEs, so concurrent
// collectors cannot overshoot. Returns ErrRateLimited when the day's budget
// is spent.
func (s *Store) ConsumeRequest(limit int) error {
	today := time.Now().UTC().Format("2006-01-02")

	// Roll the counter over on the first request of a new UTC day.
	if _, err := s.db.Exec(`
		UPDATE keyword_monitor_status
		SET requests_today = 0, last_reset_date = ?
		WHERE id = 1 AND last_reset_date <> ?`, today, today); err != nil {
		return fmt.Errorf("failed to reset request counter: %w", err)
	}

	res, err := s.db.Exec(`
		UPDATE keyword_monitor_status
		SET requests_today = requests_today + 1
		WHERE id = 1 AND requests_today < ?`, limit)
	if err != nil {
		return fmt.Errorf("failed to increment request counter: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("daily request limit %d reached: %w", limit, errkind.ErrRateLimited)
	}
	return nil
}
