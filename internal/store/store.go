// Package store is the durable relational layer for articles, raw content,
// keyword groups, alerts, media-bias metadata, and the monitor settings and
// status singletons. SQLite is the default engine; all list-valued fields are
// stored as JSON text columns.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"newswatch/internal/core"
)

// Store wraps the SQLite database backing all durable state.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the database under dataDir and runs the schema
// migration.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "newswatch.db")
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, nil
}

// initialize creates the necessary tables. Safe to run repeatedly.
func (s *Store) initialize() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS articles (
			uri TEXT PRIMARY KEY,
			title TEXT,
			news_source TEXT,
			publication_date TEXT,
			submission_date TEXT,
			summary TEXT,
			topic TEXT,
			analyzed INTEGER DEFAULT 0,
			category TEXT,
			sentiment TEXT,
			sentiment_explanation TEXT,
			future_signal TEXT,
			future_signal_explanation TEXT,
			time_to_impact TEXT,
			time_to_impact_explanation TEXT,
			driver_type TEXT,
			driver_type_explanation TEXT,
			tags TEXT,
			bias TEXT,
			factual_reporting TEXT,
			mbfc_credibility_rating TEXT,
			bias_source TEXT,
			bias_country TEXT,
			press_freedom TEXT,
			media_type TEXT,
			popularity TEXT,
			topic_alignment_score REAL DEFAULT 0,
			keyword_relevance_score REAL DEFAULT 0,
			confidence_score REAL DEFAULT 0,
			overall_match_explanation TEXT,
			extracted_article_topics TEXT,
			extracted_article_keywords TEXT,
			auto_ingested INTEGER DEFAULT 0,
			ingest_status TEXT DEFAULT '',
			quality_score REAL DEFAULT 0,
			quality_issues TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS raw_articles (
			uri TEXT PRIMARY KEY REFERENCES articles(uri),
			raw_markdown TEXT,
			topic TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS keyword_groups (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			topic TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS monitored_keywords (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			group_id INTEGER NOT NULL REFERENCES keyword_groups(id),
			keyword TEXT NOT NULL,
			last_checked TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS keyword_article_matches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			article_uri TEXT NOT NULL REFERENCES articles(uri),
			keyword_ids TEXT NOT NULL,
			is_read INTEGER DEFAULT 0,
			detected_at TIMESTAMP NOT NULL,
			UNIQUE(keyword_ids, article_uri)
		);`,
		`CREATE TABLE IF NOT EXISTS mediabias (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL UNIQUE,
			country TEXT,
			bias TEXT,
			factual_reporting TEXT,
			press_freedom TEXT,
			media_type TEXT,
			popularity TEXT,
			mbfc_credibility_rating TEXT,
			enabled INTEGER DEFAULT 1
		);`,
		`CREATE TABLE IF NOT EXISTS mediabias_settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			enabled INTEGER DEFAULT 1,
			last_updated TIMESTAMP,
			source_file TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS keyword_monitor_settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			settings TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS keyword_monitor_status (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			last_run_time TIMESTAMP,
			next_run_time TIMESTAMP,
			last_error TEXT DEFAULT '',
			requests_today INTEGER DEFAULT 0,
			last_reset_date TEXT DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS idx_matches_uri ON keyword_article_matches(article_uri);`,
		`CREATE INDEX IF NOT EXISTS idx_matches_read ON keyword_article_matches(is_read);`,
		`CREATE INDEX IF NOT EXISTS idx_keywords_group ON monitored_keywords(group_id);`,
	}

	for _, table := range tables {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	// Seed the singletons.
	if _, err := s.db.Exec(`INSERT OR IGNORE INTO keyword_monitor_status (id) VALUES (1)`); err != nil {
		return fmt.Errorf("failed to seed status row: %w", err)
	}
	defaults, err := json.Marshal(core.DefaultMonitorSettings())
	if err != nil {
		return fmt.Errorf("failed to marshal default settings: %w", err)
	}
	if _, err := s.db.Exec(`INSERT OR IGNORE INTO keyword_monitor_settings (id, settings) VALUES (1, ?)`, string(defaults)); err != nil {
		return fmt.Errorf("failed to seed settings row: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for collaborators that issue their own
// queries (trends, admin scripts).
func (s *Store) DB() *sql.DB {
	return s.db
}

// tableExists reports whether a table is present; used for the legacy alert
// schema read path.
func (s *Store) tableExists(name string) bool {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	return err == nil && n > 0
}

// marshalList serializes a string slice into its JSON text column form.
func marshalList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// unmarshalList parses a JSON text column back into a slice, tolerating
// empty and legacy comma-separated values.
func unmarshalList(raw string) []string {
	if raw == "" {
		return nil
	}
	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err == nil {
		return items
	}
	return splitCSV(raw)
}

func splitCSV(raw string) []string {
	var items []string
	start := 0
	for i := 0; i <= len(raw); i++ {
		if i == len(raw) || raw[i] == ',' {
			part := raw[start:i]
			for len(part) > 0 && part[0] == ' ' {
				part = part[1:]
			}
			for len(part) > 0 && part[len(part)-1] == ' ' {
				part = part[:len(part)-1]
			}
			if part != "" {
				items = append(items, part)
			}
			start = i + 1
		}
	}
	return items
}
