package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"newswatch/internal/core"
	"newswatch/internal/errkind"
)

// CreateKeywordGroup inserts a named group and returns its id.
func (s *Store) CreateKeywordGroup(name, topic string) (int64, error) {
	if name == "" || topic == "" {
		return 0, fmt.Errorf("%w: group name and topic are required", errkind.ErrValidation)
	}
	res, err := s.db.Exec(`INSERT INTO keyword_groups (name, topic) VALUES (?, ?)`, name, topic)
	if err != nil {
		return 0, fmt.Errorf("failed to create keyword group: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read group id: %w", err)
	}
	return id, nil
}

// GetKeywordGroup retrieves a group by id.
func (s *Store) GetKeywordGroup(id int64) (*core.KeywordGroup, error) {
	var g core.KeywordGroup
	err := s.db.QueryRow(`SELECT id, name, topic FROM keyword_groups WHERE id = ?`, id).
		Scan(&g.ID, &g.Name, &g.Topic)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("keyword group %d: %w", id, errkind.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan keyword group: %w", err)
	}
	return &g, nil
}

// ListKeywordGroups returns all groups ordered by id.
func (s *Store) ListKeywordGroups() ([]core.KeywordGroup, error) {
	rows, err := s.db.Query(`SELECT id, name, topic FROM keyword_groups ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list keyword groups: %w", err)
	}
	defer rows.Close()

	var groups []core.KeywordGroup
	for rows.Next() {
		var g core.KeywordGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.Topic); err != nil {
			return nil, fmt.Errorf("failed to scan keyword group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// AddKeyword attaches a query string to a group and returns the keyword id.
func (s *Store) AddKeyword(groupID int64, keyword string) (int64, error) {
	if keyword == "" {
		return 0, fmt.Errorf("%w: keyword is empty", errkind.ErrValidation)
	}
	if _, err := s.GetKeywordGroup(groupID); err != nil {
		return 0, err
	}
	res, err := s.db.Exec(`INSERT INTO monitored_keywords (group_id, keyword) VALUES (?, ?)`, groupID, keyword)
	if err != nil {
		return 0, fmt.Errorf("failed to add keyword: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read keyword id: %w", err)
	}
	return id, nil
}

// ListKeywords returns monitored keywords in id order, optionally filtered
// by group. The id ordering is what the monitor tick iterates.
func (s *Store) ListKeywords(groupID int64) ([]core.Keyword, error) {
	query := `SELECT id, group_id, keyword, COALESCE(last_checked, '') FROM monitored_keywords`
	var args []any
	if groupID > 0 {
		query += ` WHERE group_id = ?`
		args = append(args, groupID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list keywords: %w", err)
	}
	defer rows.Close()

	var keywords []core.Keyword
	for rows.Next() {
		var k core.Keyword
		var checked string
		if err := rows.Scan(&k.ID, &k.GroupID, &k.Keyword, &checked); err != nil {
			return nil, fmt.Errorf("failed to scan keyword: %w", err)
		}
		if checked != "" {
			if t, err := parseStoredTime(checked); err == nil {
				k.LastChecked = t
			}
		}
		keywords = append(keywords, k)
	}
	return keywords, rows.Err()
}

// TouchKeyword records the end of a successful provider check.
func (s *Store) TouchKeyword(id int64, checkedAt time.Time) error {
	res, err := s.db.Exec(`UPDATE monitored_keywords SET last_checked = ? WHERE id = ?`,
		checkedAt.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to touch keyword: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("keyword %d: %w", id, errkind.ErrNotFound)
	}
	return nil
}

// parseStoredTime accepts the timestamp encodings sqlite may hand back.
func parseStoredTime(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", raw)
}
