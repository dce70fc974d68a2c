package store

import (
	"database/sql"
	"errors"
	"fmt"

	"newswatch/internal/core"
	"newswatch/internal/errkind"
)

// UpsertMediaBiasSource inserts or refreshes a bias record; the normalized
// domain is the unique key.
func (s *Store) UpsertMediaBiasSource(src core.MediaBiasSource) error {
	if src.Source == "" {
		return fmt.Errorf("%w: media bias source domain is empty", errkind.ErrValidation)
	}
	_, err := s.db.Exec(`
		INSERT INTO mediabias (source, country, bias, factual_reporting, press_freedom,
			media_type, popularity, mbfc_credibility_rating, enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET
			country = excluded.country,
			bias = excluded.bias,
			factual_reporting = excluded.factual_reporting,
			press_freedom = excluded.press_freedom,
			media_type = excluded.media_type,
			popularity = excluded.popularity,
			mbfc_credibility_rating = excluded.mbfc_credibility_rating,
			enabled = excluded.enabled`,
		src.Source, src.Country, src.Bias, src.FactualReporting, src.PressFreedom,
		src.MediaType, src.Popularity, src.MBFCCredibilityRating, src.Enabled,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert media bias source: %w", err)
	}
	return nil
}

// GetMediaBiasSource looks up a bias record by normalized domain.
func (s *Store) GetMediaBiasSource(domain string) (*core.MediaBiasSource, error) {
	var src core.MediaBiasSource
	err := s.db.QueryRow(`
		SELECT id, source, country, bias, factual_reporting, press_freedom,
			media_type, popularity, mbfc_credibility_rating, enabled
		FROM mediabias WHERE source = ?`, domain).
		Scan(&src.ID, &src.Source, &src.Country, &src.Bias, &src.FactualReporting,
			&src.PressFreedom, &src.MediaType, &src.Popularity, &src.MBFCCredibilityRating, &src.Enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("media bias source %s: %w", domain, errkind.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan media bias source: %w", err)
	}
	return &src, nil
}

// EnableMediaBiasSource flips a disabled source on. Used when a disabled
// record first matches an incoming article; single-row UPDATE, no
// read-modify-write.
func (s *Store) EnableMediaBiasSource(id int64) error {
	_, err := s.db.Exec(`UPDATE mediabias SET enabled = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to enable media bias source: %w", err)
	}
	return nil
}
