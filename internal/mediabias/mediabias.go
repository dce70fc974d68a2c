// Package mediabias enriches articles with bias/factuality metadata keyed
// by publisher domain.
package mediabias

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"newswatch/internal/core"
	"newswatch/internal/errkind"
	"newswatch/internal/logger"
	"newswatch/internal/store"
)

// Registry answers domain lookups against the bias table. Lookups are
// read-mostly; the only write is auto-enabling a disabled source on its
// first match.
type Registry struct {
	store *store.Store
}

func NewRegistry(s *store.Store) *Registry {
	return &Registry{store: s}
}

// NormalizeDomain reduces a source name or URL to the canonical lookup key:
// lowercase host with any www. prefix stripped.
func NormalizeDomain(raw string) string {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return ""
	}
	if strings.Contains(raw, "://") {
		if parsed, err := url.Parse(raw); err == nil && parsed.Host != "" {
			raw = parsed.Host
		}
	}
	raw = strings.TrimPrefix(raw, "www.")
	if i := strings.IndexAny(raw, "/:"); i >= 0 {
		raw = raw[:i]
	}
	return raw
}

// Lookup resolves bias metadata for an article, trying the source name
// first and the URI host as fallback. A disabled record that matches is
// enabled in place. Returns ErrNotFound when neither key resolves.
func (r *Registry) Lookup(source, uri string) (*core.MediaBiasSource, error) {
	for _, key := range []string{NormalizeDomain(source), NormalizeDomain(uri)} {
		if key == "" {
			continue
		}
		src, err := r.store.GetMediaBiasSource(key)
		if errors.Is(err, errkind.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !src.Enabled {
			if err := r.store.EnableMediaBiasSource(src.ID); err != nil {
				logger.Warn("failed to enable media bias source", map[string]any{
					"source": src.Source, "error": err.Error(),
				})
			} else {
				src.Enabled = true
			}
		}
		return src, nil
	}
	return nil, fmt.Errorf("no bias record for %q: %w", source, errkind.ErrNotFound)
}

// Enrich copies bias metadata onto an article in place. A miss is not an
// error; the article is left untouched.
func (r *Registry) Enrich(article *core.Article) {
	src, err := r.Lookup(article.NewsSource, article.URI)
	if err != nil {
		return
	}
	article.Bias = src.Bias
	article.FactualReporting = src.FactualReporting
	article.MBFCCredibilityRating = src.MBFCCredibilityRating
	article.BiasSource = src.Source
	article.BiasCountry = src.Country
	article.PressFreedom = src.PressFreedom
	article.MediaType = src.MediaType
	article.Popularity = src.Popularity
}

// ImportCSV loads a bias dataset into the store. Expected header:
// source,country,bias,factual_reporting,press_freedom,media_type,popularity,
// mbfc_credibility_rating. Rows import disabled; sources flip on as they
// match incoming articles. Returns the number of rows imported.
func (r *Registry) ImportCSV(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open bias dataset: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("failed to parse bias dataset: %w", err)
	}
	if len(rows) < 2 {
		return 0, fmt.Errorf("%w: bias dataset has no data rows", errkind.ErrValidation)
	}

	field := func(row []string, i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	imported := 0
	for _, row := range rows[1:] {
		domain := NormalizeDomain(field(row, 0))
		if domain == "" {
			continue
		}
		src := core.MediaBiasSource{
			Source:                domain,
			Country:               field(row, 1),
			Bias:                  field(row, 2),
			FactualReporting:      field(row, 3),
			PressFreedom:          field(row, 4),
			MediaType:             field(row, 5),
			Popularity:            field(row, 6),
			MBFCCredibilityRating: field(row, 7),
			Enabled:               false,
		}
		if err := r.store.UpsertMediaBiasSource(src); err != nil {
			logger.Warn("skipping bias row", map[string]any{"source": domain, "error": err.Error()})
			continue
		}
		imported++
	}
	return imported, nil
}
