package vectorstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"newswatch/internal/errkind"
)

// snapshotName is the index file inside the snapshot directory.
const snapshotName = "index.json"

type snapshotEntry struct {
	ID        string         `json:"id"`
	Embedding []float64      `json:"embedding"`
	Metadata  map[string]any `json:"metadata"`
	Document  string         `json:"document"`
}

// Save writes the index to dir so a restart can rebuild it without
// re-embedding every article.
func (m *MemoryStore) Save(dir string) error {
	if dir == "" {
		return fmt.Errorf("%w: snapshot directory not set", errkind.ErrValidation)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	m.mu.RLock()
	entries := make([]snapshotEntry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, snapshotEntry{
			ID:        e.id,
			Embedding: e.embedding,
			Metadata:  e.metadata,
			Document:  e.document,
		})
	}
	m.mu.RUnlock()

	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	path := filepath.Join(dir, snapshotName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// Load replaces the index with the snapshot in dir. A missing snapshot is
// not an error; the index simply starts empty.
func (m *MemoryStore) Load(dir string) error {
	if dir == "" {
		return nil
	}
	raw, err := os.ReadFile(filepath.Join(dir, snapshotName))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	var entries []snapshotEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}

	loaded := make(map[string]*entry, len(entries))
	for _, se := range entries {
		// JSON decodes the epoch-seconds metadata as float64; restore the
		// integer form the filters and projection expect.
		if ts, ok := se.Metadata["publication_date_ts"].(float64); ok {
			se.Metadata["publication_date_ts"] = int64(ts)
		}
		loaded[se.ID] = &entry{
			id:        se.ID,
			embedding: se.Embedding,
			metadata:  se.Metadata,
			document:  se.Document,
		}
	}

	m.mu.Lock()
	m.entries = loaded
	m.mu.Unlock()
	return nil
}
