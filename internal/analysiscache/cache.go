// Package analysiscache is a content-addressed, TTL-bound cache of LLM
// analysis results. Entries are keyed by (article URI, model name) and
// validated against both the content hash of the analyzed text and the
// prompt registry bundle hash, so either a content edit or a prompt edit
// invalidates the cached record.
package analysiscache

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"newswatch/internal/core"
	"newswatch/internal/logger"
)

// DefaultTTL bounds the age of a valid entry.
const DefaultTTL = 24 * time.Hour

// Entry is the persisted cache record.
type Entry struct {
	URI          string        `json:"uri"`
	ModelName    string        `json:"model_name"`
	ContentHash  string        `json:"content_hash"`
	TemplateHash string        `json:"template_hash"`
	CachedAt     time.Time     `json:"cached_at"`
	Analysis     core.Analysis `json:"analysis"`
}

// Stats summarizes cache contents.
type Stats struct {
	Entries   int       `json:"entries"`
	TotalSize int64     `json:"total_size"`
	Oldest    time.Time `json:"oldest"`
	Newest    time.Time `json:"newest"`
}

// Cache stores entries as JSON files under a two-character hash-prefix
// sub-directory layout.
type Cache struct {
	dir string
	ttl time.Duration
}

// New opens (or creates) a cache rooted at dir.
func New(dir string, ttl time.Duration) (*Cache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{dir: dir, ttl: ttl}, nil
}

// ContentHash fingerprints the analyzed text: SHA-256 truncated to 16 hex
// characters.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%x", sum)[:16]
}

// keyHash addresses the (uri, model) pair on disk.
func keyHash(uri, modelName string) string {
	sum := sha256.Sum256([]byte(uri + "\x00" + modelName))
	return fmt.Sprintf("%x", sum)[:24]
}

func (c *Cache) entryPath(uri, modelName string) string {
	hash := keyHash(uri, modelName)
	return filepath.Join(c.dir, hash[:2], hash+".json")
}

// Get returns the cached analysis iff the content hash and template hash
// both match and the entry is within TTL. A hash mismatch deletes the stale
// entry; corrupt entries are treated as misses.
func (c *Cache) Get(uri, modelName, contentHash, templateHash string) (*core.Analysis, bool) {
	path := c.entryPath(uri, modelName)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		logger.Warn("removing corrupt analysis cache entry", map[string]any{"path": path})
		_ = os.Remove(path)
		return nil, false
	}

	if entry.ContentHash != contentHash || entry.TemplateHash != templateHash {
		_ = os.Remove(path)
		return nil, false
	}
	if time.Since(entry.CachedAt) > c.ttl {
		_ = os.Remove(path)
		return nil, false
	}

	analysis := entry.Analysis
	return &analysis, true
}

// Set overwrites any existing entry for the (uri, model) key.
func (c *Cache) Set(uri, modelName, contentHash, templateHash string, analysis core.Analysis) error {
	entry := Entry{
		URI:          uri,
		ModelName:    modelName,
		ContentHash:  contentHash,
		TemplateHash: templateHash,
		CachedAt:     time.Now().UTC(),
		Analysis:     analysis,
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	path := c.entryPath(uri, modelName)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create cache subdirectory: %w", err)
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Delete removes the entry for a (uri, model) key if present.
func (c *Cache) Delete(uri, modelName string) error {
	err := os.Remove(c.entryPath(uri, modelName))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Stats walks the cache and reports entry count, total size, and age range.
func (c *Cache) Stats() (Stats, error) {
	var stats Stats
	err := c.walk(func(path string, info os.FileInfo) error {
		stats.Entries++
		stats.TotalSize += info.Size()
		mod := info.ModTime()
		if stats.Oldest.IsZero() || mod.Before(stats.Oldest) {
			stats.Oldest = mod
		}
		if mod.After(stats.Newest) {
			stats.Newest = mod
		}
		return nil
	})
	return stats, err
}

// CleanupExpired removes entries older than TTL and returns the count
// removed.
func (c *Cache) CleanupExpired() (int, error) {
	removed := 0
	err := c.walk(func(path string, info os.FileInfo) error {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		var entry Entry
		if err := json.Unmarshal(raw, &entry); err != nil || time.Since(entry.CachedAt) > c.ttl {
			if os.Remove(path) == nil {
				removed++
			}
		}
		return nil
	})
	return removed, err
}

// Clear removes every entry.
func (c *Cache) Clear() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() && len(entry.Name()) == 2 {
			if err := os.RemoveAll(filepath.Join(c.dir, entry.Name())); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
		}
	}
	return nil
}

func (c *Cache) walk(fn func(path string, info os.FileInfo) error) error {
	return filepath.Walk(c.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		return fn(path, info)
	})
}
