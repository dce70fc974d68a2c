package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"newswatch/internal/core"
	"newswatch/internal/errkind"
	"newswatch/internal/llm"
)

// entry is one stored vector with its source document text kept for
// similarity re-embedding.
type entry struct {
	id        string
	embedding []float64
	metadata  map[string]any
	document  string
}

// MemoryStore is an in-process vector index with cosine distance ranking.
type MemoryStore struct {
	mu       sync.RWMutex
	embedder llm.Embedder
	entries  map[string]*entry
}

func NewMemoryStore(embedder llm.Embedder) *MemoryStore {
	return &MemoryStore{
		embedder: embedder,
		entries:  map[string]*entry{},
	}
}

func (m *MemoryStore) Upsert(ctx context.Context, article core.Article, rawText string) error {
	text, err := bestText(article, rawText)
	if err != nil {
		return err
	}
	embedding, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("%w: embedding failed for %s: %v", errkind.ErrVector, article.URI, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[article.URI] = &entry{
		id:        article.URI,
		embedding: embedding,
		metadata:  projectMetadata(article),
		document:  text,
	}
	return nil
}

func (m *MemoryStore) Search(ctx context.Context, query string, topK int, filter map[string]any) ([]SearchResult, error) {
	m.mu.RLock()
	empty := len(m.entries) == 0
	m.mu.RUnlock()
	if empty {
		return []SearchResult{}, nil
	}

	embedding, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: query embedding failed: %v", errkind.ErrVector, err)
	}
	return m.rank(embedding, topK, filter, ""), nil
}

func (m *MemoryStore) Similar(ctx context.Context, uri string, topK int) ([]SearchResult, error) {
	m.mu.RLock()
	seed, ok := m.entries[uri]
	m.mu.RUnlock()
	if !ok {
		return []SearchResult{}, nil
	}

	// Re-embed the stored document text rather than reusing the stored
	// vector, so a changed embedder produces comparable scores.
	embedding, err := m.embedder.Embed(ctx, seed.document)
	if err != nil {
		return nil, fmt.Errorf("%w: similar embedding failed: %v", errkind.ErrVector, err)
	}
	return m.rank(embedding, topK, nil, uri), nil
}

func (m *MemoryStore) GetByMetadata(filter map[string]any, limit int) ([][]float64, []map[string]any, []string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var vectors [][]float64
	var metadatas []map[string]any
	var ids []string
	for _, e := range m.entries {
		if !matchesFilter(e.metadata, filter) {
			continue
		}
		vectors = append(vectors, e.embedding)
		metadatas = append(metadatas, e.metadata)
		ids = append(ids, e.id)
		if limit > 0 && len(ids) >= limit {
			break
		}
	}
	return vectors, metadatas, ids, nil
}

func (m *MemoryStore) Delete(uri string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, uri)
}

func (m *MemoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// rank scores every matching entry by cosine distance and returns the topK
// closest.
func (m *MemoryStore) rank(query []float64, topK int, filter map[string]any, exclude string) []SearchResult {
	if topK <= 0 {
		topK = 10
	}

	m.mu.RLock()
	results := make([]SearchResult, 0, len(m.entries))
	for _, e := range m.entries {
		if e.id == exclude || !matchesFilter(e.metadata, filter) {
			continue
		}
		results = append(results, SearchResult{
			ID:       e.id,
			Score:    cosineDistance(query, e.embedding),
			Metadata: e.metadata,
		})
	}
	m.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool { return results[i].Score < results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

// matchesFilter applies equality matching; a nil or empty filter matches
// everything.
func matchesFilter(metadata, filter map[string]any) bool {
	for key, want := range filter {
		got, ok := metadata[key]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

// cosineDistance = 1 - cosine similarity. Zero-norm vectors are maximally
// distant.
func cosineDistance(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
