package vectorstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"newswatch/internal/core"
	"newswatch/internal/errkind"
)

// stubEmbedder maps each distinct text to a deterministic vector so distance
// ordering in tests is predictable.
type stubEmbedder struct {
	vectors map[string][]float64
	err     error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return []float64{1, 0, 0}, nil
}

func (s *stubEmbedder) Dimensions() int { return 3 }

func newTestStore() *MemoryStore {
	return NewMemoryStore(&stubEmbedder{vectors: map[string][]float64{
		"alpha":   {1, 0, 0},
		"beta":    {0.9, 0.1, 0},
		"gamma":   {0, 1, 0},
		"query-a": {1, 0, 0},
	}})
}

func upsert(t *testing.T, m *MemoryStore, uri, text, topic string) {
	t.Helper()
	article := core.Article{URI: uri, Title: text, Topic: topic, PublicationDate: "2025-06-01"}
	if err := m.Upsert(context.Background(), article, text); err != nil {
		t.Fatalf("Upsert(%s) failed: %v", uri, err)
	}
}

func TestUpsertAndCount(t *testing.T) {
	m := newTestStore()
	upsert(t, m, "https://ex.com/a1", "alpha", "AI")
	upsert(t, m, "https://ex.com/a2", "beta", "AI")

	if m.Count() != 2 {
		t.Errorf("Expected 2 entries, got %d", m.Count())
	}

	// Upserting the same URI replaces, not duplicates.
	upsert(t, m, "https://ex.com/a1", "gamma", "AI")
	if m.Count() != 2 {
		t.Errorf("Expected 2 entries after re-upsert, got %d", m.Count())
	}
}

func TestUpsertRejectsEmptyArticle(t *testing.T) {
	m := newTestStore()
	err := m.Upsert(context.Background(), core.Article{URI: "https://ex.com/empty"}, "")
	if !errors.Is(err, errkind.ErrNoContent) {
		t.Errorf("Expected no-content error, got %v", err)
	}
}

func TestSearchRanksByDistance(t *testing.T) {
	m := newTestStore()
	upsert(t, m, "https://ex.com/a1", "alpha", "AI")
	upsert(t, m, "https://ex.com/a2", "beta", "AI")
	upsert(t, m, "https://ex.com/a3", "gamma", "Energy")

	results, err := m.Search(context.Background(), "query-a", 3, nil)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	if results[0].ID != "https://ex.com/a1" {
		t.Errorf("Expected exact match first, got %s", results[0].ID)
	}
	if results[2].ID != "https://ex.com/a3" {
		t.Errorf("Expected orthogonal vector last, got %s", results[2].ID)
	}
	if results[0].Score > results[1].Score || results[1].Score > results[2].Score {
		t.Error("Expected scores sorted ascending")
	}
}

func TestSearchTopKLimit(t *testing.T) {
	m := newTestStore()
	upsert(t, m, "https://ex.com/a1", "alpha", "AI")
	upsert(t, m, "https://ex.com/a2", "beta", "AI")
	upsert(t, m, "https://ex.com/a3", "gamma", "AI")

	results, err := m.Search(context.Background(), "query-a", 2, nil)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("Expected topK to cap results at 2, got %d", len(results))
	}
}

func TestSearchMetadataFilter(t *testing.T) {
	m := newTestStore()
	upsert(t, m, "https://ex.com/a1", "alpha", "AI")
	upsert(t, m, "https://ex.com/a3", "gamma", "Energy")

	results, err := m.Search(context.Background(), "query-a", 10, map[string]any{"topic": "Energy"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 || results[0].ID != "https://ex.com/a3" {
		t.Errorf("Expected only the Energy article, got %+v", results)
	}
}

func TestSearchEmptyStore(t *testing.T) {
	m := newTestStore()
	results, err := m.Search(context.Background(), "query-a", 5, nil)
	if err != nil {
		t.Fatalf("Search on empty store failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected empty result set, got %d", len(results))
	}
}

func TestSimilarExcludesSeed(t *testing.T) {
	m := newTestStore()
	upsert(t, m, "https://ex.com/a1", "alpha", "AI")
	upsert(t, m, "https://ex.com/a2", "beta", "AI")
	upsert(t, m, "https://ex.com/a3", "gamma", "AI")

	results, err := m.Similar(context.Background(), "https://ex.com/a1", 10)
	if err != nil {
		t.Fatalf("Similar failed: %v", err)
	}
	for _, r := range results {
		if r.ID == "https://ex.com/a1" {
			t.Error("Expected seed excluded from similar results")
		}
	}
	if len(results) != 2 || results[0].ID != "https://ex.com/a2" {
		t.Errorf("Expected nearest neighbor first, got %+v", results)
	}
}

func TestSimilarMissingSeed(t *testing.T) {
	m := newTestStore()
	upsert(t, m, "https://ex.com/a1", "alpha", "AI")

	results, err := m.Similar(context.Background(), "https://ex.com/missing", 10)
	if err != nil {
		t.Fatalf("Similar failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected empty slice for missing seed, got %+v", results)
	}
}

func TestGetByMetadata(t *testing.T) {
	m := newTestStore()
	upsert(t, m, "https://ex.com/a1", "alpha", "AI")
	upsert(t, m, "https://ex.com/a3", "gamma", "Energy")

	vectors, metadatas, ids, err := m.GetByMetadata(map[string]any{"topic": "AI"}, 0)
	if err != nil {
		t.Fatalf("GetByMetadata failed: %v", err)
	}
	if len(vectors) != 1 || len(metadatas) != 1 || len(ids) != 1 {
		t.Fatalf("Expected one match, got %d", len(ids))
	}
	if ids[0] != "https://ex.com/a1" {
		t.Errorf("Unexpected id %s", ids[0])
	}
}

func TestDelete(t *testing.T) {
	m := newTestStore()
	upsert(t, m, "https://ex.com/a1", "alpha", "AI")
	m.Delete("https://ex.com/a1")
	if m.Count() != 0 {
		t.Errorf("Expected empty store after delete, got %d", m.Count())
	}
}

func TestProjectMetadataFields(t *testing.T) {
	article := core.Article{
		URI:             "https://ex.com/a1",
		Title:           "A title",
		NewsSource:      "ex.com",
		Topic:           "AI",
		Tags:            []string{"ai", "models"},
		PublicationDate: "2025-06-01",
	}
	meta := projectMetadata(article)

	if meta["tags"] != "ai,models" {
		t.Errorf("Expected comma-joined tags, got %v", meta["tags"])
	}
	if _, ok := meta["category"]; ok {
		t.Error("Expected empty fields dropped")
	}

	ts, ok := meta["publication_date_ts"].(int64)
	if !ok {
		t.Fatalf("Expected int64 timestamp, got %T", meta["publication_date_ts"])
	}
	want := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).Unix()
	if ts != want {
		t.Errorf("Expected %d, got %d", want, ts)
	}
}

func TestPublicationTimestampFormats(t *testing.T) {
	cases := []struct {
		date string
		want int64
	}{
		{"2025-06-01", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).Unix()},
		{"2025-06-01T10:30:00Z", time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC).Unix()},
		{"January 2, 2025", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC).Unix()},
	}
	for _, tc := range cases {
		if got := publicationTimestamp("u", tc.date); got != tc.want {
			t.Errorf("publicationTimestamp(%q) = %d, want %d", tc.date, got, tc.want)
		}
	}

	// Unknown formats fall back to roughly now.
	got := publicationTimestamp("u", "last Tuesday")
	if diff := time.Now().UTC().Unix() - got; diff < 0 || diff > 5 {
		t.Errorf("Expected fallback near now, got %d", got)
	}
}

func TestProjectClustersAllPoints(t *testing.T) {
	vectors := make([][]float64, 9)
	for i := range vectors {
		base := float64(i / 3 * 10)
		vectors[i] = []float64{base + float64(i%3), base, 0}
	}

	p, err := project(vectors)
	if err != nil {
		t.Fatalf("project failed: %v", err)
	}
	if len(p.Points) != 9 {
		t.Fatalf("Expected a point per vector, got %d", len(p.Points))
	}
	if len(p.Centroids) != 3 || len(p.Sizes) != 3 {
		t.Fatalf("Expected 3 clusters, got %d centroids, %d sizes", len(p.Centroids), len(p.Sizes))
	}

	total := 0
	for _, size := range p.Sizes {
		total += size
	}
	if total != 9 {
		t.Errorf("Expected cluster sizes to sum to 9, got %d", total)
	}
	for i, pt := range p.Points {
		if pt.Cluster < 0 || pt.Cluster >= 3 {
			t.Errorf("Point %d has cluster %d out of range", i, pt.Cluster)
		}
	}
}

func TestProjectFewerVectorsThanClusters(t *testing.T) {
	p, err := project([][]float64{{1, 2}, {3, 4}})
	if err != nil {
		t.Fatalf("project failed: %v", err)
	}
	if len(p.Centroids) != 2 {
		t.Errorf("Expected k reduced to 2, got %d", len(p.Centroids))
	}
}

func TestProjectEmptyInput(t *testing.T) {
	p, err := project(nil)
	if err != nil {
		t.Fatalf("project failed: %v", err)
	}
	if len(p.Points) != 0 || len(p.Centroids) != 0 {
		t.Errorf("Expected empty projection, got %+v", p)
	}
}

func TestProjectRejectsRaggedVectors(t *testing.T) {
	_, err := project([][]float64{{1, 2}, {1}})
	if !errors.Is(err, errkind.ErrValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestCosineDistance(t *testing.T) {
	if d := cosineDistance([]float64{1, 0}, []float64{1, 0}); d > 1e-9 {
		t.Errorf("Expected zero distance for identical vectors, got %v", d)
	}
	if d := cosineDistance([]float64{1, 0}, []float64{0, 1}); d != 1 {
		t.Errorf("Expected distance 1 for orthogonal vectors, got %v", d)
	}
	if d := cosineDistance([]float64{0, 0}, []float64{1, 0}); d != 1 {
		t.Errorf("Expected zero-norm vectors maximally distant, got %v", d)
	}
}
