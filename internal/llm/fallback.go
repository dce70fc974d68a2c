package llm

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"math/rand"
	"strings"

	"newswatch/internal/core"
)

// truncateForEmbedding keeps the input inside the embedding model's token
// budget, cutting at a word boundary.
func truncateForEmbedding(text string) string {
	return core.TruncateAtWord(strings.TrimSpace(text), embeddingCharBudget)
}

// randomEmbedding derives a unit-length pseudo-random vector from the text
// itself, so repeated calls with the same input return the same vector.
func randomEmbedding(text string, dimensions int) []float64 {
	sum := sha256.Sum256([]byte(text))
	seed := int64(binary.BigEndian.Uint64(sum[:8]))
	rng := rand.New(rand.NewSource(seed))

	vector := make([]float64, dimensions)
	var norm float64
	for i := range vector {
		vector[i] = rng.NormFloat64()
		norm += vector[i] * vector[i]
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return vector
	}
	for i := range vector {
		vector[i] /= norm
	}
	return vector
}
