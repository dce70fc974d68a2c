package vectorstore

import (
	"fmt"
	"math"
	"math/rand"

	"newswatch/internal/errkind"
)

// Project configuration. Three clusters match the visualisation layout the
// topic map renders.
const (
	projectClusters      = 3
	projectMaxIterations = 100
	projectBatchSize     = 64
	projectTolerance     = 1e-4
)

// Project runs mini-batch k-means over the supplied vectors and reduces
// each point to its first two dimensions for plotting.
func (m *MemoryStore) Project(vectors [][]float64) (Projection, error) {
	return project(vectors)
}

func project(vectors [][]float64) (Projection, error) {
	n := len(vectors)
	if n == 0 {
		return Projection{Points: []ProjectedPoint{}, Centroids: [][2]float64{}, Sizes: []int{}}, nil
	}
	dims := len(vectors[0])
	for _, v := range vectors {
		if len(v) != dims {
			return Projection{}, fmt.Errorf("%w: inconsistent vector dimensions", errkind.ErrValidation)
		}
	}

	k := projectClusters
	if k > n {
		k = n
	}

	centroids := initialCentroids(vectors, k)
	rng := rand.New(rand.NewSource(int64(n)*31 + int64(dims)))

	for iter := 0; iter < projectMaxIterations; iter++ {
		batch := sampleBatch(vectors, rng)
		moved := updateCentroids(centroids, batch)
		if moved < projectTolerance {
			break
		}
	}

	points := make([]ProjectedPoint, n)
	sizes := make([]int, k)
	for i, v := range vectors {
		cluster := nearestCentroid(v, centroids)
		sizes[cluster]++
		points[i] = ProjectedPoint{X: coord(v, 0), Y: coord(v, 1), Cluster: cluster}
	}

	flat := make([][2]float64, k)
	for i, c := range centroids {
		flat[i] = [2]float64{coord(c, 0), coord(c, 1)}
	}
	return Projection{Points: points, Centroids: flat, Sizes: sizes}, nil
}

// initialCentroids spreads seeds evenly across the input order, which is
// deterministic for tests.
func initialCentroids(vectors [][]float64, k int) [][]float64 {
	centroids := make([][]float64, k)
	step := len(vectors) / k
	for i := 0; i < k; i++ {
		src := vectors[i*step]
		centroids[i] = append([]float64(nil), src...)
	}
	return centroids
}

func sampleBatch(vectors [][]float64, rng *rand.Rand) [][]float64 {
	if len(vectors) <= projectBatchSize {
		return vectors
	}
	batch := make([][]float64, projectBatchSize)
	for i := range batch {
		batch[i] = vectors[rng.Intn(len(vectors))]
	}
	return batch
}

// updateCentroids assigns the batch and moves each centroid toward the mean
// of its members. Returns the largest centroid displacement.
func updateCentroids(centroids, batch [][]float64) float64 {
	k := len(centroids)
	dims := len(centroids[0])
	sums := make([][]float64, k)
	counts := make([]int, k)
	for i := range sums {
		sums[i] = make([]float64, dims)
	}

	for _, v := range batch {
		c := nearestCentroid(v, centroids)
		counts[c]++
		for d := 0; d < dims; d++ {
			sums[c][d] += v[d]
		}
	}

	var maxMove float64
	for i := range centroids {
		if counts[i] == 0 {
			continue
		}
		var move float64
		for d := 0; d < dims; d++ {
			mean := sums[i][d] / float64(counts[i])
			diff := mean - centroids[i][d]
			move += diff * diff
			centroids[i][d] = mean
		}
		if move = math.Sqrt(move); move > maxMove {
			maxMove = move
		}
	}
	return maxMove
}

func nearestCentroid(v []float64, centroids [][]float64) int {
	best := 0
	bestDist := math.MaxFloat64
	for i, c := range centroids {
		var dist float64
		for d := range c {
			diff := v[d] - c[d]
			dist += diff * diff
		}
		if dist < bestDist {
			bestDist = dist
			best = i
		}
	}
	return best
}

func coord(v []float64, dim int) float64 {
	if dim < len(v) {
		return v[dim]
	}
	return 0
}
