// Package similarity provides the vector math shared by the
// VectorIndex implementations.
package similarity

import (
	"math"
	"sort"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// Cosine computes the cosine similarity between two vectors of equal
// length. A zero vector yields 0.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := 0; i < len(a); i++ {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	den := math.Sqrt(na) * math.Sqrt(nb)
	if den == 0 {
		return 0
	}
	return dot / den
}

// Score converts cosine similarity into the query score: negative
// similarities (cosine distance above 1) clamp to 0.
func Score(a, b []float32) float64 {
	sim := Cosine(a, b)
	if sim < 0 {
		return 0
	}
	return sim
}

// Sort orders results by descending similarity, breaking ties by
// chunk ID for deterministic output.
func Sort(results []domain.SearchResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ChunkID < results[j].ChunkID
	})
}
