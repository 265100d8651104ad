// Package index provides VectorIndex implementations: an in-memory index for
// tests and ephemeral use, a durable SQLite-backed index, and a Qdrant-backed
// index for larger deployments. All three use cosine similarity over a fixed
// embedding dimension and return results sorted by descending score with ties
// broken by ascending chunk ID for determinism.
package index

import (
	"fmt"
	"math"
	"sort"

	"github.com/alphas/policyrag-go/internal/rag"
)

// cosine returns the cosine similarity of two equal-length vectors.
// Returns 0 when either vector has zero magnitude.
func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// checkDimension validates a vector against the index's fixed dimension.
func checkDimension(got, want int) error {
	if got != want {
		return fmt.Errorf("index: vector has dimension %d, index expects %d: %w", got, want, rag.ErrIndexCorrupt)
	}
	return nil
}

// matchesFilters reports whether an entry's metadata satisfies the pre-filter.
func matchesFilters(department, category string, f rag.Filters) bool {
	if f.Department != "" && department != f.Department {
		return false
	}
	if f.Category != "" && category != f.Category {
		return false
	}
	return true
}

// sortResults orders results by descending score, ties broken by ascending
// chunk ID, then truncates to topK.
func sortResults(results []rag.RetrievalResult, topK int) []rag.RetrievalResult {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkID < results[j].ChunkID
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}
