package index

import (
	"context"
	"sync"

	"github.com/alphas/policyrag-go/internal/rag"
)

// Memory is an in-memory VectorIndex. Vectors and metadata live in a map
// guarded by an RWMutex so queries never block each other. State is lost on
// process exit — use the SQLite or Qdrant backends for durability.
type Memory struct {
	// mu guards entries. Reads take the shared lock.
	mu sync.RWMutex

	// entries maps chunk ID to its vector and metadata.
	entries map[string]rag.IndexEntry

	// dimension is the fixed embedding vector size D.
	dimension int
}

// NewMemory constructs an empty in-memory index with the given fixed
// embedding dimension.
func NewMemory(dimension int) *Memory {
	return &Memory{
		entries:   make(map[string]rag.IndexEntry),
		dimension: dimension,
	}
}

// Upsert stores or replaces the given entries.
func (m *Memory) Upsert(_ context.Context, entries []rag.IndexEntry) error {
	for _, e := range entries {
		if err := checkDimension(len(e.Vector), m.dimension); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.entries[e.ChunkID] = e
	}
	return nil
}

// Remove deletes the given chunk IDs. Unknown IDs are ignored.
func (m *Memory) Remove(_ context.Context, chunkIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range chunkIDs {
		delete(m.entries, id)
	}
	return nil
}

// Query scores every entry matching the pre-filter against the query vector
// and returns the topK best, ordered per the VectorIndex contract.
// An empty index yields an empty result, not an error.
func (m *Memory) Query(_ context.Context, vector []float32, topK int, f rag.Filters) ([]rag.RetrievalResult, error) {
	if err := checkDimension(len(vector), m.dimension); err != nil {
		return nil, err
	}

	m.mu.RLock()
	results := make([]rag.RetrievalResult, 0, len(m.entries))
	for _, e := range m.entries {
		if !matchesFilters(e.Department, e.Category, f) {
			continue
		}
		results = append(results, rag.RetrievalResult{
			ChunkID:    e.ChunkID,
			DocumentID: e.DocumentID,
			ChunkIndex: e.ChunkIndex,
			Score:      cosine(vector, e.Vector),
			Text:       e.Text,
			Title:      e.Title,
			Department: e.Department,
			Category:   e.Category,
		})
	}
	m.mu.RUnlock()

	return sortResults(results, topK), nil
}

// Size returns the number of indexed chunks.
func (m *Memory) Size(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

// Close is a no-op for the in-memory index.
func (m *Memory) Close() error { return nil }
