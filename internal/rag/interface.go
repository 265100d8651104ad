// Package rag defines the domain types and ports for the HR-policy
// retrieval-augmented question-answering core: documents and their chunks,
// retrieval results, answers, and the interfaces to the external embedding,
// vector-search, and generation capabilities. Concrete implementations
// (SQLite, Qdrant, Ollama, OpenAI, etc.) satisfy these interfaces so the
// service layer never depends on a specific backend.
package rag

import (
	"context"
	"time"
)

// SourceType classifies where a document came from.
type SourceType string

const (
	// SourcePolicy marks a full policy document.
	SourcePolicy SourceType = "policy"
	// SourceFAQ marks a document synthesised from a frequently-asked question.
	SourceFAQ SourceType = "faq"
)

// Document is the canonical unit of knowledge. Documents are immutable once
// ingested; re-ingestion supersedes, it never mutates in place.
type Document struct {
	// ID is the unique identifier assigned by the document store.
	ID string

	// Title is the human-readable document title.
	Title string

	// Department is the owning department (e.g. "rrhh", "finance").
	Department string

	// Category is the policy category (e.g. "vacaciones", "beneficios").
	Category string

	// SourceType is either SourcePolicy or SourceFAQ.
	SourceType SourceType

	// RawText is the full document text as ingested.
	RawText string

	// CreatedAt is when the document was stored.
	CreatedAt time.Time

	// ChunkCount is the number of chunks the raw text was split into.
	// Populated by the document store on Add.
	ChunkCount int
}

// Chunk is a bounded text segment of a document — the unit of embedding and
// retrieval. Chunks are created during chunking and never mutated; they are
// deleted only when the parent document is removed.
type Chunk struct {
	// ID is the unique chunk identifier, stable across re-ingestion of the
	// same document content.
	ID string

	// DocumentID is a non-owning back-reference to the parent document.
	DocumentID string

	// Text is the chunk's text segment.
	Text string

	// Offset is the byte offset of the chunk within the document raw text.
	Offset int

	// Length is the byte length of the chunk text.
	Length int

	// Index is the sequential position of the chunk within its document.
	Index int
}

// RetrievalResult is one ranked hit from a similarity query. Transient —
// produced per query, never persisted.
type RetrievalResult struct {
	// ChunkID identifies the matched chunk.
	ChunkID string `json:"chunk_id"`

	// DocumentID identifies the chunk's parent document.
	DocumentID string `json:"document_id"`

	// ChunkIndex is the chunk's sequential position within its document.
	// Used to detect overlapping adjacent chunks in the same result set.
	ChunkIndex int `json:"chunk_index"`

	// Score is the cosine similarity of the chunk to the query; higher is better.
	Score float32 `json:"score"`

	// Text is the chunk text, denormalised for context assembly.
	Text string `json:"text"`

	// Title is the parent document title, denormalised for attribution.
	Title string `json:"title"`

	// Department is the parent document department, denormalised for filtering.
	Department string `json:"department"`

	// Category is the parent document category, denormalised for filtering.
	Category string `json:"category"`
}

// Answer is the composed response to a question. Transient, produced per request.
type Answer struct {
	// Text is the answer body — generated or extractive.
	Text string `json:"text"`

	// Confidence is in [0,1], monotonic in the top retrieval score and
	// non-decreasing in the number of corroborating sources.
	Confidence float32 `json:"confidence"`

	// Sources is the full ordered retrieval result sequence used.
	Sources []RetrievalResult `json:"sources"`

	// UsedGeneration is true when the external generator produced the text.
	// False means extractive composition (by choice or by degradation).
	UsedGeneration bool `json:"used_generation"`

	// Fallback is true when the department/category filter matched nothing
	// and the pipeline fell back to an unfiltered query.
	Fallback bool `json:"fallback"`
}

// LoadReport summarises one DataLoader run.
type LoadReport struct {
	// DocumentsLoaded is the number of documents successfully ingested.
	DocumentsLoaded int `json:"documents_loaded"`

	// ChunksIndexed is the total number of chunks embedded and indexed.
	ChunksIndexed int `json:"chunks_indexed"`

	// Skipped is the number of documents already present (idempotent skip).
	Skipped int `json:"skipped"`

	// Errors holds one message per document that failed to load. A non-empty
	// slice means a partial failure — the rest of the batch still loaded.
	Errors []string `json:"errors,omitempty"`

	// LoadedAt is when the run finished. Zero when no load has run yet.
	LoadedAt time.Time `json:"loaded_at"`

	// DurationSeconds is the wall-clock duration of the run.
	DurationSeconds float64 `json:"duration_seconds"`
}

// Filters restricts a similarity query before ranking (pre-filter), so every
// returned result satisfies them. Empty fields match everything.
type Filters struct {
	// Department restricts results to chunks of documents in this department.
	Department string

	// Category restricts results to chunks of documents in this category.
	Category string
}

// Embedder converts text into dense fixed-dimension vectors.
// Implementations must be safe to call from multiple goroutines and must be
// deterministic for identical input. On backend failure they return an error
// wrapping ErrEmbeddingUnavailable — never a zero vector.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the fixed output vector size D. Changing D requires
	// a full re-index.
	Dimension() int
}

// VectorIndex maps chunk IDs to embedding vectors and answers
// nearest-neighbour queries. Implementations must be safe for concurrent
// reads; writes are serialised by the caller per affected document.
type VectorIndex interface {
	// Upsert stores or replaces the vector and metadata for each entry.
	Upsert(ctx context.Context, entries []IndexEntry) error

	// Remove deletes the given chunk IDs from the index. Unknown IDs are ignored.
	Remove(ctx context.Context, chunkIDs []string) error

	// Query returns up to topK results ordered by descending cosine
	// similarity, ties broken by ascending chunk ID. Filters are applied
	// before ranking. An empty index yields an empty slice, not an error.
	// A dimension mismatch between the stored and query vectors returns an
	// error wrapping ErrIndexCorrupt.
	Query(ctx context.Context, vector []float32, topK int, f Filters) ([]RetrievalResult, error)

	// Size returns the number of indexed chunks.
	Size(ctx context.Context) (int, error)

	// Close releases any resources held by the index.
	Close() error
}

// IndexEntry is one chunk vector plus the denormalised metadata the index
// needs for pre-filtering and result assembly.
type IndexEntry struct {
	// ChunkID is the unique chunk identifier.
	ChunkID string

	// DocumentID is the parent document identifier.
	DocumentID string

	// ChunkIndex is the chunk's sequential position within its document.
	ChunkIndex int

	// Vector is the chunk embedding of the configured fixed dimension.
	Vector []float32

	// Text is the chunk text returned with query hits.
	Text string

	// Title, Department, and Category are parent document metadata.
	Title      string
	Department string
	Category   string
}

// Generator is the optional external generation capability. Absence of a
// configured generator is a valid, expected state — callers degrade to
// extractive composition. Implementations must be safe for concurrent use.
type Generator interface {
	// Generate produces an answer for the given prompt. Failures return an
	// error wrapping ErrGenerationUnavailable.
	Generate(ctx context.Context, prompt string) (string, error)
}
