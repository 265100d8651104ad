// Package service implements the application operations behind the HTTP API:
// asking questions, managing documents, searching, corpus loading, and health
// reporting. It orchestrates the document store, retrieval pipeline, answer
// composer, and loader, and owns request validation and cascade semantics.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alphas/policyrag-go/internal/composer"
	"github.com/alphas/policyrag-go/internal/docstore"
	"github.com/alphas/policyrag-go/internal/loader"
	"github.com/alphas/policyrag-go/internal/pipeline"
	"github.com/alphas/policyrag-go/internal/rag"
)

// maxDocumentBytes bounds the raw text accepted on AddDocument.
const maxDocumentBytes = 1 << 20 // 1 MiB

// Service wires the retrieval components into the operations exposed over
// HTTP and the CLI. Safe for concurrent use.
type Service struct {
	store    *docstore.Store
	pipe     *pipeline.Pipeline
	comp     *composer.Composer
	load     *loader.Loader
	index    rag.VectorIndex
	genReady bool
	log      *slog.Logger
}

// New constructs a Service. genReady records whether a generation backend is
// configured — it only affects health reporting, not behaviour.
func New(store *docstore.Store, pipe *pipeline.Pipeline, comp *composer.Composer, load *loader.Loader, index rag.VectorIndex, genReady bool, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:    store,
		pipe:     pipe,
		comp:     comp,
		load:     load,
		index:    index,
		genReady: genReady,
		log:      log,
	}
}

// AskRequest is a question plus optional retrieval controls.
type AskRequest struct {
	// Question is the natural-language question. Required.
	Question string `json:"question"`

	// TopK is the number of chunks to retrieve. 0 means the configured default.
	TopK int `json:"top_k,omitempty"`

	// Department optionally restricts retrieval to one department.
	Department string `json:"department,omitempty"`

	// Category optionally restricts retrieval to one category.
	Category string `json:"category,omitempty"`

	// UseAI controls generative composition. Nil means true; false forces an
	// extractive answer even when a generation backend is configured.
	UseAI *bool `json:"use_ai,omitempty"`
}

// Ask answers a question from the indexed corpus.
func (s *Service) Ask(ctx context.Context, req AskRequest) (rag.Answer, error) {
	ret, err := s.pipe.Retrieve(ctx, req.Question, req.TopK, rag.Filters{
		Department: strings.TrimSpace(req.Department),
		Category:   strings.TrimSpace(req.Category),
	})
	if err != nil {
		return rag.Answer{}, fmt.Errorf("service: ask: %w", err)
	}

	useAI := req.UseAI == nil || *req.UseAI
	answer, err := s.comp.Compose(ctx, req.Question, ret.Results, useAI, ret.Fallback)
	if err != nil {
		return rag.Answer{}, fmt.Errorf("service: ask: %w", err)
	}
	return answer, nil
}

// AddDocumentRequest is a new document to ingest.
type AddDocumentRequest struct {
	// Title is the document title. Required, unique per department.
	Title string `json:"title"`

	// Department is the owning department slug. Required.
	Department string `json:"department"`

	// Category is the policy category slug. Required.
	Category string `json:"category"`

	// SourceType is "policy" (default) or "faq".
	SourceType string `json:"source_type,omitempty"`

	// Content is the full document text. Required.
	Content string `json:"content"`
}

// AddDocument validates, stores, chunks, embeds, and indexes a document.
// Re-adding a document with the same title and department supersedes the
// previous copy.
func (s *Service) AddDocument(ctx context.Context, req AddDocumentRequest) (rag.Document, error) {
	if strings.TrimSpace(req.Department) == "" {
		return rag.Document{}, fmt.Errorf("service: department is required: %w", rag.ErrValidation)
	}
	if strings.TrimSpace(req.Category) == "" {
		return rag.Document{}, fmt.Errorf("service: category is required: %w", rag.ErrValidation)
	}
	if len(req.Content) > maxDocumentBytes {
		return rag.Document{}, fmt.Errorf("service: content exceeds %d bytes: %w", maxDocumentBytes, rag.ErrValidation)
	}

	sourceType := rag.SourceType(req.SourceType)
	switch sourceType {
	case "":
		sourceType = rag.SourcePolicy
	case rag.SourcePolicy, rag.SourceFAQ:
	default:
		return rag.Document{}, fmt.Errorf("service: source_type must be %q or %q: %w",
			rag.SourcePolicy, rag.SourceFAQ, rag.ErrValidation)
	}

	doc, _, err := s.load.Ingest(ctx, rag.Document{
		Title:      strings.TrimSpace(req.Title),
		Department: strings.TrimSpace(req.Department),
		Category:   strings.TrimSpace(req.Category),
		SourceType: sourceType,
		RawText:    req.Content,
	})
	if err != nil {
		return rag.Document{}, fmt.Errorf("service: add document: %w", err)
	}

	s.log.Info("service: document ingested",
		slog.String("document", doc.ID),
		slog.String("title", doc.Title),
		slog.Int("chunks", doc.ChunkCount),
	)
	return doc, nil
}

// RemoveDocument deletes a document and cascades the removal of its chunks
// into the vector index. Fails with rag.ErrNotFound for unknown IDs.
func (s *Service) RemoveDocument(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("service: document id is required: %w", rag.ErrValidation)
	}

	chunks, err := s.store.ChunksByDocument(ctx, id)
	if err != nil {
		return fmt.Errorf("service: remove document: %w", err)
	}
	chunkIDs := make([]string, len(chunks))
	for i, c := range chunks {
		chunkIDs[i] = c.ID
	}

	// Index first: if the index removal fails the document stays stored and
	// the whole call can be retried. Store-first would leave the deleted
	// document's vectors queryable with nothing left to retry against.
	if len(chunkIDs) > 0 {
		if err := s.index.Remove(ctx, chunkIDs); err != nil {
			return fmt.Errorf("service: remove document %s from index: %w", id, err)
		}
	}
	if _, err := s.store.Remove(ctx, id); err != nil {
		return fmt.Errorf("service: remove document: %w", err)
	}

	s.log.Info("service: document removed",
		slog.String("document", id),
		slog.Int("chunks", len(chunkIDs)),
	)
	return nil
}

// SearchRequest is a similarity search over documents.
type SearchRequest struct {
	// Query is the search text. Required.
	Query string

	// TopK is the number of documents to return. 0 means the default.
	TopK int

	// Department optionally restricts the search to one department.
	Department string

	// Category optionally restricts the search to one category.
	Category string
}

// DocumentHit is one document-level search result.
type DocumentHit struct {
	// DocumentID identifies the matched document.
	DocumentID string `json:"document_id"`

	// Title, Department, and Category are the document metadata.
	Title      string `json:"title"`
	Department string `json:"department"`
	Category   string `json:"category"`

	// Score is the best chunk score for this document.
	Score float32 `json:"score"`

	// Excerpt is the text of the best-matching chunk.
	Excerpt string `json:"excerpt"`
}

// SearchResult is the document-level search response.
type SearchResult struct {
	// Hits is ordered by descending score.
	Hits []DocumentHit `json:"hits"`

	// Fallback is true when the filter matched nothing and the hits come
	// from an unfiltered retry.
	Fallback bool `json:"fallback"`
}

// SearchDocuments runs a similarity search and collapses chunk hits to one
// hit per document, keeping each document's best-scoring chunk.
func (s *Service) SearchDocuments(ctx context.Context, req SearchRequest) (SearchResult, error) {
	ret, err := s.pipe.Retrieve(ctx, req.Query, req.TopK, rag.Filters{
		Department: strings.TrimSpace(req.Department),
		Category:   strings.TrimSpace(req.Category),
	})
	if err != nil {
		return SearchResult{}, fmt.Errorf("service: search: %w", err)
	}

	seen := make(map[string]bool, len(ret.Results))
	hits := make([]DocumentHit, 0, len(ret.Results))
	for _, r := range ret.Results {
		if seen[r.DocumentID] {
			continue
		}
		seen[r.DocumentID] = true
		hits = append(hits, DocumentHit{
			DocumentID: r.DocumentID,
			Title:      r.Title,
			Department: r.Department,
			Category:   r.Category,
			Score:      r.Score,
			Excerpt:    r.Text,
		})
	}

	return SearchResult{Hits: hits, Fallback: ret.Fallback}, nil
}

// GetDocument returns a stored document by ID.
func (s *Service) GetDocument(ctx context.Context, id string) (rag.Document, error) {
	doc, err := s.store.Get(ctx, id)
	if err != nil {
		return rag.Document{}, fmt.Errorf("service: get document: %w", err)
	}
	return doc, nil
}

// Load runs corpus ingestion. force re-ingests documents that are already
// present.
func (s *Service) Load(ctx context.Context, force bool) (rag.LoadReport, error) {
	report, err := s.load.Load(ctx, force)
	if err != nil {
		return rag.LoadReport{}, fmt.Errorf("service: load: %w", err)
	}
	return report, nil
}

// LoadStatus returns the loader state.
func (s *Service) LoadStatus() loader.Status {
	return s.load.Status()
}

// ListDepartments returns the distinct departments present in the corpus.
func (s *Service) ListDepartments(ctx context.Context) ([]string, error) {
	departments, err := s.store.ListDepartments(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: list departments: %w", err)
	}
	return departments, nil
}

// ListCategories returns the distinct categories present in the corpus.
func (s *Service) ListCategories(ctx context.Context) ([]string, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: list categories: %w", err)
	}
	return categories, nil
}

// Health summarises service state for the health endpoint.
type Health struct {
	// Status is "ok" or "degraded".
	Status string `json:"status"`

	// Documents is the number of stored documents.
	Documents int `json:"documents"`

	// IndexSize is the number of indexed chunks.
	IndexSize int `json:"index_size"`

	// Loaded is true once a corpus load has completed.
	Loaded bool `json:"loaded"`

	// GenerationEnabled reports whether a generation backend is configured.
	GenerationEnabled bool `json:"generation_enabled"`
}

// Health reports stored document and index counts. Counting failures degrade
// the status instead of failing the endpoint.
func (s *Service) Health(ctx context.Context) Health {
	h := Health{
		Status:            "ok",
		Loaded:            s.load.Status().Loaded,
		GenerationEnabled: s.genReady,
	}

	docs, err := s.store.Count(ctx)
	if err != nil {
		s.log.Warn("service: health: document count failed", slog.String("error", err.Error()))
		h.Status = "degraded"
	}
	h.Documents = docs

	size, err := s.index.Size(ctx)
	if err != nil {
		s.log.Warn("service: health: index size failed", slog.String("error", err.Error()))
		h.Status = "degraded"
	}
	h.IndexSize = size

	return h
}
