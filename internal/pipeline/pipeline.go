// Package pipeline turns a natural-language question into a ranked, filtered,
// deduplicated set of retrieval results. It embeds the question, runs a
// pre-filtered similarity query against the vector index, falls back to an
// unfiltered query when the filter matches nothing, and collapses overlapping
// adjacent chunks from the same document.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alphas/policyrag-go/internal/rag"
)

// Defaults applied when Options fields are zero.
const (
	defaultTopK         = 5
	defaultMaxTopK      = 20
	defaultEmbedTimeout = 30 * time.Second

	// maxQuestionLen bounds question length to keep embed payloads sane.
	maxQuestionLen = 2000

	// candidateFactor over-fetches before adjacency dedup so collapsing
	// neighbours does not leave the caller short of topK results.
	candidateFactor = 2
)

// Options configures a Pipeline.
type Options struct {
	// DefaultTopK is the result count used when the caller passes 0.
	DefaultTopK int

	// MaxTopK is the largest topK a caller may request.
	MaxTopK int

	// EmbedTimeout bounds the question-embedding call.
	EmbedTimeout time.Duration
}

// withDefaults fills zero fields with the package defaults.
func (o Options) withDefaults() Options {
	if o.DefaultTopK <= 0 {
		o.DefaultTopK = defaultTopK
	}
	if o.MaxTopK <= 0 {
		o.MaxTopK = defaultMaxTopK
	}
	if o.EmbedTimeout <= 0 {
		o.EmbedTimeout = defaultEmbedTimeout
	}
	return o
}

// Pipeline combines an Embedder and a VectorIndex into the retrieval stage of
// the question-answering flow. Safe for concurrent use.
type Pipeline struct {
	// embedder converts the question text to a dense vector.
	embedder rag.Embedder

	// index performs the pre-filtered similarity search.
	index rag.VectorIndex

	// opts holds the resolved tuning knobs.
	opts Options

	// log receives fallback and dedup events.
	log *slog.Logger
}

// New constructs a Pipeline from the given Embedder and VectorIndex.
func New(embedder rag.Embedder, index rag.VectorIndex, opts Options, log *slog.Logger) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("pipeline: embedder must not be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("pipeline: index must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		embedder: embedder,
		index:    index,
		opts:     opts.withDefaults(),
		log:      log,
	}, nil
}

// Retrieval is the pipeline output: the ranked results plus whether the
// department/category filter was abandoned because it matched nothing.
type Retrieval struct {
	// Results is ordered by descending score, ties broken by ascending chunk ID.
	Results []rag.RetrievalResult

	// Fallback is true when the filtered query returned nothing and the
	// results come from an unfiltered retry.
	Fallback bool
}

// Retrieve embeds the question and returns the topK most relevant chunks that
// satisfy the filters. When the filter excludes everything, it retries without
// filters and marks the retrieval as a fallback. If topK is 0 the configured
// default is used; a topK above the configured maximum is a validation error.
func (p *Pipeline) Retrieve(ctx context.Context, question string, topK int, f rag.Filters) (Retrieval, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Retrieval{}, fmt.Errorf("pipeline: question must not be empty: %w", rag.ErrValidation)
	}
	if len(question) > maxQuestionLen {
		return Retrieval{}, fmt.Errorf("pipeline: question exceeds %d bytes: %w", maxQuestionLen, rag.ErrValidation)
	}
	if topK < 0 || topK > p.opts.MaxTopK {
		return Retrieval{}, fmt.Errorf("pipeline: top_k must be in [1, %d]: %w", p.opts.MaxTopK, rag.ErrValidation)
	}
	if topK == 0 {
		topK = p.opts.DefaultTopK
	}

	embedCtx, cancel := context.WithTimeout(ctx, p.opts.EmbedTimeout)
	defer cancel()

	embeddings, err := p.embedder.Embed(embedCtx, []string{question})
	if err != nil {
		return Retrieval{}, fmt.Errorf("pipeline: embedding question failed: %w", err)
	}
	if len(embeddings) == 0 {
		return Retrieval{}, fmt.Errorf("pipeline: embedder returned no vector: %w", rag.ErrEmbeddingUnavailable)
	}
	vector := embeddings[0]

	// Over-fetch so adjacency dedup does not leave the caller short.
	candidates := topK * candidateFactor

	results, err := p.index.Query(ctx, vector, candidates, f)
	if err != nil {
		return Retrieval{}, fmt.Errorf("pipeline: vector search failed: %w", err)
	}

	fallback := false
	if len(results) == 0 && (f.Department != "" || f.Category != "") {
		p.log.Info("pipeline: filter matched nothing, retrying unfiltered",
			slog.String("department", f.Department),
			slog.String("category", f.Category),
		)
		fallback = true
		results, err = p.index.Query(ctx, vector, candidates, rag.Filters{})
		if err != nil {
			return Retrieval{}, fmt.Errorf("pipeline: unfiltered vector search failed: %w", err)
		}
	}

	results = collapseAdjacent(results)
	if len(results) > topK {
		results = results[:topK]
	}

	return Retrieval{Results: results, Fallback: fallback}, nil
}

// collapseAdjacent drops results whose chunk is directly adjacent (index ±1)
// to a higher-scoring kept result from the same document. Adjacent chunks
// overlap by construction, so keeping both would pad the context with
// near-duplicate text. Input must already be sorted by descending score with
// ties broken by ascending chunk ID; output preserves that order.
func collapseAdjacent(results []rag.RetrievalResult) []rag.RetrievalResult {
	if len(results) < 2 {
		return results
	}

	type position struct {
		doc   string
		index int
	}
	kept := make(map[position]bool, len(results))
	out := results[:0]
	for _, r := range results {
		pos := position{doc: r.DocumentID, index: r.ChunkIndex}
		if kept[position{doc: pos.doc, index: pos.index - 1}] ||
			kept[position{doc: pos.doc, index: pos.index + 1}] {
			continue
		}
		kept[pos] = true
		out = append(out, r)
	}
	return out
}
