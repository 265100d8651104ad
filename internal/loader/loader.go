// Package loader ingests the built-in HR policy and FAQ corpus: it stores and
// chunks each document, embeds the chunks, and upserts them into the vector
// index. Loading is idempotent — documents already present are skipped — and
// at most one load runs at a time.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alphas/policyrag-go/internal/docstore"
	"github.com/alphas/policyrag-go/internal/rag"
)

// embedBatchSize bounds how many chunk texts go into one embed call.
const embedBatchSize = 16

// Loader drives corpus ingestion. Safe for concurrent use; concurrent Load
// calls beyond the first fail with rag.ErrLoadInProgress.
type Loader struct {
	// store persists documents and their chunks.
	store *docstore.Store

	// embedder converts chunk text into vectors.
	embedder rag.Embedder

	// index receives the chunk vectors.
	index rag.VectorIndex

	// log receives per-document progress and failures.
	log *slog.Logger

	// inProgress enforces the at-most-one-load invariant.
	inProgress atomic.Bool

	// mu guards lastReport.
	mu sync.Mutex

	// lastReport is the report of the most recent completed run, nil before
	// the first run.
	lastReport *rag.LoadReport
}

// New constructs a Loader over the given store, embedder, and index.
func New(store *docstore.Store, embedder rag.Embedder, index rag.VectorIndex, log *slog.Logger) *Loader {
	if log == nil {
		log = slog.Default()
	}
	return &Loader{
		store:    store,
		embedder: embedder,
		index:    index,
		log:      log,
	}
}

// Status describes the loader state for the status endpoint.
type Status struct {
	// InProgress is true while a load is running.
	InProgress bool `json:"in_progress"`

	// Loaded is true once at least one run has completed.
	Loaded bool `json:"loaded"`

	// LastReport is the most recent completed run, omitted before the first.
	LastReport *rag.LoadReport `json:"last_report,omitempty"`
}

// Status returns the current loader state.
func (l *Loader) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Status{
		InProgress: l.inProgress.Load(),
		Loaded:     l.lastReport != nil,
		LastReport: l.lastReport,
	}
}

// Load ingests the preloaded corpus. Documents whose title and department are
// already present are skipped unless force is true, in which case they are
// re-ingested (superseding the stored copy and its index entries). A failure
// on one document is recorded in the report and does not stop the batch.
// A second Load while one is running fails with rag.ErrLoadInProgress.
func (l *Loader) Load(ctx context.Context, force bool) (rag.LoadReport, error) {
	if !l.inProgress.CompareAndSwap(false, true) {
		return rag.LoadReport{}, fmt.Errorf("loader: %w", rag.ErrLoadInProgress)
	}
	defer l.inProgress.Store(false)

	start := time.Now()
	report := rag.LoadReport{}

	for _, p := range Policies() {
		l.loadOne(ctx, rag.Document{
			Title:      p.Title,
			Department: p.Department,
			Category:   p.Category,
			SourceType: rag.SourcePolicy,
			RawText:    p.Content,
		}, force, &report)
	}

	for _, f := range FAQs() {
		l.loadOne(ctx, rag.Document{
			Title:      f.Question,
			Department: f.Department,
			Category:   f.Category,
			SourceType: rag.SourceFAQ,
			RawText:    fmt.Sprintf("Q: %s\nA: %s", f.Question, f.Answer),
		}, force, &report)
	}

	report.LoadedAt = time.Now().UTC()
	report.DurationSeconds = time.Since(start).Seconds()

	l.validate(ctx, &report)

	l.mu.Lock()
	l.lastReport = &report
	l.mu.Unlock()

	l.log.Info("loader: run complete",
		slog.Int("documents_loaded", report.DocumentsLoaded),
		slog.Int("chunks_indexed", report.ChunksIndexed),
		slog.Int("skipped", report.Skipped),
		slog.Int("errors", len(report.Errors)),
		slog.Float64("duration_seconds", report.DurationSeconds),
	)

	return report, nil
}

// loadOne ingests a single document, updating the report in place.
func (l *Loader) loadOne(ctx context.Context, doc rag.Document, force bool, report *rag.LoadReport) {
	if !force {
		exists, err := l.store.Exists(ctx, doc.Title, doc.Department)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", doc.Title, err))
			return
		}
		if exists {
			report.Skipped++
			return
		}
	} else {
		// Purge the previous copy, index entries first: chunk IDs are
		// deterministic, so a shrunken re-chunk would otherwise leave stale
		// tail entries behind, and a failed purge keeps the stored copy so
		// the next run can retry.
		docID := docstore.DocumentID(doc.Title, doc.Department)
		chunks, err := l.store.ChunksByDocument(ctx, docID)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: purge: %v", doc.Title, err))
			return
		}
		if len(chunks) > 0 {
			chunkIDs := make([]string, len(chunks))
			for i, c := range chunks {
				chunkIDs[i] = c.ID
			}
			if err := l.index.Remove(ctx, chunkIDs); err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("%s: purge index: %v", doc.Title, err))
				return
			}
		}
		if _, err := l.store.Remove(ctx, docID); err != nil && !errors.Is(err, rag.ErrNotFound) {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: purge store: %v", doc.Title, err))
			return
		}
	}

	_, indexed, err := l.Ingest(ctx, doc)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", doc.Title, err))
		return
	}

	report.DocumentsLoaded++
	report.ChunksIndexed += indexed
}

// Ingest stores, chunks, embeds, and indexes a single document. On an
// embedding or indexing failure the stored document is rolled back so a later
// attempt retries it instead of skipping a half-ingested document. Returns
// the stored document and the number of chunks indexed.
func (l *Loader) Ingest(ctx context.Context, doc rag.Document) (rag.Document, int, error) {
	stored, chunks, err := l.store.Add(ctx, doc)
	if err != nil {
		return rag.Document{}, 0, err
	}

	indexed, err := l.indexChunks(ctx, stored, chunks)
	if err != nil {
		// Purge whatever batches made it into the index before the failure.
		// Remove ignores unknown IDs, so the full chunk list is safe.
		chunkIDs := make([]string, len(chunks))
		for i, c := range chunks {
			chunkIDs[i] = c.ID
		}
		if rmErr := l.index.Remove(ctx, chunkIDs); rmErr != nil {
			l.log.Error("loader: index rollback failed", slog.String("document", stored.ID), slog.String("error", rmErr.Error()))
		}
		if _, rmErr := l.store.Remove(ctx, stored.ID); rmErr != nil {
			l.log.Error("loader: rollback failed", slog.String("document", stored.ID), slog.String("error", rmErr.Error()))
		}
		return rag.Document{}, 0, err
	}

	return stored, indexed, nil
}

// indexChunks embeds the chunks in batches and upserts them into the index.
// Returns the number of chunks indexed.
func (l *Loader) indexChunks(ctx context.Context, doc rag.Document, chunks []rag.Chunk) (int, error) {
	indexed := 0
	for lo := 0; lo < len(chunks); lo += embedBatchSize {
		hi := lo + embedBatchSize
		if hi > len(chunks) {
			hi = len(chunks)
		}
		batch := chunks[lo:hi]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vectors, err := l.embedder.Embed(ctx, texts)
		if err != nil {
			return indexed, fmt.Errorf("embed chunks: %w", err)
		}
		if len(vectors) != len(batch) {
			return indexed, fmt.Errorf("embed chunks: got %d vectors for %d texts: %w",
				len(vectors), len(batch), rag.ErrEmbeddingUnavailable)
		}

		entries := make([]rag.IndexEntry, len(batch))
		for i, c := range batch {
			entries[i] = rag.IndexEntry{
				ChunkID:    c.ID,
				DocumentID: c.DocumentID,
				ChunkIndex: c.Index,
				Vector:     vectors[i],
				Text:       c.Text,
				Title:      doc.Title,
				Department: doc.Department,
				Category:   doc.Category,
			}
		}
		if err := l.index.Upsert(ctx, entries); err != nil {
			return indexed, fmt.Errorf("index chunks: %w", err)
		}
		indexed += len(batch)
	}
	return indexed, nil
}

// validate cross-checks the store and index after a run. A mismatch means the
// index has drifted from the store (e.g. a previous run died between writes);
// it is logged rather than failing the run, since retrieval still works on
// the consistent subset.
func (l *Loader) validate(ctx context.Context, report *rag.LoadReport) {
	storeChunks, err := l.store.ChunkCount(ctx)
	if err != nil {
		l.log.Warn("loader: post-load validation skipped", slog.String("error", err.Error()))
		return
	}
	indexSize, err := l.index.Size(ctx)
	if err != nil {
		l.log.Warn("loader: post-load validation skipped", slog.String("error", err.Error()))
		return
	}
	if storeChunks != indexSize {
		l.log.Warn("loader: store and index chunk counts differ",
			slog.Int("store_chunks", storeChunks),
			slog.Int("index_size", indexSize),
		)
		report.Errors = append(report.Errors,
			fmt.Sprintf("validation: store has %d chunks, index has %d", storeChunks, indexSize))
	}
}
