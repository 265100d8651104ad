package loader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alphas/policyrag-go/internal/docstore"
	"github.com/alphas/policyrag-go/internal/index"
	"github.com/alphas/policyrag-go/internal/rag"
)

const testDimension = 4

// hashEmbedder is a deterministic embedder: the vector depends only on the
// text, so repeated runs produce identical index contents.
type hashEmbedder struct {
	// failAll makes every Embed call fail, simulating a dead backend.
	failAll bool

	// entered/release synchronise concurrency tests: when entered is
	// non-nil, Embed signals it and then blocks until release is closed.
	entered chan struct{}
	release chan struct{}
}

func (h *hashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if h.entered != nil {
		select {
		case h.entered <- struct{}{}:
		default:
		}
		<-h.release
	}
	if h.failAll {
		return nil, fmt.Errorf("embedder down: %w", rag.ErrEmbeddingUnavailable)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		var v [testDimension]float32
		for j, r := range t {
			v[j%testDimension] += float32(r%13) / 13
		}
		out[i] = v[:]
	}
	return out, nil
}

func (h *hashEmbedder) Dimension() int { return testDimension }

func newTestLoader(t *testing.T, emb rag.Embedder) (*Loader, *docstore.Store, *index.Memory) {
	t.Helper()
	store, err := docstore.Open(filepath.Join(t.TempDir(), "docs.db"), docstore.ChunkingConfig{ChunkSize: 200, ChunkOverlap: 20})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	idx := index.NewMemory(testDimension)
	return New(store, emb, idx, nil), store, idx
}

func TestLoad_FullCorpus(t *testing.T) {
	t.Parallel()

	l, store, idx := newTestLoader(t, &hashEmbedder{})
	ctx := context.Background()

	report, err := l.Load(ctx, false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	wantDocs := len(Policies()) + len(FAQs())
	if report.DocumentsLoaded != wantDocs {
		t.Errorf("documents loaded: expected %d, got %d", wantDocs, report.DocumentsLoaded)
	}
	if report.Skipped != 0 {
		t.Errorf("expected no skips on first run, got %d", report.Skipped)
	}
	if len(report.Errors) != 0 {
		t.Errorf("unexpected errors: %v", report.Errors)
	}
	if report.LoadedAt.IsZero() {
		t.Error("loaded_at not set")
	}

	// Store and index agree chunk-for-chunk.
	storeChunks, _ := store.ChunkCount(ctx)
	indexSize, _ := idx.Size(ctx)
	if storeChunks != indexSize || storeChunks != report.ChunksIndexed {
		t.Errorf("chunk accounting mismatch: store=%d index=%d report=%d", storeChunks, indexSize, report.ChunksIndexed)
	}

	status := l.Status()
	if !status.Loaded || status.InProgress {
		t.Errorf("unexpected status: %+v", status)
	}
	if status.LastReport == nil || status.LastReport.DocumentsLoaded != wantDocs {
		t.Errorf("last report not recorded: %+v", status.LastReport)
	}
}

func TestLoad_IdempotentSkip(t *testing.T) {
	t.Parallel()

	l, store, _ := newTestLoader(t, &hashEmbedder{})
	ctx := context.Background()

	if _, err := l.Load(ctx, false); err != nil {
		t.Fatalf("first load: %v", err)
	}
	countAfterFirst, _ := store.Count(ctx)

	report, err := l.Load(ctx, false)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}

	wantDocs := len(Policies()) + len(FAQs())
	if report.Skipped != wantDocs {
		t.Errorf("expected %d skips on second run, got %d", wantDocs, report.Skipped)
	}
	if report.DocumentsLoaded != 0 {
		t.Errorf("expected 0 loaded on second run, got %d", report.DocumentsLoaded)
	}

	count, _ := store.Count(ctx)
	if count != countAfterFirst {
		t.Errorf("document count changed on idempotent run: %d vs %d", count, countAfterFirst)
	}
}

func TestLoad_ForceReingests(t *testing.T) {
	t.Parallel()

	l, store, idx := newTestLoader(t, &hashEmbedder{})
	ctx := context.Background()

	if _, err := l.Load(ctx, false); err != nil {
		t.Fatalf("first load: %v", err)
	}
	countAfterFirst, _ := store.Count(ctx)
	sizeAfterFirst, _ := idx.Size(ctx)

	report, err := l.Load(ctx, true)
	if err != nil {
		t.Fatalf("force load: %v", err)
	}

	wantDocs := len(Policies()) + len(FAQs())
	if report.DocumentsLoaded != wantDocs || report.Skipped != 0 {
		t.Errorf("force run: expected %d loaded / 0 skipped, got %d / %d", wantDocs, report.DocumentsLoaded, report.Skipped)
	}
	if len(report.Errors) != 0 {
		t.Errorf("unexpected errors: %v", report.Errors)
	}

	// No duplicates: counts are unchanged after re-ingestion.
	count, _ := store.Count(ctx)
	size, _ := idx.Size(ctx)
	if count != countAfterFirst || size != sizeAfterFirst {
		t.Errorf("force run duplicated data: docs %d vs %d, index %d vs %d", count, countAfterFirst, size, sizeAfterFirst)
	}
}

func TestLoad_ConcurrentRunsRejected(t *testing.T) {
	t.Parallel()

	emb := &hashEmbedder{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	l, _, _ := newTestLoader(t, emb)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := l.Load(ctx, false)
		done <- err
	}()

	// Wait until the first run is inside an embed call, then try a second run.
	<-emb.entered
	_, err := l.Load(ctx, false)
	if !errors.Is(err, rag.ErrLoadInProgress) {
		t.Errorf("expected ErrLoadInProgress, got %v", err)
	}

	close(emb.release)
	if err := <-done; err != nil {
		t.Fatalf("first load failed: %v", err)
	}

	// With the first run finished, loading works again.
	if _, err := l.Load(ctx, false); err != nil {
		t.Errorf("load after completion: %v", err)
	}
}

func TestLoad_EmbedderFailureReportedPerDocument(t *testing.T) {
	t.Parallel()

	l, store, idx := newTestLoader(t, &hashEmbedder{failAll: true})
	ctx := context.Background()

	report, err := l.Load(ctx, false)
	if err != nil {
		t.Fatalf("a batch with failures must still return a report: %v", err)
	}

	wantDocs := len(Policies()) + len(FAQs())
	if len(report.Errors) != wantDocs {
		t.Errorf("expected %d per-document errors, got %d", wantDocs, len(report.Errors))
	}
	if report.DocumentsLoaded != 0 {
		t.Errorf("expected 0 loaded, got %d", report.DocumentsLoaded)
	}

	// Failed ingestions roll back: nothing half-stored.
	if n, _ := store.Count(ctx); n != 0 {
		t.Errorf("expected empty store after rollback, got %d documents", n)
	}
	if n, _ := idx.Size(ctx); n != 0 {
		t.Errorf("expected empty index, got %d entries", n)
	}
}

func TestIngest_RollsBackOnIndexFailure(t *testing.T) {
	t.Parallel()

	l, store, _ := newTestLoader(t, &hashEmbedder{failAll: true})
	ctx := context.Background()

	doc := rag.Document{
		Title:      "Orphaned Policy",
		Department: "rrhh",
		Category:   "beneficios",
		SourceType: rag.SourcePolicy,
		RawText:    "some policy text that will fail to embed",
	}

	_, _, err := l.Ingest(ctx, doc)
	if !errors.Is(err, rag.ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}

	exists, _ := store.Exists(ctx, doc.Title, doc.Department)
	if exists {
		t.Error("document not rolled back after embedding failure")
	}
}

// faultyIndex wraps the in-memory index and fails upserts from the Nth call
// onward, simulating an index that dies mid-batch.
type faultyIndex struct {
	*index.Memory
	upserts  int
	failFrom int
}

func (f *faultyIndex) Upsert(ctx context.Context, entries []rag.IndexEntry) error {
	f.upserts++
	if f.failFrom > 0 && f.upserts >= f.failFrom {
		return fmt.Errorf("index unreachable: %w", rag.ErrIndexCorrupt)
	}
	return f.Memory.Upsert(ctx, entries)
}

func TestIngest_PurgesIndexedBatchesOnFailure(t *testing.T) {
	t.Parallel()

	store, err := docstore.Open(filepath.Join(t.TempDir(), "docs.db"), docstore.ChunkingConfig{ChunkSize: 200, ChunkOverlap: 20})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	// Fail on the second batch so the first batch is already in the index
	// when the ingestion aborts.
	idx := &faultyIndex{Memory: index.NewMemory(testDimension), failFrom: 2}
	l := New(store, &hashEmbedder{}, idx, nil)
	ctx := context.Background()

	doc := rag.Document{
		Title:      "Long Vacation Policy",
		Department: "rrhh",
		Category:   "vacaciones",
		SourceType: rag.SourcePolicy,
		RawText:    strings.Repeat("vacation policy clause. ", 200),
	}

	_, _, err = l.Ingest(ctx, doc)
	if err == nil {
		t.Fatal("expected the index failure to surface")
	}
	if idx.upserts < 2 {
		t.Fatalf("test needs more than one embed batch, got %d upserts", idx.upserts)
	}

	// Rollback must purge the batches that were upserted before the failure,
	// not just the stored document.
	if n, _ := idx.Size(ctx); n != 0 {
		t.Errorf("expected empty index after rollback, got %d entries", n)
	}
	exists, _ := store.Exists(ctx, doc.Title, doc.Department)
	if exists {
		t.Error("document not rolled back after index failure")
	}
}

func TestCorpus_AllDepartmentsCovered(t *testing.T) {
	t.Parallel()

	departments := map[string]bool{}
	for _, p := range Policies() {
		departments[p.Department] = true
	}
	for _, want := range []string{DepartmentHR, DepartmentLegal, DepartmentIT, DepartmentFinance} {
		if !departments[want] {
			t.Errorf("no policy document for department %q", want)
		}
	}

	for _, f := range FAQs() {
		if f.Question == "" || f.Answer == "" {
			t.Errorf("FAQ with empty question or answer: %+v", f)
		}
	}
}
