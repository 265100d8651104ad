package service

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alphas/policyrag-go/internal/composer"
	"github.com/alphas/policyrag-go/internal/docstore"
	"github.com/alphas/policyrag-go/internal/index"
	"github.com/alphas/policyrag-go/internal/loader"
	"github.com/alphas/policyrag-go/internal/pipeline"
	"github.com/alphas/policyrag-go/internal/rag"
)

// keywordEmbedder maps text onto a 3-axis keyword space so similarity is
// predictable: a question about vacation lands near vacation chunks.
type keywordEmbedder struct{}

var embedKeywords = []string{"vacation", "bonus", "password"}

func (keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		lower := strings.ToLower(t)
		v := make([]float32, len(embedKeywords))
		for j, kw := range embedKeywords {
			v[j] = float32(strings.Count(lower, kw))
		}
		out[i] = v
	}
	return out, nil
}

func (keywordEmbedder) Dimension() int { return len(embedKeywords) }

// fakeGenerator serves a canned generation and counts calls.
type fakeGenerator struct {
	text  string
	calls int
}

func (f *fakeGenerator) Generate(context.Context, string) (string, error) {
	f.calls++
	return f.text, nil
}

// newTestService assembles the real component stack on throwaway storage.
func newTestService(t *testing.T) (*Service, *docstore.Store, rag.VectorIndex) {
	t.Helper()
	return newTestServiceGen(t, nil)
}

// newTestServiceGen is newTestService with a generation backend plugged in.
func newTestServiceGen(t *testing.T, gen rag.Generator) (*Service, *docstore.Store, rag.VectorIndex) {
	t.Helper()

	store, err := docstore.Open(filepath.Join(t.TempDir(), "docs.db"), docstore.ChunkingConfig{ChunkSize: 120, ChunkOverlap: 10})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	emb := keywordEmbedder{}
	idx := index.NewMemory(emb.Dimension())

	pipe, err := pipeline.New(emb, idx, pipeline.Options{}, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	comp := composer.New(gen, composer.Options{}, nil)
	load := loader.New(store, emb, idx, nil)

	return New(store, pipe, comp, load, idx, gen != nil, nil), store, idx
}

func addTestCorpus(t *testing.T, svc *Service) (vacation, bonus rag.Document) {
	t.Helper()
	ctx := context.Background()

	vacation, err := svc.AddDocument(ctx, AddDocumentRequest{
		Title:      "Flexible Time Off",
		Department: "rrhh",
		Category:   "vacaciones",
		Content:    "Employees accrue vacation days monthly. Vacation requests above ten consecutive vacation days need manager approval.",
	})
	if err != nil {
		t.Fatalf("add vacation doc: %v", err)
	}

	bonus, err = svc.AddDocument(ctx, AddDocumentRequest{
		Title:      "Annual Bonus Plan",
		Department: "finanzas",
		Category:   "compensacion",
		Content:    "The annual bonus is paid in March. Bonus bands depend on company and individual performance.",
	})
	if err != nil {
		t.Fatalf("add bonus doc: %v", err)
	}
	return vacation, bonus
}

func TestService_AskRoundTrip(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	vacation, _ := addTestCorpus(t, svc)

	answer, err := svc.Ask(context.Background(), AskRequest{Question: "how many vacation days do I get?"})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if len(answer.Sources) == 0 {
		t.Fatal("expected at least one source")
	}
	if answer.Sources[0].DocumentID != vacation.ID {
		t.Errorf("best source: expected the vacation document, got %q (%s)", answer.Sources[0].Title, answer.Sources[0].DocumentID)
	}
	if answer.UsedGeneration {
		t.Error("no generator configured, answer must be extractive")
	}
	if answer.Confidence <= 0 {
		t.Errorf("expected positive confidence, got %v", answer.Confidence)
	}
	if !strings.Contains(answer.Text, `"Flexible Time Off"`) {
		t.Errorf("extractive answer must cite the source title: %q", answer.Text)
	}
}

func TestService_Ask_DepartmentFilter(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	_, bonus := addTestCorpus(t, svc)

	answer, err := svc.Ask(context.Background(), AskRequest{
		Question:   "when is the bonus paid?",
		Department: "finanzas",
	})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	for _, src := range answer.Sources {
		if src.Department != "finanzas" {
			t.Errorf("filter leaked: source from %q", src.Department)
		}
	}
	if len(answer.Sources) == 0 || answer.Sources[0].DocumentID != bonus.ID {
		t.Errorf("expected the bonus document as best source, got %+v", answer.Sources)
	}
	if answer.Fallback {
		t.Error("unexpected fallback with a matching filter")
	}
}

func TestService_Ask_FallbackWhenFilterMatchesNothing(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	addTestCorpus(t, svc)

	answer, err := svc.Ask(context.Background(), AskRequest{
		Question:   "how many vacation days do I get?",
		Department: "no-such-department",
	})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if !answer.Fallback {
		t.Error("expected fallback when the filter matches nothing")
	}
	if len(answer.Sources) == 0 {
		t.Error("fallback must still return unfiltered sources")
	}
}

func TestService_Ask_UseAISwitch(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{text: "generated answer"}
	svc, _, _ := newTestServiceGen(t, gen)
	addTestCorpus(t, svc)
	ctx := context.Background()

	// Absent use_ai defaults to generative composition.
	var req AskRequest
	if err := json.Unmarshal([]byte(`{"question":"how many vacation days do I get?"}`), &req); err != nil {
		t.Fatalf("decode: %v", err)
	}
	answer, err := svc.Ask(ctx, req)
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if !answer.UsedGeneration || answer.Text != "generated answer" {
		t.Errorf("default must be generative, got used_generation=%v text=%q", answer.UsedGeneration, answer.Text)
	}

	// An explicit false skips the generator entirely.
	gen.calls = 0
	if err := json.Unmarshal([]byte(`{"question":"how many vacation days do I get?","use_ai":false}`), &req); err != nil {
		t.Fatalf("decode: %v", err)
	}
	answer, err = svc.Ask(ctx, req)
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if answer.UsedGeneration {
		t.Error("use_ai:false must produce an extractive answer")
	}
	if gen.calls != 0 {
		t.Errorf("generator must not be called with use_ai:false, got %d calls", gen.calls)
	}
	if !strings.Contains(answer.Text, `"Flexible Time Off"`) {
		t.Errorf("expected extractive citation, got %q", answer.Text)
	}
}

func TestService_Ask_Validation(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)

	_, err := svc.Ask(context.Background(), AskRequest{Question: "   "})
	if !errors.Is(err, rag.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestService_AddDocument_Validation(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  AddDocumentRequest
	}{
		{"missing department", AddDocumentRequest{Title: "T", Category: "c", Content: "text"}},
		{"missing category", AddDocumentRequest{Title: "T", Department: "rrhh", Content: "text"}},
		{"missing title", AddDocumentRequest{Department: "rrhh", Category: "c", Content: "text"}},
		{"missing content", AddDocumentRequest{Title: "T", Department: "rrhh", Category: "c"}},
		{"bad source type", AddDocumentRequest{Title: "T", Department: "rrhh", Category: "c", SourceType: "wiki", Content: "text"}},
		{"oversized content", AddDocumentRequest{Title: "T", Department: "rrhh", Category: "c", Content: strings.Repeat("x", maxDocumentBytes+1)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AddDocument(ctx, tc.req)
			if !errors.Is(err, rag.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestService_AddDocument_DefaultsToPolicy(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)

	doc, err := svc.AddDocument(context.Background(), AddDocumentRequest{
		Title:      "Password Rules",
		Department: "it",
		Category:   "seguridad",
		Content:    "password must be rotated every ninety days",
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if doc.SourceType != rag.SourcePolicy {
		t.Errorf("expected default source type policy, got %q", doc.SourceType)
	}
}

func TestService_RemoveDocument_CascadesIntoIndex(t *testing.T) {
	t.Parallel()

	svc, store, idx := newTestService(t)
	vacation, _ := addTestCorpus(t, svc)
	ctx := context.Background()

	sizeBefore, _ := idx.Size(ctx)
	if sizeBefore == 0 {
		t.Fatal("expected indexed chunks before removal")
	}

	if err := svc.RemoveDocument(ctx, vacation.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if _, err := store.Get(ctx, vacation.ID); !errors.Is(err, rag.ErrNotFound) {
		t.Errorf("document still stored after removal: %v", err)
	}
	sizeAfter, _ := idx.Size(ctx)
	if sizeAfter >= sizeBefore {
		t.Errorf("index entries not cascaded: %d before, %d after", sizeBefore, sizeAfter)
	}

	// Removed documents stop appearing in answers.
	answer, err := svc.Ask(ctx, AskRequest{Question: "how many vacation days do I get?"})
	if err != nil {
		t.Fatalf("ask after remove: %v", err)
	}
	for _, src := range answer.Sources {
		if src.DocumentID == vacation.ID {
			t.Error("removed document still retrieved")
		}
	}
}

// flakyIndex wraps a real index and fails Remove on demand.
type flakyIndex struct {
	rag.VectorIndex
	removeErr error
}

func (f *flakyIndex) Remove(ctx context.Context, ids []string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	return f.VectorIndex.Remove(ctx, ids)
}

func TestService_RemoveDocument_IndexFailureKeepsDocumentRetryable(t *testing.T) {
	t.Parallel()

	store, err := docstore.Open(filepath.Join(t.TempDir(), "docs.db"), docstore.ChunkingConfig{ChunkSize: 120, ChunkOverlap: 10})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	emb := keywordEmbedder{}
	idx := &flakyIndex{VectorIndex: index.NewMemory(emb.Dimension())}
	pipe, err := pipeline.New(emb, idx, pipeline.Options{}, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	svc := New(store, pipe, composer.New(nil, composer.Options{}, nil), loader.New(store, emb, idx, nil), idx, false, nil)

	vacation, _ := addTestCorpus(t, svc)
	ctx := context.Background()
	sizeBefore, _ := idx.Size(ctx)

	// A failed index removal must leave the document stored so the whole
	// call can simply be retried.
	idx.removeErr = errors.New("index unreachable")
	if err := svc.RemoveDocument(ctx, vacation.ID); err == nil {
		t.Fatal("expected the index failure to surface")
	}
	if _, err := store.Get(ctx, vacation.ID); err != nil {
		t.Fatalf("document must stay stored after a failed removal: %v", err)
	}
	if n, _ := idx.Size(ctx); n != sizeBefore {
		t.Errorf("index changed despite the failure: %d vs %d", n, sizeBefore)
	}

	// The retry completes the cascade.
	idx.removeErr = nil
	if err := svc.RemoveDocument(ctx, vacation.ID); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if _, err := store.Get(ctx, vacation.ID); !errors.Is(err, rag.ErrNotFound) {
		t.Errorf("expected ErrNotFound after retry, got %v", err)
	}
}

func TestService_RemoveDocument_Errors(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.RemoveDocument(ctx, "  "); !errors.Is(err, rag.ErrValidation) {
		t.Errorf("blank id: expected ErrValidation, got %v", err)
	}
	if err := svc.RemoveDocument(ctx, "b5c2f0a1-0000-0000-0000-000000000000"); !errors.Is(err, rag.ErrNotFound) {
		t.Errorf("unknown id: expected ErrNotFound, got %v", err)
	}
}

func TestService_SearchDocuments_OneHitPerDocument(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	// Long enough to split into several chunks that all mention vacation.
	long := strings.Repeat("vacation carryover rules and vacation accrual schedules are described here. ", 12)
	doc, err := svc.AddDocument(ctx, AddDocumentRequest{
		Title:      "Vacation Handbook",
		Department: "rrhh",
		Category:   "vacaciones",
		Content:    long,
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if doc.ChunkCount < 2 {
		t.Fatalf("test needs a multi-chunk document, got %d chunks", doc.ChunkCount)
	}

	res, err := svc.SearchDocuments(ctx, SearchRequest{Query: "vacation carryover", TopK: 5})
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	seen := map[string]bool{}
	for _, h := range res.Hits {
		if seen[h.DocumentID] {
			t.Errorf("document %q appears more than once", h.DocumentID)
		}
		seen[h.DocumentID] = true
	}
	if len(res.Hits) != 1 || res.Hits[0].DocumentID != doc.ID {
		t.Fatalf("expected exactly the handbook, got %+v", res.Hits)
	}
	if res.Hits[0].Excerpt == "" || res.Hits[0].Score <= 0 {
		t.Errorf("hit missing excerpt or score: %+v", res.Hits[0])
	}
}

func TestService_LoadAndStatus(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if svc.LoadStatus().Loaded {
		t.Fatal("loaded before any run")
	}

	report, err := svc.Load(ctx, false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	wantDocs := len(loader.Policies()) + len(loader.FAQs())
	if report.DocumentsLoaded != wantDocs {
		t.Errorf("expected %d documents loaded, got %d", wantDocs, report.DocumentsLoaded)
	}

	status := svc.LoadStatus()
	if !status.Loaded || status.InProgress {
		t.Errorf("unexpected status after load: %+v", status)
	}

	// The preloaded corpus is immediately askable.
	answer, err := svc.Ask(ctx, AskRequest{Question: "how many vacation days do employees get?"})
	if err != nil {
		t.Fatalf("ask after load: %v", err)
	}
	if len(answer.Sources) == 0 {
		t.Error("expected sources from the preloaded corpus")
	}
}

func TestService_Listings(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	addTestCorpus(t, svc)
	ctx := context.Background()

	deps, err := svc.ListDepartments(ctx)
	if err != nil {
		t.Fatalf("departments: %v", err)
	}
	if len(deps) != 2 || deps[0] != "finanzas" || deps[1] != "rrhh" {
		t.Errorf("expected [finanzas rrhh], got %v", deps)
	}

	cats, err := svc.ListCategories(ctx)
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(cats) != 2 || cats[0] != "compensacion" || cats[1] != "vacaciones" {
		t.Errorf("expected [compensacion vacaciones], got %v", cats)
	}
}

func TestService_Health(t *testing.T) {
	t.Parallel()

	svc, store, _ := newTestService(t)
	addTestCorpus(t, svc)
	ctx := context.Background()

	h := svc.Health(ctx)
	if h.Status != "ok" {
		t.Errorf("expected ok, got %q", h.Status)
	}
	if h.Documents != 2 {
		t.Errorf("expected 2 documents, got %d", h.Documents)
	}
	if h.IndexSize == 0 {
		t.Error("expected a non-empty index")
	}
	if h.Loaded {
		t.Error("loaded must be false before a corpus load")
	}
	if h.GenerationEnabled {
		t.Error("generation not configured in this stack")
	}

	// A dead store degrades the status instead of failing the call.
	_ = store.Close()
	h = svc.Health(ctx)
	if h.Status != "degraded" {
		t.Errorf("expected degraded after closing the store, got %q", h.Status)
	}
}
