package docstore

import (
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"
)

// uuidShape matches the canonical 8-4-4-4-12 hex form.
var uuidShape = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func TestSplitChunks_CoversFullText(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("a", 1200)
	cfg := ChunkingConfig{ChunkSize: 500, ChunkOverlap: 50}

	chunks := splitChunks("doc-1", text, cfg)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks for 1200 chars at size 500/overlap 50, got %d", len(chunks))
	}

	// Windows advance by size-overlap and the last one is truncated.
	wantOffsets := []int{0, 450, 900}
	wantLengths := []int{500, 500, 300}
	for i, c := range chunks {
		if c.Offset != wantOffsets[i] || c.Length != wantLengths[i] {
			t.Errorf("chunk %d: offset/length = %d/%d, want %d/%d", i, c.Offset, c.Length, wantOffsets[i], wantLengths[i])
		}
		if c.Index != i {
			t.Errorf("chunk %d: index = %d", i, c.Index)
		}
		if c.DocumentID != "doc-1" {
			t.Errorf("chunk %d: document id = %q", i, c.DocumentID)
		}
	}

	// Last chunk ends exactly at the end of the text.
	last := chunks[len(chunks)-1]
	if last.Offset+last.Length != len(text) {
		t.Errorf("chunks do not cover the full text: end at %d of %d", last.Offset+last.Length, len(text))
	}
}

func TestSplitChunks_ConsecutiveOverlap(t *testing.T) {
	t.Parallel()

	// Distinct characters so overlapping regions are verifiable by content.
	var sb strings.Builder
	for i := 0; sb.Len() < 1000; i++ {
		sb.WriteByte(byte('a' + i%26))
	}
	text := sb.String()

	chunks := splitChunks("doc-1", text, ChunkingConfig{ChunkSize: 300, ChunkOverlap: 60})

	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1], chunks[i]
		tail := prev.Text[len(prev.Text)-60:]
		head := cur.Text[:60]
		if tail != head {
			t.Errorf("chunks %d/%d: expected 60 shared characters, got tail %q head %q", i-1, i, tail, head)
		}
	}
}

func TestSplitChunks_ShortText(t *testing.T) {
	t.Parallel()

	chunks := splitChunks("doc-1", "a short policy", ChunkingConfig{})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "a short policy" {
		t.Errorf("unexpected chunk text %q", chunks[0].Text)
	}
}

func TestSplitChunks_EmptyText(t *testing.T) {
	t.Parallel()

	if got := splitChunks("doc-1", "   \n\t  ", ChunkingConfig{}); got != nil {
		t.Errorf("expected nil for whitespace-only text, got %d chunks", len(got))
	}
}

func TestSplitChunks_OverlapClamped(t *testing.T) {
	t.Parallel()

	// Overlap >= size would never advance; it must be clamped.
	text := strings.Repeat("x", 400)
	chunks := splitChunks("doc-1", text, ChunkingConfig{ChunkSize: 100, ChunkOverlap: 100})

	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Offset <= chunks[i-1].Offset {
			t.Fatalf("window did not advance: offsets %d then %d", chunks[i-1].Offset, chunks[i].Offset)
		}
	}
}

func TestSplitChunks_NeverSplitsRunes(t *testing.T) {
	t.Parallel()

	// The em-dash starts at byte 499, so an unsnapped 500-byte window would
	// cut it in half.
	text := strings.Repeat("a", 499) + "—" + strings.Repeat("b", 200)
	chunks := splitChunks("doc-1", text, ChunkingConfig{ChunkSize: 500, ChunkOverlap: 50})

	for i, c := range chunks {
		if !utf8.ValidString(c.Text) {
			t.Errorf("chunk %d is not valid UTF-8: %q", i, c.Text)
		}
		if c.Text != text[c.Offset:c.Offset+c.Length] {
			t.Errorf("chunk %d: text does not match its recorded offsets", i)
		}
	}

	last := chunks[len(chunks)-1]
	if last.Offset+last.Length != len(text) {
		t.Errorf("chunks do not cover the full text: end at %d of %d", last.Offset+last.Length, len(text))
	}
}

func TestSplitChunks_MultiByteText(t *testing.T) {
	t.Parallel()

	// Dense multi-byte content with window boundaries landing on runes of
	// every width.
	text := strings.TrimSpace(strings.Repeat("política de vacaciones — días por año según antigüedad 日本語 ", 20))
	chunks := splitChunks("doc-1", text, ChunkingConfig{ChunkSize: 64, ChunkOverlap: 16})

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if !utf8.ValidString(c.Text) {
			t.Errorf("chunk %d is not valid UTF-8: %q", i, c.Text)
		}
		if i > 0 && c.Offset >= chunks[i-1].Offset+chunks[i-1].Length {
			t.Errorf("gap between chunks %d and %d: %d past end %d",
				i-1, i, c.Offset, chunks[i-1].Offset+chunks[i-1].Length)
		}
	}
	last := chunks[len(chunks)-1]
	if last.Offset+last.Length != len(text) {
		t.Errorf("chunks do not cover the full text: end at %d of %d", last.Offset+last.Length, len(text))
	}
}

func TestDocumentID_Deterministic(t *testing.T) {
	t.Parallel()

	a := DocumentID("Health Benefits", "rrhh")
	b := DocumentID("Health Benefits", "rrhh")
	if a != b {
		t.Errorf("same title+department produced different IDs: %q vs %q", a, b)
	}
	if !uuidShape.MatchString(a) {
		t.Errorf("ID %q is not UUID-shaped", a)
	}

	// The idempotency key is case- and whitespace-insensitive.
	if got := DocumentID("  health benefits ", "RRHH"); got != a {
		t.Errorf("normalisation: expected %q, got %q", a, got)
	}

	// Same title in a different department is a different document.
	if got := DocumentID("Health Benefits", "legal"); got == a {
		t.Error("different departments must produce different IDs")
	}
}

func TestChunkID_StablePerIndex(t *testing.T) {
	t.Parallel()

	docID := DocumentID("Hybrid Work", "rrhh")
	first := chunkID(docID, 0)
	if first != chunkID(docID, 0) {
		t.Error("chunk ID not stable across calls")
	}
	if first == chunkID(docID, 1) {
		t.Error("different indices must produce different chunk IDs")
	}
	if !uuidShape.MatchString(first) {
		t.Errorf("chunk ID %q is not UUID-shaped", first)
	}
}
