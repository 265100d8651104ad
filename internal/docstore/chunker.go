package docstore

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/alphas/policyrag-go/internal/rag"
)

// ChunkingConfig holds the chunking policy parameters.
type ChunkingConfig struct {
	// ChunkSize is the maximum number of characters per chunk.
	// Defaults to 500 if zero.
	ChunkSize int

	// ChunkOverlap is the number of characters shared between consecutive
	// chunks. Defaults to 50 if zero; clamped below ChunkSize.
	ChunkOverlap int
}

// withDefaults returns cfg with zero values replaced by the defaults and the
// overlap clamped so the window always advances.
func (c ChunkingConfig) withDefaults() ChunkingConfig {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 500
	}
	if c.ChunkOverlap < 0 {
		c.ChunkOverlap = 0
	}
	if c.ChunkOverlap >= c.ChunkSize {
		c.ChunkOverlap = c.ChunkSize / 10
	}
	return c
}

// splitChunks splits text into greedy fixed-width windows of cfg.ChunkSize
// bytes, each sharing cfg.ChunkOverlap bytes with its predecessor. Window
// boundaries are snapped back to rune starts so a chunk never splits a
// multi-byte character. The final window may be shorter than ChunkSize.
// Offsets are byte positions within the trimmed text.
func splitChunks(docID, text string, cfg ChunkingConfig) []rag.Chunk {
	cfg = cfg.withDefaults()
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return nil
	}

	var chunks []rag.Chunk
	step := cfg.ChunkSize - cfg.ChunkOverlap

	for start, idx := 0, 0; start < len(text); idx++ {
		end := snapToRuneStart(text, start+cfg.ChunkSize)
		if end <= start {
			// ChunkSize smaller than the rune at start: take the whole rune.
			_, size := utf8.DecodeRuneInString(text[start:])
			end = start + size
		}
		chunks = append(chunks, rag.Chunk{
			ID:         chunkID(docID, idx),
			DocumentID: docID,
			Text:       text[start:end],
			Offset:     start,
			Length:     end - start,
			Index:      idx,
		})
		if end == len(text) {
			break
		}
		next := snapToRuneStart(text, start+step)
		if next <= start {
			_, size := utf8.DecodeRuneInString(text[start:])
			next = start + size
		}
		start = next
	}

	return chunks
}

// snapToRuneStart backs pos up to the nearest rune boundary at or before it.
// Positions at or past the end of text clamp to len(text).
func snapToRuneStart(text string, pos int) int {
	if pos >= len(text) {
		return len(text)
	}
	for pos > 0 && !utf8.RuneStart(text[pos]) {
		pos--
	}
	return pos
}

// chunkID generates a deterministic UUID-shaped identifier for a chunk from
// its parent document ID and index. Stable across re-ingestion so vector
// index upserts replace rather than duplicate.
func chunkID(docID string, index int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s#%d", docID, index)))
	return formatUUID(h[:16])
}

// DocumentID generates a deterministic UUID-shaped identifier from the
// document's idempotency key (title + department). Re-ingesting the same
// policy supersedes the previous copy instead of duplicating it.
func DocumentID(title, department string) string {
	h := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(title)) + "|" + strings.ToLower(strings.TrimSpace(department))))
	return formatUUID(h[:16])
}

// formatUUID renders 16 bytes in the canonical 8-4-4-4-12 form so IDs are
// accepted verbatim by backends that require UUID point IDs (Qdrant).
func formatUUID(b []byte) string {
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}
