// Package docstore provides the SQLite-backed document store: the canonical
// collection of policy and FAQ documents and their chunked text segments.
// Documents are immutable once ingested — re-adding a document with the same
// title and department supersedes the previous copy. Chunks are created
// during chunking and deleted only when their parent document is removed.
package docstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/alphas/policyrag-go/internal/rag"
)

// Store persists documents and chunks in a local SQLite database.
// Safe for concurrent use: reads share the pool, writes are serialised by a
// single writer connection.
type Store struct {
	// db is the underlying database connection pool.
	db *sql.DB

	// chunking holds the chunking policy applied on Add.
	chunking ChunkingConfig
}

// Open opens (or creates) a Store at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string, chunking ChunkingConfig) (*Store, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("docstore: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, chunking: chunking.withDefaults()}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *Store) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS documents (
    id           TEXT PRIMARY KEY,
    title        TEXT    NOT NULL,
    department   TEXT    NOT NULL,
    category     TEXT    NOT NULL,
    source_type  TEXT    NOT NULL CHECK(source_type IN ('policy','faq')),
    raw_text     TEXT    NOT NULL,
    chunk_count  INTEGER NOT NULL,
    created_at   INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_documents_department ON documents (department);
CREATE INDEX IF NOT EXISTS idx_documents_category   ON documents (category);

CREATE TABLE IF NOT EXISTS chunks (
    id           TEXT PRIMARY KEY,
    document_id  TEXT    NOT NULL REFERENCES documents(id),
    text         TEXT    NOT NULL,
    start_offset INTEGER NOT NULL,
    byte_length  INTEGER NOT NULL,
    chunk_index  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks (document_id, chunk_index);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("docstore: migrate: %w", err)
	}
	return nil
}

// Add chunks the document's raw text and stores document + chunks in one
// transaction. The document ID is derived from title + department, so adding
// the same policy twice supersedes the first copy. Returns the stored
// document with its ID, chunk count, and creation time populated, plus the
// chunks for the caller to embed and index.
func (s *Store) Add(ctx context.Context, doc rag.Document) (rag.Document, []rag.Chunk, error) {
	if doc.Title == "" || doc.RawText == "" {
		return rag.Document{}, nil, fmt.Errorf("docstore: title and raw text are required: %w", rag.ErrValidation)
	}
	if doc.SourceType == "" {
		doc.SourceType = rag.SourcePolicy
	}

	doc.ID = DocumentID(doc.Title, doc.Department)
	doc.CreatedAt = time.Now()

	chunks := splitChunks(doc.ID, doc.RawText, s.chunking)
	doc.ChunkCount = len(chunks)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return rag.Document{}, nil, fmt.Errorf("docstore: begin add: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	// Supersede any previous copy of the same document.
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, doc.ID); err != nil {
		return rag.Document{}, nil, fmt.Errorf("docstore: clear old chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, doc.ID); err != nil {
		return rag.Document{}, nil, fmt.Errorf("docstore: clear old document: %w", err)
	}

	const insDoc = `INSERT INTO documents (id, title, department, category, source_type, raw_text, chunk_count, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insDoc,
		doc.ID, doc.Title, doc.Department, doc.Category, string(doc.SourceType),
		doc.RawText, doc.ChunkCount, doc.CreatedAt.Unix(),
	); err != nil {
		return rag.Document{}, nil, fmt.Errorf("docstore: insert document: %w", err)
	}

	const insChunk = `INSERT INTO chunks (id, document_id, text, start_offset, byte_length, chunk_index)
VALUES (?, ?, ?, ?, ?, ?)`
	for _, c := range chunks {
		if _, err := tx.ExecContext(ctx, insChunk, c.ID, c.DocumentID, c.Text, c.Offset, c.Length, c.Index); err != nil {
			return rag.Document{}, nil, fmt.Errorf("docstore: insert chunk %d: %w", c.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return rag.Document{}, nil, fmt.Errorf("docstore: commit add: %w", err)
	}

	return doc, chunks, nil
}

// Get returns the document with the given ID, or rag.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (rag.Document, error) {
	const q = `SELECT id, title, department, category, source_type, raw_text, chunk_count, created_at
FROM documents WHERE id = ?`

	var doc rag.Document
	var srcType string
	var ts int64
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&doc.ID, &doc.Title, &doc.Department, &doc.Category, &srcType,
		&doc.RawText, &doc.ChunkCount, &ts,
	)
	if err == sql.ErrNoRows {
		return rag.Document{}, fmt.Errorf("docstore: document %s: %w", id, rag.ErrNotFound)
	}
	if err != nil {
		return rag.Document{}, fmt.Errorf("docstore: get %s: %w", id, err)
	}
	doc.SourceType = rag.SourceType(srcType)
	doc.CreatedAt = time.Unix(ts, 0)
	return doc, nil
}

// Remove deletes the document and all its chunks, returning the removed chunk
// IDs so the caller can cascade the deletion into the vector index.
// Returns rag.ErrNotFound when the document does not exist.
func (s *Store) Remove(ctx context.Context, id string) ([]string, error) {
	chunkIDs, err := s.chunkIDs(ctx, id)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("docstore: begin remove: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, id); err != nil {
		return nil, fmt.Errorf("docstore: delete chunks: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("docstore: delete document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("docstore: delete document rows: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("docstore: document %s: %w", id, rag.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("docstore: commit remove: %w", err)
	}
	return chunkIDs, nil
}

// chunkIDs returns the IDs of all chunks belonging to the document.
func (s *Store) chunkIDs(ctx context.Context, docID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM chunks WHERE document_id = ? ORDER BY chunk_index`, docID)
	if err != nil {
		return nil, fmt.Errorf("docstore: chunk ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("docstore: chunk ids scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("docstore: chunk ids rows: %w", err)
	}
	return ids, nil
}

// ChunksByDocument returns the document's chunks ordered by index.
func (s *Store) ChunksByDocument(ctx context.Context, docID string) ([]rag.Chunk, error) {
	const q = `SELECT id, document_id, text, start_offset, byte_length, chunk_index
FROM chunks WHERE document_id = ? ORDER BY chunk_index`

	rows, err := s.db.QueryContext(ctx, q, docID)
	if err != nil {
		return nil, fmt.Errorf("docstore: chunks by document: %w", err)
	}
	defer rows.Close()

	var chunks []rag.Chunk
	for rows.Next() {
		var c rag.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Text, &c.Offset, &c.Length, &c.Index); err != nil {
			return nil, fmt.Errorf("docstore: chunks scan: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("docstore: chunks rows: %w", err)
	}
	return chunks, nil
}

// Exists reports whether a document with the given title + department
// idempotency key is already stored.
func (s *Store) Exists(ctx context.Context, title, department string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM documents WHERE id = ?`, DocumentID(title, department)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("docstore: exists: %w", err)
	}
	return true, nil
}

// Count returns the number of stored documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("docstore: count: %w", err)
	}
	return n, nil
}

// ChunkCount returns the total number of stored chunks across all documents.
func (s *Store) ChunkCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("docstore: chunk count: %w", err)
	}
	return n, nil
}

// ListDepartments returns the distinct departments of all stored documents,
// sorted ascending.
func (s *Store) ListDepartments(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT department FROM documents WHERE department != '' ORDER BY department`)
	if err != nil {
		return nil, fmt.Errorf("docstore: list departments: %w", err)
	}
	defer rows.Close()

	var deps []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("docstore: departments scan: %w", err)
		}
		deps = append(deps, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("docstore: departments rows: %w", err)
	}
	return deps, nil
}

// ListCategories returns the distinct categories of all stored documents,
// sorted ascending.
func (s *Store) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT category FROM documents WHERE category != '' ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("docstore: list categories: %w", err)
	}
	defer rows.Close()

	var cats []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("docstore: categories scan: %w", err)
		}
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("docstore: categories rows: %w", err)
	}
	return cats, nil
}

// Close releases the database connection pool.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("docstore: close: %w", err)
	}
	return nil
}
