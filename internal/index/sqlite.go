package index

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/alphas/policyrag-go/internal/rag"
)

// SQLite is a durable VectorIndex backed by a local SQLite database.
// Vectors are stored as little-endian float32 BLOBs; the department/category
// pre-filter is pushed into SQL and cosine scoring happens in-process over
// the filtered candidate set. Suitable for the preloaded-policy scale this
// system targets; use the Qdrant backend for larger corpora.
type SQLite struct {
	// db is the underlying database connection pool.
	db *sql.DB

	// dimension is the fixed embedding vector size D.
	dimension int
}

// OpenSQLite opens (or creates) a SQLite-backed index at the given path and
// runs the schema migration. Use ":memory:" for tests.
func OpenSQLite(path string, dimension int) (*SQLite, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("index: open %s: %w", path, err)
	}
	// Single writer connection avoids SQLITE_BUSY under concurrent upserts.
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db, dimension: dimension}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLite) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS vectors (
    chunk_id     TEXT PRIMARY KEY,
    document_id  TEXT NOT NULL,
    chunk_index  INTEGER NOT NULL DEFAULT 0,
    embedding    BLOB NOT NULL,
    text         TEXT NOT NULL,
    title        TEXT NOT NULL,
    department   TEXT NOT NULL,
    category     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_vectors_document   ON vectors (document_id);
CREATE INDEX IF NOT EXISTS idx_vectors_department ON vectors (department);
CREATE INDEX IF NOT EXISTS idx_vectors_category   ON vectors (category);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("index: migrate: %w", err)
	}
	return nil
}

// Upsert stores or replaces the given entries in one transaction.
func (s *SQLite) Upsert(ctx context.Context, entries []rag.IndexEntry) error {
	for _, e := range entries {
		if err := checkDimension(len(e.Vector), s.dimension); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin upsert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	const q = `INSERT OR REPLACE INTO vectors (chunk_id, document_id, chunk_index, embedding, text, title, department, category)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, q,
			e.ChunkID, e.DocumentID, e.ChunkIndex, encodeVector(e.Vector),
			e.Text, e.Title, e.Department, e.Category,
		); err != nil {
			return fmt.Errorf("index: upsert %s: %w", e.ChunkID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index: commit upsert: %w", err)
	}
	return nil
}

// Remove deletes the given chunk IDs. Unknown IDs are ignored.
func (s *SQLite) Remove(ctx context.Context, chunkIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin remove: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, id := range chunkIDs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM vectors WHERE chunk_id = ?`, id); err != nil {
			return fmt.Errorf("index: remove %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index: commit remove: %w", err)
	}
	return nil
}

// Query applies the department/category pre-filter in SQL, scores the
// filtered candidates in-process, and returns the topK best.
func (s *SQLite) Query(ctx context.Context, vector []float32, topK int, f rag.Filters) ([]rag.RetrievalResult, error) {
	if err := checkDimension(len(vector), s.dimension); err != nil {
		return nil, err
	}

	q := `SELECT chunk_id, document_id, chunk_index, embedding, text, title, department, category FROM vectors`
	var args []any
	switch {
	case f.Department != "" && f.Category != "":
		q += ` WHERE department = ? AND category = ?`
		args = append(args, f.Department, f.Category)
	case f.Department != "":
		q += ` WHERE department = ?`
		args = append(args, f.Department)
	case f.Category != "":
		q += ` WHERE category = ?`
		args = append(args, f.Category)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("index: query: %w", err)
	}
	defer rows.Close()

	var results []rag.RetrievalResult
	for rows.Next() {
		var r rag.RetrievalResult
		var blob []byte
		if err := rows.Scan(&r.ChunkID, &r.DocumentID, &r.ChunkIndex, &blob, &r.Text, &r.Title, &r.Department, &r.Category); err != nil {
			return nil, fmt.Errorf("index: query scan: %w", err)
		}
		stored, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("index: chunk %s: %w", r.ChunkID, err)
		}
		if err := checkDimension(len(stored), s.dimension); err != nil {
			return nil, fmt.Errorf("index: chunk %s: %w", r.ChunkID, err)
		}
		r.Score = cosine(vector, stored)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("index: query rows: %w", err)
	}

	return sortResults(results, topK), nil
}

// Size returns the number of indexed chunks.
func (s *SQLite) Size(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vectors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: size: %w", err)
	}
	return n, nil
}

// Close releases the database connection pool.
func (s *SQLite) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("index: close: %w", err)
	}
	return nil
}

// encodeVector serialises a vector as a little-endian float32 BLOB.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

// decodeVector deserialises a little-endian float32 BLOB.
func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4: %w", len(b), rag.ErrIndexCorrupt)
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
