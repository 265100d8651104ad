package index

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/alphas/policyrag-go/internal/rag"
)

// Backend names accepted by NewFromEnv.
const (
	// BackendSQLite is the durable local default.
	BackendSQLite = "sqlite"
	// BackendQdrant delegates similarity search to a Qdrant instance.
	BackendQdrant = "qdrant"
	// BackendMemory is ephemeral — state is lost on exit.
	BackendMemory = "memory"
)

// NewFromEnv constructs a VectorIndex from environment variables.
//
//	INDEX_BACKEND  = sqlite | qdrant | memory (default: sqlite;
//	                 qdrant when QDRANT_HOST is set and INDEX_BACKEND is not)
//	INDEX_DB_PATH  = SQLite index database path (default: policyrag-index.db)
//	QDRANT_HOST, QDRANT_PORT, QDRANT_COLLECTION, QDRANT_API_KEY, QDRANT_TLS
//
// dimension is the fixed embedding vector size D shared with the Embedder.
func NewFromEnv(ctx context.Context, dimension int) (rag.VectorIndex, error) {
	backend := os.Getenv("INDEX_BACKEND")
	if backend == "" {
		if os.Getenv("QDRANT_HOST") != "" {
			backend = BackendQdrant
		} else {
			backend = BackendSQLite
		}
	}

	switch backend {
	case BackendSQLite:
		path := os.Getenv("INDEX_DB_PATH")
		if path == "" {
			path = "policyrag-index.db"
		}
		return OpenSQLite(path, dimension)

	case BackendQdrant:
		port := 0
		if v := os.Getenv("QDRANT_PORT"); v != "" {
			p, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("index: invalid QDRANT_PORT %q: %w", v, err)
			}
			port = p
		}
		collection := os.Getenv("QDRANT_COLLECTION")
		if collection == "" {
			collection = "policyrag"
		}
		return NewQdrant(ctx, &QdrantConfig{
			Host:       os.Getenv("QDRANT_HOST"),
			Port:       port,
			Collection: collection,
			Dimension:  dimension,
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			UseTLS:     os.Getenv("QDRANT_TLS") == "true",
		})

	case BackendMemory:
		return NewMemory(dimension), nil

	default:
		return nil, fmt.Errorf("index: unknown backend %q — valid values: sqlite, qdrant, memory", backend)
	}
}
