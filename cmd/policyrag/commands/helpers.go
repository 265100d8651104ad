package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/alphas/policyrag-go/internal/composer"
	"github.com/alphas/policyrag-go/internal/docstore"
	"github.com/alphas/policyrag-go/internal/embedder"
	"github.com/alphas/policyrag-go/internal/index"
	"github.com/alphas/policyrag-go/internal/loader"
	"github.com/alphas/policyrag-go/internal/pipeline"
	"github.com/alphas/policyrag-go/internal/provider"
	"github.com/alphas/policyrag-go/internal/rag"
	"github.com/alphas/policyrag-go/internal/service"
)

// components bundles the fully wired application service with the resources
// that must be released when the command finishes.
type components struct {
	// svc is the application service behind every command.
	svc *service.Service

	// index is the vector index, exposed for readiness probes.
	index rag.VectorIndex

	// genEnabled reports whether a generation backend is configured.
	genEnabled bool

	// close releases the document store and vector index.
	close func()
}

// buildComponents wires the embedder, vector index, document store, retrieval
// pipeline, composer, and loader into a service. Every command that touches
// the corpus goes through here so CLI and server behave identically.
func buildComponents(ctx context.Context, log *slog.Logger) (*components, error) {
	if err := embedder.Validate(log); err != nil {
		return nil, err
	}

	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("initialise embedder: %w", err)
	}
	log.Info("embedder initialised",
		slog.String("backend", embedder.ResolveBackend()),
		slog.Int("dimensions", emb.Dimension()),
	)

	idx, err := index.NewFromEnv(ctx, emb.Dimension())
	if err != nil {
		return nil, fmt.Errorf("initialise vector index: %w", err)
	}

	docsPath := os.Getenv("DOCS_DB_PATH")
	if docsPath == "" {
		docsPath = defaultDocsDBPath()
	}
	store, err := docstore.Open(docsPath, docstore.ChunkingConfig{
		ChunkSize:    getEnvInt("CHUNK_SIZE", 0),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 0),
	})
	if err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("open document store at %s: %w", docsPath, err)
	}
	log.Info("document store opened", slog.String("path", docsPath))

	gen, err := provider.NewGeneratorFromEnv(ctx)
	if err != nil {
		_ = store.Close()
		_ = idx.Close()
		return nil, fmt.Errorf("initialise generation backend: %w", err)
	}
	if gen != nil {
		log.Info("generation enabled", slog.String("provider", os.Getenv("MODEL_PROVIDER")))
	} else {
		log.Info("generation disabled — answers will be extractive")
	}

	pipe, err := pipeline.New(emb, idx, pipeline.Options{
		DefaultTopK:  getEnvInt("TOP_K_DEFAULT", 0),
		MaxTopK:      getEnvInt("TOP_K_MAX", 0),
		EmbedTimeout: time.Duration(getEnvInt("EMBEDDING_TIMEOUT", 0)) * time.Second,
	}, log)
	if err != nil {
		_ = store.Close()
		_ = idx.Close()
		return nil, fmt.Errorf("initialise retrieval pipeline: %w", err)
	}

	comp := composer.New(gen, composer.Options{
		MaxContextChars: getEnvInt("MAX_CONTEXT_CHARS", 0),
		GenTimeout:      time.Duration(getEnvInt("GENERATION_TIMEOUT", 0)) * time.Second,
	}, log)

	load := loader.New(store, emb, idx, log)

	svc := service.New(store, pipe, comp, load, idx, gen != nil, log)

	return &components{
		svc:        svc,
		index:      idx,
		genEnabled: gen != nil,
		close: func() {
			_ = store.Close()
			_ = idx.Close()
		},
	}, nil
}

// defaultDocsDBPath returns ~/.policyrag/policies.db, creating the directory
// if needed. Falls back to the working directory when the home directory
// cannot be resolved.
func defaultDocsDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "policies.db"
	}
	dir := filepath.Join(home, ".policyrag")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "policies.db"
	}
	return filepath.Join(dir, "policies.db")
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
