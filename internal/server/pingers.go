package server

import (
	"context"
	"fmt"
	"net/http"
)

// indexPinger is satisfied by VectorIndex backends that expose a native
// health probe (the Qdrant backend does).
type indexPinger interface {
	Ping(ctx context.Context) error
}

// indexSizer is the minimal surface every VectorIndex backend exposes; a
// successful Size call proves the index is reachable.
type indexSizer interface {
	Size(ctx context.Context) (int, error)
}

// IndexPinger probes the vector index for GET /api/ready. It prefers the
// backend's native health probe and falls back to a Size call.
type IndexPinger struct {
	// index is the vector index to probe.
	index indexSizer
}

// NewIndexPinger constructs an IndexPinger for the given index.
func NewIndexPinger(index indexSizer) *IndexPinger {
	return &IndexPinger{index: index}
}

// Name returns the dependency label used in readiness responses.
func (p *IndexPinger) Name() string { return "index" }

// Ping checks that the index is reachable.
func (p *IndexPinger) Ping(ctx context.Context) error {
	if hp, ok := p.index.(indexPinger); ok {
		if err := hp.Ping(ctx); err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}
		return nil
	}
	if _, err := p.index.Size(ctx); err != nil {
		return fmt.Errorf("size check failed: %w", err)
	}
	return nil
}

// OllamaPinger probes a local Ollama instance via its version endpoint.
// Used when the embedding (or generation) backend is Ollama — the probe is
// free, unlike an embed or generate call.
type OllamaPinger struct {
	// host is the Ollama base URL (e.g. "http://localhost:11434").
	host string
	// name identifies the backend in readiness responses.
	name string
}

// NewOllamaPinger constructs an OllamaPinger for the given host.
func NewOllamaPinger(host, name string) *OllamaPinger {
	return &OllamaPinger{host: host, name: name}
}

// Name returns the backend label used in readiness responses.
func (p *OllamaPinger) Name() string { return p.name }

// Ping issues GET /api/version against the Ollama host.
func (p *OllamaPinger) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.host+"/api/version", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
