package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/alphas/policyrag-go/internal/loader"
	"github.com/alphas/policyrag-go/internal/rag"
	"github.com/alphas/policyrag-go/internal/service"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// Registry receives the server's Prometheus metrics. If nil, the default
	// registry is used. Tests inject a fresh registry to stay hermetic.
	Registry *prometheus.Registry
}

// core is the interface the handlers call. *service.Service satisfies it;
// tests inject a fake.
type core interface {
	Ask(ctx context.Context, req service.AskRequest) (rag.Answer, error)
	AddDocument(ctx context.Context, req service.AddDocumentRequest) (rag.Document, error)
	RemoveDocument(ctx context.Context, id string) error
	GetDocument(ctx context.Context, id string) (rag.Document, error)
	SearchDocuments(ctx context.Context, req service.SearchRequest) (service.SearchResult, error)
	Load(ctx context.Context, force bool) (rag.LoadReport, error)
	LoadStatus() loader.Status
	ListDepartments(ctx context.Context) ([]string, error)
	ListCategories(ctx context.Context) ([]string, error)
	Health(ctx context.Context) service.Health
}

// Server is the HTTP server that exposes the question-answering service.
type Server struct {
	// svc is the application service behind all handlers.
	svc core
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the server's Prometheus instruments.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// askRequest is the JSON body for POST /api/ask.
type askRequest struct {
	// Question is the natural-language question.
	Question string `json:"question"`
	// TopK is the number of chunks to retrieve. 0 means the default.
	TopK int `json:"top_k,omitempty"`
	// Department optionally restricts retrieval to one department.
	Department string `json:"department,omitempty"`
	// Category optionally restricts retrieval to one category.
	Category string `json:"category,omitempty"`
	// UseAI controls generative composition. Absent means true; false forces
	// an extractive answer even when a generation backend is configured.
	UseAI *bool `json:"use_ai,omitempty"`
}

// addDocumentRequest is the JSON body for POST /api/documents.
type addDocumentRequest struct {
	// Title is the document title, unique per department.
	Title string `json:"title"`
	// Department is the owning department slug.
	Department string `json:"department"`
	// Category is the policy category slug.
	Category string `json:"category"`
	// SourceType is "policy" (default) or "faq".
	SourceType string `json:"source_type,omitempty"`
	// Content is the full document text.
	Content string `json:"content"`
}

// documentResponse is the JSON shape for a stored document.
type documentResponse struct {
	// ID is the document identifier.
	ID string `json:"id"`
	// Title, Department, Category, and SourceType mirror the stored document.
	Title      string `json:"title"`
	Department string `json:"department"`
	Category   string `json:"category"`
	SourceType string `json:"source_type"`
	// ChunkCount is the number of chunks the document was split into.
	ChunkCount int `json:"chunk_count"`
	// CreatedAt is the ingestion time in RFC 3339.
	CreatedAt string `json:"created_at"`
}

// toDocumentResponse converts a stored document to its JSON shape.
func toDocumentResponse(d rag.Document) documentResponse {
	return documentResponse{
		ID:         d.ID,
		Title:      d.Title,
		Department: d.Department,
		Category:   d.Category,
		SourceType: string(d.SourceType),
		ChunkCount: d.ChunkCount,
		CreatedAt:  d.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// loadRequest is the JSON body for POST /api/load.
type loadRequest struct {
	// Force re-ingests documents that are already present.
	Force bool `json:"force,omitempty"`
}

// listResponse is the JSON shape for department and category listings.
type listResponse struct {
	// Items is the sorted distinct value list.
	Items []string `json:"items"`
}

// errorResponse is the JSON shape for all error replies.
type errorResponse struct {
	// Error is the human-readable failure description.
	Error string `json:"error"`
	// Hint optionally suggests a remediation.
	Hint string `json:"hint,omitempty"`
}
