package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alphas/policyrag-go/internal/logging"
	"github.com/alphas/policyrag-go/internal/rag"
	"github.com/alphas/policyrag-go/internal/service"
)

// handleAsk handles POST /api/ask: retrieve, compose, answer.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	start := time.Now()
	answer, err := s.svc.Ask(r.Context(), service.AskRequest{
		Question:   req.Question,
		TopK:       req.TopK,
		Department: req.Department,
		Category:   req.Category,
		UseAI:      req.UseAI,
	})
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		if errors.Is(err, rag.ErrValidation) {
			outcome = "invalid"
		}
	}
	s.metrics.askRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.askDurationSeconds.WithLabelValues(outcome).Observe(elapsed.Seconds())

	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if answer.Fallback {
		s.metrics.askFallbackTotal.Inc()
	}

	writeJSON(w, http.StatusOK, answer)
}

// handleAddDocument handles POST /api/documents.
func (s *Server) handleAddDocument(w http.ResponseWriter, r *http.Request) {
	var req addDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	doc, err := s.svc.AddDocument(r.Context(), service.AddDocumentRequest{
		Title:      req.Title,
		Department: req.Department,
		Category:   req.Category,
		SourceType: req.SourceType,
		Content:    req.Content,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

// handleGetDocument handles GET /api/documents/{id}.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.svc.GetDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}

// handleRemoveDocument handles DELETE /api/documents/{id}. Removal cascades
// into the vector index.
func (s *Server) handleRemoveDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.RemoveDocument(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSearch handles GET /api/documents/search. Query params: q (required),
// top_k, department, category.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	topK := 0
	if v := q.Get("top_k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSONError(w, http.StatusBadRequest, "top_k must be a positive integer", "")
			return
		}
		topK = n
	}

	result, err := s.svc.SearchDocuments(r.Context(), service.SearchRequest{
		Query:      q.Get("q"),
		TopK:       topK,
		Department: q.Get("department"),
		Category:   q.Get("category"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleLoad handles POST /api/load. The body is optional; {"force": true}
// re-ingests documents that are already present.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body", "")
			return
		}
	}

	report, err := s.svc.Load(r.Context(), req.Force)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// handleLoadStatus handles GET /api/load/status.
func (s *Server) handleLoadStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.LoadStatus())
}

// handleDepartments handles GET /api/departments.
func (s *Server) handleDepartments(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.ListDepartments(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: items})
}

// handleCategories handles GET /api/categories.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.ListCategories(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: items})
}

// handleHealth handles GET /api/health for liveness checks. It reports
// corpus and index counts but never probes external dependencies — that is
// what /api/ready is for.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Health(r.Context()))
}

// writeError maps a service error onto an HTTP status and JSON body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := logging.FromContext(r.Context())

	status := http.StatusInternalServerError
	hint := ""
	switch {
	case errors.Is(err, rag.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, rag.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, rag.ErrEmbeddingUnavailable):
		status = http.StatusServiceUnavailable
		hint = "the embedding backend is unreachable — check EMBEDDING_PROVIDER and its endpoint"
	case errors.Is(err, rag.ErrLoadInProgress):
		status = http.StatusConflict
		hint = "a corpus load is already running — poll GET /api/load/status"
	case errors.Is(err, rag.ErrIndexCorrupt):
		hint = "stored vectors do not match the configured embedding dimension — re-run POST /api/load with force"
	}

	if status >= 500 {
		log.Error("request failed", slog.Int("status", status), slog.Any("error", err))
	} else {
		log.Warn("request rejected", slog.Int("status", status), slog.Any("error", err))
	}

	writeJSONError(w, status, err.Error(), hint)
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes an errorResponse with the given status.
func writeJSONError(w http.ResponseWriter, status int, msg, hint string) {
	writeJSON(w, status, errorResponse{Error: msg, Hint: hint})
}
