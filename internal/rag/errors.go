package rag

import "errors"

// Sentinel errors forming the domain error taxonomy. Callers classify
// failures with errors.Is; implementations wrap these with fmt.Errorf("%w")
// and a backend-specific message.
var (
	// ErrNotFound reports an unknown document or chunk ID. Surfaces to the
	// caller as a client-facing error.
	ErrNotFound = errors.New("not found")

	// ErrValidation reports malformed input — blank question, top_k out of
	// range, missing required field. Surfaces as a client-facing error.
	ErrValidation = errors.New("validation error")

	// ErrEmbeddingUnavailable reports that the external embedding capability
	// is unreachable. On the question path this surfaces as service
	// unavailable — retrieval cannot proceed without an embedding.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrGenerationUnavailable reports that the external generation
	// capability is unreachable or not configured. Always recovered locally
	// by extractive composition, never surfaced as a request failure.
	ErrGenerationUnavailable = errors.New("generation unavailable")

	// ErrIndexCorrupt reports a dimension mismatch between stored and query
	// vectors. Fatal for the affected query; the operator should re-index.
	ErrIndexCorrupt = errors.New("index corrupt: embedding dimension mismatch")

	// ErrLoadInProgress reports that a data load is already running.
	// Concurrent loads are rejected rather than run redundantly.
	ErrLoadInProgress = errors.New("load already in progress")
)
