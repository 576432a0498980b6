package rag

// The pipeline surfaces failures as one of four typed errors so the request
// boundary can map each kind to the right response without string matching.
// None of them is retried internally; any failed stage invalidates the rest
// of the request and no question record is persisted for it.

// ValidationError reports malformed input rejected before any external call.
type ValidationError struct {
	// Reason describes what was wrong with the input.
	Reason string
}

func (e *ValidationError) Error() string {
	return "rag: invalid request: " + e.Reason
}

// EmbeddingError reports a failure of the embedding service: unreachable
// upstream, rejected input, or a malformed vector.
type EmbeddingError struct {
	// Err is the underlying failure from the embedding client.
	Err error
}

func (e *EmbeddingError) Error() string {
	return "rag: embedding question failed: " + e.Err.Error()
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// SynthesisError reports that answer generation failed even though relevant
// context was retrieved. A synthesis failure is never downgraded to a null
// answer; null is reserved for "no relevant context found".
type SynthesisError struct {
	// Err is the underlying failure from the synthesizer.
	Err error
}

func (e *SynthesisError) Error() string {
	return "rag: answer synthesis failed: " + e.Err.Error()
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// PersistenceError reports that the question insert did not produce a
// created record. The request cannot report success without a durable row.
type PersistenceError struct {
	// Err is the underlying failure from the question store.
	Err error
}

func (e *PersistenceError) Error() string {
	return "rag: persisting question failed: " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }
