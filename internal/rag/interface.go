// Package rag implements the retrieval-augmented question answering core:
// domain types, the interfaces its collaborators satisfy (embedding, chunk
// search, answer synthesis, question persistence), and the Pipeline that
// composes them for each incoming question.
// Concrete implementations (Ollama, OpenAI, Qdrant, Postgres, etc.) live in
// their own packages so this one never depends on a specific backend.
package rag

import (
	"context"
	"time"
)

// Default retrieval policy applied when the caller does not override it.
const (
	// DefaultThreshold is the minimum cosine similarity a chunk must strictly
	// exceed to be considered relevant.
	DefaultThreshold = 0.7

	// DefaultTopK is the maximum number of chunks passed to the synthesizer.
	DefaultTopK = 3
)

// Chunk is a transcribed, embedded segment of audio belonging to a room.
type Chunk struct {
	// ID is the unique identifier of this chunk.
	ID string

	// RoomID is the room this chunk belongs to. Retrieval never crosses
	// room boundaries.
	RoomID string

	// Transcription is the transcribed text of the audio segment.
	Transcription string

	// Embedding is the dense vector for Transcription. All chunks in a
	// deployment share one dimensionality, matching the query embedder.
	Embedding []float32
}

// ScoredChunk is a retrieval result: a chunk's text together with its
// cosine similarity to the query embedding.
type ScoredChunk struct {
	// ID is the chunk's unique identifier.
	ID string

	// Transcription is the chunk's text, used as synthesis context.
	Transcription string

	// Similarity is the cosine similarity to the query, in [-1, 1].
	Similarity float64
}

// Question is a persisted record of an asked question and its answer.
type Question struct {
	// ID is assigned by the question store at creation time.
	ID string

	// RoomID is the room the question was asked in.
	RoomID string

	// Text is the question as submitted.
	Text string

	// Answer is nil when no chunk in the room passed the similarity
	// threshold. It is never an empty string.
	Answer *string

	// CreatedAt is when the record was persisted.
	CreatedAt time.Time
}

// Embedder converts text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ChunkIndex is the similarity index over stored chunk embeddings.
// Implementations must be safe to call from multiple goroutines.
type ChunkIndex interface {
	// Index stores the given chunks with their pre-computed embeddings.
	Index(ctx context.Context, chunks []Chunk) error

	// Search returns the chunks in roomID whose cosine similarity to query
	// strictly exceeds threshold, ordered by similarity descending (ties
	// broken by ascending chunk id), truncated to limit entries after
	// filtering. An empty result is not an error.
	Search(ctx context.Context, roomID string, query []float32, threshold float64, limit int) ([]ScoredChunk, error)
}

// Synthesizer produces a natural-language answer grounded in the supplied
// context passages. Implementations must be safe to call from multiple
// goroutines.
type Synthesizer interface {
	// Synthesize answers question using contexts, most relevant first.
	// contexts is never empty; the pipeline short-circuits before calling
	// this when retrieval found nothing.
	Synthesize(ctx context.Context, question string, contexts []string) (string, error)
}

// QuestionStore persists question records. Implementations must be safe to
// call from multiple goroutines.
type QuestionStore interface {
	// CreateQuestion inserts a new question record and returns it with its
	// assigned id. answer is nil when retrieval found no relevant context.
	CreateQuestion(ctx context.Context, roomID, question string, answer *string) (*Question, error)
}
