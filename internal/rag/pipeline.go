package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Popotomimi/NLWBACKEND/internal/logging"
)

// Config holds the retrieval policy for a Pipeline.
type Config struct {
	// Threshold is the minimum cosine similarity a chunk must strictly
	// exceed to be used as context. Defaults to DefaultThreshold if zero.
	Threshold float64

	// TopK is the maximum number of chunks passed to the synthesizer.
	// Defaults to DefaultTopK if zero.
	TopK int

	// Dimensions is the expected query embedding length. When non-zero,
	// an embedding of any other length is rejected as an embedding
	// service failure before it reaches the index.
	Dimensions int
}

// Pipeline answers a question against a room's indexed transcript chunks:
// embed the question, search the index scoped to the room, synthesize an
// answer when relevant chunks were found, and persist the question record.
// It holds no mutable state across requests, so concurrent Ask calls need
// no coordination beyond what the collaborators themselves provide.
type Pipeline struct {
	// embedder converts the question text to a dense vector.
	embedder Embedder

	// index performs the room-scoped similarity search.
	index ChunkIndex

	// synth produces the grounded answer text.
	synth Synthesizer

	// questions persists the resulting question record.
	questions QuestionStore

	// cfg holds the resolved retrieval policy.
	cfg Config
}

// NewPipeline constructs a Pipeline from its collaborators and config.
func NewPipeline(embedder Embedder, index ChunkIndex, synth Synthesizer, questions QuestionStore, cfg *Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("rag: chunk index must not be nil")
	}
	if synth == nil {
		return nil, fmt.Errorf("rag: synthesizer must not be nil")
	}
	if questions == nil {
		return nil, fmt.Errorf("rag: question store must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	resolved := *cfg
	if resolved.Threshold == 0 {
		resolved.Threshold = DefaultThreshold
	}
	if resolved.TopK <= 0 {
		resolved.TopK = DefaultTopK
	}

	return &Pipeline{
		embedder:  embedder,
		index:     index,
		synth:     synth,
		questions: questions,
		cfg:       resolved,
	}, nil
}

// Ask runs the full pipeline for one question and returns the persisted
// record. Stages run strictly in order; a failure at any stage aborts the
// request and nothing is persisted. The record's Answer is nil exactly when
// no chunk in the room exceeded the similarity threshold.
func (p *Pipeline) Ask(ctx context.Context, roomID, question string) (*Question, error) {
	log := logging.FromContext(ctx)

	if strings.TrimSpace(roomID) == "" {
		return nil, &ValidationError{Reason: "room id must not be empty"}
	}
	if strings.TrimSpace(question) == "" {
		return nil, &ValidationError{Reason: "question must not be empty"}
	}

	vectors, err := p.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, &EmbeddingError{Err: err}
	}
	if len(vectors) == 0 {
		return nil, &EmbeddingError{Err: errors.New("embedder returned no vector")}
	}
	queryVec := vectors[0]
	if len(queryVec) == 0 {
		return nil, &EmbeddingError{Err: errors.New("embedder returned an empty vector")}
	}
	if p.cfg.Dimensions > 0 && len(queryVec) != p.cfg.Dimensions {
		return nil, &EmbeddingError{
			Err: fmt.Errorf("expected %d dimensions, got %d", p.cfg.Dimensions, len(queryVec)),
		}
	}

	hits, err := p.index.Search(ctx, roomID, queryVec, p.cfg.Threshold, p.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("rag: similarity search failed: %w", err)
	}

	// A nil answer is reserved for "no chunk passed the threshold". When
	// context exists, synthesis must either produce text or fail the request.
	var answer *string
	if len(hits) > 0 {
		contexts := make([]string, len(hits))
		for i, hit := range hits {
			contexts[i] = hit.Transcription
		}

		text, err := p.synth.Synthesize(ctx, question, contexts)
		if err != nil {
			return nil, &SynthesisError{Err: err}
		}
		if strings.TrimSpace(text) == "" {
			return nil, &SynthesisError{Err: errors.New("synthesizer returned empty text")}
		}
		answer = &text
	}

	created, err := p.questions.CreateQuestion(ctx, roomID, question, answer)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	if created == nil {
		return nil, &PersistenceError{Err: errors.New("insert did not return a created record")}
	}

	log.Info("question answered",
		slog.String("room_id", roomID),
		slog.String("question_id", created.ID),
		slog.Int("chunks", len(hits)),
		slog.Bool("answered", answer != nil),
	)

	return created, nil
}
