// Package ingestion turns transcribed audio into searchable chunks. It
// splits a transcription into overlapping slices, embeds each slice, and
// indexes the results under the owning room. Both the audio upload endpoint
// and the `agents ingest` CLI command run through this pipeline.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Popotomimi/NLWBACKEND/internal/logging"
	"github.com/Popotomimi/NLWBACKEND/internal/rag"
)

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// ChunkSize is the maximum number of characters per transcription chunk.
	// Defaults to 1000 if zero.
	ChunkSize int

	// ChunkOverlap is the number of characters to overlap between consecutive
	// chunks. Defaults to 100 if zero.
	ChunkOverlap int
}

// Pipeline orchestrates the chunk, embed and index flow for transcriptions.
type Pipeline struct {
	embedder rag.Embedder
	index    rag.ChunkIndex
	cfg      *Config
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(embedder rag.Embedder, index rag.ChunkIndex, cfg *Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("ingestion: index must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = 100
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 10
	}

	return &Pipeline{
		embedder: embedder,
		index:    index,
		cfg:      cfg,
	}, nil
}

// Ingest chunks, embeds and indexes a transcription for the given room.
// It returns the number of chunks indexed.
func (p *Pipeline) Ingest(ctx context.Context, roomID, transcription string) (int, error) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return 0, fmt.Errorf("ingestion: room ID must not be empty")
	}

	texts := p.chunk(transcription)
	if len(texts) == 0 {
		return 0, fmt.Errorf("ingestion: transcription is empty")
	}

	embeddings, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("ingestion: embedding failed: %w", err)
	}
	if len(embeddings) != len(texts) {
		return 0, fmt.Errorf("ingestion: expected %d embeddings, got %d", len(texts), len(embeddings))
	}

	chunks := make([]rag.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = rag.Chunk{
			ID:            chunkID(roomID, text, i),
			RoomID:        roomID,
			Transcription: text,
			Embedding:     embeddings[i],
		}
	}

	if err := p.index.Index(ctx, chunks); err != nil {
		return 0, fmt.Errorf("ingestion: indexing failed: %w", err)
	}

	logging.FromContext(ctx).Info("ingested transcription",
		slog.String("room_id", roomID),
		slog.Int("chunks", len(chunks)),
	)
	return len(chunks), nil
}

// chunk splits text into overlapping slices of cfg.ChunkSize characters.
func (p *Pipeline) chunk(text string) []string {
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return nil
	}

	var chunks []string
	size := p.cfg.ChunkSize
	overlap := p.cfg.ChunkOverlap

	for start := 0; start < len(text); start += size - overlap {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
		if end == len(text) {
			break
		}
	}

	return chunks
}

// chunkID derives a deterministic UUID for a chunk so re-ingesting the same
// transcription replaces points instead of duplicating them.
func chunkID(roomID, text string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s#%d#%s", roomID, index, text))).String()
}
