// Package index provides rag.ChunkIndex implementations: an in-memory index
// for tests and single-node setups, and a Qdrant-backed index for deployments
// with a dedicated vector database. The relational store offers a third
// implementation on top of pgvector.
package index

import (
	"context"
	"sort"
	"sync"

	"github.com/Popotomimi/NLWBACKEND/internal/rag"
)

// Memory is an in-memory ChunkIndex. Chunks are held per room and scanned
// with a brute-force cosine pass on every search. Safe for concurrent use.
type Memory struct {
	mu sync.RWMutex
	// byRoom maps room ID to the chunks indexed for that room.
	byRoom map[string][]rag.Chunk
}

// NewMemory constructs an empty in-memory index.
func NewMemory() *Memory {
	return &Memory{byRoom: make(map[string][]rag.Chunk)}
}

// Index adds chunks to their rooms. A chunk with an ID already present in
// its room replaces the previous entry.
func (m *Memory) Index(_ context.Context, chunks []rag.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range chunks {
		existing := m.byRoom[c.RoomID]
		replaced := false
		for i := range existing {
			if existing[i].ID == c.ID {
				existing[i] = c
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, c)
		}
		m.byRoom[c.RoomID] = existing
	}
	return nil
}

// Search returns up to limit chunks from the given room whose cosine
// similarity to query is strictly greater than threshold, ordered by
// similarity descending. Ties are broken by ascending chunk ID so results
// are deterministic.
func (m *Memory) Search(_ context.Context, roomID string, query []float32, threshold float64, limit int) ([]rag.ScoredChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var hits []rag.ScoredChunk
	for _, c := range m.byRoom[roomID] {
		sim := rag.CosineSimilarity(query, c.Embedding)
		if sim > threshold {
			hits = append(hits, rag.ScoredChunk{
				ID:            c.ID,
				Transcription: c.Transcription,
				Similarity:    sim,
			})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ID < hits[j].ID
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Ping reports readiness. The in-memory index is always ready.
func (m *Memory) Ping(context.Context) error { return nil }
