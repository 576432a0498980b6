package index

import (
	"context"
	"fmt"
	"sort"

	"github.com/qdrant/go-client/qdrant"

	"github.com/Popotomimi/NLWBACKEND/internal/rag"
)

// QdrantConfig holds connection parameters for a Qdrant instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use.
	Collection string

	// VectorSize is the dimensionality of the embeddings stored in this collection.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// Qdrant implements rag.ChunkIndex backed by a Qdrant collection. Chunks from
// all rooms share one collection; room scoping is enforced with a payload
// filter on every query.
type Qdrant struct {
	client *qdrant.Client
	cfg    *QdrantConfig
}

// NewQdrant creates a Qdrant index, ensuring the target collection exists
// (creating it if necessary).
func NewQdrant(ctx context.Context, cfg *QdrantConfig) (*Qdrant, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	idx := &Qdrant{client: client, cfg: cfg}
	if err := idx.ensureCollection(ctx); err != nil {
		return nil, err
	}

	return idx, nil
}

// ensureCollection creates the collection if it does not already exist.
func (q *Qdrant) ensureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", q.cfg.Collection, err)
	}

	return nil
}

// Index upserts chunks with their pre-computed embeddings. The room ID and
// transcription travel in the point payload.
func (q *Qdrant) Index(ctx context.Context, chunks []rag.Chunk) error {
	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for _, c := range chunks {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(c.ID),
			Vectors: qdrant.NewVectors(c.Embedding...),
			Payload: qdrant.NewValueMap(map[string]interface{}{
				"room_id":       c.RoomID,
				"transcription": c.Transcription,
			}),
		})
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.cfg.Collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert failed: %w", err)
	}

	return nil
}

// Search returns up to limit chunks from the given room whose cosine
// similarity to query is strictly greater than threshold, ordered by
// similarity descending with ascending chunk ID breaking ties.
func (q *Qdrant) Search(ctx context.Context, roomID string, query []float32, threshold float64, limit int) ([]rag.ScoredChunk, error) {
	lim := uint64(limit)
	score := float32(threshold)
	results, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.cfg.Collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          &lim,
		// Qdrant's cut-off is inclusive; the strict comparison happens below.
		ScoreThreshold: &score,
		WithPayload:    qdrant.NewWithPayload(true),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("room_id", roomID),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	hits := make([]rag.ScoredChunk, 0, len(results))
	for _, r := range results {
		sim := float64(r.Score)
		if sim <= threshold {
			continue
		}
		hit := rag.ScoredChunk{
			ID:         r.Id.GetUuid(),
			Similarity: sim,
		}
		if p := r.Payload; p != nil {
			if v, ok := p["transcription"]; ok {
				hit.Transcription = v.GetStringValue()
			}
		}
		hits = append(hits, hit)
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ID < hits[j].ID
	})

	return hits, nil
}

// Ping checks that the Qdrant instance is reachable.
func (q *Qdrant) Ping(ctx context.Context) error {
	if _, err := q.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant: health check failed: %w", err)
	}
	return nil
}

// Close closes the underlying gRPC connection.
func (q *Qdrant) Close() error {
	return q.client.Close()
}
