package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/Popotomimi/NLWBACKEND/internal/embedder"
	"github.com/Popotomimi/NLWBACKEND/internal/index"
	"github.com/Popotomimi/NLWBACKEND/internal/rag"
	"github.com/Popotomimi/NLWBACKEND/internal/store"
)

// openStore opens the relational store from DATABASE_URL / DATABASE_DRIVER.
// When DATABASE_DRIVER is unset, the driver is inferred from the DSN scheme.
// Without any DATABASE_URL the store falls back to a local SQLite file so
// the binary works out of the box.
func openStore(ctx context.Context) (*store.Store, error) {
	dsn := os.Getenv("DATABASE_URL")
	driver := os.Getenv("DATABASE_DRIVER")
	if driver == "" {
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			driver = "postgres"
		} else {
			driver = "sqlite"
		}
	}
	if dsn == "" {
		if driver == "postgres" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
		dsn = "agents.db"
	}

	return store.Open(ctx, &store.Config{
		Driver:     driver,
		DSN:        dsn,
		Dimensions: embedder.DefaultDimensions(embedder.ResolveBackend()),
	})
}

// buildIndex resolves the chunk index backend from VECTOR_BACKEND:
//
//	database  similarity search in the relational store (default)
//	qdrant    a dedicated Qdrant collection
//	memory    an in-process index, useful for local experiments
//
// The returned close func releases backend resources and is always non-nil.
func buildIndex(ctx context.Context, st *store.Store, log *slog.Logger) (rag.ChunkIndex, func(), error) {
	backend := envOrDefault("VECTOR_BACKEND", "database")

	switch backend {
	case "database":
		return st, func() {}, nil

	case "memory":
		log.Warn("vector index: using in-process memory backend, chunks are lost on restart")
		return index.NewMemory(), func() {}, nil

	case "qdrant":
		dims := embedder.DefaultDimensions(embedder.ResolveBackend())
		q, err := index.NewQdrant(ctx, &index.QdrantConfig{
			Host:       envOrDefault("QDRANT_HOST", "localhost"),
			Port:       envInt("QDRANT_PORT", 6334),
			Collection: envOrDefault("QDRANT_COLLECTION", "room-chunks"),
			VectorSize: uint64(dims), //nolint:gosec // dimensions are bounded
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			UseTLS:     os.Getenv("QDRANT_TLS") == "true",
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
		}
		log.Info("vector index: qdrant ready",
			slog.String("host", envOrDefault("QDRANT_HOST", "localhost")),
			slog.String("collection", envOrDefault("QDRANT_COLLECTION", "room-chunks")),
		)
		return q, func() { _ = q.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown VECTOR_BACKEND %q, valid values: database, qdrant, memory", backend)
	}
}

// retrievalConfig resolves the similarity search policy from the environment.
func retrievalConfig() *rag.Config {
	return &rag.Config{
		Threshold:  envFloat("RETRIEVAL_THRESHOLD", rag.DefaultThreshold),
		TopK:       envInt("RETRIEVAL_TOP_K", rag.DefaultTopK),
		Dimensions: embedder.DefaultDimensions(embedder.ResolveBackend()),
	}
}

// envOrDefault returns the env var value or fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt returns the env var parsed as int, or fallback if unset or invalid.
func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// envFloat returns the env var parsed as float64, or fallback if unset or invalid.
func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
