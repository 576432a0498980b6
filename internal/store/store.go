// Package store persists rooms, transcribed audio chunks and questions in a
// relational database through bun. Postgres (with the pgvector extension) is
// the production target; SQLite backs single-binary setups and tests.
//
// The Store doubles as a chunk index: on Postgres, similarity search runs in
// SQL against the vector column; on SQLite, chunks are scanned with an
// in-process cosine pass.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/Popotomimi/NLWBACKEND/internal/rag"
)

// ErrNotFound is returned when a requested room does not exist.
var ErrNotFound = errors.New("store: not found")

// Config holds the settings for opening a Store.
type Config struct {
	// Driver selects the backend: "postgres" or "sqlite".
	Driver string
	// DSN is the connection string. For SQLite, a file path or ":memory:".
	DSN string
	// Dimensions is the embedding vector size used in the Postgres schema.
	Dimensions int
}

// Store is the relational persistence layer. Safe for concurrent use.
type Store struct {
	db         *bun.DB
	dimensions int
}

// Open connects to the configured database and runs the schema migration.
func Open(ctx context.Context, cfg *Config) (*Store, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("store: embedding dimensions must be positive, got %d", cfg.Dimensions)
	}

	var db *bun.DB
	switch cfg.Driver {
	case "postgres":
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
		db = bun.NewDB(sqldb, pgdialect.New())

	case "sqlite":
		dsn := cfg.DSN
		if dsn != ":memory:" && !strings.Contains(dsn, "?") {
			// WAL mode improves concurrent read performance on single-host setups.
			dsn += "?_journal_mode=WAL&_busy_timeout=5000"
		}
		sqldb, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("store: open sqlite %s: %w", cfg.DSN, err)
		}
		// Single writer connection avoids SQLITE_BUSY under concurrent writes.
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())

	default:
		return nil, fmt.Errorf("store: unknown driver %q, valid values: postgres, sqlite", cfg.Driver)
	}

	if os.Getenv("DATABASE_DEBUG") != "" {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	s := &Store{db: db, dimensions: cfg.Dimensions}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *Store) migrate(ctx context.Context) error {
	var ddl string
	if s.db.Dialect().Name() == dialect.PG {
		ddl = fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS rooms (
    id          uuid PRIMARY KEY,
    name        text NOT NULL,
    description text NOT NULL DEFAULT '',
    created_at  timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS audio_chunks (
    id            uuid PRIMARY KEY,
    room_id       uuid NOT NULL REFERENCES rooms(id),
    transcription text NOT NULL,
    embeddings    vector(%d) NOT NULL,
    created_at    timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_audio_chunks_room ON audio_chunks (room_id);

CREATE TABLE IF NOT EXISTS questions (
    id         uuid PRIMARY KEY,
    room_id    uuid NOT NULL REFERENCES rooms(id),
    question   text NOT NULL,
    answer     text,
    created_at timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_questions_room_created ON questions (room_id, created_at);
`, s.dimensions)
	} else {
		ddl = `
CREATE TABLE IF NOT EXISTS rooms (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS audio_chunks (
    id            TEXT PRIMARY KEY,
    room_id       TEXT NOT NULL REFERENCES rooms(id),
    transcription TEXT NOT NULL,
    embeddings    TEXT NOT NULL,
    created_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audio_chunks_room ON audio_chunks (room_id);

CREATE TABLE IF NOT EXISTS questions (
    id         TEXT PRIMARY KEY,
    room_id    TEXT NOT NULL REFERENCES rooms(id),
    question   TEXT NOT NULL,
    answer     TEXT,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_questions_room_created ON questions (room_id, created_at);
`
	}

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// CreateRoom persists a new room and returns it with its generated ID.
func (s *Store) CreateRoom(ctx context.Context, name, description string) (*Room, error) {
	room := &Room{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(room).Exec(ctx); err != nil {
		return nil, fmt.Errorf("store: create room: %w", err)
	}
	return room, nil
}

// GetRoom returns the room with the given ID, or ErrNotFound.
func (s *Store) GetRoom(ctx context.Context, id string) (*Room, error) {
	room := new(Room)
	err := s.db.NewSelect().Model(room).Where("r.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get room: %w", err)
	}
	return room, nil
}

// ListRooms returns all rooms, newest first, each with its question count.
func (s *Store) ListRooms(ctx context.Context) ([]RoomSummary, error) {
	var rooms []RoomSummary
	err := s.db.NewSelect().
		Model((*Room)(nil)).
		ColumnExpr("r.id, r.name, r.description, r.created_at").
		ColumnExpr("(SELECT count(*) FROM questions AS q WHERE q.room_id = r.id) AS question_count").
		OrderExpr("r.created_at DESC").
		Scan(ctx, &rooms)
	if err != nil {
		return nil, fmt.Errorf("store: list rooms: %w", err)
	}
	return rooms, nil
}

// CreateQuestion persists a question and its outcome, returning the stored
// record. A nil answer marks the question as unanswerable from the room's
// transcriptions.
func (s *Store) CreateQuestion(ctx context.Context, roomID, question string, answer *string) (*rag.Question, error) {
	q := &Question{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		Question:  question,
		Answer:    answer,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(q).Exec(ctx); err != nil {
		return nil, fmt.Errorf("store: create question: %w", err)
	}
	return &rag.Question{
		ID:        q.ID,
		RoomID:    q.RoomID,
		Text:      q.Question,
		Answer:    q.Answer,
		CreatedAt: q.CreatedAt,
	}, nil
}

// ListQuestions returns all questions for a room, newest first.
func (s *Store) ListQuestions(ctx context.Context, roomID string) ([]rag.Question, error) {
	var rows []Question
	err := s.db.NewSelect().
		Model(&rows).
		Where("q.room_id = ?", roomID).
		OrderExpr("q.created_at DESC, q.id DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: list questions: %w", err)
	}

	out := make([]rag.Question, len(rows))
	for i, q := range rows {
		out[i] = rag.Question{
			ID:        q.ID,
			RoomID:    q.RoomID,
			Text:      q.Question,
			Answer:    q.Answer,
			CreatedAt: q.CreatedAt,
		}
	}
	return out, nil
}

// Index persists transcription chunks with their embeddings. Chunks without
// an ID are assigned one.
func (s *Store) Index(ctx context.Context, chunks []rag.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	rows := make([]AudioChunk, len(chunks))
	now := time.Now().UTC()
	for i, c := range chunks {
		id := c.ID
		if id == "" {
			id = uuid.NewString()
		}
		rows[i] = AudioChunk{
			ID:            id,
			RoomID:        c.RoomID,
			Transcription: c.Transcription,
			Embedding:     Vector(c.Embedding),
			CreatedAt:     now,
		}
	}

	if _, err := s.db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("store: insert chunks: %w", err)
	}
	return nil
}

// Search returns up to limit chunks from the given room whose cosine
// similarity to query is strictly greater than threshold, most similar
// first with ascending chunk ID breaking ties.
//
// On Postgres this is a single pgvector query; on SQLite the room's chunks
// are scanned in process.
func (s *Store) Search(ctx context.Context, roomID string, query []float32, threshold float64, limit int) ([]rag.ScoredChunk, error) {
	if s.db.Dialect().Name() == dialect.PG {
		return s.searchPG(ctx, roomID, query, threshold, limit)
	}
	return s.searchScan(ctx, roomID, query, threshold, limit)
}

// scoredRow is the scan target for the pgvector similarity query.
type scoredRow struct {
	ID            string  `bun:"id"`
	Transcription string  `bun:"transcription"`
	Similarity    float64 `bun:"similarity"`
}

func (s *Store) searchPG(ctx context.Context, roomID string, query []float32, threshold float64, limit int) ([]rag.ScoredChunk, error) {
	qv := Vector(query)

	var rows []scoredRow
	err := s.db.NewSelect().
		Model((*AudioChunk)(nil)).
		ColumnExpr("c.id, c.transcription").
		ColumnExpr("1 - (c.embeddings <=> ?) AS similarity", qv).
		Where("c.room_id = ?", roomID).
		Where("1 - (c.embeddings <=> ?) > ?", qv, threshold).
		OrderExpr("c.embeddings <=> ? ASC, c.id ASC", qv).
		Limit(limit).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("store: similarity search: %w", err)
	}

	hits := make([]rag.ScoredChunk, len(rows))
	for i, r := range rows {
		hits[i] = rag.ScoredChunk{
			ID:            r.ID,
			Transcription: r.Transcription,
			Similarity:    r.Similarity,
		}
	}
	return hits, nil
}

func (s *Store) searchScan(ctx context.Context, roomID string, query []float32, threshold float64, limit int) ([]rag.ScoredChunk, error) {
	var rows []AudioChunk
	err := s.db.NewSelect().
		Model(&rows).
		Where("c.room_id = ?", roomID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: load chunks: %w", err)
	}

	var hits []rag.ScoredChunk
	for _, c := range rows {
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

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	return nil
}

// Close releases the database connection pool.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
