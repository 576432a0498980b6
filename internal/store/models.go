package store

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// Vector is an embedding column value. It round-trips through the pgvector
// text format ("[0.1,0.2,...]"), which SQLite stores as plain text and
// Postgres coerces to the vector type.
type Vector []float32

// Value implements driver.Valuer.
func (v Vector) Value() (driver.Value, error) {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String(), nil
}

// Scan implements sql.Scanner.
func (v *Vector) Scan(src any) error {
	var s string
	switch t := src.(type) {
	case nil:
		*v = nil
		return nil
	case string:
		s = t
	case []byte:
		s = string(t)
	default:
		return fmt.Errorf("store: cannot scan %T into Vector", src)
	}

	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		*v = Vector{}
		return nil
	}

	parts := strings.Split(s, ",")
	out := make(Vector, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return fmt.Errorf("store: invalid vector element %q: %w", p, err)
		}
		out[i] = float32(f)
	}
	*v = out
	return nil
}

// Room is a recording session. Audio chunks and questions belong to exactly
// one room.
type Room struct {
	bun.BaseModel `bun:"table:rooms,alias:r"`

	ID          string    `bun:"id,pk"`
	Name        string    `bun:"name,notnull"`
	Description string    `bun:"description"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
}

// AudioChunk is one transcribed slice of a room's audio together with its
// embedding.
type AudioChunk struct {
	bun.BaseModel `bun:"table:audio_chunks,alias:c"`

	ID            string    `bun:"id,pk"`
	RoomID        string    `bun:"room_id,notnull"`
	Transcription string    `bun:"transcription,notnull"`
	Embedding     Vector    `bun:"embeddings,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
}

// Question is a persisted question and its outcome. Answer is nil exactly
// when no transcription chunk was relevant enough to ground an answer.
type Question struct {
	bun.BaseModel `bun:"table:questions,alias:q"`

	ID        string    `bun:"id,pk"`
	RoomID    string    `bun:"room_id,notnull"`
	Question  string    `bun:"question,notnull"`
	Answer    *string   `bun:"answer"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

// RoomSummary is a room joined with its question count, as returned by
// ListRooms.
type RoomSummary struct {
	ID            string    `bun:"id"`
	Name          string    `bun:"name"`
	Description   string    `bun:"description"`
	CreatedAt     time.Time `bun:"created_at"`
	QuestionCount int       `bun:"question_count"`
}
