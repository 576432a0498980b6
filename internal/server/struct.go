package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Popotomimi/NLWBACKEND/internal/rag"
	"github.com/Popotomimi/NLWBACKEND/internal/store"
	"github.com/Popotomimi/NLWBACKEND/internal/transcriber"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// MaxUploadBytes caps the size of an audio upload. Defaults to 25 MiB.
	MaxUploadBytes int64
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// Registry receives the server's Prometheus metrics. If nil, the default
	// registry is used. Tests inject a fresh registry to stay hermetic.
	Registry prometheus.Registerer
}

// asker is the interface handleCreateQuestion calls to run the question
// pipeline. *rag.Pipeline satisfies it; tests inject a fake.
type asker interface {
	Ask(ctx context.Context, roomID, question string) (*rag.Question, error)
}

// roomStore is the subset of the persistence layer the room and question
// listing handlers use. *store.Store satisfies it; tests inject a fake.
type roomStore interface {
	CreateRoom(ctx context.Context, name, description string) (*store.Room, error)
	GetRoom(ctx context.Context, id string) (*store.Room, error)
	ListRooms(ctx context.Context) ([]store.RoomSummary, error)
	ListQuestions(ctx context.Context, roomID string) ([]rag.Question, error)
}

// ingestor is the interface the audio upload handler calls to index a
// transcription. *ingestion.Pipeline satisfies it; tests inject a fake.
type ingestor interface {
	Ingest(ctx context.Context, roomID, transcription string) (int, error)
}

// Server is the HTTP server that exposes rooms, audio uploads and questions.
type Server struct {
	asker       asker
	rooms       roomStore
	ingestor    ingestor
	transcriber transcriber.Transcriber
	cfg         *Config
	httpServer  *http.Server
	log         *slog.Logger
	pingers     []Pinger
	metrics     *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// Deps bundles the collaborators a Server needs.
type Deps struct {
	// Asker runs the question pipeline. Required.
	Asker asker
	// Rooms is the relational store for rooms and question listings. Required.
	Rooms roomStore
	// Ingestor indexes transcriptions. Optional; without it the audio upload
	// endpoint returns 503.
	Ingestor ingestor
	// Transcriber converts uploaded audio to text. Optional; without it the
	// audio upload endpoint returns 503.
	Transcriber transcriber.Transcriber
}

// createRoomRequest is the JSON body for POST /api/rooms.
type createRoomRequest struct {
	// Name is the human-readable room name.
	Name string `json:"name"`
	// Description is an optional free-form summary of the session.
	Description string `json:"description,omitempty"`
}

// roomResponse is the JSON shape for a single room.
type roomResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	// QuestionsCount is included by the room listing endpoint.
	QuestionsCount *int `json:"questionsCount,omitempty"`
}

// questionRequest is the JSON body for POST /api/rooms/{roomID}/questions.
type questionRequest struct {
	// Question is the natural-language question to answer from the room's
	// transcriptions.
	Question string `json:"question"`
}

// questionResponse is the JSON response for POST /api/rooms/{roomID}/questions.
// Answer is null when no transcription chunk was relevant enough.
type questionResponse struct {
	QuestionID string  `json:"questionId"`
	Answer     *string `json:"answer"`
}

// questionRecord is the JSON shape for a stored question in listings.
type questionRecord struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Answer    *string   `json:"answer"`
	CreatedAt time.Time `json:"createdAt"`
}

// uploadAudioResponse is the JSON response for POST /api/rooms/{roomID}/audio.
type uploadAudioResponse struct {
	// Chunks is the number of transcription chunks indexed from the upload.
	Chunks int `json:"chunks"`
}

// errorResponse is the JSON error body for all endpoints.
type errorResponse struct {
	Error string `json:"error"`
}
