package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Popotomimi/NLWBACKEND/internal/embedder"
	"github.com/Popotomimi/NLWBACKEND/internal/ingestion"
	"github.com/Popotomimi/NLWBACKEND/internal/logging"
	"github.com/Popotomimi/NLWBACKEND/internal/transcriber"
)

// NewIngestCmd constructs the `agents ingest` command, which indexes a
// transcript into a room without going through the HTTP API.
func NewIngestCmd() *cobra.Command {
	var roomID string
	var transcriptFile string
	var audioFile string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Index a transcript or audio file into a room",
		Long: `Chunk, embed and index a transcript into a room's searchable context.

The transcript can come from a text file, from stdin, or from an audio file
that is transcribed first (requires TRANSCRIBE_* credentials). The room must
already exist.

Required environment variables:
  DATABASE_URL         Database connection string (default: local SQLite file)
  EMBEDDING_PROVIDER   Embedding backend: ollama, openai, azure, gemini
  VECTOR_BACKEND       Chunk index: database (default), qdrant, memory

Examples:
  agents ingest --room 7b0e... --file meeting.txt
  cat meeting.txt | agents ingest --room 7b0e...
  agents ingest --room 7b0e... --audio meeting.mp3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if roomID == "" {
				return fmt.Errorf("ingest: --room is required")
			}
			if transcriptFile != "" && audioFile != "" {
				return fmt.Errorf("ingest: --file and --audio are mutually exclusive")
			}

			if err := embedder.Validate(log); err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			st, err := openStore(ctx)
			if err != nil {
				return fmt.Errorf("ingest: failed to open store: %w", err)
			}
			defer func() { _ = st.Close() }()

			if _, err := st.GetRoom(ctx, roomID); err != nil {
				return fmt.Errorf("ingest: room %q: %w", roomID, err)
			}

			transcription, err := resolveTranscript(ctx, transcriptFile, audioFile)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			idx, closeIndex, err := buildIndex(ctx, st, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer closeIndex()

			emb, err := embedder.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("ingest: failed to initialise embedder: %w", err)
			}

			pipeline, err := ingestion.NewPipeline(emb, idx, nil)
			if err != nil {
				return fmt.Errorf("ingest: failed to create pipeline: %w", err)
			}

			chunks, err := pipeline.Ingest(ctx, roomID, transcription)
			if err != nil {
				return fmt.Errorf("ingest: pipeline failed: %w", err)
			}

			log.Info("ingestion complete",
				slog.String("room_id", roomID),
				slog.Int("chunks", chunks),
			)
			return nil
		},
	}

	cmd.Flags().StringVarP(&roomID, "room", "r", "", "Room ID to ingest into (required)")
	cmd.Flags().StringVarP(&transcriptFile, "file", "f", "", "Path to a transcript text file (default: stdin)")
	cmd.Flags().StringVarP(&audioFile, "audio", "a", "", "Path to an audio file to transcribe and ingest")

	return cmd
}

// resolveTranscript produces the transcription text from the given source:
// an audio file (transcribed first), a text file, or piped stdin.
func resolveTranscript(ctx context.Context, transcriptFile, audioFile string) (string, error) {
	if audioFile != "" {
		trans, err := transcriber.NewFromEnv()
		if err != nil {
			return "", fmt.Errorf("transcriber unavailable: %w", err)
		}
		f, err := os.Open(audioFile)
		if err != nil {
			return "", fmt.Errorf("failed to open audio file %q: %w", audioFile, err)
		}
		defer f.Close()

		text, err := trans.Transcribe(ctx, filepath.Base(audioFile), f)
		if err != nil {
			return "", fmt.Errorf("transcription failed: %w", err)
		}
		return text, nil
	}

	if transcriptFile != "" {
		data, err := os.ReadFile(transcriptFile)
		if err != nil {
			return "", fmt.Errorf("failed to read transcript file %q: %w", transcriptFile, err)
		}
		return string(data), nil
	}

	// Check if stdin has data (piped input).
	stat, err := os.Stdin.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat stdin: %w", err)
	}
	if (stat.Mode() & os.ModeCharDevice) != 0 {
		return "", fmt.Errorf("provide --file <transcript>, --audio <recording>, or pipe transcript text via stdin")
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}
