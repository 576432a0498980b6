package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Popotomimi/NLWBACKEND/internal/embedder"
	"github.com/Popotomimi/NLWBACKEND/internal/index"
	"github.com/Popotomimi/NLWBACKEND/internal/ingestion"
	"github.com/Popotomimi/NLWBACKEND/internal/logging"
	"github.com/Popotomimi/NLWBACKEND/internal/rag"
	"github.com/Popotomimi/NLWBACKEND/internal/server"
	"github.com/Popotomimi/NLWBACKEND/internal/synthesizer"
	"github.com/Popotomimi/NLWBACKEND/internal/tracing"
	"github.com/Popotomimi/NLWBACKEND/internal/transcriber"
)

// NewServeCmd constructs the `agents serve` command, which starts the HTTP
// API for rooms, audio uploads and questions.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the agents HTTP API",
		Long: `Start the agents HTTP server.

The server exposes a REST API for creating rooms, uploading room audio and
asking questions about what was said. Uploaded audio is transcribed, chunked,
embedded and indexed; questions are answered from the most relevant chunks.

Examples:
  agents serve
  agents serve --port 3333
  MODEL_PROVIDER=gemini agents serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			// Langfuse tracing is opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				tracing.InitGlobal(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			if err := embedder.Validate(log); err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			st, err := openStore(ctx)
			if err != nil {
				return fmt.Errorf("serve: failed to open store: %w", err)
			}
			defer func() { _ = st.Close() }()
			log.Info("store opened")

			idx, closeIndex, err := buildIndex(ctx, st, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer closeIndex()

			emb, err := embedder.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise embedder: %w", err)
			}
			log.Info("embedder initialised", slog.String("provider", embedder.ResolveBackend()))

			synth, err := synthesizer.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise synthesizer: %w", err)
			}

			asker, err := rag.NewPipeline(emb, idx, synth, st, retrievalConfig())
			if err != nil {
				return fmt.Errorf("serve: failed to create question pipeline: %w", err)
			}

			ingestor, err := ingestion.NewPipeline(emb, idx, nil)
			if err != nil {
				return fmt.Errorf("serve: failed to create ingestion pipeline: %w", err)
			}

			// Transcription is optional. Without credentials the audio upload
			// endpoint reports 503 and the rest of the API still works.
			var trans transcriber.Transcriber
			if t, terr := transcriber.NewFromEnv(); terr != nil {
				log.Warn("transcriber unavailable, audio uploads disabled", slog.Any("error", terr))
			} else {
				trans = t
			}

			pingers := []server.Pinger{
				server.NewPinger("database", st.Ping),
			}
			if q, isQdrant := idx.(*index.Qdrant); isQdrant {
				pingers = append(pingers, server.NewPinger("qdrant", q.Ping))
			}

			srv, err := server.New(&server.Deps{
				Asker:       asker,
				Rooms:       st,
				Ingestor:    ingestor,
				Transcriber: trans,
			}, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: pingers,
				APIKey:  os.Getenv("AGENTS_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
