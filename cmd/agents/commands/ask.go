package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Popotomimi/NLWBACKEND/internal/embedder"
	"github.com/Popotomimi/NLWBACKEND/internal/logging"
	"github.com/Popotomimi/NLWBACKEND/internal/rag"
	"github.com/Popotomimi/NLWBACKEND/internal/synthesizer"
)

// NewAskCmd constructs the `agents ask` command, which runs a single
// question against a room directly from the terminal.
func NewAskCmd() *cobra.Command {
	var roomID string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about a recorded room",
		Long: `Ask a question about a room and print the answer.

The question is embedded, matched against the room's indexed transcript
chunks, and answered from the most relevant excerpts. The question and its
answer are persisted just like questions asked through the HTTP API. If no
excerpt is relevant enough, the question is recorded without an answer.

Examples:
  agents ask --room 7b0e... "what was decided about the Q3 roadmap?"
  agents ask --room 7b0e... "who volunteered to write the summary?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if roomID == "" {
				return fmt.Errorf("ask: --room is required")
			}

			st, err := openStore(ctx)
			if err != nil {
				return fmt.Errorf("ask: failed to open store: %w", err)
			}
			defer func() { _ = st.Close() }()

			idx, closeIndex, err := buildIndex(ctx, st, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer closeIndex()

			emb, err := embedder.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("ask: failed to initialise embedder: %w", err)
			}

			synth, err := synthesizer.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("ask: failed to initialise synthesizer: %w", err)
			}

			pipeline, err := rag.NewPipeline(emb, idx, synth, st, retrievalConfig())
			if err != nil {
				return fmt.Errorf("ask: failed to create question pipeline: %w", err)
			}

			q, err := pipeline.Ask(ctx, roomID, args[0])
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			if q.Answer == nil {
				fmt.Printf("No relevant context found in this room. Question recorded as %s.\n", q.ID)
				return nil
			}
			fmt.Println(*q.Answer)
			return nil
		},
	}

	cmd.Flags().StringVarP(&roomID, "room", "r", "", "Room ID to ask about (required)")

	return cmd
}
