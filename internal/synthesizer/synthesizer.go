// Package synthesizer turns retrieved transcription excerpts into a grounded
// natural-language answer. It selects an LLM backend at runtime (Ollama,
// OpenAI, Azure OpenAI, AWS Bedrock, Google Gemini) through the eino
// ChatModel abstraction.
package synthesizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// systemPrompt constrains the model to the supplied transcription excerpts.
// Answers must come from the recorded material only.
const systemPrompt = `You answer questions about a recorded session using only the transcription excerpts provided.

Rules:
- Use only information contained in the excerpts.
- If the excerpts do not contain enough information to answer, say so plainly.
- Be clear, precise and objective.
- Keep a cordial, professional tone.
- When quoting, refer to the material as "the recording".`

// generator is the subset of the eino chat model used here. Kept small so
// tests can swap in a fake.
type generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Synthesizer implements rag.Synthesizer on top of an eino ChatModel.
type Synthesizer struct {
	model generator
}

// New wraps a chat model in a Synthesizer.
func New(m model.ToolCallingChatModel) *Synthesizer {
	return &Synthesizer{model: m}
}

// Synthesize produces an answer to question grounded in the given
// transcription excerpts. It returns an error when the model fails or
// produces empty output; callers must never treat a failed synthesis as
// an unanswerable question.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, contexts []string) (string, error) {
	if len(contexts) == 0 {
		return "", fmt.Errorf("synthesizer: no context excerpts provided")
	}

	msgs := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(buildUserPrompt(question, contexts)),
	}

	resp, err := s.model.Generate(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("synthesizer: generate failed: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("synthesizer: model returned no message")
	}

	answer := strings.TrimSpace(resp.Content)
	if answer == "" {
		return "", fmt.Errorf("synthesizer: model returned empty answer")
	}
	return answer, nil
}

// buildUserPrompt assembles the excerpt block and the question into a single
// user message. Excerpts keep their retrieval order, most relevant first.
func buildUserPrompt(question string, contexts []string) string {
	var b strings.Builder
	b.WriteString("Transcription excerpts:\n\n")
	for i, c := range contexts {
		fmt.Fprintf(&b, "[%d] %s\n\n", i+1, c)
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}
