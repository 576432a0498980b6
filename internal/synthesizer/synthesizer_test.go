package synthesizer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// fakeModel is a test double for the generator interface.
type fakeModel struct {
	// reply is the content returned by Generate.
	reply string
	// err is returned instead when non-nil.
	err error
	// gotMessages records the messages of the last Generate call.
	gotMessages []*schema.Message
}

func (f *fakeModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.gotMessages = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func TestSynthesize(t *testing.T) {
	t.Parallel()

	fm := &fakeModel{reply: "  The speaker covered variadic functions.  "}
	s := &Synthesizer{model: fm}

	answer, err := s.Synthesize(context.Background(), "what was covered?", []string{"first excerpt", "second excerpt"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	if answer != "The speaker covered variadic functions." {
		t.Errorf("answer not trimmed: %q", answer)
	}

	if len(fm.gotMessages) != 2 {
		t.Fatalf("expected system + user message, got %d messages", len(fm.gotMessages))
	}
	if fm.gotMessages[0].Role != schema.System {
		t.Errorf("first message role: expected system, got %s", fm.gotMessages[0].Role)
	}

	user := fm.gotMessages[1].Content
	if !strings.Contains(user, "first excerpt") || !strings.Contains(user, "second excerpt") {
		t.Errorf("user prompt missing excerpts: %q", user)
	}
	if strings.Index(user, "first excerpt") > strings.Index(user, "second excerpt") {
		t.Errorf("excerpts out of retrieval order: %q", user)
	}
	if !strings.Contains(user, "what was covered?") {
		t.Errorf("user prompt missing question: %q", user)
	}
}

func TestSynthesize_ModelError(t *testing.T) {
	t.Parallel()

	s := &Synthesizer{model: &fakeModel{err: errors.New("timeout")}}

	if _, err := s.Synthesize(context.Background(), "q", []string{"ctx"}); err == nil {
		t.Fatal("expected error from failed generate")
	}
}

func TestSynthesize_EmptyReply(t *testing.T) {
	t.Parallel()

	s := &Synthesizer{model: &fakeModel{reply: " \n\t"}}

	if _, err := s.Synthesize(context.Background(), "q", []string{"ctx"}); err == nil {
		t.Fatal("expected error for empty model output")
	}
}

func TestSynthesize_NoContexts(t *testing.T) {
	t.Parallel()

	fm := &fakeModel{reply: "should not run"}
	s := &Synthesizer{model: fm}

	if _, err := s.Synthesize(context.Background(), "q", nil); err == nil {
		t.Fatal("expected error when no contexts are provided")
	}
	if fm.gotMessages != nil {
		t.Error("model must not be called without contexts")
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	if err := (&Config{Backend: "watson", Model: "m"}).Validate(); err == nil {
		t.Error("expected error for unknown backend")
	}
	if err := (&Config{Backend: BackendOllama}).Validate(); err == nil {
		t.Error("expected error for missing model")
	}
	if err := (&Config{Backend: BackendOllama, Model: "llama3"}).Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
	if err := (&Config{Backend: BackendAzure, AzureDeployment: "gpt-4.1"}).Validate(); err != nil {
		t.Errorf("azure deployment should satisfy model requirement: %v", err)
	}
}
