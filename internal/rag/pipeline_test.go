package rag

import (
	"context"
	"errors"
	"testing"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

// fakeEmbedder is a test double for the Embedder interface.
type fakeEmbedder struct {
	// vector is returned for every input text.
	vector []float32
	// err is returned instead of a vector when non-nil.
	err error
	// calls counts Embed invocations.
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

// fakeIndex is a test double for the ChunkIndex interface.
type fakeIndex struct {
	// hits is returned by Search.
	hits []ScoredChunk
	// err is returned instead when non-nil.
	err error
	// gotRoomID records the room scope of the last Search call.
	gotRoomID string
	// calls counts Search invocations.
	calls int
}

func (f *fakeIndex) Index(_ context.Context, _ []Chunk) error { return nil }

func (f *fakeIndex) Search(_ context.Context, roomID string, _ []float32, _ float64, _ int) ([]ScoredChunk, error) {
	f.calls++
	f.gotRoomID = roomID
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

// fakeSynth is a test double for the Synthesizer interface.
type fakeSynth struct {
	// answer is returned by Synthesize.
	answer string
	// err is returned instead when non-nil.
	err error
	// gotContexts records the contexts of the last call.
	gotContexts []string
	// calls counts Synthesize invocations.
	calls int
}

func (f *fakeSynth) Synthesize(_ context.Context, _ string, contexts []string) (string, error) {
	f.calls++
	f.gotContexts = contexts
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

// fakeQuestions is a test double for the QuestionStore interface.
type fakeQuestions struct {
	// err is returned by CreateQuestion when non-nil.
	err error
	// created holds every record persisted through this store.
	created []*Question
}

func (f *fakeQuestions) CreateQuestion(_ context.Context, roomID, question string, answer *string) (*Question, error) {
	if f.err != nil {
		return nil, f.err
	}
	q := &Question{ID: "q-1", RoomID: roomID, Text: question, Answer: answer}
	f.created = append(f.created, q)
	return q, nil
}

// newTestPipeline wires a Pipeline from the given fakes with default policy.
func newTestPipeline(t *testing.T, emb *fakeEmbedder, idx *fakeIndex, syn *fakeSynth, qs *fakeQuestions) *Pipeline {
	t.Helper()
	p, err := NewPipeline(emb, idx, syn, qs, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p
}

// ---------------------------------------------------------------------------
// Ask
// ---------------------------------------------------------------------------

// TestAsk_RelevantChunks verifies the full happy path: chunks above threshold
// are passed to the synthesizer in ranked order and the persisted record has
// a non-nil answer.
func TestAsk_RelevantChunks(t *testing.T) {
	t.Parallel()

	emb := &fakeEmbedder{vector: []float32{1, 0, 0}}
	idx := &fakeIndex{hits: []ScoredChunk{
		{ID: "c1", Transcription: "first chunk", Similarity: 0.92},
		{ID: "c2", Transcription: "second chunk", Similarity: 0.81},
	}}
	syn := &fakeSynth{answer: "the answer"}
	qs := &fakeQuestions{}

	p := newTestPipeline(t, emb, idx, syn, qs)

	q, err := p.Ask(context.Background(), "r1", "what was discussed?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if q.Answer == nil || *q.Answer != "the answer" {
		t.Errorf("answer: expected %q, got %v", "the answer", q.Answer)
	}
	if syn.calls != 1 {
		t.Errorf("synthesizer calls: expected 1, got %d", syn.calls)
	}
	if len(syn.gotContexts) != 2 || syn.gotContexts[0] != "first chunk" || syn.gotContexts[1] != "second chunk" {
		t.Errorf("contexts in ranked order: got %v", syn.gotContexts)
	}
	if idx.gotRoomID != "r1" {
		t.Errorf("search room scope: expected r1, got %q", idx.gotRoomID)
	}
	if len(qs.created) != 1 {
		t.Fatalf("expected exactly one persisted record, got %d", len(qs.created))
	}
}

// TestAsk_NoRelevantChunks verifies that an empty retrieval result produces a
// persisted record with a nil answer and never invokes the synthesizer.
func TestAsk_NoRelevantChunks(t *testing.T) {
	t.Parallel()

	emb := &fakeEmbedder{vector: []float32{1, 0, 0}}
	idx := &fakeIndex{hits: nil}
	syn := &fakeSynth{answer: "should not be called"}
	qs := &fakeQuestions{}

	p := newTestPipeline(t, emb, idx, syn, qs)

	q, err := p.Ask(context.Background(), "r2", "anything transcribed yet?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if q.Answer != nil {
		t.Errorf("answer: expected nil, got %q", *q.Answer)
	}
	if syn.calls != 0 {
		t.Errorf("synthesizer must not be called with no context, got %d calls", syn.calls)
	}
	if len(qs.created) != 1 {
		t.Fatalf("expected exactly one persisted record, got %d", len(qs.created))
	}
}

// TestAsk_EmptyQuestion verifies that blank input is rejected before the
// embedder is ever invoked.
func TestAsk_EmptyQuestion(t *testing.T) {
	t.Parallel()

	for _, question := range []string{"", "   ", "\n\t"} {
		emb := &fakeEmbedder{vector: []float32{1}}
		qs := &fakeQuestions{}
		p := newTestPipeline(t, emb, &fakeIndex{}, &fakeSynth{}, qs)

		_, err := p.Ask(context.Background(), "r1", question)

		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("question %q: expected ValidationError, got %v", question, err)
		}
		if emb.calls != 0 {
			t.Errorf("question %q: embedder must not be called, got %d calls", question, emb.calls)
		}
		if len(qs.created) != 0 {
			t.Errorf("question %q: no record must be persisted, got %d", question, len(qs.created))
		}
	}
}

// TestAsk_EmptyRoomID verifies that a blank room scope is rejected up front.
func TestAsk_EmptyRoomID(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, &fakeEmbedder{vector: []float32{1}}, &fakeIndex{}, &fakeSynth{}, &fakeQuestions{})

	_, err := p.Ask(context.Background(), "  ", "valid question")

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

// TestAsk_EmbeddingFailure verifies that an embedding failure aborts the
// request before any search or persist call.
func TestAsk_EmbeddingFailure(t *testing.T) {
	t.Parallel()

	emb := &fakeEmbedder{err: errors.New("connection refused")}
	idx := &fakeIndex{}
	qs := &fakeQuestions{}
	p := newTestPipeline(t, emb, idx, &fakeSynth{}, qs)

	_, err := p.Ask(context.Background(), "r1", "What time is it?")

	var eerr *EmbeddingError
	if !errors.As(err, &eerr) {
		t.Fatalf("expected EmbeddingError, got %v", err)
	}
	if idx.calls != 0 {
		t.Errorf("search must not run after embedding failure, got %d calls", idx.calls)
	}
	if len(qs.created) != 0 {
		t.Errorf("no record must be persisted, got %d", len(qs.created))
	}
}

// TestAsk_DimensionMismatch verifies that a query vector of unexpected length
// is treated as an embedding service failure.
func TestAsk_DimensionMismatch(t *testing.T) {
	t.Parallel()

	emb := &fakeEmbedder{vector: []float32{1, 2, 3}}
	p, err := NewPipeline(emb, &fakeIndex{}, &fakeSynth{}, &fakeQuestions{}, &Config{Dimensions: 768})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	_, err = p.Ask(context.Background(), "r1", "question")

	var eerr *EmbeddingError
	if !errors.As(err, &eerr) {
		t.Fatalf("expected EmbeddingError, got %v", err)
	}
}

// TestAsk_SynthesisFailure verifies that a synthesis failure aborts the
// request with no persisted record rather than a null answer.
func TestAsk_SynthesisFailure(t *testing.T) {
	t.Parallel()

	idx := &fakeIndex{hits: []ScoredChunk{{ID: "c1", Transcription: "ctx", Similarity: 0.9}}}
	syn := &fakeSynth{err: errors.New("model unavailable")}
	qs := &fakeQuestions{}
	p := newTestPipeline(t, &fakeEmbedder{vector: []float32{1}}, idx, syn, qs)

	_, err := p.Ask(context.Background(), "r1", "question")

	var serr *SynthesisError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SynthesisError, got %v", err)
	}
	if len(qs.created) != 0 {
		t.Errorf("no record must be persisted, got %d", len(qs.created))
	}
}

// TestAsk_EmptySynthesizedText verifies that empty model output is a
// synthesis failure, never persisted as an empty or null answer.
func TestAsk_EmptySynthesizedText(t *testing.T) {
	t.Parallel()

	idx := &fakeIndex{hits: []ScoredChunk{{ID: "c1", Transcription: "ctx", Similarity: 0.9}}}
	syn := &fakeSynth{answer: "  \n"}
	qs := &fakeQuestions{}
	p := newTestPipeline(t, &fakeEmbedder{vector: []float32{1}}, idx, syn, qs)

	_, err := p.Ask(context.Background(), "r1", "question")

	var serr *SynthesisError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SynthesisError, got %v", err)
	}
	if len(qs.created) != 0 {
		t.Errorf("no record must be persisted, got %d", len(qs.created))
	}
}

// TestAsk_PersistenceFailure verifies that a failed insert surfaces as a
// PersistenceError.
func TestAsk_PersistenceFailure(t *testing.T) {
	t.Parallel()

	idx := &fakeIndex{hits: []ScoredChunk{{ID: "c1", Transcription: "ctx", Similarity: 0.9}}}
	qs := &fakeQuestions{err: errors.New("insert failed")}
	p := newTestPipeline(t, &fakeEmbedder{vector: []float32{1}}, idx, &fakeSynth{answer: "a"}, qs)

	_, err := p.Ask(context.Background(), "r1", "question")

	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
}

// TestAsk_SearchFailure verifies that an index failure aborts without
// touching the synthesizer or the store.
func TestAsk_SearchFailure(t *testing.T) {
	t.Parallel()

	idx := &fakeIndex{err: errors.New("index down")}
	syn := &fakeSynth{}
	qs := &fakeQuestions{}
	p := newTestPipeline(t, &fakeEmbedder{vector: []float32{1}}, idx, syn, qs)

	_, err := p.Ask(context.Background(), "r1", "question")
	if err == nil {
		t.Fatal("expected error from failed search")
	}
	if syn.calls != 0 {
		t.Errorf("synthesizer must not run after search failure")
	}
	if len(qs.created) != 0 {
		t.Errorf("no record must be persisted, got %d", len(qs.created))
	}
}

// TestNewPipeline_Defaults verifies zero-value config resolves to the
// documented retrieval policy.
func TestNewPipeline_Defaults(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, &fakeEmbedder{vector: []float32{1}}, &fakeIndex{}, &fakeSynth{}, &fakeQuestions{})

	if p.cfg.Threshold != DefaultThreshold {
		t.Errorf("threshold: expected %v, got %v", DefaultThreshold, p.cfg.Threshold)
	}
	if p.cfg.TopK != DefaultTopK {
		t.Errorf("topK: expected %d, got %d", DefaultTopK, p.cfg.TopK)
	}
}

// TestNewPipeline_NilCollaborators verifies every collaborator is required.
func TestNewPipeline_NilCollaborators(t *testing.T) {
	t.Parallel()

	emb := &fakeEmbedder{}
	idx := &fakeIndex{}
	syn := &fakeSynth{}
	qs := &fakeQuestions{}

	if _, err := NewPipeline(nil, idx, syn, qs, nil); err == nil {
		t.Error("expected error for nil embedder")
	}
	if _, err := NewPipeline(emb, nil, syn, qs, nil); err == nil {
		t.Error("expected error for nil index")
	}
	if _, err := NewPipeline(emb, idx, nil, qs, nil); err == nil {
		t.Error("expected error for nil synthesizer")
	}
	if _, err := NewPipeline(emb, idx, syn, nil, nil); err == nil {
		t.Error("expected error for nil question store")
	}
}
