package ingestion

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Popotomimi/NLWBACKEND/internal/rag"
)

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1}
	}
	return out, nil
}

type fakeIndex struct {
	err     error
	indexed []rag.Chunk
}

func (f *fakeIndex) Index(_ context.Context, chunks []rag.Chunk) error {
	if f.err != nil {
		return f.err
	}
	f.indexed = append(f.indexed, chunks...)
	return nil
}

func (f *fakeIndex) Search(context.Context, string, []float32, float64, int) ([]rag.ScoredChunk, error) {
	return nil, nil
}

func TestIngest(t *testing.T) {
	t.Parallel()

	idx := &fakeIndex{}
	p, err := NewPipeline(&fakeEmbedder{}, idx, &Config{ChunkSize: 10, ChunkOverlap: 2})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	transcription := strings.Repeat("abcdefghij", 3)
	n, err := p.Ingest(context.Background(), "r1", transcription)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if n != len(idx.indexed) {
		t.Errorf("reported %d chunks but indexed %d", n, len(idx.indexed))
	}
	if n < 2 {
		t.Fatalf("expected multiple chunks, got %d", n)
	}
	for _, c := range idx.indexed {
		if c.RoomID != "r1" {
			t.Errorf("chunk not scoped to room: %+v", c)
		}
		if c.ID == "" || len(c.Embedding) == 0 {
			t.Errorf("chunk missing ID or embedding: %+v", c)
		}
	}
}

func TestIngest_DeterministicChunkIDs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	first := &fakeIndex{}
	p1, _ := NewPipeline(&fakeEmbedder{}, first, nil)
	if _, err := p1.Ingest(ctx, "r1", "same transcription"); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	second := &fakeIndex{}
	p2, _ := NewPipeline(&fakeEmbedder{}, second, nil)
	if _, err := p2.Ingest(ctx, "r1", "same transcription"); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if first.indexed[0].ID != second.indexed[0].ID {
		t.Errorf("same input must produce the same chunk ID: %q vs %q", first.indexed[0].ID, second.indexed[0].ID)
	}

	other := &fakeIndex{}
	p3, _ := NewPipeline(&fakeEmbedder{}, other, nil)
	if _, err := p3.Ingest(ctx, "r2", "same transcription"); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if first.indexed[0].ID == other.indexed[0].ID {
		t.Error("different rooms must not share chunk IDs")
	}
}

func TestIngest_Overlap(t *testing.T) {
	t.Parallel()

	idx := &fakeIndex{}
	p, err := NewPipeline(&fakeEmbedder{}, idx, &Config{ChunkSize: 10, ChunkOverlap: 4})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	if _, err := p.Ingest(context.Background(), "r1", "0123456789ABCDEF"); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(idx.indexed) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(idx.indexed))
	}
	if idx.indexed[0].Transcription != "0123456789" || idx.indexed[1].Transcription != "6789ABCDEF" {
		t.Errorf("overlap windows wrong: %q / %q", idx.indexed[0].Transcription, idx.indexed[1].Transcription)
	}
}

func TestIngest_Validation(t *testing.T) {
	t.Parallel()

	emb := &fakeEmbedder{}
	p, err := NewPipeline(emb, &fakeIndex{}, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	if _, err := p.Ingest(context.Background(), " ", "text"); err == nil {
		t.Error("expected error for blank room ID")
	}
	if _, err := p.Ingest(context.Background(), "r1", "  \n"); err == nil {
		t.Error("expected error for empty transcription")
	}
	if emb.calls != 0 {
		t.Errorf("embedder must not run for invalid input, got %d calls", emb.calls)
	}
}

func TestIngest_EmbedFailure(t *testing.T) {
	t.Parallel()

	idx := &fakeIndex{}
	p, err := NewPipeline(&fakeEmbedder{err: errors.New("down")}, idx, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	if _, err := p.Ingest(context.Background(), "r1", "text"); err == nil {
		t.Fatal("expected error from failed embedding")
	}
	if len(idx.indexed) != 0 {
		t.Errorf("nothing must be indexed after embed failure, got %d", len(idx.indexed))
	}
}
