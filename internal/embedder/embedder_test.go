package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func TestOllamaEmbedder_Embed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("path: got %q, want /api/embed", r.URL.Path)
		}
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "nomic-embed-text" {
			t.Errorf("model: got %q", req.Model)
		}
		if len(req.Input) != 2 {
			t.Errorf("input: got %d texts, want 2", len(req.Input))
		}
		json.NewEncoder(w).Encode(ollamaEmbedResponse{
			Embeddings: [][]float32{{0.1, 0.2}, {0.3, 0.4}},
		})
	}))
	defer srv.Close()

	emb := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL, Model: "nomic-embed-text"})

	got, err := emb.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(got))
	}
	if got[0][0] != 0.1 || got[1][1] != 0.4 {
		t.Errorf("unexpected embeddings: %v", got)
	}
}

func TestOllamaEmbedder_APIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Error: "model not found"})
	}))
	defer srv.Close()

	emb := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL, Model: "missing"})

	if _, err := emb.Embed(context.Background(), []string{"text"}); err == nil {
		t.Fatal("expected error for API failure")
	}
}

func TestOllamaEmbedder_CountMismatch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaEmbedResponse{
			Embeddings: [][]float32{{0.1}},
		})
	}))
	defer srv.Close()

	emb := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL, Model: "nomic-embed-text"})

	if _, err := emb.Embed(context.Background(), []string{"one", "two"}); err == nil {
		t.Fatal("expected error for embedding count mismatch")
	}
}

func TestOpenAIEmbedder_Embed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("path: got %q, want /embeddings", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization: got %q", got)
		}
		var req openaiEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Dimensions != 4 {
			t.Errorf("dimensions: got %d, want 4", req.Dimensions)
		}
		// Return data out of order to exercise index-based reassembly.
		w.Write([]byte(`{"data":[{"embedding":[0.3,0.4],"index":1},{"embedding":[0.1,0.2],"index":0}]}`))
	}))
	defer srv.Close()

	emb := NewOpenAIEmbedder(&OpenAIConfig{
		BaseURL:    srv.URL,
		APIKey:     "test-key",
		Model:      "text-embedding-3-small",
		Dimensions: 4,
	})

	got, err := emb.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if got[0][0] != 0.1 {
		t.Errorf("embedding 0 not reordered by index: %v", got[0])
	}
	if got[1][0] != 0.3 {
		t.Errorf("embedding 1 not reordered by index: %v", got[1])
	}
}

func TestOpenAIEmbedder_AzureMode(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openai/deployments/embed-deploy/embeddings" {
			t.Errorf("path: got %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("api-version"); got != "2025-04-01-preview" {
			t.Errorf("api-version: got %q", got)
		}
		if got := r.Header.Get("api-key"); got != "azure-key" {
			t.Errorf("api-key header: got %q", got)
		}
		w.Write([]byte(`{"data":[{"embedding":[0.5],"index":0}]}`))
	}))
	defer srv.Close()

	emb := NewOpenAIEmbedder(&OpenAIConfig{
		BaseURL:    srv.URL + "/openai",
		APIKey:     "azure-key",
		Model:      "embed-deploy",
		Azure:      true,
		APIVersion: "2025-04-01-preview",
	})

	if _, err := emb.Embed(context.Background(), []string{"text"}); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
}

func TestResolveBackend(t *testing.T) {
	t.Setenv("EMBEDDING_PROVIDER", "")
	t.Setenv("MODEL_PROVIDER", "")
	os.Unsetenv("EMBEDDING_PROVIDER")
	os.Unsetenv("MODEL_PROVIDER")

	if got := ResolveBackend(); got != "ollama" {
		t.Errorf("default backend: got %q, want ollama", got)
	}

	t.Setenv("MODEL_PROVIDER", "gemini")
	if got := ResolveBackend(); got != "gemini" {
		t.Errorf("inherited backend: got %q, want gemini", got)
	}

	t.Setenv("EMBEDDING_PROVIDER", "openai")
	if got := ResolveBackend(); got != "openai" {
		t.Errorf("override backend: got %q, want openai", got)
	}
}

func TestDefaultDimensions(t *testing.T) {
	t.Setenv("EMBEDDING_DIMENSIONS", "")
	os.Unsetenv("EMBEDDING_DIMENSIONS")

	if got := DefaultDimensions("ollama"); got != 768 {
		t.Errorf("ollama dimensions: got %d, want 768", got)
	}
	if got := DefaultDimensions("gemini"); got != 768 {
		t.Errorf("gemini dimensions: got %d, want 768", got)
	}
	if got := DefaultDimensions("openai"); got != 1536 {
		t.Errorf("openai dimensions: got %d, want 1536", got)
	}

	t.Setenv("EMBEDDING_DIMENSIONS", "3072")
	if got := DefaultDimensions("ollama"); got != 3072 {
		t.Errorf("override dimensions: got %d, want 3072", got)
	}
}

func TestNewFromEnv_MissingCredentials(t *testing.T) {
	keys := []string{
		"EMBEDDING_PROVIDER", "EMBEDDING_API_KEY", "OPENAI_API_KEY",
		"AZURE_OPENAI_API_KEY", "GOOGLE_API_KEY", "MODEL_API_KEY",
	}
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	t.Setenv("EMBEDDING_PROVIDER", "openai")
	if _, err := NewFromEnv(context.Background()); err == nil {
		t.Error("expected error for openai without an API key")
	}

	t.Setenv("EMBEDDING_PROVIDER", "gemini")
	if _, err := NewFromEnv(context.Background()); err == nil {
		t.Error("expected error for gemini without an API key")
	}

	t.Setenv("EMBEDDING_PROVIDER", "nonsense")
	if _, err := NewFromEnv(context.Background()); err == nil {
		t.Error("expected error for unknown backend")
	}
}
