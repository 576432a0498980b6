package transcriber

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTranscribe(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header: %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("model field: %q", got)
		}
		if got := r.FormValue("language"); got != "pt" {
			t.Errorf("language field: %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		if header.Filename != "lecture.webm" {
			t.Errorf("filename: %q", header.Filename)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text": "  hello from the recording  "}`))
	}))
	defer srv.Close()

	c := New(&Config{
		BaseURL:  srv.URL,
		APIKey:   "test-key",
		Model:    "whisper-1",
		Language: "pt",
	})

	text, err := c.Transcribe(context.Background(), "lecture.webm", strings.NewReader("fake-audio-bytes"))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "hello from the recording" {
		t.Errorf("text not trimmed: %q", text)
	}
}

func TestTranscribe_APIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "unsupported format"}}`))
	}))
	defer srv.Close()

	c := New(&Config{BaseURL: srv.URL, Model: "whisper-1"})
	_, err := c.Transcribe(context.Background(), "a.xyz", strings.NewReader("x"))
	if err == nil || !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("expected backend error message, got %v", err)
	}
}

func TestTranscribe_EmptyText(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"text": "   "}`))
	}))
	defer srv.Close()

	c := New(&Config{BaseURL: srv.URL, Model: "whisper-1"})
	if _, err := c.Transcribe(context.Background(), "a.webm", strings.NewReader("x")); err == nil {
		t.Fatal("expected error for empty transcription")
	}
}

func TestTranscribe_AzureURL(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/deployments/whisper/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("api-version"); got != "2025-04-01-preview" {
			t.Errorf("api-version: %q", got)
		}
		if got := r.Header.Get("api-key"); got != "azure-key" {
			t.Errorf("api-key header: %q", got)
		}
		w.Write([]byte(`{"text": "ok"}`))
	}))
	defer srv.Close()

	c := New(&Config{
		BaseURL:    srv.URL,
		APIKey:     "azure-key",
		Model:      "whisper",
		Azure:      true,
		APIVersion: "2025-04-01-preview",
	})
	if _, err := c.Transcribe(context.Background(), "a.webm", strings.NewReader("x")); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
}
