// Package transcriber converts uploaded audio into text through an
// OpenAI-compatible /audio/transcriptions endpoint (OpenAI Whisper, Azure
// OpenAI, or a local compatible server such as faster-whisper).
package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Transcriber converts audio bytes into transcription text.
// Implementations must be safe for concurrent use.
type Transcriber interface {
	// Transcribe uploads the audio and returns the transcribed text.
	// filename carries the original extension so the backend can pick a decoder.
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

// Config holds the settings for constructing a Client.
type Config struct {
	// BaseURL is the API base URL (e.g. "https://api.openai.com/v1").
	BaseURL string
	// APIKey is the Bearer token (OpenAI) or api-key header value (Azure).
	APIKey string
	// Model is the transcription model name (e.g. "whisper-1").
	Model string
	// Language is an optional ISO 639-1 hint passed to the backend.
	Language string
	// Azure enables Azure OpenAI mode (api-key header + api-version param).
	Azure bool
	// APIVersion is the Azure OpenAI API version. Ignored when Azure is false.
	APIVersion string
}

// Client implements Transcriber over the OpenAI audio transcription REST API.
type Client struct {
	cfg    *Config
	client *http.Client
}

// New constructs a Client from the given config.
func New(cfg *Config) *Client {
	return &Client{
		cfg: cfg,
		// Whole-file uploads of long recordings can take a while.
		client: &http.Client{Timeout: 5 * time.Minute},
	}
}

type transcribeResponse struct {
	Text  string `json:"text"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Transcribe uploads the audio as multipart form data and returns the text.
func (c *Client) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("transcriber: create form file: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", fmt.Errorf("transcriber: read audio: %w", err)
	}
	if err := mw.WriteField("model", c.cfg.Model); err != nil {
		return "", fmt.Errorf("transcriber: write model field: %w", err)
	}
	if c.cfg.Language != "" {
		if err := mw.WriteField("language", c.cfg.Language); err != nil {
			return "", fmt.Errorf("transcriber: write language field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("transcriber: finalize form: %w", err)
	}

	url := c.cfg.BaseURL + "/audio/transcriptions"
	if c.cfg.Azure {
		url = c.cfg.BaseURL + "/deployments/" + c.cfg.Model + "/audio/transcriptions?api-version=" + c.cfg.APIVersion
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("transcriber: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.cfg.Azure {
		req.Header.Set("api-key", c.cfg.APIKey)
	} else if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcriber: request failed: %w", err)
	}
	defer resp.Body.Close()

	var result transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("transcriber: decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if result.Error != nil {
			msg = result.Error.Message
		}
		return "", fmt.Errorf("transcriber: %s", msg)
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return "", fmt.Errorf("transcriber: backend returned empty transcription")
	}
	return text, nil
}
