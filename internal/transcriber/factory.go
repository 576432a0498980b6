package transcriber

import (
	"fmt"
	"os"
)

// NewFromEnv constructs a Transcriber from environment variables.
//
// Environment variables:
//
//	TRANSCRIBE_PROVIDER  = openai | azure (default: openai)
//	TRANSCRIBE_ENDPOINT  = API base URL (default: https://api.openai.com/v1)
//	TRANSCRIBE_API_KEY   = credential (falls back to OPENAI_API_KEY / AZURE_OPENAI_API_KEY)
//	TRANSCRIBE_MODEL     = model or deployment name (default: whisper-1)
//	TRANSCRIBE_LANGUAGE  = optional ISO 639-1 language hint
func NewFromEnv() (Transcriber, error) {
	provider := getEnvOrDefault("TRANSCRIBE_PROVIDER", "openai")
	model := getEnvOrDefault("TRANSCRIBE_MODEL", "whisper-1")
	language := os.Getenv("TRANSCRIBE_LANGUAGE")

	switch provider {
	case "openai":
		apiKey := os.Getenv("TRANSCRIBE_API_KEY")
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		endpoint := getEnvOrDefault("TRANSCRIBE_ENDPOINT", "https://api.openai.com/v1")
		// Local OpenAI-compatible servers run without a key; the hosted API
		// rejects unauthenticated calls on the first request.
		return New(&Config{
			BaseURL:  endpoint,
			APIKey:   apiKey,
			Model:    model,
			Language: language,
		}), nil

	case "azure":
		apiKey := os.Getenv("TRANSCRIBE_API_KEY")
		if apiKey == "" {
			apiKey = os.Getenv("AZURE_OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("transcriber: azure requires AZURE_OPENAI_API_KEY or TRANSCRIBE_API_KEY")
		}
		endpoint := os.Getenv("TRANSCRIBE_ENDPOINT")
		if endpoint == "" {
			endpoint = os.Getenv("AZURE_OPENAI_ENDPOINT")
		}
		if endpoint == "" {
			return nil, fmt.Errorf("transcriber: azure requires AZURE_OPENAI_ENDPOINT or TRANSCRIBE_ENDPOINT")
		}
		return New(&Config{
			BaseURL:    endpoint + "/openai",
			APIKey:     apiKey,
			Model:      model,
			Language:   language,
			Azure:      true,
			APIVersion: getEnvOrDefault("AZURE_OPENAI_API_VERSION", "2025-04-01-preview"),
		}), nil

	default:
		return nil, fmt.Errorf("transcriber: unknown provider %q, valid values: openai, azure", provider)
	}
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
