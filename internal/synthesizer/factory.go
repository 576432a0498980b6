package synthesizer

import (
	"context"
	"os"
	"strconv"
)

// NewFromEnv constructs a Synthesizer by reading backend configuration from
// environment variables. MODEL_PROVIDER selects the backend; each provider
// uses its own native credential env vars.
//
// Environment variables:
//
//	MODEL_PROVIDER  = ollama | openai | azure | bedrock | gemini (default: ollama)
//	MODEL_NAME      = model name or ID for the selected backend
//	MODEL_BASE_URL  = endpoint override (Ollama default: http://localhost:11434)
//	MODEL_API_KEY   = credential (falls back to OPENAI_API_KEY / AZURE_OPENAI_API_KEY / GOOGLE_API_KEY)
//
//	Azure:   AZURE_DEPLOYMENT, AZURE_OPENAI_API_VERSION (default: 2024-02-01)
//	Shared:  MODEL_MAX_TOKENS (default: 4096), MODEL_TEMPERATURE (default: 0.2)
func NewFromEnv(ctx context.Context) (*Synthesizer, error) {
	backend := Backend(getEnvOrDefault("MODEL_PROVIDER", string(BackendOllama)))

	apiKey := os.Getenv("MODEL_API_KEY")
	if apiKey == "" {
		switch backend {
		case BackendOpenAI:
			apiKey = os.Getenv("OPENAI_API_KEY")
		case BackendAzure:
			apiKey = os.Getenv("AZURE_OPENAI_API_KEY")
		case BackendGemini:
			apiKey = os.Getenv("GOOGLE_API_KEY")
		}
	}

	baseURL := os.Getenv("MODEL_BASE_URL")
	if baseURL == "" {
		switch backend {
		case BackendOllama:
			baseURL = getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434")
		case BackendAzure:
			baseURL = os.Getenv("AZURE_OPENAI_ENDPOINT")
		}
	}

	model := os.Getenv("MODEL_NAME")
	if model == "" {
		switch backend {
		case BackendOllama:
			model = "llama3"
		case BackendOpenAI:
			model = "gpt-4o"
		case BackendGemini:
			model = "gemini-1.5-pro"
		}
	}

	cfg := &Config{
		Backend:         backend,
		Model:           model,
		BaseURL:         baseURL,
		APIKey:          apiKey,
		AzureDeployment: os.Getenv("AZURE_DEPLOYMENT"),
		AzureAPIVersion: getEnvOrDefault("AZURE_OPENAI_API_VERSION", "2024-02-01"),
		MaxTokens:       getEnvInt("MODEL_MAX_TOKENS", 4096),
		Temperature:     getEnvFloat32("MODEL_TEMPERATURE", 0.2),
	}

	m, err := newChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return New(m), nil
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvFloat32 returns the float32 value of the named environment variable,
// or fallback if the variable is unset, empty, or not parseable.
func getEnvFloat32(key string, fallback float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return fallback
}
