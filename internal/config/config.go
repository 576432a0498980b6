// Package config provides YAML-based configuration for the agents service.
// Configuration is loaded with a layered precedence: defaults, then YAML
// file, then env vars. Environment variables always win, so existing
// workflows are unaffected.
//
// File search order:
//  1. --config CLI flag (explicit path)
//  2. AGENTS_CONFIG environment variable
//  3. ~/.agents/config.yaml
//  4. ./agents.yaml
//
// If no file is found the system runs entirely from env vars.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration structure.
// Field names use yaml tags that mirror the env var naming.
type Config struct {
	// Database configures the relational store.
	Database DatabaseConfig `yaml:"database"`

	// Model configures the answer synthesis LLM backend.
	Model ModelConfig `yaml:"model"`

	// Embedding configures the embedding backend.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Retrieval configures the similarity search policy.
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// Vector configures the chunk index backend.
	Vector VectorConfig `yaml:"vector"`

	// Transcribe configures the audio transcription backend.
	Transcribe TranscribeConfig `yaml:"transcribe"`

	// Server configures the HTTP server.
	Server ServerConfig `yaml:"server"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Tracing configures Langfuse tracing integration.
	Tracing TracingConfig `yaml:"tracing"`
}

// DatabaseConfig holds relational store settings.
type DatabaseConfig struct {
	// Driver selects the backend: postgres or sqlite.
	Driver string `yaml:"driver"`
	// URL is the connection string. Prefer env var DATABASE_URL.
	URL string `yaml:"url"`
}

// ModelConfig holds synthesis LLM settings.
type ModelConfig struct {
	// Provider selects the backend: ollama, openai, azure, bedrock, gemini.
	Provider string `yaml:"provider"`
	// Name is the model name or deployment ID.
	Name string `yaml:"name"`
	// BaseURL overrides the default API endpoint.
	BaseURL string `yaml:"base_url"`
	// APIKey is the credential. Prefer env var MODEL_API_KEY.
	APIKey string `yaml:"api_key"`
	// MaxTokens is the maximum number of tokens in an answer.
	MaxTokens int `yaml:"max_tokens"`
	// Temperature controls response randomness (0.0 to 1.0).
	Temperature float32 `yaml:"temperature"`
	// AzureDeployment is the Azure OpenAI deployment name.
	AzureDeployment string `yaml:"azure_deployment"`
	// AzureAPIVersion is the Azure OpenAI API version.
	AzureAPIVersion string `yaml:"azure_api_version"`
}

// EmbeddingConfig holds embedding backend settings.
type EmbeddingConfig struct {
	// Provider selects the embedding backend (ollama, openai, azure, gemini).
	Provider string `yaml:"provider"`
	// Model is the embedding model name.
	Model string `yaml:"model"`
	// Dimensions overrides the embedding vector size.
	Dimensions int `yaml:"dimensions"`
	// APIKey is the embedding API key. Prefer env var EMBEDDING_API_KEY.
	APIKey string `yaml:"api_key"`
	// Endpoint is the embedding API endpoint.
	Endpoint string `yaml:"endpoint"`
}

// RetrievalConfig holds similarity search policy settings.
type RetrievalConfig struct {
	// Threshold is the strict similarity cut-off for retrieved chunks.
	Threshold float32 `yaml:"threshold"`
	// TopK is the maximum number of chunks passed to synthesis.
	TopK int `yaml:"top_k"`
}

// VectorConfig holds chunk index settings.
type VectorConfig struct {
	// Backend selects the index: database (pgvector / in-process) or qdrant.
	Backend string `yaml:"backend"`
	// QdrantHost is the Qdrant server hostname.
	QdrantHost string `yaml:"qdrant_host"`
	// QdrantPort is the Qdrant gRPC port.
	QdrantPort int `yaml:"qdrant_port"`
	// QdrantCollection is the Qdrant collection name.
	QdrantCollection string `yaml:"qdrant_collection"`
	// QdrantAPIKey is the Qdrant API key. Prefer env var QDRANT_API_KEY.
	QdrantAPIKey string `yaml:"qdrant_api_key"`
	// QdrantTLS enables TLS for the Qdrant connection.
	QdrantTLS bool `yaml:"qdrant_tls"`
}

// TranscribeConfig holds audio transcription settings.
type TranscribeConfig struct {
	// Provider selects the backend: openai or azure.
	Provider string `yaml:"provider"`
	// Model is the transcription model or deployment name.
	Model string `yaml:"model"`
	// Endpoint is the API base URL.
	Endpoint string `yaml:"endpoint"`
	// APIKey is the credential. Prefer env var TRANSCRIBE_API_KEY.
	APIKey string `yaml:"api_key"`
	// Language is an optional ISO 639-1 hint.
	Language string `yaml:"language"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `yaml:"host"`
	// Port is the TCP port.
	Port int `yaml:"port"`
	// APIKey is the Bearer token for API authentication. Prefer env var AGENTS_API_KEY.
	APIKey string `yaml:"api_key"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: json, text.
	Format string `yaml:"format"`
}

// TracingConfig holds Langfuse tracing settings.
type TracingConfig struct {
	// PublicKey is the Langfuse public key. Prefer env var LANGFUSE_PUBLIC_KEY.
	PublicKey string `yaml:"public_key"`
	// SecretKey is the Langfuse secret key. Prefer env var LANGFUSE_SECRET_KEY.
	SecretKey string `yaml:"secret_key"`
	// Host is the Langfuse API host.
	Host string `yaml:"host"`
}

// envMapping maps YAML config fields to their corresponding env var names.
// Only non-empty YAML values are applied; env vars always take precedence.
var envMapping = []struct {
	envKey string
	value  func(*Config) string
}{
	{"DATABASE_DRIVER", func(c *Config) string { return c.Database.Driver }},
	{"DATABASE_URL", func(c *Config) string { return c.Database.URL }},
	{"MODEL_PROVIDER", func(c *Config) string { return c.Model.Provider }},
	{"MODEL_NAME", func(c *Config) string { return c.Model.Name }},
	{"MODEL_BASE_URL", func(c *Config) string { return c.Model.BaseURL }},
	{"MODEL_API_KEY", func(c *Config) string { return c.Model.APIKey }},
	{"MODEL_MAX_TOKENS", func(c *Config) string { return intStr(c.Model.MaxTokens) }},
	{"MODEL_TEMPERATURE", func(c *Config) string { return float32Str(c.Model.Temperature) }},
	{"AZURE_DEPLOYMENT", func(c *Config) string { return c.Model.AzureDeployment }},
	{"AZURE_OPENAI_API_VERSION", func(c *Config) string { return c.Model.AzureAPIVersion }},
	{"EMBEDDING_PROVIDER", func(c *Config) string { return c.Embedding.Provider }},
	{"EMBEDDING_MODEL", func(c *Config) string { return c.Embedding.Model }},
	{"EMBEDDING_DIMENSIONS", func(c *Config) string { return intStr(c.Embedding.Dimensions) }},
	{"EMBEDDING_API_KEY", func(c *Config) string { return c.Embedding.APIKey }},
	{"EMBEDDING_ENDPOINT", func(c *Config) string { return c.Embedding.Endpoint }},
	{"RETRIEVAL_THRESHOLD", func(c *Config) string { return float32Str(c.Retrieval.Threshold) }},
	{"RETRIEVAL_TOP_K", func(c *Config) string { return intStr(c.Retrieval.TopK) }},
	{"VECTOR_BACKEND", func(c *Config) string { return c.Vector.Backend }},
	{"QDRANT_HOST", func(c *Config) string { return c.Vector.QdrantHost }},
	{"QDRANT_PORT", func(c *Config) string { return intStr(c.Vector.QdrantPort) }},
	{"QDRANT_COLLECTION", func(c *Config) string { return c.Vector.QdrantCollection }},
	{"QDRANT_API_KEY", func(c *Config) string { return c.Vector.QdrantAPIKey }},
	{"QDRANT_TLS", func(c *Config) string { return boolStr(c.Vector.QdrantTLS) }},
	{"TRANSCRIBE_PROVIDER", func(c *Config) string { return c.Transcribe.Provider }},
	{"TRANSCRIBE_MODEL", func(c *Config) string { return c.Transcribe.Model }},
	{"TRANSCRIBE_ENDPOINT", func(c *Config) string { return c.Transcribe.Endpoint }},
	{"TRANSCRIBE_API_KEY", func(c *Config) string { return c.Transcribe.APIKey }},
	{"TRANSCRIBE_LANGUAGE", func(c *Config) string { return c.Transcribe.Language }},
	{"SERVER_HOST", func(c *Config) string { return c.Server.Host }},
	{"SERVER_PORT", func(c *Config) string { return intStr(c.Server.Port) }},
	{"AGENTS_API_KEY", func(c *Config) string { return c.Server.APIKey }},
	{"LOG_LEVEL", func(c *Config) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *Config) string { return c.Logging.Format }},
	{"LANGFUSE_PUBLIC_KEY", func(c *Config) string { return c.Tracing.PublicKey }},
	{"LANGFUSE_SECRET_KEY", func(c *Config) string { return c.Tracing.SecretKey }},
	{"LANGFUSE_HOST", func(c *Config) string { return c.Tracing.Host }},
}

// Load reads a YAML config file and applies non-empty values as environment
// variables. Existing env vars are never overwritten (env always wins).
// Returns the path that was loaded, or empty string if no file was found.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path := resolveConfigPath(explicitPath)
	if path == "" {
		log.Debug("config: no YAML config file found, using env vars only")
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applied := 0
	for _, m := range envMapping {
		yamlVal := m.value(&cfg)
		if yamlVal == "" || yamlVal == "0" || yamlVal == "false" {
			continue
		}
		if os.Getenv(m.envKey) != "" {
			continue // env var already set, do not override
		}
		os.Setenv(m.envKey, yamlVal)
		applied++
	}

	log.Info("config: loaded YAML config",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)

	return path, nil
}

// resolveConfigPath returns the first config file path that exists.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	if envPath := os.Getenv("AGENTS_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		p := filepath.Join(home, ".agents", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if _, err := os.Stat("agents.yaml"); err == nil {
		return "agents.yaml"
	}

	return ""
}

// intStr converts an int to string, returning "" for zero values.
func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("%d", v)
}

// float32Str converts a float32 to string, returning "" for zero values.
func float32Str(v float32) string {
	if v == 0 {
		return ""
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}

// boolStr converts a bool to string, returning "" for false.
func boolStr(v bool) string {
	if !v {
		return ""
	}
	return "true"
}
