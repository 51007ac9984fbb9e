// Package config loads environment-driven settings. A .env file in
// the working directory is honored when present.
package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds the runtime settings for the memory system.
type Config struct {
	// DataDir is the persistence directory for the vector store.
	// Empty means fully in-memory.
	DataDir string

	// Provider selects the completion capability: "anthropic" or
	// "openai". Defaults by available API key, preferring Anthropic.
	Provider string

	// Model overrides the provider's default completion model.
	Model string

	// Embedder selects the embedding capability: "mock" or "openai".
	Embedder string

	// EmbedCache enables the ristretto embedding cache.
	EmbedCache bool

	AnthropicAPIKey string
	OpenAIAPIKey    string
}

// Load reads configuration from the environment.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		DataDir:         os.Getenv("MNEMO_DATA_DIR"),
		Provider:        os.Getenv("MNEMO_PROVIDER"),
		Model:           os.Getenv("MNEMO_MODEL"),
		Embedder:        os.Getenv("MNEMO_EMBEDDER"),
		EmbedCache:      os.Getenv("MNEMO_EMBED_CACHE") == "true",
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
	}

	if cfg.Provider == "" {
		switch {
		case cfg.AnthropicAPIKey != "":
			cfg.Provider = "anthropic"
		case cfg.OpenAIAPIKey != "":
			cfg.Provider = "openai"
		}
	}
	if cfg.Embedder == "" {
		if cfg.OpenAIAPIKey != "" {
			cfg.Embedder = "openai"
		} else {
			cfg.Embedder = "mock"
		}
	}
	return cfg
}
