// Package config reads process configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full process configuration.
type Config struct {
	QdrantHost string
	QdrantPort int

	OpenAIAPIKey       string
	OpenAIBaseURL      string
	EmbeddingModel     string
	EmbeddingDimension int
	EmbeddingBaseURL   string
	SynthesisModel     string
	VisionModel        string
	CompletionRPS      float64

	// ExtractorURL points at an Unstructured-compatible partition service.
	// Empty disables the high-fidelity pass, so uploads keep the fast
	// pass output.
	ExtractorURL     string
	ExtractorTimeout time.Duration

	DataDir        string
	HeuristicsFile string

	TopK               int
	MaxFileSizeMB      int
	MaxContextMessages int
	MaxContextTokens   int
	SummarizeThreshold int

	Port       string
	ServerMode bool
	LogLevel   slog.Level

	GitHubToken string
}

// Load reads .env if present and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		QdrantHost: getEnv("QDRANT_HOST", "localhost"),
		QdrantPort: getEnvInt("QDRANT_PORT", 6334),

		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:      os.Getenv("OPENAI_BASE_URL"),
		EmbeddingModel:     getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDimension: getEnvInt("EMBEDDING_DIMENSION", 1536),
		EmbeddingBaseURL:   os.Getenv("EMBEDDING_BASE_URL"),
		SynthesisModel:     getEnv("SYNTHESIS_MODEL", "gpt-4o-mini"),
		VisionModel:        os.Getenv("VISION_MODEL"),
		CompletionRPS:      getEnvFloat("COMPLETION_RPS", 0),

		ExtractorURL:     os.Getenv("EXTRACTOR_URL"),
		ExtractorTimeout: time.Duration(getEnvInt("EXTRACTOR_TIMEOUT_SECONDS", 300)) * time.Second,

		DataDir:        getEnv("DATA_DIR", "./data"),
		HeuristicsFile: os.Getenv("HEURISTICS_FILE"),

		TopK:               getEnvInt("TOP_K_CHUNKS", 8),
		MaxFileSizeMB:      getEnvInt("MAX_FILE_SIZE_MB", 10),
		MaxContextMessages: getEnvInt("MAX_CONTEXT_MESSAGES", 10),
		MaxContextTokens:   getEnvInt("MAX_CONTEXT_TOKENS", 4000),
		SummarizeThreshold: getEnvInt("SUMMARIZE_THRESHOLD", 8),

		Port:       getEnv("PORT", "8080"),
		ServerMode: getEnvBool("SERVER_MODE", false),

		GitHubToken: os.Getenv("GITHUB_TOKEN"),
	}

	level, err := parseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a component.
func (c *Config) Validate() error {
	if c.OpenAIAPIKey == "" && c.OpenAIBaseURL == "" {
		return fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	if c.QdrantPort <= 0 {
		return fmt.Errorf("QDRANT_PORT must be positive, got %d", c.QdrantPort)
	}
	if c.EmbeddingDimension <= 0 {
		return fmt.Errorf("EMBEDDING_DIMENSION must be positive, got %d", c.EmbeddingDimension)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("TOP_K_CHUNKS must be positive, got %d", c.TopK)
	}
	if c.MaxFileSizeMB <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE_MB must be positive, got %d", c.MaxFileSizeMB)
	}
	return nil
}

// MaxFileSize is the upload limit in bytes.
func (c *Config) MaxFileSize() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}

// EmbeddingURL is the embedding endpoint, defaulting to the completion one.
func (c *Config) EmbeddingURL() string {
	if c.EmbeddingBaseURL != "" {
		return c.EmbeddingBaseURL
	}
	return c.OpenAIBaseURL
}

// NewLogger returns a text logger at the configured level.
func (c *Config) NewLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: c.LogLevel}))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return defaultValue
}
