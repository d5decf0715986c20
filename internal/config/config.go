// Package config provides centralized configuration for the flashbooth
// server. All configurable values are loaded from environment variables with
// sensible defaults.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all server configuration values.
type Config struct {
	// Port is the HTTP server listen port.
	Port string

	// DBPath is the path to the SQLite database file.
	DBPath string

	// BlobDir is the root directory of the local blob store.
	BlobDir string

	// Provider selects the transformation backend: "gemini" or "openai".
	Provider string

	// GeminiKey is the API key for the Google Gemini service.
	GeminiKey string

	// GeminiModel is the image-output model identifier for Gemini.
	GeminiModel string

	// OpenAIKey is the API key for the OpenAI service.
	OpenAIKey string

	// OpenAIModel is the image-edit model identifier for OpenAI.
	OpenAIModel string

	// AdminToken is the shared admin secret. Empty disables admin
	// operations entirely.
	AdminToken string

	// WorkerInterval is the polling interval for the background worker.
	WorkerInterval time.Duration

	// HTTPTimeout is the timeout for outgoing provider requests.
	HTTPTimeout time.Duration

	// MaxUploadBytes is the maximum accepted upload body size.
	MaxUploadBytes int64

	// MaxImageDimension is the bound on either side of a stored source
	// image; larger uploads are downscaled before storage.
	MaxImageDimension int

	// CORSOrigin is the allowed CORS origin. Defaults to "*".
	CORSOrigin string
}

// Load reads configuration from environment variables, applying defaults.
func Load() Config {
	return Config{
		Port:              envOr("PORT", "8080"),
		DBPath:            envOr("DB_PATH", "flashbooth.db"),
		BlobDir:           envOr("BLOB_DIR", "blobs"),
		Provider:          envOr("TRANSFORM_PROVIDER", "gemini"),
		GeminiKey:         os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       envOr("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image-preview"),
		OpenAIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:       envOr("OPENAI_IMAGE_MODEL", "gpt-image-1"),
		AdminToken:        os.Getenv("ADMIN_API_TOKEN"),
		WorkerInterval:    envDuration("WORKER_INTERVAL", 2*time.Second),
		HTTPTimeout:       envDuration("HTTP_TIMEOUT", 120*time.Second),
		MaxUploadBytes:    envInt64("MAX_UPLOAD_BYTES", 10<<20),
		MaxImageDimension: envInt("MAX_IMAGE_DIMENSION", 2048),
		CORSOrigin:        envOr("CORS_ORIGIN", "*"),
	}
}

// UseStub returns true when the selected provider has no API key, in which
// case the pipeline runs against the stub transformer.
func (c Config) UseStub() bool {
	switch c.Provider {
	case "openai":
		return c.OpenAIKey == ""
	default:
		return c.GeminiKey == ""
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
