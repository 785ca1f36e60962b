// Package config loads runtime configuration from environment variables.
// A .env file in the working directory is honored when present.
package config

import (
	"os"
	"strconv"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv/autoload"
)

// Config holds all application configuration.
type Config struct {
	Import ImportConfig
	Log    LogConfig
}

// ImportConfig bounds worst-case latency: the core itself has no internal
// timeout, so ceilings are applied before it is invoked.
type ImportConfig struct {
	MaxFileBytes int64
}

type LogConfig struct {
	Level  string
	Format string // "json" or "text"
}

// Load reads configuration from environment variables with defaults that
// suit a single-file CLI invocation.
func Load() *Config {
	return &Config{
		Import: ImportConfig{
			MaxFileBytes: getEnvInt64("IMPORT_MAX_FILE_BYTES", 10<<20),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
