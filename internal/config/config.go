// Package config loads server settings from a .env file and the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by Load.
const (
	EnvLogLevel    = "IMAGE_MCP_LOG_LEVEL"
	EnvOutputDir   = "IMAGE_MCP_OUTPUT_DIR"
	EnvMetricsAddr = "IMAGE_MCP_METRICS_ADDR"
	EnvMaxPixels   = "IMAGE_MCP_MAX_PIXELS"
	EnvOCRLanguage = "IMAGE_MCP_OCR_LANGUAGE"
	EnvStoreLimit  = "IMAGE_MCP_STORE_LIMIT"
)

// Defaults applied when a variable is unset.
const (
	DefaultMaxPixels   = 40_000_000
	DefaultOCRLanguage = "eng"
	DefaultStoreLimit  = 64
)

// Config holds the server settings.
type Config struct {
	// LogLevel is "debug" or "info".
	LogLevel string
	// OutputDir keeps artifacts on disk when set; otherwise they stay in memory.
	OutputDir string
	// MetricsAddr enables the Prometheus listener when set, e.g. ":9090".
	MetricsAddr string
	// MaxPixels rejects larger images before any processing.
	MaxPixels int
	// OCRLanguage is the Tesseract language code.
	OCRLanguage string
	// StoreLimit caps the in-memory artifact store.
	StoreLimit int
}

// Debug reports whether debug logging is enabled.
func (c *Config) Debug() bool {
	return strings.EqualFold(c.LogLevel, "debug")
}

// Load reads .env from the working directory if present, then the
// environment.
func Load() (*Config, error) {
	// A missing .env file is fine.
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		LogLevel:    strings.ToLower(strings.TrimSpace(getenv(EnvLogLevel))),
		OutputDir:   strings.TrimSpace(getenv(EnvOutputDir)),
		MetricsAddr: strings.TrimSpace(getenv(EnvMetricsAddr)),
		MaxPixels:   DefaultMaxPixels,
		OCRLanguage: DefaultOCRLanguage,
		StoreLimit:  DefaultStoreLimit,
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if lang := strings.TrimSpace(getenv(EnvOCRLanguage)); lang != "" {
		cfg.OCRLanguage = lang
	}

	var err error
	if cfg.MaxPixels, err = positiveInt(getenv, EnvMaxPixels, DefaultMaxPixels); err != nil {
		return nil, err
	}
	if cfg.StoreLimit, err = positiveInt(getenv, EnvStoreLimit, DefaultStoreLimit); err != nil {
		return nil, err
	}
	return cfg, nil
}

func positiveInt(getenv func(string) string, key string, def int) (int, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.ReplaceAll(raw, "_", ""))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return n, nil
}
