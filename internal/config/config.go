// Package config loads process configuration from the environment, after
// merging any .env files present in the working directory.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Image backends.
const (
	BackendImagen = "imagen"
	BackendGemini = "gemini"
)

// Config is the resolved configuration shared by every binary.
type Config struct {
	Port string

	TextModel    string
	ImageModel   string
	ImageBackend string

	YouTubeAPIKey  string
	OEmbedEndpoint string

	RatePerMinute int
	SessionTTL    time.Duration
	MaxSessions   int

	ExportBucket string
	EMFMetrics   bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Load reads .env and .env.local if present, then the environment. Values
// already set in the environment win over .env files.
func Load() (Config, error) {
	_ = godotenv.Load(".env", ".env.local")
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:           getEnv("PORT", "8080"),
		TextModel:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		ImageModel:     os.Getenv("IMAGE_MODEL"),
		ImageBackend:   strings.ToLower(getEnv("IMAGE_BACKEND", BackendImagen)),
		YouTubeAPIKey:  os.Getenv("YOUTUBE_API_KEY"),
		OEmbedEndpoint: getEnv("OEMBED_ENDPOINT", "https://www.youtube.com/oembed"),
		ExportBucket:   os.Getenv("EXPORT_S3_BUCKET"),
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   2 * time.Minute,
		IdleTimeout:    60 * time.Second,
	}

	var err error
	if cfg.RatePerMinute, err = getEnvInt("API_RATE_PER_MINUTE", 30); err != nil {
		return Config{}, err
	}
	if cfg.SessionTTL, err = getEnvDuration("SESSION_TTL", 2*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.MaxSessions, err = getEnvInt("MAX_SESSIONS", 10000); err != nil {
		return Config{}, err
	}
	if cfg.EMFMetrics, err = getEnvBool("EMF_METRICS", false); err != nil {
		return Config{}, err
	}

	switch cfg.ImageBackend {
	case BackendImagen:
		if cfg.ImageModel == "" {
			cfg.ImageModel = "imagen-3.0-generate-002"
		}
	case BackendGemini:
		if cfg.ImageModel == "" {
			cfg.ImageModel = "gemini-2.5-flash-image"
		}
	default:
		return Config{}, fmt.Errorf("IMAGE_BACKEND must be %q or %q, got %q", BackendImagen, BackendGemini, cfg.ImageBackend)
	}

	if cfg.MaxSessions < 1 {
		return Config{}, fmt.Errorf("MAX_SESSIONS must be positive, got %d", cfg.MaxSessions)
	}
	if cfg.RatePerMinute < 0 {
		return Config{}, fmt.Errorf("API_RATE_PER_MINUTE must not be negative, got %d", cfg.RatePerMinute)
	}

	log.Debug().
		Str("port", cfg.Port).
		Str("textModel", cfg.TextModel).
		Str("imageBackend", cfg.ImageBackend).
		Str("imageModel", cfg.ImageModel).
		Bool("youtubeDataAPI", cfg.YouTubeAPIKey != "").
		Msg("Configuration loaded")
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, v, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, v, err)
	}
	return d, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q: %w", key, v, err)
	}
	return b, nil
}
