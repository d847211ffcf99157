package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var keys = []string{
	"PORT", "GEMINI_MODEL", "IMAGE_MODEL", "IMAGE_BACKEND", "YOUTUBE_API_KEY",
	"OEMBED_ENDPOINT", "API_RATE_PER_MINUTE", "SESSION_TTL", "MAX_SESSIONS", "EXPORT_S3_BUCKET", "EMF_METRICS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.TextModel != "gemini-2.5-flash" {
		t.Errorf("TextModel = %q", cfg.TextModel)
	}
	if cfg.ImageBackend != BackendImagen || cfg.ImageModel != "imagen-3.0-generate-002" {
		t.Errorf("image = %q/%q", cfg.ImageBackend, cfg.ImageModel)
	}
	if cfg.OEmbedEndpoint != "https://www.youtube.com/oembed" {
		t.Errorf("OEmbedEndpoint = %q", cfg.OEmbedEndpoint)
	}
	if cfg.RatePerMinute != 30 || cfg.SessionTTL != 2*time.Hour || cfg.MaxSessions != 10000 || cfg.EMFMetrics {
		t.Errorf("unexpected limits %+v", cfg)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("IMAGE_BACKEND", "Gemini")
	t.Setenv("API_RATE_PER_MINUTE", "5")
	t.Setenv("SESSION_TTL", "15m")
	t.Setenv("EMF_METRICS", "true")
	t.Setenv("EXPORT_S3_BUCKET", "thumbs")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9090" || cfg.ImageBackend != BackendGemini || cfg.ImageModel != "gemini-2.5-flash-image" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.RatePerMinute != 5 || cfg.SessionTTL != 15*time.Minute || !cfg.EMFMetrics || cfg.ExportBucket != "thumbs" {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := map[string]string{
		"IMAGE_BACKEND":       "dalle",
		"API_RATE_PER_MINUTE": "many",
		"SESSION_TTL":         "forever",
		"MAX_SESSIONS":        "0",
		"EMF_METRICS":         "sometimes",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			if _, err := FromEnv(); err == nil {
				t.Errorf("expected error for %s=%q", key, value)
			}
		})
	}
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("GEMINI_MODEL=gemini-from-dotenv\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Chdir(wd)
		os.Unsetenv("GEMINI_MODEL")
	})
	os.Unsetenv("GEMINI_MODEL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TextModel != "gemini-from-dotenv" {
		t.Errorf("TextModel = %q", cfg.TextModel)
	}
}
