package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrNoAPIKey is returned when no source provides a Gemini API key.
var ErrNoAPIKey = errors.New("API key not found. Set GEMINI_API_KEY (or API_KEY), or GEMINI_API_KEY_FILE")

// GetAPIKey retrieves the Gemini API key from available sources.
// Priority order:
//  1. GEMINI_API_KEY environment variable
//  2. API_KEY environment variable
//  3. the file named by GEMINI_API_KEY_FILE (e.g. a mounted secret)
func GetAPIKey() (string, error) {
	for _, name := range []string{"GEMINI_API_KEY", "API_KEY"} {
		if key := strings.TrimSpace(os.Getenv(name)); key != "" {
			log.Debug().Str("source", name).Msg("Using API key from environment variable")
			return key, nil
		}
	}

	if path := os.Getenv("GEMINI_API_KEY_FILE"); path != "" {
		key, err := readKeyFile(path)
		if err != nil {
			log.Error().Err(err).Str("file", path).Msg("Failed to read API key file")
			return "", err
		}
		log.Debug().Str("file", path).Msg("Using API key from file")
		return key, nil
	}

	return "", ErrNoAPIKey
}

func readKeyFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read API key file: %w", err)
	}
	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", fmt.Errorf("API key file %s is empty", path)
	}
	return key, nil
}
