package cli

import (
	"context"

	"github.com/fpang/thumbnail-studio/internal/auth"
	"github.com/fpang/thumbnail-studio/internal/chat"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// InitGeminiClient resolves the API key and creates a Gemini client. With
// validate set it also makes a minimal call against model. Exits fatally on
// failure.
func InitGeminiClient(ctx context.Context, model string, validate bool) (*genai.Client, string) {
	apiKey, err := auth.GetAPIKey()
	if err != nil {
		HandleValidationError(auth.Classify(err))
	}

	client, err := chat.NewClient(ctx, apiKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Gemini client")
	}
	log.Debug().Msg("Gemini client initialized")

	if validate {
		if err := auth.ValidateAPIKey(ctx, client.Models, model); err != nil {
			HandleValidationError(err)
		}
	}
	return client, apiKey
}
