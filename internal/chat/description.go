package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fpang/thumbnail-studio/internal/assets"
	"github.com/fpang/thumbnail-studio/internal/studio"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// errEmptyDescription is returned when the model replies without text.
var errEmptyDescription = errors.New("The AI returned an empty description. Please try again.")

// DescriptionWriter turns video metadata into a thumbnail description with a
// Gemini text model.
type DescriptionWriter struct {
	models  ContentGenerator
	model   string
	limiter *rate.Limiter
}

// NewDescriptionWriter creates a writer. An empty model uses DefaultTextModel.
func NewDescriptionWriter(models ContentGenerator, model string, limiter *rate.Limiter) *DescriptionWriter {
	return &DescriptionWriter{
		models:  models,
		model:   modelOrDefault(model, DefaultTextModel),
		limiter: limiter,
	}
}

// DescribeVideo implements studio.DescriptionWriter.
func (w *DescriptionWriter) DescribeVideo(ctx context.Context, info studio.VideoInfo) (string, error) {
	prompt, err := assets.RenderVideoDescriptionPrompt(assets.VideoDescriptionData{
		Title:      info.Title,
		AuthorName: info.AuthorName,
	})
	if err != nil {
		return "", fmt.Errorf("failed to build description prompt: %w", err)
	}

	if err := waitTurn(ctx, w.limiter); err != nil {
		return "", err
	}

	log.Debug().
		Str("model", w.model).
		Str("title", truncateString(info.Title, 100)).
		Msg("Starting description generation")

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: assets.DescriptionSystemPrompt}},
		},
	}

	start := time.Now()
	resp, err := w.models.GenerateContent(ctx, w.model, genai.Text(prompt), config)
	if err != nil {
		return "", classifyError(err, "describe_video")
	}

	desc := ""
	if resp != nil {
		desc = strings.TrimSpace(resp.Text())
	}
	if desc == "" {
		return "", errEmptyDescription
	}

	log.Info().
		Int("response_length", len(desc)).
		Dur("duration", time.Since(start)).
		Msg("Description generation complete")
	return desc, nil
}
