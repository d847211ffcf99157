package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fpang/thumbnail-studio/internal/assets"
	"github.com/fpang/thumbnail-studio/internal/jsonutil"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// SuggestionCount is how many alternative descriptions are requested.
const SuggestionCount = 3

var errNoSuggestions = errors.New("The AI did not return any suggestions. Please try again.")

// Suggester proposes alternative descriptions with a Gemini text model. The
// response is constrained to a JSON array of strings.
type Suggester struct {
	models  ContentGenerator
	model   string
	limiter *rate.Limiter
}

// NewSuggester creates a suggester. An empty model uses DefaultTextModel.
func NewSuggester(models ContentGenerator, model string, limiter *rate.Limiter) *Suggester {
	return &Suggester{
		models:  models,
		model:   modelOrDefault(model, DefaultTextModel),
		limiter: limiter,
	}
}

// SuggestPrompts implements studio.PromptSuggester.
func (s *Suggester) SuggestPrompts(ctx context.Context, description string) ([]string, error) {
	prompt, err := assets.RenderSuggestionsPrompt(assets.SuggestionsData{
		Description: description,
		Count:       SuggestionCount,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build suggestions prompt: %w", err)
	}

	if err := waitTurn(ctx, s.limiter); err != nil {
		return nil, err
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: assets.SuggestionsSystemPrompt}},
		},
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
	}

	start := time.Now()
	resp, err := s.models.GenerateContent(ctx, s.model, genai.Text(prompt), config)
	if err != nil {
		return nil, classifyError(err, "suggest_prompts")
	}
	if resp == nil {
		return nil, errNoSuggestions
	}

	suggestions, err := jsonutil.ParseStringList(resp.Text())
	if err != nil {
		log.Warn().Err(err).Msg("Failed to parse suggestions response")
		return nil, errNoSuggestions
	}
	if len(suggestions) == 0 {
		return nil, errNoSuggestions
	}

	log.Info().
		Int("suggestions", len(suggestions)).
		Dur("duration", time.Since(start)).
		Msg("Prompt suggestions complete")
	return suggestions, nil
}
