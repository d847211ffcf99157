package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fpang/thumbnail-studio/internal/assets"
	"github.com/fpang/thumbnail-studio/internal/studio"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

var errAllFiltered = errors.New("No thumbnails were generated. The description may have been blocked by safety filters; try rephrasing it.")

// ImagenGenerator renders thumbnails with an Imagen model through the genai SDK.
// One call returns every requested image.
type ImagenGenerator struct {
	models  ImageModels
	model   string
	limiter *rate.Limiter
}

// NewImagenGenerator creates a generator. An empty model uses DefaultImagenModel.
func NewImagenGenerator(models ImageModels, model string, limiter *rate.Limiter) *ImagenGenerator {
	return &ImagenGenerator{
		models:  models,
		model:   modelOrDefault(model, DefaultImagenModel),
		limiter: limiter,
	}
}

// GenerateImages implements studio.ImageGenerator.
func (g *ImagenGenerator) GenerateImages(ctx context.Context, req studio.ImageRequest) ([]studio.Image, error) {
	prompt, err := imagePrompt(req)
	if err != nil {
		return nil, err
	}
	if err := waitTurn(ctx, g.limiter); err != nil {
		return nil, err
	}

	log.Info().
		Str("model", g.model).
		Int("count", req.ImageCount).
		Strs("styles", req.Styles).
		Msg("Generating thumbnails with Imagen")

	start := time.Now()
	resp, err := g.models.GenerateImages(ctx, g.model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages:   int32(req.ImageCount),
		AspectRatio:      req.AspectRatio,
		OutputMIMEType:   "image/png",
		IncludeRAIReason: true,
	})
	if err != nil {
		return nil, classifyError(err, "generate_images")
	}
	if resp == nil {
		return nil, errAllFiltered
	}

	var images []studio.Image
	filtered := 0
	for _, gen := range resp.GeneratedImages {
		if gen == nil || gen.Image == nil || len(gen.Image.ImageBytes) == 0 {
			filtered++
			if gen != nil && gen.RAIFilteredReason != "" {
				log.Warn().Str("reason", gen.RAIFilteredReason).Msg("Imagen filtered an image")
			}
			continue
		}
		mime := gen.Image.MIMEType
		if mime == "" {
			mime = "image/png"
		}
		images = append(images, studio.Image{Data: gen.Image.ImageBytes, MIMEType: mime})
	}

	if len(images) == 0 {
		return nil, errAllFiltered
	}

	log.Info().
		Int("images", len(images)).
		Int("filtered", filtered).
		Dur("duration", time.Since(start)).
		Msg("Imagen generation complete")
	return images, nil
}

func imagePrompt(req studio.ImageRequest) (string, error) {
	prompt, err := assets.RenderThumbnailImagePrompt(assets.ThumbnailImageData{
		Description: req.Description,
		AspectRatio: req.AspectRatio,
		Styles:      req.Styles,
	})
	if err != nil {
		return "", fmt.Errorf("failed to build image prompt: %w", err)
	}
	return prompt, nil
}
