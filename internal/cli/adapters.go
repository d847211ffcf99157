// Package cli holds the bootstrap shared by the thumbnail studio binaries.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fpang/thumbnail-studio/internal/chat"
	"github.com/fpang/thumbnail-studio/internal/config"
	"github.com/fpang/thumbnail-studio/internal/logging"
	"github.com/fpang/thumbnail-studio/internal/studio"
	"github.com/fpang/thumbnail-studio/internal/videometa"
	"google.golang.org/genai"
)

// BuildAdapters wires the external collaborators described by cfg. All
// Gemini adapters share one rate limiter.
func BuildAdapters(ctx context.Context, cfg config.Config, apiKey string, client *genai.Client) (studio.Adapters, error) {
	limiter := chat.NewLimiter(cfg.RatePerMinute)

	var lookup studio.VideoLookup
	if cfg.YouTubeAPIKey != "" {
		dataAPI, err := videometa.NewDataAPIClient(ctx, cfg.YouTubeAPIKey)
		if err != nil {
			return studio.Adapters{}, err
		}
		lookup = dataAPI
	} else {
		lookup = videometa.NewOEmbedClient(cfg.OEmbedEndpoint)
	}

	var images studio.ImageGenerator
	switch cfg.ImageBackend {
	case config.BackendImagen:
		images = chat.NewImagenGenerator(client.Models, cfg.ImageModel, limiter)
	case config.BackendGemini:
		images = chat.NewGeminiImageGenerator(apiKey, cfg.ImageModel, limiter)
	default:
		return studio.Adapters{}, fmt.Errorf("unknown image backend %q", cfg.ImageBackend)
	}

	return studio.Adapters{
		Lookup:    lookup,
		Writer:    chat.NewDescriptionWriter(client.Models, cfg.TextModel, limiter),
		Suggester: chat.NewSuggester(client.Models, cfg.TextModel, limiter),
		Images:    images,
	}, nil
}

// StartupLog describes cfg on a startup logger for the named binary.
func StartupLog(name string, cfg config.Config, initStart time.Time) *logging.StartupLogger {
	lookup := "oembed"
	if cfg.YouTubeAPIKey != "" {
		lookup = "youtube-data-api"
	}
	return logging.NewStartupLogger(name).
		Model("text", cfg.TextModel).
		Model("image", cfg.ImageModel).
		Config("imageBackend", cfg.ImageBackend).
		Config("videoLookup", lookup).
		Config("ratePerMinute", fmt.Sprint(cfg.RatePerMinute)).
		Config("sessionTTL", cfg.SessionTTL.String()).
		Resource("exportBucket", cfg.ExportBucket).
		Feature("export", cfg.ExportBucket != "").
		Feature("emfMetrics", cfg.EMFMetrics).
		InitDuration(time.Since(initStart))
}
