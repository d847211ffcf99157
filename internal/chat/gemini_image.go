package chat

// gemini_image.go calls a Gemini image model through the REST generateContent
// endpoint. Each call returns one image, so a request for N thumbnails fans out
// into N calls.

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fpang/thumbnail-studio/internal/studio"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// geminiBaseURL is the Gemini REST API base URL.
const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// maxParallelImages bounds concurrent generateContent calls per request.
const maxParallelImages = 3

// GeminiImageGenerator renders thumbnails with a Gemini image model via REST.
type GeminiImageGenerator struct {
	apiKey     string
	model      string
	baseURL    string
	limiter    *rate.Limiter
	httpClient *http.Client
}

// NewGeminiImageGenerator creates a generator. An empty model uses
// DefaultGeminiImageModel.
func NewGeminiImageGenerator(apiKey, model string, limiter *rate.Limiter) *GeminiImageGenerator {
	return &GeminiImageGenerator{
		apiKey:  apiKey,
		model:   modelOrDefault(model, DefaultGeminiImageModel),
		baseURL: geminiBaseURL,
		limiter: limiter,
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // Image generation can take 10-30s
		},
	}
}

// --- REST API request/response types ---

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *geminiBlobData `json:"inlineData,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string           `json:"responseModalities,omitempty"`
	ImageConfig        *geminiImageConfig `json:"imageConfig,omitempty"`
}

type geminiImageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type geminiBlobData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64 encoded
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
	Error      *geminiError      `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// GenerateImages implements studio.ImageGenerator. Results keep request order.
func (g *GeminiImageGenerator) GenerateImages(ctx context.Context, req studio.ImageRequest) ([]studio.Image, error) {
	prompt, err := imagePrompt(req)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("model", g.model).
		Int("count", req.ImageCount).
		Strs("styles", req.Styles).
		Msg("Generating thumbnails with Gemini image model")

	start := time.Now()
	images := make([]studio.Image, req.ImageCount)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(maxParallelImages)
	for i := range images {
		eg.Go(func() error {
			img, err := g.generateOne(ctx, prompt, req.AspectRatio)
			if err != nil {
				return err
			}
			images[i] = img
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	log.Info().
		Int("images", len(images)).
		Dur("duration", time.Since(start)).
		Msg("Gemini image generation complete")
	return images, nil
}

func (g *GeminiImageGenerator) generateOne(ctx context.Context, prompt, aspectRatio string) (studio.Image, error) {
	if err := waitTurn(ctx, g.limiter); err != nil {
		return studio.Image{}, err
	}

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: prompt}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
			ImageConfig:        &geminiImageConfig{AspectRatio: aspectRatio},
		},
	})
	if err != nil {
		return studio.Image{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(g.baseURL, "/"), g.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return studio.Image{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return studio.Image{}, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return studio.Image{}, fmt.Errorf("failed to read response: %w", err)
	}

	var geminiResp geminiResponse
	parseErr := json.Unmarshal(respBody, &geminiResp)

	if resp.StatusCode != http.StatusOK || geminiResp.Error != nil {
		apiErr := genai.APIError{Code: resp.StatusCode}
		if parseErr == nil && geminiResp.Error != nil {
			apiErr.Message = geminiResp.Error.Message
			apiErr.Status = geminiResp.Error.Status
			if geminiResp.Error.Code != 0 {
				apiErr.Code = geminiResp.Error.Code
			}
		} else {
			apiErr.Message = truncateString(string(respBody), 200)
		}
		return studio.Image{}, classifyError(apiErr, "generate_images")
	}
	if parseErr != nil {
		return studio.Image{}, fmt.Errorf("failed to parse response: %w", parseErr)
	}

	var text strings.Builder
	for _, candidate := range geminiResp.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				decoded, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if err != nil {
					return studio.Image{}, fmt.Errorf("failed to decode image data: %w", err)
				}
				return studio.Image{Data: decoded, MIMEType: part.InlineData.MIMEType}, nil
			}
			text.WriteString(part.Text)
		}
	}

	log.Warn().Str("text", truncateString(text.String(), 200)).Msg("Gemini returned no image")
	return studio.Image{}, errAllFiltered
}
