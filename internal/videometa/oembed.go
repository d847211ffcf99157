package videometa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fpang/thumbnail-studio/internal/studio"
	"github.com/rs/zerolog/log"
)

// DefaultOEmbedEndpoint is YouTube's public oEmbed endpoint.
const DefaultOEmbedEndpoint = "https://www.youtube.com/oembed"

// OEmbedClient looks up video metadata through an oEmbed endpoint. It needs no
// credentials and only sees public, embeddable videos.
type OEmbedClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewOEmbedClient creates a client for endpoint. An empty endpoint uses
// DefaultOEmbedEndpoint.
func NewOEmbedClient(endpoint string) *OEmbedClient {
	if endpoint == "" {
		endpoint = DefaultOEmbedEndpoint
	}
	return &OEmbedClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type oembedResponse struct {
	Title      string `json:"title"`
	AuthorName string `json:"author_name"`
}

// LookupVideo implements studio.VideoLookup.
func (c *OEmbedClient) LookupVideo(ctx context.Context, link string) (studio.VideoInfo, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return studio.VideoInfo{}, fmt.Errorf("invalid oEmbed endpoint: %w", err)
	}
	q := u.Query()
	q.Set("url", strings.TrimSpace(link))
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return studio.VideoInfo{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return studio.VideoInfo{}, fmt.Errorf("Could not reach the video service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		log.Warn().
			Int("status", resp.StatusCode).
			Str("link", link).
			Msg("oEmbed lookup failed")
		return studio.VideoInfo{}, studio.StatusError(resp.StatusCode, nil)
	}

	var body oembedResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return studio.VideoInfo{}, fmt.Errorf("Could not read video details: %w", err)
	}
	if strings.TrimSpace(body.Title) == "" {
		return studio.VideoInfo{}, studio.NewMissingTitleError()
	}

	log.Debug().
		Str("title", body.Title).
		Dur("duration", time.Since(start)).
		Msg("oEmbed lookup complete")
	return studio.VideoInfo{Title: body.Title, AuthorName: body.AuthorName}, nil
}
