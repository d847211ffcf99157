package videometa

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/fpang/thumbnail-studio/internal/studio"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// DataAPIClient looks up video metadata through the YouTube Data API v3.
type DataAPIClient struct {
	service *youtube.Service
}

// NewDataAPIClient creates a client authenticated with apiKey. Extra options
// are passed to the service constructor.
func NewDataAPIClient(ctx context.Context, apiKey string, opts ...option.ClientOption) (*DataAPIClient, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(strings.TrimSpace(apiKey))}, opts...)
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &DataAPIClient{service: service}, nil
}

// LookupVideo implements studio.VideoLookup.
func (c *DataAPIClient) LookupVideo(ctx context.Context, link string) (studio.VideoInfo, error) {
	id := ExtractVideoID(link)
	if id == "" {
		log.Debug().Str("link", link).Msg("Unable to extract video ID from link")
		return studio.VideoInfo{}, studio.StatusError(http.StatusNotFound, nil)
	}

	resp, err := c.service.Videos.List([]string{"snippet", "status"}).Id(id).Context(ctx).Do()
	if err != nil {
		var gErr *googleapi.Error
		if errors.As(err, &gErr) {
			log.Warn().Int("code", gErr.Code).Str("video_id", id).Msg("YouTube Data API error")
			return studio.VideoInfo{}, studio.StatusError(gErr.Code, err)
		}
		return studio.VideoInfo{}, fmt.Errorf("Could not reach the video service: %w", err)
	}

	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return studio.VideoInfo{}, studio.StatusError(http.StatusNotFound, nil)
	}
	video := resp.Items[0]
	if video.Status != nil && video.Status.PrivacyStatus == "private" {
		return studio.VideoInfo{}, studio.StatusError(http.StatusForbidden, nil)
	}
	if strings.TrimSpace(video.Snippet.Title) == "" {
		return studio.VideoInfo{}, studio.NewMissingTitleError()
	}

	return studio.VideoInfo{
		Title:      video.Snippet.Title,
		AuthorName: video.Snippet.ChannelTitle,
	}, nil
}
