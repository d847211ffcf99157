package studio

import "context"

// AspectRatio is the fixed output shape of every generated thumbnail.
const AspectRatio = "16:9"

// MaxImageCount bounds how many thumbnails one generation may request.
const MaxImageCount = 5

// VideoInfo is the metadata extracted from a video link.
type VideoInfo struct {
	Title      string `json:"title"`
	AuthorName string `json:"authorName,omitempty"`
}

// VideoLookup resolves a user-supplied video link to its metadata. Failures
// should be *OpError values built with StatusError or NewMissingTitleError.
type VideoLookup interface {
	LookupVideo(ctx context.Context, link string) (VideoInfo, error)
}

// DescriptionWriter turns video metadata into a thumbnail description.
type DescriptionWriter interface {
	DescribeVideo(ctx context.Context, info VideoInfo) (string, error)
}

// PromptSuggester proposes creative variations of a description.
type PromptSuggester interface {
	SuggestPrompts(ctx context.Context, description string) ([]string, error)
}

// ImageRequest is the normalized input to an image generator.
type ImageRequest struct {
	Description string
	ImageCount  int
	AspectRatio string
	Styles      []string
}

// Image is one generated image payload.
type Image struct {
	Data     []byte
	MIMEType string
}

// ImageGenerator renders thumbnails. A successful call returns exactly
// req.ImageCount images.
type ImageGenerator interface {
	GenerateImages(ctx context.Context, req ImageRequest) ([]Image, error)
}

// Adapters bundles the external collaborators a Session calls.
type Adapters struct {
	Lookup    VideoLookup
	Writer    DescriptionWriter
	Suggester PromptSuggester
	Images    ImageGenerator
}
