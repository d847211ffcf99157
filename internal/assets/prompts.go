// Package assets provides embedded prompt templates.
//
// Prompt templates are stored as text files under prompts/ and embedded at
// compile time.
package assets

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"
)

// --- Static prompts ---

// DescriptionSystemPrompt instructs the model that turns video metadata into
// a thumbnail description.
//
//go:embed prompts/description-system.txt
var DescriptionSystemPrompt string

// SuggestionsSystemPrompt instructs the model that brainstorms alternative
// descriptions.
//
//go:embed prompts/suggestions-system.txt
var SuggestionsSystemPrompt string

// --- Dynamic prompt templates ---

//go:embed prompts/video-description.txt
var videoDescriptionTemplate string

//go:embed prompts/suggestions.txt
var suggestionsTemplate string

//go:embed prompts/thumbnail-image.txt
var thumbnailImageTemplate string

var funcs = template.FuncMap{"join": strings.Join}

// Pre-parsed templates. template.Must panics on malformed templates at
// program startup rather than at call time.
var (
	videoDescriptionTmpl = template.Must(template.New("video-description").Parse(videoDescriptionTemplate))
	suggestionsTmpl      = template.Must(template.New("suggestions").Parse(suggestionsTemplate))
	thumbnailImageTmpl   = template.Must(template.New("thumbnail-image").Funcs(funcs).Parse(thumbnailImageTemplate))
)

// VideoDescriptionData holds the fields for the video-description template.
type VideoDescriptionData struct {
	Title      string
	AuthorName string
}

// SuggestionsData holds the fields for the suggestions template.
type SuggestionsData struct {
	Description string
	Count       int
}

// ThumbnailImageData holds the fields for the image prompt template.
type ThumbnailImageData struct {
	Description string
	AspectRatio string
	Styles      []string
}

// RenderVideoDescriptionPrompt renders the user prompt for video metadata.
func RenderVideoDescriptionPrompt(data VideoDescriptionData) (string, error) {
	return render(videoDescriptionTmpl, data)
}

// RenderSuggestionsPrompt renders the user prompt for prompt suggestions.
func RenderSuggestionsPrompt(data SuggestionsData) (string, error) {
	return render(suggestionsTmpl, data)
}

// RenderThumbnailImagePrompt renders the prompt sent to the image model.
func RenderThumbnailImagePrompt(data ThumbnailImageData) (string, error) {
	return render(thumbnailImageTmpl, data)
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
