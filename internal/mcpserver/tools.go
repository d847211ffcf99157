// Package mcpserver exposes one studio session as MCP tools.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fpang/thumbnail-studio/internal/studio"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// AnalyzeInput is the input of analyze_video_link.
type AnalyzeInput struct {
	VideoLink string `json:"video_link" jsonschema:"YouTube video URL (watch, youtu.be, shorts or embed link)"`
}

// SuggestInput is the input of suggest_prompts.
type SuggestInput struct {
	Description string `json:"description,omitempty" jsonschema:"Description to vary; defaults to the current one"`
}

// SelectInput is the input of select_suggestion.
type SelectInput struct {
	Index int `json:"index" jsonschema:"Zero-based index into the current suggestions"`
}

// GenerateInput is the input of generate_thumbnails.
type GenerateInput struct {
	Description string   `json:"description,omitempty" jsonschema:"Thumbnail description; defaults to the current one"`
	ImageCount  int      `json:"image_count,omitempty" jsonschema:"Number of thumbnails, 1 to 5; defaults to the current count"`
	Styles      []string `json:"styles,omitempty" jsonschema:"Style ids to apply, replacing the current selection: cinematic, illustrative, futuristic, minimalist, photorealistic, vintage, 3d-render, cartoonish"`
}

// GetStateInput is the empty input of get_state.
type GetStateInput struct{}

// ThumbnailOutput describes one generated image.
type ThumbnailOutput struct {
	ID       string `json:"id"`
	Caption  string `json:"caption"`
	MIMEType string `json:"mime_type"`
}

// StateOutput is the session state reported by every tool.
type StateOutput struct {
	VideoLink   string            `json:"video_link"`
	Description string            `json:"description"`
	ImageCount  int               `json:"image_count"`
	Styles      []string          `json:"styles"`
	Suggestions []string          `json:"suggestions"`
	Thumbnails  []ThumbnailOutput `json:"thumbnails"`
	Errors      map[string]string `json:"errors,omitempty"`
}

func newStateOutput(st studio.State) *StateOutput {
	out := &StateOutput{
		VideoLink:   st.Form.VideoLink,
		Description: st.Form.Description,
		ImageCount:  st.Form.ImageCount,
		Styles:      []string{},
		Suggestions: append([]string{}, st.Suggestions...),
		Thumbnails:  []ThumbnailOutput{},
	}
	for _, s := range studio.Styles() {
		if st.HasStyle(s.ID) {
			out.Styles = append(out.Styles, s.ID)
		}
	}
	for _, t := range st.Results {
		out.Thumbnails = append(out.Thumbnails, ThumbnailOutput{ID: t.ID, Caption: t.Caption, MIMEType: t.Image.MIMEType})
	}
	for _, op := range []studio.Operation{studio.OpLinkAnalysis, studio.OpSuggestion, studio.OpGeneration} {
		if msg := st.Status(op).ErrorMessage(); msg != "" {
			if out.Errors == nil {
				out.Errors = make(map[string]string)
			}
			out.Errors[op.String()] = msg
		}
	}
	return out
}

// RegisterTools adds the studio tools for sess to server.
func RegisterTools(server *mcp.Server, sess *studio.Session) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_video_link",
		Description: "Look up a YouTube video and write a thumbnail description from its title and channel. Replaces the current description.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input AnalyzeInput) (*mcp.CallToolResult, *StateOutput, error) {
		sess.SetVideoLink(input.VideoLink)
		if err := sess.AnalyzeLink(ctx).Wait(ctx); err != nil {
			return nil, nil, err
		}
		st, _ := sess.Snapshot()
		return nil, newStateOutput(st), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "suggest_prompts",
		Description: "Propose alternative thumbnail descriptions. Pick one with select_suggestion.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input SuggestInput) (*mcp.CallToolResult, *StateOutput, error) {
		if input.Description != "" {
			sess.SetDescription(input.Description)
		}
		if err := sess.SuggestPrompts(ctx).Wait(ctx); err != nil {
			return nil, nil, err
		}
		st, _ := sess.Snapshot()
		return nil, newStateOutput(st), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "select_suggestion",
		Description: "Use one of the current suggestions as the description.",
	}, func(_ context.Context, _ *mcp.CallToolRequest, input SelectInput) (*mcp.CallToolResult, *StateOutput, error) {
		if err := sess.SelectSuggestion(input.Index); err != nil {
			return nil, nil, err
		}
		st, _ := sess.Snapshot()
		return nil, newStateOutput(st), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_thumbnails",
		Description: "Generate 16:9 thumbnails for the description with the selected styles. Returns the images.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input GenerateInput) (*mcp.CallToolResult, *StateOutput, error) {
		if input.Description != "" {
			sess.SetDescription(input.Description)
		}
		if input.ImageCount != 0 {
			sess.SetImageCount(input.ImageCount)
		}
		if input.Styles != nil {
			if err := selectStyles(sess, input.Styles); err != nil {
				return nil, nil, err
			}
		}
		if err := sess.Generate(ctx).Wait(ctx); err != nil {
			return nil, nil, err
		}

		st, _ := sess.Snapshot()
		result := &mcp.CallToolResult{}
		for _, t := range st.Results {
			result.Content = append(result.Content,
				&mcp.TextContent{Text: t.Caption},
				&mcp.ImageContent{Data: t.Image.Data, MIMEType: t.Image.MIMEType},
			)
		}
		return result, newStateOutput(st), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_state",
		Description: "Report the current form, suggestions, thumbnails and errors.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(_ context.Context, _ *mcp.CallToolRequest, _ GetStateInput) (*mcp.CallToolResult, *StateOutput, error) {
		st, _ := sess.Snapshot()
		return nil, newStateOutput(st), nil
	})
}

// errUnknownStyle reports a style id outside the catalog.
var errUnknownStyle = errors.New("unknown style")

// selectStyles makes the selection exactly ids by toggling the differences.
func selectStyles(sess *studio.Session, ids []string) error {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if _, ok := studio.LookupStyle(id); !ok {
			return fmt.Errorf("%w: %q", errUnknownStyle, id)
		}
		want[id] = true
	}
	st, _ := sess.Snapshot()
	for _, s := range studio.Styles() {
		if st.HasStyle(s.ID) != want[s.ID] {
			sess.ToggleStyle(s.ID)
		}
	}
	return nil
}
