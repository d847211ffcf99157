package web

import (
	"html/template"
	"strings"

	"github.com/fpang/thumbnail-studio/internal/studio"
	"github.com/fpang/thumbnail-studio/internal/videometa"
)

// stateView is the JSON and template representation of a session state.
type stateView struct {
	SessionID    string          `json:"sessionId"`
	Version      uint64          `json:"version"`
	Form         formView        `json:"form"`
	Styles       []styleView     `json:"styles"`
	LinkAnalysis statusView      `json:"linkAnalysis"`
	Suggestion   statusView      `json:"suggestion"`
	Generation   statusView      `json:"generation"`
	Suggestions  []string        `json:"suggestions"`
	Results      []thumbnailView `json:"results"`
	Busy         bool            `json:"busy"`
	CanExport    bool            `json:"canExport"`
}

type formView struct {
	VideoLink    string `json:"videoLink"`
	VideoID      string `json:"videoId,omitempty"`
	SourceImage  string `json:"sourceImage,omitempty"`
	Description  string `json:"description"`
	ImageCount   int    `json:"imageCount"`
	ActiveStyles string `json:"activeStyles,omitempty"`
}

type styleView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Selected bool   `json:"selected"`
}

type statusView struct {
	Busy      bool   `json:"busy"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"errorKind,omitempty"`
}

type thumbnailView struct {
	ID         string `json:"id"`
	Caption    string `json:"caption"`
	MIMEType   string `json:"mimeType"`
	URL        string `json:"url"`
	PreviewURL string `json:"previewUrl"`
}

func newStateView(sessionID string, st studio.State, version uint64, canExport bool) stateView {
	v := stateView{
		SessionID:    sessionID,
		Version:      version,
		LinkAnalysis: newStatusView(st.LinkAnalysis),
		Suggestion:   newStatusView(st.Suggestion),
		Generation:   newStatusView(st.Generation),
		Suggestions:  append([]string{}, st.Suggestions...),
		Results:      make([]thumbnailView, 0, len(st.Results)),
		Busy:         st.AnyBusy(),
		CanExport:    canExport && len(st.Results) > 0,
	}

	v.Form = formView{
		VideoLink:    st.Form.VideoLink,
		Description:  st.Form.Description,
		ImageCount:   st.Form.ImageCount,
		ActiveStyles: strings.Join(st.ActiveStyleNames(), ", "),
	}
	if id := videometa.ExtractVideoID(st.Form.VideoLink); id != "" {
		v.Form.VideoID = id
		v.Form.SourceImage = videometa.ThumbnailURL(id)
	}

	for _, style := range studio.Styles() {
		v.Styles = append(v.Styles, styleView{ID: style.ID, Name: style.DisplayName, Selected: st.HasStyle(style.ID)})
	}
	for _, t := range st.Results {
		v.Results = append(v.Results, thumbnailView{
			ID:         t.ID,
			Caption:    t.Caption,
			MIMEType:   t.Image.MIMEType,
			URL:        "/thumbnails/" + t.ID,
			PreviewURL: "/thumbnails/" + t.ID + "/preview",
		})
	}
	return v
}

func newStatusView(s studio.OperationStatus) statusView {
	v := statusView{Busy: s.Busy, Error: s.ErrorMessage()}
	if s.Err != nil {
		v.ErrorKind = s.Err.Kind.String()
	}
	return v
}

// imageCounts are the choices offered by the count selector.
var imageCounts = func() []int {
	out := make([]int, studio.MaxImageCount)
	for i := range out {
		out[i] = i + 1
	}
	return out
}()

var templateFuncs = template.FuncMap{
	"imageCounts": func() []int { return imageCounts },
}
