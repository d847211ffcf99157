package studio

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Operation identifies one of the three asynchronous workflows.
type Operation int

const (
	OpLinkAnalysis Operation = iota
	OpSuggestion
	OpGeneration

	numOperations
)

func (o Operation) String() string {
	switch o {
	case OpLinkAnalysis:
		return "link_analysis"
	case OpSuggestion:
		return "prompt_suggestion"
	case OpGeneration:
		return "generation"
	default:
		return fmt.Sprintf("operation(%d)", int(o))
	}
}

// OperationStatus is the busy/error pair owned by one operation. At most one
// of Busy and Err is set.
type OperationStatus struct {
	Busy bool
	Err  *OpError
}

// ErrorMessage returns the display message, or "" when there is no error.
func (s OperationStatus) ErrorMessage() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Message
}

// FormState holds the user-editable fields.
type FormState struct {
	VideoLink      string
	Description    string
	SelectedStyles map[string]struct{}
	ImageCount     int
}

// Thumbnail is one generated result.
type Thumbnail struct {
	ID      string
	Image   Image
	Caption string
}

// State is the whole view state of one session.
//
// Field ownership: link analysis owns LinkAnalysis, suggestion owns Suggestion
// and Suggestions, generation owns Generation and Results. Form.Description is
// shared; the last write wins.
type State struct {
	Form         FormState
	LinkAnalysis OperationStatus
	Suggestion   OperationStatus
	Generation   OperationStatus
	Suggestions  []string
	Results      []Thumbnail
}

// NewState returns the state of a freshly loaded form.
func NewState() State {
	return State{
		Form: FormState{
			SelectedStyles: make(map[string]struct{}),
			ImageCount:     1,
		},
	}
}

// Clone returns a copy that shares no mutable containers with s. Image bytes
// are never mutated after generation and are shared.
func (s *State) Clone() State {
	out := *s
	out.Form.SelectedStyles = make(map[string]struct{}, len(s.Form.SelectedStyles))
	for id := range s.Form.SelectedStyles {
		out.Form.SelectedStyles[id] = struct{}{}
	}
	if s.Suggestions != nil {
		out.Suggestions = append([]string(nil), s.Suggestions...)
	}
	if s.Results != nil {
		out.Results = append([]Thumbnail(nil), s.Results...)
	}
	return out
}

// Status returns the status of op.
func (s *State) Status(op Operation) OperationStatus {
	return *s.status(op)
}

// AnyBusy reports whether any operation is in flight.
func (s *State) AnyBusy() bool {
	return s.LinkAnalysis.Busy || s.Suggestion.Busy || s.Generation.Busy
}

// HasStyle reports whether the style id is selected.
func (s *State) HasStyle(id string) bool {
	_, ok := s.Form.SelectedStyles[id]
	return ok
}

// ActiveStyleNames returns the selected styles' display names in catalog order.
func (s *State) ActiveStyleNames() []string {
	return StyleNames(s.Form.SelectedStyles)
}

// Thumbnail returns the result with the given id.
func (s *State) Thumbnail(id string) (Thumbnail, bool) {
	for _, t := range s.Results {
		if t.ID == id {
			return t, true
		}
	}
	return Thumbnail{}, false
}

func (s *State) status(op Operation) *OperationStatus {
	switch op {
	case OpLinkAnalysis:
		return &s.LinkAnalysis
	case OpSuggestion:
		return &s.Suggestion
	case OpGeneration:
		return &s.Generation
	default:
		panic(fmt.Sprintf("studio: unknown operation %d", int(op)))
	}
}

// --- Transitions. Each returns whether the state changed. ---

func (s *State) setVideoLink(v string) bool {
	if s.Form.VideoLink == v {
		return false
	}
	s.Form.VideoLink = v
	s.LinkAnalysis.Err = nil
	return true
}

func (s *State) setDescription(v string) bool {
	if s.Form.Description == v {
		return false
	}
	s.Form.Description = v
	s.Generation.Err = nil
	s.Suggestion.Err = nil
	s.Suggestions = nil
	return true
}

func (s *State) setImageCount(n int) bool {
	if s.Form.ImageCount == n {
		return false
	}
	s.Form.ImageCount = n
	return true
}

func (s *State) toggleStyle(id string) bool {
	if _, known := LookupStyle(id); !known {
		return false
	}
	if _, ok := s.Form.SelectedStyles[id]; ok {
		delete(s.Form.SelectedStyles, id)
	} else {
		s.Form.SelectedStyles[id] = struct{}{}
	}
	return true
}

func (s *State) selectSuggestion(i int) bool {
	if i < 0 || i >= len(s.Suggestions) {
		return false
	}
	s.Form.Description = s.Suggestions[i]
	s.Suggestions = nil
	return true
}

func (s *State) reject(op Operation, err *OpError) {
	st := s.status(op)
	st.Busy = false
	st.Err = err
}

// describeFromVideo stores a generated description. Like setDescription it
// drops the suggestions of the old text, and any suggestion call still running
// for it.
func (s *State) describeFromVideo(desc string) {
	s.Form.Description = desc
	s.Generation.Err = nil
	s.Suggestion = OperationStatus{}
	s.Suggestions = nil
}

func (s *State) beginLinkAnalysis() {
	s.LinkAnalysis = OperationStatus{Busy: true}
	s.Suggestions = nil
	s.Suggestion.Err = nil
	s.Form.Description = ""
}

func (s *State) beginSuggestion() {
	s.Suggestion = OperationStatus{Busy: true}
	s.Suggestions = nil
}

func (s *State) beginGeneration() {
	s.Generation = OperationStatus{Busy: true}
	s.LinkAnalysis.Err = nil
	s.Suggestion.Err = nil
	s.Results = nil
}

// settle ends op: busy clears, and either the error is recorded or apply runs.
func (s *State) settle(op Operation, err *OpError, apply func(*State)) {
	st := s.status(op)
	st.Busy = false
	if err != nil {
		st.Err = err
		return
	}
	st.Err = nil
	if apply != nil {
		apply(s)
	}
}

// captionSnippetRunes is how much of the description a caption quotes.
const captionSnippetRunes = 30

// buildCaption describes the index-th thumbnail of a generation.
func buildCaption(index int, description string, styles []string) string {
	caption := fmt.Sprintf("Generated Thumbnail %d for: %s", index+1, truncateRunes(strings.TrimSpace(description), captionSnippetRunes))
	if len(styles) > 0 {
		caption += " " + strings.Join(styles, ", ")
	}
	return caption
}

// truncateRunes cuts s to at most n runes, appending "..." when it cuts.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
