package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind is the closed set of failures an operation can surface.
type ErrorKind int

const (
	// KindValidation is an empty or out-of-range input caught before any network call.
	KindValidation ErrorKind = iota
	// KindNotFound means the video lookup reported a missing or unpublished resource.
	KindNotFound
	// KindAccessDenied means the video is private or not embeddable.
	KindAccessDenied
	// KindUpstream is any other non-success lookup status; StatusCode carries it.
	KindUpstream
	// KindMissingTitle means the lookup succeeded without a usable title.
	KindMissingTitle
	// KindAdapter wraps any other adapter failure.
	KindAdapter
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindAccessDenied:
		return "access_denied"
	case KindUpstream:
		return "upstream"
	case KindMissingTitle:
		return "missing_title"
	case KindAdapter:
		return "adapter"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// OpError is the display-ready failure stored in an operation's status.
type OpError struct {
	Kind       ErrorKind
	Message    string
	StatusCode int
	Err        error
}

func (e *OpError) Error() string {
	return e.Message
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// User-facing messages.
const (
	msgLinkRequired        = "Please enter a YouTube video link."
	msgDescriptionForIdeas = "Please enter a description first, or analyze a video link to generate one."
	msgDescriptionRequired = "Please provide a description for the thumbnail (or analyze a YouTube link)."
	msgImageCountRange     = "Number of thumbnails must be between 1 and 5."
	msgMissingTitle        = "Could not extract video title."
	msgCancelled           = "The request was cancelled."
	msgTimedOut            = "The request timed out. Please try again."

	fallbackLinkAnalysis = "An unknown error occurred during link analysis."
	fallbackSuggestion   = "An unknown error occurred while suggesting prompts."
	fallbackGeneration   = "An unknown error occurred while generating thumbnails."
)

// NewValidationError reports an input problem detected before any network call.
func NewValidationError(message string) *OpError {
	return &OpError{Kind: KindValidation, Message: message}
}

// NewMissingTitleError reports a lookup response that carried no title.
func NewMissingTitleError() *OpError {
	return &OpError{Kind: KindMissingTitle, Message: msgMissingTitle}
}

// StatusError maps a non-success metadata lookup status onto the taxonomy.
func StatusError(code int, cause error) *OpError {
	switch code {
	case 404:
		return &OpError{
			Kind:       KindNotFound,
			Message:    fmt.Sprintf("Could not fetch video details. Is the link correct and public? (Status: %d)", code),
			StatusCode: code,
			Err:        cause,
		}
	case 401, 403:
		return &OpError{
			Kind:       KindAccessDenied,
			Message:    fmt.Sprintf("Video is private or embedding is restricted. (Status: %d)", code),
			StatusCode: code,
			Err:        cause,
		}
	default:
		return &OpError{
			Kind:       KindUpstream,
			Message:    fmt.Sprintf("Failed to fetch video details. Status: %d", code),
			StatusCode: code,
			Err:        cause,
		}
	}
}

// AdapterError converts any adapter failure into an OpError. Errors already in
// the taxonomy pass through; anything else keeps its message, or falls back when
// it has none.
func AdapterError(err error, fallback string) *OpError {
	if err == nil {
		return nil
	}

	var opErr *OpError
	if errors.As(err, &opErr) {
		switch opErr.Kind {
		case KindValidation, KindNotFound, KindAccessDenied, KindUpstream, KindMissingTitle, KindAdapter:
			if strings.TrimSpace(opErr.Message) == "" {
				out := *opErr
				out.Message = fallback
				return &out
			}
			return opErr
		default:
			return &OpError{Kind: KindAdapter, Message: fallback, Err: err}
		}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &OpError{Kind: KindAdapter, Message: msgTimedOut, Err: err}
	case errors.Is(err, context.Canceled):
		return &OpError{Kind: KindAdapter, Message: msgCancelled, Err: err}
	}

	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		msg = fallback
	}
	return &OpError{Kind: KindAdapter, Message: msg, Err: err}
}
