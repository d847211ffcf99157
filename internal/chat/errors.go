package chat

import (
	"fmt"
	"net/http"

	"github.com/fpang/thumbnail-studio/internal/auth"
	"github.com/fpang/thumbnail-studio/internal/studio"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// classifyError turns a Gemini API failure into a display-ready error. Other
// errors are returned unchanged.
func classifyError(err error, op string) error {
	if err == nil {
		return nil
	}
	apiErr, ok := auth.AsAPIError(err)
	if !ok {
		return err
	}

	log.Warn().
		Int("code", apiErr.Code).
		Str("status", apiErr.Status).
		Str("message", truncateString(apiErr.Message, 200)).
		Str("operation", op).
		Msg("Gemini API error")

	return &studio.OpError{
		Kind:       studio.KindAdapter,
		Message:    apiErrorMessage(apiErr),
		StatusCode: apiErr.Code,
		Err:        err,
	}
}

func apiErrorMessage(apiErr genai.APIError) string {
	switch apiErr.Code {
	case http.StatusBadRequest:
		if apiErr.Message != "" {
			return "The AI service rejected the request: " + apiErr.Message
		}
		return "The AI service rejected the request."
	case http.StatusUnauthorized, http.StatusForbidden:
		return "The AI service rejected the API key. Check GEMINI_API_KEY."
	case http.StatusTooManyRequests:
		return "The AI service quota was exceeded. Please wait a moment and try again."
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return "The AI service is temporarily unavailable. Please try again."
	default:
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fmt.Sprintf("The AI service returned status %d.", apiErr.Code)
	}
}

// truncateString truncates a string to maxLen bytes, appending "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
