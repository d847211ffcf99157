// Package jsonutil extracts JSON from model responses that may be fenced in
// markdown or surrounded by prose.
package jsonutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// errNoJSON means the text holds no object or array.
var errNoJSON = errors.New("no JSON content found")

// StripMarkdownFences returns the body of a ``` fenced block, or the trimmed
// text when it is not fenced.
func StripMarkdownFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	_, body, ok := strings.Cut(text, "\n")
	if !ok {
		return text
	}
	if i := strings.LastIndex(body, "```"); i >= 0 {
		body = body[:i]
	}
	return strings.TrimSpace(body)
}

// ExtractJSON returns the span from the first '{' or '[' to the last matching
// closer.
func ExtractJSON(text string) (string, error) {
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return "", errNoJSON
	}
	closer := "}"
	if text[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(text, closer)
	if end < start {
		return "", fmt.Errorf("no closing %s found", closer)
	}
	return text[start : end+1], nil
}

// ParseJSON unfences raw, extracts its JSON and unmarshals it into T.
func ParseJSON[T any](raw string) (T, error) {
	var out T
	body, err := ExtractJSON(StripMarkdownFences(raw))
	if err != nil {
		return out, fmt.Errorf("%w (raw length: %d)", err, len(raw))
	}
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		preview := body
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		return out, fmt.Errorf("invalid JSON: %w (text: %s)", err, preview)
	}
	return out, nil
}

// ParseStringList parses a JSON array of strings, trimming entries and
// dropping blanks. An object with exactly one array field, such as
// {"suggestions": [...]}, is accepted too.
func ParseStringList(raw string) ([]string, error) {
	list, err := ParseJSON[[]string](raw)
	if err != nil {
		obj, objErr := ParseJSON[map[string][]string](raw)
		if objErr != nil || len(obj) != 1 {
			return nil, err
		}
		for _, v := range obj {
			list = v
		}
	}

	out := make([]string, 0, len(list))
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}
