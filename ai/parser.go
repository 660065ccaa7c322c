package ai

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"worksense/backend/models"
)

// Top-level keys the parser understands.
const (
	KeyEpics   = "epics"
	KeyStories = "stories"
)

// ParseSuggestions extracts the JSON object from raw generator output
// (optionally wrapped in a triple-backtick code fence), reads the given
// top-level array key and normalizes every element into an AiSuggestion.
// Malformed JSON or a missing key is an error; there is no partial-result
// recovery.
func ParseSuggestions(raw, key string) ([]models.AiSuggestion, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(StripFences(raw)), &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}

	arr, ok := envelope[key]
	if !ok {
		return nil, fmt.Errorf("%w: missing top-level %q key", ErrBadResponse, key)
	}

	var elements []struct {
		Name        any     `json:"name"`
		Description *string `json:"description"`
		Priority    string  `json:"priority"`
	}
	if err := json.Unmarshal(arr, &elements); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}

	suggestions := make([]models.AiSuggestion, 0, len(elements))
	for _, e := range elements {
		s := models.AiSuggestion{
			Name:     strings.TrimSpace(coerceString(e.Name)),
			Priority: NormalizePriority(e.Priority),
		}
		if e.Description != nil {
			trimmed := strings.TrimSpace(*e.Description)
			s.Description = &trimmed
		}
		suggestions = append(suggestions, s)
	}

	return suggestions, nil
}

// StripFences removes an optional triple-backtick wrapper (with or without a
// language tag) around the payload.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// NormalizePriority lower-cases the input and coerces it to the allowed
// enumeration, defaulting to "medium" for anything unrecognized or missing.
func NormalizePriority(raw string) models.Priority {
	p := models.Priority(strings.ToLower(strings.TrimSpace(raw)))
	if models.ValidPriority(p) {
		return p
	}
	return models.PriorityMedium
}

// FilterExisting drops suggestions whose name exactly matches a title
// already persisted in the target scope, along with suggestions whose name
// is empty after trimming.
func FilterExisting(suggestions []models.AiSuggestion, existingTitles []string) []models.AiSuggestion {
	existing := make(map[string]struct{}, len(existingTitles))
	for _, t := range existingTitles {
		existing[t] = struct{}{}
	}

	filtered := make([]models.AiSuggestion, 0, len(suggestions))
	for _, s := range suggestions {
		if s.Name == "" {
			continue
		}
		if _, dup := existing[s.Name]; dup {
			continue
		}
		filtered = append(filtered, s)
	}
	return filtered
}

func coerceString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
