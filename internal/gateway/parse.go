package gateway

import (
	"encoding/json"
	"errors"
	"strings"
)

func parseModelPayload[T any](raw string) (T, error) {
	var zero T
	cleaned := extractJSONFragment(raw)
	if cleaned == "" {
		return zero, errors.New("empty payload")
	}
	var decoded T
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return zero, err
	}
	return decoded, nil
}

// extractJSONFragment strips code fences and any prose around the outermost
// JSON value.
func extractJSONFragment(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = trimCodeFence(text)
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "]}")
	if start >= 0 && end >= start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

// parseScript reads a segment list. Anything that is not a list of segment
// objects yields an empty script.
func parseScript(raw string) []ScriptSegment {
	segments, err := parseModelPayload[[]ScriptSegment](raw)
	if err != nil {
		wrapped, werr := parseModelPayload[struct {
			Segments []ScriptSegment `json:"segments"`
		}](raw)
		if werr != nil {
			return []ScriptSegment{}
		}
		segments = wrapped.Segments
	}
	out := make([]ScriptSegment, 0, len(segments))
	for _, s := range segments {
		s.Voiceover = strings.TrimSpace(s.Voiceover)
		s.VisualPrompt = strings.TrimSpace(s.VisualPrompt)
		if s.Voiceover == "" && s.VisualPrompt == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

// parsePromptList reads a JSON array of strings, dropping blank entries.
func parsePromptList(raw string) []string {
	items, err := parseModelPayload[[]string](raw)
	if err != nil {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
