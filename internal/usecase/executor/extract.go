package executor

import (
	"encoding/json"
	"strings"

	"kosher/internal/domain/entity"
)

const (
	fence        = "```"
	langTagChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_-+"
)

// ExtractToolCall recovers a tool call that the model wrote as plain JSON
// text instead of using the structured channel. The second result is false
// for ordinary text, which is the common case and not an error.
func ExtractToolCall(text string) (entity.ToolCall, bool) {
	if text == "" {
		return entity.ToolCall{}, false
	}

	body := stripFence(strings.TrimSpace(text))

	var payload map[string]any
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return entity.ToolCall{}, false
	}

	name, ok := payload["name"].(string)
	if !ok {
		return entity.ToolCall{}, false
	}

	args, ok := payload["arguments"].(map[string]any)
	if !ok {
		args, ok = payload["parameters"].(map[string]any)
	}
	if !ok {
		return entity.ToolCall{}, false
	}

	return entity.ToolCall{Name: name, Arguments: args}, true
}

// stripFence removes an opening fence (with its optional language tag)
// and a closing fence. The payload may start on the tag's line.
func stripFence(s string) string {
	if !strings.HasPrefix(s, fence) {
		return s
	}
	s = strings.TrimPrefix(s, fence)
	s = strings.TrimLeft(s, langTagChars)
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, fence)
	return strings.TrimSpace(s)
}
