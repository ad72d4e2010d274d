package agents

import (
	"encoding/json"
	"errors"
	"strings"
)

var errNoJSON = errors.New("no JSON object in completion")

// stripFences removes a surrounding ```json ... ``` or ``` ... ``` block.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	if nl := strings.IndexByte(content, '\n'); nl >= 0 {
		content = content[nl+1:]
	} else {
		content = strings.TrimPrefix(strings.TrimPrefix(content, "```json"), "```")
	}
	content = strings.TrimSpace(content)
	return strings.TrimSpace(strings.TrimSuffix(content, "```"))
}

// decodeCompletion parses model output into v: fenced or bare JSON first, then the
// outermost {...} span.
func decodeCompletion(content string, v any) error {
	content = stripFences(content)
	if err := json.Unmarshal([]byte(content), v); err == nil {
		return nil
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return errNoJSON
	}
	return json.Unmarshal([]byte(content[start:end+1]), v)
}

func toJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
