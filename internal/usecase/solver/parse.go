package solver

import (
	"encoding/json"
	"strings"
)

// StripFences removes a surrounding markdown code fence. The first and
// last lines are dropped whenever the trimmed text opens with ```, which is
// how models wrap both JSON and source code.
func StripFences(text string) string {
	clean := strings.TrimSpace(text)
	if !strings.HasPrefix(clean, "```") {
		return clean
	}
	lines := strings.Split(clean, "\n")
	if len(lines) < 2 {
		return ""
	}
	return strings.Join(lines[1:len(lines)-1], "\n")
}

// ParseJSONResponse decodes a model reply into an object. A JSON array
// yields its first element, an empty array yields an empty object. The
// second result is false when nothing usable could be decoded.
func ParseJSONResponse(text string) (map[string]any, bool) {
	var data any
	if err := json.Unmarshal([]byte(StripFences(text)), &data); err != nil {
		return nil, false
	}

	switch v := data.(type) {
	case map[string]any:
		return v, true
	case []any:
		if len(v) == 0 {
			return map[string]any{}, true
		}
		obj, ok := v[0].(map[string]any)
		return obj, ok
	default:
		return nil, false
	}
}

func stringField(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
