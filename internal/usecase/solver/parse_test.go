package solver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  {\"a\":1}  ", `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\nline1\nline2\n```", "line1\nline2"},
		{"single line fence", "```", ""},
		{"two line fence", "```go\n```", ""},
		{"fence after whitespace", "\n\n```go\npackage main\n```\n", "package main"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFences(tt.in))
		})
	}
}

func TestParseJSONResponse_FencedMatchesUnfenced(t *testing.T) {
	raw := `{"submit_url": "/submit", "question": "What is 2+2?"}`

	plain, ok := ParseJSONResponse(raw)
	require.True(t, ok)
	fenced, ok := ParseJSONResponse("```json\n" + raw + "\n```")
	require.True(t, ok)

	assert.Equal(t, plain, fenced)
	assert.Equal(t, "/submit", plain["submit_url"])
}

func TestParseJSONResponse_ArrayShapes(t *testing.T) {
	obj, ok := ParseJSONResponse(`[{"submit_url": "https://x/y"}, {"submit_url": "ignored"}]`)
	require.True(t, ok)
	assert.Equal(t, "https://x/y", obj["submit_url"])

	empty, ok := ParseJSONResponse(`[]`)
	require.True(t, ok)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, ok = ParseJSONResponse(`["not an object"]`)
	assert.False(t, ok)
}

func TestParseJSONResponse_Invalid(t *testing.T) {
	for _, in := range []string{"", "not json", "{broken", "null", "42", `"str"`} {
		obj, ok := ParseJSONResponse(in)
		assert.False(t, ok, in)
		assert.Nil(t, obj, in)
	}
}

func TestStringField(t *testing.T) {
	obj := map[string]any{"s": "text", "n": 3.0, "m": map[string]any{"k": "v"}}

	assert.Equal(t, "text", stringField(obj, "s"))
	assert.Equal(t, "3", stringField(obj, "n"))
	assert.Equal(t, `{"k":"v"}`, stringField(obj, "m"))
	assert.Equal(t, "", stringField(obj, "missing"))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abcdef", 3))
	assert.Equal(t, "abc", truncateRunes("abc", 3))
	assert.Equal(t, "абв", truncateRunes("абвгд", 3))
	assert.Equal(t, "short", truncateRunes("short", 100))

	long := strings.Repeat("я", 25000)
	assert.Equal(t, 20000, len([]rune(truncateRunes(long, 20000))))
}
