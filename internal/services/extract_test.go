package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidateWithPart(text string) any {
	return map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"parts": []any{map[string]any{"text": text}},
				},
			},
		},
	}
}

func TestUnwrapFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"json tagged", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"upper case tag", "```JSON\n{\"a\":1}\n```", `{"a":1}`},
		{"untagged", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around fence", "Here you go:\n```json\n{\"a\":1}\n```\nThanks", `{"a":1}`},
		{"no fence", `{"a":1}`, `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UnwrapFence(tt.in))
		})
	}
}

func TestFencedJSONParsesToInnerObject(t *testing.T) {
	parsed, err := ParseModelJSON(NormalizeModelText("```json\n{\"a\":1}\n```"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(1)}, parsed)
}

func TestStripQuotes(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripQuotes(`'{"a":1}'`))
	assert.Equal(t, "x", StripQuotes(`" x "`))
	assert.Equal(t, `"a'`, StripQuotes(`"a'`))
	assert.Equal(t, `"`, StripQuotes(`"`))
}

func TestParseModelJSONFallsBackToBraceSpan(t *testing.T) {
	parsed, err := ParseModelJSON(`Sure! {"summary": "good fit"} hope that helps`)
	require.NoError(t, err)
	assert.Equal(t, "good fit", parsed["summary"])

	_, err = ParseModelJSON("no json at all")
	assert.Error(t, err)

	_, err = ParseModelJSON("{broken")
	assert.Error(t, err)

	_, err = ParseModelJSON("null")
	assert.Error(t, err)
}

func TestBraceSpanRunsFirstToLast(t *testing.T) {
	span, ok := BraceSpan(`x {"a":{"b":1}} y }`)
	require.True(t, ok)
	assert.Equal(t, `{"a":{"b":1}} y }`, span)

	_, ok = BraceSpan("none")
	assert.False(t, ok)
}

func TestCandidateText(t *testing.T) {
	text, ok := CandidateText(candidateWithPart("hello"))
	require.True(t, ok)
	assert.Equal(t, "hello", text)

	text, ok = CandidateText(map[string]any{
		"candidates": []any{map[string]any{"output": "from output"}},
	})
	require.True(t, ok)
	assert.Equal(t, "from output", text)

	_, ok = CandidateText(map[string]any{"promptFeedback": map[string]any{}})
	assert.False(t, ok)

	_, ok = CandidateText("plain string body")
	assert.False(t, ok)
}

func TestChatReplyTextOrder(t *testing.T) {
	assert.Equal(t, "part", ChatReplyText(candidateWithPart("part")))
	assert.Equal(t, "content", ChatReplyText(map[string]any{
		"candidates": []any{map[string]any{"content": map[string]any{"text": "content"}}},
	}))
	assert.Equal(t, "out", ChatReplyText(map[string]any{
		"candidates": []any{map[string]any{"output": "out"}},
	}))
	assert.Equal(t, "raw body", ChatReplyText("raw body"))
	assert.Equal(t, "", ChatReplyText(map[string]any{"candidates": []any{}}))
	assert.Equal(t, "", ChatReplyText(nil))
}

func TestChatReplyTextStopsAtEmptyPart(t *testing.T) {
	data := map[string]any{
		"candidates": []any{map[string]any{
			"content": map[string]any{
				"parts": []any{map[string]any{"text": ""}},
				"text":  "content",
			},
			"output": "out",
		}},
	}
	assert.Equal(t, "", ChatReplyText(data))

	// evaluation still skips the empty part
	text, ok := CandidateText(data)
	assert.True(t, ok)
	assert.Equal(t, "out", text)
}

func TestDecodeBody(t *testing.T) {
	assert.Equal(t, map[string]any{"ok": true}, DecodeBody([]byte(`{"ok":true}`)))
	assert.Equal(t, "<html>", DecodeBody([]byte("<html>")))
	assert.Equal(t, `{"ok":true}`, Stringify(map[string]any{"ok": true}))
	assert.Equal(t, "text", Stringify("text"))
}
