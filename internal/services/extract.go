package services

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// Model output rarely arrives as clean JSON. Each tier below is a separate
// function so the order they run in is decided by the caller.

var (
	// fencePattern matches the first fenced block, tagged json or untagged.
	fencePattern = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)\\s*```")
	// braceSpanPattern runs from the first '{' to the last '}'.
	braceSpanPattern = regexp.MustCompile(`(?s)\{.*\}`)
)

var errNoJSONObject = errors.New("no JSON object found in model text")

// DecodeBody parses an upstream body as JSON, keeping it as a string when
// it is not JSON.
func DecodeBody(body []byte) any {
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return string(body)
	}
	return data
}

// Stringify renders decoded upstream data back to text.
func Stringify(data any) string {
	if s, ok := data.(string); ok {
		return s
	}
	b, err := json.Marshal(data)
	if err != nil {
		return ""
	}
	return string(b)
}

// firstCandidate returns candidates[0] when the response has that shape.
func firstCandidate(data any) map[string]any {
	root, ok := data.(map[string]any)
	if !ok {
		return nil
	}
	candidates, ok := root["candidates"].([]any)
	if !ok || len(candidates) == 0 {
		return nil
	}
	candidate, _ := candidates[0].(map[string]any)
	return candidate
}

// PartText reads a non-empty candidates[0].content.parts[0].text.
func PartText(data any) (string, bool) {
	text, ok := partText(data)
	return text, ok && text != ""
}

// partText reads candidates[0].content.parts[0].text, empty or not.
func partText(data any) (string, bool) {
	content, ok := firstCandidate(data)["content"].(map[string]any)
	if !ok {
		return "", false
	}
	parts, ok := content["parts"].([]any)
	if !ok || len(parts) == 0 {
		return "", false
	}
	part, ok := parts[0].(map[string]any)
	if !ok {
		return "", false
	}
	text, ok := part["text"].(string)
	return text, ok
}

// ContentText reads candidates[0].content.text.
func ContentText(data any) (string, bool) {
	content, ok := firstCandidate(data)["content"].(map[string]any)
	if !ok {
		return "", false
	}
	text, ok := content["text"].(string)
	return text, ok
}

// OutputText reads candidates[0].output when it is a non-empty string.
func OutputText(data any) (string, bool) {
	text, ok := outputText(data)
	return text, ok && text != ""
}

func outputText(data any) (string, bool) {
	text, ok := firstCandidate(data)["output"].(string)
	return text, ok
}

// CandidateText is the evaluation lookup order: part text, then output.
func CandidateText(data any) (string, bool) {
	if text, ok := PartText(data); ok {
		return text, true
	}
	return OutputText(data)
}

// ChatReplyText is the chat lookup order: part text, content text, output,
// then the body itself when it was not JSON. Empty when all are absent.
// A present but empty string stops the search.
func ChatReplyText(data any) string {
	if text, ok := partText(data); ok {
		return text
	}
	if text, ok := ContentText(data); ok {
		return text
	}
	if text, ok := outputText(data); ok {
		return text
	}
	if s, ok := data.(string); ok {
		return s
	}
	return ""
}

// BraceSpan returns the first '{' through the last '}' of s.
func BraceSpan(s string) (string, bool) {
	m := braceSpanPattern.FindString(s)
	return m, m != ""
}

// UnwrapFence returns the body of the first fenced code block in s, or s
// unchanged when there is none.
func UnwrapFence(s string) string {
	m := fencePattern.FindStringSubmatch(s)
	if len(m) < 2 || m[1] == "" {
		return s
	}
	return strings.TrimSpace(m[1])
}

// StripQuotes removes one matching pair of surrounding ' or " characters.
func StripQuotes(s string) string {
	if len(s) < 2 {
		return s
	}
	first, last := s[0], s[len(s)-1]
	if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
		return strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// NormalizeModelText trims, unwraps a code fence and strips wrapping quotes.
func NormalizeModelText(text string) string {
	normalized := strings.TrimSpace(text)
	normalized = UnwrapFence(normalized)
	return StripQuotes(normalized)
}

// ParseModelJSON decodes normalized model text into an object, retrying on
// the first brace span when the whole text is not valid JSON.
func ParseModelJSON(normalized string) (map[string]any, error) {
	var parsed map[string]any
	err := json.Unmarshal([]byte(normalized), &parsed)
	if err == nil && parsed != nil {
		return parsed, nil
	}

	span, ok := BraceSpan(normalized)
	if !ok {
		if err == nil {
			err = errNoJSONObject
		}
		return nil, err
	}
	parsed = nil
	if err := json.Unmarshal([]byte(span), &parsed); err != nil {
		return nil, err
	}
	if parsed == nil {
		return nil, errNoJSONObject
	}
	return parsed, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
