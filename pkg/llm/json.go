package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON means a completion carried no decodable JSON object.
var ErrNoJSON = errors.New("llm: no JSON object in completion")

// ExtractJSON returns the JSON object embedded in a completion. Models often
// wrap it in a ```json fence or surround it with prose.
func ExtractJSON(completion string) (string, error) {
	text := stripFence(completion)
	if json.Valid([]byte(text)) && strings.HasPrefix(text, "{") {
		return text, nil
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		candidate := text[start : end+1]
		if json.Valid([]byte(candidate)) {
			return candidate, nil
		}
	}
	return "", ErrNoJSON
}

// DecodeJSON extracts and unmarshals the completion's JSON object into T.
func DecodeJSON[T any](completion string) (T, error) {
	var out T
	raw, err := ExtractJSON(completion)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, fmt.Errorf("decode completion: %w", err)
	}
	return out, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl != -1 && !strings.Contains(s[:nl], "{") {
		s = s[nl+1:] // language tag
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}
