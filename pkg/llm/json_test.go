package llm

import (
	"errors"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"plain":  `{"a":1}`,
		"fenced": "```json\n{\"a\":1}\n```",
		"bare":   "```\n{\"a\":1}\n```",
		"prose":  "Sure! Here you go:\n{\"a\":1}\nLet me know.",
	}
	for name, in := range cases {
		got, err := ExtractJSON(in)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if got != `{"a":1}` {
			t.Fatalf("%s: got %q", name, got)
		}
	}
}

func TestExtractJSONRejectsProse(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "no json here", "{broken", "[1,2,3]"} {
		if _, err := ExtractJSON(in); !errors.Is(err, ErrNoJSON) {
			t.Fatalf("expected ErrNoJSON for %q, got %v", in, err)
		}
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	type payload struct {
		Tweets []string `json:"tweets"`
	}
	got, err := DecodeJSON[payload]("```json\n{\"tweets\":[\"one\",\"two\"]}\n```")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Tweets) != 2 || got.Tweets[1] != "two" {
		t.Fatalf("unexpected payload %+v", got)
	}

	if _, err := DecodeJSON[payload](`{"tweets":"not-a-list"}`); err == nil {
		t.Fatalf("expected type mismatch error")
	}
}
