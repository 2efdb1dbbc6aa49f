package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTavilySearch(t *testing.T) {
	t.Parallel()

	errCh := make(chan error, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			errCh <- fmt.Errorf("expected POST, got %s", r.Method)
			return
		}
		var req tavilyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errCh <- fmt.Errorf("decode request: %w", err)
			return
		}
		if req.APIKey != "test-key" {
			errCh <- fmt.Errorf("expected api_key test-key, got %q", req.APIKey)
			return
		}
		if req.SearchDepth != "advanced" || req.MaxResults != 2 {
			errCh <- fmt.Errorf("unexpected depth/limit %q/%d", req.SearchDepth, req.MaxResults)
			return
		}
		if !req.IncludeAnswer || len(req.IncludeDomains) != 1 || req.IncludeDomains[0] != "reuters.com" {
			errCh <- fmt.Errorf("expected answer and domain filter, got %+v", req)
			return
		}

		resp := tavilyResponse{
			Answer: "  the answer ",
			Results: []tavilyResult{{
				Title:         "Example",
				URL:           "https://example.com",
				Content:       "snippet",
				RawContent:    "full content",
				Score:         0.99,
				PublishedDate: "2026-01-02",
			}},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			errCh <- fmt.Errorf("encode response: %w", err)
		}
	}))
	defer server.Close()

	provider, err := NewTavilyProvider("test-key", server.URL, 0)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	resp, err := provider.Search(context.Background(), "query", SearchOptions{
		Limit:             2,
		SearchDepth:       "advanced",
		IncludeDomains:    []string{"reuters.com"},
		IncludeAnswer:     true,
		IncludeRawContent: true,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	select {
	case err := <-errCh:
		t.Fatalf("handler error: %v", err)
	default:
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(resp.Results))
	}
	if resp.Results[0].Content != "full content" {
		t.Fatalf("expected raw content, got %q", resp.Results[0].Content)
	}
	if resp.Results[0].PublishedDate != "2026-01-02" {
		t.Fatalf("expected published date, got %q", resp.Results[0].PublishedDate)
	}
	if resp.Answer != "the answer" {
		t.Fatalf("expected trimmed answer, got %q", resp.Answer)
	}
}

func TestTavilySnippetWithoutRawContent(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(tavilyResponse{Results: []tavilyResult{{Content: "snippet", RawContent: "full"}}})
	}))
	defer server.Close()

	provider, err := NewTavilyProvider("k", server.URL, 0)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	resp, err := provider.Search(context.Background(), "q", SearchOptions{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if resp.Results[0].Content != "snippet" {
		t.Fatalf("expected snippet, got %q", resp.Results[0].Content)
	}
}

func TestTavilyStatusError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	provider, err := NewTavilyProvider("k", server.URL, 0)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if _, err := provider.Search(context.Background(), "q", SearchOptions{}); err == nil {
		t.Fatalf("expected status error")
	}
}

func TestNewTavilyProviderRequiresKey(t *testing.T) {
	t.Parallel()

	if _, err := NewTavilyProvider(" ", "", 0); err == nil {
		t.Fatalf("expected missing key error")
	}
}

func TestHost(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"https://www.Snopes.com/fact-check/x": "snopes.com",
		"http://apnews.com":                   "apnews.com",
		"::not a url":                         "",
	}
	for in, want := range cases {
		if got := Host(in); got != want {
			t.Fatalf("Host(%q) = %q, want %q", in, got, want)
		}
	}
}
