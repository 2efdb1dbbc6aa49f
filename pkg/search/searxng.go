package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SearxngProvider implements the SearXNG API.
type SearxngProvider struct {
	apiURL string
	client *http.Client
}

// NewSearxngProvider creates a SearXNG provider.
func NewSearxngProvider(apiURL string, timeout time.Duration) (*SearxngProvider, error) {
	if strings.TrimSpace(apiURL) == "" {
		return nil, fmt.Errorf("searxng api url is required")
	}
	return &SearxngProvider{
		apiURL: strings.TrimRight(apiURL, "/"),
		client: &http.Client{Timeout: timeoutOrDefault(timeout)},
	}, nil
}

type searxngResponse struct {
	Answers []string `json:"answers"`
	Results []struct {
		Title         string  `json:"title"`
		URL           string  `json:"url"`
		Content       string  `json:"content"`
		Score         float64 `json:"score"`
		PublishedDate string  `json:"publishedDate"`
	} `json:"results"`
}

// Search executes a query against a SearXNG instance.
func (p *SearxngProvider) Search(ctx context.Context, query string, opts SearchOptions) (Response, error) {
	endpoint, err := url.Parse(p.apiURL + "/search")
	if err != nil {
		return Response{}, fmt.Errorf("parse searxng url: %w", err)
	}
	q := endpoint.Query()
	q.Set("q", siteFilter(query, opts.IncludeDomains, opts.ExcludeDomains))
	q.Set("format", "json")
	if opts.Topic == "news" {
		q.Set("categories", "news")
	}
	if tr := searxngTimeRange(opts.Days); tr != "" {
		q.Set("time_range", tr)
	}
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return Response{}, fmt.Errorf("create searxng request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("searxng request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return Response{}, fmt.Errorf("searxng request failed with status %d", resp.StatusCode)
	}

	var decoded searxngResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Response{}, fmt.Errorf("decode searxng response: %w", err)
	}

	results := make([]Result, 0, len(decoded.Results))
	for _, item := range decoded.Results {
		// SearXNG has no count parameter.
		if opts.Limit > 0 && len(results) == opts.Limit {
			break
		}
		results = append(results, Result{
			Title:         item.Title,
			URL:           item.URL,
			Content:       strings.TrimSpace(item.Content),
			Score:         item.Score,
			PublishedDate: item.PublishedDate,
		})
	}

	out := Response{Results: results}
	if opts.IncludeAnswer && len(decoded.Answers) > 0 {
		out.Answer = decoded.Answers[0]
	}
	return out, nil
}

func searxngTimeRange(days int) string {
	switch {
	case days <= 0:
		return ""
	case days <= 1:
		return "day"
	case days <= 7:
		return "week"
	case days <= 31:
		return "month"
	default:
		return "year"
	}
}
