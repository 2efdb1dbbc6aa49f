package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBraveURL = "https://api.search.brave.com/res/v1/web/search"

// BraveProvider implements the Brave Search API.
type BraveProvider struct {
	apiKey string
	apiURL string
	client *http.Client
}

// NewBraveProvider creates a Brave search provider.
func NewBraveProvider(apiKey, apiURL string, timeout time.Duration) (*BraveProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("brave api key is required")
	}
	if strings.TrimSpace(apiURL) == "" {
		apiURL = defaultBraveURL
	}
	return &BraveProvider{
		apiKey: apiKey,
		apiURL: apiURL,
		client: &http.Client{Timeout: timeoutOrDefault(timeout)},
	}, nil
}

type braveResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	PageAge     string `json:"page_age"`
}

type braveResponse struct {
	Web struct {
		Results []braveResult `json:"results"`
	} `json:"web"`
}

// Search executes a query against the Brave Search API. Brave does not score
// results, so scores descend with rank.
func (p *BraveProvider) Search(ctx context.Context, query string, opts SearchOptions) (Response, error) {
	endpoint, err := url.Parse(p.apiURL)
	if err != nil {
		return Response{}, fmt.Errorf("parse brave url: %w", err)
	}
	q := endpoint.Query()
	q.Set("q", siteFilter(query, opts.IncludeDomains, opts.ExcludeDomains))
	if opts.Limit > 0 {
		q.Set("count", strconv.Itoa(opts.Limit))
	}
	if freshness := braveFreshness(opts.Days); freshness != "" {
		q.Set("freshness", freshness)
	}
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return Response{}, fmt.Errorf("create brave request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("brave request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return Response{}, fmt.Errorf("brave request failed with status %d", resp.StatusCode)
	}

	var decoded braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Response{}, fmt.Errorf("decode brave response: %w", err)
	}

	n := len(decoded.Web.Results)
	results := make([]Result, 0, n)
	for i, item := range decoded.Web.Results {
		results = append(results, Result{
			Title:         item.Title,
			URL:           item.URL,
			Content:       strings.TrimSpace(item.Description),
			Score:         float64(n-i) / float64(n),
			PublishedDate: item.PageAge,
		})
	}

	return Response{Results: results}, nil
}

func braveFreshness(days int) string {
	switch {
	case days <= 0:
		return ""
	case days <= 1:
		return "pd"
	case days <= 7:
		return "pw"
	case days <= 31:
		return "pm"
	default:
		return "py"
	}
}
