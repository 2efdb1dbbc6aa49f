package search

import (
	"context"
	"net/url"
	"strings"
)

// Provider defines the interface for web search providers.
type Provider interface {
	Search(ctx context.Context, query string, opts SearchOptions) (Response, error)
}

// Result represents a single search result.
type Result struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
	PublishedDate string  `json:"publishedDate,omitempty"`
}

// Response is one query's results plus the provider's generated answer, when
// it produces one.
type Response struct {
	Results []Result `json:"results"`
	Answer  string   `json:"answer,omitempty"`
}

// SearchOptions controls search behavior across providers. Providers ignore
// the knobs their API does not have.
type SearchOptions struct {
	Limit             int
	SearchDepth       string // basic | advanced
	Topic             string // general | news
	Days              int    // recency window for news searches
	IncludeDomains    []string
	ExcludeDomains    []string
	IncludeAnswer     bool
	IncludeRawContent bool
}

// Host returns the lowercase host of a result URL without a leading "www.".
func Host(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// siteFilter rewrites domain filters as query operators for engines that only
// take a query string.
func siteFilter(query string, include, exclude []string) string {
	var b strings.Builder
	b.WriteString(query)
	if len(include) > 0 {
		b.WriteString(" (")
		for i, d := range include {
			if i > 0 {
				b.WriteString(" OR ")
			}
			b.WriteString("site:" + d)
		}
		b.WriteString(")")
	}
	for _, d := range exclude {
		b.WriteString(" -site:" + d)
	}
	return b.String()
}
