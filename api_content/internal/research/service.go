package research

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"tastesync/pkg/clients"
	"tastesync/pkg/logging"
	"tastesync/pkg/search"
)

const (
	defaultMaxResults = 5
	defaultMaxSources = 10
	defaultTimeframe  = "week"
	defaultTopicLimit = 10
)

// Service aggregates web search into research insights, trending topics and
// claim checks.
type Service struct {
	provider search.Provider
	breaker  *clients.CircuitBreaker
	logger   logging.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

type Options struct {
	// Breaker guards the provider; nil calls it directly.
	Breaker *clients.CircuitBreaker
	Logger  logging.Logger
	// Rand drives trending-topic jitter; nil seeds one from the runtime.
	Rand *rand.Rand
}

func NewService(provider search.Provider, opts Options) *Service {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &Service{provider: provider, breaker: opts.Breaker, logger: logger, rng: rng}
}

type SearchRequest struct {
	Query             string   `json:"query"`
	MaxResults        int      `json:"maxResults,omitempty"`
	SearchDepth       string   `json:"searchDepth,omitempty"`
	Topic             string   `json:"topic,omitempty"`
	Days              int      `json:"days,omitempty"`
	IncludeDomains    []string `json:"includeDomains,omitempty"`
	ExcludeDomains    []string `json:"excludeDomains,omitempty"`
	IncludeAnswer     bool     `json:"includeAnswer,omitempty"`
	IncludeRawContent bool     `json:"includeRawContent,omitempty"`
}

type SearchResponse struct {
	Query        string          `json:"query"`
	Results      []search.Result `json:"results"`
	Answer       string          `json:"answer,omitempty"`
	ResponseTime float64         `json:"responseTime"`
}

var ErrEmptyQuery = errors.New("research: empty query")

// Search runs one query. ResponseTime is wall-clock seconds.
func (s *Service) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return SearchResponse{}, ErrEmptyQuery
	}
	if s.provider == nil {
		return SearchResponse{}, errors.New("research search: provider not configured")
	}
	limit := req.MaxResults
	if limit <= 0 {
		limit = defaultMaxResults
	}

	start := time.Now()
	resp, err := clients.Run(ctx, s.breaker, func(ctx context.Context) (search.Response, error) {
		return s.provider.Search(ctx, query, search.SearchOptions{
			Limit:             limit,
			SearchDepth:       req.SearchDepth,
			Topic:             req.Topic,
			Days:              req.Days,
			IncludeDomains:    req.IncludeDomains,
			ExcludeDomains:    req.ExcludeDomains,
			IncludeAnswer:     req.IncludeAnswer,
			IncludeRawContent: req.IncludeRawContent,
		})
	})
	if err != nil {
		s.logger.WithError(err).WithField("query", query).Warn("Research search failed")
		return SearchResponse{}, fmt.Errorf("research search: %w", err)
	}

	results := resp.Results
	if results == nil {
		results = []search.Result{}
	}
	return SearchResponse{
		Query:        query,
		Results:      results,
		Answer:       resp.Answer,
		ResponseTime: time.Since(start).Seconds(),
	}, nil
}

func (s *Service) jitter(span float64) float64 {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Float64() * span
}

// timeframeDays maps a timeframe name onto a news recency window.
func timeframeDays(timeframe string) int {
	switch strings.ToLower(timeframe) {
	case "day", "today", "24h":
		return 1
	case "month":
		return 30
	case "year":
		return 365
	default:
		return 7
	}
}

// dedupeByURL keeps the first result for each URL.
func dedupeByURL(results []search.Result) []search.Result {
	seen := make(map[string]bool, len(results))
	out := make([]search.Result, 0, len(results))
	for _, r := range results {
		key := strings.TrimRight(strings.TrimSpace(r.URL), "/")
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}
