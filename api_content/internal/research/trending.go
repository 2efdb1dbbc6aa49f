package research

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"

	"tastesync/pkg/search"
)

type TrendingRequest struct {
	Platform  string `json:"platform"`
	Timeframe string `json:"timeframe,omitempty"`
	Industry  string `json:"industry,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

type TrendingTopic struct {
	Topic     string   `json:"topic"`
	Relevance float64  `json:"relevance"`
	Mentions  int      `json:"mentions"`
	Sources   []string `json:"sources"`
}

type TrendingResponse struct {
	Platform  string          `json:"platform"`
	Timeframe string          `json:"timeframe"`
	Industry  string          `json:"industry,omitempty"`
	Topics    []TrendingTopic `json:"topics"`
}

// trendingQueries returns three platform templates, plus two when an
// industry is given.
func trendingQueries(req TrendingRequest) []string {
	platform := strings.TrimSpace(req.Platform)
	if platform == "" {
		platform = "social media"
	}
	queries := []string{
		fmt.Sprintf("trending topics on %s this %s", platform, req.Timeframe),
		fmt.Sprintf("viral %s posts this %s", platform, req.Timeframe),
		fmt.Sprintf("most discussed %s content %s", platform, req.Timeframe),
	}
	if industry := strings.TrimSpace(req.Industry); industry != "" {
		queries = append(queries,
			fmt.Sprintf("%s industry trends this %s", industry, req.Timeframe),
			fmt.Sprintf("%s news %s", industry, platform),
		)
	}
	return queries
}

// GetTrendingTopics issues the templates one after another and groups titles
// by their first three words. Relevance is count*0.1 plus up to 0.05 jitter,
// capped at 1.
func (s *Service) GetTrendingTopics(ctx context.Context, req TrendingRequest) (TrendingResponse, error) {
	if req.Timeframe == "" {
		req.Timeframe = defaultTimeframe
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultTopicLimit
	}

	var all []search.Result
	for _, q := range trendingQueries(req) {
		resp, err := s.Search(ctx, SearchRequest{
			Query:      q,
			MaxResults: defaultMaxResults,
			Topic:      "news",
			Days:       timeframeDays(req.Timeframe),
		})
		if err != nil {
			return TrendingResponse{}, fmt.Errorf("trending topics: %w", err)
		}
		all = append(all, resp.Results...)
	}

	type bucket struct {
		topic   string
		count   int
		sources []string
	}
	buckets := map[string]*bucket{}
	var order []string
	for _, r := range all {
		topic := topicKey(r.Title)
		if topic == "" {
			continue
		}
		key := strings.ToLower(topic)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{topic: topic}
			buckets[key] = b
			order = append(order, key)
		}
		b.count++
		if r.URL != "" && !slices.Contains(b.sources, r.URL) {
			b.sources = append(b.sources, r.URL)
		}
	}

	topics := make([]TrendingTopic, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		topics = append(topics, TrendingTopic{
			Topic:     b.topic,
			Relevance: math.Min(float64(b.count)*0.1+s.jitter(0.05), 1),
			Mentions:  b.count,
			Sources:   b.sources,
		})
	}
	sort.SliceStable(topics, func(i, j int) bool { return topics[i].Relevance > topics[j].Relevance })
	if len(topics) > limit {
		topics = topics[:limit]
	}

	return TrendingResponse{
		Platform:  req.Platform,
		Timeframe: req.Timeframe,
		Industry:  req.Industry,
		Topics:    topics,
	}, nil
}

func topicKey(title string) string {
	words := strings.Fields(title)
	if len(words) > 3 {
		words = words[:3]
	}
	return strings.Join(words, " ")
}
