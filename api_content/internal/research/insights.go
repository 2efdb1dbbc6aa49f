package research

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"

	"tastesync/pkg/search"
	"tastesync/pkg/textutil"
)

const (
	maxKeyFacts          = 10
	maxCompetitorSources = 5
	researchParallelism  = 4
)

type ResearchRequest struct {
	Topic              string `json:"topic"`
	Platform           string `json:"platform,omitempty"`
	Depth              string `json:"depth,omitempty"` // basic | advanced
	IncludeCompetitors bool   `json:"includeCompetitors,omitempty"`
	MaxSources         int    `json:"maxSources,omitempty"`
}

type CompetitorInsight struct {
	Source        string   `json:"source"`
	URL           string   `json:"url"`
	Strengths     []string `json:"strengths"`
	Opportunities []string `json:"opportunities"`
}

type ResearchInsights struct {
	Topic              string              `json:"topic"`
	Summary            string              `json:"summary,omitempty"`
	Sources            []search.Result     `json:"sources"`
	KeyFacts           []string            `json:"keyFacts"`
	CompetitorAnalysis []CompetitorInsight `json:"competitorAnalysis,omitempty"`
}

// URLs lists source URLs in ranking order.
func (r ResearchInsights) URLs() []string {
	out := make([]string, 0, len(r.Sources))
	for _, s := range r.Sources {
		out = append(out, s.URL)
	}
	return out
}

func researchQueries(req ResearchRequest) []string {
	topic := strings.TrimSpace(req.Topic)
	queries := []string{
		topic,
		topic + " statistics and data",
		topic + " latest developments",
	}
	if p := strings.TrimSpace(req.Platform); p != "" {
		queries = append(queries, fmt.Sprintf("%s content best practices on %s", topic, p))
	}
	return queries
}

// ResearchContent runs the research queries in parallel, merges results by
// URL and ranks them by score. Any failed query fails the call.
func (s *Service) ResearchContent(ctx context.Context, req ResearchRequest) (ResearchInsights, error) {
	if strings.TrimSpace(req.Topic) == "" {
		return ResearchInsights{}, ErrEmptyQuery
	}
	depth := req.Depth
	if depth != "advanced" {
		depth = "basic"
	}
	maxSources := req.MaxSources
	if maxSources <= 0 {
		maxSources = defaultMaxSources
	}

	queries := researchQueries(req)
	responses := make([]SearchResponse, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(researchParallelism)
	for i, q := range queries {
		g.Go(func() error {
			resp, err := s.Search(gctx, SearchRequest{
				Query:         q,
				MaxResults:    defaultMaxResults,
				SearchDepth:   depth,
				IncludeAnswer: i == 0,
			})
			if err != nil {
				return err
			}
			responses[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ResearchInsights{}, fmt.Errorf("research content: %w", err)
	}

	var merged []search.Result
	for _, r := range responses {
		merged = append(merged, r.Results...)
	}
	sources := dedupeByURL(merged)
	sort.SliceStable(sources, func(i, j int) bool { return sources[i].Score > sources[j].Score })
	if len(sources) > maxSources {
		sources = sources[:maxSources]
	}

	insights := ResearchInsights{
		Topic:    strings.TrimSpace(req.Topic),
		Summary:  responses[0].Answer,
		Sources:  sources,
		KeyFacts: keyFacts(sources),
	}
	if req.IncludeCompetitors {
		insights.CompetitorAnalysis = competitorAnalysis(sources)
	}
	return insights, nil
}

// keyFacts picks sentences that carry a figure.
func keyFacts(results []search.Result) []string {
	seen := map[string]bool{}
	facts := []string{}
	for _, r := range results {
		for _, sentence := range textutil.SplitSentences(r.Content) {
			if !strings.ContainsFunc(sentence, unicode.IsDigit) || seen[sentence] {
				continue
			}
			seen[sentence] = true
			facts = append(facts, sentence)
			if len(facts) == maxKeyFacts {
				return facts
			}
		}
	}
	return facts
}

// competitorAnalysis labels the top sources with fixed strengths and
// opportunities. It is a structural placeholder, not an assessment.
func competitorAnalysis(results []search.Result) []CompetitorInsight {
	n := min(len(results), maxCompetitorSources)
	out := make([]CompetitorInsight, 0, n)
	for _, r := range results[:n] {
		source := r.Title
		if source == "" {
			source = search.Host(r.URL)
		}
		out = append(out, CompetitorInsight{
			Source:        source,
			URL:           r.URL,
			Strengths:     []string{"Ranks highly for this topic", "Established audience"},
			Opportunities: []string{"Add a personal perspective", "Offer more actionable takeaways"},
		})
	}
	return out
}
