package enhanced

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"tastesync/api_content/internal/memory"
	"tastesync/api_content/internal/research"
	"tastesync/pkg/llm"
	"tastesync/pkg/logging"
)

const (
	historyLimit  = 5
	trendingLimit = 5
	maxTopicRunes = 120
)

type Request struct {
	SourceText         string `json:"sourceText"`
	Topic              string `json:"topic,omitempty"`
	Platform           string `json:"platform"`
	Tone               string `json:"tone,omitempty"`
	CustomInstructions string `json:"customInstructions,omitempty"`
	TargetAudience     string `json:"targetAudience,omitempty"`
	Industry           string `json:"industry,omitempty"`
	IncludeResearch    bool   `json:"includeResearch"`
	IncludeTrending    bool   `json:"includeTrending"`
	UseMemory          bool   `json:"useMemory"`

	Memory memory.Context `json:"-"`
}

type Content struct {
	Content             string                      `json:"content"`
	Platform            string                      `json:"platform"`
	Research            *research.ResearchInsights  `json:"research,omitempty"`
	Trending            []research.TrendingTopic    `json:"trending,omitempty"`
	Recommendations     []string                    `json:"recommendations,omitempty"`
	ConversationHistory []memory.ConversationMemory `json:"conversationHistory,omitempty"`
	Sources             []string                    `json:"sources"`
	Confidence          float64                     `json:"confidence"`
	Warnings            []string                    `json:"warnings,omitempty"`
	TokensUsed          int                         `json:"tokensUsed"`
	Model               string                      `json:"model,omitempty"`
	Usage               llm.Usage                   `json:"-"`
}

// gathered holds what each optional source produced. A source that failed
// leaves its field empty and sets its error.
type gathered struct {
	insights    *research.ResearchInsights
	researchErr error
	trending    []research.TrendingTopic
	trendingErr error
	recs        []string
	history     []memory.ConversationMemory
}

// GenerateEnhancedContent fans out to the requested sources, folds whatever
// they produced into one prompt and makes a single completion call. A failed
// source becomes a warning; only the completion itself can fail the call.
func (s *Service) GenerateEnhancedContent(ctx context.Context, req Request) (Content, error) {
	if strings.TrimSpace(req.SourceText) == "" && strings.TrimSpace(req.Topic) == "" {
		return Content{}, ErrEmptySource
	}
	mc := memoryContext(memory.AnonymousUser, req.Memory)
	g := s.gather(ctx, req, mc)

	out := Content{Platform: req.Platform}
	seen := map[string]struct{}{}
	if g.researchErr != nil {
		out.Warnings = append(out.Warnings, warnf("research unavailable: %v", g.researchErr))
	} else if g.insights != nil {
		out.Research = g.insights
		out.Sources = appendUnique(out.Sources, seen, g.insights.URLs()...)
	}
	if g.trendingErr != nil {
		out.Warnings = append(out.Warnings, warnf("trending topics unavailable: %v", g.trendingErr))
	} else {
		out.Trending = g.trending
		for _, t := range g.trending {
			out.Sources = appendUnique(out.Sources, seen, t.Sources...)
		}
	}
	out.Recommendations = g.recs
	out.ConversationHistory = g.history
	if out.Sources == nil {
		out.Sources = []string{}
	}

	resp, err := s.chat(ctx, enhancedSystemPrompt(req), enhancedUserPrompt(req, g))
	s.metrics.generation("enhanced", err)
	if err != nil {
		return Content{}, fmt.Errorf("enhanced content generation failed: %w", err)
	}
	out.Content = strings.TrimSpace(resp.Content)
	out.Model = resp.Model
	out.Usage = resp.Usage
	out.TokensUsed = resp.Usage.TotalTokens
	out.Confidence = confidence(
		out.Research != nil && len(out.Research.Sources) > 0,
		len(out.Trending) > 0,
		len(out.Recommendations) > 0,
	)

	if req.UseMemory {
		err := s.memory.StoreInteraction(ctx, mc, memory.Interaction{
			Prompt:   req.SourceText,
			Response: out.Content,
			Platform: req.Platform,
			Metadata: map[string]any{"enhanced": true, "confidence": out.Confidence},
		})
		if err != nil {
			s.logger.WithError(err).WithField("user_id", mc.UserID).Warn("Failed to store enhanced interaction")
			out.Warnings = append(out.Warnings, warnf("memory not updated: %v", err))
		}
	}
	return out, nil
}

func (s *Service) gather(ctx context.Context, req Request, mc memory.Context) gathered {
	var (
		g  gathered
		eg errgroup.Group
	)
	eg.SetLimit(4)

	if req.IncludeResearch {
		eg.Go(func() error {
			insights, err := s.research.ResearchContent(ctx, research.ResearchRequest{
				Topic:    topicOf(req),
				Platform: req.Platform,
				Depth:    "basic",
			})
			if err != nil {
				g.researchErr = err
				s.sourceFailed("research", mc, err)
				return nil
			}
			g.insights = &insights
			return nil
		})
	}
	if req.IncludeTrending {
		eg.Go(func() error {
			resp, err := s.research.GetTrendingTopics(ctx, research.TrendingRequest{
				Platform: req.Platform,
				Industry: req.Industry,
				Limit:    trendingLimit,
			})
			if err != nil {
				g.trendingErr = err
				s.sourceFailed("trending", mc, err)
				return nil
			}
			g.trending = resp.Topics
			return nil
		})
	}
	if req.UseMemory {
		eg.Go(func() error {
			g.recs = s.memory.GetPersonalizedRecommendations(ctx, mc.UserID, req.Platform)
			return nil
		})
		eg.Go(func() error {
			g.history = s.memory.GetConversationHistory(ctx, mc, historyLimit)
			return nil
		})
	}
	_ = eg.Wait()
	return g
}

func (s *Service) sourceFailed(source string, mc memory.Context, err error) {
	s.metrics.sourceFailed(source)
	s.logger.WithError(err).WithFields(logging.Fields{
		"source":  source,
		"user_id": mc.UserID,
	}).Warn("Enhancement source failed")
}

// topicOf picks the research topic: the explicit one, else the first line of
// the source cut to a search-friendly length.
func topicOf(req Request) string {
	if t := strings.TrimSpace(req.Topic); t != "" {
		return t
	}
	line, _, _ := strings.Cut(strings.TrimSpace(req.SourceText), "\n")
	r := []rune(strings.TrimSpace(line))
	if len(r) <= maxTopicRunes {
		return string(r)
	}
	cut := string(r[:maxTopicRunes])
	if i := strings.LastIndex(cut, " "); i > maxTopicRunes/2 {
		cut = cut[:i]
	}
	return cut
}

func enhancedSystemPrompt(req Request) string {
	platform := req.Platform
	if platform == "" {
		platform = "social media"
	}
	return fmt.Sprintf("You are an expert content strategist writing for %s. "+
		"Use the supplied research, trends and personal context where they help, "+
		"cite facts only when they appear in the research, and return only the finished content.", platform)
}

func enhancedUserPrompt(req Request, g gathered) string {
	var b strings.Builder
	if req.SourceText != "" {
		fmt.Fprintf(&b, "Source content:\n%s\n\n", req.SourceText)
	} else {
		fmt.Fprintf(&b, "Topic:\n%s\n\n", req.Topic)
	}
	tone := req.Tone
	if tone == "" {
		tone = "professional"
	}
	fmt.Fprintf(&b, "Tone: %s\n", tone)
	if req.TargetAudience != "" {
		fmt.Fprintf(&b, "Target audience: %s\n", req.TargetAudience)
	}
	if req.CustomInstructions != "" {
		fmt.Fprintf(&b, "Additional instructions: %s\n", req.CustomInstructions)
	}

	if g.insights != nil {
		b.WriteString("\nResearch insights:\n")
		if g.insights.Summary != "" {
			fmt.Fprintf(&b, "%s\n", g.insights.Summary)
		}
		for _, f := range g.insights.KeyFacts {
			fmt.Fprintf(&b, "- %s\n", f)
		}
		for _, src := range g.insights.Sources {
			fmt.Fprintf(&b, "Source: %s (%s)\n", src.Title, src.URL)
		}
	}
	if len(g.trending) > 0 {
		b.WriteString("\nTrending topics:\n")
		for _, t := range g.trending {
			fmt.Fprintf(&b, "- %s (relevance %.2f)\n", t.Topic, t.Relevance)
		}
	}
	if len(g.recs) > 0 {
		b.WriteString("\nPersonalized recommendations:\n")
		for _, r := range g.recs {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}
	if len(g.history) > 0 {
		b.WriteString("\nRecent conversation context:\n")
		for _, h := range g.history {
			fmt.Fprintf(&b, "- %s\n", h.Summary)
		}
	}
	return b.String()
}
