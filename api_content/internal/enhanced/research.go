package enhanced

import (
	"context"
	"fmt"
	"strings"

	"tastesync/api_content/internal/memory"
	"tastesync/api_content/internal/research"
	"tastesync/pkg/llm"
)

const maxVerifiedFacts = 5

type ResearchRequest struct {
	Topic              string `json:"topic"`
	Platform           string `json:"platform"`
	Tone               string `json:"tone,omitempty"`
	Depth              string `json:"depth,omitempty"`
	IncludeCompetitors bool   `json:"includeCompetitors,omitempty"`
	MaxSources         int    `json:"maxSources,omitempty"`
	VerifyFacts        bool   `json:"verifyFacts,omitempty"`

	Memory memory.Context `json:"-"`
}

type ResearchContent struct {
	Content       string                    `json:"content"`
	Platform      string                    `json:"platform"`
	Research      research.ResearchInsights `json:"research"`
	Verifications []research.Verification   `json:"verifications,omitempty"`
	Sources       []string                  `json:"sources"`
	Warnings      []string                  `json:"warnings,omitempty"`
	TokensUsed    int                       `json:"tokensUsed"`
	Model         string                    `json:"model,omitempty"`
	Usage         llm.Usage                 `json:"-"`
}

// CreateResearchEnhancedContent writes content grounded on fresh research.
// Research is required here; fact verification is optional and degrades to
// a warning.
func (s *Service) CreateResearchEnhancedContent(ctx context.Context, req ResearchRequest) (ResearchContent, error) {
	if strings.TrimSpace(req.Topic) == "" {
		return ResearchContent{}, ErrEmptySource
	}
	insights, err := s.research.ResearchContent(ctx, research.ResearchRequest{
		Topic:              req.Topic,
		Platform:           req.Platform,
		Depth:              req.Depth,
		IncludeCompetitors: req.IncludeCompetitors,
		MaxSources:         req.MaxSources,
	})
	if err != nil {
		s.metrics.generation("research", err)
		return ResearchContent{}, fmt.Errorf("research-enhanced content failed: %w", err)
	}

	out := ResearchContent{Platform: req.Platform, Research: insights}
	out.Sources = appendUnique([]string{}, map[string]struct{}{}, insights.URLs()...)

	if req.VerifyFacts && len(insights.KeyFacts) > 0 {
		facts := insights.KeyFacts
		if len(facts) > maxVerifiedFacts {
			facts = facts[:maxVerifiedFacts]
		}
		v, err := s.research.VerifyInformation(ctx, facts)
		if err != nil {
			s.sourceFailed("verification", req.Memory, err)
			out.Warnings = append(out.Warnings, warnf("fact verification unavailable: %v", err))
		} else {
			out.Verifications = v
		}
	}

	resp, err := s.chat(ctx, enhancedSystemPrompt(Request{Platform: req.Platform}), researchPrompt(req, insights, out.Verifications))
	s.metrics.generation("research", err)
	if err != nil {
		return ResearchContent{}, fmt.Errorf("research-enhanced content failed: %w", err)
	}
	out.Content = strings.TrimSpace(resp.Content)
	out.Model = resp.Model
	out.Usage = resp.Usage
	out.TokensUsed = resp.Usage.TotalTokens
	return out, nil
}

func researchPrompt(req ResearchRequest, insights research.ResearchInsights, verified []research.Verification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write %s content about: %s\n", platformOr(req.Platform), req.Topic)
	tone := req.Tone
	if tone == "" {
		tone = "professional"
	}
	fmt.Fprintf(&b, "Tone: %s\n", tone)
	if insights.Summary != "" {
		fmt.Fprintf(&b, "\nResearch summary:\n%s\n", insights.Summary)
	}
	if len(insights.KeyFacts) > 0 {
		b.WriteString("\nKey facts:\n")
		for _, f := range insights.KeyFacts {
			fmt.Fprintf(&b, "- %s%s\n", f, verificationNote(f, verified))
		}
	}
	if len(insights.Sources) > 0 {
		b.WriteString("\nSources:\n")
		for _, src := range insights.Sources {
			fmt.Fprintf(&b, "- %s (%s)\n", src.Title, src.URL)
		}
	}
	for _, c := range insights.CompetitorAnalysis {
		fmt.Fprintf(&b, "\nCompetitor %s: opportunities %s\n", c.Source, strings.Join(c.Opportunities, "; "))
	}
	return b.String()
}

func verificationNote(fact string, verified []research.Verification) string {
	for _, v := range verified {
		if v.Claim != fact {
			continue
		}
		if v.Verified {
			return " [verified]"
		}
		return " [unverified, phrase cautiously]"
	}
	return ""
}

func platformOr(p string) string {
	if p == "" {
		return "social media"
	}
	return p
}
