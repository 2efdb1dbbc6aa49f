package memory

import (
	"context"
	"fmt"
	"strings"

	"tastesync/api_content/internal/store"
	"tastesync/pkg/logging"
)

const (
	maxPatternTips = 3
	maxInsightTips = 3
)

// GetPersonalizedRecommendations turns saved preferences, successful
// patterns and insight memories into short suggestions. Store failures drop
// the affected source.
func (s *Service) GetPersonalizedRecommendations(ctx context.Context, userID, platform string) []string {
	out := []string{}

	prefs, found, err := s.GetUserPreferences(ctx, userID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to load preferences for recommendations")
	}
	if found {
		out = append(out, preferenceTips(prefs)...)
	}

	patterns, err := s.GetSuccessfulPatterns(ctx, userID, platform, maxPatternTips)
	if err != nil {
		s.logger.WithError(err).WithFields(logging.Fields{
			"user_id":  userID,
			"platform": platform,
		}).Warn("Failed to load patterns for recommendations")
	}
	for i, p := range patterns {
		if i == maxPatternTips {
			break
		}
		out = append(out, fmt.Sprintf("Reuse the %q structure that worked for your %s content on %s",
			p.Structure, orWord(p.ContentType, "recent"), p.Platform))
	}

	query := "content insights"
	if platform != "" {
		query += " for " + platform
	}
	n := 0
	for _, m := range s.SearchMemories(ctx, userID, query, maxInsightTips*2) {
		if m.MetaString(metaType) != kindInsight || strings.TrimSpace(m.Memory) == "" {
			continue
		}
		out = append(out, "Past insight: "+strings.TrimSpace(m.Memory))
		n++
		if n == maxInsightTips {
			break
		}
	}
	return out
}

func preferenceTips(p store.Preferences) []string {
	var tips []string
	if p.PreferredTone != "" {
		tips = append(tips, fmt.Sprintf("Write in a %s tone", p.PreferredTone))
	}
	if len(p.PreferredPlatforms) > 0 {
		tips = append(tips, "Prioritize "+strings.Join(p.PreferredPlatforms, ", "))
	}
	if p.TargetAudience != "" {
		tips = append(tips, "Address "+p.TargetAudience)
	}
	if len(p.Topics) > 0 {
		tips = append(tips, "Connect the piece to "+strings.Join(p.Topics, ", "))
	}
	if p.ContentLength != "" {
		tips = append(tips, fmt.Sprintf("Keep the length %s", p.ContentLength))
	}
	return tips
}

func describePreferences(p store.Preferences) string {
	parts := []string{"User content preferences"}
	if p.PreferredTone != "" {
		parts = append(parts, "tone: "+p.PreferredTone)
	}
	if len(p.PreferredPlatforms) > 0 {
		parts = append(parts, "platforms: "+strings.Join(p.PreferredPlatforms, ", "))
	}
	if len(p.Topics) > 0 {
		parts = append(parts, "topics: "+strings.Join(p.Topics, ", "))
	}
	if p.TargetAudience != "" {
		parts = append(parts, "audience: "+p.TargetAudience)
	}
	if p.ContentLength != "" {
		parts = append(parts, "length: "+p.ContentLength)
	}
	if p.Notes != "" {
		parts = append(parts, "notes: "+p.Notes)
	}
	return strings.Join(parts, "; ")
}

func describePattern(p store.ContentPattern) string {
	outcome := "unsuccessful"
	if p.Successful {
		outcome = "successful"
	}
	s := fmt.Sprintf("%s %s pattern on %s with structure %q (engagement %.2f)",
		outcome, orWord(p.ContentType, "content"), p.Platform, p.Structure, p.EngagementScore)
	if p.Summary != "" {
		s += ": " + p.Summary
	}
	return s
}

func describeFeedback(f store.Feedback) string {
	s := fmt.Sprintf("Feedback rated %d/5", f.Rating)
	if f.Platform != "" {
		s += " for " + f.Platform
	}
	if f.Comments != "" {
		s += ": " + f.Comments
	}
	return s
}

func orWord(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
