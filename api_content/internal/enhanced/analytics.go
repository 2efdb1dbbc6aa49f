package enhanced

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"tastesync/api_content/internal/store"
)

const analyticsPatternLimit = 50

type PatternStat struct {
	Label             string  `json:"label"`
	ContentType       string  `json:"contentType"`
	Platform          string  `json:"platform"`
	Count             int     `json:"count"`
	AverageEngagement float64 `json:"averageEngagement"`
	MostUsedStructure string  `json:"mostUsedStructure,omitempty"`
}

type Analytics struct {
	UserID          string                `json:"userId"`
	Preferences     *store.Preferences    `json:"preferences,omitempty"`
	TopPatterns     []PatternStat         `json:"topPatterns"`
	Feedback        store.FeedbackSummary `json:"feedback"`
	BestPlatform    string                `json:"bestPlatform,omitempty"`
	Recommendations []string              `json:"recommendations"`
}

// GetPersonalizedAnalytics summarizes what is known about a user's content.
func (s *Service) GetPersonalizedAnalytics(ctx context.Context, userID string) (Analytics, error) {
	out := Analytics{UserID: userID}

	prefs, found, err := s.memory.GetUserPreferences(ctx, userID)
	if err != nil {
		return Analytics{}, fmt.Errorf("personalized analytics: %w", err)
	}
	if found {
		out.Preferences = &prefs
	}

	patterns, err := s.memory.GetSuccessfulPatterns(ctx, userID, "", analyticsPatternLimit)
	if err != nil {
		return Analytics{}, fmt.Errorf("personalized analytics: %w", err)
	}
	out.TopPatterns = summarizePatterns(patterns)

	out.Feedback, err = s.memory.FeedbackSummary(ctx, userID)
	if err != nil {
		return Analytics{}, fmt.Errorf("personalized analytics: %w", err)
	}
	out.BestPlatform = bestPlatform(out.Feedback.ByPlatform)
	out.Recommendations = s.memory.GetPersonalizedRecommendations(ctx, userID, "")
	return out, nil
}

func summarizePatterns(patterns []store.ContentPattern) []PatternStat {
	title := cases.Title(language.English)
	byKey := map[string]*PatternStat{}
	structures := map[string]map[string]int{}
	var order []string
	for _, p := range patterns {
		contentType := p.ContentType
		if contentType == "" {
			contentType = "general"
		}
		key := contentType + "|" + p.Platform
		st, ok := byKey[key]
		if !ok {
			st = &PatternStat{
				Label:       fmt.Sprintf("%s on %s", title.String(contentType), title.String(p.Platform)),
				ContentType: contentType,
				Platform:    p.Platform,
			}
			structures[key] = map[string]int{}
			byKey[key] = st
			order = append(order, key)
		}
		st.AverageEngagement = (st.AverageEngagement*float64(st.Count) + p.EngagementScore) / float64(st.Count+1)
		st.Count++
		if p.Structure != "" {
			freq := structures[key]
			freq[p.Structure]++
			if freq[p.Structure] > freq[st.MostUsedStructure] {
				st.MostUsedStructure = p.Structure
			}
		}
	}

	out := make([]PatternStat, 0, len(order))
	for _, k := range order {
		out = append(out, *byKey[k])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].AverageEngagement > out[j].AverageEngagement
	})
	return out
}

func bestPlatform(ratings map[string]float64) string {
	best, bestScore := "", 0.0
	for platform, score := range ratings {
		if score > bestScore || (score == bestScore && platform < best) {
			best, bestScore = platform, score
		}
	}
	return best
}
