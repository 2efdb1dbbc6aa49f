package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

const routerSystemPrompt = `You are a distribution strategist. Given a piece of content you decide which platform (twitter, linkedin or email) it will perform best on and why.
Scores run from 0 to 100.
Respond with ONLY a JSON object, no prose and no code fences.`

type scorePayload struct {
	Platform      string   `json:"platform"`
	Score         *float64 `json:"score"`
	Reasons       []string `json:"reasons"`
	Optimizations []string `json:"optimizations"`
}

type recommendationPayload struct {
	Primary   scorePayload            `json:"primary"`
	Secondary []scorePayload          `json:"secondary"`
	Analytics RecommendationAnalytics `json:"analytics"`
}

type PlatformRouterAgent struct {
	base
}

func NewPlatformRouterAgent(model ChatModel, opts Options) *PlatformRouterAgent {
	return &PlatformRouterAgent{base: newBase("router", model, RouterSettings, opts)}
}

func (a *PlatformRouterAgent) SuggestPlatforms(ctx context.Context, req Request) Result[PlatformRecommendation] {
	return run(ctx, &a.base, routerSystemPrompt, buildRouterPrompt(req), func(completion string) (PlatformRecommendation, bool, error) {
		return FormatPlatformRecommendation(completion, req)
	})
}

func buildRouterPrompt(req Request) string {
	var b strings.Builder
	writeRequestContext(&b, "Recommend the best platforms for the following content.", req)
	b.WriteString(`Return JSON with this shape:
{
  "primary": {"platform": "twitter | linkedin | email", "score": 0-100, "reasons": ["..."], "optimizations": ["..."]},
  "secondary": [{"platform": "...", "score": 0-100, "reasons": ["..."], "optimizations": ["..."]}],
  "analytics": {"contentType": "...", "targetAudience": "...", "tone": "...", "engagement": "low | medium | high"}
}
`)
	return b.String()
}

// FormatPlatformRecommendation clamps every score into [0,100]; a missing
// score counts as 0.
func FormatPlatformRecommendation(completion string, req Request) (PlatformRecommendation, bool, error) {
	payload, ok := decodePayload[recommendationPayload](completion)
	if !ok {
		return routeByTable(req), false, nil
	}

	var scored []PlatformScore
	for _, s := range append([]scorePayload{payload.Primary}, payload.Secondary...) {
		if score, err := formatScore(s); err == nil {
			scored = append(scored, score)
		}
	}
	if len(scored) == 0 {
		return routeByTable(req), false, nil
	}
	rec := PlatformRecommendation{Primary: scored[0], Secondary: nonNilScores(scored[1:]), Analytics: payload.Analytics}
	rec.Analytics.ContentType = orDefault(rec.Analytics.ContentType, detectContentType(req.SourceText))
	rec.Analytics.TargetAudience = orDefault(rec.Analytics.TargetAudience, audienceOrDefault(req.TargetAudience))
	rec.Analytics.Tone = orDefault(rec.Analytics.Tone, toneOrDefault(req.Tone))
	rec.Analytics.Engagement = orDefault(strings.ToLower(rec.Analytics.Engagement), "medium")
	return rec, true, nil
}

func formatScore(p scorePayload) (PlatformScore, error) {
	platform, err := ParsePlatform(p.Platform)
	if err != nil {
		return PlatformScore{}, err
	}
	score := 0
	if p.Score != nil {
		score = clampScore(*p.Score)
	}
	return PlatformScore{
		Platform:      platform,
		Score:         score,
		Reasons:       nonNil(trimAll(p.Reasons)),
		Optimizations: nonNil(trimAll(p.Optimizations)),
	}, nil
}

type routeSignal struct {
	platform Platform
	keywords []string
	reason   string
}

var routeSignals = []routeSignal{
	{PlatformTwitter, []string{"breaking", "just launched", "announcement", "announcing", "hot take", "quick tip"}, "Timely, punchy material suits fast-moving feeds"},
	{PlatformLinkedIn, []string{"how to", "guide", "lessons", "career", "leadership", "strategy", "case study"}, "Professional insight performs well with a LinkedIn audience"},
	{PlatformEmail, []string{"newsletter", "digest", "weekly", "monthly", "roundup", "update"}, "Recurring or digest-style material fits an email newsletter"},
}

var platformOptimizations = map[Platform][]string{
	PlatformTwitter:  {"Lead with the strongest claim", "Split longer ideas into a thread", "Keep hashtags to one or two"},
	PlatformLinkedIn: {"Open with a one-line hook", "Use short paragraphs", "End with a question to drive comments"},
	PlatformEmail:    {"Keep the subject under 50 characters", "Use the preheader to extend the subject", "Put one clear call to action near the top"},
}

// routeByTable scores platforms from word count and keyword signals.
func routeByTable(req Request) PlatformRecommendation {
	text := strings.ToLower(req.SourceText)
	words := len(strings.Fields(req.SourceText))

	scores := map[Platform]int{PlatformTwitter: 40, PlatformLinkedIn: 40, PlatformEmail: 40}
	reasons := map[Platform][]string{}

	var byLength Platform
	switch {
	case words < 150:
		byLength = PlatformTwitter
	case words <= 800:
		byLength = PlatformLinkedIn
	default:
		byLength = PlatformEmail
	}
	scores[byLength] += 35
	reasons[byLength] = append(reasons[byLength], fmt.Sprintf("Length (%d words) fits %s", words, byLength))

	for _, sig := range routeSignals {
		hits := 0
		for _, kw := range sig.keywords {
			if strings.Contains(text, kw) {
				hits++
			}
		}
		if hits > 0 {
			scores[sig.platform] += 10 * hits
			reasons[sig.platform] = append(reasons[sig.platform], sig.reason)
		}
	}

	ranked := make([]PlatformScore, 0, len(Platforms))
	for _, p := range Platforms {
		ranked = append(ranked, PlatformScore{
			Platform:      p,
			Score:         clamp(scores[p], 0, 100),
			Reasons:       nonNil(reasons[p]),
			Optimizations: platformOptimizations[p],
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	engagement := "medium"
	if ranked[0].Score >= 85 {
		engagement = "high"
	}
	return PlatformRecommendation{
		Primary:   ranked[0],
		Secondary: ranked[1:],
		Analytics: RecommendationAnalytics{
			ContentType:    detectContentType(req.SourceText),
			TargetAudience: audienceOrDefault(req.TargetAudience),
			Tone:           toneOrDefault(req.Tone),
			Engagement:     engagement,
		},
	}
}

func nonNilScores(s []PlatformScore) []PlatformScore {
	if len(s) == 0 {
		return []PlatformScore{}
	}
	return s
}
