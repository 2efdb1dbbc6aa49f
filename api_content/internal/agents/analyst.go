package agents

import (
	"context"
	"math"
	"strings"

	"tastesync/pkg/textutil"
)

const analystSystemPrompt = `You are a content analyst. You read a piece of writing and describe what it is, who it is for and how it reads.
Respond with ONLY a JSON object, no prose and no code fences.`

type analysisPayload struct {
	Summary          string   `json:"summary"`
	KeyPoints        []string `json:"keyPoints"`
	Topics           []string `json:"topics"`
	Tone             string   `json:"tone"`
	TargetAudience   string   `json:"targetAudience"`
	ContentType      string   `json:"contentType"`
	Sentiment        string   `json:"sentiment"`
	ReadabilityScore *float64 `json:"readabilityScore"`
}

type ContentAnalystAgent struct {
	base
}

func NewContentAnalystAgent(model ChatModel, opts Options) *ContentAnalystAgent {
	return &ContentAnalystAgent{base: newBase("analyst", model, AnalystSettings, opts)}
}

func (a *ContentAnalystAgent) Analyze(ctx context.Context, req Request) Result[ContentAnalysis] {
	return run(ctx, &a.base, analystSystemPrompt, buildAnalystPrompt(req), func(completion string) (ContentAnalysis, bool, error) {
		return FormatContentAnalysis(completion, req)
	})
}

func buildAnalystPrompt(req Request) string {
	var b strings.Builder
	writeRequestContext(&b, "Analyze the following content.", req)
	b.WriteString(`Return JSON with this shape:
{
  "summary": "two or three sentences",
  "keyPoints": ["up to 10 points"],
  "topics": ["up to 10 topics"],
  "tone": "tone of voice",
  "targetAudience": "who this is for",
  "contentType": "article | tutorial | announcement | opinion | news | story",
  "sentiment": "positive | neutral | negative",
  "readabilityScore": 0-100
}
`)
	return b.String()
}

// FormatContentAnalysis clamps the model's analysis into range. Word count and
// reading time always come from the source text.
func FormatContentAnalysis(completion string, req Request) (ContentAnalysis, bool, error) {
	words := len(strings.Fields(req.SourceText))
	payload, ok := decodePayload[analysisPayload](completion)
	if !ok {
		return heuristicAnalysis(req), false, nil
	}

	a := ContentAnalysis{
		Summary:        strings.TrimSpace(payload.Summary),
		KeyPoints:      capList(trimAll(payload.KeyPoints), maxAnalysisListItems),
		Topics:         capList(trimAll(payload.Topics), maxAnalysisListItems),
		Tone:           orDefault(payload.Tone, toneOrDefault(req.Tone)),
		TargetAudience: orDefault(payload.TargetAudience, audienceOrDefault(req.TargetAudience)),
		ContentType:    orDefault(strings.ToLower(payload.ContentType), detectContentType(req.SourceText)),
		Sentiment:      parseSentiment(payload.Sentiment),
		WordCount:      words,
		ReadingTime:    readingTime(words),
	}
	if payload.ReadabilityScore != nil {
		a.ReadabilityScore = clampScore(*payload.ReadabilityScore)
	} else {
		a.ReadabilityScore = readabilityScore(req.SourceText)
	}
	return a, true, nil
}

func heuristicAnalysis(req Request) ContentAnalysis {
	text := req.SourceText
	sentences := textutil.SplitSentences(text)
	words := len(strings.Fields(text))

	summary := strings.Join(sentences[:min(2, len(sentences))], " ")
	return ContentAnalysis{
		Summary:          truncateAtWord(summary, 300),
		KeyPoints:        capList(sentences, 5),
		Topics:           keywordTopics(text),
		Tone:             toneOrDefault(req.Tone),
		TargetAudience:   audienceOrDefault(req.TargetAudience),
		ContentType:      detectContentType(text),
		Sentiment:        detectSentiment(text),
		ReadabilityScore: readabilityScore(text),
		WordCount:        words,
		ReadingTime:      readingTime(words),
	}
}

func parseSentiment(s string) Sentiment {
	switch v := Sentiment(strings.ToLower(strings.TrimSpace(s))); v {
	case SentimentPositive, SentimentNegative:
		return v
	default:
		return SentimentNeutral
	}
}

var (
	positiveWords = []string{"great", "excellent", "success", "growth", "win", "love", "improve", "opportunity", "benefit", "excited", "best", "happy"}
	negativeWords = []string{"fail", "problem", "risk", "loss", "decline", "bad", "worst", "crisis", "struggle", "difficult", "concern", "mistake"}
)

func detectSentiment(text string) Sentiment {
	lower := strings.ToLower(text)
	pos, neg := 0, 0
	for _, w := range positiveWords {
		pos += strings.Count(lower, w)
	}
	for _, w := range negativeWords {
		neg += strings.Count(lower, w)
	}
	switch {
	case pos > neg:
		return SentimentPositive
	case neg > pos:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

func detectContentType(text string) string {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, "how to", "step-by-step", "guide", "tutorial"):
		return "tutorial"
	case containsAny(lower, "announce", "launch", "introducing", "breaking"):
		return "announcement"
	case containsAny(lower, "i think", "i believe", "in my opinion"):
		return "opinion"
	default:
		return "article"
	}
}

// readabilityScore starts at 100 and loses three points per word of average
// sentence length above 12.
func readabilityScore(text string) int {
	sentences := textutil.SplitSentences(text)
	if len(sentences) == 0 {
		return 0
	}
	avg := float64(len(strings.Fields(text))) / float64(len(sentences))
	return clampScore(100 - 3*math.Max(0, avg-12))
}

func clampScore(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return clamp(int(math.Round(math.Max(-1, math.Min(v, 101)))), 0, 100)
}

func audienceOrDefault(a string) string {
	return orDefault(a, "general audience")
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}

func capList(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return nonNil(items)
}
