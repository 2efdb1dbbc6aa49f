package enhanced

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tastesync/api_content/internal/memory"
	"tastesync/api_content/internal/research"
	"tastesync/api_content/internal/store"
	"tastesync/pkg/llm"
	"tastesync/pkg/search"
)

type fakeResearcher struct {
	insights    research.ResearchInsights
	researchErr error
	trending    []research.TrendingTopic
	trendingErr error
	verified    []research.Verification
	verifyErr   error
	claims      []string
}

func (f *fakeResearcher) ResearchContent(context.Context, research.ResearchRequest) (research.ResearchInsights, error) {
	return f.insights, f.researchErr
}

func (f *fakeResearcher) GetTrendingTopics(context.Context, research.TrendingRequest) (research.TrendingResponse, error) {
	return research.TrendingResponse{Topics: f.trending}, f.trendingErr
}

func (f *fakeResearcher) VerifyInformation(_ context.Context, claims []string) ([]research.Verification, error) {
	f.claims = claims
	return f.verified, f.verifyErr
}

type fakeMemory struct {
	mu           sync.Mutex
	recs         []string
	history      []memory.ConversationMemory
	interactions []memory.Interaction
	insights     []string
	storeErr     error
	prefs        *store.Preferences
	patterns     []store.ContentPattern
	summary      store.FeedbackSummary
	feedback     []store.Feedback
}

func (f *fakeMemory) GetPersonalizedRecommendations(context.Context, string, string) []string {
	return f.recs
}

func (f *fakeMemory) GetConversationHistory(context.Context, memory.Context, int) []memory.ConversationMemory {
	return f.history
}

func (f *fakeMemory) StoreInteraction(_ context.Context, _ memory.Context, in memory.Interaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interactions = append(f.interactions, in)
	return f.storeErr
}

func (f *fakeMemory) StoreInsight(_ context.Context, _ memory.Context, text string, _ map[string]any) error {
	f.insights = append(f.insights, text)
	return f.storeErr
}

func (f *fakeMemory) GetUserPreferences(context.Context, string) (store.Preferences, bool, error) {
	if f.prefs == nil {
		return store.Preferences{}, false, nil
	}
	return *f.prefs, true, nil
}

func (f *fakeMemory) GetSuccessfulPatterns(context.Context, string, string, int) ([]store.ContentPattern, error) {
	return f.patterns, nil
}

func (f *fakeMemory) StoreContentPattern(_ context.Context, p store.ContentPattern) (store.ContentPattern, error) {
	p.ID = "pattern-1"
	f.patterns = append(f.patterns, p)
	return p, nil
}

func (f *fakeMemory) StoreFeedback(_ context.Context, fb store.Feedback) (store.Feedback, error) {
	if f.storeErr != nil {
		return store.Feedback{}, f.storeErr
	}
	fb.ID = "feedback-1"
	f.feedback = append(f.feedback, fb)
	return fb, nil
}

func (f *fakeMemory) FeedbackSummary(context.Context, string) (store.FeedbackSummary, error) {
	return f.summary, nil
}

type recordingModel struct {
	reqs []llm.ChatRequest
	resp llm.ChatResponse
	err  error
}

func (m *recordingModel) Chat(_ context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	m.reqs = append(m.reqs, req)
	return m.resp, m.err
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func okModel() *recordingModel {
	return &recordingModel{resp: llm.ChatResponse{
		Content: "  Final post  ",
		Model:   "test-model",
		Usage:   llm.Usage{PromptTokens: 300, CompletionTokens: 120},
	}}
}

func sampleInsights() research.ResearchInsights {
	return research.ResearchInsights{
		Topic:    "remote work",
		Summary:  "Remote work keeps growing.",
		KeyFacts: []string{"58% of workers can work remotely."},
		Sources: []search.Result{
			{Title: "A", URL: "https://a.example/1"},
			{Title: "B", URL: "https://b.example/2"},
		},
	}
}

func TestGenerateEnhancedContentAllSources(t *testing.T) {
	model := okModel()
	res := &fakeResearcher{
		insights: sampleInsights(),
		trending: []research.TrendingTopic{{Topic: "async teams", Relevance: 0.4, Sources: []string{"https://a.example/1", "https://c.example/3"}}},
	}
	mem := &fakeMemory{
		recs:    []string{"Write in a witty tone"},
		history: []memory.ConversationMemory{{ID: "h1", Summary: "discussed hiring"}},
	}
	svc := NewService(model, res, mem, Options{Logger: quietLogger()})

	out, err := svc.GenerateEnhancedContent(context.Background(), Request{
		SourceText:      "Remote work is here to stay.",
		Platform:        "linkedin",
		IncludeResearch: true,
		IncludeTrending: true,
		UseMemory:       true,
		Memory:          memory.Context{UserID: "u1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Final post", out.Content)
	assert.Equal(t, 420, out.TokensUsed)
	assert.Equal(t, 1.0, out.Confidence)
	assert.Equal(t, []string{"https://a.example/1", "https://b.example/2", "https://c.example/3"}, out.Sources)
	assert.Empty(t, out.Warnings)
	require.Len(t, mem.interactions, 1)
	assert.Equal(t, "Final post", mem.interactions[0].Response)

	require.Len(t, model.reqs, 1)
	req := model.reqs[0]
	assert.InDelta(t, 0.7, req.Temperature, 1e-6)
	assert.Equal(t, 2000, req.MaxTokens)
	prompt := req.Messages[1].Content
	for _, want := range []string{"58% of workers", "async teams", "witty tone", "discussed hiring"} {
		assert.Contains(t, prompt, want)
	}
}

func TestGenerateEnhancedContentDegradesOnSourceFailure(t *testing.T) {
	model := okModel()
	res := &fakeResearcher{
		researchErr: errors.New("tavily down"),
		trending:    []research.TrendingTopic{{Topic: "ai agents", Sources: []string{"https://t.example"}}},
	}
	svc := NewService(model, res, &fakeMemory{}, Options{Logger: quietLogger()})

	out, err := svc.GenerateEnhancedContent(context.Background(), Request{
		SourceText:      "Something about AI.",
		Platform:        "twitter",
		IncludeResearch: true,
		IncludeTrending: true,
	})
	require.NoError(t, err)
	assert.Nil(t, out.Research)
	assert.Equal(t, 0.7, out.Confidence)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "tavily down")
	assert.Equal(t, []string{"https://t.example"}, out.Sources)
}

func TestGenerateEnhancedContentWithoutSources(t *testing.T) {
	svc := NewService(okModel(), &fakeResearcher{}, &fakeMemory{}, Options{Logger: quietLogger()})

	out, err := svc.GenerateEnhancedContent(context.Background(), Request{SourceText: "Plain text."})
	require.NoError(t, err)
	assert.Equal(t, 0.5, out.Confidence)
	assert.NotNil(t, out.Sources)
	assert.Empty(t, out.Sources)
}

func TestGenerateEnhancedContentMemoryWriteFailureKeepsResult(t *testing.T) {
	mem := &fakeMemory{storeErr: errors.New("mem0 timeout")}
	svc := NewService(okModel(), &fakeResearcher{}, mem, Options{Logger: quietLogger()})

	out, err := svc.GenerateEnhancedContent(context.Background(), Request{SourceText: "Hello.", UseMemory: true})
	require.NoError(t, err)
	assert.Equal(t, "Final post", out.Content)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "mem0 timeout")
}

func TestGenerateEnhancedContentGenerationFailure(t *testing.T) {
	model := &recordingModel{err: errors.New("rate limited")}
	svc := NewService(model, &fakeResearcher{}, &fakeMemory{}, Options{Logger: quietLogger()})

	_, err := svc.GenerateEnhancedContent(context.Background(), Request{SourceText: "Hello."})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "enhanced content generation failed: "))
	assert.Contains(t, err.Error(), "rate limited")
}

func TestGenerateEnhancedContentRequiresInput(t *testing.T) {
	svc := NewService(okModel(), &fakeResearcher{}, &fakeMemory{}, Options{Logger: quietLogger()})
	_, err := svc.GenerateEnhancedContent(context.Background(), Request{SourceText: "   "})
	assert.ErrorIs(t, err, ErrEmptySource)
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, 0.5, confidence(false, false, false))
	assert.Equal(t, 0.9, confidence(true, true, false))
	assert.Equal(t, 0.6, confidence(false, false, true))
	assert.Equal(t, 1.0, confidence(true, true, true))
}

func TestTopicOf(t *testing.T) {
	assert.Equal(t, "explicit", topicOf(Request{Topic: " explicit ", SourceText: "ignored"}))
	assert.Equal(t, "First line", topicOf(Request{SourceText: "First line\nsecond line"}))

	long := strings.Repeat("word ", 60)
	got := topicOf(Request{SourceText: long})
	assert.LessOrEqual(t, len([]rune(got)), maxTopicRunes)
	assert.False(t, strings.HasSuffix(got, " "))
}

func TestCreateResearchEnhancedContentVerifiesFacts(t *testing.T) {
	model := okModel()
	res := &fakeResearcher{
		insights: sampleInsights(),
		verified: []research.Verification{{Claim: "58% of workers can work remotely.", Verified: true, Confidence: 0.6}},
	}
	svc := NewService(model, res, &fakeMemory{}, Options{Logger: quietLogger()})

	out, err := svc.CreateResearchEnhancedContent(context.Background(), ResearchRequest{
		Topic: "remote work", Platform: "email", VerifyFacts: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"58% of workers can work remotely."}, res.claims)
	require.Len(t, out.Verifications, 1)
	assert.Len(t, out.Sources, 2)
	assert.Contains(t, model.reqs[0].Messages[1].Content, "[verified]")
}

func TestCreateResearchEnhancedContentNeedsResearch(t *testing.T) {
	model := okModel()
	svc := NewService(model, &fakeResearcher{researchErr: errors.New("no provider")}, &fakeMemory{}, Options{Logger: quietLogger()})

	_, err := svc.CreateResearchEnhancedContent(context.Background(), ResearchRequest{Topic: "x"})
	require.Error(t, err)
	assert.Empty(t, model.reqs, "no completion without research")
}

func TestVerifyContentClaims(t *testing.T) {
	res := &fakeResearcher{verified: []research.Verification{
		{Claim: "a", Verified: true, Confidence: 0.6},
		{Claim: "b", Verified: false, Confidence: 0},
	}}
	mem := &fakeMemory{}
	svc := NewService(okModel(), res, mem, Options{Logger: quietLogger()})

	content := "Hello there. Sales grew 40% last year! According to a study, people like cats. No claim here."
	report, err := svc.VerifyContentClaims(context.Background(), content, memory.Context{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Sales grew 40% last year!", "According to a study, people like cats."}, res.claims)
	assert.Equal(t, 1, report.VerifiedCount)
	assert.InDelta(t, 0.3, report.OverallConfidence, 1e-9)
	require.Len(t, mem.insights, 1)
}

func TestVerifyContentClaimsNoClaims(t *testing.T) {
	res := &fakeResearcher{}
	svc := NewService(okModel(), res, &fakeMemory{}, Options{Logger: quietLogger()})

	report, err := svc.VerifyContentClaims(context.Background(), "Just vibes. Nothing checkable.", memory.Context{})
	require.NoError(t, err)
	assert.Empty(t, report.Claims)
	assert.Nil(t, res.claims)
}

func TestGetPersonalizedAnalytics(t *testing.T) {
	mem := &fakeMemory{
		prefs: &store.Preferences{PreferredTone: "casual"},
		patterns: []store.ContentPattern{
			{Platform: "linkedin", ContentType: "product update", Structure: "steps", EngagementScore: 0.8},
			{Platform: "linkedin", ContentType: "product update", Structure: "steps", EngagementScore: 0.6},
			{Platform: "twitter", ContentType: "news", Structure: "hook", EngagementScore: 0.9},
		},
		summary: store.FeedbackSummary{Count: 3, AverageRating: 4, ByPlatform: map[string]float64{"twitter": 3.5, "linkedin": 4.5}},
		recs:    []string{"Write in a casual tone"},
	}
	svc := NewService(okModel(), &fakeResearcher{}, mem, Options{Logger: quietLogger()})

	a, err := svc.GetPersonalizedAnalytics(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, a.Preferences)
	require.Len(t, a.TopPatterns, 2)
	assert.Equal(t, "Product Update on Linkedin", a.TopPatterns[0].Label)
	assert.Equal(t, 2, a.TopPatterns[0].Count)
	assert.InDelta(t, 0.7, a.TopPatterns[0].AverageEngagement, 1e-9)
	assert.Equal(t, "steps", a.TopPatterns[0].MostUsedStructure)
	assert.Equal(t, "linkedin", a.BestPlatform)
	assert.Equal(t, []string{"Write in a casual tone"}, a.Recommendations)
}

func TestStoreFeedbackRecordsPattern(t *testing.T) {
	mem := &fakeMemory{}
	svc := NewService(okModel(), &fakeResearcher{}, mem, Options{Logger: quietLogger()})

	res, err := svc.StoreFeedback(context.Background(), "u1", FeedbackRequest{
		Rating: 5, Platform: "twitter", ContentType: "thread", Structure: "hook-list",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Pattern)
	assert.True(t, res.Pattern.Successful)
	assert.Equal(t, 1.0, res.Pattern.EngagementScore)

	res, err = svc.StoreFeedback(context.Background(), "u1", FeedbackRequest{Rating: 2})
	require.NoError(t, err)
	assert.Nil(t, res.Pattern)
	assert.Len(t, mem.feedback, 2)
}
