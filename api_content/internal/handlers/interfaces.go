package handlers

import (
	"context"
	"time"

	"tastesync/api_content/internal/agents"
	"tastesync/api_content/internal/enhanced"
	"tastesync/api_content/internal/memory"
	"tastesync/api_content/internal/research"
	"tastesync/api_content/internal/store"
	"tastesync/pkg/llm"
	"tastesync/pkg/mem0"
)

// Store is implemented by *store.Store.
type Store interface {
	EnsureUser(ctx context.Context, clerkID, email, name string, initialCredits int64) (store.User, error)
	CreateDocument(ctx context.Context, userID, title, content string) (store.Document, error)
	ListDocuments(ctx context.Context, userID string, limit, offset int) ([]store.Document, error)
	GetDocument(ctx context.Context, userID, id string) (store.Document, error)
	DeleteDocument(ctx context.Context, userID, id string) error
	ChargeUsage(ctx context.Context, c store.Charge) (store.ChargeResult, error)
	ListContent(ctx context.Context, userID, platform string, limit, offset int) ([]store.GeneratedContent, error)
	GetContent(ctx context.Context, userID, id string) (store.GeneratedContent, error)
	DeleteContent(ctx context.Context, userID, id string) error
	GetUsageSummary(ctx context.Context, userID string, since time.Time) (store.UsageSummary, error)
}

// Agents is implemented by *agents.Suite.
type Agents interface {
	Generate(ctx context.Context, platform agents.Platform, req agents.Request) agents.Result[agents.PlatformContent]
	Analyze(ctx context.Context, req agents.Request) agents.Result[agents.ContentAnalysis]
	SuggestPlatforms(ctx context.Context, req agents.Request) agents.Result[agents.PlatformRecommendation]
	Optimize(c agents.PlatformContent) agents.PlatformContent
}

// Enhancer is implemented by *enhanced.Service.
type Enhancer interface {
	GenerateEnhancedContent(ctx context.Context, req enhanced.Request) (enhanced.Content, error)
	CreateResearchEnhancedContent(ctx context.Context, req enhanced.ResearchRequest) (enhanced.ResearchContent, error)
	VerifyContentClaims(ctx context.Context, content string, mc memory.Context) (enhanced.ClaimsReport, error)
	GetPersonalizedAnalytics(ctx context.Context, userID string) (enhanced.Analytics, error)
	StoreFeedback(ctx context.Context, userID string, req enhanced.FeedbackRequest) (enhanced.FeedbackResult, error)
}

// Researcher is implemented by *research.Service.
type Researcher interface {
	Search(ctx context.Context, req research.SearchRequest) (research.SearchResponse, error)
	GetTrendingTopics(ctx context.Context, req research.TrendingRequest) (research.TrendingResponse, error)
}

// Memory is implemented by *memory.Service.
type Memory interface {
	GetUserPreferences(ctx context.Context, userID string) (store.Preferences, bool, error)
	StoreUserPreferences(ctx context.Context, userID string, p store.Preferences) error
	StoreConversation(ctx context.Context, mc memory.Context, turns []memory.Turn) error
	GetConversationHistory(ctx context.Context, mc memory.Context, limit int) []memory.ConversationMemory
	SearchMemories(ctx context.Context, userID, query string, limit int) []mem0.Memory
}

// UsageRecorder is implemented by *metering.UsageTracker.
type UsageRecorder interface {
	RecordGeneration(userID, operation string, usage llm.Usage)
}
