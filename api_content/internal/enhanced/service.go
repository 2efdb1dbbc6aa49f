// Package enhanced combines research, trending topics and memory into a
// single context-rich generation call.
package enhanced

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tastesync/api_content/internal/memory"
	"tastesync/api_content/internal/research"
	"tastesync/api_content/internal/store"
	"tastesync/pkg/llm"
	"tastesync/pkg/logging"
)

// Generation settings for the enhanced call.
const (
	temperature = 0.7
	maxTokens   = 2000
)

// Researcher is the subset of *research.Service the orchestrator uses.
type Researcher interface {
	ResearchContent(ctx context.Context, req research.ResearchRequest) (research.ResearchInsights, error)
	GetTrendingTopics(ctx context.Context, req research.TrendingRequest) (research.TrendingResponse, error)
	VerifyInformation(ctx context.Context, claims []string) ([]research.Verification, error)
}

// Memory is the subset of *memory.Service the orchestrator uses.
type Memory interface {
	GetPersonalizedRecommendations(ctx context.Context, userID, platform string) []string
	GetConversationHistory(ctx context.Context, mc memory.Context, limit int) []memory.ConversationMemory
	StoreInteraction(ctx context.Context, mc memory.Context, in memory.Interaction) error
	StoreInsight(ctx context.Context, mc memory.Context, text string, extra map[string]any) error
	GetUserPreferences(ctx context.Context, userID string) (store.Preferences, bool, error)
	GetSuccessfulPatterns(ctx context.Context, userID, platform string, limit int) ([]store.ContentPattern, error)
	StoreContentPattern(ctx context.Context, p store.ContentPattern) (store.ContentPattern, error)
	StoreFeedback(ctx context.Context, f store.Feedback) (store.Feedback, error)
	FeedbackSummary(ctx context.Context, userID string) (store.FeedbackSummary, error)
}

// Metrics is optional.
type Metrics struct {
	SourceFailures *prometheus.CounterVec // source
	Generations    *prometheus.CounterVec // kind, outcome
}

func (m *Metrics) sourceFailed(source string) {
	if m != nil && m.SourceFailures != nil {
		m.SourceFailures.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) generation(kind string, err error) {
	if m == nil || m.Generations == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.Generations.WithLabelValues(kind, outcome).Inc()
}

type Options struct {
	Logger  logging.Logger
	Metrics *Metrics
}

type Service struct {
	model    llm.ChatModel
	research Researcher
	memory   Memory
	logger   logging.Logger
	metrics  *Metrics
}

func NewService(model llm.ChatModel, researcher Researcher, mem Memory, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &Service{model: model, research: researcher, memory: mem, logger: logger, metrics: opts.Metrics}
}

var ErrEmptySource = errors.New("enhanced: source text or topic is required")

// chat issues the single completion call of an enhanced operation.
func (s *Service) chat(ctx context.Context, system, user string) (llm.ChatResponse, error) {
	if s.model == nil {
		return llm.ChatResponse{}, errors.New("chat model not configured")
	}
	start := time.Now()
	resp, err := s.model.Chat(ctx, llm.ChatRequest{
		Messages:    []llm.Message{llm.System(system), llm.User(user)},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	s.logger.WithFields(logging.Fields{
		"duration_ms": time.Since(start).Milliseconds(),
		"tokens":      resp.Usage.TotalTokens,
	}).Debug("Enhanced completion finished")
	if err != nil {
		return llm.ChatResponse{}, err
	}
	if resp.Usage.TotalTokens == 0 {
		resp.Usage.TotalTokens = resp.Usage.PromptTokens + resp.Usage.CompletionTokens
	}
	return resp, nil
}

// confidence starts at 0.5 and rises with each kind of supporting context.
func confidence(research, trending, recommendations bool) float64 {
	c := 0.5
	if research {
		c += 0.2
	}
	if trending {
		c += 0.2
	}
	if recommendations {
		c += 0.1
	}
	return math.Round(math.Min(c, 1)*100) / 100
}

func appendUnique(dst []string, seen map[string]struct{}, urls ...string) []string {
	for _, u := range urls {
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		dst = append(dst, u)
	}
	return dst
}

func memoryContext(userID string, mc memory.Context) memory.Context {
	if mc.UserID == "" {
		mc.UserID = userID
	}
	return mc
}

func warnf(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
