package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"tastesync/api_content/internal/agents"
	"tastesync/api_content/internal/enhanced"
	"tastesync/api_content/internal/inflight"
	"tastesync/api_content/internal/memory"
	"tastesync/api_content/internal/research"
	"tastesync/api_content/internal/store"
	"tastesync/pkg/ctxkeys"
	"tastesync/pkg/llm"
	"tastesync/pkg/logging"
	"tastesync/pkg/mem0"
)

const testClerkID = "user_clerk_1"

type fakeStore struct {
	mu      sync.Mutex
	user    store.User
	docs    map[string]store.Document
	charges []store.Charge
	content []store.GeneratedContent
}

func newFakeStore(credits int64) *fakeStore {
	return &fakeStore{
		user: store.User{ID: "user-1", ClerkID: testClerkID, Credits: credits},
		docs: map[string]store.Document{},
	}
}

func (s *fakeStore) EnsureUser(_ context.Context, clerkID, email, _ string, _ int64) (store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user.ClerkID, s.user.Email = clerkID, email
	return s.user, nil
}

func (s *fakeStore) CreateDocument(_ context.Context, userID, title, content string) (store.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := store.Document{ID: fmt.Sprintf("doc-%d", len(s.docs)+1), UserID: userID, Title: title, Content: content}
	s.docs[d.ID] = d
	return d, nil
}

func (s *fakeStore) ListDocuments(_ context.Context, userID string, _, _ int) ([]store.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Document
	for _, d := range s.docs {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *fakeStore) GetDocument(_ context.Context, userID, id string) (store.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok || d.UserID != userID {
		return store.Document{}, store.ErrNotFound
	}
	return d, nil
}

func (s *fakeStore) DeleteDocument(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok || d.UserID != userID {
		return store.ErrNotFound
	}
	delete(s.docs, id)
	return nil
}

func (s *fakeStore) ChargeUsage(_ context.Context, c store.Charge) (store.ChargeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cost := int64(c.Usage.TotalTokens)
	if s.user.Credits < cost {
		return store.ChargeResult{}, store.ErrInsufficientCredits
	}
	s.user.Credits -= cost
	s.charges = append(s.charges, c)
	res := store.ChargeResult{RemainingCredits: s.user.Credits, UsageID: "usage-1", CreatedAt: time.Now()}
	if c.Content != nil {
		saved := *c.Content
		saved.ID = fmt.Sprintf("content-%d", len(s.content)+1)
		s.content = append(s.content, saved)
		res.ContentID = saved.ID
	}
	return res, nil
}

func (s *fakeStore) ListContent(_ context.Context, _, _ string, _, _ int) ([]store.GeneratedContent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.GeneratedContent(nil), s.content...), nil
}

func (s *fakeStore) GetContent(_ context.Context, _, id string) (store.GeneratedContent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.content {
		if c.ID == id {
			return c, nil
		}
	}
	return store.GeneratedContent{}, store.ErrNotFound
}

func (s *fakeStore) DeleteContent(ctx context.Context, userID, id string) error {
	_, err := s.GetContent(ctx, userID, id)
	return err
}

func (s *fakeStore) GetUsageSummary(_ context.Context, _ string, _ time.Time) (store.UsageSummary, error) {
	return store.UsageSummary{ByModel: map[string]store.UsageBucket{}, ByOperation: map[string]store.UsageBucket{}}, nil
}

type recordedUsage struct {
	userID, operation string
	usage             llm.Usage
}

type usageStub struct {
	mu    sync.Mutex
	calls []recordedUsage
}

func (u *usageStub) RecordGeneration(userID, operation string, usage llm.Usage) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls = append(u.calls, recordedUsage{userID, operation, usage})
}

type researchStub struct {
	searchErr error
}

func (r researchStub) Search(_ context.Context, req research.SearchRequest) (research.SearchResponse, error) {
	if r.searchErr != nil {
		return research.SearchResponse{}, r.searchErr
	}
	return research.SearchResponse{Query: req.Query}, nil
}

func (r researchStub) GetTrendingTopics(_ context.Context, req research.TrendingRequest) (research.TrendingResponse, error) {
	return research.TrendingResponse{Platform: req.Platform}, nil
}

type enhancerStub struct {
	feedbackErr error
}

func (e enhancerStub) GenerateEnhancedContent(_ context.Context, req enhanced.Request) (enhanced.Content, error) {
	return enhanced.Content{
		Content:    "Enhanced post",
		Platform:   req.Platform,
		TokensUsed: 30,
		Model:      "test-model",
		Usage:      llm.Usage{PromptTokens: 20, CompletionTokens: 10, TotalTokens: 30},
	}, nil
}

func (e enhancerStub) CreateResearchEnhancedContent(_ context.Context, req enhanced.ResearchRequest) (enhanced.ResearchContent, error) {
	return enhanced.ResearchContent{}, errors.New("research-enhanced content failed: no results")
}

func (e enhancerStub) VerifyContentClaims(_ context.Context, _ string, _ memory.Context) (enhanced.ClaimsReport, error) {
	return enhanced.ClaimsReport{}, nil
}

func (e enhancerStub) GetPersonalizedAnalytics(_ context.Context, userID string) (enhanced.Analytics, error) {
	return enhanced.Analytics{UserID: userID}, nil
}

func (e enhancerStub) StoreFeedback(_ context.Context, userID string, req enhanced.FeedbackRequest) (enhanced.FeedbackResult, error) {
	if e.feedbackErr != nil {
		return enhanced.FeedbackResult{}, e.feedbackErr
	}
	return enhanced.FeedbackResult{Feedback: store.Feedback{UserID: userID, Rating: req.Rating}}, nil
}

type memoryStub struct {
	mu    sync.Mutex
	prefs *store.Preferences
	turns []memory.Turn
	mc    memory.Context
}

func (m *memoryStub) GetUserPreferences(context.Context, string) (store.Preferences, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prefs == nil {
		return store.Preferences{}, false, nil
	}
	return *m.prefs, true, nil
}

func (m *memoryStub) StoreUserPreferences(_ context.Context, _ string, p store.Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs = &p
	return nil
}

func (m *memoryStub) StoreConversation(_ context.Context, mc memory.Context, turns []memory.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mc, m.turns = mc, turns
	return nil
}

func (m *memoryStub) GetConversationHistory(context.Context, memory.Context, int) []memory.ConversationMemory {
	return []memory.ConversationMemory{}
}

func (m *memoryStub) SearchMemories(context.Context, string, string, int) []mem0.Memory {
	return []mem0.Memory{}
}

type handlerHarness struct {
	router   *gin.Engine
	store    *fakeStore
	usage    *usageStub
	memory   *memoryStub
	registry *inflight.Registry
	calls    int
}

type harnessOptions struct {
	credits   int64
	chat      func(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error)
	research  researchStub
	enhancer  enhancerStub
	canceller inflight.Canceller
}

func setupHandler(t *testing.T, opts harnessOptions) *handlerHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := &handlerHarness{
		store:    newFakeStore(opts.credits),
		usage:    &usageStub{},
		memory:   &memoryStub{},
		registry: inflight.NewRegistry(),
	}
	chat := opts.chat
	if chat == nil {
		chat = func(context.Context, llm.ChatRequest) (llm.ChatResponse, error) {
			return llm.ChatResponse{
				Content: `{"tweets":["short one"],"hashtags":[]}`,
				Model:   "test-model",
				Usage:   llm.Usage{PromptTokens: 30, CompletionTokens: 12, TotalTokens: 42},
			}, nil
		}
	}
	model := llm.ChatFunc(func(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
		h.calls++
		return chat(ctx, req)
	})
	logger := logging.NewLogger()

	handler := New(Config{
		Store:          h.store,
		Agents:         agents.NewSuite(model, agents.Options{Logger: logger}, nil),
		Enhancer:       opts.enhancer,
		Research:       opts.research,
		Memory:         h.memory,
		Usage:          h.usage,
		Registry:       h.registry,
		Canceller:      opts.canceller,
		Logger:         logger,
		InitialCredits: 1000,
		ModelLabel:     "fallback-model",
	})

	auth := func(c *gin.Context) {
		ctx := context.WithValue(c.Request.Context(), ctxkeys.KeyUserID, testClerkID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
	h.router = gin.New()
	handler.Register(h.router.Group("/api"), auth, nil)
	return h
}

func (h *handlerHarness) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	h.router.ServeHTTP(resp, req)
	return resp
}

type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, resp *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", resp.Body.String(), err)
	}
	return env
}

func TestGenerateChargesAndSavesContent(t *testing.T) {
	h := setupHandler(t, harnessOptions{credits: 1000})

	resp := h.do(http.MethodPost, "/api/generate", map[string]any{
		"sourceText": "Some article",
		"platform":   "twitter",
		"tone":       "witty",
		"requestId":  "req-1",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	env := decode(t, resp)
	var data struct {
		ID               string `json:"id"`
		RequestID        string `json:"requestId"`
		TokensUsed       int    `json:"tokensUsed"`
		RemainingCredits int64  `json:"remainingCredits"`
		Content          struct {
			Tweets []string `json:"tweets"`
			Thread bool     `json:"thread"`
		} `json:"content"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.ID != "content-1" || data.RequestID != "req-1" {
		t.Fatalf("unexpected ids: %+v", data)
	}
	if data.TokensUsed != 42 || data.RemainingCredits != 958 {
		t.Fatalf("unexpected accounting: %+v", data)
	}
	if len(data.Content.Tweets) != 1 || data.Content.Tweets[0] != "short one" || data.Content.Thread {
		t.Fatalf("unexpected content: %+v", data.Content)
	}

	if len(h.store.charges) != 1 {
		t.Fatalf("expected one charge, got %d", len(h.store.charges))
	}
	charge := h.store.charges[0]
	if charge.Usage.Operation != opGenerate || charge.Usage.Model != "test-model" {
		t.Fatalf("unexpected usage row: %+v", charge.Usage)
	}
	if charge.Usage.PromptTokens != 30 || charge.Usage.CompletionTokens != 12 {
		t.Fatalf("expected prompt/completion split, got %+v", charge.Usage)
	}
	if charge.Content == nil || charge.Content.Platform != "twitter" || charge.Content.Tone != "witty" {
		t.Fatalf("unexpected content row: %+v", charge.Content)
	}
	if len(h.usage.calls) != 1 || h.usage.calls[0].userID != "user-1" {
		t.Fatalf("expected one usage record, got %+v", h.usage.calls)
	}
	if h.registry.Len() != 0 {
		t.Fatalf("expected registry to be empty after generation")
	}
}

func TestGenerateRejectsEmptyBalanceBeforeCallingModel(t *testing.T) {
	h := setupHandler(t, harnessOptions{credits: 0})

	resp := h.do(http.MethodPost, "/api/generate", map[string]any{"sourceText": "text", "platform": "linkedin"})
	if resp.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", resp.Code)
	}
	if h.calls != 0 {
		t.Fatalf("expected no model call, got %d", h.calls)
	}
}

func TestGenerateInsufficientCreditsPersistsNothing(t *testing.T) {
	h := setupHandler(t, harnessOptions{credits: 10})

	resp := h.do(http.MethodPost, "/api/generate", map[string]any{"sourceText": "text", "platform": "twitter"})
	if resp.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", resp.Code)
	}
	if len(h.store.content) != 0 || len(h.store.charges) != 0 {
		t.Fatalf("expected nothing persisted")
	}
	if h.store.user.Credits != 10 {
		t.Fatalf("expected credits untouched, got %d", h.store.user.Credits)
	}
	if len(h.usage.calls) != 0 {
		t.Fatalf("expected no usage record")
	}
}

func TestGenerateAgentFailureReturnsBadGateway(t *testing.T) {
	h := setupHandler(t, harnessOptions{
		credits: 1000,
		chat: func(context.Context, llm.ChatRequest) (llm.ChatResponse, error) {
			return llm.ChatResponse{}, errors.New("upstream down")
		},
	})

	resp := h.do(http.MethodPost, "/api/generate", map[string]any{"sourceText": "text", "platform": "email"})
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
	env := decode(t, resp)
	if env.Success || env.Error == "" {
		t.Fatalf("expected failure envelope, got %+v", env)
	}
	if len(h.store.charges) != 0 {
		t.Fatalf("failed generations must not be charged")
	}
}

func TestGenerateValidation(t *testing.T) {
	h := setupHandler(t, harnessOptions{credits: 1000})

	cases := []struct {
		name string
		body map[string]any
		want int
	}{
		{"unknown platform", map[string]any{"sourceText": "text", "platform": "myspace"}, http.StatusBadRequest},
		{"missing platform", map[string]any{"sourceText": "text"}, http.StatusBadRequest},
		{"no source", map[string]any{"platform": "twitter"}, http.StatusBadRequest},
		{"missing document", map[string]any{"platform": "twitter", "documentId": "nope"}, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := h.do(http.MethodPost, "/api/generate", tc.body)
			if resp.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, resp.Code)
			}
		})
	}
	if h.calls != 0 {
		t.Fatalf("expected no model calls, got %d", h.calls)
	}
}

func TestGenerateFromDocument(t *testing.T) {
	h := setupHandler(t, harnessOptions{credits: 1000})
	doc, _ := h.store.CreateDocument(context.Background(), "user-1", "Notes", "Document body")

	resp := h.do(http.MethodPost, "/api/generate", map[string]any{"documentId": doc.ID, "platform": "x"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	saved := h.store.content[0]
	if saved.DocumentID == nil || *saved.DocumentID != doc.ID {
		t.Fatalf("expected content linked to document, got %+v", saved.DocumentID)
	}
}

func TestGenerateCancelledMidFlight(t *testing.T) {
	var h *handlerHarness
	h = setupHandler(t, harnessOptions{
		credits: 1000,
		chat: func(ctx context.Context, _ llm.ChatRequest) (llm.ChatResponse, error) {
			if err := h.registry.Cancel("req-cancel", "user-1"); err != nil {
				return llm.ChatResponse{}, err
			}
			<-ctx.Done()
			return llm.ChatResponse{}, ctx.Err()
		},
	})

	resp := h.do(http.MethodPost, "/api/generate", map[string]any{
		"sourceText": "text",
		"platform":   "twitter",
		"requestId":  "req-cancel",
	})
	if resp.Code != statusClientClosedRequest {
		t.Fatalf("expected 499, got %d: %s", resp.Code, resp.Body.String())
	}
	if len(h.store.charges) != 0 {
		t.Fatalf("cancelled generations must not be charged")
	}
}

func TestCancelGeneration(t *testing.T) {
	h := setupHandler(t, harnessOptions{credits: 1000})

	if resp := h.do(http.MethodDelete, "/api/generate/unknown", nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown request, got %d", resp.Code)
	}

	_, releaseOther, err := h.registry.Register(context.Background(), "req-other", "someone-else")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	defer releaseOther()
	if resp := h.do(http.MethodDelete, "/api/generate/req-other", nil); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign request, got %d", resp.Code)
	}

	ctx, release, err := h.registry.Register(context.Background(), "req-mine", "user-1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	defer release()
	if resp := h.do(http.MethodDelete, "/api/generate/req-mine", nil); resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if ctx.Err() == nil {
		t.Fatalf("expected generation context to be cancelled")
	}
}

type forwardingCanceller struct{}

func (forwardingCanceller) Cancel(context.Context, string, string) (inflight.Outcome, error) {
	return inflight.Forwarded, nil
}

func TestCancelGenerationForwarded(t *testing.T) {
	h := setupHandler(t, harnessOptions{credits: 1000, canceller: forwardingCanceller{}})

	resp := h.do(http.MethodDelete, "/api/generate/req-elsewhere", nil)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", resp.Code, resp.Body.String())
	}
	var body struct {
		Success bool `json:"success"`
		Data    struct {
			RequestID       string `json:"requestId"`
			CancelRequested bool   `json:"cancelRequested"`
			Cancelled       bool   `json:"cancelled"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.Data.RequestID != "req-elsewhere" || !body.Data.CancelRequested || body.Data.Cancelled {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}
}

func TestGenerateRejectsRequestIDInFlight(t *testing.T) {
	h := setupHandler(t, harnessOptions{credits: 1000})

	ctx, release, err := h.registry.Register(context.Background(), "req-dup", "someone-else")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	defer release()

	resp := h.do(http.MethodPost, "/api/generate", map[string]any{
		"sourceText": "text",
		"platform":   "twitter",
		"requestId":  "req-dup",
	})
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", resp.Code, resp.Body.String())
	}
	if h.calls != 0 || len(h.store.charges) != 0 {
		t.Fatalf("duplicate id must not reach the model: calls=%d charges=%d", h.calls, len(h.store.charges))
	}
	if h.registry.Len() != 1 || ctx.Err() != nil {
		t.Fatalf("original generation disturbed: len=%d err=%v", h.registry.Len(), ctx.Err())
	}
}

func TestAnalyzeChargesWithoutSavingContent(t *testing.T) {
	h := setupHandler(t, harnessOptions{
		credits: 1000,
		chat: func(context.Context, llm.ChatRequest) (llm.ChatResponse, error) {
			return llm.ChatResponse{
				Content: "not json at all, just prose about a product launch",
				Usage:   llm.Usage{TotalTokens: 15},
			}, nil
		},
	})

	resp := h.do(http.MethodPost, "/api/analyze", map[string]any{"sourceText": "We are launching a new product today."})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if len(h.store.charges) != 1 || h.store.charges[0].Content != nil {
		t.Fatalf("expected a usage-only charge, got %+v", h.store.charges)
	}
	usage := h.store.charges[0].Usage
	if usage.Operation != opAnalyze || usage.Model != "fallback-model" || usage.TotalTokens != 15 {
		t.Fatalf("unexpected usage row: %+v", usage)
	}
}

func TestDocumentsLifecycle(t *testing.T) {
	h := setupHandler(t, harnessOptions{credits: 1000})

	if resp := h.do(http.MethodPost, "/api/documents", map[string]any{"title": "Draft"}); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without content, got %d", resp.Code)
	}
	resp := h.do(http.MethodPost, "/api/documents", map[string]any{"title": "Draft", "content": "Hello world"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	if resp := h.do(http.MethodGet, "/api/documents/doc-1", nil); resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if resp := h.do(http.MethodDelete, "/api/documents/doc-1", nil); resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if resp := h.do(http.MethodGet, "/api/documents/doc-1", nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.Code)
	}
}

func TestUsageRejectsOutOfRangeDays(t *testing.T) {
	h := setupHandler(t, harnessOptions{credits: 1000})

	if resp := h.do(http.MethodGet, "/api/users/me/usage?days=0", nil); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if resp := h.do(http.MethodGet, "/api/users/me/usage", nil); resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestEnhancedGenerateCharges(t *testing.T) {
	h := setupHandler(t, harnessOptions{credits: 1000})

	resp := h.do(http.MethodPost, "/api/enhanced/generate", map[string]any{"topic": "AI agents", "platform": "linkedin"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if len(h.store.charges) != 1 {
		t.Fatalf("expected one charge")
	}
	if got := h.store.charges[0].Usage; got.Operation != opEnhanced || got.TotalTokens != 30 {
		t.Fatalf("unexpected usage row: %+v", got)
	}

	if resp := h.do(http.MethodPost, "/api/enhanced/generate", map[string]any{"platform": "linkedin"}); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without source or topic, got %d", resp.Code)
	}
}

func TestEnhancedResearchFailureIsBadGateway(t *testing.T) {
	h := setupHandler(t, harnessOptions{credits: 1000})

	resp := h.do(http.MethodPost, "/api/enhanced/research", map[string]any{"topic": "AI agents", "platform": "twitter"})
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
}

func TestFeedbackValidation(t *testing.T) {
	h := setupHandler(t, harnessOptions{
		credits:  1000,
		enhancer: enhancerStub{feedbackErr: fmt.Errorf("%w: got 9", memory.ErrInvalidRating)},
	})

	if resp := h.do(http.MethodPost, "/api/enhanced/feedback", map[string]any{"rating": 9}); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if resp := h.do(http.MethodPost, "/api/enhanced/feedback", map[string]any{"rating": 4, "contentId": "missing"}); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown content, got %d", resp.Code)
	}
}

func TestResearchSearchEmptyQuery(t *testing.T) {
	h := setupHandler(t, harnessOptions{credits: 1000, research: researchStub{searchErr: research.ErrEmptyQuery}})

	if resp := h.do(http.MethodPost, "/api/research/search", map[string]any{"query": ""}); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestPreferencesRoundTrip(t *testing.T) {
	h := setupHandler(t, harnessOptions{credits: 1000})

	resp := h.do(http.MethodGet, "/api/users/me/preferences", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	resp = h.do(http.MethodPut, "/api/users/me/preferences", map[string]any{"preferredTone": "casual"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if h.memory.prefs == nil || h.memory.prefs.PreferredTone != "casual" {
		t.Fatalf("expected preferences to be stored, got %+v", h.memory.prefs)
	}
}

func TestStoreConversation(t *testing.T) {
	h := setupHandler(t, harnessOptions{credits: 1000})

	if resp := h.do(http.MethodPost, "/api/memories/conversations", map[string]any{"conversationId": "conv-1"}); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without turns, got %d", resp.Code)
	}
	resp := h.do(http.MethodPost, "/api/memories/conversations", map[string]any{
		"conversationId": "conv-1",
		"turns":          []map[string]string{{"role": "user", "content": "Make it punchier"}},
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if h.memory.mc.UserID != "user-1" || h.memory.mc.ConversationID != "conv-1" || len(h.memory.turns) != 1 {
		t.Fatalf("unexpected stored conversation: %+v %+v", h.memory.mc, h.memory.turns)
	}
	if resp := h.do(http.MethodGet, "/api/memories/search", nil); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without q, got %d", resp.Code)
	}
}
