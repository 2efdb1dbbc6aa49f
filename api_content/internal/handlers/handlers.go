// Package handlers exposes the content service over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tastesync/api_content/internal/inflight"
	"tastesync/api_content/internal/store"
	"tastesync/pkg/ctxkeys"
	"tastesync/pkg/llm"
	"tastesync/pkg/logging"
)

const (
	userKey = "tastesync_user"

	// statusClientClosedRequest is reported when the caller cancelled the
	// generation.
	statusClientClosedRequest = 499
)

type Config struct {
	Store     Store
	Agents    Agents
	Enhancer  Enhancer
	Research  Researcher
	Memory    Memory
	Usage     UsageRecorder
	Registry  *inflight.Registry
	Canceller inflight.Canceller
	Metrics   *ContentMetrics
	Logger    logging.Logger

	InitialCredits int64
	ModelLabel     string
}

type Handler struct {
	store          Store
	agents         Agents
	enhancer       Enhancer
	research       Researcher
	memory         Memory
	usage          UsageRecorder
	registry       *inflight.Registry
	canceller      inflight.Canceller
	metrics        *ContentMetrics
	logger         logging.Logger
	initialCredits int64
	modelLabel     string
}

func New(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewLogger()
	}
	registry := cfg.Registry
	if registry == nil {
		registry = inflight.NewRegistry()
	}
	canceller := cfg.Canceller
	if canceller == nil {
		canceller = inflight.Local{Registry: registry}
	}
	return &Handler{
		store:          cfg.Store,
		agents:         cfg.Agents,
		enhancer:       cfg.Enhancer,
		research:       cfg.Research,
		memory:         cfg.Memory,
		usage:          cfg.Usage,
		registry:       registry,
		canceller:      canceller,
		metrics:        cfg.Metrics,
		logger:         logger,
		initialCredits: cfg.InitialCredits,
		modelLabel:     cfg.ModelLabel,
	}
}

// Register mounts the authenticated API on api. auth must run first and put
// the Clerk user id on the request context; limit guards model-backed routes
// and may be nil.
func (h *Handler) Register(api *gin.RouterGroup, auth, limit gin.HandlerFunc) {
	api.Use(auth, h.resolveUser)

	model := []gin.HandlerFunc{}
	if limit != nil {
		model = append(model, limit)
	}
	withLimit := func(fn gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, model...), fn)
	}

	users := api.Group("/users/me")
	users.GET("", h.GetMe)
	users.GET("/usage", h.GetUsage)
	users.GET("/preferences", h.GetPreferences)
	users.PUT("/preferences", h.PutPreferences)

	docs := api.Group("/documents")
	docs.POST("", h.CreateDocument)
	docs.GET("", h.ListDocuments)
	docs.GET("/:id", h.GetDocument)
	docs.DELETE("/:id", h.DeleteDocument)

	api.POST("/generate", withLimit(h.Generate)...)
	api.DELETE("/generate/:requestId", h.CancelGeneration)
	api.POST("/analyze", withLimit(h.Analyze)...)
	api.POST("/suggest-platforms", withLimit(h.SuggestPlatforms)...)

	content := api.Group("/content")
	content.GET("", h.ListContent)
	content.GET("/:id", h.GetContent)
	content.DELETE("/:id", h.DeleteContent)

	enh := api.Group("/enhanced")
	enh.POST("/generate", withLimit(h.EnhancedGenerate)...)
	enh.POST("/research", withLimit(h.EnhancedResearch)...)
	enh.POST("/verify", withLimit(h.EnhancedVerify)...)
	enh.GET("/analytics", h.EnhancedAnalytics)
	enh.POST("/feedback", h.EnhancedFeedback)

	mem := api.Group("/memories")
	mem.GET("/search", h.SearchMemories)
	mem.GET("/conversations", h.ConversationHistory)
	mem.POST("/conversations", h.StoreConversation)

	res := api.Group("/research")
	res.GET("/trending", withLimit(h.Trending)...)
	res.POST("/search", withLimit(h.Search)...)
}

// resolveUser maps the Clerk subject onto the local user row, creating it
// with the starting credit grant on first sight.
func (h *Handler) resolveUser(c *gin.Context) {
	clerkID := ctxkeys.GetUserID(c.Request.Context())
	if clerkID == "" {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	user, err := h.store.EnsureUser(c.Request.Context(), clerkID, c.GetString(string(ctxkeys.KeyEmail)), "", h.initialCredits)
	if err != nil {
		h.logger.WithError(err).WithField("clerk_id", clerkID).Error("Failed to resolve user")
		respondError(c, http.StatusInternalServerError, "Failed to load user")
		return
	}
	c.Set(userKey, user)
	c.Next()
}

func currentUser(c *gin.Context) store.User {
	u, _ := c.MustGet(userKey).(store.User)
	return u
}

func respondError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": msg})
}

func respondData(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// storeError maps repository errors onto HTTP responses.
func (h *Handler) storeError(c *gin.Context, err error, what string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(c, http.StatusNotFound, what+" not found")
	case errors.Is(err, store.ErrInsufficientCredits):
		respondError(c, http.StatusPaymentRequired, "Insufficient credits")
	default:
		h.logger.WithError(err).WithField("resource", what).Error("Store operation failed")
		respondError(c, http.StatusInternalServerError, "Internal server error")
	}
}

// requireCredits rejects users with an empty balance before any model call.
// The authoritative check is the guarded debit in ChargeUsage.
func requireCredits(c *gin.Context, user store.User) bool {
	if user.Credits <= 0 {
		respondError(c, http.StatusPaymentRequired, "Insufficient credits")
		return false
	}
	return true
}

// charge debits usage and optionally saves generated content. The caller has
// already produced the result, so an insufficient balance here discards it.
func (h *Handler) charge(c *gin.Context, user store.User, operation, model string, usage llm.Usage, content *store.GeneratedContent) (store.ChargeResult, bool) {
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	if model == "" {
		model = h.modelLabel
	}
	res, err := h.store.ChargeUsage(c.Request.Context(), store.Charge{
		UserID: user.ID,
		Usage: store.TokenUsage{
			Model:            model,
			Operation:        operation,
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
			TotalTokens:      usage.TotalTokens,
		},
		Content: content,
	})
	if err != nil {
		h.metrics.IncGeneration(operation, "charge_failed")
		h.storeError(c, err, "user")
		return store.ChargeResult{}, false
	}
	h.metrics.AddCredits(operation, usage.TotalTokens)
	if h.usage != nil {
		h.usage.RecordGeneration(user.ID, operation, usage)
	}
	return res, true
}

// upstreamError reports a failed model or research call. A cancelled request
// gets its own status so clients can tell it from an upstream failure.
func upstreamError(ctx context.Context, c *gin.Context, msg string) {
	if errors.Is(ctx.Err(), context.Canceled) {
		respondError(c, statusClientClosedRequest, "Generation cancelled")
		return
	}
	respondError(c, http.StatusBadGateway, msg)
}

func queryInt(c *gin.Context, key string, def int) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func marshalContent(v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}
