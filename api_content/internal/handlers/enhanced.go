package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tastesync/api_content/internal/agents"
	"tastesync/api_content/internal/enhanced"
	"tastesync/api_content/internal/memory"
	"tastesync/api_content/internal/store"
	"tastesync/pkg/ctxkeys"
)

const (
	opEnhanced = "enhanced-generate"
	opResearch = "research-generate"
)

type enhancedRequest struct {
	enhanced.Request
	ConversationID string `json:"conversationId"`
}

type researchGenerateRequest struct {
	enhanced.ResearchRequest
	ConversationID string `json:"conversationId"`
}

type verifyRequest struct {
	Content string `json:"content" binding:"required"`
}

func memoryContext(c *gin.Context, user store.User, conversationID string) memory.Context {
	return memory.Context{
		UserID:         user.ID,
		SessionID:      ctxkeys.GetSessionID(c.Request.Context()),
		ConversationID: conversationID,
	}
}

func validPlatform(c *gin.Context, raw string) (string, bool) {
	p, err := agents.ParsePlatform(raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return "", false
	}
	return string(p), true
}

// EnhancedGenerate runs the research and memory assisted generation and
// charges the completion tokens.
func (h *Handler) EnhancedGenerate(c *gin.Context) {
	user := currentUser(c)
	var body enhancedRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	if strings.TrimSpace(body.SourceText) == "" && strings.TrimSpace(body.Topic) == "" {
		respondError(c, http.StatusBadRequest, enhanced.ErrEmptySource.Error())
		return
	}
	platform, ok := validPlatform(c, body.Platform)
	if !ok || !requireCredits(c, user) {
		return
	}
	req := body.Request
	req.Platform = platform
	req.Memory = memoryContext(c, user, body.ConversationID)

	out, err := h.enhancer.GenerateEnhancedContent(c.Request.Context(), req)
	if err != nil {
		h.metrics.IncGeneration(opEnhanced, "failed")
		h.logger.WithError(err).WithField("user_id", user.ID).Warn("Enhanced generation failed")
		upstreamError(c.Request.Context(), c, err.Error())
		return
	}
	payload, err := marshalContent(out)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	charged, ok := h.charge(c, user, opEnhanced, out.Model, out.Usage, &store.GeneratedContent{
		UserID:     user.ID,
		Platform:   platform,
		Tone:       req.Tone,
		Content:    payload,
		TokensUsed: out.TokensUsed,
	})
	if !ok {
		return
	}
	h.metrics.IncGeneration(opEnhanced, "success")
	respondData(c, http.StatusOK, gin.H{
		"id":               charged.ContentID,
		"result":           out,
		"remainingCredits": charged.RemainingCredits,
	})
}

func (h *Handler) EnhancedResearch(c *gin.Context) {
	user := currentUser(c)
	var body researchGenerateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	if strings.TrimSpace(body.Topic) == "" {
		respondError(c, http.StatusBadRequest, "topic is required")
		return
	}
	platform, ok := validPlatform(c, body.Platform)
	if !ok || !requireCredits(c, user) {
		return
	}
	req := body.ResearchRequest
	req.Platform = platform
	req.Memory = memoryContext(c, user, body.ConversationID)

	out, err := h.enhancer.CreateResearchEnhancedContent(c.Request.Context(), req)
	if err != nil {
		h.metrics.IncGeneration(opResearch, "failed")
		h.logger.WithError(err).WithField("user_id", user.ID).Warn("Research generation failed")
		upstreamError(c.Request.Context(), c, err.Error())
		return
	}
	payload, err := marshalContent(out)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	charged, ok := h.charge(c, user, opResearch, out.Model, out.Usage, &store.GeneratedContent{
		UserID:     user.ID,
		Platform:   platform,
		Tone:       req.Tone,
		Content:    payload,
		TokensUsed: out.TokensUsed,
	})
	if !ok {
		return
	}
	h.metrics.IncGeneration(opResearch, "success")
	respondData(c, http.StatusOK, gin.H{
		"id":               charged.ContentID,
		"result":           out,
		"remainingCredits": charged.RemainingCredits,
	})
}

// EnhancedVerify checks factual claims in content against search results.
// It makes no model call and is not charged.
func (h *Handler) EnhancedVerify(c *gin.Context) {
	user := currentUser(c)
	var body verifyRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	report, err := h.enhancer.VerifyContentClaims(c.Request.Context(), body.Content, memoryContext(c, user, ""))
	if err != nil {
		upstreamError(c.Request.Context(), c, err.Error())
		return
	}
	respondData(c, http.StatusOK, report)
}

func (h *Handler) EnhancedAnalytics(c *gin.Context) {
	user := currentUser(c)
	analytics, err := h.enhancer.GetPersonalizedAnalytics(c.Request.Context(), user.ID)
	if err != nil {
		h.storeError(c, err, "analytics")
		return
	}
	respondData(c, http.StatusOK, analytics)
}

func (h *Handler) EnhancedFeedback(c *gin.Context) {
	user := currentUser(c)
	var req enhanced.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	if req.ContentID != nil {
		if _, err := h.store.GetContent(c.Request.Context(), user.ID, *req.ContentID); err != nil {
			h.storeError(c, err, "Content")
			return
		}
	}
	res, err := h.enhancer.StoreFeedback(c.Request.Context(), user.ID, req)
	switch {
	case errors.Is(err, memory.ErrInvalidRating):
		respondError(c, http.StatusBadRequest, err.Error())
	case err != nil:
		h.storeError(c, err, "feedback")
	default:
		respondData(c, http.StatusCreated, res)
	}
}
