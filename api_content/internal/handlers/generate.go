package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tastesync/api_content/internal/agents"
	"tastesync/api_content/internal/inflight"
	"tastesync/api_content/internal/store"
	"tastesync/pkg/logging"
)

const (
	opGenerate         = "generate"
	opAnalyze          = "analyze"
	opSuggestPlatforms = "suggest-platforms"
)

type generateRequest struct {
	DocumentID         string `json:"documentId"`
	SourceText         string `json:"sourceText"`
	Platform           string `json:"platform" binding:"required"`
	Tone               string `json:"tone"`
	CustomInstructions string `json:"customInstructions"`
	TargetAudience     string `json:"targetAudience"`
	Optimize           bool   `json:"optimize"`
	RequestID          string `json:"requestId"`
}

// sourceRequest is the body shared by analyze and suggest-platforms.
type sourceRequest struct {
	DocumentID     string `json:"documentId"`
	SourceText     string `json:"sourceText"`
	Tone           string `json:"tone"`
	TargetAudience string `json:"targetAudience"`
}

// resolveSource returns the text to work from: the inline text when given,
// otherwise the caller's document.
func (h *Handler) resolveSource(c *gin.Context, user store.User, documentID, sourceText string) (string, *string, bool) {
	if text := strings.TrimSpace(sourceText); text != "" {
		return text, nil, true
	}
	if documentID == "" {
		respondError(c, http.StatusBadRequest, "sourceText or documentId is required")
		return "", nil, false
	}
	doc, err := h.store.GetDocument(c.Request.Context(), user.ID, documentID)
	if err != nil {
		h.storeError(c, err, "Document")
		return "", nil, false
	}
	if strings.TrimSpace(doc.Content) == "" {
		respondError(c, http.StatusBadRequest, "Document is empty")
		return "", nil, false
	}
	return doc.Content, &doc.ID, true
}

// Generate produces content for one platform and saves it, charging the
// tokens in the same transaction.
func (h *Handler) Generate(c *gin.Context) {
	user := currentUser(c)
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	platform, err := agents.ParsePlatform(req.Platform)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if !requireCredits(c, user) {
		return
	}
	source, docID, ok := h.resolveSource(c, user, req.DocumentID, req.SourceText)
	if !ok {
		return
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ctx, done, err := h.registry.Register(c.Request.Context(), requestID, user.ID)
	if err != nil {
		respondError(c, http.StatusConflict, "Generation with this requestId is already running")
		return
	}
	defer done()

	log := h.logger.WithFields(logging.Fields{
		"user_id":    user.ID,
		"platform":   platform,
		"request_id": requestID,
	})

	res := h.agents.Generate(ctx, platform, agents.Request{
		SourceText:         source,
		Tone:               req.Tone,
		CustomInstructions: req.CustomInstructions,
		TargetAudience:     req.TargetAudience,
	})
	if !res.Success || res.Data == nil {
		h.metrics.IncGeneration(opGenerate, "failed")
		log.WithField("error", res.Error).Warn("Generation failed")
		upstreamError(ctx, c, res.Error)
		return
	}

	out := *res.Data
	if req.Optimize {
		out = h.agents.Optimize(out)
	}
	payload, err := marshalContent(out)
	if err != nil {
		log.WithError(err).Error("Failed to encode generated content")
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	charged, ok := h.charge(c, user, opGenerate, res.Model, res.Usage, &store.GeneratedContent{
		UserID:     user.ID,
		DocumentID: docID,
		Platform:   string(platform),
		Tone:       req.Tone,
		Content:    payload,
		TokensUsed: res.TokensUsed,
	})
	if !ok {
		return
	}
	h.metrics.IncGeneration(opGenerate, "success")
	log.WithFields(logging.Fields{
		"tokens":            res.TokensUsed,
		"remaining_credits": charged.RemainingCredits,
	}).Info("Content generated")

	respondData(c, http.StatusOK, gin.H{
		"id":               charged.ContentID,
		"requestId":        requestID,
		"platform":         platform,
		"content":          out,
		"tokensUsed":       res.TokensUsed,
		"remainingCredits": charged.RemainingCredits,
		"createdAt":        charged.CreatedAt,
	})
}

// CancelGeneration stops an in-flight generation owned by the caller. A
// cancel forwarded to other instances is answered with 202 since its effect
// is not observed here.
func (h *Handler) CancelGeneration(c *gin.Context) {
	user := currentUser(c)
	requestID := c.Param("requestId")
	outcome, err := h.canceller.Cancel(c.Request.Context(), requestID, user.ID)
	switch {
	case err == nil && outcome == inflight.Forwarded:
		respondData(c, http.StatusAccepted, gin.H{"requestId": requestID, "cancelRequested": true})
	case err == nil:
		respondData(c, http.StatusOK, gin.H{"requestId": requestID, "cancelled": true})
	case errors.Is(err, inflight.ErrUnknownRequest):
		respondError(c, http.StatusNotFound, "Generation not found")
	case errors.Is(err, inflight.ErrNotOwner):
		respondError(c, http.StatusForbidden, "Generation belongs to another user")
	default:
		h.logger.WithError(err).WithField("request_id", requestID).Error("Failed to cancel generation")
		respondError(c, http.StatusInternalServerError, "Failed to cancel generation")
	}
}

func (h *Handler) Analyze(c *gin.Context) {
	user := currentUser(c)
	req, ok := h.bindSource(c, user)
	if !ok {
		return
	}
	res := h.agents.Analyze(c.Request.Context(), req)
	if !res.Success || res.Data == nil {
		h.metrics.IncGeneration(opAnalyze, "failed")
		upstreamError(c.Request.Context(), c, res.Error)
		return
	}
	charged, ok := h.charge(c, user, opAnalyze, res.Model, res.Usage, nil)
	if !ok {
		return
	}
	h.metrics.IncGeneration(opAnalyze, "success")
	respondData(c, http.StatusOK, gin.H{
		"analysis":         res.Data,
		"tokensUsed":       res.TokensUsed,
		"remainingCredits": charged.RemainingCredits,
	})
}

func (h *Handler) SuggestPlatforms(c *gin.Context) {
	user := currentUser(c)
	req, ok := h.bindSource(c, user)
	if !ok {
		return
	}
	res := h.agents.SuggestPlatforms(c.Request.Context(), req)
	if !res.Success || res.Data == nil {
		h.metrics.IncGeneration(opSuggestPlatforms, "failed")
		upstreamError(c.Request.Context(), c, res.Error)
		return
	}
	charged, ok := h.charge(c, user, opSuggestPlatforms, res.Model, res.Usage, nil)
	if !ok {
		return
	}
	h.metrics.IncGeneration(opSuggestPlatforms, "success")
	respondData(c, http.StatusOK, gin.H{
		"recommendation":   res.Data,
		"tokensUsed":       res.TokensUsed,
		"remainingCredits": charged.RemainingCredits,
	})
}

func (h *Handler) bindSource(c *gin.Context, user store.User) (agents.Request, bool) {
	var body sourceRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return agents.Request{}, false
	}
	if !requireCredits(c, user) {
		return agents.Request{}, false
	}
	source, _, ok := h.resolveSource(c, user, body.DocumentID, body.SourceText)
	if !ok {
		return agents.Request{}, false
	}
	return agents.Request{SourceText: source, Tone: body.Tone, TargetAudience: body.TargetAudience}, true
}
