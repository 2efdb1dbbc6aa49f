package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tastesync/api_content/internal/memory"
)

const maxMemoryResults = 50

type storeConversationRequest struct {
	ConversationID string        `json:"conversationId" binding:"required"`
	Turns          []memory.Turn `json:"turns" binding:"required,min=1,dive"`
}

func memoryLimit(c *gin.Context) int {
	limit := queryInt(c, "limit", 10)
	if limit <= 0 || limit > maxMemoryResults {
		return 10
	}
	return limit
}

// SearchMemories queries the caller's remote memories. It returns an empty
// list when remote memory is disabled or unavailable.
func (h *Handler) SearchMemories(c *gin.Context) {
	user := currentUser(c)
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		respondError(c, http.StatusBadRequest, "q is required")
		return
	}
	respondData(c, http.StatusOK, h.memory.SearchMemories(c.Request.Context(), user.ID, query, memoryLimit(c)))
}

func (h *Handler) ConversationHistory(c *gin.Context) {
	user := currentUser(c)
	mc := memoryContext(c, user, c.Query("conversationId"))
	respondData(c, http.StatusOK, h.memory.GetConversationHistory(c.Request.Context(), mc, memoryLimit(c)))
}

func (h *Handler) StoreConversation(c *gin.Context) {
	user := currentUser(c)
	var req storeConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	mc := memoryContext(c, user, req.ConversationID)
	if err := h.memory.StoreConversation(c.Request.Context(), mc, req.Turns); err != nil {
		h.logger.WithError(err).WithField("user_id", user.ID).Warn("Failed to store conversation")
		upstreamError(c.Request.Context(), c, "Memory unavailable")
		return
	}
	respondData(c, http.StatusCreated, gin.H{"conversationId": req.ConversationID, "turns": len(req.Turns)})
}
