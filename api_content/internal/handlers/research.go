package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tastesync/api_content/internal/research"
)

func (h *Handler) Trending(c *gin.Context) {
	req := research.TrendingRequest{
		Platform:  c.Query("platform"),
		Timeframe: c.Query("timeframe"),
		Industry:  c.Query("industry"),
		Limit:     queryInt(c, "limit", 0),
	}
	out, err := h.research.GetTrendingTopics(c.Request.Context(), req)
	if err != nil {
		h.logger.WithError(err).Warn("Trending lookup failed")
		upstreamError(c.Request.Context(), c, "Trending topics unavailable")
		return
	}
	respondData(c, http.StatusOK, out)
}

func (h *Handler) Search(c *gin.Context) {
	var req research.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	out, err := h.research.Search(c.Request.Context(), req)
	switch {
	case errors.Is(err, research.ErrEmptyQuery):
		respondError(c, http.StatusBadRequest, "query is required")
	case err != nil:
		h.logger.WithError(err).Warn("Research search failed")
		upstreamError(c.Request.Context(), c, "Search unavailable")
	default:
		respondData(c, http.StatusOK, out)
	}
}
