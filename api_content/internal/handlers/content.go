package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListContent(c *gin.Context) {
	user := currentUser(c)
	items, err := h.store.ListContent(c.Request.Context(), user.ID, c.Query("platform"),
		queryInt(c, "limit", 0), queryInt(c, "offset", 0))
	if err != nil {
		h.storeError(c, err, "content")
		return
	}
	respondData(c, http.StatusOK, items)
}

func (h *Handler) GetContent(c *gin.Context) {
	user := currentUser(c)
	item, err := h.store.GetContent(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		h.storeError(c, err, "Content")
		return
	}
	respondData(c, http.StatusOK, item)
}

func (h *Handler) DeleteContent(c *gin.Context) {
	user := currentUser(c)
	if err := h.store.DeleteContent(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		h.storeError(c, err, "Content")
		return
	}
	respondData(c, http.StatusOK, gin.H{"deleted": true})
}
