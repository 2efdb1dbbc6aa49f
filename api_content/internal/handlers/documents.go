package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tastesync/pkg/logging"
)

type createDocumentRequest struct {
	Title   string `json:"title" binding:"required,max=500"`
	Content string `json:"content" binding:"required"`
}

func (h *Handler) CreateDocument(c *gin.Context) {
	user := currentUser(c)
	var req createDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	doc, err := h.store.CreateDocument(c.Request.Context(), user.ID, req.Title, req.Content)
	if err != nil {
		h.storeError(c, err, "document")
		return
	}
	h.logger.WithFields(logging.Fields{
		"user_id":     user.ID,
		"document_id": doc.ID,
		"word_count":  doc.WordCount,
	}).Info("Document created")
	respondData(c, http.StatusCreated, doc)
}

func (h *Handler) ListDocuments(c *gin.Context) {
	user := currentUser(c)
	docs, err := h.store.ListDocuments(c.Request.Context(), user.ID, queryInt(c, "limit", 0), queryInt(c, "offset", 0))
	if err != nil {
		h.storeError(c, err, "documents")
		return
	}
	respondData(c, http.StatusOK, docs)
}

func (h *Handler) GetDocument(c *gin.Context) {
	user := currentUser(c)
	doc, err := h.store.GetDocument(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		h.storeError(c, err, "Document")
		return
	}
	respondData(c, http.StatusOK, doc)
}

func (h *Handler) DeleteDocument(c *gin.Context) {
	user := currentUser(c)
	if err := h.store.DeleteDocument(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		h.storeError(c, err, "Document")
		return
	}
	respondData(c, http.StatusOK, gin.H{"deleted": true})
}
