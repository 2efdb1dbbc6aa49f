package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tastesync/api_content/internal/store"
)

const (
	defaultUsageDays = 30
	maxUsageDays     = 365
)

func (h *Handler) GetMe(c *gin.Context) {
	respondData(c, http.StatusOK, currentUser(c))
}

// GetUsage summarizes token usage over the last ?days days.
func (h *Handler) GetUsage(c *gin.Context) {
	user := currentUser(c)
	days := queryInt(c, "days", defaultUsageDays)
	if days <= 0 || days > maxUsageDays {
		respondError(c, http.StatusBadRequest, "days must be between 1 and 365")
		return
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	summary, err := h.store.GetUsageSummary(c.Request.Context(), user.ID, since)
	if err != nil {
		h.storeError(c, err, "usage")
		return
	}
	respondData(c, http.StatusOK, gin.H{
		"credits": user.Credits,
		"days":    days,
		"usage":   summary,
	})
}

func (h *Handler) GetPreferences(c *gin.Context) {
	user := currentUser(c)
	prefs, found, err := h.memory.GetUserPreferences(c.Request.Context(), user.ID)
	if err != nil {
		h.storeError(c, err, "preferences")
		return
	}
	respondData(c, http.StatusOK, gin.H{"preferences": prefs, "saved": found})
}

func (h *Handler) PutPreferences(c *gin.Context) {
	user := currentUser(c)
	var prefs store.Preferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	if err := h.memory.StoreUserPreferences(c.Request.Context(), user.ID, prefs); err != nil {
		h.storeError(c, err, "preferences")
		return
	}
	respondData(c, http.StatusOK, gin.H{"preferences": prefs, "saved": true})
}
