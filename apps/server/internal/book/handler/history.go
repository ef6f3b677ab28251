package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type removeRequest struct {
	Identifiers []string `json:"identifiers" binding:"required"`
}

// ListHistory handles GET /history.
func (h *Handler) ListHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"repositories": h.svc.History()})
}

// RecordVisit handles POST /history.
func (h *Handler) RecordVisit(c *gin.Context) {
	var req identifierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.RecordVisit(c.Request.Context(), req.Identifier); err != nil {
		h.historyFailed(c, "record visit failed", err)
		return
	}
	h.ListHistory(c)
}

// RemoveFromHistory handles POST /history/remove.
func (h *Handler) RemoveFromHistory(c *gin.Context) {
	var req removeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.RemoveFromHistory(c.Request.Context(), req.Identifiers...); err != nil {
		h.historyFailed(c, "remove from history failed", err)
		return
	}
	h.ListHistory(c)
}

// ClearHistory handles DELETE /history.
func (h *Handler) ClearHistory(c *gin.Context) {
	if err := h.svc.ClearHistory(c.Request.Context()); err != nil {
		h.historyFailed(c, "clear history failed", err)
		return
	}
	h.ListHistory(c)
}

// historyFailed reports a failed write. The in-memory list already changed,
// so it is returned alongside the error.
func (h *Handler) historyFailed(c *gin.Context, msg string, err error) {
	h.log.Error(msg, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":        err.Error(),
		"kind":         "internal",
		"repositories": h.svc.History(),
	})
}
