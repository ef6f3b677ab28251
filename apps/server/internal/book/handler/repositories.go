package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nbhson/git-book-reader/apps/server/internal/book"
)

type identifierRequest struct {
	Identifier string `json:"identifier" binding:"required"`
}

// Load handles POST /repositories/load. The load outlives the request; with
// ?wait=true the response is the snapshot that load produced.
func (h *Handler) Load(c *gin.Context) {
	var req identifierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	gen, done := h.svc.StartLoad(context.WithoutCancel(c.Request.Context()), req.Identifier)

	if c.Query("wait") != "true" {
		status := book.StatusLoading
		select {
		case snap := <-done:
			status = snap.Status
		default:
		}
		c.JSON(http.StatusAccepted, gin.H{"generation": gen, "status": status})
		return
	}

	select {
	case snap := <-done:
		c.JSON(http.StatusOK, toSnapshot(snap, true))
	case <-c.Request.Context().Done():
	}
}

// Current handles GET /repositories/current.
func (h *Handler) Current(c *gin.Context) {
	c.JSON(http.StatusOK, toSnapshot(h.svc.State(), true))
}

// Events handles GET /repositories/current/events, streaming every published
// snapshot until the client goes away.
func (h *Handler) Events(c *gin.Context) {
	ch, cancel := h.svc.Subscribe()
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(_ io.Writer) bool {
		select {
		case snap, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("snapshot", toSnapshot(snap, false))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// Breadcrumb handles GET /repositories/current/breadcrumb?path=.
func (h *Handler) Breadcrumb(c *gin.Context) {
	nodes, err := h.svc.Breadcrumb(c.Query("path"))
	if err != nil {
		h.respondError(c, "breadcrumb failed", err)
		return
	}
	out := make([]nodeResponse, len(nodes))
	for i, n := range nodes {
		out[i] = nodeResponse{ID: int(n.ID), Name: n.Name, Path: n.Path, Kind: string(n.Kind), ContentAddress: n.ContentAddress}
	}
	c.JSON(http.StatusOK, gin.H{"nodes": out})
}

type nodeResponse struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Path           string `json:"path"`
	Kind           string `json:"kind"`
	ContentAddress string `json:"contentAddress,omitempty"`
}

// Content handles GET /repositories/current/content?path=, returning the raw
// markdown text.
func (h *Handler) Content(c *gin.Context) {
	text, err := h.svc.FetchFileContent(c.Request.Context(), c.Query("path"))
	if err != nil {
		if c.Request.Context().Err() != nil {
			return
		}
		h.respondError(c, "fetch content failed", err)
		return
	}
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(text))
}
