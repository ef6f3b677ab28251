// Package handler exposes the book service over HTTP.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nbhson/git-book-reader/apps/server/internal/book"
)

// Handler translates HTTP requests into calls on the book.Service.
type Handler struct {
	svc *book.Service
	log *slog.Logger
}

// RegisterRoutes mounts the reader API onto the given Gin engine.
func RegisterRoutes(r *gin.Engine, svc *book.Service, log *slog.Logger) {
	h := &Handler{svc: svc, log: log}

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Repository
	r.POST("/repositories/load", h.Load)
	r.GET("/repositories/current", h.Current)
	r.GET("/repositories/current/events", h.Events)
	r.GET("/repositories/current/breadcrumb", h.Breadcrumb)
	r.GET("/repositories/current/content", h.Content)

	// History
	r.GET("/history", h.ListHistory)
	r.POST("/history", h.RecordVisit)
	r.POST("/history/remove", h.RemoveFromHistory)
	r.DELETE("/history", h.ClearHistory)
}
