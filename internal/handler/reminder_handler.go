package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"reminder-engine/internal/stats"
)

func (h *Handler) Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// RunReminders is the scheduler's entry point. Authentication has already
// happened in middleware; configuration is checked before any store access.
func (h *Handler) RunReminders(c *gin.Context) {
	if len(h.missing) > 0 || h.engine == nil {
		h.log.WithField("missing", h.missing).Error("reminders: configuration incomplete")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "missing configuration"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	c.JSON(http.StatusOK, h.engine.Run(ctx))
}

func (h *Handler) Status(c *gin.Context) {
	if h.stats == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run statistics disabled"})
		return
	}
	s, err := h.stats.Summary(c.Request.Context())
	switch {
	case errors.Is(err, stats.ErrNoRuns):
		c.JSON(http.StatusNotFound, gin.H{"error": "no runs recorded"})
	case err != nil:
		h.log.WithError(err).Error("reminders: reading run statistics failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	default:
		c.JSON(http.StatusOK, s)
	}
}
