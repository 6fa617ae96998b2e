package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"claim-evaluator/internal/progress"
)

type ProgressHandler struct {
	hub *progress.Hub
}

func NewProgressHandler(hub *progress.Hub) *ProgressHandler {
	return &ProgressHandler{hub: hub}
}

// Connect upgrades to a WebSocket that receives progress frames until the
// client disconnects.
func (h *ProgressHandler) Connect(c *gin.Context) {
	if err := h.hub.ServeWS(c.Writer, c.Request); err != nil {
		// The upgrader has already written the HTTP error.
		slog.Debug("progress websocket rejected", "remote", c.ClientIP(), "error", err)
	}
}
