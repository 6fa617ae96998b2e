package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"claim-evaluator/internal/transport/http/response"
)

// Recovery turns a panic into a generic 500. The stack trace is included in
// the body only when exposeStack is set.
func Recovery(logger *slog.Logger, exposeStack bool) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		stack := string(debug.Stack())
		logger.Error("panic recovered",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"panic", recovered,
			"stack", stack,
		)

		body := response.ErrorBody{
			Message: "Internal Server Error",
			Type:    response.TypeGeneralError,
		}
		if exposeStack {
			body.Stack = stack
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, body)
	})
}
