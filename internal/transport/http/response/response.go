package response

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"claim-evaluator/internal/analysis"
	"claim-evaluator/internal/app"
)

const (
	TypeGeneralError    = "general_error"
	TypeGeneralThrottle = "general_throttle"
	TypeAIThrottle      = "ai_throttle"
)

// ErrorBody is the payload of every failed request. The dashboard shows
// Message verbatim.
type ErrorBody struct {
	Message    string `json:"message"`
	Type       string `json:"type,omitempty"`
	RetryAfter int    `json:"retryAfter,omitempty"`
	Stack      string `json:"stack,omitempty"`
}

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

func Error(c *gin.Context, httpStatus int, message string) {
	c.AbortWithStatusJSON(httpStatus, ErrorBody{Message: message})
}

func Throttled(c *gin.Context, kind string, retryAfter int) {
	scope := "general"
	if kind == TypeAIThrottle {
		scope = "AI"
	}
	c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorBody{
		Message:    fmt.Sprintf("Rate limit exceeded for %s requests. Please try again later.", scope),
		Type:       kind,
		RetryAfter: retryAfter,
	})
}

// FromError maps a service error onto a status code. Validation and
// not-found messages are shown to the user; anything else is logged and
// replaced by fallback.
func FromError(c *gin.Context, err error, fallback string) {
	var validationErr *app.ValidationError
	var notFoundErr *app.NotFoundError
	var analysisErr *analysis.AnalysisError
	switch {
	case errors.As(err, &validationErr):
		Error(c, http.StatusBadRequest, validationErr.Message)
	case errors.As(err, &notFoundErr):
		Error(c, http.StatusNotFound, notFoundErr.Message)
	case errors.As(err, &analysisErr):
		slog.Error("analysis failed", "path", c.FullPath(), "strategy", analysisErr.Strategy, "error", err)
		Error(c, http.StatusInternalServerError, fallback)
	default:
		slog.Error("request failed", "path", c.FullPath(), "error", err)
		Error(c, http.StatusInternalServerError, fallback)
	}
}
