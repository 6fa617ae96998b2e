package middleware

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"claim-evaluator/internal/ratelimit"
	"claim-evaluator/internal/transport/http/response"
)

var analysisPaths = []string{
	"/api/quick-analysis",
	"/api/comprehensive-analysis",
}

// IsAnalysisPath reports whether path runs the claims engine.
func IsAnalysisPath(path string) bool {
	if strings.HasPrefix(path, "/api/analysis/") {
		return true
	}
	for _, p := range analysisPaths {
		if path == p {
			return true
		}
	}
	return false
}

// RateLimit counts requests per client IP. Analysis paths are counted in a
// separate, smaller bucket. Errors from the counter store let the request
// through.
func RateLimit(limiter *ratelimit.Limiter, logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		decision, err := limiter.Allow(c.Request.Context(), c.ClientIP(), IsAnalysisPath(c.Request.URL.Path))
		if err != nil {
			logger.Warn("rate limit store unavailable", "client", c.ClientIP(), "error", err)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if !decision.Allowed {
			retryAfter := decision.RetryAfterSeconds()
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			response.Throttled(c, string(decision.Kind), retryAfter)
			return
		}
		c.Next()
	}
}
