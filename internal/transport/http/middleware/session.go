package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderSessionID     = "X-Session-ID"
	ContextSessionIDKey = "session_id"
)

// SessionID echoes the caller's X-Session-ID or issues a new one, so the
// dashboard can correlate its requests.
func SessionID() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := strings.TrimSpace(c.GetHeader(HeaderSessionID))
		if sessionID == "" || len(sessionID) > 128 {
			sessionID = uuid.NewString()
		}
		c.Set(ContextSessionIDKey, sessionID)
		c.Header(HeaderSessionID, sessionID)
		c.Next()
	}
}

// CacheControl lets browsers keep analysis responses for five minutes and
// forces revalidation of every other API response.
func CacheControl() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		switch {
		case IsAnalysisPath(path):
			c.Header("Cache-Control", "private, max-age=300")
		case strings.HasPrefix(path, "/api/"):
			c.Header("Cache-Control", "no-cache")
		}
		c.Next()
	}
}
