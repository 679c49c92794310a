package httpapi

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/topaplus/commandcenter/pkg/mcperr"
)

// RequestIDHeader carries the request id in and out.
const RequestIDHeader = "X-Request-Id"

// AdminKeyHeader carries the admin key of mutating routes.
const AdminKeyHeader = "X-Admin-Key"

// RequestID reuses the caller's id or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(RequestIDHeader, rid)
		c.Writer.Header().Set(RequestIDHeader, rid)
		c.Next()
	}
}

// Logger writes one access log line per request.
func Logger(l zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		evt := l.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			evt = l.Error()
		}
		evt.
			Str("request_id", c.GetString(RequestIDHeader)).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Dur("latency", latency).
			Msg("request")
	}
}

// AdminKey guards a route group. An empty key leaves the group open.
func AdminKey(required string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if required == "" {
			c.Next()
			return
		}
		key := c.GetHeader(AdminKeyHeader)
		if subtle.ConstantTimeCompare([]byte(key), []byte(required)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody(mcperr.PermissionDenied, "invalid admin key"))
			return
		}
		c.Next()
	}
}
