package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"job-portal/config"
)

const (
	headerRequestID = "X-Request-ID"

	contextRequestID = "request_id"
	contextLogger    = "request_logger"

	// longer client supplied ids are replaced
	maxRequestIDLength = 64
)

// RequestContext tags each request with an id, echoed in X-Request-ID, and
// stores a logger carrying that id for RequestLogger.
func RequestContext(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerRequestID))
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}

		c.Set(contextRequestID, id)
		c.Set(contextLogger, logger.With(zap.String("request_id", id)))
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// GetRequestID returns the id assigned by RequestContext, empty outside it.
func GetRequestID(c *gin.Context) string {
	return c.GetString(contextRequestID)
}

// RequestLogger returns the request scoped logger, or fallback when the
// request did not pass through RequestContext.
func RequestLogger(c *gin.Context, fallback *zap.Logger) *zap.Logger {
	if v, ok := c.Get(contextLogger); ok {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	return fallback
}

// AccessLog writes one line per request after the handler chain has run.
// The route's :id parameter is logged under the name of the resource it
// identifies. verbose adds the query string, user agent and response size.
func AccessLog(logger *zap.Logger, verbose bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if id, ok := GetCurrentUserID(c); ok {
			fields = append(fields, zap.String("user_id", id.String()), zap.String("username", c.GetString(contextUsername)))
		}
		if f, ok := resourceField(c); ok {
			fields = append(fields, f)
		}
		if verbose {
			fields = append(fields,
				zap.String("query", c.Request.URL.RawQuery),
				zap.String("user_agent", c.Request.UserAgent()),
				zap.Int("response_size", c.Writer.Size()),
			)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		log := RequestLogger(c, logger)
		switch {
		case status >= 500:
			log.Error("Request failed", fields...)
		case status >= 400:
			log.Warn("Request rejected", fields...)
		default:
			log.Info("Request served", fields...)
		}
	}
}

func resourceField(c *gin.Context) (zap.Field, bool) {
	id := c.Param("id")
	if id == "" {
		return zap.Field{}, false
	}
	route := c.FullPath()
	switch {
	case strings.Contains(route, "/offers/:id"):
		return zap.String("offer_id", id), true
	case strings.Contains(route, "/applications/:id"):
		return zap.String("application_id", id), true
	case strings.Contains(route, "/users/:id"):
		return zap.String("target_user_id", id), true
	}
	return zap.String("resource_id", id), true
}

// APIHeaders sets the response headers shared by every JSON endpoint.
// Responses to authenticated requests and token endpoints are never cached.
func APIHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		if c.GetHeader("Authorization") != "" || strings.Contains(c.Request.URL.Path, "/auth/") {
			c.Header("Cache-Control", "no-store")
		}
		c.Next()
	}
}

// CORS answers cross-origin requests from the configured front-end origins.
// A "*" entry allows any origin. Preflight requests stop here with 204.
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	allowed := make(map[string]bool, len(cfg.Origins))
	for _, o := range cfg.Origins {
		allowed[strings.TrimRight(strings.TrimSpace(o), "/")] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		c.Header("Vary", "Origin")
		if origin != "" && (allowed["*"] || allowed[origin]) {
			c.Header("Access-Control-Allow-Origin", origin)
			if cfg.Credentials {
				c.Header("Access-Control-Allow-Credentials", "true")
			}
			c.Header("Access-Control-Expose-Headers", "X-Request-ID, X-RateLimit-Limit, X-RateLimit-Remaining, Retry-After")
		}

		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", "GET, HEAD, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
			c.Header("Access-Control-Max-Age", "86400")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Recovery turns a panic into a 500 carrying the request id.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Any("panic", recovered),
		}
		if id, ok := GetCurrentUserID(c); ok {
			fields = append(fields, zap.String("user_id", id.String()))
		}
		RequestLogger(c, logger).Error("Panic recovered", fields...)

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":      "Internal server error",
			"code":       "INTERNAL_ERROR",
			"request_id": GetRequestID(c),
		})
	})
}
