package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"teknigo_backend/internal/common"
)

// securityHeaders are set on every response.
var securityHeaders = map[string]string{
	"X-Content-Type-Options":    "nosniff",
	"X-XSS-Protection":          "1; mode=block",
	"X-Frame-Options":           "DENY",
	"Referrer-Policy":           "strict-origin-when-cross-origin",
	"Permissions-Policy":        "camera=(), microphone=(), geolocation=()",
	"Strict-Transport-Security": "max-age=63072000; includeSubDomains; preload",
	"X-DNS-Prefetch-Control":    "on",
	"Content-Security-Policy":   "default-src 'none'; frame-ancestors 'none'; base-uri 'none'",
}

// blockedPathFragments are never served, whatever the route table says.
var blockedPathFragments = []string{".env", "config.", ".git"}

// SecurityHeaders sets the security response headers, rejects probes for configuration files
// and logs access to admin routes.
func SecurityHeaders(logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("security")
	return func(c *gin.Context) {
		h := c.Writer.Header()
		for k, v := range securityHeaders {
			h.Set(k, v)
		}
		h.Del("Server")

		path := c.Request.URL.Path
		for _, fragment := range blockedPathFragments {
			if strings.Contains(path, fragment) {
				log.Warn("Blocked request for protected path",
					zap.String("path", path),
					zap.String("ip", c.ClientIP()),
					zap.String("user_agent", c.Request.UserAgent()),
				)
				common.RespondWithError(c, common.ErrForbidden)
				return
			}
		}

		if strings.Contains(path, "/admin") {
			log.Info("Admin route accessed",
				zap.String("path", path),
				zap.String("method", c.Request.Method),
				zap.String("ip", c.ClientIP()),
				zap.String("user_agent", c.Request.UserAgent()),
			)
		}
		c.Next()
	}
}
